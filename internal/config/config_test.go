package config

import (
	"errors"
	"os"
	"testing"
	"time"
)

func TestLoad_WritesDefaultsOnFirstRun(t *testing.T) {
	t.Setenv("SUREFINE_CONFIG_DIR", t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.PrimaryHostLimit != 3 || cfg.LinksPerHostLimit != 1 {
		t.Fatalf("unexpected limits: %d/%d", cfg.PrimaryHostLimit, cfg.LinksPerHostLimit)
	}
	if _, err := os.Stat(ConfigPath()); err != nil {
		t.Fatalf("expected config file to be written: %v", err)
	}
}

func TestLoad_RoundTripsSavedValues(t *testing.T) {
	t.Setenv("SUREFINE_CONFIG_DIR", t.TempDir())

	cfg := DefaultConfig()
	cfg.HostPriority = []string{"gofile", "mediafire"}
	cfg.PrimaryHostLimit = 1
	if err := cfg.Save(); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	loaded, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	opts := loaded.MirrorOptions()
	if len(opts.HostPriority) != 2 || opts.HostPriority[0] != "gofile" || opts.PrimaryHostLimit != 1 {
		t.Fatalf("unexpected mirror options: %+v", opts)
	}
}

func TestLoad_RejectsInvalidFile(t *testing.T) {
	t.Setenv("SUREFINE_CONFIG_DIR", t.TempDir())

	if err := os.WriteFile(ConfigPath(), []byte(`{"host_priority": []}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(); !errors.Is(err, ErrEmptyHostPriority) {
		t.Fatalf("expected ErrEmptyHostPriority, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"defaults are valid", func(*Config) {}, nil},
		{"negative host limit", func(c *Config) { c.PrimaryHostLimit = -1 }, ErrInvalidLimit},
		{"negative per-host limit", func(c *Config) { c.LinksPerHostLimit = -1 }, ErrInvalidLimit},
		{"zero rate", func(c *Config) { c.RequestsPerSecond = 0 }, ErrInvalidRate},
		{"negative debounce", func(c *Config) { c.DebounceMillis = -5 }, ErrInvalidDebounce},
		{"zero interval", func(c *Config) { c.WatchIntervalSeconds = 0 }, ErrInvalidInterval},
		{"zero downloads", func(c *Config) { c.MaxConcurrentDownloads = 0 }, ErrInvalidConcurrency},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			if err := cfg.Validate(); !errors.Is(err, tc.want) {
				t.Fatalf("Validate() = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestDurations(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Debounce() != time.Second {
		t.Errorf("expected 1s debounce, got %v", cfg.Debounce())
	}
	if cfg.WatchInterval() != 30*time.Second {
		t.Errorf("expected 30s interval, got %v", cfg.WatchInterval())
	}
	if cfg.TrailerTTL() != 30*24*time.Hour {
		t.Errorf("expected 30 day TTL, got %v", cfg.TrailerTTL())
	}
}

func TestCardOptions_CopiesSlices(t *testing.T) {
	cfg := DefaultConfig()
	opts := cfg.CardOptions()
	if opts.ScreenshotLimit != 6 || opts.Mirrors.PrimaryHostLimit != 3 {
		t.Fatalf("unexpected options %+v", opts)
	}
	opts.StripWords[0] = "changed"
	opts.Mirrors.HostPriority[0] = "changed"
	if cfg.StripWords[0] == "changed" || cfg.HostPriority[0] == "changed" {
		t.Fatal("options should not alias the config's slices")
	}
}
