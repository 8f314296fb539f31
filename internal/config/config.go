package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/JohnDeved/surefine-cli/internal/card"
	"github.com/JohnDeved/surefine-cli/internal/mirror"
)

func homeDirOrFallback() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "."
	}
	return home
}

// Config holds all user-configurable settings.
type Config struct {
	// SiteOrigin is the origin of the game site; links back to it are internal.
	SiteOrigin string `json:"site_origin"`
	// HostPriority orders the known file hosts, most preferred first.
	HostPriority []string `json:"host_priority"`
	// PrimaryHostLimit caps how many host groups are shown before the toggle.
	PrimaryHostLimit int `json:"primary_host_limit"`
	// LinksPerHostLimit caps how many links of one host are shown before the toggle.
	LinksPerHostLimit int `json:"links_per_host_limit"`
	// StripWords are removed from page titles.
	StripWords []string `json:"strip_words"`
	// TrailerQueries are appended to the title, in order, when searching for a trailer.
	TrailerQueries []string `json:"trailer_queries"`
	// TrailerCacheDays controls how long a found trailer is reused.
	TrailerCacheDays int `json:"trailer_cache_days"`
	// RequestsPerSecond rate-limits HTTP requests.
	RequestsPerSecond float64 `json:"requests_per_second"`
	// DebounceMillis coalesces bursts of page changes in watch mode.
	DebounceMillis int `json:"debounce_ms"`
	// WatchIntervalSeconds is how often watch mode polls the page.
	WatchIntervalSeconds int `json:"watch_interval_seconds"`
	// ScreenshotDir is where screenshots are saved.
	ScreenshotDir string `json:"screenshot_dir"`
	// ScreenshotLimit caps the fallback screenshot selection.
	ScreenshotLimit int `json:"screenshot_limit"`
	// MaxConcurrentDownloads is how many screenshots to download in parallel.
	MaxConcurrentDownloads int `json:"max_concurrent_downloads"`
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	home := homeDirOrFallback()
	return &Config{
		SiteOrigin: "https://steamunderground.net",
		HostPriority: []string{
			"datanodes", "torrent", "gofile", "akirabox", "mediafire", "pixeldrain",
			"megaup", "1fichier", "rapidgator", "hitfile", "nitroflare", "ddl",
		},
		PrimaryHostLimit:  3,
		LinksPerHostLimit: 1,
		StripWords:        []string{"PC Game", "Free Download", "Direct Download"},
		TrailerQueries: []string{
			"review", "gameplay", "impressions", "first look", "early access", "trailer", "overview", "",
		},
		TrailerCacheDays:       30,
		RequestsPerSecond:      2.0,
		DebounceMillis:         1000,
		WatchIntervalSeconds:   30,
		ScreenshotDir:          filepath.Join(home, "Pictures", "surefine"),
		ScreenshotLimit:        6,
		MaxConcurrentDownloads: 3,
	}
}

// MirrorOptions returns the extraction settings.
func (c *Config) MirrorOptions() mirror.Options {
	return mirror.Options{
		HostPriority:      append([]string(nil), c.HostPriority...),
		PrimaryHostLimit:  c.PrimaryHostLimit,
		LinksPerHostLimit: c.LinksPerHostLimit,
	}
}

// CardOptions returns the card assembly settings.
func (c *Config) CardOptions() card.Options {
	return card.Options{
		StripWords:      append([]string(nil), c.StripWords...),
		Mirrors:         c.MirrorOptions(),
		ScreenshotLimit: c.ScreenshotLimit,
	}
}

// Debounce returns the watch-mode debounce delay.
func (c *Config) Debounce() time.Duration {
	return time.Duration(c.DebounceMillis) * time.Millisecond
}

// WatchInterval returns the watch-mode poll interval.
func (c *Config) WatchInterval() time.Duration {
	return time.Duration(c.WatchIntervalSeconds) * time.Second
}

// TrailerTTL returns how long cached trailers stay valid.
func (c *Config) TrailerTTL() time.Duration {
	return time.Duration(c.TrailerCacheDays) * 24 * time.Hour
}

// Validate checks the configuration for values the tool cannot work with.
func (c *Config) Validate() error {
	if len(c.HostPriority) == 0 {
		return ErrEmptyHostPriority
	}
	if c.PrimaryHostLimit < 0 || c.LinksPerHostLimit < 0 {
		return ErrInvalidLimit
	}
	if c.RequestsPerSecond <= 0 {
		return ErrInvalidRate
	}
	if c.DebounceMillis < 0 {
		return ErrInvalidDebounce
	}
	if c.WatchIntervalSeconds <= 0 {
		return ErrInvalidInterval
	}
	if c.MaxConcurrentDownloads <= 0 {
		return ErrInvalidConcurrency
	}
	return nil
}

// ConfigDir returns the directory where config and data files are stored.
func ConfigDir() string {
	if dir := os.Getenv("SUREFINE_CONFIG_DIR"); dir != "" {
		return dir
	}
	home := homeDirOrFallback()
	return filepath.Join(home, ".config", "surefine")
}

// DBPath returns the path to the SQLite database.
func DBPath() string {
	return filepath.Join(ConfigDir(), "history.db")
}

// ConfigPath returns the path to the config file.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.json")
}

// Load reads config from disk, returning defaults if the file doesn't exist.
func Load() (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(ConfigPath())
	if err != nil {
		if os.IsNotExist(err) {
			if err := cfg.Save(); err != nil {
				return nil, err
			}
			return cfg, nil
		}
		return nil, err
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the config to disk.
func (c *Config) Save() error {
	dir := ConfigDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(ConfigPath(), data, 0o644)
}
