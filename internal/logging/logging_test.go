package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestNew_LevelFollowsVerbose(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, false).Info("hidden")
	New(&buf, false).Warn("shown", "url", "https://example.com")
	if strings.Contains(buf.String(), "hidden") {
		t.Fatalf("info should be suppressed without verbose: %q", buf.String())
	}
	if !strings.Contains(buf.String(), "shown") {
		t.Fatalf("warning missing: %q", buf.String())
	}

	buf.Reset()
	New(&buf, true).Debug("details")
	if !strings.Contains(buf.String(), "details") {
		t.Fatalf("debug should be written in verbose mode: %q", buf.String())
	}
}

func TestOrDiscard(t *testing.T) {
	if OrDiscard(nil) == nil {
		t.Fatal("expected a logger")
	}
}
