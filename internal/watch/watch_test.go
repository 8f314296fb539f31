package watch

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/JohnDeved/surefine-cli/internal/scrape"
)

func TestDebouncer_CoalescesBurst(t *testing.T) {
	var calls atomic.Int32
	d := NewDebouncer(30*time.Millisecond, func() { calls.Add(1) })

	for i := 0; i < 5; i++ {
		d.Trigger()
		time.Sleep(2 * time.Millisecond)
	}
	if !d.Pending() {
		t.Fatal("expected a pending run")
	}

	time.Sleep(150 * time.Millisecond)
	if got := calls.Load(); got != 1 {
		t.Fatalf("expected 1 call, got %d", got)
	}
	if d.Pending() {
		t.Fatal("expected nothing pending after the run")
	}
}

func TestDebouncer_StopCancels(t *testing.T) {
	var calls atomic.Int32
	d := NewDebouncer(20*time.Millisecond, func() { calls.Add(1) })

	d.Trigger()
	d.Stop()
	time.Sleep(80 * time.Millisecond)
	if got := calls.Load(); got != 0 {
		t.Fatalf("expected no calls after Stop, got %d", got)
	}
}

type sequenceSource struct {
	mu     sync.Mutex
	hashes []string
	i      int
}

func (s *sequenceSource) load(context.Context) (*scrape.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h := s.hashes[min(s.i, len(s.hashes)-1)]
	s.i++
	if h == "" {
		return nil, errors.New("temporary failure")
	}
	return &scrape.Page{URL: "https://site.test/game/", ContentHash: h}, nil
}

func TestWatcher_FirstLoadImmediateThenDebounced(t *testing.T) {
	src := &sequenceSource{hashes: []string{"a", "", "b", "c", "d"}}

	var mu sync.Mutex
	var seen []string
	onChange := func(p *scrape.Page) {
		mu.Lock()
		seen = append(seen, p.ContentHash)
		mu.Unlock()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w := New(src.load, 2*time.Millisecond, 60*time.Millisecond, onChange, nil)
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		n := len(seen)
		mu.Unlock()
		if n >= 2 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	// The content is stable now; nothing else should fire.
	time.Sleep(150 * time.Millisecond)
	cancel()

	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 2 || seen[0] != "a" || seen[1] != "d" {
		t.Fatalf("expected [a d], got %v", seen)
	}
}
