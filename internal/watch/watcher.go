package watch

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/JohnDeved/surefine-cli/internal/logging"
	"github.com/JohnDeved/surefine-cli/internal/scrape"
)

// Source loads the current state of the watched page.
type Source func(ctx context.Context) (*scrape.Page, error)

// Watcher polls a page and calls onChange when its content region changes.
// The first successful load is reported immediately; later changes are
// debounced.
type Watcher struct {
	source   Source
	interval time.Duration
	onChange func(*scrape.Page)
	logger   *slog.Logger
	debounce *Debouncer

	mu       sync.Mutex
	lastHash string
	latest   *scrape.Page
}

// New creates a Watcher.
func New(source Source, interval, debounce time.Duration, onChange func(*scrape.Page), logger *slog.Logger) *Watcher {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	w := &Watcher{
		source:   source,
		interval: interval,
		onChange: onChange,
		logger:   logging.OrDiscard(logger),
	}
	w.debounce = NewDebouncer(debounce, w.fire)
	return w
}

func (w *Watcher) fire() {
	w.mu.Lock()
	page := w.latest
	w.mu.Unlock()
	if page != nil {
		w.onChange(page)
	}
}

// Run polls until ctx is cancelled and returns ctx.Err().
func (w *Watcher) Run(ctx context.Context) error {
	defer w.debounce.Stop()

	first := true
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		if changed := w.poll(ctx); changed {
			if first {
				w.fire()
			} else {
				w.debounce.Trigger()
			}
		}
		if w.hasPage() {
			first = false
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (w *Watcher) hasPage() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.latest != nil
}

// poll loads the page and reports whether its content hash changed.
func (w *Watcher) poll(ctx context.Context) bool {
	page, err := w.source(ctx)
	if err != nil {
		if ctx.Err() == nil {
			w.logger.Warn("watch poll failed", "err", err)
		}
		return false
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if page.ContentHash == w.lastHash && w.latest != nil {
		return false
	}
	w.lastHash = page.ContentHash
	w.latest = page
	w.logger.Debug("page content changed", "url", page.URL, "hash", page.ContentHash)
	return true
}
