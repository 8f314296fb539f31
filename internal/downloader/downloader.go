package downloader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
)

// Status represents a download's state.
type Status int

const (
	StatusQueued Status = iota
	StatusActive
	StatusCompleted
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusQueued:
		return "Queued"
	case StatusActive:
		return "Downloading"
	case StatusCompleted:
		return "Completed"
	case StatusFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// Fetcher opens a remote file for reading.
type Fetcher interface {
	DownloadFile(ctx context.Context, fileURL string) (io.ReadCloser, int64, error)
}

// Item represents a single download.
type Item struct {
	ID         int
	Name       string
	URL        string
	DestPath   string
	TotalBytes int64
	DoneBytes  atomic.Int64
	Status     Status
	Error      error
	Mu         sync.Mutex
}

// Snapshot returns the item's status and error.
func (it *Item) Snapshot() (Status, error) {
	it.Mu.Lock()
	defer it.Mu.Unlock()
	return it.Status, it.Error
}

// Progress returns the completed fraction, or 0 when the size is unknown.
func (it *Item) Progress() float64 {
	it.Mu.Lock()
	total := it.TotalBytes
	it.Mu.Unlock()
	if total <= 0 {
		return 0
	}
	p := float64(it.DoneBytes.Load()) / float64(total)
	if p > 1 {
		p = 1
	}
	return p
}

// Manager downloads files concurrently into one directory.
type Manager struct {
	fetcher Fetcher
	dir     string

	mu       sync.Mutex
	items    []*Item
	nextID   int
	sem      chan struct{}
	wg       sync.WaitGroup
	ctx      context.Context
	cancel   context.CancelFunc
	onChange func()
}

var errCancelled = errors.New("cancelled")

// NewManager creates a download manager running at most maxParallel downloads.
func NewManager(f Fetcher, dir string, maxParallel int) *Manager {
	if maxParallel < 1 {
		maxParallel = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		fetcher: f,
		dir:     dir,
		sem:     make(chan struct{}, maxParallel),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// SetOnChange sets a callback invoked when any download's state changes.
func (m *Manager) SetOnChange(fn func()) {
	m.mu.Lock()
	m.onChange = fn
	m.mu.Unlock()
}

func (m *Manager) notify() {
	m.mu.Lock()
	fn := m.onChange
	m.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// FileName derives a local file name for a URL, prefixed with index so
// that files keep the page's order.
func FileName(index int, fileURL string) string {
	name := ""
	if u, err := url.Parse(fileURL); err == nil {
		// Base of the escaped path, so an encoded slash stays inside the name.
		name = path.Base(u.EscapedPath())
		if decoded, err := url.PathUnescape(name); err == nil {
			name = decoded
		}
	}
	if name == "" || name == "." || name == "/" {
		return fmt.Sprintf("%02d-image", index)
	}
	name = strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r < 0x20 {
			return '_'
		}
		return r
	}, name)
	return fmt.Sprintf("%02d-%s", index, name)
}

// Enqueue adds a download and starts it in the background.
// Returns the item and whether a new queue entry was created.
func (m *Manager) Enqueue(name, fileURL string) (*Item, bool) {
	m.mu.Lock()
	destPath := filepath.Join(m.dir, name)
	for _, it := range m.items {
		if it.URL == fileURL || it.DestPath == destPath {
			m.mu.Unlock()
			return it, false
		}
	}

	m.nextID++
	item := &Item{
		ID:       m.nextID,
		Name:     name,
		URL:      fileURL,
		DestPath: destPath,
		Status:   StatusQueued,
	}
	m.items = append(m.items, item)
	m.wg.Add(1)
	m.mu.Unlock()

	m.notify()
	go m.processItem(item)
	return item, true
}

// Items returns a snapshot of all download items.
func (m *Manager) Items() []*Item {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]*Item, len(m.items))
	copy(result, m.items)
	return result
}

// Counts returns how many items are finished, failed and in total.
func (m *Manager) Counts() (done, failed, total int) {
	for _, it := range m.Items() {
		status, _ := it.Snapshot()
		switch status {
		case StatusCompleted:
			done++
		case StatusFailed:
			failed++
		}
		total++
	}
	return done, failed, total
}

// ActiveCount returns the number of queued or running downloads.
func (m *Manager) ActiveCount() int {
	n := 0
	for _, it := range m.Items() {
		if status, _ := it.Snapshot(); status == StatusQueued || status == StatusActive {
			n++
		}
	}
	return n
}

// Wait blocks until every queued download has finished or ctx is done.
func (m *Manager) Wait(ctx context.Context) error {
	finished := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(finished)
	}()
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// CancelAll cancels all queued and active downloads.
func (m *Manager) CancelAll() {
	m.cancel()
	m.notify()
}

func (m *Manager) processItem(item *Item) {
	defer m.wg.Done()

	select {
	case m.sem <- struct{}{}:
	case <-m.ctx.Done():
		m.finish(item, errCancelled)
		return
	}
	defer func() { <-m.sem }()

	item.Mu.Lock()
	item.Status = StatusActive
	item.Mu.Unlock()
	m.notify()

	err := m.downloadFile(m.ctx, item)
	if errors.Is(err, context.Canceled) {
		err = errCancelled
	}
	m.finish(item, err)
}

func (m *Manager) finish(item *Item, err error) {
	item.Mu.Lock()
	if err != nil {
		item.Status = StatusFailed
		item.Error = err
	} else {
		item.Status = StatusCompleted
	}
	item.Mu.Unlock()
	m.notify()
}

func (m *Manager) downloadFile(ctx context.Context, item *Item) error {
	if err := os.MkdirAll(filepath.Dir(item.DestPath), 0o755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}

	body, contentLength, err := m.fetcher.DownloadFile(ctx, item.URL)
	if err != nil {
		return err
	}
	defer body.Close()

	if contentLength > 0 {
		item.Mu.Lock()
		item.TotalBytes = contentLength
		item.Mu.Unlock()
	}

	partPath := item.DestPath + ".part"
	f, err := os.OpenFile(partPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("opening file: %w", err)
	}

	_, err = io.Copy(f, &progressReader{r: body, ctx: ctx, done: &item.DoneBytes})
	closeErr := f.Close()
	if err != nil {
		os.Remove(partPath)
		return fmt.Errorf("writing %s: %w", item.Name, err)
	}
	if closeErr != nil {
		os.Remove(partPath)
		return fmt.Errorf("closing file: %w", closeErr)
	}

	if err := os.Rename(partPath, item.DestPath); err != nil {
		return fmt.Errorf("renaming file: %w", err)
	}
	return nil
}

// progressReader counts bytes and stops when its context is cancelled.
type progressReader struct {
	r    io.Reader
	ctx  context.Context
	done *atomic.Int64
}

func (p *progressReader) Read(buf []byte) (int, error) {
	if err := p.ctx.Err(); err != nil {
		return 0, err
	}
	n, err := p.r.Read(buf)
	p.done.Add(int64(n))
	return n, err
}

// FormatBytes formats a byte count into a human-readable string.
func FormatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(b)/float64(div), "KMGTPE"[exp])
}
