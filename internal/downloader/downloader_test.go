package downloader

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/JohnDeved/surefine-cli/internal/client"
)

func TestFileName(t *testing.T) {
	tests := []struct {
		index int
		url   string
		want  string
	}{
		{1, "https://img.test/shots/one.jpg", "01-one.jpg"},
		{2, "https://img.test/shots/hollow%20knight.png?w=600", "02-hollow knight.png"},
		{3, "https://img.test/", "03-image"},
		{12, "https://img.test/a/b%2Fc.jpg", "12-b_c.jpg"},
		{13, "https://img.test/a/c.jpg", "13-c.jpg"},
		{4, "https://img.test", "04-image"},
		{5, "https://img.test/shots/", "05-shots"},
	}
	for _, tt := range tests {
		if got := FileName(tt.index, tt.url); got != tt.want {
			t.Errorf("FileName(%d, %q) = %q, want %q", tt.index, tt.url, got, tt.want)
		}
	}
}

func TestManager_DownloadsAndSuppressesDuplicates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/a.jpg":
			w.Header().Set("Content-Type", "image/jpeg")
			w.Write([]byte("jpeg-bytes"))
		case "/page":
			w.Header().Set("Content-Type", "text/html")
			w.Write([]byte("<html></html>"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	dir := t.TempDir()
	m := NewManager(client.New(100), dir, 2)

	var changes atomic.Int32
	m.SetOnChange(func() { changes.Add(1) })

	item, added := m.Enqueue("01-a.jpg", srv.URL+"/a.jpg")
	if !added {
		t.Fatal("expected first enqueue to add an item")
	}
	if _, added := m.Enqueue("01-a.jpg", srv.URL+"/a.jpg"); added {
		t.Fatal("duplicate URL should not be queued twice")
	}
	m.Enqueue("02-page", srv.URL+"/page")
	m.Enqueue("03-missing.jpg", srv.URL+"/missing.jpg")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := m.Wait(ctx); err != nil {
		t.Fatalf("Wait: %v", err)
	}

	if status, err := item.Snapshot(); status != StatusCompleted {
		t.Fatalf("expected completed, got %v (%v)", status, err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "01-a.jpg"))
	if err != nil {
		t.Fatalf("reading downloaded file: %v", err)
	}
	if string(data) != "jpeg-bytes" {
		t.Fatalf("unexpected content %q", data)
	}
	if item.DoneBytes.Load() != int64(len("jpeg-bytes")) {
		t.Fatalf("unexpected byte count %d", item.DoneBytes.Load())
	}
	if _, err := os.Stat(filepath.Join(dir, "01-a.jpg.part")); !os.IsNotExist(err) {
		t.Fatal("partial file left behind")
	}

	done, failed, total := m.Counts()
	if done != 1 || failed != 2 || total != 3 {
		t.Fatalf("counts = %d/%d/%d, want 1/2/3", done, failed, total)
	}
	if changes.Load() == 0 {
		t.Fatal("expected change notifications")
	}
}

func TestManager_CancelAll(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.(http.Flusher).Flush()
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	m := NewManager(client.New(100), t.TempDir(), 1)
	item, _ := m.Enqueue("01-slow.png", srv.URL+"/slow.png")
	queued, _ := m.Enqueue("02-slow.png", srv.URL+"/slow2.png")

	time.Sleep(50 * time.Millisecond)
	m.CancelAll()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := m.Wait(ctx); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	for _, it := range []*Item{item, queued} {
		if status, _ := it.Snapshot(); status != StatusFailed {
			t.Fatalf("%s: expected failed after cancel, got %v", it.Name, status)
		}
	}
}

func TestFormatBytes(t *testing.T) {
	tests := map[int64]string{
		0:       "0 B",
		1023:    "1023 B",
		1024:    "1.0 KB",
		1536:    "1.5 KB",
		5 << 20: "5.0 MB",
		3 << 30: "3.0 GB",
	}
	for in, want := range tests {
		if got := FormatBytes(in); got != want {
			t.Errorf("FormatBytes(%d) = %q, want %q", in, got, want)
		}
	}
}
