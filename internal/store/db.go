package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/JohnDeved/surefine-cli/internal/card"
	"github.com/JohnDeved/surefine-cli/internal/trailer"
)

// DB wraps the SQLite database holding page history and cached trailers.
type DB struct {
	db         *sql.DB
	trailerTTL time.Duration
	now        func() time.Time
}

// OpenDB opens or creates the SQLite database at the given path.
func OpenDB(dbPath string) (*DB, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating database: %w", err)
	}

	return &DB{db: db, trailerTTL: 30 * 24 * time.Hour, now: time.Now}, nil
}

// Close closes the database.
func (d *DB) Close() error {
	return d.db.Close()
}

// SetTrailerTTL controls how long cached trailers are served. Zero or
// negative disables expiry.
func (d *DB) SetTrailerTTL(ttl time.Duration) {
	d.trailerTTL = ttl
}

func migrate(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS pages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		url TEXT NOT NULL UNIQUE,
		title TEXT NOT NULL DEFAULT '',
		card_hash TEXT NOT NULL DEFAULT '',
		mirror_count INTEGER NOT NULL DEFAULT 0,
		primary_hosts TEXT NOT NULL DEFAULT '',
		last_scraped DATETIME
	);

	CREATE INDEX IF NOT EXISTS idx_pages_last_scraped ON pages(last_scraped);

	CREATE VIRTUAL TABLE IF NOT EXISTS pages_fts USING fts5(
		title,
		content=pages,
		content_rowid=id,
		tokenize='unicode61 remove_diacritics 2'
	);

	CREATE TRIGGER IF NOT EXISTS pages_ai AFTER INSERT ON pages BEGIN
		INSERT INTO pages_fts(rowid, title) VALUES (new.id, new.title);
	END;

	CREATE TRIGGER IF NOT EXISTS pages_ad AFTER DELETE ON pages BEGIN
		INSERT INTO pages_fts(pages_fts, rowid, title) VALUES('delete', old.id, old.title);
	END;

	CREATE TRIGGER IF NOT EXISTS pages_au AFTER UPDATE ON pages BEGIN
		INSERT INTO pages_fts(pages_fts, rowid, title) VALUES('delete', old.id, old.title);
		INSERT INTO pages_fts(rowid, title) VALUES (new.id, new.title);
	END;

	CREATE TABLE IF NOT EXISTS trailers (
		title TEXT PRIMARY KEY,
		video_id TEXT NOT NULL,
		query TEXT NOT NULL DEFAULT '',
		fetched_at DATETIME NOT NULL
	);
	`
	_, err := db.Exec(schema)
	return err
}

// PageRecord is a summary of a scraped page. Mirror plans themselves are
// recomputed on every scrape and never stored.
type PageRecord struct {
	ID           int64     `json:"id"`
	URL          string    `json:"url"`
	Title        string    `json:"title"`
	CardHash     string    `json:"card_hash"`
	MirrorCount  int       `json:"mirror_count"`
	PrimaryHosts []string  `json:"primary_hosts"`
	LastScraped  time.Time `json:"last_scraped"`
}

// RecordPage upserts the summary of a freshly built card.
func (d *DB) RecordPage(c card.Card) error {
	var hosts []string
	for _, g := range c.Mirrors.Primary {
		hosts = append(hosts, g.Provider)
	}
	_, err := d.db.Exec(
		`INSERT INTO pages (url, title, card_hash, mirror_count, primary_hosts, last_scraped)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(url) DO UPDATE SET
		   title=excluded.title,
		   card_hash=excluded.card_hash,
		   mirror_count=excluded.mirror_count,
		   primary_hosts=excluded.primary_hosts,
		   last_scraped=excluded.last_scraped`,
		c.PageURL, c.Title, c.Hash(), c.Mirrors.Len(), strings.Join(hosts, ","), d.now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("recording page %s: %w", c.PageURL, err)
	}
	return nil
}

// sanitizeFTS5Query escapes FTS5 special characters so user input
// does not cause syntax errors. Each word is wrapped in double quotes.
func sanitizeFTS5Query(query string) string {
	var quoted []string
	for _, w := range strings.Fields(query) {
		w = strings.ReplaceAll(w, `"`, `""`)
		w = strings.NewReplacer(
			"(", "",
			")", "",
			"[", "",
			"]", "",
			"{", "",
			"}", "",
			"^", "",
			"*", "",
		).Replace(w)
		if w == "" {
			continue
		}
		quoted = append(quoted, `"`+w+`"`)
	}
	return strings.Join(quoted, " ")
}

const pageColumns = `p.id, p.url, p.title, p.card_hash, p.mirror_count, p.primary_hosts, p.last_scraped`

// SearchPages performs a full-text search over page titles.
func (d *DB) SearchPages(query string, limit int) ([]PageRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	sanitized := sanitizeFTS5Query(query)
	if sanitized == "" {
		return nil, nil
	}

	rows, err := d.db.Query(`
		SELECT `+pageColumns+`
		FROM pages_fts fts
		JOIN pages p ON p.id = fts.rowid
		WHERE pages_fts MATCH ?
		ORDER BY rank
		LIMIT ?
	`, sanitized, limit)
	if err != nil {
		return nil, fmt.Errorf("search query failed: %w", err)
	}
	defer rows.Close()
	return scanPages(rows)
}

// RecentPages returns the most recently scraped pages.
func (d *DB) RecentPages(limit int) ([]PageRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := d.db.Query(`
		SELECT `+pageColumns+`
		FROM pages p
		ORDER BY p.last_scraped DESC, p.id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPages(rows)
}

func scanPages(rows *sql.Rows) ([]PageRecord, error) {
	var out []PageRecord
	for rows.Next() {
		var (
			r       PageRecord
			hosts   string
			scraped sql.NullTime
		)
		if err := rows.Scan(&r.ID, &r.URL, &r.Title, &r.CardHash, &r.MirrorCount, &hosts, &scraped); err != nil {
			return nil, err
		}
		if hosts != "" {
			r.PrimaryHosts = strings.Split(hosts, ",")
		}
		if scraped.Valid {
			r.LastScraped = scraped.Time
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// GetTrailer returns a cached, unexpired trailer for a title.
func (d *DB) GetTrailer(title string) (trailer.Result, bool, error) {
	var (
		res     trailer.Result
		fetched time.Time
	)
	err := d.db.QueryRow(
		"SELECT video_id, query, fetched_at FROM trailers WHERE title = ?",
		normalizeTitle(title),
	).Scan(&res.VideoID, &res.Query, &fetched)
	if errors.Is(err, sql.ErrNoRows) {
		return trailer.Result{}, false, nil
	}
	if err != nil {
		return trailer.Result{}, false, err
	}
	if d.trailerTTL > 0 && d.now().Sub(fetched) > d.trailerTTL {
		return trailer.Result{}, false, nil
	}
	res.SearchURL = trailer.SearchURL(title)
	return res, true, nil
}

// PutTrailer caches a found trailer. Fallback results are not cached.
func (d *DB) PutTrailer(title string, res trailer.Result) error {
	if res.VideoID == "" {
		return nil
	}
	_, err := d.db.Exec(
		`INSERT INTO trailers (title, video_id, query, fetched_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(title) DO UPDATE SET video_id=excluded.video_id, query=excluded.query, fetched_at=excluded.fetched_at`,
		normalizeTitle(title), res.VideoID, res.Query, d.now().UTC(),
	)
	return err
}

func normalizeTitle(title string) string {
	return strings.ToLower(strings.Join(strings.Fields(title), " "))
}

// Stats summarises the database contents.
type Stats struct {
	Pages    int `json:"pages"`
	Trailers int `json:"trailers"`
	Mirrors  int `json:"mirrors"`
}

// GetStats returns statistics about the history database.
func (d *DB) GetStats() (Stats, error) {
	var s Stats
	if err := d.db.QueryRow("SELECT COUNT(*), COALESCE(SUM(mirror_count), 0) FROM pages").Scan(&s.Pages, &s.Mirrors); err != nil {
		return s, err
	}
	if err := d.db.QueryRow("SELECT COUNT(*) FROM trailers").Scan(&s.Trailers); err != nil {
		return s, err
	}
	return s, nil
}
