// Package trailer finds a YouTube video for a game by walking an ordered
// list of search queries until one yields a result.
package trailer

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"regexp"
	"strings"

	"github.com/JohnDeved/surefine-cli/internal/logging"
)

// DefaultSuffixes are appended to the title, in order, to build queries.
// The empty suffix searches for the bare title.
var DefaultSuffixes = []string{
	"review", "gameplay", "impressions", "first look", "early access", "trailer", "overview", "",
}

var videoIDRe = regexp.MustCompile(`"videoRenderer".*?"videoId":"(.*?)"`)

// Fetcher retrieves the body of a URL as text.
type Fetcher interface {
	FetchText(ctx context.Context, rawURL string) (string, error)
}

// Cache stores found videos by title.
type Cache interface {
	GetTrailer(title string) (Result, bool, error)
	PutTrailer(title string, res Result) error
}

// Result is the outcome of a lookup. When no query produced a video,
// Fallback is set and only SearchURL is meaningful.
type Result struct {
	VideoID   string `json:"video_id,omitempty"`
	Query     string `json:"query,omitempty"`
	SearchURL string `json:"search_url"`
	Fallback  bool   `json:"fallback"`
	Cached    bool   `json:"cached,omitempty"`
}

// EmbedURL returns the embeddable player URL, or "" for a fallback result.
func (r Result) EmbedURL() string {
	if r.VideoID == "" {
		return ""
	}
	return "https://www.youtube.com/embed/" + r.VideoID
}

// WatchURL returns the regular watch page URL, or "" for a fallback result.
func (r Result) WatchURL() string {
	if r.VideoID == "" {
		return ""
	}
	return "https://www.youtube.com/watch?v=" + url.QueryEscape(r.VideoID)
}

// SearchURL returns the YouTube results page for a query.
func SearchURL(query string) string {
	return "https://www.youtube.com/results?search_query=" + url.QueryEscape(query)
}

// Queries builds the ordered search queries for a title.
func Queries(title string, suffixes []string) []string {
	title = strings.TrimSpace(title)
	out := make([]string, 0, len(suffixes))
	for _, s := range suffixes {
		q := title
		if s = strings.TrimSpace(s); s != "" {
			q = title + " " + s
		}
		out = append(out, strings.TrimSpace(q))
	}
	return out
}

// ParseVideoID returns the first video ID in a YouTube results page.
func ParseVideoID(body string) (string, bool) {
	m := videoIDRe.FindStringSubmatch(body)
	if m == nil || m[1] == "" {
		return "", false
	}
	return m[1], true
}

// Finder runs the query fallback chain.
type Finder struct {
	fetcher  Fetcher
	suffixes []string
	cache    Cache
	logger   *slog.Logger
}

// NewFinder creates a Finder. A nil or empty suffix list uses DefaultSuffixes.
func NewFinder(f Fetcher, suffixes []string, logger *slog.Logger) *Finder {
	if len(suffixes) == 0 {
		suffixes = DefaultSuffixes
	}
	return &Finder{
		fetcher:  f,
		suffixes: suffixes,
		logger:   logging.OrDiscard(logger),
	}
}

// SetCache enables result caching.
func (f *Finder) SetCache(c Cache) {
	f.cache = c
}

// Find tries each query in order and returns the first video found. A
// failed request or a page without results moves on to the next query.
// Only context cancellation is returned as an error.
func (f *Finder) Find(ctx context.Context, title string) (Result, error) {
	title = strings.TrimSpace(title)
	fallback := Result{SearchURL: SearchURL(title), Fallback: true}
	if title == "" {
		return fallback, nil
	}

	if f.cache != nil {
		res, ok, err := f.cache.GetTrailer(title)
		if err != nil {
			f.logger.Warn("trailer cache lookup failed", "title", title, "err", err)
		} else if ok {
			res.Cached = true
			return res, nil
		}
	}

	for _, q := range Queries(title, f.suffixes) {
		if err := ctx.Err(); err != nil {
			return fallback, err
		}

		body, err := f.fetcher.FetchText(ctx, SearchURL(q))
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return fallback, err
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return fallback, ctxErr
			}
			f.logger.Debug("trailer query failed", "query", q, "err", err)
			continue
		}

		id, ok := ParseVideoID(body)
		if !ok {
			f.logger.Debug("trailer query had no results", "query", q)
			continue
		}

		res := Result{VideoID: id, Query: q, SearchURL: SearchURL(title)}
		if f.cache != nil {
			if err := f.cache.PutTrailer(title, res); err != nil {
				f.logger.Warn("trailer cache store failed", "title", title, "err", err)
			}
		}
		return res, nil
	}

	f.logger.Debug("no trailer found", "title", title)
	return fallback, nil
}
