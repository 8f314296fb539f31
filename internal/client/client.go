package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	userAgent = "Mozilla/5.0 (X11; Linux x86_64) surefine/1.0"

	// maxPageBytes caps page and search-result bodies.
	maxPageBytes = 8 << 20
)

// Client handles HTTP requests to the game site, YouTube and image hosts.
type Client struct {
	pageHTTP *http.Client // Short timeout for HTML pages
	fileHTTP *http.Client // No timeout for file downloads (managed by context)
	limiter  *rate.Limiter
}

// New creates a new client limited to reqPerSec requests per second.
func New(reqPerSec float64) *Client {
	if reqPerSec <= 0 {
		reqPerSec = 2.0
	}

	return &Client{
		pageHTTP: &http.Client{
			Timeout: 30 * time.Second,
		},
		fileHTTP: &http.Client{},
		limiter:  rate.NewLimiter(rate.Limit(reqPerSec), 3),
	}
}

func (c *Client) newRequest(ctx context.Context, rawURL string) (*http.Request, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		// The limiter fails early when the wait would pass the deadline,
		// before ctx itself reports anything.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("waiting for rate limit: %w", ctxErr)
		}
		if _, ok := ctx.Deadline(); ok {
			return nil, fmt.Errorf("waiting for rate limit: %v: %w", err, context.DeadlineExceeded)
		}
		return nil, fmt.Errorf("waiting for rate limit: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept-Language", "en-US,en;q=0.8")
	return req, nil
}

// FetchPage downloads an HTML page and returns its body.
func (c *Client) FetchPage(ctx context.Context, pageURL string) ([]byte, error) {
	req, err := c.newRequest(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	resp, err := c.pageHTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d for %s", resp.StatusCode, pageURL)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", pageURL, err)
	}
	return body, nil
}

// FetchText is FetchPage returning a string.
func (c *Client) FetchText(ctx context.Context, pageURL string) (string, error) {
	body, err := c.FetchPage(ctx, pageURL)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// DownloadFile starts a download of a non-HTML file.
// Returns the response body (caller must close) and its content length.
func (c *Client) DownloadFile(ctx context.Context, fileURL string) (io.ReadCloser, int64, error) {
	req, err := c.newRequest(ctx, fileURL)
	if err != nil {
		return nil, 0, err
	}

	resp, err := c.fileHTTP.Do(req)
	if err != nil {
		return nil, 0, err
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, 0, fmt.Errorf("HTTP %d downloading %s", resp.StatusCode, fileURL)
	}

	contentType := strings.ToLower(resp.Header.Get("Content-Type"))
	if strings.Contains(contentType, "text/html") {
		resp.Body.Close()
		return nil, 0, fmt.Errorf("refusing HTML response for file URL %s", fileURL)
	}

	return resp.Body, resp.ContentLength, nil
}
