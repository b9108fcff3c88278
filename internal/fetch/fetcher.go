// Package fetch retrieves submitted URLs and extracts readable page text
// for the scoring model.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/charmbracelet/log"

	"github.com/ppiankov/truthlens/internal/logging"
	"github.com/ppiankov/truthlens/internal/util"
)

// ErrDisallowed is returned when robots.txt forbids fetching a URL
var ErrDisallowed = errors.New("disallowed by robots.txt")

// StatusError is a non-2xx page response
type StatusError struct {
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status: %d %s", e.StatusCode, e.Status)
}

// Options configures a Fetcher
type Options struct {
	Timeout         time.Duration
	UserAgent       string
	MaxBodyBytes    int64
	MaxExcerptChars int
	RespectRobots   bool
	HTTPProxy       string
	HTTPSProxy      string
	Logger          *log.Logger
}

// Fetcher fetches HTML content from URLs
type Fetcher struct {
	httpClient *http.Client
	robots     *RobotsChecker
	opts       Options
	logger     *log.Logger
}

// NewFetcher creates a Fetcher. It fails only on a malformed proxy URL.
func NewFetcher(opts Options) (*Fetcher, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 2_000_000
	}

	client, err := util.NewHTTPClient(util.ClientOptions{
		Timeout:      opts.Timeout,
		HTTPProxy:    opts.HTTPProxy,
		HTTPSProxy:   opts.HTTPSProxy,
		MaxRedirects: 3,
	})
	if err != nil {
		return nil, fmt.Errorf("fetch client: %w", err)
	}

	f := &Fetcher{
		httpClient: client,
		opts:       opts,
		logger:     logging.OrDiscard(opts.Logger),
	}
	if opts.RespectRobots {
		f.robots = NewRobotsChecker(client, opts.UserAgent)
	}
	return f, nil
}

// Page is a fetched document
type Page struct {
	HTML        string
	FinalURL    string
	StatusCode  int
	ContentType string
}

// Fetch retrieves HTML content from the given URL
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", f.opts.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Status: http.StatusText(resp.StatusCode)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.opts.MaxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	return &Page{
		HTML:        string(body),
		FinalURL:    resp.Request.URL.String(),
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
	}, nil
}

// Excerpt fetches a page and returns its title and main text, bounded by
// MaxExcerptChars. Implements analysis.PageFetcher.
func (f *Fetcher) Excerpt(ctx context.Context, rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return "", fmt.Errorf("not an http(s) URL: %q", rawURL)
	}

	if f.robots != nil {
		if v := f.robots.Check(ctx, parsed); !v.Allowed {
			f.logger.Debug("robots.txt disallows page", "url", rawURL)
			return "", ErrDisallowed
		}
	}

	// one attempt; the excerpt is optional and must not hold up analysis
	page, err := f.Fetch(ctx, rawURL)
	if err != nil {
		return "", err
	}
	f.logger.Debug("fetched page", "url", page.FinalURL, "bytes", len(page.HTML))

	title, text := ExtractText(page.HTML, page.FinalURL)
	text = truncate(text, f.opts.MaxExcerptChars)
	if title == "" {
		return text, nil
	}
	return "Title: " + title + "\n\n" + text, nil
}

func truncate(s string, max int) string {
	if max <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
