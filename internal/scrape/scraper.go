// Package scrape fetches a single web page and extracts its paragraph text.
package scrape

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/site-report/internal/model"
)

const (
	// DefaultMaxChars is the excerpt budget used when none is given.
	DefaultMaxChars = 2000

	// DefaultTimeout bounds the whole GET, body included.
	DefaultTimeout = 10 * time.Second

	// DefaultMaxBodyBytes caps how much of a response body is read.
	DefaultMaxBodyBytes = 10 << 20

	// ErrorPrefix starts every in-band fetch failure message.
	ErrorPrefix = "Error scraping site: "
)

// Fetcher is the page fetch contract used by the reporter.
type Fetcher interface {
	Fetch(ctx context.Context, url string, maxChars int) (*model.FetchResult, error)
}

// Error is a fetch failure: network error, timeout, non-2xx status or
// unparseable body.
type Error struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *Error) Error() string { return e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }

// Kind reports the failure class for display and run records.
func (e *Error) Kind() model.ErrorKind { return model.ErrorKindFetch }

// InBand renders a fetch failure as the text that stands in for the excerpt.
func InBand(err error) string {
	return ErrorPrefix + err.Error()
}

// Scraper performs one bounded GET per call and keeps no state between calls.
type Scraper struct {
	client       *http.Client
	maxChars     int
	maxBodyBytes int64
	userAgent    string
}

// Option configures a Scraper.
type Option func(*Scraper)

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) Option {
	return func(s *Scraper) {
		if d > 0 {
			s.client.Timeout = d
		}
	}
}

// WithHTTPClient replaces the HTTP client entirely.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Scraper) {
		if c != nil {
			s.client = c
		}
	}
}

// WithMaxChars sets the budget used when a call passes maxChars <= 0.
func WithMaxChars(n int) Option {
	return func(s *Scraper) {
		if n > 0 {
			s.maxChars = n
		}
	}
}

// WithMaxBodyBytes caps the response body read.
func WithMaxBodyBytes(n int64) Option {
	return func(s *Scraper) {
		if n > 0 {
			s.maxBodyBytes = n
		}
	}
}

// WithUserAgent sets a User-Agent header. Empty means the net/http default.
func WithUserAgent(ua string) Option {
	return func(s *Scraper) { s.userAgent = ua }
}

// New creates a Scraper with a 10s timeout and a 2000 character budget.
func New(opts ...Option) *Scraper {
	s := &Scraper{
		client:       &http.Client{Timeout: DefaultTimeout},
		maxChars:     DefaultMaxChars,
		maxBodyBytes: DefaultMaxBodyBytes,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// MaxChars returns the default excerpt budget.
func (s *Scraper) MaxChars() int { return s.maxChars }

// Fetch GETs targetURL and returns the space-joined text of every <p>
// element, hard-truncated to maxChars characters. A page without paragraph
// text yields model.NoTextFound. All failures are returned as *Error.
func (s *Scraper) Fetch(ctx context.Context, targetURL string, maxChars int) (*model.FetchResult, error) {
	if maxChars <= 0 {
		maxChars = s.maxChars
	}
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, &Error{URL: targetURL, Err: eris.Wrap(err, "scrape: create request")}
	}
	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &Error{URL: targetURL, Err: eris.Wrap(err, "scrape: fetch")}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &Error{
			URL:        targetURL,
			StatusCode: resp.StatusCode,
			Err:        eris.Errorf("scrape: status %d %s for url: %s", resp.StatusCode, http.StatusText(resp.StatusCode), targetURL),
		}
	}

	body, err := decodeBody(io.LimitReader(resp.Body, s.maxBodyBytes), resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, &Error{URL: targetURL, StatusCode: resp.StatusCode, Err: err}
	}

	paragraphs, err := extractParagraphs(body)
	if err != nil {
		return nil, &Error{URL: targetURL, StatusCode: resp.StatusCode, Err: err}
	}

	result := &model.FetchResult{
		URL:        targetURL,
		Paragraphs: len(paragraphs),
		StatusCode: resp.StatusCode,
	}
	text := joinParagraphs(paragraphs)
	if text == "" {
		result.Text = model.NoTextFound
	} else {
		result.Text, result.Truncated = truncate(text, maxChars)
	}

	zap.L().Debug("scrape: page fetched",
		zap.String("url", targetURL),
		zap.Int("status", resp.StatusCode),
		zap.Int("paragraphs", result.Paragraphs),
		zap.Bool("empty", result.Empty()),
		zap.Bool("truncated", result.Truncated),
		zap.Duration("elapsed", time.Since(start)),
	)

	return result, nil
}

// FetchText is the in-band form of Fetch. It never fails: errors come back
// as text starting with ErrorPrefix.
func (s *Scraper) FetchText(ctx context.Context, targetURL string, maxChars int) string {
	result, err := s.Fetch(ctx, targetURL, maxChars)
	if err != nil {
		return InBand(err)
	}
	return result.Text
}
