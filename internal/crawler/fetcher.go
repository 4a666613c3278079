package crawler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/tayerthiaggo/arcrest2shp/internal/model"
)

// Doer performs HTTP requests. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Fetcher performs GET requests with a bounded fixed-delay retry.
type Fetcher struct {
	client      Doer
	maxRetries  int
	retryDelay  time.Duration
	maxBodySize int64
	accept      string
	sleep       SleepFunc
	robots      *RobotsGuard
	logger      *slog.Logger
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithMaxRetries sets how many times a transient failure is retried.
// Zero means a single attempt.
func WithMaxRetries(n int) FetcherOption {
	return func(f *Fetcher) {
		f.maxRetries = n
	}
}

// WithRetryDelay sets the fixed pause between retries.
func WithRetryDelay(d time.Duration) FetcherOption {
	return func(f *Fetcher) {
		f.retryDelay = d
	}
}

// WithMaxBodySize limits how many bytes of a response body are read. A
// larger body fails with ErrBodyTooLarge; zero means no limit.
func WithMaxBodySize(size int64) FetcherOption {
	return func(f *Fetcher) {
		f.maxBodySize = size
	}
}

// WithAccept overrides the Accept header.
func WithAccept(accept string) FetcherOption {
	return func(f *Fetcher) {
		f.accept = accept
	}
}

// WithSleep replaces the delay function. Tests use it to avoid real waits.
func WithSleep(fn SleepFunc) FetcherOption {
	return func(f *Fetcher) {
		f.sleep = fn
	}
}

// WithRobots makes the fetcher consult robots.txt before every request.
func WithRobots(g *RobotsGuard) FetcherOption {
	return func(f *Fetcher) {
		f.robots = g
	}
}

// WithFetcherLogger sets the logger.
func WithFetcherLogger(logger *slog.Logger) FetcherOption {
	return func(f *Fetcher) {
		f.logger = logger
	}
}

// NewFetcher creates a Fetcher using client. Defaults: 20 retries,
// 5 second delay, 10MB body limit.
func NewFetcher(client Doer, opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		client:      client,
		maxRetries:  20,
		retryDelay:  5 * time.Second,
		maxBodySize: 10 * 1024 * 1024,
		accept:      "text/html,application/xhtml+xml,application/json;q=0.9,*/*;q=0.8",
		sleep:       sleepContext,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch GETs rawURL. Transient failures are retried up to the configured
// ceiling with the fixed delay between attempts, so an always-failing URL
// costs maxRetries+1 attempts and maxRetries delays before ErrUnresolved.
// Non-200 responses return a *StatusError and oversized bodies
// ErrBodyTooLarge, both at once.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*model.Page, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidURL, rawURL)
	}

	if f.robots != nil && !f.robots.Allowed(ctx, u) {
		return nil, fmt.Errorf("%w: %s", ErrDisallowed, rawURL)
	}

	var lastErr error
	for attempt := 0; ; attempt++ {
		page, err := f.do(ctx, rawURL)
		if err == nil {
			return page, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		var statusErr *StatusError
		if errors.As(err, &statusErr) {
			f.logger.Warn("request failed", "url", rawURL, "status", statusErr.StatusCode)
			return nil, err
		}
		if errors.Is(err, ErrBodyTooLarge) {
			f.logger.Warn("response too large", "url", rawURL, "limit", f.maxBodySize)
			return nil, err
		}

		lastErr = err
		if attempt >= f.maxRetries {
			break
		}
		f.logger.Debug("retrying request", "url", rawURL, "attempt", attempt+1, "error", err)
		if err := f.sleep(ctx, f.retryDelay); err != nil {
			return nil, err
		}
	}

	f.logger.Warn("max retries reached", "url", rawURL, "retries", f.maxRetries)
	return nil, fmt.Errorf("%w: %s: %w", ErrUnresolved, rawURL, lastErr)
}

func (f *Fetcher) do(ctx context.Context, rawURL string) (*model.Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", f.accept)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Drain a little so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096)) //nolint:errcheck // best effort
		return nil, &StatusError{URL: rawURL, StatusCode: resp.StatusCode}
	}

	body, err := f.readBody(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", rawURL, err)
	}

	return &model.Page{
		URL:         rawURL,
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
		FetchedAt:   time.Now(),
	}, nil
}

// readBody reads r whole, failing once more than maxBodySize bytes arrive.
func (f *Fetcher) readBody(r io.Reader) ([]byte, error) {
	if f.maxBodySize <= 0 {
		return io.ReadAll(r)
	}
	body, err := io.ReadAll(io.LimitReader(r, f.maxBodySize+1))
	if err != nil {
		return nil, err
	}
	if int64(len(body)) > f.maxBodySize {
		return nil, fmt.Errorf("%w: limit %d bytes", ErrBodyTooLarge, f.maxBodySize)
	}
	return body, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
