package crawler

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/tayerthiaggo/arcrest2shp/internal/model"
)

// ResultKind distinguishes a directory with links from one with none and
// from one whose links could not be determined.
type ResultKind int

const (
	// ResultLinks means the page was fetched and had at least one link.
	ResultLinks ResultKind = iota

	// ResultEmpty means the page was fetched, or answered with a non-200
	// status, and has no links to follow.
	ResultEmpty

	// ResultUnresolved means the fetch failed after all retries.
	ResultUnresolved
)

// String returns the kind name.
func (k ResultKind) String() string {
	switch k {
	case ResultLinks:
		return "links"
	case ResultEmpty:
		return "empty"
	case ResultUnresolved:
		return "unresolved"
	default:
		return "unknown"
	}
}

// Result is the cached outcome for one URL.
type Result struct {
	Kind  ResultKind
	Links []string
	Err   error
}

// PageFetcher fetches a single page. *Fetcher satisfies it.
type PageFetcher interface {
	Fetch(ctx context.Context, rawURL string) (*model.Page, error)
}

// LinkCache memoizes the links of each URL for the lifetime of one crawl.
// An entry never changes once stored.
type LinkCache struct {
	fetcher PageFetcher
	logger  *slog.Logger

	mu      sync.Mutex
	entries map[string]Result
}

// NewLinkCache creates an empty cache backed by fetcher.
func NewLinkCache(fetcher PageFetcher, logger *slog.Logger) *LinkCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &LinkCache{
		fetcher: fetcher,
		logger:  logger,
		entries: make(map[string]Result),
	}
}

// GetOrFetch returns the cached result for rawURL, fetching and parsing
// the page on a miss. Unresolved results are cached too, so a dead node
// costs one retry cycle per run. A cancelled context is never cached.
func (c *LinkCache) GetOrFetch(ctx context.Context, rawURL string) Result {
	if r, ok := c.Lookup(rawURL); ok {
		return r
	}

	r := c.load(ctx, rawURL)
	if ctx.Err() != nil {
		return r
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.entries[rawURL]; ok {
		return existing
	}
	c.entries[rawURL] = r
	return r
}

// Lookup returns the cached result without any I/O.
func (c *LinkCache) Lookup(rawURL string) (Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.entries[rawURL]
	return r, ok
}

// Len returns the number of cached URLs.
func (c *LinkCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *LinkCache) load(ctx context.Context, rawURL string) Result {
	page, err := c.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		switch {
		case errors.Is(err, ErrHTTPStatus), errors.Is(err, ErrDisallowed), errors.Is(err, ErrInvalidURL):
			return Result{Kind: ResultEmpty, Err: err}
		default:
			return Result{Kind: ResultUnresolved, Err: err}
		}
	}

	if !page.IsHTML() {
		return Result{Kind: ResultEmpty}
	}

	links, err := ExtractLinks(rawURL, bytes.NewReader(page.Body))
	if err != nil {
		c.logger.Debug("failed to parse page", "url", rawURL, "error", err)
		return Result{Kind: ResultEmpty, Err: err}
	}
	if len(links) == 0 {
		return Result{Kind: ResultEmpty}
	}
	return Result{Kind: ResultLinks, Links: links}
}
