package crawler

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
)

// Crawler walks an ArcGIS REST directory tree depth-first.
type Crawler struct {
	fetcher PageFetcher
	filter  *Filter
	logger  *slog.Logger

	// onVisit is called after each URL is expanded.
	onVisit func(rawURL string, r Result)
}

// Option configures a Crawler.
type Option func(*Crawler)

// WithFilter sets the link filter. Without one every link is followed.
func WithFilter(f *Filter) Option {
	return func(c *Crawler) {
		c.filter = f
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Crawler) {
		c.logger = logger
	}
}

// WithVisitHook registers fn to be called for every expanded URL.
func WithVisitHook(fn func(rawURL string, r Result)) Option {
	return func(c *Crawler) {
		c.onVisit = fn
	}
}

// New creates a Crawler that fetches pages with fetcher.
func New(fetcher PageFetcher, opts ...Option) *Crawler {
	c := &Crawler{
		fetcher: fetcher,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Traversal is the state of one crawl: its link cache and visited set.
// A Traversal belongs to a single Crawl call and is not shared.
type Traversal struct {
	root       string
	cache      *LinkCache
	visited    map[string]bool
	order      []string
	unresolved []string
}

func newTraversal(root string, cache *LinkCache) *Traversal {
	return &Traversal{
		root:    root,
		cache:   cache,
		visited: make(map[string]bool),
		order:   make([]string, 0),
	}
}

// Root returns the normalized root URL.
func (t *Traversal) Root() string { return t.root }

// Cache returns the link cache populated during the crawl.
func (t *Traversal) Cache() *LinkCache { return t.cache }

// Visited returns every expanded URL, root included, in visit order.
func (t *Traversal) Visited() []string {
	out := make([]string, len(t.order))
	copy(out, t.order)
	return out
}

// IsVisited reports whether rawURL was expanded.
func (t *Traversal) IsVisited(rawURL string) bool {
	return t.visited[normalizeURL(rawURL)]
}

// Unresolved returns the URLs whose links could not be determined.
func (t *Traversal) Unresolved() []string {
	out := make([]string, len(t.unresolved))
	copy(out, t.unresolved)
	return out
}

// markVisited records u before its children are expanded.
func (t *Traversal) markVisited(u string) {
	t.visited[u] = true
	t.order = append(t.order, u)
}

// Crawl expands rootURL and every reachable link exactly once, using an
// explicit stack instead of recursion. Links are expanded in document
// order. Unresolved nodes are treated as leaves with no children.
// On cancellation the partial traversal is returned with ctx.Err().
func (c *Crawler) Crawl(ctx context.Context, rootURL string) (*Traversal, error) {
	u, err := url.Parse(rootURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidURL, rootURL)
	}

	root := normalizeURL(rootURL)
	tr := newTraversal(root, NewLinkCache(c.fetcher, c.logger))

	stack := []string{root}
	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return tr, err
		}

		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if tr.visited[current] {
			continue
		}
		tr.markVisited(current)

		result := tr.cache.GetOrFetch(ctx, current)
		if result.Kind == ResultUnresolved && ctx.Err() == nil {
			tr.unresolved = append(tr.unresolved, current)
			c.logger.Warn("links unresolved", "url", current, "error", result.Err)
		}
		if c.onVisit != nil {
			c.onVisit(current, result)
		}

		// Push in reverse so the first link in the document is expanded first.
		for i := len(result.Links) - 1; i >= 0; i-- {
			link := normalizeURL(result.Links[i])
			if tr.visited[link] {
				continue
			}
			if c.filter != nil && !c.filter.ShouldFollow(link) {
				continue
			}
			stack = append(stack, link)
		}
	}

	c.logger.Debug("crawl finished", "root", root, "visited", len(tr.order), "unresolved", len(tr.unresolved))
	return tr, nil
}

// normalizeURL lower-cases the scheme and host and drops the fragment so
// the same page is not visited twice under different spellings.
func normalizeURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	u.Fragment = ""
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	if u.Path == "" {
		u.Path = "/"
	}
	return u.String()
}
