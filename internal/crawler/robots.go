package crawler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
)

// maxRobotsSize caps how much of a robots.txt is read.
const maxRobotsSize = 512 * 1024

// RobotsGuard checks URLs against each host's robots.txt. Hosts whose
// robots.txt cannot be fetched are allowed.
type RobotsGuard struct {
	client    Doer
	userAgent string
	logger    *slog.Logger

	mu    sync.Mutex
	hosts map[string]*robotstxt.Group
}

// NewRobotsGuard creates a guard that fetches robots.txt with client and
// matches rules for userAgent, falling back to the "*" group.
func NewRobotsGuard(client Doer, userAgent string, logger *slog.Logger) *RobotsGuard {
	if logger == nil {
		logger = slog.Default()
	}
	return &RobotsGuard{
		client:    client,
		userAgent: userAgent,
		logger:    logger,
		hosts:     make(map[string]*robotstxt.Group),
	}
}

// Allowed reports whether u may be fetched.
func (g *RobotsGuard) Allowed(ctx context.Context, u *url.URL) bool {
	grp := g.group(ctx, u)
	if grp == nil {
		return true
	}
	p := u.EscapedPath()
	if p == "" {
		p = "/"
	}
	return grp.Test(p)
}

// CrawlDelay returns the Crawl-delay declared for u's host, or zero.
func (g *RobotsGuard) CrawlDelay(ctx context.Context, u *url.URL) time.Duration {
	grp := g.group(ctx, u)
	if grp == nil {
		return 0
	}
	return grp.CrawlDelay
}

func (g *RobotsGuard) group(ctx context.Context, u *url.URL) *robotstxt.Group {
	key := u.Scheme + "://" + u.Host

	g.mu.Lock()
	grp, ok := g.hosts[key]
	g.mu.Unlock()
	if ok {
		return grp
	}

	grp = g.load(ctx, key)

	g.mu.Lock()
	g.hosts[key] = grp
	g.mu.Unlock()
	return grp
}

func (g *RobotsGuard) load(ctx context.Context, origin string) *robotstxt.Group {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, origin+"/robots.txt", nil)
	if err != nil {
		return nil
	}
	resp, err := g.client.Do(req)
	if err != nil {
		g.logger.Debug("robots.txt unavailable", "origin", origin, "error", err)
		return nil
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRobotsSize))
	if err != nil {
		return nil
	}

	data, err := robotstxt.FromStatusAndBytes(resp.StatusCode, body)
	if err != nil {
		g.logger.Debug("robots.txt unparsable", "origin", origin, "error", err)
		return nil
	}
	return data.FindGroup(g.userAgent)
}
