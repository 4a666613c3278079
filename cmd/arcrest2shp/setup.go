package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tayerthiaggo/arcrest2shp/internal/config"
	"github.com/tayerthiaggo/arcrest2shp/internal/convert"
	"github.com/tayerthiaggo/arcrest2shp/internal/crawler"
	applog "github.com/tayerthiaggo/arcrest2shp/internal/log"
	"github.com/tayerthiaggo/arcrest2shp/internal/transport"
)

// queryBodySize bounds one page of query results for the native converter.
const queryBodySize = 256 * 1024 * 1024

// setupLogger creates the redacting structured logger on stderr.
func setupLogger(cmd *cobra.Command) *slog.Logger {
	verbose := getVerboseFlag(cmd)
	if getLogJSONFlag(cmd) {
		return applog.NewSecureJSONLogger(os.Stderr, verbose)
	}
	return applog.NewSecureLogger(os.Stderr, verbose)
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext(logger *slog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			logger.Warn("received shutdown signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()

	return ctx, cancel
}

// httpStack is the HTTP side of a run: one rate-limited client shared by
// the crawl, the workers and the native converter.
type httpStack struct {
	client  *http.Client
	fetcher *crawler.Fetcher
	robots  *crawler.RobotsGuard
}

// newHTTPStack builds the transport client for the root URL's host and the
// page fetcher on top of it.
func newHTTPStack(ctx context.Context, cfg *config.Config, svc config.ServiceConfig, logger *slog.Logger) (*httpStack, error) {
	host := ""
	if u, err := url.Parse(cfg.RootURL); err == nil {
		host = u.Hostname()
	}

	tc, err := transport.NewClient(cfg.Timeout,
		transport.WithProxy(cfg.ProxyURL),
		transport.WithUserAgent(cfg.UserAgent),
		transport.WithCredentials(host, svc.Token, svc.Headers),
		transport.WithRateLimit(svc.RequestsPerSecond),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP client: %w", err)
	}
	if err := tc.CheckProxy(ctx); err != nil {
		return nil, fmt.Errorf("proxy check failed: %w", err)
	}
	if cfg.ProxyURL != "" {
		logger.Info("proxy connection verified", "proxy", cfg.ProxyURL)
	}

	client, err := tc.HTTPClient()
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP client: %w", err)
	}

	stack := &httpStack{client: client}
	opts := []crawler.FetcherOption{
		crawler.WithMaxRetries(cfg.MaxRetries),
		crawler.WithRetryDelay(cfg.RetryDelay),
		crawler.WithMaxBodySize(cfg.MaxBodySize),
		crawler.WithFetcherLogger(logger),
	}
	if cfg.RespectRobots {
		stack.robots = crawler.NewRobotsGuard(client, cfg.UserAgent, logger)
		opts = append(opts, crawler.WithRobots(stack.robots))
	}
	stack.fetcher = crawler.NewFetcher(client, opts...)

	return stack, nil
}

// newFilter scopes the crawl to the root URL and the service's patterns.
func newFilter(cfg *config.Config, svc config.ServiceConfig) (*crawler.Filter, error) {
	f, err := crawler.NewFilter(cfg.RootURL,
		crawler.WithIgnorePatterns(svc.IgnorePatterns),
		crawler.WithFollowPatterns(svc.FollowPatterns),
	)
	if err != nil {
		return nil, fmt.Errorf("invalid root URL: %w", err)
	}
	return f, nil
}

// newConverter selects the vector download backend.
func newConverter(cfg *config.Config, stack *httpStack, logger *slog.Logger) (convert.Converter, error) {
	switch cfg.Converter {
	case config.ConverterNative:
		opts := []crawler.FetcherOption{
			crawler.WithMaxRetries(cfg.MaxRetries),
			crawler.WithRetryDelay(cfg.RetryDelay),
			crawler.WithMaxBodySize(queryBodySize),
			crawler.WithAccept("application/geo+json,application/json"),
			crawler.WithFetcherLogger(logger),
		}
		if stack.robots != nil {
			opts = append(opts, crawler.WithRobots(stack.robots))
		}
		return convert.NewNative(crawler.NewFetcher(stack.client, opts...),
			convert.WithPageSize(cfg.PageSize),
			convert.WithNativeLogger(logger),
		), nil
	default:
		path, err := exec.LookPath(cfg.ConverterPath)
		if err != nil {
			return nil, fmt.Errorf("%s not found (install it or use --converter native): %w",
				cfg.ConverterPath, err)
		}
		return convert.NewEsri2GeoJSON(path, convert.WithLogger(logger)), nil
	}
}
