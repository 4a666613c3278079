package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tayerthiaggo/arcrest2shp/internal/convert"
	"github.com/tayerthiaggo/arcrest2shp/internal/crawler"
	"github.com/tayerthiaggo/arcrest2shp/internal/geo"
	"github.com/tayerthiaggo/arcrest2shp/internal/inventory"
	"github.com/tayerthiaggo/arcrest2shp/internal/layer"
	applog "github.com/tayerthiaggo/arcrest2shp/internal/log"
	"github.com/tayerthiaggo/arcrest2shp/internal/model"
)

// History stores run history. *database.RunDB satisfies it.
type History interface {
	StartRun(ctx context.Context, s *model.RunSummary) error
	FinishRun(ctx context.Context, s *model.RunSummary) error
	InsertURL(ctx context.Context, runID, url, result string, linkCount int) error
	InsertLayer(ctx context.Context, runID string, kind model.LayerKind, row model.InventoryRow) error
	InsertError(ctx context.Context, runID string, row model.ErrorRow) error
}

// Runner executes a complete run: crawl, partition, per-leaf pipeline,
// error log, cleanup and history.
type Runner struct {
	fetcher    crawler.PageFetcher
	classifier *layer.Classifier
	aoi        *geo.AOI
	converter  convert.Converter
	inv        *inventory.Inventory

	history           History
	filter            *crawler.Filter
	containerPatterns []string
	workers           int
	cleanup           bool
	now               func() time.Time
	logger            *slog.Logger
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithHistory records the run in h.
func WithHistory(h History) RunnerOption {
	return func(r *Runner) {
		r.history = h
	}
}

// WithCrawlFilter restricts which links the crawl follows.
func WithCrawlFilter(f *crawler.Filter) RunnerOption {
	return func(r *Runner) {
		r.filter = f
	}
}

// WithContainerPatterns sets the substrings that mark container URLs.
func WithContainerPatterns(patterns []string) RunnerOption {
	return func(r *Runner) {
		r.containerPatterns = patterns
	}
}

// WithWorkers sets the worker pool size.
func WithWorkers(n int) RunnerOption {
	return func(r *Runner) {
		r.workers = n
	}
}

// WithCleanup enables removal of unreferenced GeoJSON after the run.
func WithCleanup(enabled bool) RunnerOption {
	return func(r *Runner) {
		r.cleanup = enabled
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) RunnerOption {
	return func(r *Runner) {
		r.now = now
	}
}

// WithRunnerLogger sets the logger.
func WithRunnerLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) {
		r.logger = logger
	}
}

// NewRunner creates a Runner. fetcher is used both for the crawl and for
// leaf pages.
func NewRunner(fetcher crawler.PageFetcher, classifier *layer.Classifier, aoi *geo.AOI,
	converter convert.Converter, inv *inventory.Inventory, opts ...RunnerOption,
) *Runner {
	r := &Runner{
		fetcher:           fetcher,
		classifier:        classifier,
		aoi:               aoi,
		converter:         converter,
		inv:               inv,
		containerPatterns: []string{"FS/MapServer"},
		workers:           DefaultConcurrency,
		cleanup:           true,
		now:               time.Now,
		logger:            slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Result is everything a run produced.
type Result struct {
	Summary   *model.RunSummary
	Reports   []*model.LayerReport
	Traversal *crawler.Traversal
}

// Run crawls rootURL and processes every leaf. Per-leaf failures are
// written to the error log and never fail the run. On cancellation the
// partial result is returned together with ctx.Err().
func (r *Runner) Run(ctx context.Context, rootURL string) (*Result, error) {
	summary := &model.RunSummary{
		ID:        uuid.NewString(),
		RootURL:   rootURL,
		AOIPath:   r.aoi.Path,
		OutputDir: r.inv.Dir(),
		StartedAt: r.now(),
	}
	res := &Result{Summary: summary}
	rec := &runRecorder{runID: summary.ID, inv: r.inv, history: r.history, logger: r.logger}

	if r.history != nil {
		if err := r.history.StartRun(ctx, summary); err != nil {
			r.logger.Warn("run history disabled", "error", err)
			rec.history = nil
		}
	}

	r.logger.Info("crawling", "root", rootURL, "run", summary.ID)
	opts := []crawler.Option{crawler.WithLogger(r.logger)}
	if r.filter != nil {
		opts = append(opts, crawler.WithFilter(r.filter))
	}
	if rec.history != nil {
		opts = append(opts, crawler.WithVisitHook(func(u string, cr crawler.Result) {
			if err := rec.history.InsertURL(ctx, summary.ID, u, cr.Kind.String(), len(cr.Links)); err != nil {
				r.logger.Debug("failed to record url", "url", u, "error", err)
			}
		}))
	}

	tr, err := crawler.New(r.fetcher, opts...).Crawl(ctx, rootURL)
	if tr == nil {
		return nil, err
	}
	res.Traversal = tr

	visited := tr.Visited()
	summary.Discovered = len(visited)
	summary.Unresolved = len(tr.Unresolved())
	if err != nil {
		return res, r.finish(summary, err)
	}

	_, leaves := crawler.Partition(visited, r.containerPatterns)
	summary.Leaves = len(leaves)
	r.logger.Info("crawl complete", "visited", len(visited), "leaves", len(leaves), "unresolved", summary.Unresolved)

	factory := func() *Pipeline {
		p := New(WithLogger(r.logger))
		p.AddSteps(Steps(r.fetcher, r.classifier, r.aoi, r.converter, r.inv, rec, r.logger)...)
		return p
	}
	bp := NewBatchProcessor(factory, WithConcurrency(r.workers), WithBatchLogger(r.logger))

	reports, err := bp.ProcessBatch(ctx, leaves, func(report *model.LayerReport, _ int) {
		if report.Logged() {
			rec.recordError(ctx, r.errorRow(report))
		}
	})
	for _, report := range reports {
		if report == nil {
			continue
		}
		summary.Add(report)
		res.Reports = append(res.Reports, report)
	}
	if err != nil {
		return res, r.finish(summary, err)
	}

	if r.cleanup {
		removed, err := inventory.Cleanup(r.inv.Dir())
		if err != nil {
			r.logger.Warn("cleanup failed", "error", err)
		}
		summary.Removed = len(removed)
	}

	return res, r.finish(summary, nil)
}

// finish stamps the summary and stores it. runErr is returned unchanged.
func (r *Runner) finish(summary *model.RunSummary, runErr error) error {
	summary.FinishedAt = r.now()
	summary.Interrupted = runErr != nil
	if r.history != nil {
		// The run context may already be cancelled; the summary is still
		// worth keeping.
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := r.history.FinishRun(ctx, summary); err != nil {
			r.logger.Warn("failed to store run summary", "error", err)
		}
	}
	return runErr
}

// errorRow builds the error log entry for a failed leaf.
func (r *Runner) errorRow(report *model.LayerReport) model.ErrorRow {
	name := ""
	if report.Layer != nil {
		name = report.Layer.Name
	}
	if name == "" {
		name = NameFromURL(report.URL)
	}
	msg := ""
	switch {
	case report.Err != nil:
		msg = applog.RedactURL(report.Err.Error())
	case report.ConvertErr != nil:
		msg = applog.RedactURL("download: " + report.ConvertErr.Error())
	}
	return model.ErrorRow{
		Name:           name,
		URL:            report.URL,
		ExtractionDate: r.now(),
		Error:          msg,
	}
}

// NameFromURL derives a file-safe name from the part of a REST URL after
// /rest/services/, e.g. "Parks_MapServer_2".
func NameFromURL(rawURL string) string {
	p := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		p = u.Path
	}
	if i := strings.Index(strings.ToLower(p), "/rest/services/"); i >= 0 {
		p = p[i+len("/rest/services/"):]
	}
	return layer.SanitizeName(p)
}

// runRecorder writes rows to the inventory and, when enabled, the history.
type runRecorder struct {
	runID   string
	inv     *inventory.Inventory
	history History
	logger  *slog.Logger

	mu sync.Mutex
}

// RecordLayer implements Recorder.
func (rr *runRecorder) RecordLayer(ctx context.Context, kind model.LayerKind, row model.InventoryRow) error {
	if err := rr.inv.AppendLayer(kind, row); err != nil {
		return err
	}
	if rr.history != nil {
		if err := rr.history.InsertLayer(ctx, rr.runID, kind, row); err != nil && !errors.Is(err, context.Canceled) {
			rr.logger.Warn("failed to record layer history", "name", row.Name, "error", err)
		}
	}
	return nil
}

func (rr *runRecorder) recordError(ctx context.Context, row model.ErrorRow) {
	rr.mu.Lock()
	defer rr.mu.Unlock()

	if err := rr.inv.AppendError(row); err != nil {
		rr.logger.Error("failed to write error log", "url", row.URL, "error", err)
	}
	if rr.history != nil {
		if err := rr.history.InsertError(ctx, rr.runID, row); err != nil {
			rr.logger.Debug("failed to record error history", "url", row.URL, "error", err)
		}
	}
}
