package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tayerthiaggo/arcrest2shp/internal/model"
)

// DefaultConcurrency is the number of leaves processed at once.
const DefaultConcurrency = 10

// BatchProcessor runs a fresh Pipeline for every leaf URL on a bounded
// pool of goroutines.
type BatchProcessor struct {
	// pipelineFactory creates a new pipeline for each leaf.
	pipelineFactory func() *Pipeline

	// concurrency is the maximum number of leaves in flight.
	concurrency int

	// logger is used for batch-level logging.
	logger *slog.Logger
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of concurrent leaves.
// Non-positive values keep the default of 10.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchProcessor creates a new BatchProcessor.
func NewBatchProcessor(pipelineFactory func() *Pipeline, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		pipelineFactory: pipelineFactory,
		concurrency:     DefaultConcurrency,
	}

	for _, opt := range opts {
		opt(bp)
	}

	if bp.logger == nil {
		bp.logger = slog.Default()
	}

	return bp
}

// ProcessBatch processes every URL and returns one report per URL, in
// input order. Leaf failures never stop the batch; only cancellation does,
// in which case leaves that never started have a nil report and ctx.Err()
// is returned.
//
// callback, when not nil, is called with each finished report from the
// worker goroutine that produced it and must be safe for concurrent use.
func (bp *BatchProcessor) ProcessBatch(
	ctx context.Context,
	urls []string,
	callback func(report *model.LayerReport, index int),
) ([]*model.LayerReport, error) {
	bp.logger.Info("starting batch processing",
		"total_leaves", len(urls),
		"concurrency", bp.concurrency,
	)

	startTime := time.Now()
	reports := make([]*model.LayerReport, len(urls))

	// The group context is never cancelled by a leaf since workers only
	// return ctx.Err().
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, u := range urls {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			bp.logger.Debug("processing leaf", "url", u, "index", i+1, "total", len(urls))

			report := model.NewLayerReport(u)
			err := bp.run(gctx, report)

			// Each goroutine owns reports[i].
			reports[i] = report
			if callback != nil {
				callback(report, i)
			}
			return err
		})
	}

	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}

	bp.logger.Info("batch processing complete",
		"total_leaves", len(urls),
		"elapsed", time.Since(startTime),
	)

	return reports, err
}

// run executes a fresh pipeline, containing panics raised outside steps.
func (bp *BatchProcessor) run(ctx context.Context, report *model.LayerReport) (err error) {
	defer func() {
		if r := recover(); r != nil {
			bp.logger.Error("leaf panicked", "url", report.URL, "panic", r)
			report.Outcome = model.OutcomeFailed
			report.Err = &PanicError{Value: r}
			err = nil
		}
	}()
	return bp.pipelineFactory().Execute(ctx, report)
}

// PanicError wraps a recovered panic value.
type PanicError struct {
	Value any
}

// Error implements error.
func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}
