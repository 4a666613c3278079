package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/tayerthiaggo/arcrest2shp/internal/model"
)

// ErrSkip ends a leaf without an error log entry.
var ErrSkip = errors.New("skipped")

// Skip returns an error that stops the pipeline and marks the leaf skipped
// with reason.
func Skip(reason string) error {
	return fmt.Errorf("%w: %s", ErrSkip, reason)
}

// Step defines the interface that all pipeline steps must implement.
// Steps are executed in sequence, each receiving the report built by the
// previous ones.
type Step interface {
	// Do executes the step. Returning an error wrapping ErrSkip stops the
	// pipeline without failing the leaf.
	Do(ctx context.Context, report *model.LayerReport) error

	// Name returns the step's name for logging purposes.
	Name() string
}

// Pipeline orchestrates the execution of multiple steps.
type Pipeline struct {
	// steps contains the ordered list of steps to execute.
	steps []Step

	// logger is used for structured logging during execution.
	logger *slog.Logger
}

// Option is a function that configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// New creates a new Pipeline with the given options.
// Steps should be added using AddStep after creation.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		steps: make([]Step, 0),
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.logger == nil {
		p.logger = slog.Default()
	}

	return p
}

// AddStep appends a step to the pipeline.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends multiple steps to the pipeline.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// Execute runs the steps in order on report and sets its Outcome, Reason,
// Err and Duration. The first failing step ends the run. A step that
// panics is reported as a failure.
//
// The returned error is ctx.Err() on cancellation and nil otherwise;
// per-leaf failures live in the report.
func (p *Pipeline) Execute(ctx context.Context, report *model.LayerReport) error {
	start := time.Now()
	defer func() {
		report.Duration = time.Since(start)
		report.Page = nil
	}()

	report.Outcome = model.OutcomeSkipped
	for _, step := range p.steps {
		if err := ctx.Err(); err != nil {
			p.logger.Warn("pipeline cancelled", "step", step.Name(), "url", report.URL, "reason", err)
			report.Reason = "cancelled"
			return err
		}

		p.logger.Debug("executing step", "step", step.Name(), "url", report.URL)

		err := runStep(ctx, step, report)
		if err == nil {
			continue
		}
		if errors.Is(err, ErrSkip) {
			report.Outcome = model.OutcomeSkipped
			report.Reason = skipReason(err)
			p.logger.Debug("leaf skipped", "step", step.Name(), "url", report.URL, "reason", report.Reason)
			return nil
		}
		if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
			report.Reason = "cancelled"
			return ctx.Err()
		}

		report.Outcome = model.OutcomeFailed
		report.Err = fmt.Errorf("%s: %w", step.Name(), err)
		p.logger.Warn("step failed", "step", step.Name(), "url", report.URL, "error", err)
		return nil
	}

	if report.Outcome != model.OutcomeExtracted && report.Reason == "" {
		report.Reason = "no step recorded the layer"
	}
	return nil
}

// runStep calls step.Do, converting a panic into an error.
func runStep(ctx context.Context, step Step, report *model.LayerReport) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r}
		}
	}()
	return step.Do(ctx, report)
}

func skipReason(err error) string {
	return strings.TrimPrefix(err.Error(), ErrSkip.Error()+": ")
}

// StepCount returns the number of steps in the pipeline.
func (p *Pipeline) StepCount() int {
	return len(p.steps)
}

// StepNames returns the names of all steps in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, len(p.steps))
	for i, step := range p.steps {
		names[i] = step.Name()
	}
	return names
}
