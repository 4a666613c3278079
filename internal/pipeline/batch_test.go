package pipeline

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tayerthiaggo/arcrest2shp/internal/model"
)

func leafURLs(n int) []string {
	urls := make([]string, n)
	for i := range urls {
		urls[i] = "https://example.com/arcgis/rest/services/S/MapServer/" + strconv.Itoa(i)
	}
	return urls
}

// TestNewBatchProcessor tests option handling.
func TestNewBatchProcessor(t *testing.T) {
	t.Parallel()

	t.Run("defaults to 10 workers", func(t *testing.T) {
		t.Parallel()

		bp := NewBatchProcessor(func() *Pipeline { return New() })
		if bp.concurrency != DefaultConcurrency {
			t.Errorf("expected %d, got %d", DefaultConcurrency, bp.concurrency)
		}
	})

	t.Run("ignores non-positive concurrency", func(t *testing.T) {
		t.Parallel()

		bp := NewBatchProcessor(func() *Pipeline { return New() }, WithConcurrency(0))
		if bp.concurrency != DefaultConcurrency {
			t.Errorf("expected %d, got %d", DefaultConcurrency, bp.concurrency)
		}
	})
}

// TestProcessBatch tests ordering, isolation and the concurrency bound.
func TestProcessBatch(t *testing.T) {
	t.Parallel()

	t.Run("reports are returned in input order", func(t *testing.T) {
		t.Parallel()

		urls := leafURLs(25)
		bp := NewBatchProcessor(func() *Pipeline {
			p := New()
			p.AddStep(&mockStep{name: "extract", doFunc: extract})
			return p
		}, WithConcurrency(4))

		reports, err := bp.ProcessBatch(context.Background(), urls, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for i, r := range reports {
			if r.URL != urls[i] {
				t.Errorf("report %d: expected %s, got %s", i, urls[i], r.URL)
			}
			if r.Outcome != model.OutcomeExtracted {
				t.Errorf("report %d: expected extracted, got %s", i, r.Outcome)
			}
		}
	})

	t.Run("one failing leaf does not affect the others", func(t *testing.T) {
		t.Parallel()

		urls := leafURLs(10)
		bad := urls[3]
		bp := NewBatchProcessor(func() *Pipeline {
			p := New()
			p.AddStep(&mockStep{name: "maybe-fail", doFunc: func(_ context.Context, r *model.LayerReport) error {
				if r.URL == bad {
					return errors.New("spatial reference not found")
				}
				r.Outcome = model.OutcomeExtracted
				return nil
			}})
			return p
		})

		var mu sync.Mutex
		var failed []int
		reports, err := bp.ProcessBatch(context.Background(), urls, func(r *model.LayerReport, i int) {
			if r.Outcome == model.OutcomeFailed {
				mu.Lock()
				failed = append(failed, i)
				mu.Unlock()
			}
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(failed) != 1 || failed[0] != 3 {
			t.Errorf("expected only index 3 to fail, got %v", failed)
		}
		extracted := 0
		for _, r := range reports {
			if r.Outcome == model.OutcomeExtracted {
				extracted++
			}
		}
		if extracted != 9 {
			t.Errorf("expected 9 extracted, got %d", extracted)
		}
	})

	t.Run("never exceeds the worker limit", func(t *testing.T) {
		t.Parallel()

		var inFlight, peak atomic.Int32
		bp := NewBatchProcessor(func() *Pipeline {
			p := New()
			p.AddStep(&mockStep{name: "slow", doFunc: func(context.Context, *model.LayerReport) error {
				n := inFlight.Add(1)
				for {
					old := peak.Load()
					if n <= old || peak.CompareAndSwap(old, n) {
						break
					}
				}
				time.Sleep(5 * time.Millisecond)
				inFlight.Add(-1)
				return nil
			}})
			return p
		}, WithConcurrency(3))

		if _, err := bp.ProcessBatch(context.Background(), leafURLs(20), nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if peak.Load() > 3 {
			t.Errorf("expected at most 3 concurrent leaves, saw %d", peak.Load())
		}
	})

	t.Run("cancellation returns ctx error", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		bp := NewBatchProcessor(func() *Pipeline { return New() })
		_, err := bp.ProcessBatch(ctx, leafURLs(5), nil)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})

	t.Run("panicking factory is isolated", func(t *testing.T) {
		t.Parallel()

		bp := NewBatchProcessor(func() *Pipeline { panic("factory") })
		reports, err := bp.ProcessBatch(context.Background(), leafURLs(2), nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for _, r := range reports {
			var pe *PanicError
			if r.Outcome != model.OutcomeFailed || !errors.As(r.Err, &pe) {
				t.Errorf("expected panic failure, got %s %v", r.Outcome, r.Err)
			}
		}
	})
}
