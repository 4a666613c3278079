package report

import (
	"io"
	"sort"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/tayerthiaggo/arcrest2shp/internal/model"
)

// Writer renders a run.
type Writer interface {
	// Write outputs the run summary and per-layer results. layers may be
	// nil when only the summary is known, e.g. for runs read back from
	// history. It returns the number of bytes written.
	Write(summary *model.RunSummary, layers []*model.LayerReport) (int, error)
}

// MultiWriter writes to multiple Writers in order.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the run to all configured Writers and stops on the first
// error.
func (m *MultiWriter) Write(summary *model.RunSummary, layers []*model.LayerReport) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(summary, layers)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

var titleCaser = cases.Title(language.English)

// title turns "vector" into "Vector".
func title(s string) string {
	return titleCaser.String(s)
}

// statusText describes how the run ended.
func statusText(s *model.RunSummary) string {
	switch {
	case s.Interrupted:
		return "interrupted (partial results)"
	case s.FinishedAt.IsZero():
		return "running"
	case s.Errors > 0:
		return "complete with errors"
	default:
		return "complete"
	}
}

// byOutcome splits layers by outcome, keeping input order.
func byOutcome(layers []*model.LayerReport) (extracted, failed, skipped []*model.LayerReport) {
	for _, l := range layers {
		if l == nil {
			continue
		}
		switch l.Outcome {
		case model.OutcomeExtracted:
			extracted = append(extracted, l)
		case model.OutcomeFailed:
			failed = append(failed, l)
		default:
			skipped = append(skipped, l)
		}
	}
	return extracted, failed, skipped
}

// reasonCount is a skip reason and how often it occurred.
type reasonCount struct {
	Reason string
	Count  int
}

// skipReasons tallies skip reasons, most frequent first.
func skipReasons(skipped []*model.LayerReport) []reasonCount {
	counts := make(map[string]int)
	for _, l := range skipped {
		reason := l.Reason
		if reason == "" {
			reason = "unspecified"
		}
		counts[reason]++
	}
	out := make([]reasonCount, 0, len(counts))
	for r, c := range counts {
		out = append(out, reasonCount{Reason: r, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Reason < out[j].Reason
	})
	return out
}

// layerName returns the classified name or the URL.
func layerName(l *model.LayerReport) string {
	if l.Layer != nil && l.Layer.Name != "" {
		return l.Layer.Name
	}
	return l.URL
}

// truncateString truncates a string to maxLen bytes with ellipsis.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
