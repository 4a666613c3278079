package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	applog "github.com/tayerthiaggo/arcrest2shp/internal/log"
	"github.com/tayerthiaggo/arcrest2shp/internal/model"
)

// SimpleWriter outputs a plain-text run summary for the terminal.
type SimpleWriter struct {
	baseWriter

	// verbose lists every extracted layer and skip reason.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the run in human-readable form.
func (w *SimpleWriter) Write(summary *model.RunSummary, layers []*model.LayerReport) (int, error) {
	var sb strings.Builder
	extracted, failed, skipped := byOutcome(layers)

	w.writeHeader(&sb, summary)
	w.writeCounts(&sb, summary)
	if w.verbose {
		w.writeExtracted(&sb, extracted)
		w.writeSkipped(&sb, skipped)
	}
	w.writeFailed(&sb, failed)
	w.writeFooter(&sb, summary)

	return w.output.Write([]byte(sb.String()))
}

func rule(sb *strings.Builder, ch string) {
	sb.WriteString(strings.Repeat(ch, 70))
	sb.WriteString("\n")
}

func section(sb *strings.Builder, name string) {
	rule(sb, "-")
	sb.WriteString(name + "\n")
	rule(sb, "-")
	sb.WriteString("\n")
}

// writeHeader writes the run information.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, s *model.RunSummary) {
	sb.WriteString("\n")
	rule(sb, "=")
	sb.WriteString("                         ARCREST2SHP RUN\n")
	rule(sb, "=")
	sb.WriteString("\n")

	fmt.Fprintf(sb, "Run ID:   %s\n", s.ID)
	fmt.Fprintf(sb, "Root URL: %s\n", applog.RedactURL(s.RootURL))
	fmt.Fprintf(sb, "AOI:      %s\n", s.AOIPath)
	fmt.Fprintf(sb, "Output:   %s\n", s.OutputDir)
	fmt.Fprintf(sb, "Started:  %s\n", s.StartedAt.Format(timeLayout))
	if d := s.Duration(); d > 0 {
		fmt.Fprintf(sb, "Duration: %s\n", d.Round(time.Second))
	}
	fmt.Fprintf(sb, "Status:   %s\n", strings.ToUpper(statusText(s)))
	sb.WriteString("\n")
}

// writeCounts writes the outcome counts.
func (w *SimpleWriter) writeCounts(sb *strings.Builder, s *model.RunSummary) {
	section(sb, "OUTCOMES")

	fmt.Fprintf(sb, "  VISITED:    %d\n", s.Discovered)
	fmt.Fprintf(sb, "  UNRESOLVED: %d\n", s.Unresolved)
	fmt.Fprintf(sb, "  LEAVES:     %d\n", s.Leaves)
	fmt.Fprintf(sb, "  VECTOR:     %d\n", s.Vector)
	fmt.Fprintf(sb, "  RASTER:     %d\n", s.Raster)
	fmt.Fprintf(sb, "  SKIPPED:    %d\n", s.Skipped)
	fmt.Fprintf(sb, "  ERRORS:     %d\n", s.Errors)
	if s.Removed > 0 {
		fmt.Fprintf(sb, "  CLEANED:    %d orphan GeoJSON file(s)\n", s.Removed)
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeExtracted(sb *strings.Builder, extracted []*model.LayerReport) {
	if len(extracted) == 0 {
		return
	}
	section(sb, "EXTRACTED")
	for _, l := range extracted {
		fmt.Fprintf(sb, "  [+] %-6s %s\n", l.Kind().String(), layerName(l))
		if l.Kind() == model.KindVector {
			fmt.Fprintf(sb, "      %d feature(s) -> %s\n", l.Features, l.ShapePath)
		}
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeSkipped(sb *strings.Builder, skipped []*model.LayerReport) {
	if len(skipped) == 0 {
		return
	}
	section(sb, "SKIPPED")
	for _, r := range skipReasons(skipped) {
		fmt.Fprintf(sb, "  %4d  %s\n", r.Count, r.Reason)
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeFailed(sb *strings.Builder, failed []*model.LayerReport) {
	if len(failed) == 0 {
		return
	}
	section(sb, "ERRORS")
	for _, l := range failed {
		fmt.Fprintf(sb, "  [!] %s\n", layerName(l))
		if l.Err != nil {
			fmt.Fprintf(sb, "      %s\n", applog.RedactURL(l.Err.Error()))
		}
	}
	sb.WriteString("\n")
}

// writeFooter points at the files written by the run.
func (w *SimpleWriter) writeFooter(sb *strings.Builder, s *model.RunSummary) {
	rule(sb, "=")
	if s.OutputDir != "" {
		fmt.Fprintf(sb, "Inventories and summary.md written to %s\n", s.OutputDir)
	}
	rule(sb, "=")
}
