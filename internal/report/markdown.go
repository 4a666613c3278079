package report

import (
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/tayerthiaggo/arcrest2shp/internal/inventory"
	applog "github.com/tayerthiaggo/arcrest2shp/internal/log"
	"github.com/tayerthiaggo/arcrest2shp/internal/model"
)

// timeLayout is used for run timestamps in human-readable output.
const timeLayout = "2006-01-02 15:04:05 MST"

// MarkdownWriter writes summary.md.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the run in Markdown format.
func (w *MarkdownWriter) Write(summary *model.RunSummary, layers []*model.LayerReport) (int, error) {
	md := markdown.NewMarkdown(w.output)
	extracted, failed, skipped := byOutcome(layers)

	w.writeHeader(md, summary)
	w.writeOutcomes(md, summary)
	if layers != nil {
		w.writeExtracted(md, extracted)
		w.writeFailed(md, failed)
		w.writeSkipped(md, skipped)
	}
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the run information table.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, s *model.RunSummary) {
	md.H1("arcrest2shp Run Summary")
	md.PlainText("")

	rows := [][]string{
		{"Run ID", "`" + s.ID + "`"},
		{"Root URL", applog.RedactURL(s.RootURL)},
		{"Area of Interest", "`" + s.AOIPath + "`"},
		{"Output", "`" + s.OutputDir + "`"},
		{"Started", s.StartedAt.Format(timeLayout)},
	}
	if !s.FinishedAt.IsZero() {
		rows = append(rows,
			[]string{"Finished", s.FinishedAt.Format(timeLayout)},
			[]string{"Duration", s.Duration().Round(time.Second).String()},
		)
	}
	rows = append(rows, []string{"Status", title(statusText(s))})

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeOutcomes writes the crawl and layer counts.
func (w *MarkdownWriter) writeOutcomes(md *markdown.Markdown, s *model.RunSummary) {
	md.H2("Outcomes")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Measure", "Count"},
		Rows: [][]string{
			{"URLs visited", strconv.Itoa(s.Discovered)},
			{"Unresolved URLs", strconv.Itoa(s.Unresolved)},
			{"Leaves processed", strconv.Itoa(s.Leaves)},
			{title(model.KindVector.String()) + " layers", strconv.Itoa(s.Vector)},
			{title(model.KindRaster.String()) + " layers", strconv.Itoa(s.Raster)},
			{"Skipped", strconv.Itoa(s.Skipped)},
			{"Errors", strconv.Itoa(s.Errors)},
			{"Orphan GeoJSON removed", strconv.Itoa(s.Removed)},
		},
	})
	md.PlainText("")

	if s.Extracted()+s.Skipped+s.Errors > 0 {
		w.writePieChart(md, s)
	}
	w.writeAlert(md, s)
}

// writePieChart writes a mermaid pie chart of leaf outcomes.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, s *model.RunSummary) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Leaf Outcomes"),
		piechart.WithShowData(true),
	)

	if s.Vector > 0 {
		chart.LabelAndIntValue(title(model.KindVector.String()), uint64(s.Vector))
	}
	if s.Raster > 0 {
		chart.LabelAndIntValue(title(model.KindRaster.String()), uint64(s.Raster))
	}
	if s.Skipped > 0 {
		chart.LabelAndIntValue("Skipped", uint64(s.Skipped))
	}
	if s.Errors > 0 {
		chart.LabelAndIntValue("Errors", uint64(s.Errors))
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeAlert writes a callout matching how the run ended.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, s *model.RunSummary) {
	switch {
	case s.Interrupted:
		md.Cautionf("The run was interrupted. Inventories contain partial results.")
	case s.Errors > 0:
		md.Warningf("%d layer(s) failed. See error_log.csv for details.", s.Errors)
	case s.Unresolved > 0:
		md.Importantf("%d URL(s) could not be resolved after retries; parts of the directory may be missing.", s.Unresolved)
	case s.Extracted() == 0:
		md.Note("No layers intersected the area of interest.")
	default:
		md.Tip("All layers processed without errors.")
	}
	md.PlainText("")
}

// writeExtracted writes the inventoried layers.
func (w *MarkdownWriter) writeExtracted(md *markdown.Markdown, extracted []*model.LayerReport) {
	md.H2("Extracted Layers")
	md.PlainText("")

	if len(extracted) == 0 {
		md.PlainText("No layers extracted.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(extracted))
	for i, l := range extracted {
		geometry := "-"
		if l.Layer != nil && l.Layer.GeometryType != "" {
			geometry = l.Layer.GeometryType
		}
		features := "-"
		if l.Kind() == model.KindVector {
			features = strconv.Itoa(l.Features)
		}
		out := model.NoOutputPath
		if l.Row != nil {
			out = l.Row.OutPath
		}
		rows[i] = []string{title(l.Kind().String()), layerName(l), geometry, features, truncateString(out, 60)}
	}

	md.Table(markdown.TableSet{
		Header: []string{"Kind", "Name", "Geometry", "Features", "Out Path"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeFailed writes one row per error log entry.
func (w *MarkdownWriter) writeFailed(md *markdown.Markdown, failed []*model.LayerReport) {
	if len(failed) == 0 {
		return
	}

	md.H2("Errors")
	md.PlainText("")

	rows := make([][]string, len(failed))
	for i, l := range failed {
		msg := "-"
		if l.Err != nil {
			msg = applog.RedactURL(l.Err.Error())
		}
		rows[i] = []string{layerName(l), truncateString(applog.RedactURL(l.URL), 60), truncateString(msg, 80)}
	}

	md.Table(markdown.TableSet{
		Header: []string{"Name", "URL", "Error"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeSkipped writes the skip reasons, which are not errors.
func (w *MarkdownWriter) writeSkipped(md *markdown.Markdown, skipped []*model.LayerReport) {
	if len(skipped) == 0 {
		return
	}

	md.H2("Skipped")
	md.PlainText("")

	reasons := skipReasons(skipped)
	rows := make([][]string, len(reasons))
	for i, r := range reasons {
		rows[i] = []string{r.Reason, strconv.Itoa(r.Count)}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Reason", "Count"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Generated by [arcrest2shp](https://github.com/tayerthiaggo/arcrest2shp)*")
}

// WriteSummaryFile writes summary.md into dir, replacing any previous one.
func WriteSummaryFile(dir string, summary *model.RunSummary, layers []*model.LayerReport) (string, error) {
	path := filepath.Join(dir, inventory.SummaryFile)
	f, err := os.Create(path) //nolint:gosec // output under the export dir
	if err != nil {
		return "", err
	}
	if _, err := NewMarkdownWriter(f).Write(summary, layers); err != nil {
		_ = f.Close()
		return "", err
	}
	return path, f.Close()
}
