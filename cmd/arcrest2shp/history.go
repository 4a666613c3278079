package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/nao1215/markdown"
	"github.com/spf13/cobra"

	"github.com/tayerthiaggo/arcrest2shp/internal/config"
	"github.com/tayerthiaggo/arcrest2shp/internal/database"
	applog "github.com/tayerthiaggo/arcrest2shp/internal/log"
	"github.com/tayerthiaggo/arcrest2shp/internal/model"
	"github.com/tayerthiaggo/arcrest2shp/internal/report"
)

// historyTimeLayout is used in run listings.
const historyTimeLayout = "2006-01-02 15:04:05"

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "Show previous runs",
		Long: `History lists runs recorded in the history database, most recent first.

Pass a run ID, or a unique prefix of one, to show that run's counts,
inventory rows and errors.

Examples:
  # List the last 20 runs
  arcrest2shp history

  # Show one run
  arcrest2shp history 3f2a9c

  # Show one run as Markdown
  arcrest2shp history --markdown 3f2a9c`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().IntP("limit", "n", 20,
		"Maximum number of runs to list (0 = all)")
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown (mutually exclusive with --json)")
	cmd.Flags().String("db-dir", "",
		"Directory of the history database (default: XDG data directory)")

	return cmd
}

// runDetail is the JSON form of one stored run.
type runDetail struct {
	Summary *model.RunSummary    `json:"summary"`
	Vector  []model.InventoryRow `json:"vector"`
	Raster  []model.InventoryRow `json:"raster"`
	Errors  []model.ErrorRow     `json:"errors"`
	URLs    map[string]int       `json:"urls"`
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}
	jsonOutput, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}
	markdownOutput, err := cmd.Flags().GetBool("markdown")
	if err != nil {
		return err
	}
	if jsonOutput && markdownOutput {
		return errors.New("--json and --markdown are mutually exclusive")
	}
	dbDir, err := cmd.Flags().GetString("db-dir")
	if err != nil {
		return err
	}
	if dbDir == "" {
		dbDir = config.XDGDataDir()
	}

	db, err := database.Open(dbDir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	out := cmd.OutOrStdout()

	if len(args) == 0 {
		return listRuns(ctx, db, limit, jsonOutput, out)
	}
	return showRun(ctx, db, args[0], jsonOutput, markdownOutput, out)
}

// listRuns prints the most recent runs.
func listRuns(ctx context.Context, db *database.RunDB, limit int, jsonOutput bool, out io.Writer) error {
	runs, err := db.ListRuns(ctx, limit)
	if err != nil {
		return err
	}

	if jsonOutput {
		if runs == nil {
			runs = []*model.RunSummary{}
		}
		return encodeJSON(out, runs)
	}

	if len(runs) == 0 {
		writeTo(out, "No runs found in the history database.\n")
		writeTo(out, "\nUse 'arcrest2shp run <root-url>' to start one.\n")
		return nil
	}

	writeTo(out, "Runs (%d):\n\n", len(runs))
	writeTo(out, "  %-8s  %-19s  %6s  %6s  %6s  %-10s  %s\n",
		"ID", "Started", "Vector", "Raster", "Errors", "Status", "Root URL")
	writeTo(out, "  %s\n", strings.Repeat("-", 90))
	for _, r := range runs {
		writeTo(out, "  %-8s  %-19s  %6d  %6d  %6d  %-10s  %s\n",
			shortID(r.ID),
			r.StartedAt.Local().Format(historyTimeLayout),
			r.Vector, r.Raster, r.Errors,
			runStatus(r),
			applog.RedactURL(r.RootURL),
		)
	}
	writeTo(out, "\nUse 'arcrest2shp history <id>' to show a run.\n")

	return nil
}

// showRun prints one run with its stored rows.
func showRun(ctx context.Context, db *database.RunDB, id string, jsonOutput, markdownOutput bool, out io.Writer) error {
	summary, err := db.GetRun(ctx, id)
	if err != nil {
		return err
	}
	if summary == nil {
		return fmt.Errorf("no run matches %q", id)
	}

	detail, err := loadDetail(ctx, db, summary)
	if err != nil {
		return err
	}

	switch {
	case jsonOutput:
		return encodeJSON(out, detail)
	case markdownOutput:
		return writeDetailMarkdown(out, detail)
	default:
		return writeDetailText(out, detail)
	}
}

func loadDetail(ctx context.Context, db *database.RunDB, summary *model.RunSummary) (*runDetail, error) {
	detail := &runDetail{
		Summary: summary,
		Vector:  []model.InventoryRow{},
		Raster:  []model.InventoryRow{},
	}

	layers, err := db.GetLayers(ctx, summary.ID)
	if err != nil {
		return nil, err
	}
	for _, rec := range layers {
		if rec.Kind == model.KindRaster.String() {
			detail.Raster = append(detail.Raster, rec.Row)
		} else {
			detail.Vector = append(detail.Vector, rec.Row)
		}
	}

	if detail.Errors, err = db.GetErrors(ctx, summary.ID); err != nil {
		return nil, err
	}
	if detail.Errors == nil {
		detail.Errors = []model.ErrorRow{}
	}
	for i := range detail.Errors {
		detail.Errors[i].URL = applog.RedactURL(detail.Errors[i].URL)
	}

	if detail.URLs, err = db.CountURLs(ctx, summary.ID); err != nil {
		return nil, err
	}
	return detail, nil
}

func writeDetailText(out io.Writer, d *runDetail) error {
	if _, err := report.NewSimpleWriter(out).Write(d.Summary, nil); err != nil {
		return err
	}

	if len(d.URLs) > 0 {
		writeTo(out, "Crawled URLs by result:\n")
		for _, k := range sortedKeys(d.URLs) {
			writeTo(out, "  %-12s %d\n", k+":", d.URLs[k])
		}
		writeTo(out, "\n")
	}

	writeRows(out, "Vector layers", d.Vector)
	writeRows(out, "Raster layers", d.Raster)

	if len(d.Errors) > 0 {
		writeTo(out, "Errors (%d):\n", len(d.Errors))
		for _, e := range d.Errors {
			writeTo(out, "  %s\n    %s\n", e.Name, e.Error)
		}
		writeTo(out, "\n")
	}
	return nil
}

func writeRows(out io.Writer, heading string, rows []model.InventoryRow) {
	if len(rows) == 0 {
		return
	}
	writeTo(out, "%s (%d):\n", heading, len(rows))
	for _, r := range rows {
		writeTo(out, "  %-40s %s\n", r.Name, r.OutPath)
	}
	writeTo(out, "\n")
}

func writeDetailMarkdown(out io.Writer, d *runDetail) error {
	if _, err := report.NewMarkdownWriter(out).Write(d.Summary, nil); err != nil {
		return err
	}

	md := markdown.NewMarkdown(out)
	md.PlainText("")
	inventoryTable(md, "Vector Inventory", d.Vector)
	inventoryTable(md, "Raster Inventory", d.Raster)

	if len(d.Errors) > 0 {
		md.H2("Error Log")
		md.PlainText("")
		rows := make([][]string, len(d.Errors))
		for i, e := range d.Errors {
			rows[i] = []string{e.Name, e.ExtractionDate.Format(model.DateLayout), e.Error}
		}
		md.Table(markdown.TableSet{
			Header: []string{"Name", "Date", "Error"},
			Rows:   rows,
		})
		md.PlainText("")
	}
	return md.Build()
}

func inventoryTable(md *markdown.Markdown, heading string, rows []model.InventoryRow) {
	if len(rows) == 0 {
		return
	}
	md.H2(heading)
	md.PlainText("")
	table := make([][]string, len(rows))
	for i, r := range rows {
		table[i] = []string{r.Source, r.Name, r.GeometryType, r.OutPath}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Source", "Name", "Geometry", "Out Path"},
		Rows:   table,
	})
	md.PlainText("")
}

func encodeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// shortID returns the first eight characters of a run ID.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func runStatus(s *model.RunSummary) string {
	switch {
	case s.Interrupted:
		return "partial"
	case s.FinishedAt.IsZero():
		return "unfinished"
	default:
		return "complete"
	}
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
