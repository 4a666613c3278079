package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/tayerthiaggo/arcrest2shp/internal/config"
	"github.com/tayerthiaggo/arcrest2shp/internal/database"
	"github.com/tayerthiaggo/arcrest2shp/internal/geo"
	"github.com/tayerthiaggo/arcrest2shp/internal/inventory"
	"github.com/tayerthiaggo/arcrest2shp/internal/layer"
	"github.com/tayerthiaggo/arcrest2shp/internal/pipeline"
	"github.com/tayerthiaggo/arcrest2shp/internal/report"
)

// NewRunCmd creates the run command.
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <root-url>",
		Short: "Crawl a REST services directory and extract layers inside an AOI",
		Long: `Run crawls an ArcGIS REST services directory and processes every layer
page it finds:

- Vector layers are downloaded inside the AOI envelope, clipped to the AOI
  and written as shapefiles.
- Raster layers are recorded in the raster inventory when their extent
  intersects the AOI.
- Pages that fail are recorded in error_log.csv; the run carries on.

Examples:
  # Extract every layer inside a boundary
  arcrest2shp run https://services.slip.wa.gov.au/public/rest/services \
    --aoi boundary.geojson --output ./out

  # Use the built-in query downloader instead of esri2geojson
  arcrest2shp run https://gis.example.com/arcgis/rest/services \
    -a boundary.shp -o ./out --converter native

  # Throttle requests and route them through a SOCKS proxy
  arcrest2shp run https://gis.example.com/arcgis/rest/services \
    -a aoi.geojson -o ./out --rate 2 --proxy socks5://127.0.0.1:1080

Configuration file (.arcrest2shp) example:
  services:
    gis.example.com:
      token: "abc123"
      ignorePatterns:
        - "/arcgis/rest/services/Utilities/*"`,
		Args: cobra.ExactArgs(1),
		RunE: runRunCmd,
	}

	cmd.Flags().StringP("aoi", "a", "",
		"Area of interest boundary (GeoJSON or ESRI Shapefile)")
	cmd.Flags().Int("aoi-srid", 0,
		"EPSG code of the AOI file (default: detect from the file)")
	cmd.Flags().StringP("output", "o", "",
		"Output folder; results are written to <output>/extracted_data")
	cmd.Flags().IntP("workers", "w", config.DefaultWorkers,
		"Number of layers processed concurrently")
	cmd.Flags().String("converter", config.DefaultConverter,
		"Vector download backend: esri2geojson or native")
	cmd.Flags().String("converter-path", config.DefaultConverterPath,
		"Path to the esri2geojson executable")
	cmd.Flags().Int("page-size", config.DefaultPageSize,
		"Records per query for the native converter")
	cmd.Flags().Bool("no-cleanup", false,
		"Keep downloaded GeoJSON files that did not produce a shapefile")
	cmd.Flags().Bool("no-history", false,
		"Do not record the run in the history database")
	cmd.Flags().BoolP("json", "j", false,
		"Print the run result as JSON")
	addCrawlFlags(cmd)

	return cmd
}

// runRunCmd executes the run command.
func runRunCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args[0])
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	jsonOutput, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}

	logger := setupLogger(cmd)
	slog.SetDefault(logger)

	ctx, cancel := signalContext(logger)
	defer cancel()

	return runExtraction(ctx, cfg, jsonOutput, cmd.OutOrStdout(), logger)
}

// runExtraction wires the run from cfg and prints the result to out.
func runExtraction(ctx context.Context, cfg *config.Config, jsonOutput bool, out io.Writer, logger *slog.Logger) error {
	svc := cfg.Service()

	aoi, err := geo.LoadAOI(cfg.AOIPath, cfg.AOISRID)
	if err != nil {
		return fmt.Errorf("failed to load AOI: %w", err)
	}
	logger.Info("AOI loaded", "path", aoi.Path, "srid", aoi.SRID)

	strategy, err := layer.StrategyByName(cfg.NameStrategy)
	if err != nil {
		return err
	}
	classifier := layer.NewClassifier(layer.WithNameStrategy(strategy), layer.WithLogger(logger))

	stack, err := newHTTPStack(ctx, cfg, svc, logger)
	if err != nil {
		return err
	}
	converter, err := newConverter(cfg, stack, logger)
	if err != nil {
		return err
	}
	filter, err := newFilter(cfg, svc)
	if err != nil {
		return err
	}

	inv, err := inventory.Open(cfg.ExportDir())
	if err != nil {
		return fmt.Errorf("failed to open output folder: %w", err)
	}
	defer func() {
		if err := inv.Close(); err != nil {
			logger.Error("failed to close inventory", "error", err)
		}
	}()

	opts := []pipeline.RunnerOption{
		pipeline.WithCrawlFilter(filter),
		pipeline.WithContainerPatterns(svc.ContainerPatterns),
		pipeline.WithWorkers(cfg.Workers),
		pipeline.WithCleanup(cfg.Cleanup),
		pipeline.WithRunnerLogger(logger),
	}
	if cfg.SaveToDB {
		db, err := database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			logger.Warn("run history unavailable", "dir", cfg.DBDir, "error", err)
		} else {
			defer db.Close()
			opts = append(opts, pipeline.WithHistory(db))
		}
	}

	runner := pipeline.NewRunner(stack.fetcher, classifier, aoi, converter, inv, opts...)
	res, runErr := runner.Run(ctx, cfg.RootURL)
	if res == nil {
		return fmt.Errorf("run failed: %w", runErr)
	}

	if path, err := report.WriteSummaryFile(inv.Dir(), res.Summary, res.Reports); err != nil {
		logger.Error("failed to write summary", "error", err)
	} else {
		logger.Info("summary written", "path", path)
	}

	var w report.Writer
	if jsonOutput {
		w = report.NewJSONWriter(out, report.WithPrettyPrint(), report.WithVersion(getVersion()))
	} else {
		w = report.NewSimpleWriter(out, report.WithVerbose(cfg.Verbose))
	}
	if _, err := w.Write(res.Summary, res.Reports); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	if runErr != nil {
		if errors.Is(runErr, context.Canceled) {
			return errors.New("run interrupted; partial results were kept")
		}
		return fmt.Errorf("run failed: %w", runErr)
	}
	return nil
}

// writeTo is used by commands that print plain lines.
func writeTo(out io.Writer, format string, a ...any) {
	_, _ = fmt.Fprintf(out, format, a...)
}
