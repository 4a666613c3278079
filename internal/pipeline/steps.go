package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tayerthiaggo/arcrest2shp/internal/convert"
	"github.com/tayerthiaggo/arcrest2shp/internal/crawler"
	"github.com/tayerthiaggo/arcrest2shp/internal/geo"
	"github.com/tayerthiaggo/arcrest2shp/internal/layer"
	"github.com/tayerthiaggo/arcrest2shp/internal/model"
)

// FetchStep downloads the leaf page.
type FetchStep struct {
	fetcher crawler.PageFetcher
}

// NewFetchStep creates a fetch step. *crawler.Fetcher satisfies the
// interface, so leaves get the same retry policy as the crawl.
func NewFetchStep(fetcher crawler.PageFetcher) *FetchStep {
	return &FetchStep{fetcher: fetcher}
}

// Name returns the step name.
func (s *FetchStep) Name() string {
	return "fetch"
}

// Do executes the fetch step.
func (s *FetchStep) Do(ctx context.Context, report *model.LayerReport) error {
	page, err := s.fetcher.Fetch(ctx, report.URL)
	if err != nil {
		return err
	}
	if !page.IsHTML() {
		return Skip("not an HTML page")
	}
	report.Page = page
	return nil
}

// ClassifyStep turns the page into a layer descriptor.
type ClassifyStep struct {
	classifier *layer.Classifier
}

// NewClassifyStep creates a classify step.
func NewClassifyStep(c *layer.Classifier) *ClassifyStep {
	return &ClassifyStep{classifier: c}
}

// Name returns the step name.
func (s *ClassifyStep) Name() string {
	return "classify"
}

// Do executes the classify step. Folder and service pages are skipped;
// layer pages that miss a required field fail.
func (s *ClassifyStep) Do(_ context.Context, report *model.LayerReport) error {
	if report.Page == nil {
		return errors.New("no page to classify")
	}
	l, err := s.classifier.Classify(report.Page)
	if err != nil {
		return err
	}
	if l.Kind == model.KindUnknown {
		return Skip("not a layer page")
	}
	report.Layer = l
	return nil
}

// NegotiateStep computes the query envelope for vectors and tests the
// declared extent of rasters against the AOI.
type NegotiateStep struct {
	aoi *geo.AOI
}

// NewNegotiateStep creates a negotiate step.
func NewNegotiateStep(aoi *geo.AOI) *NegotiateStep {
	return &NegotiateStep{aoi: aoi}
}

// Name returns the step name.
func (s *NegotiateStep) Name() string {
	return "negotiate"
}

// Do executes the negotiate step.
func (s *NegotiateStep) Do(_ context.Context, report *model.LayerReport) error {
	l := report.Layer
	switch l.Kind {
	case model.KindVector:
		b, err := geo.VectorBBox(s.aoi, l.SRID)
		if err != nil {
			return err
		}
		ext := geo.BoundExtent(b)
		report.BBox = &ext
	case model.KindRaster:
		if l.Extent == nil {
			return &layer.TemplateError{URL: l.URL, Field: "Extent", Err: layer.ErrExtentNotFound}
		}
		ok, err := geo.RasterIntersects(s.aoi, l.SRID, *l.Extent)
		if err != nil {
			return err
		}
		if !ok {
			return Skip("outside area of interest")
		}
	}
	return nil
}

// Reserver hands out collision-free output paths.
// *inventory.Inventory satisfies it.
type Reserver interface {
	Reserve(name string) (geojsonPath, shpPath string, err error)
}

// DownloadStep converts a vector layer to GeoJSON.
type DownloadStep struct {
	converter convert.Converter
	outputs   Reserver
	logger    *slog.Logger
}

// NewDownloadStep creates a download step.
func NewDownloadStep(c convert.Converter, outputs Reserver, logger *slog.Logger) *DownloadStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &DownloadStep{converter: c, outputs: outputs, logger: logger}
}

// Name returns the step name.
func (s *DownloadStep) Name() string {
	return "download"
}

// Do executes the download step. Rasters pass through. A converter failure
// is kept in report.ConvertErr and does not end the leaf.
func (s *DownloadStep) Do(ctx context.Context, report *model.LayerReport) error {
	l := report.Layer
	if l.Kind != model.KindVector {
		return nil
	}

	geojsonPath, shpPath, err := s.outputs.Reserve(l.Name)
	if err != nil {
		return err
	}
	report.GeoJSONPath = geojsonPath
	report.ShapePath = shpPath

	req := convert.Request{
		URL:     l.URL,
		BBox:    geo.ExtentBound(*report.BBox),
		SRID:    l.SRID,
		OutPath: geojsonPath,
	}
	s.logger.Info("downloading layer", "name", l.Name, "url", l.URL, "srid", l.SRID)
	err = s.converter.Convert(ctx, req)
	if err == nil || ctx.Err() != nil {
		return err
	}
	s.logger.Warn("converter failed", "name", l.Name, "url", l.URL, "error", err)
	report.ConvertErr = err
	return nil
}

// ClipStep clips the downloaded GeoJSON to the AOI and writes a shapefile.
type ClipStep struct {
	aoi *geo.AOI
}

// NewClipStep creates a clip step.
func NewClipStep(aoi *geo.AOI) *ClipStep {
	return &ClipStep{aoi: aoi}
}

// Name returns the step name.
func (s *ClipStep) Name() string {
	return "clip"
}

// Do executes the clip step. A missing or empty download, or a clip with
// no features left, skips the layer.
func (s *ClipStep) Do(_ context.Context, report *model.LayerReport) error {
	if report.Layer.Kind != model.KindVector {
		return nil
	}

	info, err := os.Stat(report.GeoJSONPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Skip("converter produced no output")
		}
		return err
	}
	if info.Size() == 0 {
		return Skip("converter produced no output")
	}

	fc, srid, err := geo.ReadGeoJSON(report.GeoJSONPath)
	if err != nil {
		return err
	}
	if len(fc.Features) == 0 {
		return Skip("no features in bounding box")
	}

	clipped, err := geo.Clip(fc, srid, s.aoi)
	if err != nil {
		return err
	}
	if len(clipped.Features) == 0 {
		return Skip("no features inside area of interest")
	}

	n, err := geo.WriteShapefile(report.ShapePath, clipped, s.aoi.PRJ)
	if errors.Is(err, geo.ErrNoFeatures) {
		return Skip("no writable features inside area of interest")
	}
	if err != nil {
		return err
	}
	report.Features = n
	return nil
}

// Recorder stores an inventory row.
type Recorder interface {
	RecordLayer(ctx context.Context, kind model.LayerKind, row model.InventoryRow) error
}

// RecordStep writes the inventory row and marks the leaf extracted.
type RecordStep struct {
	recorder Recorder
	now      func() time.Time
}

// NewRecordStep creates a record step. now defaults to time.Now.
func NewRecordStep(r Recorder, now func() time.Time) *RecordStep {
	if now == nil {
		now = time.Now
	}
	return &RecordStep{recorder: r, now: now}
}

// Name returns the step name.
func (s *RecordStep) Name() string {
	return "record"
}

// Do executes the record step.
func (s *RecordStep) Do(ctx context.Context, report *model.LayerReport) error {
	l := report.Layer
	row := model.InventoryRow{
		Source:         l.Source(),
		Name:           l.Name,
		GeometryType:   l.GeometryType,
		Description:    l.Description,
		URL:            l.URL,
		ExtractionDate: s.now(),
		OutPath:        model.NoOutputPath,
	}
	if l.Kind == model.KindVector {
		row.OutPath = report.ShapePath
		// A name collision reserves a suffixed stem; the row carries it.
		if report.ShapePath != "" {
			row.Name = strings.TrimSuffix(filepath.Base(report.ShapePath), filepath.Ext(report.ShapePath))
			row.Source = model.SourceOf(row.Name)
		}
	}

	if err := s.recorder.RecordLayer(ctx, l.Kind, row); err != nil {
		return fmt.Errorf("failed to record layer: %w", err)
	}
	report.Row = &row
	report.Outcome = model.OutcomeExtracted
	return nil
}

// Steps returns the standard leaf pipeline.
func Steps(fetcher crawler.PageFetcher, classifier *layer.Classifier, aoi *geo.AOI,
	converter convert.Converter, outputs Reserver, recorder Recorder, logger *slog.Logger,
) []Step {
	return []Step{
		NewFetchStep(fetcher),
		NewClassifyStep(classifier),
		NewNegotiateStep(aoi),
		NewDownloadStep(converter, outputs, logger),
		NewClipStep(aoi),
		NewRecordStep(recorder, nil),
	}
}
