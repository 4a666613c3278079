package model

import "time"

// Outcome is the final state of one leaf URL.
type Outcome int

const (
	// OutcomeSkipped means the page was not a layer, or nothing intersected the AOI.
	OutcomeSkipped Outcome = iota

	// OutcomeExtracted means an inventory row was written.
	OutcomeExtracted

	// OutcomeFailed means an error was recorded in the error log.
	OutcomeFailed
)

// String returns a human-readable outcome name.
func (o Outcome) String() string {
	switch o {
	case OutcomeExtracted:
		return "extracted"
	case OutcomeFailed:
		return "failed"
	default:
		return "skipped"
	}
}

// LayerReport is the result of running the per-leaf pipeline on one URL.
type LayerReport struct {
	// URL is the leaf URL.
	URL string `json:"url"`

	// Page is the fetched leaf page. It is only held while the leaf is
	// being processed.
	Page *Page `json:"-"`

	// Layer is the classified descriptor. Nil when the page could not be
	// fetched or did not match the layer template.
	Layer *Layer `json:"layer,omitempty"`

	// BBox is the AOI envelope in the layer's spatial reference, for vectors.
	BBox *Extent `json:"bbox,omitempty"`

	// GeoJSONPath is the downloaded interchange file, if any.
	GeoJSONPath string `json:"geojson_path,omitempty"`

	// ShapePath is the clipped shapefile, if any.
	ShapePath string `json:"shape_path,omitempty"`

	// Features is the number of features written to ShapePath.
	Features int `json:"features,omitempty"`

	// Row is the inventory row written for this layer, if any.
	Row *InventoryRow `json:"row,omitempty"`

	// Outcome is the final state.
	Outcome Outcome `json:"outcome"`

	// Reason explains a skip.
	Reason string `json:"reason,omitempty"`

	// Err is the failure, when Outcome is OutcomeFailed.
	Err error `json:"-"`

	// ConvertErr is a converter failure. Whatever partial output the
	// converter left is still clipped, so any Outcome can carry it.
	ConvertErr error `json:"-"`

	// Duration is the wall time spent on this leaf.
	Duration time.Duration `json:"duration"`
}

// NewLayerReport creates an empty report for url.
func NewLayerReport(url string) *LayerReport {
	return &LayerReport{URL: url, Outcome: OutcomeSkipped}
}

// Kind returns the layer kind, or KindUnknown when no layer was classified.
func (r *LayerReport) Kind() LayerKind {
	if r.Layer == nil {
		return KindUnknown
	}
	return r.Layer.Kind
}

// RunSummary aggregates one run.
type RunSummary struct {
	ID         string    `json:"id"`
	RootURL    string    `json:"root_url"`
	AOIPath    string    `json:"aoi_path"`
	OutputDir  string    `json:"output_dir"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	// Discovered is the number of distinct URLs visited by the crawler.
	Discovered int `json:"discovered"`

	// Unresolved is the number of URLs whose links could not be determined.
	Unresolved int `json:"unresolved"`

	// Leaves is the number of URLs handed to the worker pool.
	Leaves int `json:"leaves"`

	Vector  int `json:"vector"`
	Raster  int `json:"raster"`
	Skipped int `json:"skipped"`
	Errors  int `json:"errors"`

	// Removed is the number of orphan GeoJSON files deleted by cleanup.
	Removed int `json:"removed"`

	// Interrupted is set when the run stopped before every leaf finished.
	Interrupted bool `json:"interrupted,omitempty"`
}

// Extracted returns the number of inventory rows written.
func (s *RunSummary) Extracted() int {
	return s.Vector + s.Raster
}

// Duration returns the wall time of the run.
func (s *RunSummary) Duration() time.Duration {
	if s.FinishedAt.IsZero() {
		return 0
	}
	return s.FinishedAt.Sub(s.StartedAt)
}

// Add folds one layer report into the counts.
func (s *RunSummary) Add(r *LayerReport) {
	switch r.Outcome {
	case OutcomeExtracted:
		switch r.Kind() {
		case KindVector:
			s.Vector++
		case KindRaster:
			s.Raster++
		}
	case OutcomeFailed:
		s.Errors++
		return
	default:
		if r.ConvertErr == nil {
			s.Skipped++
		}
	}
	if r.ConvertErr != nil {
		s.Errors++
	}
}

// Logged reports whether the leaf gets an error log entry.
func (r *LayerReport) Logged() bool {
	return r.Outcome == OutcomeFailed || r.ConvertErr != nil
}
