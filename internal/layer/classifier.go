package layer

import (
	"bytes"
	"fmt"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/tayerthiaggo/arcrest2shp/internal/model"
)

const (
	vectorMarker = "esriGeometry"
	rasterMarker = "Raster"
)

// Classifier turns fetched pages into layer descriptors.
type Classifier struct {
	names  NameStrategy
	logger *slog.Logger
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithNameStrategy replaces the default BracketCode strategy.
func WithNameStrategy(s NameStrategy) Option {
	return func(c *Classifier) {
		c.names = s
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Classifier) {
		c.logger = logger
	}
}

// NewClassifier creates a Classifier.
func NewClassifier(opts ...Option) *Classifier {
	c := &Classifier{
		names:  BracketCode{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Kind classifies a parsed page. A vector geometry marker wins over any
// raster "Type:" value on the same page.
func Kind(doc *goquery.Document) model.LayerKind {
	for _, v := range labelValues(doc, "Geometry Type:") {
		if strings.Contains(v, vectorMarker) {
			return model.KindVector
		}
	}
	for _, v := range labelValues(doc, "Type:") {
		if strings.Contains(v, rasterMarker) {
			return model.KindRaster
		}
	}
	return model.KindUnknown
}

// Classify parses page and returns its descriptor. Unknown pages return a
// descriptor with KindUnknown and no error. Vector and raster pages that
// lack a name or spatial reference, and rasters without a full extent,
// return a *TemplateError.
func (c *Classifier) Classify(page *model.Page) (*model.Layer, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page.Body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", page.URL, err)
	}

	l := &model.Layer{URL: page.URL, Kind: Kind(doc)}
	if l.Kind == model.KindUnknown {
		return l, nil
	}

	name, err := c.names.LayerName(doc)
	if err != nil {
		return nil, &TemplateError{URL: page.URL, Field: "Name", Err: err}
	}
	l.Name = name

	srid, err := SpatialReference(doc)
	if err != nil {
		return nil, &TemplateError{URL: page.URL, Field: "Spatial Reference", Err: err}
	}
	l.SRID = srid

	l.GeometryType, _ = fieldValue(doc, "Geometry Type:")
	l.Description, _ = fieldValue(doc, "Description:")

	if l.Kind == model.KindRaster {
		ext, err := DeclaredExtent(doc)
		if err != nil {
			return nil, &TemplateError{URL: page.URL, Field: "Extent", Err: err}
		}
		l.Extent = &ext
	} else if ext, err := DeclaredExtent(doc); err == nil {
		l.Extent = &ext
	}

	c.logger.Debug("classified layer", "url", page.URL, "kind", l.Kind.String(), "name", l.Name, "srid", l.SRID)
	return l, nil
}
