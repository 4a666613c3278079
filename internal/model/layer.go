package model

import "strings"

// LayerKind classifies a leaf page.
type LayerKind int

const (
	// KindUnknown marks a page that is not a layer description,
	// typically a folder or service listing.
	KindUnknown LayerKind = iota

	// KindVector marks a feature layer with an esriGeometry type.
	KindVector

	// KindRaster marks an image or raster layer.
	KindRaster
)

// String returns the lower-case kind name used in file names and logs.
func (k LayerKind) String() string {
	switch k {
	case KindVector:
		return "vector"
	case KindRaster:
		return "raster"
	default:
		return "unknown"
	}
}

// Extent is an axis-aligned rectangle declared on a layer page,
// in the layer's spatial reference.
type Extent struct {
	XMin float64 `json:"xmin"`
	YMin float64 `json:"ymin"`
	XMax float64 `json:"xmax"`
	YMax float64 `json:"ymax"`
}

// Valid reports whether the rectangle has non-negative width and height.
func (e Extent) Valid() bool {
	return e.XMin <= e.XMax && e.YMin <= e.YMax
}

// Layer describes a leaf page. It is derived fresh for every fetch and
// never cached.
type Layer struct {
	// URL is the layer page URL.
	URL string `json:"url"`

	// Kind is the classification result.
	Kind LayerKind `json:"kind"`

	// Name is the sanitized layer name, safe for file names and CSV cells.
	Name string `json:"name"`

	// SRID is the layer's native spatial reference identifier.
	SRID int `json:"srid"`

	// GeometryType is the raw "Geometry Type:" value, e.g. esriGeometryPolygon.
	// Empty for rasters.
	GeometryType string `json:"geometry_type,omitempty"`

	// Description is the raw "Description:" value.
	Description string `json:"description,omitempty"`

	// Extent is the declared extent. Only rasters require it.
	Extent *Extent `json:"extent,omitempty"`
}

// Source returns the first underscore-separated token of the name. For
// coded layers this is the agency code, e.g. "DBCA011" for "DBCA011_Parks".
func (l *Layer) Source() string {
	return SourceOf(l.Name)
}

// SourceOf returns the first underscore-separated token of name.
func SourceOf(name string) string {
	source, _, _ := strings.Cut(name, "_")
	return source
}
