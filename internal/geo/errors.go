package geo

import "errors"

var (
	// ErrUnsupportedSRID is returned for spatial references without a
	// registered projection.
	ErrUnsupportedSRID = errors.New("unsupported spatial reference")

	// ErrEmptyAOI is returned when the area of interest has no polygons.
	ErrEmptyAOI = errors.New("area of interest contains no polygons")

	// ErrUnsupportedFormat is returned for AOI files that are neither
	// GeoJSON nor ESRI Shapefile.
	ErrUnsupportedFormat = errors.New("unsupported file format")

	// ErrUnknownProjection is returned when a .prj file names no known SRID.
	ErrUnknownProjection = errors.New("cannot determine spatial reference from projection file")

	// ErrNoFeatures is returned by WriteShapefile when nothing can be written.
	ErrNoFeatures = errors.New("no writable features")
)
