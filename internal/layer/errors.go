package layer

import (
	"errors"
	"fmt"
)

var (
	// ErrNameNotFound is returned when a layer page has no usable "Name:" field.
	ErrNameNotFound = errors.New("layer name not found")

	// ErrSpatialReferenceNotFound is returned when no "Spatial Reference: <digits>"
	// text exists on a layer page.
	ErrSpatialReferenceNotFound = errors.New("spatial reference not found")

	// ErrExtentNotFound is returned when a raster page lacks one of
	// XMin, YMin, XMax or YMax.
	ErrExtentNotFound = errors.New("extent not found")

	// ErrUnknownNameStrategy is returned by StrategyByName for unknown names.
	ErrUnknownNameStrategy = errors.New("unknown name strategy")
)

// TemplateError reports a layer page that does not match the expected
// markup. It is fatal for that layer only.
type TemplateError struct {
	URL   string
	Field string
	Err   error
}

// Error implements error.
func (e *TemplateError) Error() string {
	return fmt.Sprintf("%s: template mismatch in %s: %v", e.URL, e.Field, e.Err)
}

// Unwrap returns the underlying sentinel.
func (e *TemplateError) Unwrap() error {
	return e.Err
}
