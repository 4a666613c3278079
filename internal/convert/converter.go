package convert

import (
	"context"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
)

// Request describes one layer download.
type Request struct {
	// URL is the layer page, e.g. .../MapServer/3.
	URL string

	// BBox is the query envelope in SRID.
	BBox orb.Bound

	// SRID is the spatial reference of BBox, normally the layer's own.
	SRID int

	// OutPath is the GeoJSON file to write.
	OutPath string
}

// Converter downloads a layer's features inside a bounding box.
type Converter interface {
	Convert(ctx context.Context, req Request) error
}

// Func adapts a function to Converter.
type Func func(ctx context.Context, req Request) error

// Convert calls f.
func (f Func) Convert(ctx context.Context, req Request) error {
	return f(ctx, req)
}

// envelope formats b as "minx,miny,maxx,maxy".
func envelope(b orb.Bound) string {
	parts := []string{
		strconv.FormatFloat(b.Min[0], 'f', -1, 64),
		strconv.FormatFloat(b.Min[1], 'f', -1, 64),
		strconv.FormatFloat(b.Max[0], 'f', -1, 64),
		strconv.FormatFloat(b.Max[1], 'f', -1, 64),
	}
	return strings.Join(parts, ",")
}
