package geo

import (
	"github.com/paulmach/orb"

	"github.com/tayerthiaggo/arcrest2shp/internal/model"
)

// VectorBBox reprojects the AOI into srid and returns its envelope, the
// query rectangle for a vector layer stored in srid.
func VectorBBox(aoi *AOI, srid int) (orb.Bound, error) {
	mp, err := aoi.In(srid)
	if err != nil {
		return orb.Bound{}, err
	}
	if len(mp) == 0 {
		return orb.Bound{}, ErrEmptyAOI
	}
	return mp.Bound(), nil
}

// RasterIntersects reports whether a raster's declared extent, given in
// srid, overlaps the envelope of any AOI polygon reprojected into srid.
// Only envelopes are compared, never the polygon boundaries.
func RasterIntersects(aoi *AOI, srid int, extent model.Extent) (bool, error) {
	mp, err := aoi.In(srid)
	if err != nil {
		return false, err
	}
	r := ExtentBound(extent)
	for _, p := range mp {
		if p.Bound().Intersects(r) {
			return true, nil
		}
	}
	return false, nil
}

// ExtentBound converts a declared extent to an orb.Bound.
func ExtentBound(e model.Extent) orb.Bound {
	return orb.Bound{
		Min: orb.Point{e.XMin, e.YMin},
		Max: orb.Point{e.XMax, e.YMax},
	}
}

// BoundExtent converts an orb.Bound to a model.Extent.
func BoundExtent(b orb.Bound) model.Extent {
	return model.Extent{XMin: b.Min[0], YMin: b.Min[1], XMax: b.Max[0], YMax: b.Max[1]}
}
