package geo

import (
	"fmt"
	"os"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/clip"
	"github.com/paulmach/orb/encoding/wkb"
	"github.com/paulmach/orb/geojson"
	"github.com/peterstace/simplefeatures/geom"
)

// ReadGeoJSON loads a feature collection and the SRID it declares,
// 4326 when the document carries no legacy crs member.
func ReadGeoJSON(path string) (*geojson.FeatureCollection, int, error) {
	data, err := os.ReadFile(path) //nolint:gosec // converter output path
	if err != nil {
		return nil, 0, err
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	srid, err := declaredGeoJSONSRID(data)
	if err != nil {
		return nil, 0, err
	}
	return fc, srid, nil
}

// Clip reprojects fc from srid into the AOI's spatial reference and cuts
// each geometry to the AOI polygons. Pieces of a lower dimension than the
// input, such as the shared edge of two touching polygons, are dropped.
// Features whose geometry cannot be overlaid are cut to the AOI envelope
// instead. Properties are shared with the input; geometries are not. An
// empty result is not an error.
func Clip(fc *geojson.FeatureCollection, srid int, aoi *AOI) (*geojson.FeatureCollection, error) {
	out := geojson.NewFeatureCollection()
	bound := aoi.Bound()

	mask, err := newClipMask(aoi.Polygons)
	if err != nil {
		return nil, err
	}

	for _, f := range fc.Features {
		if f == nil || f.Geometry == nil {
			continue
		}
		g, err := Transform(f.Geometry, srid, aoi.SRID)
		if err != nil {
			return nil, err
		}
		if !g.Bound().Intersects(bound) {
			continue
		}

		piece, err := mask.intersection(g)
		if err != nil {
			piece = clip.Geometry(bound, g)
		}
		if isEmpty(piece) {
			continue
		}

		nf := geojson.NewFeature(piece)
		nf.ID = f.ID
		nf.Properties = f.Properties
		out.Append(nf)
	}
	return out, nil
}

// clipMask is the AOI as simplefeatures geometries. Overlapping AOI
// polygons do not form a valid multipolygon, so they are kept apart.
type clipMask struct {
	parts  []geom.Geometry
	bounds []orb.Bound
}

func newClipMask(mp orb.MultiPolygon) (*clipMask, error) {
	whole, err := toSimple(mp)
	if err == nil {
		return &clipMask{parts: []geom.Geometry{whole}, bounds: []orb.Bound{mp.Bound()}}, nil
	}

	m := &clipMask{}
	for _, p := range mp {
		g, err := toSimple(p)
		if err != nil {
			return nil, fmt.Errorf("invalid area of interest polygon: %w", err)
		}
		m.parts = append(m.parts, g)
		m.bounds = append(m.bounds, p.Bound())
	}
	return m, nil
}

// intersection returns the part of g inside the mask, nil when none is.
func (m *clipMask) intersection(g orb.Geometry) (orb.Geometry, error) {
	sg, err := toSimple(g)
	if err != nil {
		return nil, err
	}

	var result geom.Geometry
	found := false
	for i, part := range m.parts {
		if !m.bounds[i].Intersects(g.Bound()) || !geom.Intersects(sg, part) {
			continue
		}
		piece, err := geom.Intersection(sg, part)
		if err != nil {
			return nil, err
		}
		if piece.IsEmpty() {
			continue
		}
		if !found {
			result, found = piece, true
			continue
		}
		if result, err = geom.Union(result, piece); err != nil {
			return nil, err
		}
	}
	if !found || result.IsEmpty() {
		return nil, nil
	}

	og, err := wkb.Unmarshal(result.AsBinary())
	if err != nil {
		return nil, err
	}
	return keepDimension(og, g.Dimensions()), nil
}

func toSimple(g orb.Geometry) (geom.Geometry, error) {
	data, err := wkb.Marshal(g)
	if err != nil {
		return geom.Geometry{}, err
	}
	return geom.UnmarshalWKB(data)
}

// keepDimension drops the parts of g whose dimension is not dim and
// returns what is left as a single or multi geometry.
func keepDimension(g orb.Geometry, dim int) orb.Geometry {
	c, ok := g.(orb.Collection)
	if !ok {
		if g.Dimensions() != dim {
			return nil
		}
		return g
	}

	var (
		points orb.MultiPoint
		lines  orb.MultiLineString
		polys  orb.MultiPolygon
	)
	for _, part := range c {
		switch v := keepDimension(part, dim).(type) {
		case orb.Point:
			points = append(points, v)
		case orb.MultiPoint:
			points = append(points, v...)
		case orb.LineString:
			lines = append(lines, v)
		case orb.MultiLineString:
			lines = append(lines, v...)
		case orb.Polygon:
			polys = append(polys, v)
		case orb.MultiPolygon:
			polys = append(polys, v...)
		}
	}

	switch {
	case len(polys) == 1:
		return polys[0]
	case len(polys) > 1:
		return polys
	case len(lines) == 1:
		return lines[0]
	case len(lines) > 1:
		return lines
	case len(points) == 1:
		return points[0]
	case len(points) > 1:
		return points
	}
	return nil
}

func isEmpty(g orb.Geometry) bool {
	if g == nil {
		return true
	}
	switch v := g.(type) {
	case orb.MultiPoint:
		return len(v) == 0
	case orb.LineString:
		return len(v) < 2
	case orb.MultiLineString:
		for _, ls := range v {
			if len(ls) >= 2 {
				return false
			}
		}
		return true
	case orb.Polygon:
		return len(v) == 0 || len(v[0]) < 4
	case orb.MultiPolygon:
		for _, p := range v {
			if len(p) > 0 && len(p[0]) >= 4 {
				return false
			}
		}
		return true
	case orb.Collection:
		for _, c := range v {
			if !isEmpty(c) {
				return false
			}
		}
		return true
	}
	return false
}
