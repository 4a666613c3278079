package geo

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/jonas-p/go-shp"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
)

// AOI is the caller's area of interest. The source polygons are never
// modified; reprojected copies are cached per SRID.
type AOI struct {
	// Path is the file the AOI was read from, empty for in-memory AOIs.
	Path string

	// SRID is the native spatial reference of Polygons.
	SRID int

	// Polygons is the boundary in SRID.
	Polygons orb.MultiPolygon

	// PRJ is the projection WKT to write next to exported shapefiles.
	PRJ string

	mu        sync.Mutex
	projected map[int]orb.MultiPolygon
}

// NewAOI builds an AOI from polygons already in srid.
func NewAOI(polygons orb.MultiPolygon, srid int) (*AOI, error) {
	if len(polygons) == 0 {
		return nil, ErrEmptyAOI
	}
	if _, err := Lookup(srid); err != nil {
		return nil, err
	}
	aoi := &AOI{
		SRID:      srid,
		Polygons:  polygons,
		projected: make(map[int]orb.MultiPolygon),
	}
	if srid == 4326 {
		aoi.PRJ = wgs84WKT
	}
	return aoi, nil
}

// LoadAOI reads a GeoJSON (.geojson, .json) or ESRI Shapefile (.shp) area
// of interest. A non-zero srid overrides whatever the file declares.
func LoadAOI(path string, srid int) (*AOI, error) {
	var (
		polys    orb.MultiPolygon
		declared int
		prj      string
		err      error
	)

	switch strings.ToLower(filepath.Ext(path)) {
	case ".geojson", ".json":
		polys, declared, err = readGeoJSONAOI(path)
	case ".shp":
		polys, declared, prj, err = readShapefileAOI(path)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read area of interest %s: %w", path, err)
	}

	if srid == 0 {
		srid = declared
	}
	if srid == 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProjection, path)
	}

	aoi, err := NewAOI(polys, srid)
	if err != nil {
		return nil, err
	}
	aoi.Path = path
	if prj != "" && srid == declared {
		aoi.PRJ = prj
	}
	return aoi, nil
}

// In returns the AOI polygons reprojected into srid.
func (a *AOI) In(srid int) (orb.MultiPolygon, error) {
	if srid == a.SRID {
		return a.Polygons, nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if mp, ok := a.projected[srid]; ok {
		return mp, nil
	}
	g, err := Transform(a.Polygons, a.SRID, srid)
	if err != nil {
		return nil, err
	}
	mp := g.(orb.MultiPolygon)
	if a.projected == nil {
		a.projected = make(map[int]orb.MultiPolygon)
	}
	a.projected[srid] = mp
	return mp, nil
}

// Bound returns the AOI envelope in its native SRID.
func (a *AOI) Bound() orb.Bound {
	return a.Polygons.Bound()
}

func readGeoJSONAOI(path string) (orb.MultiPolygon, int, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is user input by intent
	if err != nil {
		return nil, 0, err
	}

	var geoms []orb.Geometry
	if fc, err := geojson.UnmarshalFeatureCollection(data); err == nil && len(fc.Features) > 0 {
		for _, f := range fc.Features {
			geoms = append(geoms, f.Geometry)
		}
	} else if f, err := geojson.UnmarshalFeature(data); err == nil && f.Geometry != nil {
		geoms = append(geoms, f.Geometry)
	} else if g, err := geojson.UnmarshalGeometry(data); err == nil {
		geoms = append(geoms, g.Geometry())
	} else {
		return nil, 0, fmt.Errorf("%w: not a GeoJSON document", ErrUnsupportedFormat)
	}

	var polys orb.MultiPolygon
	for _, g := range geoms {
		polys = appendPolygons(polys, g)
	}

	srid, err := declaredGeoJSONSRID(data)
	if err != nil {
		return nil, 0, err
	}
	return polys, srid, nil
}

// appendPolygons flattens the polygonal parts of g into dst.
func appendPolygons(dst orb.MultiPolygon, g orb.Geometry) orb.MultiPolygon {
	switch v := g.(type) {
	case orb.Polygon:
		return append(dst, v)
	case orb.MultiPolygon:
		return append(dst, v...)
	case orb.Collection:
		for _, c := range v {
			dst = appendPolygons(dst, c)
		}
	case orb.Bound:
		return append(dst, v.ToPolygon())
	}
	return dst
}

// declaredGeoJSONSRID reads the legacy "crs" member. RFC 7946 documents
// are WGS84 and carry none.
func declaredGeoJSONSRID(data []byte) (int, error) {
	var doc struct {
		CRS *struct {
			Properties struct {
				Name string `json:"name"`
			} `json:"properties"`
		} `json:"crs"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return 0, err
	}
	if doc.CRS == nil || doc.CRS.Properties.Name == "" {
		return 4326, nil
	}
	return parseCRSName(doc.CRS.Properties.Name)
}

var crsNameCode = regexp.MustCompile(`(?i)EPSG:+(?:[\d.]*:)?(\d+)$`)

// parseCRSName understands "EPSG:28350", "urn:ogc:def:crs:EPSG::28350"
// and the OGC CRS84 URN.
func parseCRSName(name string) (int, error) {
	if strings.HasSuffix(strings.ToUpper(name), "CRS84") {
		return 4326, nil
	}
	m := crsNameCode.FindStringSubmatch(strings.TrimSpace(name))
	if m == nil {
		return 0, fmt.Errorf("%w: %q", ErrUnknownProjection, name)
	}
	return strconv.Atoi(m[1])
}

func readShapefileAOI(path string) (orb.MultiPolygon, int, string, error) {
	r, err := shp.Open(path)
	if err != nil {
		return nil, 0, "", err
	}
	defer func() { _ = r.Close() }()

	var polys orb.MultiPolygon
	for r.Next() {
		_, s := r.Shape()
		switch p := s.(type) {
		case *shp.Polygon:
			polys = append(polys, shapeRings(p.Parts, p.Points)...)
		case *shp.PolygonZ:
			polys = append(polys, shapeRings(p.Parts, p.Points)...)
		case *shp.PolygonM:
			polys = append(polys, shapeRings(p.Parts, p.Points)...)
		}
	}
	if err := r.Err(); err != nil {
		return nil, 0, "", err
	}

	prjPath := strings.TrimSuffix(path, filepath.Ext(path)) + ".prj"
	data, err := os.ReadFile(prjPath) //nolint:gosec // sibling of the user's AOI
	if err != nil {
		if os.IsNotExist(err) {
			return polys, 0, "", nil
		}
		return nil, 0, "", err
	}
	prj := strings.TrimSpace(string(data))
	srid, err := SRIDFromWKT(prj)
	if err != nil {
		return nil, 0, "", err
	}
	return polys, srid, prj, nil
}

// shapeRings groups shapefile parts into polygons. Clockwise rings are
// outer boundaries; counter-clockwise rings are holes of the outer ring
// that contains them.
func shapeRings(parts []int32, points []shp.Point) []orb.Polygon {
	var (
		polys []orb.Polygon
		holes []orb.Ring
	)
	for i, start := range parts {
		end := len(points)
		if i+1 < len(parts) {
			end = int(parts[i+1])
		}
		if int(start) >= end || end > len(points) {
			continue
		}
		ring := make(orb.Ring, 0, end-int(start))
		for _, pt := range points[start:end] {
			ring = append(ring, orb.Point{pt.X, pt.Y})
		}
		switch ring.Orientation() {
		case orb.CW:
			ring.Reverse()
			polys = append(polys, orb.Polygon{ring})
		case orb.CCW:
			holes = append(holes, ring)
		}
	}

	for _, h := range holes {
		h.Reverse()
		placed := false
		for i := range polys {
			if planar.RingContains(polys[i][0], h[0]) {
				polys[i] = append(polys[i], h)
				placed = true
				break
			}
		}
		if !placed {
			h.Reverse()
			polys = append(polys, orb.Polygon{h})
		}
	}
	return polys
}
