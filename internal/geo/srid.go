package geo

import (
	"fmt"
	"math"
	"sync"

	"github.com/go-spatial/proj"
	"github.com/go-spatial/proj/core"
	"github.com/go-spatial/proj/support"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"
)

// CRS is a registered spatial reference.
type CRS struct {
	SRID int
	Name string

	// Geographic is true for longitude/latitude references.
	Geographic bool

	// projection is nil for geographic references.
	projection projection
}

// projection converts between longitude/latitude degrees and projected
// coordinates.
type projection interface {
	forward(p orb.Point) (orb.Point, error)
	inverse(p orb.Point) (orb.Point, error)
}

// geographicSRIDs share WGS84 longitude/latitude axes for our purposes.
var geographicSRIDs = map[int]string{
	4326: "WGS 84",
	4283: "GDA94",
	7844: "GDA2020",
	4269: "NAD83",
	4258: "ETRS89",
	4167: "NZGD2000",
	4617: "NAD83(CSRS)",
	4171: "RGF93",
	4277: "OSGB36",
}

// webMercatorSRIDs are the spherical Mercator codes used by ArcGIS Online
// and tiled services.
var webMercatorSRIDs = map[int]string{
	3857:   "WGS 84 / Pseudo-Mercator",
	102100: "WGS 1984 Web Mercator Auxiliary Sphere",
	102113: "WGS 1984 Web Mercator",
	900913: "Google Maps Global Mercator",
	3785:   "Popular Visualisation CRS / Mercator",
}

// projectedSRID is a projected reference described by a PROJ string.
type projectedSRID struct {
	name  string
	proj4 string
}

// Datum shifts are not applied; every datum is taken as WGS84.
var projectedSRIDs = map[int]projectedSRID{
	3577:  {"GDA94 / Australian Albers", "+proj=aea +lat_1=-18 +lat_2=-36 +lat_0=0 +lon_0=132 +x_0=0 +y_0=0 +ellps=GRS80"},
	9473:  {"GDA2020 / Australian Albers", "+proj=aea +lat_1=-18 +lat_2=-36 +lat_0=0 +lon_0=132 +x_0=0 +y_0=0 +ellps=GRS80"},
	3005:  {"NAD83 / BC Albers", "+proj=aea +lat_1=50 +lat_2=58.5 +lat_0=45 +lon_0=-126 +x_0=1000000 +y_0=0 +ellps=GRS80"},
	5070:  {"NAD83 / Conus Albers", "+proj=aea +lat_1=29.5 +lat_2=45.5 +lat_0=23 +lon_0=-96 +x_0=0 +y_0=0 +ellps=GRS80"},
	27700: {"OSGB36 / British National Grid", "+proj=etmerc +lat_0=49 +lon_0=-2 +k_0=0.9996012717 +x_0=400000 +y_0=-100000 +ellps=airy"},
	2193:  {"NZGD2000 / New Zealand Transverse Mercator 2000", "+proj=etmerc +lat_0=0 +lon_0=173 +k_0=0.9996 +x_0=1600000 +y_0=10000000 +ellps=GRS80"},
}

// lambertSRIDs are conformal conic references, which the PROJ port does
// not provide.
var lambertSRIDs = map[int]struct {
	name string
	lcc  lambertParams
}{
	3112: {"GDA94 / Geoscience Australia Lambert", lambertParams{grs80, -18, -36, 0, 134, 0, 0}},
	7845: {"GDA2020 / GA LCC", lambertParams{grs80, -18, -36, 0, 134, 0, 0}},
	2154: {"RGF93 / Lambert-93", lambertParams{grs80, 49, 44, 46.5, 3, 700000, 6600000}},
	3347: {"NAD83 / Statistics Canada Lambert", lambertParams{grs80, 49, 77, 63.390675, -91.86666666666666, 6200000, 3000000}},
}

// utmFamily describes a contiguous block of UTM-style SRIDs.
type utmFamily struct {
	base    int // SRID of zone 0
	minZone int
	maxZone int
	ellps   string
	south   bool
	name    string
}

var utmFamilies = []utmFamily{
	{base: 32600, minZone: 1, maxZone: 60, ellps: "WGS84", name: "WGS 84 / UTM zone %dN"},
	{base: 32700, minZone: 1, maxZone: 60, ellps: "WGS84", south: true, name: "WGS 84 / UTM zone %dS"},
	{base: 28300, minZone: 48, maxZone: 58, ellps: "GRS80", south: true, name: "GDA94 / MGA zone %d"},
	{base: 7800, minZone: 46, maxZone: 59, ellps: "GRS80", south: true, name: "GDA2020 / MGA zone %d"},
	{base: 26900, minZone: 1, maxZone: 23, ellps: "GRS80", name: "NAD83 / UTM zone %dN"},
	{base: 25800, minZone: 28, maxZone: 38, ellps: "GRS80", name: "ETRS89 / UTM zone %dN"},
}

// utmProj4 returns the PROJ string of a UTM zone.
func utmProj4(zone int, ellps string, south bool) string {
	falseN := 0
	if south {
		falseN = 10000000
	}
	return fmt.Sprintf("+proj=etmerc +lat_0=0 +lon_0=%d +k_0=0.9996 +x_0=500000 +y_0=%d +ellps=%s",
		zone*6-183, falseN, ellps)
}

var crsCache sync.Map // int -> *CRS

// Lookup returns the CRS registered for srid.
func Lookup(srid int) (*CRS, error) {
	if c, ok := crsCache.Load(srid); ok {
		return c.(*CRS), nil
	}
	c, err := newCRS(srid)
	if err != nil {
		return nil, err
	}
	actual, _ := crsCache.LoadOrStore(srid, c)
	return actual.(*CRS), nil
}

func newCRS(srid int) (*CRS, error) {
	if name, ok := geographicSRIDs[srid]; ok {
		return &CRS{SRID: srid, Name: name, Geographic: true}, nil
	}

	if name, ok := webMercatorSRIDs[srid]; ok {
		return &CRS{SRID: srid, Name: name, projection: webMercator{}}, nil
	}

	if srid == int(proj.EPSG3395) {
		return &CRS{SRID: srid, Name: "WGS 84 / World Mercator", projection: epsgProjection{code: proj.EPSG3395}}, nil
	}

	if def, ok := projectedSRIDs[srid]; ok {
		p, err := newCoreProjection(def.proj4)
		if err != nil {
			return nil, fmt.Errorf("%w: %d: %w", ErrUnsupportedSRID, srid, err)
		}
		return &CRS{SRID: srid, Name: def.name, projection: p}, nil
	}

	if def, ok := lambertSRIDs[srid]; ok {
		return &CRS{SRID: srid, Name: def.name, projection: newLambertConformal(def.lcc)}, nil
	}

	for _, fam := range utmFamilies {
		zone := srid - fam.base
		if zone < fam.minZone || zone > fam.maxZone {
			continue
		}
		p, err := newCoreProjection(utmProj4(zone, fam.ellps, fam.south))
		if err != nil {
			return nil, fmt.Errorf("%w: %d: %w", ErrUnsupportedSRID, srid, err)
		}
		return &CRS{SRID: srid, Name: fmt.Sprintf(fam.name, zone), projection: p}, nil
	}

	return nil, fmt.Errorf("%w: %d", ErrUnsupportedSRID, srid)
}

// toWGS84 maps a point in the CRS to longitude/latitude.
func (c *CRS) toWGS84(p orb.Point) (orb.Point, error) {
	if c.projection == nil {
		return p, nil
	}
	return c.projection.inverse(p)
}

// fromWGS84 maps a longitude/latitude point into the CRS.
func (c *CRS) fromWGS84(p orb.Point) (orb.Point, error) {
	if c.projection == nil {
		return p, nil
	}
	return c.projection.forward(p)
}

// Transform returns a reprojected copy of g. The input is never modified.
func Transform(g orb.Geometry, from, to int) (orb.Geometry, error) {
	if g == nil {
		return nil, nil
	}
	out := orb.Clone(g)
	if from == to {
		return out, nil
	}

	src, err := Lookup(from)
	if err != nil {
		return nil, err
	}
	dst, err := Lookup(to)
	if err != nil {
		return nil, err
	}

	var firstErr error
	out = project.Geometry(out, func(p orb.Point) orb.Point {
		if firstErr != nil {
			return p
		}
		ll, err := src.toWGS84(p)
		if err == nil {
			p, err = dst.fromWGS84(ll)
		}
		if err != nil {
			firstErr = err
		}
		return p
	})
	if firstErr != nil {
		return nil, fmt.Errorf("failed to reproject from %d to %d: %w", from, to, firstErr)
	}
	return out, nil
}

// TransformBound reprojects the corners of b and returns their envelope.
func TransformBound(b orb.Bound, from, to int) (orb.Bound, error) {
	g, err := Transform(b.ToPolygon(), from, to)
	if err != nil {
		return orb.Bound{}, err
	}
	return g.Bound(), nil
}

const degree = math.Pi / 180

// coreProjection runs a PROJ string through the go-spatial PROJ port.
type coreProjection struct {
	op core.IConvertLPToXY
}

func newCoreProjection(proj4 string) (*coreProjection, error) {
	ps, err := support.NewProjString(proj4)
	if err != nil {
		return nil, err
	}
	_, opx, err := core.NewSystem(ps)
	if err != nil {
		return nil, err
	}
	op, ok := opx.(core.IConvertLPToXY)
	if !ok {
		return nil, fmt.Errorf("%q is not a forward projection", proj4)
	}
	return &coreProjection{op: op}, nil
}

func (c *coreProjection) forward(p orb.Point) (orb.Point, error) {
	xy, err := c.op.Forward(&core.CoordLP{Lam: p[0] * degree, Phi: p[1] * degree})
	if err != nil {
		return p, err
	}
	return orb.Point{xy.X, xy.Y}, nil
}

func (c *coreProjection) inverse(p orb.Point) (orb.Point, error) {
	lp, err := c.op.Inverse(&core.CoordXY{X: p[0], Y: p[1]})
	if err != nil {
		return p, err
	}
	return orb.Point{lp.Lam / degree, lp.Phi / degree}, nil
}

// epsgProjection uses a code built into the go-spatial PROJ port.
type epsgProjection struct {
	code proj.EPSGCode
}

func (e epsgProjection) forward(p orb.Point) (orb.Point, error) {
	xy, err := proj.Convert(e.code, []float64{p[0], p[1]})
	if err != nil {
		return p, err
	}
	return orb.Point{xy[0], xy[1]}, nil
}

func (e epsgProjection) inverse(p orb.Point) (orb.Point, error) {
	ll, err := proj.Inverse(e.code, []float64{p[0], p[1]})
	if err != nil {
		return p, err
	}
	return orb.Point{ll[0], ll[1]}, nil
}

// webMercator is the spherical Mercator of orb/project.
type webMercator struct{}

func (webMercator) forward(p orb.Point) (orb.Point, error) {
	return project.WGS84.ToMercator(p), nil
}

func (webMercator) inverse(p orb.Point) (orb.Point, error) {
	return project.Mercator.ToWGS84(p), nil
}
