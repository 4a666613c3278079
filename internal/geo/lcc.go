package geo

import (
	"math"

	"github.com/paulmach/orb"
)

// ellipsoid is defined by its semi-major axis and flattening.
type ellipsoid struct {
	a float64
	f float64
}

var grs80 = ellipsoid{a: 6378137, f: 1 / 298.257222101}

// lambertParams are the defining parameters of a two standard parallel
// Lambert conformal conic, in degrees and metres.
type lambertParams struct {
	ellps      ellipsoid
	lat1, lat2 float64
	lat0, lon0 float64
	x0, y0     float64
}

// lambertConformal is the ellipsoidal Lambert conformal conic (Snyder,
// Map Projections: A Working Manual, 15-1 to 15-11).
type lambertConformal struct {
	a, e   float64
	lon0   float64
	n, f   float64
	rho0   float64
	x0, y0 float64
}

func newLambertConformal(p lambertParams) *lambertConformal {
	e := math.Sqrt(p.ellps.f * (2 - p.ellps.f))
	lat1, lat2 := p.lat1*degree, p.lat2*degree

	m1, m2 := lccM(lat1, e), lccM(lat2, e)
	t1, t2 := lccT(lat1, e), lccT(lat2, e)

	n := math.Sin(lat1)
	if math.Abs(lat1-lat2) > 1e-10 {
		n = (math.Log(m1) - math.Log(m2)) / (math.Log(t1) - math.Log(t2))
	}
	f := m1 / (n * math.Pow(t1, n))

	return &lambertConformal{
		a:    p.ellps.a,
		e:    e,
		lon0: p.lon0 * degree,
		n:    n,
		f:    f,
		rho0: p.ellps.a * f * math.Pow(lccT(p.lat0*degree, e), n),
		x0:   p.x0,
		y0:   p.y0,
	}
}

func lccM(phi, e float64) float64 {
	s := e * math.Sin(phi)
	return math.Cos(phi) / math.Sqrt(1-s*s)
}

func lccT(phi, e float64) float64 {
	s := e * math.Sin(phi)
	return math.Tan(math.Pi/4-phi/2) / math.Pow((1-s)/(1+s), e/2)
}

func (l *lambertConformal) forward(p orb.Point) (orb.Point, error) {
	rho := l.a * l.f * math.Pow(lccT(p[1]*degree, l.e), l.n)
	theta := l.n * (p[0]*degree - l.lon0)
	return orb.Point{
		l.x0 + rho*math.Sin(theta),
		l.y0 + l.rho0 - rho*math.Cos(theta),
	}, nil
}

func (l *lambertConformal) inverse(p orb.Point) (orb.Point, error) {
	dx := p[0] - l.x0
	dy := l.rho0 - (p[1] - l.y0)
	sign := 1.0
	if l.n < 0 {
		sign = -1
	}
	rho := sign * math.Hypot(dx, dy)
	theta := math.Atan2(sign*dx, sign*dy)

	t := math.Pow(rho/(l.a*l.f), 1/l.n)
	phi := math.Pi/2 - 2*math.Atan(t)
	for range 15 {
		s := l.e * math.Sin(phi)
		next := math.Pi/2 - 2*math.Atan(t*math.Pow((1-s)/(1+s), l.e/2))
		if math.Abs(next-phi) < 1e-12 {
			phi = next
			break
		}
		phi = next
	}

	return orb.Point{(theta/l.n + l.lon0) / degree, phi / degree}, nil
}
