// Package crs provides coordinate reference system transformations used to
// bring planar boundary data into WGS84.
package crs

import (
	"math"

	"github.com/wroge/wgs84"
)

// Transformer projects points between a source CRS and WGS84 longitude/latitude.
type Transformer interface {
	// Forward maps source coordinates (x = easting, y = northing for planar
	// systems) to WGS84 (lng, lat) in degrees.
	Forward(x, y float64) (lng, lat float64)
	// Inverse maps WGS84 (lng, lat) back to source coordinates.
	Inverse(lng, lat float64) (x, y float64)
}

// Forward results are refined until Inverse reproduces the input to within
// refineTolerance metres.
const (
	refineTolerance = 1e-4
	maxRefineSteps  = 8
	jacobianStep    = 1e-6 // degrees
)

// Projection is a Transformer backed by a pair of wgs84 transform functions.
type Projection struct {
	name    string
	code    int
	forward wgs84.Func
	inverse wgs84.Func
}

// Name returns the human readable name of the source CRS.
func (p *Projection) Name() string { return p.name }

// EPSG returns the EPSG code of the source CRS.
func (p *Projection) EPSG() int { return p.code }

// Forward implements Transformer. The wgs84 inverse transverse Mercator
// series is only accurate to a few metres, so its estimate is corrected with
// Newton steps against Inverse.
func (p *Projection) Forward(x, y float64) (float64, float64) {
	lng, lat, _ := p.forward(x, y, 0)
	if !Valid(lng, lat) {
		return lng, lat
	}

	for i := 0; i < maxRefineSteps; i++ {
		ex, ey := p.Inverse(lng, lat)
		dx, dy := x-ex, y-ey
		if math.Hypot(dx, dy) < refineTolerance {
			break
		}

		// Numerical Jacobian of Inverse at (lng, lat).
		lx, ly := p.Inverse(lng+jacobianStep, lat)
		px, py := p.Inverse(lng, lat+jacobianStep)
		a, b := (lx-ex)/jacobianStep, (px-ex)/jacobianStep
		c, d := (ly-ey)/jacobianStep, (py-ey)/jacobianStep
		det := a*d - b*c
		if det == 0 || !Valid(det, 0) {
			break
		}

		lng += (d*dx - b*dy) / det
		lat += (a*dy - c*dx) / det
	}
	return lng, lat
}

// Inverse implements Transformer.
func (p *Projection) Inverse(lng, lat float64) (float64, float64) {
	x, y, _ := p.inverse(lng, lat, 0)
	return x, y
}

type spheroid struct {
	a, fi float64
}

func (s spheroid) A() float64 {
	return s.a
}

func (s spheroid) Fi() float64 {
	return s.fi
}

// GRS 1980, the ellipsoid of ETRS89.
var grs80 = spheroid{a: 6378137, fi: 298.257222101}

// EPSG:2180 ETRF2000-PL / CS92
// +proj=tmerc +lat_0=0 +lon_0=19 +k=0.9993 +x_0=500000 +y_0=-5300000 +ellps=GRS80 +units=m +no_defs
func CS92() *Projection {
	datum := wgs84.Datum{
		Spheroid: grs80,
		Area: wgs84.AreaFunc(func(lon, lat float64) bool {
			if lon < 14.14 || lat < 49.0 || lon > 24.15 || lat > 54.84 {
				return false
			}
			return true
		}),
	}
	proj := datum.TransverseMercator(19, 0, 0.9993, 500000, -5300000)
	epsg := wgs84.EPSG()
	epsg.Add(2180, proj)

	return &Projection{
		name:    "ETRF2000-PL / CS92",
		code:    2180,
		forward: wgs84.Transform(epsg.Code(2180), wgs84.WGS84().LonLat()),
		inverse: wgs84.Transform(wgs84.WGS84().LonLat(), epsg.Code(2180)),
	}
}

// WebMercator returns the EPSG:3857 projection (x/y in meters).
func WebMercator() *Projection {
	return &Projection{
		name:    "WGS 84 / Pseudo-Mercator",
		code:    3857,
		forward: wgs84.WebMercator().To(wgs84.LonLat()),
		inverse: wgs84.LonLat().To(wgs84.WebMercator()),
	}
}

// Identity is the no-op transformer for data that is already WGS84.
type Identity struct{}

// Forward implements Transformer.
func (Identity) Forward(x, y float64) (float64, float64) { return x, y }

// Inverse implements Transformer.
func (Identity) Inverse(lng, lat float64) (float64, float64) { return lng, lat }

// ByName resolves a CRS name as accepted on the command line. An empty name
// is not resolved; commands carry their own default.
func ByName(name string) (Transformer, bool) {
	switch name {
	case "EPSG:2180", "2180", "cs92", "CS92":
		return CS92(), true
	case "EPSG:3857", "3857", "webmercator":
		return WebMercator(), true
	case "EPSG:4326", "4326", "wgs84", "WGS84":
		return Identity{}, true
	default:
		return nil, false
	}
}

// Valid reports whether a transformed coordinate pair is usable.
func Valid(a, b float64) bool {
	return !math.IsNaN(a) && !math.IsNaN(b) && !math.IsInf(a, 0) && !math.IsInf(b, 0)
}
