package boundary

import "github.com/paulmach/orb"

// PointInRing runs an even-odd ray cast from (lat, lng) towards +lng.
// Comparisons are strict, so points exactly on an edge or vertex may fall
// either way. Rings with fewer than three vertices contain nothing.
func PointInRing(lat, lng float64, r orb.Ring) bool {
	n := len(r)
	if n < 3 {
		return false
	}

	inside := false
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		xi, yi := r[i][0], r[i][1]
		xj, yj := r[j][0], r[j][1]
		if (yi > lat) != (yj > lat) && lng < (xj-xi)*(lat-yi)/(yj-yi)+xi {
			inside = !inside
		}
	}
	return inside
}

// PointInPolygon tests the outer ring only; holes are ignored.
func PointInPolygon(lat, lng float64, p orb.Polygon) bool {
	if len(p) == 0 {
		return false
	}
	return PointInRing(lat, lng, p[0])
}

// PointInMultiPolygon reports whether any member polygon contains the point.
func PointInMultiPolygon(lat, lng float64, mp orb.MultiPolygon) bool {
	for _, p := range mp {
		if PointInPolygon(lat, lng, p) {
			return true
		}
	}
	return false
}

// Contains dispatches on the boundary geometry type. Anything that is not a
// Polygon or MultiPolygon contains no points.
func Contains(g orb.Geometry, lat, lng float64) bool {
	switch g := g.(type) {
	case orb.Polygon:
		return PointInPolygon(lat, lng, g)
	case orb.MultiPolygon:
		return PointInMultiPolygon(lat, lng, g)
	default:
		return false
	}
}
