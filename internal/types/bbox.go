package types

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

// BoundingBox represents a geographic bounding box in WGS84 (EPSG:4326),
// given by its south-west and north-east corners.
type BoundingBox struct {
	SWLat float64 // Southern edge (degrees)
	SWLng float64 // Western edge (degrees)
	NELat float64 // Northern edge (degrees)
	NELng float64 // Eastern edge (degrees)
}

// EmptyBounds returns the sentinel box used as the starting point of a
// min/max scan. A box that is still equal to it after the scan holds no data.
func EmptyBounds() BoundingBox {
	return BoundingBox{
		SWLat: math.Inf(1),
		SWLng: math.Inf(1),
		NELat: math.Inf(-1),
		NELng: math.Inf(-1),
	}
}

// Empty reports whether no coordinate was ever added to the box.
func (b BoundingBox) Empty() bool {
	return b.SWLat > b.NELat || b.SWLng > b.NELng
}

// Extend grows the box so that it contains (lat, lng).
func (b BoundingBox) Extend(lat, lng float64) BoundingBox {
	b.SWLat = math.Min(b.SWLat, lat)
	b.NELat = math.Max(b.NELat, lat)
	b.SWLng = math.Min(b.SWLng, lng)
	b.NELng = math.Max(b.NELng, lng)
	return b
}

// Union returns the smallest box covering both b and o. Empty boxes are ignored.
func (b BoundingBox) Union(o BoundingBox) BoundingBox {
	if o.Empty() {
		return b
	}
	if b.Empty() {
		return o
	}
	return b.Extend(o.SWLat, o.SWLng).Extend(o.NELat, o.NELng)
}

// Validate checks the SW < NE invariant.
func (b BoundingBox) Validate() error {
	for _, v := range []float64{b.SWLat, b.SWLng, b.NELat, b.NELng} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("bounding box has non-finite coordinate: %s", b)
		}
	}
	if b.SWLat >= b.NELat {
		return fmt.Errorf("swLat (%.6f) must be < neLat (%.6f)", b.SWLat, b.NELat)
	}
	if b.SWLng >= b.NELng {
		return fmt.Errorf("swLng (%.6f) must be < neLng (%.6f)", b.SWLng, b.NELng)
	}
	return nil
}

// Degenerate reports whether the box has zero or negative area.
func (b BoundingBox) Degenerate() bool {
	return !(b.NELat > b.SWLat) || !(b.NELng > b.SWLng)
}

// Contains is the rectangle containment check: four inequalities, edges inclusive.
func (b BoundingBox) Contains(lat, lng float64) bool {
	return lat >= b.SWLat && lat <= b.NELat && lng >= b.SWLng && lng <= b.NELng
}

// Bound converts the box to an orb.Bound (Min = SW, Max = NE, [lng, lat] order).
func (b BoundingBox) Bound() orb.Bound {
	return orb.Bound{
		Min: orb.Point{b.SWLng, b.SWLat},
		Max: orb.Point{b.NELng, b.NELat},
	}
}

// FromBound converts an orb.Bound into a BoundingBox.
func FromBound(bound orb.Bound) BoundingBox {
	return BoundingBox{
		SWLat: bound.Min.Lat(),
		SWLng: bound.Min.Lon(),
		NELat: bound.Max.Lat(),
		NELng: bound.Max.Lon(),
	}
}

// LonLatBounds returns [minLon, minLat, maxLon, maxLat], the order used by
// MBTiles metadata and GeoJSON bbox members.
func (b BoundingBox) LonLatBounds() [4]float64 {
	return [4]float64{b.SWLng, b.SWLat, b.NELng, b.NELat}
}

// String returns a human-readable representation of the bounding box
func (b BoundingBox) String() string {
	return fmt.Sprintf("bbox(%.6f,%.6f,%.6f,%.6f)", b.SWLat, b.SWLng, b.NELat, b.NELng)
}

// Center returns the center point of the bounding box
func (b BoundingBox) Center() (lat, lng float64) {
	return (b.SWLat + b.NELat) / 2, (b.SWLng + b.NELng) / 2
}
