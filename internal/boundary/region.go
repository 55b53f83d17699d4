package boundary

import (
	"fmt"

	"github.com/MeKo-Tech/pinmap/internal/types"
	"github.com/paulmach/orb"
)

// Region is an area pins are restricted to.
type Region interface {
	Contains(lat, lng float64) bool
	Bounds() types.BoundingBox
}

// Boundary types as stored on a map.
const (
	TypeRectangle = "rectangle"
	TypePolygon   = "polygon"
)

// RectRegion restricts pins to an axis-aligned box.
type RectRegion struct {
	Box types.BoundingBox
}

// NewRectRegion validates the box and wraps it.
func NewRectRegion(b types.BoundingBox) (*RectRegion, error) {
	if err := b.Validate(); err != nil {
		return nil, fmt.Errorf("invalid rectangle boundary: %w", err)
	}
	return &RectRegion{Box: b}, nil
}

func (r *RectRegion) Contains(lat, lng float64) bool {
	return r.Box.Contains(lat, lng)
}

func (r *RectRegion) Bounds() types.BoundingBox {
	return r.Box
}

// PolygonRegion restricts pins to a polygon or multipolygon boundary.
// The bounding box is computed once and used as a cheap rejection test.
type PolygonRegion struct {
	geometry orb.Geometry
	bounds   types.BoundingBox
}

// NewPolygonRegion accepts an orb.Polygon or orb.MultiPolygon.
func NewPolygonRegion(g orb.Geometry) (*PolygonRegion, error) {
	switch g.(type) {
	case orb.Polygon, orb.MultiPolygon:
	default:
		return nil, ErrNoPolygons
	}
	b := GeometryBounds(g)
	if b.Empty() {
		return nil, ErrNoPolygons
	}
	return &PolygonRegion{geometry: g, bounds: b}, nil
}

func (r *PolygonRegion) Contains(lat, lng float64) bool {
	if !r.bounds.Contains(lat, lng) {
		return false
	}
	return Contains(r.geometry, lat, lng)
}

func (r *PolygonRegion) Bounds() types.BoundingBox {
	return r.bounds
}

// Geometry returns the wrapped boundary.
func (r *PolygonRegion) Geometry() orb.Geometry {
	return r.geometry
}

// NewRegion selects the region implementation for a stored boundary type.
func NewRegion(kind string, rect types.BoundingBox, g orb.Geometry) (Region, error) {
	switch kind {
	case TypeRectangle:
		return NewRectRegion(rect)
	case TypePolygon:
		return NewPolygonRegion(g)
	default:
		return nil, fmt.Errorf("unknown boundary type %q", kind)
	}
}
