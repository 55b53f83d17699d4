// Package boundary implements the administrative boundary geometry used to
// restrict pins: reprojection into WGS84, bounding boxes, point-in-polygon
// tests and GeoJSON persistence.
//
// Geometries are orb values with coordinates in [lng, lat] order. Only
// orb.Polygon and orb.MultiPolygon are treated as boundaries.
package boundary

import (
	"errors"
	"fmt"

	"github.com/MeKo-Tech/pinmap/internal/crs"
	"github.com/MeKo-Tech/pinmap/internal/types"
	"github.com/paulmach/orb"
)

// ErrNoPolygons is returned when an input holds no polygonal geometry.
var ErrNoPolygons = errors.New("no polygon geometry found")

// Reproject returns a copy of g with every coordinate passed through
// t.Forward. Ring order and point counts are preserved.
func Reproject(g orb.Geometry, t crs.Transformer) (orb.Geometry, error) {
	switch g := g.(type) {
	case orb.Point:
		return reprojectPoint(g, t)
	case orb.MultiPoint:
		pts, err := reprojectPoints(g, t)
		return orb.MultiPoint(pts), err
	case orb.LineString:
		pts, err := reprojectPoints(g, t)
		return orb.LineString(pts), err
	case orb.Ring:
		pts, err := reprojectPoints(g, t)
		return orb.Ring(pts), err
	case orb.Polygon:
		return reprojectPolygon(g, t)
	case orb.MultiPolygon:
		out := make(orb.MultiPolygon, 0, len(g))
		for i, p := range g {
			rp, err := reprojectPolygon(p, t)
			if err != nil {
				return nil, fmt.Errorf("failed to reproject polygon %d: %w", i, err)
			}
			out = append(out, rp)
		}
		return out, nil
	case nil:
		return nil, ErrNoPolygons
	default:
		return nil, fmt.Errorf("unsupported geometry type %s", g.GeoJSONType())
	}
}

func reprojectPolygon(p orb.Polygon, t crs.Transformer) (orb.Polygon, error) {
	out := make(orb.Polygon, 0, len(p))
	for i, r := range p {
		pts, err := reprojectPoints(r, t)
		if err != nil {
			return nil, fmt.Errorf("failed to reproject ring %d: %w", i, err)
		}
		out = append(out, orb.Ring(pts))
	}
	return out, nil
}

func reprojectPoints(pts []orb.Point, t crs.Transformer) ([]orb.Point, error) {
	out := make([]orb.Point, len(pts))
	for i, p := range pts {
		rp, err := reprojectPoint(p, t)
		if err != nil {
			return nil, err
		}
		out[i] = rp
	}
	return out, nil
}

func reprojectPoint(p orb.Point, t crs.Transformer) (orb.Point, error) {
	lng, lat := t.Forward(p[0], p[1])
	if !crs.Valid(lng, lat) {
		return orb.Point{}, fmt.Errorf("coordinate (%f, %f) has no valid projection", p[0], p[1])
	}
	return orb.Point{lng, lat}, nil
}

// RingBounds scans a single ring. The result is Empty for an empty ring.
func RingBounds(r orb.Ring) types.BoundingBox {
	b := types.EmptyBounds()
	for _, p := range r {
		b = b.Extend(p.Lat(), p.Lon())
	}
	return b
}

// PolygonBounds returns the bounding box of the polygon's outer ring.
// Holes lie inside the outer ring and never widen the box.
func PolygonBounds(p orb.Polygon) types.BoundingBox {
	if len(p) == 0 {
		return types.EmptyBounds()
	}
	return RingBounds(p[0])
}

// MultiPolygonBounds is the union of the bounds of every member polygon.
func MultiPolygonBounds(mp orb.MultiPolygon) types.BoundingBox {
	b := types.EmptyBounds()
	for _, p := range mp {
		b = b.Union(PolygonBounds(p))
	}
	return b
}

// GeometryBounds dispatches on the geometry type. Non-polygonal geometries
// use the plain coordinate extent.
func GeometryBounds(g orb.Geometry) types.BoundingBox {
	switch g := g.(type) {
	case orb.Polygon:
		return PolygonBounds(g)
	case orb.MultiPolygon:
		return MultiPolygonBounds(g)
	case orb.Ring:
		return RingBounds(g)
	case nil:
		return types.EmptyBounds()
	default:
		if g.Dimensions() < 0 {
			return types.EmptyBounds()
		}
		b := types.EmptyBounds()
		bound := g.Bound()
		return b.Extend(bound.Min.Lat(), bound.Min.Lon()).Extend(bound.Max.Lat(), bound.Max.Lon())
	}
}

// Polygons flattens a polygonal geometry into its member polygons.
func Polygons(g orb.Geometry) []orb.Polygon {
	switch g := g.(type) {
	case orb.Polygon:
		return []orb.Polygon{g}
	case orb.MultiPolygon:
		return []orb.Polygon(g)
	case orb.Ring:
		return []orb.Polygon{{g}}
	case orb.Collection:
		var out []orb.Polygon
		for _, c := range g {
			out = append(out, Polygons(c)...)
		}
		return out
	default:
		return nil
	}
}

// Merge builds a boundary from a list of polygons: a single polygon stays a
// Polygon, several become a MultiPolygon.
func Merge(polys []orb.Polygon) (orb.Geometry, error) {
	nonEmpty := make([]orb.Polygon, 0, len(polys))
	for _, p := range polys {
		if len(p) > 0 && len(p[0]) > 0 {
			nonEmpty = append(nonEmpty, p)
		}
	}
	switch len(nonEmpty) {
	case 0:
		return nil, ErrNoPolygons
	case 1:
		return nonEmpty[0], nil
	default:
		return orb.MultiPolygon(nonEmpty), nil
	}
}
