package tile

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/MeKo-Tech/pinmap/internal/types"
	"github.com/paulmach/orb/maptile"
)

// Coords represents a tile coordinate in the Web Mercator tile system (z/x/y)
type Coords struct {
	Z uint32 // Zoom level (0-22)
	X uint32 // X coordinate (column, west to east)
	Y uint32 // Y coordinate (row, north to south)
}

// String returns the tile coordinate as "z/x/y"
func (c Coords) String() string {
	return fmt.Sprintf("%d/%d/%d", c.Z, c.X, c.Y)
}

// Path returns the slippy-map relative path {z}/{x}/{y}.{extension} for this tile
func (c Coords) Path(extension string) string {
	return filepath.Join(
		strconv.FormatUint(uint64(c.Z), 10),
		strconv.FormatUint(uint64(c.X), 10),
		fmt.Sprintf("%d.%s", c.Y, extension),
	)
}

// Tile returns the maptile.Tile for this coordinate
func (c Coords) Tile() maptile.Tile {
	return maptile.New(c.X, c.Y, maptile.Zoom(c.Z))
}

// Bounds returns the geographic bounding box of this tile in WGS84 (EPSG:4326)
func (c Coords) Bounds() types.BoundingBox {
	return types.FromBound(c.Tile().Bound())
}

// Center returns the center point of the tile in WGS84 (lat, lng)
func (c Coords) Center() (float64, float64) {
	return c.Bounds().Center()
}

// NewCoords creates a new Coords from zoom, x, y values
func NewCoords(z, x, y uint32) Coords {
	return Coords{Z: z, X: x, Y: y}
}

// ParseCoords parses a tile string like "15/18113/11111" into Coords
func ParseCoords(s string) (Coords, error) {
	var c Coords
	var rest string
	n, _ := fmt.Sscanf(s, "%d/%d/%d%s", &c.Z, &c.X, &c.Y, &rest)
	if n != 3 {
		return Coords{}, fmt.Errorf("invalid tile coordinate format: %s", s)
	}
	if !c.Tile().Valid() {
		return Coords{}, fmt.Errorf("tile coordinate out of range: %s", s)
	}
	return c, nil
}

// TileRange represents a range of tiles at one or more zoom levels
type TileRange struct {
	MinZ, MaxZ uint32 // Zoom range
	MinX, MaxX uint32 // X range
	MinY, MaxY uint32 // Y range
}

// ForEach calls the given function for each tile in the range, x-major
func (r TileRange) ForEach(fn func(Coords)) {
	for z := r.MinZ; z <= r.MaxZ; z++ {
		for x := r.MinX; x <= r.MaxX; x++ {
			for y := r.MinY; y <= r.MaxY; y++ {
				fn(NewCoords(z, x, y))
			}
		}
	}
}

// Count returns the total number of tiles in this range
func (r TileRange) Count() int {
	count := 0
	for z := r.MinZ; z <= r.MaxZ; z++ {
		xCount := r.MaxX - r.MinX + 1
		yCount := r.MaxY - r.MinY + 1
		count += int(xCount * yCount)
	}
	return count
}

// Contains reports whether c lies inside the range.
func (r TileRange) Contains(c Coords) bool {
	return c.Z >= r.MinZ && c.Z <= r.MaxZ &&
		c.X >= r.MinX && c.X <= r.MaxX &&
		c.Y >= r.MinY && c.Y <= r.MaxY
}

// RangeForBounds returns the tiles a bounding box spans at a single zoom.
// Corner ordering is not guaranteed in tile space, so min/max are taken over
// both corners and the result is clamped to the 2^zoom grid.
func RangeForBounds(bbox types.BoundingBox, zoom int) TileRange {
	x1, y1 := LatLngToTile(bbox.NELat, bbox.SWLng, zoom)
	x2, y2 := LatLngToTile(bbox.SWLat, bbox.NELng, zoom)

	minX, maxX := x1, x2
	if minX > maxX {
		minX, maxX = maxX, minX
	}

	minY, maxY := y1, y2
	if minY > maxY {
		minY, maxY = maxY, minY
	}

	last := (1 << uint(zoom)) - 1

	return TileRange{
		MinZ: uint32(zoom),
		MaxZ: uint32(zoom),
		MinX: uint32(clamp(minX, 0, last)),
		MaxX: uint32(clamp(maxX, 0, last)),
		MinY: uint32(clamp(minY, 0, last)),
		MaxY: uint32(clamp(maxY, 0, last)),
	}
}

// TilesInBBox returns all tile coordinates within a bounding box across a zoom range.
// Calculates correct tile coordinates at each zoom level independently.
func TilesInBBox(bbox types.BoundingBox, zoomMin, zoomMax int) []Coords {
	tiles := make([]Coords, 0, TileCount(bbox, zoomMin, zoomMax))

	for z := zoomMin; z <= zoomMax; z++ {
		RangeForBounds(bbox, z).ForEach(func(c Coords) {
			tiles = append(tiles, c)
		})
	}

	return tiles
}

// TileCount returns the number of tiles in a bounding box across a zoom range.
// This is useful for progress estimation without allocating the full tile list.
func TileCount(bbox types.BoundingBox, zoomMin, zoomMax int) int {
	count := 0
	for z := zoomMin; z <= zoomMax; z++ {
		count += RangeForBounds(bbox, z).Count()
	}
	return count
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
