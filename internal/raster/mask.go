// Package raster turns WGS84 boundaries into pixel coverage masks on the
// Web-Mercator grid.
package raster

import (
	"image"

	"github.com/MeKo-Tech/pinmap/internal/boundary"
	"github.com/MeKo-Tech/pinmap/internal/tile"
	"github.com/MeKo-Tech/pinmap/internal/types"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/clip"
	"golang.org/x/image/vector"
)

// Mask covers the outer rings of a polygon boundary. Holes are ignored, the
// same way boundary.Contains ignores them.
type Mask struct {
	rings  []orb.Ring
	bounds types.BoundingBox
}

// NewMask prepares a mask for g, which must contain at least one polygon.
func NewMask(g orb.Geometry) (*Mask, error) {
	m := &Mask{bounds: types.EmptyBounds()}
	for _, p := range boundary.Polygons(g) {
		if len(p) == 0 || len(p[0]) < 3 {
			continue
		}
		// Overlapping rings of opposite winding would cancel out.
		r := p[0].Clone()
		if r.Orientation() == orb.CW {
			r.Reverse()
		}
		m.rings = append(m.rings, r)
		m.bounds = m.bounds.Union(boundary.RingBounds(r))
	}
	if len(m.rings) == 0 {
		return nil, boundary.ErrNoPolygons
	}
	return m, nil
}

// Bounds returns the extent of the mask.
func (m *Mask) Bounds() types.BoundingBox {
	return m.bounds
}

// Render rasterizes the mask over rect, given in global pixel coordinates at
// zoom. The result has rect's size with its origin at (0, 0) and
// anti-aliased edges. It is nil when no pixel of rect is covered.
func (m *Mask) Render(zoom int, rect image.Rectangle) *image.Alpha {
	w, h := rect.Dx(), rect.Dy()
	if w <= 0 || h <= 0 {
		return nil
	}

	// The clip window leaves a one pixel margin so that the edges it adds
	// stay off the canvas.
	window := orb.Bound{Min: orb.Point{-1, -1}, Max: orb.Point{float64(w + 1), float64(h + 1)}}
	ras := vector.NewRasterizer(w, h)

	drawn := false
	for _, ring := range m.rings {
		local := make(orb.Ring, 0, len(ring)+1)
		for _, pt := range ring {
			px, py := tile.LatLngToPixel(pt.Lat(), pt.Lon(), zoom)
			local = append(local, orb.Point{px - float64(rect.Min.X), py - float64(rect.Min.Y)})
		}
		if local[0] != local[len(local)-1] {
			local = append(local, local[0])
		}

		local = clip.Ring(window, local)
		if len(local) < 3 {
			continue
		}

		ras.MoveTo(float32(local[0][0]), float32(local[0][1]))
		for _, pt := range local[1:] {
			ras.LineTo(float32(pt[0]), float32(pt[1]))
		}
		ras.ClosePath()
		drawn = true
	}
	if !drawn {
		return nil
	}

	mask := image.NewAlpha(image.Rect(0, 0, w, h))
	ras.Draw(mask, mask.Bounds(), image.Opaque, image.Point{})
	for _, a := range mask.Pix {
		if a != 0 {
			return mask
		}
	}
	return nil
}
