package raster

import (
	"errors"
	"image"
	"testing"

	"github.com/MeKo-Tech/pinmap/internal/boundary"
	"github.com/MeKo-Tech/pinmap/internal/tile"
	"github.com/paulmach/orb"
)

// westernHemisphere covers the left half of the zoom 0 tile.
var westernHemisphere = orb.Polygon{{
	{-180, -tile.MaxLatitude}, {0, -tile.MaxLatitude}, {0, tile.MaxLatitude},
	{-180, tile.MaxLatitude}, {-180, -tile.MaxLatitude},
}}

func TestMaskRender(t *testing.T) {
	m, err := NewMask(westernHemisphere)
	if err != nil {
		t.Fatalf("NewMask: %v", err)
	}

	mask := m.Render(0, image.Rect(0, 0, 256, 256))
	if mask == nil {
		t.Fatal("expected a mask for the world tile")
	}
	if got := mask.Bounds(); got != image.Rect(0, 0, 256, 256) {
		t.Fatalf("bounds = %v", got)
	}

	tests := []struct {
		x, y    int
		covered bool
	}{
		{10, 128, true},
		{120, 20, true},
		{64, 240, true},
		{136, 128, false},
		{250, 10, false},
	}
	for _, tt := range tests {
		a := mask.AlphaAt(tt.x, tt.y).A
		if tt.covered && a < 250 {
			t.Errorf("pixel (%d,%d) alpha = %d, want covered", tt.x, tt.y, a)
		}
		if !tt.covered && a != 0 {
			t.Errorf("pixel (%d,%d) alpha = %d, want 0", tt.x, tt.y, a)
		}
	}
}

func TestMaskRenderOutside(t *testing.T) {
	m, err := NewMask(westernHemisphere)
	if err != nil {
		t.Fatalf("NewMask: %v", err)
	}

	// Tile 1/1/0 lies east of the prime meridian.
	if mask := m.Render(1, tile.TilePixelRect(1, 0, 1)); mask != nil {
		t.Error("expected nil mask for a tile outside the boundary")
	}
	if mask := m.Render(0, image.Rectangle{}); mask != nil {
		t.Error("expected nil mask for an empty rect")
	}
}

func TestMaskRenderInside(t *testing.T) {
	m, err := NewMask(westernHemisphere)
	if err != nil {
		t.Fatalf("NewMask: %v", err)
	}

	mask := m.Render(0, image.Rect(32, 32, 64, 64))
	if mask == nil {
		t.Fatal("expected a mask")
	}
	for i, a := range mask.Pix {
		if a < 250 {
			t.Fatalf("pixel %d alpha = %d, want fully covered", i, a)
		}
	}
}

func TestMaskClockwiseRing(t *testing.T) {
	// A clockwise outer ring covers the same pixels.
	cw := westernHemisphere.Clone()
	cw[0].Reverse()

	m, err := NewMask(orb.MultiPolygon{cw, westernHemisphere})
	if err != nil {
		t.Fatalf("NewMask: %v", err)
	}
	mask := m.Render(0, image.Rect(0, 0, 256, 256))
	if mask == nil {
		t.Fatal("expected a mask")
	}
	if a := mask.AlphaAt(10, 128).A; a < 250 {
		t.Errorf("overlapping rings of opposite winding cancelled out: alpha = %d", a)
	}
}

func TestNewMaskErrors(t *testing.T) {
	tests := []struct {
		name string
		g    orb.Geometry
	}{
		{"nil", nil},
		{"point", orb.Point{19, 50}},
		{"empty polygon", orb.Polygon{}},
		{"degenerate ring", orb.Polygon{{{19, 50}, {19, 50}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewMask(tt.g)
			if !errors.Is(err, boundary.ErrNoPolygons) {
				t.Errorf("NewMask(%v) error = %v, want ErrNoPolygons", tt.g, err)
			}
		})
	}
}

func TestMaskBounds(t *testing.T) {
	m, err := NewMask(westernHemisphere)
	if err != nil {
		t.Fatalf("NewMask: %v", err)
	}
	b := m.Bounds()
	if b.SWLng != -180 || b.NELng != 0 || b.NELat != tile.MaxLatitude {
		t.Errorf("Bounds() = %s", b)
	}
}
