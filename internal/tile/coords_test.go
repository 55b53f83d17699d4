package tile

import (
	"path/filepath"
	"testing"

	"github.com/MeKo-Tech/pinmap/internal/types"
)

func TestCoordsString(t *testing.T) {
	tests := []struct {
		coords   Coords
		expected string
	}{
		{Coords{Z: 15, X: 18113, Y: 11111}, "15/18113/11111"},
		{Coords{Z: 0, X: 0, Y: 0}, "0/0/0"},
		{Coords{Z: 18, X: 12345, Y: 67890}, "18/12345/67890"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			result := tt.coords.String()
			if result != tt.expected {
				t.Errorf("String() = %s, want %s", result, tt.expected)
			}
		})
	}
}

func TestCoordsPath(t *testing.T) {
	coords := Coords{Z: 15, X: 18113, Y: 11111}

	tests := []struct {
		ext      string
		expected string
	}{
		{"png", filepath.Join("15", "18113", "11111.png")},
		{"json", filepath.Join("15", "18113", "11111.json")},
	}

	for _, tt := range tests {
		t.Run(tt.ext, func(t *testing.T) {
			result := coords.Path(tt.ext)
			if result != tt.expected {
				t.Errorf("Path(%s) = %s, want %s", tt.ext, result, tt.expected)
			}
		})
	}
}

func TestCoordsBounds(t *testing.T) {
	// Tile covering the Kraków area at z13
	coords := Coords{Z: 13, X: 4528, Y: 2777}
	bounds := coords.Bounds()

	t.Logf("Tile %s bounds: %s", coords.String(), bounds)

	if bounds.SWLng < 18.9 || bounds.NELng > 19.1 {
		t.Errorf("longitude span %.6f..%.6f is outside expected range", bounds.SWLng, bounds.NELng)
	}
	if bounds.SWLat < 49.9 || bounds.NELat > 50.1 {
		t.Errorf("latitude span %.6f..%.6f is outside expected range", bounds.SWLat, bounds.NELat)
	}
	if err := bounds.Validate(); err != nil {
		t.Errorf("tile bounds are not ordered: %v", err)
	}

	lat, lng := coords.Center()
	if !bounds.Contains(lat, lng) {
		t.Errorf("center %.6f,%.6f is outside bounds %s", lat, lng, bounds)
	}
}

func TestParseCoords(t *testing.T) {
	tests := []struct {
		input    string
		expected Coords
		wantErr  bool
	}{
		{"15/18113/11111", Coords{Z: 15, X: 18113, Y: 11111}, false},
		{"0/0/0", Coords{Z: 0, X: 0, Y: 0}, false},
		{"18/262143/262143", Coords{Z: 18, X: 262143, Y: 262143}, false},
		{"invalid", Coords{}, true},
		{"13/4297", Coords{}, true},
		{"z13_x4297_y2754", Coords{}, true},
		{"1/2/0", Coords{}, true}, // x out of range at z1
		{"3/1/2.png", Coords{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result, err := ParseCoords(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ParseCoords(%s) expected error, got nil", tt.input)
				}
				return
			}
			if err != nil {
				t.Errorf("ParseCoords(%s) unexpected error: %v", tt.input, err)
				return
			}
			if result != tt.expected {
				t.Errorf("ParseCoords(%s) = %+v, want %+v", tt.input, result, tt.expected)
			}
		})
	}
}

func TestTileRange(t *testing.T) {
	tr := TileRange{
		MinZ: 13, MaxZ: 13,
		MinX: 4528, MaxX: 4529,
		MinY: 2777, MaxY: 2778,
	}

	// Should have 4 tiles (2x2)
	expectedCount := 4
	if tr.Count() != expectedCount {
		t.Errorf("Count() = %d, want %d", tr.Count(), expectedCount)
	}

	var visited []string
	tr.ForEach(func(c Coords) {
		visited = append(visited, c.String())
		if !tr.Contains(c) {
			t.Errorf("range does not contain visited tile %s", c)
		}
	})

	if len(visited) != expectedCount {
		t.Errorf("ForEach visited %d tiles, want %d", len(visited), expectedCount)
	}
	if visited[0] != "13/4528/2777" || visited[1] != "13/4528/2778" {
		t.Errorf("ForEach order is not x-major: %v", visited)
	}
}

func TestRangeForBounds(t *testing.T) {
	bbox := types.BoundingBox{SWLat: 50.0, SWLng: 19.0, NELat: 50.01, NELng: 19.01}

	tests := []struct {
		zoom int
		want TileRange
	}{
		{14, TileRange{MinZ: 14, MaxZ: 14, MinX: 9056, MaxX: 9057, MinY: 5555, MaxY: 5556}},
		{15, TileRange{MinZ: 15, MaxZ: 15, MinX: 18113, MaxX: 18114, MinY: 11111, MaxY: 11113}},
	}

	for _, tt := range tests {
		got := RangeForBounds(bbox, tt.zoom)
		if got != tt.want {
			t.Errorf("RangeForBounds(z%d) = %+v, want %+v", tt.zoom, got, tt.want)
		}
	}

	if got := TileCount(bbox, 14, 15); got != 4+6 {
		t.Errorf("TileCount() = %d, want 10", got)
	}
	if got := len(TilesInBBox(bbox, 14, 15)); got != 10 {
		t.Errorf("len(TilesInBBox()) = %d, want 10", got)
	}
}

func TestRangeForBoundsClampsToGrid(t *testing.T) {
	world := types.BoundingBox{SWLat: -MaxLatitude, SWLng: -180, NELat: MaxLatitude, NELng: 180}

	for z := 0; z <= 4; z++ {
		r := RangeForBounds(world, z)
		last := uint32(1<<uint(z)) - 1
		if r.MinX != 0 || r.MinY != 0 || r.MaxX != last || r.MaxY != last {
			t.Errorf("z%d: world range = %+v, want 0..%d", z, r, last)
		}
	}
}
