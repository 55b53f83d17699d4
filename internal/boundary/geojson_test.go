package boundary

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadGeoJSON(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantType string
		wantErr  error
	}{
		{
			name:     "bare polygon",
			input:    `{"type":"Polygon","coordinates":[[[0,0],[10,0],[10,10],[0,10],[0,0]]]}`,
			wantType: "Polygon",
		},
		{
			name:     "bare multipolygon",
			input:    `{"type":"MultiPolygon","coordinates":[[[[0,0],[1,0],[1,1],[0,0]]],[[[5,5],[6,5],[6,6],[5,5]]]]}`,
			wantType: "MultiPolygon",
		},
		{
			name:     "feature",
			input:    `{"type":"Feature","properties":{"code":"1465"},"geometry":{"type":"Polygon","coordinates":[[[0,0],[10,0],[10,10],[0,0]]]}}`,
			wantType: "Polygon",
		},
		{
			name: "collection merges polygons",
			input: `{"type":"FeatureCollection","features":[
				{"type":"Feature","properties":{},"geometry":{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,0]]]}},
				{"type":"Feature","properties":{},"geometry":{"type":"Point","coordinates":[3,3]}},
				{"type":"Feature","properties":{},"geometry":{"type":"Polygon","coordinates":[[[5,5],[6,5],[6,6],[5,5]]]}}
			]}`,
			wantType: "MultiPolygon",
		},
		{
			name:    "point only",
			input:   `{"type":"Point","coordinates":[3,3]}`,
			wantErr: ErrNoPolygons,
		},
		{
			name:    "collection without polygons",
			input:   `{"type":"FeatureCollection","features":[]}`,
			wantErr: ErrNoPolygons,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := ReadGeoJSON([]byte(tt.input))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("ReadGeoJSON() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ReadGeoJSON() error = %v", err)
			}
			if g.GeoJSONType() != tt.wantType {
				t.Errorf("type = %s, want %s", g.GeoJSONType(), tt.wantType)
			}
		})
	}
}

func TestReadGeoJSONInvalid(t *testing.T) {
	for _, input := range []string{"", "not json", `{"coordinates":[]}`} {
		if _, err := ReadGeoJSON([]byte(input)); err == nil {
			t.Errorf("ReadGeoJSON(%q) expected error", input)
		}
	}
}

func TestWriteGeoJSONRoundTrip(t *testing.T) {
	mp := orb.MultiPolygon{
		{{{19.1234567891, 50.0}, {19.2, 50.0}, {19.2, 50.1}, {19.1234567891, 50.0}}},
		{{{20, 51}, {21, 51}, {21, 52}, {20, 51}}},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteGeoJSON(&buf, mp, map[string]interface{}{"code": "1261"}))
	assert.True(t, strings.Contains(buf.String(), `"code": "1261"`))
	assert.True(t, strings.Contains(buf.String(), "19.123457"))
	assert.False(t, strings.Contains(buf.String(), "19.1234567891"))

	// The caller's geometry keeps full precision.
	assert.Equal(t, 19.1234567891, mp[0][0][0][0])

	g, err := ReadGeoJSON(buf.Bytes())
	require.NoError(t, err)
	got, ok := g.(orb.MultiPolygon)
	require.True(t, ok, "got %T", g)
	require.Len(t, got, 2)
	assert.InDelta(t, 19.123457, got[0][0][0][0], 1e-9)
	assert.Equal(t, MultiPolygonBounds(got), MultiPolygonBounds(orb.Round(orb.Clone(mp)).(orb.MultiPolygon)))
}

func TestWriteGeoJSONBBoxRounded(t *testing.T) {
	poly := orb.Polygon{{{19.1234567891, 50.0000004}, {19.2, 50.0000004}, {19.2, 50.1}, {19.1234567891, 50.0000004}}}

	var buf bytes.Buffer
	require.NoError(t, WriteGeoJSON(&buf, poly, nil))

	fc, err := geojson.UnmarshalFeatureCollection(buf.Bytes())
	require.NoError(t, err)
	require.Len(t, fc.Features, 1)
	assert.Equal(t, geojson.BBox{19.123457, 50, 19.2, 50.1}, fc.Features[0].BBox)
}

func TestWriteGeoJSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "boundary.geojson")
	poly := orb.Polygon{square}

	require.NoError(t, WriteGeoJSONFile(path, poly, nil))

	g, err := ReadGeoJSONFile(path)
	require.NoError(t, err)
	assert.Equal(t, poly, g)

	_, err = ReadGeoJSONFile(filepath.Join(t.TempDir(), "missing.geojson"))
	assert.Error(t, err)

	assert.ErrorIs(t, WriteGeoJSON(&bytes.Buffer{}, nil, nil), ErrNoPolygons)
}
