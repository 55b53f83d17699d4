package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/MeKo-Tech/pinmap/internal/boundary"
	"github.com/MeKo-Tech/pinmap/internal/crs"
	"github.com/jonas-p/go-shp"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeShapefile writes one CS92 polygon around central Warsaw.
func writeShapefile(t *testing.T) string {
	t.Helper()
	base := filepath.Join(t.TempDir(), "gminy")

	p := crs.CS92()
	x0, y0 := p.Inverse(20.95, 52.20)
	x1, y1 := p.Inverse(21.05, 52.25)
	ring := []shp.Point{{X: x0, Y: y0}, {X: x0, Y: y1}, {X: x1, Y: y1}, {X: x1, Y: y0}, {X: x0, Y: y0}}

	w, err := shp.Create(base+".shp", shp.POLYGON)
	require.NoError(t, err)
	require.NoError(t, w.SetFields([]shp.Field{shp.StringField("JPT_KOD_JE", 10)}))
	poly := shp.Polygon(*shp.NewPolyLine([][]shp.Point{ring}))
	row := w.Write(&poly)
	require.NoError(t, w.WriteAttribute(int(row), 0, "1465011"))
	w.Close()

	if _, err := os.Stat(base + "dbf"); err == nil {
		require.NoError(t, os.Rename(base+"dbf", base+".dbf"))
	}
	return base + ".shp"
}

func TestLoadRegionRect(t *testing.T) {
	region, err := loadRegion(regionConfig{Rect: "50.0,19.0,50.01,19.01"}, nil)
	require.NoError(t, err)
	assert.True(t, region.Contains(50.005, 19.005))
	assert.True(t, region.Contains(50.0, 19.0), "edges are inclusive")
	assert.False(t, region.Contains(50.02, 19.005))

	_, err = loadRegion(regionConfig{Rect: "50.01,19.0,50.0,19.01"}, nil)
	assert.Error(t, err, "inverted rectangle")
}

func TestLoadRegionNone(t *testing.T) {
	region, err := loadRegion(regionConfig{}, nil)
	require.NoError(t, err)
	assert.Nil(t, region)

	_, err = loadRegion(regionConfig{Rect: "50,19,51,20", Boundary: "b.geojson"}, nil)
	assert.Error(t, err)
}

func TestLoadRegionGeoJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "boundary.geojson")
	square := orb.Polygon{{{19, 50}, {19.01, 50}, {19.01, 50.01}, {19, 50.01}, {19, 50}}}
	require.NoError(t, boundary.WriteGeoJSONFile(path, square, nil))

	region, err := loadRegion(regionConfig{Boundary: path}, nil)
	require.NoError(t, err)
	assert.True(t, region.Contains(50.005, 19.005))
	assert.False(t, region.Contains(50.005, 19.02))

	_, err = loadRegion(regionConfig{Boundary: path, CRS: "EPSG:9999"}, nil)
	assert.Error(t, err)
}

func TestIngestAndLoadShapefile(t *testing.T) {
	shpPath := writeShapefile(t)
	out := filepath.Join(t.TempDir(), "warsaw.geojson")

	res, err := ingestBoundary(ingestConfig{
		Shapefile: shpPath,
		Field:     "JPT_KOD_JE",
		Codes:     []string{"1465011"},
		CRS:       "EPSG:2180",
		Output:    out,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Polygons)
	assert.FileExists(t, out)

	fromGeoJSON, err := loadRegion(regionConfig{Boundary: out}, nil)
	require.NoError(t, err)
	assert.True(t, fromGeoJSON.Contains(52.22, 21.00))
	assert.False(t, fromGeoJSON.Contains(52.30, 21.00))

	// Shapefiles without an explicit CRS are read as CS92.
	fromShapefile, err := loadRegion(regionConfig{Boundary: shpPath}, nil)
	require.NoError(t, err)
	assert.True(t, fromShapefile.Contains(52.22, 21.00))
	assert.InDelta(t, 20.95, fromShapefile.Bounds().SWLng, 1e-6)
	assert.InDelta(t, 52.25, fromShapefile.Bounds().NELat, 1e-6)

	_, err = ingestBoundary(ingestConfig{Shapefile: shpPath, Codes: []string{"1"}, Field: "NOPE", CRS: "EPSG:2180", Output: out})
	assert.Error(t, err)

	_, err = ingestBoundary(ingestConfig{Shapefile: shpPath, CRS: "bogus", Output: out})
	assert.Error(t, err)
}

func TestFilterField(t *testing.T) {
	assert.Equal(t, "", filterField("JPT_KOD_JE", nil))
	assert.Equal(t, "JPT_KOD_JE", filterField("JPT_KOD_JE", []string{"1465011"}))
}
