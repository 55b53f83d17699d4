package shapefile

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

// cwSquare returns a clockwise CS92 ring around the given WGS84 box.
func cwSquare(t *testing.T, minLng, minLat, maxLng, maxLat float64) []shp.Point {
	t.Helper()
	p := crs.CS92()
	x0, y0 := p.Inverse(minLng, minLat)
	x1, y1 := p.Inverse(maxLng, maxLat)
	return []shp.Point{{X: x0, Y: y0}, {X: x0, Y: y1}, {X: x1, Y: y1}, {X: x1, Y: y0}, {X: x0, Y: y0}}
}

func reversed(pts []shp.Point) []shp.Point {
	out := make([]shp.Point, len(pts))
	for i, p := range pts {
		out[len(pts)-1-i] = p
	}
	return out
}

// writeFixture writes a polygon shapefile with a JPT_KOD_JE attribute.
func writeFixture(t *testing.T) string {
	t.Helper()
	base := filepath.Join(t.TempDir(), "gminy")

	w, err := shp.Create(base+".shp", shp.POLYGON)
	require.NoError(t, err)
	require.NoError(t, w.SetFields([]shp.Field{shp.StringField("JPT_KOD_JE", 10)}))

	records := []struct {
		code  string
		parts [][]shp.Point
	}{
		{"1465011", [][]shp.Point{cwSquare(t, 20.95, 52.20, 21.05, 52.25)}},
		{"1261011", [][]shp.Point{
			cwSquare(t, 19.90, 50.00, 20.00, 50.10),
			reversed(cwSquare(t, 19.94, 50.04, 19.96, 50.06)),
		}},
		{"3064011", [][]shp.Point{cwSquare(t, 16.90, 52.35, 17.00, 52.45)}},
	}
	for _, rec := range records {
		poly := shp.Polygon(*shp.NewPolyLine(rec.parts))
		row := w.Write(&poly)
		require.NoError(t, w.WriteAttribute(int(row), 0, rec.code))
	}
	w.Close()

	// go-shp's writer names the table "<base>dbf" while the reader expects "<base>.dbf".
	if _, err := os.Stat(base + "dbf"); err == nil {
		require.NoError(t, os.Rename(base+"dbf", base+".dbf"))
	}
	return base + ".shp"
}

func TestReadSelectsCodes(t *testing.T) {
	path := writeFixture(t)

	res, err := Read(path, Options{Field: "JPT_KOD_JE", Codes: []string{"1465011", "1261011"}})
	require.NoError(t, err)

	assert.Equal(t, 3, res.Records)
	assert.Equal(t, 2, res.Matched)
	assert.Equal(t, 0, res.Skipped)
	assert.Equal(t, 2, res.Polygons)

	mp, ok := res.Geometry.(orb.MultiPolygon)
	require.True(t, ok, "got %T", res.Geometry)
	require.Len(t, mp, 2)
	assert.Len(t, mp[0], 1)
	assert.Len(t, mp[1], 2, "the counter-clockwise part should become a hole")
	assert.Len(t, mp[0][0], 5)

	assert.True(t, boundary.Contains(res.Geometry, 52.22, 21.00), "Warsaw")
	assert.True(t, boundary.Contains(res.Geometry, 50.02, 19.92), "Kraków")
	assert.False(t, boundary.Contains(res.Geometry, 52.40, 16.95), "Poznań was not selected")

	// Grid lines are not exactly parallels or meridians, so allow for convergence.
	assert.InDelta(t, 50.00, res.Bounds.SWLat, 0.005)
	assert.InDelta(t, 19.90, res.Bounds.SWLng, 0.005)
	assert.InDelta(t, 52.25, res.Bounds.NELat, 0.005)
	assert.InDelta(t, 21.05, res.Bounds.NELng, 0.005)
}

func TestReadSingleCodeIsPolygon(t *testing.T) {
	path := writeFixture(t)

	res, err := Read(path, Options{Field: "jpt_kod_je", Codes: []string{" 3064011 "}})
	require.NoError(t, err)

	poly, ok := res.Geometry.(orb.Polygon)
	require.True(t, ok, "got %T", res.Geometry)
	assert.True(t, boundary.PointInPolygon(52.40, 16.95, poly))
}

func TestReadAllRecords(t *testing.T) {
	path := writeFixture(t)

	res, err := Read(path, Options{})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Matched)
	assert.Equal(t, 3, res.Polygons)
}

func TestReadErrors(t *testing.T) {
	path := writeFixture(t)

	_, err := Read(path, Options{Field: "TERYT", Codes: []string{"1"}})
	assert.ErrorIs(t, err, ErrFieldNotFound)

	_, err = Read(path, Options{Field: "JPT_KOD_JE", Codes: []string{"0000000"}})
	assert.ErrorIs(t, err, boundary.ErrNoPolygons)

	_, err = Read(filepath.Join(t.TempDir(), "missing.shp"), Options{})
	assert.Error(t, err)
}

func TestReadSkipsNonPolygons(t *testing.T) {
	base := filepath.Join(t.TempDir(), "points")
	w, err := shp.Create(base+".shp", shp.POINT)
	require.NoError(t, err)
	w.Write(&shp.Point{X: 500000, Y: 500000})
	w.Close()

	res, err := Read(base+".shp", Options{})
	assert.ErrorIs(t, err, boundary.ErrNoPolygons)
	assert.Nil(t, res)
}

func TestFields(t *testing.T) {
	names, err := Fields(writeFixture(t))
	require.NoError(t, err)
	assert.Equal(t, []string{"JPT_KOD_JE"}, names)
}

func TestPartsToPolygons(t *testing.T) {
	outer := []shp.Point{{X: 0, Y: 0}, {X: 0, Y: 10}, {X: 10, Y: 10}, {X: 10, Y: 0}}
	hole := []shp.Point{{X: 2, Y: 2}, {X: 4, Y: 2}, {X: 4, Y: 4}, {X: 2, Y: 4}, {X: 2, Y: 2}}
	second := []shp.Point{{X: 20, Y: 0}, {X: 20, Y: 5}, {X: 25, Y: 5}, {X: 20, Y: 0}}

	pl := shp.Polygon(*shp.NewPolyLine([][]shp.Point{outer, hole, second}))
	polys := partsToPolygons(&pl)

	require.Len(t, polys, 2)
	require.Len(t, polys[0], 2)
	assert.True(t, polys[0][0].Closed(), "open parts are closed")
	assert.Len(t, polys[0][0], 5)
	assert.Equal(t, orb.CW, polys[0][0].Orientation())
	assert.Equal(t, orb.CCW, polys[0][1].Orientation())
	assert.Len(t, polys[1], 1)
}
