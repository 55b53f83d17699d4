package cmd

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/MeKo-Tech/pinmap/internal/mbtiles"
	"github.com/MeKo-Tech/pinmap/internal/pyramid"
	"github.com/MeKo-Tech/pinmap/internal/tile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTileFolder(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	w := pyramid.NewFolderWriter(dir)
	require.NoError(t, w.WriteTile(14, 9056, 5555, []byte("a")))
	require.NoError(t, w.WriteTile(14, 9057, 5555, []byte("b")))
	require.NoError(t, w.WriteTile(15, 18113, 11111, []byte("c")))

	// Files outside the {z}/{x}/{y}.png layout are ignored.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "14", "abc"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "14", "abc", "1.png"), []byte("x"), 0o644))
	return dir
}

func TestScanTilesDirectory(t *testing.T) {
	tiles, minZoom, maxZoom, err := scanTilesDirectory(writeTileFolder(t))
	require.NoError(t, err)
	assert.Len(t, tiles, 3)
	assert.Equal(t, 14, minZoom)
	assert.Equal(t, 15, maxZoom)

	tiles, minZoom, maxZoom, err = scanTilesDirectory(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, tiles)
	assert.Equal(t, 0, minZoom)
	assert.Equal(t, 0, maxZoom)
}

func TestConvertFolder(t *testing.T) {
	out := filepath.Join(t.TempDir(), "tiles.mbtiles")

	n, err := convertFolder(convertConfig{InputDir: writeTileFolder(t), Output: out, Name: "converted"})
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	r, err := mbtiles.OpenReader(out)
	require.NoError(t, err)
	defer r.Close()

	data, err := r.ReadTile(14, 9057, 5555)
	require.NoError(t, err)
	assert.Equal(t, []byte("b"), data)

	meta, err := r.Metadata()
	require.NoError(t, err)
	assert.Equal(t, "converted", meta.Name)
	assert.Equal(t, 14, meta.MinZoom)
	assert.Equal(t, 15, meta.MaxZoom)

	// Without --bounds the extent of the deepest zoom is used.
	want := tile.NewCoords(15, 18113, 11111).Bounds()
	got := meta.BBox()
	assert.InDelta(t, want.SWLat, got.SWLat, 1e-6)
	assert.InDelta(t, want.SWLng, got.SWLng, 1e-6)
	assert.InDelta(t, want.NELat, got.NELat, 1e-6)
	assert.InDelta(t, want.NELng, got.NELng, 1e-6)
}

func TestConvertFolderErrors(t *testing.T) {
	dir := writeTileFolder(t)
	out := filepath.Join(t.TempDir(), "tiles.mbtiles")

	_, err := convertFolder(convertConfig{InputDir: dir})
	assert.Error(t, err, "output is required")

	_, err = convertFolder(convertConfig{InputDir: filepath.Join(dir, "missing"), Output: out})
	assert.Error(t, err)

	_, err = convertFolder(convertConfig{InputDir: t.TempDir(), Output: out})
	assert.Error(t, err, "empty folder")

	_, err = convertFolder(convertConfig{InputDir: dir, Output: out, Bounds: "1,2,3"})
	assert.Error(t, err)
}

func TestWithCORS(t *testing.T) {
	h := withCORS(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/tiles/0/0/0.png", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tiles/0/0/0.png", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
