package server

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/MeKo-Tech/pinmap/internal/mbtiles"
	"github.com/MeKo-Tech/pinmap/internal/tile"
)

// TileHandler serves /tiles/{z}/{x}/{y}.png from a TileStore.
type TileHandler struct {
	store        TileStore
	logger       *slog.Logger
	cacheControl string
}

// NewTileHandler creates a tile handler. An empty cacheControl disables the header.
func NewTileHandler(store TileStore, cacheControl string, logger *slog.Logger) *TileHandler {
	return &TileHandler{store: store, cacheControl: cacheControl, logger: logger}
}

func (h *TileHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	coords, ok := parseTilePath(r.URL.Path)
	if !ok {
		http.NotFound(w, r)
		return
	}

	var (
		data   []byte
		hit    bool
		err    error
		cached *CacheTileStore
	)
	if c, ok := h.store.(*CacheTileStore); ok {
		cached = c
		data, hit, err = cached.getTile(coords)
	} else {
		data, err = h.store.GetTile(coords)
	}

	if errors.Is(err, mbtiles.ErrTileNotFound) {
		h.log().Debug("Tile not found", "coords", coords.String())
		http.Error(w, "Tile not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.log().Error("Failed to read tile", "coords", coords.String(), "error", err)
		http.Error(w, "Failed to read tile", http.StatusInternalServerError)
		return
	}

	if h.cacheControl != "" {
		w.Header().Set("Cache-Control", h.cacheControl)
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	switch {
	case cached == nil:
	case hit:
		w.Header().Set("X-Cache", "HIT")
	default:
		w.Header().Set("X-Cache", "MISS")
	}

	if r.Method == http.MethodHead {
		return
	}
	if _, err := w.Write(data); err != nil {
		h.log().Error("Failed to write response", "error", err)
	}
}

func (h *TileHandler) log() *slog.Logger {
	if h.logger != nil {
		return h.logger
	}
	return slog.Default()
}

// parseTilePath parses a tile path like /tiles/14/9056/5555.png.
func parseTilePath(requestPath string) (tile.Coords, bool) {
	rest, ok := strings.CutPrefix(requestPath, "/tiles/")
	if !ok {
		return tile.Coords{}, false
	}
	name, ok := strings.CutSuffix(rest, ".png")
	if !ok || strings.Count(name, "/") != 2 {
		return tile.Coords{}, false
	}

	coords, err := tile.ParseCoords(name)
	if err != nil {
		return tile.Coords{}, false
	}
	return coords, true
}
