// Package server serves generated tile pyramids and answers boundary
// containment queries over HTTP.
package server

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/MeKo-Tech/pinmap/internal/boundary"
)

// Config configures the HTTP server.
type Config struct {
	// TilesDir serves a folder pyramid. Mutually exclusive with MBTilesPath.
	TilesDir    string
	MBTilesPath string
	// CacheSize is the number of tiles kept in memory; 0 disables caching.
	CacheSize    int
	CacheControl string
	// Region enables /contains and /bounds when set.
	Region boundary.Region
}

// Server bundles the handlers of one tileset.
type Server struct {
	mux    *http.ServeMux
	closer io.Closer
	logger *slog.Logger
}

// New opens the configured tile source and registers the routes.
func New(cfg Config, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.TilesDir != "" && cfg.MBTilesPath != "" {
		return nil, fmt.Errorf("tiles dir and MBTiles path are mutually exclusive")
	}

	s := &Server{mux: http.NewServeMux(), logger: logger}

	var store TileStore
	switch {
	case cfg.MBTilesPath != "":
		mb, err := NewMBTilesTileStore(cfg.MBTilesPath)
		if err != nil {
			return nil, err
		}
		store, s.closer = mb, mb
	case cfg.TilesDir != "":
		folder, err := NewFolderTileStore(cfg.TilesDir)
		if err != nil {
			return nil, err
		}
		store = folder
	}

	if store != nil {
		if cfg.CacheSize > 0 {
			cached, err := NewCacheTileStore(store, cfg.CacheSize)
			if err != nil {
				s.Close() // nolint:errcheck
				return nil, err
			}
			store = cached
		}
		s.mux.Handle("/tiles/", NewTileHandler(store, cfg.CacheControl, logger))
	}

	if cfg.Region != nil {
		s.mux.Handle("/contains", NewContainsHandler(cfg.Region, logger))
		s.mux.Handle("/bounds", BoundsHandler(cfg.Region, logger))
	}

	s.mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("ok"))
	})

	return s, nil
}

// Handler returns the HTTP handler of the server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Close releases the tile source.
func (s *Server) Close() error {
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}
