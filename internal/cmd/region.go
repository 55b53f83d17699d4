package cmd

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/MeKo-Tech/pinmap/internal/boundary"
	"github.com/MeKo-Tech/pinmap/internal/crs"
	"github.com/MeKo-Tech/pinmap/internal/shapefile"
	"github.com/MeKo-Tech/pinmap/internal/types"
	"github.com/paulmach/orb"
)

// regionConfig selects the map boundary used for containment checks.
type regionConfig struct {
	// Boundary is a GeoJSON file or a .shp shapefile.
	Boundary string
	// Rect is a rectangular boundary: swLat,swLng,neLat,neLng.
	Rect string
	// CRS of the boundary coordinates. GeoJSON defaults to WGS84 and
	// shapefiles to CS92.
	CRS   string
	Field string
	Codes []string
}

// loadRegion builds the configured region. It returns nil when neither a
// boundary file nor a rectangle is set.
func loadRegion(cfg regionConfig, log *slog.Logger) (boundary.Region, error) {
	switch {
	case cfg.Boundary != "" && cfg.Rect != "":
		return nil, fmt.Errorf("--boundary and --rect are mutually exclusive")
	case cfg.Rect != "":
		rect, err := parseBBox(cfg.Rect)
		if err != nil {
			return nil, fmt.Errorf("invalid rect: %w", err)
		}
		return boundary.NewRegion(boundary.TypeRectangle, rect, nil)
	case cfg.Boundary != "":
		g, err := loadBoundary(cfg, log)
		if err != nil {
			return nil, err
		}
		return boundary.NewRegion(boundary.TypePolygon, types.BoundingBox{}, g)
	default:
		return nil, nil
	}
}

// shapefileCRS is assumed for shapefiles loaded without an explicit CRS.
const shapefileCRS = "EPSG:2180"

func loadBoundary(cfg regionConfig, log *slog.Logger) (orb.Geometry, error) {
	if strings.EqualFold(filepath.Ext(cfg.Boundary), ".shp") {
		name := cfg.CRS
		if name == "" {
			name = shapefileCRS
		}
		t, ok := crs.ByName(name)
		if !ok {
			return nil, fmt.Errorf("unknown CRS %q", name)
		}
		res, err := shapefile.Read(cfg.Boundary, shapefile.Options{
			Field:       filterField(cfg.Field, cfg.Codes),
			Codes:       cfg.Codes,
			Transformer: t,
			Logger:      log,
		})
		if err != nil {
			return nil, err
		}
		return res.Geometry, nil
	}

	g, err := boundary.ReadGeoJSONFile(cfg.Boundary)
	if err != nil {
		return nil, err
	}
	if cfg.CRS == "" {
		return g, nil
	}
	t, ok := crs.ByName(cfg.CRS)
	if !ok {
		return nil, fmt.Errorf("unknown CRS %q", cfg.CRS)
	}
	return boundary.Reproject(g, t)
}
