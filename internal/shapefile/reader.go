// Package shapefile extracts administrative boundaries from ESRI shapefiles
// (for example the PRG dataset of Polish municipalities) and converts them
// into WGS84 orb geometries.
package shapefile

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/MeKo-Tech/pinmap/internal/boundary"
	"github.com/MeKo-Tech/pinmap/internal/crs"
	"github.com/MeKo-Tech/pinmap/internal/types"
	"github.com/jonas-p/go-shp"
	"github.com/paulmach/orb"
)

// ErrFieldNotFound is returned when the attribute used for filtering does not
// exist in the DBF table.
var ErrFieldNotFound = errors.New("attribute field not found")

// Options controls which records are read and how they are projected.
type Options struct {
	// Field is the DBF attribute compared against Codes, e.g. JPT_KOD_JE.
	Field string
	// Codes selects records by attribute value. Empty selects every record.
	Codes []string
	// Transformer projects shapefile coordinates to WGS84. Defaults to CS92.
	Transformer crs.Transformer
	Logger      *slog.Logger
}

// Result is the merged boundary plus bookkeeping about the scan.
type Result struct {
	Geometry orb.Geometry
	Bounds   types.BoundingBox
	Records  int // records scanned
	Matched  int // records selected by the code filter
	Skipped  int // selected records that were not polygons
	Polygons int
}

// Read loads the shapefile at path (the .shp file; the .dbf must sit next to
// it when a field filter is used) and merges the selected records into one
// Polygon or MultiPolygon.
func Read(path string, opts Options) (*Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	t := opts.Transformer
	if t == nil {
		t = crs.CS92()
	}

	r, err := shp.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open shapefile: %w", err)
	}
	defer r.Close() // nolint:errcheck

	fieldIdx := -1
	if opts.Field != "" {
		if _, err := os.Stat(strings.TrimSuffix(path, ".shp") + ".dbf"); err != nil {
			return nil, fmt.Errorf("failed to open attribute table: %w", err)
		}
		fieldIdx = findField(r.Fields(), opts.Field)
		if fieldIdx < 0 {
			return nil, fmt.Errorf("%w: %s", ErrFieldNotFound, opts.Field)
		}
	}

	codes := make(map[string]struct{}, len(opts.Codes))
	for _, c := range opts.Codes {
		codes[strings.TrimSpace(c)] = struct{}{}
	}

	res := &Result{}
	var polys []orb.Polygon
	for r.Next() {
		row, shape := r.Shape()
		res.Records++

		if fieldIdx >= 0 && len(codes) > 0 {
			if _, ok := codes[attribute(r, row, fieldIdx)]; !ok {
				continue
			}
		}
		res.Matched++

		sp, ok := shape.(*shp.Polygon)
		if !ok {
			res.Skipped++
			logger.Warn("Skipping non-polygon shape", "row", row, "type", fmt.Sprintf("%T", shape))
			continue
		}

		converted := partsToPolygons(sp)
		for _, p := range converted {
			g, err := boundary.Reproject(p, t)
			if err != nil {
				return nil, fmt.Errorf("failed to reproject record %d: %w", row, err)
			}
			polys = append(polys, g.(orb.Polygon))
		}
		logger.Debug("Converted shape", "row", row, "parts", sp.NumParts, "points", sp.NumPoints)
	}
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("failed to read shapefile: %w", err)
	}

	geom, err := boundary.Merge(polys)
	if err != nil {
		return nil, fmt.Errorf("no polygons matched in %s: %w", path, err)
	}
	res.Geometry = geom
	res.Polygons = len(boundary.Polygons(geom))
	res.Bounds = boundary.GeometryBounds(geom)

	logger.Info("Loaded boundary",
		"path", path,
		"records", res.Records,
		"matched", res.Matched,
		"polygons", res.Polygons,
		"bounds", res.Bounds.String())

	return res, nil
}

// Fields lists the DBF attribute names of the shapefile at path.
func Fields(path string) ([]string, error) {
	r, err := shp.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open shapefile: %w", err)
	}
	defer r.Close() // nolint:errcheck

	fields := r.Fields()
	names := make([]string, 0, len(fields))
	for _, f := range fields {
		names = append(names, f.String())
	}
	return names, nil
}

// attribute reads a DBF value without its space or NUL padding.
func attribute(r *shp.Reader, row, field int) string {
	return strings.Trim(r.ReadAttribute(row, field), " \x00")
}

func findField(fields []shp.Field, name string) int {
	for i, f := range fields {
		if strings.EqualFold(f.String(), name) {
			return i
		}
	}
	return -1
}

// partsToPolygons groups the parts of a shapefile polygon record. Shapefiles
// store outer rings clockwise and holes counter-clockwise; a hole belongs to
// the outer ring that precedes it.
func partsToPolygons(sp *shp.Polygon) []orb.Polygon {
	var out []orb.Polygon
	for i := 0; i < int(sp.NumParts); i++ {
		start := int(sp.Parts[i])
		end := int(sp.NumPoints)
		if i+1 < int(sp.NumParts) {
			end = int(sp.Parts[i+1])
		}
		if start < 0 || end > len(sp.Points) || end-start < 3 {
			continue
		}

		ring := make(orb.Ring, 0, end-start+1)
		for _, p := range sp.Points[start:end] {
			ring = append(ring, orb.Point{p.X, p.Y})
		}
		if !ring.Closed() {
			ring = append(ring, ring[0])
		}

		if ring.Orientation() == orb.CCW && len(out) > 0 {
			last := len(out) - 1
			out[last] = append(out[last], ring)
			continue
		}
		out = append(out, orb.Polygon{ring})
	}
	return out
}
