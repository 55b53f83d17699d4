package boundary

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// ReadGeoJSON parses a bare geometry, a Feature or a FeatureCollection and
// returns its polygonal content merged into a Polygon or MultiPolygon.
func ReadGeoJSON(data []byte) (orb.Geometry, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("failed to parse GeoJSON: %w", err)
	}

	var polys []orb.Polygon
	switch head.Type {
	case "FeatureCollection":
		fc, err := geojson.UnmarshalFeatureCollection(data)
		if err != nil {
			return nil, fmt.Errorf("failed to parse feature collection: %w", err)
		}
		for _, f := range fc.Features {
			polys = append(polys, Polygons(f.Geometry)...)
		}
	case "Feature":
		f, err := geojson.UnmarshalFeature(data)
		if err != nil {
			return nil, fmt.Errorf("failed to parse feature: %w", err)
		}
		polys = Polygons(f.Geometry)
	case "Polygon", "MultiPolygon", "GeometryCollection":
		g, err := geojson.UnmarshalGeometry(data)
		if err != nil {
			return nil, fmt.Errorf("failed to parse geometry: %w", err)
		}
		polys = Polygons(g.Geometry())
	case "":
		return nil, fmt.Errorf("GeoJSON object has no type member")
	default:
		return nil, fmt.Errorf("%w: GeoJSON type %s", ErrNoPolygons, head.Type)
	}

	return Merge(polys)
}

// ReadGeoJSONFile reads a boundary from disk.
func ReadGeoJSONFile(path string) (orb.Geometry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read boundary file: %w", err)
	}
	g, err := ReadGeoJSON(data)
	if err != nil {
		return nil, fmt.Errorf("failed to load boundary %s: %w", path, err)
	}
	return g, nil
}

// WriteGeoJSON writes g as a single-feature FeatureCollection with
// coordinates rounded to six decimals. g itself is not modified.
func WriteGeoJSON(w io.Writer, g orb.Geometry, props map[string]interface{}) error {
	if g == nil {
		return ErrNoPolygons
	}

	rounded := orb.Round(orb.Clone(g))
	f := geojson.NewFeature(rounded)
	for k, v := range props {
		f.Properties[k] = v
	}
	b := GeometryBounds(rounded)
	if !b.Empty() {
		f.BBox = geojson.NewBBox(b.Bound())
	}

	fc := geojson.NewFeatureCollection()
	fc.Append(f)

	data, err := json.MarshalIndent(fc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal GeoJSON: %w", err)
	}
	data = append(data, '\n')
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write GeoJSON: %w", err)
	}
	return nil
}

// WriteGeoJSONFile writes g to path, replacing any existing file.
func WriteGeoJSONFile(path string, g orb.Geometry, props map[string]interface{}) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := WriteGeoJSON(f, g, props); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	return nil
}
