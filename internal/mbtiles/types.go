// Package mbtiles stores tile pyramids in MBTiles 1.3 SQLite databases.
package mbtiles

import (
	"errors"
	"strconv"
	"strings"

	"github.com/MeKo-Tech/pinmap/internal/types"
)

// ErrTileNotFound is returned by Reader.ReadTile for tiles absent from the tileset.
var ErrTileNotFound = errors.New("tile not found")

// Metadata contains MBTiles metadata fields.
type Metadata struct {
	Name        string // Human-readable tileset identifier
	Format      string // Tile data type (png, jpg, webp, pbf)
	Attribution string
	Description string
	Type        string // "baselayer" or "overlay"
	Version     string
	Bounds      [4]float64 // minLon, minLat, maxLon, maxLat
	Center      [3]float64 // lon, lat, zoom
	MinZoom     int
	MaxZoom     int
}

// OverlayMetadata describes a raster overlay generated for bbox.
func OverlayMetadata(name string, bbox types.BoundingBox, minZoom, maxZoom int) Metadata {
	lat, lng := bbox.Center()
	return Metadata{
		Name:    name,
		Format:  "png",
		Type:    "overlay",
		Version: "1.0",
		Bounds:  bbox.LonLatBounds(),
		Center:  [3]float64{lng, lat, float64(minZoom + (maxZoom-minZoom)/2)},
		MinZoom: minZoom,
		MaxZoom: maxZoom,
	}
}

// BBox returns the bounds as a BoundingBox.
func (m Metadata) BBox() types.BoundingBox {
	return types.BoundingBox{SWLat: m.Bounds[1], SWLng: m.Bounds[0], NELat: m.Bounds[3], NELng: m.Bounds[2]}
}

// ToMap converts Metadata to a map for database insertion.
// Zoom levels are always present; zero is a valid minimum zoom.
func (m Metadata) ToMap() map[string]string {
	result := map[string]string{
		"minzoom": strconv.Itoa(m.MinZoom),
		"maxzoom": strconv.Itoa(m.MaxZoom),
	}

	set := func(key, value string) {
		if value != "" {
			result[key] = value
		}
	}
	set("name", m.Name)
	set("format", m.Format)
	set("attribution", m.Attribution)
	set("description", m.Description)
	set("type", m.Type)
	set("version", m.Version)

	if m.Bounds != [4]float64{} {
		result["bounds"] = joinFloats(m.Bounds[:])
	}
	if m.Center != [3]float64{} {
		result["center"] = joinFloats(m.Center[:2]) + "," + strconv.Itoa(int(m.Center[2]))
	}

	return result
}

// ParseMetadata is the inverse of ToMap. Malformed numeric values are ignored.
func ParseMetadata(values map[string]string) Metadata {
	meta := Metadata{
		Name:        values["name"],
		Format:      values["format"],
		Attribution: values["attribution"],
		Description: values["description"],
		Type:        values["type"],
		Version:     values["version"],
	}

	if i, err := strconv.Atoi(values["minzoom"]); err == nil {
		meta.MinZoom = i
	}
	if i, err := strconv.Atoi(values["maxzoom"]); err == nil {
		meta.MaxZoom = i
	}
	if f, ok := splitFloats(values["bounds"], 4); ok {
		copy(meta.Bounds[:], f)
	}
	if f, ok := splitFloats(values["center"], 3); ok {
		copy(meta.Center[:], f)
	}

	return meta
}

func joinFloats(fs []float64) string {
	parts := make([]string, len(fs))
	for i, f := range fs {
		parts[i] = strconv.FormatFloat(f, 'f', 6, 64)
	}
	return strings.Join(parts, ",")
}

func splitFloats(s string, n int) ([]float64, bool) {
	parts := strings.Split(s, ",")
	if len(parts) != n {
		return nil, false
	}
	out := make([]float64, n)
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, false
		}
		out[i] = f
	}
	return out, true
}
