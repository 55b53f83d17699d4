package cmd

import (
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/MeKo-Tech/pinmap/internal/mbtiles"
	"github.com/MeKo-Tech/pinmap/internal/tile"
	"github.com/MeKo-Tech/pinmap/internal/types"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var convertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Convert folder tiles to MBTiles format",
	Long:  `Convert an existing {z}/{x}/{y}.png tile folder to an MBTiles database.`,
	RunE:  runConvert,
}

func init() {
	rootCmd.AddCommand(convertCmd)

	convertCmd.Flags().String("input-dir", "./tiles", "Input directory containing tiles")
	convertCmd.Flags().StringP("output", "o", "", "Output MBTiles file path (required)")
	convertCmd.Flags().String("name", "PinMap", "Tileset name")
	convertCmd.Flags().String("description", "Map image overlay", "Tileset description")
	convertCmd.Flags().String("attribution", "", "Attribution text")
	convertCmd.Flags().String("bounds", "", "Bounding box: swLat,swLng,neLat,neLng (default: extent of the deepest zoom)")

	bindFlags := []struct {
		key  string
		flag string
	}{
		{"convert.input_dir", "input-dir"},
		{"convert.output", "output"},
		{"convert.name", "name"},
		{"convert.description", "description"},
		{"convert.attribution", "attribution"},
		{"convert.bounds", "bounds"},
	}

	for _, bf := range bindFlags {
		if err := viper.BindPFlag(bf.key, convertCmd.Flags().Lookup(bf.flag)); err != nil {
			panic(fmt.Sprintf("failed to bind flag %s: %v", bf.flag, err))
		}
	}
}

// convertConfig collects the settings of one convert run.
type convertConfig struct {
	InputDir    string
	Output      string
	Name        string
	Description string
	Attribution string
	Bounds      string
}

func runConvert(cmd *cobra.Command, args []string) error {
	cfg := convertConfig{
		InputDir:    viper.GetString("convert.input_dir"),
		Output:      viper.GetString("convert.output"),
		Name:        viper.GetString("convert.name"),
		Description: viper.GetString("convert.description"),
		Attribution: viper.GetString("convert.attribution"),
		Bounds:      viper.GetString("convert.bounds"),
	}

	n, err := convertFolder(cfg)
	if err != nil {
		return err
	}
	logger.Info("Conversion complete", "output", cfg.Output, "tiles", n)
	return nil
}

// convertFolder copies every tile below cfg.InputDir into a new MBTiles
// database and returns the number of tiles written.
func convertFolder(cfg convertConfig) (int, error) {
	if cfg.Output == "" {
		return 0, fmt.Errorf("--output is required")
	}
	if _, err := os.Stat(cfg.InputDir); os.IsNotExist(err) {
		return 0, fmt.Errorf("input directory does not exist: %s", cfg.InputDir)
	}

	tiles, minZoom, maxZoom, err := scanTilesDirectory(cfg.InputDir)
	if err != nil {
		return 0, fmt.Errorf("failed to scan tiles directory: %w", err)
	}
	if len(tiles) == 0 {
		return 0, fmt.Errorf("no tiles found in %s", cfg.InputDir)
	}
	if logger != nil {
		logger.Info("Found tiles", "count", len(tiles), "min_zoom", minZoom, "max_zoom", maxZoom)
	}

	var bbox types.BoundingBox
	if cfg.Bounds != "" {
		bbox, err = parseBBox(cfg.Bounds)
		if err != nil {
			return 0, fmt.Errorf("invalid bounds: %w", err)
		}
	} else {
		bbox = tilesExtent(tiles, maxZoom)
	}

	metadata := mbtiles.OverlayMetadata(cfg.Name, bbox, minZoom, maxZoom)
	metadata.Description = cfg.Description
	metadata.Attribution = cfg.Attribution

	writer, err := mbtiles.New(cfg.Output, metadata)
	if err != nil {
		return 0, fmt.Errorf("failed to create MBTiles writer: %w", err)
	}
	defer writer.Close()

	for i, ti := range tiles {
		data, err := os.ReadFile(ti.path)
		if err != nil {
			return 0, fmt.Errorf("failed to read tile %s: %w", ti.path, err)
		}
		if err := writer.WriteTile(int(ti.coords.Z), int(ti.coords.X), int(ti.coords.Y), data); err != nil {
			return 0, fmt.Errorf("failed to write tile %s: %w", ti.coords, err)
		}

		if logger != nil && (i+1)%1000 == 0 {
			logger.Info("Progress", "converted", i+1, "total", len(tiles))
		}
	}

	if err := writer.Flush(); err != nil {
		return 0, fmt.Errorf("failed to flush tiles: %w", err)
	}
	return writer.Written(), nil
}

type tileInfo struct {
	coords tile.Coords
	path   string
}

// scanTilesDirectory collects {z}/{x}/{y}.png files below dir. Other files
// are ignored.
func scanTilesDirectory(dir string) ([]tileInfo, int, int, error) {
	var tiles []tileInfo
	minZoom := math.MaxInt
	maxZoom := 0

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		name, ok := strings.CutSuffix(filepath.ToSlash(rel), ".png")
		if !ok || strings.Count(name, "/") != 2 {
			return nil
		}
		c, err := tile.ParseCoords(name)
		if err != nil {
			return nil
		}

		tiles = append(tiles, tileInfo{coords: c, path: path})
		minZoom = min(minZoom, int(c.Z))
		maxZoom = max(maxZoom, int(c.Z))
		return nil
	})
	if err != nil {
		return nil, 0, 0, err
	}

	if len(tiles) == 0 {
		minZoom, maxZoom = 0, 0
	}
	return tiles, minZoom, maxZoom, nil
}

// tilesExtent returns the geographic extent of the tiles at zoom.
func tilesExtent(tiles []tileInfo, zoom int) types.BoundingBox {
	bbox := types.EmptyBounds()
	for _, ti := range tiles {
		if int(ti.coords.Z) == zoom {
			bbox = bbox.Union(ti.coords.Bounds())
		}
	}
	return bbox
}
