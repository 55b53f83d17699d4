package cmd

import (
	"context"
	"fmt"
	"math"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"strings"
	"syscall"

	"github.com/MeKo-Tech/pinmap/internal/mbtiles"
	"github.com/MeKo-Tech/pinmap/internal/pyramid"
	"github.com/MeKo-Tech/pinmap/internal/tile"
	"github.com/MeKo-Tech/pinmap/internal/types"
	"github.com/MeKo-Tech/pinmap/internal/worker"
	"github.com/paulmach/orb"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a tile pyramid from a map image",
	Long: `Generate Slippy-Map tiles for a map image covering a bounding box.

The image is resampled once to its pixel size at --zoom-max and every
shallower zoom level is derived from that master image.`,
	RunE: runGenerate,
}

func init() {
	rootCmd.AddCommand(generateCmd)

	generateCmd.Flags().String("image", "", "Source map image (PNG, JPEG, GIF, WebP, BMP or TIFF)")
	generateCmd.Flags().String("bbox", "", "Bounding box: swLat,swLng,neLat,neLng (e.g., \"50.0,19.0,50.01,19.01\")")
	generateCmd.Flags().Int("zoom-min", 0, "Minimum zoom level")
	generateCmd.Flags().Int("zoom-max", -1, "Maximum zoom level (required)")
	generateCmd.Flags().IntP("workers", "w", 0, "Number of parallel workers (default: number of CPUs)")
	generateCmd.Flags().Bool("progress", true, "Show progress bar during generation")
	generateCmd.Flags().Bool("allow-failures", false, "Exit successfully even if some tiles fail")
	generateCmd.Flags().String("png-compression", "default", "PNG compression (default, speed, best, none)")
	generateCmd.Flags().String("resampling", "lanczos", "Resampling filter (lanczos, cubic, linear, box, nearest)")
	generateCmd.Flags().String("clip", "", "Boundary file (GeoJSON or .shp); pixels outside it are transparent")
	generateCmd.Flags().String("clip-crs", "", "CRS of the clip boundary (default: WGS84 for GeoJSON, EPSG:2180 for shapefiles)")

	generateCmd.Flags().String("format", "folder", "Output format: folder or mbtiles")
	generateCmd.Flags().String("output-file", "", "Output file path for MBTiles format (e.g., overlay.mbtiles)")
	generateCmd.Flags().String("name", "PinMap", "Tileset name written to MBTiles metadata")

	bindFlags := []struct {
		key  string
		flag string
	}{
		{"generate.image", "image"},
		{"generate.bbox", "bbox"},
		{"generate.zoom_min", "zoom-min"},
		{"generate.zoom_max", "zoom-max"},
		{"generate.workers", "workers"},
		{"generate.progress", "progress"},
		{"generate.allow_failures", "allow-failures"},
		{"generate.png_compression", "png-compression"},
		{"generate.resampling", "resampling"},
		{"generate.clip", "clip"},
		{"generate.clip_crs", "clip-crs"},
		{"generate.format", "format"},
		{"generate.output_file", "output-file"},
		{"generate.name", "name"},
	}

	for _, bf := range bindFlags {
		if err := viper.BindPFlag(bf.key, generateCmd.Flags().Lookup(bf.flag)); err != nil {
			panic(fmt.Sprintf("failed to bind flag %s: %v", bf.flag, err))
		}
	}
}

// generateConfig collects the settings of one generate run.
type generateConfig struct {
	ImagePath      string
	BBox           types.BoundingBox
	ZoomMin        int
	ZoomMax        int
	Workers        int
	PNGCompression string
	Resampling     string
	Clip           orb.Geometry
	Format         string
	OutputDir      string
	OutputFile     string
	Name           string
	OnProgress     worker.ProgressFunc
}

func runGenerate(cmd *cobra.Command, args []string) error {
	imagePath := viper.GetString("generate.image")
	bboxStr := viper.GetString("generate.bbox")
	zoomMin := viper.GetInt("generate.zoom_min")
	zoomMax := viper.GetInt("generate.zoom_max")
	workers := viper.GetInt("generate.workers")
	showProgress := viper.GetBool("generate.progress")
	allowFailures := viper.GetBool("generate.allow_failures")

	if imagePath == "" {
		return fmt.Errorf("--image is required")
	}
	if bboxStr == "" {
		return fmt.Errorf("--bbox is required")
	}
	if zoomMax < 0 {
		return fmt.Errorf("--zoom-max is required")
	}
	if zoomMin > zoomMax {
		return fmt.Errorf("--zoom-min (%d) must be <= --zoom-max (%d)", zoomMin, zoomMax)
	}

	bbox, err := parseBBox(bboxStr)
	if err != nil {
		return fmt.Errorf("invalid bbox: %w", err)
	}

	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	// Setup context with signal handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			logger.Info("Received interrupt signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
	}()

	var clip orb.Geometry
	if path := viper.GetString("generate.clip"); path != "" {
		clip, err = loadBoundary(regionConfig{Boundary: path, CRS: viper.GetString("generate.clip_crs")}, logger)
		if err != nil {
			return fmt.Errorf("failed to load clip boundary: %w", err)
		}
	}

	progress := worker.NewProgress(tile.TileCount(bbox, zoomMin, zoomMax), showProgress)

	cfg := generateConfig{
		ImagePath:      imagePath,
		BBox:           bbox,
		ZoomMin:        zoomMin,
		ZoomMax:        zoomMax,
		Workers:        workers,
		PNGCompression: viper.GetString("generate.png_compression"),
		Resampling:     viper.GetString("generate.resampling"),
		Clip:           clip,
		Format:         viper.GetString("generate.format"),
		OutputDir:      viper.GetString("output-dir"),
		OutputFile:     viper.GetString("generate.output_file"),
		Name:           viper.GetString("generate.name"),
		OnProgress:     progress.Callback(),
	}

	res, err := generatePyramid(ctx, cfg)
	progress.Done()
	if err != nil {
		return err
	}

	logger.Info(progress.Summary())
	for _, z := range res.Zooms {
		logger.Debug("Zoom level done",
			"zoom", z.Zoom,
			"image", fmt.Sprintf("%dx%d", z.Width, z.Height),
			"tiles", z.Tiles,
			"written", z.Written,
			"skipped", z.Skipped,
			"failed", z.Failed)
	}

	if failed := res.Failed(); failed > 0 {
		if !allowFailures {
			return fmt.Errorf("%d tiles failed to generate", failed)
		}
		logger.Warn("Some tiles failed to generate, but continuing due to --allow-failures flag", "failed_count", failed)
	}
	return nil
}

// generatePyramid renders cfg.ImagePath into the configured output.
func generatePyramid(ctx context.Context, cfg generateConfig) (*pyramid.Result, error) {
	if cfg.Format != "folder" && cfg.Format != "mbtiles" {
		return nil, fmt.Errorf("invalid format %q: must be 'folder' or 'mbtiles'", cfg.Format)
	}
	if cfg.Format == "mbtiles" && cfg.OutputFile == "" {
		return nil, fmt.Errorf("--output-file is required when using --format=mbtiles")
	}

	data, err := os.ReadFile(cfg.ImagePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}

	log := logger

	var (
		writer   pyramid.TileWriter
		mbWriter *mbtiles.Writer
	)
	switch cfg.Format {
	case "mbtiles":
		mbWriter, err = mbtiles.New(cfg.OutputFile, mbtiles.OverlayMetadata(cfg.Name, cfg.BBox, cfg.ZoomMin, cfg.ZoomMax))
		if err != nil {
			return nil, fmt.Errorf("failed to create MBTiles writer: %w", err)
		}
		defer mbWriter.Close()
		writer = mbWriter
	default:
		writer = pyramid.NewFolderWriter(cfg.OutputDir)
	}

	log.Info("Starting tile generation",
		"image", cfg.ImagePath,
		"bbox", cfg.BBox.String(),
		"zoom_range", fmt.Sprintf("%d-%d", cfg.ZoomMin, cfg.ZoomMax),
		"tiles", tile.TileCount(cfg.BBox, cfg.ZoomMin, cfg.ZoomMax),
		"workers", cfg.Workers,
		"format", cfg.Format,
	)

	gen, err := pyramid.NewGenerator(pyramid.Options{
		Writer:         writer,
		Workers:        cfg.Workers,
		PNGCompression: cfg.PNGCompression,
		Resampling:     cfg.Resampling,
		Clip:           cfg.Clip,
		Logger:         log,
		OnProgress:     cfg.OnProgress,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to init generator: %w", err)
	}

	res, err := gen.Generate(ctx, data, cfg.BBox, cfg.ZoomMin, cfg.ZoomMax)
	if err != nil {
		return res, fmt.Errorf("failed to generate tiles: %w", err)
	}

	if mbWriter != nil {
		log.Info("Flushing MBTiles database...")
		if err := mbWriter.Flush(); err != nil {
			return res, fmt.Errorf("failed to flush MBTiles: %w", err)
		}
		log.Info("MBTiles generation complete", "output", cfg.OutputFile, "tiles", mbWriter.Written())
	}

	return res, nil
}

// parseBBox parses a bounding box string "swLat,swLng,neLat,neLng".
// Corner ordering is not checked; a box without area renders nothing.
func parseBBox(s string) (types.BoundingBox, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return types.BoundingBox{}, fmt.Errorf("expected 4 comma-separated values, got %d", len(parts))
	}

	var vals [4]float64
	for i, part := range parts {
		val, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return types.BoundingBox{}, fmt.Errorf("invalid number at position %d: %w", i, err)
		}
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return types.BoundingBox{}, fmt.Errorf("non-finite number at position %d", i)
		}
		vals[i] = val
	}

	bbox := types.BoundingBox{SWLat: vals[0], SWLng: vals[1], NELat: vals[2], NELng: vals[3]}
	if math.Abs(bbox.SWLat) > 90 || math.Abs(bbox.NELat) > 90 {
		return types.BoundingBox{}, fmt.Errorf("latitude out of range in %s", s)
	}
	if math.Abs(bbox.SWLng) > 180 || math.Abs(bbox.NELng) > 180 {
		return types.BoundingBox{}, fmt.Errorf("longitude out of range in %s", s)
	}
	return bbox, nil
}
