// Package pyramid slices a geo-referenced raster into a Slippy-Map tile
// pyramid of 256×256 PNG tiles.
//
// The source is resampled once to its pixel footprint at the deepest zoom
// (the master). Every shallower zoom is derived from the master by halving,
// never from the original, and cut into tiles aligned to the global
// Web Mercator pixel grid. Fractional pixel positions and sizes are rounded
// half-up; tile indices are floored.
package pyramid

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"log/slog"
	"math"
	"time"

	"github.com/MeKo-Tech/pinmap/internal/raster"
	"github.com/MeKo-Tech/pinmap/internal/tile"
	"github.com/MeKo-Tech/pinmap/internal/types"
	"github.com/MeKo-Tech/pinmap/internal/worker"
	"github.com/disintegration/gift"
)

// ErrInvalidZoomRange is returned when the zoom range is empty or outside 0..MaxZoom.
var ErrInvalidZoomRange = errors.New("invalid zoom range")

// Generator renders tile pyramids. It is safe to reuse for several runs.
type Generator struct {
	writer     TileWriter
	logger     *slog.Logger
	onProgress worker.ProgressFunc
	resampling gift.Resampling
	encoder    *png.Encoder
	clip       *raster.Mask
	workers    int
}

// NewGenerator validates the options and prepares a generator.
func NewGenerator(opts Options) (*Generator, error) {
	if opts.Writer == nil {
		return nil, fmt.Errorf("tile writer is required")
	}
	resampling, err := ParseResampling(opts.Resampling)
	if err != nil {
		return nil, err
	}
	level, err := ParseCompression(opts.PNGCompression)
	if err != nil {
		return nil, err
	}

	var clip *raster.Mask
	if opts.Clip != nil {
		clip, err = raster.NewMask(opts.Clip)
		if err != nil {
			return nil, fmt.Errorf("invalid clip boundary: %w", err)
		}
	}

	return &Generator{
		clip:       clip,
		writer:     opts.Writer,
		logger:     opts.Logger,
		onProgress: opts.OnProgress,
		resampling: resampling,
		encoder:    &png.Encoder{CompressionLevel: level},
		workers:    max(opts.Workers, 1),
	}, nil
}

// level is the scaled image of one zoom placed on the global pixel grid.
type level struct {
	zoom   int
	img    image.Image
	origin image.Point // global pixel position of the image's top-left corner
}

func (l *level) rect() image.Rectangle {
	return image.Rectangle{Min: l.origin, Max: l.origin.Add(l.img.Bounds().Size())}
}

// Generate decodes the source raster and renders tiles for every zoom from
// maxZoom down to minZoom. Per-tile failures are logged and reported in the
// result; only invalid input aborts the run.
func (g *Generator) Generate(ctx context.Context, data []byte, bbox types.BoundingBox, minZoom, maxZoom int) (*Result, error) {
	if err := validateZoomRange(minZoom, maxZoom); err != nil {
		return nil, err
	}

	src, format, err := DecodeSource(data)
	if err != nil {
		return nil, err
	}
	g.log().Debug("Decoded source image", "format", format, "width", src.Bounds().Dx(), "height", src.Bounds().Dy())

	return g.GenerateImage(ctx, src, bbox, minZoom, maxZoom)
}

// GenerateImage is Generate for an already decoded source.
func (g *Generator) GenerateImage(ctx context.Context, src image.Image, bbox types.BoundingBox, minZoom, maxZoom int) (*Result, error) {
	start := time.Now()
	res := &Result{}

	if err := validateZoomRange(minZoom, maxZoom); err != nil {
		return nil, err
	}
	if src == nil || src.Bounds().Empty() {
		return nil, ErrEmptySource
	}
	for _, v := range []float64{bbox.SWLat, bbox.SWLng, bbox.NELat, bbox.NELng} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("invalid bounding box %s: non-finite coordinate", bbox)
		}
	}
	if bbox.Degenerate() {
		g.log().Warn("Bounding box has no area; nothing to render", "bbox", bbox.String())
		return res, nil
	}
	bbox = clampLatitude(bbox)

	masterW, masterH := pixelSpan(bbox, maxZoom)
	if masterW <= 0 || masterH <= 0 {
		g.log().Warn("Bounding box is smaller than a pixel at the maximum zoom", "bbox", bbox.String(), "zoom", maxZoom)
		return res, nil
	}

	g.log().Info("Resampling master image",
		"source", fmt.Sprintf("%dx%d", src.Bounds().Dx(), src.Bounds().Dy()),
		"master", fmt.Sprintf("%dx%d", masterW, masterH),
		"zoom", maxZoom)
	master := g.resize(src, masterW, masterH)

	base := worker.Counts{Total: tile.TileCount(bbox, minZoom, maxZoom)}
	for z := maxZoom; z >= minZoom; z-- {
		if err := ctx.Err(); err != nil {
			return res, fmt.Errorf("generation cancelled at zoom %d: %w", z, err)
		}

		stats, err := g.renderZoom(ctx, res, master, bbox, z, maxZoom-z, g.zoomProgress(base))
		res.Zooms = append(res.Zooms, stats)
		base.Completed += stats.Tiles
		base.Failed += stats.Failed
		base.Skipped += stats.Skipped
		base.Bytes = res.Bytes
		if err != nil {
			return res, err
		}
	}

	res.sortFailures()
	res.Elapsed = time.Since(start)
	g.log().Info("Tile pyramid complete", "summary", res.Summary())
	return res, nil
}

func (g *Generator) renderZoom(ctx context.Context, res *Result, master image.Image, bbox types.BoundingBox, zoom, shift int, onProgress worker.ProgressFunc) (ZoomStats, error) {
	stats := ZoomStats{Zoom: zoom}

	divisor := math.Exp2(float64(shift))
	w := tile.RoundPx(float64(master.Bounds().Dx()) / divisor)
	h := tile.RoundPx(float64(master.Bounds().Dy()) / divisor)
	stats.Width, stats.Height = w, h
	if w <= 0 || h <= 0 {
		g.log().Debug("Image vanishes at zoom; skipping", "zoom", zoom)
		return stats, nil
	}

	img := master
	if shift > 0 {
		img = g.resize(master, w, h)
	}

	px, py := tile.LatLngToPixel(bbox.NELat, bbox.SWLng, zoom)
	lvl := &level{
		zoom:   zoom,
		img:    img,
		origin: image.Pt(tile.RoundPx(px), tile.RoundPx(py)),
	}

	tr := tile.RangeForBounds(bbox, zoom)
	stats.Tiles = tr.Count()
	g.log().Info("Rendering zoom level",
		"zoom", zoom,
		"tiles", stats.Tiles,
		"image", fmt.Sprintf("%dx%d", w, h),
		"origin", lvl.origin.String())

	tasks := make([]worker.Task, 0, stats.Tiles)
	tr.ForEach(func(c tile.Coords) {
		tasks = append(tasks, worker.Task{Coords: c})
	})

	pool := worker.New(worker.Config{
		Workers: g.workers,
		Renderer: worker.RenderFunc(func(ctx context.Context, c tile.Coords) (int, error) {
			return g.renderTile(lvl, c)
		}),
		OnProgress: onProgress,
	})

	var cancelled error
	for _, r := range pool.Run(ctx, tasks) {
		switch {
		case r.Err != nil && ctx.Err() != nil && errors.Is(r.Err, ctx.Err()):
			cancelled = r.Err
		case r.Err != nil:
			stats.Failed++
			res.Failures = append(res.Failures, TileError{Coords: r.Task.Coords, Err: r.Err})
			g.log().Error("Failed to render tile", "coords", r.Task.Coords.String(), "error", r.Err)
		case r.Skipped():
			stats.Skipped++
		default:
			stats.Written++
			res.Bytes += int64(r.Bytes)
		}
	}
	res.Written += stats.Written
	res.Skipped += stats.Skipped

	if cancelled != nil {
		return stats, fmt.Errorf("generation cancelled at zoom %d: %w", zoom, cancelled)
	}
	return stats, nil
}

// renderTile cuts one tile out of the level image. It returns the number of
// bytes handed to the writer, or zero when the tile does not overlap the image
// (or the clip boundary).
func (g *Generator) renderTile(lvl *level, c tile.Coords) (int, error) {
	tileRect := tile.TilePixelRect(int(c.X), int(c.Y), lvl.zoom)
	overlap := tileRect.Intersect(lvl.rect())
	if overlap.Empty() {
		return 0, nil
	}

	dst := overlap.Sub(tileRect.Min)
	sp := overlap.Min.Sub(lvl.origin).Add(lvl.img.Bounds().Min)

	var mask *image.Alpha
	if g.clip != nil {
		mask = g.clip.Render(lvl.zoom, tileRect)
		if mask == nil || !covers(mask, dst) {
			return 0, nil
		}
	}

	canvas := image.NewNRGBA(image.Rect(0, 0, tile.Size, tile.Size))
	if mask != nil {
		draw.DrawMask(canvas, dst, lvl.img, sp, mask, dst.Min, draw.Src)
	} else {
		draw.Draw(canvas, dst, lvl.img, sp, draw.Src)
	}

	var buf bytes.Buffer
	if err := g.encoder.Encode(&buf, canvas); err != nil {
		return 0, fmt.Errorf("failed to encode tile: %w", err)
	}
	if err := g.writer.WriteTile(int(c.Z), int(c.X), int(c.Y), buf.Bytes()); err != nil {
		return 0, fmt.Errorf("failed to write tile: %w", err)
	}
	return buf.Len(), nil
}

// covers reports whether any pixel of r is inside the mask.
func covers(mask *image.Alpha, r image.Rectangle) bool {
	r = r.Intersect(mask.Bounds())
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			if mask.AlphaAt(x, y).A != 0 {
				return true
			}
		}
	}
	return false
}

// zoomProgress offsets the counts of one zoom level's pool by the levels
// already rendered, so that the callback sees a single run.
func (g *Generator) zoomProgress(base worker.Counts) worker.ProgressFunc {
	if g.onProgress == nil {
		return nil
	}
	return func(c worker.Counts) {
		g.onProgress(worker.Counts{
			Completed: base.Completed + c.Completed,
			Total:     base.Total,
			Failed:    base.Failed + c.Failed,
			Skipped:   base.Skipped + c.Skipped,
			Bytes:     base.Bytes + c.Bytes,
		})
	}
}

func (g *Generator) resize(src image.Image, w, h int) image.Image {
	f := gift.New(gift.Resize(w, h, g.resampling))
	dst := image.NewNRGBA(f.Bounds(src.Bounds()))
	f.Draw(dst, src)
	return dst
}

func (g *Generator) log() *slog.Logger {
	if g.logger != nil {
		return g.logger
	}
	return slog.Default()
}

// pixelSpan returns the pixel size of bbox at zoom, measured between the
// rounded corners so the image edges land where the origin rounding puts them.
func pixelSpan(bbox types.BoundingBox, zoom int) (int, int) {
	nwX, nwY := tile.LatLngToPixel(bbox.NELat, bbox.SWLng, zoom)
	seX, seY := tile.LatLngToPixel(bbox.SWLat, bbox.NELng, zoom)
	return tile.RoundPx(seX) - tile.RoundPx(nwX), tile.RoundPx(seY) - tile.RoundPx(nwY)
}

func clampLatitude(b types.BoundingBox) types.BoundingBox {
	b.SWLat = math.Max(b.SWLat, -tile.MaxLatitude)
	b.NELat = math.Min(b.NELat, tile.MaxLatitude)
	return b
}

func validateZoomRange(minZoom, maxZoom int) error {
	if minZoom < 0 || maxZoom > MaxZoom || minZoom > maxZoom {
		return fmt.Errorf("%w: %d..%d (want 0 <= min <= max <= %d)", ErrInvalidZoomRange, minZoom, maxZoom, MaxZoom)
	}
	return nil
}

// Generate is a convenience wrapper that renders into a folder with default options.
func Generate(ctx context.Context, data []byte, bbox types.BoundingBox, minZoom, maxZoom int, outputDir string) (*Result, error) {
	g, err := NewGenerator(Options{Writer: NewFolderWriter(outputDir)})
	if err != nil {
		return nil, err
	}
	return g.Generate(ctx, data, bbox, minZoom, maxZoom)
}
