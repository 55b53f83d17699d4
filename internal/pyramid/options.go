package pyramid

import (
	"fmt"
	"image/png"
	"log/slog"
	"strings"

	"github.com/MeKo-Tech/pinmap/internal/worker"
	"github.com/disintegration/gift"
	"github.com/paulmach/orb"
)

// MaxZoom is the deepest zoom level the generator accepts.
const MaxZoom = 22

// Options configures a Generator. The zero value renders sequentially with
// Lanczos resampling and default PNG compression; Writer must be set.
type Options struct {
	// Writer receives every encoded tile.
	Writer TileWriter
	// Workers is the number of goroutines rendering tiles of one zoom level.
	// Values below 2 render sequentially.
	Workers int
	// PNGCompression is one of default, speed, best or none.
	PNGCompression string
	// Resampling is one of lanczos, cubic, linear, box or nearest.
	Resampling string
	// Clip limits the tiles to a WGS84 polygon boundary. Pixels outside it
	// are transparent and tiles without covered pixels are skipped.
	Clip orb.Geometry
	Logger     *slog.Logger
	// OnProgress is called after each tile completes, with counts over all
	// zoom levels of the run.
	OnProgress worker.ProgressFunc
}

// ParseResampling maps a resampling name to a gift filter.
func ParseResampling(name string) (gift.Resampling, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "lanczos":
		return gift.LanczosResampling, nil
	case "cubic":
		return gift.CubicResampling, nil
	case "linear":
		return gift.LinearResampling, nil
	case "box":
		return gift.BoxResampling, nil
	case "nearest":
		return gift.NearestNeighborResampling, nil
	default:
		return nil, fmt.Errorf("unknown resampling %q (want lanczos, cubic, linear, box or nearest)", name)
	}
}

// ParseCompression maps a compression name to a PNG compression level.
func ParseCompression(name string) (png.CompressionLevel, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "default":
		return png.DefaultCompression, nil
	case "speed", "fast":
		return png.BestSpeed, nil
	case "best":
		return png.BestCompression, nil
	case "none":
		return png.NoCompression, nil
	default:
		return 0, fmt.Errorf("unknown PNG compression %q (want default, speed, best or none)", name)
	}
}
