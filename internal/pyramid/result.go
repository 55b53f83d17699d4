package pyramid

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/MeKo-Tech/pinmap/internal/tile"
	"github.com/dustin/go-humanize"
)

// ZoomStats counts the tiles of one zoom level.
type ZoomStats struct {
	Zoom    int
	Width   int // scaled image width in pixels
	Height  int // scaled image height in pixels
	Tiles   int // tiles in the bounding box range
	Written int
	Skipped int // no overlap with the image
	Failed  int
}

// TileError records a tile that could not be produced.
type TileError struct {
	Coords tile.Coords
	Err    error
}

func (e TileError) Error() string {
	return fmt.Sprintf("tile %s: %v", e.Coords, e.Err)
}

func (e TileError) Unwrap() error {
	return e.Err
}

// Result describes a finished generation run.
type Result struct {
	Zooms    []ZoomStats
	Written  int
	Skipped  int
	Failures []TileError
	Bytes    int64
	Elapsed  time.Duration
}

// Failed returns the number of tiles that could not be produced.
func (r *Result) Failed() int {
	return len(r.Failures)
}

// Summary returns a one-line description of the run.
func (r *Result) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s tiles written", humanize.Comma(int64(r.Written)))
	if r.Skipped > 0 {
		fmt.Fprintf(&b, ", %s skipped", humanize.Comma(int64(r.Skipped)))
	}
	if len(r.Failures) > 0 {
		fmt.Fprintf(&b, ", %d failed", len(r.Failures))
	}
	fmt.Fprintf(&b, " (%s) in %s", humanize.Bytes(uint64(max(r.Bytes, 0))), r.Elapsed.Round(time.Millisecond))
	return b.String()
}

func (r *Result) sortFailures() {
	sort.Slice(r.Failures, func(i, j int) bool {
		a, b := r.Failures[i].Coords, r.Failures[j].Coords
		if a.Z != b.Z {
			return a.Z > b.Z
		}
		if a.X != b.X {
			return a.X < b.X
		}
		return a.Y < b.Y
	})
}
