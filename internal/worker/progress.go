package worker

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
)

// Progress renders a one-line progress bar for a tile run.
type Progress struct {
	startTime time.Time
	output    io.Writer
	counts    Counts
	mu        sync.RWMutex
	enabled   bool
}

// NewProgress creates a progress tracker for total tiles. Nothing is
// printed unless enabled is set.
func NewProgress(total int, enabled bool) *Progress {
	return &Progress{
		counts:    Counts{Total: total},
		startTime: time.Now(),
		output:    os.Stderr,
		enabled:   enabled,
	}
}

// Update records the latest counts.
func (p *Progress) Update(c Counts) {
	p.mu.Lock()
	p.counts = c
	p.mu.Unlock()

	if p.enabled {
		p.Print()
	}
}

// Callback returns a ProgressFunc suitable for use with Pool.Config.
func (p *Progress) Callback() ProgressFunc {
	return p.Update
}

// Counts returns the latest counts.
func (p *Progress) Counts() Counts {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.counts
}

// Print writes the progress line, overwriting the previous one.
func (p *Progress) Print() {
	p.mu.RLock()
	c := p.counts
	elapsed := time.Since(p.startTime)
	p.mu.RUnlock()

	rate := tileRate(c.Completed, elapsed)

	const barWidth = 30
	filled := 0
	if c.Total > 0 {
		filled = min(barWidth, c.Completed*barWidth/c.Total)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "\r[%s%s] %s/%s tiles",
		strings.Repeat("█", filled), strings.Repeat("░", barWidth-filled),
		humanize.Comma(int64(c.Completed)), humanize.Comma(int64(c.Total)))
	if c.Skipped > 0 {
		fmt.Fprintf(&b, " (%d empty)", c.Skipped)
	}
	if c.Failed > 0 {
		fmt.Fprintf(&b, " (%d failed)", c.Failed)
	}
	if c.Bytes > 0 {
		b.WriteString(" " + humanize.Bytes(uint64(c.Bytes)))
	}
	fmt.Fprintf(&b, " - %.1f tiles/sec", rate)

	switch {
	case c.Completed >= c.Total:
		fmt.Fprintf(&b, " - Done in %s", formatDuration(elapsed))
	case rate > 0:
		eta := time.Duration(float64(c.Total-c.Completed)/rate) * time.Second
		fmt.Fprintf(&b, " - ETA: %s", formatDuration(eta))
	}

	// Trailing blanks clear what is left of a longer previous line.
	b.WriteString("          ")

	fmt.Fprint(p.output, b.String())
}

// Done prints the final progress and a newline.
func (p *Progress) Done() {
	if p.enabled {
		p.Print()
		fmt.Fprintln(p.output)
	}
}

// Summary returns a one-line report of the finished run.
func (p *Progress) Summary() string {
	p.mu.RLock()
	c := p.counts
	elapsed := time.Since(p.startTime)
	p.mu.RUnlock()

	return fmt.Sprintf("Wrote %s/%s tiles (%d empty, %d failed, %s) in %s (%.1f tiles/sec)",
		humanize.Comma(int64(c.Written())), humanize.Comma(int64(c.Total)), c.Skipped, c.Failed,
		humanize.Bytes(uint64(max(c.Bytes, 0))), formatDuration(elapsed), tileRate(c.Completed, elapsed))
}

func tileRate(completed int, elapsed time.Duration) float64 {
	if completed == 0 || elapsed <= 0 {
		return 0
	}
	return float64(completed) / elapsed.Seconds()
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.0fs", d.Seconds())
	}
	if d < time.Hour {
		mins := int(d.Minutes())
		secs := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm%ds", mins, secs)
	}
	hours := int(d.Hours())
	mins := int(d.Minutes()) % 60
	return fmt.Sprintf("%dh%dm", hours, mins)
}
