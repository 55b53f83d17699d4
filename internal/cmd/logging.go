package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"
)

var logger = slog.Default()

// initLogging installs the process logger as the slog default so packages
// without an injected logger share its handler.
func initLogging(format string, verbose bool) error {
	h, err := newLogHandler(os.Stderr, format, verbose)
	if err != nil {
		return err
	}
	logger = slog.New(h)
	slog.SetDefault(logger)
	return nil
}

func newLogHandler(w io.Writer, format string, verbose bool) (slog.Handler, error) {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if verbose {
		opts.Level = slog.LevelDebug
	}

	switch format {
	case "", "text":
		return slog.NewTextHandler(w, opts), nil
	case "json":
		return slog.NewJSONHandler(w, opts), nil
	default:
		return nil, fmt.Errorf("unsupported log format %q (expected text or json)", format)
	}
}
