package pyramid

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// TileWriter stores encoded tiles. Implementations must be safe for
// concurrent use when the generator runs with more than one worker.
type TileWriter interface {
	WriteTile(z, x, y int, data []byte) error
}

// FolderWriter writes tiles to {Root}/{z}/{x}/{y}.png.
type FolderWriter struct {
	Root string
}

// NewFolderWriter returns a writer rooted at dir.
func NewFolderWriter(dir string) *FolderWriter {
	return &FolderWriter{Root: dir}
}

// TilePath returns the file path of a tile.
func (w *FolderWriter) TilePath(z, x, y int) string {
	return filepath.Join(w.Root, strconv.Itoa(z), strconv.Itoa(x), strconv.Itoa(y)+".png")
}

// WriteTile implements TileWriter, creating directories as needed.
func (w *FolderWriter) WriteTile(z, x, y int, data []byte) error {
	path := w.TilePath(z, x, y)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create tile dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write tile %s: %w", path, err)
	}
	return nil
}
