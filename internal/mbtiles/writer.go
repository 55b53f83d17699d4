package mbtiles

import (
	"bytes"
	"compress/gzip"
	"database/sql"
	"fmt"
	"sync"

	_ "modernc.org/sqlite" // SQLite driver
)

// DefaultBatchSize is the number of tiles buffered before a transaction is committed.
const DefaultBatchSize = 100

const schema = `
CREATE TABLE IF NOT EXISTS metadata (
	name  TEXT NOT NULL,
	value TEXT
);
CREATE TABLE IF NOT EXISTS tiles (
	zoom_level  INTEGER NOT NULL,
	tile_column INTEGER NOT NULL,
	tile_row    INTEGER NOT NULL,
	tile_data   BLOB NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS tile_index ON tiles (zoom_level, tile_column, tile_row);
`

// Bulk-load settings; a tileset is written once and then only read.
var writerPragmas = []string{
	"PRAGMA journal_mode = WAL",
	"PRAGMA synchronous = NORMAL",
	"PRAGMA cache_size = 50000",
	"PRAGMA temp_store = MEMORY",
}

const insertTileSQL = "INSERT OR REPLACE INTO tiles (zoom_level, tile_column, tile_row, tile_data) VALUES (?, ?, ?, ?)"

// pendingTile is a tile buffered until the next flush, already in TMS rows.
type pendingTile struct {
	z, x, row int
	data      []byte
}

// Option configures a Writer.
type Option func(*Writer)

// WithBatchSize sets how many tiles are buffered per transaction.
// Values below 1 keep the default.
func WithBatchSize(n int) Option {
	return func(w *Writer) {
		if n > 0 {
			w.batchSize = n
		}
	}
}

// Writer writes tiles to an MBTiles database. It is safe for concurrent use.
type Writer struct {
	mu        sync.Mutex
	db        *sql.DB
	metadata  Metadata
	pending   []pendingTile
	batchSize int
	written   int
}

// New creates (or opens) the database at path, ensures the schema and
// stores metadata.
func New(path string, metadata Metadata, opts ...Option) (*Writer, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	w := &Writer{db: db, metadata: metadata, batchSize: DefaultBatchSize}
	for _, opt := range opts {
		opt(w)
	}

	if err := w.init(); err != nil {
		db.Close()
		return nil, err
	}

	w.pending = make([]pendingTile, 0, w.batchSize)
	return w, nil
}

func (w *Writer) init() error {
	for _, pragma := range writerPragmas {
		if _, err := w.db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to set pragma %q: %w", pragma, err)
		}
	}
	if _, err := w.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	if err := withTx(w.db, func(tx *sql.Tx) error { return replaceMetadata(tx, w.metadata) }); err != nil {
		return fmt.Errorf("failed to insert metadata: %w", err)
	}
	return nil
}

// withTx runs fn in a transaction and commits when it returns nil.
func withTx(db *sql.DB, fn func(*sql.Tx) error) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() // nolint:errcheck

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func replaceMetadata(tx *sql.Tx, meta Metadata) error {
	if _, err := tx.Exec("DELETE FROM metadata"); err != nil {
		return fmt.Errorf("failed to clear metadata: %w", err)
	}

	stmt, err := tx.Prepare("INSERT INTO metadata (name, value) VALUES (?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare metadata insert: %w", err)
	}
	defer stmt.Close()

	for key, value := range meta.ToMap() {
		if _, err := stmt.Exec(key, value); err != nil {
			return fmt.Errorf("failed to insert metadata %q: %w", key, err)
		}
	}
	return nil
}

// SetMetadata replaces the stored metadata, e.g. once the final zoom range is known.
func (w *Writer) SetMetadata(meta Metadata) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := withTx(w.db, func(tx *sql.Tx) error { return replaceMetadata(tx, meta) }); err != nil {
		return fmt.Errorf("failed to update metadata: %w", err)
	}
	w.metadata = meta
	return nil
}

// WriteTile buffers the tile at XYZ coordinates and commits the buffer once
// it holds a full batch. Vector (pbf) tiles are gzip-compressed; raster
// tiles are stored as given.
func (w *Writer) WriteTile(z, x, y int, data []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.metadata.Format == "pbf" {
		gz, err := gzipCompress(data)
		if err != nil {
			return fmt.Errorf("failed to compress tile %d/%d/%d: %w", z, x, y, err)
		}
		data = gz
	}

	w.pending = append(w.pending, pendingTile{z: z, x: x, row: flipY(z, y), data: data})
	if len(w.pending) < w.batchSize {
		return nil
	}
	return w.flushLocked()
}

// Written returns the number of tiles committed to the database.
func (w *Writer) Written() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.written
}

// Flush commits any buffered tiles.
func (w *Writer) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.flushLocked()
}

func (w *Writer) flushLocked() error {
	if len(w.pending) == 0 {
		return nil
	}

	err := withTx(w.db, func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(insertTileSQL)
		if err != nil {
			return fmt.Errorf("failed to prepare insert: %w", err)
		}
		defer stmt.Close()

		for _, t := range w.pending {
			if _, err := stmt.Exec(t.z, t.x, t.row, t.data); err != nil {
				return fmt.Errorf("failed to insert tile %d/%d/%d: %w", t.z, t.x, flipY(t.z, t.row), err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	w.written += len(w.pending)
	w.pending = w.pending[:0]
	return nil
}

// Close commits any buffered tiles and closes the database.
func (w *Writer) Close() error {
	flushErr := w.Flush()
	if err := w.db.Close(); err != nil && flushErr == nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return flushErr
}

// flipY converts between XYZ and TMS row numbering; it is its own inverse.
func flipY(z, y int) int {
	return (1 << z) - 1 - y
}

func gzipCompress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	if _, err := gw.Write(data); err != nil {
		gw.Close()
		return nil, err
	}
	if err := gw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
