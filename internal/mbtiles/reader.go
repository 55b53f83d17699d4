package mbtiles

import (
	"bytes"
	"compress/gzip"
	"database/sql"
	"errors"
	"fmt"
	"io"
)

const selectTileSQL = "SELECT tile_data FROM tiles WHERE zoom_level = ? AND tile_column = ? AND tile_row = ?"

// Reader serves tiles from an MBTiles database opened read-only. It is safe
// for concurrent use.
type Reader struct {
	db      *sql.DB
	getTile *sql.Stmt
}

// OpenReader opens the tileset at path and checks that it has a tiles table.
func OpenReader(path string) (*Reader, error) {
	db, err := sql.Open("sqlite", path+"?mode=ro&immutable=1")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	r, err := newReader(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return r, nil
}

func newReader(db *sql.DB) (*Reader, error) {
	var tables int
	if err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'tiles'").Scan(&tables); err != nil {
		return nil, fmt.Errorf("failed to verify schema: %w", err)
	}
	if tables == 0 {
		return nil, errors.New("database does not contain tiles table")
	}

	stmt, err := db.Prepare(selectTileSQL)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare tile query: %w", err)
	}
	return &Reader{db: db, getTile: stmt}, nil
}

// ReadTile returns the tile at XYZ coordinates, gunzipping stored data when
// needed. Missing tiles yield an error wrapping ErrTileNotFound.
func (r *Reader) ReadTile(z, x, y int) ([]byte, error) {
	var data []byte
	switch err := r.getTile.QueryRow(z, x, flipY(z, y)).Scan(&data); {
	case errors.Is(err, sql.ErrNoRows):
		return nil, fmt.Errorf("%w: %d/%d/%d", ErrTileNotFound, z, x, y)
	case err != nil:
		return nil, fmt.Errorf("failed to query tile %d/%d/%d: %w", z, x, y, err)
	}

	if !isGzip(data) {
		return data, nil
	}
	raw, err := gunzip(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress tile %d/%d/%d: %w", z, x, y, err)
	}
	return raw, nil
}

// Count returns the number of stored tiles.
func (r *Reader) Count() (int, error) {
	var n int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM tiles").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count tiles: %w", err)
	}
	return n, nil
}

// Metadata returns the parsed metadata table.
func (r *Reader) Metadata() (Metadata, error) {
	rows, err := r.db.Query("SELECT name, value FROM metadata")
	if err != nil {
		return Metadata{}, fmt.Errorf("failed to query metadata: %w", err)
	}
	defer rows.Close()

	values := make(map[string]string)
	for rows.Next() {
		var (
			name  string
			value sql.NullString
		)
		if err := rows.Scan(&name, &value); err != nil {
			return Metadata{}, fmt.Errorf("failed to scan metadata: %w", err)
		}
		values[name] = value.String
	}
	if err := rows.Err(); err != nil {
		return Metadata{}, fmt.Errorf("failed to read metadata: %w", err)
	}
	return ParseMetadata(values), nil
}

// Close releases the prepared query and the database.
func (r *Reader) Close() error {
	stmtErr := r.getTile.Close()
	if err := r.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return stmtErr
}

// isGzip checks the gzip magic bytes.
func isGzip(data []byte) bool {
	return len(data) > 2 && data[0] == 0x1f && data[1] == 0x8b
}

func gunzip(data []byte) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return io.ReadAll(zr)
}
