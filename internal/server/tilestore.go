package server

import (
	"errors"
	"fmt"
	"os"

	"github.com/MeKo-Tech/pinmap/internal/mbtiles"
	"github.com/MeKo-Tech/pinmap/internal/pyramid"
	"github.com/MeKo-Tech/pinmap/internal/tile"
	lru "github.com/hashicorp/golang-lru/v2"
)

// TileStore returns encoded tiles. Missing tiles are reported with
// mbtiles.ErrTileNotFound.
type TileStore interface {
	GetTile(c tile.Coords) ([]byte, error)
}

// FolderTileStore reads tiles from a {z}/{x}/{y}.png directory tree.
type FolderTileStore struct {
	folder *pyramid.FolderWriter
}

// NewFolderTileStore serves tiles below dir.
func NewFolderTileStore(dir string) (*FolderTileStore, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open tiles dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("tiles dir %s is not a directory", dir)
	}
	return &FolderTileStore{folder: pyramid.NewFolderWriter(dir)}, nil
}

func (s *FolderTileStore) GetTile(c tile.Coords) ([]byte, error) {
	data, err := os.ReadFile(s.folder.TilePath(int(c.Z), int(c.X), int(c.Y)))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", mbtiles.ErrTileNotFound, c)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read tile %s: %w", c, err)
	}
	return data, nil
}

// MBTilesTileStore reads tiles from an MBTiles database.
type MBTilesTileStore struct {
	reader *mbtiles.Reader
}

// NewMBTilesTileStore opens the database at path.
func NewMBTilesTileStore(path string) (*MBTilesTileStore, error) {
	reader, err := mbtiles.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open MBTiles: %w", err)
	}
	return &MBTilesTileStore{reader: reader}, nil
}

func (s *MBTilesTileStore) GetTile(c tile.Coords) ([]byte, error) {
	return s.reader.ReadTile(int(c.Z), int(c.X), int(c.Y))
}

// Close closes the MBTiles reader.
func (s *MBTilesTileStore) Close() error {
	return s.reader.Close()
}

// CacheTileStore keeps recently served tiles in memory. Misses are not cached.
type CacheTileStore struct {
	next  TileStore
	cache *lru.Cache[tile.Coords, []byte]
}

// NewCacheTileStore wraps next with an LRU cache of size entries.
func NewCacheTileStore(next TileStore, size int) (*CacheTileStore, error) {
	cache, err := lru.New[tile.Coords, []byte](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create tile cache: %w", err)
	}
	return &CacheTileStore{next: next, cache: cache}, nil
}

func (s *CacheTileStore) GetTile(c tile.Coords) ([]byte, error) {
	data, _, err := s.getTile(c)
	return data, err
}

// getTile additionally reports whether the tile came from the cache.
func (s *CacheTileStore) getTile(c tile.Coords) ([]byte, bool, error) {
	if data, ok := s.cache.Get(c); ok {
		return data, true, nil
	}
	data, err := s.next.GetTile(c)
	if err != nil {
		return nil, false, err
	}
	s.cache.Add(c, data)
	return data, false, nil
}

// Len returns the number of cached tiles.
func (s *CacheTileStore) Len() int {
	return s.cache.Len()
}
