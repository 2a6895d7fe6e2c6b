// Package cache stores JSON documents in per-ID files under a base
// directory, sharded by ID prefix to keep directories small.
package cache

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Type names the subdirectory a cache writes under.
type Type string

// SessionCache holds the transcripts of saved chat sessions.
const SessionCache Type = "sessions"

const (
	cacheExt       = ".json"
	shardPrefixLen = 2
)

var errInvalidID = errors.New("invalid id")

// Cache reads and writes files of type T under baseDir/<type>/<shard>/.
type Cache[T any] struct {
	dir string
}

// New creates the cache directory if needed and returns a cache rooted
// there.
func New[T any](baseDir string, t Type) (*Cache[T], error) {
	dir := filepath.Join(baseDir, string(t))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}
	return &Cache[T]{dir: dir}, nil
}

func (c *Cache[T]) filePath(id string) string {
	if len(id) < shardPrefixLen {
		return filepath.Join(c.dir, id+cacheExt)
	}
	return filepath.Join(c.dir, id[:shardPrefixLen], id+cacheExt)
}

// Read opens the file for id and passes it to readFn.
func (c *Cache[T]) Read(id string, readFn func(io.Reader) error) error {
	if id == "" {
		return fmt.Errorf("read: %w", errInvalidID)
	}
	file, err := os.Open(c.filePath(id))
	if err != nil {
		return fmt.Errorf("read: %w", err)
	}
	defer file.Close() //nolint:errcheck

	if err := readFn(file); err != nil {
		return fmt.Errorf("read: %w", err)
	}
	return nil
}

// Write streams writeFn into a temp file and renames it into place, so a
// crash mid-write never leaves a truncated document behind.
func (c *Cache[T]) Write(id string, writeFn func(io.Writer) error) error {
	if id == "" {
		return fmt.Errorf("write: %w", errInvalidID)
	}

	path := c.filePath(id)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("write: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("write: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	if err := writeFn(tmp); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	if d, err := os.Open(dir); err == nil {
		_ = d.Sync()
		_ = d.Close()
	}
	return nil
}

// Delete removes the file for id.
func (c *Cache[T]) Delete(id string) error {
	if id == "" {
		return fmt.Errorf("delete: %w", errInvalidID)
	}
	if err := os.Remove(c.filePath(id)); err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	return nil
}
