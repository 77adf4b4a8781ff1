package xrun

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// CacheDirName is the cache directory created under the working root.
const CacheDirName = ".mpr-xrun.cache"

// ignoreMarker is written to the cache root so VCS tools skip it.
const ignoreMarker = "# Automatically created by mpr-xrun\n*\n"

// Cache is the on-disk directory that mirrors the source tree with
// compiled artifacts. Freshness is never held in memory: callers stat
// the artifact paths it hands out.
type Cache struct {
	root string
}

// NewCache returns the cache that lives under workRoot.
func NewCache(workRoot string) *Cache {
	return &Cache{root: filepath.Join(workRoot, CacheDirName)}
}

// Root returns the cache directory.
func (c *Cache) Root() string {
	return c.root
}

// Flush removes the cache directory and everything in it.
func (c *Cache) Flush() error {
	if err := os.RemoveAll(c.root); err != nil {
		return fmt.Errorf("%w: failed to flush %s: %v", ErrCache, c.root, err)
	}
	return nil
}

// Ensure creates the cache root and its ignore marker if absent.
func (c *Cache) Ensure() error {
	if err := os.MkdirAll(c.root, 0755); err != nil {
		return fmt.Errorf("%w: %v", ErrCache, err)
	}

	marker := filepath.Join(c.root, ".gitignore")
	if _, err := os.Stat(marker); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %v", ErrCache, err)
	}

	if err := os.WriteFile(marker, []byte(ignoreMarker), 0644); err != nil {
		return fmt.Errorf("%w: failed to write marker: %v", ErrCache, err)
	}
	return nil
}

// Path returns where the artifact for the relative slash path rel lives.
func (c *Cache) Path(rel string) string {
	return filepath.Join(c.root, filepath.FromSlash(rel))
}

// Prepare returns the artifact path for rel, creating its parent
// directories.
func (c *Cache) Prepare(rel string) (string, error) {
	p := c.Path(rel)
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		return "", fmt.Errorf("%w: failed to create directory for %s: %v", ErrCache, rel, err)
	}
	return p, nil
}
