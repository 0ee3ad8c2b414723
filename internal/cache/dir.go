package cache

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// dirCache stores cache entries as files under a local directory, one
// subdirectory per namespace.
type dirCache struct {
	base string
}

func newDirCache(base string) (*dirCache, error) {
	for _, ns := range []string{NamespaceWorks, NamespaceAuthority} {
		if err := os.MkdirAll(filepath.Join(base, ns), 0o755); err != nil {
			return nil, fmt.Errorf("creating cache directory: %w", err)
		}
	}
	return &dirCache{base: base}, nil
}

func (c *dirCache) Get(_ context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(c.base, filepath.FromSlash(key)))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading cache entry %s: %w", key, err)
	}
	return data, nil
}

func (c *dirCache) Put(_ context.Context, key string, data []byte) error {
	path := filepath.Join(c.base, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing cache entry %s: %w", key, err)
	}
	return nil
}
