package files

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	apperrors "acceptcli/internal/errors"
	"acceptcli/internal/infrastructure"
)

// artifactExt is appended to every cached artifact name
const artifactExt = ".json"

// Cache stores reduced tables as JSON documents in one directory. When
// recompute is set every lookup misses and artifacts are rewritten.
type Cache struct {
	dir       string
	recompute bool
	logger    *slog.Logger
	metrics   *infrastructure.RunMetrics

	mu   sync.Mutex
	used map[string]bool
}

// NewCache creates a cache rooted at dir
func NewCache(dir string, recompute bool, logger *slog.Logger, metrics *infrastructure.RunMetrics) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{
		dir:       dir,
		recompute: recompute,
		logger:    infrastructure.WithComponent(logger, "cache"),
		metrics:   metrics,
		used:      make(map[string]bool),
	}
}

// Dir returns the cache directory
func (c *Cache) Dir() string {
	return c.dir
}

// Path returns the file path of a named artifact
func (c *Cache) Path(name string) string {
	return filepath.Join(c.dir, name+artifactExt)
}

// Load decodes a cached artifact into v. hit is false when the artifact is
// absent or recompute is set.
func (c *Cache) Load(name string, v interface{}) (hit bool, err error) {
	if c.recompute {
		return false, nil
	}

	path := c.Path(name)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, apperrors.NewStorageError("failed to read cached artifact", err).WithContext("path", path)
	}

	if err := json.Unmarshal(data, v); err != nil {
		return false, apperrors.NewParsingError(fmt.Sprintf("corrupt cached artifact %s", name), err).
			WithContext("path", path)
	}
	return true, nil
}

// Store writes v as the named artifact. The file is written to a temporary
// name and renamed so a failed run never leaves a partial artifact.
func (c *Cache) Store(name string, v interface{}) error {
	if err := os.MkdirAll(c.dir, 0755); err != nil {
		return apperrors.NewStorageError("failed to create cache directory", err).WithContext("path", c.dir)
	}

	data, err := json.Marshal(v)
	if err != nil {
		return apperrors.NewStorageError(fmt.Sprintf("failed to encode artifact %s", name), err)
	}

	path := c.Path(name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return apperrors.NewStorageError("failed to write cached artifact", err).WithContext("path", tmp)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return apperrors.NewStorageError("failed to move cached artifact", err).WithContext("path", path)
	}
	return nil
}

// Resolve loads the named artifact into v, or runs compute (which must fill
// v) and stores the result
func (c *Cache) Resolve(ctx context.Context, name string, v interface{}, compute func() error) error {
	hit, err := c.Load(name, v)
	if err != nil {
		return err
	}
	c.metrics.CacheLookup(ctx, name, hit)
	c.markUsed(name)

	if hit {
		c.logger.InfoContext(ctx, "Loaded cached artifact", slog.String("artifact", name))
		return nil
	}

	c.logger.InfoContext(ctx, "Computing artifact",
		slog.String("artifact", name),
		slog.Bool("recompute", c.recompute))
	if err := compute(); err != nil {
		return err
	}
	return c.Store(name, v)
}

func (c *Cache) markUsed(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.used[name] = true
}
