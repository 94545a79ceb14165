package files

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"
)

// FileInfo describes a cached artifact on disk
type FileInfo struct {
	Name    string    `json:"name"`
	Path    string    `json:"path"`
	Size    int64     `json:"size_bytes"`
	ModTime time.Time `json:"modified"`
}

// Artifacts lists the artifacts present in the cache directory, sorted by name.
// A missing directory yields an empty list.
func (c *Cache) Artifacts() ([]FileInfo, error) {
	entries, err := os.ReadDir(c.dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cache directory %s: %w", c.dir, err)
	}

	var artifacts []FileInfo
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), artifactExt) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		name := strings.TrimSuffix(entry.Name(), artifactExt)
		artifacts = append(artifacts, FileInfo{
			Name:    name,
			Path:    c.Path(name),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	sort.Slice(artifacts, func(i, j int) bool {
		return artifacts[i].Name < artifacts[j].Name
	})
	return artifacts, nil
}

// Used returns the artifact names resolved through this cache, sorted
func (c *Cache) Used() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	names := make([]string, 0, len(c.used))
	for name := range c.used {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LatestArtifact returns the most recently modified artifact
func LatestArtifact(artifacts []FileInfo) (FileInfo, bool) {
	if len(artifacts) == 0 {
		return FileInfo{}, false
	}

	latest := artifacts[0]
	for _, a := range artifacts[1:] {
		if a.ModTime.After(latest.ModTime) {
			latest = a
		}
	}
	return latest, true
}
