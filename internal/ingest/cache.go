package ingest

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// fingerprintCache maps source file names to content hashes so
// unchanged files can be skipped wholesale.
type fingerprintCache struct {
	path  string
	Files map[string]string `json:"files"`
}

// loadFingerprintCache reads the cache from disk. Missing or corrupt
// caches degrade to empty: the worst case is redundant work, never
// wrong output.
func loadFingerprintCache(path string) *fingerprintCache {
	cache := &fingerprintCache{
		path:  path,
		Files: make(map[string]string),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cache
	}
	if err := json.Unmarshal(data, cache); err != nil {
		cache.Files = make(map[string]string)
	}
	if cache.Files == nil {
		cache.Files = make(map[string]string)
	}
	return cache
}

// unchanged reports whether the source file's hash matches the cache.
func (c *fingerprintCache) unchanged(source, hash string) bool {
	return c.Files[source] == hash
}

// update records the hash for a source file.
func (c *fingerprintCache) update(source, hash string) {
	c.Files[source] = hash
}

// prune removes entries for sources not present in keep.
func (c *fingerprintCache) prune(keep map[string]bool) {
	for source := range c.Files {
		if !keep[source] {
			delete(c.Files, source)
		}
	}
}

// save writes the cache to disk atomically.
func (c *fingerprintCache) save() error {
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling fingerprint cache: %w", err)
	}

	tmpPath := c.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o600); err != nil {
		return fmt.Errorf("writing fingerprint cache: %w", err)
	}
	if err := os.Rename(tmpPath, c.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming fingerprint cache: %w", err)
	}
	return nil
}

// fingerprint returns the hex SHA-256 of raw file content.
func fingerprint(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}
