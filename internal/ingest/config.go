package ingest

import (
	"errors"
	"fmt"
	"time"
)

// Default configuration values mirror the standard workspace layout.
const (
	defaultSourceDir  = "ingestion_storage"
	defaultChunksFile = "ingestion_storage/chunks.json"
	defaultCacheFile  = "cache/ingest_cache.json"
	defaultChunkSize  = 1024
	defaultOverlap    = 20
	defaultDebounce   = 2 * time.Second
)

var (
	// ErrInvalidConfig indicates invalid ingestion configuration.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrEmptyCorpus indicates the source directory holds no loadable
	// documents. Generation cannot start from an empty corpus, so this
	// is treated as a configuration error by callers.
	ErrEmptyCorpus = errors.New("no loadable documents in source directory")
)

// Config holds configuration for the ingestion service.
type Config struct {
	// SourceDir is the directory scanned for study material.
	SourceDir string `koanf:"source_dir"`

	// ChunksFile is where processed chunks are persisted.
	ChunksFile string `koanf:"chunks_file"`

	// CacheFile is where per-file content fingerprints are persisted.
	CacheFile string `koanf:"cache_file"`

	// ChunkSize is the chunk length in tokens.
	ChunkSize int `koanf:"chunk_size"`

	// ChunkOverlap is the token overlap between adjacent chunks.
	ChunkOverlap int `koanf:"chunk_overlap"`

	// Watch enables the source directory watcher in serve mode.
	Watch bool `koanf:"watch"`

	// Debounce is how long the watcher waits after the last change
	// before re-ingesting.
	Debounce time.Duration `koanf:"debounce"`
}

// NewDefaultConfig returns a Config with production defaults.
func NewDefaultConfig() *Config {
	return &Config{
		SourceDir:    defaultSourceDir,
		ChunksFile:   defaultChunksFile,
		CacheFile:    defaultCacheFile,
		ChunkSize:    defaultChunkSize,
		ChunkOverlap: defaultOverlap,
		Debounce:     defaultDebounce,
	}
}

// ApplyDefaults fills in zero values with production defaults.
func (c *Config) ApplyDefaults() {
	if c.SourceDir == "" {
		c.SourceDir = defaultSourceDir
	}
	if c.ChunksFile == "" {
		c.ChunksFile = defaultChunksFile
	}
	if c.CacheFile == "" {
		c.CacheFile = defaultCacheFile
	}
	if c.ChunkSize == 0 {
		c.ChunkSize = defaultChunkSize
	}
	if c.ChunkOverlap == 0 {
		c.ChunkOverlap = defaultOverlap
	}
	if c.Debounce == 0 {
		c.Debounce = defaultDebounce
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.SourceDir == "" {
		return fmt.Errorf("%w: source directory required", ErrInvalidConfig)
	}
	if c.ChunkSize <= 0 {
		return fmt.Errorf("%w: chunk size must be positive, got %d", ErrInvalidConfig, c.ChunkSize)
	}
	if c.ChunkOverlap < 0 {
		return fmt.Errorf("%w: chunk overlap cannot be negative, got %d", ErrInvalidConfig, c.ChunkOverlap)
	}
	if c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("%w: chunk overlap %d must be smaller than chunk size %d", ErrInvalidConfig, c.ChunkOverlap, c.ChunkSize)
	}
	if c.Debounce < 0 {
		return fmt.Errorf("%w: debounce cannot be negative, got %v", ErrInvalidConfig, c.Debounce)
	}
	return nil
}
