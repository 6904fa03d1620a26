package ingest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:   "defaults are valid",
			mutate: func(c *Config) {},
		},
		{
			name:    "missing source directory",
			mutate:  func(c *Config) { c.SourceDir = "" },
			wantErr: true,
		},
		{
			name:    "zero chunk size",
			mutate:  func(c *Config) { c.ChunkSize = -1 },
			wantErr: true,
		},
		{
			name:    "negative overlap",
			mutate:  func(c *Config) { c.ChunkOverlap = -1 },
			wantErr: true,
		},
		{
			name:    "overlap not smaller than chunk size",
			mutate:  func(c *Config) { c.ChunkOverlap = c.ChunkSize },
			wantErr: true,
		},
		{
			name:    "negative debounce",
			mutate:  func(c *Config) { c.Debounce = -time.Second },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidConfig)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfigApplyDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.ApplyDefaults()

	assert.Equal(t, defaultSourceDir, cfg.SourceDir)
	assert.Equal(t, defaultChunksFile, cfg.ChunksFile)
	assert.Equal(t, defaultCacheFile, cfg.CacheFile)
	assert.Equal(t, defaultChunkSize, cfg.ChunkSize)
	assert.Equal(t, defaultOverlap, cfg.ChunkOverlap)
	assert.Equal(t, defaultDebounce, cfg.Debounce)
	assert.False(t, cfg.Watch)
}
