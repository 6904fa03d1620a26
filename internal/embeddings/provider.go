package embeddings

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fyrsmithlabs/tutord/internal/logging"
)

// Supported embedding providers.
const (
	ProviderOpenAI = "openai"
	ProviderLocal  = "local"
)

const (
	defaultOpenAIModel = "text-embedding-3-small"
	defaultLocalModel  = "BAAI/bge-small-en-v1.5"
	defaultCacheDir    = "cache/models"
	defaultMaxLength   = 512
)

var (
	// ErrEmptyInput indicates empty or nil input texts
	ErrEmptyInput = errors.New("empty or nil input texts")

	// ErrInvalidConfig indicates invalid configuration
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrEmbeddingFailed indicates embedding generation failure
	ErrEmbeddingFailed = errors.New("embedding generation failed")
)

// Provider is the interface for embedding providers.
type Provider interface {
	// EmbedDocuments generates embeddings for multiple texts.
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	// EmbedQuery generates an embedding for a single query.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	// Dimension returns the embedding dimension for the current model.
	Dimension() int
	// Close releases resources held by the provider.
	Close() error
}

// Config holds configuration for creating an embedding provider.
type Config struct {
	// Provider is the provider type: "openai" or "local".
	Provider string `koanf:"provider"`

	// Model is the embedding model name. Defaults depend on the
	// provider: text-embedding-3-small for OpenAI,
	// BAAI/bge-small-en-v1.5 for local.
	Model string `koanf:"model"`

	// APIKey authenticates against the OpenAI API. Falls back to the
	// OPENAI_API_KEY environment variable when empty.
	APIKey string `koanf:"api_key"`

	// BaseURL overrides the OpenAI API endpoint.
	BaseURL string `koanf:"base_url"`

	// CacheDir is the directory to cache local model files.
	CacheDir string `koanf:"cache_dir"`

	// MaxLength is the maximum input sequence length for local models.
	MaxLength int `koanf:"max_length"`
}

// NewDefaultConfig returns a Config with production defaults.
func NewDefaultConfig() *Config {
	return &Config{
		Provider:  ProviderOpenAI,
		Model:     defaultOpenAIModel,
		CacheDir:  defaultCacheDir,
		MaxLength: defaultMaxLength,
	}
}

// ApplyDefaults fills in zero values with production defaults.
func (c *Config) ApplyDefaults() {
	if c.Provider == "" {
		c.Provider = ProviderOpenAI
	}
	if c.Model == "" {
		switch c.Provider {
		case ProviderLocal:
			c.Model = defaultLocalModel
		default:
			c.Model = defaultOpenAIModel
		}
	}
	if c.CacheDir == "" {
		c.CacheDir = defaultCacheDir
	}
	if c.MaxLength == 0 {
		c.MaxLength = defaultMaxLength
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderOpenAI, ProviderLocal:
	default:
		return fmt.Errorf("%w: unsupported provider %q", ErrInvalidConfig, c.Provider)
	}
	if c.Model == "" {
		return fmt.Errorf("%w: model required", ErrInvalidConfig)
	}
	if c.MaxLength < 0 {
		return fmt.Errorf("%w: max length cannot be negative", ErrInvalidConfig)
	}
	return nil
}

// NewProvider creates an embedding provider based on the configuration.
// The provider is instrumented with OTel metrics when logger is non-nil.
func NewProvider(cfg *Config, logger *logging.Logger) (Provider, error) {
	if cfg == nil {
		cfg = NewDefaultConfig()
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	if logger == nil {
		logger = logging.Nop()
	}

	var provider Provider
	var err error
	switch cfg.Provider {
	case ProviderLocal:
		provider, err = newLocalProvider(cfg)
	default:
		provider, err = newOpenAIProvider(cfg)
	}
	if err != nil {
		return nil, err
	}

	return withMetrics(provider, NewMetrics(logger.Underlying()), cfg.Model), nil
}

// detectDimension returns the embedding dimension for a model name.
// Falls back to 384, the dimension of bge-small.
func detectDimension(model string) int {
	if dim, ok := localModelDimension(model); ok {
		return dim
	}
	switch {
	case strings.Contains(model, "3-large"):
		return 3072
	case strings.Contains(model, "3-small"), strings.Contains(model, "ada-002"):
		return 1536
	case strings.Contains(model, "large"):
		return 1024
	case strings.Contains(model, "base"):
		return 768
	default:
		return 384
	}
}
