package llm

import (
	"errors"
	"fmt"
	"os"
	"time"
)

// Supported completion providers.
const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
)

// Default configuration values.
const (
	defaultOpenAIModel = "gpt-4o-mini"
	defaultOllamaModel = "qwen2.5:0.5b"
	defaultOllamaURL   = "http://localhost:11434"
	defaultTemperature = 0.5
	defaultMaxTokens   = 4096
	defaultTimeout     = 120 * time.Second
	defaultMaxRetries  = 1
	defaultBaseBackoff = 1 * time.Second
)

// Rate limiter defaults: 50 requests per minute, shared across all callers.
const (
	defaultRateLimit = 50.0 / 60.0 // ~0.83 requests per second
	defaultBurst     = 5           // Allow bursts of up to 5 requests
)

// ErrInvalidConfig indicates invalid completion configuration.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds configuration for the completion service.
type Config struct {
	// Provider selects the completion backend ("openai" or "ollama").
	Provider string `koanf:"provider"`

	// Model is the model identifier. Defaults depend on the provider:
	// gpt-4o-mini for OpenAI, qwen2.5:0.5b for Ollama.
	Model string `koanf:"model"`

	// APIKey authenticates against the OpenAI API. Falls back to the
	// OPENAI_API_KEY environment variable when empty.
	APIKey string `koanf:"api_key"`

	// BaseURL overrides the OpenAI API endpoint. Useful for
	// OpenAI-compatible gateways. Empty means the public API.
	BaseURL string `koanf:"base_url"`

	// ServerURL is the Ollama server address.
	ServerURL string `koanf:"server_url"`

	// Temperature controls sampling randomness for all completions.
	Temperature float64 `koanf:"temperature"`

	// MaxTokens caps the completion length per request.
	MaxTokens int `koanf:"max_tokens"`

	// Timeout bounds a single request round trip.
	Timeout time.Duration `koanf:"timeout"`

	// MaxRetries is the number of additional attempts after a
	// transient failure. The first retry waits one second, doubling
	// per attempt.
	MaxRetries int `koanf:"max_retries"`

	// RatePerMinute limits outgoing requests across all callers.
	RatePerMinute float64 `koanf:"rate_per_minute"`

	// Burst allows short request bursts above the sustained rate.
	Burst int `koanf:"burst"`
}

// NewDefaultConfig returns a Config with production defaults.
func NewDefaultConfig() *Config {
	return &Config{
		Provider:      ProviderOpenAI,
		Model:         defaultOpenAIModel,
		ServerURL:     defaultOllamaURL,
		Temperature:   defaultTemperature,
		MaxTokens:     defaultMaxTokens,
		Timeout:       defaultTimeout,
		MaxRetries:    defaultMaxRetries,
		RatePerMinute: 50,
		Burst:         defaultBurst,
	}
}

// ApplyDefaults fills in zero values with production defaults.
func (c *Config) ApplyDefaults() {
	if c.Provider == "" {
		c.Provider = ProviderOpenAI
	}
	if c.Model == "" {
		switch c.Provider {
		case ProviderOllama:
			c.Model = defaultOllamaModel
		default:
			c.Model = defaultOpenAIModel
		}
	}
	if c.ServerURL == "" {
		c.ServerURL = defaultOllamaURL
	}
	if c.Temperature == 0 {
		c.Temperature = defaultTemperature
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = defaultMaxTokens
	}
	if c.Timeout == 0 {
		c.Timeout = defaultTimeout
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = defaultMaxRetries
	}
	if c.RatePerMinute == 0 {
		c.RatePerMinute = 50
	}
	if c.Burst == 0 {
		c.Burst = defaultBurst
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderOpenAI:
		if c.APIKey == "" && os.Getenv("OPENAI_API_KEY") == "" {
			return fmt.Errorf("%w: api key required for openai provider", ErrInvalidConfig)
		}
	case ProviderOllama:
		if c.ServerURL == "" {
			return fmt.Errorf("%w: server url required for ollama provider", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unsupported provider %q", ErrInvalidConfig, c.Provider)
	}
	if c.Model == "" {
		return fmt.Errorf("%w: model required", ErrInvalidConfig)
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("%w: temperature must be in [0, 2], got %v", ErrInvalidConfig, c.Temperature)
	}
	if c.MaxTokens <= 0 {
		return fmt.Errorf("%w: max tokens must be positive, got %d", ErrInvalidConfig, c.MaxTokens)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("%w: timeout must be positive, got %v", ErrInvalidConfig, c.Timeout)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("%w: max retries cannot be negative, got %d", ErrInvalidConfig, c.MaxRetries)
	}
	if c.RatePerMinute <= 0 {
		return fmt.Errorf("%w: rate per minute must be positive, got %v", ErrInvalidConfig, c.RatePerMinute)
	}
	if c.Burst <= 0 {
		return fmt.Errorf("%w: burst must be positive, got %d", ErrInvalidConfig, c.Burst)
	}
	return nil
}
