package quiz

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidConfig indicates unusable quiz settings.
var ErrInvalidConfig = errors.New("quiz: invalid configuration")

const (
	defaultFile = "cache/quiz.csv"
	defaultSize = 5
	defaultTopK = 5
)

// Config holds placement quiz settings.
type Config struct {
	// File is the CSV the quiz is persisted to, relative to the
	// workspace root unless absolute.
	File string `koanf:"file"`

	// Size is how many questions to request.
	Size int `koanf:"size"`

	// TopK is how many chunks to retrieve as question material.
	TopK int `koanf:"top_k"`
}

// NewDefaultConfig returns the default quiz configuration.
func NewDefaultConfig() *Config {
	return &Config{
		File: defaultFile,
		Size: defaultSize,
		TopK: defaultTopK,
	}
}

// ApplyDefaults fills unset fields with defaults.
func (c *Config) ApplyDefaults() {
	if c.File == "" {
		c.File = defaultFile
	}
	if c.Size == 0 {
		c.Size = defaultSize
	}
	if c.TopK == 0 {
		c.TopK = defaultTopK
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.File) == "" {
		return fmt.Errorf("%w: quiz file is required", ErrInvalidConfig)
	}
	if c.Size < 1 {
		return fmt.Errorf("%w: quiz size must be at least 1", ErrInvalidConfig)
	}
	if c.TopK < 1 {
		return fmt.Errorf("%w: top_k must be at least 1", ErrInvalidConfig)
	}
	return nil
}
