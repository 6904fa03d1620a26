package course

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidConfig indicates the orchestrator was constructed or
// invoked with unusable settings.
var ErrInvalidConfig = errors.New("course: invalid configuration")

const defaultDeckFile = "cache/slides.json"

// Config holds course generation settings.
type Config struct {
	// DeckFile is where the generated slide deck is persisted,
	// relative to the workspace root unless absolute.
	DeckFile string `koanf:"deck_file"`
}

// NewDefaultConfig returns the default course configuration.
func NewDefaultConfig() *Config {
	return &Config{DeckFile: defaultDeckFile}
}

// ApplyDefaults fills unset fields with defaults.
func (c *Config) ApplyDefaults() {
	if c.DeckFile == "" {
		c.DeckFile = defaultDeckFile
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.DeckFile) == "" {
		return fmt.Errorf("%w: deck file is required", ErrInvalidConfig)
	}
	return nil
}
