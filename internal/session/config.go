package session

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrInvalidConfig indicates unusable session settings.
var ErrInvalidConfig = errors.New("session: invalid configuration")

// ErrInvalidState indicates an onboarding update with missing
// required fields.
var ErrInvalidState = errors.New("session: invalid state")

const (
	defaultDir    = "session_data"
	stateFileName = "user_session_state.yaml"
	actionLogName = "user_actions.log"
)

// defaultDerivedDirs are the storage trees Reset wipes alongside the
// session file. The action log survives as the audit trail.
var defaultDerivedDirs = []string{"cache", "ingestion_storage", "index_storage"}

// Config holds session persistence settings.
type Config struct {
	// Dir holds the session state file and the action log, relative
	// to the workspace root unless absolute.
	Dir string `koanf:"dir"`

	// DerivedDirs are wiped on Reset.
	DerivedDirs []string `koanf:"derived_dirs"`
}

// NewDefaultConfig returns the default session configuration.
func NewDefaultConfig() *Config {
	return &Config{
		Dir:         defaultDir,
		DerivedDirs: append([]string(nil), defaultDerivedDirs...),
	}
}

// ApplyDefaults fills unset fields with defaults.
func (c *Config) ApplyDefaults() {
	if c.Dir == "" {
		c.Dir = defaultDir
	}
	if c.DerivedDirs == nil {
		c.DerivedDirs = append([]string(nil), defaultDerivedDirs...)
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Dir) == "" {
		return fmt.Errorf("%w: session directory is required", ErrInvalidConfig)
	}
	return nil
}

func (c *Config) statePath() string {
	return filepath.Join(c.Dir, stateFileName)
}

func (c *Config) actionLogPath() string {
	return filepath.Join(c.Dir, actionLogName)
}
