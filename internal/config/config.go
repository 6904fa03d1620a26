// Package config loads and validates the tutord configuration.
//
// Configuration comes from three layers, lowest precedence first:
// hardcoded defaults, a YAML file (tutord.yaml by default), and
// TUTORD_-prefixed environment variables. Every section delegates to
// the owning package's Config, so defaults and validation live next
// to the code that consumes them.
package config

import (
	"fmt"
	"path/filepath"

	"github.com/fyrsmithlabs/tutord/internal/chat"
	"github.com/fyrsmithlabs/tutord/internal/course"
	"github.com/fyrsmithlabs/tutord/internal/embeddings"
	httpapi "github.com/fyrsmithlabs/tutord/internal/http"
	"github.com/fyrsmithlabs/tutord/internal/index"
	"github.com/fyrsmithlabs/tutord/internal/ingest"
	"github.com/fyrsmithlabs/tutord/internal/llm"
	"github.com/fyrsmithlabs/tutord/internal/logging"
	"github.com/fyrsmithlabs/tutord/internal/quiz"
	"github.com/fyrsmithlabs/tutord/internal/session"
	"github.com/fyrsmithlabs/tutord/internal/telemetry"
)

// DefaultConfigFile is the config file looked up when no --config flag
// is given. Relative to the current working directory.
const DefaultConfigFile = "tutord.yaml"

// WorkspaceConfig anchors the application's storage layout.
type WorkspaceConfig struct {
	// Dir is the workspace root. Relative storage paths in the other
	// sections resolve under it after loading.
	Dir string `koanf:"dir"`
}

// Config is the complete tutord configuration.
type Config struct {
	Workspace  WorkspaceConfig   `koanf:"workspace"`
	Logging    logging.Config    `koanf:"logging"`
	Telemetry  telemetry.Config  `koanf:"telemetry"`
	LLM        llm.Config        `koanf:"llm"`
	Embeddings embeddings.Config `koanf:"embeddings"`
	Ingest     ingest.Config     `koanf:"ingest"`
	Index      index.Config      `koanf:"index"`
	Course     course.Config     `koanf:"course"`
	Quiz       quiz.Config       `koanf:"quiz"`
	Chat       chat.Config       `koanf:"chat"`
	Session    session.Config    `koanf:"session"`
	Server     httpapi.Config    `koanf:"server"`
}

// NewDefaultConfig returns a fully defaulted configuration.
func NewDefaultConfig() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills in zero values section by section.
func (c *Config) ApplyDefaults() {
	if c.Workspace.Dir == "" {
		c.Workspace.Dir = "."
	}
	c.Logging.ApplyDefaults()
	c.Telemetry.ApplyDefaults()
	c.LLM.ApplyDefaults()
	c.Embeddings.ApplyDefaults()
	c.Ingest.ApplyDefaults()
	c.Index.ApplyDefaults()
	c.Course.ApplyDefaults()
	c.Quiz.ApplyDefaults()
	c.Chat.ApplyDefaults()
	c.Session.ApplyDefaults()
	c.Server.ApplyDefaults()
}

// Validate checks every section, wrapping failures with the section
// name. The sections' own ErrInvalidConfig sentinels stay
// errors.Is-checkable through the wrap.
func (c *Config) Validate() error {
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	if err := c.Telemetry.Validate(); err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	if err := c.LLM.Validate(); err != nil {
		return fmt.Errorf("llm: %w", err)
	}
	if err := c.Embeddings.Validate(); err != nil {
		return fmt.Errorf("embeddings: %w", err)
	}
	if err := c.Ingest.Validate(); err != nil {
		return fmt.Errorf("ingest: %w", err)
	}
	if err := c.Index.Validate(); err != nil {
		return fmt.Errorf("index: %w", err)
	}
	if err := c.Course.Validate(); err != nil {
		return fmt.Errorf("course: %w", err)
	}
	if err := c.Quiz.Validate(); err != nil {
		return fmt.Errorf("quiz: %w", err)
	}
	if err := c.Chat.Validate(); err != nil {
		return fmt.Errorf("chat: %w", err)
	}
	if err := c.Session.Validate(); err != nil {
		return fmt.Errorf("session: %w", err)
	}
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	return nil
}

// rootPaths resolves every relative storage path under the workspace
// root. Absolute paths pass through untouched, so individual stores
// can still be pointed anywhere.
func (c *Config) rootPaths() {
	base := c.Workspace.Dir
	c.Ingest.SourceDir = rooted(base, c.Ingest.SourceDir)
	c.Ingest.ChunksFile = rooted(base, c.Ingest.ChunksFile)
	c.Ingest.CacheFile = rooted(base, c.Ingest.CacheFile)
	c.Index.Dir = rooted(base, c.Index.Dir)
	c.Course.DeckFile = rooted(base, c.Course.DeckFile)
	c.Quiz.File = rooted(base, c.Quiz.File)
	c.Chat.HistoryFile = rooted(base, c.Chat.HistoryFile)
	c.Session.Dir = rooted(base, c.Session.Dir)
	for i, dir := range c.Session.DerivedDirs {
		c.Session.DerivedDirs[i] = rooted(base, dir)
	}
	c.Embeddings.CacheDir = rooted(base, c.Embeddings.CacheDir)
}

func rooted(base, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(base, path)
}
