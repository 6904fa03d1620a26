package index

import (
	"fmt"
	"path/filepath"
)

// Vector backend providers.
const (
	ProviderChromem = "chromem"
	ProviderQdrant  = "qdrant"
)

// Default configuration values.
const (
	defaultDir          = "index_storage"
	defaultCollection   = "study_materials"
	defaultFanout       = 10
	defaultContextChars = 12000
	defaultQdrantHost   = "localhost"
	defaultQdrantPort   = 6334
)

// Config holds configuration for both indexes.
type Config struct {
	// Dir is the base directory for persisted indexes. The chromem
	// collection lives in Dir/chromem, the tree in Dir/tree.json.
	Dir string `koanf:"dir"`

	// Provider selects the vector backend: "chromem" (embedded,
	// default) or "qdrant" (remote server over gRPC). The tree index
	// is always local.
	Provider string `koanf:"provider"`

	// Collection is the vector collection name.
	Collection string `koanf:"collection"`

	// Compress enables gzip compression for the chromem collection.
	Compress bool `koanf:"compress"`

	// QdrantHost is the qdrant server hostname. Qdrant provider only.
	QdrantHost string `koanf:"qdrant_host"`

	// QdrantPort is the qdrant gRPC port (6334, not the 6333 REST
	// port).
	QdrantPort int `koanf:"qdrant_port"`

	// QdrantAPIKey authenticates against a managed qdrant instance.
	// Empty for local deployments.
	QdrantAPIKey string `koanf:"qdrant_api_key"`

	// QdrantTLS enables TLS for the qdrant connection.
	QdrantTLS bool `koanf:"qdrant_tls"`

	// Fanout is the maximum number of children per tree node.
	Fanout int `koanf:"fanout"`

	// ContextChars bounds the packed context handed to the model when
	// answering a tree query.
	ContextChars int `koanf:"context_chars"`
}

// NewDefaultConfig returns a Config with production defaults.
func NewDefaultConfig() *Config {
	return &Config{
		Dir:          defaultDir,
		Provider:     ProviderChromem,
		Collection:   defaultCollection,
		Fanout:       defaultFanout,
		ContextChars: defaultContextChars,
		QdrantHost:   defaultQdrantHost,
		QdrantPort:   defaultQdrantPort,
	}
}

// ApplyDefaults fills in zero values with production defaults.
func (c *Config) ApplyDefaults() {
	if c.Dir == "" {
		c.Dir = defaultDir
	}
	if c.Provider == "" {
		c.Provider = ProviderChromem
	}
	if c.Collection == "" {
		c.Collection = defaultCollection
	}
	if c.Fanout == 0 {
		c.Fanout = defaultFanout
	}
	if c.ContextChars == 0 {
		c.ContextChars = defaultContextChars
	}
	if c.QdrantHost == "" {
		c.QdrantHost = defaultQdrantHost
	}
	if c.QdrantPort == 0 {
		c.QdrantPort = defaultQdrantPort
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Dir == "" {
		return fmt.Errorf("%w: index directory required", ErrInvalidConfig)
	}
	if c.Provider != ProviderChromem && c.Provider != ProviderQdrant {
		return fmt.Errorf("%w: unknown vector provider %q (chromem or qdrant)", ErrInvalidConfig, c.Provider)
	}
	if c.Collection == "" {
		return fmt.Errorf("%w: collection name required", ErrInvalidConfig)
	}
	if c.Fanout < 2 {
		return fmt.Errorf("%w: fanout must be at least 2, got %d", ErrInvalidConfig, c.Fanout)
	}
	if c.ContextChars <= 0 {
		return fmt.Errorf("%w: context budget must be positive, got %d", ErrInvalidConfig, c.ContextChars)
	}
	if c.Provider == ProviderQdrant {
		if c.QdrantHost == "" {
			return fmt.Errorf("%w: qdrant host required", ErrInvalidConfig)
		}
		if c.QdrantPort <= 0 || c.QdrantPort > 65535 {
			return fmt.Errorf("%w: invalid qdrant port %d", ErrInvalidConfig, c.QdrantPort)
		}
	}
	return nil
}

func (c *Config) chromemDir() string {
	return filepath.Join(c.Dir, "chromem")
}

func (c *Config) treePath() string {
	return filepath.Join(c.Dir, "tree.json")
}

func (c *Config) vectorManifestPath() string {
	return filepath.Join(c.Dir, "vector_manifest.json")
}

func (c *Config) qdrantManifestPath() string {
	return filepath.Join(c.Dir, "qdrant_manifest.json")
}
