package http

import (
	"errors"
	"fmt"
	"time"
)

// Default server configuration.
const (
	defaultHost            = "localhost"
	defaultPort            = 8080
	defaultShutdownTimeout = 10 * time.Second
)

// ErrInvalidConfig indicates invalid server configuration.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds HTTP server configuration.
type Config struct {
	// Host is the listen address.
	Host string `koanf:"host"`

	// Port is the listen port.
	Port int `koanf:"port"`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// NewDefaultConfig returns a Config with production defaults.
func NewDefaultConfig() *Config {
	return &Config{
		Host:            defaultHost,
		Port:            defaultPort,
		ShutdownTimeout: defaultShutdownTimeout,
	}
}

// ApplyDefaults fills in zero values with production defaults.
func (c *Config) ApplyDefaults() {
	if c.Host == "" {
		c.Host = defaultHost
	}
	if c.Port == 0 {
		c.Port = defaultPort
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = defaultShutdownTimeout
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("%w: host required", ErrInvalidConfig)
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("%w: port must be 1-65535, got %d", ErrInvalidConfig, c.Port)
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("%w: shutdown timeout must be positive, got %v", ErrInvalidConfig, c.ShutdownTimeout)
	}
	return nil
}
