package telemetry

import (
	"context"
	"testing"
	"time"
)

func TestConfig_Validate_Disabled(t *testing.T) {
	cfg := &Config{Enabled: false}
	if err := cfg.Validate(); err != nil {
		t.Errorf("disabled config should validate, got %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults enabled", func(c *Config) {}, false},
		{"http protocol", func(c *Config) { c.Protocol = "http/protobuf" }, false},
		{"bad protocol", func(c *Config) { c.Protocol = "thrift" }, true},
		{"empty endpoint", func(c *Config) { c.Endpoint = "" }, true},
		{"insecure remote", func(c *Config) { c.Endpoint = "collector.example.com:4317" }, true},
		{"secure remote", func(c *Config) {
			c.Endpoint = "collector.example.com:4317"
			c.Insecure = false
		}, false},
		{"bad sampling rate", func(c *Config) { c.Sampling.Rate = 1.5 }, true},
		{"zero export interval", func(c *Config) { c.Metrics.ExportInterval = -time.Second }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			cfg.Enabled = true
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_IsLocalEndpoint(t *testing.T) {
	tests := []struct {
		endpoint string
		want     bool
	}{
		{"localhost:4317", true},
		{"127.0.0.1:4317", true},
		{"[::1]:4317", true},
		{"::1", true},
		{"collector.internal:4317", false},
		{"10.0.0.5:4317", false},
	}

	for _, tt := range tests {
		cfg := &Config{Endpoint: tt.endpoint}
		if got := cfg.isLocalEndpoint(); got != tt.want {
			t.Errorf("isLocalEndpoint(%q) = %v, want %v", tt.endpoint, got, tt.want)
		}
	}
}

func TestNew_Disabled(t *testing.T) {
	tel, err := New(context.Background(), &Config{Enabled: false})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if tel.IsEnabled() {
		t.Error("disabled telemetry reports enabled")
	}
	// No-op tracer and meter must still be usable.
	_ = tel.Tracer("test")
	_ = tel.Meter("test")
	if err := tel.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}
