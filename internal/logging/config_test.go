package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"console format", func(c *Config) { c.Format = "console" }, false},
		{"trace level", func(c *Config) { c.Level = "trace" }, false},
		{"bad format", func(c *Config) { c.Format = "logfmt" }, true},
		{"bad level", func(c *Config) { c.Level = "loud" }, true},
		{"no outputs", func(c *Config) { c.Output = OutputConfig{} }, true},
		{"negative caller skip", func(c *Config) { c.Caller.Skip = -1 }, true},
		{"empty field value", func(c *Config) { c.Fields = map[string]string{"service": ""} }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_ApplyDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.ApplyDefaults()
	if cfg.Level != "info" {
		t.Errorf("Level = %q, want %q", cfg.Level, "info")
	}
	if cfg.Format != "json" {
		t.Errorf("Format = %q, want %q", cfg.Format, "json")
	}
	if !cfg.Output.Stdout {
		t.Error("stdout output should default to enabled")
	}
	if cfg.Fields["service"] != "tutord" {
		t.Errorf("service field = %q, want %q", cfg.Fields["service"], "tutord")
	}
}

func TestLevelFromString(t *testing.T) {
	tests := []struct {
		in      string
		want    zapcore.Level
		wantErr bool
	}{
		{"trace", TraceLevel, false},
		{"debug", zapcore.DebugLevel, false},
		{"info", zapcore.InfoLevel, false},
		{"warn", zapcore.WarnLevel, false},
		{"error", zapcore.ErrorLevel, false},
		{"verbose", zapcore.InfoLevel, true},
	}

	for _, tt := range tests {
		got, err := LevelFromString(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("LevelFromString(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("LevelFromString(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
