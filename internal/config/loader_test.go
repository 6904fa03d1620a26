package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fyrsmithlabs/tutord/internal/llm"
)

// writeConfig writes a YAML config file into a temp dir and returns
// its path.
func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "tutord.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing test config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("TUTORD_LLM_API_KEY", "sk-test")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v, want nil", err)
	}

	if cfg.LLM.Model != "gpt-4o-mini" {
		t.Errorf("LLM.Model = %q, want %q", cfg.LLM.Model, "gpt-4o-mini")
	}
	if cfg.LLM.APIKey != "sk-test" {
		t.Errorf("LLM.APIKey = %q, want value from environment", cfg.LLM.APIKey)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Session.Dir != "session_data" {
		t.Errorf("Session.Dir = %q, want %q", cfg.Session.Dir, "session_data")
	}
	if cfg.Ingest.ChunksFile != "ingestion_storage/chunks.json" {
		t.Errorf("Ingest.ChunksFile = %q, want default", cfg.Ingest.ChunksFile)
	}
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
llm:
  provider: ollama
  model: llama3.2:3b
server:
  port: 9090
ingest:
  chunk_size: 2048
embeddings:
  provider: local
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v, want nil", err)
	}

	if cfg.LLM.Provider != llm.ProviderOllama {
		t.Errorf("LLM.Provider = %q, want %q", cfg.LLM.Provider, llm.ProviderOllama)
	}
	if cfg.LLM.Model != "llama3.2:3b" {
		t.Errorf("LLM.Model = %q, want %q", cfg.LLM.Model, "llama3.2:3b")
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Ingest.ChunkSize != 2048 {
		t.Errorf("Ingest.ChunkSize = %d, want 2048", cfg.Ingest.ChunkSize)
	}
	// Unset fields still get defaults.
	if cfg.Server.Host != "localhost" {
		t.Errorf("Server.Host = %q, want default", cfg.Server.Host)
	}
	if cfg.Quiz.Size != 5 {
		t.Errorf("Quiz.Size = %d, want default 5", cfg.Quiz.Size)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
llm:
  model: gpt-4o-mini
  api_key: from-file
server:
  port: 9090
`)
	t.Setenv("TUTORD_LLM_MODEL", "gpt-4o")
	t.Setenv("TUTORD_LLM_API_KEY", "from-env")
	t.Setenv("TUTORD_SERVER_PORT", "9999")
	t.Setenv("TUTORD_LLM_TIMEOUT", "90s")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v, want nil", err)
	}

	if cfg.LLM.Model != "gpt-4o" {
		t.Errorf("LLM.Model = %q, want environment override", cfg.LLM.Model)
	}
	if cfg.LLM.APIKey != "from-env" {
		t.Errorf("LLM.APIKey = %q, want environment override", cfg.LLM.APIKey)
	}
	if cfg.Server.Port != 9999 {
		t.Errorf("Server.Port = %d, want 9999", cfg.Server.Port)
	}
	if cfg.LLM.Timeout != 90*time.Second {
		t.Errorf("LLM.Timeout = %v, want 90s", cfg.LLM.Timeout)
	}
}

func TestLoadWorkspaceRooting(t *testing.T) {
	workspace := t.TempDir()
	path := writeConfig(t, `
workspace:
  dir: `+workspace+`
llm:
  api_key: sk-test
quiz:
  file: /var/data/quiz.csv
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v, want nil", err)
	}

	if want := filepath.Join(workspace, "index_storage"); cfg.Index.Dir != want {
		t.Errorf("Index.Dir = %q, want %q", cfg.Index.Dir, want)
	}
	if want := filepath.Join(workspace, "cache", "slides.json"); cfg.Course.DeckFile != want {
		t.Errorf("Course.DeckFile = %q, want %q", cfg.Course.DeckFile, want)
	}
	if want := filepath.Join(workspace, "session_data"); cfg.Session.Dir != want {
		t.Errorf("Session.Dir = %q, want %q", cfg.Session.Dir, want)
	}
	// Absolute paths stay where they point.
	if cfg.Quiz.File != "/var/data/quiz.csv" {
		t.Errorf("Quiz.File = %q, want untouched absolute path", cfg.Quiz.File)
	}
}

func TestLoadExplicitMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("Load() error = nil, want error for missing explicit file")
	}
	if !strings.Contains(err.Error(), "reading config file") {
		t.Errorf("Load() error = %v, want reading config file error", err)
	}
}

func TestLoadMalformedYAML(t *testing.T) {
	path := writeConfig(t, "llm: [not: closed\n")

	_, err := Load(path)
	if err == nil {
		t.Fatal("Load() error = nil, want parse error")
	}
	if !strings.Contains(err.Error(), "parsing config file") {
		t.Errorf("Load() error = %v, want parsing config file error", err)
	}
}

func TestLoadValidationFailure(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("TUTORD_LLM_API_KEY", "")

	path := writeConfig(t, `
llm:
  provider: openai
`)

	_, err := Load(path)
	if err == nil {
		t.Fatal("Load() error = nil, want validation error")
	}
	if !errors.Is(err, llm.ErrInvalidConfig) {
		t.Errorf("Load() error = %v, want llm.ErrInvalidConfig", err)
	}
	if !strings.HasPrefix(err.Error(), "llm:") {
		t.Errorf("Load() error = %q, want llm: prefix", err.Error())
	}
}

func TestEnvKeyToPath(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"TUTORD_LLM_API_KEY", "llm.api_key"},
		{"TUTORD_LLM_MODEL", "llm.model"},
		{"TUTORD_WORKSPACE_DIR", "workspace.dir"},
		{"TUTORD_SERVER_SHUTDOWN_TIMEOUT", "server.shutdown_timeout"},
		{"TUTORD_INGEST_CHUNK_SIZE", "ingest.chunk_size"},
		{"TUTORD_DEBUG", "debug"},
	}
	for _, tt := range tests {
		if got := envKeyToPath(tt.key); got != tt.want {
			t.Errorf("envKeyToPath(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}
}
