package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// envPrefix selects the environment variables that override config
// file values.
const envPrefix = "TUTORD_"

// Load builds the effective configuration.
//
// Precedence, highest first:
//  1. TUTORD_ environment variables (TUTORD_LLM_API_KEY, ...)
//  2. The YAML config file
//  3. Hardcoded defaults
//
// configPath names the YAML file to read. Empty means the default
// tutord.yaml in the working directory; a missing default file is
// fine, a missing explicit file is an error. After merging, defaults
// are applied, relative storage paths are resolved under
// workspace.dir, and every section is validated.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	explicit := configPath != ""
	if configPath == "" {
		configPath = DefaultConfigFile
	}

	content, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", configPath, err)
		}
	case os.IsNotExist(err) && !explicit:
		// No config file: defaults plus environment.
	default:
		return nil, fmt.Errorf("reading config file %s: %w", configPath, err)
	}

	// Environment overrides. Keys strip the prefix, lowercase, and
	// split on the first underscore into section.field_name:
	//
	//	TUTORD_LLM_API_KEY     -> llm.api_key
	//	TUTORD_WORKSPACE_DIR   -> workspace.dir
	//	TUTORD_SERVER_PORT     -> server.port
	//
	// Nested subsections (logging.output.stdout) are file-only; the
	// first-underscore split cannot reach them.
	if err := k.Load(env.Provider(envPrefix, ".", envKeyToPath), nil); err != nil {
		return nil, fmt.Errorf("loading environment overrides: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.ApplyDefaults()
	cfg.rootPaths()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func envKeyToPath(key string) string {
	lower := strings.ToLower(strings.TrimPrefix(key, envPrefix))
	parts := strings.SplitN(lower, "_", 2)
	if len(parts) == 1 {
		return lower
	}
	return parts[0] + "." + parts[1]
}
