// Tutord is a personal tutoring daemon over the user's own study materials.
//
// The daemon ingests documents into summarized chunks, builds vector and
// hierarchical indexes over them, generates slide-deck courses with an LLM,
// and serves placement quizzes and a grounded tutor chat over HTTP. The
// subcommands run the same pipeline stages from the terminal.
//
// Configuration is loaded from tutord.yaml plus TUTORD_* environment
// variables. See internal/config for details.
//
// Usage:
//
//	# Start the HTTP server with defaults
//	tutord serve
//
//	# Generate a course from the terminal
//	tutord generate --topic "Electric vehicles"
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/tutord/internal/config"
	"github.com/fyrsmithlabs/tutord/internal/logging"
	"github.com/fyrsmithlabs/tutord/internal/services"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

// configFile is the --config flag value; empty means the default
// tutord.yaml lookup.
var configFile string

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "tutord",
	Short: "Personal tutor over your own study materials",
	Long: `Tutord ingests your study materials, builds searchable indexes over
them, and uses an LLM to generate slide-deck courses, placement
quizzes, and a tutor chat grounded in your documents.

Run "tutord serve" to start the HTTP server the tutoring UI talks to,
or use the subcommands to drive the same pipeline from the terminal.`,
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default tutord.yaml in the working directory)")
	rootCmd.AddCommand(versionCmd)
}

// versionCmd prints full build information; --version prints the bare
// version string.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("tutord by Fyrsmith Labs\n")
		fmt.Printf("Version:    %s\n", version)
		fmt.Printf("Commit:     %s\n", gitCommit)
		fmt.Printf("Build Date: %s\n", buildDate)
	},
}

// bootstrap loads configuration, creates a logger, and builds the full
// service registry for one-shot commands. The caller owns closing the
// registry.
func bootstrap(ctx context.Context) (*config.Config, services.Registry, *logging.Logger, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, nil, nil, err
	}

	logger, err := logging.NewLogger(&cfg.Logging, nil)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	registry, err := services.Build(ctx, cfg, logger)
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, registry, logger, nil
}
