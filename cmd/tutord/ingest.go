package main

import (
	"go.uber.org/zap"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(ingestCmd)
}

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Ingest the source directory into summarized chunks",
	Long: `Read every supported file under ingest.source_dir, split it into
chunks, summarize each chunk with the LLM, and persist the result.
Files that have not changed since the last run are served from the
cache without any model calls.

Examples:
  # Ingest with the default config
  tutord ingest

  # Ingest another directory
  TUTORD_INGEST_SOURCE_DIR=/srv/notes tutord ingest`,
	RunE: runIngest,
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	_, registry, logger, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = registry.Close()
	}()

	chunks, err := registry.Ingest().Ingest(ctx)
	if err != nil {
		return err
	}

	// Record the source files in the session when one exists, the same
	// way the HTTP endpoint does.
	files := make([]string, 0, len(chunks))
	seen := make(map[string]bool, len(chunks))
	for _, chunk := range chunks {
		if !seen[chunk.Source] {
			seen[chunk.Source] = true
			files = append(files, chunk.Source)
		}
	}
	if _, ok := registry.Session().Get(); ok {
		if err := registry.Session().SetUploadedFiles(ctx, files); err != nil {
			logger.Warn(ctx, "recording uploaded files failed", zap.Error(err))
		}
	}

	cmd.Printf("Ingested %d chunks from %d files\n", len(chunks), len(files))
	return nil
}
