package main

import (
	"time"

	"github.com/spf13/cobra"
)

// generateTopic is the --topic flag value.
var generateTopic string

func init() {
	rootCmd.AddCommand(generateCmd)
	generateCmd.Flags().StringVarP(&generateTopic, "topic", "t", "", "course topic (required)")
	_ = generateCmd.MarkFlagRequired("topic")
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a slide-deck course about a topic",
	Long: `Run the full generation pipeline inline: ingest the corpus, sync the
indexes, extract and filter keywords, synthesize the course outline,
and write one slide per outline topic into the deck file. Progress is
printed as the run moves between stages.

The deck replaces any previously generated one. Unreachable topics are
skipped rather than failing the run.

Examples:
  # Generate a course
  tutord generate --topic "Electric vehicles"`,
	RunE: runGenerate,
}

func runGenerate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg, registry, _, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = registry.Close()
	}()

	report, err := registry.Course().Generate(ctx, "", generateTopic, func(message string) {
		cmd.Println(message)
	})
	if err != nil {
		return err
	}

	cmd.Printf("\nDeck written to %s\n", cfg.Course.DeckFile)
	cmd.Printf("Slides generated: %d, skipped: %d (run %s, %s)\n",
		report.Generated, report.Skipped, report.RunID, report.Duration.Round(time.Second))
	return nil
}
