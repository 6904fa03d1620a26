package main

import (
	"strings"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(chatCmd)
}

var chatCmd = &cobra.Command{
	Use:   "chat [message]",
	Short: "Ask the tutor a question",
	Long: `Send a single message to the tutor and print the reply. The tutor
answers from the ingested materials, searching the index when it needs
supporting passages. Conversation history persists across invocations
through the session directory.

Examples:
  # Ask a question
  tutord chat "How does regenerative braking work?"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runChat,
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	_, registry, _, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = registry.Close()
	}()

	if err := registry.Readier().EnsureReady(ctx); err != nil {
		return err
	}

	reply, err := registry.Chat().Chat(ctx, strings.Join(args, " "))
	if err != nil {
		return err
	}

	cmd.Println(reply)
	return nil
}
