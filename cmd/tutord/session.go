package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/tutord/internal/config"
	"github.com/fyrsmithlabs/tutord/internal/logging"
	"github.com/fyrsmithlabs/tutord/internal/session"
)

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(sessionShowCmd)
	sessionCmd.AddCommand(sessionResetCmd)
}

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Inspect or reset the tutoring session",
}

var sessionShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the current session state",
	Long: `Print the onboarded learner profile and checkpoint state of the
current session.

Examples:
  # Show the session
  tutord session show`,
	RunE: runSessionShow,
}

var sessionResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete the session and all derived storage",
	Long: `Delete the session state, the action log, the chat history, and all
derived storage (ingestion cache, indexes, generated deck). Source
materials are left untouched.

Examples:
  # Start over
  tutord session reset`,
	RunE: runSessionReset,
}

// sessionService builds just the session service; the session commands
// have no use for the model-backed services.
func sessionService() (*session.Service, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}
	logger, err := logging.NewLogger(&cfg.Logging, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	svc, err := session.NewService(&cfg.Session, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize session service: %w", err)
	}
	return svc, nil
}

func runSessionShow(cmd *cobra.Command, args []string) error {
	svc, err := sessionService()
	if err != nil {
		return err
	}

	state, ok := svc.Get()
	if !ok {
		cmd.Println("No active session.")
		return nil
	}

	cmd.Printf("User:       %s\n", state.UserName)
	cmd.Printf("Subject:    %s\n", state.StudySubject)
	cmd.Printf("Goal:       %s\n", state.StudyGoal)
	cmd.Printf("Level:      %s\n", state.ExpertiseLevel)
	if len(state.UploadedFiles) > 0 {
		cmd.Printf("Files:      %s\n", strings.Join(state.UploadedFiles, ", "))
	}
	cmd.Printf("Quiz taken: %t\n", state.QuizTaken)
	cmd.Printf("Created:    %s\n", state.CreatedAt.Format(time.RFC3339))
	cmd.Printf("Updated:    %s\n", state.UpdatedAt.Format(time.RFC3339))
	return nil
}

func runSessionReset(cmd *cobra.Command, args []string) error {
	svc, err := sessionService()
	if err != nil {
		return err
	}

	if err := svc.Reset(cmd.Context()); err != nil {
		return err
	}
	cmd.Println("Session reset.")
	return nil
}
