package main

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/tutord/internal/quiz"
)

func init() {
	rootCmd.AddCommand(quizCmd)
}

var quizCmd = &cobra.Command{
	Use:   "quiz",
	Short: "Take a placement quiz on your study subject",
	Long: `Build a multiple-choice placement quiz about the session's study
subject, grounded in the ingested materials, and take it on the
terminal. The scored expertise level is recorded in the session.

Requires an onboarded session; create one through the HTTP API or the
tutoring UI first.

Examples:
  # Take the quiz
  tutord quiz`,
	RunE: runQuiz,
}

func runQuiz(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	_, registry, _, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = registry.Close()
	}()

	state, ok := registry.Session().Get()
	if !ok {
		return fmt.Errorf("no active session; onboard through the API or UI first")
	}

	if err := registry.Readier().EnsureReady(ctx); err != nil {
		return err
	}

	questions, err := registry.Quiz().Build(ctx, state.StudySubject)
	if err != nil {
		return err
	}

	cmd.Printf("Placement quiz: %s (%d questions)\n", state.StudySubject, len(questions))

	reader := bufio.NewReader(cmd.InOrStdin())
	answers := make([]int, 0, len(questions))
	for _, question := range questions {
		cmd.Printf("\n%d. %s\n", question.Number, question.Text)
		for i, option := range question.Options {
			cmd.Printf("   %d) %s\n", i+1, option)
		}
		answers = append(answers, readAnswer(cmd, reader, len(question.Options)))
	}

	result := quiz.Score(questions, answers)
	cmd.Printf("\nScore: %d/%d\n", result.Score, result.Total)
	cmd.Printf("Assessed level: %s\n", result.Level)

	if err := registry.Session().SetQuizResult(ctx, result.Level); err != nil {
		return fmt.Errorf("failed to record quiz result: %w", err)
	}
	return nil
}

// readAnswer prompts until it reads a choice between 1 and max. EOF
// counts as no answer, which scores as wrong.
func readAnswer(cmd *cobra.Command, reader *bufio.Reader, max int) int {
	for {
		cmd.Printf("Answer (1-%d): ", max)
		line, err := reader.ReadString('\n')
		choice, convErr := strconv.Atoi(strings.TrimSpace(line))
		if convErr == nil && choice >= 1 && choice <= max {
			return choice
		}
		if err != nil {
			cmd.Println()
			return 0
		}
	}
}
