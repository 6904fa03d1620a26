// Package quiz builds and scores the placement quiz that calibrates
// the tutor to the user's level.
//
// Questions are generated in one JSON-mode completion grounded on
// chunks retrieved from the vector index, persisted as CSV, and scored
// against third/two-third thresholds into Beginner, Intermediate, or
// Advanced.
package quiz

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/tutord/internal/index"
	"github.com/fyrsmithlabs/tutord/internal/llm"
	"github.com/fyrsmithlabs/tutord/internal/logging"
)

// ErrParse indicates the model reply yielded no usable questions.
var ErrParse = errors.New("quiz generation failed")

// Expertise levels assigned by Score and recorded into the session.
const (
	LevelBeginner     = "Beginner"
	LevelIntermediate = "Intermediate"
	LevelAdvanced     = "Advanced"
)

const quizQuery = "Create %d different quiz questions relevant for testing a candidate's knowledge about %s. " +
	"Each question will have 4 answer options. " +
	"Questions must be general topic-related, not specific to the provided text. " +
	"For each question, provide also the correct answer and the answer rationale. " +
	"The rationale must not make any reference to the provided context, any exams or the topic name. " +
	"Only one answer option should be correct."

const contextPrompt = "Context information is below.\n" +
	"---------------------\n" +
	"%s\n" +
	"---------------------\n" +
	"Given the context information and not prior knowledge, answer the query.\n" +
	"Query: %s\n" +
	"Answer: "

const quizSystemPrompt = "You write multiple-choice quizzes as JSON. " +
	"Respond with a JSON object of the form " +
	`{"questions": [{"question": "...", "options": ["...", "...", "...", "..."], "correct": 1, "rationale": "..."}]} ` +
	"where correct is the 1-based index of the right option."

// Question is one multiple-choice quiz question. Correct is the
// 1-based index into Options.
type Question struct {
	Number    int       `json:"question_no"`
	Text      string    `json:"question_text"`
	Options   [4]string `json:"options"`
	Correct   int       `json:"correct_answer"`
	Rationale string    `json:"rationale"`
}

// Result is a scored quiz attempt.
type Result struct {
	Score int    `json:"score"`
	Total int    `json:"total"`
	Level string `json:"level"`
}

// Retriever fetches relevant chunks from the vector index. Satisfied
// by the index vector backends.
type Retriever interface {
	Search(ctx context.Context, query string, k int) ([]index.SearchResult, error)
}

// Completer issues JSON-mode completions. Satisfied by *llm.Service.
type Completer interface {
	CompleteJSON(ctx context.Context, system, prompt string) (string, error)
}

// Service builds, persists, and loads quizzes.
type Service struct {
	config    *Config
	retriever Retriever
	completer Completer
	logger    *logging.Logger
}

// NewService creates a quiz service.
func NewService(cfg *Config, retriever Retriever, completer Completer, logger *logging.Logger) (*Service, error) {
	if cfg == nil {
		cfg = NewDefaultConfig()
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if retriever == nil {
		return nil, fmt.Errorf("%w: retriever is required", ErrInvalidConfig)
	}
	if completer == nil {
		return nil, fmt.Errorf("%w: completer is required", ErrInvalidConfig)
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &Service{
		config:    cfg,
		retriever: retriever,
		completer: completer,
		logger:    logger.Named("quiz"),
	}, nil
}

// Build generates a quiz about subject from the top retrieved chunks
// and persists it. Questions are renumbered sequentially; a reply with
// zero usable questions is ErrParse.
func (s *Service) Build(ctx context.Context, subject string) ([]Question, error) {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return nil, fmt.Errorf("%w: subject is required", ErrInvalidConfig)
	}

	results, err := s.retriever.Search(ctx, subject, s.config.TopK)
	if err != nil {
		return nil, fmt.Errorf("quiz: %w", err)
	}
	passages := make([]string, 0, len(results))
	for _, result := range results {
		passages = append(passages, result.Text)
	}

	query := fmt.Sprintf(quizQuery, s.config.Size, subject)
	prompt := fmt.Sprintf(contextPrompt, strings.Join(passages, "\n\n"), query)
	reply, err := s.completer.CompleteJSON(ctx, quizSystemPrompt, prompt)
	if err != nil {
		BuildsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("quiz: %w", err)
	}

	questions := parseQuestions(reply)
	if len(questions) == 0 {
		BuildsTotal.WithLabelValues("parse_failed").Inc()
		return nil, fmt.Errorf("%w: no usable questions in reply", ErrParse)
	}

	if err := s.save(questions); err != nil {
		BuildsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("quiz: %w", err)
	}
	BuildsTotal.WithLabelValues("ok").Inc()
	s.logger.Info(ctx, "quiz built",
		zap.String("subject", subject),
		zap.Int("questions", len(questions)),
		zap.Int("chunks", len(results)))
	return questions, nil
}

type wireQuestion struct {
	Question  string   `json:"question"`
	Options   []string `json:"options"`
	Correct   int      `json:"correct"`
	Rationale string   `json:"rationale"`
}

// parseQuestions decodes the reply tolerantly, accepting the requested
// {"questions": [...]} object or a bare array, and dropping questions
// without text, four options, or an in-range correct index.
func parseQuestions(reply string) []Question {
	cleaned := llm.CleanJSON(reply)

	var raw []wireQuestion
	var payload struct {
		Questions []wireQuestion `json:"questions"`
	}
	if err := json.Unmarshal([]byte(cleaned), &payload); err == nil && len(payload.Questions) > 0 {
		raw = payload.Questions
	} else if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		return nil
	}

	var questions []Question
	for _, w := range raw {
		text := strings.TrimSpace(w.Question)
		if text == "" || len(w.Options) != 4 || w.Correct < 1 || w.Correct > 4 {
			continue
		}
		q := Question{
			Number:    len(questions) + 1,
			Text:      text,
			Correct:   w.Correct,
			Rationale: strings.TrimSpace(w.Rationale),
		}
		usable := true
		for i, option := range w.Options {
			option = strings.TrimSpace(option)
			if option == "" {
				usable = false
				break
			}
			q.Options[i] = option
		}
		if !usable {
			continue
		}
		questions = append(questions, q)
	}
	return questions
}

// Score grades 1-based answers against the questions. Unanswered
// questions count as wrong; surplus answers are ignored. Thresholds:
// a third or less is Beginner, two thirds or less Intermediate, the
// rest Advanced.
func Score(questions []Question, answers []int) Result {
	score := 0
	for i, question := range questions {
		if i < len(answers) && answers[i] == question.Correct {
			score++
		}
	}
	total := len(questions)

	level := LevelAdvanced
	switch {
	case 3*score <= total:
		level = LevelBeginner
	case 3*score <= 2*total:
		level = LevelIntermediate
	}
	ScoresTotal.WithLabelValues(level).Inc()
	return Result{Score: score, Total: total, Level: level}
}
