// Package session persists the user's profile and study progress
// across restarts, and keeps the append-only action log.
//
// The state is saved at defined checkpoints: onboarding, ingestion,
// deck generation, and quiz scoring. Reset deletes the state file and
// wipes derived storage, leaving the action log as the audit trail.
package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/fyrsmithlabs/tutord/internal/logging"
)

const actionTimeLayout = "2006-01-02 15:04:05"

// State is the persisted session. ExpertiseLevel is either
// self-assessed at onboarding or assigned by the placement quiz.
type State struct {
	UserName       string    `yaml:"user_name" json:"user_name"`
	StudySubject   string    `yaml:"study_subject" json:"study_subject"`
	StudyGoal      string    `yaml:"study_goal" json:"study_goal"`
	ExpertiseLevel string    `yaml:"expertise_level" json:"expertise_level"`
	UploadedFiles  []string  `yaml:"uploaded_files" json:"uploaded_files,omitempty"`
	QuizTaken      bool      `yaml:"quiz_taken" json:"quiz_taken"`
	CreatedAt      time.Time `yaml:"created_at" json:"created_at"`
	UpdatedAt      time.Time `yaml:"updated_at" json:"updated_at"`
}

// Service owns the session state and the action log.
type Service struct {
	config *Config
	logger *logging.Logger

	mu     sync.Mutex
	state  State
	exists bool
}

// NewService creates the session service, restoring any saved state.
// A missing or unreadable session file starts a fresh session with
// the reason logged.
func NewService(cfg *Config, logger *logging.Logger) (*Service, error) {
	if cfg == nil {
		cfg = NewDefaultConfig()
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.Nop()
	}
	s := &Service{
		config: cfg,
		logger: logger.Named("session"),
	}
	s.load()
	return s, nil
}

func (s *Service) load() {
	ctx := context.Background()
	raw, err := os.ReadFile(s.config.statePath())
	if os.IsNotExist(err) {
		s.logger.Info(ctx, "no saved session, starting fresh")
		return
	}
	if err != nil {
		s.logger.Warn(ctx, "session file unreadable, starting fresh", zap.Error(err))
		return
	}
	var state State
	if err := yaml.Unmarshal(raw, &state); err != nil {
		s.logger.Warn(ctx, "session file corrupt, starting fresh", zap.Error(err))
		return
	}
	s.state = state
	s.exists = true
	s.logger.Info(ctx, "session restored",
		zap.String("user", state.UserName),
		zap.String("subject", state.StudySubject))
}

// Get returns a copy of the state and whether a session exists.
func (s *Service) Get() (State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot(), s.exists
}

// Profile returns the user name and study subject for prompt
// personalization.
func (s *Service) Profile() (string, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.UserName, s.state.StudySubject
}

// Onboard starts (or restarts) a session with the user's profile.
// An empty goal becomes "No specific goal"; an empty level means the
// placement quiz will assess it.
func (s *Service) Onboard(ctx context.Context, userName, subject, goal, level string) (State, error) {
	userName = strings.TrimSpace(userName)
	subject = strings.TrimSpace(subject)
	goal = strings.TrimSpace(goal)
	level = strings.TrimSpace(level)
	if userName == "" {
		return State{}, fmt.Errorf("%w: user name is required", ErrInvalidState)
	}
	if subject == "" {
		return State{}, fmt.Errorf("%w: study subject is required", ErrInvalidState)
	}
	if goal == "" {
		goal = "No specific goal"
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	s.state = State{
		UserName:       userName,
		StudySubject:   subject,
		StudyGoal:      goal,
		ExpertiseLevel: level,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.save(); err != nil {
		return State{}, err
	}
	s.exists = true

	message := fmt.Sprintf("%s wants to study the topic of %s, aiming to achieve the following goal: '%s'", userName, subject, goal)
	if level != "" {
		message += fmt.Sprintf(". Self-assessed knowledge level: %s", level)
	}
	s.record("ONBOARDING", message)
	s.logger.Info(ctx, "session onboarded",
		zap.String("user", userName), zap.String("subject", subject))
	return s.snapshot(), nil
}

// SetUploadedFiles records which source files the corpus was built
// from (ingestion checkpoint).
func (s *Service) SetUploadedFiles(ctx context.Context, files []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.UploadedFiles = append([]string(nil), files...)
	s.state.UpdatedAt = time.Now().UTC()
	if err := s.save(); err != nil {
		return err
	}
	s.exists = true
	s.record("INGESTION", fmt.Sprintf("%d source files ingested", len(files)))
	return nil
}

// SetQuizResult records the placement quiz outcome (quiz checkpoint).
func (s *Service) SetQuizResult(ctx context.Context, level string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.ExpertiseLevel = level
	s.state.QuizTaken = true
	s.state.UpdatedAt = time.Now().UTC()
	if err := s.save(); err != nil {
		return err
	}
	s.exists = true
	s.record("QUIZ", "Placement quiz scored: "+level)
	return nil
}

// MarkDeckGenerated records the deck checkpoint.
func (s *Service) MarkDeckGenerated(ctx context.Context, generated, skipped int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.UpdatedAt = time.Now().UTC()
	if err := s.save(); err != nil {
		return err
	}
	s.record("GENERATION", fmt.Sprintf("Slide deck generated: %d slides, %d topics skipped", generated, skipped))
	return nil
}

// Reset deletes the session file and wipes derived storage. The
// action log survives and records the reset.
func (s *Service) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	if err := os.Remove(s.config.statePath()); err != nil && !os.IsNotExist(err) {
		errs = append(errs, fmt.Errorf("removing session file: %w", err))
	}
	for _, dir := range s.config.DerivedDirs {
		if err := os.RemoveAll(dir); err != nil {
			errs = append(errs, fmt.Errorf("wiping %s: %w", dir, err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}

	s.state = State{}
	s.exists = false
	s.record("RESET", "Session deleted and derived storage wiped")
	s.logger.Info(ctx, "session reset",
		zap.Strings("wiped", s.config.DerivedDirs))
	return nil
}

// Record appends one action log line. Log write failures are logged,
// never fatal; callers use the action trail mid-pipeline and must not
// abort on it.
func (s *Service) Record(actionType, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record(actionType, message)
}

// record must be called with the mutex held.
func (s *Service) record(actionType, message string) {
	ActionsTotal.WithLabelValues(actionType).Inc()
	line := fmt.Sprintf("%s: %s: %s\n", time.Now().Format(actionTimeLayout), actionType, message)

	if err := os.MkdirAll(s.config.Dir, 0700); err != nil {
		s.logger.Warn(context.Background(), "action log directory unavailable", zap.Error(err))
		return
	}
	f, err := os.OpenFile(s.config.actionLogPath(), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		s.logger.Warn(context.Background(), "action log unavailable", zap.Error(err))
		return
	}
	defer f.Close()
	if _, err := f.WriteString(line); err != nil {
		s.logger.Warn(context.Background(), "action log write failed", zap.Error(err))
	}
}

func (s *Service) snapshot() State {
	state := s.state
	state.UploadedFiles = append([]string(nil), s.state.UploadedFiles...)
	return state
}

// save must be called with the mutex held.
func (s *Service) save() error {
	data, err := yaml.Marshal(s.state)
	if err != nil {
		return fmt.Errorf("encoding session: %w", err)
	}
	if err := os.MkdirAll(s.config.Dir, 0700); err != nil {
		return fmt.Errorf("creating session directory: %w", err)
	}
	path := s.config.statePath()
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("writing session: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("writing session: %w", err)
	}
	return nil
}
