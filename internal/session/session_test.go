package session

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/tutord/internal/logging"
)

func newTestConfig(t *testing.T) *Config {
	t.Helper()
	root := t.TempDir()
	return &Config{
		Dir: filepath.Join(root, "session_data"),
		DerivedDirs: []string{
			filepath.Join(root, "cache"),
			filepath.Join(root, "ingestion_storage"),
			filepath.Join(root, "index_storage"),
		},
	}
}

func newTestService(t *testing.T, cfg *Config) *Service {
	t.Helper()
	svc, err := NewService(cfg, logging.Nop())
	require.NoError(t, err)
	return svc
}

func TestOnboard_PersistsAcrossRestarts(t *testing.T) {
	cfg := newTestConfig(t)
	svc := newTestService(t, cfg)

	_, exists := svc.Get()
	assert.False(t, exists)

	state, err := svc.Onboard(context.Background(), "Alice", "nuclear reactors", "pass the exam", "Beginner")
	require.NoError(t, err)
	assert.Equal(t, "Alice", state.UserName)
	assert.Equal(t, "pass the exam", state.StudyGoal)
	assert.False(t, state.CreatedAt.IsZero())
	require.FileExists(t, cfg.statePath())

	restored := newTestService(t, cfg)
	got, exists := restored.Get()
	require.True(t, exists)
	assert.Equal(t, "Alice", got.UserName)
	assert.Equal(t, "nuclear reactors", got.StudySubject)
	assert.Equal(t, "Beginner", got.ExpertiseLevel)
	assert.Equal(t, state.CreatedAt.Unix(), got.CreatedAt.Unix())

	name, subject := restored.Profile()
	assert.Equal(t, "Alice", name)
	assert.Equal(t, "nuclear reactors", subject)
}

func TestOnboard_DefaultsGoal(t *testing.T) {
	svc := newTestService(t, newTestConfig(t))

	state, err := svc.Onboard(context.Background(), "Alice", "physics", "  ", "")
	require.NoError(t, err)
	assert.Equal(t, "No specific goal", state.StudyGoal)
	assert.Empty(t, state.ExpertiseLevel)
}

func TestOnboard_RequiresNameAndSubject(t *testing.T) {
	svc := newTestService(t, newTestConfig(t))

	_, err := svc.Onboard(context.Background(), " ", "physics", "", "")
	require.ErrorIs(t, err, ErrInvalidState)

	_, err = svc.Onboard(context.Background(), "Alice", "", "", "")
	require.ErrorIs(t, err, ErrInvalidState)

	_, exists := svc.Get()
	assert.False(t, exists)
}

func TestCorruptSessionFileStartsFresh(t *testing.T) {
	cfg := newTestConfig(t)
	require.NoError(t, os.MkdirAll(cfg.Dir, 0700))
	require.NoError(t, os.WriteFile(cfg.statePath(), []byte(":\tnot yaml"), 0600))

	svc := newTestService(t, cfg)
	_, exists := svc.Get()
	assert.False(t, exists)
}

func TestCheckpointsUpdateState(t *testing.T) {
	cfg := newTestConfig(t)
	svc := newTestService(t, cfg)
	_, err := svc.Onboard(context.Background(), "Alice", "physics", "", "")
	require.NoError(t, err)

	require.NoError(t, svc.SetUploadedFiles(context.Background(), []string{"a.txt", "b.txt"}))
	require.NoError(t, svc.SetQuizResult(context.Background(), "Intermediate"))
	require.NoError(t, svc.MarkDeckGenerated(context.Background(), 12, 1))

	restored := newTestService(t, cfg)
	state, exists := restored.Get()
	require.True(t, exists)
	assert.Equal(t, []string{"a.txt", "b.txt"}, state.UploadedFiles)
	assert.Equal(t, "Intermediate", state.ExpertiseLevel)
	assert.True(t, state.QuizTaken)
	assert.False(t, state.UpdatedAt.Before(state.CreatedAt))
}

func TestReset_WipesDerivedStorage(t *testing.T) {
	cfg := newTestConfig(t)
	svc := newTestService(t, cfg)
	_, err := svc.Onboard(context.Background(), "Alice", "physics", "", "")
	require.NoError(t, err)

	for _, dir := range cfg.DerivedDirs {
		require.NoError(t, os.MkdirAll(dir, 0700))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "artifact.json"), []byte("{}"), 0600))
	}

	require.NoError(t, svc.Reset(context.Background()))

	assert.NoFileExists(t, cfg.statePath())
	for _, dir := range cfg.DerivedDirs {
		assert.NoDirExists(t, dir)
	}
	_, exists := svc.Get()
	assert.False(t, exists)

	// The action log survives and records the reset.
	raw, err := os.ReadFile(cfg.actionLogPath())
	require.NoError(t, err)
	assert.Contains(t, string(raw), "RESET: Session deleted")
}

func TestReset_ToleratesMissingStorage(t *testing.T) {
	svc := newTestService(t, newTestConfig(t))
	require.NoError(t, svc.Reset(context.Background()))
}

func TestRecord_AppendsFormattedLines(t *testing.T) {
	cfg := newTestConfig(t)
	svc := newTestService(t, cfg)

	svc.Record("UPLOAD", "File 'notes.txt' uploaded")
	svc.Record("ONBOARDING", "Alice wants to study the topic of physics")

	raw, err := os.ReadFile(cfg.actionLogPath())
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(string(raw), "\n"), "\n")
	require.Len(t, lines, 2)

	// "2006-01-02 15:04:05: UPLOAD: File 'notes.txt' uploaded"
	require.Greater(t, len(lines[0]), 19)
	_, err = time.Parse(actionTimeLayout, lines[0][:19])
	require.NoError(t, err)
	assert.Equal(t, ": UPLOAD: File 'notes.txt' uploaded", lines[0][19:])
	assert.True(t, strings.HasSuffix(lines[1], ": ONBOARDING: Alice wants to study the topic of physics"))
}

func TestConfigValidate(t *testing.T) {
	cfg := &Config{Dir: "  "}
	require.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)

	cfg = NewDefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, filepath.Join("session_data", "user_session_state.yaml"), cfg.statePath())
	assert.Equal(t, filepath.Join("session_data", "user_actions.log"), cfg.actionLogPath())
	assert.Equal(t, []string{"cache", "ingestion_storage", "index_storage"}, cfg.DerivedDirs)
}
