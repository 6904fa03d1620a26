package chat

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistory_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")

	h, err := loadHistory(path, 1000)
	require.NoError(t, err)
	assert.Empty(t, h.all())

	h.append(RoleUser, "hello")
	h.append(RoleAssistant, "hi there")
	require.NoError(t, h.save())

	reloaded, err := loadHistory(path, 1000)
	require.NoError(t, err)
	require.Len(t, reloaded.all(), 2)
	assert.Equal(t, "hello", reloaded.all()[0].Content)
	assert.Equal(t, RoleAssistant, reloaded.all()[1].Role)
	assert.False(t, reloaded.all()[0].At.IsZero())
}

func TestHistory_TrimsOldestFirst(t *testing.T) {
	h := &history{budget: 30}
	h.append(RoleUser, strings.Repeat("a", 20))
	h.append(RoleAssistant, strings.Repeat("b", 20))
	h.append(RoleUser, strings.Repeat("c", 20))

	messages := h.all()
	require.Len(t, messages, 1)
	assert.Equal(t, strings.Repeat("c", 20), messages[0].Content)
}

func TestHistory_KeepsNewestEvenOversized(t *testing.T) {
	h := &history{budget: 10}
	h.append(RoleUser, strings.Repeat("x", 50))

	require.Len(t, h.all(), 1)
}

func TestHistory_TrimAppliedOnLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	h := &history{path: path, budget: 1000}
	h.append(RoleUser, strings.Repeat("a", 20))
	h.append(RoleAssistant, strings.Repeat("b", 20))
	require.NoError(t, h.save())

	reloaded, err := loadHistory(path, 25)
	require.NoError(t, err)
	require.Len(t, reloaded.all(), 1)
	assert.Equal(t, RoleAssistant, reloaded.all()[0].Role)
}

func TestHistory_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0600))

	h, err := loadHistory(path, 1000)
	require.Error(t, err)
	require.NotNil(t, h)
	assert.Empty(t, h.all())

	// The degraded history still records and saves.
	h.append(RoleUser, "fresh start")
	require.NoError(t, h.save())
	reloaded, err := loadHistory(path, 1000)
	require.NoError(t, err)
	assert.Len(t, reloaded.all(), 1)
}

func TestHistory_SaveLeavesNoTempFile(t *testing.T) {
	dir := t.TempDir()
	h := &history{path: filepath.Join(dir, "history.json"), budget: 100}
	h.append(RoleUser, "hello")
	require.NoError(t, h.save())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}
