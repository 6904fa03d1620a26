package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/tutord/internal/logging"
)

// fakeSummarizer returns deterministic summaries and counts calls.
type fakeSummarizer struct {
	calls int
	err   error
}

func (f *fakeSummarizer) Complete(ctx context.Context, prompt string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return fmt.Sprintf("summary %d", f.calls), nil
}

// paragraphSplitter splits on blank lines, keeping tests hermetic
// (the production token splitter needs its BPE vocabulary).
type paragraphSplitter struct{}

func (paragraphSplitter) SplitText(text string) ([]string, error) {
	var out []string
	for _, part := range strings.Split(text, "\n\n") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out, nil
}

type recordedAction struct {
	actionType string
	message    string
}

type fakeActions struct {
	records []recordedAction
}

func (f *fakeActions) Record(actionType, message string) {
	f.records = append(f.records, recordedAction{actionType, message})
}

func newTestService(t *testing.T, sourceDir string, summarizer Summarizer, actions ActionRecorder) *Service {
	t.Helper()
	cfg := &Config{
		SourceDir:  sourceDir,
		ChunksFile: filepath.Join(t.TempDir(), "chunks.json"),
		CacheFile:  filepath.Join(t.TempDir(), "cache.json"),
	}
	svc, err := NewService(cfg, summarizer, actions, logging.Nop())
	require.NoError(t, err)
	svc.splitter = paragraphSplitter{}
	return svc
}

func writeSource(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
}

func TestIngest_EmptyDirIsConfigurationError(t *testing.T) {
	svc := newTestService(t, t.TempDir(), &fakeSummarizer{}, nil)

	_, err := svc.Ingest(context.Background())
	assert.ErrorIs(t, err, ErrEmptyCorpus)
}

func TestIngest_MissingDirIsConfigurationError(t *testing.T) {
	svc := newTestService(t, filepath.Join(t.TempDir(), "nope"), &fakeSummarizer{}, nil)

	_, err := svc.Ingest(context.Background())
	assert.ErrorIs(t, err, ErrEmptyCorpus)
}

func TestIngest_NoLLMCallsOnEmptyCorpus(t *testing.T) {
	summarizer := &fakeSummarizer{}
	svc := newTestService(t, t.TempDir(), summarizer, nil)

	_, err := svc.Ingest(context.Background())
	require.Error(t, err)
	assert.Zero(t, summarizer.calls)
}

func TestIngest_ProcessesSources(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "b.txt", "second file")
	writeSource(t, dir, "a.txt", "first paragraph\n\nsecond paragraph")
	writeSource(t, dir, "skip.pdf", "not loadable")

	summarizer := &fakeSummarizer{}
	svc := newTestService(t, dir, summarizer, nil)

	chunks, err := svc.Ingest(context.Background())
	require.NoError(t, err)
	require.Len(t, chunks, 3)

	// Ordered by source name, then position.
	assert.Equal(t, "a.txt-0", chunks[0].ID)
	assert.Equal(t, "a.txt-1", chunks[1].ID)
	assert.Equal(t, "b.txt-0", chunks[2].ID)
	assert.Equal(t, "first paragraph", chunks[0].Text)
	assert.Equal(t, 1, chunks[1].Position)
	for _, chunk := range chunks {
		assert.NotEmpty(t, chunk.Summary)
	}
	assert.Equal(t, 3, summarizer.calls)
}

func TestIngest_UnchangedCorpusNeedsNoModelCalls(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "notes.txt", "some study notes")

	summarizer := &fakeSummarizer{}
	svc := newTestService(t, dir, summarizer, nil)

	first, err := svc.Ingest(context.Background())
	require.NoError(t, err)
	require.Len(t, first, 1)
	require.Equal(t, 1, summarizer.calls)

	second, err := svc.Ingest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, summarizer.calls, "unchanged corpus must not hit the model")
}

func TestIngest_ChangedFileIsReprocessed(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "notes.txt", "original content")

	summarizer := &fakeSummarizer{}
	svc := newTestService(t, dir, summarizer, nil)

	_, err := svc.Ingest(context.Background())
	require.NoError(t, err)

	writeSource(t, dir, "notes.txt", "revised content")
	chunks, err := svc.Ingest(context.Background())
	require.NoError(t, err)

	require.Len(t, chunks, 1)
	assert.Equal(t, "revised content", chunks[0].Text)
	assert.Equal(t, 2, summarizer.calls)
}

func TestIngest_RemovedSourceIsDropped(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "keep.txt", "keep me")
	writeSource(t, dir, "gone.txt", "drop me")

	svc := newTestService(t, dir, &fakeSummarizer{}, nil)

	chunks, err := svc.Ingest(context.Background())
	require.NoError(t, err)
	require.Len(t, chunks, 2)

	require.NoError(t, os.Remove(filepath.Join(dir, "gone.txt")))
	chunks, err = svc.Ingest(context.Background())
	require.NoError(t, err)

	require.Len(t, chunks, 1)
	assert.Equal(t, "keep.txt", chunks[0].Source)
}

func TestIngest_SummarizerErrorPropagates(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "notes.txt", "content")

	wantErr := errors.New("model down")
	svc := newTestService(t, dir, &fakeSummarizer{err: wantErr}, nil)

	_, err := svc.Ingest(context.Background())
	assert.ErrorIs(t, err, wantErr)
}

func TestIngest_RecordsUploadActions(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "notes.txt", "content")

	actions := &fakeActions{}
	svc := newTestService(t, dir, &fakeSummarizer{}, actions)

	_, err := svc.Ingest(context.Background())
	require.NoError(t, err)

	require.Len(t, actions.records, 1)
	assert.Equal(t, "UPLOAD", actions.records[0].actionType)
	assert.Equal(t, "File 'notes.txt' uploaded", actions.records[0].message)
}

func TestIngest_PersistsAcrossServices(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "notes.txt", "content")

	cfg := &Config{
		SourceDir:  dir,
		ChunksFile: filepath.Join(t.TempDir(), "chunks.json"),
		CacheFile:  filepath.Join(t.TempDir(), "cache.json"),
	}

	first, err := NewService(cfg, &fakeSummarizer{}, nil, logging.Nop())
	require.NoError(t, err)
	first.splitter = paragraphSplitter{}
	chunks, err := first.Ingest(context.Background())
	require.NoError(t, err)

	second, err := NewService(cfg, &fakeSummarizer{}, nil, logging.Nop())
	require.NoError(t, err)
	stored, err := second.Chunks()
	require.NoError(t, err)
	assert.Equal(t, chunks, stored)
}

func TestIngest_CanceledContextStops(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "notes.txt", "content")

	svc := newTestService(t, dir, &fakeSummarizer{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Ingest(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
