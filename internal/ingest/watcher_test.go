package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/tutord/internal/logging"
)

func TestWatcher_TriggersOnChange(t *testing.T) {
	dir := t.TempDir()
	cfg := &Config{SourceDir: dir, Debounce: 50 * time.Millisecond}

	fired := make(chan struct{}, 1)
	watcher, err := NewWatcher(cfg, func(context.Context) {
		select {
		case fired <- struct{}{}:
		default:
		}
	}, logging.Nop())
	require.NoError(t, err)
	defer watcher.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, watcher.Start(ctx))

	// Give the watch loop time to initialize
	time.Sleep(50 * time.Millisecond)

	err = os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("content"), 0o644)
	require.NoError(t, err)

	select {
	case <-fired:
	case <-time.After(3 * time.Second):
		t.Fatal("timeout waiting for change callback")
	}
}

func TestWatcher_IgnoresUnsupportedFiles(t *testing.T) {
	dir := t.TempDir()
	cfg := &Config{SourceDir: dir, Debounce: 50 * time.Millisecond}

	fired := make(chan struct{}, 1)
	watcher, err := NewWatcher(cfg, func(context.Context) {
		select {
		case fired <- struct{}{}:
		default:
		}
	}, logging.Nop())
	require.NoError(t, err)
	defer watcher.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, watcher.Start(ctx))
	time.Sleep(50 * time.Millisecond)

	err = os.WriteFile(filepath.Join(dir, "image.png"), []byte{0x89}, 0o644)
	require.NoError(t, err)

	select {
	case <-fired:
		t.Fatal("callback fired for unsupported file")
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatcher_StopIsIdempotent(t *testing.T) {
	watcher, err := NewWatcher(&Config{SourceDir: t.TempDir()}, func(context.Context) {}, logging.Nop())
	require.NoError(t, err)

	watcher.Stop()
	watcher.Stop()
}

func TestWatcher_RequiresCallback(t *testing.T) {
	_, err := NewWatcher(&Config{SourceDir: t.TempDir()}, nil, logging.Nop())
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestWatcher_Relevant(t *testing.T) {
	watcher, err := NewWatcher(&Config{SourceDir: t.TempDir()}, func(context.Context) {}, logging.Nop())
	require.NoError(t, err)
	defer watcher.Stop()

	tests := []struct {
		name  string
		event fsnotify.Event
		want  bool
	}{
		{"write to txt", fsnotify.Event{Name: "a.txt", Op: fsnotify.Write}, true},
		{"create md", fsnotify.Event{Name: "b.md", Op: fsnotify.Create}, true},
		{"remove csv", fsnotify.Event{Name: "c.csv", Op: fsnotify.Remove}, true},
		{"rename html", fsnotify.Event{Name: "d.HTML", Op: fsnotify.Rename}, true},
		{"chmod only", fsnotify.Event{Name: "a.txt", Op: fsnotify.Chmod}, false},
		{"unsupported extension", fsnotify.Event{Name: "a.pdf", Op: fsnotify.Write}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, watcher.relevant(tt.event))
		})
	}
}
