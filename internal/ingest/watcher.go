package ingest

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/tutord/internal/logging"
)

// ErrWatcherFailed indicates the filesystem watcher failed to initialize.
var ErrWatcherFailed = errors.New("failed to initialize filesystem watcher")

// Watcher re-runs a callback when source files change. Change bursts
// are debounced so a multi-file copy triggers one re-ingest.
type Watcher struct {
	watcher  *fsnotify.Watcher
	dir      string
	debounce time.Duration
	onChange func(context.Context)
	stop     chan struct{}
	logger   *logging.Logger
}

// NewWatcher creates a watcher over the service's source directory.
// onChange is invoked after the debounce window closes; it should run
// re-ingestion plus whatever rebuilds depend on it.
func NewWatcher(cfg *Config, onChange func(context.Context), logger *logging.Logger) (*Watcher, error) {
	if cfg == nil {
		cfg = NewDefaultConfig()
	}
	cfg.ApplyDefaults()
	if onChange == nil {
		return nil, fmt.Errorf("%w: onChange callback required", ErrInvalidConfig)
	}
	if logger == nil {
		logger = logging.Nop()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWatcherFailed, err)
	}

	return &Watcher{
		watcher:  watcher,
		dir:      cfg.SourceDir,
		debounce: cfg.Debounce,
		onChange: onChange,
		stop:     make(chan struct{}),
		logger:   logger.Named("watcher"),
	}, nil
}

// Start begins watching in a background goroutine.
// Call Stop to clean up resources.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.watcher.Add(w.dir); err != nil {
		return fmt.Errorf("watching %s: %w", w.dir, err)
	}

	go w.run(ctx)

	w.logger.Info(ctx, "watching source directory",
		zap.String("dir", w.dir), zap.Duration("debounce", w.debounce))
	return nil
}

// Stop stops the watcher and cleans up resources.
func (w *Watcher) Stop() {
	select {
	case <-w.stop:
		// Already stopped
	default:
		close(w.stop)
		_ = w.watcher.Close()
	}
}

// run processes filesystem events until stopped.
func (w *Watcher) run(ctx context.Context) {
	var pending <-chan time.Time

	for {
		select {
		case <-w.stop:
			return
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !w.relevant(event) {
				continue
			}
			w.logger.Debug(ctx, "source change detected",
				zap.String("file", filepath.Base(event.Name)),
				zap.String("op", event.Op.String()))
			pending = time.After(w.debounce)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn(ctx, "watcher error", zap.Error(err))

		case <-pending:
			pending = nil
			w.logger.Info(ctx, "source directory changed, re-ingesting")
			w.onChange(ctx)
		}
	}
}

// relevant reports whether an event concerns a loadable source file.
func (w *Watcher) relevant(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	return supportedExtensions[strings.ToLower(filepath.Ext(event.Name))]
}
