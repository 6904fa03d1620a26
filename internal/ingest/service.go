package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/tmc/langchaingo/textsplitter"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/tutord/internal/logging"
)

// summaryPrompt asks the model for a per-chunk summary. The summaries
// seed keyword extraction and the hierarchical index.
const summaryPrompt = "Here is the content of the section:\n%s\n\nSummarize the key topics and entities of the section.\n\nSummary: "

// Summarizer produces a chunk summary from a prompt.
type Summarizer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// ActionRecorder records user-visible actions in the session log.
// May be nil; ingestion then runs without action logging.
type ActionRecorder interface {
	Record(actionType, message string)
}

// Service ingests the source directory into summarized chunks.
type Service struct {
	config     *Config
	summarizer Summarizer
	splitter   textsplitter.TextSplitter
	actions    ActionRecorder
	logger     *logging.Logger
}

// NewService creates an ingestion service.
func NewService(cfg *Config, summarizer Summarizer, actions ActionRecorder, logger *logging.Logger) (*Service, error) {
	if cfg == nil {
		cfg = NewDefaultConfig()
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	if summarizer == nil {
		return nil, fmt.Errorf("%w: summarizer required", ErrInvalidConfig)
	}
	if logger == nil {
		logger = logging.Nop()
	}

	return &Service{
		config:     cfg,
		summarizer: summarizer,
		splitter: textsplitter.NewTokenSplitter(
			textsplitter.WithChunkSize(cfg.ChunkSize),
			textsplitter.WithChunkOverlap(cfg.ChunkOverlap),
		),
		actions: actions,
		logger:  logger.Named("ingest"),
	}, nil
}

// Ingest processes the source directory and returns every chunk,
// ordered by source name and position. Unchanged files are served from
// the chunk store without any model calls.
func (s *Service) Ingest(ctx context.Context) ([]DocumentChunk, error) {
	start := time.Now()
	defer func() {
		IngestDuration.Observe(time.Since(start).Seconds())
	}()

	sources, err := listSources(s.config.SourceDir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: directory %s does not exist", ErrEmptyCorpus, s.config.SourceDir)
	}
	if err != nil {
		return nil, err
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyCorpus, s.config.SourceDir)
	}

	cache := loadFingerprintCache(s.config.CacheFile)
	store, err := loadChunkStore(s.config.ChunksFile)
	if err != nil {
		s.logger.Warn(ctx, "chunk store unreadable, rebuilding all sources", zap.Error(err))
		store = &chunkStore{path: s.config.ChunksFile, bySource: make(map[string][]DocumentChunk)}
	}

	keep := make(map[string]bool, len(sources))
	reused := 0
	for _, name := range sources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		raw, err := os.ReadFile(filepath.Join(s.config.SourceDir, name))
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", name, err)
		}

		hash := fingerprint(raw)
		if cache.unchanged(name, hash) && store.get(name) != nil {
			keep[name] = true
			reused++
			FilesProcessed.WithLabelValues("cached").Inc()
			s.logger.Debug(ctx, "source unchanged, served from chunk store", zap.String("source", name))
			continue
		}

		chunks, err := s.processFile(ctx, name, raw)
		if err != nil {
			return nil, err
		}
		if len(chunks) == 0 {
			s.logger.Warn(ctx, "source produced no chunks, skipping", zap.String("source", name))
			continue
		}

		keep[name] = true
		store.put(name, chunks)
		cache.update(name, hash)
		FilesProcessed.WithLabelValues("processed").Inc()
		ChunksCreated.Add(float64(len(chunks)))
		if s.actions != nil {
			s.actions.Record("UPLOAD", fmt.Sprintf("File '%s' uploaded", name))
		}
		s.logger.Info(ctx, "source ingested",
			zap.String("source", name), zap.Int("chunks", len(chunks)))
	}

	if removed := store.drop(keep); len(removed) > 0 {
		s.logger.Info(ctx, "dropped chunks for removed sources", zap.Strings("sources", removed))
	}
	cache.prune(keep)

	if err := store.save(); err != nil {
		return nil, err
	}
	if err := cache.save(); err != nil {
		return nil, err
	}

	chunks := store.all()
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyCorpus, s.config.SourceDir)
	}

	s.logger.Info(ctx, "ingestion complete",
		zap.Int("files", len(sources)),
		zap.Int("reused", reused),
		zap.Int("chunks", len(chunks)),
		zap.Duration("elapsed", time.Since(start)))
	return chunks, nil
}

// Chunks returns the persisted chunks without touching the sources.
// Used by components that only need previously ingested content.
func (s *Service) Chunks() ([]DocumentChunk, error) {
	store, err := loadChunkStore(s.config.ChunksFile)
	if err != nil {
		return nil, err
	}
	return store.all(), nil
}

// processFile splits one file into summarized chunks.
func (s *Service) processFile(ctx context.Context, name string, raw []byte) ([]DocumentChunk, error) {
	text, err := loadText(ctx, raw, filepath.Ext(name))
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", name, err)
	}
	if text == "" {
		return nil, nil
	}

	pieces, err := s.splitter.SplitText(text)
	if err != nil {
		return nil, fmt.Errorf("splitting %s: %w", name, err)
	}

	chunks := make([]DocumentChunk, 0, len(pieces))
	for i, piece := range pieces {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		summary, err := s.summarizer.Complete(ctx, fmt.Sprintf(summaryPrompt, piece))
		if err != nil {
			return nil, fmt.Errorf("summarizing %s chunk %d: %w", name, i, err)
		}

		chunks = append(chunks, DocumentChunk{
			ID:       fmt.Sprintf("%s-%d", name, i),
			Source:   name,
			Position: i,
			Text:     piece,
			Summary:  summary,
		})
	}
	return chunks, nil
}
