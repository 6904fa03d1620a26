package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/tutord/internal/chat"
	"github.com/fyrsmithlabs/tutord/internal/config"
	"github.com/fyrsmithlabs/tutord/internal/course"
	"github.com/fyrsmithlabs/tutord/internal/embeddings"
	"github.com/fyrsmithlabs/tutord/internal/index"
	"github.com/fyrsmithlabs/tutord/internal/ingest"
	"github.com/fyrsmithlabs/tutord/internal/keywords"
	"github.com/fyrsmithlabs/tutord/internal/llm"
	"github.com/fyrsmithlabs/tutord/internal/logging"
	"github.com/fyrsmithlabs/tutord/internal/outline"
	"github.com/fyrsmithlabs/tutord/internal/quiz"
	"github.com/fyrsmithlabs/tutord/internal/session"
)

// Build constructs every tutord service from the loaded configuration.
//
// Construction order follows the dependency graph: session and
// completion first, then embeddings and the two indexes on top of
// them, then the pipeline stages, and finally the user-facing
// services. The first failure aborts the build.
func Build(ctx context.Context, cfg *config.Config, logger *logging.Logger) (Registry, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if logger == nil {
		logger = logging.Nop()
	}

	sessionSvc, err := session.NewService(&cfg.Session, logger)
	if err != nil {
		return nil, fmt.Errorf("creating session service: %w", err)
	}

	llmSvc, err := llm.NewService(&cfg.LLM, logger)
	if err != nil {
		return nil, fmt.Errorf("creating completion service: %w", err)
	}

	embedder, err := embeddings.NewProvider(&cfg.Embeddings, logger)
	if err != nil {
		return nil, fmt.Errorf("creating embedding provider: %w", err)
	}

	ingestSvc, err := ingest.NewService(&cfg.Ingest, llmSvc, sessionSvc, logger)
	if err != nil {
		return nil, fmt.Errorf("creating ingest service: %w", err)
	}

	var vector index.VectorStore
	switch cfg.Index.Provider {
	case index.ProviderQdrant:
		vector, err = index.NewQdrantIndex(&cfg.Index, embedder, logger)
	default:
		vector, err = index.NewVectorIndex(&cfg.Index, embedder, logger)
	}
	if err != nil {
		return nil, fmt.Errorf("creating vector index: %w", err)
	}

	tree, err := index.NewTreeIndex(&cfg.Index, embedder, llmSvc, logger)
	if err != nil {
		return nil, fmt.Errorf("creating tree index: %w", err)
	}

	keywordsSvc := keywords.NewService(llmSvc, logger)
	outlineSvc := outline.NewService(llmSvc, logger)

	courseSvc, err := course.NewService(&cfg.Course, course.Deps{
		Ingester:  ingestSvc,
		Vector:    vector,
		Tree:      tree,
		Keywords:  keywordsSvc,
		Outliner:  outlineSvc,
		Completer: llmSvc,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("creating course service: %w", err)
	}

	runner, err := course.NewRunner(courseSvc, logger)
	if err != nil {
		return nil, fmt.Errorf("creating course runner: %w", err)
	}

	quizSvc, err := quiz.NewService(&cfg.Quiz, vector, llmSvc, logger)
	if err != nil {
		return nil, fmt.Errorf("creating quiz service: %w", err)
	}

	chatSvc, err := chat.NewService(&cfg.Chat, llmSvc.Underlying(), vector, sessionSvc, logger)
	if err != nil {
		return nil, fmt.Errorf("creating chat service: %w", err)
	}

	logger.Info(ctx, "services initialized",
		zap.String("llm_provider", cfg.LLM.Provider),
		zap.String("llm_model", cfg.LLM.Model),
		zap.String("embedding_provider", cfg.Embeddings.Provider),
		zap.String("workspace", cfg.Workspace.Dir))

	return NewRegistry(Options{
		Session:  sessionSvc,
		LLM:      llmSvc,
		Embedder: embedder,
		Ingest:   ingestSvc,
		Vector:   vector,
		Tree:     tree,
		Keywords: keywordsSvc,
		Outline:  outlineSvc,
		Course:   courseSvc,
		Runner:   runner,
		Quiz:     quizSvc,
		Chat:     chatSvc,
		Readier:  NewReadier(ingestSvc, vector),
	}), nil
}

// Ingester runs document ingestion. Satisfied by *ingest.Service.
type Ingester interface {
	Ingest(ctx context.Context) ([]ingest.DocumentChunk, error)
}

// Syncer brings a derived index up to date with the corpus. Satisfied
// by the vector index backends.
type Syncer interface {
	Sync(ctx context.Context, chunks []ingest.DocumentChunk) error
}

// Readier prepares retrieval before search-backed features run:
// incremental ingestion, then vector index sync. On an unchanged
// corpus both steps are cache hits and cost no model calls.
type Readier struct {
	ingest Ingester
	vector Syncer
}

// NewReadier creates a Readier over the ingest service and the vector
// index.
func NewReadier(ingestSvc Ingester, vector Syncer) *Readier {
	return &Readier{ingest: ingestSvc, vector: vector}
}

// EnsureReady ingests the source directory and syncs the vector index
// with the resulting chunks.
func (r *Readier) EnsureReady(ctx context.Context) error {
	chunks, err := r.ingest.Ingest(ctx)
	if err != nil {
		return err
	}
	return r.vector.Sync(ctx, chunks)
}
