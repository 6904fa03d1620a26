package index

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	chromem "github.com/philippgille/chromem-go"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/tutord/internal/ingest"
	"github.com/fyrsmithlabs/tutord/internal/logging"
)

// SearchResult is one vector search hit.
type SearchResult struct {
	// ID is the chunk ID.
	ID string `json:"id"`

	// Source is the originating file name.
	Source string `json:"source"`

	// Text is the chunk content.
	Text string `json:"text"`

	// Summary is the chunk's ingestion-time summary.
	Summary string `json:"summary"`

	// Score is the cosine similarity to the query, higher is closer.
	Score float32 `json:"score"`
}

// vectorManifest records what the persisted collection was built from,
// so Sync can tell a reusable collection from a stale one.
type vectorManifest struct {
	Fingerprint string `json:"fingerprint"`
	Dimension   int    `json:"dimension"`
	Chunks      int    `json:"chunks"`
}

// VectorIndex is a persistent chromem-go collection over chunk text.
//
// chromem-go is an embeddable vector database: pure Go, no external
// service, automatic persistence to disk. Documents are keyed by chunk
// ID with source and summary carried as metadata.
type VectorIndex struct {
	db         *chromem.DB
	collection *chromem.Collection
	embedder   Embedder
	config     *Config
	logger     *logging.Logger
}

// NewVectorIndex opens (or creates) the persistent chromem database.
// Call Sync before searching.
func NewVectorIndex(cfg *Config, embedder Embedder, logger *logging.Logger) (*VectorIndex, error) {
	if embedder == nil {
		return nil, fmt.Errorf("%w: embedder is required", ErrInvalidConfig)
	}
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
	logger = logger.Named("index")

	db, err := chromem.NewPersistentDB(cfg.chromemDir(), cfg.Compress)
	if err != nil {
		// A corrupt store is recoverable: Sync rebuilds from chunks.
		logger.Warn(context.Background(), "vector store unreadable, resetting",
			zap.String("reason", "decode failed"), zap.Error(err))
		if rmErr := os.RemoveAll(cfg.chromemDir()); rmErr != nil {
			return nil, fmt.Errorf("resetting vector store: %w", rmErr)
		}
		db, err = chromem.NewPersistentDB(cfg.chromemDir(), cfg.Compress)
		if err != nil {
			return nil, fmt.Errorf("creating vector store: %w", err)
		}
	}

	return &VectorIndex{
		db:       db,
		embedder: embedder,
		config:   cfg,
		logger:   logger,
	}, nil
}

// embeddingFunc adapts the Embedder for chromem query embedding.
func (v *VectorIndex) embeddingFunc() chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		return v.embedder.EmbedQuery(ctx, text)
	}
}

// Sync makes the persisted collection match the given chunks. When the
// manifest proves the collection was built from exactly these chunks
// with the current embedder, the collection is reused without any
// embedding calls; otherwise it is rebuilt and persisted.
func (v *VectorIndex) Sync(ctx context.Context, chunks []ingest.DocumentChunk) error {
	ctx, span := indexTracer.Start(ctx, "VectorIndex.Sync")
	defer span.End()
	span.SetAttributes(attribute.Int("chunk_count", len(chunks)))

	if len(chunks) == 0 {
		return ErrNoChunks
	}

	start := time.Now()
	defer func() {
		BuildDuration.WithLabelValues("vector").Observe(time.Since(start).Seconds())
	}()

	fingerprint := corpusFingerprint(chunks)
	reason := v.load(fingerprint, len(chunks))
	if reason == "" {
		BuildsTotal.WithLabelValues("vector", "loaded").Inc()
		span.SetAttributes(attribute.String("outcome", "loaded"))
		v.logger.Info(ctx, "vector index loaded from storage", zap.Int("chunks", len(chunks)))
		return nil
	}
	v.logger.Warn(ctx, "vector index rebuild required", zap.String("reason", reason))

	if err := v.rebuild(ctx, chunks, fingerprint); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	BuildsTotal.WithLabelValues("vector", "rebuilt").Inc()
	span.SetAttributes(attribute.String("outcome", "rebuilt"))
	v.logger.Info(ctx, "vector index rebuilt",
		zap.Int("chunks", len(chunks)),
		zap.Duration("elapsed", time.Since(start)))
	return nil
}

// load validates the persisted collection against the current corpus.
// It returns an empty string when the collection is reusable, or the
// rebuild reason otherwise.
func (v *VectorIndex) load(fingerprint string, chunkCount int) string {
	data, err := os.ReadFile(v.config.vectorManifestPath())
	if os.IsNotExist(err) {
		return "not found"
	}
	if err != nil {
		return "manifest unreadable"
	}

	var manifest vectorManifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return "decode failed"
	}
	if manifest.Dimension != v.embedder.Dimension() {
		return "dimension mismatch"
	}
	if manifest.Fingerprint != fingerprint {
		return "corpus changed"
	}

	collection := v.db.GetCollection(v.config.Collection, v.embeddingFunc())
	if collection == nil {
		return "collection not found"
	}
	if collection.Count() != chunkCount {
		return "incomplete collection"
	}

	v.collection = collection
	return ""
}

// rebuild drops the stale collection and builds a fresh one from the
// chunks, embedding all texts in one batch.
func (v *VectorIndex) rebuild(ctx context.Context, chunks []ingest.DocumentChunk, fingerprint string) error {
	if err := v.db.DeleteCollection(v.config.Collection); err != nil {
		return fmt.Errorf("dropping stale collection: %w", err)
	}
	collection, err := v.db.CreateCollection(v.config.Collection, nil, v.embeddingFunc())
	if err != nil {
		return fmt.Errorf("creating collection %s: %w", v.config.Collection, err)
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}
	vectors, err := v.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
	}
	if len(vectors) != len(chunks) {
		return fmt.Errorf("%w: got %d embeddings for %d chunks", ErrEmbeddingFailed, len(vectors), len(chunks))
	}

	docs := make([]chromem.Document, len(chunks))
	for i, chunk := range chunks {
		docs[i] = chromem.Document{
			ID:      chunk.ID,
			Content: chunk.Text,
			Metadata: map[string]string{
				"source":  chunk.Source,
				"summary": chunk.Summary,
			},
			Embedding: vectors[i],
		}
	}
	// Concurrency of 1 since embeddings are precomputed.
	if err := collection.AddDocuments(ctx, docs, 1); err != nil {
		return fmt.Errorf("adding documents: %w", err)
	}

	v.collection = collection
	return v.saveManifest(vectorManifest{
		Fingerprint: fingerprint,
		Dimension:   v.embedder.Dimension(),
		Chunks:      len(chunks),
	})
}

// saveManifest writes the manifest to disk atomically.
func (v *VectorIndex) saveManifest(manifest vectorManifest) error {
	if err := os.MkdirAll(v.config.Dir, 0o755); err != nil {
		return fmt.Errorf("creating index directory: %w", err)
	}
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling manifest: %w", err)
	}

	tmpPath := v.config.vectorManifestPath() + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o600); err != nil {
		return fmt.Errorf("writing manifest: %w", err)
	}
	if err := os.Rename(tmpPath, v.config.vectorManifestPath()); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming manifest: %w", err)
	}
	return nil
}

// Search returns up to k chunks most similar to the query, ordered by
// similarity, highest first.
func (v *VectorIndex) Search(ctx context.Context, query string, k int) ([]SearchResult, error) {
	ctx, span := indexTracer.Start(ctx, "VectorIndex.Search")
	defer span.End()
	span.SetAttributes(attribute.Int("k", k))

	if v.collection == nil {
		return nil, ErrNotSynced
	}
	if k <= 0 {
		return nil, fmt.Errorf("k must be positive, got %d", k)
	}
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("query cannot be empty")
	}

	// Cap k at collection size (chromem requires nResults <= doc count)
	count := v.collection.Count()
	if count == 0 {
		return []SearchResult{}, nil
	}
	if k > count {
		k = count
	}

	results, err := v.collection.Query(ctx, query, k, nil, nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("querying collection %s: %w", v.config.Collection, err)
	}
	QueriesTotal.WithLabelValues("vector").Inc()

	out := make([]SearchResult, len(results))
	for i, r := range results {
		out[i] = SearchResult{
			ID:      r.ID,
			Text:    r.Content,
			Source:  r.Metadata["source"],
			Summary: r.Metadata["summary"],
			Score:   r.Similarity,
		}
	}

	span.SetAttributes(attribute.Int("results", len(out)))
	v.logger.Debug(ctx, "vector search",
		zap.Int("k", k), zap.Int("results", len(out)))
	return out, nil
}

// Count returns the number of indexed chunks.
func (v *VectorIndex) Count() int {
	if v.collection == nil {
		return 0
	}
	return v.collection.Count()
}
