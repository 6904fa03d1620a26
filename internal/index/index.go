package index

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"math"

	"go.opentelemetry.io/otel"

	"github.com/fyrsmithlabs/tutord/internal/ingest"
)

// indexTracer for OpenTelemetry instrumentation.
var indexTracer = otel.Tracer("tutord.index")

// Sentinel errors for index operations.
var (
	// ErrInvalidConfig indicates invalid index configuration.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrNoChunks is returned when Sync is called with an empty corpus.
	ErrNoChunks = errors.New("no chunks to index")

	// ErrNotSynced is returned when an index is queried before Sync.
	ErrNotSynced = errors.New("index not synced")

	// ErrEmbeddingFailed indicates embedding generation failure.
	ErrEmbeddingFailed = errors.New("failed to generate embeddings")
)

// VectorStore is the retrieval surface shared by the vector backends.
// Satisfied by *VectorIndex (embedded chromem) and *QdrantIndex
// (remote qdrant server).
type VectorStore interface {
	// Sync makes the stored collection match the given chunks.
	Sync(ctx context.Context, chunks []ingest.DocumentChunk) error

	// Search returns up to k chunks most similar to the query.
	Search(ctx context.Context, query string, k int) ([]SearchResult, error)

	// Count returns the number of indexed chunks.
	Count() int
}

// Embedder generates vector embeddings from text.
//
// Dimension must report the output vector length so persisted indexes
// can be invalidated when the embedding model changes.
type Embedder interface {
	// EmbedDocuments generates embeddings for multiple texts.
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedQuery generates an embedding for a single query.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)

	// Dimension returns the embedding vector length.
	Dimension() int
}

// Completer produces a single completion for a prompt. Satisfied by
// *llm.Service.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// corpusFingerprint hashes chunk identity and content so a persisted
// index can detect that the corpus it was built from has changed.
func corpusFingerprint(chunks []ingest.DocumentChunk) string {
	h := sha256.New()
	for _, chunk := range chunks {
		h.Write([]byte(chunk.ID))
		h.Write([]byte{0})
		h.Write([]byte(chunk.Text))
		h.Write([]byte{0})
		h.Write([]byte(chunk.Summary))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// cosineSimilarity returns the cosine of the angle between two vectors,
// or 0 for mismatched or zero-length inputs.
func cosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
