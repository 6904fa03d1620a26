package index

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"github.com/fyrsmithlabs/tutord/internal/ingest"
	"github.com/fyrsmithlabs/tutord/internal/logging"
)

// Qdrant client tuning. Message size covers a whole-corpus upsert with
// precomputed vectors.
const (
	qdrantMaxMessageSize = 50 * 1024 * 1024
	qdrantDialTimeout    = 5 * time.Second
	qdrantRequestTimeout = 30 * time.Second
	qdrantRetryAttempts  = 3
)

// QdrantIndex is the vector index backed by a remote qdrant server.
// The collection lives on the server; a local manifest records what it
// was built from so Sync can reuse it across restarts, the same way
// the chromem backend does.
type QdrantIndex struct {
	client   *qdrant.Client
	embedder Embedder
	config   *Config
	logger   *logging.Logger

	synced bool
	count  int
}

// NewQdrantIndex connects to the qdrant server and verifies it is
// healthy. Call Sync before searching.
func NewQdrantIndex(cfg *Config, embedder Embedder, logger *logging.Logger) (*QdrantIndex, error) {
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

	qdrantConfig := &qdrant.Config{
		Host:   cfg.QdrantHost,
		Port:   cfg.QdrantPort,
		UseTLS: cfg.QdrantTLS,
		APIKey: cfg.QdrantAPIKey,
		GrpcOptions: []grpc.DialOption{
			grpc.WithDefaultCallOptions(
				grpc.MaxCallRecvMsgSize(qdrantMaxMessageSize),
				grpc.MaxCallSendMsgSize(qdrantMaxMessageSize),
			),
		},
	}
	if !cfg.QdrantTLS {
		qdrantConfig.GrpcOptions = append(qdrantConfig.GrpcOptions,
			grpc.WithTransportCredentials(insecure.NewCredentials()),
		)
	}

	client, err := qdrant.NewClient(qdrantConfig)
	if err != nil {
		return nil, fmt.Errorf("creating qdrant client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), qdrantDialTimeout)
	defer cancel()
	if _, err := client.HealthCheck(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("qdrant health check failed for %s:%d: %w", cfg.QdrantHost, cfg.QdrantPort, err)
	}

	logger.Info(ctx, "qdrant connection established",
		zap.String("host", cfg.QdrantHost),
		zap.Int("port", cfg.QdrantPort))

	return &QdrantIndex{
		client:   client,
		embedder: embedder,
		config:   cfg,
		logger:   logger,
	}, nil
}

// Sync makes the remote collection match the given chunks. When the
// local manifest proves the collection was built from exactly these
// chunks with the current embedder, the collection is reused without
// any embedding calls; otherwise it is rebuilt.
func (q *QdrantIndex) Sync(ctx context.Context, chunks []ingest.DocumentChunk) error {
	ctx, span := indexTracer.Start(ctx, "QdrantIndex.Sync")
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
	reason := q.load(ctx, fingerprint, len(chunks))
	if reason == "" {
		BuildsTotal.WithLabelValues("vector", "loaded").Inc()
		span.SetAttributes(attribute.String("outcome", "loaded"))
		q.logger.Info(ctx, "qdrant collection reused", zap.Int("chunks", len(chunks)))
		return nil
	}
	q.logger.Warn(ctx, "qdrant collection rebuild required", zap.String("reason", reason))

	if err := q.rebuild(ctx, chunks, fingerprint); err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return err
	}

	BuildsTotal.WithLabelValues("vector", "rebuilt").Inc()
	span.SetAttributes(attribute.String("outcome", "rebuilt"))
	q.logger.Info(ctx, "qdrant collection rebuilt",
		zap.Int("chunks", len(chunks)),
		zap.Duration("elapsed", time.Since(start)))
	return nil
}

// load validates the manifest and the remote collection against the
// current corpus. It returns an empty string when the collection is
// reusable, or the rebuild reason otherwise.
func (q *QdrantIndex) load(ctx context.Context, fingerprint string, chunkCount int) string {
	data, err := os.ReadFile(q.config.qdrantManifestPath())
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
	if manifest.Dimension != q.embedder.Dimension() {
		return "dimension mismatch"
	}
	if manifest.Fingerprint != fingerprint {
		return "corpus changed"
	}
	if manifest.Chunks != chunkCount {
		return "incomplete collection"
	}

	exists, err := q.collectionExists(ctx)
	if err != nil {
		return "collection check failed"
	}
	if !exists {
		return "collection not found"
	}

	q.synced = true
	q.count = manifest.Chunks
	return ""
}

// rebuild drops the stale collection and builds a fresh one from the
// chunks, embedding all texts in one batch.
func (q *QdrantIndex) rebuild(ctx context.Context, chunks []ingest.DocumentChunk, fingerprint string) error {
	exists, err := q.collectionExists(ctx)
	if err != nil {
		return fmt.Errorf("checking collection %s: %w", q.config.Collection, err)
	}
	if exists {
		if err := q.retry(ctx, func(ctx context.Context) error {
			return q.client.DeleteCollection(ctx, q.config.Collection)
		}); err != nil {
			return fmt.Errorf("dropping stale collection: %w", err)
		}
	}

	if err := q.retry(ctx, func(ctx context.Context) error {
		return q.client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: q.config.Collection,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     uint64(q.embedder.Dimension()),
				Distance: qdrant.Distance_Cosine,
			}),
		})
	}); err != nil {
		return fmt.Errorf("creating collection %s: %w", q.config.Collection, err)
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}
	vectors, err := q.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
	}
	if len(vectors) != len(chunks) {
		return fmt.Errorf("%w: got %d embeddings for %d chunks", ErrEmbeddingFailed, len(vectors), len(chunks))
	}

	points := make([]*qdrant.PointStruct, len(chunks))
	for i, chunk := range chunks {
		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(pointID(chunk.ID)),
			Vectors: qdrant.NewVectors(vectors[i]...),
			Payload: map[string]*qdrant.Value{
				"id":      qdrantString(chunk.ID),
				"source":  qdrantString(chunk.Source),
				"summary": qdrantString(chunk.Summary),
				"text":    qdrantString(chunk.Text),
			},
		}
	}

	// Wait so the collection is queryable as soon as Sync returns.
	if err := q.retry(ctx, func(ctx context.Context) error {
		_, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: q.config.Collection,
			Points:         points,
			Wait:           qdrant.PtrOf(true),
		})
		return err
	}); err != nil {
		return fmt.Errorf("upserting points: %w", err)
	}

	q.synced = true
	q.count = len(chunks)
	return q.saveManifest(vectorManifest{
		Fingerprint: fingerprint,
		Dimension:   q.embedder.Dimension(),
		Chunks:      len(chunks),
	})
}

// saveManifest writes the manifest to disk atomically.
func (q *QdrantIndex) saveManifest(manifest vectorManifest) error {
	if err := os.MkdirAll(q.config.Dir, 0o755); err != nil {
		return fmt.Errorf("creating index directory: %w", err)
	}
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling manifest: %w", err)
	}

	tmpPath := q.config.qdrantManifestPath() + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o600); err != nil {
		return fmt.Errorf("writing manifest: %w", err)
	}
	if err := os.Rename(tmpPath, q.config.qdrantManifestPath()); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming manifest: %w", err)
	}
	return nil
}

// Search returns up to k chunks most similar to the query, ordered by
// similarity, highest first.
func (q *QdrantIndex) Search(ctx context.Context, query string, k int) ([]SearchResult, error) {
	ctx, span := indexTracer.Start(ctx, "QdrantIndex.Search")
	defer span.End()
	span.SetAttributes(attribute.Int("k", k))

	if !q.synced {
		return nil, ErrNotSynced
	}
	if k <= 0 {
		return nil, fmt.Errorf("k must be positive, got %d", k)
	}
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("query cannot be empty")
	}
	if q.count == 0 {
		return []SearchResult{}, nil
	}
	if k > q.count {
		k = q.count
	}

	vector, err := q.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
	}

	var scored []*qdrant.ScoredPoint
	err = q.retry(ctx, func(ctx context.Context) error {
		results, err := q.client.Query(ctx, &qdrant.QueryPoints{
			CollectionName: q.config.Collection,
			Query:          qdrant.NewQuery(vector...),
			Limit:          qdrant.PtrOf(uint64(k)),
			WithPayload:    qdrant.NewWithPayload(true),
		})
		if err != nil {
			return err
		}
		scored = results
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return nil, fmt.Errorf("querying collection %s: %w", q.config.Collection, err)
	}
	QueriesTotal.WithLabelValues("vector").Inc()

	out := make([]SearchResult, len(scored))
	for i, point := range scored {
		out[i] = SearchResult{
			ID:      payloadString(point.Payload, "id"),
			Source:  payloadString(point.Payload, "source"),
			Summary: payloadString(point.Payload, "summary"),
			Text:    payloadString(point.Payload, "text"),
			Score:   point.Score,
		}
	}

	span.SetAttributes(attribute.Int("results", len(out)))
	q.logger.Debug(ctx, "qdrant search",
		zap.Int("k", k), zap.Int("results", len(out)))
	return out, nil
}

// Count returns the number of indexed chunks.
func (q *QdrantIndex) Count() int {
	return q.count
}

// Close closes the client connection.
func (q *QdrantIndex) Close() error {
	if q.client != nil {
		return q.client.Close()
	}
	return nil
}

// collectionExists reports whether the configured collection exists on
// the server. A NotFound status is existence information, not an error.
func (q *QdrantIndex) collectionExists(ctx context.Context) (bool, error) {
	var exists bool
	err := q.retry(ctx, func(ctx context.Context) error {
		info, err := q.client.GetCollectionInfo(ctx, q.config.Collection)
		if err != nil {
			if st, ok := status.FromError(err); ok && st.Code() == codes.NotFound {
				exists = false
				return nil
			}
			return err
		}
		exists = info != nil
		return nil
	})
	if err != nil {
		return false, err
	}
	return exists, nil
}

// retry runs the operation with exponential backoff on transient gRPC
// failures. Non-transient errors return immediately. Each attempt gets
// a fresh request timeout.
func (q *QdrantIndex) retry(ctx context.Context, operation func(ctx context.Context) error) error {
	var lastErr error
	backoff := time.Second

	for attempt := 0; attempt <= qdrantRetryAttempts; attempt++ {
		opCtx, cancel := context.WithTimeout(ctx, qdrantRequestTimeout)
		err := operation(opCtx)
		cancel()
		if err == nil {
			if attempt > 0 {
				q.logger.Info(ctx, "qdrant operation recovered", zap.Int("attempts", attempt))
			}
			return nil
		}

		lastErr = err
		if !isTransientQdrantError(err) {
			return err
		}
		if attempt == qdrantRetryAttempts {
			break
		}

		q.logger.Debug(ctx, "retrying qdrant operation",
			zap.Int("attempt", attempt+1),
			zap.Duration("backoff", backoff),
			zap.Error(err))

		select {
		case <-ctx.Done():
			return fmt.Errorf("operation canceled: %w", ctx.Err())
		case <-time.After(backoff):
			backoff *= 2
		}
	}

	return fmt.Errorf("operation failed after %d retries: %w", qdrantRetryAttempts, lastErr)
}

// isTransientQdrantError reports whether a gRPC failure is worth
// retrying.
func isTransientQdrantError(err error) bool {
	if err == nil {
		return false
	}
	st, ok := status.FromError(err)
	if !ok {
		return false
	}
	switch st.Code() {
	case codes.Unavailable, codes.DeadlineExceeded, codes.Aborted, codes.ResourceExhausted:
		return true
	default:
		return false
	}
}

// pointID derives a deterministic UUID from a chunk ID; qdrant point
// IDs must be UUIDs or integers, and chunk IDs are neither.
func pointID(chunkID string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(chunkID)).String()
}

func qdrantString(s string) *qdrant.Value {
	return &qdrant.Value{Kind: &qdrant.Value_StringValue{StringValue: s}}
}

// payloadString extracts a string field from a point payload.
func payloadString(payload map[string]*qdrant.Value, key string) string {
	value, ok := payload[key]
	if !ok || value == nil {
		return ""
	}
	if s, ok := value.Kind.(*qdrant.Value_StringValue); ok {
		return s.StringValue
	}
	return ""
}

var _ VectorStore = (*QdrantIndex)(nil)
var _ VectorStore = (*VectorIndex)(nil)
