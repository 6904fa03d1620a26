package index

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/tutord/internal/ingest"
	"github.com/fyrsmithlabs/tutord/internal/logging"
)

// treeSummaryPrompt condenses a group of child summaries into one
// parent summary while building a tree level.
const treeSummaryPrompt = "Write a summary of the following. " +
	"Try to use only the information provided. " +
	"Try to include as many key details as possible.\n\n\n%s\n\n\nSUMMARY:\"\"\"\n"

// treeQueryPrompt answers a query strictly from the packed context.
const treeQueryPrompt = "Context information is below.\n" +
	"---------------------\n%s\n---------------------\n" +
	"Given the context information and not prior knowledge, answer the query.\n" +
	"Query: %s\nAnswer: "

// treeNode is one node of the summary tree. Leaves reference a chunk;
// internal nodes summarize their children.
type treeNode struct {
	Summary   string      `json:"summary"`
	Embedding []float32   `json:"embedding"`
	ChunkID   string      `json:"chunk_id,omitempty"`
	Children  []*treeNode `json:"children,omitempty"`
}

// treeFile is the persisted form of the tree.
type treeFile struct {
	Fingerprint string    `json:"fingerprint"`
	Dimension   int       `json:"dimension"`
	Fanout      int       `json:"fanout"`
	Root        *treeNode `json:"root"`
}

// TreeIndex is a hierarchical summary index over the corpus.
//
// The tree is built bottom-up: leaves carry the ingestion-time chunk
// summaries, and groups of up to Fanout children are LLM-summarized
// into parents until a single root remains. Every node summary is
// embedded at build time so queries can descend by similarity.
type TreeIndex struct {
	config    *Config
	embedder  Embedder
	completer Completer
	logger    *logging.Logger

	// Read-only after Sync.
	root      *treeNode
	chunkText map[string]string
	chunkPos  map[string]int
}

// NewTreeIndex creates a tree index handle. Call Sync before querying.
func NewTreeIndex(cfg *Config, embedder Embedder, completer Completer, logger *logging.Logger) (*TreeIndex, error) {
	if embedder == nil {
		return nil, fmt.Errorf("%w: embedder is required", ErrInvalidConfig)
	}
	if completer == nil {
		return nil, fmt.Errorf("%w: completer is required", ErrInvalidConfig)
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

	return &TreeIndex{
		config:    cfg,
		embedder:  embedder,
		completer: completer,
		logger:    logger.Named("index"),
	}, nil
}

// Sync loads the persisted tree when it matches the given chunks and
// the embedder dimension, and rebuilds it otherwise. A rebuild persists
// before returning.
func (t *TreeIndex) Sync(ctx context.Context, chunks []ingest.DocumentChunk) error {
	ctx, span := indexTracer.Start(ctx, "TreeIndex.Sync")
	defer span.End()
	span.SetAttributes(attribute.Int("chunk_count", len(chunks)))

	if len(chunks) == 0 {
		return ErrNoChunks
	}

	start := time.Now()
	defer func() {
		BuildDuration.WithLabelValues("tree").Observe(time.Since(start).Seconds())
	}()

	// Leaf texts are not persisted in the tree file; they come from the
	// chunks on every sync.
	t.chunkText = make(map[string]string, len(chunks))
	t.chunkPos = make(map[string]int, len(chunks))
	for i, chunk := range chunks {
		t.chunkText[chunk.ID] = chunk.Text
		t.chunkPos[chunk.ID] = i
	}

	fingerprint := corpusFingerprint(chunks)
	reason := t.load(fingerprint)
	if reason == "" {
		BuildsTotal.WithLabelValues("tree", "loaded").Inc()
		span.SetAttributes(attribute.String("outcome", "loaded"))
		t.logger.Info(ctx, "tree index loaded from storage", zap.Int("chunks", len(chunks)))
		return nil
	}
	t.logger.Warn(ctx, "tree index rebuild required", zap.String("reason", reason))

	root, err := t.build(ctx, chunks)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	t.root = root

	if err := t.save(fingerprint); err != nil {
		span.RecordError(err)
		return err
	}

	BuildsTotal.WithLabelValues("tree", "rebuilt").Inc()
	span.SetAttributes(attribute.String("outcome", "rebuilt"))
	t.logger.Info(ctx, "tree index rebuilt",
		zap.Int("chunks", len(chunks)),
		zap.Int("nodes", countNodes(root)),
		zap.Duration("elapsed", time.Since(start)))
	return nil
}

// load reads the persisted tree. It returns an empty string on success,
// or the rebuild reason otherwise.
func (t *TreeIndex) load(fingerprint string) string {
	data, err := os.ReadFile(t.config.treePath())
	if os.IsNotExist(err) {
		return "not found"
	}
	if err != nil {
		return "unreadable"
	}

	var file treeFile
	if err := json.Unmarshal(data, &file); err != nil {
		return "decode failed"
	}
	if file.Root == nil {
		return "decode failed"
	}
	if file.Dimension != t.embedder.Dimension() {
		return "dimension mismatch"
	}
	if file.Fingerprint != fingerprint {
		return "corpus changed"
	}

	t.root = file.Root
	return ""
}

// build constructs the tree bottom-up and embeds every node summary.
func (t *TreeIndex) build(ctx context.Context, chunks []ingest.DocumentChunk) (*treeNode, error) {
	level := make([]*treeNode, len(chunks))
	for i, chunk := range chunks {
		level[i] = &treeNode{Summary: chunk.Summary, ChunkID: chunk.ID}
	}

	for len(level) > 1 {
		next := make([]*treeNode, 0, (len(level)+t.config.Fanout-1)/t.config.Fanout)
		for start := 0; start < len(level); start += t.config.Fanout {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			end := start + t.config.Fanout
			if end > len(level) {
				end = len(level)
			}
			group := level[start:end]
			if len(group) == 1 {
				// A lone trailing child needs no new summary.
				next = append(next, group[0])
				continue
			}
			parent, err := t.summarize(ctx, group)
			if err != nil {
				return nil, err
			}
			next = append(next, parent)
		}
		level = next
	}
	root := level[0]

	if err := t.embedNodes(ctx, root); err != nil {
		return nil, err
	}
	return root, nil
}

// summarize produces a parent node over a group of children.
func (t *TreeIndex) summarize(ctx context.Context, children []*treeNode) (*treeNode, error) {
	parts := make([]string, len(children))
	for i, child := range children {
		parts[i] = child.Summary
	}

	response, err := t.completer.Complete(ctx, fmt.Sprintf(treeSummaryPrompt, strings.Join(parts, "\n\n")))
	if err != nil {
		return nil, fmt.Errorf("summarizing tree level: %w", err)
	}
	return &treeNode{Summary: strings.TrimSpace(response), Children: children}, nil
}

// embedNodes embeds every node summary in one batch.
func (t *TreeIndex) embedNodes(ctx context.Context, root *treeNode) error {
	var nodes []*treeNode
	var walk func(*treeNode)
	walk = func(n *treeNode) {
		nodes = append(nodes, n)
		for _, child := range n.Children {
			walk(child)
		}
	}
	walk(root)

	texts := make([]string, len(nodes))
	for i, node := range nodes {
		texts[i] = node.Summary
	}
	vectors, err := t.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
	}
	if len(vectors) != len(nodes) {
		return fmt.Errorf("%w: got %d embeddings for %d nodes", ErrEmbeddingFailed, len(vectors), len(nodes))
	}
	for i, node := range nodes {
		node.Embedding = vectors[i]
	}
	return nil
}

// save writes the tree to disk atomically.
func (t *TreeIndex) save(fingerprint string) error {
	if err := os.MkdirAll(t.config.Dir, 0o755); err != nil {
		return fmt.Errorf("creating index directory: %w", err)
	}

	data, err := json.MarshalIndent(treeFile{
		Fingerprint: fingerprint,
		Dimension:   t.embedder.Dimension(),
		Fanout:      t.config.Fanout,
		Root:        t.root,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling tree: %w", err)
	}

	tmpPath := t.config.treePath() + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o600); err != nil {
		return fmt.Errorf("writing tree: %w", err)
	}
	if err := os.Rename(tmpPath, t.config.treePath()); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming tree: %w", err)
	}
	return nil
}

// Query answers a prompt from the corpus: it embeds the prompt,
// descends from the root toward the most similar subtree until the
// subtree's leaves fit the context budget, packs those leaves, and asks
// the model to answer from the packed context alone.
func (t *TreeIndex) Query(ctx context.Context, prompt string) (string, error) {
	ctx, span := indexTracer.Start(ctx, "TreeIndex.Query")
	defer span.End()

	if t.root == nil {
		return "", ErrNotSynced
	}
	if strings.TrimSpace(prompt) == "" {
		return "", fmt.Errorf("prompt cannot be empty")
	}

	queryVec, err := t.embedder.EmbedQuery(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
	}

	node := t.root
	for len(node.Children) > 0 && t.subtreeChars(node) > t.config.ContextChars {
		node = bestChild(node, queryVec)
	}
	packed := t.packContext(node, queryVec)
	QueriesTotal.WithLabelValues("tree").Inc()
	span.SetAttributes(attribute.Int("context_chars", len(packed)))

	answer, err := t.completer.Complete(ctx, fmt.Sprintf(treeQueryPrompt, packed, prompt))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	t.logger.Debug(ctx, "tree query answered",
		zap.Int("context_chars", len(packed)))
	return strings.TrimSpace(answer), nil
}

// subtreeChars sums the chunk text length under a node.
func (t *TreeIndex) subtreeChars(node *treeNode) int {
	total := 0
	for _, leaf := range collectLeaves(node) {
		total += len(t.chunkText[leaf.ChunkID])
	}
	return total
}

// packContext selects the subtree leaves most similar to the query up
// to the context budget, then renders them in corpus order.
func (t *TreeIndex) packContext(node *treeNode, query []float32) string {
	leaves := collectLeaves(node)

	type scoredLeaf struct {
		leaf  *treeNode
		score float32
	}
	scored := make([]scoredLeaf, len(leaves))
	for i, leaf := range leaves {
		scored[i] = scoredLeaf{leaf: leaf, score: cosineSimilarity(query, leaf.Embedding)}
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].score > scored[j].score })

	// The most similar leaf is always included, even oversized; further
	// leaves must fit the remaining budget.
	var picked []*treeNode
	budget := t.config.ContextChars
	for _, s := range scored {
		size := len(t.chunkText[s.leaf.ChunkID])
		if len(picked) > 0 && size > budget {
			continue
		}
		picked = append(picked, s.leaf)
		budget -= size
		if budget <= 0 {
			break
		}
	}

	sort.Slice(picked, func(i, j int) bool {
		return t.chunkPos[picked[i].ChunkID] < t.chunkPos[picked[j].ChunkID]
	})

	parts := make([]string, len(picked))
	for i, leaf := range picked {
		parts[i] = t.chunkText[leaf.ChunkID]
	}
	return strings.Join(parts, "\n\n")
}

// bestChild returns the child most similar to the query vector.
func bestChild(node *treeNode, query []float32) *treeNode {
	best := node.Children[0]
	bestScore := cosineSimilarity(query, best.Embedding)
	for _, child := range node.Children[1:] {
		if score := cosineSimilarity(query, child.Embedding); score > bestScore {
			best, bestScore = child, score
		}
	}
	return best
}

// collectLeaves returns the leaves under a node in corpus order.
func collectLeaves(node *treeNode) []*treeNode {
	if len(node.Children) == 0 {
		return []*treeNode{node}
	}
	var leaves []*treeNode
	for _, child := range node.Children {
		leaves = append(leaves, collectLeaves(child)...)
	}
	return leaves
}

// countNodes returns the total node count of a subtree.
func countNodes(node *treeNode) int {
	total := 1
	for _, child := range node.Children {
		total += countNodes(child)
	}
	return total
}
