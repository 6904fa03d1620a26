// Package index builds and queries the two retrieval indexes over the
// ingested corpus.
//
// The vector index is a persistent chromem-go collection keyed by chunk
// ID, used for top-k similarity search by the quiz builder and the chat
// engine. The tree index is a hierarchical summary tree: leaves are
// chunk summaries, and groups of children are LLM-summarized into
// parent nodes until a single root remains. The slide builder queries
// the tree to ground narration in the corpus.
//
// Both indexes are synced load-or-create: Sync validates the persisted
// form against the current chunks and the embedder dimension, and
// rebuilds from scratch when anything is off. Handles are read-only
// after Sync and safe for concurrent queries.
package index
