package ingest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// DocumentChunk is one token-bounded piece of a source document,
// produced once per ingestion and immutable afterwards.
type DocumentChunk struct {
	// ID is stable across runs for unchanged files: "<file>-<ordinal>".
	ID string `json:"id"`

	// Source is the base name of the originating file.
	Source string `json:"source"`

	// Position is the zero-based chunk ordinal within the source.
	Position int `json:"position"`

	// Text is the chunk content.
	Text string `json:"text"`

	// Summary is the LLM-generated summary of the chunk.
	Summary string `json:"summary"`
}

// chunkStore persists chunks between runs so unchanged files never
// need re-processing.
type chunkStore struct {
	path string
	// bySource preserves per-file chunk order.
	bySource map[string][]DocumentChunk
}

type chunkStoreFile struct {
	Chunks []DocumentChunk `json:"chunks"`
}

// loadChunkStore reads the store from disk. A missing file yields an
// empty store; a corrupt file is an error so callers can decide to
// rebuild.
func loadChunkStore(path string) (*chunkStore, error) {
	store := &chunkStore{
		path:     path,
		bySource: make(map[string][]DocumentChunk),
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return store, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading chunk store: %w", err)
	}

	var file chunkStoreFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decoding chunk store: %w", err)
	}

	for _, chunk := range file.Chunks {
		store.bySource[chunk.Source] = append(store.bySource[chunk.Source], chunk)
	}
	for source := range store.bySource {
		chunks := store.bySource[source]
		sort.Slice(chunks, func(i, j int) bool { return chunks[i].Position < chunks[j].Position })
	}
	return store, nil
}

// get returns the stored chunks for a source, or nil.
func (s *chunkStore) get(source string) []DocumentChunk {
	return s.bySource[source]
}

// put replaces the stored chunks for a source.
func (s *chunkStore) put(source string, chunks []DocumentChunk) {
	s.bySource[source] = chunks
}

// drop removes sources not present in keep, returning removed names.
func (s *chunkStore) drop(keep map[string]bool) []string {
	var removed []string
	for source := range s.bySource {
		if !keep[source] {
			delete(s.bySource, source)
			removed = append(removed, source)
		}
	}
	sort.Strings(removed)
	return removed
}

// all returns every chunk ordered by source name, then position.
func (s *chunkStore) all() []DocumentChunk {
	sources := make([]string, 0, len(s.bySource))
	for source := range s.bySource {
		sources = append(sources, source)
	}
	sort.Strings(sources)

	var out []DocumentChunk
	for _, source := range sources {
		out = append(out, s.bySource[source]...)
	}
	return out
}

// save writes the store to disk atomically.
func (s *chunkStore) save() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("creating chunk store directory: %w", err)
	}

	data, err := json.MarshalIndent(chunkStoreFile{Chunks: s.all()}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling chunk store: %w", err)
	}

	// Write atomically
	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o600); err != nil {
		return fmt.Errorf("writing chunk store: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming chunk store: %w", err)
	}
	return nil
}
