package index

import (
	"context"
	"strings"

	"github.com/fyrsmithlabs/tutord/internal/ingest"
)

// testKeywords map onto embedding axes so tests can steer similarity
// with plain words. Axis 3 is the fallback for keyword-free text.
var testKeywords = []string{"alpha", "beta", "gamma"}

// fakeEmbedder produces deterministic keyword-axis embeddings and
// counts calls so tests can prove when no embedding work happened.
type fakeEmbedder struct {
	dim        int
	docCalls   int
	queryCalls int
	err        error
}

func newFakeEmbedder() *fakeEmbedder {
	return &fakeEmbedder{dim: 4}
}

func (f *fakeEmbedder) vec(text string) []float32 {
	v := make([]float32, f.dim)
	lower := strings.ToLower(text)
	found := false
	for i, word := range testKeywords {
		if i < f.dim && strings.Contains(lower, word) {
			v[i] = 1
			found = true
		}
	}
	if !found {
		v[f.dim-1] = 1
	}
	return v
}

func (f *fakeEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	f.docCalls++
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = f.vec(text)
	}
	return out, nil
}

func (f *fakeEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	f.queryCalls++
	if f.err != nil {
		return nil, f.err
	}
	return f.vec(text), nil
}

func (f *fakeEmbedder) Dimension() int { return f.dim }

// keywordCompleter answers with the test keywords present in the
// prompt, so summaries propagate keywords up the tree.
type keywordCompleter struct {
	calls   int
	prompts []string
	err     error
}

func (f *keywordCompleter) Complete(_ context.Context, prompt string) (string, error) {
	f.calls++
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}

	var words []string
	lower := strings.ToLower(prompt)
	for _, word := range testKeywords {
		if strings.Contains(lower, word) {
			words = append(words, word)
		}
	}
	if len(words) == 0 {
		return "general overview", nil
	}
	return "about " + strings.Join(words, " and "), nil
}

func testChunks() []ingest.DocumentChunk {
	return []ingest.DocumentChunk{
		{ID: "a.txt-0", Source: "a.txt", Position: 0, Text: "alpha engines burn bright", Summary: "alpha engine basics"},
		{ID: "a.txt-1", Source: "a.txt", Position: 1, Text: "alpha fuel mixtures and ratios", Summary: "alpha fuel details"},
		{ID: "b.txt-0", Source: "b.txt", Position: 0, Text: "beta reactors and shielding", Summary: "beta reactor basics"},
		{ID: "b.txt-1", Source: "b.txt", Position: 1, Text: "beta coolant loops explained", Summary: "beta coolant details"},
	}
}
