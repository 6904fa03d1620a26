//go:build !cgo

package embeddings

import "errors"

// ErrLocalNotAvailable is returned when the local provider is requested
// from a binary built without CGO. FastEmbed needs the ONNX runtime.
var ErrLocalNotAvailable = errors.New("local embeddings not available (binary built without CGO, use the openai provider instead)")

// newLocalProvider returns an error when CGO is not available.
func newLocalProvider(_ *Config) (Provider, error) {
	return nil, ErrLocalNotAvailable
}

// localModelDimension returns the dimension for known local models.
// Kept in the non-CGO build so dimension detection stays consistent.
func localModelDimension(model string) (int, bool) {
	dims := map[string]int{
		"BAAI/bge-small-en-v1.5":                 384,
		"BAAI/bge-small-en":                      384,
		"BAAI/bge-base-en-v1.5":                  768,
		"BAAI/bge-base-en":                       768,
		"sentence-transformers/all-MiniLM-L6-v2": 384,
	}
	dim, ok := dims[model]
	return dim, ok
}
