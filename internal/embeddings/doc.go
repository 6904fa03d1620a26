// Package embeddings provides embedding generation via multiple providers.
//
// Supports OpenAI (via langchaingo) and local ONNX models (via FastEmbed).
// Factory pattern enables provider selection at runtime with automatic
// dimension detection for common models. The local provider requires CGO;
// without it, NewProvider returns ErrLocalNotAvailable.
package embeddings
