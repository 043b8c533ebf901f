package embedding

// Package embedding defines the text-to-vector contract the retrieval core
// depends on, with swappable implementations:
//
//   - OllamaEncoder: HTTP client for an Ollama-compatible embeddings API
//   - HashEncoder: deterministic local feature-hashing encoder, used in
//     tests and when no embedding service is configured
//   - CachedEncoder: wraps any Encoder with a bounded TTL cache, since
//     encoding is a pure function of the text
//
// Vector dimensionality is configuration, never a hardcoded constant.

import (
	"context"
	"errors"
)

// ErrUnavailable means the embedding service could not be reached. It is
// distinct from any "no results" condition downstream.
var ErrUnavailable = errors.New("embedding: service unavailable")

// Encoder turns text into a fixed-length vector.
type Encoder interface {
	// Encode returns the embedding of text. The returned slice always has
	// length Dim().
	Encode(ctx context.Context, text string) ([]float32, error)

	// Dim is the configured vector dimensionality.
	Dim() int
}
