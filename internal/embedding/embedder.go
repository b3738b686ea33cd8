// Package embedding provides chunk and query embedding via an external
// provider, with a deterministic offline fallback and an LRU cache.
package embedding

import (
	"context"
	"errors"
)

// ErrDimensionMismatch indicates the provider returned vectors of a different
// length than the configured dimension. This is a configuration fault, not a
// per-request condition: the store and every comparison assume one dimension
// for the lifetime of the system.
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

// Provider converts a batch of texts into embedding vectors via an external
// service. Vectors are aligned positionally with the inputs.
type Provider interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Embedder is the embedding contract consumed by the pipeline.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	// Ready reports whether an external provider is configured. When false,
	// every embedding comes from the offline fallback and health reporting
	// must reflect the degraded configuration.
	Ready() bool
}
