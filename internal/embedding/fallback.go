package embedding

import (
	"crypto/sha256"
	"encoding/binary"
	"math/rand"

	"github.com/hyperjump/kotae/pkg/utils"
)

// FallbackEmbedder produces deterministic pseudo-random vectors seeded by a
// hash of the input text. It keeps the pipeline answering when the external
// provider is unreachable; the vectors carry no semantic meaning, and the
// same text always yields the same vector within one deployment.
type FallbackEmbedder struct {
	dimensions int
}

// NewFallbackEmbedder returns a fallback embedder producing vectors of the
// given dimension.
func NewFallbackEmbedder(dimensions int) *FallbackEmbedder {
	return &FallbackEmbedder{dimensions: dimensions}
}

// Vector returns the deterministic embedding for text, normalized to unit
// length so cosine comparisons downstream stay well-defined.
func (e *FallbackEmbedder) Vector(text string) []float32 {
	sum := sha256.Sum256([]byte(text))
	seed := int64(binary.BigEndian.Uint64(sum[:8]))
	rng := rand.New(rand.NewSource(seed))
	vec := make([]float32, e.dimensions)
	for i := range vec {
		vec[i] = rng.Float32()
	}
	utils.NormalizeL2(vec)
	return vec
}

// Dimensions returns the embedding dimension.
func (e *FallbackEmbedder) Dimensions() int {
	return e.dimensions
}
