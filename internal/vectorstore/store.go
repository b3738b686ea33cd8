// Package vectorstore provides the similarity-store contract and its backends.
package vectorstore

import (
	"context"
	"errors"

	"github.com/hyperjump/kotae/internal/models"
)

// ErrUnavailable indicates the backing store could not be reached or rejected
// the request. There is no degraded mode for persistence; callers surface
// this as a service-unavailable condition.
var ErrUnavailable = errors.New("vector store unavailable")

// DefaultListLimit is the page size used when a list request omits limit.
const DefaultListLimit = 100

// RawMatch is a single nearest-neighbor hit from a backend. Similarity is
// normalized by the backend to [0,1] (1 - cosine distance, clamped); matches
// are returned in the backend's descending-similarity order.
type RawMatch struct {
	ID         string
	Text       string
	Similarity float64
	Metadata   map[string]any
}

// Store is the contract over an external similarity-search service. Exactly
// one collection is active at a time; UseCollection creates it idempotently
// and switches to it.
type Store interface {
	UseCollection(ctx context.Context, name string) error
	ActiveCollection() string
	Upsert(ctx context.Context, chunks []*models.Chunk) ([]string, error)
	QuerySimilar(ctx context.Context, vector []float32, topK int) ([]RawMatch, error)
	List(ctx context.Context, limit, offset int) ([]*models.Chunk, int, error)
	// Count queries the backing store directly; it is never served from a
	// local counter, so it reflects store truth immediately after any upsert
	// or reset from any process instance.
	Count(ctx context.Context) (int, error)
	Reset(ctx context.Context) error
	Heartbeat(ctx context.Context) error
}
