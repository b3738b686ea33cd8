package vectorstore

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/pkg/utils"
)

// Memory is an in-process Store using brute-force cosine search. It backs
// tests and credential-less local runs; durable deployments use Chroma.
type Memory struct {
	mu          sync.RWMutex
	active      string
	collections map[string][]*models.Chunk
}

// NewMemory creates an in-memory store with the given collection active.
func NewMemory(collection string) *Memory {
	return &Memory{
		active:      collection,
		collections: map[string][]*models.Chunk{collection: {}},
	}
}

// UseCollection switches to name, creating it if missing.
func (m *Memory) UseCollection(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.collections[name]; !ok {
		m.collections[name] = []*models.Chunk{}
	}
	m.active = name
	return nil
}

// ActiveCollection returns the name of the active collection.
func (m *Memory) ActiveCollection() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.active
}

// Upsert appends chunks to the active collection. Ids are freshly derived by
// the caller, so repeated uploads accumulate rather than overwrite.
func (m *Memory) Upsert(_ context.Context, chunks []*models.Chunk) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, len(chunks))
	for i, ch := range chunks {
		ids[i] = ch.ID
		m.collections[m.active] = append(m.collections[m.active], ch)
	}
	return ids, nil
}

// QuerySimilar returns the topK chunks by cosine similarity, clamped to [0,1].
func (m *Memory) QuerySimilar(_ context.Context, vector []float32, topK int) ([]RawMatch, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	chunks := m.collections[m.active]
	if topK <= 0 || len(chunks) == 0 {
		return nil, nil
	}
	matches := make([]RawMatch, 0, len(chunks))
	for _, ch := range chunks {
		matches = append(matches, RawMatch{
			ID:         ch.ID,
			Text:       ch.Text,
			Similarity: utils.Clamp01(cosine(vector, ch.Embedding)),
			Metadata:   ch.Metadata,
		})
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Similarity > matches[j].Similarity })
	if topK < len(matches) {
		matches = matches[:topK]
	}
	return matches, nil
}

// List returns a page of chunks and the total count.
func (m *Memory) List(_ context.Context, limit, offset int) ([]*models.Chunk, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	chunks := m.collections[m.active]
	total := len(chunks)
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if offset < 0 {
		offset = 0
	}
	if offset >= total {
		return []*models.Chunk{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	page := make([]*models.Chunk, end-offset)
	copy(page, chunks[offset:end])
	return page, total, nil
}

// Count returns the number of chunks in the active collection.
func (m *Memory) Count(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.collections[m.active]), nil
}

// Reset empties the active collection without deleting its name.
func (m *Memory) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.collections[m.active] = []*models.Chunk{}
	return nil
}

// Heartbeat always succeeds for the in-process store.
func (m *Memory) Heartbeat(_ context.Context) error {
	return nil
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i] * b[i])
		normA += float64(a[i] * a[i])
		normB += float64(b[i] * b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
