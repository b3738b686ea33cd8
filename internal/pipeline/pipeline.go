// Package pipeline orchestrates ingestion and retrieval across the extractor,
// chunker, embedding client, vector store, ranker, and synthesizer.
package pipeline

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/answer"
	"github.com/hyperjump/kotae/internal/chunker"
	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/extract"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/ranking"
	"github.com/hyperjump/kotae/internal/vectorstore"
)

// Pipeline wires the retrieval components together. It holds no mutable
// request state: every operation is independent and safe to run concurrently,
// with all durable state living in the vector store.
type Pipeline struct {
	extractor   *extract.Extractor
	chunker     *chunker.Chunker
	embedder    embedding.Embedder
	store       vectorstore.Store
	ranker      *ranking.Ranker
	synthesizer *answer.Synthesizer
	logger      *zap.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the pipeline logger.
func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// New creates a pipeline from its collaborators.
func New(
	extractor *extract.Extractor,
	ch *chunker.Chunker,
	embedder embedding.Embedder,
	store vectorstore.Store,
	synthesizer *answer.Synthesizer,
	opts ...Option,
) *Pipeline {
	p := &Pipeline{
		extractor:   extractor,
		chunker:     ch,
		embedder:    embedder,
		store:       store,
		ranker:      ranking.NewRanker(),
		synthesizer: synthesizer,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Ingest extracts, chunks, embeds, and stores an uploaded file. Chunk ids are
// freshly derived on every call, so retrying an upload adds new chunks and
// never overwrites earlier ones.
func (p *Pipeline) Ingest(ctx context.Context, filename string, content []byte) (*models.IngestResult, error) {
	if strings.TrimSpace(filename) == "" {
		return nil, fmt.Errorf("%w: filename is required", models.ErrValidation)
	}
	text, err := p.extractor.Extract(content, filename)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: no text extracted from %s", models.ErrValidation, filename)
	}
	segments := p.chunker.Chunk(text)
	if len(segments) == 0 {
		return nil, fmt.Errorf("%w: no chunks produced from %s", models.ErrValidation, filename)
	}
	texts := make([]string, len(segments))
	for i, seg := range segments {
		texts[i] = seg.Text
	}
	embeddings, err := p.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed chunks: %w", err)
	}
	chunks := make([]*models.Chunk, len(segments))
	for i, seg := range segments {
		ch := models.NewChunk(filename, seg.Index, seg.Text)
		ch.Embedding = embeddings[i]
		chunks[i] = ch
	}
	ids, err := p.store.Upsert(ctx, chunks)
	if err != nil {
		return nil, err
	}
	p.logger.Info("document ingested",
		zap.String("source", filename),
		zap.Int("chunks", len(ids)),
		zap.String("collection", p.store.ActiveCollection()),
	)
	return &models.IngestResult{
		UploadID:   models.NewUploadID(),
		Chunks:     len(ids),
		ChunkIDs:   ids,
		Collection: p.store.ActiveCollection(),
	}, nil
}

// Retrieve embeds the query text and returns the ranked similar chunks.
// An empty collection yields an empty result list, not an error.
func (p *Pipeline) Retrieve(ctx context.Context, q *models.Query) ([]models.RetrievalResult, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	vec, err := p.embedder.Embed(ctx, q.Query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	matches, err := p.store.QuerySimilar(ctx, vec, q.TopK)
	if err != nil {
		return nil, err
	}
	return p.ranker.Rank(matches, q.TopK), nil
}

// Answer retrieves similar chunks and synthesizes a prose answer from them.
func (p *Pipeline) Answer(ctx context.Context, q *models.Query) (*models.AnswerPackage, error) {
	results, err := p.Retrieve(ctx, q)
	if err != nil {
		return nil, err
	}
	return p.synthesizer.Synthesize(ctx, q.Query, results), nil
}

// Stats returns the authoritative chunk count from the store.
func (p *Pipeline) Stats(ctx context.Context) (int, error) {
	return p.store.Count(ctx)
}

// List returns a page of stored chunks and the total count.
func (p *Pipeline) List(ctx context.Context, limit, offset int) ([]*models.Chunk, int, error) {
	return p.store.List(ctx, limit, offset)
}

// UseCollection switches the active collection, creating it idempotently.
func (p *Pipeline) UseCollection(ctx context.Context, name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: collection name is required", models.ErrValidation)
	}
	if err := p.store.UseCollection(ctx, name); err != nil {
		return err
	}
	p.logger.Info("collection switched", zap.String("collection", name))
	return nil
}

// Reset synchronously empties the active collection.
func (p *Pipeline) Reset(ctx context.Context) error {
	if err := p.store.Reset(ctx); err != nil {
		return err
	}
	p.logger.Info("collection reset", zap.String("collection", p.store.ActiveCollection()))
	return nil
}

// Health reports live connectivity: the embedding provider's configuration
// state and a store heartbeat, never cached values.
func (p *Pipeline) Health(ctx context.Context) *models.Health {
	h := &models.Health{
		EmbeddingProviderOK: p.embedder.Ready(),
		ActiveCollection:    p.store.ActiveCollection(),
	}
	h.StoreOK = p.store.Heartbeat(ctx) == nil
	if h.StoreOK && h.EmbeddingProviderOK {
		h.Status = "ok"
	} else {
		h.Status = "degraded"
	}
	return h
}
