package embedding

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// DefaultBatchSize is the maximum number of texts sent to the provider per batch.
const DefaultBatchSize = 100

// Client embeds text through an external provider in order-preserving batches,
// falling back to deterministic offline vectors when the provider fails. The
// fallback is per call and logged distinctly, so degraded embeddings are
// always visible in the logs even though the request itself succeeds.
type Client struct {
	provider  Provider // nil when no credential is configured
	fallback  *FallbackEmbedder
	batchSize int
	cache     *Cache // optional
	logger    *zap.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithLogger sets the logger used for degraded-path events.
func WithLogger(l *zap.Logger) ClientOption {
	return func(c *Client) { c.logger = l }
}

// WithCache enables an LRU embedding cache of the given capacity.
func WithCache(capacity int) ClientOption {
	return func(c *Client) {
		if capacity > 0 {
			c.cache = NewCache(capacity)
		}
	}
}

// WithBatchSize overrides the provider batch size.
func WithBatchSize(n int) ClientOption {
	return func(c *Client) {
		if n > 0 {
			c.batchSize = n
		}
	}
}

// NewClient creates an embedding client. provider may be nil, in which case
// every embedding comes from the deterministic fallback and Ready reports false.
func NewClient(provider Provider, dimensions int, opts ...ClientOption) *Client {
	c := &Client{
		provider:  provider,
		fallback:  NewFallbackEmbedder(dimensions),
		batchSize: DefaultBatchSize,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Ready reports whether an external provider is configured.
func (c *Client) Ready() bool {
	return c.provider != nil
}

// Dimensions returns the embedding dimension.
func (c *Client) Dimensions() int {
	return c.fallback.Dimensions()
}

// Embed embeds a single text.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch embeds texts in provider batches of at most batchSize, preserving
// input order across batches. On provider failure the affected batch is
// embedded with the deterministic fallback instead of failing the request.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	out := make([][]float32, len(texts))

	// Serve cached texts first and collect the positions still missing.
	missing := make([]int, 0, len(texts))
	for i, text := range texts {
		if c.cache != nil {
			if vec, ok := c.cache.Get(text); ok {
				out[i] = vec
				continue
			}
		}
		missing = append(missing, i)
	}

	for start := 0; start < len(missing); start += c.batchSize {
		end := start + c.batchSize
		if end > len(missing) {
			end = len(missing)
		}
		positions := missing[start:end]
		batch := make([]string, len(positions))
		for i, pos := range positions {
			batch[i] = texts[pos]
		}
		vectors, err := c.embedProviderBatch(ctx, batch)
		if err != nil {
			return nil, err
		}
		for i, pos := range positions {
			out[pos] = vectors[i]
			if c.cache != nil {
				c.cache.Set(texts[pos], vectors[i])
			}
		}
	}
	return out, nil
}

// embedProviderBatch calls the provider for one batch, falling back to offline
// vectors when the provider is absent or fails. A dimension mismatch from the
// provider is a configuration fault and is returned as an error.
func (c *Client) embedProviderBatch(ctx context.Context, batch []string) ([][]float32, error) {
	if c.provider == nil {
		return c.fallbackBatch(batch), nil
	}
	vectors, err := c.provider.EmbedBatch(ctx, batch)
	if err != nil {
		c.logger.Warn("embedding provider failed, using deterministic fallback vectors",
			zap.Int("batch_size", len(batch)),
			zap.Error(err))
		return c.fallbackBatch(batch), nil
	}
	if len(vectors) != len(batch) {
		return nil, fmt.Errorf("embedding provider returned %d vectors for %d texts", len(vectors), len(batch))
	}
	want := c.fallback.Dimensions()
	for _, vec := range vectors {
		if len(vec) != want {
			return nil, fmt.Errorf("%w: provider returned %d, configured %d", ErrDimensionMismatch, len(vec), want)
		}
	}
	return vectors, nil
}

func (c *Client) fallbackBatch(batch []string) [][]float32 {
	vectors := make([][]float32, len(batch))
	for i, text := range batch {
		vectors[i] = c.fallback.Vector(text)
	}
	return vectors
}
