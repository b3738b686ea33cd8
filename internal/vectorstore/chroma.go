package vectorstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/pkg/utils"
)

const (
	defaultChromaBaseURL = "https://api.trychroma.com"
	defaultChromaTimeout = 5 * time.Second
)

// Chroma is a REST client for a Chroma server or Chroma Cloud tenant.
// Collections are created with the cosine distance metric; the adapter
// converts distances to [0,1] similarity scores.
type Chroma struct {
	baseURL  string
	apiKey   string
	tenant   string
	database string
	client   *http.Client

	mu             sync.RWMutex
	collectionName string
	collectionID   string
}

// ChromaConfig configures the Chroma client.
type ChromaConfig struct {
	BaseURL  string
	APIKey   string
	Tenant   string
	Database string
	Timeout  time.Duration
}

// NewChroma creates a Chroma client. Tenant and database are required; the
// API key may be empty for an unauthenticated local server.
func NewChroma(cfg ChromaConfig) (*Chroma, error) {
	if cfg.Tenant == "" || cfg.Database == "" {
		return nil, errors.New("chroma: tenant and database are required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultChromaBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultChromaTimeout
	}
	return &Chroma{
		baseURL:  cfg.BaseURL,
		apiKey:   cfg.APIKey,
		tenant:   cfg.Tenant,
		database: cfg.Database,
		client:   &http.Client{Timeout: cfg.Timeout},
	}, nil
}

func (c *Chroma) collectionsURL() string {
	return fmt.Sprintf("%s/api/v2/tenants/%s/databases/%s/collections", c.baseURL, c.tenant, c.database)
}

// UseCollection creates the named collection if missing and makes it active.
func (c *Chroma) UseCollection(ctx context.Context, name string) error {
	body := map[string]any{
		"name":          name,
		"get_or_create": true,
		"metadata":      map[string]any{"hnsw:space": "cosine"},
	}
	var out struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	if err := c.doJSON(ctx, http.MethodPost, c.collectionsURL(), body, &out); err != nil {
		return err
	}
	c.mu.Lock()
	c.collectionName = name
	c.collectionID = out.ID
	c.mu.Unlock()
	return nil
}

// ActiveCollection returns the name of the active collection.
func (c *Chroma) ActiveCollection() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.collectionName
}

func (c *Chroma) activeCollectionURL() (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.collectionID == "" {
		return "", fmt.Errorf("%w: no active collection", ErrUnavailable)
	}
	return fmt.Sprintf("%s/%s", c.collectionsURL(), c.collectionID), nil
}

// Upsert writes chunks in bulk. Ids are freshly derived by the caller, so a
// repeated upload adds new chunks instead of overwriting earlier ones.
func (c *Chroma) Upsert(ctx context.Context, chunks []*models.Chunk) ([]string, error) {
	base, err := c.activeCollectionURL()
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(chunks))
	documents := make([]string, len(chunks))
	embeddings := make([][]float32, len(chunks))
	metadatas := make([]map[string]any, len(chunks))
	for i, ch := range chunks {
		ids[i] = ch.ID
		documents[i] = ch.Text
		embeddings[i] = ch.Embedding
		metadatas[i] = ch.Metadata
	}
	body := map[string]any{
		"ids":        ids,
		"documents":  documents,
		"embeddings": embeddings,
		"metadatas":  metadatas,
	}
	if err := c.doJSON(ctx, http.MethodPost, base+"/upsert", body, nil); err != nil {
		return nil, err
	}
	return ids, nil
}

// QuerySimilar runs a nearest-neighbor query and normalizes cosine distances
// into [0,1] similarity scores.
func (c *Chroma) QuerySimilar(ctx context.Context, vector []float32, topK int) ([]RawMatch, error) {
	base, err := c.activeCollectionURL()
	if err != nil {
		return nil, err
	}
	body := map[string]any{
		"query_embeddings": [][]float32{vector},
		"n_results":        topK,
		"include":          []string{"documents", "distances", "metadatas"},
	}
	var out struct {
		IDs       [][]string         `json:"ids"`
		Documents [][]string         `json:"documents"`
		Distances [][]float64        `json:"distances"`
		Metadatas [][]map[string]any `json:"metadatas"`
	}
	if err := c.doJSON(ctx, http.MethodPost, base+"/query", body, &out); err != nil {
		return nil, err
	}
	if len(out.IDs) == 0 {
		return nil, nil
	}
	ids := out.IDs[0]
	matches := make([]RawMatch, 0, len(ids))
	for i, id := range ids {
		m := RawMatch{ID: id}
		if len(out.Documents) > 0 && i < len(out.Documents[0]) {
			m.Text = out.Documents[0][i]
		}
		if len(out.Distances) > 0 && i < len(out.Distances[0]) {
			m.Similarity = utils.Clamp01(1 - out.Distances[0][i])
		}
		if len(out.Metadatas) > 0 && i < len(out.Metadatas[0]) {
			m.Metadata = out.Metadatas[0][i]
		}
		matches = append(matches, m)
	}
	return matches, nil
}

// List returns a page of stored chunks and the total count.
func (c *Chroma) List(ctx context.Context, limit, offset int) ([]*models.Chunk, int, error) {
	base, err := c.activeCollectionURL()
	if err != nil {
		return nil, 0, err
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if offset < 0 {
		offset = 0
	}
	body := map[string]any{
		"limit":   limit,
		"offset":  offset,
		"include": []string{"documents", "metadatas"},
	}
	var out struct {
		IDs       []string         `json:"ids"`
		Documents []string         `json:"documents"`
		Metadatas []map[string]any `json:"metadatas"`
	}
	if err := c.doJSON(ctx, http.MethodPost, base+"/get", body, &out); err != nil {
		return nil, 0, err
	}
	total, err := c.Count(ctx)
	if err != nil {
		return nil, 0, err
	}
	chunks := make([]*models.Chunk, 0, len(out.IDs))
	for i, id := range out.IDs {
		ch := &models.Chunk{ID: id}
		if i < len(out.Documents) {
			ch.Text = out.Documents[i]
		}
		if i < len(out.Metadatas) {
			ch.Metadata = out.Metadatas[i]
			if src, ok := ch.Metadata["source"].(string); ok {
				ch.Source = src
			}
			if idx, ok := ch.Metadata["chunk_index"].(float64); ok {
				ch.ChunkIndex = int(idx)
			}
		}
		chunks = append(chunks, ch)
	}
	return chunks, total, nil
}

// Count asks the store for the number of stored chunks. The result is always
// store truth, never a cached counter.
func (c *Chroma) Count(ctx context.Context) (int, error) {
	base, err := c.activeCollectionURL()
	if err != nil {
		return 0, err
	}
	var count int
	if err := c.doJSON(ctx, http.MethodGet, base+"/count", nil, &count); err != nil {
		return 0, err
	}
	return count, nil
}

// Reset deletes the active collection and recreates it empty under the same name.
func (c *Chroma) Reset(ctx context.Context) error {
	c.mu.RLock()
	name := c.collectionName
	c.mu.RUnlock()
	if name == "" {
		return fmt.Errorf("%w: no active collection", ErrUnavailable)
	}
	url := fmt.Sprintf("%s/%s", c.collectionsURL(), name)
	if err := c.doJSON(ctx, http.MethodDelete, url, nil, nil); err != nil {
		return err
	}
	return c.UseCollection(ctx, name)
}

// Heartbeat checks live connectivity to the store.
func (c *Chroma) Heartbeat(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodGet, c.baseURL+"/api/v2/heartbeat", nil, nil)
}

// doJSON sends a JSON request and decodes the response into out when non-nil.
// Every transport or status failure is wrapped in ErrUnavailable.
func (c *Chroma) doJSON(ctx context.Context, method, url string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("chroma: marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("chroma: build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("X-Chroma-Token", c.apiKey)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", ErrUnavailable, method, url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("%w: %s %s returned %s: %s", ErrUnavailable, method, url, resp.Status, string(b))
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("%w: decode %s response: %v", ErrUnavailable, url, err)
		}
	}
	return nil
}
