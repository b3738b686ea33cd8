package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const (
	defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1"
	defaultGeminiModel   = "text-embedding-004"
	defaultGeminiTimeout = 30 * time.Second
)

// GeminiProvider calls the Google Generative Language embedContent endpoint.
// The batch endpoint is not used; texts are embedded one request at a time
// within a batch, which keeps the client on the broadly available API surface.
type GeminiProvider struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

// GeminiConfig configures the Gemini embeddings client.
type GeminiConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// NewGeminiProvider creates a Gemini embeddings provider. A missing API key is
// a configuration error, distinct from transient provider failures.
func NewGeminiProvider(cfg GeminiConfig) (*GeminiProvider, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini: missing API key")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultGeminiBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultGeminiModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultGeminiTimeout
	}
	return &GeminiProvider{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		client:  &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// EmbedBatch embeds each text in order. Any failure aborts the batch; the
// caller decides whether to fall back.
func (p *GeminiProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, 0, len(texts))
	for _, text := range texts {
		vec, err := p.embedOne(ctx, text)
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, vec)
	}
	return vectors, nil
}

type geminiEmbedRequest struct {
	Model   string        `json:"model"`
	Content geminiContent `json:"content"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiEmbedResponse struct {
	Embedding struct {
		Values []float32 `json:"values"`
	} `json:"embedding"`
}

func (p *GeminiProvider) embedOne(ctx context.Context, text string) ([]float32, error) {
	reqBody := geminiEmbedRequest{
		Model:   "models/" + p.model,
		Content: geminiContent{Parts: []geminiPart{{Text: text}}},
	}
	data, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("gemini: marshal request: %w", err)
	}
	endpoint := fmt.Sprintf("%s/models/%s:embedContent?key=%s", p.baseURL, p.model, url.QueryEscape(p.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("gemini: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gemini: embed request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("gemini: embed returned %s: %s", resp.Status, string(b))
	}
	var out geminiEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("gemini: decode response: %w", err)
	}
	if len(out.Embedding.Values) == 0 {
		return nil, errors.New("gemini: response contained no embedding values")
	}
	return out.Embedding.Values, nil
}
