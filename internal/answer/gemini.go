package answer

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
	defaultGenerateBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	defaultGenerateModel   = "gemini-2.0-flash"
)

// GeminiGenerator calls the Google Generative Language generateContent endpoint.
type GeminiGenerator struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

// GeminiConfig configures the Gemini generation client.
type GeminiConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// NewGeminiGenerator creates a Gemini generation client. A missing API key is
// a configuration error.
func NewGeminiGenerator(cfg GeminiConfig) (*GeminiGenerator, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini: missing API key")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultGenerateBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultGenerateModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultGenerateTimeout
	}
	return &GeminiGenerator{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		client:  &http.Client{Timeout: cfg.Timeout},
	}, nil
}

type generateRequest struct {
	Contents []generateContent `json:"contents"`
}

type generateContent struct {
	Parts []generatePart `json:"parts"`
}

type generatePart struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []generatePart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// Generate returns the model's text for the prompt.
func (g *GeminiGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	reqBody := generateRequest{
		Contents: []generateContent{{Parts: []generatePart{{Text: prompt}}}},
	}
	data, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("gemini: marshal request: %w", err)
	}
	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s", g.baseURL, g.model, url.QueryEscape(g.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("gemini: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("gemini: generate request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("gemini: generate returned %s: %s", resp.Status, string(b))
	}
	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("gemini: decode response: %w", err)
	}
	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return "", errors.New("gemini: response contained no candidates")
	}
	return out.Candidates[0].Content.Parts[0].Text, nil
}
