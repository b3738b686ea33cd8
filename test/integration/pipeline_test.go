// Package integration provides end-to-end tests over the full retrieval pipeline.
package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/answer"
	"github.com/hyperjump/kotae/internal/chunker"
	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/extract"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/pipeline"
	"github.com/hyperjump/kotae/internal/server"
	"github.com/hyperjump/kotae/internal/vectorstore"
)

type echoGenerator struct{}

func (echoGenerator) Generate(_ context.Context, prompt string) (string, error) {
	if !strings.Contains(prompt, "Documents:") {
		return "", errors.New("prompt missing document context")
	}
	return "Synthesized answer based on the provided documents.", nil
}

func newPipeline(t *testing.T, gen answer.Generator) *pipeline.Pipeline {
	t.Helper()
	ch, err := chunker.New(100, 20)
	if err != nil {
		t.Fatal(err)
	}
	return pipeline.New(
		extract.NewExtractor(),
		ch,
		embedding.NewClient(nil, 32, embedding.WithCache(100)),
		vectorstore.NewMemory("integration_documents"),
		answer.NewSynthesizer(gen),
	)
}

func TestIntegration_IngestQueryAnswer(t *testing.T) {
	p := newPipeline(t, echoGenerator{})
	ctx := context.Background()

	doc := strings.Repeat("Retrieval augmented generation grounds answers in stored documents. ", 8)
	res, err := p.Ingest(ctx, "rag.md", []byte(doc))
	if err != nil {
		t.Fatal(err)
	}
	if res.Chunks < 2 {
		t.Fatalf("expected multiple chunks, got %d", res.Chunks)
	}

	results, err := p.Retrieve(ctx, &models.Query{Query: "how are answers grounded?", TopK: 3})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) == 0 {
		t.Fatal("expected at least one result")
	}
	for i := 1; i < len(results); i++ {
		if results[i].SimilarityScore > results[i-1].SimilarityScore {
			t.Errorf("scores must be non-increasing at rank %d", results[i].Rank)
		}
	}

	pkg, err := p.Answer(ctx, &models.Query{Query: "how are answers grounded?"})
	if err != nil {
		t.Fatal(err)
	}
	if pkg.SynthesisMethod != models.SynthesisGenerated {
		t.Errorf("method: got %q", pkg.SynthesisMethod)
	}
	if pkg.SourceCount == 0 {
		t.Error("sources must be populated")
	}
}

func TestIntegration_HTTPRoundTrip(t *testing.T) {
	p := newPipeline(t, echoGenerator{})
	srv := server.NewServer(p, &config.ServerConfig{Host: "localhost", Port: 5001}, zap.NewNop())
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	// Upload a document through the multipart endpoint.
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "guide.txt")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fw.Write([]byte(strings.Repeat("Chunks are embedded and stored for similarity search. ", 8))); err != nil {
		t.Fatal(err)
	}
	mw.Close()
	resp, err := http.Post(ts.URL+"/api/upload", mw.FormDataContentType(), &body)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("upload status: %d", resp.StatusCode)
	}
	var ingest models.IngestResult
	if err := json.NewDecoder(resp.Body).Decode(&ingest); err != nil {
		t.Fatal(err)
	}

	// Answer through the JSON endpoint.
	q, _ := json.Marshal(models.Query{Query: "how are chunks stored?"})
	resp2, err := http.Post(ts.URL+"/api/answer", "application/json", bytes.NewReader(q))
	if err != nil {
		t.Fatal(err)
	}
	defer resp2.Body.Close()
	if resp2.StatusCode != http.StatusOK {
		t.Fatalf("answer status: %d", resp2.StatusCode)
	}
	var pkg models.AnswerPackage
	if err := json.NewDecoder(resp2.Body).Decode(&pkg); err != nil {
		t.Fatal(err)
	}
	if pkg.Answer == "" || pkg.SourceCount == 0 {
		t.Errorf("answer %q, sources %d", pkg.Answer, pkg.SourceCount)
	}

	// Reset and confirm the stats go to zero.
	req, _ := http.NewRequest(http.MethodDelete, ts.URL+"/api/reset", nil)
	resp3, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp3.Body.Close()
	if resp3.StatusCode != http.StatusOK {
		t.Fatalf("reset status: %d", resp3.StatusCode)
	}
	resp4, err := http.Get(ts.URL + "/api/stats")
	if err != nil {
		t.Fatal(err)
	}
	defer resp4.Body.Close()
	var stats struct {
		ChunkCount int `json:"chunk_count"`
	}
	if err := json.NewDecoder(resp4.Body).Decode(&stats); err != nil {
		t.Fatal(err)
	}
	if stats.ChunkCount != 0 {
		t.Errorf("chunk_count after reset: %d", stats.ChunkCount)
	}
}

func TestIntegration_CollectionIsolation(t *testing.T) {
	p := newPipeline(t, nil)
	ctx := context.Background()

	if _, err := p.Ingest(ctx, "a.txt", []byte(strings.Repeat("first collection content. ", 8))); err != nil {
		t.Fatal(err)
	}
	if err := p.UseCollection(ctx, "second"); err != nil {
		t.Fatal(err)
	}
	count, err := p.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Errorf("fresh collection count: %d", count)
	}

	if err := p.UseCollection(ctx, "integration_documents"); err != nil {
		t.Fatal(err)
	}
	count, err = p.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if count == 0 {
		t.Error("original collection must keep its chunks after switching away and back")
	}
}
