package vectorstore

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hyperjump/kotae/internal/models"
)

// fakeChromaServer implements just enough of the Chroma v2 REST surface.
func fakeChromaServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v2/heartbeat", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]int64{"nanosecond heartbeat": 1})
	})
	mux.HandleFunc("/api/v2/tenants/team/databases/docs/collections", func(w http.ResponseWriter, r *http.Request) {
		var in struct {
			Name string `json:"name"`
		}
		_ = json.NewDecoder(r.Body).Decode(&in)
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "col-1", "name": in.Name})
	})
	mux.HandleFunc("/api/v2/tenants/team/databases/docs/collections/col-1/upsert", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/api/v2/tenants/team/databases/docs/collections/col-1/count", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(3)
	})
	mux.HandleFunc("/api/v2/tenants/team/databases/docs/collections/col-1/query", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"ids":       [][]string{{"c1", "c2"}},
			"documents": [][]string{{"first", "second"}},
			"distances": [][]float64{{0.08, 1.4}},
			"metadatas": [][]map[string]any{{{"source": "a.txt"}, {"source": "b.txt"}}},
		})
	})
	return httptest.NewServer(mux)
}

func newTestChroma(t *testing.T, baseURL string) *Chroma {
	t.Helper()
	c, err := NewChroma(ChromaConfig{BaseURL: baseURL, Tenant: "team", Database: "docs"})
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestChromaUseCollectionAndQuery(t *testing.T) {
	ts := fakeChromaServer(t)
	defer ts.Close()
	ctx := context.Background()
	c := newTestChroma(t, ts.URL)

	if err := c.UseCollection(ctx, "rag_documents"); err != nil {
		t.Fatal(err)
	}
	if c.ActiveCollection() != "rag_documents" {
		t.Errorf("active: got %q", c.ActiveCollection())
	}

	if _, err := c.Upsert(ctx, []*models.Chunk{{ID: "c1", Text: "first", Embedding: []float32{1, 0}}}); err != nil {
		t.Fatal(err)
	}

	matches, err := c.QuerySimilar(ctx, []float32{1, 0}, 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 2 {
		t.Fatalf("got %d matches", len(matches))
	}
	// distance 0.08 -> similarity 0.92; distance 1.4 clamps to 0.
	if diff := matches[0].Similarity - 0.92; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("similarity: got %f, want 0.92", matches[0].Similarity)
	}
	if matches[1].Similarity != 0 {
		t.Errorf("out-of-range distance must clamp to 0, got %f", matches[1].Similarity)
	}

	n, err := c.Count(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Errorf("count: got %d", n)
	}

	if err := c.Heartbeat(ctx); err != nil {
		t.Errorf("heartbeat: %v", err)
	}
}

func TestChromaUnreachableIsUnavailable(t *testing.T) {
	c := newTestChroma(t, "http://127.0.0.1:1") // nothing listens here
	err := c.Heartbeat(context.Background())
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
}

func TestChromaErrorStatusIsUnavailable(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer ts.Close()
	c := newTestChroma(t, ts.URL)
	err := c.UseCollection(context.Background(), "rag_documents")
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
	if err != nil && !strings.Contains(err.Error(), "quota exceeded") {
		t.Errorf("error should carry the store response, got %v", err)
	}
}

func TestChromaOperationsRequireCollection(t *testing.T) {
	ts := fakeChromaServer(t)
	defer ts.Close()
	c := newTestChroma(t, ts.URL)
	if _, err := c.Count(context.Background()); !errors.Is(err, ErrUnavailable) {
		t.Errorf("count without collection: got %v", err)
	}
	if _, err := c.QuerySimilar(context.Background(), []float32{1}, 5); !errors.Is(err, ErrUnavailable) {
		t.Errorf("query without collection: got %v", err)
	}
}

func TestNewChromaRequiresTenantAndDatabase(t *testing.T) {
	if _, err := NewChroma(ChromaConfig{Tenant: "team"}); err == nil {
		t.Error("missing database must fail")
	}
	if _, err := NewChroma(ChromaConfig{Database: "docs"}); err == nil {
		t.Error("missing tenant must fail")
	}
}
