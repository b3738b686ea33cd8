package models

import (
	"errors"
	"testing"
)

func TestQueryValidate(t *testing.T) {
	t.Run("empty query rejected", func(t *testing.T) {
		q := &Query{Query: "   "}
		if err := q.Validate(); !errors.Is(err, ErrValidation) {
			t.Errorf("expected validation error, got %v", err)
		}
	})

	t.Run("omitted top_k defaults", func(t *testing.T) {
		q := &Query{Query: "what is RAG?"}
		if err := q.Validate(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if q.TopK != DefaultTopK {
			t.Errorf("top_k: got %d, want %d", q.TopK, DefaultTopK)
		}
	})

	t.Run("negative top_k rejected", func(t *testing.T) {
		q := &Query{Query: "what is RAG?", TopK: -1}
		if err := q.Validate(); !errors.Is(err, ErrValidation) {
			t.Errorf("expected validation error, got %v", err)
		}
	})

	t.Run("oversized top_k clamped", func(t *testing.T) {
		q := &Query{Query: "what is RAG?", TopK: 5000}
		if err := q.Validate(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if q.TopK != MaxTopK {
			t.Errorf("top_k: got %d, want %d", q.TopK, MaxTopK)
		}
	})
}

func TestNewChunkIDsNeverRepeat(t *testing.T) {
	a := NewChunk("notes.txt", 0, "alpha")
	b := NewChunk("notes.txt", 0, "alpha")
	if a.ID == b.ID {
		t.Errorf("chunk ids must differ across uploads, both were %s", a.ID)
	}
	if a.Metadata["source"] != "notes.txt" || a.Metadata["chunk_index"] != 0 {
		t.Errorf("metadata: got %v", a.Metadata)
	}
}
