// Package models defines core data structures for chunks, queries, and retrieval results.
package models

import (
	"fmt"

	"github.com/google/uuid"
)

// Chunk is a stored unit of knowledge: a bounded segment of a source document
// together with its embedding vector and metadata.
type Chunk struct {
	ID         string         `json:"id"`
	Text       string         `json:"text"`
	Source     string         `json:"source"`
	ChunkIndex int            `json:"chunk_index"`
	Embedding  []float32      `json:"-"`
	Metadata   map[string]any `json:"metadata"`
}

// NewChunk builds a chunk for a source document. The id is derived from the
// source name, the chunk index, and a fresh random token, so re-uploading the
// same file always produces new ids and never overwrites earlier chunks.
func NewChunk(source string, index int, text string) *Chunk {
	return &Chunk{
		ID:         fmt.Sprintf("%s_%d_%s", source, index, uuid.New().String()[:8]),
		Text:       text,
		Source:     source,
		ChunkIndex: index,
		Metadata: map[string]any{
			"source":      source,
			"chunk_index": index,
		},
	}
}

// NewUploadID returns a short token identifying one upload request.
func NewUploadID() string {
	return uuid.New().String()[:8]
}
