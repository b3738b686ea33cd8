package models

// RetrievalResult is a single ranked match returned from a similarity query.
// SimilarityScore is always within [0,1] and results are ordered by
// descending score; Rank is the 1-based position in that order.
type RetrievalResult struct {
	Rank            int            `json:"rank"`
	ChunkID         string         `json:"chunk_id"`
	Text            string         `json:"text"`
	Metadata        map[string]any `json:"metadata"`
	SimilarityScore float64        `json:"similarity_score"`
}

// Synthesis methods reported in an AnswerPackage.
const (
	SynthesisGenerated = "generated"
	SynthesisFallback  = "fallback"
)

// AnswerPackage is the response of the answer operation. Sources and
// SourceCount are populated from the ranked results regardless of whether
// generation succeeded, so callers can always see what the answer is based on.
type AnswerPackage struct {
	Answer          string            `json:"answer"`
	Sources         []RetrievalResult `json:"sources"`
	SourceCount     int               `json:"source_count"`
	SynthesisMethod string            `json:"synthesis_method"`
}

// IngestResult reports a completed upload.
type IngestResult struct {
	UploadID   string   `json:"upload_id"`
	Chunks     int      `json:"chunks"`
	ChunkIDs   []string `json:"chunk_ids"`
	Collection string   `json:"collection"`
}

// Health reports live connectivity of the external providers.
type Health struct {
	Status              string `json:"status"`
	EmbeddingProviderOK bool   `json:"embeddingProviderOk"`
	StoreOK             bool   `json:"storeOk"`
	ActiveCollection    string `json:"activeCollection"`
}
