// Package ranking turns raw similarity matches into validated, ordered
// retrieval results.
package ranking

import (
	"math"
	"sort"

	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/vectorstore"
	"github.com/hyperjump/kotae/pkg/utils"
)

// Ranker orders and validates raw matches from the vector store.
type Ranker struct{}

// NewRanker creates a Ranker.
func NewRanker() *Ranker {
	return &Ranker{}
}

// Rank sorts matches by descending similarity (ties keep provider order),
// truncates to topK, clamps scores into [0,1], and assigns 1-based ranks.
// Fewer than topK matches is normal for a sparse collection; empty input
// yields an empty result list, never an error.
func (r *Ranker) Rank(matches []vectorstore.RawMatch, topK int) []models.RetrievalResult {
	ordered := make([]vectorstore.RawMatch, len(matches))
	copy(ordered, matches)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Similarity > ordered[j].Similarity
	})
	if topK > 0 && len(ordered) > topK {
		ordered = ordered[:topK]
	}
	results := make([]models.RetrievalResult, 0, len(ordered))
	for i, m := range ordered {
		results = append(results, models.RetrievalResult{
			Rank:            i + 1,
			ChunkID:         m.ID,
			Text:            m.Text,
			Metadata:        m.Metadata,
			SimilarityScore: roundScore(utils.Clamp01(m.Similarity)),
		})
	}
	return results
}

// roundScore rounds to 4 decimal places for stable, readable responses.
func roundScore(v float64) float64 {
	return math.Round(v*10000) / 10000
}
