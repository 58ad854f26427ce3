// Package search ranks store records against a query embedding, blending in user feedback.
package search

import (
	"fmt"
	"sort"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/hyperjump/ragfeed/internal/models"
	"github.com/hyperjump/ragfeed/internal/vector"
)

// Retrieve scores every record in store against query by exact full scan and returns the top k.
//
// The query is normalized first; a zero or non-finite norm yields *vector.DegenerateVectorError.
// Each record's score is its dot product with the query plus weight times its feedback score.
// Ties are broken by ascending chunk ID. An empty store or k <= 0 yields an empty result.
// When allow is non-nil only chunk IDs in allow are considered.
func Retrieve(
	query []float32,
	store *vector.Store,
	scores models.FeedbackScores,
	k int,
	weight float64,
	allow *roaring.Bitmap,
) ([]*models.RetrievalResult, error) {
	q, err := vector.Normalize(query)
	if err != nil {
		return nil, err
	}
	if store == nil || store.Len() == 0 || k <= 0 {
		return []*models.RetrievalResult{}, nil
	}
	if len(q) != store.Dimension() {
		return nil, fmt.Errorf("%w: query has %d, store has %d", vector.ErrDimensionMismatch, len(q), store.Dimension())
	}

	candidates := make([]*models.RetrievalResult, 0, store.Len())
	for _, r := range store.Records() {
		if allow != nil && !allow.Contains(uint32(r.ID)) {
			continue
		}
		raw := vector.InnerProduct(q, r.Embedding)
		fb := scores[r.ID]
		candidates = append(candidates, &models.RetrievalResult{
			ChunkID:    r.ID,
			Text:       r.Text,
			Source:     r.Source,
			Category:   r.Category,
			Similarity: raw,
			Feedback:   fb,
			Score:      raw + weight*float64(fb),
		})
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].ChunkID < candidates[j].ChunkID
	})
	if k < len(candidates) {
		candidates = candidates[:k]
	}
	for i, c := range candidates {
		c.Rank = i + 1
	}
	return candidates, nil
}
