package models

// RetrievalResult is a single ranked chunk.
type RetrievalResult struct {
	ChunkID    ChunkID `json:"chunk_id"`
	Text       string  `json:"text"`
	Source     string  `json:"source"`
	Category   string  `json:"category"`
	Similarity float64 `json:"similarity"` // raw dot product with the query
	Feedback   int     `json:"feedback"`   // aggregated feedback score for the chunk
	Score      float64 `json:"score"`      // similarity blended with weighted feedback
	Rank       int     `json:"rank"`
}

// RetrievalResponse is the response for a retrieval request.
type RetrievalResponse struct {
	Query     string             `json:"query"`
	Results   []*RetrievalResult `json:"results"`
	Answer    string             `json:"answer,omitempty"`
	StoreSize int                `json:"store_size"`
	QueryTime int64              `json:"query_time_ms"`
	// FeedbackDegraded is set when feedback scores could not be read and the
	// ranking fell back to raw similarity.
	FeedbackDegraded bool `json:"feedback_degraded,omitempty"`
}

// Texts returns the result texts in rank order.
func (r *RetrievalResponse) Texts() []string {
	out := make([]string, len(r.Results))
	for i, res := range r.Results {
		out[i] = res.Text
	}
	return out
}
