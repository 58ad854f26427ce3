package models

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidQuery is returned for requests that cannot be answered as given.
var ErrInvalidQuery = errors.New("invalid query")

// RetrievalQuery represents a retrieval request with optional filters.
type RetrievalQuery struct {
	Query      string   `json:"query"`
	K          int      `json:"k,omitempty"`
	Categories []string `json:"categories,omitempty"` // restrict to chunks from these categories
	Sources    []string `json:"sources,omitempty"`    // restrict to chunks from these source documents
	Answer     bool     `json:"answer,omitempty"`     // attach an extractive answer built from the results
}

// Validate ensures the query is non-empty and clamps K into [1, maxK], using defaultK when unset.
func (q *RetrievalQuery) Validate(defaultK, maxK int) error {
	q.Query = strings.TrimSpace(q.Query)
	if q.Query == "" {
		return fmt.Errorf("%w: query cannot be empty", ErrInvalidQuery)
	}
	if q.K <= 0 {
		q.K = defaultK
	}
	if maxK > 0 && q.K > maxK {
		q.K = maxK
	}
	return nil
}
