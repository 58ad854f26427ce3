// Package models defines core data structures for vector records, queries, feedback and results.
package models

import "strconv"

// ChunkID identifies a chunk within one store. It is the 0-based ordinal of the
// chunk in the build input and is not stable across rebuilds.
type ChunkID int

// String returns the decimal form used as artifact key and feedback log field.
func (id ChunkID) String() string {
	return strconv.Itoa(int(id))
}

// ParseChunkID parses a decimal chunk identifier. IDs must fit in 32 unsigned bits,
// the range of the filter bitmaps.
func ParseChunkID(s string) (ChunkID, error) {
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, err
	}
	id := ChunkID(n)
	if id < 0 {
		return 0, strconv.ErrRange
	}
	return id, nil
}

// ChunkInput is one unit of build input produced by the document pipeline.
type ChunkInput struct {
	Text     string `json:"text"`
	Source   string `json:"source"`
	Category string `json:"category"`
}

// ChunkMetadata is the lightweight per-chunk payload stored in the metadata artifact.
type ChunkMetadata struct {
	Text     string `json:"text"`
	Source   string `json:"source"`
	Category string `json:"category"`
}

// VectorRecord is a chunk with its unit-normalized embedding.
type VectorRecord struct {
	ID        ChunkID   `json:"id"`
	Embedding []float32 `json:"-"`
	Text      string    `json:"text"`
	Source    string    `json:"source"`
	Category  string    `json:"category"`
}

// Metadata returns the metadata artifact entry for the record.
func (r *VectorRecord) Metadata() ChunkMetadata {
	return ChunkMetadata{Text: r.Text, Source: r.Source, Category: r.Category}
}
