package models

import (
	"fmt"
	"strings"
	"time"
)

// FeedbackEvent is one helpful/unhelpful judgement of one chunk for one query.
type FeedbackEvent struct {
	Query   string  `json:"query"`
	ChunkID ChunkID `json:"chunk_id"`
	Helpful bool    `json:"helpful"`
}

// FeedbackScores maps chunk IDs to their summed feedback (+1 helpful, -1 unhelpful).
// Chunks without events are absent.
type FeedbackScores map[ChunkID]int

// Add folds one event into the scores.
func (s FeedbackScores) Add(id ChunkID, helpful bool) {
	if helpful {
		s[id]++
	} else {
		s[id]--
	}
}

// Merge adds every entry of other into s.
func (s FeedbackScores) Merge(other FeedbackScores) {
	for id, v := range other {
		s[id] += v
	}
}

// Clone returns a copy that can be mutated without affecting s.
func (s FeedbackScores) Clone() FeedbackScores {
	out := make(FeedbackScores, len(s))
	for id, v := range s {
		out[id] = v
	}
	return out
}

// FeedbackRequest is the input for recording feedback on the chunks retrieved for a query.
// One event is written per chunk ID.
type FeedbackRequest struct {
	Query    string    `json:"query"`
	ChunkIDs []ChunkID `json:"chunk_ids"`
	Helpful  bool      `json:"helpful"`
}

// Validate ensures the request names a query and at least one chunk.
func (r *FeedbackRequest) Validate() error {
	if strings.TrimSpace(r.Query) == "" {
		return fmt.Errorf("%w: query cannot be empty", ErrInvalidQuery)
	}
	if len(r.ChunkIDs) == 0 {
		return fmt.Errorf("%w: at least one chunk_id is required", ErrInvalidQuery)
	}
	for _, id := range r.ChunkIDs {
		if id < 0 {
			return fmt.Errorf("%w: invalid chunk_id %d", ErrInvalidQuery, id)
		}
	}
	return nil
}

// Events expands the request into one event per chunk.
func (r *FeedbackRequest) Events() []FeedbackEvent {
	events := make([]FeedbackEvent, len(r.ChunkIDs))
	for i, id := range r.ChunkIDs {
		events[i] = FeedbackEvent{Query: r.Query, ChunkID: id, Helpful: r.Helpful}
	}
	return events
}

// Compaction records one fold of the feedback log into the score snapshot.
type Compaction struct {
	ID          string    `json:"id" db:"id"`
	ArchivePath string    `json:"archive_path" db:"archive_path"`
	Events      int       `json:"events" db:"events"`
	Skipped     int       `json:"skipped" db:"skipped"`
	Bytes       int64     `json:"bytes" db:"bytes"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}
