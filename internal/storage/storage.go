// Package storage defines persistence for the compacted feedback snapshot.
package storage

import (
	"context"

	"github.com/hyperjump/ragfeed/internal/models"
)

// FeedbackStore holds scores folded out of the feedback log and the history of compactions.
type FeedbackStore interface {
	// SnapshotScores returns the compacted per-chunk scores.
	SnapshotScores(ctx context.Context) (models.FeedbackScores, error)
	// ApplyCompaction adds deltas to the scores and records the compaction in one transaction.
	ApplyCompaction(ctx context.Context, deltas models.FeedbackScores, c *models.Compaction) error
	// ListCompactions returns the most recent compactions first.
	ListCompactions(ctx context.Context, limit int) ([]*models.Compaction, error)

	Close() error
}
