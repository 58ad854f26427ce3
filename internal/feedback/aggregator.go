package feedback

import (
	"context"
	"fmt"

	"github.com/hyperjump/ragfeed/internal/models"
)

// Snapshot is durable storage for scores folded out of the log by compaction.
type Snapshot interface {
	// SnapshotScores returns the compacted per-chunk scores.
	SnapshotScores(ctx context.Context) (models.FeedbackScores, error)
	// ApplyCompaction adds deltas to the snapshot and records c, atomically.
	ApplyCompaction(ctx context.Context, deltas models.FeedbackScores, c *models.Compaction) error
}

// Aggregator combines the compacted snapshot with the live log. The result always
// equals a fold over every durable event.
type Aggregator struct {
	log      *Log
	snapshot Snapshot
}

// NewAggregator returns an aggregator over log and an optional snapshot.
func NewAggregator(log *Log, snapshot Snapshot) *Aggregator {
	return &Aggregator{log: log, snapshot: snapshot}
}

// Log returns the underlying log.
func (a *Aggregator) Log() *Log { return a.log }

// Scores returns snapshot scores plus the log fold. Both are read under the log's shared
// lock so a concurrent compaction is either fully visible or not at all.
func (a *Aggregator) Scores(ctx context.Context) (models.FeedbackScores, error) {
	var merged models.FeedbackScores
	err := a.log.View(ctx, func(logScores models.FeedbackScores, _ Stats) error {
		merged = models.FeedbackScores{}
		if a.snapshot != nil {
			snap, err := a.snapshot.SnapshotScores(ctx)
			if err != nil {
				return fmt.Errorf("read feedback snapshot: %w", err)
			}
			merged.Merge(snap)
		}
		merged.Merge(logScores)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return merged, nil
}

// Stats returns the fold statistics for the live log.
func (a *Aggregator) Stats(ctx context.Context) (Stats, error) {
	_, stats, err := a.log.Scores(ctx)
	return stats, err
}
