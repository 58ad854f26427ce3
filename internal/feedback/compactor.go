package feedback

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/hyperjump/ragfeed/internal/models"
	"go.uber.org/zap"
)

// Compactor folds the log into the snapshot, archives the raw lines and truncates the log.
type Compactor struct {
	log        *Log
	snapshot   Snapshot
	archiveDir string
	codec      Codec
	threshold  int
	logger     *zap.Logger
	now        func() time.Time
}

// CompactorOption configures a Compactor.
type CompactorOption func(*Compactor)

// WithCompactorLogger sets the logger.
func WithCompactorLogger(l *zap.Logger) CompactorOption {
	return func(c *Compactor) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithCodec sets the archive compression.
func WithCodec(codec Codec) CompactorOption {
	return func(c *Compactor) {
		c.codec = codec
	}
}

// WithThreshold enables MaybeCompact once the log reaches n lines. 0 disables it.
func WithThreshold(n int) CompactorOption {
	return func(c *Compactor) {
		c.threshold = n
	}
}

// NewCompactor returns a compactor writing archives into archiveDir.
func NewCompactor(log *Log, snapshot Snapshot, archiveDir string, opts ...CompactorOption) *Compactor {
	c := &Compactor{
		log:        log,
		snapshot:   snapshot,
		archiveDir: archiveDir,
		codec:      CodecZstd,
		logger:     zap.NewNop(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compact moves every line of the log into the snapshot. It returns nil when the log is
// empty. Aggregated scores are identical before and after.
//
// The snapshot commit happens before the truncate. A crash between the two leaves the
// lines in both places; the compaction row and archive identify the duplicated batch.
func (c *Compactor) Compact(ctx context.Context) (*models.Compaction, error) {
	var result *models.Compaction
	err := c.log.Update(ctx, func(f *os.File) error {
		data, err := readAll(f)
		if err != nil {
			return fmt.Errorf("read feedback log: %w", err)
		}
		if len(data) == 0 {
			return nil
		}
		deltas, stats, err := Aggregate(bytes.NewReader(data))
		if err != nil {
			return err
		}

		now := c.now().UTC()
		id := uuid.NewString()
		archive := filepath.Join(c.archiveDir,
			fmt.Sprintf("feedback-%s-%s%s", now.Format("20060102T150405Z"), id[:8], c.codec.Extension()))
		if err := writeArchive(archive, c.codec, data); err != nil {
			return err
		}

		comp := &models.Compaction{
			ID:          id,
			ArchivePath: archive,
			Events:      stats.Events,
			Skipped:     stats.Skipped(),
			Bytes:       int64(len(data)),
			CreatedAt:   now,
		}
		if err := c.snapshot.ApplyCompaction(ctx, deltas, comp); err != nil {
			_ = os.Remove(archive)
			return fmt.Errorf("commit feedback snapshot: %w", err)
		}
		if err := f.Truncate(0); err != nil {
			return fmt.Errorf("truncate feedback log: %w", err)
		}
		if err := f.Sync(); err != nil {
			return fmt.Errorf("sync feedback log: %w", err)
		}
		result = comp
		return nil
	})
	if err != nil {
		return nil, err
	}
	if result != nil {
		c.logger.Info("feedback log compacted",
			zap.String("compaction_id", result.ID),
			zap.String("archive", result.ArchivePath),
			zap.Int("events", result.Events),
			zap.Int("skipped", result.Skipped))
	}
	return result, nil
}

// MaybeCompact compacts when a threshold is set and the log has reached it.
func (c *Compactor) MaybeCompact(ctx context.Context) (*models.Compaction, error) {
	if c.threshold <= 0 {
		return nil, nil
	}
	_, stats, err := c.log.Scores(ctx)
	if err != nil {
		return nil, err
	}
	if stats.Lines < c.threshold {
		return nil, nil
	}
	return c.Compact(ctx)
}
