// Package feedback implements the append-only feedback log, its aggregation into
// per-chunk scores, and compaction of the log into a durable score snapshot.
//
// Each line of the log is one event: query<TAB>chunk_id<TAB>YES|NO. Lines written by
// older versions (query<TAB>label) and any other unrecognized shape are skipped.
package feedback

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/hyperjump/ragfeed/internal/models"
	"go.uber.org/zap"
)

const (
	defaultLockTimeout   = 2 * time.Second
	defaultRetryInterval = 10 * time.Millisecond
)

// Log is an append-only feedback log shared by any number of processes.
// Appends hold an exclusive file lock; reads hold a shared one.
type Log struct {
	path          string
	lockTimeout   time.Duration
	retryInterval time.Duration
	sync          bool
	logger        *zap.Logger

	mu    sync.Mutex
	cache *foldCache
}

// foldCache is the last fold, valid while the file size and mtime are unchanged.
type foldCache struct {
	size    int64
	modTime int64
	scores  models.FeedbackScores
	stats   Stats
}

// LogOption configures a Log.
type LogOption func(*Log)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) LogOption {
	return func(lg *Log) {
		if l != nil {
			lg.logger = l
		}
	}
}

// WithLockTimeout bounds how long lock acquisition is retried.
func WithLockTimeout(d time.Duration) LogOption {
	return func(lg *Log) {
		if d > 0 {
			lg.lockTimeout = d
		}
	}
}

// WithRetryInterval sets the pause between lock attempts.
func WithRetryInterval(d time.Duration) LogOption {
	return func(lg *Log) {
		if d > 0 {
			lg.retryInterval = d
		}
	}
}

// WithSync controls whether each append is fsynced before returning.
func WithSync(enabled bool) LogOption {
	return func(lg *Log) {
		lg.sync = enabled
	}
}

// NewLog returns a log at path. The file is created on first append.
func NewLog(path string, opts ...LogOption) *Log {
	l := &Log{
		path:          path,
		lockTimeout:   defaultLockTimeout,
		retryInterval: defaultRetryInterval,
		sync:          true,
		logger:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Path returns the log file path.
func (l *Log) Path() string { return l.path }

// Record appends one event.
func (l *Log) Record(ctx context.Context, ev models.FeedbackEvent) error {
	return l.Append(ctx, []models.FeedbackEvent{ev})
}

// RecordAll appends one event per chunk for the same query and judgement.
func (l *Log) RecordAll(ctx context.Context, query string, ids []models.ChunkID, helpful bool) error {
	events := make([]models.FeedbackEvent, len(ids))
	for i, id := range ids {
		events[i] = models.FeedbackEvent{Query: query, ChunkID: id, Helpful: helpful}
	}
	return l.Append(ctx, events)
}

// Append writes events as whole lines in a single locked write. Failures are
// returned as *WriteError.
func (l *Log) Append(ctx context.Context, events []models.FeedbackEvent) error {
	if len(events) == 0 {
		return nil
	}
	var buf bytes.Buffer
	for _, ev := range events {
		buf.WriteString(FormatEvent(ev))
	}

	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return &WriteError{Path: l.path, Err: err}
	}
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return &WriteError{Path: l.path, Err: err}
	}
	defer f.Close()

	if err := l.acquire(ctx, f, true); err != nil {
		return &WriteError{Path: l.path, Err: err}
	}
	defer l.release(f, true)

	// A writer that died mid-line leaves a fragment; terminate it so the batch starts
	// on its own line.
	torn, err := endsMidLine(f)
	if err != nil {
		return &WriteError{Path: l.path, Err: err}
	}
	data := buf.Bytes()
	if torn {
		data = append([]byte{'\n'}, data...)
	}
	if _, err := f.Write(data); err != nil {
		return &WriteError{Path: l.path, Err: err}
	}
	if l.sync {
		if err := f.Sync(); err != nil {
			return &WriteError{Path: l.path, Err: err}
		}
	}
	l.invalidate()
	l.logger.Debug("feedback recorded", zap.Int("events", len(events)))
	return nil
}

// endsMidLine reports whether f is non-empty and its last byte is not a newline.
func endsMidLine(f *os.File) (bool, error) {
	info, err := f.Stat()
	if err != nil {
		return false, err
	}
	if info.Size() == 0 {
		return false, nil
	}
	last := make([]byte, 1)
	if _, err := f.ReadAt(last, info.Size()-1); err != nil {
		return false, err
	}
	return last[0] != '\n', nil
}

// Scores folds the whole log into per-chunk scores under a shared lock.
// A missing log yields empty scores.
func (l *Log) Scores(ctx context.Context) (models.FeedbackScores, Stats, error) {
	var (
		scores models.FeedbackScores
		stats  Stats
	)
	err := l.View(ctx, func(s models.FeedbackScores, st Stats) error {
		scores = s.Clone()
		stats = st
		return nil
	})
	return scores, stats, err
}

// View folds the log and calls fn with the result while the shared lock is still held,
// so no compaction can run until fn returns. fn must not modify the scores.
func (l *Log) View(ctx context.Context, fn func(models.FeedbackScores, Stats) error) error {
	f, err := os.Open(l.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fn(models.FeedbackScores{}, Stats{})
		}
		return fmt.Errorf("open feedback log: %w", err)
	}
	defer f.Close()

	if err := l.acquire(ctx, f, false); err != nil {
		return err
	}
	defer l.release(f, false)

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat feedback log: %w", err)
	}
	if c := l.cached(info); c != nil {
		return fn(c.scores, c.stats)
	}
	scores, stats, err := Aggregate(f)
	if err != nil {
		return err
	}
	if stats.Skipped() > 0 {
		l.logger.Debug("skipped unrecognized feedback lines",
			zap.Int("legacy", stats.Legacy),
			zap.Int("malformed", stats.Malformed))
	}
	l.store(info, scores, stats)
	return fn(scores, stats)
}

// Update runs fn with the log opened read-write under the exclusive lock. The file is
// created if missing. The fold cache is dropped afterwards.
func (l *Log) Update(ctx context.Context, fn func(f *os.File) error) error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return fmt.Errorf("create feedback dir: %w", err)
	}
	f, err := os.OpenFile(l.path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return fmt.Errorf("open feedback log: %w", err)
	}
	defer f.Close()

	if err := l.acquire(ctx, f, true); err != nil {
		return err
	}
	defer l.release(f, true)
	defer l.invalidate()
	return fn(f)
}

func (l *Log) cached(info os.FileInfo) *foldCache {
	l.mu.Lock()
	defer l.mu.Unlock()
	c := l.cache
	if c != nil && c.size == info.Size() && c.modTime == info.ModTime().UnixNano() {
		return c
	}
	return nil
}

func (l *Log) store(info os.FileInfo, scores models.FeedbackScores, stats Stats) {
	l.mu.Lock()
	l.cache = &foldCache{
		size:    info.Size(),
		modTime: info.ModTime().UnixNano(),
		scores:  scores,
		stats:   stats,
	}
	l.mu.Unlock()
}

func (l *Log) invalidate() {
	l.mu.Lock()
	l.cache = nil
	l.mu.Unlock()
}

// acquire retries a non-blocking lock until it succeeds, the timeout elapses or ctx ends.
func (l *Log) acquire(ctx context.Context, f *os.File, exclusive bool) error {
	deadline := time.Now().Add(l.lockTimeout)
	for {
		ok, err := tryLock(f, exclusive)
		if err != nil {
			return fmt.Errorf("lock feedback log: %w", err)
		}
		if ok {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("%w after %s", ErrLockTimeout, l.lockTimeout)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(l.retryInterval):
		}
	}
}

func (l *Log) release(f *os.File, exclusive bool) {
	if err := unlock(f, exclusive); err != nil {
		l.logger.Warn("failed to unlock feedback log", zap.Error(err))
	}
}

// readAll returns the full contents of f from the start.
func readAll(f *os.File) ([]byte, error) {
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	return io.ReadAll(f)
}
