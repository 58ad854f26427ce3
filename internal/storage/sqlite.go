package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/ragfeed/internal/models"
)

// SQLiteStorage implements FeedbackStore using SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS feedback_scores (
		chunk_id INTEGER PRIMARY KEY,
		score INTEGER NOT NULL,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS feedback_compactions (
		id TEXT PRIMARY KEY,
		archive_path TEXT NOT NULL,
		events INTEGER NOT NULL,
		skipped INTEGER NOT NULL,
		bytes INTEGER NOT NULL,
		created_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_compactions_created_at ON feedback_compactions(created_at);
	`
	_, err := db.Exec(schema)
	return err
}

// SnapshotScores returns all compacted scores. Rows whose score has returned to zero are omitted.
func (s *SQLiteStorage) SnapshotScores(ctx context.Context) (models.FeedbackScores, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT chunk_id, score FROM feedback_scores WHERE score != 0`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	scores := models.FeedbackScores{}
	for rows.Next() {
		var id int64
		var score int
		if err := rows.Scan(&id, &score); err != nil {
			return nil, err
		}
		scores[models.ChunkID(id)] = score
	}
	return scores, rows.Err()
}

// ApplyCompaction adds deltas to the stored scores and inserts the compaction row atomically.
func (s *SQLiteStorage) ApplyCompaction(ctx context.Context, deltas models.FeedbackScores, c *models.Compaction) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO feedback_scores (chunk_id, score, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(chunk_id) DO UPDATE SET score = score + excluded.score, updated_at = excluded.updated_at`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for id, delta := range deltas {
		if delta == 0 {
			continue
		}
		if _, err := stmt.ExecContext(ctx, int64(id), delta, now); err != nil {
			return fmt.Errorf("failed to update score for chunk %d: %w", id, err)
		}
	}

	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.CreatedAt = c.CreatedAt.UTC()
	_, err = tx.ExecContext(ctx,
		`INSERT INTO feedback_compactions (id, archive_path, events, skipped, bytes, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		c.ID, c.ArchivePath, c.Events, c.Skipped, c.Bytes, c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record compaction: %w", err)
	}
	return tx.Commit()
}

// ListCompactions returns up to limit compactions, newest first.
func (s *SQLiteStorage) ListCompactions(ctx context.Context, limit int) ([]*models.Compaction, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, archive_path, events, skipped, bytes, created_at
		 FROM feedback_compactions ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Compaction
	for rows.Next() {
		var c models.Compaction
		if err := rows.Scan(&c.ID, &c.ArchivePath, &c.Events, &c.Skipped, &c.Bytes, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}

// Close closes the database.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
