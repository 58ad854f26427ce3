// Package indexer builds the vector store from chunked corpus documents.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hyperjump/ragfeed/internal/embedding"
	"github.com/hyperjump/ragfeed/internal/models"
	"github.com/hyperjump/ragfeed/internal/publish"
	"github.com/hyperjump/ragfeed/internal/vector"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrNoChunks is returned when a build has no input. The existing store is left untouched.
var ErrNoChunks = errors.New("no documents found")

// Builder embeds chunks and publishes them as a new store generation.
// Builds are serialized; readers keep using the previous generation until the swap.
type Builder struct {
	embedder    embedding.Embedder
	location    string
	concurrency int
	corpus      *CorpusLoader
	uploader    publish.Uploader
	prefix      string
	logger      *zap.Logger

	mu sync.Mutex
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithLogger sets a logger for build events.
func WithLogger(l *zap.Logger) BuilderOption {
	return func(b *Builder) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithConcurrency bounds the number of chunks embedded at once.
func WithConcurrency(n int) BuilderOption {
	return func(b *Builder) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// WithCorpusLoader enables BuildFromDirectory.
func WithCorpusLoader(l *CorpusLoader) BuilderOption {
	return func(b *Builder) {
		b.corpus = l
	}
}

// WithPublisher uploads the artifacts under prefix after every successful build.
func WithPublisher(u publish.Uploader, prefix string) BuilderOption {
	return func(b *Builder) {
		b.uploader = u
		b.prefix = prefix
	}
}

// NewBuilder creates a builder writing the store under location.
func NewBuilder(embedder embedding.Embedder, location string, opts ...BuilderOption) *Builder {
	b := &Builder{
		embedder:    embedder,
		location:    location,
		concurrency: 1,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build assigns chunk IDs in input order, embeds and normalizes every chunk, and persists the
// result as a new generation. A chunk whose embedding cannot be normalized fails the whole build
// with an error wrapping *vector.DegenerateVectorError.
func (b *Builder) Build(ctx context.Context, inputs []models.ChunkInput) (*vector.Store, error) {
	if len(inputs) == 0 {
		return nil, ErrNoChunks
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	buildID := uuid.NewString()
	start := time.Now()
	logger := b.logger.With(zap.String("build_id", buildID))
	logger.Info("build started", zap.Int("chunks", len(inputs)), zap.Int("concurrency", b.concurrency))

	records := make([]*models.VectorRecord, len(inputs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.concurrency)
	for i := range inputs {
		i := i
		g.Go(func() error {
			in := inputs[i]
			raw, err := b.embedder.Embed(gctx, in.Text)
			if err != nil {
				return fmt.Errorf("embed chunk %d (%s): %w", i, in.Source, err)
			}
			emb, err := vector.Normalize(raw)
			if err != nil {
				return fmt.Errorf("chunk %d (%s/%s): %w", i, in.Category, in.Source, err)
			}
			records[i] = &models.VectorRecord{
				ID:        models.ChunkID(i),
				Embedding: emb,
				Text:      in.Text,
				Source:    in.Source,
				Category:  in.Category,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		logger.Error("build failed", zap.Error(err))
		return nil, err
	}

	store, err := vector.WriteStore(b.location, records)
	if err != nil {
		logger.Error("build failed", zap.Error(err))
		return nil, fmt.Errorf("write store: %w", err)
	}
	logger.Info("build finished",
		zap.String("generation", store.Generation()),
		zap.Int("records", store.Len()),
		zap.Int("dimension", store.Dimension()),
		zap.Duration("duration", time.Since(start)))

	if b.uploader != nil {
		res, err := publish.Store(ctx, b.uploader, b.location, b.prefix)
		if err != nil {
			logger.Warn("publish after build failed", zap.Error(err))
		} else {
			logger.Info("store published", zap.String("generation", res.Generation), zap.Strings("keys", res.Keys))
		}
	}
	return store, nil
}

// BuildFromDirectory loads the corpus under dataDir and builds the store from it.
func (b *Builder) BuildFromDirectory(ctx context.Context, dataDir string) (*vector.Store, CorpusStats, error) {
	if b.corpus == nil {
		return nil, CorpusStats{}, errors.New("builder has no corpus loader")
	}
	inputs, stats, err := b.corpus.Load(ctx, dataDir)
	if err != nil {
		return nil, stats, err
	}
	b.logger.Info("corpus loaded",
		zap.String("data_dir", dataDir),
		zap.Int("documents", stats.Documents),
		zap.Int("chunks", stats.Chunks),
		zap.Int("skipped", stats.Skipped))
	store, err := b.Build(ctx, inputs)
	return store, stats, err
}

// Location returns the store directory.
func (b *Builder) Location() string { return b.location }
