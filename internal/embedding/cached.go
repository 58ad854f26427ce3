package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	"go.uber.org/zap"
)

// CachedEmbedder serves repeated texts from an in-memory LRU and an optional persistent
// tier before calling the wrapped embedder. Keys include the model name so caches are
// never shared between models.
type CachedEmbedder struct {
	inner  Embedder
	model  string
	memory *EmbeddingCache
	disk   *BoltCache
	logger *zap.Logger
}

// CachedOption configures a CachedEmbedder.
type CachedOption func(*CachedEmbedder)

// WithDiskCache adds a persistent tier. The embedder takes ownership and closes it.
func WithDiskCache(c *BoltCache) CachedOption {
	return func(e *CachedEmbedder) {
		e.disk = c
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) CachedOption {
	return func(e *CachedEmbedder) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewCachedEmbedder wraps inner with an LRU of the given size.
func NewCachedEmbedder(inner Embedder, model string, size int, opts ...CachedOption) *CachedEmbedder {
	e := &CachedEmbedder{
		inner:  inner,
		model:  model,
		memory: NewEmbeddingCache(size),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *CachedEmbedder) key(text string) string {
	sum := sha256.Sum256([]byte(e.model + "\x00" + text))
	return hex.EncodeToString(sum[:])
}

// Embed returns the cached embedding for text or computes and caches it.
func (e *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	key := e.key(text)
	if v, ok := e.memory.Get(key); ok {
		return copyVec(v), nil
	}
	if e.disk != nil {
		v, ok, err := e.disk.Get(key)
		if err != nil {
			e.logger.Warn("embedding cache read failed", zap.Error(err))
		} else if ok {
			e.memory.Set(key, v)
			return copyVec(v), nil
		}
	}
	v, err := e.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	e.memory.Set(key, copyVec(v))
	if e.disk != nil {
		if err := e.disk.Put(key, v); err != nil {
			e.logger.Warn("embedding cache write failed", zap.Error(err))
		}
	}
	return v, nil
}

// EmbedBatch embeds each text through the cache.
func (e *CachedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return embedEach(ctx, texts, e.Embed)
}

// Dimensions returns the wrapped embedder's dimension.
func (e *CachedEmbedder) Dimensions() int {
	return e.inner.Dimensions()
}

// Close closes the persistent tier and the wrapped embedder.
func (e *CachedEmbedder) Close() error {
	var firstErr error
	if e.disk != nil {
		firstErr = e.disk.Close()
	}
	if err := e.inner.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

func copyVec(v []float32) []float32 {
	out := make([]float32, len(v))
	copy(out, v)
	return out
}
