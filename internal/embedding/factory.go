package embedding

import (
	"fmt"

	"github.com/hyperjump/ragfeed/internal/config"
	"go.uber.org/zap"
)

// NewFromConfig builds the configured embedder wrapped in a CachedEmbedder. The caller owns
// the result and must Close it.
func NewFromConfig(cfg *config.EmbeddingConfig, logger *zap.Logger) (Embedder, error) {
	var (
		inner Embedder
		model string
	)
	switch cfg.Type {
	case "mock", "":
		inner = NewMockEmbedder(cfg.Dimensions)
		model = fmt.Sprintf("mock-%d", cfg.Dimensions)
	case "openai":
		c, err := NewOpenAIClient(OpenAIConfig{
			BaseURL:           cfg.OpenAI.BaseURL,
			APIKey:            cfg.OpenAI.APIKey(),
			Model:             cfg.OpenAI.Model,
			Timeout:           cfg.OpenAI.Timeout(),
			RequestsPerSecond: cfg.OpenAI.RequestsPerSecond,
		}, WithOpenAILogger(logger))
		if err != nil {
			return nil, err
		}
		inner = c
		model = "openai:" + cfg.OpenAI.Model
	default:
		return nil, fmt.Errorf("unknown embedding type: %q", cfg.Type)
	}

	opts := []CachedOption{WithLogger(logger)}
	if cfg.CachePath != "" {
		disk, err := OpenBoltCache(cfg.CachePath)
		if err != nil {
			_ = inner.Close()
			return nil, err
		}
		opts = append(opts, WithDiskCache(disk))
	}
	return NewCachedEmbedder(inner, model, cfg.CacheSize, opts...), nil
}
