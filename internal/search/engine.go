package search

import (
	"context"
	"fmt"
	"time"

	"github.com/hyperjump/ragfeed/internal/answer"
	"github.com/hyperjump/ragfeed/internal/config"
	"github.com/hyperjump/ragfeed/internal/embedding"
	"github.com/hyperjump/ragfeed/internal/models"
	"github.com/hyperjump/ragfeed/internal/vector"
	"go.uber.org/zap"
)

// StoreSource returns the current store snapshot. *vector.Loader implements it.
type StoreSource interface {
	Get() (*vector.Store, error)
}

// ScoreSource returns aggregated feedback scores. *feedback.Aggregator implements it.
type ScoreSource interface {
	Scores(ctx context.Context) (models.FeedbackScores, error)
}

// Engine answers retrieval queries against the current store and feedback.
type Engine struct {
	embedder embedding.Embedder
	stores   StoreSource
	feedback ScoreSource
	config   *config.RetrievalConfig
	logger   *zap.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(l *zap.Logger) EngineOption {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewEngine creates an engine. feedback may be nil, in which case rankings use similarity only.
func NewEngine(
	embedder embedding.Embedder,
	stores StoreSource,
	feedback ScoreSource,
	cfg *config.RetrievalConfig,
	opts ...EngineOption,
) *Engine {
	e := &Engine{
		embedder: embedder,
		stores:   stores,
		feedback: feedback,
		config:   cfg,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Retrieve embeds the query text and returns the top-k chunks. Store errors are returned.
// When feedback cannot be read the ranking falls back to raw similarity and the response
// is flagged FeedbackDegraded.
func (e *Engine) Retrieve(ctx context.Context, query *models.RetrievalQuery) (*models.RetrievalResponse, error) {
	start := time.Now()
	if err := ProcessQuery(query, e.config); err != nil {
		return nil, err
	}

	store, err := e.stores.Get()
	if err != nil {
		return nil, fmt.Errorf("load store: %w", err)
	}
	emb, err := e.embedder.Embed(ctx, query.Query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	resp := &models.RetrievalResponse{Query: query.Query, StoreSize: store.Len()}
	scores := models.FeedbackScores{}
	if e.feedback != nil {
		s, err := e.feedback.Scores(ctx)
		if err != nil {
			e.logger.Warn("feedback unavailable, ranking by similarity only", zap.Error(err))
			resp.FeedbackDegraded = true
		} else {
			scores = s
		}
	}

	results, err := Retrieve(emb, store, scores, query.K, e.config.FeedbackWeightOrDefault(),
		store.Filter(query.Categories, query.Sources))
	if err != nil {
		return nil, err
	}
	resp.Results = results
	if query.Answer {
		resp.Answer = answer.Extractive(resp.Texts())
	}
	resp.QueryTime = time.Since(start).Milliseconds()

	e.logger.Debug("retrieval finished",
		zap.String("query", query.Query),
		zap.Int("k", query.K),
		zap.Int("results", len(results)),
		zap.Bool("feedback_degraded", resp.FeedbackDegraded),
		zap.Int64("query_time_ms", resp.QueryTime))
	return resp, nil
}
