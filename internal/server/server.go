// Package server provides the HTTP API for ragfeed.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hyperjump/ragfeed/internal/config"
	"github.com/hyperjump/ragfeed/internal/feedback"
	"github.com/hyperjump/ragfeed/internal/indexer"
	"github.com/hyperjump/ragfeed/internal/search"
	"github.com/hyperjump/ragfeed/internal/storage"
	"github.com/hyperjump/ragfeed/internal/vector"
	"github.com/hyperjump/ragfeed/pkg/utils"
	"go.uber.org/zap"
)

const requestTimeout = 60 * time.Second

// Services are the components the API serves. Builder, Compactor and Snapshot are optional;
// the endpoints that need them answer 501 when absent.
type Services struct {
	Engine     *search.Engine
	Loader     *vector.Loader
	Log        *feedback.Log
	Aggregator *feedback.Aggregator
	Builder    *indexer.Builder
	Compactor  *feedback.Compactor
	Snapshot   storage.FeedbackStore
}

// Server is the HTTP server for the ragfeed API.
type Server struct {
	services Services
	config   *config.Config
	metrics  *Metrics
	logger   *zap.Logger
	server   *http.Server
}

// NewServer creates a server with the given services.
func NewServer(services Services, cfg *config.Config, metrics *Metrics, logger *zap.Logger) *Server {
	if metrics == nil {
		metrics = NewMetrics()
	}
	return &Server{
		services: services,
		config:   cfg,
		metrics:  metrics,
		logger:   utils.OrNop(logger),
	}
}

// Metrics returns the server's collectors.
func (s *Server) Metrics() *Metrics { return s.metrics }

// Handler returns the router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", s.metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(requestTimeout))
			r.Post("/retrieve", s.handleRetrieve)
			r.Post("/feedback", s.handleFeedback)
			r.Post("/feedback/compact", s.handleCompact)
			r.Get("/status", s.handleStatus)
		})
		// Builds embed the whole corpus and may outlive the request timeout.
		r.Post("/build", s.handleBuild)
	})
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
