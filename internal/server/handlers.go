package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/hyperjump/ragfeed/internal/feedback"
	"github.com/hyperjump/ragfeed/internal/indexer"
	"github.com/hyperjump/ragfeed/internal/models"
	"github.com/hyperjump/ragfeed/internal/vector"
	"go.uber.org/zap"
)

func (s *Server) handleRetrieve(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var query models.RetrievalQuery
	if err := json.NewDecoder(r.Body).Decode(&query); err != nil {
		s.metrics.ObserveRetrieval("bad_request", time.Since(start), -1)
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.logger.Debug("retrieve request", zap.String("query", query.Query), zap.Int("k", query.K))
	resp, err := s.services.Engine.Retrieve(r.Context(), &query)
	if err != nil {
		status := retrievalErrorStatus(err)
		s.metrics.ObserveRetrieval(http.StatusText(status), time.Since(start), -1)
		if status >= http.StatusInternalServerError {
			s.logger.Error("retrieval failed", zap.Error(err))
		}
		s.respondError(w, status, err.Error())
		return
	}
	status := "ok"
	if resp.FeedbackDegraded {
		status = "degraded"
	}
	s.metrics.ObserveRetrieval(status, time.Since(start), resp.StoreSize)
	s.respondJSON(w, http.StatusOK, resp)
}

// retrievalErrorStatus maps engine errors to HTTP status codes.
func retrievalErrorStatus(err error) int {
	var degenerate *vector.DegenerateVectorError
	switch {
	case errors.Is(err, vector.ErrStoreNotFound):
		return http.StatusServiceUnavailable
	case errors.As(err, &degenerate):
		return http.StatusUnprocessableEntity
	case errors.Is(err, vector.ErrStoreCorrupt), errors.Is(err, vector.ErrDimensionMismatch):
		return http.StatusInternalServerError
	case errors.Is(err, models.ErrInvalidQuery):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	var req models.FeedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.services.Log.Append(r.Context(), req.Events()); err != nil {
		var we *feedback.WriteError
		if errors.As(err, &we) && errors.Is(err, feedback.ErrLockTimeout) {
			s.logger.Warn("feedback lock busy", zap.Error(err))
			s.respondError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		s.logger.Error("feedback write failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.metrics.ObserveFeedback(req.Helpful, len(req.ChunkIDs))

	if s.services.Compactor != nil {
		if c, err := s.services.Compactor.MaybeCompact(r.Context()); err != nil {
			s.logger.Warn("auto compaction failed", zap.Error(err))
		} else if c != nil {
			s.logger.Info("feedback log compacted", zap.String("id", c.ID), zap.Int("events", c.Events))
		}
	}
	s.respondJSON(w, http.StatusCreated, map[string]interface{}{"recorded": len(req.ChunkIDs)})
}

func (s *Server) handleCompact(w http.ResponseWriter, r *http.Request) {
	if s.services.Compactor == nil {
		s.respondError(w, http.StatusNotImplemented, "compaction not configured")
		return
	}
	c, err := s.services.Compactor.Compact(r.Context())
	if err != nil {
		s.logger.Error("compaction failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if c == nil {
		s.respondJSON(w, http.StatusOK, map[string]string{"status": "empty"})
		return
	}
	s.respondJSON(w, http.StatusOK, c)
}

type buildResponse struct {
	Status     string              `json:"status"`
	Generation string              `json:"generation"`
	Records    int                 `json:"records"`
	Dimension  int                 `json:"dimension"`
	Corpus     indexer.CorpusStats `json:"corpus"`
}

func (s *Server) handleBuild(w http.ResponseWriter, r *http.Request) {
	if s.services.Builder == nil {
		s.respondError(w, http.StatusNotImplemented, "builds not configured")
		return
	}
	store, stats, err := s.services.Builder.BuildFromDirectory(r.Context(), s.config.Corpus.DataDir)
	if err != nil {
		if errors.Is(err, indexer.ErrNoChunks) {
			s.metrics.ObserveBuild("empty")
			s.respondError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		s.metrics.ObserveBuild("error")
		s.logger.Error("build failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.metrics.ObserveBuild("ok")
	s.respondJSON(w, http.StatusCreated, buildResponse{
		Status:     "built",
		Generation: store.Generation(),
		Records:    store.Len(),
		Dimension:  store.Dimension(),
		Corpus:     stats,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, CollectStatus(r.Context(), s.services, s.config))
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
