package server

import (
	"context"

	"github.com/hyperjump/ragfeed/internal/config"
	"github.com/hyperjump/ragfeed/internal/models"
	"github.com/hyperjump/ragfeed/internal/storage"
)

const statusCompactions = 5

// CollectStatus reports on the store, feedback and disk usage. Component failures are
// reported in the corresponding section rather than failing the whole status.
func CollectStatus(ctx context.Context, svc Services, cfg *config.Config) *models.Status {
	st := &models.Status{
		Store:    models.StoreStatus{Location: cfg.Storage.StoreDir},
		Feedback: models.FeedbackStatus{LogPath: cfg.Storage.FeedbackLogPath},
		Config: &models.StatusConfig{
			EmbeddingType:  cfg.Embedding.Type,
			Dimensions:     cfg.Embedding.Dimensions,
			ChunkSize:      cfg.Corpus.ChunkSize,
			DefaultK:       cfg.Retrieval.DefaultK,
			FeedbackWeight: cfg.Retrieval.FeedbackWeightOrDefault(),
			DataDir:        cfg.Corpus.DataDir,
		},
	}

	if svc.Loader != nil {
		if store, err := svc.Loader.Get(); err != nil {
			st.Store.Error = err.Error()
		} else {
			st.Store.Generation = store.Generation()
			st.Store.Records = store.Len()
			st.Store.Dimension = store.Dimension()
			st.Store.Categories = store.Categories()
			st.Store.Sources = len(store.Sources())
		}
	}

	if svc.Aggregator != nil {
		if stats, err := svc.Aggregator.Stats(ctx); err != nil {
			st.Feedback.Error = err.Error()
		} else {
			st.Feedback.LogEvents = stats.Events
			st.Feedback.SkippedLines = stats.Skipped()
		}
		if scores, err := svc.Aggregator.Scores(ctx); err != nil {
			st.Feedback.Error = err.Error()
		} else {
			st.Feedback.ScoredChunks = len(scores)
		}
	}

	if svc.Snapshot != nil {
		if list, err := svc.Snapshot.ListCompactions(ctx, statusCompactions); err == nil {
			st.Compactions = list
		}
	}

	if usage, err := storage.MeasureUsage(cfg.Storage.StoreDir, cfg.Storage.FeedbackLogPath,
		cfg.Storage.DatabasePath, cfg.Storage.ArchiveDir); err == nil {
		st.Disk = &models.DiskUsage{
			Store:    usage.StoreBytes,
			Feedback: usage.FeedbackBytes,
			Database: usage.DatabaseBytes,
			Archive:  usage.ArchiveBytes,
			Total:    usage.Total(),
		}
	}
	return st
}
