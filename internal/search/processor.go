package search

import (
	"github.com/hyperjump/ragfeed/internal/config"
	"github.com/hyperjump/ragfeed/internal/models"
)

// ProcessQuery validates the query and applies the configured k defaults.
func ProcessQuery(query *models.RetrievalQuery, cfg *config.RetrievalConfig) error {
	return query.Validate(cfg.DefaultK, cfg.MaxK)
}
