package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/submitto/submitto/internal/interfaces"
	"github.com/submitto/submitto/internal/models"
)

// SitemapStorage implements the SitemapStorage interface for Badger
type SitemapStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewSitemapStorage creates a new SitemapStorage instance
func NewSitemapStorage(db *BadgerDB, logger arbor.ILogger) interfaces.SitemapStorage {
	return &SitemapStorage{
		db:     db,
		logger: logger,
	}
}

func (s *SitemapStorage) SaveConfig(ctx context.Context, config *models.SitemapConfig) error {
	if config.ID == "" {
		return fmt.Errorf("sitemap config ID is required")
	}
	if err := s.db.Store().Upsert(config.ID, config); err != nil {
		return fmt.Errorf("failed to save sitemap config: %w", err)
	}
	return nil
}

func (s *SitemapStorage) ListEnabled(ctx context.Context) ([]*models.SitemapConfig, error) {
	var configs []models.SitemapConfig
	if err := s.db.Store().Find(&configs, badgerhold.Where("IsEnabled").Eq(true)); err != nil {
		return nil, fmt.Errorf("failed to list sitemap configs: %w", err)
	}
	result := make([]*models.SitemapConfig, len(configs))
	for i := range configs {
		result[i] = &configs[i]
	}
	return result, nil
}

func (s *SitemapStorage) MarkParsed(ctx context.Context, configID string, at time.Time) error {
	var config models.SitemapConfig
	if err := s.db.Store().Get(configID, &config); err != nil {
		if err == badgerhold.ErrNotFound {
			return interfaces.ErrNotFound
		}
		return fmt.Errorf("failed to get sitemap config: %w", err)
	}
	config.LastParsed = &at
	if err := s.db.Store().Upsert(configID, &config); err != nil {
		return fmt.Errorf("failed to mark sitemap config parsed: %w", err)
	}
	return nil
}
