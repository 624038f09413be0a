package badger

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/submitto/submitto/internal/interfaces"
	"github.com/submitto/submitto/internal/models"
)

// SiteStorage implements the SiteStorage interface for Badger
type SiteStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewSiteStorage creates a new SiteStorage instance
func NewSiteStorage(db *BadgerDB, logger arbor.ILogger) interfaces.SiteStorage {
	return &SiteStorage{
		db:     db,
		logger: logger,
	}
}

func (s *SiteStorage) SaveSite(ctx context.Context, site *models.Site) error {
	if site.ID == "" {
		return fmt.Errorf("site ID is required")
	}
	if err := s.db.Store().Upsert(site.ID, site); err != nil {
		return fmt.Errorf("failed to save site: %w", err)
	}
	return nil
}

func (s *SiteStorage) GetSite(ctx context.Context, siteID string) (*models.Site, error) {
	var site models.Site
	if err := s.db.Store().Get(siteID, &site); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, interfaces.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get site: %w", err)
	}
	return &site, nil
}

func (s *SiteStorage) ListSites(ctx context.Context) ([]*models.Site, error) {
	var sites []models.Site
	if err := s.db.Store().Find(&sites, nil); err != nil {
		return nil, fmt.Errorf("failed to list sites: %w", err)
	}
	result := make([]*models.Site, len(sites))
	for i := range sites {
		result[i] = &sites[i]
	}
	return result, nil
}
