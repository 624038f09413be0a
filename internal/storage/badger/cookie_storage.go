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

// CookieStorage implements the CookieStorage interface for Badger. It is a
// key-value store keyed by (provider, account) so the cookie record can move
// to another backend without touching callers.
type CookieStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewCookieStorage creates a new CookieStorage instance
func NewCookieStorage(db *BadgerDB, logger arbor.ILogger) interfaces.CookieStorage {
	return &CookieStorage{
		db:     db,
		logger: logger,
	}
}

func (s *CookieStorage) SaveCookies(ctx context.Context, record *models.CookieRecord) error {
	if record.Key == "" {
		return fmt.Errorf("cookie record key is required")
	}
	record.UpdatedAt = time.Now()
	if err := s.db.Store().Upsert(record.Key, record); err != nil {
		return fmt.Errorf("failed to save cookie record: %w", err)
	}
	return nil
}

func (s *CookieStorage) GetCookies(ctx context.Context, key string) (*models.CookieRecord, error) {
	var record models.CookieRecord
	if err := s.db.Store().Get(key, &record); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, interfaces.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get cookie record: %w", err)
	}
	return &record, nil
}

func (s *CookieStorage) DeleteCookies(ctx context.Context, key string) error {
	if err := s.db.Store().Delete(key, &models.CookieRecord{}); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil
		}
		return fmt.Errorf("failed to delete cookie record: %w", err)
	}
	return nil
}
