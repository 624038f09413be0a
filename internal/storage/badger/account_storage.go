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

// AccountStorage implements the AccountStorage interface for Badger
type AccountStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewAccountStorage creates a new AccountStorage instance
func NewAccountStorage(db *BadgerDB, logger arbor.ILogger) interfaces.AccountStorage {
	return &AccountStorage{
		db:     db,
		logger: logger,
	}
}

func (s *AccountStorage) SaveAccount(ctx context.Context, account *models.ProviderAccount) error {
	if account.ID == "" {
		return fmt.Errorf("account ID is required")
	}
	if err := s.db.Store().Upsert(account.ID, account); err != nil {
		return fmt.Errorf("failed to save account: %w", err)
	}
	return nil
}

func (s *AccountStorage) GetActiveAccount(ctx context.Context, provider models.Provider) (*models.ProviderAccount, error) {
	var accounts []models.ProviderAccount
	query := badgerhold.Where("Provider").Eq(provider).And("IsActive").Eq(true)
	if err := s.db.Store().Find(&accounts, query); err != nil {
		return nil, fmt.Errorf("failed to find account: %w", err)
	}
	if len(accounts) == 0 {
		return nil, interfaces.ErrNotFound
	}
	return &accounts[0], nil
}

func (s *AccountStorage) MarkLoggedIn(ctx context.Context, accountID string, at time.Time) error {
	var account models.ProviderAccount
	if err := s.db.Store().Get(accountID, &account); err != nil {
		if err == badgerhold.ErrNotFound {
			return interfaces.ErrNotFound
		}
		return fmt.Errorf("failed to get account: %w", err)
	}
	account.IsLoggedIn = true
	account.LastLogin = &at
	if err := s.db.Store().Upsert(accountID, &account); err != nil {
		return fmt.Errorf("failed to update account login state: %w", err)
	}
	return nil
}
