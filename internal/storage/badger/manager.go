package badger

import (
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/submitto/submitto/internal/common"
	"github.com/submitto/submitto/internal/interfaces"
)

// Manager owns the Badger connection and exposes the typed storages.
type Manager struct {
	db       *BadgerDB
	logger   arbor.ILogger
	jobs     interfaces.JobStorage
	jobLogs  interfaces.JobLogStorage
	sites    interfaces.SiteStorage
	sitemaps interfaces.SitemapStorage
	accounts interfaces.AccountStorage
	cookies  interfaces.CookieStorage
}

// NewManager opens the database and wires all storages.
func NewManager(config *common.BadgerConfig, logger arbor.ILogger) (*Manager, error) {
	db, err := NewBadgerDB(logger, config)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	return &Manager{
		db:       db,
		logger:   logger,
		jobs:     NewJobStorage(db, logger),
		jobLogs:  NewJobLogStorage(db, logger),
		sites:    NewSiteStorage(db, logger),
		sitemaps: NewSitemapStorage(db, logger),
		accounts: NewAccountStorage(db, logger),
		cookies:  NewCookieStorage(db, logger),
	}, nil
}

func (m *Manager) Jobs() interfaces.JobStorage         { return m.jobs }
func (m *Manager) JobLogs() interfaces.JobLogStorage   { return m.jobLogs }
func (m *Manager) Sites() interfaces.SiteStorage       { return m.sites }
func (m *Manager) Sitemaps() interfaces.SitemapStorage { return m.sitemaps }
func (m *Manager) Accounts() interfaces.AccountStorage { return m.accounts }
func (m *Manager) Cookies() interfaces.CookieStorage   { return m.cookies }

// Close closes the underlying database.
func (m *Manager) Close() error {
	return m.db.Close()
}
