package interfaces

import (
	"context"
	"errors"
	"time"

	"github.com/submitto/submitto/internal/models"
)

// ErrNotFound is returned by storages when a record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrDuplicateIndexJob is returned when an IndexJob for the same
// (site, provider, normalized URL) already exists.
var ErrDuplicateIndexJob = errors.New("index job already exists")

// JobListOptions filters and pages job listings.
type JobListOptions struct {
	Status   models.JobStatus
	SiteID   string
	Provider models.Provider
	Limit    int
	Offset   int
}

// JobStorage persists jobs and their 1:1 index records.
type JobStorage interface {
	SaveJob(ctx context.Context, job *models.Job) error
	GetJob(ctx context.Context, jobID string) (*models.Job, error)
	DeleteJob(ctx context.Context, jobID string) error
	ListJobs(ctx context.Context, opts *JobListOptions) ([]*models.Job, error)
	CountJobsByStatus(ctx context.Context, status models.JobStatus) (int, error)

	// NextPending returns the oldest PENDING job by creation time, or
	// ErrNotFound when the queue is empty.
	NextPending(ctx context.Context) (*models.Job, error)

	// FailInterrupted forces every job stranded in PROCESSING to FAILED
	// with the given system message. Returns the number of jobs swept.
	FailInterrupted(ctx context.Context, message string) (int, error)

	// CreateIndexJob inserts the index record, enforcing the
	// (site, provider, url) uniqueness invariant. Returns
	// ErrDuplicateIndexJob on conflict.
	CreateIndexJob(ctx context.Context, idx *models.IndexJob) error
	GetIndexJobByJobID(ctx context.Context, jobID string) (*models.IndexJob, error)
	GetIndexJob(ctx context.Context, siteID string, provider models.Provider, normalizedURL string) (*models.IndexJob, error)
	UpdateIndexJobStatus(ctx context.Context, jobID string, status models.JobStatus, publishedAt *time.Time) error
	DeleteIndexJobByJobID(ctx context.Context, jobID string) error

	// HasSiteURL reports whether any provider already has an IndexJob for
	// the normalized URL on the site. Used by sitemap discovery diffing.
	HasSiteURL(ctx context.Context, siteID string, normalizedURL string) (bool, error)
}

// JobLogStorage persists append-only job logs.
type JobLogStorage interface {
	AppendLog(ctx context.Context, entry models.JobLogEntry) error
	GetLogs(ctx context.Context, jobID string, limit int) ([]models.JobLogEntry, error)
	DeleteLogs(ctx context.Context, jobID string) error
	CountLogs(ctx context.Context, jobID string) (int, error)
}

// SiteStorage persists per-site configuration consumed from the external
// settings store.
type SiteStorage interface {
	SaveSite(ctx context.Context, site *models.Site) error
	GetSite(ctx context.Context, siteID string) (*models.Site, error)
	ListSites(ctx context.Context) ([]*models.Site, error)
}

// SitemapStorage persists sitemap poll configurations.
type SitemapStorage interface {
	SaveConfig(ctx context.Context, config *models.SitemapConfig) error
	ListEnabled(ctx context.Context) ([]*models.SitemapConfig, error)
	MarkParsed(ctx context.Context, configID string, at time.Time) error
}

// AccountStorage persists browser-provider account credentials.
type AccountStorage interface {
	SaveAccount(ctx context.Context, account *models.ProviderAccount) error
	GetActiveAccount(ctx context.Context, provider models.Provider) (*models.ProviderAccount, error)
	MarkLoggedIn(ctx context.Context, accountID string, at time.Time) error
}

// CookieStorage is the pluggable key-value store for serialized browser
// sessions, keyed by (provider, account).
type CookieStorage interface {
	SaveCookies(ctx context.Context, record *models.CookieRecord) error
	GetCookies(ctx context.Context, key string) (*models.CookieRecord, error)
	DeleteCookies(ctx context.Context, key string) error
}
