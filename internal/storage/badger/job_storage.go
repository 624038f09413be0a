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

// JobStorage implements the JobStorage interface for Badger
type JobStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewJobStorage creates a new JobStorage instance
func NewJobStorage(db *BadgerDB, logger arbor.ILogger) interfaces.JobStorage {
	return &JobStorage{
		db:     db,
		logger: logger,
	}
}

func (s *JobStorage) SaveJob(ctx context.Context, job *models.Job) error {
	if job.ID == "" {
		return fmt.Errorf("job ID is required")
	}
	if err := s.db.Store().Upsert(job.ID, job); err != nil {
		return fmt.Errorf("failed to save job: %w", err)
	}
	return nil
}

func (s *JobStorage) GetJob(ctx context.Context, jobID string) (*models.Job, error) {
	var job models.Job
	if err := s.db.Store().Get(jobID, &job); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, interfaces.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return &job, nil
}

func (s *JobStorage) DeleteJob(ctx context.Context, jobID string) error {
	if err := s.db.Store().Delete(jobID, &models.Job{}); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil
		}
		return fmt.Errorf("failed to delete job: %w", err)
	}
	return nil
}

func (s *JobStorage) ListJobs(ctx context.Context, opts *interfaces.JobListOptions) ([]*models.Job, error) {
	query := badgerhold.Where("ID").Ne("")

	if opts != nil {
		if opts.Status != "" {
			query = query.And("Status").Eq(opts.Status)
		}
		if opts.Limit > 0 {
			query = query.Limit(opts.Limit)
		}
		if opts.Offset > 0 {
			query = query.Skip(opts.Offset)
		}
	}
	query = query.SortBy("CreatedAt").Reverse()

	var jobs []models.Job
	if err := s.db.Store().Find(&jobs, query); err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}

	result := make([]*models.Job, 0, len(jobs))
	for i := range jobs {
		if opts != nil && (opts.SiteID != "" || opts.Provider != "") {
			idx, err := s.GetIndexJobByJobID(ctx, jobs[i].ID)
			if err != nil {
				continue
			}
			if opts.SiteID != "" && idx.SiteID != opts.SiteID {
				continue
			}
			if opts.Provider != "" && idx.Provider != opts.Provider {
				continue
			}
		}
		result = append(result, &jobs[i])
	}
	return result, nil
}

func (s *JobStorage) CountJobsByStatus(ctx context.Context, status models.JobStatus) (int, error) {
	count, err := s.db.Store().Count(&models.Job{}, badgerhold.Where("Status").Eq(status))
	if err != nil {
		return 0, fmt.Errorf("failed to count jobs: %w", err)
	}
	return int(count), nil
}

// NextPending returns the oldest PENDING job in creation-time order.
func (s *JobStorage) NextPending(ctx context.Context) (*models.Job, error) {
	var jobs []models.Job
	query := badgerhold.Where("Status").Eq(models.JobStatusPending).SortBy("CreatedAt").Limit(1)
	if err := s.db.Store().Find(&jobs, query); err != nil {
		return nil, fmt.Errorf("failed to query pending jobs: %w", err)
	}
	if len(jobs) == 0 {
		return nil, interfaces.ErrNotFound
	}
	return &jobs[0], nil
}

// FailInterrupted sweeps jobs stranded in PROCESSING after a crash. A crash
// mid-processing leaves no reliable way to know whether the external side
// effect occurred, so the job is deterministically failed.
func (s *JobStorage) FailInterrupted(ctx context.Context, message string) (int, error) {
	var jobs []models.Job
	if err := s.db.Store().Find(&jobs, badgerhold.Where("Status").Eq(models.JobStatusProcessing)); err != nil {
		return 0, fmt.Errorf("failed to find interrupted jobs: %w", err)
	}

	count := 0
	for i := range jobs {
		jobs[i].MarkFailed(message)
		if err := s.SaveJob(ctx, &jobs[i]); err != nil {
			s.logger.Warn().Err(err).Str("job_id", jobs[i].ID).Msg("Failed to mark interrupted job as failed")
			continue
		}
		if err := s.UpdateIndexJobStatus(ctx, jobs[i].ID, models.JobStatusFailed, nil); err != nil {
			s.logger.Warn().Err(err).Str("job_id", jobs[i].ID).Msg("Failed to update index job status")
		}
		count++
	}
	return count, nil
}

// CreateIndexJob inserts the index record keyed by the normalized composite
// key, enforcing the (site, provider, url) uniqueness invariant.
func (s *JobStorage) CreateIndexJob(ctx context.Context, idx *models.IndexJob) error {
	key := models.IndexJobKey(idx.SiteID, idx.Provider, idx.URL)
	if err := s.db.Store().Insert(key, idx); err != nil {
		if err == badgerhold.ErrKeyExists {
			return interfaces.ErrDuplicateIndexJob
		}
		return fmt.Errorf("failed to create index job: %w", err)
	}
	return nil
}

func (s *JobStorage) GetIndexJobByJobID(ctx context.Context, jobID string) (*models.IndexJob, error) {
	var records []models.IndexJob
	if err := s.db.Store().Find(&records, badgerhold.Where("JobID").Eq(jobID)); err != nil {
		return nil, fmt.Errorf("failed to get index job: %w", err)
	}
	if len(records) == 0 {
		return nil, interfaces.ErrNotFound
	}
	return &records[0], nil
}

func (s *JobStorage) GetIndexJob(ctx context.Context, siteID string, provider models.Provider, normalizedURL string) (*models.IndexJob, error) {
	key := models.IndexJobKey(siteID, provider, normalizedURL)
	var idx models.IndexJob
	if err := s.db.Store().Get(key, &idx); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, interfaces.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get index job: %w", err)
	}
	return &idx, nil
}

func (s *JobStorage) UpdateIndexJobStatus(ctx context.Context, jobID string, status models.JobStatus, publishedAt *time.Time) error {
	idx, err := s.GetIndexJobByJobID(ctx, jobID)
	if err != nil {
		return err
	}
	idx.Status = status
	if publishedAt != nil {
		idx.PublishedAt = publishedAt
	}
	key := models.IndexJobKey(idx.SiteID, idx.Provider, idx.URL)
	if err := s.db.Store().Upsert(key, idx); err != nil {
		return fmt.Errorf("failed to update index job: %w", err)
	}
	return nil
}

func (s *JobStorage) DeleteIndexJobByJobID(ctx context.Context, jobID string) error {
	if err := s.db.Store().DeleteMatching(&models.IndexJob{}, badgerhold.Where("JobID").Eq(jobID)); err != nil {
		return fmt.Errorf("failed to delete index job: %w", err)
	}
	return nil
}

// HasSiteURL reports whether the normalized URL is already known for the
// site under any provider.
func (s *JobStorage) HasSiteURL(ctx context.Context, siteID string, normalizedURL string) (bool, error) {
	count, err := s.db.Store().Count(&models.IndexJob{},
		badgerhold.Where("SiteID").Eq(siteID).And("URL").Eq(normalizedURL))
	if err != nil {
		return false, fmt.Errorf("failed to check site url: %w", err)
	}
	return count > 0, nil
}
