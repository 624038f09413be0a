// Package jobs owns the submission job lifecycle: creation with dedup,
// manual hold/release/retry transitions, deletion, and the append-only job
// log.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/submitto/submitto/internal/common"
	"github.com/submitto/submitto/internal/interfaces"
	"github.com/submitto/submitto/internal/models"
)

// Service coordinates job and index-job records.
type Service struct {
	jobs   interfaces.JobStorage
	logs   interfaces.JobLogStorage
	sites  interfaces.SiteStorage
	logger arbor.ILogger
}

// NewService creates the job lifecycle service.
func NewService(
	jobs interfaces.JobStorage,
	logs interfaces.JobLogStorage,
	sites interfaces.SiteStorage,
	logger arbor.ILogger,
) *Service {
	return &Service{
		jobs:   jobs,
		logs:   logs,
		sites:  sites,
		logger: logger,
	}
}

// Create registers a PENDING submission job for (site, provider, url). The
// URL is normalized first; an existing record for the same triple makes the
// call a no-op, returning the existing job with created=false.
func (s *Service) Create(ctx context.Context, siteID string, provider models.Provider, rawURL string) (*models.Job, bool, error) {
	site, err := s.sites.GetSite(ctx, siteID)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, false, fmt.Errorf("unknown site %q", siteID)
		}
		return nil, false, fmt.Errorf("failed to load site %q: %w", siteID, err)
	}
	if !site.ProviderEnabled(provider) {
		return nil, false, &models.ConfigError{Provider: provider, Reason: fmt.Sprintf("not enabled for site %s", siteID)}
	}

	normalized, err := common.NormalizeURL(rawURL)
	if err != nil {
		return nil, false, err
	}

	job := models.NewIndexSubmissionJob(provider, normalized)
	idx := &models.IndexJob{
		JobID:    job.ID,
		SiteID:   siteID,
		Provider: provider,
		URL:      normalized,
		Status:   models.JobStatusPending,
	}

	if err := s.jobs.CreateIndexJob(ctx, idx); err != nil {
		if errors.Is(err, interfaces.ErrDuplicateIndexJob) {
			existing, getErr := s.jobs.GetIndexJob(ctx, siteID, provider, normalized)
			if getErr != nil {
				return nil, false, fmt.Errorf("duplicate index job lookup failed: %w", getErr)
			}
			s.logger.Debug().
				Str("site_id", siteID).
				Str("provider", string(provider)).
				Str("url", normalized).
				Msg("Submission already tracked, skipping")
			existingJob, getErr := s.jobs.GetJob(ctx, existing.JobID)
			return existingJob, false, getErr
		}
		return nil, false, fmt.Errorf("failed to create index job: %w", err)
	}

	if err := s.jobs.SaveJob(ctx, job); err != nil {
		// Roll the index record back so the triple is not permanently burned.
		if delErr := s.jobs.DeleteIndexJobByJobID(ctx, job.ID); delErr != nil {
			s.logger.Error().Err(delErr).Str("job_id", job.ID).Msg("Failed to roll back index job")
		}
		return nil, false, fmt.Errorf("failed to save job: %w", err)
	}

	s.appendLog(ctx, job.ID, "info", fmt.Sprintf("job created for %s via %s", normalized, provider))
	s.logger.Info().
		Str("job_id", job.ID).
		Str("site_id", siteID).
		Str("provider", string(provider)).
		Str("url", normalized).
		Msg("Submission job created")
	return job, true, nil
}

// CreateBatch registers one job per URL. Duplicates and invalid URLs are
// skipped and counted, never aborting the rest of the batch.
func (s *Service) CreateBatch(ctx context.Context, siteID string, provider models.Provider, rawURLs []string) (created int, skipped int, err error) {
	for _, rawURL := range rawURLs {
		_, didCreate, createErr := s.Create(ctx, siteID, provider, rawURL)
		switch {
		case createErr != nil:
			skipped++
			s.logger.Warn().
				Err(createErr).
				Str("site_id", siteID).
				Str("url", rawURL).
				Msg("Skipping URL in batch creation")
		case didCreate:
			created++
		default:
			skipped++
		}
	}
	return created, skipped, nil
}

// Site returns the site configuration a job belongs to.
func (s *Service) Site(ctx context.Context, siteID string) (*models.Site, error) {
	return s.sites.GetSite(ctx, siteID)
}

// Get returns a job by ID.
func (s *Service) Get(ctx context.Context, jobID string) (*models.Job, error) {
	return s.jobs.GetJob(ctx, jobID)
}

// GetIndex returns the index record attached to a job.
func (s *Service) GetIndex(ctx context.Context, jobID string) (*models.IndexJob, error) {
	return s.jobs.GetIndexJobByJobID(ctx, jobID)
}

// List returns jobs matching the filter options.
func (s *Service) List(ctx context.Context, opts *interfaces.JobListOptions) ([]*models.Job, error) {
	return s.jobs.ListJobs(ctx, opts)
}

// Retry moves a FAILED job back to PENDING, clearing the previous run's
// result fields so the scheduler picks it up fresh.
func (s *Service) Retry(ctx context.Context, jobID string) (*models.Job, error) {
	return s.transition(ctx, jobID, models.JobStatusPending, "retry requested", func(job *models.Job) error {
		if job.Status != models.JobStatusFailed {
			return fmt.Errorf("job %s is %s, only FAILED jobs can be retried", jobID, job.Status)
		}
		job.ResetForRetry()
		return nil
	})
}

// Hold parks a PENDING job in REQUEST so the scheduler ignores it.
func (s *Service) Hold(ctx context.Context, jobID string) (*models.Job, error) {
	return s.transition(ctx, jobID, models.JobStatusRequest, "held from scheduling", func(job *models.Job) error {
		if !models.IsManualTransition(job.Status, models.JobStatusRequest) {
			return fmt.Errorf("job %s is %s, only PENDING jobs can be held", jobID, job.Status)
		}
		job.Status = models.JobStatusRequest
		job.UpdatedAt = time.Now()
		return nil
	})
}

// Release returns a held job to PENDING.
func (s *Service) Release(ctx context.Context, jobID string) (*models.Job, error) {
	return s.transition(ctx, jobID, models.JobStatusPending, "released for scheduling", func(job *models.Job) error {
		if !models.IsManualTransition(job.Status, models.JobStatusPending) {
			return fmt.Errorf("job %s is %s, only held or failed jobs can be released", jobID, job.Status)
		}
		job.Status = models.JobStatusPending
		job.UpdatedAt = time.Now()
		return nil
	})
}

func (s *Service) transition(ctx context.Context, jobID string, target models.JobStatus, logMsg string, apply func(*models.Job) error) (*models.Job, error) {
	job, err := s.jobs.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if err := apply(job); err != nil {
		return nil, err
	}
	if err := s.jobs.SaveJob(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to save job %s: %w", jobID, err)
	}
	if err := s.jobs.UpdateIndexJobStatus(ctx, jobID, target, nil); err != nil {
		s.logger.Warn().Err(err).Str("job_id", jobID).Msg("Failed to sync index job status")
	}

	s.appendLog(ctx, jobID, "info", logMsg)
	s.logger.Info().Str("job_id", jobID).Str("status", string(target)).Msg("Job transitioned")
	return job, nil
}

// Delete removes a job, its index record and its logs. A job currently
// PROCESSING is refused; the scheduler owns it until it finishes.
func (s *Service) Delete(ctx context.Context, jobID string) error {
	job, err := s.jobs.GetJob(ctx, jobID)
	if err != nil {
		return err
	}
	if job.Status == models.JobStatusProcessing {
		return fmt.Errorf("job %s is processing and cannot be deleted", jobID)
	}

	if err := s.jobs.DeleteIndexJobByJobID(ctx, jobID); err != nil && !errors.Is(err, interfaces.ErrNotFound) {
		return fmt.Errorf("failed to delete index record for %s: %w", jobID, err)
	}
	if err := s.logs.DeleteLogs(ctx, jobID); err != nil {
		s.logger.Warn().Err(err).Str("job_id", jobID).Msg("Failed to delete job logs")
	}
	if err := s.jobs.DeleteJob(ctx, jobID); err != nil {
		return fmt.Errorf("failed to delete job %s: %w", jobID, err)
	}

	s.logger.Info().Str("job_id", jobID).Msg("Job deleted")
	return nil
}

// Logs returns up to limit log lines for a job, oldest first.
func (s *Service) Logs(ctx context.Context, jobID string, limit int) ([]models.JobLogEntry, error) {
	return s.logs.GetLogs(ctx, jobID, limit)
}

// AppendLog records one log line against a job.
func (s *Service) AppendLog(ctx context.Context, jobID, level, message string) {
	s.appendLog(ctx, jobID, level, message)
}

func (s *Service) appendLog(ctx context.Context, jobID, level, message string) {
	entry := models.JobLogEntry{
		JobID:     jobID,
		Level:     level,
		Message:   message,
		CreatedAt: time.Now(),
	}
	if err := s.logs.AppendLog(ctx, entry); err != nil {
		s.logger.Warn().Err(err).Str("job_id", jobID).Msg("Failed to append job log")
	}
}

// CountByStatus returns the number of jobs in the given state.
func (s *Service) CountByStatus(ctx context.Context, status models.JobStatus) (int, error) {
	return s.jobs.CountJobsByStatus(ctx, status)
}

// RecoverInterrupted sweeps jobs stranded in PROCESSING by a crash into
// FAILED so they become retryable. Called once at startup before the
// scheduler starts.
func (s *Service) RecoverInterrupted(ctx context.Context) error {
	swept, err := s.jobs.FailInterrupted(ctx, "interrupted by shutdown")
	if err != nil {
		return fmt.Errorf("failed to sweep interrupted jobs: %w", err)
	}
	if swept > 0 {
		s.logger.Warn().Int("jobs", swept).Msg("Recovered jobs interrupted by previous shutdown")
	}
	return nil
}
