// Package scheduler runs the single-flight submission loop and the periodic
// sitemap discovery pass on cron schedules.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"

	"github.com/submitto/submitto/internal/common"
	"github.com/submitto/submitto/internal/interfaces"
	"github.com/submitto/submitto/internal/models"
	"github.com/submitto/submitto/internal/services/jobs"
	"github.com/submitto/submitto/internal/services/sitemap"
	"github.com/submitto/submitto/internal/services/submit"
)

const tickTimeout = 5 * time.Minute

// Service drives job execution. At most one submission tick runs at a time;
// a tick that is still working when the next cron fire arrives makes the new
// fire a no-op.
type Service struct {
	config   *common.SchedulerConfig
	jobStore interfaces.JobStorage
	jobs     *jobs.Service
	registry *submit.Registry
	sitemaps *sitemap.Service
	logger   arbor.ILogger

	cron     *cron.Cron
	mu       sync.Mutex // protects inFlight
	inFlight bool

	sitemapMu       sync.Mutex
	sitemapInFlight bool

	running bool
}

// NewService creates the scheduler.
func NewService(
	config *common.SchedulerConfig,
	jobStore interfaces.JobStorage,
	jobService *jobs.Service,
	registry *submit.Registry,
	sitemaps *sitemap.Service,
	logger arbor.ILogger,
) *Service {
	return &Service{
		config:   config,
		jobStore: jobStore,
		jobs:     jobService,
		registry: registry,
		sitemaps: sitemaps,
		logger:   logger,
		cron:     cron.New(cron.WithSeconds()),
	}
}

// Start registers the cron entries and begins firing.
func (s *Service) Start() error {
	if s.running {
		return fmt.Errorf("scheduler already running")
	}
	if !s.config.Enabled {
		s.logger.Info().Msg("Scheduler disabled by configuration")
		return nil
	}

	if _, err := s.cron.AddFunc(s.config.SubmitSchedule, s.runSubmitTick); err != nil {
		return fmt.Errorf("failed to register submit schedule: %w", err)
	}
	if s.sitemaps != nil {
		if _, err := s.cron.AddFunc(s.config.SitemapSchedule, s.runSitemapPass); err != nil {
			return fmt.Errorf("failed to register sitemap schedule: %w", err)
		}
	}

	s.cron.Start()
	s.running = true
	s.logger.Info().
		Str("submit_schedule", s.config.SubmitSchedule).
		Str("sitemap_schedule", s.config.SitemapSchedule).
		Msg("Scheduler started")
	return nil
}

// Stop halts cron firing and waits for an in-flight tick to finish.
func (s *Service) Stop() {
	if !s.running {
		return
	}
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.running = false
	s.logger.Info().Msg("Scheduler stopped")
}

// runSubmitTick is the cron entry point. Panics and errors stay inside the
// tick; the cron loop must never die.
func (s *Service) runSubmitTick() {
	s.mu.Lock()
	if s.inFlight {
		s.mu.Unlock()
		s.logger.Debug().Msg("Submission tick still running, skipping fire")
		return
	}
	s.inFlight = true
	s.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().Str("panic", fmt.Sprintf("%v", r)).Msg("Submission tick panicked")
		}
		s.mu.Lock()
		s.inFlight = false
		s.mu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), tickTimeout)
	defer cancel()

	if err := s.Tick(ctx); err != nil {
		s.logger.Error().Err(err).Msg("Submission tick failed")
	}
}

// Tick dequeues and executes the oldest PENDING job, if any. Exported so a
// manual "run now" action can share the exact scheduler path.
func (s *Service) Tick(ctx context.Context) error {
	job, err := s.jobStore.NextPending(ctx)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("failed to dequeue: %w", err)
	}

	idx, err := s.jobs.GetIndex(ctx, job.ID)
	if err != nil {
		// A job without its index record cannot be executed; fail it so it
		// stops clogging the front of the queue.
		job.MarkFailed(fmt.Sprintf("missing index record: %v", err))
		if saveErr := s.jobStore.SaveJob(ctx, job); saveErr != nil {
			return fmt.Errorf("failed to fail orphaned job %s: %w", job.ID, saveErr)
		}
		return nil
	}

	job.MarkProcessing()
	if err := s.jobStore.SaveJob(ctx, job); err != nil {
		return fmt.Errorf("failed to mark job %s processing: %w", job.ID, err)
	}
	if err := s.jobStore.UpdateIndexJobStatus(ctx, job.ID, models.JobStatusProcessing, nil); err != nil {
		s.logger.Warn().Err(err).Str("job_id", job.ID).Msg("Failed to sync index status")
	}
	s.jobs.AppendLog(ctx, job.ID, "info", fmt.Sprintf("submission started via %s", idx.Provider))

	outcome, execErr := s.execute(ctx, idx)
	s.finish(ctx, job, idx, outcome, execErr)
	return nil
}

func (s *Service) execute(ctx context.Context, idx *models.IndexJob) (*submit.Outcome, error) {
	submitter, err := s.registry.For(idx.Provider)
	if err != nil {
		return nil, err
	}

	site, err := s.loadSite(ctx, idx)
	if err != nil {
		return nil, err
	}

	return submitter.Submit(ctx, site, idx.URL)
}

func (s *Service) loadSite(ctx context.Context, idx *models.IndexJob) (*models.Site, error) {
	site, err := s.jobs.Site(ctx, idx.SiteID)
	if err != nil {
		return nil, fmt.Errorf("failed to load site %q: %w", idx.SiteID, err)
	}
	return site, nil
}

// finish records the submission result on the job, the index record and the
// job log.
func (s *Service) finish(ctx context.Context, job *models.Job, idx *models.IndexJob, outcome *submit.Outcome, execErr error) {
	var publishedAt *time.Time

	if execErr == nil {
		switch outcome.Status {
		case submit.OutcomeSuccess:
			now := time.Now()
			publishedAt = &now
			job.MarkCompleted(outcome.Message)
			s.jobs.AppendLog(ctx, job.ID, "info", "submission accepted: "+outcome.Message)
		case submit.OutcomeSkipped:
			job.MarkCompleted("already submitted: " + outcome.Message)
			s.jobs.AppendLog(ctx, job.ID, "info", "submission skipped: "+outcome.Message)
		default:
			job.MarkFailed(outcome.Message)
			s.jobs.AppendLog(ctx, job.ID, "error", "submission failed: "+outcome.Message)
		}
	} else {
		var subErr *models.SubmissionError
		if errors.As(execErr, &subErr) && subErr.Kind == models.SubmissionDuplicate {
			job.MarkCompleted("already submitted: " + subErr.Message)
			s.jobs.AppendLog(ctx, job.ID, "info", "submission skipped: "+subErr.Message)
		} else {
			job.MarkFailed(execErr.Error())
			s.jobs.AppendLog(ctx, job.ID, "error", execErr.Error())
		}
	}

	if err := s.jobStore.SaveJob(ctx, job); err != nil {
		s.logger.Error().Err(err).Str("job_id", job.ID).Msg("Failed to save finished job")
		return
	}
	if err := s.jobStore.UpdateIndexJobStatus(ctx, job.ID, job.Status, publishedAt); err != nil {
		s.logger.Warn().Err(err).Str("job_id", job.ID).Msg("Failed to sync index status")
	}

	s.logger.Info().
		Str("job_id", job.ID).
		Str("provider", string(idx.Provider)).
		Str("url", idx.URL).
		Str("status", string(job.Status)).
		Msg("Submission job finished")
}

// runSitemapPass fires sitemap discovery with its own single-flight guard so
// a slow crawl cannot stack passes.
func (s *Service) runSitemapPass() {
	s.sitemapMu.Lock()
	if s.sitemapInFlight {
		s.sitemapMu.Unlock()
		s.logger.Debug().Msg("Sitemap pass still running, skipping fire")
		return
	}
	s.sitemapInFlight = true
	s.sitemapMu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().Str("panic", fmt.Sprintf("%v", r)).Msg("Sitemap pass panicked")
		}
		s.sitemapMu.Lock()
		s.sitemapInFlight = false
		s.sitemapMu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), tickTimeout)
	defer cancel()

	if err := s.sitemaps.Run(ctx); err != nil {
		s.logger.Error().Err(err).Msg("Sitemap pass failed")
	}
}
