// -----------------------------------------------------------------------
// Job - durable submission job and its state machine
// -----------------------------------------------------------------------

package models

import (
	"time"

	"github.com/google/uuid"
)

// JobStatus is the lifecycle state of a submission job.
type JobStatus string

const (
	JobStatusPending    JobStatus = "PENDING"
	JobStatusRequest    JobStatus = "REQUEST"
	JobStatusProcessing JobStatus = "PROCESSING"
	JobStatusCompleted  JobStatus = "COMPLETED"
	JobStatusFailed     JobStatus = "FAILED"
)

// JobType classifies the work a job carries. Only URL index submissions
// exist today; the field is kept so the store stays generic.
type JobType string

const JobTypeIndex JobType = "index"

// Job is the scheduler-owned unit of work: submit one URL to one provider.
// Status, result and timestamp fields are mutated only by the scheduler and
// by explicit user retry/delete actions.
type Job struct {
	ID          string     `json:"id"`
	Type        JobType    `json:"type"`
	Status      JobStatus  `json:"status"`
	Subject     string     `json:"subject"`
	Description string     `json:"description,omitempty"`
	Priority    int        `json:"priority"`
	ScheduledAt time.Time  `json:"scheduled_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	ResultMsg   string     `json:"result_msg,omitempty"`
	ErrorMsg    string     `json:"error_msg,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// IndexJob is the provider/URL/site record attached 1:1 to a Job. The URL is
// stored normalized; (SiteID, Provider, URL) is unique across the store.
type IndexJob struct {
	JobID       string     `json:"job_id"`
	SiteID      string     `json:"site_id"`
	Provider    Provider   `json:"provider"`
	URL         string     `json:"url"`
	Status      JobStatus  `json:"status"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
}

// IndexJobKey builds the storage key that enforces the dedup invariant.
func IndexJobKey(siteID string, provider Provider, normalizedURL string) string {
	return siteID + "|" + string(provider) + "|" + normalizedURL
}

// NewIndexSubmissionJob creates a PENDING job for submitting url to provider.
func NewIndexSubmissionJob(provider Provider, url string) *Job {
	now := time.Now()
	return &Job{
		ID:          uuid.New().String(),
		Type:        JobTypeIndex,
		Status:      JobStatusPending,
		Subject:     string(provider) + ": " + url,
		ScheduledAt: now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// CanTransitionTo reports whether moving from s to next is a legal state
// machine transition, regardless of who triggers it.
func (s JobStatus) CanTransitionTo(next JobStatus) bool {
	switch s {
	case JobStatusPending:
		return next == JobStatusRequest || next == JobStatusProcessing
	case JobStatusRequest:
		return next == JobStatusPending
	case JobStatusProcessing:
		return next == JobStatusCompleted || next == JobStatusFailed
	case JobStatusFailed:
		return next == JobStatusPending
	default:
		// COMPLETED is terminal.
		return false
	}
}

// IsManualTransition reports whether the transition is one a user may
// trigger directly. PENDING->PROCESSING and PROCESSING->* belong to the
// scheduler only.
func IsManualTransition(from, to JobStatus) bool {
	switch {
	case from == JobStatusPending && to == JobStatusRequest:
		return true
	case from == JobStatusRequest && to == JobStatusPending:
		return true
	case from == JobStatusFailed && to == JobStatusPending:
		return true
	default:
		return false
	}
}

// MarkProcessing transitions the job to PROCESSING and stamps StartedAt.
func (j *Job) MarkProcessing() {
	now := time.Now()
	j.Status = JobStatusProcessing
	j.StartedAt = &now
	j.UpdatedAt = now
}

// MarkCompleted transitions the job to COMPLETED with a result message.
func (j *Job) MarkCompleted(resultMsg string) {
	now := time.Now()
	j.Status = JobStatusCompleted
	j.ResultMsg = resultMsg
	j.CompletedAt = &now
	j.UpdatedAt = now
}

// MarkFailed transitions the job to FAILED with an error message.
func (j *Job) MarkFailed(errorMsg string) {
	now := time.Now()
	j.Status = JobStatusFailed
	j.ErrorMsg = errorMsg
	j.CompletedAt = &now
	j.UpdatedAt = now
}

// ResetForRetry moves a FAILED job back to PENDING, clearing the previous
// run's timestamps and messages.
func (j *Job) ResetForRetry() {
	j.Status = JobStatusPending
	j.StartedAt = nil
	j.CompletedAt = nil
	j.ResultMsg = ""
	j.ErrorMsg = ""
	j.UpdatedAt = time.Now()
}

// IsTerminal reports whether the job finished its current run.
func (j *Job) IsTerminal() bool {
	return j.Status == JobStatusCompleted || j.Status == JobStatusFailed
}
