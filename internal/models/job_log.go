package models

import "time"

// JobLogEntry is one append-only log line attached to a job. Entries are
// never updated; deletion happens only via cascade when the job is deleted.
type JobLogEntry struct {
	JobID     string    `json:"job_id"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}
