// Package jobs defines the queue abstractions the worker uses to
// schedule pipeline runs.
package jobs

import (
	"context"
	"time"

	"github.com/jpurrutia/customer-analytics/internal/domain"
)

// JobStatus is the lifecycle state of a queued job.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusRetrying  JobStatus = "retrying"
)

// RunJob is a request to execute one pipeline run.
type RunJob struct {
	// JobID is the unique identifier for this job.
	JobID string `json:"job_id"`

	// Mode selects the pipeline run mode.
	Mode domain.RunMode `json:"mode"`

	// RunID is the pipeline run this job produced, set once the run
	// has started.
	RunID string `json:"run_id,omitempty"`

	Status JobStatus `json:"status"`

	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Error contains failure details for the last attempt.
	Error string `json:"error,omitempty"`

	RetryCount int `json:"retry_count"`
	MaxRetries int `json:"max_retries"`
}

// Publisher enqueues run jobs. Implementations may be in-memory or a
// hosted queue.
type Publisher interface {
	PublishRun(ctx context.Context, job *RunJob) error
	Close() error
}

// Consumer drains the queue and hands each job to a handler.
type Consumer interface {
	Start(ctx context.Context, handler Handler) error
	// Stop stops consuming and waits for in-flight jobs to finish.
	Stop(ctx context.Context) error
}

// Handler processes one job; a returned error triggers a retry until
// MaxRetries is exhausted.
type Handler func(ctx context.Context, job *RunJob) error

// Store tracks job state across attempts.
type Store interface {
	SaveJob(ctx context.Context, job *RunJob) error
	GetJob(ctx context.Context, jobID string) (*RunJob, error)
	ListJobs(ctx context.Context, filter Filter) ([]*RunJob, error)
}

// Filter selects jobs when listing.
type Filter struct {
	Mode   domain.RunMode
	Status JobStatus
	Limit  int
}
