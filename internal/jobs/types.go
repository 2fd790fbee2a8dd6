package jobs

import (
	"context"
	"time"
)

// JobType represents the type of job to be executed.
type JobType string

const (
	// JobTypeSyncTransactions represents a transaction sync from the
	// connected accounting provider.
	JobTypeSyncTransactions JobType = "sync_transactions"
)

// JobStatus represents the current status of a job.
type JobStatus string

const (
	// JobStatusPending indicates the job is waiting to be processed.
	JobStatusPending JobStatus = "pending"
	// JobStatusRunning indicates the job is currently being processed.
	JobStatusRunning JobStatus = "running"
	// JobStatusCompleted indicates the job completed successfully.
	JobStatusCompleted JobStatus = "completed"
	// JobStatusFailed indicates the job failed.
	JobStatusFailed JobStatus = "failed"
	// JobStatusRetrying indicates the job failed and is being retried.
	JobStatusRetrying JobStatus = "retrying"
)

// Trigger values recorded on sync jobs.
const (
	TriggerManual    = "manual"
	TriggerScheduled = "scheduled"
)

// SyncTransactionsJob represents a job to pull bank transactions from the
// connected Xero organisation into the local store.
type SyncTransactionsJob struct {
	// JobID is the unique identifier for this job.
	JobID string `json:"job_id"`

	// TenantID is the Xero organisation the sync targets. Empty when the
	// sync runs against demo data.
	TenantID string `json:"tenant_id,omitempty"`

	// TriggeredBy records how the sync was started: manual or scheduled.
	TriggeredBy string `json:"triggered_by"`

	// Status is the current status of the job.
	Status JobStatus `json:"status"`

	// Imported is the number of new transactions stored by the sync.
	Imported int `json:"imported"`

	// Skipped is the number of provider transactions already present.
	Skipped int `json:"skipped"`

	// CreatedAt is when the job was created.
	CreatedAt time.Time `json:"created_at"`

	// StartedAt is when the job started processing.
	StartedAt *time.Time `json:"started_at,omitempty"`

	// CompletedAt is when the job completed (success or failure).
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Error contains error details if the job failed.
	Error string `json:"error,omitempty"`

	// RetryCount is the number of times this job has been retried.
	RetryCount int `json:"retry_count"`

	// MaxRetries is the maximum number of retries allowed.
	MaxRetries int `json:"max_retries"`
}

// Job is a generic interface for all job types.
type Job interface {
	// GetID returns the unique job identifier.
	GetID() string

	// GetType returns the job type.
	GetType() JobType

	// GetStatus returns the current job status.
	GetStatus() JobStatus
}

// GetID implements the Job interface.
func (j *SyncTransactionsJob) GetID() string {
	return j.JobID
}

// GetType implements the Job interface.
func (j *SyncTransactionsJob) GetType() JobType {
	return JobTypeSyncTransactions
}

// GetStatus implements the Job interface.
func (j *SyncTransactionsJob) GetStatus() JobStatus {
	return j.Status
}

// Publisher defines the interface for publishing jobs to a queue.
// The abstraction allows swapping the in-memory queue for a broker later.
type Publisher interface {
	// PublishSyncTransactions publishes a transaction sync job.
	PublishSyncTransactions(ctx context.Context, job *SyncTransactionsJob) error

	// Close closes the publisher and releases resources.
	Close() error
}

// Consumer defines the interface for consuming jobs from a queue.
type Consumer interface {
	// Start begins consuming jobs from the queue.
	// The handler function is called for each job received.
	Start(ctx context.Context, handler JobHandler) error

	// Stop stops consuming jobs and waits for in-flight jobs to complete.
	Stop(ctx context.Context) error
}

// JobHandler is a function that processes a job.
// It should return an error if the job failed and should be retried.
type JobHandler func(ctx context.Context, job Job) error

// JobStore defines the interface for storing and retrieving job status.
type JobStore interface {
	// SaveJob saves or updates a job's state.
	SaveJob(ctx context.Context, job *SyncTransactionsJob) error

	// GetJob retrieves a job by ID.
	GetJob(ctx context.Context, jobID string) (*SyncTransactionsJob, error)

	// ListJobs retrieves jobs with optional filtering, newest first.
	ListJobs(ctx context.Context, filter JobFilter) ([]*SyncTransactionsJob, error)
}

// JobFilter defines filtering criteria for listing jobs.
type JobFilter struct {
	// Status filters jobs by status.
	Status JobStatus

	// TriggeredBy filters jobs by trigger source.
	TriggeredBy string

	// Limit limits the number of results.
	Limit int

	// Offset for pagination.
	Offset int
}
