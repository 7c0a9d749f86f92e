package fetch

import (
	"context"
	"errors"
	"time"
)

// ErrJobFinished reports an attempt to move a job out of a terminal status.
// Once a job is succeeded, failed or canceled, it stays that way.
var ErrJobFinished = errors.New("job already in a terminal status")

// JobStatus represents the lifecycle state of a submitted fetch job.
type JobStatus string

// Job status values persisted in the job store.
const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusSucceeded JobStatus = "succeeded"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCanceled  JobStatus = "canceled"
)

// JobParameters captures per-job knobs requested by the client. A nil
// Policy means the service default.
type JobParameters struct {
	URLs            []string          `json:"urls"`
	Policy          *Policy           `json:"policy,omitempty"`
	HeadlessAllowed bool              `json:"headless_allowed"`
	Tags            map[string]string `json:"tags,omitempty"`
}

// Job is the metadata persisted for each submitted fetch request.
type Job struct {
	ID         string        `json:"id"`
	Status     JobStatus     `json:"status"`
	Submitted  time.Time     `json:"submitted_at"`
	Started    *time.Time    `json:"started_at,omitempty"`
	Finished   *time.Time    `json:"finished_at,omitempty"`
	ErrorText  string        `json:"error_text,omitempty"`
	Parameters JobParameters `json:"parameters"`
	Counters   JobCounters   `json:"counters"`
}

// JobCounters tracks per-job outcome stats.
type JobCounters struct {
	Succeeded  int `json:"succeeded"`
	Failed     int `json:"failed"`
	Duplicates int `json:"duplicates"`
	Attempts   int `json:"attempts"`
}

// URLResult pairs one of a job's URLs with its fetch result.
type URLResult struct {
	URL    string `json:"url"`
	Result Result `json:"result"`
}

// QueueItem wraps a job ready to run.
type QueueItem struct {
	JobID     string
	Params    JobParameters
	Submitted int64
}

// Queue provides enqueue/dequeue semantics for fetch jobs.
type Queue interface {
	Enqueue(ctx context.Context, item QueueItem) error
	Dequeue(ctx context.Context) (QueueItem, error)
}

// JobStore persists job metadata and per-URL results.
type JobStore interface {
	CreateJob(ctx context.Context, job Job) error
	UpdateJobStatus(ctx context.Context, jobID string, status JobStatus, errText string, counters JobCounters) error
	GetJob(ctx context.Context, jobID string) (Job, error)
	RecordResult(ctx context.Context, jobID string, res URLResult) error
	ListResults(ctx context.Context, jobID string) ([]URLResult, error)
}
