package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/parsalaw/lawfetch/internal/fetch"
)

// JobStore provides an in-memory fetch.JobStore for development/testing.
type JobStore struct {
	mu      sync.RWMutex
	jobs    map[string]fetch.Job
	results map[string][]fetch.URLResult
}

// NewJobStore constructs a JobStore.
func NewJobStore() *JobStore {
	return &JobStore{
		jobs:    make(map[string]fetch.Job),
		results: make(map[string][]fetch.URLResult),
	}
}

// CreateJob stores a new job in queued status.
func (s *JobStore) CreateJob(_ context.Context, job fetch.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[job.ID]; exists {
		return errors.New("job already exists")
	}
	s.jobs[job.ID] = job
	return nil
}

// UpdateJobStatus updates the status and counters for a job.
func (s *JobStore) UpdateJobStatus(
	_ context.Context,
	jobID string,
	status fetch.JobStatus,
	errText string,
	counters fetch.JobCounters,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return errors.New("job not found")
	}
	// Terminal statuses are sticky. Same-status writes stay legal so a
	// worker can persist final counters after an external cancel.
	if isTerminal(job.Status) && status != job.Status {
		return fmt.Errorf("job %s: %w", jobID, fetch.ErrJobFinished)
	}
	job.Status = status
	if errText != "" {
		job.ErrorText = errText
	}
	job.Counters = counters
	now := time.Now().UTC()
	if status == fetch.JobStatusRunning && job.Started == nil {
		job.Started = &now
	}
	if isTerminal(status) && job.Finished == nil {
		job.Finished = &now
	}
	s.jobs[jobID] = job
	return nil
}

// GetJob fetches a job by ID.
func (s *JobStore) GetJob(_ context.Context, jobID string) (fetch.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return fetch.Job{}, errors.New("job not found")
	}
	return job, nil
}

// RecordResult appends a per-URL result for a job.
func (s *JobStore) RecordResult(_ context.Context, jobID string, res fetch.URLResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[jobID] = append(s.results[jobID], res)
	return nil
}

// ListResults returns all recorded results for a job.
func (s *JobStore) ListResults(_ context.Context, jobID string) ([]fetch.URLResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	results := s.results[jobID]
	out := make([]fetch.URLResult, len(results))
	copy(out, results)
	return out, nil
}

func isTerminal(status fetch.JobStatus) bool {
	switch status {
	case fetch.JobStatusSucceeded, fetch.JobStatusFailed, fetch.JobStatusCanceled:
		return true
	default:
		return false
	}
}
