package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/parsalaw/lawfetch/internal/fetch"
)

func TestJobStoreLifecycle(t *testing.T) {
	t.Parallel()

	s := NewJobStore()
	ctx := context.Background()
	job := fetch.Job{ID: "job-1", Status: fetch.JobStatusQueued}

	if err := s.CreateJob(ctx, job); err != nil {
		t.Fatalf("CreateJob() error = %v", err)
	}
	if err := s.CreateJob(ctx, job); err == nil {
		t.Fatal("expected duplicate job error")
	}
	if err := s.UpdateJobStatus(ctx, job.ID, fetch.JobStatusRunning, "", fetch.JobCounters{}); err != nil {
		t.Fatalf("UpdateJobStatus running error = %v", err)
	}

	res := fetch.URLResult{URL: "https://rc.majlis.ir/fa/law", Result: fetch.Result{Success: true}}
	if err := s.RecordResult(ctx, job.ID, res); err != nil {
		t.Fatalf("RecordResult() error = %v", err)
	}
	results, err := s.ListResults(ctx, job.ID)
	if err != nil || len(results) != 1 {
		t.Fatalf("ListResults() unexpected result: results=%v err=%v", results, err)
	}
	results[0].URL = "modified"
	if s.results[job.ID][0].URL != "https://rc.majlis.ir/fa/law" {
		t.Fatal("expected ListResults to return a copy")
	}

	counters := fetch.JobCounters{Succeeded: 1, Attempts: 2}
	if err := s.UpdateJobStatus(ctx, job.ID, fetch.JobStatusSucceeded, "done", counters); err != nil {
		t.Fatalf("UpdateJobStatus succeeded error = %v", err)
	}
	final, err := s.GetJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetJob() error = %v", err)
	}
	if final.Status != fetch.JobStatusSucceeded || final.Started == nil || final.Finished == nil {
		t.Fatalf("expected timestamps set, got %+v", final)
	}
	if final.ErrorText != "done" || final.Counters.Succeeded != 1 {
		t.Fatalf("expected counters/error text to persist, got %+v", final)
	}
}

func TestJobStoreTerminalStatusIsSticky(t *testing.T) {
	t.Parallel()

	s := NewJobStore()
	ctx := context.Background()
	if err := s.CreateJob(ctx, fetch.Job{ID: "job-1", Status: fetch.JobStatusQueued}); err != nil {
		t.Fatalf("CreateJob() error = %v", err)
	}
	if err := s.UpdateJobStatus(ctx, "job-1", fetch.JobStatusCanceled, "canceled via API", fetch.JobCounters{}); err != nil {
		t.Fatalf("UpdateJobStatus canceled error = %v", err)
	}

	err := s.UpdateJobStatus(ctx, "job-1", fetch.JobStatusSucceeded, "", fetch.JobCounters{Succeeded: 1})
	if !errors.Is(err, fetch.ErrJobFinished) {
		t.Fatalf("expected ErrJobFinished, got %v", err)
	}

	// Same-status writes update counters without erasing the cancel reason.
	counters := fetch.JobCounters{Succeeded: 1, Attempts: 3}
	if err := s.UpdateJobStatus(ctx, "job-1", fetch.JobStatusCanceled, "", counters); err != nil {
		t.Fatalf("UpdateJobStatus same-status error = %v", err)
	}
	job, err := s.GetJob(ctx, "job-1")
	if err != nil {
		t.Fatalf("GetJob() error = %v", err)
	}
	if job.Status != fetch.JobStatusCanceled || job.ErrorText != "canceled via API" {
		t.Fatalf("expected canceled status and reason to survive, got %+v", job)
	}
	if job.Counters.Attempts != 3 {
		t.Fatalf("expected counters to update, got %+v", job.Counters)
	}
}

func TestJobStoreUnknownJob(t *testing.T) {
	t.Parallel()

	s := NewJobStore()
	ctx := context.Background()
	if _, err := s.GetJob(ctx, "nope"); err == nil {
		t.Fatal("expected error for unknown job")
	}
	if err := s.UpdateJobStatus(ctx, "nope", fetch.JobStatusRunning, "", fetch.JobCounters{}); err == nil {
		t.Fatal("expected error for unknown job")
	}
}
