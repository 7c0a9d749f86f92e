// Package worker implements the fetch pipeline execution loop.
package worker

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/parsalaw/lawfetch/internal/archive"
	"github.com/parsalaw/lawfetch/internal/fetch"
	"github.com/parsalaw/lawfetch/internal/metrics"
	"github.com/parsalaw/lawfetch/internal/progress"
	"github.com/parsalaw/lawfetch/internal/publisher"
)

// Renderer produces a fully rendered DOM for pages that defeat plain HTTP
// strategies.
type Renderer interface {
	Render(ctx context.Context, url string) ([]byte, error)
}

// Config controls Worker behavior.
type Config struct {
	Topic         string
	ContentType   string
	DefaultPolicy fetch.Policy
}

// Worker consumes queue items and runs each URL through the orchestrator.
type Worker struct {
	queue     fetch.Queue
	jobs      fetch.JobStore
	orch      *fetch.Orchestrator
	renderer  Renderer
	snapshots archive.Writer
	pub       publisher.Publisher
	emitter   progress.Emitter
	cfg       Config
	logger    *zap.Logger
}

// New constructs a Worker. Renderer, snapshot writer, publisher and emitter
// are optional.
func New(
	queue fetch.Queue,
	jobs fetch.JobStore,
	orch *fetch.Orchestrator,
	renderer Renderer,
	snapshots archive.Writer,
	pub publisher.Publisher,
	emitter progress.Emitter,
	cfg Config,
	logger *zap.Logger,
) *Worker {
	if cfg.ContentType == "" {
		cfg.ContentType = "text/html; charset=utf-8"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{
		queue:     queue,
		jobs:      jobs,
		orch:      orch,
		renderer:  renderer,
		snapshots: snapshots,
		pub:       pub,
		emitter:   emitter,
		cfg:       cfg,
		logger:    logger,
	}
}

// Run blocks, consuming queue items until the context finishes.
func (w *Worker) Run(ctx context.Context) {
	for {
		item, err := w.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			w.logger.Error("queue dequeue failed", zap.Error(err))
			continue
		}
		w.logger.Debug("dequeued job", zap.String("job_id", item.JobID))
		w.processJob(ctx, item)
	}
}

func (w *Worker) processJob(ctx context.Context, item fetch.QueueItem) {
	metrics.IncActiveWorkers()
	defer metrics.DecActiveWorkers()

	counters := fetch.JobCounters{}
	if err := w.jobs.UpdateJobStatus(ctx, item.JobID, fetch.JobStatusRunning, "", counters); err != nil {
		if errors.Is(err, fetch.ErrJobFinished) {
			// Canceled while still queued; nothing to run.
			w.logger.Debug("skipping finished job", zap.String("job_id", item.JobID))
		} else {
			w.logger.Error("update job status failed", zap.String("job_id", item.JobID), zap.Error(err))
		}
		return
	}
	w.emitJobEvent(item.JobID, progress.StageJobStart, "")

	errText := ""
	aborted := false
	for _, url := range item.Params.URLs {
		if w.jobCanceled(ctx, item.JobID) {
			aborted = true
			break
		}
		if err := w.handleURL(ctx, item, url, &counters); err != nil {
			errText = err.Error()
		}
	}

	status, errText := w.deriveFinalStatus(ctx, counters, errText, aborted)
	if err := w.jobs.UpdateJobStatus(ctx, item.JobID, status, errText, counters); err != nil {
		if errors.Is(err, fetch.ErrJobFinished) {
			// Lost the race against an external cancel; the store kept the
			// terminal status, only the counters from this run are dropped.
			w.logger.Debug("job finished externally", zap.String("job_id", item.JobID))
			status = fetch.JobStatusCanceled
			errText = ""
		} else {
			w.logger.Error("final job status update failed", zap.String("job_id", item.JobID), zap.Error(err))
		}
	}
	metrics.ObserveJob(string(status))
	if status == fetch.JobStatusSucceeded {
		w.emitJobEvent(item.JobID, progress.StageJobDone, "")
	} else {
		w.emitJobEvent(item.JobID, progress.StageJobError, errText)
	}
}

func (w *Worker) emitJobEvent(jobID string, stage progress.Stage, note string) {
	if w.emitter == nil {
		return
	}
	id, err := uuid.Parse(jobID)
	if err != nil {
		return
	}
	w.emitter.Emit(progress.Event{
		JobID: progress.UUIDToBytes(id),
		TS:    time.Now().UTC(),
		Stage: stage,
		Note:  note,
	})
}

func (w *Worker) handleURL(ctx context.Context, item fetch.QueueItem, url string, counters *fetch.JobCounters) error {
	pol := w.cfg.DefaultPolicy
	if item.Params.Policy != nil {
		pol = *item.Params.Policy
	}

	res, err := w.orch.Fetch(ctx, url, pol)
	counters.Attempts += len(res.Attempts)
	if err != nil {
		counters.Failed++
		w.logger.Error("fetch failed", zap.String("job_id", item.JobID), zap.String("url", url), zap.Error(err))
		w.recordResult(ctx, item.JobID, url, res)
		return err
	}

	if res.Exhausted && item.Params.HeadlessAllowed && w.renderer != nil {
		res = w.escalate(ctx, item, url, pol, res)
	}

	w.recordResult(ctx, item.JobID, url, res)

	if !res.Success {
		counters.Failed++
		w.logger.Warn("all strategies exhausted",
			zap.String("job_id", item.JobID),
			zap.String("url", url),
			zap.Int("attempts", len(res.Attempts)))
		return nil
	}

	counters.Succeeded++
	if res.ExistingID != "" {
		counters.Duplicates++
		w.logger.Debug("duplicate content",
			zap.String("job_id", item.JobID),
			zap.String("url", url),
			zap.String("existing_id", res.ExistingID))
		return nil
	}

	if err := w.archiveAndPublish(ctx, item.JobID, url, res); err != nil {
		w.logger.Error("post-store pipeline failed",
			zap.String("job_id", item.JobID), zap.String("url", url), zap.Error(err))
		return err
	}
	return nil
}

// escalate renders the page in a headless browser and runs the DOM through
// the normal detection and persistence path.
func (w *Worker) escalate(ctx context.Context, item fetch.QueueItem, url string, pol fetch.Policy, prior fetch.Result) fetch.Result {
	body, err := w.renderer.Render(ctx, url)
	if err != nil {
		w.logger.Warn("headless escalation failed",
			zap.String("job_id", item.JobID), zap.String("url", url), zap.Error(err))
		return prior
	}
	res, err := w.orch.IngestRendered(ctx, url, body, pol)
	if err != nil {
		w.logger.Warn("rendered ingest failed",
			zap.String("job_id", item.JobID), zap.String("url", url), zap.Error(err))
		return prior
	}
	res.Attempts = append(prior.Attempts, res.Attempts...)
	return res
}

func (w *Worker) recordResult(ctx context.Context, jobID, url string, res fetch.Result) {
	if err := w.jobs.RecordResult(ctx, jobID, fetch.URLResult{URL: url, Result: res}); err != nil {
		w.logger.Error("record result failed", zap.String("job_id", jobID), zap.String("url", url), zap.Error(err))
	}
}

func (w *Worker) archiveAndPublish(ctx context.Context, jobID, url string, res fetch.Result) error {
	rec := res.Record
	snapshotURI := ""
	if w.snapshots != nil {
		key := archive.SnapshotKey(rec.ContentHash, rec.FetchedAt)
		uri, err := w.snapshots.Put(ctx, key, w.cfg.ContentType, strings.NewReader(rec.RawText))
		if err != nil {
			return err
		}
		snapshotURI = uri
	}
	if w.pub == nil || w.cfg.Topic == "" {
		return nil
	}
	note := publisher.Notification{
		DocumentID:   rec.ID,
		JobID:        jobID,
		URL:          url,
		ContentHash:  rec.ContentHash,
		StrategyUsed: rec.StrategyUsed,
		LegalScore:   rec.LegalScore,
		Categories:   rec.CategoryScores,
		SnapshotURI:  snapshotURI,
		FetchedAt:    rec.FetchedAt,
	}
	if _, err := w.pub.Publish(ctx, w.cfg.Topic, note); err != nil {
		return err
	}
	w.logger.Info("document published",
		zap.String("job_id", jobID),
		zap.String("url", url),
		zap.String("document_id", rec.ID),
		zap.String("strategy", rec.StrategyUsed),
		zap.Int("legal_score", rec.LegalScore),
	)
	return nil
}

// jobCanceled reports whether the job was canceled out from under the
// worker, e.g. via the API.
func (w *Worker) jobCanceled(ctx context.Context, jobID string) bool {
	job, err := w.jobs.GetJob(ctx, jobID)
	if err != nil {
		return false
	}
	return job.Status == fetch.JobStatusCanceled
}

func (w *Worker) deriveFinalStatus(ctx context.Context, counters fetch.JobCounters, errText string, aborted bool) (fetch.JobStatus, string) {
	if aborted || ctx.Err() != nil {
		// Keep the cancel reason already recorded in the store.
		return fetch.JobStatusCanceled, errText
	}
	if counters.Succeeded == 0 && errText == "" {
		errText = "no content was fetched"
	}
	if counters.Succeeded == 0 {
		return fetch.JobStatusFailed, errText
	}
	return fetch.JobStatusSucceeded, errText
}
