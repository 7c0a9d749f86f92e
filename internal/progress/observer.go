package progress

import (
	"time"

	"github.com/google/uuid"

	"github.com/parsalaw/lawfetch/internal/fetch"
)

// FetchObserver adapts the engine's Observer callbacks onto the Hub. One
// observer is created per job (or per one-shot fetch with a zero job ID).
type FetchObserver struct {
	emitter Emitter
	jobID   [16]byte
}

// NewFetchObserver binds an emitter to a job run.
func NewFetchObserver(emitter Emitter, jobID uuid.UUID) *FetchObserver {
	return &FetchObserver{emitter: emitter, jobID: UUIDToBytes(jobID)}
}

// OnAttempt emits one event per strategy attempt.
func (o *FetchObserver) OnAttempt(url string, a fetch.Attempt) {
	ts := a.EndedAt
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	o.emitter.Emit(Event{
		JobID:    o.jobID,
		TS:       ts,
		Stage:    StageAttempt,
		URL:      url,
		Strategy: string(a.Strategy),
		Outcome:  string(a.Outcome),
		Status:   a.HTTPStatus,
		Bytes:    int64(a.ByteLength),
		Dur:      a.EndedAt.Sub(a.StartedAt),
		Note:     a.ErrorDetail,
	})
}

// OnResult emits a terminal event per Fetch call.
func (o *FetchObserver) OnResult(url string, r fetch.Result) {
	evt := Event{
		JobID:   o.jobID,
		TS:      time.Now().UTC(),
		Stage:   StageFetchDone,
		URL:     url,
		Outcome: "exhausted",
	}
	if r.Success {
		evt.Outcome = "success"
		evt.Strategy = r.StrategyUsed()
		if r.Record != nil {
			evt.Score = r.Record.LegalScore
			evt.Bytes = int64(len(r.Record.RawText))
		}
		if !r.Stored && r.ExistingID != "" {
			evt.Note = "duplicate of " + r.ExistingID
		}
	}
	o.emitter.Emit(evt)
}
