// Package progress defines the diagnostic events emitted around the fetch
// engine, replacing in-engine logging: the engine reports, sinks decide
// what to do with it.
package progress

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Stage denotes the milestone an Event represents.
type Stage string

// Supported progress stages.
const (
	StageJobStart  Stage = "JOB_START"
	StageJobDone   Stage = "JOB_DONE"
	StageJobError  Stage = "JOB_ERROR"
	StageAttempt   Stage = "ATTEMPT"
	StageFetchDone Stage = "FETCH_DONE"
)

// Event captures a single engine milestone. One Event is emitted per
// strategy attempt and one per finished Fetch call.
type Event struct {
	// JobID binds the event to a job run; it is zero for one-shot fetches.
	JobID [16]byte `json:"-"`
	// TS is the UTC timestamp recorded by the emitter.
	TS time.Time `json:"ts"`
	// Stage denotes which milestone occurred.
	Stage Stage `json:"stage"`
	// URL is the target page URL.
	URL string `json:"url,omitempty"`
	// Strategy names the bypass strategy for attempt events.
	Strategy string `json:"strategy,omitempty"`
	// Outcome carries the attempt or fetch outcome label.
	Outcome string `json:"outcome,omitempty"`
	// Status is the HTTP status observed, when any.
	Status int `json:"status,omitempty"`
	// Bytes is the response body size.
	Bytes int64 `json:"bytes,omitempty"`
	// Dur is the execution latency.
	Dur time.Duration `json:"dur,omitempty"`
	// Score is the legal relevance score on successful fetches.
	Score int `json:"score,omitempty"`
	// Note attaches low-volume debug context such as error text.
	Note string `json:"note,omitempty"`
}

// Validate performs coarse validation on Event payloads.
func (e Event) Validate() error {
	if e.TS.IsZero() {
		return errors.New("timestamp is required")
	}
	switch e.Stage {
	case StageJobStart, StageJobDone, StageJobError:
		if e.JobID == [16]byte{} {
			return errors.New("job events require a job id")
		}
	case StageAttempt:
		if e.Strategy == "" {
			return errors.New("attempt requires strategy")
		}
		if e.Outcome == "" {
			return errors.New("attempt requires outcome")
		}
	case StageFetchDone:
		if e.URL == "" {
			return errors.New("fetch done requires url")
		}
	default:
		return fmt.Errorf("unknown stage %q", e.Stage)
	}
	if e.Dur < 0 {
		return errors.New("duration must be >= 0")
	}
	return nil
}

// JobUUID converts the binary job ID to uuid.UUID.
func (e Event) JobUUID() uuid.UUID {
	return uuid.UUID(e.JobID)
}

// UUIDToBytes encodes a uuid.UUID into the Event form.
func UUIDToBytes(id uuid.UUID) [16]byte {
	var dest [16]byte
	copy(dest[:], id[:])
	return dest
}
