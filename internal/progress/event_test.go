package progress

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestEventValidate(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	jobID := UUIDToBytes(uuid.New())

	cases := []struct {
		name    string
		evt     Event
		wantErr string
	}{
		{
			name:    "missing timestamp",
			evt:     Event{Stage: StageAttempt, Strategy: "DIRECT", Outcome: "success"},
			wantErr: "timestamp is required",
		},
		{
			name:    "job stage without job id",
			evt:     Event{TS: now, Stage: StageJobStart},
			wantErr: "job events require a job id",
		},
		{
			name: "job stage with job id",
			evt:  Event{TS: now, Stage: StageJobDone, JobID: jobID},
		},
		{
			name:    "attempt without strategy",
			evt:     Event{TS: now, Stage: StageAttempt, Outcome: "blocked"},
			wantErr: "attempt requires strategy",
		},
		{
			name:    "attempt without outcome",
			evt:     Event{TS: now, Stage: StageAttempt, Strategy: "RELAY"},
			wantErr: "attempt requires outcome",
		},
		{
			name: "attempt for one-shot fetch needs no job id",
			evt:  Event{TS: now, Stage: StageAttempt, Strategy: "DIRECT", Outcome: "success"},
		},
		{
			name:    "fetch done without url",
			evt:     Event{TS: now, Stage: StageFetchDone},
			wantErr: "fetch done requires url",
		},
		{
			name:    "unknown stage",
			evt:     Event{TS: now, Stage: Stage("MYSTERY")},
			wantErr: `unknown stage "MYSTERY"`,
		},
		{
			name:    "negative duration",
			evt:     Event{TS: now, Stage: StageFetchDone, URL: "https://dastour.ir", Dur: -time.Second},
			wantErr: "duration must be >= 0",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := tc.evt.Validate()
			if tc.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			require.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestUUIDRoundTrip(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	evt := Event{JobID: UUIDToBytes(id)}
	require.Equal(t, id, evt.JobUUID())
}
