package sinks

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/parsalaw/lawfetch/internal/progress"
)

func attemptEvent(url string) progress.Event {
	return progress.Event{
		TS:       time.Now().UTC(),
		Stage:    progress.StageAttempt,
		URL:      url,
		Strategy: "DIRECT",
		Outcome:  "success",
	}
}

func TestMemorySinkRetainsRecent(t *testing.T) {
	t.Parallel()

	s := NewMemorySink(8)
	batch := []progress.Event{
		attemptEvent("https://dastour.ir/a"),
		attemptEvent("https://dastour.ir/b"),
	}
	require.NoError(t, s.Consume(context.Background(), batch))

	got := s.Recent()
	require.Len(t, got, 2)
	require.Equal(t, "https://dastour.ir/a", got[0].URL)
	require.Equal(t, "https://dastour.ir/b", got[1].URL)
}

func TestMemorySinkOverwritesOldest(t *testing.T) {
	t.Parallel()

	s := NewMemorySink(3)
	var batch []progress.Event
	for i := 0; i < 5; i++ {
		batch = append(batch, attemptEvent(fmt.Sprintf("https://qavanin.ir/law/%d", i)))
	}
	require.NoError(t, s.Consume(context.Background(), batch))

	got := s.Recent()
	require.Len(t, got, 3)
	require.Equal(t, "https://qavanin.ir/law/2", got[0].URL)
	require.Equal(t, "https://qavanin.ir/law/4", got[2].URL)
}

func TestMemorySinkEmpty(t *testing.T) {
	t.Parallel()

	s := NewMemorySink(0)
	require.Empty(t, s.Recent())
	require.NoError(t, s.Close(context.Background()))
}
