package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/parsalaw/lawfetch/internal/fetch"
)

func TestQueueEnqueueDequeueOrder(t *testing.T) {
	t.Parallel()

	q := NewQueue(4)
	ctx := context.Background()

	for _, id := range []string{"job-1", "job-2", "job-3"} {
		require.NoError(t, q.Enqueue(ctx, fetch.QueueItem{JobID: id}))
	}

	for _, want := range []string{"job-1", "job-2", "job-3"} {
		item, err := q.Dequeue(ctx)
		require.NoError(t, err)
		require.Equal(t, want, item.JobID)
	}
}

func TestQueueEnqueueBlocksWhenFull(t *testing.T) {
	t.Parallel()

	q := NewQueue(1)
	ctx := context.Background()
	require.NoError(t, q.Enqueue(ctx, fetch.QueueItem{JobID: "job-1"}))

	blocked, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()

	err := q.Enqueue(blocked, fetch.QueueItem{JobID: "job-2"})
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Contains(t, err.Error(), "enqueue canceled")
}

func TestQueueDequeueRespectsCancellation(t *testing.T) {
	t.Parallel()

	q := NewQueue(1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := q.Dequeue(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.Contains(t, err.Error(), "dequeue canceled")
}

func TestQueueCloseDrainsThenErrors(t *testing.T) {
	t.Parallel()

	q := NewQueue(2)
	ctx := context.Background()
	require.NoError(t, q.Enqueue(ctx, fetch.QueueItem{JobID: "job-1"}))

	q.Close()
	q.Close() // idempotent

	item, err := q.Dequeue(ctx)
	require.NoError(t, err)
	require.Equal(t, "job-1", item.JobID)

	_, err = q.Dequeue(ctx)
	require.Error(t, err)
	require.Contains(t, err.Error(), "queue closed")
}
