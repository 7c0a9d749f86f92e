package dispatcher

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/parsalaw/lawfetch/internal/fetch"
)

type recordingQueue struct {
	items []fetch.QueueItem
	err   error
}

func (q *recordingQueue) Enqueue(_ context.Context, item fetch.QueueItem) error {
	if q.err != nil {
		return q.err
	}
	q.items = append(q.items, item)
	return nil
}

func (q *recordingQueue) Dequeue(ctx context.Context) (fetch.QueueItem, error) {
	<-ctx.Done()
	return fetch.QueueItem{}, ctx.Err()
}

func TestEnqueueProxiesToQueue(t *testing.T) {
	t.Parallel()

	q := &recordingQueue{}
	d := New(q, nil)

	require.NoError(t, d.Enqueue(context.Background(), fetch.QueueItem{JobID: "job-1"}))
	require.Len(t, q.items, 1)
	require.Equal(t, "job-1", q.items[0].JobID)
}

func TestEnqueueWrapsQueueErrors(t *testing.T) {
	t.Parallel()

	q := &recordingQueue{err: errors.New("queue full")}
	d := New(q, nil)

	err := d.Enqueue(context.Background(), fetch.QueueItem{JobID: "job-1"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "queue enqueue")
	require.Contains(t, err.Error(), "queue full")
}

func TestRunStopsOnContextCancel(t *testing.T) {
	t.Parallel()

	d := New(&recordingQueue{}, nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		d.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("dispatcher did not stop after cancellation")
	}
}
