package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWaitUnlimitedByDefault(t *testing.T) {
	t.Parallel()

	l := New(Config{})
	ctx := context.Background()

	start := time.Now()
	for range 20 {
		require.NoError(t, l.Wait(ctx, "https://dastour.ir/laws"))
	}
	require.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestWaitEnforcesPerHostRate(t *testing.T) {
	t.Parallel()

	l := New(Config{DefaultRPS: 20, DefaultBurst: 1})
	ctx := context.Background()

	start := time.Now()
	for range 3 {
		require.NoError(t, l.Wait(ctx, "https://rc.majlis.ir/fa/law"))
	}
	// Burst of one means the second and third calls each wait ~50ms.
	require.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)
}

func TestWaitHostOverride(t *testing.T) {
	t.Parallel()

	l := New(Config{
		DefaultRPS:   1000,
		DefaultBurst: 1,
		HostRPS:      map[string]float64{"relay.example.com": 10},
	})
	ctx := context.Background()

	// The override host pays the slower bucket while others stay fast.
	start := time.Now()
	require.NoError(t, l.Wait(ctx, "https://relay.example.com/fetch?u=x"))
	require.NoError(t, l.Wait(ctx, "https://relay.example.com/fetch?u=y"))
	require.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)

	start = time.Now()
	for range 5 {
		require.NoError(t, l.Wait(ctx, "https://dotic.ir/portal"))
	}
	require.Less(t, time.Since(start), 50*time.Millisecond)
}

func TestWaitHonorsContextCancellation(t *testing.T) {
	t.Parallel()

	l := New(Config{DefaultRPS: 0.1, DefaultBurst: 1})
	ctx := context.Background()
	require.NoError(t, l.Wait(ctx, "https://qavanin.ir/"))

	short, cancel := context.WithTimeout(ctx, 30*time.Millisecond)
	defer cancel()
	err := l.Wait(short, "https://qavanin.ir/")
	require.Error(t, err)
	require.Contains(t, err.Error(), "rate limit wait")
}

func TestObserveReportsDelays(t *testing.T) {
	t.Parallel()

	l := New(Config{DefaultRPS: 20, DefaultBurst: 1})
	var gotHost string
	var gotWait time.Duration
	l.Observe = func(host string, waited time.Duration) {
		gotHost = host
		gotWait = waited
	}

	ctx := context.Background()
	require.NoError(t, l.Wait(ctx, "https://shenasname.ir/laws"))
	require.NoError(t, l.Wait(ctx, "https://shenasname.ir/laws"))

	require.Equal(t, "shenasname.ir", gotHost)
	require.Greater(t, gotWait, time.Millisecond)
}
