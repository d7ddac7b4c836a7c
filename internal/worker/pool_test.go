package worker

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpawnConfirmsLaunchBeforeCompletion(t *testing.T) {
	t.Parallel()

	p := New(0, nil)
	release := make(chan struct{})
	done := make(chan struct{})

	require.NoError(t, p.Spawn("block", func() error {
		<-release
		close(done)
		return nil
	}))

	// Spawn returned while the task is still blocked.
	assert.Equal(t, int64(1), p.InFlight())
	close(release)
	<-done
	require.NoError(t, p.Close(time.Second))
	assert.Equal(t, int64(0), p.InFlight())
}

func TestBoundedPoolLimitsConcurrency(t *testing.T) {
	t.Parallel()

	p := New(2, nil)
	var running, peak atomic.Int32
	var wg sync.WaitGroup

	for range 10 {
		wg.Add(1)
		require.NoError(t, p.Spawn("work", func() error {
			defer wg.Done()
			n := running.Add(1)
			for {
				old := peak.Load()
				if n <= old || peak.CompareAndSwap(old, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			running.Add(-1)
			return nil
		}))
	}
	wg.Wait()

	assert.LessOrEqual(t, peak.Load(), int32(2))
	require.NoError(t, p.Close(time.Second))
	assert.Equal(t, 10.0, testutil.ToFloat64(p.Metrics().TasksFinished.WithLabelValues("work", "ok")))
}

func TestSpawnAfterClose(t *testing.T) {
	t.Parallel()

	p := New(0, nil)
	require.NoError(t, p.Close(time.Second))
	assert.ErrorIs(t, p.Spawn("late", func() error { return nil }), ErrClosed)
}

func TestCloseTimesOut(t *testing.T) {
	t.Parallel()

	p := New(0, nil)
	release := make(chan struct{})
	require.NoError(t, p.Spawn("stuck", func() error {
		<-release
		return nil
	}))

	assert.Error(t, p.Close(20*time.Millisecond))
	close(release)
}
