package util

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPollEveryStopsWhenTickReturnsFalse(t *testing.T) {
	t.Parallel()

	var n atomic.Int32
	err := PollEvery(context.Background(), PollConfig{Interval: time.Millisecond}, func() bool {
		return n.Add(1) < 3
	})
	require.NoError(t, err)
	assert.Equal(t, int32(3), n.Load())
}

func TestPollEveryHonoursContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := PollEvery(ctx, PollConfig{Interval: time.Hour}, func() bool { return true })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPollUntil(t *testing.T) {
	t.Parallel()

	var n atomic.Int32
	err := PollUntil(context.Background(), PollConfig{Interval: time.Millisecond}, func() bool {
		return n.Add(1) >= 5
	})
	require.NoError(t, err)

	err = PollUntil(context.Background(), PollConfig{Timeout: 20 * time.Millisecond, Interval: time.Millisecond}, func() bool {
		return false
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
