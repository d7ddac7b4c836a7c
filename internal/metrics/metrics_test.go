package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskCounters(t *testing.T) {
	t.Parallel()

	m := New(nil)
	m.TaskStarted("stat")
	m.TaskStarted("stat")
	assert.Equal(t, 2.0, testutil.ToFloat64(m.TasksInFlight))

	m.TaskFinished("stat", time.Now(), nil)
	m.TaskFinished("stat", time.Now(), errors.New("boom"))

	assert.Equal(t, 0.0, testutil.ToFloat64(m.TasksInFlight))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.TasksStarted.WithLabelValues("stat")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TasksFinished.WithLabelValues("stat", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TasksFinished.WithLabelValues("stat", "error")))
}

func TestSeparateRegistries(t *testing.T) {
	t.Parallel()

	a := New(nil)
	b := New(nil)
	a.WatchersActive.WithLabelValues("fsnotify").Inc()

	assert.Equal(t, 1.0, testutil.ToFloat64(a.WatchersActive.WithLabelValues("fsnotify")))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.WatchersActive.WithLabelValues("fsnotify")))

	n, err := testutil.GatherAndCount(a.Registry, "nodefs_watchers_active")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
