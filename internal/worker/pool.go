// Package worker runs blocking operations on their own goroutines and
// confirms each launch to the caller before returning.
package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"

	"nodefs/internal/metrics"
	"nodefs/internal/util"
)

var ErrClosed = errors.New("worker pool is closed")

// Pool launches one goroutine per task. With a positive limit, at most limit
// tasks execute at once; the rest are already launched and wait for a slot,
// so Spawn never blocks on a busy pool.
type Pool struct {
	sem      *semaphore.Weighted
	metrics  *metrics.Metrics
	mu       sync.RWMutex
	closed   bool
	wg       sync.WaitGroup
	inflight atomic.Int64
}

// New creates a pool. limit <= 0 means unbounded.
func New(limit int, m *metrics.Metrics) *Pool {
	if m == nil {
		m = metrics.New(nil)
	}
	p := &Pool{metrics: m}
	if limit > 0 {
		p.sem = semaphore.NewWeighted(int64(limit))
	}
	return p
}

// Metrics returns the collectors the pool reports to.
func (p *Pool) Metrics() *metrics.Metrics {
	return p.metrics
}

// Spawn starts fn on a new goroutine and returns once that goroutine is
// running. The error fn returns is only used for metrics.
func (p *Pool) Spawn(op string, fn func() error) error {
	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return ErrClosed
	}
	p.wg.Add(1)
	p.inflight.Add(1)
	p.mu.RUnlock()

	p.metrics.TaskStarted(op)
	started := make(chan struct{})
	go func() {
		defer p.wg.Done()
		defer p.inflight.Add(-1)
		close(started)

		if p.sem != nil {
			// background context: a launched task always runs
			_ = p.sem.Acquire(context.Background(), 1)
			defer p.sem.Release(1)
		}

		start := time.Now()
		err := fn()
		p.metrics.TaskFinished(op, start, err)
	}()
	<-started
	return nil
}

// InFlight returns the number of launched tasks that have not finished.
func (p *Pool) InFlight() int64 {
	return p.inflight.Load()
}

// Close stops accepting tasks and waits up to timeout for running ones.
func (p *Pool) Close(timeout time.Duration) error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	err := util.PollUntil(context.Background(), util.PollConfig{
		Timeout:  timeout,
		Interval: 5 * time.Millisecond,
	}, func() bool { return p.inflight.Load() == 0 })
	if err != nil {
		log.Warnf("[worker.Close] %d tasks still running after %v", p.inflight.Load(), timeout)
		return err
	}
	p.wg.Wait()
	return nil
}
