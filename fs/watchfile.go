// Copyright 2024 NodeFS Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package fs

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"nodefs/internal/metrics"
	"nodefs/internal/util"
)

// WatchFileOptions for StatWatchRegistry.WatchFile. A zero Interval uses
// the registry default.
type WatchFileOptions struct {
	Persistent bool
	Interval   time.Duration
}

// FileWatchEvent carries the stat before and after a detected change. A
// missing file is reported as a zeroed stat.
type FileWatchEvent struct {
	Current  *FileStat
	Previous *FileStat
}

type pollItem struct {
	path       string
	subs       []*AsyncClosure[FileWatchEvent]
	alive      bool
	persistent bool
	prev       *FileStat
	cancel     context.CancelFunc
}

// StatWatchRegistry polls stat(2) for each watched path on its own
// goroutine. Like WatchRegistry, callbacks run without the lock held.
type StatWatchRegistry struct {
	mu       sync.Mutex
	items    map[string]*pollItem
	interval time.Duration
	metrics  *metrics.Metrics
}

func NewStatWatchRegistry(interval time.Duration, m *metrics.Metrics) *StatWatchRegistry {
	if interval <= 0 {
		interval = util.DefaultPollInterval
	}
	if m == nil {
		m = metrics.New(nil)
	}
	return &StatWatchRegistry{items: make(map[string]*pollItem), interval: interval, metrics: m}
}

func statOrZero(path string) *FileStat {
	st, err := Stat(path)
	if err != nil {
		return zeroStat()
	}
	return st
}

func statChanged(a, b *FileStat) bool {
	return a.Ino != b.Ino ||
		a.Dev != b.Dev ||
		a.Size != b.Size ||
		a.Mode != b.Mode ||
		a.Nlink != b.Nlink ||
		!a.Mtime.Equal(b.Mtime) ||
		!a.Ctime.Equal(b.Ctime)
}

// WatchFile subscribes cb to stat changes of path. cb is called with
// (current, previous) once per detected change while subscribed.
func (r *StatWatchRegistry) WatchFile(path string, opts *WatchFileOptions, cb *AsyncClosure[FileWatchEvent]) {
	o := WatchFileOptions{Persistent: true}
	if opts != nil {
		o = *opts
	}
	if o.Interval <= 0 {
		o.Interval = r.interval
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if item, ok := r.items[path]; ok {
		item.addLocked(cb)
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	item := &pollItem{
		path:       path,
		subs:       []*AsyncClosure[FileWatchEvent]{cb},
		alive:      true,
		persistent: o.Persistent,
		prev:       statOrZero(path),
		cancel:     cancel,
	}
	r.items[path] = item
	r.metrics.WatchersActive.WithLabelValues("watchfile").Inc()
	log.Debugf("[fs.WatchFile] polling %s every %v", path, o.Interval)

	go func() {
		_ = util.PollEvery(ctx, util.PollConfig{Interval: o.Interval}, func() bool {
			return r.tick(item)
		})
	}()
}

func (item *pollItem) addLocked(cb *AsyncClosure[FileWatchEvent]) bool {
	for _, s := range item.subs {
		if s == cb {
			return false
		}
	}
	item.subs = append(item.subs, cb)
	return true
}

func (item *pollItem) removeLocked(cb *AsyncClosure[FileWatchEvent]) bool {
	for i, s := range item.subs {
		if s == cb {
			item.subs = append(item.subs[:i], item.subs[i+1:]...)
			return true
		}
	}
	return false
}

// tick re-stats the path and reports whether polling should continue.
func (r *StatWatchRegistry) tick(item *pollItem) bool {
	cur := statOrZero(item.path)

	r.mu.Lock()
	if !item.alive || (len(item.subs) == 0 && !item.persistent) {
		r.mu.Unlock()
		r.teardown(item)
		return false
	}
	prev := item.prev
	if !statChanged(cur, prev) {
		r.mu.Unlock()
		return true
	}
	item.prev = cur
	subs := append([]*AsyncClosure[FileWatchEvent](nil), item.subs...)
	r.mu.Unlock()

	ev := FileWatchEvent{Current: cur, Previous: prev}
	for _, cb := range subs {
		cb.Resolve(ev)
	}
	r.metrics.WatchEvents.WithLabelValues("watchfile", EventChange).Add(float64(len(subs)))
	return true
}

func (r *StatWatchRegistry) teardown(item *pollItem) {
	r.mu.Lock()
	wasAlive := item.alive
	item.alive = false
	item.subs = nil
	if r.items[item.path] == item {
		delete(r.items, item.path)
	}
	r.mu.Unlock()
	item.cancel()
	if wasAlive {
		r.metrics.WatchersActive.WithLabelValues("watchfile").Dec()
		log.Debugf("[fs.WatchFile] stopped polling %s", item.path)
	}
}

// UnwatchFile removes cb from path. With a nil cb every subscriber is
// removed; a non-persistent entry is also marked dead. Empty
// non-persistent entries stop polling immediately.
func (r *StatWatchRegistry) UnwatchFile(path string, cb *AsyncClosure[FileWatchEvent]) {
	r.mu.Lock()
	item, ok := r.items[path]
	if !ok {
		r.mu.Unlock()
		return
	}
	if cb == nil {
		item.subs = nil
		if !item.persistent {
			item.alive = false
		}
	} else {
		item.removeLocked(cb)
	}
	done := !item.alive || (len(item.subs) == 0 && !item.persistent)
	r.mu.Unlock()
	if done {
		r.teardown(item)
	}
}

// Ref re-adds cb to a polled path.
func (r *StatWatchRegistry) Ref(path string, cb *AsyncClosure[FileWatchEvent]) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[path]
	if !ok {
		return false
	}
	return item.addLocked(cb)
}

// Unref stops notifying cb; polling continues until the next tick finds a
// non-persistent entry empty.
func (r *StatWatchRegistry) Unref(path string, cb *AsyncClosure[FileWatchEvent]) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[path]
	if !ok {
		return false
	}
	return item.removeLocked(cb)
}

// Stop ends polling on path regardless of its subscribers.
func (r *StatWatchRegistry) Stop(path string) {
	r.mu.Lock()
	item, ok := r.items[path]
	r.mu.Unlock()
	if ok {
		r.teardown(item)
	}
}

func (r *StatWatchRegistry) CloseAll() {
	r.mu.Lock()
	items := make([]*pollItem, 0, len(r.items))
	for _, item := range r.items {
		items = append(items, item)
	}
	r.mu.Unlock()
	for _, item := range items {
		r.teardown(item)
	}
}

func (r *StatWatchRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}

func (r *StatWatchRegistry) Subscribers(path string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if item, ok := r.items[path]; ok {
		return len(item.subs)
	}
	return 0
}
