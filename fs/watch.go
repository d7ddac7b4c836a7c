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
	"os"
	"path/filepath"
	"sync"

	"github.com/charlievieth/fastwalk"
	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"

	"nodefs/fserr"
	"nodefs/internal/metrics"
)

// Watch event types.
const (
	EventRename = "rename"
	EventChange = "change"
)

// WatchOptions for WatchRegistry.Watch.
type WatchOptions struct {
	Persistent bool
	Recursive  bool
	Encoding   *FsEncodingType // nil means utf8
}

// DefaultWatchOptions keeps the watcher alive with no subscribers and
// reports utf8 names.
func DefaultWatchOptions() WatchOptions {
	return WatchOptions{Persistent: true, Encoding: Ptr(EncodingUtf8)}
}

// WatchEvent is delivered once per classified backend event. Filename is
// relative to the watched path.
type WatchEvent struct {
	EventType string
	Filename  FsEncoding
}

type watcherItem struct {
	path       string
	backend    *fsnotify.Watcher
	subs       []*AsyncClosure[WatchEvent]
	alive      bool
	persistent bool
	recursive  bool
	encoding   FsEncodingType
	done       chan struct{}
	stopOnce   sync.Once
}

// WatchRegistry multiplexes subscribers onto one fsnotify watcher per
// path. Callbacks run without the registry lock held, so they may call
// back into the registry.
type WatchRegistry struct {
	mu      sync.Mutex
	items   map[string]*watcherItem
	metrics *metrics.Metrics
}

func NewWatchRegistry(m *metrics.Metrics) *WatchRegistry {
	if m == nil {
		m = metrics.New(nil)
	}
	return &WatchRegistry{items: make(map[string]*watcherItem), metrics: m}
}

// Watch subscribes cb to changes under path. The first subscription
// creates the backend; later ones join it, and a closure that is already
// subscribed is not added twice. Setup failures go to cb's error arm.
// cb is called once per event for as long as it stays subscribed.
func (r *WatchRegistry) Watch(path string, opts *WatchOptions, cb *AsyncClosure[WatchEvent]) {
	o := DefaultWatchOptions()
	if opts != nil {
		o = *opts
	}

	r.mu.Lock()
	if item, ok := r.items[path]; ok {
		item.addLocked(cb)
		r.mu.Unlock()
		return
	}
	r.mu.Unlock()

	item, err := r.start(path, o)
	if err != nil {
		cb.Reject(err)
		return
	}

	r.mu.Lock()
	if existing, ok := r.items[path]; ok {
		// lost a race with another first subscriber
		existing.addLocked(cb)
		r.mu.Unlock()
		item.stop()
		return
	}
	item.addLocked(cb)
	r.items[path] = item
	r.mu.Unlock()

	r.metrics.WatchersActive.WithLabelValues("watch").Inc()
	log.Debugf("[fs.Watch] watching %s (recursive=%v)", path, o.Recursive)
	go r.run(item)
}

func (r *WatchRegistry) start(path string, o WatchOptions) (*watcherItem, error) {
	st, err := Stat(path)
	if err != nil {
		return nil, fserr.FromOS(err, "watch", path)
	}
	backend, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fserr.FromOS(err, "watch", path)
	}
	item := &watcherItem{
		path:       path,
		backend:    backend,
		alive:      true,
		persistent: o.Persistent,
		recursive:  o.Recursive && st.IsDirectory(),
		encoding:   valueOr(o.Encoding, EncodingUtf8),
		done:       make(chan struct{}),
	}
	if err := backend.Add(path); err != nil {
		backend.Close()
		return nil, fserr.FromOS(err, "watch", path)
	}
	if item.recursive {
		item.addTree(path)
	}
	return item, nil
}

func (item *watcherItem) addLocked(cb *AsyncClosure[WatchEvent]) bool {
	for _, s := range item.subs {
		if s == cb {
			return false
		}
	}
	item.subs = append(item.subs, cb)
	return true
}

func (item *watcherItem) removeLocked(cb *AsyncClosure[WatchEvent]) bool {
	for i, s := range item.subs {
		if s == cb {
			item.subs = append(item.subs[:i], item.subs[i+1:]...)
			return true
		}
	}
	return false
}

// addTree watches every directory below root. Failures are logged; the
// rest of the tree is still watched.
func (item *watcherItem) addTree(root string) {
	var mu sync.Mutex
	var dirs []string
	conf := fastwalk.Config{Follow: false}
	err := fastwalk.Walk(&conf, root, func(p string, d os.DirEntry, err error) error {
		if err != nil || !d.IsDir() || p == root {
			return nil
		}
		mu.Lock()
		dirs = append(dirs, p)
		mu.Unlock()
		return nil
	})
	if err != nil {
		log.Warnf("[fs.Watch] walking %s: %v", root, err)
	}
	for _, dir := range dirs {
		if err := item.backend.Add(dir); err != nil {
			log.Warnf("[fs.Watch] adding %s: %v", dir, err)
		}
	}
}

func (item *watcherItem) stop() {
	item.stopOnce.Do(func() {
		close(item.done)
		if err := item.backend.Close(); err != nil {
			log.Debugf("[fs.Watch] closing backend for %s: %v", item.path, err)
		}
	})
}

func (r *WatchRegistry) run(item *watcherItem) {
	for {
		select {
		case ev, ok := <-item.backend.Events:
			if !ok {
				r.teardown(item)
				return
			}
			if !r.handle(item, ev) {
				return
			}
		case err, ok := <-item.backend.Errors:
			if !ok {
				r.teardown(item)
				return
			}
			r.fail(item, err)
			return
		case <-item.done:
			return
		}
	}
}

func classify(op fsnotify.Op) string {
	switch {
	case op.Has(fsnotify.Create), op.Has(fsnotify.Rename):
		return EventRename
	case op.Has(fsnotify.Write), op.Has(fsnotify.Remove), op.Has(fsnotify.Chmod):
		return EventChange
	}
	return ""
}

// handle delivers one event and reports whether the watcher is still up.
func (r *WatchRegistry) handle(item *watcherItem, ev fsnotify.Event) bool {
	eventType := classify(ev.Op)
	name := relativeName(item.path, ev.Name)
	if eventType == "" || name == "" {
		return true
	}
	if item.recursive && ev.Op.Has(fsnotify.Create) {
		if st, err := Lstat(ev.Name); err == nil && st.IsDirectory() {
			if err := item.backend.Add(ev.Name); err != nil {
				log.Warnf("[fs.Watch] adding %s: %v", ev.Name, err)
			}
			item.addTree(ev.Name)
		}
	}

	r.mu.Lock()
	if !item.alive || (len(item.subs) == 0 && !item.persistent) {
		r.mu.Unlock()
		r.teardown(item)
		return false
	}
	subs := append([]*AsyncClosure[WatchEvent](nil), item.subs...)
	r.mu.Unlock()

	filename, err := encodeResult([]byte(name), item.encoding)
	if err != nil {
		log.Debugf("[fs.Watch] dropping %s: %v", ev.Name, err)
		return true
	}
	out := WatchEvent{EventType: eventType, Filename: filename}
	for _, cb := range subs {
		cb.Resolve(out)
	}
	r.metrics.WatchEvents.WithLabelValues("watch", eventType).Add(float64(len(subs)))
	return true
}

func relativeName(root, name string) string {
	if name == "" {
		return ""
	}
	rel, err := filepath.Rel(root, name)
	if err != nil || rel == "." {
		return filepath.Base(name)
	}
	return rel
}

// fail reports a backend error to every subscriber and drops the watcher.
func (r *WatchRegistry) fail(item *watcherItem, err error) {
	log.Warnf("[fs.Watch] backend error on %s: %v", item.path, err)
	r.mu.Lock()
	subs := append([]*AsyncClosure[WatchEvent](nil), item.subs...)
	r.mu.Unlock()
	werr := fserr.FromOS(err, "watch", item.path)
	for _, cb := range subs {
		cb.Reject(werr)
	}
	r.teardown(item)
}

func (r *WatchRegistry) teardown(item *watcherItem) {
	r.mu.Lock()
	wasAlive := item.alive
	item.alive = false
	item.subs = nil
	if r.items[item.path] == item {
		delete(r.items, item.path)
	}
	r.mu.Unlock()
	item.stop()
	if wasAlive {
		r.metrics.WatchersActive.WithLabelValues("watch").Dec()
		log.Debugf("[fs.Watch] stopped watching %s", item.path)
	}
}

// Ref re-adds cb to a live watcher. It reports false when path is not
// watched or cb is already subscribed.
func (r *WatchRegistry) Ref(path string, cb *AsyncClosure[WatchEvent]) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[path]
	if !ok {
		return false
	}
	return item.addLocked(cb)
}

// Unref stops notifying cb. The watcher keeps running; a non-persistent
// watcher left without subscribers is dropped at its next event.
func (r *WatchRegistry) Unref(path string, cb *AsyncClosure[WatchEvent]) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[path]
	if !ok {
		return false
	}
	return item.removeLocked(cb)
}

// Close unsubscribes cb and tears the watcher down right away when it is
// non-persistent and has no subscribers left.
func (r *WatchRegistry) Close(path string, cb *AsyncClosure[WatchEvent]) bool {
	r.mu.Lock()
	item, ok := r.items[path]
	if !ok {
		r.mu.Unlock()
		return false
	}
	removed := item.removeLocked(cb)
	empty := len(item.subs) == 0 && !item.persistent
	r.mu.Unlock()
	if empty {
		r.teardown(item)
	}
	return removed
}

// Stop tears down the watcher on path regardless of its subscribers.
func (r *WatchRegistry) Stop(path string) {
	r.mu.Lock()
	item, ok := r.items[path]
	r.mu.Unlock()
	if ok {
		r.teardown(item)
	}
}

// CloseAll stops every watcher.
func (r *WatchRegistry) CloseAll() {
	r.mu.Lock()
	items := make([]*watcherItem, 0, len(r.items))
	for _, item := range r.items {
		items = append(items, item)
	}
	r.mu.Unlock()
	for _, item := range items {
		r.teardown(item)
	}
}

// Len returns the number of watched paths.
func (r *WatchRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}

// Subscribers returns the subscriber count for path, 0 when unwatched.
func (r *WatchRegistry) Subscribers(path string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if item, ok := r.items[path]; ok {
		return len(item.subs)
	}
	return 0
}
