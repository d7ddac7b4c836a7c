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

package cache

import (
	"path/filepath"
	"strings"
	"sync"
	"time"

	"nodefs/fs"
)

// StatCache holds lstat results keyed by absolute host path, each valid
// for ttl. Errors are never cached.
type StatCache struct {
	mu      sync.RWMutex
	entries map[string]statEntry
	ttl     time.Duration
	maxSize int
}

type statEntry struct {
	st      *fs.FileStat
	expires time.Time
}

// NewStatCache creates a cache. ttl 0 means entries never expire, maxSize
// 0 means unbounded.
func NewStatCache(ttl time.Duration, maxSize int) *StatCache {
	return &StatCache{
		entries: make(map[string]statEntry, 256),
		ttl:     ttl,
		maxSize: maxSize,
	}
}

// Get returns the cached stat or nil on a miss.
func (c *StatCache) Get(path string) *fs.FileStat {
	if Disabled {
		return nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[path]
	if !ok {
		return nil
	}
	if c.ttl > 0 && time.Now().After(e.expires) {
		return nil
	}
	return e.st
}

func (c *StatCache) Set(path string, st *fs.FileStat) {
	if Disabled || st == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.maxSize > 0 && len(c.entries) >= c.maxSize {
		if _, exists := c.entries[path]; !exists {
			c.evictExpiredLocked()
			if len(c.entries) >= c.maxSize {
				return
			}
		}
	}
	var expires time.Time
	if c.ttl > 0 {
		expires = time.Now().Add(c.ttl)
	}
	c.entries[path] = statEntry{st: st, expires: expires}
}

func (c *StatCache) evictExpiredLocked() {
	if c.ttl <= 0 {
		return
	}
	now := time.Now()
	for p, e := range c.entries {
		if now.After(e.expires) {
			delete(c.entries, p)
		}
	}
}

// Invalidate clears all entries.
func (c *StatCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.entries) > 0 {
		c.entries = make(map[string]statEntry, 256)
	}
}

func (c *StatCache) InvalidatePath(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, path)
}

// InvalidateEntry drops path and its parent directory, whose mtime and
// link count change with every create or remove.
func (c *StatCache) InvalidateEntry(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, path)
	delete(c.entries, filepath.Dir(path))
}

// InvalidateTree drops path, its parent and everything below path.
func (c *StatCache) InvalidateTree(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, path)
	delete(c.entries, filepath.Dir(path))
	prefix := strings.TrimSuffix(path, string(filepath.Separator)) + string(filepath.Separator)
	for p := range c.entries {
		if strings.HasPrefix(p, prefix) {
			delete(c.entries, p)
		}
	}
}

// InvalidateRename drops both sides of a rename, including any subtree.
func (c *StatCache) InvalidateRename(oldPath, newPath string) {
	c.InvalidateTree(oldPath)
	c.InvalidateTree(newPath)
}

func (c *StatCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Stats returns current cache statistics.
type StatCacheStats struct {
	Size    int
	MaxSize int
	TTL     time.Duration
}

func (c *StatCache) Stats() StatCacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return StatCacheStats{Size: len(c.entries), MaxSize: c.maxSize, TTL: c.ttl}
}

var _ Invalidator = (*StatCache)(nil)
