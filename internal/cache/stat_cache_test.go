package cache

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nodefs/fs"
)

func statOf(t *testing.T, p string) *fs.FileStat {
	t.Helper()
	st, err := fs.Lstat(p)
	require.NoError(t, err)
	return st
}

func TestStatCacheGetSet(t *testing.T) {
	dir := t.TempDir()
	c := NewStatCache(0, 0)

	assert.Nil(t, c.Get(dir))
	st := statOf(t, dir)
	c.Set(dir, st)
	assert.Same(t, st, c.Get(dir))

	c.Set(dir, nil)
	assert.Same(t, st, c.Get(dir), "nil stats are not stored")
	assert.Equal(t, 1, c.Len())
}

func TestStatCacheTTL(t *testing.T) {
	dir := t.TempDir()
	c := NewStatCache(10*time.Millisecond, 0)
	c.Set(dir, statOf(t, dir))
	require.NotNil(t, c.Get(dir))

	time.Sleep(20 * time.Millisecond)
	assert.Nil(t, c.Get(dir))
}

func TestStatCacheMaxSize(t *testing.T) {
	dir := t.TempDir()
	st := statOf(t, dir)
	c := NewStatCache(0, 2)

	c.Set("/a", st)
	c.Set("/b", st)
	c.Set("/c", st)
	assert.Nil(t, c.Get("/c"))
	assert.Equal(t, 2, c.Len())

	// existing keys are refreshed at capacity
	c.Set("/a", st)
	assert.NotNil(t, c.Get("/a"))
}

func TestStatCacheMaxSizeEvictsExpired(t *testing.T) {
	dir := t.TempDir()
	st := statOf(t, dir)
	c := NewStatCache(10*time.Millisecond, 1)

	c.Set("/a", st)
	time.Sleep(20 * time.Millisecond)
	c.Set("/b", st)
	assert.NotNil(t, c.Get("/b"))
	assert.Equal(t, 1, c.Len())
}

func TestStatCacheInvalidation(t *testing.T) {
	dir := t.TempDir()
	st := statOf(t, dir)
	c := NewStatCache(0, 0)

	root := filepath.Join(dir, "root")
	paths := []string{
		dir,
		root,
		filepath.Join(root, "a"),
		filepath.Join(root, "a", "b"),
		filepath.Join(dir, "rootless"),
	}
	fill := func() {
		for _, p := range paths {
			c.Set(p, st)
		}
	}

	fill()
	c.InvalidatePath(root)
	assert.Nil(t, c.Get(root))
	assert.NotNil(t, c.Get(dir))

	fill()
	c.InvalidateEntry(filepath.Join(root, "a"))
	assert.Nil(t, c.Get(filepath.Join(root, "a")))
	assert.Nil(t, c.Get(root))
	assert.NotNil(t, c.Get(filepath.Join(root, "a", "b")))

	fill()
	c.InvalidateTree(root)
	assert.Nil(t, c.Get(root))
	assert.Nil(t, c.Get(dir))
	assert.Nil(t, c.Get(filepath.Join(root, "a", "b")))
	assert.NotNil(t, c.Get(filepath.Join(dir, "rootless")), "sibling sharing the prefix survives")

	fill()
	c.Invalidate()
	assert.Equal(t, 0, c.Len())
	assert.Equal(t, StatCacheStats{Size: 0, MaxSize: 0, TTL: 0}, c.Stats())
}
