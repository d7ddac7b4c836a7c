package fs

import (
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"nodefs/buffer"
	"nodefs/fserr"
	"nodefs/internal/worker"
)

type result[T any] struct {
	val T
	err error
}

// capture returns a closure that forwards its single outcome to a channel
// and counts how many times either arm fired.
func capture[T any]() (*AsyncClosure[T], chan result[T], *atomic.Int32) {
	ch := make(chan result[T], 4)
	calls := &atomic.Int32{}
	cb := NewAsyncClosure(
		func(v T) { calls.Add(1); ch <- result[T]{val: v} },
		func(err error) { calls.Add(1); ch <- result[T]{err: err} },
	)
	return cb, ch, calls
}

func await[T any](t *testing.T, ch chan result[T]) result[T] {
	t.Helper()
	select {
	case r := <-ch:
		return r
	case <-time.After(5 * time.Second):
		t.Fatal("callback did not fire")
		return result[T]{}
	}
}

func newTestDispatcher(t *testing.T) *Dispatcher {
	t.Helper()
	d := NewDispatcher(worker.New(0, nil), Defaults{})
	t.Cleanup(func() { _ = d.Pool().Close(5 * time.Second) })
	return d
}

func TestAsyncClosureArms(t *testing.T) {
	var got string
	var gotErr error
	cb := NewAsyncClosure(func(s string) { got = s }, func(err error) { gotErr = err })
	cb.Resolve("ok")
	cb.Reject(errors.New("boom"))
	assert.Equal(t, "ok", got)
	assert.EqualError(t, gotErr, "boom")

	// nil arms and nil closures are ignored
	NewAsyncClosure[int](nil, nil).Resolve(1)
	var none *AsyncClosure[int]
	none.Reject(errors.New("ignored"))
}

func TestDispatchExactlyOnce(t *testing.T) {
	d := newTestDispatcher(t)
	dir := t.TempDir()
	writeTestFile(t, filepath.Join(dir, "f"), "x")

	okCb, okCh, okCalls := capture[*FileStat]()
	d.Stat(filepath.Join(dir, "f"), true, okCb)
	r := await(t, okCh)
	require.NoError(t, r.err)
	assert.True(t, r.val.IsFile())

	errCb, errCh, errCalls := capture[*FileStat]()
	d.Stat(filepath.Join(dir, "missing"), true, errCb)
	r = await(t, errCh)
	assert.Equal(t, "ENOENT", fserr.CodeOf(r.err))
	assert.Nil(t, r.val)

	require.NoError(t, d.Pool().Close(5*time.Second))
	assert.Equal(t, int32(1), okCalls.Load())
	assert.Equal(t, int32(1), errCalls.Load())
}

func TestAsyncStatThrowIfNoEntry(t *testing.T) {
	d := newTestDispatcher(t)
	cb, ch, _ := capture[*FileStat]()
	d.Stat(filepath.Join(t.TempDir(), "missing"), false, cb)
	r := await(t, ch)
	assert.NoError(t, r.err)
	assert.Nil(t, r.val)
}

func TestAsyncReadSharesBuffer(t *testing.T) {
	d := newTestDispatcher(t)
	p := filepath.Join(t.TempDir(), "f")
	writeTestFile(t, p, "shared bytes")

	fd, err := Open(p, unix.O_RDONLY, 0)
	require.NoError(t, err)
	defer Close(fd)

	buf := buffer.Alloc(6)
	cb, ch, _ := capture[int]()
	d.Read(fd, buf, 0, 6, 0, cb)
	r := await(t, ch)
	require.NoError(t, r.err)
	assert.Equal(t, 6, r.val)
	assert.Equal(t, "shared", string(buf.Bytes()))
}

func TestAsyncFileRoundTrip(t *testing.T) {
	d := newTestDispatcher(t)
	dir := t.TempDir()
	p := filepath.Join(dir, "f.txt")

	wcb, wch, _ := capture[Void]()
	d.WriteFile(Path(p), String("async"), nil, wcb)
	require.NoError(t, await(t, wch).err)

	acb, ach, _ := capture[Void]()
	d.AppendFile(Path(p), String("!"), nil, acb)
	require.NoError(t, await(t, ach).err)

	rcb, rch, _ := capture[FsEncoding]()
	d.ReadFile(Path(p), &ReadFileOptions{Encoding: Ptr(EncodingUtf8)}, rcb)
	r := await(t, rch)
	require.NoError(t, r.err)
	assert.Equal(t, "async!", textOf(t, r.val))

	mcb, mch, _ := capture[string]()
	d.Mkdir(filepath.Join(dir, "x", "y"), &MkdirOptions{Recursive: true}, mcb)
	m := await(t, mch)
	require.NoError(t, m.err)
	assert.Equal(t, filepath.Join(dir, "x"), m.val)

	lcb, lch, _ := capture[[]ReaddirResult]()
	d.Readdir(dir, nil, lcb)
	l := await(t, lch)
	require.NoError(t, l.err)
	assert.Len(t, l.val, 2)

	rmcb, rmch, _ := capture[Void]()
	d.Rm(filepath.Join(dir, "x"), &RmOptions{Recursive: true}, rmcb)
	require.NoError(t, await(t, rmch).err)
	assert.False(t, Exists(filepath.Join(dir, "x")))

	ecb, ech, _ := capture[bool]()
	d.Exists(p, ecb)
	assert.True(t, await(t, ech).val)
}

func TestAsyncOpenWriteClose(t *testing.T) {
	d := newTestDispatcher(t)
	p := filepath.Join(t.TempDir(), "f")

	ocb, och, _ := capture[int]()
	d.Open(p, unix.O_RDWR|unix.O_CREAT, 0o600, ocb)
	o := await(t, och)
	require.NoError(t, o.err)

	bufs := []buffer.Buffer{buffer.From([]byte("ab")), buffer.From([]byte("cd"))}
	wcb, wch, _ := capture[int]()
	d.Writev(o.val, bufs, 0, wcb)
	w := await(t, wch)
	require.NoError(t, w.err)
	assert.Equal(t, 4, w.val)

	ccb, cch, _ := capture[Void]()
	d.Close(o.val, ccb)
	require.NoError(t, await(t, cch).err)

	ccb2, cch2, _ := capture[Void]()
	d.Close(o.val, ccb2)
	assert.Equal(t, "EBADF", fserr.CodeOf(await(t, cch2).err))
}

func TestAsyncDirReadClose(t *testing.T) {
	d := newTestDispatcher(t)
	root := makeTree(t)

	ocb, och, _ := capture[*Dir]()
	d.Opendir(root, nil, ocb)
	o := await(t, och)
	require.NoError(t, o.err)
	assert.Equal(t, defaultBufferSize, o.val.s.batchSize)

	rcb, rch, _ := capture[Dirent]()
	o.val.ReadAsync(d, rcb)
	r := await(t, rch)
	require.NoError(t, r.err)
	assert.NotNil(t, r.val)

	ccb, cch, _ := capture[Void]()
	o.val.CloseAsync(d, ccb)
	require.NoError(t, await(t, cch).err)

	rcb2, rch2, _ := capture[Dirent]()
	o.val.ReadAsync(d, rcb2)
	assert.Equal(t, "ERR_DIR_CLOSED", fserr.CodeOf(await(t, rch2).err))
}

func TestDispatchRecoversPanics(t *testing.T) {
	d := newTestDispatcher(t)
	cb, ch, calls := capture[int]()
	dispatch(d, "boom", cb, func() (int, error) { panic("kaboom") })
	r := await(t, ch)
	require.Error(t, r.err)
	assert.Contains(t, r.err.Error(), "kaboom")
	assert.Equal(t, int32(1), calls.Load())
}

func TestDispatchAfterClose(t *testing.T) {
	d := NewDispatcher(nil, Defaults{})
	require.NoError(t, d.Pool().Close(time.Second))

	cb, ch, _ := capture[Void]()
	d.Access("/", F_OK, cb)
	r := await(t, ch)
	require.Error(t, r.err)
	assert.Contains(t, r.err.Error(), worker.ErrClosed.Error())
}

func TestDispatcherDefaults(t *testing.T) {
	d := NewDispatcher(nil, Defaults{RmRetryDelay: time.Second, OpendirBufferSize: 8})
	assert.Equal(t, time.Second, d.defaults.RmRetryDelay)
	assert.Equal(t, 8, d.defaults.OpendirBufferSize)

	d = NewDispatcher(nil, Defaults{})
	assert.Equal(t, defaultRetryDelay, d.defaults.RmRetryDelay)
	assert.Equal(t, defaultBufferSize, d.defaults.OpendirBufferSize)
}

func TestAsyncCpNotImplemented(t *testing.T) {
	d := newTestDispatcher(t)
	cb, ch, _ := capture[Void]()
	d.Cp("a", "b", cb)
	assert.Equal(t, "ERR_METHOD_NOT_IMPLEMENTED", fserr.CodeOf(await(t, ch).err))
}
