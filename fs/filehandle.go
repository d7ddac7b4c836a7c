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
	"sync"

	log "github.com/sirupsen/logrus"

	"nodefs/buffer"
	"nodefs/fserr"
)

// FileHandle owns one open descriptor. Operations hold a read lock for the
// duration of the syscall so Close waits for them; after Close every
// operation, including another Close, fails with EBADF. Concurrent
// operations on one handle are not ordered.
type FileHandle struct {
	d  *Dispatcher
	mu sync.RWMutex
	fd int
}

const closedFd = -1

// OpenHandle opens path on a worker and resolves with a FileHandle bound
// to this dispatcher.
func (d *Dispatcher) OpenHandle(path string, flags int, mode uint32, cb *AsyncClosure[*FileHandle]) {
	dispatch(d, "open", cb, func() (*FileHandle, error) {
		fd, err := Open(path, flags, mode)
		if err != nil {
			return nil, err
		}
		return newFileHandle(d, fd), nil
	})
}

// OpenHandleSync is the blocking form of OpenHandle.
func (d *Dispatcher) OpenHandleSync(path string, flags int, mode uint32) (*FileHandle, error) {
	fd, err := Open(path, flags, mode)
	if err != nil {
		return nil, err
	}
	return newFileHandle(d, fd), nil
}

func newFileHandle(d *Dispatcher, fd int) *FileHandle {
	return &FileHandle{d: d, fd: fd}
}

// with runs fn with the descriptor while holding the read lock.
func (h *FileHandle) with(syscallName string, fn func(fd int) error) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.fd == closedFd {
		return fserr.BadDescriptor(syscallName)
	}
	return fn(h.fd)
}

func withResult[T any](h *FileHandle, syscallName string, fn func(fd int) (T, error)) (T, error) {
	var v T
	err := h.with(syscallName, func(fd int) (err error) {
		v, err = fn(fd)
		return err
	})
	return v, err
}

// Fd returns the descriptor, or -1 once closed.
func (h *FileHandle) Fd() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.fd
}

func (h *FileHandle) CloseSync() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.fd == closedFd {
		return fserr.BadDescriptor("close")
	}
	fd := h.fd
	h.fd = closedFd
	log.Tracef("[fs.FileHandle.Close] fd %d", fd)
	return Close(fd)
}

func (h *FileHandle) AppendFileSync(data Payload, opts *WriteFileOptions) error {
	return h.with("write", func(fd int) error { return AppendFile(Fd(fd), data, opts) })
}

func (h *FileHandle) ChmodSync(mode uint32) error {
	return h.with("fchmod", func(fd int) error { return Fchmod(fd, mode) })
}

func (h *FileHandle) ChownSync(uid, gid int) error {
	return h.with("fchown", func(fd int) error { return Fchown(fd, uid, gid) })
}

func (h *FileHandle) DatasyncSync() error {
	return h.with("fdatasync", Fdatasync)
}

func (h *FileHandle) SyncSync() error {
	return h.with("fsync", Fsync)
}

func (h *FileHandle) ReadSync(buf buffer.Buffer, offset, length int, position int64) (int, error) {
	return withResult(h, "read", func(fd int) (int, error) { return Read(fd, buf, offset, length, position) })
}

func (h *FileHandle) ReadFileSync(opts *ReadFileOptions) (FsEncoding, error) {
	return withResult(h, "read", func(fd int) (FsEncoding, error) { return ReadFile(Fd(fd), opts) })
}

func (h *FileHandle) ReadvSync(bufs []buffer.Buffer, position int64) (int, error) {
	return withResult(h, "read", func(fd int) (int, error) { return Readv(fd, bufs, position) })
}

func (h *FileHandle) StatSync() (*FileStat, error) {
	return withResult(h, "fstat", Fstat)
}

func (h *FileHandle) TruncateSync(length int64) error {
	return h.with("ftruncate", func(fd int) error { return Ftruncate(fd, length) })
}

func (h *FileHandle) UtimesSync(atime, mtime float64) error {
	return h.with("futime", func(fd int) error { return Futimes(fd, atime, mtime) })
}

func (h *FileHandle) WriteSync(buf buffer.Buffer, opts *WriteOptions) (int, error) {
	return withResult(h, "write", func(fd int) (int, error) { return Write(fd, buf, opts) })
}

func (h *FileHandle) WriteStringSync(s string, enc buffer.Encoding, position int64) (int, error) {
	return withResult(h, "write", func(fd int) (int, error) { return WriteString(fd, s, enc, position) })
}

func (h *FileHandle) WriteFileSync(data Payload, opts *WriteFileOptions) error {
	return h.with("write", func(fd int) error { return WriteFile(Fd(fd), data, opts) })
}

func (h *FileHandle) WritevSync(bufs []buffer.Buffer, position int64) (int, error) {
	return withResult(h, "write", func(fd int) (int, error) { return Writev(fd, bufs, position) })
}

// Close releases the descriptor on a worker. It waits for operations
// already holding the descriptor.
func (h *FileHandle) Close(cb *AsyncClosure[Void]) {
	dispatch(h.d, "filehandle.close", cb, func() (Void, error) { return void(h.CloseSync()) })
}

func (h *FileHandle) AppendFile(data Payload, opts *WriteFileOptions, cb *AsyncClosure[Void]) {
	opts = copyOpts(opts)
	dispatch(h.d, "filehandle.appendfile", cb, func() (Void, error) { return void(h.AppendFileSync(data, opts)) })
}

func (h *FileHandle) Chmod(mode uint32, cb *AsyncClosure[Void]) {
	dispatch(h.d, "filehandle.chmod", cb, func() (Void, error) { return void(h.ChmodSync(mode)) })
}

func (h *FileHandle) Chown(uid, gid int, cb *AsyncClosure[Void]) {
	dispatch(h.d, "filehandle.chown", cb, func() (Void, error) { return void(h.ChownSync(uid, gid)) })
}

func (h *FileHandle) Datasync(cb *AsyncClosure[Void]) {
	dispatch(h.d, "filehandle.datasync", cb, func() (Void, error) { return void(h.DatasyncSync()) })
}

func (h *FileHandle) Sync(cb *AsyncClosure[Void]) {
	dispatch(h.d, "filehandle.sync", cb, func() (Void, error) { return void(h.SyncSync()) })
}

func (h *FileHandle) Read(buf buffer.Buffer, offset, length int, position int64, cb *AsyncClosure[int]) {
	buf = buf.Clone()
	dispatch(h.d, "filehandle.read", cb, func() (int, error) { return h.ReadSync(buf, offset, length, position) })
}

func (h *FileHandle) ReadFile(opts *ReadFileOptions, cb *AsyncClosure[FsEncoding]) {
	opts = copyOpts(opts)
	dispatch(h.d, "filehandle.readfile", cb, func() (FsEncoding, error) { return h.ReadFileSync(opts) })
}

func (h *FileHandle) Readv(bufs []buffer.Buffer, position int64, cb *AsyncClosure[int]) {
	bufs = append([]buffer.Buffer(nil), bufs...)
	dispatch(h.d, "filehandle.readv", cb, func() (int, error) { return h.ReadvSync(bufs, position) })
}

func (h *FileHandle) Stat(cb *AsyncClosure[*FileStat]) {
	dispatch(h.d, "filehandle.stat", cb, h.StatSync)
}

func (h *FileHandle) Truncate(length int64, cb *AsyncClosure[Void]) {
	dispatch(h.d, "filehandle.truncate", cb, func() (Void, error) { return void(h.TruncateSync(length)) })
}

func (h *FileHandle) Utimes(atime, mtime float64, cb *AsyncClosure[Void]) {
	dispatch(h.d, "filehandle.utimes", cb, func() (Void, error) { return void(h.UtimesSync(atime, mtime)) })
}

func (h *FileHandle) Write(buf buffer.Buffer, opts *WriteOptions, cb *AsyncClosure[int]) {
	buf = buf.Clone()
	opts = copyOpts(opts)
	dispatch(h.d, "filehandle.write", cb, func() (int, error) { return h.WriteSync(buf, opts) })
}

func (h *FileHandle) WriteString(s string, enc buffer.Encoding, position int64, cb *AsyncClosure[int]) {
	dispatch(h.d, "filehandle.write", cb, func() (int, error) { return h.WriteStringSync(s, enc, position) })
}

func (h *FileHandle) WriteFile(data Payload, opts *WriteFileOptions, cb *AsyncClosure[Void]) {
	opts = copyOpts(opts)
	dispatch(h.d, "filehandle.writefile", cb, func() (Void, error) { return void(h.WriteFileSync(data, opts)) })
}

func (h *FileHandle) Writev(bufs []buffer.Buffer, position int64, cb *AsyncClosure[int]) {
	bufs = append([]buffer.Buffer(nil), bufs...)
	dispatch(h.d, "filehandle.writev", cb, func() (int, error) { return h.WritevSync(bufs, position) })
}
