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
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"nodefs/buffer"
	"nodefs/fserr"
	"nodefs/internal/worker"
)

// Void is the success value of operations that only report completion.
type Void = struct{}

// AsyncClosure is a completion callback with a success arm and an error
// arm. One-shot operations call exactly one arm exactly once. Watch
// subscriptions call the same closure once per event; its pointer is the
// subscriber identity.
type AsyncClosure[T any] struct {
	onSuccess func(T)
	onError   func(error)
}

// NewAsyncClosure builds a closure. Either arm may be nil.
func NewAsyncClosure[T any](onSuccess func(T), onError func(error)) *AsyncClosure[T] {
	return &AsyncClosure[T]{onSuccess: onSuccess, onError: onError}
}

func (c *AsyncClosure[T]) Resolve(v T) {
	if c != nil && c.onSuccess != nil {
		c.onSuccess(v)
	}
}

func (c *AsyncClosure[T]) Reject(err error) {
	if c != nil && c.onError != nil {
		c.onError(err)
	}
}

// Dispatcher runs sync operations on worker goroutines. Each method
// returns once the worker has started; the result arrives through the
// closure.
type Dispatcher struct {
	pool     *worker.Pool
	defaults Defaults
}

// Defaults fill option fields the caller left at zero.
type Defaults struct {
	RmRetryDelay      time.Duration
	OpendirBufferSize int
}

func NewDispatcher(pool *worker.Pool, defaults Defaults) *Dispatcher {
	if pool == nil {
		pool = worker.New(0, nil)
	}
	if defaults.RmRetryDelay <= 0 {
		defaults.RmRetryDelay = defaultRetryDelay
	}
	if defaults.OpendirBufferSize <= 0 {
		defaults.OpendirBufferSize = defaultBufferSize
	}
	return &Dispatcher{pool: pool, defaults: defaults}
}

// Pool exposes the underlying worker pool.
func (d *Dispatcher) Pool() *worker.Pool {
	return d.pool
}

func dispatch[T any](d *Dispatcher, op string, cb *AsyncClosure[T], fn func() (T, error)) {
	err := d.pool.Spawn(op, func() (err error) {
		var v T
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.Errorf("[fs.Dispatcher] %s panicked: %v", op, r)
					err = fserr.Generic(fmt.Sprintf("%s: %v", op, r))
				}
			}()
			v, err = fn()
		}()
		if err != nil {
			cb.Reject(err)
			return err
		}
		cb.Resolve(v)
		return nil
	})
	if err != nil {
		log.Debugf("[fs.Dispatcher] %s not launched: %v", op, err)
		cb.Reject(fserr.Generic(fmt.Sprintf("%s: %v", op, err)))
	}
}

func void(err error) (Void, error) {
	return Void{}, err
}

func copyOpts[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func (d *Dispatcher) Access(path string, mode uint32, cb *AsyncClosure[Void]) {
	dispatch(d, "access", cb, func() (Void, error) { return void(Access(path, mode)) })
}

func (d *Dispatcher) Exists(path string, cb *AsyncClosure[bool]) {
	dispatch(d, "exists", cb, func() (bool, error) { return Exists(path), nil })
}

func (d *Dispatcher) Chmod(path string, mode uint32, cb *AsyncClosure[Void]) {
	dispatch(d, "chmod", cb, func() (Void, error) { return void(Chmod(path, mode)) })
}

func (d *Dispatcher) Fchmod(fd int, mode uint32, cb *AsyncClosure[Void]) {
	dispatch(d, "fchmod", cb, func() (Void, error) { return void(Fchmod(fd, mode)) })
}

func (d *Dispatcher) Lchmod(path string, mode uint32, cb *AsyncClosure[Void]) {
	dispatch(d, "lchmod", cb, func() (Void, error) { return void(Lchmod(path, mode)) })
}

func (d *Dispatcher) Chown(path string, uid, gid int, cb *AsyncClosure[Void]) {
	dispatch(d, "chown", cb, func() (Void, error) { return void(Chown(path, uid, gid)) })
}

func (d *Dispatcher) Fchown(fd int, uid, gid int, cb *AsyncClosure[Void]) {
	dispatch(d, "fchown", cb, func() (Void, error) { return void(Fchown(fd, uid, gid)) })
}

func (d *Dispatcher) Lchown(path string, uid, gid int, cb *AsyncClosure[Void]) {
	dispatch(d, "lchown", cb, func() (Void, error) { return void(Lchown(path, uid, gid)) })
}

// Stat with throwIfNoEntry false resolves a missing path as a nil stat
// instead of failing.
func (d *Dispatcher) Stat(path string, throwIfNoEntry bool, cb *AsyncClosure[*FileStat]) {
	dispatch(d, "stat", cb, func() (*FileStat, error) {
		st, err := Stat(path)
		if err != nil && !throwIfNoEntry && fserr.CodeOf(err) == "ENOENT" {
			return nil, nil
		}
		return st, err
	})
}

func (d *Dispatcher) Lstat(path string, cb *AsyncClosure[*FileStat]) {
	dispatch(d, "lstat", cb, func() (*FileStat, error) { return Lstat(path) })
}

func (d *Dispatcher) Fstat(fd int, cb *AsyncClosure[*FileStat]) {
	dispatch(d, "fstat", cb, func() (*FileStat, error) { return Fstat(fd) })
}

func (d *Dispatcher) Open(path string, flags int, mode uint32, cb *AsyncClosure[int]) {
	dispatch(d, "open", cb, func() (int, error) { return Open(path, flags, mode) })
}

func (d *Dispatcher) Close(fd int, cb *AsyncClosure[Void]) {
	dispatch(d, "close", cb, func() (Void, error) { return void(Close(fd)) })
}

func (d *Dispatcher) Opendir(path string, opts *OpendirOptions, cb *AsyncClosure[*Dir]) {
	o := DefaultOpendirOptions()
	if opts != nil {
		o = *opts
	}
	if o.BufferSize <= 0 {
		o.BufferSize = d.defaults.OpendirBufferSize
	}
	opts = &o
	dispatch(d, "opendir", cb, func() (*Dir, error) { return Opendir(path, opts) })
}

func (d *Dispatcher) Readdir(path string, opts *ReaddirOptions, cb *AsyncClosure[[]ReaddirResult]) {
	opts = copyOpts(opts)
	dispatch(d, "readdir", cb, func() ([]ReaddirResult, error) { return Readdir(path, opts) })
}

func (d *Dispatcher) Mkdir(path string, opts *MkdirOptions, cb *AsyncClosure[string]) {
	opts = copyOpts(opts)
	dispatch(d, "mkdir", cb, func() (string, error) { return Mkdir(path, opts) })
}

func (d *Dispatcher) Mkdtemp(prefix string, cb *AsyncClosure[string]) {
	dispatch(d, "mkdtemp", cb, func() (string, error) { return Mkdtemp(prefix) })
}

func (d *Dispatcher) Rename(oldPath, newPath string, cb *AsyncClosure[Void]) {
	dispatch(d, "rename", cb, func() (Void, error) { return void(Rename(oldPath, newPath)) })
}

func (d *Dispatcher) Link(existingPath, newPath string, cb *AsyncClosure[Void]) {
	dispatch(d, "link", cb, func() (Void, error) { return void(Link(existingPath, newPath)) })
}

func (d *Dispatcher) Symlink(target, path, typ string, cb *AsyncClosure[Void]) {
	dispatch(d, "symlink", cb, func() (Void, error) { return void(Symlink(target, path, typ)) })
}

func (d *Dispatcher) Unlink(path string, cb *AsyncClosure[Void]) {
	dispatch(d, "unlink", cb, func() (Void, error) { return void(Unlink(path)) })
}

func (d *Dispatcher) Readlink(path string, enc FsEncodingType, cb *AsyncClosure[FsEncoding]) {
	dispatch(d, "readlink", cb, func() (FsEncoding, error) { return Readlink(path, enc) })
}

func (d *Dispatcher) Realpath(path string, enc FsEncodingType, cb *AsyncClosure[FsEncoding]) {
	dispatch(d, "realpath", cb, func() (FsEncoding, error) { return Realpath(path, enc) })
}

func (d *Dispatcher) Rmdir(path string, opts *RmDirOptions, cb *AsyncClosure[Void]) {
	var o RmDirOptions
	if opts != nil {
		o = *opts
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = d.defaults.RmRetryDelay
	}
	opts = &o
	dispatch(d, "rmdir", cb, func() (Void, error) { return void(Rmdir(path, opts)) })
}

func (d *Dispatcher) Rm(path string, opts *RmOptions, cb *AsyncClosure[Void]) {
	var o RmOptions
	if opts != nil {
		o = *opts
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = d.defaults.RmRetryDelay
	}
	opts = &o
	dispatch(d, "rm", cb, func() (Void, error) { return void(Rm(path, opts)) })
}

func (d *Dispatcher) CopyFile(src, dst string, mode int, cb *AsyncClosure[Void]) {
	dispatch(d, "copyfile", cb, func() (Void, error) { return void(CopyFile(src, dst, mode)) })
}

func (d *Dispatcher) Cp(src, dst string, cb *AsyncClosure[Void]) {
	dispatch(d, "cp", cb, func() (Void, error) { return void(Cp(src, dst)) })
}

func (d *Dispatcher) Truncate(path string, length int64, cb *AsyncClosure[Void]) {
	dispatch(d, "truncate", cb, func() (Void, error) { return void(Truncate(path, length)) })
}

func (d *Dispatcher) Ftruncate(fd int, length int64, cb *AsyncClosure[Void]) {
	dispatch(d, "ftruncate", cb, func() (Void, error) { return void(Ftruncate(fd, length)) })
}

func (d *Dispatcher) Fsync(fd int, cb *AsyncClosure[Void]) {
	dispatch(d, "fsync", cb, func() (Void, error) { return void(Fsync(fd)) })
}

func (d *Dispatcher) Fdatasync(fd int, cb *AsyncClosure[Void]) {
	dispatch(d, "fdatasync", cb, func() (Void, error) { return void(Fdatasync(fd)) })
}

func (d *Dispatcher) Utimes(path string, atime, mtime float64, cb *AsyncClosure[Void]) {
	dispatch(d, "utimes", cb, func() (Void, error) { return void(Utimes(path, atime, mtime)) })
}

func (d *Dispatcher) Lutimes(path string, atime, mtime float64, cb *AsyncClosure[Void]) {
	dispatch(d, "lutimes", cb, func() (Void, error) { return void(Lutimes(path, atime, mtime)) })
}

func (d *Dispatcher) Futimes(fd int, atime, mtime float64, cb *AsyncClosure[Void]) {
	dispatch(d, "futimes", cb, func() (Void, error) { return void(Futimes(fd, atime, mtime)) })
}

// Read fills buf on a worker. buf is shared, not copied: the caller sees
// the bytes once the closure fires.
func (d *Dispatcher) Read(fd int, buf buffer.Buffer, offset, length int, position int64, cb *AsyncClosure[int]) {
	buf = buf.Clone()
	dispatch(d, "read", cb, func() (int, error) { return Read(fd, buf, offset, length, position) })
}

func (d *Dispatcher) Readv(fd int, bufs []buffer.Buffer, position int64, cb *AsyncClosure[int]) {
	bufs = append([]buffer.Buffer(nil), bufs...)
	dispatch(d, "readv", cb, func() (int, error) { return Readv(fd, bufs, position) })
}

func (d *Dispatcher) Write(fd int, buf buffer.Buffer, opts *WriteOptions, cb *AsyncClosure[int]) {
	buf = buf.Clone()
	opts = copyOpts(opts)
	dispatch(d, "write", cb, func() (int, error) { return Write(fd, buf, opts) })
}

func (d *Dispatcher) WriteString(fd int, s string, enc buffer.Encoding, position int64, cb *AsyncClosure[int]) {
	dispatch(d, "write", cb, func() (int, error) { return WriteString(fd, s, enc, position) })
}

func (d *Dispatcher) Writev(fd int, bufs []buffer.Buffer, position int64, cb *AsyncClosure[int]) {
	bufs = append([]buffer.Buffer(nil), bufs...)
	dispatch(d, "writev", cb, func() (int, error) { return Writev(fd, bufs, position) })
}

func (d *Dispatcher) ReadFile(f File, opts *ReadFileOptions, cb *AsyncClosure[FsEncoding]) {
	opts = copyOpts(opts)
	dispatch(d, "readfile", cb, func() (FsEncoding, error) { return ReadFile(f, opts) })
}

func (d *Dispatcher) WriteFile(f File, data Payload, opts *WriteFileOptions, cb *AsyncClosure[Void]) {
	opts = copyOpts(opts)
	dispatch(d, "writefile", cb, func() (Void, error) { return void(WriteFile(f, data, opts)) })
}

func (d *Dispatcher) AppendFile(f File, data Payload, opts *WriteFileOptions, cb *AsyncClosure[Void]) {
	opts = copyOpts(opts)
	dispatch(d, "appendfile", cb, func() (Void, error) { return void(AppendFile(f, data, opts)) })
}

func (d *Dispatcher) Glob(pattern string, opts *GlobOptions, cb *AsyncClosure[[]string]) {
	opts = copyOpts(opts)
	dispatch(d, "glob", cb, func() ([]string, error) { return Glob(pattern, opts) })
}

// ReadAsync reads the next entry on a worker; a nil Dirent marks the end.
func (dir *Dir) ReadAsync(d *Dispatcher, cb *AsyncClosure[Dirent]) {
	dispatch(d, "dir.read", cb, dir.Read)
}

func (dir *Dir) CloseAsync(d *Dispatcher, cb *AsyncClosure[Void]) {
	dispatch(d, "dir.close", cb, func() (Void, error) { return void(dir.Close()) })
}
