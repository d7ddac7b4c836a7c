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

// Package nfsexport serves a host directory over NFSv3 with every file
// operation routed through the nodefs engine.
package nfsexport

import (
	"errors"
	"io"
	"os"
	"path"
	"path/filepath"
	"time"

	billy "github.com/go-git/go-billy/v5"
	"github.com/gofrs/flock"
	log "github.com/sirupsen/logrus"
	nfsfile "github.com/willscott/go-nfs/file"

	"nodefs/buffer"
	"nodefs/fs"
	"nodefs/fserr"
	"nodefs/internal/cache"
)

// statCacheTTL bounds how long a host change can stay invisible to clients.
const statCacheTTL = time.Second

// BillyAdapter exposes a directory tree as a billy.Filesystem.
type BillyAdapter struct {
	root  string
	attrs *cache.StatCache
}

// NewBillyAdapter roots the adapter at dir.
func NewBillyAdapter(dir string) *BillyAdapter {
	return newBillyAdapter(dir, cache.NewStatCache(statCacheTTL, handleCacheSize))
}

func newBillyAdapter(dir string, attrs *cache.StatCache) *BillyAdapter {
	return &BillyAdapter{root: filepath.Clean(dir), attrs: attrs}
}

// lstat answers from the attribute cache when it can.
func (b *BillyAdapter) lstat(p string) (*fs.FileStat, error) {
	if st := b.attrs.Get(p); st != nil {
		return st, nil
	}
	st, err := fs.Lstat(p)
	if err != nil {
		return nil, err
	}
	b.attrs.Set(p, st)
	return st, nil
}

// abs maps a billy path onto the host, never escaping the root.
func (b *BillyAdapter) abs(name string) string {
	return filepath.Join(b.root, filepath.FromSlash(path.Clean("/"+name)))
}

// osError turns engine errors into *os.PathError so go-nfs can map them
// to NFS status codes with os.IsNotExist and friends.
func osError(op, name string, err error) error {
	if err == nil {
		return nil
	}
	var fe *fserr.Error
	if errors.As(err, &fe) && fe.Errno != 0 {
		return &os.PathError{Op: op, Path: name, Err: fe.Errno}
	}
	return &os.PathError{Op: op, Path: name, Err: err}
}

func (b *BillyAdapter) Create(filename string) (billy.File, error) {
	return b.OpenFile(filename, os.O_CREATE|os.O_RDWR|os.O_TRUNC, 0o666)
}

func (b *BillyAdapter) Open(filename string) (billy.File, error) {
	return b.OpenFile(filename, os.O_RDONLY, 0)
}

func (b *BillyAdapter) OpenFile(filename string, flag int, perm os.FileMode) (billy.File, error) {
	p := b.abs(filename)
	if flag&os.O_CREATE != 0 {
		created, err := fs.Mkdir(filepath.Dir(p), &fs.MkdirOptions{Recursive: true, Mode: 0o755})
		if err != nil {
			return nil, osError("open", filename, err)
		}
		if created != "" {
			b.attrs.InvalidateEntry(created)
		}
	}
	fd, err := fs.Open(p, flag, uint32(perm.Perm()))
	if err != nil {
		return nil, osError("open", filename, err)
	}
	if flag&(os.O_CREATE|os.O_TRUNC) != 0 {
		b.attrs.InvalidateEntry(p)
	}
	log.Tracef("[BillyAdapter.OpenFile] %s flags=%#x fd=%d", filename, flag, fd)
	return b.newFile(filename, p, fd), nil
}

func (b *BillyAdapter) newFile(name, p string, fd int) *BillyFile {
	return &BillyFile{name: name, path: p, fd: fd, lock: flock.New(p), attrs: b.attrs}
}

func (b *BillyAdapter) Stat(filename string) (os.FileInfo, error) {
	p := b.abs(filename)
	st, err := b.lstat(p)
	if err == nil && st.IsSymbolicLink() {
		st, err = fs.Stat(p)
	}
	if err != nil {
		return nil, osError("stat", filename, err)
	}
	return newFileInfo(path.Base(filename), st), nil
}

func (b *BillyAdapter) Lstat(filename string) (os.FileInfo, error) {
	st, err := b.lstat(b.abs(filename))
	if err != nil {
		return nil, osError("lstat", filename, err)
	}
	return newFileInfo(path.Base(filename), st), nil
}

func (b *BillyAdapter) Rename(oldpath, newpath string) error {
	from, to := b.abs(oldpath), b.abs(newpath)
	err := fs.Rename(from, to)
	b.attrs.InvalidateRename(from, to)
	return osError("rename", oldpath, err)
}

func (b *BillyAdapter) Remove(filename string) error {
	p := b.abs(filename)
	st, err := fs.Lstat(p)
	if err != nil {
		return osError("remove", filename, err)
	}
	if st.IsDirectory() {
		err = fs.Rmdir(p, nil)
	} else {
		err = fs.Unlink(p)
	}
	b.attrs.InvalidateEntry(p)
	return osError("remove", filename, err)
}

func (b *BillyAdapter) Join(elem ...string) string {
	return path.Join(elem...)
}

func (b *BillyAdapter) TempFile(dir, prefix string) (billy.File, error) {
	name, fd, err := fs.MkTempFile(b.abs(dir), prefix)
	if err != nil {
		return nil, osError("open", dir, err)
	}
	b.attrs.InvalidateEntry(name)
	return b.newFile(path.Join(dir, filepath.Base(name)), name, fd), nil
}

func (b *BillyAdapter) ReadDir(dirname string) ([]os.FileInfo, error) {
	p := b.abs(dirname)
	dir, err := fs.Opendir(p, nil)
	if err != nil {
		return nil, osError("readdir", dirname, err)
	}
	defer dir.Close()

	var result []os.FileInfo
	for {
		ent, err := dir.Read()
		if err != nil {
			return nil, osError("readdir", dirname, err)
		}
		if ent == nil {
			return result, nil
		}
		st, err := b.lstat(filepath.Join(p, ent.Name()))
		if err != nil {
			// removed between readdir and lstat
			log.Debugf("[BillyAdapter.ReadDir] skipping %s: %v", ent.Name(), err)
			continue
		}
		result = append(result, newFileInfo(ent.Name(), st))
	}
}

func (b *BillyAdapter) MkdirAll(filename string, perm os.FileMode) error {
	created, err := fs.Mkdir(b.abs(filename), &fs.MkdirOptions{Recursive: true, Mode: uint32(perm.Perm())})
	if created != "" {
		b.attrs.InvalidateEntry(created)
	}
	return osError("mkdir", filename, err)
}

func (b *BillyAdapter) Symlink(target, link string) error {
	p := b.abs(link)
	err := fs.Symlink(target, p, "")
	b.attrs.InvalidateEntry(p)
	return osError("symlink", link, err)
}

func (b *BillyAdapter) Readlink(link string) (string, error) {
	r, err := fs.Readlink(b.abs(link), fs.EncodingUtf8)
	if err != nil {
		return "", osError("readlink", link, err)
	}
	s, _ := r.Text()
	return s, nil
}

func (b *BillyAdapter) Chroot(p string) (billy.Filesystem, error) {
	return newBillyAdapter(b.abs(p), b.attrs), nil
}

func (b *BillyAdapter) Root() string {
	return b.root
}

// billy.Change interface
func (b *BillyAdapter) Chmod(name string, mode os.FileMode) error {
	p := b.abs(name)
	defer b.attrs.InvalidatePath(p)
	return osError("chmod", name, fs.Chmod(p, uint32(mode.Perm())))
}

func (b *BillyAdapter) Lchown(name string, uid, gid int) error {
	p := b.abs(name)
	defer b.attrs.InvalidatePath(p)
	return osError("lchown", name, fs.Lchown(p, uid, gid))
}

func (b *BillyAdapter) Chown(name string, uid, gid int) error {
	p := b.abs(name)
	defer b.attrs.InvalidatePath(p)
	return osError("chown", name, fs.Chown(p, uid, gid))
}

func (b *BillyAdapter) Chtimes(name string, atime, mtime time.Time) error {
	p := b.abs(name)
	defer b.attrs.InvalidatePath(p)
	return osError("chtimes", name, fs.Utimes(p, seconds(atime), seconds(mtime)))
}

func seconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}

func (b *BillyAdapter) Capabilities() billy.Capability {
	return billy.WriteCapability | billy.ReadCapability |
		billy.ReadAndWriteCapability | billy.SeekCapability |
		billy.TruncateCapability | billy.LockCapability
}

// BillyFile is an open descriptor with its own offset. Reads and writes
// borrow the caller's slice, so no bytes are copied on the way through.
type BillyFile struct {
	name   string
	path   string
	fd     int
	offset int64
	lock   *flock.Flock
	attrs  *cache.StatCache
}

func (f *BillyFile) Name() string {
	return f.name
}

func (f *BillyFile) Write(p []byte) (int, error) {
	n, err := fs.Write(f.fd, buffer.FromSlice(p), &fs.WriteOptions{Length: -1, Position: f.offset})
	f.attrs.InvalidatePath(f.path)
	if err != nil {
		return n, osError("write", f.name, err)
	}
	f.offset += int64(n)
	return n, nil
}

func (f *BillyFile) Read(p []byte) (int, error) {
	n, err := f.ReadAt(p, f.offset)
	f.offset += int64(n)
	return n, err
}

func (f *BillyFile) ReadAt(p []byte, off int64) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	n, err := fs.Read(f.fd, buffer.FromSlice(p), 0, len(p), off)
	if err != nil {
		return n, osError("read", f.name, err)
	}
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (f *BillyFile) Seek(offset int64, whence int) (int64, error) {
	switch whence {
	case io.SeekStart:
		f.offset = offset
	case io.SeekCurrent:
		f.offset += offset
	case io.SeekEnd:
		st, err := fs.Fstat(f.fd)
		if err != nil {
			return 0, osError("seek", f.name, err)
		}
		f.offset = st.Size + offset
	}
	if f.offset < 0 {
		f.offset = 0
		return 0, &os.PathError{Op: "seek", Path: f.name, Err: fserr.EINVAL}
	}
	return f.offset, nil
}

func (f *BillyFile) Close() error {
	if err := f.lock.Close(); err != nil {
		log.Debugf("[BillyFile.Close] releasing lock on %s: %v", f.name, err)
	}
	f.attrs.InvalidatePath(f.path)
	return osError("close", f.name, fs.Close(f.fd))
}

func (f *BillyFile) Lock() error {
	return f.lock.Lock()
}

func (f *BillyFile) Unlock() error {
	return f.lock.Unlock()
}

func (f *BillyFile) Truncate(size int64) error {
	f.attrs.InvalidatePath(f.path)
	return osError("truncate", f.name, fs.Ftruncate(f.fd, size))
}

// BillyFileInfo is an os.FileInfo over an engine stat.
type BillyFileInfo struct {
	name string
	st   *fs.FileStat
}

func newFileInfo(name string, st *fs.FileStat) *BillyFileInfo {
	return &BillyFileInfo{name: name, st: st}
}

func (fi *BillyFileInfo) Name() string       { return fi.name }
func (fi *BillyFileInfo) Size() int64        { return fi.st.Size }
func (fi *BillyFileInfo) ModTime() time.Time { return fi.st.Mtime }
func (fi *BillyFileInfo) IsDir() bool        { return fi.st.IsDirectory() }

func (fi *BillyFileInfo) Mode() os.FileMode {
	mode := os.FileMode(fi.st.Mode & 0o777)
	switch {
	case fi.st.IsDirectory():
		mode |= os.ModeDir
	case fi.st.IsSymbolicLink():
		mode |= os.ModeSymlink
	case fi.st.IsFIFO():
		mode |= os.ModeNamedPipe
	case fi.st.IsSocket():
		mode |= os.ModeSocket
	case fi.st.IsCharacterDevice():
		mode |= os.ModeDevice | os.ModeCharDevice
	case fi.st.IsBlockDevice():
		mode |= os.ModeDevice
	}
	return mode
}

// Sys must be a go-nfs file.FileInfo; go-nfs ignores any other type.
func (fi *BillyFileInfo) Sys() interface{} {
	return &nfsfile.FileInfo{
		Nlink:  uint32(fi.st.Nlink),
		UID:    fi.st.Uid,
		GID:    fi.st.Gid,
		Fileid: fi.st.Ino,
	}
}

var (
	_ billy.Filesystem = (*BillyAdapter)(nil)
	_ billy.Change     = (*BillyAdapter)(nil)
	_ billy.File       = (*BillyFile)(nil)
)
