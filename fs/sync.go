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

	log "github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"nodefs/fserr"
)

// Access checks the calling process's permissions for path. mode is a
// combination of F_OK, R_OK, W_OK and X_OK.
func Access(path string, mode uint32) error {
	return fserr.FromOS(unix.Access(path, mode), "access", path)
}

// Exists never fails; any error is reported as false.
func Exists(path string) bool {
	return unix.Access(path, F_OK) == nil
}

func Chmod(path string, mode uint32) error {
	return fserr.FromOS(unix.Chmod(path, mode), "chmod", path)
}

func Fchmod(fd int, mode uint32) error {
	return fserr.FromOS(unix.Fchmod(fd, mode), "fchmod")
}

// Lchmod changes the mode of a symlink itself. Linux does not support this
// and reports EOPNOTSUPP.
func Lchmod(path string, mode uint32) error {
	err := unix.Fchmodat(unix.AT_FDCWD, path, mode, unix.AT_SYMLINK_NOFOLLOW)
	return fserr.FromOS(err, "lchmod", path)
}

func Chown(path string, uid, gid int) error {
	return fserr.FromOS(unix.Chown(path, uid, gid), "chown", path)
}

func Fchown(fd int, uid, gid int) error {
	return fserr.FromOS(unix.Fchown(fd, uid, gid), "fchown")
}

func Lchown(path string, uid, gid int) error {
	return fserr.FromOS(unix.Lchown(path, uid, gid), "lchown", path)
}

// Open opens path with POSIX flags. A zero mode means 0o666. The
// descriptor is close-on-exec.
func Open(path string, flags int, mode uint32) (int, error) {
	if mode == 0 {
		mode = defaultFileMode
	}
	fd, err := unix.Open(path, flags|unix.O_CLOEXEC, mode)
	if err != nil {
		return -1, fserr.FromOS(err, "open", path)
	}
	log.Tracef("[fs.Open] %s -> fd %d", path, fd)
	return fd, nil
}

func Close(fd int) error {
	return fserr.FromOS(unix.Close(fd), "close")
}

// Mkdir creates path. With Recursive it creates missing parents and returns
// the first directory it actually created, or "" when nothing was created.
func Mkdir(path string, opts *MkdirOptions) (string, error) {
	o := MkdirOptions{Mode: defaultDirMode}
	if opts != nil {
		o = *opts
		if o.Mode == 0 {
			o.Mode = defaultDirMode
		}
	}
	if !o.Recursive {
		return "", fserr.FromOS(unix.Mkdir(path, o.Mode), "mkdir", path)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fserr.FromOS(err, "mkdir", path)
	}
	first := ""
	for dir := abs; ; dir = filepath.Dir(dir) {
		if Exists(dir) {
			break
		}
		first = dir
		if parent := filepath.Dir(dir); parent == dir {
			break
		}
	}
	if err := os.MkdirAll(abs, os.FileMode(o.Mode)); err != nil {
		return "", fserr.FromOS(err, "mkdir", path)
	}
	return first, nil
}

func Rename(oldPath, newPath string) error {
	return fserr.FromOS(unix.Rename(oldPath, newPath), "rename", oldPath, newPath)
}

func Link(existingPath, newPath string) error {
	return fserr.FromOS(unix.Link(existingPath, newPath), "link", existingPath, newPath)
}

// Symlink creates path pointing at target. typ ("file", "dir", "junction")
// only matters on Windows and is ignored here.
func Symlink(target, path, typ string) error {
	_ = typ
	return fserr.FromOS(unix.Symlink(target, path), "symlink", target, path)
}

func Unlink(path string) error {
	return fserr.FromOS(unix.Unlink(path), "unlink", path)
}

// Readlink returns the link target in the requested encoding.
func Readlink(path string, enc FsEncodingType) (FsEncoding, error) {
	for size := 128; ; size *= 2 {
		buf := make([]byte, size)
		n, err := unix.Readlink(path, buf)
		if err != nil {
			return FsEncoding{}, fserr.FromOS(err, "readlink", path)
		}
		if n < size {
			return encodeResult(buf[:n], enc)
		}
	}
}

// Realpath resolves every symlink and relative segment of path.
func Realpath(path string, enc FsEncodingType) (FsEncoding, error) {
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		return FsEncoding{}, fserr.FromOS(err, "realpath", path)
	}
	abs, err := filepath.Abs(resolved)
	if err != nil {
		return FsEncoding{}, fserr.FromOS(err, "realpath", path)
	}
	return encodeResult([]byte(abs), enc)
}

func Truncate(path string, length int64) error {
	return fserr.FromOS(unix.Truncate(path, length), "open", path)
}

func Ftruncate(fd int, length int64) error {
	return fserr.FromOS(unix.Ftruncate(fd, length), "ftruncate")
}

func Fsync(fd int) error {
	return fserr.FromOS(unix.Fsync(fd), "fsync")
}

func Fdatasync(fd int) error {
	return fserr.FromOS(fdatasync(fd), "fdatasync")
}

// Utimes sets access and modification times, in seconds since the epoch.
func Utimes(path string, atime, mtime float64) error {
	ts := []unix.Timespec{toTimespec(atime), toTimespec(mtime)}
	return fserr.FromOS(unix.UtimesNano(path, ts), "utime", path)
}

// Lutimes is Utimes without following a final symlink.
func Lutimes(path string, atime, mtime float64) error {
	ts := []unix.Timespec{toTimespec(atime), toTimespec(mtime)}
	err := unix.UtimesNanoAt(unix.AT_FDCWD, path, ts, unix.AT_SYMLINK_NOFOLLOW)
	return fserr.FromOS(err, "lutime", path)
}

func Futimes(fd int, atime, mtime float64) error {
	tv := []unix.Timeval{toTimeval(atime), toTimeval(mtime)}
	return fserr.FromOS(unix.Futimes(fd, tv), "futime")
}

// Cp is not provided; recursive copies are left to the caller.
func Cp(src, dst string) error {
	return fserr.NotImplemented("cp")
}

// CreateReadStream is not provided.
func CreateReadStream(path string) error {
	return fserr.NotImplemented("createReadStream")
}

// CreateWriteStream is not provided.
func CreateWriteStream(path string) error {
	return fserr.NotImplemented("createWriteStream")
}
