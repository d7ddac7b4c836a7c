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
	"time"

	"golang.org/x/sys/unix"

	"nodefs/fserr"
)

// FileStat mirrors the Node.js fs.Stats object. Times are also exposed as
// float milliseconds since the epoch.
type FileStat struct {
	Dev     uint64
	Ino     uint64
	Mode    uint32
	Nlink   uint64
	Uid     uint32
	Gid     uint32
	Rdev    uint64
	Size    int64
	Blksize int64
	Blocks  int64

	AtimeMs     float64
	MtimeMs     float64
	CtimeMs     float64
	BirthtimeMs float64

	Atime     time.Time
	Mtime     time.Time
	Ctime     time.Time
	Birthtime time.Time
}

func (s *FileStat) fileType() uint32 {
	return s.Mode & unix.S_IFMT
}

func (s *FileStat) IsFile() bool            { return s.fileType() == unix.S_IFREG }
func (s *FileStat) IsDirectory() bool       { return s.fileType() == unix.S_IFDIR }
func (s *FileStat) IsSymbolicLink() bool    { return s.fileType() == unix.S_IFLNK }
func (s *FileStat) IsFIFO() bool            { return s.fileType() == unix.S_IFIFO }
func (s *FileStat) IsSocket() bool          { return s.fileType() == unix.S_IFSOCK }
func (s *FileStat) IsBlockDevice() bool     { return s.fileType() == unix.S_IFBLK }
func (s *FileStat) IsCharacterDevice() bool { return s.fileType() == unix.S_IFCHR }

func newFileStat(st *unix.Stat_t) *FileStat {
	atime := timespecTime(st.Atim)
	mtime := timespecTime(st.Mtim)
	ctime := timespecTime(st.Ctim)
	btime := birthtime(st)
	return &FileStat{
		Dev:     uint64(st.Dev),
		Ino:     uint64(st.Ino),
		Mode:    uint32(st.Mode),
		Nlink:   uint64(st.Nlink),
		Uid:     st.Uid,
		Gid:     st.Gid,
		Rdev:    uint64(st.Rdev),
		Size:    st.Size,
		Blksize: int64(st.Blksize),
		Blocks:  st.Blocks,

		AtimeMs:     millis(atime),
		MtimeMs:     millis(mtime),
		CtimeMs:     millis(ctime),
		BirthtimeMs: millis(btime),

		Atime:     atime,
		Mtime:     mtime,
		Ctime:     ctime,
		Birthtime: btime,
	}
}

// zeroStat is what the polling watcher reports for a missing file.
func zeroStat() *FileStat {
	epoch := time.Unix(0, 0)
	return &FileStat{Atime: epoch, Mtime: epoch, Ctime: epoch, Birthtime: epoch}
}

func timespecTime(ts unix.Timespec) time.Time {
	sec, nsec := ts.Unix()
	return time.Unix(sec, nsec)
}

func millis(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Millisecond)
}

func toTimespec(seconds float64) unix.Timespec {
	return unix.NsecToTimespec(int64(seconds * float64(time.Second)))
}

func toTimeval(seconds float64) unix.Timeval {
	return unix.NsecToTimeval(int64(seconds * float64(time.Second)))
}

// Stat follows symlinks.
func Stat(path string) (*FileStat, error) {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return nil, fserr.FromOS(err, "stat", path)
	}
	return newFileStat(&st), nil
}

// Lstat reports on the link itself.
func Lstat(path string) (*FileStat, error) {
	var st unix.Stat_t
	if err := unix.Lstat(path, &st); err != nil {
		return nil, fserr.FromOS(err, "lstat", path)
	}
	return newFileStat(&st), nil
}

func Fstat(fd int) (*FileStat, error) {
	var st unix.Stat_t
	if err := unix.Fstat(fd, &st); err != nil {
		return nil, fserr.FromOS(err, "fstat")
	}
	return newFileStat(&st), nil
}
