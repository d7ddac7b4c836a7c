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
	"encoding/binary"

	"golang.org/x/sys/unix"

	"nodefs/fserr"
)

// linux_dirent64: d_ino @0, d_off @8, d_reclen @16, d_type @18, d_name @19.
const (
	direntInoOffset    = 0
	direntReclenOffset = 16
	direntTypeOffset   = 18
	direntNameOffset   = 19
	direntMinSize      = direntNameOffset
	// upper bound of one record: header plus NAME_MAX and padding
	direntMaxSize = 280
)

// rawStream reads entries straight from getdents64.
type rawStream struct {
	fd   int
	path string
	buf  []byte
	data []byte
}

func openStream(path string, bufferSize int) (dirStream, error) {
	fd, err := unix.Open(path, unix.O_RDONLY|unix.O_DIRECTORY|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fserr.FromOS(err, "opendir", path)
	}
	return &rawStream{fd: fd, path: path, buf: make([]byte, bufferSize*direntMaxSize)}, nil
}

func (s *rawStream) refill() (bool, error) {
	for {
		n, err := unix.ReadDirent(s.fd, s.buf)
		if err == fserr.EINTR {
			continue
		}
		if err != nil {
			return false, fserr.FromOS(err, "scandir", s.path)
		}
		s.data = s.buf[:n]
		return n > 0, nil
	}
}

func (s *rawStream) next() (Dirent, error) {
	for {
		if len(s.data) == 0 {
			more, err := s.refill()
			if err != nil || !more {
				return nil, err
			}
		}
		if len(s.data) < direntMinSize {
			return nil, fserr.Generic("invalid dirent in " + s.path)
		}
		reclen := int(binary.NativeEndian.Uint16(s.data[direntReclenOffset:]))
		if reclen < direntMinSize || reclen > len(s.data) {
			return nil, fserr.Generic("invalid dirent in " + s.path)
		}
		entry := s.data[:reclen]
		s.data = s.data[reclen:]

		if binary.NativeEndian.Uint64(entry[direntInoOffset:]) == 0 {
			continue
		}
		name := entry[direntNameOffset:]
		for i, b := range name {
			if b == 0 {
				name = name[:i]
				break
			}
		}
		if len(name) == 0 || string(name) == "." || string(name) == ".." {
			continue
		}

		dtype := entry[direntTypeOffset]
		if dtype == unix.DT_UNKNOWN {
			var st unix.Stat_t
			if err := unix.Fstatat(s.fd, string(name), &st, unix.AT_SYMLINK_NOFOLLOW); err == nil {
				dtype = dtypeFromMode(st.Mode)
			}
		}
		return &rawDirent{name: string(name), parent: s.path, dtype: dtype}, nil
	}
}

func (s *rawStream) close() error {
	return fserr.FromOS(unix.Close(s.fd), "closedir", s.path)
}
