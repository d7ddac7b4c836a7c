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
	"errors"
	"io"
	"os"

	"nodefs/fserr"
)

// libStream batches os.File.ReadDir calls.
type libStream struct {
	f         *os.File
	path      string
	batchSize int
	pending   []os.DirEntry
	eof       bool
}

func openStream(path string, bufferSize int) (dirStream, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fserr.FromOS(err, "opendir", path)
	}
	st, err := f.Stat()
	if err != nil || !st.IsDir() {
		f.Close()
		if err == nil {
			err = fserr.ENOTDIR
		}
		return nil, fserr.FromOS(err, "opendir", path)
	}
	return &libStream{f: f, path: path, batchSize: bufferSize}, nil
}

func (s *libStream) next() (Dirent, error) {
	if len(s.pending) == 0 {
		if s.eof {
			return nil, nil
		}
		entries, err := s.f.ReadDir(s.batchSize)
		if errors.Is(err, io.EOF) || (err == nil && len(entries) == 0) {
			s.eof = true
			return nil, nil
		}
		if err != nil {
			return nil, fserr.FromOS(err, "scandir", s.path)
		}
		s.pending = entries
	}
	e := s.pending[0]
	s.pending = s.pending[1:]
	return newLibDirent(s.path, e), nil
}

func (s *libStream) close() error {
	return fserr.FromOS(s.f.Close(), "closedir", s.path)
}
