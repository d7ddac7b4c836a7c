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
	"sort"
	"sync"

	"github.com/charlievieth/fastwalk"
	log "github.com/sirupsen/logrus"

	"nodefs/buffer"
	"nodefs/fserr"
)

// dirStream yields entries one at a time; (nil, nil) marks the end.
type dirStream interface {
	next() (Dirent, error)
	close() error
}

type dirState struct {
	mu        sync.Mutex
	path      string
	stream    dirStream
	encoding  FsEncodingType
	batchSize int
	recursive bool
	pending   []string
}

// Dir is an open directory stream. Clones share the stream and its lock;
// closing any of them closes it for all.
type Dir struct {
	s *dirState
}

// Opendir opens path for incremental reading. A nil opts uses
// DefaultOpendirOptions.
func Opendir(path string, opts *OpendirOptions) (*Dir, error) {
	o := DefaultOpendirOptions()
	if opts != nil {
		o = *opts
		if o.BufferSize <= 0 {
			o.BufferSize = defaultBufferSize
		}
	}
	stream, err := openStream(path, o.BufferSize)
	if err != nil {
		return nil, err
	}
	log.Debugf("[fs.Opendir] %s (recursive=%v)", path, o.Recursive)
	return &Dir{s: &dirState{
		path:      path,
		stream:    stream,
		encoding:  valueOr(o.Encoding, EncodingUtf8),
		batchSize: o.BufferSize,
		recursive: o.Recursive,
	}}, nil
}

func (dir *Dir) Clone() *Dir {
	return &Dir{s: dir.s}
}

func (dir *Dir) Path() string {
	return dir.s.path
}

func dirClosed(syscallName, path string) error {
	e := fserr.FromErrno(fserr.EBADF, syscallName, path, "")
	e.Code = "ERR_DIR_CLOSED"
	e.Message = "Directory handle was closed"
	return e
}

// Read returns the next entry, or nil once the stream is exhausted. A
// recursive Dir descends into subdirectories after finishing the current
// one.
func (dir *Dir) Read() (Dirent, error) {
	s := dir.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stream == nil {
		return nil, dirClosed("readdir", s.path)
	}
	for {
		ent, err := s.stream.next()
		if err != nil {
			return nil, err
		}
		if ent == nil {
			if !s.recursive || len(s.pending) == 0 {
				return nil, nil
			}
			sub := s.pending[0]
			s.pending = s.pending[1:]
			next, err := openStream(sub, s.batchSize)
			if err != nil {
				return nil, err
			}
			if err := s.stream.close(); err != nil {
				log.Warnf("[fs.Dir.Read] closing %s: %v", s.path, err)
			}
			s.stream = next
			continue
		}
		if s.recursive && ent.IsDirectory() {
			s.pending = append(s.pending, filepath.Join(ent.Path(), ent.Name()))
		}
		return recodeDirent(ent, s.encoding), nil
	}
}

// Close releases the stream. Any later Read or Close fails.
func (dir *Dir) Close() error {
	s := dir.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stream == nil {
		return dirClosed("closedir", s.path)
	}
	err := s.stream.close()
	s.stream = nil
	s.pending = nil
	return err
}

func recodeDirent(d Dirent, enc FsEncodingType) Dirent {
	be, ok := enc.textEncoding()
	if !ok || be == buffer.Utf8 {
		return d
	}
	name, err := buffer.Decode([]byte(d.Name()), be)
	if err != nil {
		return d
	}
	switch v := d.(type) {
	case *rawDirent:
		v.name = name
	case *libDirent:
		v.name = name
	}
	return d
}

// Readdir lists path. Names are returned as strings or Buffers per
// Encoding, or as Dirents when WithFileTypes is set. A recursive listing
// names entries relative to path (Dirents keep their basename and report
// the containing directory through Path).
func Readdir(path string, opts *ReaddirOptions) ([]ReaddirResult, error) {
	o := DefaultReaddirOptions()
	if opts != nil {
		o = *opts
	}
	var (
		names []string
		ents  []Dirent
		err   error
	)
	if o.Recursive {
		names, ents, err = walkDir(path)
	} else {
		names, ents, err = listDir(path)
	}
	if err != nil {
		return nil, err
	}

	enc := valueOr(o.Encoding, EncodingUtf8)
	out := make([]ReaddirResult, 0, len(names))
	for i, name := range names {
		if o.WithFileTypes {
			out = append(out, ReaddirResult{Kind: ReaddirDirent, Dirent: recodeDirent(ents[i], enc)})
			continue
		}
		r, err := nameResult(name, enc)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

func listDir(path string) ([]string, []Dirent, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, nil, fserr.FromOS(err, "scandir", path)
	}
	names := make([]string, len(entries))
	ents := make([]Dirent, len(entries))
	for i, e := range entries {
		names[i] = e.Name()
		ents[i] = newLibDirent(path, e)
	}
	return names, ents, nil
}

func walkDir(root string) ([]string, []Dirent, error) {
	st, err := Stat(root)
	if err != nil {
		return nil, nil, fserr.FromOS(err, "scandir", root)
	}
	if !st.IsDirectory() {
		return nil, nil, fserr.FromErrno(fserr.ENOTDIR, "scandir", root, "")
	}

	type found struct {
		rel string
		ent Dirent
	}
	var (
		mu  sync.Mutex
		all []found
	)
	conf := fastwalk.Config{Follow: false}
	err = fastwalk.Walk(&conf, root, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		ent := newLibDirent(filepath.Dir(p), d)
		mu.Lock()
		all = append(all, found{rel: rel, ent: ent})
		mu.Unlock()
		return nil
	})
	if err != nil {
		return nil, nil, fserr.FromOS(err, "scandir", root)
	}

	sort.Slice(all, func(i, j int) bool { return all[i].rel < all[j].rel })
	names := make([]string, len(all))
	ents := make([]Dirent, len(all))
	for i, f := range all {
		names[i] = f.rel
		ents[i] = f.ent
	}
	return names, ents, nil
}
