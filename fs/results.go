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
	"nodefs/buffer"
	"nodefs/fserr"
)

// FsEncoding is the result of a file read: text when a text encoding was
// requested, a Buffer for EncodingBuffer.
type FsEncoding struct {
	isBuffer bool
	text     string
	buf      buffer.Buffer
}

// IsBuffer reports whether the result holds raw bytes.
func (r FsEncoding) IsBuffer() bool { return r.isBuffer }

// Text returns the decoded string; ok is false for a Buffer result.
func (r FsEncoding) Text() (string, bool) { return r.text, !r.isBuffer }

// Buffer returns the raw bytes; ok is false for a text result.
func (r FsEncoding) Buffer() (buffer.Buffer, bool) { return r.buf, r.isBuffer }

func encodeResult(data []byte, enc FsEncodingType) (FsEncoding, error) {
	if enc == EncodingBuffer {
		return FsEncoding{isBuffer: true, buf: buffer.Own(data)}, nil
	}
	be, ok := enc.textEncoding()
	if !ok {
		return FsEncoding{}, fserr.TypeError("invalid encoding: " + enc.String())
	}
	s, err := buffer.Decode(data, be)
	if err != nil {
		return FsEncoding{}, fserr.TypeError(err.Error())
	}
	return FsEncoding{text: s}, nil
}

// ReaddirKind tags a ReaddirResult.
type ReaddirKind int

const (
	ReaddirString ReaddirKind = iota
	ReaddirBuffer
	ReaddirDirent
)

// ReaddirResult is one directory listing entry in the requested shape.
type ReaddirResult struct {
	Kind   ReaddirKind
	Str    string
	Buf    buffer.Buffer
	Dirent Dirent
}

// Name returns the entry name whatever the shape.
func (r ReaddirResult) Name() string {
	switch r.Kind {
	case ReaddirBuffer:
		return string(r.Buf.Bytes())
	case ReaddirDirent:
		return r.Dirent.Name()
	}
	return r.Str
}

func nameResult(name string, enc FsEncodingType) (ReaddirResult, error) {
	if enc == EncodingBuffer {
		return ReaddirResult{Kind: ReaddirBuffer, Buf: buffer.From([]byte(name))}, nil
	}
	r, err := encodeResult([]byte(name), enc)
	if err != nil {
		return ReaddirResult{}, err
	}
	s, _ := r.Text()
	return ReaddirResult{Kind: ReaddirString, Str: s}, nil
}

// File selects the target of a file helper: a path or an open descriptor.
type File struct {
	path string
	fd   int
	isFd bool
}

// Path targets a file by name.
func Path(p string) File { return File{path: p} }

// Fd targets an already open descriptor. The helper does not close it.
func Fd(fd int) File { return File{fd: fd, isFd: true} }

func (f File) String() string {
	if f.isFd {
		return ""
	}
	return f.path
}

// Payload is data handed to WriteFile and AppendFile.
type Payload struct {
	text   string
	isText bool
	bytes  []byte
	buf    *buffer.Buffer
}

// String is a text payload, encoded with the options' Encoding.
func String(s string) Payload { return Payload{text: s, isText: true} }

// Bytes is a raw payload.
func Bytes(b []byte) Payload { return Payload{bytes: b} }

// FromBuffer writes the contents of buf.
func FromBuffer(buf buffer.Buffer) Payload { return Payload{buf: &buf} }

func (p Payload) data(enc buffer.Encoding) ([]byte, error) {
	switch {
	case p.isText:
		b, err := buffer.Encode(p.text, enc)
		if err != nil {
			return nil, fserr.TypeError(err.Error())
		}
		return b, nil
	case p.buf != nil:
		return p.buf.Bytes(), nil
	}
	return p.bytes, nil
}
