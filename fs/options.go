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

// Package fs is the operation engine: blocking file-system primitives with
// Node.js option semantics, an async dispatcher that runs them on worker
// goroutines, open-file handles, directory streams and the watch registries.
package fs

import (
	"time"

	"golang.org/x/sys/unix"

	"nodefs/buffer"
)

// Ptr returns a pointer to v, for the optional Encoding option fields.
// A nil Encoding means the operation default.
func Ptr[T any](v T) *T {
	return &v
}

func valueOr[T any](p *T, def T) T {
	if p == nil {
		return def
	}
	return *p
}

// FsEncodingType selects how file contents and names are returned. The
// numeric values are part of the wire contract with host bindings.
type FsEncodingType int

const (
	EncodingAscii FsEncodingType = iota
	EncodingUtf8
	EncodingUtf16le
	EncodingUcs2
	EncodingLatin1
	EncodingBuffer
)

func (t FsEncodingType) String() string {
	switch t {
	case EncodingAscii:
		return "ascii"
	case EncodingUtf8:
		return "utf8"
	case EncodingUtf16le:
		return "utf16le"
	case EncodingUcs2:
		return "ucs2"
	case EncodingLatin1:
		return "latin1"
	case EncodingBuffer:
		return "buffer"
	}
	return "unknown"
}

// textEncoding maps onto the buffer codec; ok is false for EncodingBuffer.
func (t FsEncodingType) textEncoding() (buffer.Encoding, bool) {
	switch t {
	case EncodingAscii:
		return buffer.Ascii, true
	case EncodingUtf8:
		return buffer.Utf8, true
	case EncodingUtf16le:
		return buffer.Utf16le, true
	case EncodingUcs2:
		return buffer.Ucs2, true
	case EncodingLatin1:
		return buffer.Latin1, true
	}
	return 0, false
}

// Access modes.
const (
	F_OK = unix.F_OK
	R_OK = unix.R_OK
	W_OK = unix.W_OK
	X_OK = unix.X_OK
)

// CopyFile flags. They combine as a bit mask.
const (
	COPYFILE_EXCL          = 1
	COPYFILE_FICLONE       = 2
	COPYFILE_FICLONE_FORCE = 4
)

const (
	defaultFileMode   = 0o666
	defaultDirMode    = 0o777
	defaultRetryDelay = 100 * time.Millisecond
	defaultBufferSize = 32
)

// MkdirOptions for Mkdir. Mode 0 means 0o777.
type MkdirOptions struct {
	Recursive bool
	Mode      uint32
}

// RmDirOptions for Rmdir. Retries apply only when Recursive is set.
type RmDirOptions struct {
	MaxRetries int
	Recursive  bool
	RetryDelay time.Duration // 0 means 100ms
}

// RmOptions for Rm. Force ignores a missing path.
type RmOptions struct {
	Force      bool
	MaxRetries int
	Recursive  bool
	RetryDelay time.Duration // 0 means 100ms
}

// OpendirOptions for Opendir.
type OpendirOptions struct {
	Encoding   *FsEncodingType // nil means utf8
	BufferSize int // entries fetched per refill, 0 means 32
	Recursive  bool
}

// DefaultOpendirOptions returns utf8 names and a 32-entry buffer.
func DefaultOpendirOptions() OpendirOptions {
	return OpendirOptions{Encoding: Ptr(EncodingUtf8), BufferSize: defaultBufferSize}
}

// ReaddirOptions for Readdir.
type ReaddirOptions struct {
	WithFileTypes bool
	Encoding      *FsEncodingType // nil means utf8
	Recursive     bool
}

// DefaultReaddirOptions returns plain utf8 names.
func DefaultReaddirOptions() ReaddirOptions {
	return ReaddirOptions{Encoding: Ptr(EncodingUtf8)}
}

// ReadFileOptions for ReadFile.
type ReadFileOptions struct {
	Encoding *FsEncodingType // nil means a Buffer result
	Flag     int
}

// DefaultReadFileOptions returns a Buffer result read with O_RDONLY.
func DefaultReadFileOptions() ReadFileOptions {
	return ReadFileOptions{Encoding: Ptr(EncodingBuffer), Flag: unix.O_RDONLY}
}

// WriteFileOptions for WriteFile and AppendFile. Encoding applies to Text
// payloads only; nil means utf8. Mode 0 means 0o666; Flag 0 means the
// operation default.
type WriteFileOptions struct {
	Encoding *buffer.Encoding
	Mode     uint32
	Flag     int
}

// DefaultWriteFileOptions mirrors Node.js flag "w".
func DefaultWriteFileOptions() WriteFileOptions {
	return WriteFileOptions{Encoding: Ptr(buffer.Utf8), Mode: defaultFileMode, Flag: unix.O_WRONLY | unix.O_CREAT | unix.O_TRUNC}
}

// DefaultAppendFileOptions mirrors Node.js flag "a".
func DefaultAppendFileOptions() WriteFileOptions {
	return WriteFileOptions{Encoding: Ptr(buffer.Utf8), Mode: defaultFileMode, Flag: unix.O_APPEND | unix.O_CREAT | unix.O_WRONLY}
}

// WriteOptions for Write. Length < 0 writes to the end of the buffer;
// Position < 0 writes at the current file position.
type WriteOptions struct {
	Offset   int
	Length   int
	Position int64
}

// DefaultWriteOptions writes the whole buffer at the current position.
func DefaultWriteOptions() WriteOptions {
	return WriteOptions{Length: -1, Position: -1}
}

// GlobOptions for Glob. An empty Cwd is the process working directory.
type GlobOptions struct {
	Cwd string
}
