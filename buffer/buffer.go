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

// Package buffer implements the Node.js Buffer model: a byte container that
// either owns a growable slice behind a shared lock, or borrows memory that
// belongs to the caller.
package buffer

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"unsafe"
)

var (
	ErrOutOfRange      = errors.New("offset is out of bounds")
	ErrBorrowedResize  = errors.New("borrowed buffer cannot be resized")
	ErrUnknownEncoding = errors.New("unknown encoding")
	ErrInvalidBase64   = errors.New("invalid base64 input")
	ErrInvalidHex      = errors.New("invalid hex input")
)

// storage is the shared backing of a Buffer. Readers take mu.RLock, anything
// that writes bytes or changes the slice header takes mu.Lock.
type storage struct {
	mu       sync.RWMutex
	data     []byte
	borrowed bool
}

// Buffer is a handle to shared bytes. Copying a Buffer value, or calling
// Clone, yields a second handle onto the same storage: writes through one are
// visible through the other. Use Copy for an independent deep copy.
//
// The zero Buffer has no storage of its own: it reads as empty and, like a
// borrowed buffer, cannot be resized. Alloc(0) is a growable empty buffer.
type Buffer struct {
	s *storage
}

// Alloc returns a zero-filled owned buffer of size bytes.
func Alloc(size int) Buffer {
	if size < 0 {
		size = 0
	}
	return Buffer{s: &storage{data: make([]byte, size)}}
}

// AllocString allocates size bytes and fills them with s decoded by enc.
// Bytes beyond the decoded string stay zero; excess decoded bytes are dropped.
func AllocString(size int, s string, enc Encoding) (Buffer, error) {
	b := Alloc(size)
	if err := b.Fill(s, enc); err != nil {
		return Buffer{}, err
	}
	return b, nil
}

// From copies p into a new owned buffer.
func From(p []byte) Buffer {
	data := make([]byte, len(p))
	copy(data, p)
	return Buffer{s: &storage{data: data}}
}

// Own wraps p as an owned buffer without copying. The caller hands p over
// and must not touch it afterwards.
func Own(p []byte) Buffer {
	return Buffer{s: &storage{data: p}}
}

// FromString encodes s with enc into a new owned buffer.
func FromString(s string, enc Encoding) (Buffer, error) {
	data, err := Encode(s, enc)
	if err != nil {
		return Buffer{}, err
	}
	return Buffer{s: &storage{data: data}}, nil
}

// FromSlice wraps p without copying. The buffer is borrowed: writes land in
// p and its length is fixed.
func FromSlice(p []byte) Buffer {
	return Buffer{s: &storage{data: p[:len(p):len(p)], borrowed: true}}
}

// FromReference wraps size bytes at ptr without copying. The caller owns the
// memory and must keep it alive for as long as the buffer is used.
func FromReference(ptr unsafe.Pointer, size int) Buffer {
	if ptr == nil || size <= 0 {
		return Buffer{s: &storage{borrowed: true}}
	}
	return FromSlice(unsafe.Slice((*byte)(ptr), size))
}

// Concat joins bufs into a new owned buffer.
func Concat(bufs []Buffer) Buffer {
	return ConcatN(bufs, -1)
}

// ConcatN joins bufs and caps the result at limit bytes. A negative limit
// means no cap; a limit above the total length is clamped to it.
func ConcatN(bufs []Buffer, limit int) Buffer {
	total := 0
	for _, b := range bufs {
		total += b.Len()
	}
	if limit >= 0 && limit < total {
		total = limit
	}
	out := make([]byte, 0, total)
	for _, b := range bufs {
		if len(out) == total {
			break
		}
		b.View(func(p []byte) {
			n := min(total-len(out), len(p))
			out = append(out, p[:n]...)
		})
	}
	return Buffer{s: &storage{data: out}}
}

// Atob decodes base64 and returns the bytes as a latin1 string.
func Atob(s string) (string, error) {
	raw, err := Encode(s, Base64)
	if err != nil {
		return "", err
	}
	return Decode(raw, Latin1)
}

// Btoa base64-encodes the UTF-8 bytes of s.
func Btoa(s string) string {
	out, _ := Decode([]byte(s), Base64)
	return out
}

// Len returns the number of bytes in the buffer.
func (b Buffer) Len() int {
	if b.s == nil {
		return 0
	}
	b.s.mu.RLock()
	defer b.s.mu.RUnlock()
	return len(b.s.data)
}

// IsBorrowed reports whether the bytes belong to the caller.
func (b Buffer) IsBorrowed() bool {
	return b.s != nil && b.s.borrowed
}

// Clone returns another handle onto the same storage.
func (b Buffer) Clone() Buffer {
	return b
}

// Copy returns an owned deep copy.
func (b Buffer) Copy() Buffer {
	var out Buffer
	b.View(func(p []byte) { out = From(p) })
	if out.s == nil {
		out = Alloc(0)
	}
	return out
}

// Bytes returns a copy of the contents.
func (b Buffer) Bytes() []byte {
	var out []byte
	b.View(func(p []byte) {
		out = make([]byte, len(p))
		copy(out, p)
	})
	return out
}

// View runs fn with read access to the bytes. fn must not retain p.
func (b Buffer) View(fn func(p []byte)) {
	if b.s == nil {
		fn(nil)
		return
	}
	b.s.mu.RLock()
	defer b.s.mu.RUnlock()
	fn(b.s.data)
}

// With runs fn with write access to the bytes. For borrowed buffers p aliases
// the caller's memory. fn must not retain p.
func (b Buffer) With(fn func(p []byte)) {
	if b.s == nil {
		fn(nil)
		return
	}
	b.s.mu.Lock()
	defer b.s.mu.Unlock()
	fn(b.s.data)
}

// Resize grows or shrinks an owned buffer in place. New bytes are zero.
func (b Buffer) Resize(n int) error {
	if b.s == nil {
		return fmt.Errorf("%w: zero buffer", ErrBorrowedResize)
	}
	if n < 0 {
		return fmt.Errorf("%w: size %d", ErrOutOfRange, n)
	}
	b.s.mu.Lock()
	defer b.s.mu.Unlock()
	if b.s.borrowed {
		return ErrBorrowedResize
	}
	switch {
	case n <= len(b.s.data):
		b.s.data = b.s.data[:n]
	case n <= cap(b.s.data):
		old := len(b.s.data)
		b.s.data = b.s.data[:n]
		clear(b.s.data[old:])
	default:
		grown := make([]byte, n)
		copy(grown, b.s.data)
		b.s.data = grown
	}
	return nil
}

// Fill writes s, decoded by enc, from the start of the buffer. Output is
// truncated at the buffer length; bytes past the decoded value are untouched.
func (b Buffer) Fill(s string, enc Encoding) error {
	src, err := Encode(s, enc)
	if err != nil {
		return err
	}
	b.With(func(p []byte) { copy(p, src) })
	return nil
}

// ToString decodes bytes [start, end) with enc. A negative end means the
// buffer length.
func (b Buffer) ToString(enc Encoding, start, end int) (string, error) {
	var (
		out string
		err error
	)
	b.View(func(p []byte) {
		if end < 0 {
			end = len(p)
		}
		if start < 0 || start > end || end > len(p) {
			err = fmt.Errorf("%w: range [%d, %d) of %d", ErrOutOfRange, start, end, len(p))
			return
		}
		out, err = Decode(p[start:end], enc)
	})
	return out, err
}

// String renders the buffer the way Node.js inspects it: <Buffer 68 69>.
func (b Buffer) String() string {
	var sb strings.Builder
	sb.WriteString("<Buffer ")
	b.View(func(p []byte) {
		for i, c := range p {
			if i > 0 {
				sb.WriteByte(' ')
			}
			fmt.Fprintf(&sb, "%02x", c)
		}
	})
	sb.WriteByte('>')
	return sb.String()
}
