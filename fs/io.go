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

	"golang.org/x/sys/unix"

	"nodefs/buffer"
	"nodefs/fserr"
)

func checkRange(size, offset, length int) error {
	if offset < 0 || offset > size {
		return fserr.RangeError(fmt.Sprintf(`The value of "offset" is out of range. It must be >= 0 && <= %d. Received %d`, size, offset))
	}
	if length < 0 || length > size-offset {
		return fserr.RangeError(fmt.Sprintf(`The value of "length" is out of range. It must be >= 0 && <= %d. Received %d`, size-offset, length))
	}
	return nil
}

func readAt(fd int, p []byte, position int64) (int, error) {
	if position < 0 {
		return unix.Read(fd, p)
	}
	return unix.Pread(fd, p, position)
}

func writeAt(fd int, p []byte, position int64) (int, error) {
	if position < 0 {
		return unix.Write(fd, p)
	}
	return unix.Pwrite(fd, p, position)
}

// Read fills buf[offset:offset+length] from fd. A negative position reads
// from the current file position and advances it. Reading past the end of
// the file returns 0 with no error.
func Read(fd int, buf buffer.Buffer, offset, length int, position int64) (int, error) {
	var (
		n   int
		err error
	)
	buf.With(func(p []byte) {
		if err = checkRange(len(p), offset, length); err != nil {
			return
		}
		if n, err = readAt(fd, p[offset:offset+length], position); err != nil {
			err = fserr.FromOS(err, "read")
		}
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

// Write writes part of buf to fd. A nil opts writes the whole buffer at the
// current position.
func Write(fd int, buf buffer.Buffer, opts *WriteOptions) (int, error) {
	o := DefaultWriteOptions()
	if opts != nil {
		o = *opts
	}
	var (
		n   int
		err error
	)
	buf.View(func(p []byte) {
		length := o.Length
		if length < 0 && o.Offset >= 0 && o.Offset <= len(p) {
			length = len(p) - o.Offset
		}
		if err = checkRange(len(p), o.Offset, length); err != nil {
			return
		}
		if n, err = writeAt(fd, p[o.Offset:o.Offset+length], o.Position); err != nil {
			err = fserr.FromOS(err, "write")
		}
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

// WriteString encodes s and writes it at position (negative = current).
func WriteString(fd int, s string, enc buffer.Encoding, position int64) (int, error) {
	data, err := buffer.Encode(s, enc)
	if err != nil {
		return 0, fserr.TypeError(err.Error())
	}
	n, err := writeAt(fd, data, position)
	if err != nil {
		return 0, fserr.FromOS(err, "write")
	}
	return n, nil
}

// Readv fills bufs in order and stops at the first short read. The result
// is the total number of bytes read.
func Readv(fd int, bufs []buffer.Buffer, position int64) (int, error) {
	total := 0
	for _, b := range bufs {
		want := b.Len()
		if want == 0 {
			continue
		}
		pos := position
		if pos >= 0 {
			pos += int64(total)
		}
		n, err := Read(fd, b, 0, want, pos)
		if err != nil {
			return total, err
		}
		total += n
		if n < want {
			break
		}
	}
	return total, nil
}

// Writev writes bufs in order and stops at the first short write.
func Writev(fd int, bufs []buffer.Buffer, position int64) (int, error) {
	total := 0
	for _, b := range bufs {
		want := b.Len()
		if want == 0 {
			continue
		}
		pos := position
		if pos >= 0 {
			pos += int64(total)
		}
		n, err := Write(fd, b, &WriteOptions{Length: want, Position: pos})
		if err != nil {
			return total, err
		}
		total += n
		if n < want {
			break
		}
	}
	return total, nil
}

// readAll drains fd from its current position.
func readAll(fd int) ([]byte, error) {
	size := 0
	var st unix.Stat_t
	if err := unix.Fstat(fd, &st); err == nil && st.Mode&unix.S_IFMT == unix.S_IFREG {
		size = int(st.Size)
	}
	data := make([]byte, 0, size+512)
	for {
		if len(data) == cap(data) {
			data = append(data, 0)[:len(data)]
		}
		n, err := unix.Read(fd, data[len(data):cap(data)])
		if err == fserr.EINTR {
			continue
		}
		if err != nil {
			return nil, err
		}
		if n == 0 {
			return data, nil
		}
		data = data[:len(data)+n]
	}
}

func writeAll(fd int, data []byte) error {
	for len(data) > 0 {
		n, err := unix.Write(fd, data)
		if err == fserr.EINTR {
			continue
		}
		if err != nil {
			return err
		}
		data = data[n:]
	}
	return nil
}
