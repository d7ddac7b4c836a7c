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
	"io"
	"os"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"nodefs/buffer"
	"nodefs/fserr"
)

// ReadFile reads the whole file. For an Fd target reading starts at the
// current position and the descriptor stays open.
func ReadFile(f File, opts *ReadFileOptions) (FsEncoding, error) {
	o := DefaultReadFileOptions()
	if opts != nil {
		o = *opts
	}
	fd := f.fd
	if !f.isFd {
		var err error
		if fd, err = Open(f.path, o.Flag, 0); err != nil {
			return FsEncoding{}, err
		}
		defer unix.Close(fd)
	}
	data, err := readAll(fd)
	if err != nil {
		return FsEncoding{}, fserr.FromOS(err, "read", f.String())
	}
	return encodeResult(data, valueOr(o.Encoding, EncodingBuffer))
}

// WriteFile replaces the contents of the target with data.
func WriteFile(f File, data Payload, opts *WriteFileOptions) error {
	return writeFile("write", f, data, DefaultWriteFileOptions(), opts)
}

// AppendFile appends data, creating the file when missing.
func AppendFile(f File, data Payload, opts *WriteFileOptions) error {
	return writeFile("append", f, data, DefaultAppendFileOptions(), opts)
}

func writeFile(op string, f File, data Payload, defaults WriteFileOptions, opts *WriteFileOptions) error {
	o := defaults
	if opts != nil {
		o = *opts
		if o.Flag == 0 {
			o.Flag = defaults.Flag
		}
		if o.Mode == 0 {
			o.Mode = defaults.Mode
		}
	}
	p, err := data.data(valueOr(o.Encoding, buffer.Utf8))
	if err != nil {
		return err
	}
	fd := f.fd
	if !f.isFd {
		if fd, err = Open(f.path, o.Flag, o.Mode); err != nil {
			return err
		}
		defer unix.Close(fd)
	}
	if err := writeAll(fd, p); err != nil {
		return fserr.FromOS(err, "write", f.String())
	}
	log.Tracef("[fs.%sFile] wrote %d bytes to %s", op, len(p), f.String())
	return nil
}

// CopyFile copies src to dst. COPYFILE_EXCL fails when dst exists,
// COPYFILE_FICLONE tries a copy-on-write clone first and
// COPYFILE_FICLONE_FORCE fails when cloning is unsupported.
func CopyFile(src, dst string, mode int) error {
	in, err := os.Open(src)
	if err != nil {
		return fserr.FromOS(err, "copyfile", src, dst)
	}
	defer in.Close()
	st, err := in.Stat()
	if err != nil {
		return fserr.FromOS(err, "copyfile", src, dst)
	}
	if st.IsDir() {
		return fserr.FromErrno(fserr.EISDIR, "copyfile", src, dst)
	}

	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if mode&COPYFILE_EXCL != 0 {
		flags |= os.O_EXCL
	}
	out, err := os.OpenFile(dst, flags, st.Mode().Perm())
	if err != nil {
		return fserr.FromOS(err, "copyfile", src, dst)
	}
	defer out.Close()

	if mode&(COPYFILE_FICLONE|COPYFILE_FICLONE_FORCE) != 0 {
		err := cloneFile(int(out.Fd()), int(in.Fd()))
		if err == nil {
			return nil
		}
		if mode&COPYFILE_FICLONE_FORCE != 0 {
			return fserr.FromOS(err, "copyfile", src, dst)
		}
		log.Debugf("[fs.CopyFile] clone %s failed, copying bytes: %v", src, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		return fserr.FromOS(err, "copyfile", src, dst)
	}
	return fserr.FromOS(out.Close(), "copyfile", src, dst)
}
