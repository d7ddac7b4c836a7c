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
	"context"
	"errors"
	"os"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"nodefs/fserr"
	"nodefs/internal/util"
)

// Rmdir removes an empty directory. With Recursive it removes the whole
// tree, retrying "too many open files" failures up to MaxRetries times
// with exponential backoff.
func Rmdir(path string, opts *RmDirOptions) error {
	var o RmDirOptions
	if opts != nil {
		o = *opts
	}
	if !o.Recursive {
		return fserr.FromOS(unix.Rmdir(path), "rmdir", path)
	}
	if _, err := Lstat(path); err != nil {
		return fserr.FromOS(err, "rmdir", path)
	}
	return removeWithRetry("rmdir", path, o.MaxRetries, o.RetryDelay, os.RemoveAll)
}

// Rm removes files and, with Recursive, directories. Force ignores a
// missing path.
func Rm(path string, opts *RmOptions) error {
	var o RmOptions
	if opts != nil {
		o = *opts
	}
	st, err := Lstat(path)
	if err != nil {
		if o.Force && errors.Is(err, fserr.ENOENT) {
			return nil
		}
		return fserr.FromOS(err, "rm", path)
	}
	if st.IsDirectory() && !o.Recursive {
		e := fserr.FromErrno(fserr.EISDIR, "rm", path, "")
		e.Message = "Path is a directory: rm returned EISDIR (is a directory) " + path
		e.Code = "ERR_FS_EISDIR"
		return e
	}
	if !o.Recursive {
		return fserr.FromOS(unix.Unlink(path), "rm", path)
	}
	err = removeWithRetry("rm", path, o.MaxRetries, o.RetryDelay, os.RemoveAll)
	if err != nil && o.Force && errors.Is(err, fserr.ENOENT) {
		return nil
	}
	return err
}

// removeWithRetry runs remove up to maxRetries+1 times. Only "too many open
// files" failures are retried; any other error is returned at once.
func removeWithRetry(op, path string, maxRetries int, delay time.Duration, remove func(string) error) error {
	if delay <= 0 {
		delay = defaultRetryDelay
	}
	attempts := 0
	err := util.Retry(context.Background(), func() error {
		attempts++
		return fserr.FromOS(remove(path), op, path)
	}, util.RemoveRetryOptions(context.Background(), maxRetries, delay)...)
	if err != nil {
		log.Debugf("[fs.%s] %s failed after %d attempts: %v", op, path, attempts, err)
	}
	return err
}
