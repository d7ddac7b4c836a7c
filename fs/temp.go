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

	"github.com/google/uuid"
	"golang.org/x/sys/unix"

	"nodefs/fserr"
	"nodefs/internal/util"
)

const tempSuffixLen = 8

func tempSuffix() string {
	return uuid.NewString()[:tempSuffixLen]
}

// Mkdtemp creates a directory named prefix plus a random suffix with mode
// 0o700. Name collisions are retried until a free name is found; every
// other error is returned immediately.
func Mkdtemp(prefix string) (string, error) {
	return util.RetryWithResult(context.Background(), func() (string, error) {
		name := prefix + tempSuffix()
		if err := unix.Mkdir(name, 0o700); err != nil {
			return "", fserr.FromOS(err, "mkdtemp", prefix+"XXXXXX")
		}
		return name, nil
	}, util.TempNameRetryOptions(context.Background())...)
}

// MkTempFile creates and opens a new file in dir with mode 0o600. The
// caller owns the returned descriptor.
func MkTempFile(dir, prefix string) (string, int, error) {
	type created struct {
		name string
		fd   int
	}
	res, err := util.RetryWithResult(context.Background(), func() (created, error) {
		name := dir + "/" + prefix + tempSuffix()
		fd, err := unix.Open(name, unix.O_RDWR|unix.O_CREAT|unix.O_EXCL|unix.O_CLOEXEC, 0o600)
		if err != nil {
			return created{}, fserr.FromOS(err, "open", name)
		}
		return created{name, fd}, nil
	}, util.TempNameRetryOptions(context.Background())...)
	if err != nil {
		return "", -1, err
	}
	return res.name, res.fd, nil
}
