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
	"golang.org/x/sys/unix"

	"nodefs/fserr"
)

// Darwin has no fdatasync; a plain fsync flushes data and metadata.
func fdatasync(fd int) error {
	return unix.Fsync(fd)
}

// clonefile(2) works on paths, not descriptors; copies fall back to a
// plain byte copy.
func cloneFile(dst, src int) error {
	return fserr.ENOTSUP
}
