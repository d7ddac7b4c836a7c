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

package fserr

import (
	"errors"
	"io/fs"
	"os"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromErrnoMessage(t *testing.T) {
	t.Parallel()

	err := FromErrno(syscall.ENOENT, "open", "/tmp/missing", "")
	assert.Equal(t, "NotFound", err.Class)
	assert.Equal(t, "ENOENT", err.Code)
	assert.Equal(t, "ENOENT: no such file or directory, open '/tmp/missing'", err.Error())

	err = FromErrno(syscall.EEXIST, "link", "/a", "/b")
	assert.Equal(t, "AlreadyExists", err.Class)
	assert.Equal(t, "EEXIST: file exists, link '/a' -> '/b'", err.Error())
}

func TestFromOS(t *testing.T) {
	t.Parallel()

	_, osErr := os.Open("/definitely/not/here")
	require.Error(t, osErr)

	err := FromOS(osErr, "open", "/definitely/not/here")
	assert.Equal(t, "NotFound", ClassOf(err))
	assert.Equal(t, "ENOENT", CodeOf(err))
	assert.True(t, errors.Is(err, fs.ErrNotExist))

	assert.NoError(t, FromOS(nil, "open"))

	plain := FromOS(errors.New("boom"), "open")
	assert.Equal(t, ClassGeneric, ClassOf(plain))
	assert.Equal(t, "boom", plain.Error())
	assert.Empty(t, CodeOf(plain))

	custom := TypeError("invalid type")
	assert.Same(t, custom, FromOS(custom, "open"))
}

func TestErrorClasses(t *testing.T) {
	t.Parallel()

	tests := []struct {
		errno syscall.Errno
		class string
	}{
		{syscall.EACCES, "PermissionDenied"},
		{syscall.EPERM, "PermissionDenied"},
		{syscall.ENOTDIR, "NotADirectory"},
		{syscall.EISDIR, "IsADirectory"},
		{syscall.ENOTEMPTY, "DirectoryNotEmpty"},
		{syscall.EINVAL, "InvalidInput"},
		{syscall.EMFILE, ClassGeneric},
	}
	for _, tt := range tests {
		t.Run(CodeName(tt.errno), func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.class, ClassOf(tt.errno))
		})
	}
}

func TestCustomStripsNUL(t *testing.T) {
	t.Parallel()

	err := Custom("Type\x00Error", "bad\x00 input")
	assert.Equal(t, "TypeError", err.Class)
	assert.Equal(t, "bad input", err.Message)

	err = FromErrno(syscall.ENOENT, "open", "a\x00b", "")
	assert.Equal(t, "ab", err.Path)
	assert.NotContains(t, err.Message, "\x00")

	assert.Equal(t, ClassGeneric, Custom("", "x").Class)
}

func TestBadDescriptorAndNotImplemented(t *testing.T) {
	t.Parallel()

	err := BadDescriptor("read")
	assert.Equal(t, "EBADF", err.Code)
	assert.Equal(t, "EBADF: bad file descriptor, read", err.Error())
	assert.True(t, errors.Is(err, syscall.EBADF))
	assert.Equal(t, EBADF, err.Errno)

	ni := NotImplemented("cp")
	assert.Equal(t, ClassGeneric, ni.Class)
	assert.Equal(t, "ERR_METHOD_NOT_IMPLEMENTED", ni.Code)
	assert.NoError(t, ni.Unwrap())
}
