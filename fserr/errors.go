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

// Package fserr is the error model shared by the engine: every failure is a
// class name plus a message, optionally carrying the errno it came from.
package fserr

import (
	"errors"
	"fmt"
	"strings"
	"syscall"

	"golang.org/x/sys/unix"
)

// Error classes that are not derived from an errno.
const (
	ClassGeneric = "Error"
	ClassType    = "TypeError"
	ClassRange   = "RangeError"
)

// Error is a class/message pair. OS failures also record the errno, its
// symbolic code, the syscall and the paths involved.
type Error struct {
	Class   string
	Message string
	Code    string
	Errno   syscall.Errno
	Syscall string
	Path    string
	Dest    string
}

func (e *Error) Error() string {
	return e.Message
}

// Unwrap exposes the errno so errors.Is(err, fs.ErrNotExist) works.
func (e *Error) Unwrap() error {
	if e.Errno == 0 {
		return nil
	}
	return e.Errno
}

// Custom builds an error with an explicit class. NUL bytes are removed from
// both fields since host bindings hand them to C string APIs.
func Custom(class, message string) *Error {
	if class == "" {
		class = ClassGeneric
	}
	return &Error{Class: sanitize(class), Message: sanitize(message)}
}

// Generic builds an "Error" class error.
func Generic(message string) *Error {
	return Custom(ClassGeneric, message)
}

// TypeError builds a "TypeError" class error, used for invalid arguments.
func TypeError(message string) *Error {
	return Custom(ClassType, message)
}

// RangeError builds a "RangeError" class error, used for bad offsets.
func RangeError(message string) *Error {
	return Custom(ClassRange, message)
}

// BadDescriptor is returned by any operation on a closed handle.
func BadDescriptor(syscallName string) *Error {
	return FromErrno(EBADF, syscallName, "", "")
}

// NotImplemented marks an operation that the engine deliberately omits.
func NotImplemented(op string) *Error {
	e := Generic(fmt.Sprintf("The %s() method is not implemented", op))
	e.Code = "ERR_METHOD_NOT_IMPLEMENTED"
	return e
}

// FromErrno renders errno the way Node.js does:
//
//	ENOENT: no such file or directory, open '/tmp/x'
func FromErrno(errno syscall.Errno, syscallName, path, dest string) *Error {
	code := CodeName(errno)
	var sb strings.Builder
	sb.WriteString(code)
	sb.WriteString(": ")
	sb.WriteString(errno.Error())
	if syscallName != "" {
		sb.WriteString(", ")
		sb.WriteString(syscallName)
	}
	if path != "" {
		fmt.Fprintf(&sb, " '%s'", path)
	}
	if dest != "" {
		fmt.Fprintf(&sb, " -> '%s'", dest)
	}
	return &Error{
		Class:   ClassOf(errno),
		Message: sanitize(sb.String()),
		Code:    code,
		Errno:   errno,
		Syscall: syscallName,
		Path:    sanitize(path),
		Dest:    sanitize(dest),
	}
}

// FromOS converts any error returned by an OS call. An *Error passes through
// unchanged; errors without an errno become generic errors.
func FromOS(err error, syscallName string, paths ...string) error {
	if err == nil {
		return nil
	}
	var fe *Error
	if errors.As(err, &fe) {
		return fe
	}
	var errno syscall.Errno
	if errors.As(err, &errno) {
		var path, dest string
		if len(paths) > 0 {
			path = paths[0]
		}
		if len(paths) > 1 {
			dest = paths[1]
		}
		return FromErrno(errno, syscallName, path, dest)
	}
	return Generic(err.Error())
}

// ClassOf returns the class for an error. Unknown errors are "Error".
func ClassOf(err error) string {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Class
	}
	var errno syscall.Errno
	if errors.As(err, &errno) {
		if class, ok := errnoClasses[errno]; ok {
			return class
		}
	}
	return ClassGeneric
}

// CodeOf returns the symbolic code (ENOENT, ...) or "" when there is none.
func CodeOf(err error) string {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return CodeName(errno)
	}
	return ""
}

// CodeName returns the symbolic name of errno.
func CodeName(errno syscall.Errno) string {
	if name := unix.ErrnoName(errno); name != "" {
		return name
	}
	return fmt.Sprintf("E%d", int(errno))
}

func sanitize(s string) string {
	if strings.IndexByte(s, 0) < 0 {
		return s
	}
	return strings.ReplaceAll(s, "\x00", "")
}
