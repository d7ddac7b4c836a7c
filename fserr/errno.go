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
	"syscall"

	"golang.org/x/sys/unix"
)

// Errno values the engine checks for or raises itself.
var (
	ENOENT  = unix.ENOENT  // No such file or directory
	EEXIST  = unix.EEXIST  // File exists
	ENOTDIR = unix.ENOTDIR // Not a directory
	EISDIR  = unix.EISDIR  // Is a directory
	EBADF   = unix.EBADF   // Bad file descriptor
	EINVAL  = unix.EINVAL  // Invalid argument
	EINTR   = unix.EINTR   // Interrupted system call
	ENOTSUP = unix.ENOTSUP // Operation not supported
	EMFILE  = unix.EMFILE  // Too many open files
	ENFILE  = unix.ENFILE  // Too many open files in system
)

// errnoClasses maps OS error kinds onto the class names hosts expect.
var errnoClasses = map[syscall.Errno]string{
	unix.ENOENT:        "NotFound",
	unix.EACCES:        "PermissionDenied",
	unix.EPERM:         "PermissionDenied",
	unix.EEXIST:        "AlreadyExists",
	unix.ENOTDIR:       "NotADirectory",
	unix.EISDIR:        "IsADirectory",
	unix.ENOTEMPTY:     "DirectoryNotEmpty",
	unix.ELOOP:         "FilesystemLoop",
	unix.EINVAL:        "InvalidInput",
	unix.EBUSY:         "Busy",
	unix.ETIMEDOUT:     "TimedOut",
	unix.EINTR:         "Interrupted",
	unix.EAGAIN:        "WouldBlock",
	unix.EPIPE:         "BrokenPipe",
	unix.ECONNREFUSED:  "ConnectionRefused",
	unix.ECONNRESET:    "ConnectionReset",
	unix.ECONNABORTED:  "ConnectionAborted",
	unix.ENOTCONN:      "NotConnected",
	unix.EADDRINUSE:    "AddrInUse",
	unix.EADDRNOTAVAIL: "AddrNotAvailable",
	unix.ENOTSUP:       "NotSupported",
	unix.ENOSYS:        "NotSupported",
}
