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
	"os"

	"golang.org/x/sys/unix"
)

// Dirent is one directory entry. Raw entries come from the kernel's
// directory stream; library entries come from os.DirEntry. Both answer
// the same questions.
type Dirent interface {
	Name() string
	// Path is the directory that contains the entry.
	Path() string
	IsFile() bool
	IsDirectory() bool
	IsSymbolicLink() bool
	IsFIFO() bool
	IsSocket() bool
	IsBlockDevice() bool
	IsCharacterDevice() bool
}

// rawDirent carries the d_type byte reported by getdents.
type rawDirent struct {
	name   string
	parent string
	dtype  uint8
}

func (d *rawDirent) Name() string            { return d.name }
func (d *rawDirent) Path() string            { return d.parent }
func (d *rawDirent) IsFile() bool            { return d.dtype == unix.DT_REG }
func (d *rawDirent) IsDirectory() bool       { return d.dtype == unix.DT_DIR }
func (d *rawDirent) IsSymbolicLink() bool    { return d.dtype == unix.DT_LNK }
func (d *rawDirent) IsFIFO() bool            { return d.dtype == unix.DT_FIFO }
func (d *rawDirent) IsSocket() bool          { return d.dtype == unix.DT_SOCK }
func (d *rawDirent) IsBlockDevice() bool     { return d.dtype == unix.DT_BLK }
func (d *rawDirent) IsCharacterDevice() bool { return d.dtype == unix.DT_CHR }

func dtypeFromMode(mode uint32) uint8 {
	switch mode & unix.S_IFMT {
	case unix.S_IFREG:
		return unix.DT_REG
	case unix.S_IFDIR:
		return unix.DT_DIR
	case unix.S_IFLNK:
		return unix.DT_LNK
	case unix.S_IFIFO:
		return unix.DT_FIFO
	case unix.S_IFSOCK:
		return unix.DT_SOCK
	case unix.S_IFBLK:
		return unix.DT_BLK
	case unix.S_IFCHR:
		return unix.DT_CHR
	}
	return unix.DT_UNKNOWN
}

// libDirent is built from the type bits of an os.DirEntry.
type libDirent struct {
	name   string
	parent string
	typ    os.FileMode
}

func newLibDirent(parent string, e os.DirEntry) *libDirent {
	return &libDirent{name: e.Name(), parent: parent, typ: e.Type()}
}

func (d *libDirent) Name() string         { return d.name }
func (d *libDirent) Path() string         { return d.parent }
func (d *libDirent) IsFile() bool         { return d.typ.IsRegular() }
func (d *libDirent) IsDirectory() bool    { return d.typ.IsDir() }
func (d *libDirent) IsSymbolicLink() bool { return d.typ&os.ModeSymlink != 0 }
func (d *libDirent) IsFIFO() bool         { return d.typ&os.ModeNamedPipe != 0 }
func (d *libDirent) IsSocket() bool       { return d.typ&os.ModeSocket != 0 }

func (d *libDirent) IsBlockDevice() bool {
	return d.typ&os.ModeDevice != 0 && d.typ&os.ModeCharDevice == 0
}

func (d *libDirent) IsCharacterDevice() bool {
	return d.typ&os.ModeCharDevice != 0
}
