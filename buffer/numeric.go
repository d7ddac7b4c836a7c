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

package buffer

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Fixed-width accessors. Every accessor takes an optional byte offset that
// defaults to 0; an access that would run past the end returns ErrOutOfRange.

func offsetArg(offset []int) int {
	if len(offset) == 0 {
		return 0
	}
	return offset[0]
}

func (b Buffer) load(width int, offset []int, fn func(p []byte)) error {
	off := offsetArg(offset)
	var err error
	b.View(func(p []byte) {
		if off < 0 || off > len(p)-width {
			err = fmt.Errorf("%w: offset %d width %d length %d", ErrOutOfRange, off, width, len(p))
			return
		}
		fn(p[off : off+width])
	})
	return err
}

func (b Buffer) store(width int, offset []int, fn func(p []byte)) error {
	off := offsetArg(offset)
	var err error
	b.With(func(p []byte) {
		if off < 0 || off > len(p)-width {
			err = fmt.Errorf("%w: offset %d width %d length %d", ErrOutOfRange, off, width, len(p))
			return
		}
		fn(p[off : off+width])
	})
	return err
}

func (b Buffer) ReadInt8(offset ...int) (int8, error) {
	v, err := b.ReadUint8(offset...)
	return int8(v), err
}

func (b Buffer) ReadUint8(offset ...int) (v uint8, err error) {
	err = b.load(1, offset, func(p []byte) { v = p[0] })
	return
}

func (b Buffer) WriteInt8(v int8, offset ...int) error {
	return b.WriteUint8(uint8(v), offset...)
}

func (b Buffer) WriteUint8(v uint8, offset ...int) error {
	return b.store(1, offset, func(p []byte) { p[0] = v })
}

func (b Buffer) ReadUint16BE(offset ...int) (v uint16, err error) {
	err = b.load(2, offset, func(p []byte) { v = binary.BigEndian.Uint16(p) })
	return
}

func (b Buffer) ReadUint16LE(offset ...int) (v uint16, err error) {
	err = b.load(2, offset, func(p []byte) { v = binary.LittleEndian.Uint16(p) })
	return
}

func (b Buffer) ReadInt16BE(offset ...int) (int16, error) {
	v, err := b.ReadUint16BE(offset...)
	return int16(v), err
}

func (b Buffer) ReadInt16LE(offset ...int) (int16, error) {
	v, err := b.ReadUint16LE(offset...)
	return int16(v), err
}

func (b Buffer) WriteUint16BE(v uint16, offset ...int) error {
	return b.store(2, offset, func(p []byte) { binary.BigEndian.PutUint16(p, v) })
}

func (b Buffer) WriteUint16LE(v uint16, offset ...int) error {
	return b.store(2, offset, func(p []byte) { binary.LittleEndian.PutUint16(p, v) })
}

func (b Buffer) WriteInt16BE(v int16, offset ...int) error {
	return b.WriteUint16BE(uint16(v), offset...)
}

func (b Buffer) WriteInt16LE(v int16, offset ...int) error {
	return b.WriteUint16LE(uint16(v), offset...)
}

func (b Buffer) ReadUint32BE(offset ...int) (v uint32, err error) {
	err = b.load(4, offset, func(p []byte) { v = binary.BigEndian.Uint32(p) })
	return
}

func (b Buffer) ReadUint32LE(offset ...int) (v uint32, err error) {
	err = b.load(4, offset, func(p []byte) { v = binary.LittleEndian.Uint32(p) })
	return
}

func (b Buffer) ReadInt32BE(offset ...int) (int32, error) {
	v, err := b.ReadUint32BE(offset...)
	return int32(v), err
}

func (b Buffer) ReadInt32LE(offset ...int) (int32, error) {
	v, err := b.ReadUint32LE(offset...)
	return int32(v), err
}

func (b Buffer) WriteUint32BE(v uint32, offset ...int) error {
	return b.store(4, offset, func(p []byte) { binary.BigEndian.PutUint32(p, v) })
}

func (b Buffer) WriteUint32LE(v uint32, offset ...int) error {
	return b.store(4, offset, func(p []byte) { binary.LittleEndian.PutUint32(p, v) })
}

func (b Buffer) WriteInt32BE(v int32, offset ...int) error {
	return b.WriteUint32BE(uint32(v), offset...)
}

func (b Buffer) WriteInt32LE(v int32, offset ...int) error {
	return b.WriteUint32LE(uint32(v), offset...)
}

func (b Buffer) ReadBigUint64BE(offset ...int) (v uint64, err error) {
	err = b.load(8, offset, func(p []byte) { v = binary.BigEndian.Uint64(p) })
	return
}

func (b Buffer) ReadBigUint64LE(offset ...int) (v uint64, err error) {
	err = b.load(8, offset, func(p []byte) { v = binary.LittleEndian.Uint64(p) })
	return
}

func (b Buffer) ReadBigInt64BE(offset ...int) (int64, error) {
	v, err := b.ReadBigUint64BE(offset...)
	return int64(v), err
}

func (b Buffer) ReadBigInt64LE(offset ...int) (int64, error) {
	v, err := b.ReadBigUint64LE(offset...)
	return int64(v), err
}

func (b Buffer) WriteBigUint64BE(v uint64, offset ...int) error {
	return b.store(8, offset, func(p []byte) { binary.BigEndian.PutUint64(p, v) })
}

func (b Buffer) WriteBigUint64LE(v uint64, offset ...int) error {
	return b.store(8, offset, func(p []byte) { binary.LittleEndian.PutUint64(p, v) })
}

func (b Buffer) WriteBigInt64BE(v int64, offset ...int) error {
	return b.WriteBigUint64BE(uint64(v), offset...)
}

func (b Buffer) WriteBigInt64LE(v int64, offset ...int) error {
	return b.WriteBigUint64LE(uint64(v), offset...)
}

// ReadBigInt64Bytes returns the eight raw bytes at offset, for hosts that
// carry 64-bit integers as byte arrays.
func (b Buffer) ReadBigInt64Bytes(offset ...int) (out [8]byte, err error) {
	err = b.load(8, offset, func(p []byte) { copy(out[:], p) })
	return
}

// WriteBigInt64Bytes stores eight raw bytes at offset.
func (b Buffer) WriteBigInt64Bytes(v [8]byte, offset ...int) error {
	return b.store(8, offset, func(p []byte) { copy(p, v[:]) })
}

func (b Buffer) ReadFloatBE(offset ...int) (float32, error) {
	v, err := b.ReadUint32BE(offset...)
	return math.Float32frombits(v), err
}

func (b Buffer) ReadFloatLE(offset ...int) (float32, error) {
	v, err := b.ReadUint32LE(offset...)
	return math.Float32frombits(v), err
}

func (b Buffer) WriteFloatBE(v float32, offset ...int) error {
	return b.WriteUint32BE(math.Float32bits(v), offset...)
}

func (b Buffer) WriteFloatLE(v float32, offset ...int) error {
	return b.WriteUint32LE(math.Float32bits(v), offset...)
}

func (b Buffer) ReadDoubleBE(offset ...int) (float64, error) {
	v, err := b.ReadBigUint64BE(offset...)
	return math.Float64frombits(v), err
}

func (b Buffer) ReadDoubleLE(offset ...int) (float64, error) {
	v, err := b.ReadBigUint64LE(offset...)
	return math.Float64frombits(v), err
}

func (b Buffer) WriteDoubleBE(v float64, offset ...int) error {
	return b.WriteBigUint64BE(math.Float64bits(v), offset...)
}

func (b Buffer) WriteDoubleLE(v float64, offset ...int) error {
	return b.WriteBigUint64LE(math.Float64bits(v), offset...)
}
