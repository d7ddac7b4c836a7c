package buffer

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOppositeEndianness(t *testing.T) {
	t.Parallel()

	b := Alloc(4)
	require.NoError(t, b.WriteUint32BE(0xDEADBEEF, 0))

	le, err := b.ReadUint32LE(0)
	require.NoError(t, err)
	assert.Equal(t, uint32(0xEFBEADDE), le)
}

func TestIntegerRoundTrip(t *testing.T) {
	t.Parallel()

	b := Alloc(16)

	require.NoError(t, b.WriteInt8(-5, 1))
	i8, err := b.ReadInt8(1)
	require.NoError(t, err)
	assert.Equal(t, int8(-5), i8)

	require.NoError(t, b.WriteInt16BE(-1234, 2))
	i16, err := b.ReadInt16BE(2)
	require.NoError(t, err)
	assert.Equal(t, int16(-1234), i16)

	require.NoError(t, b.WriteInt16LE(-1234, 2))
	i16, err = b.ReadInt16LE(2)
	require.NoError(t, err)
	assert.Equal(t, int16(-1234), i16)

	require.NoError(t, b.WriteUint16LE(0xBEEF, 4))
	u16, err := b.ReadUint16BE(4)
	require.NoError(t, err)
	assert.Equal(t, uint16(0xEFBE), u16)

	require.NoError(t, b.WriteInt32LE(math.MinInt32, 4))
	i32, err := b.ReadInt32LE(4)
	require.NoError(t, err)
	assert.Equal(t, int32(math.MinInt32), i32)

	require.NoError(t, b.WriteInt32BE(-7, 4))
	i32, err = b.ReadInt32BE(4)
	require.NoError(t, err)
	assert.Equal(t, int32(-7), i32)

	require.NoError(t, b.WriteBigInt64BE(math.MinInt64, 8))
	i64, err := b.ReadBigInt64BE(8)
	require.NoError(t, err)
	assert.Equal(t, int64(math.MinInt64), i64)

	require.NoError(t, b.WriteBigUint64LE(0x0102030405060708, 8))
	u64, err := b.ReadBigUint64BE(8)
	require.NoError(t, err)
	assert.Equal(t, uint64(0x0807060504030201), u64)

	raw, err := b.ReadBigInt64Bytes(8)
	require.NoError(t, err)
	assert.Equal(t, [8]byte{8, 7, 6, 5, 4, 3, 2, 1}, raw)

	require.NoError(t, b.WriteBigInt64Bytes([8]byte{0, 0, 0, 0, 0, 0, 0, 9}, 8))
	i64, err = b.ReadBigInt64BE(8)
	require.NoError(t, err)
	assert.Equal(t, int64(9), i64)
}

func TestFloatRoundTrip(t *testing.T) {
	t.Parallel()

	b := Alloc(8)

	require.NoError(t, b.WriteFloatBE(3.5))
	f32, err := b.ReadFloatBE()
	require.NoError(t, err)
	assert.Equal(t, float32(3.5), f32)

	require.NoError(t, b.WriteFloatLE(-0.25, 4))
	f32, err = b.ReadFloatLE(4)
	require.NoError(t, err)
	assert.Equal(t, float32(-0.25), f32)

	require.NoError(t, b.WriteDoubleBE(math.Pi))
	f64, err := b.ReadDoubleBE()
	require.NoError(t, err)
	assert.Equal(t, math.Pi, f64)

	require.NoError(t, b.WriteDoubleLE(math.Inf(-1)))
	f64, err = b.ReadDoubleLE()
	require.NoError(t, err)
	assert.True(t, math.IsInf(f64, -1))
}

func TestOffsetOutOfRange(t *testing.T) {
	t.Parallel()

	b := Alloc(4)

	_, err := b.ReadUint32BE(1)
	assert.ErrorIs(t, err, ErrOutOfRange)
	assert.ErrorIs(t, b.WriteUint16LE(1, 3), ErrOutOfRange)
	assert.ErrorIs(t, b.WriteUint8(1, 4), ErrOutOfRange)
	assert.ErrorIs(t, b.WriteUint8(1, -1), ErrOutOfRange)
	_, err = b.ReadDoubleLE()
	assert.ErrorIs(t, err, ErrOutOfRange)

	assert.Equal(t, []byte{0, 0, 0, 0}, b.Bytes(), "failed writes must not touch the buffer")
}

func TestOffsetNearMaxInt(t *testing.T) {
	t.Parallel()

	b := Alloc(8)
	for _, off := range []int{math.MaxInt, math.MaxInt - 1, math.MaxInt - 7, math.MinInt} {
		_, err := b.ReadUint32BE(off)
		assert.ErrorIs(t, err, ErrOutOfRange, "offset %d", off)
		_, err = b.ReadBigUint64LE(off)
		assert.ErrorIs(t, err, ErrOutOfRange, "offset %d", off)
		assert.ErrorIs(t, b.WriteDoubleBE(1, off), ErrOutOfRange, "offset %d", off)
		assert.ErrorIs(t, b.WriteUint8(1, off), ErrOutOfRange, "offset %d", off)
	}
	assert.Equal(t, make([]byte, 8), b.Bytes())
}
