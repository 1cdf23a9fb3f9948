package binary

import (
	"bytes"
	"encoding/binary"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReaderFixedWidths(t *testing.T) {
	data := []byte{
		0x42,
		0x34, 0x12,
		0x78, 0x56, 0x34, 0x12,
		0x08, 0x07, 0x06, 0x05, 0x04, 0x03, 0x02, 0x01,
	}
	r := NewReader(bytes.NewReader(data), DefaultConfig())

	v8, err := r.ReadUint8()
	require.NoError(t, err)
	assert.Equal(t, uint8(0x42), v8)

	v16, err := r.ReadUint16()
	require.NoError(t, err)
	assert.Equal(t, uint16(0x1234), v16)

	v32, err := r.ReadUint32()
	require.NoError(t, err)
	assert.Equal(t, uint32(0x12345678), v32)

	v64, err := r.ReadUint64()
	require.NoError(t, err)
	assert.Equal(t, uint64(0x0102030405060708), v64)

	assert.Equal(t, int64(len(data)), r.Pos())
}

func TestReaderBigEndian(t *testing.T) {
	cfg := Config{ByteOrder: binary.BigEndian, OffsetSize: 4, LengthSize: 4}
	r := NewReader(bytes.NewReader([]byte{0x12, 0x34, 0x56, 0x78}), cfg)

	v, err := r.ReadUint32()
	require.NoError(t, err)
	assert.Equal(t, uint32(0x12345678), v)
}

func TestReaderOffsetAndLengthSizes(t *testing.T) {
	tests := []struct {
		name string
		size int
		data []byte
		want uint64
	}{
		{"2 bytes", 2, []byte{0x01, 0x02}, 0x0201},
		{"4 bytes", 4, []byte{0x01, 0x02, 0x03, 0x04}, 0x04030201},
		{"8 bytes", 8, []byte{1, 2, 3, 4, 5, 6, 7, 8}, 0x0807060504030201},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config{ByteOrder: binary.LittleEndian, OffsetSize: tt.size, LengthSize: tt.size}

			off, err := NewReader(bytes.NewReader(tt.data), cfg).ReadOffset()
			require.NoError(t, err)
			assert.Equal(t, tt.want, off)

			length, err := NewReader(bytes.NewReader(tt.data), cfg).ReadLength()
			require.NoError(t, err)
			assert.Equal(t, tt.want, length)
		})
	}
}

func TestReaderUndefinedOffset(t *testing.T) {
	for _, size := range []int{2, 4, 8} {
		cfg := Config{ByteOrder: binary.LittleEndian, OffsetSize: size, LengthSize: 8}
		data := bytes.Repeat([]byte{0xff}, size)
		r := NewReader(bytes.NewReader(data), cfg)

		addr, err := r.ReadOffset()
		require.NoError(t, err)
		assert.True(t, r.IsUndefinedOffset(addr), "size %d", size)
		assert.False(t, r.IsUndefinedOffset(0))
	}
}

func TestReaderAtIsIndependent(t *testing.T) {
	r := NewReader(bytes.NewReader([]byte{1, 2, 3, 4}), DefaultConfig())
	r2 := r.At(2)

	v, err := r2.ReadUint8()
	require.NoError(t, err)
	assert.Equal(t, uint8(3), v)
	assert.Equal(t, int64(0), r.Pos())
	assert.Equal(t, int64(3), r2.Pos())
}

func TestReaderPeek(t *testing.T) {
	r := NewReader(bytes.NewReader([]byte("OHDR")), DefaultConfig())

	sig, err := r.Peek(4)
	require.NoError(t, err)
	assert.Equal(t, []byte("OHDR"), sig)
	assert.Equal(t, int64(0), r.Pos())
}

func TestReaderSkipAndAlign(t *testing.T) {
	r := NewReader(bytes.NewReader(make([]byte, 32)), DefaultConfig())

	r.Skip(3)
	assert.Equal(t, int64(3), r.Pos())
	r.Align(8)
	assert.Equal(t, int64(8), r.Pos())
	r.Align(8)
	assert.Equal(t, int64(8), r.Pos())
	r.Align(1)
	assert.Equal(t, int64(8), r.Pos())
}

func TestReaderShortRead(t *testing.T) {
	r := NewReader(bytes.NewReader([]byte{1, 2}), DefaultConfig())

	_, err := r.ReadUint32()
	require.Error(t, err)
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, int64(0), r.Pos())
}

func TestDecodeUintOddSizes(t *testing.T) {
	assert.Equal(t, uint64(0x030201), DecodeUint([]byte{1, 2, 3}, 3, binary.LittleEndian))
	assert.Equal(t, uint64(0x0504030201), DecodeUint([]byte{1, 2, 3, 4, 5}, 5, binary.BigEndian))
}

func TestUndefinedFor(t *testing.T) {
	assert.Equal(t, uint64(0xffff), UndefinedFor(2))
	assert.Equal(t, uint64(0xffffffff), UndefinedFor(4))
	assert.Equal(t, ^uint64(0), UndefinedFor(8))
}
