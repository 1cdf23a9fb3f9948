package binary

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriterFixedWidths(t *testing.T) {
	w, buf := NewBufferWriter(DefaultConfig(), 0)

	require.NoError(t, w.WriteUint8(0x42))
	require.NoError(t, w.WriteUint16(0x1234))
	require.NoError(t, w.WriteUint32(0x12345678))
	require.NoError(t, w.WriteUint64(0x0102030405060708))

	want := []byte{
		0x42,
		0x34, 0x12,
		0x78, 0x56, 0x34, 0x12,
		0x08, 0x07, 0x06, 0x05, 0x04, 0x03, 0x02, 0x01,
	}
	assert.Equal(t, want, buf.Bytes())
	assert.Equal(t, int64(len(want)), w.Pos())
}

func TestWriterBigEndian(t *testing.T) {
	cfg := Config{ByteOrder: binary.BigEndian, OffsetSize: 4, LengthSize: 4}
	w, buf := NewBufferWriter(cfg, 4)

	require.NoError(t, w.WriteUint32(0x12345678))
	assert.Equal(t, []byte{0x12, 0x34, 0x56, 0x78}, buf.Bytes())
}

func TestWriterOffsetSizes(t *testing.T) {
	for _, size := range []int{2, 4, 8} {
		cfg := Config{ByteOrder: binary.LittleEndian, OffsetSize: size, LengthSize: size}
		w, buf := NewBufferWriter(cfg, 16)

		require.NoError(t, w.WriteOffset(0x0102))
		require.NoError(t, w.WriteLength(0x0304))
		assert.Equal(t, 2*size, buf.Len())

		r := NewReader(bytes.NewReader(buf.Bytes()), cfg)
		off, err := r.ReadOffset()
		require.NoError(t, err)
		assert.Equal(t, uint64(0x0102), off)
		length, err := r.ReadLength()
		require.NoError(t, err)
		assert.Equal(t, uint64(0x0304), length)
	}
}

func TestWriterUndefinedOffset(t *testing.T) {
	cfg := Config{ByteOrder: binary.LittleEndian, OffsetSize: 4, LengthSize: 4}
	w, buf := NewBufferWriter(cfg, 4)

	require.NoError(t, w.WriteOffset(w.UndefinedOffset()))
	assert.Equal(t, []byte{0xff, 0xff, 0xff, 0xff}, buf.Bytes())
}

func TestWriterAtAndZeros(t *testing.T) {
	w, buf := NewBufferWriter(DefaultConfig(), 0)

	require.NoError(t, w.At(4).WriteUint8(0xaa))
	assert.Equal(t, int64(0), w.Pos())
	require.NoError(t, w.WriteZeros(2))
	require.NoError(t, w.WriteZeros(0))

	assert.Equal(t, []byte{0, 0, 0, 0, 0xaa}, buf.Bytes())
	assert.Equal(t, int64(2), w.Pos())
}

func TestBufferGrowsAndOverwrites(t *testing.T) {
	buf := NewBuffer(2)

	n, err := buf.WriteAt([]byte("hello"), 0)
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	_, err = buf.WriteAt([]byte("J"), 0)
	require.NoError(t, err)
	_, err = buf.WriteAt([]byte("!"), 7)
	require.NoError(t, err)

	assert.Equal(t, []byte("Jello\x00\x00!"), buf.Bytes())
}

func TestEncodeDecodeUintRoundTrip(t *testing.T) {
	for _, size := range []int{1, 2, 3, 4, 5, 6, 7, 8} {
		for _, order := range []binary.ByteOrder{binary.LittleEndian, binary.BigEndian} {
			v := uint64(0x0102030405060708) & UndefinedFor(size)
			buf := make([]byte, size)
			EncodeUint(buf, v, size, order)
			assert.Equal(t, v, DecodeUint(buf, size, order), "size %d order %v", size, order)
		}
	}
}
