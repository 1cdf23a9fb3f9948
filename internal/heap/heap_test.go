package heap

import (
	"bytes"
	"encoding/binary"
	"testing"

	binpkg "github.com/robert-malhotra/h5pipe/internal/binary"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readerOver(data []byte) *binpkg.Reader {
	return binpkg.NewReader(bytes.NewReader(data), binpkg.DefaultConfig())
}

func u64(v uint64) []byte {
	return binary.LittleEndian.AppendUint64(nil, v)
}

func localHeapFile(segment []byte) []byte {
	const dataAddr = 64
	file := append([]byte("HEAP"), 0, 0, 0, 0)
	file = append(file, u64(uint64(len(segment)))...)
	file = append(file, u64(uint64(len(segment)))...)
	file = append(file, u64(dataAddr)...)
	file = append(file, make([]byte, dataAddr-len(file))...)
	return append(file, segment...)
}

func TestLocalHeap(t *testing.T) {
	h, err := ReadLocalHeap(readerOver(localHeapFile([]byte("\x00alpha\x00beta\x00\x00\x00\x00"))), 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(64), h.DataAddress)

	tests := []struct {
		offset uint64
		want   string
	}{
		{0, ""},
		{1, "alpha"},
		{7, "beta"},
		{3, "pha"},
		{100, ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, h.GetString(tt.offset), "offset %d", tt.offset)
	}
}

func TestLocalHeapUnterminated(t *testing.T) {
	h := &LocalHeap{data: []byte("noterm")}
	assert.Equal(t, "noterm", h.GetString(0))
}

func TestLocalHeapErrors(t *testing.T) {
	_, err := ReadLocalHeap(readerOver([]byte("XXXX0000")), 0)
	assert.ErrorContains(t, err, "bad signature")

	file := localHeapFile(nil)
	file[4] = 1
	_, err = ReadLocalHeap(readerOver(file), 0)
	assert.ErrorContains(t, err, "unsupported version")
}

func globalObject(index uint16, data []byte) []byte {
	out := binary.LittleEndian.AppendUint16(nil, index)
	out = append(out, 1, 0, 0, 0, 0, 0)
	out = append(out, u64(uint64(len(data)))...)
	out = append(out, data...)
	return append(out, make([]byte, (8-len(data)%8)%8)...)
}

// globalHeapFile places a collection at offset 8.
func globalHeapFile(objects ...[]byte) []byte {
	var body []byte
	for _, o := range objects {
		body = append(body, o...)
	}
	body = append(body, make([]byte, 16)...) // free space object
	head := append([]byte("GCOL"), 1, 0, 0, 0)
	head = append(head, u64(uint64(16+len(body)))...)
	return append(append(make([]byte, 8), head...), body...)
}

func TestGlobalHeap(t *testing.T) {
	file := globalHeapFile(
		globalObject(1, []byte("hello\x00")),
		globalObject(2, nil),
		globalObject(3, []byte("a longer value")),
	)
	h, err := ReadGlobalHeap(readerOver(file), 8)
	require.NoError(t, err)

	s, err := h.GetString(1)
	require.NoError(t, err)
	assert.Equal(t, "hello", s)

	empty, err := h.GetObject(2)
	require.NoError(t, err)
	assert.Empty(t, empty)

	s, err = h.GetString(3)
	require.NoError(t, err)
	assert.Equal(t, "a longer value", s)

	_, err = h.GetObject(9)
	assert.Error(t, err)
}

func TestGlobalHeapReturnsCopy(t *testing.T) {
	h, err := ReadGlobalHeap(readerOver(globalHeapFile(globalObject(1, []byte("abc")))), 8)
	require.NoError(t, err)
	a, err := h.GetObject(1)
	require.NoError(t, err)
	a[0] = 'X'
	b, err := h.GetObject(1)
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), b)
}

func TestGlobalHeapErrors(t *testing.T) {
	_, err := ReadGlobalHeap(readerOver(nil), 0)
	assert.Error(t, err)
	_, err = ReadGlobalHeap(readerOver(nil), binpkg.UndefinedFor(8))
	assert.Error(t, err)

	file := globalHeapFile()
	file[8+4] = 2
	_, err = ReadGlobalHeap(readerOver(file), 8)
	assert.ErrorContains(t, err, "unsupported version")

	var nilHeap *GlobalHeap
	_, err = nilHeap.GetObject(1)
	assert.Error(t, err)
}

func TestParseGlobalHeapID(t *testing.T) {
	data := append(u64(0x1234), 7, 0, 0, 0)
	id, err := ParseGlobalHeapID(data, binpkg.DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, GlobalHeapID{CollectionAddress: 0x1234, ObjectIndex: 7}, id)

	cfg := binpkg.Config{ByteOrder: binary.LittleEndian, OffsetSize: 4, LengthSize: 4}
	id, err = ParseGlobalHeapID([]byte{0x10, 0, 0, 0, 2, 0, 0, 0}, cfg)
	require.NoError(t, err)
	assert.Equal(t, uint64(0x10), id.CollectionAddress)

	_, err = ParseGlobalHeapID([]byte{1, 2, 3}, cfg)
	assert.Error(t, err)
}

func TestCache(t *testing.T) {
	c := NewCache(readerOver(globalHeapFile(globalObject(1, []byte("x")), globalObject(2, []byte("yz")))))
	a, err := c.Object(GlobalHeapID{CollectionAddress: 8, ObjectIndex: 2})
	require.NoError(t, err)
	assert.Equal(t, []byte("yz"), a)
	assert.Len(t, c.collections, 1)

	_, err = c.Object(GlobalHeapID{CollectionAddress: 8, ObjectIndex: 1})
	require.NoError(t, err)
	assert.Len(t, c.collections, 1)
}
