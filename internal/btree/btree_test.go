package btree

import (
	"bytes"
	"encoding/binary"
	"testing"

	binpkg "github.com/robert-malhotra/h5pipe/internal/binary"
	"github.com/robert-malhotra/h5pipe/internal/heap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// image is a sparse test file built by placing blocks at fixed addresses.
type image []byte

func (im *image) put(addr int, data []byte) {
	if need := addr + len(data); need > len(*im) {
		*im = append(*im, make([]byte, need-len(*im))...)
	}
	copy((*im)[addr:], data)
}

func (im image) reader() *binpkg.Reader {
	return binpkg.NewReader(bytes.NewReader(im), binpkg.DefaultConfig())
}

func u16(v uint16) []byte { return binary.LittleEndian.AppendUint16(nil, v) }
func u32(v uint32) []byte { return binary.LittleEndian.AppendUint32(nil, v) }
func u64(v uint64) []byte { return binary.LittleEndian.AppendUint64(nil, v) }

func cat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func treeNode(typ, level uint8, entries uint16) []byte {
	undef := binpkg.UndefinedFor(8)
	return cat([]byte("TREE"), []byte{typ, level}, u16(entries), u64(undef), u64(undef))
}

func symbolEntry(nameOff, addr uint64, cache uint32, scratch uint32) []byte {
	return cat(u64(nameOff), u64(addr), u32(cache), u32(0), u32(scratch), make([]byte, 12))
}

func TestReadGroupEntries(t *testing.T) {
	var im image
	names := []byte("\x00alpha\x00link\x00/alpha\x00")
	im.put(0, cat([]byte("HEAP"), []byte{0, 0, 0, 0}, u64(uint64(len(names))), u64(0), u64(512)))
	im.put(512, names)

	// root (level 1) -> leaf (level 0) -> SNOD
	im.put(600, cat(treeNode(nodeGroup, 1, 1), u64(0), u64(700), u64(0)))
	im.put(700, cat(treeNode(nodeGroup, 0, 1), u64(0), u64(800), u64(0)))
	im.put(800, cat([]byte("SNOD"), []byte{1, 0}, u16(3),
		symbolEntry(1, 0x1000, cacheHard, 0),
		symbolEntry(7, 0, cacheSoft, 12),
		symbolEntry(0, 0x2000, cacheNone, 0),
	))

	r := im.reader()
	lh, err := heap.ReadLocalHeap(r, 0)
	require.NoError(t, err)
	entries, err := ReadGroupEntries(r, 600, lh)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, GroupEntry{Name: "alpha", ObjectAddress: 0x1000}, entries[0])
	assert.Equal(t, GroupEntry{Name: "link", Soft: true, SoftLinkValue: "/alpha"}, entries[1])
}

func TestReadGroupEntriesErrors(t *testing.T) {
	var im image
	im.put(0, []byte("XXXX"))
	_, err := ReadGroupEntries(im.reader(), 0, &heap.LocalHeap{})
	assert.ErrorContains(t, err, "bad signature")

	im.put(0, treeNode(nodeChunk, 0, 0))
	_, err = ReadGroupEntries(im.reader(), 0, &heap.LocalHeap{})
	assert.ErrorContains(t, err, "type 1")
}

func chunkKey(size, mask uint32, offsets ...uint64) []byte {
	out := cat(u32(size), u32(mask))
	for _, o := range offsets {
		out = append(out, u64(o)...)
	}
	return append(out, u64(0)...)
}

func TestReadChunkIndexV1(t *testing.T) {
	var im image
	undef := binpkg.UndefinedFor(8)
	im.put(0, cat(treeNode(nodeChunk, 1, 1), chunkKey(0, 0, 0, 0), u64(200), chunkKey(0, 0, 20, 0)))
	im.put(200, cat(treeNode(nodeChunk, 0, 3),
		chunkKey(100, 0, 0, 0), u64(0x1000),
		chunkKey(90, 1, 0, 10), u64(0x2000),
		chunkKey(0, 0, 10, 0), u64(undef),
		chunkKey(0, 0, 20, 0),
	))

	idx, err := ReadChunkIndex(im.reader(), 0, 2)
	require.NoError(t, err)
	require.Len(t, idx.Entries, 2)
	assert.Equal(t, ChunkEntry{Offset: []uint64{0, 0}, Size: 100, Address: 0x1000}, idx.Entries[0])
	assert.Equal(t, ChunkEntry{Offset: []uint64{0, 10}, FilterMask: 1, Size: 90, Address: 0x2000}, idx.Entries[1])
}

// btreeHeader builds a checksummed "BTHD" block.
func btreeHeader(typ uint8, nodeSize uint32, recSize, depth uint16, root uint64, rootCount uint16, total uint64) []byte {
	b := cat([]byte("BTHD"), []byte{0, typ}, u32(nodeSize), u16(recSize), u16(depth), []byte{100, 40}, u64(root), u16(rootCount), u64(total))
	return append(b, u32(binpkg.Lookup3Checksum(b))...)
}

func TestReadChunkIndexV2Leaf(t *testing.T) {
	var im image
	// type 10, rank 2: address + 2 scaled offsets
	im.put(0, btreeHeader(TypeChunk, 512, 24, 0, 100, 2, 2))
	im.put(100, cat([]byte("BTLF"), []byte{0, TypeChunk},
		u64(0x1000), u64(0), u64(0),
		u64(0x2000), u64(1), u64(2),
	))

	idx, err := ReadChunkIndexV2(im.reader(), 0, []uint32{5, 7})
	require.NoError(t, err)
	require.Len(t, idx.Entries, 2)
	assert.Equal(t, []uint64{5, 14}, idx.Entries[1].Offset)
	assert.Equal(t, uint64(0x2000), idx.Entries[1].Address)
}

func TestReadChunkIndexV2Filtered(t *testing.T) {
	var im image
	// type 11, rank 1: address, 2-byte size, mask, 1 scaled offset
	im.put(0, btreeHeader(TypeChunkFiltered, 512, 8+2+4+8, 0, 100, 1, 1))
	im.put(100, cat([]byte("BTLF"), []byte{0, TypeChunkFiltered},
		u64(0x3000), u16(777), u32(0), u64(3),
	))

	idx, err := ReadChunkIndexV2(im.reader(), 0, []uint32{10})
	require.NoError(t, err)
	require.Len(t, idx.Entries, 1)
	assert.Equal(t, ChunkEntry{Offset: []uint64{30}, Size: 777, Address: 0x3000}, idx.Entries[0])
}

func TestReadChunkIndexV2Internal(t *testing.T) {
	var im image
	// node size 64, record size 16: a leaf holds 3 records, so child
	// record counts take one byte
	im.put(0, btreeHeader(TypeChunk, 64, 16, 1, 100, 1, 3))
	im.put(100, cat([]byte("BTIN"), []byte{0, TypeChunk},
		u64(0x2000), u64(1),
		u64(200), []byte{1},
		u64(300), []byte{1},
	))
	im.put(200, cat([]byte("BTLF"), []byte{0, TypeChunk}, u64(0x1000), u64(0)))
	im.put(300, cat([]byte("BTLF"), []byte{0, TypeChunk}, u64(0x3000), u64(2)))

	idx, err := ReadChunkIndexV2(im.reader(), 0, []uint32{4})
	require.NoError(t, err)
	var offsets []uint64
	for _, e := range idx.Entries {
		offsets = append(offsets, e.Offset[0])
	}
	assert.ElementsMatch(t, []uint64{0, 4, 8}, offsets)
}

func TestReadChunkIndexV2Errors(t *testing.T) {
	var im image
	im.put(0, btreeHeader(5, 512, 16, 0, 100, 0, 0))
	_, err := ReadChunkIndexV2(im.reader(), 0, []uint32{4})
	assert.ErrorContains(t, err, "not a chunk index")

	hdr := btreeHeader(TypeChunk, 512, 16, 0, 100, 0, 0)
	hdr[len(hdr)-1] ^= 0xff
	im.put(0, hdr)
	_, err = ReadChunkIndexV2(im.reader(), 0, []uint32{4})
	assert.ErrorContains(t, err, "checksum")

	im.put(0, btreeHeader(TypeChunk, 512, 16, 0, 100, 0, 0))
	idx, err := ReadChunkIndexV2(im.reader(), 0, []uint32{4})
	require.NoError(t, err)
	assert.Empty(t, idx.Entries)
}

func TestFindChunk(t *testing.T) {
	idx := &ChunkIndex{Entries: []ChunkEntry{
		{Offset: []uint64{0, 0}, Address: 1},
		{Offset: []uint64{0, 10}, Address: 2},
		{Offset: []uint64{10, 0}, Address: 3},
	}}
	dims := []uint32{10, 10}
	assert.Equal(t, uint64(1), idx.FindChunk([]uint64{9, 9}, dims).Address)
	assert.Equal(t, uint64(2), idx.FindChunk([]uint64{3, 15}, dims).Address)
	assert.Equal(t, uint64(3), idx.FindChunk([]uint64{10, 0}, dims).Address)
	assert.Nil(t, idx.FindChunk([]uint64{10, 10}, dims))
}

func TestEncWidth(t *testing.T) {
	assert.Equal(t, 1, encWidth(0))
	assert.Equal(t, 1, encWidth(255))
	assert.Equal(t, 2, encWidth(256))
	assert.Equal(t, 3, encWidth(1<<16))
}
