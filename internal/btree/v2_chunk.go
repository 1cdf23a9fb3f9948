package btree

import (
	"bytes"
	"fmt"
	"math/bits"

	binpkg "github.com/robert-malhotra/h5pipe/internal/binary"
)

// Version 2 B-tree record types used by chunk indexes.
const (
	TypeChunk         uint8 = 10
	TypeChunkFiltered uint8 = 11
)

var (
	headerSignature   = []byte("BTHD")
	internalSignature = []byte("BTIN")
	leafSignature     = []byte("BTLF")
)

// prefixSize is signature, version, type and checksum of every node.
const prefixSize = 10

// v2Header is the "BTHD" block.
type v2Header struct {
	typ        uint8
	nodeSize   uint32
	recordSize uint16
	depth      uint16
	root       uint64
	rootCount  uint16
	total      uint64

	// Per depth: maximum records in a node and the encoded width of the
	// cumulative record count stored in child pointers.
	maxRecords []uint64
	cumRecords []uint64
	cumWidth   []int
	countWidth int
}

// encWidth is the number of bytes needed to hold n.
func encWidth(n uint64) int {
	return (bits.Len64(n)-1)/8 + 1
}

// init derives node capacities the way the reference library does.
func (h *v2Header) init(offsetSize int) {
	d := int(h.depth) + 1
	h.maxRecords = make([]uint64, d)
	h.cumRecords = make([]uint64, d)
	h.cumWidth = make([]int, d)

	h.maxRecords[0] = uint64(h.nodeSize-prefixSize) / uint64(h.recordSize)
	h.cumRecords[0] = h.maxRecords[0]
	h.countWidth = encWidth(h.maxRecords[0])
	for u := 1; u < d; u++ {
		ptr := offsetSize + h.countWidth
		if u > 1 {
			ptr += h.cumWidth[u-1]
		}
		h.maxRecords[u] = uint64(int(h.nodeSize)-prefixSize) / uint64(int(h.recordSize)+ptr)
		h.cumRecords[u] = (h.maxRecords[u]+1)*h.cumRecords[u-1] + h.maxRecords[u]
		h.cumWidth[u] = encWidth(h.cumRecords[u])
	}
}

func readV2Header(r *binpkg.Reader, address uint64) (*v2Header, error) {
	nr := r.At(int64(address))
	size := 4 + 1 + 1 + 4 + 2 + 2 + 1 + 1 + r.OffsetSize() + 2 + r.LengthSize() + 4
	data, err := nr.ReadBytes(size)
	if err != nil {
		return nil, fmt.Errorf("B-tree header at 0x%x: %w", address, err)
	}
	if !bytes.Equal(data[:4], headerSignature) {
		return nil, fmt.Errorf("B-tree header at 0x%x: bad signature %q", address, data[:4])
	}
	if data[4] != 0 {
		return nil, fmt.Errorf("B-tree header at 0x%x: unsupported version %d", address, data[4])
	}
	if !binpkg.VerifyLookup3(data[:size-4], uint32(binpkg.DecodeUint(data[size-4:], 4, r.ByteOrder()))) {
		return nil, fmt.Errorf("B-tree header at 0x%x: checksum mismatch", address)
	}

	hr := binpkg.NewReader(bytes.NewReader(data), r.Config()).At(5)
	h := &v2Header{}
	h.typ, _ = hr.ReadUint8()
	h.nodeSize, _ = hr.ReadUint32()
	h.recordSize, _ = hr.ReadUint16()
	h.depth, _ = hr.ReadUint16()
	hr.Skip(2)
	h.root, _ = hr.ReadOffset()
	h.rootCount, _ = hr.ReadUint16()
	h.total, _ = hr.ReadLength()
	if h.recordSize == 0 || h.nodeSize <= prefixSize {
		return nil, fmt.Errorf("B-tree header at 0x%x: node size %d, record size %d", address, h.nodeSize, h.recordSize)
	}
	h.init(r.OffsetSize())
	return h, nil
}

// ReadChunkIndexV2 reads a version 2 B-tree chunk index. Records store
// scaled offsets, which are multiplied back by chunkDims.
//
// Type 10 record: address (O), scaled offsets (8 each).
// Type 11 record: address (O), stored size (variable), filter mask (4),
// scaled offsets (8 each).
func ReadChunkIndexV2(r *binpkg.Reader, address uint64, chunkDims []uint32) (*ChunkIndex, error) {
	h, err := readV2Header(r, address)
	if err != nil {
		return nil, err
	}
	if h.typ != TypeChunk && h.typ != TypeChunkFiltered {
		return nil, fmt.Errorf("B-tree at 0x%x: record type %d is not a chunk index", address, h.typ)
	}
	rank := len(chunkDims)
	sizeWidth := int(h.recordSize) - r.OffsetSize() - 8*rank
	if h.typ == TypeChunkFiltered {
		sizeWidth -= 4
		if sizeWidth < 1 || sizeWidth > 8 {
			return nil, fmt.Errorf("B-tree at 0x%x: record size %d does not fit rank %d", address, h.recordSize, rank)
		}
	} else if sizeWidth != 0 {
		return nil, fmt.Errorf("B-tree at 0x%x: record size %d does not fit rank %d", address, h.recordSize, rank)
	}

	idx := &ChunkIndex{}
	if h.total == 0 || r.IsUndefinedOffset(h.root) {
		return idx, nil
	}
	w := &v2Walker{r: r, h: h, chunkDims: chunkDims, sizeWidth: sizeWidth, index: idx}
	if err := w.node(h.root, int(h.rootCount), int(h.depth)); err != nil {
		return nil, err
	}
	return idx, nil
}

type v2Walker struct {
	r         *binpkg.Reader
	h         *v2Header
	chunkDims []uint32
	sizeWidth int
	index     *ChunkIndex
}

// node reads a leaf (depth 0) or an internal node. Internal nodes hold
// their records first, then count+1 child pointers: address, record count
// and, below depth 1, the cumulative record count.
func (w *v2Walker) node(address uint64, count, depth int) error {
	nr := w.r.At(int64(address))
	sig, err := nr.ReadBytes(4)
	if err != nil {
		return fmt.Errorf("B-tree node at 0x%x: %w", address, err)
	}
	want := leafSignature
	if depth > 0 {
		want = internalSignature
	}
	if !bytes.Equal(sig, want) {
		return fmt.Errorf("B-tree node at 0x%x: bad signature %q", address, sig)
	}
	version, err := nr.ReadUint8()
	if err != nil {
		return err
	}
	if version != 0 {
		return fmt.Errorf("B-tree node at 0x%x: unsupported version %d", address, version)
	}
	nr.Skip(1)

	for i := 0; i < count; i++ {
		rec, err := nr.ReadBytes(int(w.h.recordSize))
		if err != nil {
			return err
		}
		w.record(rec)
	}
	if depth == 0 {
		return nil
	}

	type child struct {
		addr  uint64
		count int
	}
	children := make([]child, count+1)
	for i := range children {
		if children[i].addr, err = nr.ReadOffset(); err != nil {
			return err
		}
		n, err := nr.ReadUintN(w.h.countWidth)
		if err != nil {
			return err
		}
		children[i].count = int(n)
		if depth > 1 {
			nr.Skip(int64(w.h.cumWidth[depth-1]))
		}
	}
	for _, c := range children {
		if err := w.node(c.addr, c.count, depth-1); err != nil {
			return err
		}
	}
	return nil
}

func (w *v2Walker) record(rec []byte) {
	o := w.r.OffsetSize()
	order := w.r.ByteOrder()
	e := ChunkEntry{Address: binpkg.DecodeUint(rec, o, order)}
	off := o
	if w.h.typ == TypeChunkFiltered {
		e.Size = binpkg.DecodeUint(rec[off:], w.sizeWidth, order)
		off += w.sizeWidth
		e.FilterMask = uint32(binpkg.DecodeUint(rec[off:], 4, order))
		off += 4
	}
	e.Offset = make([]uint64, len(w.chunkDims))
	for d := range e.Offset {
		e.Offset[d] = binpkg.DecodeUint(rec[off:], 8, order) * uint64(w.chunkDims[d])
		off += 8
	}
	if !w.r.IsUndefinedOffset(e.Address) {
		w.index.Entries = append(w.index.Entries, e)
	}
}
