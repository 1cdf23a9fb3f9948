package layout

import (
	"bytes"
	"fmt"
	"math/bits"

	"github.com/robert-malhotra/h5pipe/internal/binary"
	"github.com/robert-malhotra/h5pipe/internal/btree"
)

// Chunk index client IDs shared by the fixed and extensible arrays.
const (
	clientChunks         = 0
	clientFilteredChunks = 1
)

var (
	faHeaderSignature = "FAHD"
	faBlockSignature  = "FADB"
	eaHeaderSignature = "EAHD"
	eaIndexSignature  = "EAIB"
	eaSuperSignature  = "EASB"
	eaBlockSignature  = "EADB"
)

// block reads a checksummed metadata block. The returned reader is
// positioned just past the signature; sig is empty for unsigned pages.
func (c *Chunked) block(addr uint64, size int, sig string) (*binary.Reader, error) {
	name := sig
	if name == "" {
		name = "page"
	}
	data, err := c.r.At(int64(addr)).ReadBytes(size)
	if err != nil {
		return nil, fmt.Errorf("%s at 0x%x: %w", name, addr, err)
	}
	if len(data) < len(sig)+4 || string(data[:len(sig)]) != sig {
		return nil, fmt.Errorf("%s at 0x%x: bad signature", name, addr)
	}
	sum := uint32(binary.DecodeUint(data[size-4:], 4, c.r.ByteOrder()))
	if !binary.VerifyLookup3(data[:size-4], sum) {
		return nil, fmt.Errorf("%s at 0x%x: checksum mismatch", name, addr)
	}
	return binary.NewReader(bytes.NewReader(data), c.r.Config()).At(int64(len(sig))), nil
}

// element decodes one array entry: an address, plus the stored size and
// filter mask for filtered chunks.
func (c *Chunked) element(r *binary.Reader, client uint8, entrySize int) (btree.ChunkEntry, error) {
	var e btree.ChunkEntry
	var err error
	if e.Address, err = r.ReadOffset(); err != nil {
		return e, err
	}
	if client != clientFilteredChunks {
		return e, nil
	}
	width := entrySize - r.OffsetSize() - 4
	if width <= 0 || width > 8 {
		return e, fmt.Errorf("bad filtered entry size %d", entrySize)
	}
	if e.Size, err = r.ReadUintN(width); err != nil {
		return e, err
	}
	e.FilterMask, err = r.ReadUint32()
	return e, err
}

// checkClient validates the array version and client ID.
func checkClient(version, client uint8) error {
	if version != 0 {
		return fmt.Errorf("unsupported array version %d", version)
	}
	if client != clientChunks && client != clientFilteredChunks {
		return fmt.Errorf("unsupported array client %d", client)
	}
	return nil
}

// readFixedArray reads a fixed array index. Entries follow the row-major
// order of the maximum chunk grid; large arrays are split into pages that
// are only present when their bit in the page bitmap is set.
func (c *Chunked) readFixedArray(addr uint64) ([]btree.ChunkEntry, error) {
	o, l := c.r.OffsetSize(), c.r.LengthSize()
	hr, err := c.block(addr, 8+l+o+4, faHeaderSignature)
	if err != nil {
		return nil, err
	}
	version, _ := hr.ReadUint8()
	client, _ := hr.ReadUint8()
	if err := checkClient(version, client); err != nil {
		return nil, fmt.Errorf("fixed array at 0x%x: %w", addr, err)
	}
	entrySize, _ := hr.ReadUint8()
	pageBits, _ := hr.ReadUint8()
	nelmts, _ := hr.ReadLength()
	dblk, err := hr.ReadOffset()
	if err != nil {
		return nil, err
	}
	if nelmts == 0 || c.r.IsUndefinedOffset(dblk) {
		return nil, nil
	}

	grid := c.maxGrid()
	var entries []btree.ChunkEntry
	collect := func(r *binary.Reader, first, n uint64) error {
		for i := first; i < first+n; i++ {
			e, err := c.element(r, client, int(entrySize))
			if err != nil {
				return err
			}
			if c.r.IsUndefinedOffset(e.Address) {
				continue
			}
			off, ok := c.offsetOf(i, grid)
			if !ok {
				continue
			}
			e.Offset = off
			entries = append(entries, e)
		}
		return nil
	}

	prefix := 6 + o
	pageElems := uint64(1) << pageBits
	if nelmts <= pageElems {
		dr, err := c.block(dblk, prefix+int(nelmts)*int(entrySize)+4, faBlockSignature)
		if err != nil {
			return nil, err
		}
		dr.Skip(int64(2 + o))
		if err := collect(dr, 0, nelmts); err != nil {
			return nil, fmt.Errorf("fixed array data block at 0x%x: %w", dblk, err)
		}
		return entries, nil
	}

	npages := (nelmts + pageElems - 1) / pageElems
	bitmapSize := int((npages + 7) / 8)
	dr, err := c.block(dblk, prefix+bitmapSize+4, faBlockSignature)
	if err != nil {
		return nil, err
	}
	dr.Skip(int64(2 + o))
	bitmap, err := dr.ReadBytes(bitmapSize)
	if err != nil {
		return nil, err
	}
	pageSize := pageElems*uint64(entrySize) + 4
	base := dblk + uint64(prefix+bitmapSize+4)
	for p := uint64(0); p < npages; p++ {
		if bitmap[p/8]&(0x80>>(p%8)) == 0 {
			continue
		}
		n := min(pageElems, nelmts-p*pageElems)
		pr, err := c.block(base+p*pageSize, int(n)*int(entrySize)+4, "")
		if err != nil {
			return nil, err
		}
		if err := collect(pr, p*pageElems, n); err != nil {
			return nil, fmt.Errorf("fixed array page %d: %w", p, err)
		}
	}
	return entries, nil
}

// eaHeader holds the creation parameters of an extensible array.
type eaHeader struct {
	client       uint8
	entrySize    int
	maxBits      uint8
	idxElems     uint64
	dblkMinElems uint64
	sblkMinPtrs  uint64
	pageBits     uint8
	maxIdxSet    uint64

	// Per super block: data blocks, elements per data block, first
	// element and first data block.
	sblocks []eaSuper
}

type eaSuper struct {
	ndblks    uint64
	dblkElems uint64
	startIdx  uint64
	startDblk uint64
}

func (h *eaHeader) init() error {
	if h.dblkMinElems == 0 || h.dblkMinElems&(h.dblkMinElems-1) != 0 {
		return fmt.Errorf("data block minimum %d is not a power of two", h.dblkMinElems)
	}
	if h.sblkMinPtrs == 0 || h.sblkMinPtrs&(h.sblkMinPtrs-1) != 0 {
		return fmt.Errorf("super block minimum %d is not a power of two", h.sblkMinPtrs)
	}
	minBits := bits.TrailingZeros64(h.dblkMinElems)
	if int(h.maxBits) < minBits {
		return fmt.Errorf("max element bits %d below data block minimum", h.maxBits)
	}
	n := 1 + int(h.maxBits) - minBits
	h.sblocks = make([]eaSuper, n)
	var idx, dblk uint64
	for u := range h.sblocks {
		s := eaSuper{
			ndblks:    1 << (u / 2),
			dblkElems: (1 << ((u + 1) / 2)) * h.dblkMinElems,
			startIdx:  idx,
			startDblk: dblk,
		}
		h.sblocks[u] = s
		idx += s.ndblks * s.dblkElems
		dblk += s.ndblks
	}
	return nil
}

// iblockSupers is the number of super blocks whose data blocks are
// addressed directly from the index block.
func (h *eaHeader) iblockSupers() int {
	return 2 * bits.TrailingZeros64(h.sblkMinPtrs)
}

// offsetSize is the width of a block's array offset field.
func (h *eaHeader) offsetSize() int {
	return (int(h.maxBits) + 7) / 8
}

// readExtensibleArray reads an extensible array index. Element i maps to
// a chunk through the row-major order of the chunk grid with the
// unlimited dimension moved first.
func (c *Chunked) readExtensibleArray(addr uint64) ([]btree.ChunkEntry, error) {
	o, l := c.r.OffsetSize(), c.r.LengthSize()
	hr, err := c.block(addr, 12+6*l+o+4, eaHeaderSignature)
	if err != nil {
		return nil, err
	}
	version, _ := hr.ReadUint8()
	h := &eaHeader{}
	h.client, _ = hr.ReadUint8()
	if err := checkClient(version, h.client); err != nil {
		return nil, fmt.Errorf("extensible array at 0x%x: %w", addr, err)
	}
	es, _ := hr.ReadUint8()
	h.entrySize = int(es)
	h.maxBits, _ = hr.ReadUint8()
	v, _ := hr.ReadUint8()
	h.idxElems = uint64(v)
	v, _ = hr.ReadUint8()
	h.dblkMinElems = uint64(v)
	v, _ = hr.ReadUint8()
	h.sblkMinPtrs = uint64(v)
	h.pageBits, _ = hr.ReadUint8()
	hr.Skip(int64(4 * l))
	h.maxIdxSet, _ = hr.ReadLength()
	hr.Skip(int64(l))
	iblock, err := hr.ReadOffset()
	if err != nil {
		return nil, err
	}
	if err := h.init(); err != nil {
		return nil, fmt.Errorf("extensible array at 0x%x: %w", addr, err)
	}
	if h.maxIdxSet == 0 || c.r.IsUndefinedOffset(iblock) {
		return nil, nil
	}

	w := &eaWalker{c: c, h: h, unlim: c.unlimitedDim(), grid: c.maxGrid()}
	if err := w.index(iblock); err != nil {
		return nil, err
	}
	return w.entries, nil
}

// unlimitedDim returns the first dimension without a maximum.
func (c *Chunked) unlimitedDim() int {
	for d, m := range c.ds.Space.MaxDims {
		if m == binary.UndefinedFor(8) {
			return d
		}
	}
	return 0
}

type eaWalker struct {
	c       *Chunked
	h       *eaHeader
	unlim   int
	grid    []uint64
	entries []btree.ChunkEntry
}

// offsetOf maps an array index to a chunk offset.
func (w *eaWalker) offsetOf(idx uint64) ([]uint64, bool) {
	c := w.c
	off := make([]uint64, len(w.grid))
	for d := len(w.grid) - 1; d >= 0; d-- {
		if d == w.unlim {
			continue
		}
		off[d] = (idx % w.grid[d]) * uint64(c.chunk[d])
		idx /= w.grid[d]
	}
	off[w.unlim] = idx * uint64(c.chunk[w.unlim])
	for d := range off {
		if off[d] >= c.dims[d] {
			return nil, false
		}
	}
	return off, true
}

// collect decodes n elements starting at array index first.
func (w *eaWalker) collect(r *binary.Reader, first, n uint64) error {
	for i := first; i < first+n; i++ {
		e, err := w.c.element(r, w.h.client, w.h.entrySize)
		if err != nil {
			return err
		}
		if i >= w.h.maxIdxSet || w.c.r.IsUndefinedOffset(e.Address) {
			continue
		}
		off, ok := w.offsetOf(i)
		if !ok {
			continue
		}
		e.Offset = off
		w.entries = append(w.entries, e)
	}
	return nil
}

func (w *eaWalker) index(addr uint64) error {
	h, o := w.h, w.c.r.OffsetSize()
	inDirect := h.iblockSupers()
	if inDirect > len(h.sblocks) {
		inDirect = len(h.sblocks)
	}
	ndblk := 2 * (h.sblkMinPtrs - 1)
	nsblk := uint64(len(h.sblocks) - inDirect)
	size := 6 + o + int(h.idxElems)*h.entrySize + int(ndblk+nsblk)*o + 4
	r, err := w.c.block(addr, size, eaIndexSignature)
	if err != nil {
		return err
	}
	r.Skip(int64(2 + o))
	if err := w.collect(r, 0, h.idxElems); err != nil {
		return fmt.Errorf("extensible array index block: %w", err)
	}
	dblks := make([]uint64, ndblk)
	for i := range dblks {
		dblks[i], _ = r.ReadOffset()
	}
	sblks := make([]uint64, nsblk)
	for i := range sblks {
		if sblks[i], err = r.ReadOffset(); err != nil {
			return err
		}
	}

	for s := 0; s < inDirect; s++ {
		sb := h.sblocks[s]
		for k := uint64(0); k < sb.ndblks; k++ {
			first := h.idxElems + sb.startIdx + k*sb.dblkElems
			if first >= h.maxIdxSet {
				return nil
			}
			if sb.startDblk+k >= ndblk || w.c.r.IsUndefinedOffset(dblks[sb.startDblk+k]) {
				continue
			}
			if err := w.data(dblks[sb.startDblk+k], first, sb.dblkElems, nil); err != nil {
				return err
			}
		}
	}
	for i, a := range sblks {
		s := inDirect + i
		if h.idxElems+h.sblocks[s].startIdx >= h.maxIdxSet {
			return nil
		}
		if w.c.r.IsUndefinedOffset(a) {
			continue
		}
		if err := w.super(a, s); err != nil {
			return err
		}
	}
	return nil
}

// pages returns the page count of a data block, zero when unpaged.
func (h *eaHeader) pages(dblkElems uint64) uint64 {
	pageElems := uint64(1) << h.pageBits
	if dblkElems <= pageElems {
		return 0
	}
	return dblkElems / pageElems
}

func (w *eaWalker) super(addr uint64, s int) error {
	h, o := w.h, w.c.r.OffsetSize()
	sb := h.sblocks[s]
	npages := h.pages(sb.dblkElems)
	bitmapSize := 0
	if npages > 0 {
		bitmapSize = int((npages + 7) / 8)
	}
	size := 6 + o + h.offsetSize() + int(sb.ndblks)*bitmapSize + int(sb.ndblks)*o + 4
	r, err := w.c.block(addr, size, eaSuperSignature)
	if err != nil {
		return err
	}
	r.Skip(int64(2 + o + h.offsetSize()))
	bitmaps := make([][]byte, sb.ndblks)
	for k := range bitmaps {
		if bitmaps[k], err = r.ReadBytes(bitmapSize); err != nil {
			return err
		}
	}
	for k := uint64(0); k < sb.ndblks; k++ {
		a, err := r.ReadOffset()
		if err != nil {
			return err
		}
		first := h.idxElems + sb.startIdx + k*sb.dblkElems
		if first >= h.maxIdxSet {
			return nil
		}
		if w.c.r.IsUndefinedOffset(a) {
			continue
		}
		if err := w.data(a, first, sb.dblkElems, bitmaps[k]); err != nil {
			return err
		}
	}
	return nil
}

// data reads one data block. A non-nil bitmap marks it as paged.
func (w *eaWalker) data(addr, first, n uint64, bitmap []byte) error {
	h, o := w.h, w.c.r.OffsetSize()
	prefix := 6 + o + h.offsetSize()
	if bitmap == nil {
		r, err := w.c.block(addr, prefix+int(n)*h.entrySize+4, eaBlockSignature)
		if err != nil {
			return err
		}
		r.Skip(int64(prefix - 4))
		if err := w.collect(r, first, n); err != nil {
			return fmt.Errorf("extensible array data block at 0x%x: %w", addr, err)
		}
		return nil
	}

	if _, err := w.c.block(addr, prefix+4, eaBlockSignature); err != nil {
		return err
	}
	pageElems := uint64(1) << h.pageBits
	pageSize := pageElems*uint64(h.entrySize) + 4
	base := addr + uint64(prefix+4)
	for p := uint64(0); p < h.pages(n); p++ {
		if bitmap[p/8]&(0x80>>(p%8)) == 0 {
			continue
		}
		start := first + p*pageElems
		if start >= h.maxIdxSet {
			return nil
		}
		r, err := w.c.block(base+p*pageSize, int(pageElems)*h.entrySize+4, "")
		if err != nil {
			return err
		}
		if err := w.collect(r, start, pageElems); err != nil {
			return fmt.Errorf("extensible array page %d at 0x%x: %w", p, addr, err)
		}
	}
	return nil
}
