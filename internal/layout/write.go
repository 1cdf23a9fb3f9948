package layout

import (
	"fmt"
	"math/bits"

	"github.com/robert-malhotra/h5pipe/internal/binary"
	"github.com/robert-malhotra/h5pipe/internal/filter"
	"github.com/robert-malhotra/h5pipe/internal/message"
)

// Allocator hands out file space at the end of the file.
type Allocator interface {
	Alloc(size uint64) uint64
}

// WriteContiguous stores data as one block. Empty data gets no storage.
func WriteContiguous(w *binary.Writer, a Allocator, data []byte) (*message.DataLayout, error) {
	if len(data) == 0 {
		return message.NewContiguousLayout(w.UndefinedOffset(), 0), nil
	}
	addr := a.Alloc(uint64(len(data)))
	if err := w.At(int64(addr)).WriteBytes(data); err != nil {
		return nil, fmt.Errorf("writing contiguous data: %w", err)
	}
	return message.NewContiguousLayout(addr, uint64(len(data))), nil
}

// ChunkWriter writes chunked datasets with a single chunk or fixed array
// index.
type ChunkWriter struct {
	w        *binary.Writer
	alloc    Allocator
	dims     []uint64
	chunk    []uint32
	elemSize uint32
	pipeline *filter.Pipeline
}

// NewChunkWriter checks the chunk shape against dims and builds the filter
// pipeline from fp, which may be nil.
func NewChunkWriter(w *binary.Writer, a Allocator, dims []uint64, chunk []uint32, elemSize uint32, fp *message.FilterPipeline) (*ChunkWriter, error) {
	if len(dims) == 0 {
		return nil, fmt.Errorf("scalar datasets cannot be chunked")
	}
	if len(chunk) != len(dims) {
		return nil, fmt.Errorf("chunk rank %d does not match dataset rank %d", len(chunk), len(dims))
	}
	for d, c := range chunk {
		if c == 0 {
			return nil, fmt.Errorf("chunk dimension %d is zero", d)
		}
	}
	p, err := filter.NewPipeline(fp)
	if err != nil {
		return nil, err
	}
	return &ChunkWriter{w: w, alloc: a, dims: dims, chunk: chunk, elemSize: elemSize, pipeline: p}, nil
}

// ChunkSize returns the unfiltered size of one chunk in bytes.
func (cw *ChunkWriter) ChunkSize() uint64 {
	n := uint64(cw.elemSize)
	for _, d := range cw.chunk {
		n *= uint64(d)
	}
	return n
}

// storedChunk is one written chunk.
type storedChunk struct {
	addr uint64
	size uint64
}

// Write filters and stores every chunk, then the index, and returns the
// layout message describing them.
func (cw *ChunkWriter) Write(data []byte) (*message.DataLayout, error) {
	var total uint64 = 1
	for _, d := range cw.dims {
		total *= d
	}
	if uint64(len(data)) != total*uint64(cw.elemSize) {
		return nil, fmt.Errorf("data holds %d bytes, dataset needs %d", len(data), total*uint64(cw.elemSize))
	}

	l := message.NewChunkedLayout(cw.chunk, cw.elemSize)
	if total == 0 {
		l.Address = cw.w.UndefinedOffset()
		return l, nil
	}

	chunks := Split(data, cw.dims, cw.chunk, cw.elemSize)
	stored := make([]storedChunk, len(chunks))
	for i, raw := range chunks {
		enc, err := cw.pipeline.Encode(raw)
		if err != nil {
			return nil, fmt.Errorf("chunk %d: %w", i, err)
		}
		addr := cw.alloc.Alloc(uint64(len(enc)))
		if err := cw.w.At(int64(addr)).WriteBytes(enc); err != nil {
			return nil, fmt.Errorf("writing chunk %d: %w", i, err)
		}
		stored[i] = storedChunk{addr: addr, size: uint64(len(enc))}
	}

	if len(stored) == 1 {
		l.Address = stored[0].addr
		if !cw.pipeline.Empty() {
			l.FilteredSize = stored[0].size
		}
		return l, nil
	}

	addr, err := cw.writeFixedArray(stored)
	if err != nil {
		return nil, err
	}
	l.IndexType = message.ChunkIndexFixedArray
	l.PageBits = message.DefaultPageBits
	l.Address = addr
	return l, nil
}

// sizeWidth is the encoded width of a filtered chunk size, one byte wider
// than the unfiltered size needs.
func (cw *ChunkWriter) sizeWidth() int {
	return min(8, 1+(bits.Len64(cw.ChunkSize())-1+8)/8)
}

// writeFixedArray writes the fixed array header and data block for the
// chunks and returns the header address.
func (cw *ChunkWriter) writeFixedArray(chunks []storedChunk) (uint64, error) {
	o, l := cw.w.OffsetSize(), cw.w.LengthSize()
	client := uint8(clientChunks)
	entrySize := o
	if !cw.pipeline.Empty() {
		client = clientFilteredChunks
		entrySize += cw.sizeWidth() + 4
	}
	nelmts := uint64(len(chunks))
	pageElems := uint64(1) << message.DefaultPageBits

	hdrAddr := cw.alloc.Alloc(uint64(8 + l + o + 4))

	entries := func(bw *binary.Writer, from []storedChunk) error {
		for _, c := range from {
			if err := bw.WriteOffset(c.addr); err != nil {
				return err
			}
			if client != clientFilteredChunks {
				continue
			}
			if bits.Len64(c.size) > 8*cw.sizeWidth() {
				return fmt.Errorf("filtered chunk of %d bytes does not fit its index entry", c.size)
			}
			if err := bw.WriteUintN(c.size, cw.sizeWidth()); err != nil {
				return err
			}
			if err := bw.WriteUint32(0); err != nil {
				return err
			}
		}
		return nil
	}
	prefix := func(bw *binary.Writer) error {
		return writeAll(
			func() error { return bw.WriteBytes([]byte(faBlockSignature)) },
			func() error { return bw.WriteUint8(0) },
			func() error { return bw.WriteUint8(client) },
			func() error { return bw.WriteOffset(hdrAddr) },
		)
	}

	var dblk uint64
	if nelmts <= pageElems {
		blk, err := cw.checksummed(func(bw *binary.Writer) error {
			if err := prefix(bw); err != nil {
				return err
			}
			return entries(bw, chunks)
		})
		if err != nil {
			return 0, err
		}
		dblk = cw.alloc.Alloc(uint64(len(blk)))
		if err := cw.w.At(int64(dblk)).WriteBytes(blk); err != nil {
			return 0, err
		}
	} else {
		npages := (nelmts + pageElems - 1) / pageElems
		bitmap := make([]byte, (npages+7)/8)
		for p := uint64(0); p < npages; p++ {
			bitmap[p/8] |= 0x80 >> (p % 8)
		}
		head, err := cw.checksummed(func(bw *binary.Writer) error {
			if err := prefix(bw); err != nil {
				return err
			}
			return bw.WriteBytes(bitmap)
		})
		if err != nil {
			return 0, err
		}
		pageSize := pageElems*uint64(entrySize) + 4
		last := (nelmts-(npages-1)*pageElems)*uint64(entrySize) + 4
		dblk = cw.alloc.Alloc(uint64(len(head)) + (npages-1)*pageSize + last)
		if err := cw.w.At(int64(dblk)).WriteBytes(head); err != nil {
			return 0, err
		}
		for p := uint64(0); p < npages; p++ {
			from := chunks[p*pageElems : min(nelmts, (p+1)*pageElems)]
			page, err := cw.checksummed(func(bw *binary.Writer) error { return entries(bw, from) })
			if err != nil {
				return 0, err
			}
			at := dblk + uint64(len(head)) + p*pageSize
			if err := cw.w.At(int64(at)).WriteBytes(page); err != nil {
				return 0, err
			}
		}
	}

	hdr, err := cw.checksummed(func(bw *binary.Writer) error {
		return writeAll(
			func() error { return bw.WriteBytes([]byte(faHeaderSignature)) },
			func() error { return bw.WriteUint8(0) },
			func() error { return bw.WriteUint8(client) },
			func() error { return bw.WriteUint8(uint8(entrySize)) },
			func() error { return bw.WriteUint8(message.DefaultPageBits) },
			func() error { return bw.WriteLength(nelmts) },
			func() error { return bw.WriteOffset(dblk) },
		)
	})
	if err != nil {
		return 0, err
	}
	if err := cw.w.At(int64(hdrAddr)).WriteBytes(hdr); err != nil {
		return 0, err
	}
	return hdrAddr, nil
}

// checksummed assembles a block in memory and appends its checksum.
func (cw *ChunkWriter) checksummed(build func(*binary.Writer) error) ([]byte, error) {
	bw, buf := binary.NewBufferWriter(cw.w.Config(), 64)
	if err := build(bw); err != nil {
		return nil, err
	}
	if err := bw.WriteUint32(binary.Lookup3Checksum(buf.Bytes())); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Split cuts row-major data into chunks in row-major order of the chunk
// grid. Edge chunks are zero-padded to full size.
func Split(data []byte, dims []uint64, chunk []uint32, elemSize uint32) [][]byte {
	if len(dims) == 0 {
		return [][]byte{data}
	}
	grid := make([]uint64, len(dims))
	total := uint64(1)
	size := uint64(elemSize)
	for d := range dims {
		grid[d] = (dims[d] + uint64(chunk[d]) - 1) / uint64(chunk[d])
		total *= grid[d]
		size *= uint64(chunk[d])
	}

	out := make([][]byte, 0, total)
	offset := make([]uint64, len(dims))
	for i := uint64(0); i < total; i++ {
		idx := i
		for d := len(dims) - 1; d >= 0; d-- {
			offset[d] = (idx % grid[d]) * uint64(chunk[d])
			idx /= grid[d]
		}
		buf := make([]byte, size)
		eachRow(dims, chunk, offset, uint64(elemSize), func(dst, src, n uint64) {
			copy(buf[src:src+n], data[dst:dst+n])
		})
		out = append(out, buf)
	}
	return out
}

func writeAll(steps ...func() error) error {
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}
