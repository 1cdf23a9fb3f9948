package layout

import (
	"fmt"

	"github.com/robert-malhotra/h5pipe/internal/binary"
	"github.com/robert-malhotra/h5pipe/internal/btree"
	"github.com/robert-malhotra/h5pipe/internal/filter"
	"github.com/robert-malhotra/h5pipe/internal/message"
)

// Chunked storage splits the dataset into equally sized chunks located
// through a chunk index.
type Chunked struct {
	r        *binary.Reader
	ds       Dataset
	dims     []uint64
	chunk    []uint32
	pipeline *filter.Pipeline
}

// NewChunked validates the chunk shape and builds the filter pipeline.
func NewChunked(r *binary.Reader, ds Dataset) (*Chunked, error) {
	dims := ds.Space.Dimensions
	chunk := ds.Layout.ChunkDims
	if len(chunk) != len(dims) {
		return nil, fmt.Errorf("chunk rank %d does not match dataspace rank %d", len(chunk), len(dims))
	}
	for d, c := range chunk {
		if c == 0 {
			return nil, fmt.Errorf("chunk dimension %d is zero", d)
		}
	}
	p, err := filter.NewPipeline(ds.Filters)
	if err != nil {
		return nil, err
	}
	return &Chunked{r: r, ds: ds, dims: dims, chunk: chunk, pipeline: p}, nil
}

// Class implements Layout.
func (c *Chunked) Class() message.LayoutClass { return message.LayoutChunked }

// ChunkDims returns the chunk shape.
func (c *Chunked) ChunkDims() []uint32 { return c.chunk }

// chunkBytes is the unfiltered size of one chunk.
func (c *Chunked) chunkBytes() uint64 {
	n := uint64(c.ds.ElemSize)
	for _, d := range c.chunk {
		n *= uint64(d)
	}
	return n
}

// Chunks returns the allocated chunks from whichever index the layout uses.
func (c *Chunked) Chunks() ([]btree.ChunkEntry, error) {
	l := c.ds.Layout
	if c.ds.Size() == 0 || c.r.IsUndefinedOffset(l.Address) {
		return nil, nil
	}
	if l.Version < 4 {
		idx, err := btree.ReadChunkIndex(c.r, l.Address, len(c.chunk))
		if err != nil {
			return nil, err
		}
		return idx.Entries, nil
	}

	switch l.IndexType {
	case message.ChunkIndexSingle:
		e := btree.ChunkEntry{
			Offset:  make([]uint64, len(c.chunk)),
			Address: l.Address,
		}
		if l.ChunkFlags&message.ChunkFilteredSingle != 0 || l.FilteredSize > 0 {
			e.Size = l.FilteredSize
			e.FilterMask = l.FilterMask
		}
		return []btree.ChunkEntry{e}, nil
	case message.ChunkIndexImplicit:
		return c.implicitChunks(), nil
	case message.ChunkIndexFixedArray:
		return c.readFixedArray(l.Address)
	case message.ChunkIndexExtensibleArray:
		return c.readExtensibleArray(l.Address)
	case message.ChunkIndexBTreeV2:
		idx, err := btree.ReadChunkIndexV2(c.r, l.Address, c.chunk)
		if err != nil {
			return nil, err
		}
		return idx.Entries, nil
	case message.ChunkIndexBTreeV1:
		idx, err := btree.ReadChunkIndex(c.r, l.Address, len(c.chunk))
		if err != nil {
			return nil, err
		}
		return idx.Entries, nil
	default:
		return nil, fmt.Errorf("unsupported chunk index: %s", l.IndexType)
	}
}

// Read decodes every chunk into a dataset-sized buffer. Chunks that were
// never allocated keep the fill value.
func (c *Chunked) Read() ([]byte, error) {
	out := c.ds.filled()
	if len(out) == 0 {
		return out, nil
	}
	entries, err := c.Chunks()
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		data, err := c.readChunk(e)
		if err != nil {
			return nil, fmt.Errorf("chunk at %v: %w", e.Offset, err)
		}
		c.place(out, data, e.Offset)
	}
	return out, nil
}

// readChunk reads and unfilters one chunk.
func (c *Chunked) readChunk(e btree.ChunkEntry) ([]byte, error) {
	size := e.Size
	if size == 0 {
		size = c.chunkBytes()
	}
	raw, err := c.r.At(int64(e.Address)).ReadBytes(int(size))
	if err != nil {
		return nil, err
	}
	data, err := c.pipeline.Decode(raw, e.FilterMask)
	if err != nil {
		return nil, err
	}
	if uint64(len(data)) < c.chunkBytes() {
		return nil, fmt.Errorf("decoded %d bytes, chunk needs %d", len(data), c.chunkBytes())
	}
	return data, nil
}

// place copies the part of a chunk that lies inside the dataset.
func (c *Chunked) place(out, chunk []byte, offset []uint64) {
	eachRow(c.dims, c.chunk, offset, uint64(c.ds.ElemSize), func(dst, src, n uint64) {
		copy(out[dst:dst+n], chunk[src:src+n])
	})
}

// eachRow calls fn for every innermost row of the chunk at offset that
// lies inside dims, with the byte positions of the row in the dataset and
// in the chunk and the row length in bytes.
func eachRow(dims []uint64, chunk []uint32, offset []uint64, elem uint64, fn func(dst, src, n uint64)) {
	rank := len(dims)
	if rank == 0 {
		fn(0, 0, elem)
		return
	}

	extent := make([]uint64, rank)
	for d := range extent {
		if offset[d] >= dims[d] {
			return
		}
		extent[d] = min(uint64(chunk[d]), dims[d]-offset[d])
	}

	row := extent[rank-1] * elem
	pos := make([]uint64, rank)
	for {
		var src, dst uint64
		for d := 0; d < rank; d++ {
			src = src*uint64(chunk[d]) + pos[d]
			dst = dst*dims[d] + offset[d] + pos[d]
		}
		fn(dst*elem, src*elem, row)

		d := rank - 2
		for ; d >= 0; d-- {
			pos[d]++
			if pos[d] < extent[d] {
				break
			}
			pos[d] = 0
		}
		if d < 0 {
			return
		}
	}
}

// grid returns the number of chunks along each dimension for dims.
func (c *Chunked) grid(dims []uint64) []uint64 {
	n := make([]uint64, len(dims))
	for d := range dims {
		n[d] = (dims[d] + uint64(c.chunk[d]) - 1) / uint64(c.chunk[d])
	}
	return n
}

// maxGrid is the chunk grid of the maximum dimensions. Fixed array and
// implicit indexes are laid out over it.
func (c *Chunked) maxGrid() []uint64 {
	maxDims := c.ds.Space.MaxDims
	if len(maxDims) != len(c.dims) {
		return c.grid(c.dims)
	}
	dims := make([]uint64, len(c.dims))
	for d := range dims {
		dims[d] = maxDims[d]
		if binary.UndefinedFor(8) == maxDims[d] {
			dims[d] = c.dims[d]
		}
	}
	return c.grid(dims)
}

// offsetOf converts a row-major linear chunk index over grid into the
// chunk's first element. It reports false when the chunk lies outside the
// current extent.
func (c *Chunked) offsetOf(idx uint64, grid []uint64) ([]uint64, bool) {
	off := make([]uint64, len(grid))
	for d := len(grid) - 1; d >= 0; d-- {
		scaled := idx % grid[d]
		idx /= grid[d]
		off[d] = scaled * uint64(c.chunk[d])
		if off[d] >= c.dims[d] {
			return nil, false
		}
	}
	return off, true
}

// implicitChunks lists the chunks of an implicit index, which stores every
// chunk back to back in linear order.
func (c *Chunked) implicitChunks() []btree.ChunkEntry {
	grid := c.maxGrid()
	total := uint64(1)
	for _, n := range grid {
		total *= n
	}
	var entries []btree.ChunkEntry
	for i := uint64(0); i < total; i++ {
		off, ok := c.offsetOf(i, grid)
		if !ok {
			continue
		}
		entries = append(entries, btree.ChunkEntry{
			Offset:  off,
			Address: c.ds.Layout.Address + i*c.chunkBytes(),
		})
	}
	return entries
}
