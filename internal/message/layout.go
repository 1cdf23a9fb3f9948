package message

import (
	"encoding/binary"
	"errors"
	"fmt"

	binpkg "github.com/robert-malhotra/h5pipe/internal/binary"
)

// LayoutClass is the storage class of a dataset.
type LayoutClass uint8

const (
	LayoutCompact    LayoutClass = 0
	LayoutContiguous LayoutClass = 1
	LayoutChunked    LayoutClass = 2
	LayoutVirtual    LayoutClass = 3
)

func (c LayoutClass) String() string {
	switch c {
	case LayoutCompact:
		return "compact"
	case LayoutContiguous:
		return "contiguous"
	case LayoutChunked:
		return "chunked"
	case LayoutVirtual:
		return "virtual"
	}
	return fmt.Sprintf("layout-%d", uint8(c))
}

// ChunkIndexType selects how chunk addresses are found. Layouts older than
// version 4 always use a version 1 B-tree.
type ChunkIndexType uint8

const (
	ChunkIndexBTreeV1         ChunkIndexType = 0
	ChunkIndexSingle          ChunkIndexType = 1
	ChunkIndexImplicit        ChunkIndexType = 2
	ChunkIndexFixedArray      ChunkIndexType = 3
	ChunkIndexExtensibleArray ChunkIndexType = 4
	ChunkIndexBTreeV2         ChunkIndexType = 5
)

func (t ChunkIndexType) String() string {
	switch t {
	case ChunkIndexBTreeV1:
		return "btree-v1"
	case ChunkIndexSingle:
		return "single"
	case ChunkIndexImplicit:
		return "implicit"
	case ChunkIndexFixedArray:
		return "fixed-array"
	case ChunkIndexExtensibleArray:
		return "extensible-array"
	case ChunkIndexBTreeV2:
		return "btree-v2"
	}
	return fmt.Sprintf("index-%d", uint8(t))
}

// Chunked layout flags (version 4).
const (
	ChunkDontFilterPartialEdges uint8 = 0x01
	ChunkFilteredSingle         uint8 = 0x02
)

// DefaultPageBits is the fixed array page size exponent written by the
// reference library.
const DefaultPageBits = 10

// DataLayout describes where a dataset's raw data lives (type 0x0008).
type DataLayout struct {
	Version uint8
	Class   LayoutClass

	// Compact.
	CompactData []byte

	// Contiguous. Address is also the chunk index address for chunked
	// layouts.
	Address uint64
	Size    uint64

	// Chunked. ChunkDims has one entry per dataspace dimension.
	ChunkDims   []uint32
	ElementSize uint32
	ChunkFlags  uint8
	IndexType   ChunkIndexType

	// Single chunk with filters.
	FilteredSize uint64
	FilterMask   uint32

	// Fixed and extensible array page bits.
	PageBits uint8
}

func (m *DataLayout) Type() Type { return TypeDataLayout }

func parseDataLayout(data []byte, r *binpkg.Reader) (*DataLayout, error) {
	if len(data) < 2 {
		return nil, truncated("data layout", 2, len(data))
	}
	m := &DataLayout{Version: data[0]}
	switch m.Version {
	case 1, 2:
		return m, m.parseV1(data, r)
	case 3, 4:
		return m, m.parseV3(data, r)
	}
	return nil, fmt.Errorf("unsupported data layout version %d", m.Version)
}

func (m *DataLayout) parseV1(data []byte, r *binpkg.Reader) error {
	if len(data) < 8 {
		return truncated("data layout", 8, len(data))
	}
	ndims := int(data[1])
	m.Class = LayoutClass(data[2])
	off := 8
	o := r.OffsetSize()
	if m.Class != LayoutCompact {
		if len(data) < off+o {
			return truncated("data layout address", off+o, len(data))
		}
		m.Address = binpkg.DecodeUint(data[off:], o, r.ByteOrder())
		off += o
	}
	if len(data) < off+4*ndims {
		return truncated("data layout dimensions", off+4*ndims, len(data))
	}
	dims := make([]uint32, ndims)
	for i := range dims {
		dims[i] = binary.LittleEndian.Uint32(data[off:])
		off += 4
	}
	switch m.Class {
	case LayoutChunked:
		if ndims < 1 {
			return errors.New("chunked layout without dimensions")
		}
		m.ChunkDims = dims[:ndims-1]
		m.ElementSize = dims[ndims-1]
	case LayoutCompact:
		if len(data) < off+4 {
			return truncated("compact size", off+4, len(data))
		}
		size := int(binary.LittleEndian.Uint32(data[off:]))
		off += 4
		if len(data) < off+size {
			return truncated("compact data", off+size, len(data))
		}
		m.CompactData = append([]byte(nil), data[off:off+size]...)
	}
	return nil
}

func (m *DataLayout) parseV3(data []byte, r *binpkg.Reader) error {
	m.Class = LayoutClass(data[1])
	off := 2
	o, l := r.OffsetSize(), r.LengthSize()
	order := r.ByteOrder()
	need := func(n int, what string) error {
		if len(data) < off+n {
			return truncated(what, off+n, len(data))
		}
		return nil
	}

	switch m.Class {
	case LayoutCompact:
		if err := need(2, "compact size"); err != nil {
			return err
		}
		size := int(binary.LittleEndian.Uint16(data[off:]))
		off += 2
		if err := need(size, "compact data"); err != nil {
			return err
		}
		m.CompactData = append([]byte(nil), data[off:off+size]...)

	case LayoutContiguous:
		if err := need(o+l, "contiguous layout"); err != nil {
			return err
		}
		m.Address = binpkg.DecodeUint(data[off:], o, order)
		m.Size = binpkg.DecodeUint(data[off+o:], l, order)

	case LayoutChunked:
		if m.Version == 3 {
			if err := need(1+o, "chunked layout"); err != nil {
				return err
			}
			ndims := int(data[off])
			off++
			m.Address = binpkg.DecodeUint(data[off:], o, order)
			off += o
			if err := need(4*ndims, "chunk dimensions"); err != nil {
				return err
			}
			if ndims < 1 {
				return errors.New("chunked layout without dimensions")
			}
			dims := make([]uint32, ndims)
			for i := range dims {
				dims[i] = binary.LittleEndian.Uint32(data[off:])
				off += 4
			}
			m.ChunkDims = dims[:ndims-1]
			m.ElementSize = dims[ndims-1]
			return nil
		}

		if err := need(3, "chunked layout"); err != nil {
			return err
		}
		m.ChunkFlags = data[off]
		ndims := int(data[off+1])
		width := int(data[off+2])
		off += 3
		if ndims < 1 || width < 1 || width > 8 {
			return fmt.Errorf("chunked layout: %d dimensions of %d bytes", ndims, width)
		}
		if err := need(ndims*width+1, "chunk dimensions"); err != nil {
			return err
		}
		dims := make([]uint32, ndims)
		for i := range dims {
			dims[i] = uint32(binpkg.DecodeUint(data[off:], width, binary.LittleEndian))
			off += width
		}
		m.ChunkDims = dims[:ndims-1]
		m.ElementSize = dims[ndims-1]
		m.IndexType = ChunkIndexType(data[off])
		off++

		switch m.IndexType {
		case ChunkIndexSingle:
			if m.ChunkFlags&ChunkFilteredSingle != 0 {
				if err := need(l+4, "single chunk info"); err != nil {
					return err
				}
				m.FilteredSize = binpkg.DecodeUint(data[off:], l, order)
				m.FilterMask = binary.LittleEndian.Uint32(data[off+l:])
				off += l + 4
			}
		case ChunkIndexImplicit:
		case ChunkIndexFixedArray:
			if err := need(1, "fixed array info"); err != nil {
				return err
			}
			m.PageBits = data[off]
			off++
		case ChunkIndexExtensibleArray:
			if err := need(5, "extensible array info"); err != nil {
				return err
			}
			m.PageBits = data[off+4]
			off += 5
		case ChunkIndexBTreeV2:
			off += 6
		default:
			return fmt.Errorf("unknown chunk index type %d", m.IndexType)
		}
		if err := need(o, "chunk index address"); err != nil {
			return err
		}
		m.Address = binpkg.DecodeUint(data[off:], o, order)

	case LayoutVirtual:
		if err := need(o, "virtual layout"); err != nil {
			return err
		}
		m.Address = binpkg.DecodeUint(data[off:], o, order)

	default:
		return fmt.Errorf("unknown layout class %d", m.Class)
	}
	return nil
}

// NewCompactLayout returns a version 3 compact layout holding data.
func NewCompactLayout(data []byte) *DataLayout {
	return &DataLayout{Version: 3, Class: LayoutCompact, CompactData: data}
}

// NewContiguousLayout returns a version 3 contiguous layout.
func NewContiguousLayout(address, size uint64) *DataLayout {
	return &DataLayout{Version: 3, Class: LayoutContiguous, Address: address, Size: size}
}

// NewChunkedLayout returns a version 4 chunked layout. The index type and
// address are filled in once the chunks are written.
func NewChunkedLayout(chunkDims []uint32, elemSize uint32) *DataLayout {
	return &DataLayout{
		Version:     4,
		Class:       LayoutChunked,
		ChunkDims:   chunkDims,
		ElementSize: elemSize,
		IndexType:   ChunkIndexSingle,
	}
}

// dimWidth returns the byte width needed for the largest chunk dimension.
func (m *DataLayout) dimWidth() int {
	largest := uint64(m.ElementSize)
	for _, d := range m.ChunkDims {
		largest = max(largest, uint64(d))
	}
	width := 1
	for largest > 0xFF {
		largest >>= 8
		width++
	}
	return width
}

// Serialize writes a version 3 compact or contiguous layout, or a version 4
// chunked layout.
func (m *DataLayout) Serialize(w *binpkg.Writer) error {
	switch m.Class {
	case LayoutCompact:
		return writeAll(
			func() error { return w.WriteUint8(3) },
			func() error { return w.WriteUint8(uint8(LayoutCompact)) },
			func() error { return w.WriteUint16(uint16(len(m.CompactData))) },
			func() error { return w.WriteBytes(m.CompactData) },
		)
	case LayoutContiguous:
		return writeAll(
			func() error { return w.WriteUint8(3) },
			func() error { return w.WriteUint8(uint8(LayoutContiguous)) },
			func() error { return w.WriteOffset(m.Address) },
			func() error { return w.WriteLength(m.Size) },
		)
	case LayoutChunked:
	default:
		return fmt.Errorf("cannot write %s layout", m.Class)
	}

	flags := m.ChunkFlags &^ ChunkFilteredSingle
	if m.IndexType == ChunkIndexSingle && m.FilteredSize > 0 {
		flags |= ChunkFilteredSingle
	}
	width := m.dimWidth()
	steps := []func() error{
		func() error { return w.WriteUint8(4) },
		func() error { return w.WriteUint8(uint8(LayoutChunked)) },
		func() error { return w.WriteUint8(flags) },
		func() error { return w.WriteUint8(uint8(len(m.ChunkDims) + 1)) },
		func() error { return w.WriteUint8(uint8(width)) },
	}
	for _, d := range append(append([]uint32(nil), m.ChunkDims...), m.ElementSize) {
		steps = append(steps, func() error {
			buf := make([]byte, width)
			binpkg.EncodeUint(buf, uint64(d), width, binary.LittleEndian)
			return w.WriteBytes(buf)
		})
	}
	steps = append(steps, func() error { return w.WriteUint8(uint8(m.IndexType)) })
	switch m.IndexType {
	case ChunkIndexSingle:
		if flags&ChunkFilteredSingle != 0 {
			steps = append(steps,
				func() error { return w.WriteLength(m.FilteredSize) },
				func() error { return w.WriteUint32(m.FilterMask) },
			)
		}
	case ChunkIndexImplicit:
	case ChunkIndexFixedArray:
		steps = append(steps, func() error { return w.WriteUint8(m.pageBits()) })
	default:
		return fmt.Errorf("cannot write %s chunk index", m.IndexType)
	}
	steps = append(steps, func() error { return w.WriteOffset(m.Address) })
	return writeAll(steps...)
}

func (m *DataLayout) pageBits() uint8 {
	if m.PageBits == 0 {
		return DefaultPageBits
	}
	return m.PageBits
}

// SerializedSize returns the encoded size.
func (m *DataLayout) SerializedSize(w *binpkg.Writer) int {
	switch m.Class {
	case LayoutCompact:
		return 4 + len(m.CompactData)
	case LayoutContiguous:
		return 2 + w.OffsetSize() + w.LengthSize()
	}
	size := 5 + (len(m.ChunkDims)+1)*m.dimWidth() + 1 + w.OffsetSize()
	switch m.IndexType {
	case ChunkIndexSingle:
		if m.FilteredSize > 0 {
			size += w.LengthSize() + 4
		}
	case ChunkIndexFixedArray:
		size++
	}
	return size
}

func writeAll(steps ...func() error) error {
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}
