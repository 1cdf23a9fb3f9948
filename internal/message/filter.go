package message

import (
	"encoding/binary"
	"fmt"

	binpkg "github.com/robert-malhotra/h5pipe/internal/binary"
)

// Filter IDs.
const (
	FilterDeflate     uint16 = 1
	FilterShuffle     uint16 = 2
	FilterFletcher32  uint16 = 3
	FilterSZIP        uint16 = 4
	FilterNBit        uint16 = 5
	FilterScaleOffset uint16 = 6
)

// FilterOptional marks a filter whose failure leaves the chunk unfiltered.
const FilterOptional uint16 = 0x0001

// FilterInfo is one entry of a filter pipeline.
type FilterInfo struct {
	ID         uint16
	Flags      uint16
	Name       string
	ClientData []uint32
}

// IsOptional reports whether the filter may be skipped.
func (f *FilterInfo) IsOptional() bool {
	return f.Flags&FilterOptional != 0
}

// FilterPipeline lists the filters applied to every chunk (type 0x000B).
type FilterPipeline struct {
	Version uint8
	Filters []FilterInfo
}

func (m *FilterPipeline) Type() Type { return TypeFilterPipeline }

// HasFilter reports whether the pipeline contains the filter id.
func (m *FilterPipeline) HasFilter(id uint16) bool {
	for _, f := range m.Filters {
		if f.ID == id {
			return true
		}
	}
	return false
}

/*
Version 1: version, count, reserved (6), then per filter: id, name length,
flags, client data count, name padded to 8 bytes, client data, and 4 bytes
of padding after an odd client data count.
Version 2: version, count, then per filter: id, name length (only for ids
>= 256), flags, client data count, name, client data.
*/
func parseFilterPipeline(data []byte) (*FilterPipeline, error) {
	if len(data) < 2 {
		return nil, truncated("filter pipeline", 2, len(data))
	}
	fp := &FilterPipeline{Version: data[0]}
	if fp.Version != 1 && fp.Version != 2 {
		return nil, fmt.Errorf("unsupported filter pipeline version %d", fp.Version)
	}
	count := int(data[1])
	off := 2
	if fp.Version == 1 {
		off = 8
	}
	for i := 0; i < count; i++ {
		f, n, err := parseFilterInfo(data[min(off, len(data)):], fp.Version)
		if err != nil {
			return nil, fmt.Errorf("filter %d: %w", i, err)
		}
		fp.Filters = append(fp.Filters, f)
		off += n
	}
	return fp, nil
}

func parseFilterInfo(data []byte, version uint8) (FilterInfo, int, error) {
	var f FilterInfo
	le := binary.LittleEndian
	if len(data) < 2 {
		return f, 0, truncated("filter", 2, len(data))
	}
	f.ID = le.Uint16(data)
	off := 2

	hasName := version == 1 || f.ID >= 256
	head := 4
	if hasName {
		head = 6
	}
	if len(data) < off+head {
		return f, 0, truncated("filter", off+head, len(data))
	}
	var nameLen int
	if hasName {
		nameLen = int(le.Uint16(data[off:]))
		off += 2
	}
	f.Flags = le.Uint16(data[off:])
	numCD := int(le.Uint16(data[off+2:]))
	off += 4

	if nameLen > 0 {
		if len(data) < off+nameLen {
			return f, 0, truncated("filter name", off+nameLen, len(data))
		}
		name := data[off : off+nameLen]
		for i, c := range name {
			if c == 0 {
				name = name[:i]
				break
			}
		}
		f.Name = string(name)
		if version == 1 {
			nameLen = align8(nameLen)
		}
		off += nameLen
	}

	if len(data) < off+4*numCD {
		return f, 0, truncated("filter client data", off+4*numCD, len(data))
	}
	f.ClientData = make([]uint32, numCD)
	for i := range f.ClientData {
		f.ClientData[i] = le.Uint32(data[off:])
		off += 4
	}
	if version == 1 && numCD%2 != 0 {
		off += 4
	}
	return f, off, nil
}

// NewFilterPipeline returns a version 2 pipeline.
func NewFilterPipeline(filters ...FilterInfo) *FilterPipeline {
	return &FilterPipeline{Version: 2, Filters: filters}
}

// DeflateFilter returns an optional deflate entry at level.
func DeflateFilter(level int) FilterInfo {
	return FilterInfo{ID: FilterDeflate, Flags: FilterOptional, ClientData: []uint32{uint32(level)}}
}

// ShuffleFilter returns an optional shuffle entry for elements of elemSize
// bytes.
func ShuffleFilter(elemSize uint32) FilterInfo {
	return FilterInfo{ID: FilterShuffle, Flags: FilterOptional, ClientData: []uint32{elemSize}}
}

// Fletcher32Filter returns a mandatory Fletcher-32 entry.
func Fletcher32Filter() FilterInfo {
	return FilterInfo{ID: FilterFletcher32}
}

// Serialize writes a version 2 pipeline.
func (m *FilterPipeline) Serialize(w *binpkg.Writer) error {
	if err := w.WriteUint8(2); err != nil {
		return err
	}
	if err := w.WriteUint8(uint8(len(m.Filters))); err != nil {
		return err
	}
	for _, f := range m.Filters {
		if err := w.WriteUint16(f.ID); err != nil {
			return err
		}
		if f.ID >= 256 {
			if err := w.WriteUint16(uint16(len(f.Name) + 1)); err != nil {
				return err
			}
		}
		if err := w.WriteUint16(f.Flags); err != nil {
			return err
		}
		if err := w.WriteUint16(uint16(len(f.ClientData))); err != nil {
			return err
		}
		if f.ID >= 256 {
			if err := w.WriteBytes(append([]byte(f.Name), 0)); err != nil {
				return err
			}
		}
		for _, cd := range f.ClientData {
			if err := w.WriteUint32(cd); err != nil {
				return err
			}
		}
	}
	return nil
}

// SerializedSize returns the encoded size.
func (m *FilterPipeline) SerializedSize(*binpkg.Writer) int {
	size := 2
	for _, f := range m.Filters {
		size += 6 + 4*len(f.ClientData)
		if f.ID >= 256 {
			size += 2 + len(f.Name) + 1
		}
	}
	return size
}
