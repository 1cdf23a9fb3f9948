package message

import (
	"github.com/robert-malhotra/h5pipe/internal/binary"
)

// DataspaceType is the kind of dataspace.
type DataspaceType uint8

const (
	DataspaceScalar DataspaceType = 0
	DataspaceSimple DataspaceType = 1
	DataspaceNull   DataspaceType = 2
)

// Dataspace describes the shape of a dataset or attribute (type 0x0001).
type Dataspace struct {
	Version    uint8
	SpaceType  DataspaceType
	Dimensions []uint64
	MaxDims    []uint64 // nil when absent
}

func (m *Dataspace) Type() Type { return TypeDataspace }

// Rank returns the number of dimensions.
func (m *Dataspace) Rank() int {
	return len(m.Dimensions)
}

// NumElements returns the number of elements the dataspace holds.
func (m *Dataspace) NumElements() uint64 {
	switch m.SpaceType {
	case DataspaceScalar:
		return 1
	case DataspaceSimple:
		n := uint64(1)
		for _, d := range m.Dimensions {
			n *= d
		}
		return n
	}
	return 0
}

// IsScalar reports whether the dataspace holds a single value.
func (m *Dataspace) IsScalar() bool {
	return m.SpaceType == DataspaceScalar
}

// IsNull reports whether the dataspace holds no data at all.
func (m *Dataspace) IsNull() bool {
	return m.SpaceType == DataspaceNull
}

/*
Version 1: version, rank, flags, reserved (5), dims, [max dims], [perm]
Version 2: version, rank, flags, type, dims, [max dims]
Dimensions use the file's length size.
*/
func parseDataspace(data []byte, r *binary.Reader) (*Dataspace, error) {
	if len(data) < 4 {
		return nil, truncated("dataspace", 4, len(data))
	}
	ds := &Dataspace{Version: data[0]}
	rank := int(data[1])
	flags := data[2]

	off := 4
	switch ds.Version {
	case 1:
		off = 8
		ds.SpaceType = DataspaceSimple
		if rank == 0 {
			ds.SpaceType = DataspaceScalar
		}
	default:
		ds.SpaceType = DataspaceType(data[3])
	}
	if ds.SpaceType != DataspaceSimple {
		return ds, nil
	}

	ls := r.LengthSize()
	need := off + rank*ls
	if flags&0x01 != 0 {
		need += rank * ls
	}
	if len(data) < need {
		return nil, truncated("dataspace dimensions", need, len(data))
	}

	read := func() []uint64 {
		dims := make([]uint64, rank)
		for i := range dims {
			dims[i] = binary.DecodeUint(data[off:], ls, r.ByteOrder())
			off += ls
		}
		return dims
	}
	ds.Dimensions = read()
	if flags&0x01 != 0 {
		ds.MaxDims = read()
	}
	return ds, nil
}
