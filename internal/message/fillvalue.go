package message

import (
	"encoding/binary"
	"fmt"

	binpkg "github.com/robert-malhotra/h5pipe/internal/binary"
)

// Space allocation times.
const (
	AllocEarly       uint8 = 1
	AllocLate        uint8 = 2
	AllocIncremental uint8 = 3
)

// Fill value write times.
const (
	FillOnAlloc uint8 = 0
	FillNever   uint8 = 1
	FillIfSet   uint8 = 2
)

// FillValue is the fill value message (type 0x0005).
type FillValue struct {
	Version        uint8
	SpaceAllocTime uint8
	FillWriteTime  uint8
	Defined        bool
	Value          []byte
}

func (m *FillValue) Type() Type { return TypeFillValue }

func parseFillValue(data []byte) (*FillValue, error) {
	if len(data) < 2 {
		return nil, truncated("fill value", 2, len(data))
	}
	fv := &FillValue{Version: data[0]}

	switch fv.Version {
	case 1, 2:
		if len(data) < 4 {
			return nil, truncated("fill value", 4, len(data))
		}
		fv.SpaceAllocTime = data[1]
		fv.FillWriteTime = data[2]
		fv.Defined = data[3] != 0
		if fv.Defined && len(data) >= 8 {
			size := int(binary.LittleEndian.Uint32(data[4:]))
			if len(data) < 8+size {
				return nil, truncated("fill value data", 8+size, len(data))
			}
			fv.Value = data[8 : 8+size]
		}

	case 3:
		flags := data[1]
		fv.SpaceAllocTime = flags & 0x03
		fv.FillWriteTime = flags >> 2 & 0x03
		fv.Defined = flags&0x20 != 0
		if fv.Defined {
			if len(data) < 6 {
				return nil, truncated("fill value", 6, len(data))
			}
			size := int(binary.LittleEndian.Uint32(data[2:]))
			if len(data) < 6+size {
				return nil, truncated("fill value data", 6+size, len(data))
			}
			fv.Value = data[6 : 6+size]
		}

	default:
		return nil, fmt.Errorf("unsupported fill value version %d", fv.Version)
	}
	return fv, nil
}

// NewFillValue returns a version 3 fill value message with no user value:
// storage is allocated late and filled only if a value is set.
func NewFillValue() *FillValue {
	return &FillValue{Version: 3, SpaceAllocTime: AllocLate, FillWriteTime: FillIfSet}
}

// Serialize writes a version 3 fill value message.
func (m *FillValue) Serialize(w *binpkg.Writer) error {
	flags := m.SpaceAllocTime&0x03 | (m.FillWriteTime&0x03)<<2
	if m.Defined {
		flags |= 0x20
	}
	if err := w.WriteUint8(3); err != nil {
		return err
	}
	if err := w.WriteUint8(flags); err != nil {
		return err
	}
	if !m.Defined {
		return nil
	}
	if err := w.WriteUint32(uint32(len(m.Value))); err != nil {
		return err
	}
	return w.WriteBytes(m.Value)
}

// SerializedSize returns the encoded size.
func (m *FillValue) SerializedSize(*binpkg.Writer) int {
	if m.Defined {
		return 6 + len(m.Value)
	}
	return 2
}
