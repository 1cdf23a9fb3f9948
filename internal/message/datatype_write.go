package message

import (
	"encoding/binary"

	binpkg "github.com/robert-malhotra/h5pipe/internal/binary"
)

// Serialize writes the datatype header followed by its raw properties.
func (m *Datatype) Serialize(w *binpkg.Writer) error {
	version := m.Version
	if version == 0 {
		version = 1
	}
	head := []byte{
		version<<4 | uint8(m.Class),
		uint8(m.ClassBits), uint8(m.ClassBits >> 8), uint8(m.ClassBits >> 16),
		0, 0, 0, 0,
	}
	binary.LittleEndian.PutUint32(head[4:], m.Size)
	if err := w.WriteBytes(head); err != nil {
		return err
	}
	return w.WriteBytes(m.Properties)
}

// SerializedSize returns the encoded size.
func (m *Datatype) SerializedSize(*binpkg.Writer) int {
	return 8 + len(m.Properties)
}

// NewFixedPointDatatype returns a little- or big-endian integer type.
func NewFixedPointDatatype(size uint32, signed bool, order ByteOrder) *Datatype {
	bits := uint32(order)
	if signed {
		bits |= 0x08
	}
	props := make([]byte, 4)
	binary.LittleEndian.PutUint16(props[2:], uint16(size*8))
	return &Datatype{
		Version:      1,
		Class:        ClassFixedPoint,
		ClassBits:    bits,
		Size:         size,
		ByteOrder:    order,
		Signed:       signed,
		BitPrecision: uint16(size * 8),
		Properties:   props,
	}
}

// NewFloatDatatype returns an IEEE 754 binary32 or binary64 type.
func NewFloatDatatype(size uint32, order ByteOrder) *Datatype {
	// bit offset, precision, exponent location and size, mantissa
	// location and size, exponent bias
	var props []byte
	var sign uint32
	switch size {
	case 4:
		sign = 31
		props = []byte{0, 0, 32, 0, 23, 8, 0, 23, 127, 0, 0, 0}
	default:
		size, sign = 8, 63
		props = []byte{0, 0, 64, 0, 52, 11, 0, 52, 0xff, 0x03, 0, 0}
	}
	// Bit 5 is "mantissa MSB implied".
	bits := uint32(order) | 1<<5 | sign<<8
	return &Datatype{
		Version:    1,
		Class:      ClassFloatPoint,
		ClassBits:  bits,
		Size:       size,
		ByteOrder:  order,
		Properties: props,
	}
}

// NewStringDatatype returns a fixed-length string type of size bytes.
func NewStringDatatype(size uint32, padding StringPadding, charset CharacterSet) *Datatype {
	return &Datatype{
		Version:       1,
		Class:         ClassString,
		ClassBits:     uint32(padding) | uint32(charset)<<4,
		Size:          size,
		StringPadding: padding,
		CharSet:       charset,
		Properties:    []byte{},
	}
}
