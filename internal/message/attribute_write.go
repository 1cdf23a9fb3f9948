package message

import (
	"github.com/robert-malhotra/h5pipe/internal/binary"
)

// NewAttribute returns a version 3 attribute.
func NewAttribute(name string, dt *Datatype, ds *Dataspace, data []byte) *Attribute {
	return &Attribute{
		Version:   3,
		Name:      name,
		Datatype:  dt,
		Dataspace: ds,
		Data:      data,
	}
}

// Serialize writes a version 3 attribute with a UTF-8 name.
func (m *Attribute) Serialize(w *binary.Writer) error {
	if err := w.WriteUint8(3); err != nil {
		return err
	}
	if err := w.WriteUint8(0); err != nil {
		return err
	}
	for _, n := range []int{len(m.Name) + 1, m.Datatype.SerializedSize(w), m.Dataspace.SerializedSize(w)} {
		if err := w.WriteUint16(uint16(n)); err != nil {
			return err
		}
	}
	if err := w.WriteUint8(uint8(CharsetUTF8)); err != nil {
		return err
	}
	if err := w.WriteBytes(append([]byte(m.Name), 0)); err != nil {
		return err
	}
	if err := m.Datatype.Serialize(w); err != nil {
		return err
	}
	if err := m.Dataspace.Serialize(w); err != nil {
		return err
	}
	return w.WriteBytes(m.Data)
}

// SerializedSize returns the encoded size.
func (m *Attribute) SerializedSize(w *binary.Writer) int {
	return 9 + len(m.Name) + 1 + m.Datatype.SerializedSize(w) + m.Dataspace.SerializedSize(w) + len(m.Data)
}
