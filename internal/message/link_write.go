package message

import (
	"github.com/robert-malhotra/h5pipe/internal/binary"
)

// Serialize writes a version 1 link. Creation order is not stored.
func (m *Link) Serialize(w *binary.Writer) error {
	lenSize, lenBits := nameLengthSize(len(m.Name))
	flags := lenBits
	if m.LinkType != LinkTypeHard {
		flags |= 0x08
	}
	if m.Charset != CharsetASCII {
		flags |= 0x10
	}

	if err := w.WriteUint8(1); err != nil {
		return err
	}
	if err := w.WriteUint8(flags); err != nil {
		return err
	}
	if m.LinkType != LinkTypeHard {
		if err := w.WriteUint8(uint8(m.LinkType)); err != nil {
			return err
		}
	}
	if m.Charset != CharsetASCII {
		if err := w.WriteUint8(uint8(m.Charset)); err != nil {
			return err
		}
	}
	if err := w.WriteUintN(uint64(len(m.Name)), lenSize); err != nil {
		return err
	}
	if err := w.WriteBytes([]byte(m.Name)); err != nil {
		return err
	}

	switch m.LinkType {
	case LinkTypeHard:
		return w.WriteOffset(m.ObjectAddress)
	case LinkTypeSoft:
		if err := w.WriteUint16(uint16(len(m.SoftLinkValue))); err != nil {
			return err
		}
		return w.WriteBytes([]byte(m.SoftLinkValue))
	default:
		value := make([]byte, 0, len(m.ExternalFile)+len(m.ExternalPath)+3)
		value = append(value, 0)
		value = append(value, m.ExternalFile...)
		value = append(value, 0)
		value = append(value, m.ExternalPath...)
		value = append(value, 0)
		if err := w.WriteUint16(uint16(len(value))); err != nil {
			return err
		}
		return w.WriteBytes(value)
	}
}

// SerializedSize returns the encoded size.
func (m *Link) SerializedSize(w *binary.Writer) int {
	lenSize, _ := nameLengthSize(len(m.Name))
	size := 2 + lenSize + len(m.Name)
	if m.LinkType != LinkTypeHard {
		size++
	}
	if m.Charset != CharsetASCII {
		size++
	}
	switch m.LinkType {
	case LinkTypeHard:
		size += w.OffsetSize()
	case LinkTypeSoft:
		size += 2 + len(m.SoftLinkValue)
	default:
		size += 2 + len(m.ExternalFile) + len(m.ExternalPath) + 3
	}
	return size
}

func nameLengthSize(n int) (int, uint8) {
	switch {
	case n <= 0xff:
		return 1, 0
	case n <= 0xffff:
		return 2, 1
	case n <= 0xffffffff:
		return 4, 2
	}
	return 8, 3
}

// NewHardLink returns a link to the object header at addr.
func NewHardLink(name string, addr uint64) *Link {
	return &Link{Version: 1, LinkType: LinkTypeHard, Name: name, Charset: CharsetUTF8, ObjectAddress: addr}
}

// NewSoftLink returns a link holding a path.
func NewSoftLink(name, target string) *Link {
	return &Link{Version: 1, LinkType: LinkTypeSoft, Name: name, Charset: CharsetUTF8, SoftLinkValue: target}
}
