package message

import (
	"encoding/binary"

	binpkg "github.com/robert-malhotra/h5pipe/internal/binary"
)

// LinkInfo describes how a new-style group stores its links (type 0x0002).
// Groups whose links live in a fractal heap ("dense" storage) have a
// defined FractalHeapAddr; compact groups keep Link messages in the header.
type LinkInfo struct {
	Version                uint8
	Flags                  uint8
	MaxCreationIndex       uint64
	FractalHeapAddr        uint64
	NameIndexBTreeAddr     uint64
	CreationOrderBTreeAddr uint64
}

func (m *LinkInfo) Type() Type { return TypeLinkInfo }

// Dense reports whether the links are stored in a fractal heap.
func (m *LinkInfo) Dense(undefined uint64) bool {
	return m.FractalHeapAddr != undefined
}

func parseLinkInfo(data []byte, r *binpkg.Reader) (*LinkInfo, error) {
	o := r.OffsetSize()
	if len(data) < 2 {
		return nil, truncated("link info", 2, len(data))
	}
	m := &LinkInfo{Version: data[0], Flags: data[1]}
	need := 2 + 2*o
	if m.Flags&0x01 != 0 {
		need += 8
	}
	if m.Flags&0x02 != 0 {
		need += o
	}
	if len(data) < need {
		return nil, truncated("link info", need, len(data))
	}

	off := 2
	if m.Flags&0x01 != 0 {
		m.MaxCreationIndex = binary.LittleEndian.Uint64(data[off:])
		off += 8
	}
	m.FractalHeapAddr = binpkg.DecodeUint(data[off:], o, r.ByteOrder())
	m.NameIndexBTreeAddr = binpkg.DecodeUint(data[off+o:], o, r.ByteOrder())
	if m.Flags&0x02 != 0 {
		m.CreationOrderBTreeAddr = binpkg.DecodeUint(data[off+2*o:], o, r.ByteOrder())
	}
	return m, nil
}

// NewLinkInfo returns link info for a compact group with no heap.
func NewLinkInfo(undefined uint64) *LinkInfo {
	return &LinkInfo{
		FractalHeapAddr:    undefined,
		NameIndexBTreeAddr: undefined,
	}
}

// Serialize writes a version 0 link info message.
func (m *LinkInfo) Serialize(w *binpkg.Writer) error {
	if err := w.WriteUint8(0); err != nil {
		return err
	}
	if err := w.WriteUint8(m.Flags); err != nil {
		return err
	}
	if m.Flags&0x01 != 0 {
		if err := w.WriteUint64(m.MaxCreationIndex); err != nil {
			return err
		}
	}
	if err := w.WriteOffset(m.FractalHeapAddr); err != nil {
		return err
	}
	if err := w.WriteOffset(m.NameIndexBTreeAddr); err != nil {
		return err
	}
	if m.Flags&0x02 != 0 {
		return w.WriteOffset(m.CreationOrderBTreeAddr)
	}
	return nil
}

// SerializedSize returns the encoded size.
func (m *LinkInfo) SerializedSize(w *binpkg.Writer) int {
	size := 2 + 2*w.OffsetSize()
	if m.Flags&0x01 != 0 {
		size += 8
	}
	if m.Flags&0x02 != 0 {
		size += w.OffsetSize()
	}
	return size
}

// GroupInfo carries link storage hints of a new-style group (type 0x000A).
// Only the empty version 0 form is written.
type GroupInfo struct{}

func (m *GroupInfo) Type() Type { return TypeGroupInfo }

// Serialize writes version 0 with no optional fields.
func (m *GroupInfo) Serialize(w *binpkg.Writer) error {
	return w.WriteBytes([]byte{0, 0})
}

// SerializedSize returns the encoded size.
func (m *GroupInfo) SerializedSize(*binpkg.Writer) int { return 2 }
