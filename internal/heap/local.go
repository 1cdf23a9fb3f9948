package heap

import (
	"bytes"
	"fmt"

	"github.com/robert-malhotra/h5pipe/internal/binary"
)

var localSignature = []byte("HEAP")

// LocalHeap holds the names of an old-style group.
type LocalHeap struct {
	DataSize    uint64
	FreeOffset  uint64
	DataAddress uint64
	data        []byte
}

// ReadLocalHeap reads the local heap at address and its data segment.
//
// Layout: "HEAP", version 0, reserved (3), data size (L), free list
// offset (L), data address (O).
func ReadLocalHeap(r *binary.Reader, address uint64) (*LocalHeap, error) {
	hr := r.At(int64(address))
	sig, err := hr.ReadBytes(4)
	if err != nil {
		return nil, fmt.Errorf("local heap at 0x%x: %w", address, err)
	}
	if !bytes.Equal(sig, localSignature) {
		return nil, fmt.Errorf("local heap at 0x%x: bad signature %q", address, sig)
	}
	version, err := hr.ReadUint8()
	if err != nil {
		return nil, err
	}
	if version != 0 {
		return nil, fmt.Errorf("local heap at 0x%x: unsupported version %d", address, version)
	}
	hr.Skip(3)

	h := &LocalHeap{}
	if h.DataSize, err = hr.ReadLength(); err != nil {
		return nil, err
	}
	if h.FreeOffset, err = hr.ReadLength(); err != nil {
		return nil, err
	}
	if h.DataAddress, err = hr.ReadOffset(); err != nil {
		return nil, err
	}
	if h.data, err = r.At(int64(h.DataAddress)).ReadBytes(int(h.DataSize)); err != nil {
		return nil, fmt.Errorf("local heap data: %w", err)
	}
	return h, nil
}

// GetString returns the NUL-terminated string at offset, or "" when offset
// is outside the data segment.
func (h *LocalHeap) GetString(offset uint64) string {
	if offset >= uint64(len(h.data)) {
		return ""
	}
	s := h.data[offset:]
	if i := bytes.IndexByte(s, 0); i >= 0 {
		s = s[:i]
	}
	return string(s)
}
