package heap

import (
	"bytes"
	"fmt"

	"github.com/robert-malhotra/h5pipe/internal/binary"
)

var globalSignature = []byte("GCOL")

// GlobalHeap is one global heap collection.
type GlobalHeap struct {
	Address        uint64
	CollectionSize uint64
	objects        map[uint16][]byte
}

// GlobalHeapID locates an object in a global heap collection.
type GlobalHeapID struct {
	CollectionAddress uint64
	ObjectIndex       uint32
}

// ReadGlobalHeap reads the collection at address.
//
// Layout: "GCOL", version 1, reserved (3), collection size (L), then
// objects: index (2), reference count (2), reserved (4), size (L), data
// padded to 8 bytes. Index 0 is the free space object and ends the list.
func ReadGlobalHeap(r *binary.Reader, address uint64) (*GlobalHeap, error) {
	if address == 0 || r.IsUndefinedOffset(address) {
		return nil, fmt.Errorf("invalid global heap address 0x%x", address)
	}
	hr := r.At(int64(address))
	sig, err := hr.ReadBytes(4)
	if err != nil {
		return nil, fmt.Errorf("global heap at 0x%x: %w", address, err)
	}
	if !bytes.Equal(sig, globalSignature) {
		return nil, fmt.Errorf("global heap at 0x%x: bad signature %q", address, sig)
	}
	version, err := hr.ReadUint8()
	if err != nil {
		return nil, err
	}
	if version != 1 {
		return nil, fmt.Errorf("global heap at 0x%x: unsupported version %d", address, version)
	}
	hr.Skip(3)
	size, err := hr.ReadLength()
	if err != nil {
		return nil, err
	}

	h := &GlobalHeap{Address: address, CollectionSize: size, objects: map[uint16][]byte{}}
	end := int64(address + size)
	objHeader := int64(8 + r.LengthSize())
	for hr.Pos()+objHeader <= end {
		index, err := hr.ReadUint16()
		if err != nil {
			return nil, err
		}
		if index == 0 {
			break
		}
		hr.Skip(6)
		n, err := hr.ReadLength()
		if err != nil {
			return nil, err
		}
		if hr.Pos()+int64(n) > end {
			return nil, fmt.Errorf("global heap at 0x%x: object %d overruns collection", address, index)
		}
		data, err := hr.ReadBytes(int(n))
		if err != nil {
			return nil, err
		}
		h.objects[index] = data
		hr.Skip(int64((8 - n%8) % 8))
	}
	return h, nil
}

// GetObject returns a copy of object index.
func (h *GlobalHeap) GetObject(index uint16) ([]byte, error) {
	if h == nil {
		return nil, fmt.Errorf("nil global heap")
	}
	data, ok := h.objects[index]
	if !ok {
		return nil, fmt.Errorf("global heap at 0x%x: no object %d", h.Address, index)
	}
	return append([]byte(nil), data...), nil
}

// GetString returns object index up to its first NUL.
func (h *GlobalHeap) GetString(index uint16) (string, error) {
	data, err := h.GetObject(index)
	if err != nil {
		return "", err
	}
	if i := bytes.IndexByte(data, 0); i >= 0 {
		data = data[:i]
	}
	return string(data), nil
}

// ParseGlobalHeapID decodes a collection address followed by a 4-byte
// object index.
func ParseGlobalHeapID(data []byte, cfg binary.Config) (GlobalHeapID, error) {
	o := cfg.OffsetSize
	if len(data) < o+4 {
		return GlobalHeapID{}, fmt.Errorf("global heap ID: need %d bytes, have %d", o+4, len(data))
	}
	return GlobalHeapID{
		CollectionAddress: binary.DecodeUint(data, o, cfg.ByteOrder),
		ObjectIndex:       uint32(binary.DecodeUint(data[o:], 4, cfg.ByteOrder)),
	}, nil
}

// Cache reads each collection once.
type Cache struct {
	r           *binary.Reader
	collections map[uint64]*GlobalHeap
}

// NewCache returns an empty cache reading through r.
func NewCache(r *binary.Reader) *Cache {
	return &Cache{r: r, collections: map[uint64]*GlobalHeap{}}
}

// Object returns the object id refers to.
func (c *Cache) Object(id GlobalHeapID) ([]byte, error) {
	h, ok := c.collections[id.CollectionAddress]
	if !ok {
		var err error
		if h, err = ReadGlobalHeap(c.r, id.CollectionAddress); err != nil {
			return nil, err
		}
		c.collections[id.CollectionAddress] = h
	}
	if id.ObjectIndex > 0xffff {
		return nil, fmt.Errorf("global heap object index %d out of range", id.ObjectIndex)
	}
	return h.GetObject(uint16(id.ObjectIndex))
}
