package filter

import (
	"errors"
	"fmt"

	"github.com/robert-malhotra/h5pipe/internal/message"
)

// ErrUnsupported is returned for a mandatory filter that is not implemented.
var ErrUnsupported = errors.New("unsupported filter")

// Filter transforms chunk bytes in both directions.
type Filter interface {
	// ID returns the HDF5 filter identifier.
	ID() uint16

	// Encode transforms raw chunk bytes into their stored form.
	Encode(input []byte) ([]byte, error)

	// Decode reverses Encode.
	Decode(input []byte) ([]byte, error)
}

// Registry maps filter IDs to constructors taking the filter's client data.
var Registry = map[uint16]func(cd []uint32) Filter{
	message.FilterDeflate:    func(cd []uint32) Filter { return NewDeflate(cd) },
	message.FilterShuffle:    func(cd []uint32) Filter { return NewShuffle(cd) },
	message.FilterFletcher32: func(cd []uint32) Filter { return NewFletcher32(cd) },
}

// Name returns the conventional name of a filter ID.
func Name(id uint16) string {
	switch id {
	case message.FilterDeflate:
		return "gzip"
	case message.FilterShuffle:
		return "shuffle"
	case message.FilterFletcher32:
		return "fletcher32"
	case message.FilterSZIP:
		return "szip"
	case message.FilterNBit:
		return "nbit"
	case message.FilterScaleOffset:
		return "scaleoffset"
	}
	return fmt.Sprintf("filter-%d", id)
}

// New creates a filter from its pipeline entry. An optional filter that is
// not implemented yields (nil, nil) and is skipped.
func New(info message.FilterInfo) (Filter, error) {
	ctor, ok := Registry[info.ID]
	if !ok {
		if info.IsOptional() {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %s (id %d)", ErrUnsupported, Name(info.ID), info.ID)
	}
	return ctor(info.ClientData), nil
}
