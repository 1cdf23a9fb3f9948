package object

import (
	"encoding/binary"
	"fmt"

	binpkg "github.com/robert-malhotra/h5pipe/internal/binary"
	"github.com/robert-malhotra/h5pipe/internal/message"
)

/*
Version 1 prefix (16 bytes): version, reserved, message count (2),
reference count (4), header size (4), reserved (4).

Each message: type (2), size (2), flags, reserved (3), body padded to a
multiple of 8. Continuation blocks hold messages only.
*/
const prefixV1 = 16

func (h *Header) readV1(r *binpkg.Reader) error {
	prefix, err := r.At(int64(h.Address)).ReadBytes(prefixV1)
	if err != nil {
		return err
	}
	h.Version = 1
	h.RefCount = binary.LittleEndian.Uint32(prefix[4:])
	size := binary.LittleEndian.Uint32(prefix[8:])

	first, err := r.At(int64(h.Address) + prefixV1).ReadBytes(int(size))
	if err != nil {
		return err
	}
	h.Spans = append(h.Spans, Span{Addr: h.Address, Size: prefixV1 + uint64(size)})

	parse := func(data []byte) ([]block, error) {
		var conts []block
		for off := 0; off+8 <= len(data); {
			typ := message.Type(binary.LittleEndian.Uint16(data[off:]))
			n := int(binary.LittleEndian.Uint16(data[off+2:]))
			flags := data[off+4]
			off += 8
			if off+n > len(data) {
				return nil, fmt.Errorf("%w: message 0x%04x overruns block", ErrInvalidHeader, uint16(typ))
			}
			body := data[off : off+n]
			off += (n + 7) &^ 7

			switch typ {
			case message.TypeNIL:
			case message.TypeObjectHeaderContinuation:
				c, err := message.ParseContinuation(body, r)
				if err != nil {
					return nil, err
				}
				conts = append(conts, block{c.Offset, c.Length})
			default:
				if err := h.add(r, typ, flags, body); err != nil {
					return nil, err
				}
			}
		}
		return conts, nil
	}
	read := func(b block) ([]byte, error) {
		return r.At(int64(b.addr)).ReadBytes(int(b.size))
	}
	return h.walk(first, parse, read)
}
