package object

import (
	"bytes"
	"encoding/binary"
	"fmt"

	binpkg "github.com/robert-malhotra/h5pipe/internal/binary"
	"github.com/robert-malhotra/h5pipe/internal/message"
)

/*
Version 2 prefix: "OHDR", version (2), flags, four 4-byte times when flag
bit 5 is set, two 2-byte attribute phase values when bit 4 is set, then the
size of the first block in 1 << (flags & 3) bytes. The block is followed by
a lookup3 checksum over everything before it.

Each message: type (1), size (2), flags, creation order (2) when flag bit 2
is set, body. Space too small for a message header is a gap.

Continuation blocks are "OCHK", messages, checksum.
*/

const (
	flagCreationOrder = 0x04
	flagPhaseChange   = 0x10
	flagTimes         = 0x20
)

func (h *Header) readV2(r *binpkg.Reader) error {
	hr := r.At(int64(h.Address))
	head, err := hr.ReadBytes(6)
	if err != nil {
		return err
	}
	h.Version = head[4]
	h.Flags = head[5]
	if h.Version != 2 {
		return fmt.Errorf("%w: %d", ErrUnsupportedVersion, h.Version)
	}
	h.RefCount = 1

	prefixLen := 6 + 1<<(h.Flags&0x03)
	if h.Flags&flagTimes != 0 {
		prefixLen += 16
	}
	if h.Flags&flagPhaseChange != 0 {
		prefixLen += 4
	}
	prefix, err := r.At(int64(h.Address)).ReadBytes(prefixLen)
	if err != nil {
		return err
	}
	off := 6
	if h.Flags&flagTimes != 0 {
		le := binary.LittleEndian
		h.AccessTime = le.Uint32(prefix[off:])
		h.ModTime = le.Uint32(prefix[off+4:])
		h.ChangeTime = le.Uint32(prefix[off+8:])
		h.BirthTime = le.Uint32(prefix[off+12:])
		off += 16
	}
	if h.Flags&flagPhaseChange != 0 {
		off += 4
	}
	width := 1 << (h.Flags & 0x03)
	size := binpkg.DecodeUint(prefix[off:], width, binary.LittleEndian)

	total := uint64(prefixLen) + size + 4
	whole, err := r.At(int64(h.Address)).ReadBytes(int(total))
	if err != nil {
		return err
	}
	if err := verify(whole); err != nil {
		return err
	}
	h.Spans = append(h.Spans, Span{Addr: h.Address, Size: total})

	headerLen := 4
	if h.Flags&flagCreationOrder != 0 {
		headerLen = 6
	}
	parse := func(data []byte) ([]block, error) {
		var conts []block
		for off := 0; off+headerLen <= len(data); {
			typ := message.Type(data[off])
			n := int(binary.LittleEndian.Uint16(data[off+1:]))
			flags := data[off+3]
			off += headerLen
			if off+n > len(data) {
				return nil, fmt.Errorf("%w: message 0x%02x overruns block", ErrInvalidHeader, uint16(typ))
			}
			body := data[off : off+n]
			off += n

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
		data, err := r.At(int64(b.addr)).ReadBytes(int(b.size))
		if err != nil {
			return nil, err
		}
		if len(data) < 8 || !bytes.Equal(data[:4], signatureCont) {
			return nil, fmt.Errorf("%w: bad continuation signature at 0x%x", ErrInvalidHeader, b.addr)
		}
		if err := verify(data); err != nil {
			return nil, err
		}
		return data[4 : len(data)-4], nil
	}
	return h.walk(whole[prefixLen:prefixLen+int(size)], parse, read)
}

// verify checks the trailing lookup3 checksum of a block.
func verify(data []byte) error {
	n := len(data) - 4
	if n < 0 {
		return fmt.Errorf("%w: block too short", ErrInvalidHeader)
	}
	if !binpkg.VerifyLookup3(data[:n], binary.LittleEndian.Uint32(data[n:])) {
		return ErrChecksumMismatch
	}
	return nil
}
