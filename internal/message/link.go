package message

import (
	"bytes"
	"encoding/binary"
	"fmt"

	binpkg "github.com/robert-malhotra/h5pipe/internal/binary"
)

// LinkType is the kind of link.
type LinkType uint8

const (
	LinkTypeHard     LinkType = 0
	LinkTypeSoft     LinkType = 1
	LinkTypeExternal LinkType = 64
)

// Link is one named link of a new-style group (type 0x0006).
type Link struct {
	Version       uint8
	LinkType      LinkType
	CreationOrder uint64
	Name          string
	Charset       CharacterSet

	// ObjectAddress is the target object header of a hard link.
	ObjectAddress uint64

	// SoftLinkValue is the target path of a soft link.
	SoftLinkValue string

	ExternalFile string
	ExternalPath string
}

func (m *Link) Type() Type { return TypeLink }

// IsHard reports whether the link points directly at an object header.
func (m *Link) IsHard() bool { return m.LinkType == LinkTypeHard }

// IsSoft reports whether the link holds a path.
func (m *Link) IsSoft() bool { return m.LinkType == LinkTypeSoft }

// IsExternal reports whether the link points into another file.
func (m *Link) IsExternal() bool { return m.LinkType == LinkTypeExternal }

/*
version, flags, [type], [creation order (8)], [charset], name length
(1 << flags&3 bytes), name, then per type: address (hard) or a 2-byte
length and value (soft, external).
*/
func parseLink(data []byte, r *binpkg.Reader) (*Link, error) {
	if len(data) < 2 {
		return nil, truncated("link", 2, len(data))
	}
	link := &Link{Version: data[0]}
	if link.Version != 1 {
		return nil, fmt.Errorf("unsupported link version %d", link.Version)
	}
	flags := data[1]
	off := 2

	take := func(n int, what string) ([]byte, error) {
		if off+n > len(data) {
			return nil, truncated("link "+what, off+n, len(data))
		}
		b := data[off : off+n]
		off += n
		return b, nil
	}

	if flags&0x08 != 0 {
		b, err := take(1, "type")
		if err != nil {
			return nil, err
		}
		link.LinkType = LinkType(b[0])
	}
	if flags&0x04 != 0 {
		b, err := take(8, "creation order")
		if err != nil {
			return nil, err
		}
		link.CreationOrder = binary.LittleEndian.Uint64(b)
	}
	if flags&0x10 != 0 {
		b, err := take(1, "charset")
		if err != nil {
			return nil, err
		}
		link.Charset = CharacterSet(b[0])
	}

	lenSize := 1 << (flags & 0x03)
	b, err := take(lenSize, "name length")
	if err != nil {
		return nil, err
	}
	nameLen := int(binpkg.DecodeUint(b, lenSize, binary.LittleEndian))
	if b, err = take(nameLen, "name"); err != nil {
		return nil, err
	}
	link.Name = string(b)

	switch link.LinkType {
	case LinkTypeHard:
		if b, err = take(r.OffsetSize(), "address"); err != nil {
			return nil, err
		}
		link.ObjectAddress = binpkg.DecodeUint(b, r.OffsetSize(), r.ByteOrder())

	case LinkTypeSoft, LinkTypeExternal:
		if b, err = take(2, "value length"); err != nil {
			return nil, err
		}
		if b, err = take(int(binary.LittleEndian.Uint16(b)), "value"); err != nil {
			return nil, err
		}
		if link.LinkType == LinkTypeSoft {
			link.SoftLinkValue = string(b)
			break
		}
		// flags byte, then NUL-terminated file and object names
		if len(b) < 1 {
			return nil, truncated("external link", 1, 0)
		}
		parts := bytes.SplitN(b[1:], []byte{0}, 3)
		link.ExternalFile = string(parts[0])
		if len(parts) > 1 {
			link.ExternalPath = string(parts[1])
		}

	default:
		return nil, fmt.Errorf("link %q: unsupported link type %d", link.Name, link.LinkType)
	}
	return link, nil
}
