package message

import (
	"encoding/binary"
	"fmt"

	binpkg "github.com/robert-malhotra/h5pipe/internal/binary"
)

// Attribute is a small named value stored in an object header (type 0x000C).
type Attribute struct {
	Version   uint8
	Name      string
	Datatype  *Datatype
	Dataspace *Dataspace
	Data      []byte
}

func (m *Attribute) Type() Type { return TypeAttribute }

/*
Version 1: version, reserved, name size (2), datatype size (2),
dataspace size (2), then name, datatype and dataspace each padded to 8
bytes, then the value.
Version 2: as version 1 with flags instead of reserved and no padding.
Version 3: as version 2 plus a name encoding byte before the name.
*/
func parseAttribute(data []byte, r *binpkg.Reader) (*Attribute, error) {
	if len(data) < 8 {
		return nil, truncated("attribute", 8, len(data))
	}
	attr := &Attribute{Version: data[0]}
	if attr.Version < 1 || attr.Version > 3 {
		return nil, fmt.Errorf("unsupported attribute version %d", attr.Version)
	}
	if attr.Version >= 2 && data[1]&0x03 != 0 {
		return nil, fmt.Errorf("attribute with shared datatype or dataspace is not supported")
	}
	nameSize := int(binary.LittleEndian.Uint16(data[2:]))
	dtSize := int(binary.LittleEndian.Uint16(data[4:]))
	dsSize := int(binary.LittleEndian.Uint16(data[6:]))

	off := 8
	if attr.Version == 3 {
		off = 9
	}
	pad := func(n int) int {
		if attr.Version == 1 {
			return align8(n)
		}
		return n
	}

	field := func(size int, what string) ([]byte, error) {
		if off+size > len(data) {
			return nil, truncated("attribute "+what, off+size, len(data))
		}
		b := data[off : off+size]
		off += pad(size)
		return b, nil
	}

	name, err := field(nameSize, "name")
	if err != nil {
		return nil, err
	}
	for i, c := range name {
		if c == 0 {
			name = name[:i]
			break
		}
	}
	attr.Name = string(name)

	dtBytes, err := field(dtSize, "datatype")
	if err != nil {
		return nil, err
	}
	if attr.Datatype, err = parseDatatype(dtBytes); err != nil {
		return nil, fmt.Errorf("attribute %q: %w", attr.Name, err)
	}

	dsBytes, err := field(dsSize, "dataspace")
	if err != nil {
		return nil, err
	}
	if attr.Dataspace, err = parseDataspace(dsBytes, r); err != nil {
		return nil, fmt.Errorf("attribute %q: %w", attr.Name, err)
	}

	if off < len(data) {
		attr.Data = data[off:]
	}
	return attr, nil
}
