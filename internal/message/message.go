package message

import (
	"fmt"

	"github.com/robert-malhotra/h5pipe/internal/binary"
)

// Type is an HDF5 header message type.
type Type uint16

const (
	TypeNIL                      Type = 0x0000
	TypeDataspace                Type = 0x0001
	TypeLinkInfo                 Type = 0x0002
	TypeDatatype                 Type = 0x0003
	TypeFillValueOld             Type = 0x0004
	TypeFillValue                Type = 0x0005
	TypeLink                     Type = 0x0006
	TypeExternalDataFiles        Type = 0x0007
	TypeDataLayout               Type = 0x0008
	TypeBogus                    Type = 0x0009
	TypeGroupInfo                Type = 0x000A
	TypeFilterPipeline           Type = 0x000B
	TypeAttribute                Type = 0x000C
	TypeObjectComment            Type = 0x000D
	TypeObjectModTimeOld         Type = 0x000E
	TypeSharedMessageTable       Type = 0x000F
	TypeObjectHeaderContinuation Type = 0x0010
	TypeSymbolTable              Type = 0x0011
	TypeObjectModTime            Type = 0x0012
	TypeBTreeKValues             Type = 0x0013
	TypeDriverInfo               Type = 0x0014
	TypeAttributeInfo            Type = 0x0015
	TypeObjectRefCount           Type = 0x0016
)

// Message flag bits.
const (
	FlagConstant uint8 = 0x01
	FlagShared   uint8 = 0x02
)

// Message is implemented by every header message.
type Message interface {
	Type() Type
}

// Parse decodes one message body. Shared messages and unrecognised types
// come back as *Unknown.
func Parse(typ Type, data []byte, flags uint8, r *binary.Reader) (Message, error) {
	if flags&FlagShared != 0 {
		return &Unknown{typ: typ, flags: flags, data: data}, nil
	}
	switch typ {
	case TypeDataspace:
		return parseDataspace(data, r)
	case TypeLinkInfo:
		return parseLinkInfo(data, r)
	case TypeDatatype:
		return parseDatatype(data)
	case TypeFillValue:
		return parseFillValue(data)
	case TypeLink:
		return parseLink(data, r)
	case TypeDataLayout:
		return parseDataLayout(data, r)
	case TypeFilterPipeline:
		return parseFilterPipeline(data)
	case TypeAttribute:
		return parseAttribute(data, r)
	case TypeObjectHeaderContinuation:
		return ParseContinuation(data, r)
	case TypeSymbolTable:
		return parseSymbolTable(data, r)
	}
	return &Unknown{typ: typ, flags: flags, data: data}, nil
}

// Unknown holds a message this package does not decode.
type Unknown struct {
	typ   Type
	flags uint8
	data  []byte
}

// NewUnknown wraps a raw message body so it can be written back unchanged.
func NewUnknown(typ Type, flags uint8, data []byte) *Unknown {
	return &Unknown{typ: typ, flags: flags, data: data}
}

func (m *Unknown) Type() Type { return m.typ }

// Flags returns the message flags from the header.
func (m *Unknown) Flags() uint8 { return m.flags }

// Data returns the raw message body.
func (m *Unknown) Data() []byte { return m.data }

// Continuation points to another block of header messages.
type Continuation struct {
	Offset uint64
	Length uint64
}

func (m *Continuation) Type() Type { return TypeObjectHeaderContinuation }

// ParseContinuation decodes an address followed by a length.
func ParseContinuation(data []byte, r *binary.Reader) (*Continuation, error) {
	o, l := r.OffsetSize(), r.LengthSize()
	if len(data) < o+l {
		return nil, fmt.Errorf("continuation message: %d bytes, need %d", len(data), o+l)
	}
	return &Continuation{
		Offset: binary.DecodeUint(data, o, r.ByteOrder()),
		Length: binary.DecodeUint(data[o:], l, r.ByteOrder()),
	}, nil
}

// Serializable is implemented by messages the writer can emit.
type Serializable interface {
	Message
	// Serialize writes the message body.
	Serialize(w *binary.Writer) error
	// SerializedSize returns the body size for the writer's address widths.
	SerializedSize(w *binary.Writer) int
}

// Encode serializes a message body into a new byte slice.
func Encode(m Serializable, cfg binary.Config) ([]byte, error) {
	w, buf := binary.NewBufferWriter(cfg, 64)
	if err := m.Serialize(w); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func truncated(what string, need, have int) error {
	return fmt.Errorf("%s truncated: need %d bytes, have %d", what, need, have)
}
