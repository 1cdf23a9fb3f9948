package message

import (
	"encoding/binary"
	"fmt"
)

// DatatypeClass is the class of an HDF5 datatype.
type DatatypeClass uint8

const (
	ClassFixedPoint DatatypeClass = 0
	ClassFloatPoint DatatypeClass = 1
	ClassTime       DatatypeClass = 2
	ClassString     DatatypeClass = 3
	ClassBitfield   DatatypeClass = 4
	ClassOpaque     DatatypeClass = 5
	ClassCompound   DatatypeClass = 6
	ClassReference  DatatypeClass = 7
	ClassEnum       DatatypeClass = 8
	ClassVarLen     DatatypeClass = 9
	ClassArray      DatatypeClass = 10
)

var classNames = [...]string{
	"integer", "float", "time", "string", "bitfield", "opaque",
	"compound", "reference", "enum", "vlen", "array",
}

func (c DatatypeClass) String() string {
	if int(c) < len(classNames) {
		return classNames[c]
	}
	return fmt.Sprintf("class-%d", uint8(c))
}

// ByteOrder of numeric types.
type ByteOrder uint8

const (
	OrderLE ByteOrder = 0
	OrderBE ByteOrder = 1
)

// StringPadding is how fixed-length strings are terminated.
type StringPadding uint8

const (
	PadNullTerm StringPadding = 0
	PadNullPad  StringPadding = 1
	PadSpacePad StringPadding = 2
)

// CharacterSet of string types.
type CharacterSet uint8

const (
	CharsetASCII CharacterSet = 0
	CharsetUTF8  CharacterSet = 1
)

// Datatype describes the element type of a dataset or attribute (type 0x0003).
type Datatype struct {
	Version   uint8
	Class     DatatypeClass
	ClassBits uint32
	Size      uint32

	ByteOrder ByteOrder

	// Fixed-point and bitfield.
	Signed       bool
	BitOffset    uint16
	BitPrecision uint16

	// Fixed-length and variable-length strings.
	StringPadding  StringPadding
	CharSet        CharacterSet
	IsVarLenString bool

	// Base is the parent type of an enum, the element type of a
	// variable-length type and the element type of an array.
	Base *Datatype

	EnumNames []string
	ArrayDims []uint32

	// Properties holds the raw class-specific property bytes.
	Properties []byte
}

func (m *Datatype) Type() Type { return TypeDatatype }

// IsVarLen reports whether elements are variable-length heap references.
func (m *Datatype) IsVarLen() bool {
	return m.Class == ClassVarLen
}

func parseDatatype(data []byte) (*Datatype, error) {
	dt, _, err := decodeDatatype(data)
	return dt, err
}

// decodeDatatype parses one datatype and returns the bytes it occupies.
func decodeDatatype(data []byte) (*Datatype, int, error) {
	if len(data) < 8 {
		return nil, 0, truncated("datatype", 8, len(data))
	}
	dt := &Datatype{
		Version:   data[0] >> 4,
		Class:     DatatypeClass(data[0] & 0x0f),
		ClassBits: uint32(data[1]) | uint32(data[2])<<8 | uint32(data[3])<<16,
		Size:      binary.LittleEndian.Uint32(data[4:8]),
	}
	props := data[8:]
	n := 0

	switch dt.Class {
	case ClassFixedPoint, ClassBitfield:
		dt.ByteOrder = ByteOrder(dt.ClassBits & 0x01)
		dt.Signed = dt.Class == ClassFixedPoint && dt.ClassBits&0x08 != 0
		n = 4
		if len(props) < n {
			return nil, 0, truncated("integer properties", n, len(props))
		}
		dt.BitOffset = binary.LittleEndian.Uint16(props[0:])
		dt.BitPrecision = binary.LittleEndian.Uint16(props[2:])

	case ClassFloatPoint:
		dt.ByteOrder = ByteOrder(dt.ClassBits & 0x01)
		n = 12

	case ClassTime:
		dt.ByteOrder = ByteOrder(dt.ClassBits & 0x01)
		n = 2

	case ClassString:
		dt.StringPadding = StringPadding(dt.ClassBits & 0x0f)
		dt.CharSet = CharacterSet(dt.ClassBits >> 4 & 0x0f)

	case ClassOpaque:
		n = int(dt.ClassBits & 0xff)

	case ClassReference:

	case ClassEnum:
		base, used, err := decodeDatatype(props)
		if err != nil {
			return nil, 0, fmt.Errorf("enum base: %w", err)
		}
		dt.Base = base
		dt.ByteOrder = base.ByteOrder
		dt.Signed = base.Signed
		n = used
		count := int(dt.ClassBits & 0xffff)
		for i := 0; i < count; i++ {
			end := n
			for end < len(props) && props[end] != 0 {
				end++
			}
			if end >= len(props) {
				return nil, 0, fmt.Errorf("enum member %d name not terminated", i)
			}
			dt.EnumNames = append(dt.EnumNames, string(props[n:end]))
			n = end + 1
			if dt.Version < 3 {
				n = align8(n-used) + used
			}
		}
		n += count * int(base.Size)

	case ClassVarLen:
		dt.IsVarLenString = dt.ClassBits&0x0f == 1
		if dt.IsVarLenString {
			dt.StringPadding = StringPadding(dt.ClassBits >> 4 & 0x0f)
			dt.CharSet = CharacterSet(dt.ClassBits >> 8 & 0x0f)
		}
		base, used, err := decodeDatatype(props)
		if err != nil {
			return nil, 0, fmt.Errorf("vlen base: %w", err)
		}
		dt.Base = base
		n = used

	case ClassArray:
		if len(props) < 1 {
			return nil, 0, truncated("array properties", 1, 0)
		}
		rank := int(props[0])
		n = 1
		if dt.Version < 3 {
			n = 4
		}
		for i := 0; i < rank; i++ {
			if len(props) < n+4 {
				return nil, 0, truncated("array dimensions", n+4, len(props))
			}
			dt.ArrayDims = append(dt.ArrayDims, binary.LittleEndian.Uint32(props[n:]))
			n += 4
		}
		if dt.Version < 3 {
			n += 4 * rank // permutation indices
		}
		if len(props) < n {
			return nil, 0, truncated("array properties", n, len(props))
		}
		base, used, err := decodeDatatype(props[n:])
		if err != nil {
			return nil, 0, fmt.Errorf("array base: %w", err)
		}
		dt.Base = base
		n += used

	default:
		// Compound and unknown classes keep everything that follows.
		n = len(props)
	}

	if len(props) < n {
		return nil, 0, truncated(dt.Class.String()+" properties", n, len(props))
	}
	dt.Properties = props[:n:n]
	return dt, 8 + n, nil
}

func align8(n int) int {
	return (n + 7) &^ 7
}
