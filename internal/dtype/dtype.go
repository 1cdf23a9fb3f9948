// Package dtype maps HDF5 datatypes to Go types and converts element
// bytes in both directions.
package dtype

import (
	"encoding/binary"
	"errors"
	"fmt"
	"reflect"

	"github.com/robert-malhotra/h5pipe/internal/message"
)

var (
	// ErrUnsupported is returned for datatypes with no Go mapping.
	ErrUnsupported = errors.New("unsupported datatype")

	// ErrRagged is returned when nested slices differ in length.
	ErrRagged = errors.New("ragged nested slices")
)

// GoType returns the natural Go type of one element of dt.
func GoType(dt *message.Datatype) (reflect.Type, error) {
	if dt == nil {
		return nil, fmt.Errorf("nil datatype")
	}

	switch dt.Class {
	case message.ClassFixedPoint:
		return intType(dt.Size, dt.Signed)
	case message.ClassBitfield:
		return intType(dt.Size, false)
	case message.ClassFloatPoint:
		switch dt.Size {
		case 4:
			return reflect.TypeFor[float32](), nil
		case 8:
			return reflect.TypeFor[float64](), nil
		}
		return nil, fmt.Errorf("%w: %d-byte float", ErrUnsupported, dt.Size)
	case message.ClassString:
		return reflect.TypeFor[string](), nil
	case message.ClassEnum:
		if dt.Base == nil {
			return nil, fmt.Errorf("enum without base type")
		}
		return GoType(dt.Base)
	case message.ClassOpaque:
		return reflect.TypeFor[[]byte](), nil
	case message.ClassVarLen:
		if dt.IsVarLenString {
			return reflect.TypeFor[string](), nil
		}
		return sliceOfBase(dt)
	case message.ClassArray:
		return sliceOfBase(dt)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, dt.Class)
	}
}

func sliceOfBase(dt *message.Datatype) (reflect.Type, error) {
	if dt.Base == nil {
		return nil, fmt.Errorf("%s without base type", dt.Class)
	}
	elem, err := GoType(dt.Base)
	if err != nil {
		return nil, err
	}
	return reflect.SliceOf(elem), nil
}

func intType(size uint32, signed bool) (reflect.Type, error) {
	switch {
	case size == 1 && signed:
		return reflect.TypeFor[int8](), nil
	case size == 1:
		return reflect.TypeFor[uint8](), nil
	case size == 2 && signed:
		return reflect.TypeFor[int16](), nil
	case size == 2:
		return reflect.TypeFor[uint16](), nil
	case size == 4 && signed:
		return reflect.TypeFor[int32](), nil
	case size == 4:
		return reflect.TypeFor[uint32](), nil
	case size == 8 && signed:
		return reflect.TypeFor[int64](), nil
	case size == 8:
		return reflect.TypeFor[uint64](), nil
	}
	return nil, fmt.Errorf("%w: %d-byte integer", ErrUnsupported, size)
}

// ByteOrder returns the byte order of a numeric datatype.
func ByteOrder(dt *message.Datatype) binary.ByteOrder {
	if dt.ByteOrder == message.OrderBE {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// IsNumeric reports whether dt holds integers or floats, counting enums
// and bitfields as their integer base.
func IsNumeric(dt *message.Datatype) bool {
	switch dt.Class {
	case message.ClassFixedPoint, message.ClassFloatPoint, message.ClassBitfield:
		return true
	case message.ClassEnum:
		return dt.Base != nil && IsNumeric(dt.Base)
	}
	return false
}

// IsString reports whether elements decode as Go strings.
func IsString(dt *message.Datatype) bool {
	return dt.Class == message.ClassString || (dt.Class == message.ClassVarLen && dt.IsVarLenString)
}
