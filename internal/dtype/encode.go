package dtype

import (
	"encoding/binary"
	"fmt"
	"math"
	"reflect"
	"strings"
	"unicode/utf8"

	"github.com/robert-malhotra/h5pipe/internal/message"
)

// Flatten turns a scalar, slice, array or nested slice of numbers or
// strings into a flat row-major slice and its shape. Scalars have an empty
// shape. Element kinds are normalized: int becomes int64, uint becomes
// uint64 and named types become their underlying basic type.
func Flatten(v any) (any, []uint64, error) {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		return nil, nil, fmt.Errorf("%w: nil value", ErrUnsupported)
	}

	// Shape comes from the type for arrays and from the first element
	// along each nested slice.
	var shape []uint64
	leaf := rv.Type()
	probe := rv
	for leaf.Kind() == reflect.Slice || leaf.Kind() == reflect.Array {
		n := 0
		if probe.IsValid() {
			n = probe.Len()
		}
		shape = append(shape, uint64(n))
		if n > 0 {
			probe = probe.Index(0)
		} else {
			probe = reflect.Value{}
		}
		leaf = leaf.Elem()
	}

	basic, err := basicType(leaf)
	if err != nil {
		return nil, nil, err
	}
	total := 1
	for _, d := range shape {
		total *= int(d)
	}
	flat := reflect.MakeSlice(reflect.SliceOf(basic), 0, total)

	var walk func(v reflect.Value, depth int) error
	walk = func(v reflect.Value, depth int) error {
		if depth == len(shape) {
			flat = reflect.Append(flat, v.Convert(basic))
			return nil
		}
		if v.Len() != int(shape[depth]) {
			return fmt.Errorf("%w: length %d at depth %d, want %d", ErrRagged, v.Len(), depth, shape[depth])
		}
		for i := 0; i < v.Len(); i++ {
			if err := walk(v.Index(i), depth+1); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(rv, 0); err != nil {
		return nil, nil, err
	}
	return flat.Interface(), shape, nil
}

// basicType maps a leaf type onto the basic Go type it is stored as.
func basicType(t reflect.Type) (reflect.Type, error) {
	switch t.Kind() {
	case reflect.Int8:
		return reflect.TypeFor[int8](), nil
	case reflect.Int16:
		return reflect.TypeFor[int16](), nil
	case reflect.Int32:
		return reflect.TypeFor[int32](), nil
	case reflect.Int64, reflect.Int:
		return reflect.TypeFor[int64](), nil
	case reflect.Uint8:
		return reflect.TypeFor[uint8](), nil
	case reflect.Uint16:
		return reflect.TypeFor[uint16](), nil
	case reflect.Uint32:
		return reflect.TypeFor[uint32](), nil
	case reflect.Uint64, reflect.Uint:
		return reflect.TypeFor[uint64](), nil
	case reflect.Float32:
		return reflect.TypeFor[float32](), nil
	case reflect.Float64:
		return reflect.TypeFor[float64](), nil
	case reflect.String:
		return reflect.TypeFor[string](), nil
	}
	return nil, fmt.Errorf("%w: Go type %s", ErrUnsupported, t)
}

// GoTypeToDatatype returns the little-endian HDF5 type for a numeric Go
// type. Strings need a length and go through [StringDatatype].
func GoTypeToDatatype(t reflect.Type) (*message.Datatype, error) {
	for t.Kind() == reflect.Pointer || t.Kind() == reflect.Slice || t.Kind() == reflect.Array {
		t = t.Elem()
	}

	switch t.Kind() {
	case reflect.Int8:
		return message.NewFixedPointDatatype(1, true, message.OrderLE), nil
	case reflect.Int16:
		return message.NewFixedPointDatatype(2, true, message.OrderLE), nil
	case reflect.Int32:
		return message.NewFixedPointDatatype(4, true, message.OrderLE), nil
	case reflect.Int64, reflect.Int:
		return message.NewFixedPointDatatype(8, true, message.OrderLE), nil
	case reflect.Uint8:
		return message.NewFixedPointDatatype(1, false, message.OrderLE), nil
	case reflect.Uint16:
		return message.NewFixedPointDatatype(2, false, message.OrderLE), nil
	case reflect.Uint32:
		return message.NewFixedPointDatatype(4, false, message.OrderLE), nil
	case reflect.Uint64, reflect.Uint:
		return message.NewFixedPointDatatype(8, false, message.OrderLE), nil
	case reflect.Float32:
		return message.NewFloatDatatype(4, message.OrderLE), nil
	case reflect.Float64:
		return message.NewFloatDatatype(8, message.OrderLE), nil
	default:
		return nil, fmt.Errorf("%w: Go type %s", ErrUnsupported, t)
	}
}

// StringDatatype returns the fixed-length, null-padded UTF-8 type wide
// enough for the longest of values, and at least one byte.
func StringDatatype(values []string) *message.Datatype {
	size := 1
	for _, s := range values {
		size = max(size, len(s))
	}
	return message.NewStringDatatype(uint32(size), message.PadNullPad, message.CharsetUTF8)
}

// Encode converts a flat slice produced by [Flatten] into its datatype and
// little-endian element bytes. Strings must be valid UTF-8 without NUL
// bytes, since null padding cannot tell a stored NUL from padding.
func Encode(flat any) (*message.Datatype, []byte, error) {
	switch v := flat.(type) {
	case []string:
		for i, s := range v {
			if !utf8.ValidString(s) {
				return nil, nil, fmt.Errorf("%w: string %d is not valid UTF-8", ErrUnsupported, i)
			}
			if strings.IndexByte(s, 0) >= 0 {
				return nil, nil, fmt.Errorf("%w: string %d contains a NUL byte", ErrUnsupported, i)
			}
		}
		dt := StringDatatype(v)
		data := make([]byte, len(v)*int(dt.Size))
		for i, s := range v {
			copy(data[i*int(dt.Size):], s)
		}
		return dt, data, nil
	case []float32:
		dt := message.NewFloatDatatype(4, message.OrderLE)
		data := make([]byte, 0, 4*len(v))
		for _, f := range v {
			data = binary.LittleEndian.AppendUint32(data, math.Float32bits(f))
		}
		return dt, data, nil
	case []float64:
		dt := message.NewFloatDatatype(8, message.OrderLE)
		data := make([]byte, 0, 8*len(v))
		for _, f := range v {
			data = binary.LittleEndian.AppendUint64(data, math.Float64bits(f))
		}
		return dt, data, nil
	case []int8:
		return encodeInts(v)
	case []int16:
		return encodeInts(v)
	case []int32:
		return encodeInts(v)
	case []int64:
		return encodeInts(v)
	case []uint8:
		return encodeInts(v)
	case []uint16:
		return encodeInts(v)
	case []uint32:
		return encodeInts(v)
	case []uint64:
		return encodeInts(v)
	}
	return nil, nil, fmt.Errorf("%w: cannot encode %T", ErrUnsupported, flat)
}

func encodeInts[T integer](v []T) (*message.Datatype, []byte, error) {
	dt, err := GoTypeToDatatype(reflect.TypeFor[T]())
	if err != nil {
		return nil, nil, err
	}
	size := int(dt.Size)
	data := make([]byte, 0, size*len(v))
	for _, x := range v {
		switch size {
		case 1:
			data = append(data, byte(x))
		case 2:
			data = binary.LittleEndian.AppendUint16(data, uint16(x))
		case 4:
			data = binary.LittleEndian.AppendUint32(data, uint32(x))
		default:
			data = binary.LittleEndian.AppendUint64(data, uint64(x))
		}
	}
	return dt, data, nil
}

// EncodeValue flattens and encodes v in one step.
func EncodeValue(v any) (*message.Datatype, []byte, []uint64, error) {
	flat, shape, err := Flatten(v)
	if err != nil {
		return nil, nil, nil, err
	}
	dt, data, err := Encode(flat)
	if err != nil {
		return nil, nil, nil, err
	}
	return dt, data, shape, nil
}

// DataSize returns the bytes needed for n elements of dt.
func DataSize(dt *message.Datatype, n uint64) uint64 {
	return uint64(dt.Size) * n
}
