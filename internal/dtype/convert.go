package dtype

import (
	"bytes"
	stdbinary "encoding/binary"
	"fmt"
	"math"
	"reflect"

	"github.com/robert-malhotra/h5pipe/internal/binary"
	"github.com/robert-malhotra/h5pipe/internal/heap"
	"github.com/robert-malhotra/h5pipe/internal/message"
)

// Decoder converts raw element bytes into Go values. Variable-length
// elements are resolved through the global heap, so decoding them needs a
// reader over the file.
type Decoder struct {
	r    *binary.Reader
	heap *heap.Cache
}

// NewDecoder returns a decoder reading heap objects through r, which may
// be nil when no variable-length data is involved.
func NewDecoder(r *binary.Reader) *Decoder {
	d := &Decoder{r: r}
	if r != nil {
		d.heap = heap.NewCache(r)
	}
	return d
}

// Decode converts n elements of dt into a new slice of the natural Go type
// of dt, such as []int32 or []string.
func (d *Decoder) Decode(dt *message.Datatype, data []byte, n uint64) (any, error) {
	if dt == nil {
		return nil, fmt.Errorf("nil datatype")
	}
	size := uint64(dt.Size)
	if uint64(len(data)) < n*size {
		return nil, fmt.Errorf("need %d bytes for %d elements, have %d", n*size, n, len(data))
	}
	order := ByteOrder(dt)

	switch dt.Class {
	case message.ClassFixedPoint:
		return decodeInts(data, n, dt.Size, dt.Signed, order)
	case message.ClassBitfield:
		return decodeInts(data, n, dt.Size, false, order)
	case message.ClassEnum:
		if dt.Base == nil {
			return nil, fmt.Errorf("enum without base type")
		}
		return d.Decode(dt.Base, data, n)
	case message.ClassFloatPoint:
		switch dt.Size {
		case 4:
			out := make([]float32, n)
			for i := range out {
				out[i] = math.Float32frombits(order.Uint32(data[uint64(i)*4:]))
			}
			return out, nil
		case 8:
			out := make([]float64, n)
			for i := range out {
				out[i] = math.Float64frombits(order.Uint64(data[uint64(i)*8:]))
			}
			return out, nil
		}
		return nil, fmt.Errorf("%w: %d-byte float", ErrUnsupported, dt.Size)
	case message.ClassString:
		out := make([]string, n)
		for i := range out {
			out[i] = trimString(dt.StringPadding, data[uint64(i)*size:uint64(i+1)*size])
		}
		return out, nil
	case message.ClassOpaque:
		out := make([][]byte, n)
		for i := range out {
			out[i] = bytes.Clone(data[uint64(i)*size : uint64(i+1)*size])
		}
		return out, nil
	case message.ClassVarLen:
		return d.decodeVarLen(dt, data, n)
	case message.ClassArray:
		return d.decodeArray(dt, data, n)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, dt.Class)
	}
}

// Into converts n elements into dest, a pointer to a slice, a scalar or an
// interface. Numeric elements convert between widths and kinds.
func (d *Decoder) Into(dt *message.Datatype, data []byte, n uint64, dest any) error {
	dv := reflect.ValueOf(dest)
	if dv.Kind() != reflect.Pointer || dv.IsNil() {
		return fmt.Errorf("dest must be a non-nil pointer, got %T", dest)
	}
	natural, err := d.Decode(dt, data, n)
	if err != nil {
		return err
	}
	src := reflect.ValueOf(natural)
	target := dv.Elem()

	switch target.Kind() {
	case reflect.Interface:
		target.Set(src)
		return nil
	case reflect.Slice:
		if src.Type().AssignableTo(target.Type()) {
			target.Set(src)
			return nil
		}
		out := reflect.MakeSlice(target.Type(), src.Len(), src.Len())
		for i := 0; i < src.Len(); i++ {
			if err := assign(out.Index(i), src.Index(i)); err != nil {
				return fmt.Errorf("element %d: %w", i, err)
			}
		}
		target.Set(out)
		return nil
	default:
		if src.Len() == 0 {
			return fmt.Errorf("no elements to read into %s", target.Type())
		}
		return assign(target, src.Index(0))
	}
}

// assign stores v into dst, converting between numeric kinds.
func assign(dst, v reflect.Value) error {
	if v.Type().AssignableTo(dst.Type()) {
		dst.Set(v)
		return nil
	}
	if isNumberKind(v.Kind()) && isNumberKind(dst.Kind()) {
		dst.Set(v.Convert(dst.Type()))
		return nil
	}
	return fmt.Errorf("cannot convert %s to %s", v.Type(), dst.Type())
}

func isNumberKind(k reflect.Kind) bool {
	return (k >= reflect.Int && k <= reflect.Uint64) || k == reflect.Float32 || k == reflect.Float64
}

// Convert decodes into dest without access to a file. It fails for
// variable-length data.
func Convert(dt *message.Datatype, data []byte, n uint64, dest any) error {
	return NewDecoder(nil).Into(dt, data, n, dest)
}

// ConvertWithReader decodes into dest, resolving variable-length data
// through r.
func ConvertWithReader(dt *message.Datatype, data []byte, n uint64, dest any, r *binary.Reader) error {
	return NewDecoder(r).Into(dt, data, n, dest)
}

// ConvertToSlice decodes n elements into a new []T.
func ConvertToSlice[T any](dt *message.Datatype, data []byte, n uint64) ([]T, error) {
	var out []T
	if err := Convert(dt, data, n, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ReadScalar decodes the first element as a T.
func ReadScalar[T any](dt *message.Datatype, data []byte) (T, error) {
	var v T
	err := Convert(dt, data, 1, &v)
	return v, err
}

type integer interface {
	~int8 | ~int16 | ~int32 | ~int64 | ~uint8 | ~uint16 | ~uint32 | ~uint64
}

func ints[T integer](data []byte, n uint64, size int, order stdbinary.ByteOrder) []T {
	out := make([]T, n)
	for i := range out {
		b := data[i*size:]
		switch size {
		case 1:
			out[i] = T(b[0])
		case 2:
			out[i] = T(order.Uint16(b))
		case 4:
			out[i] = T(order.Uint32(b))
		default:
			out[i] = T(order.Uint64(b))
		}
	}
	return out
}

func decodeInts(data []byte, n uint64, size uint32, signed bool, order stdbinary.ByteOrder) (any, error) {
	s := int(size)
	switch {
	case size == 1 && signed:
		return ints[int8](data, n, s, order), nil
	case size == 1:
		return ints[uint8](data, n, s, order), nil
	case size == 2 && signed:
		return ints[int16](data, n, s, order), nil
	case size == 2:
		return ints[uint16](data, n, s, order), nil
	case size == 4 && signed:
		return ints[int32](data, n, s, order), nil
	case size == 4:
		return ints[uint32](data, n, s, order), nil
	case size == 8 && signed:
		return ints[int64](data, n, s, order), nil
	case size == 8:
		return ints[uint64](data, n, s, order), nil
	}
	return nil, fmt.Errorf("%w: %d-byte integer", ErrUnsupported, size)
}

// trimString strips the padding of a fixed-length string.
func trimString(pad message.StringPadding, b []byte) string {
	switch pad {
	case message.PadNullTerm:
		if i := bytes.IndexByte(b, 0); i >= 0 {
			b = b[:i]
		}
	case message.PadSpacePad:
		b = bytes.TrimRight(b, " \x00")
	default:
		b = bytes.TrimRight(b, "\x00")
	}
	return string(b)
}

// vlenObject returns the heap bytes of one variable-length element: a
// 4-byte sequence length followed by a global heap ID.
func (d *Decoder) vlenObject(elem []byte) ([]byte, uint32, error) {
	if d.r == nil {
		return nil, 0, fmt.Errorf("variable-length data needs a file reader")
	}
	cfg := d.r.Config()
	count := uint32(binary.DecodeUint(elem, 4, cfg.ByteOrder))
	id, err := heap.ParseGlobalHeapID(elem[4:], cfg)
	if err != nil {
		return nil, 0, err
	}
	if id.CollectionAddress == 0 || count == 0 {
		return nil, 0, nil
	}
	obj, err := d.heap.Object(id)
	if err != nil {
		return nil, 0, err
	}
	return obj, count, nil
}

func (d *Decoder) decodeVarLen(dt *message.Datatype, data []byte, n uint64) (any, error) {
	size := uint64(dt.Size)
	if d.r != nil && size < uint64(4+d.r.OffsetSize()+4) {
		return nil, fmt.Errorf("variable-length element of %d bytes is too small", size)
	}

	if dt.IsVarLenString {
		out := make([]string, n)
		for i := range out {
			obj, count, err := d.vlenObject(data[uint64(i)*size:])
			if err != nil {
				return nil, fmt.Errorf("string %d: %w", i, err)
			}
			if uint64(count) < uint64(len(obj)) {
				obj = obj[:count]
			}
			out[i] = string(bytes.TrimRight(obj, "\x00"))
		}
		return out, nil
	}

	if dt.Base == nil {
		return nil, fmt.Errorf("vlen without base type")
	}
	typ, err := GoType(dt)
	if err != nil {
		return nil, err
	}
	out := reflect.MakeSlice(reflect.SliceOf(typ), int(n), int(n))
	for i := 0; i < int(n); i++ {
		obj, count, err := d.vlenObject(data[uint64(i)*size:])
		if err != nil {
			return nil, fmt.Errorf("sequence %d: %w", i, err)
		}
		seq, err := d.Decode(dt.Base, obj, uint64(count))
		if err != nil {
			return nil, fmt.Errorf("sequence %d: %w", i, err)
		}
		out.Index(i).Set(reflect.ValueOf(seq))
	}
	return out.Interface(), nil
}

// decodeArray returns one flat slice of base values per element.
func (d *Decoder) decodeArray(dt *message.Datatype, data []byte, n uint64) (any, error) {
	if dt.Base == nil || dt.Base.Size == 0 {
		return nil, fmt.Errorf("array without base type")
	}
	typ, err := GoType(dt)
	if err != nil {
		return nil, err
	}
	per := uint64(dt.Size) / uint64(dt.Base.Size)
	out := reflect.MakeSlice(reflect.SliceOf(typ), int(n), int(n))
	for i := uint64(0); i < n; i++ {
		elem, err := d.Decode(dt.Base, data[i*uint64(dt.Size):], per)
		if err != nil {
			return nil, fmt.Errorf("array element %d: %w", i, err)
		}
		out.Index(int(i)).Set(reflect.ValueOf(elem))
	}
	return out.Interface(), nil
}
