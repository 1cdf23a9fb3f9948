package hdf5

import (
	"fmt"
	"reflect"
	"slices"

	"gonum.org/v1/gonum/mat"

	"github.com/robert-malhotra/h5pipe/internal/dtype"
)

// Array is a fully materialized dataset: a flat row-major slice and its
// shape. Data is one of []int8 .. []int64, []uint8 .. []uint64, []float32,
// []float64 or []string. Scalars have an empty shape and one element.
type Array struct {
	Shape []uint64
	Data  any
}

// NewArray flattens a scalar, slice or nested slice into an Array. Nested
// slices must not be ragged.
func NewArray(data any) (*Array, error) {
	flat, shape, err := dtype.Flatten(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnsupportedType, err)
	}
	return &Array{Shape: shape, Data: flat}, nil
}

// Len returns the number of elements.
func (a *Array) Len() int {
	v := reflect.ValueOf(a.Data)
	if v.Kind() != reflect.Slice {
		return 0
	}
	return v.Len()
}

// Dtype returns the name of the element type, such as "float64".
func (a *Array) Dtype() string {
	t := reflect.TypeOf(a.Data)
	if t == nil || t.Kind() != reflect.Slice {
		return ""
	}
	return t.Elem().Kind().String()
}

// Float64s returns the elements widened to float64.
func (a *Array) Float64s() ([]float64, error) {
	switch v := a.Data.(type) {
	case []float64:
		return slices.Clone(v), nil
	case []float32:
		return widen(v), nil
	case []int8:
		return widen(v), nil
	case []int16:
		return widen(v), nil
	case []int32:
		return widen(v), nil
	case []int64:
		return widen(v), nil
	case []uint8:
		return widen(v), nil
	case []uint16:
		return widen(v), nil
	case []uint32:
		return widen(v), nil
	case []uint64:
		return widen(v), nil
	}
	return nil, fmt.Errorf("%w: %s elements are not numeric", ErrUnsupportedType, a.Dtype())
}

func widen[T int8 | int16 | int32 | int64 | uint8 | uint16 | uint32 | uint64 | float32](v []T) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}

// Dense returns the array as a matrix. A 1-D array becomes a single
// column.
func (a *Array) Dense() (*mat.Dense, error) {
	var rows, cols int
	switch len(a.Shape) {
	case 1:
		rows, cols = int(a.Shape[0]), 1
	case 2:
		rows, cols = int(a.Shape[0]), int(a.Shape[1])
	default:
		return nil, fmt.Errorf("%w: %d-D array is not a matrix", ErrUnsupported, len(a.Shape))
	}
	if rows == 0 || cols == 0 {
		return nil, fmt.Errorf("%w: empty %dx%d matrix", ErrUnsupported, rows, cols)
	}
	values, err := a.Float64s()
	if err != nil {
		return nil, err
	}
	if len(values) != rows*cols {
		return nil, fmt.Errorf("array has %d elements, shape wants %d", len(values), rows*cols)
	}
	return mat.NewDense(rows, cols, values), nil
}

// Equal reports whether both arrays have the same shape, element type and
// elements.
func (a *Array) Equal(other *Array) bool {
	if a == nil || other == nil {
		return a == other
	}
	return slices.Equal(a.Shape, other.Shape) && reflect.DeepEqual(a.Data, other.Data)
}

// arrayFromDense copies a matrix into a 2-D float64 array.
func arrayFromDense(m *mat.Dense) *Array {
	r, c := m.Dims()
	data := make([]float64, 0, r*c)
	for i := range r {
		data = append(data, m.RawRowView(i)...)
	}
	return &Array{Shape: []uint64{uint64(r), uint64(c)}, Data: data}
}
