// Package dtype bridges HDF5 datatypes and Go values.
//
// # Type Mapping
//
//	HDF5 class        | Go type
//	------------------|---------------------------------------------
//	Fixed-point       | int8..int64 or uint8..uint64 by size and sign
//	Floating-point    | float32 or float64
//	String (fixed)    | string, padding trimmed
//	String (varlen)   | string, read from the global heap
//	Enum              | the Go type of its integer base
//	Bitfield          | unsigned integer of the same size
//	Opaque            | []byte
//	Array             | slice of the base type, one per element
//	Varlen sequence   | slice of the base type, read from the global heap
//
// Compound, reference and time classes return [ErrUnsupported].
//
// # Reading
//
// A [Decoder] produces a slice of the natural type, or converts into a
// caller-supplied destination with numeric widening:
//
//	d := dtype.NewDecoder(reader)
//	values, err := d.Decode(datatype, raw, n) // e.g. []int32
//	var f []float64
//	err = d.Into(datatype, raw, n, &f)
//
// # Writing
//
// [Flatten] turns scalars and nested slices into a flat row-major slice
// and a shape, rejecting ragged input with [ErrRagged]. [Encode] picks the
// little-endian datatype for a flat slice and returns its bytes. Strings
// become fixed-length null-padded UTF-8 as wide as the longest value.
package dtype
