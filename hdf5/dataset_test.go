package hdf5

import (
	"fmt"
	"math"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/robert-malhotra/h5pipe/internal/dtype"
	"github.com/robert-malhotra/h5pipe/internal/message"
)

func TestRoundTripElementTypes(t *testing.T) {
	values := []any{
		[]int8{math.MinInt8, 0, math.MaxInt8},
		[]int16{math.MinInt16, math.MaxInt16},
		[]int32{math.MinInt32, math.MaxInt32},
		[]int64{math.MinInt64, math.MaxInt64},
		[]uint8{0, math.MaxUint8},
		[]uint16{0, math.MaxUint16},
		[]uint32{0, math.MaxUint32},
		[]uint64{0, math.MaxUint64},
		[]float32{-1.5, math.MaxFloat32, math.SmallestNonzeroFloat32},
		[]float64{-2.25, math.MaxFloat64, math.Inf(1)},
		[]string{"alpha", "", "ünïcode"},
	}
	opts := map[string][]DatasetOption{
		"plain":      nil,
		"gzip":       {WithCompression(4)},
		"shuffle":    {WithCompression(9), WithShuffle()},
		"fletcher32": {WithFletcher32()},
		"chunked":    {WithChunks(2)},
	}
	for name, o := range opts {
		for _, v := range values {
			t.Run(fmt.Sprintf("%s/%T", name, v), func(t *testing.T) {
				f := newFile(t)
				_, err := f.Root().CreateDataset("x", v, o...)
				require.NoError(t, err)

				r := reopen(t, f)
				ds, err := r.OpenDataset("x")
				require.NoError(t, err)
				arr, err := ds.ReadArray()
				require.NoError(t, err)
				assert.Equal(t, v, arr.Data)
				assert.Equal(t, []uint64{uint64(reflect.ValueOf(v).Len())}, arr.Shape)
			})
		}
	}
}

func TestNormalizedKinds(t *testing.T) {
	f := newFile(t)
	_, err := f.Root().CreateDataset("i", []int{-1, 2})
	require.NoError(t, err)
	_, err = f.Root().CreateDataset("u", []uint{3})
	require.NoError(t, err)

	r := reopen(t, f)
	ds, err := r.OpenDataset("i")
	require.NoError(t, err)
	arr, err := ds.ReadArray()
	require.NoError(t, err)
	assert.Equal(t, []int64{-1, 2}, arr.Data)

	ds, err = r.OpenDataset("u")
	require.NoError(t, err)
	typ, err := ds.GoType()
	require.NoError(t, err)
	assert.Equal(t, reflect.TypeFor[uint64](), typ)
}

func TestMultiDimensional(t *testing.T) {
	data := make([][][]int16, 5)
	for i := range data {
		data[i] = make([][]int16, 7)
		for j := range data[i] {
			data[i][j] = make([]int16, 3)
			for k := range data[i][j] {
				data[i][j][k] = int16(i*100 + j*10 + k)
			}
		}
	}
	want, err := NewArray(data)
	require.NoError(t, err)

	cases := map[string][]DatasetOption{
		"contiguous":      nil,
		"one chunk":       {WithCompression(1)},
		"edge chunks":     {WithChunks(2, 3, 2)},
		"filtered chunks": {WithChunks(4, 4, 1), WithShuffle(), WithCompression(5), WithFletcher32()},
		"oversized":       {WithChunks(100, 100, 100)},
	}
	for name, opts := range cases {
		t.Run(name, func(t *testing.T) {
			f := newFile(t)
			ds, err := f.Root().CreateDataset("cube", data, opts...)
			require.NoError(t, err)
			assert.Equal(t, []uint64{5, 7, 3}, ds.Shape())
			assert.Equal(t, 3, ds.Rank())
			assert.Equal(t, uint64(105), ds.NumElements())

			r := reopen(t, f)
			ds, err = r.OpenDataset("cube")
			require.NoError(t, err)
			got, err := ds.ReadArray()
			require.NoError(t, err)
			assert.True(t, want.Equal(got), "read back %v", got)
		})
	}
}

func TestManyChunks(t *testing.T) {
	// More chunks than fit one fixed array data block page.
	data := make([]float64, 3000)
	for i := range data {
		data[i] = float64(i) / 7
	}
	f := newFile(t)
	_, err := f.Root().CreateDataset("x", data, WithChunks(2), WithCompression(3))
	require.NoError(t, err)

	r := reopen(t, f)
	ds, err := r.OpenDataset("x")
	require.NoError(t, err)
	got, err := ds.ReadFloat64()
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestAutoChunk(t *testing.T) {
	assert.Equal(t, []uint64{75000}, autoChunk([]uint64{300000}, 8))
	assert.Equal(t, []uint64{500, 150}, autoChunk([]uint64{1000, 300}, 8))
	assert.Equal(t, []uint64{10, 10}, autoChunk([]uint64{10, 10}, 8))
	assert.Equal(t, []uint64{1, 1}, autoChunk([]uint64{3, 3}, 1<<20))
}

func TestFilteredDefaultChunks(t *testing.T) {
	data := make([]float64, 300000)
	for i := range data {
		data[i] = float64(i % 97)
	}
	f := newFile(t)
	ds, err := f.Root().CreateDataset("x", data, WithCompression(1))
	require.NoError(t, err)
	assert.Equal(t, []uint64{75000}, ds.Chunks())

	small, err := f.Root().CreateDataset("small", []int32{1, 2, 3}, WithShuffle())
	require.NoError(t, err)
	assert.Equal(t, []uint64{3}, small.Chunks())

	plain, err := f.Root().CreateDataset("plain", []int32{1, 2, 3})
	require.NoError(t, err)
	assert.Nil(t, plain.Chunks())

	r := reopen(t, f)
	got, err := r.OpenDataset("x")
	require.NoError(t, err)
	assert.Equal(t, []uint64{75000}, got.Chunks())
	values, err := got.ReadFloat64()
	require.NoError(t, err)
	assert.Equal(t, data, values)
}

func TestFiltersAndCompression(t *testing.T) {
	f := newFile(t)
	plain, err := f.Root().CreateDataset("plain", []int32{1, 2})
	require.NoError(t, err)
	assert.Empty(t, plain.Filters())
	assert.Equal(t, "none", plain.Compression())

	all, err := f.Root().CreateDataset("all", []int32{1, 2}, WithFletcher32(), WithCompression(2), WithShuffle())
	require.NoError(t, err)
	assert.Equal(t, []string{"shuffle", "gzip", "fletcher32"}, all.Filters())
	assert.Equal(t, "gzip", all.Compression())

	// Shuffle is pointless for single-byte elements.
	bytes, err := f.Root().CreateDataset("bytes", []uint8{1, 2}, WithShuffle(), WithCompression(1))
	require.NoError(t, err)
	assert.Equal(t, []string{"gzip"}, bytes.Filters())

	_, err = f.Root().CreateDataset("bad", []int32{1}, WithCompression(10))
	assert.ErrorIs(t, err, ErrUnsupported)
	_, err = f.Root().CreateDataset("rank", []int32{1}, WithChunks(1, 1))
	assert.ErrorIs(t, err, ErrUnsupported)
	_, err = f.Root().CreateDataset("zero", []int32{1}, WithChunks(0))
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestScalarAndEmpty(t *testing.T) {
	f := newFile(t)
	_, err := f.Root().CreateDataset("pi", 3.25, WithCompression(4))
	require.NoError(t, err)
	_, err = f.Root().CreateDataset("name", "h5pipe")
	require.NoError(t, err)
	_, err = f.Root().CreateDataset("empty", []float32{}, WithCompression(4))
	require.NoError(t, err)

	r := reopen(t, f)
	ds, err := r.OpenDataset("pi")
	require.NoError(t, err)
	assert.True(t, ds.IsScalar())
	assert.Empty(t, ds.Shape())
	assert.Equal(t, "none", ds.Compression())
	var pi float64
	require.NoError(t, ds.Read(&pi))
	assert.Equal(t, 3.25, pi)

	ds, err = r.OpenDataset("name")
	require.NoError(t, err)
	s, err := ds.ReadString()
	require.NoError(t, err)
	assert.Equal(t, []string{"h5pipe"}, s)

	ds, err = r.OpenDataset("empty")
	require.NoError(t, err)
	assert.Equal(t, []uint64{0}, ds.Shape())
	arr, err := ds.ReadArray()
	require.NoError(t, err)
	assert.Equal(t, 0, arr.Len())
	assert.Equal(t, "float32", arr.Dtype())
}

func TestReadConversions(t *testing.T) {
	f := newFile(t)
	ds, err := f.Root().CreateDataset("x", []uint8{1, 200})
	require.NoError(t, err)

	floats, err := ds.ReadFloat64()
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 200}, floats)
	ints, err := ds.ReadInt64()
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 200}, ints)
	_, err = ds.ReadString()
	assert.Error(t, err)

	raw, err := ds.ReadRaw()
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 200}, raw)
	assert.Equal(t, 1, ds.DtypeSize())
	assert.Equal(t, message.ClassFixedPoint, ds.DtypeClass())
	assert.Equal(t, "x", ds.Name())
}

func TestStringsArePaddedToLongest(t *testing.T) {
	f := newFile(t)
	ds, err := f.Root().CreateDataset("s", []string{"a", "abcd", ""})
	require.NoError(t, err)
	assert.Equal(t, 4, ds.DtypeSize())
	raw, err := ds.ReadRaw()
	require.NoError(t, err)
	assert.Equal(t, []byte("a\x00\x00\x00abcd\x00\x00\x00\x00"), raw)
}

func TestWriteArrayAndDense(t *testing.T) {
	f := newFile(t)
	m := mat.NewDense(2, 3, []float64{1, 2, 3, 4, 5, 6})
	_, err := f.Root().CreateDataset("m", m)
	require.NoError(t, err)
	_, err = f.Root().CreateDataset("a", &Array{Shape: []uint64{2, 2}, Data: []int32{1, 2, 3, 4}})
	require.NoError(t, err)

	_, err = f.Root().CreateDataset("short", &Array{Shape: []uint64{3}, Data: []int32{1}})
	assert.ErrorIs(t, err, ErrUnsupportedType)

	r := reopen(t, f)
	ds, err := r.OpenDataset("m")
	require.NoError(t, err)
	arr, err := ds.ReadArray()
	require.NoError(t, err)
	got, err := arr.Dense()
	require.NoError(t, err)
	assert.True(t, mat.Equal(m, got))

	ds, err = r.OpenDataset("a")
	require.NoError(t, err)
	arr, err = ds.ReadArray()
	require.NoError(t, err)
	assert.Equal(t, []uint64{2, 2}, arr.Shape)
	assert.Equal(t, []int32{1, 2, 3, 4}, arr.Data)
}

func TestUnsupportedData(t *testing.T) {
	f := newFile(t)
	for name, v := range map[string]any{
		"ragged": [][]int{{1, 2}, {3}},
		"bool":   []bool{true},
		"map":    map[string]int{"a": 1},
		"nil":    nil,
		"struct": struct{ A int }{1},
		"nul":    []string{"a\x00", "b"},
		"utf8":   []string{"\xff"},
	} {
		_, err := f.Root().CreateDataset(name, v)
		assert.ErrorIs(t, err, ErrUnsupportedType, name)
		assert.False(t, f.Root().Has(name))
	}
	_, err := f.Root().CreateDataset("ragged", [][]int{{1}, {}})
	assert.ErrorIs(t, err, dtype.ErrRagged)
}

func TestCreateDatasetExists(t *testing.T) {
	f := newFile(t)
	_, err := f.Root().CreateDataset("x", []int8{1})
	require.NoError(t, err)
	_, err = f.Root().CreateDataset("x", []int8{2})
	assert.ErrorIs(t, err, ErrExists)
	_, err = f.Root().CreateDataset("a/b", []int8{2})
	assert.ErrorIs(t, err, ErrInvalidPath)
}

func TestReplaceDataset(t *testing.T) {
	f := newFile(t)
	_, err := f.Root().CreateDataset("x", []int64{1, 2, 3})
	require.NoError(t, err)
	ds, err := f.Root().ReplaceDataset("x", []int64{4, 5}, WithCompression(4))
	require.NoError(t, err)
	assert.Equal(t, "gzip", ds.Compression())

	// A group of the same name is replaced too.
	_, err = f.Root().RequireGroup("g/inner")
	require.NoError(t, err)
	_, err = f.Root().ReplaceDataset("g", []string{"now a dataset"})
	require.NoError(t, err)
	_, err = f.OpenGroup("g/inner")
	assert.ErrorIs(t, err, ErrNotGroup)

	// Replacing a missing name creates it.
	_, err = f.Root().ReplaceDataset("new", []float32{1})
	require.NoError(t, err)

	r := reopen(t, f)
	ds, err = r.OpenDataset("x")
	require.NoError(t, err)
	got, err := ds.ReadInt64()
	require.NoError(t, err)
	assert.Equal(t, []int64{4, 5}, got)
	keys, err := r.Keys()
	require.NoError(t, err)
	assert.Equal(t, []string{"g", "new", "x"}, keys)
}

func TestReplaceFailureKeepsOld(t *testing.T) {
	f := newFile(t)
	_, err := f.Root().CreateDataset("x", []int64{1, 2, 3})
	require.NoError(t, err)
	_, err = f.Root().ReplaceDataset("x", [][]int64{{1}, {2, 3}})
	assert.ErrorIs(t, err, ErrUnsupportedType)

	ds, err := f.OpenDataset("x")
	require.NoError(t, err)
	got, err := ds.ReadInt64()
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, got)
}

func TestDatasetAttributes(t *testing.T) {
	f := newFile(t)
	_, err := f.Root().CreateDataset("x", []float64{1},
		WithAttribute("units", "m/s"),
		WithAttribute("scale", 0.5),
		WithAttribute("dims", []int32{1, 2}),
	)
	require.NoError(t, err)
	_, err = f.Root().CreateDataset("bad", []float64{1}, WithAttribute("", 1))
	assert.ErrorIs(t, err, ErrInvalidPath)
	_, err = f.Root().CreateDataset("bad", []float64{1}, WithAttribute("b", true))
	assert.ErrorIs(t, err, ErrUnsupportedType)

	r := reopen(t, f)
	ds, err := r.OpenDataset("x")
	require.NoError(t, err)
	assert.Equal(t, []string{"units", "scale", "dims"}, ds.Attrs())
	assert.False(t, ds.HasAttr("missing"))
	assert.Nil(t, ds.Attr("missing"))

	v, err := ds.Attr("units").Value()
	require.NoError(t, err)
	assert.Equal(t, "m/s", v)
	v, err = ds.Attr("scale").Value()
	require.NoError(t, err)
	assert.Equal(t, 0.5, v)

	dims := ds.Attr("dims")
	assert.Equal(t, []uint64{2}, dims.Shape())
	assert.False(t, dims.IsScalar())
	assert.Equal(t, message.ClassFixedPoint, dims.DtypeClass())
	var wide []int64
	require.NoError(t, dims.Read(&wide))
	assert.Equal(t, []int64{1, 2}, wide)
	assert.Equal(t, "dims", dims.Name())
	assert.Equal(t, uint64(2), dims.NumElements())
}
