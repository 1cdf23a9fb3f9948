package hdf5

import (
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/mat"

	"github.com/robert-malhotra/h5pipe/internal/dtype"
	"github.com/robert-malhotra/h5pipe/internal/layout"
	"github.com/robert-malhotra/h5pipe/internal/message"
	"github.com/robert-malhotra/h5pipe/internal/object"
)

// encoded is a value ready to be stored.
type encoded struct {
	datatype *message.Datatype
	shape    []uint64
	data     []byte
}

func (e *encoded) dataspace() *message.Dataspace {
	if len(e.shape) == 0 {
		return message.NewScalarDataspace()
	}
	return message.NewDataspace(e.shape, nil)
}

func (e *encoded) elements() uint64 {
	n := uint64(1)
	for _, d := range e.shape {
		n *= d
	}
	return n
}

// encode converts a Go value, an *Array or a *mat.Dense into element bytes.
func encode(data any) (*encoded, error) {
	var arr *Array
	switch v := data.(type) {
	case *Array:
		arr = v
	case *mat.Dense:
		arr = arrayFromDense(v)
	default:
		flat, shape, err := dtype.Flatten(data)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrUnsupportedType, err)
		}
		arr = &Array{Shape: shape, Data: flat}
	}
	if arr == nil {
		return nil, fmt.Errorf("%w: nil array", ErrUnsupportedType)
	}

	want := uint64(1)
	for _, d := range arr.Shape {
		want *= d
	}
	if uint64(arr.Len()) != want {
		return nil, fmt.Errorf("%w: %d elements for shape %v", ErrUnsupportedType, arr.Len(), arr.Shape)
	}
	dt, raw, err := dtype.Encode(arr.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnsupportedType, err)
	}
	return &encoded{datatype: dt, shape: append([]uint64{}, arr.Shape...), data: raw}, nil
}

// CreateDataset stores data as a new dataset called name. data may be a
// scalar, a slice or nested slice of numbers or strings, an *Array or a
// *mat.Dense. Strings are stored fixed-length and null-padded, so they must
// be valid UTF-8 without NUL bytes. It fails with ErrExists if the name is
// taken.
func (g *Group) CreateDataset(name string, data any, opts ...DatasetOption) (*Dataset, error) {
	if err := g.file.checkWritable(); err != nil {
		return nil, err
	}
	if err := checkName(name); err != nil {
		return nil, err
	}
	links, err := g.links()
	if err != nil {
		return nil, err
	}
	if has(links, name) {
		return nil, fmt.Errorf("%s: %w", joinPath(g.path, name), ErrExists)
	}

	addr, err := g.file.writeDataset(data, opts)
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", joinPath(g.path, name), err)
	}
	if err := g.rewrite(append(links, message.NewHardLink(name, addr))); err != nil {
		return nil, err
	}
	return g.OpenDataset(name)
}

// ReplaceDataset stores data as a dataset called name, replacing any
// member of that name. The new dataset is written in full before the
// links are swapped in a single header rewrite, so a failure leaves the
// old member in place.
func (g *Group) ReplaceDataset(name string, data any, opts ...DatasetOption) (*Dataset, error) {
	if err := g.file.checkWritable(); err != nil {
		return nil, err
	}
	if err := checkName(name); err != nil {
		return nil, err
	}
	links, err := g.links()
	if err != nil {
		return nil, err
	}

	addr, err := g.file.writeDataset(data, opts)
	if err != nil {
		return nil, fmt.Errorf("writing %s: %w", joinPath(g.path, name), err)
	}
	kept, old := without(links, name)
	if err := g.rewrite(append(kept, message.NewHardLink(name, addr))); err != nil {
		return nil, err
	}
	if old != nil {
		g.unlinked(name, old)
	}
	return g.OpenDataset(name)
}

// writeDataset writes the raw data and header of a dataset without
// linking it and returns the header address.
func (f *File) writeDataset(data any, opts []DatasetOption) (uint64, error) {
	options := &datasetOptions{}
	for _, opt := range opts {
		opt(options)
	}
	if err := options.validate(); err != nil {
		return 0, err
	}
	enc, err := encode(data)
	if err != nil {
		return 0, err
	}
	var attrs []message.Message
	for _, def := range options.attributes {
		a, err := newAttribute(def.name, def.value)
		if err != nil {
			return 0, err
		}
		attrs = append(attrs, a)
	}

	pipeline := options.pipeline(enc.datatype.Size)
	var dl *message.DataLayout
	switch {
	case enc.elements() == 0, len(enc.shape) == 0:
		// Empty and scalar datasets are never chunked.
		pipeline = nil
		dl, err = layout.WriteContiguous(f.writer, f.allocator, enc.data)
	case pipeline == nil && options.chunks == nil:
		dl, err = layout.WriteContiguous(f.writer, f.allocator, enc.data)
	default:
		dl, err = f.writeChunked(enc, options.chunks, pipeline)
	}
	if err != nil {
		return 0, err
	}

	return f.writeObject(object.DatasetMessages(enc.dataspace(), enc.datatype, pipeline, dl, attrs))
}

// maxAutoChunk bounds the bytes in one chunk picked by autoChunk.
const maxAutoChunk = 1 << 20

// autoChunk shrinks shape until a chunk of it holds at most maxAutoChunk
// bytes, halving one dimension at a time in turn.
func autoChunk(shape []uint64, elemSize uint32) []uint64 {
	chunks := slices.Clone(shape)
	size := func() uint64 {
		n := uint64(elemSize)
		for _, c := range chunks {
			n *= c
		}
		return n
	}
	for i := 0; size() > maxAutoChunk; i = (i + 1) % len(chunks) {
		if !slices.ContainsFunc(chunks, func(c uint64) bool { return c > 1 }) {
			break
		}
		chunks[i] = (chunks[i] + 1) / 2
	}
	return chunks
}

func (f *File) writeChunked(enc *encoded, chunks []uint64, pipeline *message.FilterPipeline) (*message.DataLayout, error) {
	if chunks == nil {
		chunks = autoChunk(enc.shape, enc.datatype.Size)
	}
	if len(chunks) != len(enc.shape) {
		return nil, fmt.Errorf("%w: chunk rank %d for a rank %d dataset", ErrUnsupported, len(chunks), len(enc.shape))
	}
	dims := make([]uint32, len(chunks))
	for i, c := range chunks {
		// Chunks larger than the dataset only waste space.
		c = min(c, enc.shape[i])
		if c == 0 || c > math.MaxUint32 {
			return nil, fmt.Errorf("%w: chunk dimension %d is %d", ErrUnsupported, i, chunks[i])
		}
		dims[i] = uint32(c)
	}
	cw, err := layout.NewChunkWriter(f.writer, f.allocator, enc.shape, dims, enc.datatype.Size, pipeline)
	if err != nil {
		return nil, err
	}
	return cw.Write(enc.data)
}
