package hdf5

import (
	"fmt"
	"reflect"

	"github.com/robert-malhotra/h5pipe/internal/alloc"
	"github.com/robert-malhotra/h5pipe/internal/dtype"
	"github.com/robert-malhotra/h5pipe/internal/filter"
	"github.com/robert-malhotra/h5pipe/internal/layout"
	"github.com/robert-malhotra/h5pipe/internal/message"
	"github.com/robert-malhotra/h5pipe/internal/object"
)

// Dataset is an HDF5 dataset.
type Dataset struct {
	file      *File
	path      string
	addr      uint64
	header    *object.Header
	dataspace *message.Dataspace
	datatype  *message.Datatype
	filters   *message.FilterPipeline
	layout    layout.Layout
}

func newDataset(f *File, path string, addr uint64, header *object.Header) (*Dataset, error) {
	d := &Dataset{
		file:      f,
		path:      path,
		addr:      addr,
		header:    header,
		dataspace: header.Dataspace(),
		datatype:  header.Datatype(),
		filters:   header.FilterPipeline(),
	}
	if d.dataspace == nil {
		return nil, fmt.Errorf("dataset %s: missing dataspace message", path)
	}
	if d.datatype == nil {
		return nil, fmt.Errorf("dataset %s: missing datatype message", path)
	}
	l, err := layout.New(f.reader, layout.Dataset{
		Layout:   header.DataLayout(),
		Space:    d.dataspace,
		ElemSize: d.datatype.Size,
		Filters:  d.filters,
		Fill:     header.FillValue(),
	})
	if err != nil {
		return nil, fmt.Errorf("dataset %s: %w", path, err)
	}
	d.layout = l
	return d, nil
}

// Name returns the last component of the dataset's path.
func (d *Dataset) Name() string {
	return basename(d.path)
}

// Path returns the absolute path of the dataset.
func (d *Dataset) Path() string {
	return d.path
}

// Shape returns the dimensions. Scalars have an empty shape.
func (d *Dataset) Shape() []uint64 {
	if d.dataspace.IsScalar() || d.dataspace.IsNull() {
		return []uint64{}
	}
	return append([]uint64(nil), d.dataspace.Dimensions...)
}

// Rank returns the number of dimensions.
func (d *Dataset) Rank() int {
	return len(d.Shape())
}

// NumElements returns the number of elements.
func (d *Dataset) NumElements() uint64 {
	return d.dataspace.NumElements()
}

// IsScalar reports whether the dataset holds a single value.
func (d *Dataset) IsScalar() bool {
	return d.dataspace.IsScalar()
}

// DtypeSize returns the size of one element in bytes.
func (d *Dataset) DtypeSize() int {
	return int(d.datatype.Size)
}

// DtypeClass returns the datatype class.
func (d *Dataset) DtypeClass() message.DatatypeClass {
	return d.datatype.Class
}

// GoType returns the Go type of one element.
func (d *Dataset) GoType() (reflect.Type, error) {
	return dtype.GoType(d.datatype)
}

// Filters returns the names of the dataset's filters in pipeline order.
func (d *Dataset) Filters() []string {
	if d.filters == nil {
		return nil
	}
	names := make([]string, len(d.filters.Filters))
	for i, fi := range d.filters.Filters {
		names[i] = filter.Name(fi.ID)
	}
	return names
}

// Chunks returns the chunk shape, or nil when the data is not chunked.
func (d *Dataset) Chunks() []uint64 {
	l, ok := d.layout.(*layout.Chunked)
	if !ok {
		return nil
	}
	dims := make([]uint64, len(l.ChunkDims()))
	for i, c := range l.ChunkDims() {
		dims[i] = uint64(c)
	}
	return dims
}

// Compression returns "gzip" when the data is deflated and "none"
// otherwise.
func (d *Dataset) Compression() string {
	if d.filters != nil && d.filters.HasFilter(message.FilterDeflate) {
		return "gzip"
	}
	return "none"
}

// Read reads every element into dest, a pointer to a slice or a scalar.
// Numeric elements convert to the destination's element type.
func (d *Dataset) Read(dest any) error {
	raw, err := d.ReadRaw()
	if err != nil {
		return err
	}
	if err := dtype.ConvertWithReader(d.datatype, raw, d.NumElements(), dest, d.file.reader); err != nil {
		return fmt.Errorf("reading %s: %w", d.path, err)
	}
	return nil
}

// ReadRaw returns the stored element bytes in row-major order.
func (d *Dataset) ReadRaw() ([]byte, error) {
	if d.file.closed {
		return nil, ErrClosed
	}
	raw, err := d.layout.Read()
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", d.path, err)
	}
	return raw, nil
}

// ReadFloat64 reads numeric elements as float64.
func (d *Dataset) ReadFloat64() ([]float64, error) {
	var out []float64
	err := d.Read(&out)
	return out, err
}

// ReadInt64 reads numeric elements as int64.
func (d *Dataset) ReadInt64() ([]int64, error) {
	var out []int64
	err := d.Read(&out)
	return out, err
}

// ReadString reads string elements.
func (d *Dataset) ReadString() ([]string, error) {
	var out []string
	err := d.Read(&out)
	return out, err
}

// ReadArray reads the whole dataset into an Array of its natural element
// type. Enums and bitfields read as their integer base.
func (d *Dataset) ReadArray() (*Array, error) {
	if !dtype.IsNumeric(d.datatype) && !dtype.IsString(d.datatype) {
		return nil, fmt.Errorf("reading %s: %w: %s", d.path, ErrUnsupportedType, d.datatype.Class)
	}
	raw, err := d.ReadRaw()
	if err != nil {
		return nil, err
	}
	data, err := dtype.NewDecoder(d.file.reader).Decode(d.datatype, raw, d.NumElements())
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", d.path, err)
	}
	return &Array{Shape: d.Shape(), Data: data}, nil
}

// Attrs returns the dataset's attribute names.
func (d *Dataset) Attrs() []string {
	return attrNames(d.header)
}

// Attr returns the attribute called name, or nil.
func (d *Dataset) Attr(name string) *Attribute {
	return findAttr(d.header, name, d.file.reader)
}

// HasAttr reports whether the dataset has an attribute called name.
func (d *Dataset) HasAttr(name string) bool {
	return d.Attr(name) != nil
}

// storage returns the file blocks holding the dataset's raw data.
func (d *Dataset) storage() []alloc.Span {
	switch l := d.layout.(type) {
	case *layout.Contiguous:
		if l.Address() == d.file.undefined() || l.Size() == 0 {
			return nil
		}
		return []alloc.Span{{Addr: l.Address(), Size: l.Size()}}
	case *layout.Chunked:
		chunks, err := l.Chunks()
		if err != nil {
			return nil
		}
		full := uint64(d.datatype.Size)
		for _, c := range l.ChunkDims() {
			full *= uint64(c)
		}
		spans := make([]alloc.Span, 0, len(chunks))
		for _, c := range chunks {
			size := c.Size
			if size == 0 {
				size = full
			}
			spans = append(spans, alloc.Span{Addr: c.Address, Size: size})
		}
		return spans
	}
	return nil
}
