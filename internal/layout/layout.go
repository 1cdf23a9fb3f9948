package layout

import (
	"bytes"
	"fmt"

	"github.com/robert-malhotra/h5pipe/internal/binary"
	"github.com/robert-malhotra/h5pipe/internal/message"
)

// Layout reads the raw bytes of a dataset from one storage class.
type Layout interface {
	// Read returns every element of the dataset in row-major order.
	Read() ([]byte, error)

	// Class returns the layout class.
	Class() message.LayoutClass
}

// Dataset carries the header messages a layout needs.
type Dataset struct {
	Layout   *message.DataLayout
	Space    *message.Dataspace
	ElemSize uint32
	Filters  *message.FilterPipeline // nil when unfiltered
	Fill     *message.FillValue      // nil means zero fill
}

// New creates a Layout for the dataset.
func New(r *binary.Reader, ds Dataset) (Layout, error) {
	if ds.Layout == nil {
		return nil, fmt.Errorf("nil layout message")
	}
	if ds.Space == nil {
		return nil, fmt.Errorf("nil dataspace message")
	}

	switch ds.Layout.Class {
	case message.LayoutCompact:
		return &Compact{ds: ds}, nil
	case message.LayoutContiguous:
		return &Contiguous{r: r, ds: ds}, nil
	case message.LayoutChunked:
		return NewChunked(r, ds)
	default:
		return nil, fmt.Errorf("unsupported layout class: %s", ds.Layout.Class)
	}
}

// Size returns the size of the whole dataset in bytes.
func (ds Dataset) Size() uint64 {
	return ds.Space.NumElements() * uint64(ds.ElemSize)
}

// filled returns a dataset-sized buffer holding the fill value.
func (ds Dataset) filled() []byte {
	out := make([]byte, ds.Size())
	if ds.Fill == nil || !ds.Fill.Defined || len(ds.Fill.Value) != int(ds.ElemSize) {
		return out
	}
	if bytes.Count(ds.Fill.Value, []byte{0}) == len(ds.Fill.Value) {
		return out
	}
	for i := 0; i < len(out); i += len(ds.Fill.Value) {
		copy(out[i:], ds.Fill.Value)
	}
	return out
}

// Compact storage keeps the data inside the object header.
type Compact struct {
	ds Dataset
}

// Class implements Layout.
func (c *Compact) Class() message.LayoutClass { return message.LayoutCompact }

// Read returns a copy of the header-resident data.
func (c *Compact) Read() ([]byte, error) {
	data := c.ds.Layout.CompactData
	if uint64(len(data)) < c.ds.Size() {
		return nil, fmt.Errorf("compact data holds %d bytes, dataset needs %d", len(data), c.ds.Size())
	}
	out := make([]byte, c.ds.Size())
	copy(out, data)
	return out, nil
}

// Contiguous storage is one block in the file.
type Contiguous struct {
	r  *binary.Reader
	ds Dataset
}

// Class implements Layout.
func (c *Contiguous) Class() message.LayoutClass { return message.LayoutContiguous }

// Address returns the address of the data block.
func (c *Contiguous) Address() uint64 { return c.ds.Layout.Address }

// Size returns the stored size; old layout versions leave it to the dataspace.
func (c *Contiguous) Size() uint64 {
	if c.ds.Layout.Size != 0 {
		return c.ds.Layout.Size
	}
	return c.ds.Size()
}

// Read reads the block. Unallocated storage reads as the fill value.
func (c *Contiguous) Read() ([]byte, error) {
	want := c.ds.Size()
	if want == 0 {
		return []byte{}, nil
	}
	if c.r.IsUndefinedOffset(c.Address()) {
		return c.ds.filled(), nil
	}
	if c.Size() < want {
		return nil, fmt.Errorf("contiguous block holds %d bytes, dataset needs %d", c.Size(), want)
	}
	data, err := c.r.At(int64(c.Address())).ReadBytes(int(want))
	if err != nil {
		return nil, fmt.Errorf("reading contiguous data: %w", err)
	}
	return data, nil
}
