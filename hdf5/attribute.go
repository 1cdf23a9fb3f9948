package hdf5

import (
	"fmt"
	"reflect"

	"github.com/robert-malhotra/h5pipe/internal/binary"
	"github.com/robert-malhotra/h5pipe/internal/dtype"
	"github.com/robert-malhotra/h5pipe/internal/message"
	"github.com/robert-malhotra/h5pipe/internal/object"
)

// Attribute is a small named value attached to a group or dataset.
type Attribute struct {
	msg    *message.Attribute
	reader *binary.Reader
}

func attrNames(h *object.Header) []string {
	var names []string
	for _, a := range h.Attributes() {
		names = append(names, a.Name)
	}
	return names
}

func findAttr(h *object.Header, name string, r *binary.Reader) *Attribute {
	for _, a := range h.Attributes() {
		if a.Name == name {
			return &Attribute{msg: a, reader: r}
		}
	}
	return nil
}

// Name returns the attribute name.
func (a *Attribute) Name() string {
	return a.msg.Name
}

// Shape returns the dimensions of the value. Scalars have an empty shape.
func (a *Attribute) Shape() []uint64 {
	if a.msg.Dataspace == nil || a.msg.Dataspace.IsScalar() {
		return []uint64{}
	}
	return append([]uint64(nil), a.msg.Dataspace.Dimensions...)
}

// NumElements returns the number of elements in the value.
func (a *Attribute) NumElements() uint64 {
	if a.msg.Dataspace == nil {
		return 1
	}
	return a.msg.Dataspace.NumElements()
}

// IsScalar reports whether the value is a single element.
func (a *Attribute) IsScalar() bool {
	return a.msg.Dataspace == nil || a.msg.Dataspace.IsScalar()
}

// DtypeClass returns the datatype class.
func (a *Attribute) DtypeClass() message.DatatypeClass {
	return a.msg.Datatype.Class
}

// Read converts the value into dest, a pointer to a slice or a scalar.
func (a *Attribute) Read(dest any) error {
	if a.msg.Datatype == nil {
		return fmt.Errorf("attribute %s has no datatype", a.msg.Name)
	}
	return dtype.ConvertWithReader(a.msg.Datatype, a.msg.Data, a.NumElements(), dest, a.reader)
}

// Value returns the value in its natural Go type: a single element for
// scalars and a slice otherwise.
func (a *Attribute) Value() (any, error) {
	if a.msg.Datatype == nil {
		return nil, fmt.Errorf("attribute %s has no datatype", a.msg.Name)
	}
	v, err := dtype.NewDecoder(a.reader).Decode(a.msg.Datatype, a.msg.Data, a.NumElements())
	if err != nil {
		return nil, fmt.Errorf("attribute %s: %w", a.msg.Name, err)
	}
	if rv := reflect.ValueOf(v); a.IsScalar() && rv.Len() == 1 {
		return rv.Index(0).Interface(), nil
	}
	return v, nil
}

// newAttribute encodes value as an attribute message.
func newAttribute(name string, value any) (*message.Attribute, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: empty attribute name", ErrInvalidPath)
	}
	enc, err := encode(value)
	if err != nil {
		return nil, fmt.Errorf("attribute %s: %w", name, err)
	}
	return message.NewAttribute(name, enc.datatype, enc.dataspace(), enc.data), nil
}
