package object

import (
	"errors"
	"fmt"

	"github.com/robert-malhotra/h5pipe/internal/binary"
	"github.com/robert-malhotra/h5pipe/internal/message"
)

// SignatureV2 starts a version 2 object header.
var SignatureV2 = []byte{'O', 'H', 'D', 'R'}

var signatureCont = []byte{'O', 'C', 'H', 'K'}

var (
	ErrInvalidHeader      = errors.New("invalid object header")
	ErrUnsupportedVersion = errors.New("unsupported object header version")
	ErrChecksumMismatch   = errors.New("object header checksum mismatch")
)

// maxBlocks bounds the number of continuation blocks followed per header.
const maxBlocks = 1024

// Raw is a header message as stored in the file.
type Raw struct {
	Type  message.Type
	Flags uint8
	Data  []byte
}

// Span is a region of the file occupied by a header.
type Span struct {
	Addr uint64
	Size uint64
}

// Header is a parsed object header. Messages and Raw are parallel: Raw[i]
// holds the stored bytes of Messages[i]. NIL and continuation messages are
// not listed.
type Header struct {
	Version  uint8
	Address  uint64
	Flags    uint8
	RefCount uint32

	Messages []message.Message
	Raw      []Raw

	// Spans lists the first header block followed by every continuation
	// block.
	Spans []Span

	AccessTime uint32
	ModTime    uint32
	ChangeTime uint32
	BirthTime  uint32
}

// Read parses the object header at address.
func Read(r *binary.Reader, address uint64) (*Header, error) {
	peek, err := r.At(int64(address)).Peek(4)
	if err != nil {
		return nil, fmt.Errorf("object header at 0x%x: %w", address, err)
	}
	h := &Header{Address: address}
	switch {
	case string(peek) == string(SignatureV2):
		err = h.readV2(r)
	case peek[0] == 1:
		err = h.readV1(r)
	default:
		return nil, fmt.Errorf("%w at 0x%x", ErrInvalidHeader, address)
	}
	if err != nil {
		return nil, fmt.Errorf("object header at 0x%x: %w", address, err)
	}
	return h, nil
}

// Size returns the total number of file bytes the header occupies.
func (h *Header) Size() uint64 {
	var n uint64
	for _, s := range h.Spans {
		n += s.Size
	}
	return n
}

// GetMessage returns the first message of type typ, or nil.
func (h *Header) GetMessage(typ message.Type) message.Message {
	for _, msg := range h.Messages {
		if msg.Type() == typ {
			return msg
		}
	}
	return nil
}

// GetMessages returns every message of type typ.
func (h *Header) GetMessages(typ message.Type) []message.Message {
	var out []message.Message
	for _, msg := range h.Messages {
		if msg.Type() == typ {
			out = append(out, msg)
		}
	}
	return out
}

// Preserved returns the stored messages whose types are not in drop, ready
// to be written into a replacement header.
func (h *Header) Preserved(drop ...message.Type) []message.Message {
	var out []message.Message
next:
	for _, raw := range h.Raw {
		for _, t := range drop {
			if raw.Type == t {
				continue next
			}
		}
		out = append(out, message.NewUnknown(raw.Type, raw.Flags, raw.Data))
	}
	return out
}

// Dataspace returns the dataspace message, or nil.
func (h *Header) Dataspace() *message.Dataspace {
	m, _ := h.GetMessage(message.TypeDataspace).(*message.Dataspace)
	return m
}

// Datatype returns the datatype message, or nil.
func (h *Header) Datatype() *message.Datatype {
	m, _ := h.GetMessage(message.TypeDatatype).(*message.Datatype)
	return m
}

// DataLayout returns the data layout message, or nil.
func (h *Header) DataLayout() *message.DataLayout {
	m, _ := h.GetMessage(message.TypeDataLayout).(*message.DataLayout)
	return m
}

// FilterPipeline returns the filter pipeline message, or nil.
func (h *Header) FilterPipeline() *message.FilterPipeline {
	m, _ := h.GetMessage(message.TypeFilterPipeline).(*message.FilterPipeline)
	return m
}

// FillValue returns the fill value message, or nil.
func (h *Header) FillValue() *message.FillValue {
	m, _ := h.GetMessage(message.TypeFillValue).(*message.FillValue)
	return m
}

// Attributes returns the decoded attribute messages.
func (h *Header) Attributes() []*message.Attribute {
	var out []*message.Attribute
	for _, msg := range h.Messages {
		if a, ok := msg.(*message.Attribute); ok {
			out = append(out, a)
		}
	}
	return out
}

// IsGroup reports whether the header describes a group.
func (h *Header) IsGroup() bool {
	return h.GetMessage(message.TypeLinkInfo) != nil || h.GetMessage(message.TypeSymbolTable) != nil
}

// IsDataset reports whether the header describes a dataset.
func (h *Header) IsDataset() bool {
	return h.GetMessage(message.TypeDataLayout) != nil
}

// add parses one stored message. Attributes that cannot be decoded are
// kept raw so they survive a header rewrite.
func (h *Header) add(r *binary.Reader, typ message.Type, flags uint8, data []byte) error {
	msg, err := message.Parse(typ, data, flags, r)
	if err != nil {
		if typ != message.TypeAttribute {
			return fmt.Errorf("message 0x%04x: %w", uint16(typ), err)
		}
		msg = message.NewUnknown(typ, flags, data)
	}
	h.Messages = append(h.Messages, msg)
	h.Raw = append(h.Raw, Raw{Type: typ, Flags: flags, Data: data})
	return nil
}

// block is a pending continuation block.
type block struct {
	addr, size uint64
}

// walk reads the messages of the first block and follows continuations.
// parse reads one block's messages and returns the continuations found.
func (h *Header) walk(first []byte, parse func([]byte) ([]block, error), read func(block) ([]byte, error)) error {
	queue, err := parse(first)
	if err != nil {
		return err
	}
	seen := map[uint64]bool{}
	for len(queue) > 0 {
		b := queue[0]
		queue = queue[1:]
		if seen[b.addr] || len(seen) >= maxBlocks {
			return fmt.Errorf("%w: continuation loop at 0x%x", ErrInvalidHeader, b.addr)
		}
		seen[b.addr] = true
		data, err := read(b)
		if err != nil {
			return err
		}
		h.Spans = append(h.Spans, Span{Addr: b.addr, Size: b.size})
		more, err := parse(data)
		if err != nil {
			return err
		}
		queue = append(queue, more...)
	}
	return nil
}
