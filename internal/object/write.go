package object

import (
	"fmt"

	"github.com/robert-malhotra/h5pipe/internal/binary"
	"github.com/robert-malhotra/h5pipe/internal/message"
)

// maxMessageSize is the largest body a version 2 message header can carry.
const maxMessageSize = 0xffff

// Encode builds a version 2 object header holding msgs in one block.
// *message.Unknown values are written back with their stored flags and
// bytes; every other message must be message.Serializable.
func Encode(cfg binary.Config, msgs []message.Message) ([]byte, error) {
	type entry struct {
		typ   message.Type
		flags uint8
		body  []byte
	}
	entries := make([]entry, 0, len(msgs))
	size := 0
	for _, msg := range msgs {
		e := entry{typ: msg.Type()}
		switch m := msg.(type) {
		case *message.Unknown:
			e.flags, e.body = m.Flags(), m.Data()
		case message.Serializable:
			body, err := message.Encode(m, cfg)
			if err != nil {
				return nil, fmt.Errorf("message 0x%04x: %w", uint16(e.typ), err)
			}
			e.body = body
		default:
			return nil, fmt.Errorf("message 0x%04x cannot be written", uint16(e.typ))
		}
		if len(e.body) > maxMessageSize {
			return nil, fmt.Errorf("message 0x%04x: %d bytes exceeds %d", uint16(e.typ), len(e.body), maxMessageSize)
		}
		if e.typ > 0xff {
			return nil, fmt.Errorf("message type 0x%04x does not fit a version 2 header", uint16(e.typ))
		}
		entries = append(entries, e)
		size += 4 + len(e.body)
	}

	width := sizeFieldWidth(size)
	w, buf := binary.NewBufferWriter(cfg, 6+width+size+4)
	steps := []func() error{
		func() error { return w.WriteBytes(SignatureV2) },
		func() error { return w.WriteUint8(2) },
		func() error { return w.WriteUint8(widthBits(width)) },
		func() error { return w.WriteUintN(uint64(size), width) },
	}
	for _, e := range entries {
		steps = append(steps,
			func() error { return w.WriteUint8(uint8(e.typ)) },
			func() error { return w.WriteUint16(uint16(len(e.body))) },
			func() error { return w.WriteUint8(e.flags) },
			func() error { return w.WriteBytes(e.body) },
		)
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return nil, err
		}
	}
	if err := w.WriteUint32(binary.Lookup3Checksum(buf.Bytes())); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Write encodes msgs and writes the header at w's position. It returns the
// number of bytes written.
func Write(w *binary.Writer, msgs []message.Message) (int64, error) {
	data, err := Encode(w.Config(), msgs)
	if err != nil {
		return 0, err
	}
	if err := w.WriteBytes(data); err != nil {
		return 0, err
	}
	return int64(len(data)), nil
}

func sizeFieldWidth(size int) int {
	switch {
	case size <= 0xff:
		return 1
	case size <= 0xffff:
		return 2
	case size <= 0xffffffff:
		return 4
	}
	return 8
}

func widthBits(width int) uint8 {
	switch width {
	case 1:
		return 0
	case 2:
		return 1
	case 4:
		return 2
	}
	return 3
}

// GroupMessages returns the messages of a compact new-style group holding
// links, followed by extra (typically preserved attributes).
func GroupMessages(undefined uint64, links []*message.Link, extra []message.Message) []message.Message {
	msgs := make([]message.Message, 0, 2+len(links)+len(extra))
	msgs = append(msgs, message.NewLinkInfo(undefined), &message.GroupInfo{})
	for _, l := range links {
		msgs = append(msgs, l)
	}
	return append(msgs, extra...)
}

// DatasetMessages returns the messages of a dataset header. pipeline may be
// nil.
func DatasetMessages(ds *message.Dataspace, dt *message.Datatype, pipeline *message.FilterPipeline, layout *message.DataLayout, extra []message.Message) []message.Message {
	msgs := []message.Message{ds, dt, message.NewFillValue()}
	if pipeline != nil && len(pipeline.Filters) > 0 {
		msgs = append(msgs, pipeline)
	}
	msgs = append(msgs, layout)
	return append(msgs, extra...)
}
