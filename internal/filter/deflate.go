package filter

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"

	"github.com/robert-malhotra/h5pipe/internal/message"
)

// DefaultDeflateLevel matches the level h5py uses for compression="gzip".
const DefaultDeflateLevel = 4

// Deflate is the zlib-framed DEFLATE filter.
type Deflate struct {
	level int
}

// NewDeflate creates the filter. Client data [0] is the compression level.
func NewDeflate(cd []uint32) *Deflate {
	level := DefaultDeflateLevel
	if len(cd) > 0 {
		level = int(cd[0])
	}
	return &Deflate{level: level}
}

func (f *Deflate) ID() uint16 { return message.FilterDeflate }

// Level returns the compression level.
func (f *Deflate) Level() int { return f.level }

func (f *Deflate) Encode(input []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw, err := zlib.NewWriterLevel(&buf, f.level)
	if err != nil {
		return nil, err
	}
	if _, err := zw.Write(input); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (f *Deflate) Decode(input []byte) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(input))
	if err != nil {
		return nil, fmt.Errorf("zlib reader: %w", err)
	}
	defer zr.Close()

	out, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("inflate: %w", err)
	}
	return out, nil
}
