package binary

// Buffer is a growable in-memory io.WriterAt. Checksummed structures are
// assembled in a Buffer first so the checksum can be computed over the
// finished bytes before anything reaches the file.
type Buffer struct {
	buf []byte
}

// NewBuffer returns a buffer with capacity for size bytes.
func NewBuffer(size int) *Buffer {
	return &Buffer{buf: make([]byte, 0, size)}
}

// WriteAt implements io.WriterAt, growing the buffer as needed.
func (b *Buffer) WriteAt(p []byte, off int64) (int, error) {
	end := int(off) + len(p)
	if end > len(b.buf) {
		if end > cap(b.buf) {
			grown := make([]byte, end, max(end, 2*cap(b.buf)))
			copy(grown, b.buf)
			b.buf = grown
		} else {
			b.buf = b.buf[:end]
		}
	}
	copy(b.buf[off:], p)
	return len(p), nil
}

// Bytes returns the bytes written so far.
func (b *Buffer) Bytes() []byte {
	return b.buf
}

// Len returns the number of bytes written so far.
func (b *Buffer) Len() int {
	return len(b.buf)
}

// NewBufferWriter returns a Writer over a fresh Buffer using cfg.
func NewBufferWriter(cfg Config, size int) (*Writer, *Buffer) {
	buf := NewBuffer(size)
	return NewWriter(buf, cfg), buf
}
