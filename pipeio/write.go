package pipeio

import (
	"fmt"
	"path"

	"go.uber.org/zap"

	"github.com/robert-malhotra/h5pipe/hdf5"
)

// Codec names a lossless compression codec.
type Codec string

const (
	CodecGzip Codec = "gzip"
	CodecNone Codec = "none"
)

// DefaultGzipLevel matches the h5py default.
const DefaultGzipLevel = 4

// Compression selects how Write stores dataset bytes. Level applies to
// gzip only. Shuffle reorders element bytes before compression.
type Compression struct {
	Codec   Codec
	Level   int
	Shuffle bool
}

// DefaultCompression is gzip at the default level.
func DefaultCompression() Compression {
	return Compression{Codec: CodecGzip, Level: DefaultGzipLevel}
}

// Validate rejects unknown codecs and gzip levels outside 0..9.
func (c Compression) Validate() error {
	switch c.Codec {
	case CodecGzip:
		if c.Level < 0 || c.Level > 9 {
			return fmt.Errorf("%w: gzip level %d", hdf5.ErrUnsupported, c.Level)
		}
	case CodecNone:
	default:
		return fmt.Errorf("%w: codec %q", hdf5.ErrUnsupported, c.Codec)
	}
	return nil
}

func (c Compression) options() []hdf5.DatasetOption {
	var opts []hdf5.DatasetOption
	if c.Codec == CodecGzip {
		opts = append(opts, hdf5.WithCompression(c.Level))
	}
	if c.Shuffle {
		opts = append(opts, hdf5.WithShuffle())
	}
	return opts
}

type writeOptions struct {
	compression Compression
	extra       []hdf5.DatasetOption
}

// WriteOption configures Write.
type WriteOption func(*writeOptions)

// WithCompression sets the codec. Without it Write uses DefaultCompression.
func WithCompression(c Compression) WriteOption {
	return func(o *writeOptions) { o.compression = c }
}

// WithChunks sets the chunk shape of the stored dataset.
func WithChunks(dims ...uint64) WriteOption {
	return func(o *writeOptions) { o.extra = append(o.extra, hdf5.WithChunks(dims...)) }
}

// WithAttribute stores an attribute on the dataset.
func WithAttribute(name string, value any) WriteOption {
	return func(o *writeOptions) { o.extra = append(o.extra, hdf5.WithAttribute(name, value)) }
}

// Write stores data as the dataset name directly below g, replacing any
// member of that name. data may be a scalar, a slice or nested slice of
// numbers or strings, an *hdf5.Array or a *mat.Dense. The data is encoded
// before anything is changed, so a failed Write leaves the old member in
// place.
func Write(g *hdf5.Group, name string, data any, opts ...WriteOption) (*hdf5.Dataset, error) {
	o := writeOptions{compression: DefaultCompression()}
	for _, opt := range opts {
		opt(&o)
	}
	werr := func(err error) error {
		return &WriteError{Path: g.File().Path(), Name: path.Join(g.Path(), name), Err: err}
	}
	if err := o.compression.Validate(); err != nil {
		return nil, werr(err)
	}

	ds, err := g.ReplaceDataset(name, data, append(o.compression.options(), o.extra...)...)
	if err != nil {
		return nil, werr(err)
	}
	logger().Debug("dataset written",
		zap.String("name", ds.Path()),
		zap.Uint64s("shape", ds.Shape()),
		zap.String("codec", ds.Compression()),
	)
	return ds, nil
}
