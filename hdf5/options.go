package hdf5

import (
	"fmt"

	"github.com/robert-malhotra/h5pipe/internal/message"
)

// FileOption configures file creation.
type FileOption func(*fileOptions)

type fileOptions struct {
	offsetSize int
	lengthSize int
}

func defaultFileOptions() *fileOptions {
	return &fileOptions{offsetSize: 8, lengthSize: 8}
}

func (o *fileOptions) validate() error {
	for _, n := range []int{o.offsetSize, o.lengthSize} {
		if n != 2 && n != 4 && n != 8 {
			return fmt.Errorf("%w: field size %d, want 2, 4 or 8", ErrUnsupported, n)
		}
	}
	return nil
}

// WithOffsetSize sets the width in bytes of file addresses.
func WithOffsetSize(n int) FileOption {
	return func(o *fileOptions) { o.offsetSize = n }
}

// WithLengthSize sets the width in bytes of lengths.
func WithLengthSize(n int) FileOption {
	return func(o *fileOptions) { o.lengthSize = n }
}

// DatasetOption configures dataset creation.
type DatasetOption func(*datasetOptions)

type attrDef struct {
	name  string
	value any
}

type datasetOptions struct {
	chunks     []uint64
	level      int
	shuffle    bool
	fletcher32 bool
	attributes []attrDef
}

// WithChunks stores the dataset in chunks of the given shape. Filtered
// datasets without it get chunks of at most 1 MiB.
func WithChunks(dims ...uint64) DatasetOption {
	return func(o *datasetOptions) { o.chunks = dims }
}

// WithCompression enables deflate at level 1..9. Zero disables it.
func WithCompression(level int) DatasetOption {
	return func(o *datasetOptions) { o.level = level }
}

// WithShuffle enables the byte shuffle filter ahead of compression.
func WithShuffle() DatasetOption {
	return func(o *datasetOptions) { o.shuffle = true }
}

// WithFletcher32 appends a checksum to every chunk.
func WithFletcher32() DatasetOption {
	return func(o *datasetOptions) { o.fletcher32 = true }
}

// WithAttribute attaches an attribute. value may be anything a dataset
// accepts, usually a scalar or a short slice.
func WithAttribute(name string, value any) DatasetOption {
	return func(o *datasetOptions) {
		o.attributes = append(o.attributes, attrDef{name: name, value: value})
	}
}

func (o *datasetOptions) validate() error {
	if o.level < 0 || o.level > 9 {
		return fmt.Errorf("%w: compression level %d", ErrUnsupported, o.level)
	}
	return nil
}

// pipeline returns the filters in application order, or nil when none
// were requested.
func (o *datasetOptions) pipeline(elemSize uint32) *message.FilterPipeline {
	var filters []message.FilterInfo
	if o.shuffle && elemSize > 1 {
		filters = append(filters, message.ShuffleFilter(elemSize))
	}
	if o.level > 0 {
		filters = append(filters, message.DeflateFilter(o.level))
	}
	if o.fletcher32 {
		filters = append(filters, message.Fletcher32Filter())
	}
	if len(filters) == 0 {
		return nil
	}
	return message.NewFilterPipeline(filters...)
}
