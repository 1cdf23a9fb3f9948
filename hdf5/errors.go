package hdf5

import "errors"

var (
	ErrNotHDF5         = errors.New("not an HDF5 file")
	ErrNotFound        = errors.New("object not found")
	ErrExists          = errors.New("object already exists")
	ErrNotDataset      = errors.New("object is not a dataset")
	ErrNotGroup        = errors.New("object is not a group")
	ErrUnsupported     = errors.New("unsupported feature")
	ErrUnsupportedType = errors.New("unsupported data type")
	ErrInvalidPath     = errors.New("invalid path")
	ErrClosed          = errors.New("file is closed")
	ErrReadOnly        = errors.New("file is read-only")
	ErrLinkDepth       = errors.New("maximum link depth exceeded")
)

// MaxLinkDepth is the maximum number of soft links followed while
// resolving one path.
const MaxLinkDepth = 100
