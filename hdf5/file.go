package hdf5

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/robert-malhotra/h5pipe/internal/alloc"
	"github.com/robert-malhotra/h5pipe/internal/binary"
	"github.com/robert-malhotra/h5pipe/internal/object"
	"github.com/robert-malhotra/h5pipe/internal/superblock"
)

// File is an open HDF5 file.
type File struct {
	path       string
	file       *os.File
	reader     *binary.Reader
	superblock *superblock.Superblock
	root       *Group
	closed     bool

	// groups caches group handles by path so that every handle to a
	// group sees its header rewrites.
	groups map[string]*Group

	writable  bool
	dirty     bool
	writer    *binary.Writer
	allocator *alloc.Allocator
}

// Open opens an HDF5 file for reading.
func Open(path string) (*File, error) {
	osf, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	f, err := load(path, osf)
	if err != nil {
		osf.Close()
		return nil, err
	}
	return f, nil
}

// load reads the superblock and root group of an open file.
func load(path string, osf *os.File) (*File, error) {
	sb, err := superblock.Read(osf)
	if err != nil {
		if errors.Is(err, superblock.ErrNotHDF5) {
			return nil, fmt.Errorf("%w: %s", ErrNotHDF5, path)
		}
		return nil, fmt.Errorf("reading superblock: %w", err)
	}
	f := &File{
		path:       path,
		file:       osf,
		reader:     binary.NewReader(osf, sb.Config()),
		superblock: sb,
		groups:     map[string]*Group{},
	}
	if err := f.loadRoot(sb.RootGroupAddress); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *File) loadRoot(addr uint64) error {
	header, err := object.Read(f.reader, addr)
	if err != nil {
		return fmt.Errorf("opening root group: %w", err)
	}
	if !header.IsGroup() {
		return fmt.Errorf("opening root group: %w", ErrNotGroup)
	}
	f.root = &Group{file: f, path: "/", addr: addr, header: header}
	f.groups["/"] = f.root
	return nil
}

// Close flushes a writable file and releases it. Closing twice is a
// no-op.
func (f *File) Close() error {
	if f.closed {
		return nil
	}
	var err error
	if f.writable {
		err = f.Flush()
	}
	f.closed = true
	f.groups = nil
	if cerr := f.file.Close(); err == nil {
		err = cerr
	}
	return err
}

// Root returns the root group.
func (f *File) Root() *Group {
	return f.root
}

// Path returns the path the file was opened with.
func (f *File) Path() string {
	return f.path
}

// Version returns the superblock version.
func (f *File) Version() int {
	return int(f.superblock.Version)
}

// IsWritable reports whether the file accepts changes.
func (f *File) IsWritable() bool {
	return f.writable
}

// Keys returns the sorted names of the root group's members.
func (f *File) Keys() ([]string, error) {
	if f.closed {
		return nil, ErrClosed
	}
	return f.root.Members()
}

// OpenGroup opens a group by path from the root.
func (f *File) OpenGroup(path string) (*Group, error) {
	if f.closed {
		return nil, ErrClosed
	}
	return f.root.OpenGroup(path)
}

// OpenDataset opens a dataset by path from the root.
func (f *File) OpenDataset(path string) (*Dataset, error) {
	if f.closed {
		return nil, ErrClosed
	}
	return f.root.OpenDataset(path)
}

// header reads the object header at addr.
func (f *File) header(addr uint64) (*object.Header, error) {
	if f.closed {
		return nil, ErrClosed
	}
	return object.Read(f.reader, addr)
}

// undefined returns the undefined address of the file.
func (f *File) undefined() uint64 {
	return binary.UndefinedFor(int(f.superblock.OffsetSize))
}

// forget drops cached group handles at or below path.
func (f *File) forget(path string) {
	prefix := strings.TrimSuffix(path, "/") + "/"
	for p := range f.groups {
		if p == path || strings.HasPrefix(p, prefix) {
			delete(f.groups, p)
		}
	}
}
