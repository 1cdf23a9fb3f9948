package hdf5

import (
	"fmt"
	"os"

	"github.com/robert-malhotra/h5pipe/internal/alloc"
	"github.com/robert-malhotra/h5pipe/internal/binary"
	"github.com/robert-malhotra/h5pipe/internal/message"
	"github.com/robert-malhotra/h5pipe/internal/object"
	"github.com/robert-malhotra/h5pipe/internal/superblock"
)

// headerAlign is the alignment of object headers written by this package.
const headerAlign = 8

// Create creates a new file, truncating any existing one, with a version 3
// superblock and an empty root group. The file is readable at once.
func Create(path string, opts ...FileOption) (*File, error) {
	options := defaultFileOptions()
	for _, opt := range opts {
		opt(options)
	}
	if err := options.validate(); err != nil {
		return nil, err
	}

	osf, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating file: %w", err)
	}
	f, err := create(path, osf, options)
	if err != nil {
		osf.Close()
		os.Remove(path)
		return nil, err
	}
	return f, nil
}

func create(path string, osf *os.File, options *fileOptions) (*File, error) {
	sb := superblock.New(options.offsetSize, options.lengthSize)
	cfg := sb.Config()
	f := &File{
		path:       path,
		file:       osf,
		reader:     binary.NewReader(osf, cfg),
		superblock: sb,
		groups:     map[string]*Group{},
		writable:   true,
		dirty:      true,
		writer:     binary.NewWriter(osf, cfg),
		allocator:  alloc.New(uint64(sb.Size())),
	}

	rootAddr, err := f.writeObject(object.GroupMessages(f.undefined(), nil, nil))
	if err != nil {
		return nil, fmt.Errorf("writing root group: %w", err)
	}
	sb.RootGroupAddress = rootAddr
	if err := f.writeSuperblock(); err != nil {
		return nil, err
	}
	if err := f.loadRoot(rootAddr); err != nil {
		return nil, err
	}
	return f, nil
}

// OpenReadWrite opens an existing file for appending. Files with a version
// 0 or 1 superblock are upgraded to version 2 when first flushed after a
// change.
func OpenReadWrite(path string) (*File, error) {
	osf, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	f, err := load(path, osf)
	if err != nil {
		osf.Close()
		return nil, err
	}
	info, err := osf.Stat()
	if err != nil {
		osf.Close()
		return nil, fmt.Errorf("opening file: %w", err)
	}

	// The recorded EOF is relative to the base address and may trail the
	// real file size when other tools left unaccounted space.
	eof := max(f.superblock.BaseAddress+f.superblock.EOFAddress, uint64(info.Size()))
	f.writable = true
	f.writer = binary.NewWriter(osf, f.superblock.Config())
	f.allocator = alloc.New(eof)
	return f, nil
}

// Flush writes the superblock with the current end of file and root group
// address and syncs the file. It does nothing for read-only files.
func (f *File) Flush() error {
	if f.closed {
		return ErrClosed
	}
	if !f.writable {
		return nil
	}
	if f.dirty {
		if err := f.writeSuperblock(); err != nil {
			return err
		}
		f.dirty = false
	}
	return f.file.Sync()
}

func (f *File) writeSuperblock() error {
	sb := f.superblock
	sb.Upgrade()
	sb.EOFAddress = f.allocator.EOF() - sb.BaseAddress
	sb.RootGroupAddress = f.root.addrOr(sb.RootGroupAddress)
	if err := sb.Write(f.writer); err != nil {
		return fmt.Errorf("writing superblock: %w", err)
	}
	return nil
}

// SpaceStats describes file space used by the writer.
type SpaceStats struct {
	// Allocated is the number of bytes written since the file was created
	// or opened for writing.
	Allocated uint64

	// Freed is the number of bytes held by objects that were replaced or
	// deleted. Freed space is not reused.
	Freed uint64

	// EOF is the end of the file.
	EOF uint64
}

// SpaceStats reports allocation totals. Read-only files report only EOF.
func (f *File) SpaceStats() SpaceStats {
	if f.allocator == nil {
		return SpaceStats{EOF: f.superblock.BaseAddress + f.superblock.EOFAddress}
	}
	s := f.allocator.Stats()
	return SpaceStats{Allocated: s.Allocated, Freed: s.Freed, EOF: f.allocator.EOF()}
}

// checkWritable returns the error for a change to a closed or read-only
// file.
func (f *File) checkWritable() error {
	switch {
	case f.closed:
		return ErrClosed
	case !f.writable:
		return ErrReadOnly
	}
	return nil
}

// writeObject writes a new object header holding msgs and returns its
// address.
func (f *File) writeObject(msgs []message.Message) (uint64, error) {
	data, err := object.Encode(f.writer.Config(), msgs)
	if err != nil {
		return 0, err
	}
	addr := f.allocator.AllocAligned(uint64(len(data)), headerAlign)
	if err := f.writer.At(int64(addr)).WriteBytes(data); err != nil {
		return 0, fmt.Errorf("writing object header: %w", err)
	}
	f.dirty = true
	return addr, nil
}

// release records the space held by the object at addr as freed: its
// header blocks and, for datasets, its raw data. It only affects
// accounting, so unreadable objects are skipped.
func (f *File) release(addr uint64) {
	header, err := object.Read(f.reader, addr)
	if err != nil {
		return
	}
	for _, s := range header.Spans {
		f.allocator.Free(s.Addr, s.Size)
	}
	if !header.IsDataset() {
		return
	}
	ds, err := newDataset(f, "", addr, header)
	if err != nil {
		return
	}
	for _, s := range ds.storage() {
		f.allocator.Free(s.Addr, s.Size)
	}
}
