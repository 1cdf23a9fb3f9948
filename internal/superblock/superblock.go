package superblock

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	binpkg "github.com/robert-malhotra/h5pipe/internal/binary"
)

// Signature is the 8-byte HDF5 format signature.
var Signature = []byte{0x89, 'H', 'D', 'F', '\r', '\n', 0x1a, '\n'}

// Possible superblock locations, searched in order.
var searchOffsets = []int64{0, 512, 1024, 2048}

var (
	ErrNotHDF5            = errors.New("not an HDF5 file: signature not found")
	ErrUnsupportedVersion = errors.New("unsupported superblock version")
	ErrInvalidSuperblock  = errors.New("invalid superblock")
)

// Superblock holds the file-level metadata needed to navigate a file.
type Superblock struct {
	Version    uint8
	OffsetSize uint8
	LengthSize uint8

	// FileConsistencyFlags is only stored by v2/v3.
	FileConsistencyFlags uint8

	BaseAddress      uint64
	ExtensionAddress uint64
	EOFAddress       uint64
	RootGroupAddress uint64

	// v0/v1 B-tree parameters.
	GroupLeafNodeK     uint16
	GroupInternalNodeK uint16
	IndexedStorageK    uint16

	// FileOffset is where the signature was found.
	FileOffset int64
}

// New returns a v3 superblock with the given address widths.
func New(offsetSize, lengthSize int) *Superblock {
	return &Superblock{
		Version:          3,
		OffsetSize:       uint8(offsetSize),
		LengthSize:       uint8(lengthSize),
		ExtensionAddress: binpkg.UndefinedFor(offsetSize),
	}
}

// Read locates and parses the superblock.
func Read(r io.ReaderAt) (*Superblock, error) {
	sig := make([]byte, 9)
	for _, offset := range searchOffsets {
		if _, err := r.ReadAt(sig, offset); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, err
		}
		if !bytes.Equal(sig[:8], Signature) {
			continue
		}

		var (
			sb  *Superblock
			err error
		)
		switch version := sig[8]; version {
		case 0, 1:
			sb, err = readV0(r, offset, version)
		case 2, 3:
			sb, err = readV2(r, offset)
		default:
			return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
		}
		if err != nil {
			return nil, err
		}
		sb.FileOffset = offset
		return sb, nil
	}
	return nil, ErrNotHDF5
}

// Config returns the sized-field encoding declared by the superblock.
func (sb *Superblock) Config() binpkg.Config {
	return binpkg.Config{
		ByteOrder:  binary.LittleEndian,
		OffsetSize: int(sb.OffsetSize),
		LengthSize: int(sb.LengthSize),
	}
}

// Writable reports whether the superblock can be rewritten in place.
func (sb *Superblock) Writable() bool {
	return sb.Version >= 2
}

// Upgrade converts a v0/v1 superblock to v2 so it can be written. Address
// widths, EOF and the root group address are kept.
func (sb *Superblock) Upgrade() {
	if sb.Writable() {
		return
	}
	sb.Version = 2
	sb.FileConsistencyFlags = 0
	sb.ExtensionAddress = binpkg.UndefinedFor(int(sb.OffsetSize))
	sb.GroupLeafNodeK, sb.GroupInternalNodeK, sb.IndexedStorageK = 0, 0, 0
}

func validSize(n uint8) bool {
	return n == 2 || n == 4 || n == 8
}

/*
Version 0/1 layout after the signature:

	version, free-space version, root entry version, reserved,
	shared header version, offset size, length size, reserved   (8 bytes)
	group leaf K (2), group internal K (2), consistency flags (4)
	v1 only: indexed storage K (2), reserved (2)
	base, free-space info, EOF, driver info addresses           (4 x O)
	root group symbol table entry: name offset (O), header address (O), ...
*/
func readV0(r io.ReaderAt, offset int64, version uint8) (*Superblock, error) {
	br := binpkg.NewReader(r, binpkg.DefaultConfig()).At(offset + 8)
	fixed, err := br.ReadBytes(16)
	if err != nil {
		return nil, err
	}
	sb := &Superblock{
		Version:            version,
		OffsetSize:         fixed[5],
		LengthSize:         fixed[6],
		GroupLeafNodeK:     binary.LittleEndian.Uint16(fixed[8:]),
		GroupInternalNodeK: binary.LittleEndian.Uint16(fixed[10:]),
	}
	if !validSize(sb.OffsetSize) || !validSize(sb.LengthSize) {
		return nil, fmt.Errorf("%w: offset size %d, length size %d", ErrInvalidSuperblock, sb.OffsetSize, sb.LengthSize)
	}
	if version == 1 {
		if sb.IndexedStorageK, err = br.ReadUint16(); err != nil {
			return nil, err
		}
		br.Skip(2)
	}

	br = binpkg.NewReader(r, sb.Config()).At(br.Pos())
	if sb.BaseAddress, err = br.ReadOffset(); err != nil {
		return nil, err
	}
	br.Skip(int64(sb.OffsetSize)) // free-space info
	if sb.EOFAddress, err = br.ReadOffset(); err != nil {
		return nil, err
	}
	br.Skip(int64(sb.OffsetSize)) // driver info
	br.Skip(int64(sb.OffsetSize)) // root entry link name offset
	if sb.RootGroupAddress, err = br.ReadOffset(); err != nil {
		return nil, err
	}
	sb.ExtensionAddress = binpkg.UndefinedFor(int(sb.OffsetSize))
	return sb, nil
}

/*
Version 2/3 layout:

	signature (8), version, offset size, length size, flags
	base, extension, EOF, root group object header addresses   (4 x O)
	lookup3 checksum of everything above                        (4)
*/
func readV2(r io.ReaderAt, offset int64) (*Superblock, error) {
	head := make([]byte, 12)
	if _, err := r.ReadAt(head, offset); err != nil {
		return nil, err
	}
	sb := &Superblock{
		Version:              head[8],
		OffsetSize:           head[9],
		LengthSize:           head[10],
		FileConsistencyFlags: head[11],
	}
	if !validSize(sb.OffsetSize) || !validSize(sb.LengthSize) {
		return nil, fmt.Errorf("%w: offset size %d, length size %d", ErrInvalidSuperblock, sb.OffsetSize, sb.LengthSize)
	}

	body := make([]byte, sb.Size())
	if _, err := r.ReadAt(body, offset); err != nil {
		return nil, err
	}
	n := len(body) - 4
	stored := binary.LittleEndian.Uint32(body[n:])
	if !binpkg.VerifyLookup3(body[:n], stored) {
		return nil, fmt.Errorf("%w: checksum mismatch", ErrInvalidSuperblock)
	}

	o := int(sb.OffsetSize)
	field := func(i int) uint64 {
		return binpkg.DecodeUint(body[12+i*o:], o, binary.LittleEndian)
	}
	sb.BaseAddress = field(0)
	sb.ExtensionAddress = field(1)
	sb.EOFAddress = field(2)
	sb.RootGroupAddress = field(3)
	return sb, nil
}
