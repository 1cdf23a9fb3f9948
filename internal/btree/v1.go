package btree

import (
	"bytes"
	"encoding/binary"
	"fmt"

	binpkg "github.com/robert-malhotra/h5pipe/internal/binary"
	"github.com/robert-malhotra/h5pipe/internal/heap"
)

var (
	treeSignature = []byte("TREE")
	snodSignature = []byte("SNOD")
)

// maxDepth bounds recursion through corrupt trees.
const maxDepth = 64

const (
	nodeGroup = 0
	nodeChunk = 1
)

// nodeHeader is the common prefix of a version 1 B-tree node: "TREE",
// type, level, entries used, left and right sibling addresses.
type nodeHeader struct {
	level   uint8
	entries uint16
}

func readNodeHeader(nr *binpkg.Reader, address uint64, want uint8) (nodeHeader, error) {
	var h nodeHeader
	sig, err := nr.ReadBytes(4)
	if err != nil {
		return h, fmt.Errorf("B-tree node at 0x%x: %w", address, err)
	}
	if !bytes.Equal(sig, treeSignature) {
		return h, fmt.Errorf("B-tree node at 0x%x: bad signature %q", address, sig)
	}
	typ, err := nr.ReadUint8()
	if err != nil {
		return h, err
	}
	if typ != want {
		return h, fmt.Errorf("B-tree node at 0x%x: type %d, want %d", address, typ, want)
	}
	if h.level, err = nr.ReadUint8(); err != nil {
		return h, err
	}
	if h.entries, err = nr.ReadUint16(); err != nil {
		return h, err
	}
	nr.Skip(int64(2 * nr.OffsetSize()))
	return h, nil
}

// GroupEntry is one member of a symbol-table group.
type GroupEntry struct {
	Name          string
	ObjectAddress uint64
	Soft          bool
	SoftLinkValue string
}

// ReadGroupEntries returns the members indexed by the group B-tree at
// address, with names resolved through names.
func ReadGroupEntries(r *binpkg.Reader, address uint64, names *heap.LocalHeap) ([]GroupEntry, error) {
	return readGroupNode(r, address, names, 0)
}

// Group node keys are heap offsets of length size; children are symbol
// table nodes at level 0 and B-tree nodes above.
func readGroupNode(r *binpkg.Reader, address uint64, names *heap.LocalHeap, depth int) ([]GroupEntry, error) {
	if depth > maxDepth {
		return nil, fmt.Errorf("group B-tree deeper than %d", maxDepth)
	}
	nr := r.At(int64(address))
	h, err := readNodeHeader(nr, address, nodeGroup)
	if err != nil {
		return nil, err
	}
	var out []GroupEntry
	for i := 0; i < int(h.entries); i++ {
		nr.Skip(int64(nr.LengthSize()))
		child, err := nr.ReadOffset()
		if err != nil {
			return nil, err
		}
		var entries []GroupEntry
		if h.level == 0 {
			entries, err = readSymbolNode(r, child, names)
		} else {
			entries, err = readGroupNode(r, child, names, depth+1)
		}
		if err != nil {
			return nil, err
		}
		out = append(out, entries...)
	}
	return out, nil
}

// Symbol table entry cache types.
const (
	cacheNone = 0
	cacheHard = 1
	cacheSoft = 2
)

// readSymbolNode reads "SNOD", version 1, reserved, symbol count (2) and the
// entries. Each entry is a name offset (O), header address (O), cache type
// (4), reserved (4) and a 16-byte scratch pad.
func readSymbolNode(r *binpkg.Reader, address uint64, names *heap.LocalHeap) ([]GroupEntry, error) {
	nr := r.At(int64(address))
	sig, err := nr.ReadBytes(4)
	if err != nil {
		return nil, fmt.Errorf("symbol node at 0x%x: %w", address, err)
	}
	if !bytes.Equal(sig, snodSignature) {
		return nil, fmt.Errorf("symbol node at 0x%x: bad signature %q", address, sig)
	}
	version, err := nr.ReadUint8()
	if err != nil {
		return nil, err
	}
	if version != 1 {
		return nil, fmt.Errorf("symbol node at 0x%x: unsupported version %d", address, version)
	}
	nr.Skip(1)
	count, err := nr.ReadUint16()
	if err != nil {
		return nil, err
	}

	var out []GroupEntry
	for i := 0; i < int(count); i++ {
		nameOff, err := nr.ReadOffset()
		if err != nil {
			return nil, err
		}
		addr, err := nr.ReadOffset()
		if err != nil {
			return nil, err
		}
		cache, err := nr.ReadUint32()
		if err != nil {
			return nil, err
		}
		nr.Skip(4)
		scratch, err := nr.ReadBytes(16)
		if err != nil {
			return nil, err
		}
		e := GroupEntry{Name: names.GetString(nameOff), ObjectAddress: addr}
		if cache == cacheSoft {
			e.Soft = true
			e.SoftLinkValue = names.GetString(uint64(binary.LittleEndian.Uint32(scratch)))
			e.ObjectAddress = 0
		}
		if e.Name != "" {
			out = append(out, e)
		}
	}
	return out, nil
}

// ReadChunkIndex reads the version 1 chunk B-tree at address for a dataset
// of the given rank.
//
// Chunk keys are the stored size (4), filter mask (4) and rank+1 element
// offsets of 8 bytes, the last being zero. Nodes hold entries+1 keys.
func ReadChunkIndex(r *binpkg.Reader, address uint64, rank int) (*ChunkIndex, error) {
	entries, err := readChunkNode(r, address, rank, 0)
	if err != nil {
		return nil, err
	}
	return &ChunkIndex{Entries: entries}, nil
}

func readChunkNode(r *binpkg.Reader, address uint64, rank, depth int) ([]ChunkEntry, error) {
	if depth > maxDepth {
		return nil, fmt.Errorf("chunk B-tree deeper than %d", maxDepth)
	}
	nr := r.At(int64(address))
	h, err := readNodeHeader(nr, address, nodeChunk)
	if err != nil {
		return nil, err
	}
	var out []ChunkEntry
	for i := 0; i < int(h.entries); i++ {
		size, err := nr.ReadUint32()
		if err != nil {
			return nil, err
		}
		mask, err := nr.ReadUint32()
		if err != nil {
			return nil, err
		}
		offsets := make([]uint64, rank+1)
		for d := range offsets {
			if offsets[d], err = nr.ReadUint64(); err != nil {
				return nil, err
			}
		}
		child, err := nr.ReadOffset()
		if err != nil {
			return nil, err
		}
		if h.level > 0 {
			sub, err := readChunkNode(r, child, rank, depth+1)
			if err != nil {
				return nil, err
			}
			out = append(out, sub...)
			continue
		}
		if r.IsUndefinedOffset(child) {
			continue
		}
		out = append(out, ChunkEntry{
			Offset:     offsets[:rank],
			FilterMask: mask,
			Size:       uint64(size),
			Address:    child,
		})
	}
	return out, nil
}
