package message

import (
	binpkg "github.com/robert-malhotra/h5pipe/internal/binary"
)

// SymbolTable locates the B-tree and local heap of an old-style group
// (type 0x0011).
type SymbolTable struct {
	BTreeAddress     uint64
	LocalHeapAddress uint64
}

func (m *SymbolTable) Type() Type { return TypeSymbolTable }

func parseSymbolTable(data []byte, r *binpkg.Reader) (*SymbolTable, error) {
	o := r.OffsetSize()
	if len(data) < 2*o {
		return nil, truncated("symbol table", 2*o, len(data))
	}
	return &SymbolTable{
		BTreeAddress:     binpkg.DecodeUint(data, o, r.ByteOrder()),
		LocalHeapAddress: binpkg.DecodeUint(data[o:], o, r.ByteOrder()),
	}, nil
}
