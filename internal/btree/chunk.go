package btree

// ChunkEntry locates one stored chunk.
type ChunkEntry struct {
	// Offset is the chunk's first element in dataset coordinates.
	Offset []uint64

	// FilterMask has bit i set when filter i was skipped for this chunk.
	FilterMask uint32

	// Size is the stored (possibly filtered) size in bytes. Zero means the
	// chunk is stored unfiltered at its full size.
	Size uint64

	Address uint64
}

// ChunkIndex is the flattened set of chunks of a dataset.
type ChunkIndex struct {
	Entries []ChunkEntry
}

// FindChunk returns the chunk containing the element at offset, or nil.
func (idx *ChunkIndex) FindChunk(offset []uint64, chunkDims []uint32) *ChunkEntry {
	for i := range idx.Entries {
		e := &idx.Entries[i]
		match := true
		for d := 0; d < len(offset) && d < len(e.Offset); d++ {
			if offset[d] < e.Offset[d] || offset[d] >= e.Offset[d]+uint64(chunkDims[d]) {
				match = false
				break
			}
		}
		if match {
			return e
		}
	}
	return nil
}
