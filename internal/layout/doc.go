// Package layout reads and writes the raw data of HDF5 datasets.
//
// # Storage Layouts
//
//   - Compact: data lives in the object header. Implemented by [Compact].
//   - Contiguous: one block in the file. Implemented by [Contiguous].
//   - Chunked: equally sized chunks located through a chunk index,
//     optionally filtered. Implemented by [Chunked].
//
// # Reading Data
//
//	l, err := layout.New(reader, layout.Dataset{
//		Layout:   layoutMsg,
//		Space:    dataspaceMsg,
//		ElemSize: datatypeMsg.Size,
//		Filters:  pipelineMsg,
//		Fill:     fillMsg,
//	})
//	data, err := l.Read()
//
// Chunked reads understand every chunk index: version 1 B-trees, single
// chunk, implicit, fixed array (paged or not), extensible array and
// version 2 B-trees. Chunks that were never allocated read as the fill
// value, and edge chunks are clipped to the dataset extent.
//
// # Writing Data
//
// [WriteContiguous] stores unfiltered data in one block. [ChunkWriter]
// splits data into zero-padded chunks with [Split], runs each through the
// filter pipeline and indexes them with a single chunk index when there is
// one chunk or a fixed array otherwise.
package layout
