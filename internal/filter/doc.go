// Package filter implements the HDF5 chunk filter pipeline.
//
// Chunked datasets may pass every chunk through a list of filters recorded
// in the dataset's filter pipeline message. Writers apply the filters in
// order; readers undo them in reverse, skipping any filter whose bit is set
// in the chunk's filter mask.
//
// Implemented filters:
//
//   - deflate (ID 1): zlib-framed DEFLATE via github.com/klauspost/compress
//   - shuffle (ID 2): byte transposition by element size
//   - fletcher32 (ID 3): trailing Fletcher-32 checksum
//
// SZIP, N-bit and scale-offset are recognised by name only. A dataset that
// requires one of them cannot be read; optional filters are skipped.
package filter
