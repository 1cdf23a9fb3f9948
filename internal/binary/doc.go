// Package binary reads and writes the sized fields of an HDF5 file.
//
// HDF5 addresses and lengths are stored with a per-file width (2, 4 or 8
// bytes) declared in the superblock. [Reader] and [Writer] carry that width
// in a [Config] and expose ReadOffset/WriteOffset and ReadLength/WriteLength
// so callers never hard-code it.
//
// Both types work over io.ReaderAt / io.WriterAt and keep their own cursor,
// so any number of them can share one *os.File. [Buffer] is an in-memory
// io.WriterAt used to assemble checksummed blocks before they are written.
//
// The package also implements the two checksums found in HDF5 files:
// [Lookup3Checksum] for metadata blocks and [Fletcher32] for the
// Fletcher-32 chunk filter.
package binary
