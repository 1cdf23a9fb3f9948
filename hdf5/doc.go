// Package hdf5 reads and writes HDF5 files in pure Go.
//
// # Reading
//
//	f, err := hdf5.Open("data.h5")
//	if err != nil {
//		return err
//	}
//	defer f.Close()
//
//	ds, err := f.OpenDataset("/sensors/temperature")
//	arr, err := ds.ReadArray() // flat row-major values plus shape
//	m, err := arr.Dense()      // gonum matrix for 1-D and 2-D numeric data
//
// Superblocks of every version are read, along with version 1 and 2
// object headers, symbol-table and link-message groups, soft links,
// contiguous, compact and chunked layouts (every chunk index type) and
// the deflate, shuffle and fletcher32 filters.
//
// # Writing
//
// [Create] starts a new file and [OpenReadWrite] appends to an existing
// one:
//
//	f, err := hdf5.Create("out.h5")
//	g, err := f.Root().RequireGroup("runs/2024")
//	_, err = g.CreateDataset("x", [][]float64{{1, 2}, {3, 4}},
//		hdf5.WithCompression(4), hdf5.WithShuffle())
//	err = f.Close()
//
// Space is append-only. Every change writes new objects at the end of the
// file and rewrites the group headers on the path to the root; the
// superblock, written by [File.Flush] and [File.Close], is the commit
// point. Space held by replaced or deleted objects is reported by
// [File.SpaceStats] and never reused.
//
// Go strings are stored as fixed-length null-padded UTF-8. Variable-length
// strings written by other libraries are read through the global heap.
package hdf5
