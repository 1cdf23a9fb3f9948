// Package btree reads the B-trees that index groups and chunks.
//
// Version 1 trees ("TREE") index the members of old-style symbol-table
// groups, together with symbol table nodes ("SNOD") and a local heap for
// names, and the chunks of datasets written with layout versions before 4.
// Version 2 trees ("BTHD") index chunks of layout version 4 datasets with
// record types 10 and 11.
//
// Both chunk readers flatten the tree into a [ChunkIndex] whose entries
// carry element offsets, so callers never see scaled coordinates.
package btree
