// Package superblock reads and writes the HDF5 superblock.
//
// The superblock starts with an 8-byte signature found at offset 0, 512,
// 1024 or 2048. It declares the width of file addresses and lengths, the
// logical end of file, and the address of the root group's object header.
//
// Versions 0 and 1 are read. They reference the root group through a
// symbol table entry and carry B-tree parameters. Versions 2 and 3 share one
// compact layout protected by a lookup3 checksum; only this layout is
// written. A file opened with a v0/v1 superblock is rewritten as v2 the
// first time it is flushed, keeping its address widths and root group.
//
// Rewriting the superblock is the commit point of every write: until it is
// replaced, the file still describes the previous root group and EOF.
package superblock
