// Package object reads and writes HDF5 object headers.
//
// Every group and dataset is described by an object header: a list of
// typed messages (see package message) that may spill into continuation
// blocks. [Read] accepts version 1 and version 2 headers and records both
// the decoded messages and their stored bytes, so a header can be rebuilt
// with [Header.Preserved] without losing messages this module does not
// understand.
//
// [Encode] and [Write] always produce a single-block version 2 header with
// a lookup3 checksum. Headers are never edited in place; callers write a
// replacement and re-point the parent link.
package object
