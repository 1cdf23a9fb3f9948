// Package heap reads the two heaps that hold variable-length data.
//
// A [LocalHeap] ("HEAP") stores the member names of an old-style
// symbol-table group. A [GlobalHeap] collection ("GCOL") stores
// variable-length values such as vlen strings; dataset elements refer to
// them by [GlobalHeapID]. [Cache] resolves IDs across many elements while
// reading each collection once.
package heap
