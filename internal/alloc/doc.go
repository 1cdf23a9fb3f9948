// Package alloc manages file space for the writer.
//
// Every object header, heap, index and chunk written to a file gets its
// address from an [Allocator]. Allocation is append-only: blocks are carved
// from the end of the file and never handed out twice. Blocks that become
// unreachable, such as an object header replaced by a rewrite, are passed
// to [Allocator.Free], which only counts them:
//
//	a := alloc.New(eof)
//	hdr := a.AllocAligned(size, 8)
//	...
//	a.Free(oldHdr, oldSize)
//	a.Stats().Freed // bytes no longer reachable
package alloc
