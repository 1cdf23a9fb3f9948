package alloc

import (
	"fmt"
	"sort"
	"sync"
)

// Allocator hands out file space at the end of the file. Space is never
// reused: freed blocks are only recorded so the file can report how much
// of it is dead.
type Allocator struct {
	mu sync.Mutex

	// eof is the next address handed out.
	eof  uint64
	base uint64

	spans []Span
	freed []Span
	stats Stats
}

// Span is a block of file space.
type Span struct {
	Addr uint64
	Size uint64
}

// End returns the first address past the span.
func (s Span) End() uint64 { return s.Addr + s.Size }

// Stats summarizes allocator activity.
type Stats struct {
	Allocations uint64
	Allocated   uint64 // bytes handed out
	Freed       uint64 // bytes released by Free
	Largest     uint64
}

// New returns an allocator whose first block starts at base.
func New(base uint64) *Allocator {
	return &Allocator{eof: base, base: base}
}

// Alloc reserves size bytes at the end of the file. A zero size returns
// the current end without reserving anything.
func (a *Allocator) Alloc(size uint64) uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.alloc(size)
}

func (a *Allocator) alloc(size uint64) uint64 {
	addr := a.eof
	if size == 0 {
		return addr
	}
	a.eof += size
	a.spans = append(a.spans, Span{Addr: addr, Size: size})
	a.stats.Allocations++
	a.stats.Allocated += size
	a.stats.Largest = max(a.stats.Largest, size)
	return addr
}

// AllocAligned reserves size bytes starting at a multiple of alignment.
func (a *Allocator) AllocAligned(size, alignment uint64) uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()

	if alignment > 1 {
		if rem := a.eof % alignment; rem != 0 {
			a.eof += alignment - rem
		}
	}
	return a.alloc(size)
}

// Free records that a block is no longer referenced. Blocks may predate
// the allocator, as with objects already in a file opened for writing.
func (a *Allocator) Free(addr, size uint64) {
	if size == 0 {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.freed = append(a.freed, Span{Addr: addr, Size: size})
	a.stats.Freed += size
}

// EOF returns the current end-of-file address.
func (a *Allocator) EOF() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.eof
}

// Stats returns a snapshot of the counters.
func (a *Allocator) Stats() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stats
}

// Freed returns the freed blocks sorted by address.
func (a *Allocator) Freed() []Span {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := append([]Span(nil), a.freed...)
	sort.Slice(out, func(i, j int) bool { return out[i].Addr < out[j].Addr })
	return out
}

// Validate checks that every block handed out lies in [base, eof) and that
// no two overlap, and that no block was freed twice.
func (a *Allocator) Validate() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	spans := append([]Span(nil), a.spans...)
	sort.Slice(spans, func(i, j int) bool { return spans[i].Addr < spans[j].Addr })
	for i, s := range spans {
		if s.Addr < a.base || s.End() > a.eof {
			return fmt.Errorf("block 0x%x+%d outside [0x%x, 0x%x)", s.Addr, s.Size, a.base, a.eof)
		}
		if i > 0 && spans[i-1].End() > s.Addr {
			return fmt.Errorf("blocks 0x%x+%d and 0x%x+%d overlap", spans[i-1].Addr, spans[i-1].Size, s.Addr, s.Size)
		}
	}

	freed := append([]Span(nil), a.freed...)
	sort.Slice(freed, func(i, j int) bool { return freed[i].Addr < freed[j].Addr })
	for i := 1; i < len(freed); i++ {
		if freed[i-1].End() > freed[i].Addr {
			return fmt.Errorf("block 0x%x freed twice", freed[i].Addr)
		}
	}
	return nil
}
