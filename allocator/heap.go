package allocator

import (
	"sync"

	"github.com/pbackus/allocator-demo/block"
	"github.com/pbackus/allocator-demo/memutils"
)

// Heap is a manually-managed allocator: every block it hands out holds memory obtained
// directly from the operating system, and that memory is returned to the operating
// system when the block is deallocated. On unix platforms it is backed by anonymous
// memory mappings; elsewhere it degrades to garbage-collected storage with the same
// interface.
//
// Heap has no allocator-level state beyond its statistics, which it guards itself, so
// a single instance may be shared across goroutines.
type Heap struct {
	mu    sync.Mutex
	stats memutils.Statistics
}

var _ Allocator = &Heap{}

// NewHeap creates a Heap allocator.
func NewHeap() *Heap {
	return &Heap{}
}

// Allocate returns a block owning at least size bytes of freshly-mapped memory, with
// the request rounded up to memutils.MaxAlign. It returns a null block if size is not
// positive, exceeds memutils.MaxAlignedSize, or the mapping fails.
func (h *Heap) Allocate(size int) block.Block {
	if size <= 0 || size > memutils.MaxAlignedSize {
		return block.Block{}
	}

	data := h.allocateRaw(memutils.AlignUp(size, memutils.MaxAlign))
	if data == nil {
		return block.Block{}
	}

	h.mu.Lock()
	h.stats.BlockCount++
	h.stats.BlockBytes += len(data)
	h.stats.AddAllocation(len(data))
	h.mu.Unlock()

	return block.FromBytes(data)
}

// Owns reports whether b was produced by this allocator. Heap allocations are
// individually mapped, so any non-null block presented to a Heap is one of its own.
func (h *Heap) Owns(b *block.Block) bool {
	return !b.IsNull()
}

// Deallocate returns b's memory to the operating system and leaves b null. Unmapping
// failures are swallowed: the memory leaks, but teardown paths never panic.
func (h *Heap) Deallocate(b *block.Block) {
	if b.IsNull() {
		return
	}

	size := b.Size()
	h.freeRaw(b.TakeBytes())

	h.mu.Lock()
	h.stats.BlockCount--
	h.stats.BlockBytes -= size
	h.stats.RemoveAllocation(size)
	h.mu.Unlock()
}

// AddStatistics sums this allocator's activity into stats.
func (h *Heap) AddStatistics(stats *memutils.Statistics) {
	h.mu.Lock()
	defer h.mu.Unlock()

	stats.AddStatistics(&h.stats)
}
