package allocator

import (
	"sync"
	"unsafe"

	"github.com/pbackus/allocator-demo/block"
	"github.com/pbackus/allocator-demo/memutils"
)

// ManagedHeap allocates garbage-collected storage. Deallocate only nulls the handle;
// the collector reclaims the bytes later, once nothing reachable refers to them. This
// makes ManagedHeap the right allocator for callers that want allocator-shaped code
// without manual reclamation.
//
// Like Heap, a single instance may be shared across goroutines.
type ManagedHeap struct {
	mu    sync.Mutex
	stats memutils.Statistics
}

var _ Allocator = &ManagedHeap{}

// NewManagedHeap creates a ManagedHeap allocator.
func NewManagedHeap() *ManagedHeap {
	return &ManagedHeap{}
}

// Allocate returns a block owning at least size bytes of zeroed, garbage-collected
// storage, with the request rounded up to memutils.MaxAlign and the base address
// aligned to it. It returns a null block if size is not positive or exceeds
// memutils.MaxAlignedSize.
func (m *ManagedHeap) Allocate(size int) block.Block {
	if size <= 0 || size > memutils.MaxAlignedSize {
		return block.Block{}
	}
	usable := memutils.AlignUp(size, memutils.MaxAlign)

	// The runtime only guarantees natural alignment for byte slices, so over-allocate
	// and shift the window to the next MaxAlign boundary.
	raw := make([]byte, usable+int(memutils.MaxAlign))
	addr := uintptr(unsafe.Pointer(&raw[0]))
	offset := memutils.AlignUp(int(addr), memutils.MaxAlign) - int(addr)
	data := raw[offset : offset+usable : offset+usable]

	m.mu.Lock()
	m.stats.BlockCount++
	m.stats.BlockBytes += usable
	m.stats.AddAllocation(usable)
	m.mu.Unlock()

	return block.FromBytes(data)
}

// Owns reports whether b was produced by this allocator. As with Heap, any non-null
// block presented to a ManagedHeap is one of its own.
func (m *ManagedHeap) Owns(b *block.Block) bool {
	return !b.IsNull()
}

// Deallocate nulls b. The backing bytes stay live until the collector proves them
// unreachable; nothing is freed synchronously.
func (m *ManagedHeap) Deallocate(b *block.Block) {
	if b.IsNull() {
		return
	}

	size := b.Size()
	_ = b.TakeBytes()

	m.mu.Lock()
	m.stats.BlockCount--
	m.stats.BlockBytes -= size
	m.stats.RemoveAllocation(size)
	m.mu.Unlock()
}

// AddStatistics sums this allocator's activity into stats.
func (m *ManagedHeap) AddStatistics(stats *memutils.Statistics) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats.AddStatistics(&m.stats)
}
