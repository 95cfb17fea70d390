package allocator

import (
	"unsafe"

	"github.com/pkg/errors"

	"github.com/pbackus/allocator-demo/block"
	"github.com/pbackus/allocator-demo/memutils"
)

// bumpSuballocation records one live allocation within a BumpRegion's buffer. size is
// the usable size handed to the caller, not counting any debug margin after it.
type bumpSuballocation struct {
	offset int
	size   int
}

// BumpRegion is a fixed-capacity allocator that serves requests by advancing a cursor
// through a single pre-allocated buffer. Request sizes are rounded up to
// memutils.MaxAlign so that every block it returns is maximally aligned.
//
// Space is only reclaimed when frees arrive in reverse allocation order: deallocating
// the most recently allocated live block rewinds the cursor, while deallocating any
// other block nulls the handle and leaks its space until the whole region is reset or
// dropped.
//
// A BumpRegion's cursor is mutated without synchronization. Instances must be confined
// to one owner at a time; this is a usage contract, not something the type enforces.
type BumpRegion struct {
	buffer         []byte
	cursor         int
	suballocations []bumpSuballocation
	stats          memutils.Statistics
}

var _ Allocator = &BumpRegion{}

// NewBumpRegion creates a BumpRegion with the provided capacity in bytes. The backing
// buffer is garbage-collected storage aligned to memutils.MaxAlign, allocated once up
// front. Panics if capacity is not positive.
func NewBumpRegion(capacity int) *BumpRegion {
	if capacity <= 0 {
		panic("bump region capacity must be positive")
	}

	raw := make([]byte, capacity+int(memutils.MaxAlign))
	addr := uintptr(unsafe.Pointer(&raw[0]))
	offset := memutils.AlignUp(int(addr), memutils.MaxAlign) - int(addr)

	region := &BumpRegion{
		buffer:         raw[offset : offset+capacity : offset+capacity],
		suballocations: []bumpSuballocation{},
	}
	region.stats.BlockCount = 1
	region.stats.BlockBytes = capacity
	return region
}

// Capacity returns the total size of the region's buffer in bytes.
func (r *BumpRegion) Capacity() int {
	return len(r.buffer)
}

// Remaining returns the number of bytes still available for allocation.
func (r *BumpRegion) Remaining() int {
	return len(r.buffer) - r.cursor
}

// Allocate carves the next block out of the region's buffer. The request is rounded up
// to memutils.MaxAlign; it fails with a null block if the rounded size exceeds the
// remaining capacity or memutils.MaxAlignedSize.
func (r *BumpRegion) Allocate(size int) block.Block {
	if size <= 0 || size > memutils.MaxAlignedSize {
		return block.Block{}
	}

	usable := memutils.AlignUp(size, memutils.MaxAlign)
	reserve := usable + memutils.DebugMargin
	if reserve < usable || reserve > r.Remaining() {
		return block.Block{}
	}

	data := r.buffer[r.cursor : r.cursor+usable : r.cursor+usable]
	if memutils.DebugMargin > 0 {
		memutils.WriteMagicValue(unsafe.Pointer(&r.buffer[0]), r.cursor+usable)
	}

	r.suballocations = append(r.suballocations, bumpSuballocation{offset: r.cursor, size: usable})
	r.cursor += reserve
	r.stats.AddAllocation(usable)

	memutils.DebugValidate(r)
	return block.FromBytes(data)
}

// Owns returns whether b's bytes lie within the region's buffer.
func (r *BumpRegion) Owns(b *block.Block) bool {
	if b.IsNull() {
		return false
	}

	base := uintptr(unsafe.Pointer(&r.buffer[0]))
	addr := b.BaseAddress()
	return addr >= base && addr < base+uintptr(len(r.buffer))
}

// Deallocate consumes b, leaving it null. If b is the most recently allocated live
// block, the cursor rewinds and its space becomes available again; otherwise the space
// is leaked until the region is reset. Panics if b is non-null and either lies outside
// the region's buffer or does not correspond to a live allocation.
func (r *BumpRegion) Deallocate(b *block.Block) {
	if b.IsNull() {
		return
	}
	if !r.Owns(b) {
		panic("attempting to deallocate a block this bump region does not own")
	}

	offset := int(b.BaseAddress() - uintptr(unsafe.Pointer(&r.buffer[0])))
	size := b.Size()
	_ = b.TakeBytes()

	index := -1
	for i := len(r.suballocations) - 1; i >= 0; i-- {
		if r.suballocations[i].offset == offset && r.suballocations[i].size == size {
			index = i
			break
		}
	}
	if index < 0 {
		panic("attempting to deallocate a block that is not a live allocation in this bump region")
	}

	if index == len(r.suballocations)-1 && offset+size+memutils.DebugMargin == r.cursor {
		// LIFO free of the top allocation: the space is reclaimed.
		r.cursor = offset
	}
	r.suballocations = append(r.suballocations[:index], r.suballocations[index+1:]...)
	r.stats.RemoveAllocation(size)

	memutils.DebugValidate(r)
}

// Reset instantly frees every live allocation and rewinds the cursor to the start of
// the buffer. Any outstanding block handles into the region are invalidated; the
// caller must ensure none remain in use.
func (r *BumpRegion) Reset() {
	r.cursor = 0
	r.suballocations = r.suballocations[:0]
	r.stats.AllocationCount = 0
	r.stats.AllocationBytes = 0
}

// AllocationCount returns the number of live allocations in the region.
func (r *BumpRegion) AllocationCount() int {
	return len(r.suballocations)
}

// Validate performs internal consistency checks on the region's bookkeeping. When the
// implementation is functioning correctly it cannot return an error, but it may assist
// in diagnosing issues.
func (r *BumpRegion) Validate() error {
	if r.cursor < 0 || r.cursor > len(r.buffer) {
		return errors.Errorf("cursor %d is outside the buffer's %d bytes", r.cursor, len(r.buffer))
	}

	previousEnd := 0
	for i, sub := range r.suballocations {
		if sub.offset < previousEnd {
			return errors.Errorf("suballocation %d at offset %d overlaps the previous suballocation ending at %d", i, sub.offset, previousEnd)
		}
		if sub.offset+sub.size+memutils.DebugMargin > r.cursor {
			return errors.Errorf("suballocation %d at offset %d extends past the cursor at %d", i, sub.offset, r.cursor)
		}
		previousEnd = sub.offset + sub.size + memutils.DebugMargin
	}

	if r.stats.AllocationCount != len(r.suballocations) {
		return errors.Errorf("statistics record %d allocations but %d are live", r.stats.AllocationCount, len(r.suballocations))
	}

	return nil
}

// CheckCorruption verifies the debug margin after every live allocation. It only has
// teeth when the module is built with the debug_alloc tag; otherwise it returns nil
// immediately.
func (r *BumpRegion) CheckCorruption() error {
	if memutils.DebugMargin == 0 {
		return nil
	}

	base := unsafe.Pointer(&r.buffer[0])
	for _, sub := range r.suballocations {
		if !memutils.ValidateMagicValue(base, sub.offset+sub.size) {
			return errors.Errorf("memory corruption detected after the allocation at offset %d", sub.offset)
		}
	}
	return nil
}

// AddStatistics sums this region's activity into stats.
func (r *BumpRegion) AddStatistics(stats *memutils.Statistics) {
	stats.AddStatistics(&r.stats)
}
