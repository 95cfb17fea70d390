package allocator

import (
	"context"
	"unsafe"

	"github.com/dolthub/swiss"
	"github.com/pkg/errors"
	"golang.org/x/exp/slog"

	"github.com/pbackus/allocator-demo/block"
	"github.com/pbackus/allocator-demo/memutils"
)

// Tracked wraps another allocator with a registry of its live allocations, keyed by
// base address. It makes Owns exact for allocators that can only approximate it, lets
// Validate detect bookkeeping drift, and reports every unreleased allocation through
// its logger at Destroy time.
//
// Tracked inherits the sharing contract of the wrapped allocator at its strictest: the
// registry itself is not synchronized, so a Tracked instance must be confined to one
// owner at a time.
type Tracked struct {
	inner  Allocator
	logger *slog.Logger
	live   *swiss.Map[uintptr, int]
}

var _ Allocator = &Tracked{}

// NewTracked wraps inner with allocation tracking. If logger is nil, slog.Default()
// is used.
func NewTracked(inner Allocator, logger *slog.Logger) *Tracked {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracked{
		inner:  inner,
		logger: logger,
		live:   swiss.NewMap[uintptr, int](42),
	}
}

// Allocate delegates to the wrapped allocator and registers the result.
func (t *Tracked) Allocate(size int) block.Block {
	b := t.inner.Allocate(size)
	if !b.IsNull() {
		t.live.Put(b.BaseAddress(), b.Size())
	}
	return b
}

// Owns returns whether b is registered as one of this allocator's live allocations.
func (t *Tracked) Owns(b *block.Block) bool {
	if b.IsNull() {
		return false
	}
	size, ok := t.live.Get(b.BaseAddress())
	return ok && size == b.Size()
}

// Deallocate unregisters b and delegates to the wrapped allocator. Panics if b is
// non-null but not registered, before the wrapped allocator is consulted.
func (t *Tracked) Deallocate(b *block.Block) {
	if b.IsNull() {
		return
	}
	if !t.Owns(b) {
		panic("attempting to deallocate a block this tracked allocator did not allocate")
	}

	t.live.Delete(b.BaseAddress())
	t.inner.Deallocate(b)
}

// LiveCount returns the number of allocations that have not yet been deallocated.
func (t *Tracked) LiveCount() int {
	return t.live.Count()
}

// Validate cross-checks the registry against the wrapped allocator: every registered
// allocation must still be claimed by the wrapped allocator's Owns. A registered
// allocation that the wrapped allocator disowns means a block was freed behind this
// tracker's back.
func (t *Tracked) Validate() error {
	var err error
	t.live.Iter(func(addr uintptr, size int) bool {
		// A read-only block view over the registered range; it is never
		// deallocated and does not leave this call.
		view := block.FromBytes(unsafe.Slice((*byte)(unsafe.Pointer(addr)), size))
		if !t.inner.Owns(&view) {
			err = errors.Errorf("the registered allocation at %#x (%d bytes) is no longer owned by the wrapped allocator", addr, size)
			return true
		}
		return false
	})
	return err
}

// Destroy logs every unreleased allocation and returns an error if any existed. The
// registry is cleared either way; the wrapped allocator is left to reclaim the leaked
// memory however it can.
func (t *Tracked) Destroy() error {
	leaked := t.live.Count()
	if leaked == 0 {
		return nil
	}

	t.live.Iter(func(addr uintptr, size int) bool {
		t.logger.LogAttrs(context.Background(), slog.LevelError,
			"[UNRELEASED MEMORY] unfreed allocation",
			slog.Uint64("baseAddress", uint64(addr)),
			slog.Int("size", size),
		)
		return false
	})

	t.live = swiss.NewMap[uintptr, int](42)
	return errors.Errorf("%d allocations were not freed before the destruction of this allocator", leaked)
}

// AddStatistics delegates to the wrapped allocator when it reports statistics.
func (t *Tracked) AddStatistics(stats *memutils.Statistics) {
	if reporter, ok := t.inner.(StatisticsReporter); ok {
		reporter.AddStatistics(stats)
	}
}
