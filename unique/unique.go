// Package unique provides an owning single-value smart pointer over this module's
// allocators. A Unique couples an allocator with one block of storage and guarantees
// that the value constructed in that storage is disposed exactly once and the storage
// deallocated exactly once, no matter how construction and reconstruction interleave.
package unique

import (
	"github.com/pbackus/allocator-demo/allocator"
	"github.com/pbackus/allocator-demo/block"
	"github.com/pbackus/allocator-demo/memutils"
	"github.com/pbackus/allocator-demo/placement"
)

// Unique owns at most one value of type T, placement-constructed inside storage
// obtained from a fixed allocator. The zero value is unusable; create instances with
// New or MakeUnique.
//
// A Unique is either empty or occupied. When occupied, its block holds a live T at
// offset 0, constructed by the placement engine. Unique is move-only in the same
// sense as block.Block: it must not be copied while occupied, since both copies
// would believe they own the value.
type Unique[T any] struct {
	alloc   allocator.Allocator
	storage block.Block
	value   *T
}

// New creates an empty Unique that will allocate from a.
func New[T any](a allocator.Allocator) Unique[T] {
	if a == nil {
		panic("a Unique requires an allocator")
	}
	return Unique[T]{alloc: a}
}

// MakeUnique allocates storage from a and constructs a T in it in one step, using
// ctor as Emplace does (nil means default initialization). On any failure the
// returned Unique is empty and the error identifies which step failed.
func MakeUnique[T any](a allocator.Allocator, ctor func(value *T) error) (Unique[T], error) {
	u := New[T](a)
	if err := u.Emplace(ctor); err != nil {
		return New[T](a), err
	}
	return u, nil
}

// IsEmpty returns true if this Unique holds no value.
func (u *Unique[T]) IsEmpty() bool {
	return u.value == nil
}

// Value returns a pointer to the contained value, through which it may be read and
// written. Panics if this Unique is empty.
func (u *Unique[T]) Value() *T {
	if u.value == nil {
		panic("attempting to access the value of an empty Unique")
	}
	return u.value
}

// Set overwrites the contained value with value. Panics if this Unique is empty;
// use Emplace to populate an empty Unique.
func (u *Unique[T]) Set(value T) {
	if u.value == nil {
		panic("attempting to set the value of an empty Unique")
	}
	*u.value = value
}

// Emplace constructs a new value in this Unique's storage, allocating the storage
// first if none is held. If a value is already present it is disposed in place and
// the storage reused without reallocating.
//
// Returns nil on success, allocator.ErrAllocationFailed if storage could not be
// acquired (the Unique stays empty), or an error marked
// placement.ErrConstructionFailed if ctor failed (the storage is released
// best-effort and the Unique is left empty).
func (u *Unique[T]) Emplace(ctor func(value *T) error) error {
	if u.alloc == nil {
		panic("attempting to emplace into a zero-value Unique")
	}

	if u.value != nil {
		placement.Dispose(u.value)
		u.value = nil
	}

	if u.storage.IsNull() {
		u.storage = u.alloc.Allocate(storageSize[T]())
		if u.storage.IsNull() {
			return allocator.ErrAllocationFailed
		}
	}

	var ptr *T
	var ctorErr error
	_ = u.storage.Borrow(func(bytes []byte) error {
		region := block.UninitializedFromBytes(bytes)
		ptr, ctorErr = placement.Emplace[T](&region, ctor)
		return nil
	})

	if ctorErr != nil {
		u.releaseStorage()
		return ctorErr
	}
	if ptr == nil {
		// The allocator produced storage the placement engine rejected, which makes
		// this an allocation failure from the caller's point of view.
		u.releaseStorage()
		return allocator.ErrAllocationFailed
	}

	u.value = ptr
	return nil
}

// DestroyValue disposes the contained value, if any, leaving the storage allocated
// for a later Emplace. Calling it on an empty Unique, or twice in a row, is a no-op;
// the value's teardown logic never runs twice.
func (u *Unique[T]) DestroyValue() {
	if u.value == nil {
		return
	}
	placement.Dispose(u.value)
	u.value = nil
}

// Destroy tears this Unique down: the contained value is disposed and the storage
// returned to the allocator. Deallocation failure degrades to a leak rather than a
// panic, so Destroy is safe on every teardown path. The Unique is empty afterward
// and may be reused with Emplace.
func (u *Unique[T]) Destroy() {
	u.DestroyValue()
	u.releaseStorage()
}

// releaseStorage returns the storage block to the allocator, swallowing any panic
// the deallocation raises. By the time storage is being released there is nowhere
// left to report a deallocation failure, so it degrades to a leak.
func (u *Unique[T]) releaseStorage() {
	if u.storage.IsNull() {
		return
	}

	defer func() {
		if recover() != nil {
			// The allocator refused the block; drop the handle and leak the bytes.
			u.storage = block.Block{}
		}
	}()
	u.alloc.Deallocate(&u.storage)
}

// storageSize returns the allocation size used for values of type T: the storage
// footprint rounded up to the platform alignment, with zero-size types padded to one
// byte so their storage still has an identity.
func storageSize[T any]() int {
	size := placement.SizeOf[T]()
	if size == 0 {
		size = 1
	}
	return memutils.AlignUp(size, memutils.MaxAlign)
}
