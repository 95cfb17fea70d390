// Package block provides the ownership-tagged memory handles that the rest of this
// module is built around. A Block represents unique ownership of a range of allocated
// bytes, and an UninitializedBlock represents unique ownership of a range of bytes that
// holds no live value. Both types are move-only: operations that transfer ownership
// null out their source, so a stale handle is observably empty rather than a second
// alias for live memory.
//
// Raw byte slices only enter and leave this package through FromBytes, TakeBytes, and
// Borrow. Those three operations form the module's unsafe boundary: every caller is an
// allocator or the placement engine, and each call site is responsible for upholding
// the invariant that at most one handle refers to a byte range at a time.
package block

import "unsafe"

// Block is a handle for a range of bytes produced by an allocator's Allocate method.
// A null Block owns nothing. A non-null Block owns bytes that were allocated and have
// not yet been deallocated, and it is the only handle that refers to them.
//
// The zero value is a valid null Block.
type Block struct {
	memory []byte
}

// FromBytes creates a Block that takes ownership of the provided bytes.
//
// This is an unsafe operation: it is only correct when data was just produced by an
// allocator and no other handle or slice header referring to it escapes the caller.
func FromBytes(data []byte) Block {
	if len(data) == 0 {
		return Block{}
	}
	return Block{memory: data}
}

// IsNull returns true if this Block owns no memory.
func (b *Block) IsNull() bool {
	return len(b.memory) == 0
}

// Size returns the number of bytes this Block owns, or 0 for a null Block.
func (b *Block) Size() int {
	return len(b.memory)
}

// BaseAddress returns the address of the first owned byte, or 0 for a null Block.
// Allocators use it for ownership range checks; it must not be dereferenced.
func (b *Block) BaseAddress() uintptr {
	if b.IsNull() {
		return 0
	}
	return uintptr(unsafe.Pointer(&b.memory[0]))
}

// Take moves ownership out of this Block. The receiver becomes null and the returned
// Block owns whatever the receiver owned.
func (b *Block) Take() Block {
	taken := Block{memory: b.memory}
	b.memory = nil
	return taken
}

// TakeBytes consumes this Block and returns the raw bytes it owned. The receiver
// becomes null.
//
// This is an unsafe operation: the returned slice is no longer tracked by any handle,
// and the caller takes over responsibility for the single-owner invariant. It exists
// for allocators, which need the original slice back in order to return it to the
// underlying allocation primitive.
func (b *Block) TakeBytes() []byte {
	data := b.memory
	b.memory = nil
	return data
}

// Borrow grants callback temporary access to this Block's bytes. For the duration of
// the call the Block itself is null: the byte slice is swapped out before the callback
// runs and swapped back in afterward, on panic as well as on normal return. A
// reentrant Borrow of the same Block during the callback therefore observes a null
// handle instead of aliasing the live bytes.
//
// The slice passed to callback must not be stored anywhere that outlives the call.
// Borrow on a null Block invokes the callback with an empty slice.
func (b *Block) Borrow(callback func(bytes []byte) error) error {
	data := b.memory
	b.memory = nil
	defer func() {
		b.memory = data
	}()

	return callback(data)
}

// IntoUninitialized consumes this Block and reinterprets its bytes as an
// UninitializedBlock, ready for placement construction. The receiver becomes null.
//
// This is only correct when the bytes hold no live value: either the Block was just
// allocated, or the value previously constructed in it has been destroyed.
func (b *Block) IntoUninitialized() UninitializedBlock {
	return UninitializedBlock{memory: b.TakeBytes()}
}
