package block

import (
	"unsafe"

	"github.com/pbackus/allocator-demo/memutils"
)

// UninitializedBlock is a handle for a range of bytes that holds no live value. It is
// kept distinct from Block so that "raw allocated storage" and "storage ready for
// placement construction" cannot be confused: an allocator hands out Blocks, and only
// an explicit conversion produces the uninitialized view that the placement engine
// will consume.
//
// Like Block, UninitializedBlock is move-only and its zero value is null.
type UninitializedBlock struct {
	memory []byte
}

// UninitializedFromBytes creates an UninitializedBlock that takes ownership of the
// provided bytes.
//
// This is an unsafe operation: it is only correct when no live value resides in data
// and no other handle refers to it.
func UninitializedFromBytes(data []byte) UninitializedBlock {
	if len(data) == 0 {
		return UninitializedBlock{}
	}
	return UninitializedBlock{memory: data}
}

// IsNull returns true if this UninitializedBlock owns no memory.
func (ub *UninitializedBlock) IsNull() bool {
	return len(ub.memory) == 0
}

// Size returns the number of bytes this UninitializedBlock owns, or 0 for a null one.
func (ub *UninitializedBlock) Size() int {
	return len(ub.memory)
}

// IsAlignedFor returns whether the first owned byte sits on an alignment-byte
// boundary. alignment must be a power of two. A null UninitializedBlock is not
// aligned for anything.
func (ub *UninitializedBlock) IsAlignedFor(alignment uint) bool {
	memutils.DebugCheckPow2(alignment, "alignment")
	if ub.IsNull() {
		return false
	}
	return memutils.IsAligned(uintptr(unsafe.Pointer(&ub.memory[0])), alignment)
}

// Take moves ownership out of this UninitializedBlock, leaving the receiver null.
func (ub *UninitializedBlock) Take() UninitializedBlock {
	taken := UninitializedBlock{memory: ub.memory}
	ub.memory = nil
	return taken
}

// TakeBytes consumes this UninitializedBlock and returns the raw bytes it owned. The
// receiver becomes null.
//
// This is an unsafe operation with the same contract as Block.TakeBytes. The placement
// engine uses it to construct a value in place after its size and alignment checks
// have passed.
func (ub *UninitializedBlock) TakeBytes() []byte {
	data := ub.memory
	ub.memory = nil
	return data
}

// IntoBlock consumes this UninitializedBlock and reinterprets its bytes as a Block,
// so that storage acquired for a construction that never happened can be returned to
// its allocator. The receiver becomes null.
func (ub *UninitializedBlock) IntoBlock() Block {
	return Block{memory: ub.TakeBytes()}
}
