//go:build !unix

package allocator

import (
	"unsafe"

	"github.com/pbackus/allocator-demo/memutils"
)

// allocateRaw falls back to garbage-collected storage on platforms without anonymous
// mappings. The buffer is over-allocated and re-sliced so its first byte lands on a
// memutils.MaxAlign boundary.
func (h *Heap) allocateRaw(size int) []byte {
	raw := make([]byte, size+int(memutils.MaxAlign))
	addr := uintptr(unsafe.Pointer(&raw[0]))
	offset := memutils.AlignUp(int(addr), memutils.MaxAlign) - int(addr)
	return raw[offset : offset+size : offset+size]
}

// freeRaw has nothing to do on garbage-collected storage; dropping the last reference
// is the free.
func (h *Heap) freeRaw(data []byte) {
}
