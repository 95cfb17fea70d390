//go:build unix

package allocator

import "golang.org/x/sys/unix"

// allocateRaw obtains size bytes of anonymous mapped memory. Mappings are
// page-aligned, which more than satisfies memutils.MaxAlign. Returns nil on failure.
func (h *Heap) allocateRaw(size int) []byte {
	data, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil
	}
	return data
}

// freeRaw unmaps a slice previously returned by allocateRaw. Failure degrades to a
// leak.
func (h *Heap) freeRaw(data []byte) {
	_ = unix.Munmap(data)
}
