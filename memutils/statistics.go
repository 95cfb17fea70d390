package memutils

import (
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
)

// Statistics describes the allocation activity of a single allocator: how many backing
// blocks of memory it controls and how many live allocations have been carved from them.
type Statistics struct {
	BlockCount      int
	AllocationCount int
	BlockBytes      int
	AllocationBytes int
}

func (s *Statistics) Clear() {
	s.BlockCount = 0
	s.AllocationCount = 0
	s.BlockBytes = 0
	s.AllocationBytes = 0
}

func (s *Statistics) AddStatistics(other *Statistics) {
	s.BlockCount += other.BlockCount
	s.AllocationCount += other.AllocationCount
	s.BlockBytes += other.BlockBytes
	s.AllocationBytes += other.AllocationBytes
}

// AddAllocation records a successful allocation of size bytes.
func (s *Statistics) AddAllocation(size int) {
	s.AllocationCount++
	s.AllocationBytes += size
}

// RemoveAllocation reverses AddAllocation when size bytes are returned to the allocator.
func (s *Statistics) RemoveAllocation(size int) {
	s.AllocationCount--
	s.AllocationBytes -= size
}

// PrintJson populates a json object with this object's statistics
func (s *Statistics) PrintJson(objState jwriter.ObjectState) {
	objState.Name("BlockCount").Int(s.BlockCount)
	objState.Name("BlockBytes").Int(s.BlockBytes)
	objState.Name("AllocationCount").Int(s.AllocationCount)
	objState.Name("AllocationBytes").Int(s.AllocationBytes)
}
