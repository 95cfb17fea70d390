// Package allocator provides the module's allocator implementations: a manual heap
// backed by anonymous memory mappings, a garbage-collected heap, and a fixed-capacity
// bump region, along with a leak-tracking decorator that can wrap any of them.
//
// All allocators share the same failure policy: Allocate never panics, reporting
// failure with a null block instead, while Deallocate of a non-null block the
// allocator does not own is a programmer error and panics.
package allocator

import (
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/pkg/errors"

	"github.com/pbackus/allocator-demo/block"
	"github.com/pbackus/allocator-demo/memutils"
)

// ErrAllocationFailed indicates that an allocator returned a null block for a request
// that a larger or less fragmented allocator could have satisfied.
var ErrAllocationFailed error = errors.New("allocator returned a null block")

// Allocator is the capability shared by every allocation source in this module.
type Allocator interface {
	// Allocate returns a block owning at least size bytes, aligned to
	// memutils.MaxAlign. It returns a null block if size is not positive, exceeds
	// memutils.MaxAlignedSize, or the underlying source is exhausted. It never
	// panics.
	Allocate(size int) block.Block

	// Owns returns whether b's bytes were produced by this allocator's Allocate and
	// have not yet been deallocated. A null block is never owned.
	Owns(b *block.Block) bool

	// Deallocate consumes b and returns its bytes to the allocator, leaving b null.
	// Deallocating a null block is a no-op. Deallocating a non-null block this
	// allocator does not own panics.
	Deallocate(b *block.Block)
}

// StatisticsReporter is implemented by allocators that track their allocation
// activity.
type StatisticsReporter interface {
	AddStatistics(stats *memutils.Statistics)
}

// BuildStatsString renders an allocator's current statistics as a JSON object, for
// diagnostic dumps.
func BuildStatsString(reporter StatisticsReporter) (string, error) {
	writer := jwriter.NewWriter()
	objState := writer.Object()

	var stats memutils.Statistics
	stats.Clear()
	reporter.AddStatistics(&stats)
	stats.PrintJson(objState)

	objState.End()
	if writer.Error() != nil {
		return "", writer.Error()
	}
	return string(writer.Bytes()), nil
}
