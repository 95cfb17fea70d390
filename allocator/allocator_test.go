package allocator_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pbackus/allocator-demo/allocator"
	"github.com/pbackus/allocator-demo/block"
	"github.com/pbackus/allocator-demo/memutils"
)

func eachAllocator(t *testing.T, test func(t *testing.T, alloc allocator.Allocator)) {
	cases := map[string]func() allocator.Allocator{
		"Heap":        func() allocator.Allocator { return allocator.NewHeap() },
		"ManagedHeap": func() allocator.Allocator { return allocator.NewManagedHeap() },
		"BumpRegion":  func() allocator.Allocator { return allocator.NewBumpRegion(4096) },
		"Tracked":     func() allocator.Allocator { return allocator.NewTracked(allocator.NewManagedHeap(), nil) },
	}

	for name, makeAllocator := range cases {
		t.Run(name, func(t *testing.T) {
			test(t, makeAllocator())
		})
	}
}

func TestAllocateZeroFails(t *testing.T) {
	eachAllocator(t, func(t *testing.T, alloc allocator.Allocator) {
		b := alloc.Allocate(0)
		require.True(t, b.IsNull())

		b = alloc.Allocate(-1)
		require.True(t, b.IsNull())
	})
}

func TestAllocateOversizedFails(t *testing.T) {
	eachAllocator(t, func(t *testing.T, alloc allocator.Allocator) {
		b := alloc.Allocate(math.MaxInt)
		require.True(t, b.IsNull())
	})
}

func TestAllocateOwnsDeallocate(t *testing.T) {
	eachAllocator(t, func(t *testing.T, alloc allocator.Allocator) {
		b := alloc.Allocate(100)
		require.False(t, b.IsNull())
		require.GreaterOrEqual(t, b.Size(), 100)
		require.True(t, alloc.Owns(&b))

		alloc.Deallocate(&b)
		require.True(t, b.IsNull())
		require.False(t, alloc.Owns(&b))
	})
}

func TestAllocateIsMaxAligned(t *testing.T) {
	eachAllocator(t, func(t *testing.T, alloc allocator.Allocator) {
		b := alloc.Allocate(24)
		require.False(t, b.IsNull())
		require.True(t, memutils.IsAligned(b.BaseAddress(), memutils.MaxAlign))

		alloc.Deallocate(&b)
	})
}

func TestAllocateRoundsSizeUpToMaxAlign(t *testing.T) {
	eachAllocator(t, func(t *testing.T, alloc allocator.Allocator) {
		b := alloc.Allocate(24)
		require.False(t, b.IsNull())
		require.Equal(t, memutils.AlignUp(24, memutils.MaxAlign), b.Size())

		exact := alloc.Allocate(int(memutils.MaxAlign))
		require.False(t, exact.IsNull())
		require.Equal(t, int(memutils.MaxAlign), exact.Size())

		alloc.Deallocate(&exact)
		alloc.Deallocate(&b)
	})
}

func TestDeallocateNullIsNoOp(t *testing.T) {
	eachAllocator(t, func(t *testing.T, alloc allocator.Allocator) {
		var b block.Block
		require.NotPanics(t, func() {
			alloc.Deallocate(&b)
		})
	})
}

func TestStatisticsTrackLiveAllocations(t *testing.T) {
	eachAllocator(t, func(t *testing.T, alloc allocator.Allocator) {
		reporter, ok := alloc.(allocator.StatisticsReporter)
		require.True(t, ok)

		var before memutils.Statistics
		before.Clear()
		reporter.AddStatistics(&before)
		require.Equal(t, 0, before.AllocationCount)

		b := alloc.Allocate(64)
		require.False(t, b.IsNull())

		var during memutils.Statistics
		during.Clear()
		reporter.AddStatistics(&during)
		require.Equal(t, 1, during.AllocationCount)
		require.GreaterOrEqual(t, during.AllocationBytes, 64)

		alloc.Deallocate(&b)

		var after memutils.Statistics
		after.Clear()
		reporter.AddStatistics(&after)
		require.Equal(t, before, after)
	})
}

func TestBuildStatsString(t *testing.T) {
	heap := allocator.NewHeap()
	b := heap.Allocate(64)
	require.False(t, b.IsNull())

	stats, err := allocator.BuildStatsString(heap)
	require.NoError(t, err)
	require.Equal(t, `{"BlockCount":1,"BlockBytes":64,"AllocationCount":1,"AllocationBytes":64}`, stats)

	heap.Deallocate(&b)

	stats, err = allocator.BuildStatsString(heap)
	require.NoError(t, err)
	require.Equal(t, `{"BlockCount":0,"BlockBytes":0,"AllocationCount":0,"AllocationBytes":0}`, stats)
}
