package memutils_test

import (
	"testing"

	cerrors "github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"

	"github.com/pbackus/allocator-demo/memutils"
)

func TestAlignUp(t *testing.T) {
	require.Equal(t, 0, memutils.AlignUp(0, 16))
	require.Equal(t, 16, memutils.AlignUp(1, 16))
	require.Equal(t, 16, memutils.AlignUp(16, 16))
	require.Equal(t, 32, memutils.AlignUp(17, 16))
	require.Equal(t, 8, memutils.AlignUp(5, 8))
}

func TestAlignDown(t *testing.T) {
	require.Equal(t, 0, memutils.AlignDown(0, 16))
	require.Equal(t, 0, memutils.AlignDown(15, 16))
	require.Equal(t, 16, memutils.AlignDown(16, 16))
	require.Equal(t, 16, memutils.AlignDown(31, 16))
}

func TestCheckPow2(t *testing.T) {
	require.NoError(t, memutils.CheckPow2(uint(16), "alignment"))
	require.NoError(t, memutils.CheckPow2(uint(1), "alignment"))

	err := memutils.CheckPow2(uint(24), "alignment")
	require.Error(t, err)
	require.True(t, cerrors.Is(err, memutils.PowerOfTwoError))
}

func TestIsAligned(t *testing.T) {
	require.True(t, memutils.IsAligned(0, 16))
	require.True(t, memutils.IsAligned(32, 16))
	require.False(t, memutils.IsAligned(33, 16))
	require.True(t, memutils.IsAligned(33, 1))
}

func TestStatistics(t *testing.T) {
	var stats memutils.Statistics
	stats.Clear()

	stats.BlockCount = 1
	stats.BlockBytes = 1024
	stats.AddAllocation(100)
	stats.AddAllocation(50)
	require.Equal(t, memutils.Statistics{
		BlockCount:      1,
		BlockBytes:      1024,
		AllocationCount: 2,
		AllocationBytes: 150,
	}, stats)

	stats.RemoveAllocation(100)
	require.Equal(t, memutils.Statistics{
		BlockCount:      1,
		BlockBytes:      1024,
		AllocationCount: 1,
		AllocationBytes: 50,
	}, stats)

	var sum memutils.Statistics
	sum.Clear()
	sum.AddStatistics(&stats)
	sum.AddStatistics(&stats)
	require.Equal(t, memutils.Statistics{
		BlockCount:      2,
		BlockBytes:      2048,
		AllocationCount: 2,
		AllocationBytes: 100,
	}, sum)
}
