package block_test

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/pbackus/allocator-demo/block"
)

func TestNullBlock(t *testing.T) {
	var b block.Block
	require.True(t, b.IsNull())
	require.Equal(t, 0, b.Size())
	require.Equal(t, uintptr(0), b.BaseAddress())

	empty := block.FromBytes(nil)
	require.True(t, empty.IsNull())
	empty = block.FromBytes([]byte{})
	require.True(t, empty.IsNull())
}

func TestFromBytes(t *testing.T) {
	data := make([]byte, 64)
	b := block.FromBytes(data)
	require.False(t, b.IsNull())
	require.Equal(t, 64, b.Size())
	require.NotEqual(t, uintptr(0), b.BaseAddress())
}

func TestTakeMovesOwnership(t *testing.T) {
	b := block.FromBytes(make([]byte, 32))
	moved := b.Take()

	require.True(t, b.IsNull())
	require.False(t, moved.IsNull())
	require.Equal(t, 32, moved.Size())

	// A second take from the drained source yields nothing.
	again := b.Take()
	require.True(t, again.IsNull())
}

func TestTakeBytes(t *testing.T) {
	data := make([]byte, 16)
	data[3] = 0xAB
	b := block.FromBytes(data)

	taken := b.TakeBytes()
	require.True(t, b.IsNull())
	require.Len(t, taken, 16)
	require.Equal(t, byte(0xAB), taken[3])
}

func TestBorrowExposesBytes(t *testing.T) {
	data := make([]byte, 16)
	b := block.FromBytes(data)

	called := false
	err := b.Borrow(func(bytes []byte) error {
		called = true
		require.Len(t, bytes, 16)
		bytes[0] = 0xFF
		return nil
	})
	require.NoError(t, err)
	require.True(t, called)

	// The handle regains its bytes, mutations included.
	require.False(t, b.IsNull())
	require.Equal(t, byte(0xFF), b.TakeBytes()[0])
}

func TestBorrowHandleIsNullDuringCall(t *testing.T) {
	b := block.FromBytes(make([]byte, 16))

	err := b.Borrow(func(bytes []byte) error {
		require.True(t, b.IsNull())

		// A reentrant borrow observes a null handle instead of aliasing the
		// live bytes.
		return b.Borrow(func(inner []byte) error {
			require.Empty(t, inner)
			return nil
		})
	})
	require.NoError(t, err)
	require.False(t, b.IsNull())
	require.Equal(t, 16, b.Size())
}

func TestBorrowRestoresOnError(t *testing.T) {
	b := block.FromBytes(make([]byte, 16))

	boom := errors.New("callback failed")
	err := b.Borrow(func(bytes []byte) error {
		return boom
	})
	require.ErrorIs(t, err, boom)
	require.False(t, b.IsNull())
}

func TestBorrowRestoresOnPanic(t *testing.T) {
	b := block.FromBytes(make([]byte, 16))

	require.Panics(t, func() {
		_ = b.Borrow(func(bytes []byte) error {
			panic("callback exploded")
		})
	})
	require.False(t, b.IsNull())
	require.Equal(t, 16, b.Size())
}

func TestBorrowNullBlock(t *testing.T) {
	var b block.Block
	err := b.Borrow(func(bytes []byte) error {
		require.Empty(t, bytes)
		return nil
	})
	require.NoError(t, err)
	require.True(t, b.IsNull())
}

func TestIntoUninitialized(t *testing.T) {
	b := block.FromBytes(make([]byte, 48))
	region := b.IntoUninitialized()

	require.True(t, b.IsNull())
	require.False(t, region.IsNull())
	require.Equal(t, 48, region.Size())
}
