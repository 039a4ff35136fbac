package location

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBeginFailsWhenNotInitialized(t *testing.T) {
	it := New(4096, 0, 10)
	_, ok, err := it.Begin()
	require.Error(t, err)
	require.False(t, ok)
}

func TestIteratesFourReplicasOverSynthesizedGeometry(t *testing.T) {
	const blockSize = uint64(4096)
	const vSliceCount = uint64(30) // post-adjustment, two reserved slices already subtracted
	sliceSize := ReservedPairsBlocks(blockSize)

	it := New(blockSize, sliceSize, vSliceCount)
	offsets, err := it.All()
	require.NoError(t, err)

	want := []uint64{
		0,
		blockSize,
		(vSliceCount + 1) * sliceSize,
		(vSliceCount+1)*sliceSize + blockSize,
	}
	require.Equal(t, want, offsets)
}

// ReservedPairsBlocks mirrors the synthesized slice_size = kReservedPairs *
// block_size used when a device has no real thin-provisioning support.
func ReservedPairsBlocks(blockSize uint64) uint64 {
	return 2 * blockSize
}
