package slicedevice

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuerySliceReportsAllocatedByDefault(t *testing.T) {
	d := New(8192, 10)
	ranges, err := d.QuerySlice(9, 1)
	require.NoError(t, err)
	require.Len(t, ranges, 1)
	assert.True(t, ranges[0].Allocated)
}

func TestDeallocateThenExtend(t *testing.T) {
	d := New(8192, 10)
	d.Deallocate(9)

	ranges, err := d.QuerySlice(9, 1)
	require.NoError(t, err)
	assert.False(t, ranges[0].Allocated)

	require.NoError(t, d.Extend(9, 1))
	ranges, err = d.QuerySlice(9, 1)
	require.NoError(t, err)
	assert.True(t, ranges[0].Allocated)
}

func TestInfoReportsGeometry(t *testing.T) {
	d := New(8192, 10)
	info, err := d.Info()
	require.NoError(t, err)
	assert.EqualValues(t, 8192, info.SliceSize)
	assert.EqualValues(t, 10, info.VSliceCount)
}
