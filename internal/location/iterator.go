// Package location implements spec.md §4.1 LocationIterator: enumeration
// of the redundant on-disk byte offsets at which the header block is
// stored, across the first and last reserved slices of the backing
// device (or its synthesized thin-provisioning geometry).
package location

import (
	"math"

	svmgrerrors "github.com/deploymenttheory/go-svmgr/internal/errors"
)

// NoLocation is the sentinel "no current location" iterator state,
// spec.md §3 offset = UINT64_MAX.
const NoLocation = math.MaxUint64

// Iterator walks the redundant header-block offsets. It is stateful and
// single-pass per Begin() call, mirroring the original's Begin/Next
// coupling to a single embedded cursor rather than returning a slice —
// callers that want every offset up front can drain it with All.
type Iterator struct {
	blockSize   uint64
	sliceSize   uint64
	vSliceCount uint64

	offset uint64
}

// New constructs a LocationIterator over the given geometry. vSliceCount
// must already have the two reserved slices subtracted from it (spec.md
// §4.1 note); sliceSize is the unadjusted slice size.
func New(blockSize, sliceSize, vSliceCount uint64) *Iterator {
	return &Iterator{blockSize: blockSize, sliceSize: sliceSize, vSliceCount: vSliceCount, offset: NoLocation}
}

// Begin resets the cursor to the first location and reports it.
func (it *Iterator) Begin() (offset uint64, ok bool, err error) {
	if it.sliceSize == 0 {
		return 0, false, svmgrerrors.New(svmgrerrors.Internal, "location: iterator not initialized")
	}
	it.offset = 0
	return it.offset, true, nil
}

// Next advances the cursor and reports the next location, or ok=false
// once every replica has been visited.
func (it *Iterator) Next() (offset uint64, ok bool) {
	it.offset += it.blockSize
	sliceOffset := it.offset % it.sliceSize

	// Still inside the current reserved slice.
	if sliceOffset != 0 {
		return it.offset, true
	}

	// Just finished the first reserved slice: jump to the last one.
	if it.offset <= it.sliceSize {
		it.offset = (it.vSliceCount + 1) * it.sliceSize
		return it.offset, true
	}

	// Finished the last reserved slice.
	it.offset = NoLocation
	return 0, false
}

// All drains every location from a fresh Begin()/Next() pass.
func (it *Iterator) All() ([]uint64, error) {
	var offsets []uint64
	offset, ok, err := it.Begin()
	if err != nil {
		return nil, err
	}
	for ok {
		offsets = append(offsets, offset)
		offset, ok = it.Next()
	}
	return offsets, nil
}
