// Package slicedevice implements spec.md §4 SliceDevice capability: the
// thin-provisioning geometry query/extend interface a real volume
// manager queries over an ioctl transport (spec.md §6). This in-memory
// implementation backs tests exercising the has_fvm=true path of
// Volume.Init without a real FVM driver.
package slicedevice

import (
	"sync"

	"github.com/deploymenttheory/go-svmgr/internal/interfaces"
)

// MemoryDevice is an in-memory interfaces.SliceDevice with a fixed slice
// size and a per-slice allocated bitmap.
type MemoryDevice struct {
	mu          sync.Mutex
	sliceSize   uint64
	vSliceCount uint64
	allocated   []bool
}

// New builds a MemoryDevice with vSliceCount slices of sliceSize bytes,
// all initially allocated except those explicitly left unallocated by
// the caller via Deallocate.
func New(sliceSize, vSliceCount uint64) *MemoryDevice {
	allocated := make([]bool, vSliceCount)
	for i := range allocated {
		allocated[i] = true
	}
	return &MemoryDevice{sliceSize: sliceSize, vSliceCount: vSliceCount, allocated: allocated}
}

// Deallocate marks a slice as not-yet-allocated, for tests exercising
// Volume.Init's extend-on-demand path for the last reserved slice.
func (d *MemoryDevice) Deallocate(idx uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if idx < uint64(len(d.allocated)) {
		d.allocated[idx] = false
	}
}

func (d *MemoryDevice) Info() (interfaces.FVMInfo, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return interfaces.FVMInfo{SliceSize: d.sliceSize, VSliceCount: d.vSliceCount}, nil
}

func (d *MemoryDevice) QuerySlice(idx uint64, count uint64) ([]interfaces.VSliceRange, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	ranges := make([]interfaces.VSliceRange, 0, count)
	for i := uint64(0); i < count && idx+i < uint64(len(d.allocated)); i++ {
		ranges = append(ranges, interfaces.VSliceRange{Allocated: d.allocated[idx+i], Count: 1})
	}
	return ranges, nil
}

func (d *MemoryDevice) Extend(idx uint64, n uint64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i := uint64(0); i < n && idx+i < uint64(len(d.allocated)); i++ {
		d.allocated[idx+i] = true
	}
	return nil
}
