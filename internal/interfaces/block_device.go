// Package interfaces defines the small capability surfaces the superblock
// manager consumes from its environment: BlockIO (the backing block
// device) and SliceDevice (optional thin-provisioning geometry). Both are
// modeled as narrow interfaces dispatched only at the I/O leaves, the same
// shape as the reference corpus's BlockDeviceReader/Writer — generalized
// here to the block-oriented read/write/info contract spec.md §6 requires,
// with the APFS-specific vendor/serial/cache surface dropped since the
// Manager never needs it.
package interfaces

// BlockInfo describes the geometry of a backing block device.
type BlockInfo struct {
	// BlockSize is the logical block size in bytes.
	BlockSize uint32

	// BlockCount is the total number of blocks on the device.
	BlockCount uint64
}

// BlockIO is the capability the Manager consumes from a backing block
// device: spec.md §2 item 1, §6.
type BlockIO interface {
	// Info returns the device's block geometry.
	Info() (BlockInfo, error)

	// ReadBlock reads exactly len(buf) bytes starting at the given byte
	// offset. A short read is reported as an error.
	ReadBlock(offset uint64, buf []byte) error

	// WriteBlock writes exactly len(data) bytes starting at the given
	// byte offset. A short write is reported as an error.
	WriteBlock(offset uint64, data []byte) error

	// Close releases any resources held by the device.
	Close() error
}

// FVMInfo describes thin-provisioning geometry: spec.md §2 item 2.
type FVMInfo struct {
	SliceSize   uint64
	VSliceCount uint64
}

// VSliceRange describes the allocation state of one or more contiguous
// virtual slices, mirroring the original's query_response_t.
type VSliceRange struct {
	Allocated bool
	Count     uint64
}

// SliceDevice is the capability the Manager consumes to query and extend
// thin-provisioning geometry, when the backing device supports it. A
// device that isn't thin-provisioned reports an error of Kind
// NotSupported (internal/errors) from Info.
type SliceDevice interface {
	// Info returns slice geometry, or a not-supported error if the
	// device isn't thin-provisioned.
	Info() (FVMInfo, error)

	// QuerySlice reports the allocation state of the virtual slices
	// starting at idx.
	QuerySlice(idx uint64, count uint64) ([]VSliceRange, error)

	// Extend allocates n additional virtual slices starting at idx.
	Extend(idx uint64, n uint64) error
}
