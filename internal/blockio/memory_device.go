package blockio

import (
	"sync"

	svmgrerrors "github.com/deploymenttheory/go-svmgr/internal/errors"
	"github.com/deploymenttheory/go-svmgr/internal/interfaces"
)

// MemoryDevice is an in-memory interfaces.BlockIO backed by a single
// byte slice, used by tests in place of a real file or block device.
type MemoryDevice struct {
	mu         sync.Mutex
	blockSize  uint32
	blockCount uint64
	data       []byte
}

// NewMemoryDevice allocates a zero-filled in-memory device of the given
// geometry.
func NewMemoryDevice(blockSize uint32, blockCount uint64) *MemoryDevice {
	return &MemoryDevice{
		blockSize:  blockSize,
		blockCount: blockCount,
		data:       make([]byte, uint64(blockSize)*blockCount),
	}
}

func (d *MemoryDevice) Info() (interfaces.BlockInfo, error) {
	return interfaces.BlockInfo{BlockSize: d.blockSize, BlockCount: d.blockCount}, nil
}

func (d *MemoryDevice) ReadBlock(offset uint64, buf []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if offset+uint64(len(buf)) > uint64(len(d.data)) {
		return svmgrerrors.New(svmgrerrors.IO, "blockio: read past end of device")
	}
	copy(buf, d.data[offset:offset+uint64(len(buf))])
	return nil
}

func (d *MemoryDevice) WriteBlock(offset uint64, data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if offset+uint64(len(data)) > uint64(len(d.data)) {
		return svmgrerrors.New(svmgrerrors.IO, "blockio: write past end of device")
	}
	copy(d.data[offset:offset+uint64(len(data))], data)
	return nil
}

func (d *MemoryDevice) Close() error { return nil }

// RawBlockAt returns a copy of the block at offset, for test assertions
// against on-disk contents without going through the Manager.
func (d *MemoryDevice) RawBlockAt(offset uint64) []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]byte, d.blockSize)
	copy(out, d.data[offset:offset+uint64(d.blockSize)])
	return out
}

// Corrupt overwrites len(filler) bytes at offset with filler, for
// tests simulating a damaged or zeroed replica.
func (d *MemoryDevice) Corrupt(offset uint64, filler []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	copy(d.data[offset:offset+uint64(len(filler))], filler)
}
