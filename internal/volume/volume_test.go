package volume

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/deploymenttheory/go-svmgr/internal/algorithms"
	"github.com/deploymenttheory/go-svmgr/internal/blockio"
	svmgrerrors "github.com/deploymenttheory/go-svmgr/internal/errors"
	"github.com/deploymenttheory/go-svmgr/internal/slicedevice"
)

const (
	testBlockSize  = uint32(4096)
	testBlockCount = uint64(64)
)

func newTestDevice() *blockio.MemoryDevice {
	return blockio.NewMemoryDevice(testBlockSize, testBlockCount)
}

func newTestVolume(dev *blockio.MemoryDevice) *Volume {
	return New(LibraryMode, dev, nil, zap.NewNop().Sugar())
}

func rootKeyOf(b byte) []byte {
	return bytes.Repeat([]byte{b}, 32)
}

// S1: create+open.
func TestCreateThenOpenSucceeds(t *testing.T) {
	dev := newTestDevice()
	k := rootKeyOf(0x01)

	require.NoError(t, newTestVolume(dev).Create(k))

	v2 := newTestVolume(dev)
	require.NoError(t, v2.Open(k, 0))
	assert.Len(t, v2.dataKey, 32)
	assert.Len(t, v2.dataIV, 16)
}

// S2: wrong-slot.
func TestOpenWrongSlotFailsAccessDenied(t *testing.T) {
	dev := newTestDevice()
	k := rootKeyOf(0x01)

	require.NoError(t, newTestVolume(dev).Create(k))

	err := newTestVolume(dev).Open(k, 1)
	assert.True(t, svmgrerrors.Is(err, svmgrerrors.AccessDenied), "open(k, 1) = %v, want access-denied", err)
}

// S3: enroll+revoke.
func TestEnrollThenRevoke(t *testing.T) {
	dev := newTestDevice()
	k := rootKeyOf(0x01)
	k2 := rootKeyOf(0x02)

	require.NoError(t, newTestVolume(dev).Create(k))

	opened := newTestVolume(dev)
	require.NoError(t, opened.Open(k, 0))
	require.NoError(t, opened.Enroll(k2, 5))

	require.NoError(t, newTestVolume(dev).Open(k2, 5), "open(k2, 5) after enroll")

	revoker := newTestVolume(dev)
	require.NoError(t, revoker.Open(k, 0), "open(k, 0) before revoke")
	require.NoError(t, revoker.Revoke(5))

	err := newTestVolume(dev).Open(k2, 5)
	assert.True(t, svmgrerrors.Is(err, svmgrerrors.AccessDenied), "open(k2, 5) after revoke = %v, want access-denied", err)

	assert.NoError(t, newTestVolume(dev).Open(k, 0), "open(k, 0) after revoking a different slot")
}

// S4: self-heal.
func TestOpenSelfHealsAZeroedReplica(t *testing.T) {
	dev := newTestDevice()
	k := rootKeyOf(0x01)

	require.NoError(t, newTestVolume(dev).Create(k))

	before := dev.RawBlockAt(0)
	dev.Corrupt(0, make([]byte, testBlockSize))

	require.NoError(t, newTestVolume(dev).Open(k, 0), "open after corrupting a replica")

	assert.Equal(t, before, dev.RawBlockAt(0), "corrupted replica was not restored to the original block image")
}

// S5: shred.
func TestShredDeniesEverySlot(t *testing.T) {
	dev := newTestDevice()
	k := rootKeyOf(0x01)

	require.NoError(t, newTestVolume(dev).Create(k))

	v := newTestVolume(dev)
	require.NoError(t, v.Open(k, 0))
	require.NoError(t, v.Shred())

	err := newTestVolume(dev).Open(k, 0)
	assert.True(t, svmgrerrors.Is(err, svmgrerrors.AccessDenied), "open(k, 0) after shred = %v, want access-denied", err)
}

// S6: format-reject.
func TestOpenUnformattedDeviceFailsAccessDenied(t *testing.T) {
	dev := newTestDevice()
	k := rootKeyOf(0x01)

	err := newTestVolume(dev).Open(k, 0)
	assert.True(t, svmgrerrors.Is(err, svmgrerrors.AccessDenied), "open of an unformatted device = %v, want access-denied", err)
}

func TestCreateThenOpenOverRealFVMGeometry(t *testing.T) {
	dev := blockio.NewMemoryDevice(testBlockSize, 32)
	slices := slicedevice.New(16384, 5)
	k := rootKeyOf(0x04)

	v := New(LibraryMode, dev, slices, zap.NewNop().Sugar())
	require.NoError(t, v.Create(k))
	assert.True(t, v.hasFVM, "expected has_fvm=true when a SliceDevice is present")

	v2 := New(LibraryMode, dev, slices, zap.NewNop().Sugar())
	assert.NoError(t, v2.Open(k, 0))
}

// bind_ciphers is a driver-mode-only operation: a driver-mode Volume
// opens an already-formatted device and hands its data key/IV to the
// out-of-scope bulk data-path cipher.
func TestDriverModeOpenThenBindCiphers(t *testing.T) {
	dev := newTestDevice()
	k := rootKeyOf(0x07)

	require.NoError(t, newTestVolume(dev).Create(k))

	v := New(DriverMode, dev, nil, zap.NewNop().Sugar())
	require.NoError(t, v.Open(k, 0))

	info, err := v.GetInfo()
	require.NoError(t, err)
	assert.Equal(t, algorithms.AES256XTSSHA256, info.Version)

	enc, dec, err := v.BindCiphers()
	require.NoError(t, err)
	assert.Equal(t, enc, dec)
	assert.Equal(t, "AES-256-XTS", enc.CipherID)
	assert.Len(t, enc.Key, enc.Cipher.KeyLen())
	assert.Len(t, enc.IV, enc.Cipher.IVLen())

	_, _, err = newTestVolume(dev).BindCiphers()
	assert.Error(t, err, "expected bind_ciphers to reject a library-mode volume")
}

func TestResetZeroesSecretsAndReturnsToUninitialized(t *testing.T) {
	dev := newTestDevice()
	k := rootKeyOf(0x01)

	v := newTestVolume(dev)
	require.NoError(t, v.Create(k))

	v.Reset()
	assert.Equal(t, StateUninitialized, v.State())
	assert.Nil(t, v.dataKey)
	assert.Nil(t, v.dataIV)
	assert.Nil(t, v.blockBuf)
}
