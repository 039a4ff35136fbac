// Package volume implements the Volume data model and Lifecycle API of
// spec.md §3 and §4.7: Init/Configure geometry acquisition, create/open/
// enroll/revoke/shred/get_info/bind_ciphers, and the scoped-cleanup state
// machine that guarantees secret zeroing on any Init failure. Grounded
// on the reference corpus's manager-struct-wrapping-a-device-handle
// pattern (internal/managers in the teacher repo), generalized from a
// read-only filesystem explorer to a header read/write/rekey lifecycle.
package volume

import (
	"crypto/rand"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"

	"github.com/deploymenttheory/go-svmgr/internal/algorithms"
	"github.com/deploymenttheory/go-svmgr/internal/assembler"
	"github.com/deploymenttheory/go-svmgr/internal/codec"
	"github.com/deploymenttheory/go-svmgr/internal/committer"
	svmgrerrors "github.com/deploymenttheory/go-svmgr/internal/errors"
	"github.com/deploymenttheory/go-svmgr/internal/interfaces"
	"github.com/deploymenttheory/go-svmgr/internal/kdf"
	"github.com/deploymenttheory/go-svmgr/internal/location"
	"github.com/deploymenttheory/go-svmgr/internal/sealer"
)

// Mode is the tagged variant distinguishing the two construction paths,
// spec.md §9 "Polymorphism": dispatch differs only at the BlockIO/
// SliceDevice leaves, never in the upper logic.
type Mode int

const (
	// LibraryMode volumes are opened from a device handle and support
	// the full Lifecycle API, including create/enroll/revoke/shred.
	LibraryMode Mode = iota
	// DriverMode volumes are opened from a driver device reference and
	// support only open/get_info/bind_ciphers.
	DriverMode
)

func (m Mode) String() string {
	if m == DriverMode {
		return "driver"
	}
	return "library"
}

// State is a Volume's position in the spec.md §4.7 state machine:
// Uninitialized -> Geometry-Known -> Configured -> Operational -> Zeroed.
type State int

const (
	StateUninitialized State = iota
	StateGeometryKnown
	StateConfigured
	StateOperational
	StateZeroed
)

// NumSlots is kNumSlots, spec.md §6.
const NumSlots = 16

// ReservedPairs is kReservedPairs, spec.md §6: two reserved slices, each
// holding up to kReservedPairs replica blocks, for 2*kReservedPairs = 4
// total replicas.
const ReservedPairs = 2

// Volume is a single Manager instance's view of one encrypted-volume
// header. It owns all secret material exclusively and must be Reset
// before being discarded.
type Volume struct {
	mode  Mode
	state State
	log   *zap.SugaredLogger

	dev    interfaces.BlockIO
	slices interfaces.SliceDevice

	blockSize  uint32
	blockCount uint64
	hasFVM     bool
	sliceSize  uint64
	vSliceCount uint64

	instanceGUID [codec.GUIDLen]byte
	version      algorithms.Version
	algo         algorithms.Set

	dataKey []byte
	dataIV  []byte

	blockBuf []byte
	offset   uint64

	sealer    *sealer.SlotSealer
	deriver   interfaces.KeyDeriver
	committer *committer.Committer
}

// New constructs a Volume in the given mode over dev/slices. slices may
// be nil; its absence is treated identically to SliceDevice reporting
// not-supported during Init.
func New(mode Mode, dev interfaces.BlockIO, slices interfaces.SliceDevice, log *zap.SugaredLogger) *Volume {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Volume{
		mode:   mode,
		state:  StateUninitialized,
		log:    log,
		dev:    dev,
		slices: slices,
		offset: ^uint64(0),
	}
}

// Mode reports the construction variant.
func (v *Volume) Mode() Mode { return v.mode }

// State reports the current lifecycle state.
func (v *Volume) State() State { return v.state }

// geometry returns the committer.Geometry view of the volume's current
// replica layout.
func (v *Volume) geometry() committer.Geometry {
	return committer.Geometry{BlockSize: v.blockSize, SliceSize: v.sliceSize, VSliceCount: v.vSliceCount}
}

// newLocationIterator builds a LocationIterator over the volume's
// current replica geometry.
func (v *Volume) newLocationIterator() *location.Iterator {
	return location.New(uint64(v.blockSize), v.sliceSize, v.vSliceCount)
}

// Init acquires device and thin-provisioning geometry and subtracts the
// two reserved slices from the usable counts, spec.md §4.8; block_buf is
// sized afterwards by Configure. Any failure resets the Volume to Uninitialized via the scoped
// cleanup guard in the caller (Create/Open); Init itself is side-effect
// free on error beyond partially set geometry fields, which the caller's
// Reset() wipes.
func (v *Volume) Init() error {
	info, err := v.dev.Info()
	if err != nil {
		return svmgrerrors.Wrap(svmgrerrors.IO, "volume: query block device info", err)
	}
	if info.BlockSize == 0 {
		return svmgrerrors.New(svmgrerrors.NotSupported, "volume: block size is zero")
	}

	pageSize := uint32(unix.Getpagesize())
	switch {
	case info.BlockSize < pageSize:
		if pageSize%info.BlockSize != 0 {
			return svmgrerrors.Newf(svmgrerrors.NotSupported,
				"volume: block size %d does not evenly divide page size %d", info.BlockSize, pageSize)
		}
	default:
		if info.BlockSize%pageSize != 0 {
			return svmgrerrors.Newf(svmgrerrors.NotSupported,
				"volume: block size %d is not a multiple of page size %d", info.BlockSize, pageSize)
		}
	}
	v.blockSize = info.BlockSize
	v.blockCount = info.BlockCount

	if err := v.initGeometry(); err != nil {
		return err
	}

	v.vSliceCount -= 2
	v.blockCount -= 2 * (v.sliceSize / uint64(v.blockSize))

	v.state = StateGeometryKnown
	return nil
}

// initGeometry resolves slices into either real thin-provisioning
// geometry or the synthesized fallback, spec.md §4.8 step 2.
func (v *Volume) initGeometry() error {
	if v.slices == nil {
		return v.synthesizeGeometry()
	}

	fvm, err := v.slices.Info()
	if err != nil {
		if svmgrerrors.Is(err, svmgrerrors.NotSupported) {
			return v.synthesizeGeometry()
		}
		return svmgrerrors.Wrap(svmgrerrors.IO, "volume: query fvm info", err)
	}

	if fvm.SliceSize < ReservedPairs*uint64(v.blockSize) || fvm.VSliceCount < 2 {
		return svmgrerrors.New(svmgrerrors.NotSupported, "volume: fvm geometry too small for reserved slices")
	}

	lastSlice := fvm.VSliceCount - 1
	ranges, err := v.slices.QuerySlice(lastSlice, 1)
	if err != nil {
		return svmgrerrors.Wrap(svmgrerrors.IO, "volume: query last slice", err)
	}
	if len(ranges) == 0 || !ranges[0].Allocated {
		if err := v.slices.Extend(lastSlice, 1); err != nil {
			return svmgrerrors.Wrap(svmgrerrors.IO, "volume: extend last slice", err)
		}
	}

	v.sliceSize = fvm.SliceSize
	v.vSliceCount = fvm.VSliceCount
	v.hasFVM = true
	return nil
}

// synthesizeGeometry builds thin-provisioning geometry for a device with
// no real SliceDevice support, spec.md §4.8 step 2 "if not supported".
func (v *Volume) synthesizeGeometry() error {
	v.sliceSize = ReservedPairs * uint64(v.blockSize)
	v.vSliceCount = v.blockCount / ReservedPairs
	if v.blockCount/2 < ReservedPairs {
		return svmgrerrors.New(svmgrerrors.NoSpace, "volume: device too small for reserved replicas")
	}
	v.hasFVM = false
	return nil
}

// Configure resolves version into its algorithm set, validates that
// kNumSlots slots plus the header fit in one block, and sizes every
// secret buffer, spec.md §4.8 Configure.
func (v *Volume) Configure(version algorithms.Version) error {
	set, err := algorithms.Select(version)
	if err != nil {
		return err
	}

	slotLen := set.DataKeyLen + set.DataIVLen + set.AEAD.TagLen()
	if uint64(codec.HeaderLen)+uint64(NumSlots)*uint64(slotLen) > uint64(v.blockSize) {
		return svmgrerrors.Newf(svmgrerrors.NotSupported,
			"volume: %d slots of %d bytes don't fit in a %d-byte block", NumSlots, slotLen, v.blockSize)
	}

	v.version = version
	v.algo = set
	v.dataKey = make([]byte, set.DataKeyLen)
	v.dataIV = make([]byte, set.DataIVLen)
	v.blockBuf = make([]byte, v.blockSize)

	v.deriver = kdf.New()
	v.sealer = sealer.New(set.AEAD, v.deriver)
	v.committer = committer.New(v.dev, v.sealer, v.log)

	v.state = StateConfigured
	return nil
}

// Create formats a brand-new volume: Init, Configure at the default
// version, assemble a fresh block image, seal the data key/IV into
// slot 0 under rootKey, and commit to every replica. Library mode only.
func (v *Volume) Create(rootKey []byte) (err error) {
	if v.mode != LibraryMode {
		return svmgrerrors.New(svmgrerrors.BadState, "volume: create requires library mode")
	}

	succeeded := false
	defer func() {
		if !succeeded {
			v.Reset()
		}
	}()

	if err = v.Init(); err != nil {
		return err
	}
	if err = v.Configure(algorithms.AES256XTSSHA256); err != nil {
		return err
	}

	built, err := assembler.CreateBlock(v.blockSize, v.version, NumSlots)
	if err != nil {
		return err
	}

	v.instanceGUID = built.InstanceGUID
	copy(v.dataKey, built.DataKey)
	copy(v.dataIV, built.DataIV)
	v.blockBuf = built.BlockBuf

	if err = v.sealSlotLocked(rootKey, 0, built.HeaderPrefix); err != nil {
		return err
	}

	if err = v.committer.Commit(v.blockBuf, v.geometry()); err != nil {
		return err
	}

	v.state = StateOperational
	succeeded = true
	return nil
}

// Open recovers an existing volume: Init, then try every replica for a
// slot that decrypts under rootKey, adopting the algorithm set, instance
// GUID, and secrets of the first one that unlocks. Valid in both modes.
func (v *Volume) Open(rootKey []byte, slot uint64) (err error) {
	if slot >= NumSlots {
		return svmgrerrors.Newf(svmgrerrors.InvalidArgs, "volume: slot %d >= kNumSlots", slot)
	}

	succeeded := false
	defer func() {
		if !succeeded {
			v.Reset()
		}
	}()

	if err = v.Init(); err != nil {
		return err
	}
	// Configure at the default version to size buffers and build a
	// committer/sealer; OpenAny re-resolves the algorithm set per
	// replica from the header it reads, so a mismatch here only affects
	// buffer sizing, not correctness.
	if err = v.Configure(algorithms.AES256XTSSHA256); err != nil {
		return err
	}

	result, err := v.committer.OpenAny(v.geometry(), rootKey, slot)
	if err != nil {
		return err
	}

	v.instanceGUID = result.InstanceGUID
	v.version = result.Version
	if set, serr := algorithms.Select(result.Version); serr == nil {
		v.algo = set
		v.sealer = sealer.New(set.AEAD, v.deriver)
		v.committer = committer.New(v.dev, v.sealer, v.log)
	}
	v.dataKey = result.DataKey
	v.dataIV = result.DataIV
	v.blockBuf = result.BlockBuf

	v.state = StateOperational
	succeeded = true
	return nil
}

// Enroll seals the volume's existing data key/IV into an additional
// slot under a new root key and commits. Library mode only.
func (v *Volume) Enroll(rootKey []byte, slot uint64) error {
	if v.mode != LibraryMode {
		return svmgrerrors.New(svmgrerrors.BadState, "volume: enroll requires library mode")
	}
	if v.state != StateOperational {
		return svmgrerrors.New(svmgrerrors.BadState, "volume: enroll requires an open volume")
	}
	if slot >= NumSlots {
		return svmgrerrors.Newf(svmgrerrors.InvalidArgs, "volume: slot %d >= kNumSlots", slot)
	}

	ad := append([]byte(nil), v.blockBuf[:codec.HeaderLen]...)
	if err := v.sealSlotLocked(rootKey, slot, ad); err != nil {
		return err
	}
	return v.committer.Commit(v.blockBuf, v.geometry())
}

// Revoke overwrites a slot's region with fresh random bytes, permanently
// denying access through that slot, and commits. Library mode only.
func (v *Volume) Revoke(slot uint64) error {
	if v.mode != LibraryMode {
		return svmgrerrors.New(svmgrerrors.BadState, "volume: revoke requires library mode")
	}
	if v.state != StateOperational {
		return svmgrerrors.New(svmgrerrors.BadState, "volume: revoke requires an open volume")
	}
	if slot >= NumSlots {
		return svmgrerrors.Newf(svmgrerrors.InvalidArgs, "volume: slot %d >= kNumSlots", slot)
	}

	off := assembler.SlotOffset(v.algo, slot)
	slotLen := assembler.SlotLen(v.algo)
	if _, err := rand.Read(v.blockBuf[off : off+slotLen]); err != nil {
		return svmgrerrors.Wrap(svmgrerrors.Internal, "volume: randomize revoked slot", err)
	}
	return v.committer.Commit(v.blockBuf, v.geometry())
}

// Shred randomizes the entire block image and writes it to every
// replica, destroying every slot irrecoverably. Per spec.md §9, write
// failures are best-effort: Shred returns the first error only if *no*
// replica was successfully overwritten, matching the original's
// ignore-and-continue Write loop. Library mode only.
func (v *Volume) Shred() error {
	if v.mode != LibraryMode {
		return svmgrerrors.New(svmgrerrors.BadState, "volume: shred requires library mode")
	}
	if v.state != StateOperational {
		return svmgrerrors.New(svmgrerrors.BadState, "volume: shred requires an open volume")
	}

	if _, err := rand.Read(v.blockBuf); err != nil {
		return svmgrerrors.Wrap(svmgrerrors.Internal, "volume: randomize block", err)
	}

	it := v.newLocationIterator()
	offset, ok, err := it.Begin()
	if err != nil {
		return err
	}

	var firstErr error
	wroteAny := false
	for ok {
		if werr := v.dev.WriteBlock(offset, v.blockBuf); werr != nil {
			v.log.Warnw("volume: shred write failed", "offset", offset, "err", werr)
			if firstErr == nil {
				firstErr = svmgrerrors.Wrap(svmgrerrors.IO, "volume: shred write", werr)
			}
		} else {
			wroteAny = true
		}
		offset, ok = it.Next()
	}

	if !wroteAny {
		return firstErr
	}
	return nil
}

// Info is the get_info() output: the geometry a caller may inspect
// without holding any secret material.
type Info struct {
	BlockSize   uint32
	BlockCount  uint64
	HasFVM      bool
	SliceSize   uint64
	VSliceCount uint64
	Version     algorithms.Version
}

// GetInfo copies out the volume's block and fvm geometry. Valid in
// either mode, once open.
func (v *Volume) GetInfo() (Info, error) {
	if v.state != StateOperational {
		return Info{}, svmgrerrors.New(svmgrerrors.BadState, "volume: get_info requires an open volume")
	}
	return Info{
		BlockSize:   v.blockSize,
		BlockCount:  v.blockCount,
		HasFVM:      v.hasFVM,
		SliceSize:   v.sliceSize,
		VSliceCount: v.vSliceCount,
		Version:     v.version,
	}, nil
}

// CipherContext is the matched encrypt/decrypt parameter bundle
// bind_ciphers hands to the (out-of-scope) bulk data-path cipher.
type CipherContext struct {
	CipherID         string
	Cipher           interfaces.DataCipher
	Key              []byte
	IV               []byte
	TweakableSectors uint64
}

// BindCiphers initializes a matched encrypt/decrypt cipher context pair
// from the volume's data key/IV, spec.md §4.7. Driver mode only.
func (v *Volume) BindCiphers() (enc, dec CipherContext, err error) {
	if v.mode != DriverMode {
		return CipherContext{}, CipherContext{}, svmgrerrors.New(svmgrerrors.BadState, "volume: bind_ciphers requires driver mode")
	}
	if v.state != StateOperational {
		return CipherContext{}, CipherContext{}, svmgrerrors.New(svmgrerrors.BadState, "volume: bind_ciphers requires an open volume")
	}
	if len(v.dataKey) != v.algo.DataCipher.KeyLen() || len(v.dataIV) != v.algo.DataCipher.IVLen() {
		return CipherContext{}, CipherContext{}, svmgrerrors.New(svmgrerrors.Internal, "volume: data key/iv size mismatch with bound data cipher")
	}

	tweakableSectors := ^uint64(0) / uint64(v.blockSize)
	ctx := CipherContext{
		CipherID:         v.algo.CipherID,
		Cipher:           v.algo.DataCipher,
		Key:              append([]byte(nil), v.dataKey...),
		IV:               append([]byte(nil), v.dataIV...),
		TweakableSectors: tweakableSectors,
	}
	return ctx, ctx, nil
}

// sealSlotLocked derives and seals slot under rootKey, writing the
// result into blockBuf at the slot's offset.
func (v *Volume) sealSlotLocked(rootKey []byte, slot uint64, ad []byte) error {
	plaintext := make([]byte, 0, len(v.dataKey)+len(v.dataIV))
	plaintext = append(plaintext, v.dataKey...)
	plaintext = append(plaintext, v.dataIV...)

	ciphertext, err := v.sealer.Seal(rootKey, v.instanceGUID[:], slot, plaintext, ad)
	if err != nil {
		return svmgrerrors.Wrap(svmgrerrors.Internal, "volume: seal slot", err)
	}

	off := assembler.SlotOffset(v.algo, slot)
	if off+len(ciphertext) > len(v.blockBuf) {
		return svmgrerrors.New(svmgrerrors.Internal, "volume: sealed slot overflows block buffer")
	}
	copy(v.blockBuf[off:off+len(ciphertext)], ciphertext)
	return nil
}

// Reset zeroes all secret state and returns the Volume to Uninitialized.
// It is invoked by Create's and Open's scoped cleanup guard on a
// non-success exit, and should be called again on drop.
func (v *Volume) Reset() {
	zero(v.dataKey)
	zero(v.dataIV)
	zero(v.blockBuf)

	v.dataKey, v.dataIV, v.blockBuf = nil, nil, nil
	v.instanceGUID = [codec.GUIDLen]byte{}
	v.offset = ^uint64(0)
	v.state = StateUninitialized
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
