// Package assembler implements spec.md §4.5 BlockAssembler: building the
// full in-memory block image a volume commits to disk, grounded on the
// reference corpus's container-superblock builders that stage a struct
// in memory before serializing it, generalized to start from a
// cryptographically random backdrop rather than a zeroed buffer.
package assembler

import (
	"crypto/rand"

	"github.com/google/uuid"

	"github.com/deploymenttheory/go-svmgr/internal/algorithms"
	"github.com/deploymenttheory/go-svmgr/internal/codec"
	svmgrerrors "github.com/deploymenttheory/go-svmgr/internal/errors"
)

// Assembled is the result of CreateBlock: the block image plus the
// secret and algorithm state a freshly created volume needs to continue
// into sealing and commit.
type Assembled struct {
	BlockBuf     []byte
	InstanceGUID [codec.GUIDLen]byte
	Algorithms   algorithms.Set
	DataKey      []byte
	DataIV       []byte
	HeaderPrefix []byte
}

// SlotLen is the on-disk size of one sealed key slot under the given
// algorithm set.
func SlotLen(set algorithms.Set) int {
	return set.DataKeyLen + set.DataIVLen + set.AEAD.TagLen()
}

// CreateBlock assembles a fresh block image for a brand-new volume:
// random backdrop, header prefix, a new instance GUID, and freshly
// randomized data key/IV. Slots are left as random bytes; sealing a
// slot is the caller's (Lifecycle API's) job.
func CreateBlock(blockSize uint32, version algorithms.Version, numSlots int) (*Assembled, error) {
	set, err := algorithms.Select(version)
	if err != nil {
		return nil, err
	}

	slotLen := SlotLen(set)
	if uint64(codec.HeaderLen)+uint64(numSlots)*uint64(slotLen) > uint64(blockSize) {
		return nil, svmgrerrors.Newf(svmgrerrors.NotSupported,
			"assembler: %d slots of %d bytes plus %d-byte header don't fit in a %d-byte block",
			numSlots, slotLen, codec.HeaderLen, blockSize)
	}

	block := make([]byte, blockSize)
	if _, err := rand.Read(block); err != nil {
		return nil, svmgrerrors.Wrap(svmgrerrors.Internal, "assembler: randomize block", err)
	}

	instanceGUID := [codec.GUIDLen]byte(uuid.New())

	if err := codec.Encode(block, instanceGUID, uint32(version)); err != nil {
		return nil, svmgrerrors.Wrap(svmgrerrors.Internal, "assembler: encode header", err)
	}

	dataKey := make([]byte, set.DataKeyLen)
	if _, err := rand.Read(dataKey); err != nil {
		return nil, svmgrerrors.Wrap(svmgrerrors.Internal, "assembler: randomize data key", err)
	}
	dataIV := make([]byte, set.DataIVLen)
	if _, err := rand.Read(dataIV); err != nil {
		return nil, svmgrerrors.Wrap(svmgrerrors.Internal, "assembler: randomize data iv", err)
	}

	headerPrefix := make([]byte, codec.HeaderLen)
	copy(headerPrefix, block[:codec.HeaderLen])

	return &Assembled{
		BlockBuf:     block,
		InstanceGUID: instanceGUID,
		Algorithms:   set,
		DataKey:      dataKey,
		DataIV:       dataIV,
		HeaderPrefix: headerPrefix,
	}, nil
}

// SlotOffset is the byte offset of slot s within a block image.
func SlotOffset(set algorithms.Set, slot uint64) int {
	return codec.HeaderLen + int(slot)*SlotLen(set)
}
