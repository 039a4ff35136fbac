// Package committer implements spec.md §4.6 Committer: redundant,
// idempotent, self-healing writes of a block image across every
// LocationIterator replica, and the replica-fanout open that restores a
// Volume from whichever replica is readable and unlocks under the given
// key. Grounded on the reference corpus's read-modify-write patterns for
// multi-copy container metadata, generalized from "one canonical copy"
// to "N independent, self-healing copies".
package committer

import (
	"bytes"

	"go.uber.org/zap"

	"github.com/deploymenttheory/go-svmgr/internal/algorithms"
	"github.com/deploymenttheory/go-svmgr/internal/codec"
	svmgrerrors "github.com/deploymenttheory/go-svmgr/internal/errors"
	"github.com/deploymenttheory/go-svmgr/internal/interfaces"
	"github.com/deploymenttheory/go-svmgr/internal/location"
	"github.com/deploymenttheory/go-svmgr/internal/sealer"
)

// Geometry is the subset of a Volume's geometry the Committer needs to
// build a LocationIterator; it does not otherwise touch Volume state.
type Geometry struct {
	BlockSize   uint32
	SliceSize   uint64
	VSliceCount uint64
}

// Committer drives BlockIO reads/writes across every replica location.
type Committer struct {
	Dev    interfaces.BlockIO
	Sealer *sealer.SlotSealer
	Log    *zap.SugaredLogger
}

// New builds a Committer. log may be nil; a nop logger is substituted.
func New(dev interfaces.BlockIO, seal *sealer.SlotSealer, log *zap.SugaredLogger) *Committer {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Committer{Dev: dev, Sealer: seal, Log: log}
}

// Commit writes blockBuf to every replica location, skipping any replica
// whose on-disk content already matches (spec.md §4.6: avoids needless
// wear, tolerates some replicas being unreadable, guarantees eventual
// convergence). Read errors are ignored; write errors are logged, not
// returned, except that Commit reports access-denied-free success even
// if every write fails, since a caller with no writable replica has
// nothing actionable to retry beyond what the error log already shows.
func (c *Committer) Commit(blockBuf []byte, g Geometry) error {
	it := location.New(uint64(g.BlockSize), g.SliceSize, g.VSliceCount)
	offset, ok, err := it.Begin()
	if err != nil {
		return err
	}

	current := append([]byte(nil), blockBuf...)
	scratch := make([]byte, g.BlockSize)

	for ok {
		if rerr := c.Dev.ReadBlock(offset, scratch); rerr != nil || !bytes.Equal(scratch, current) {
			if werr := c.Dev.WriteBlock(offset, current); werr != nil {
				c.Log.Warnw("committer: write failed", "offset", offset, "err", werr)
			}
		}
		offset, ok = it.Next()
	}

	copy(blockBuf, current)
	return nil
}

// OpenResult is what OpenAny recovers from the first replica that
// unlocks under the given root key and slot.
type OpenResult struct {
	BlockBuf     []byte
	InstanceGUID [codec.GUIDLen]byte
	Version      algorithms.Version
	DataKey      []byte
	DataIV       []byte
}

// OpenAny iterates every replica location. For each one, it parses the
// header, resolves the algorithm set from the header's own version field
// (mirroring the original OpenBlock's per-attempt Configure call, spec.md
// §9: implementers must use assignment-then-compare semantics so this
// Configure result is actually checked), and tries decrypting slot under
// rootKey. On the first success it returns the recovered data key/IV and
// self-heals the other replicas by committing the winning block image
// everywhere. If no replica unlocks, it returns access-denied.
func (c *Committer) OpenAny(g Geometry, rootKey []byte, slot uint64) (*OpenResult, error) {
	it := location.New(uint64(g.BlockSize), g.SliceSize, g.VSliceCount)
	offset, ok, err := it.Begin()
	if err != nil {
		return nil, err
	}

	scratch := make([]byte, g.BlockSize)

	for ok {
		if rerr := c.Dev.ReadBlock(offset, scratch); rerr != nil {
			c.Log.Debugw("committer: read failed", "offset", offset, "err", rerr)
			offset, ok = it.Next()
			continue
		}

		header, derr := codec.Decode(scratch)
		if derr != nil {
			offset, ok = it.Next()
			continue
		}

		set, cerr := algorithms.Select(algorithms.Version(header.Version))
		if cerr != nil {
			offset, ok = it.Next()
			continue
		}

		slotLen := set.DataKeyLen + set.DataIVLen + set.AEAD.TagLen()
		slotOff := codec.HeaderLen + int(slot)*slotLen
		if slotOff+slotLen > len(scratch) {
			offset, ok = it.Next()
			continue
		}
		ciphertext := scratch[slotOff : slotOff+slotLen]
		ad := scratch[:codec.HeaderLen]

		plaintext, oerr := c.Sealer.Open(rootKey, header.InstanceGUID[:], slot, ciphertext, ad)
		if oerr != nil {
			offset, ok = it.Next()
			continue
		}
		if len(plaintext) != set.DataKeyLen+set.DataIVLen {
			return nil, svmgrerrors.Newf(svmgrerrors.Internal,
				"committer: opened slot produced %d bytes, want %d", len(plaintext), set.DataKeyLen+set.DataIVLen)
		}

		result := &OpenResult{
			BlockBuf:     append([]byte(nil), scratch...),
			InstanceGUID: header.InstanceGUID,
			Version:      algorithms.Version(header.Version),
			DataKey:      append([]byte(nil), plaintext[:set.DataKeyLen]...),
			DataIV:       append([]byte(nil), plaintext[set.DataKeyLen:]...),
		}

		if herr := c.Commit(result.BlockBuf, g); herr != nil {
			c.Log.Warnw("committer: self-heal commit failed", "err", herr)
		}

		return result, nil
	}

	return nil, svmgrerrors.New(svmgrerrors.AccessDenied, "committer: no replica unlocked under the given key and slot")
}
