// Package kdf implements the per-slot wrap-key derivation of spec.md §4.3:
// HKDF-SHA256, salted by the volume's instance GUID, with an ASCII label
// naming the slot and the quantity being derived. Grounded on the
// hkdf.New(sha256.New, ikm, salt, info) usage in the reference corpus's
// envelope crypto (golang.org/x/crypto/hkdf), generalized from a single
// fixed info string to the slot-indexed label scheme the original
// zxcrypt superblock format requires for on-disk compatibility.
package kdf

import (
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"

	"github.com/deploymenttheory/go-svmgr/internal/interfaces"
)

// MaxLabelLen is the normative cap on HKDF info-label length (spec.md §6
// kMaxLabelLen). It bounds how many decimal digits a slot index may have;
// with kNumSlots=16 no label ever approaches the cap, but a label that did
// is truncated exactly as the original's snprintf(buf, 16, ...) would
// truncate it, to preserve on-disk/HKDF compatibility.
const MaxLabelLen = 16

const (
	// These match the literal bytes produced by the original's
	// printf-style "wrap key %" PRIu64 / "wrap iv %" PRIu64 labels once
	// the %PRIu64 conversion specifier is replaced by the decimal slot.
	wrapKeyLabelPrefix = "wrap key "
	wrapIVLabelPrefix  = "wrap iv "
)

// Deriver implements interfaces.KeyDeriver using HKDF-SHA256.
type Deriver struct{}

// New returns the HKDF-SHA256-backed KeyDeriver.
func New() interfaces.KeyDeriver { return &Deriver{} }

// DeriveSlotKeys derives wrap_key and wrap_iv for the given slot, each
// sized per aead, salted by instanceGUID and keyed by rootKey.
func (Deriver) DeriveSlotKeys(aead interfaces.AEAD, rootKey, instanceGUID []byte, slot uint64) (wrapKey, wrapIV []byte, err error) {
	wrapKey = make([]byte, aead.KeyLen())
	if err := derive(rootKey, instanceGUID, label(wrapKeyLabelPrefix, slot), wrapKey); err != nil {
		return nil, nil, fmt.Errorf("kdf: derive wrap key: %w", err)
	}
	wrapIV = make([]byte, aead.IVLen())
	if err := derive(rootKey, instanceGUID, label(wrapIVLabelPrefix, slot), wrapIV); err != nil {
		return nil, nil, fmt.Errorf("kdf: derive wrap iv: %w", err)
	}
	return wrapKey, wrapIV, nil
}

func derive(ikm, salt, info, out []byte) error {
	reader := hkdf.New(sha256.New, ikm, salt, info)
	_, err := io.ReadFull(reader, out)
	return err
}

// label formats the HKDF info string "<prefix><decimal slot>", truncated
// to MaxLabelLen-1 bytes to mirror the original's fixed-size snprintf
// buffer (which always leaves room for a NUL the Go info bytes don't
// need, hence the -1).
func label(prefix string, slot uint64) []byte {
	s := fmt.Sprintf("%s%d", prefix, slot)
	if len(s) > MaxLabelLen-1 {
		s = s[:MaxLabelLen-1]
	}
	return []byte(s)
}
