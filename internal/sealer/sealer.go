package sealer

import (
	"fmt"

	"github.com/deploymenttheory/go-svmgr/internal/interfaces"
)

// SlotSealer implements spec.md §4.4: sealing and opening a volume's
// (data_key || data_iv) plaintext into one of its key slots.
type SlotSealer struct {
	AEAD    interfaces.AEAD
	Deriver interfaces.KeyDeriver
}

// New builds a SlotSealer from an AEAD primitive and a key deriver.
func New(aead interfaces.AEAD, deriver interfaces.KeyDeriver) *SlotSealer {
	return &SlotSealer{AEAD: aead, Deriver: deriver}
}

// SlotLen is the on-disk size of one sealed slot: data key + data IV +
// AEAD tag overhead.
func (s *SlotSealer) SlotLen(dataKeyLen, dataIVLen int) int {
	return dataKeyLen + dataIVLen + s.AEAD.TagLen()
}

// Seal derives the slot's wrap key/IV from rootKey and encrypts
// plaintext (data_key || data_iv) with associated data ad (the header
// prefix), returning the slot ciphertext. The derived wrap key/IV are
// zeroed before Seal returns, per spec.md §5's requirement that wrap_key
// and wrap_iv be zeroed when freed.
func (s *SlotSealer) Seal(rootKey, instanceGUID []byte, slot uint64, plaintext, ad []byte) ([]byte, error) {
	wrapKey, wrapIV, err := s.Deriver.DeriveSlotKeys(s.AEAD, rootKey, instanceGUID, slot)
	if err != nil {
		return nil, fmt.Errorf("sealer: derive slot %d keys: %w", slot, err)
	}
	defer zero(wrapKey)
	defer zero(wrapIV)

	ct, err := s.AEAD.Seal(wrapKey, wrapIV, plaintext, ad)
	if err != nil {
		return nil, fmt.Errorf("sealer: seal slot %d: %w", slot, err)
	}
	return ct, nil
}

// Open is the inverse of Seal: it derives the same slot keys and attempts
// to decrypt ciphertext, returning the recovered plaintext on success.
// spec.md §4.4 folds tag mismatch, AD mismatch, and corrupt-slot failures
// into a single opaque error to avoid an oracle distinction at this
// layer; the Manager maps any error here to access-denied.
func (s *SlotSealer) Open(rootKey, instanceGUID []byte, slot uint64, ciphertext, ad []byte) ([]byte, error) {
	wrapKey, wrapIV, err := s.Deriver.DeriveSlotKeys(s.AEAD, rootKey, instanceGUID, slot)
	if err != nil {
		return nil, fmt.Errorf("sealer: derive slot %d keys: %w", slot, err)
	}
	defer zero(wrapKey)
	defer zero(wrapIV)

	pt, err := s.AEAD.Open(wrapKey, wrapIV, ciphertext, ad)
	if err != nil {
		return nil, fmt.Errorf("sealer: open slot %d: %w", slot, err)
	}
	return pt, nil
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
