// Package sealer implements spec.md §4.4 SlotSealer: deriving per-slot
// wrap keys and AEAD-sealing/opening the data key and IV into a volume's
// key slots.
//
// The corpus has no pure-Go AES-GCM-SIV implementation; containerd vendors
// github.com/miscreant/miscreant-go for its AES-SIV layer block cipher,
// which implements the same nonce-misuse-resistant synthetic-IV AEAD
// construction and satisfies the standard cipher.AEAD interface. The
// Manager's "AES128GCMSIV" AEAD identifier is backed by
// miscreant.NewAEAD("AES-CMAC-SIV", ...) end to end.
package sealer

import (
	"crypto/cipher"
	"fmt"

	miscreant "github.com/miscreant/miscreant.go"

	"github.com/deploymenttheory/go-svmgr/internal/interfaces"
)

// wrapKeyLen is the AES-CMAC-SIV-256 key length: twice the 16-byte AES-128
// key miscreant derives its encryption and MAC subkeys from.
const wrapKeyLen = 32

// wrapIVLen is the length of the nonce folded into the SIV synthetic IV
// computation alongside the associated data.
const wrapIVLen = 16

// tagLen is the AES-SIV synthetic IV length prepended to the ciphertext,
// RFC 5297, equal to the AES block size.
const tagLen = 16

// aesSIVAEAD adapts miscreant's AES-CMAC-SIV to interfaces.AEAD.
type aesSIVAEAD struct{}

// NewAES128GCMSIV returns the AEAD backing version
// algorithms.AES256XTSSHA256 (spec.md §6): key/IV/tag lengths per the on-disk
// format, Seal/Open backed by AES-CMAC-SIV.
func NewAES128GCMSIV() interfaces.AEAD { return aesSIVAEAD{} }

func (aesSIVAEAD) KeyLen() int { return wrapKeyLen }
func (aesSIVAEAD) IVLen() int  { return wrapIVLen }
func (aesSIVAEAD) TagLen() int { return tagLen }

func (aesSIVAEAD) Seal(key, iv, plaintext, ad []byte) ([]byte, error) {
	a, err := newAEAD(key)
	if err != nil {
		return nil, err
	}
	return aeadSeal(a, iv, plaintext, ad)
}

func (aesSIVAEAD) Open(key, iv, ciphertext, ad []byte) ([]byte, error) {
	a, err := newAEAD(key)
	if err != nil {
		return nil, err
	}
	return aeadOpen(a, iv, ciphertext, ad)
}

func newAEAD(key []byte) (cipher.AEAD, error) {
	if len(key) != wrapKeyLen {
		return nil, fmt.Errorf("sealer: wrap key must be %d bytes, got %d", wrapKeyLen, len(key))
	}
	a, err := miscreant.NewAEAD("AES-CMAC-SIV", key, wrapIVLen)
	if err != nil {
		return nil, fmt.Errorf("sealer: init AEAD: %w", err)
	}
	return a, nil
}

// aeadSeal and aeadOpen recover from miscreant's panic-on-misuse Seal/Open
// (it panics on nonce-length mismatch, which the deriver's IVLen()-sized
// wrap IV already rules out in practice) and turn that into an ordinary
// error.
func aeadSeal(a cipher.AEAD, iv, plaintext, ad []byte) (ct []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			ct, err = nil, fmt.Errorf("sealer: seal failed: %v", r)
		}
	}()
	return a.Seal(nil, iv, plaintext, ad), nil
}

func aeadOpen(a cipher.AEAD, iv, ciphertext, ad []byte) (pt []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			pt, err = nil, fmt.Errorf("sealer: open failed: %v", r)
		}
	}()
	return a.Open(nil, iv, ciphertext, ad)
}
