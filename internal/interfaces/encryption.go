package interfaces

// AEAD is the wrapping-key authenticated-encryption primitive SlotSealer
// uses: spec.md §4.4, §6. Generalized from the reference corpus's
// CryptoStateReader/EncryptionKeyReader surface into the concrete
// seal/open contract the Manager's slot protocol needs.
type AEAD interface {
	// KeyLen is the required wrapping-key length in bytes.
	KeyLen() int

	// IVLen is the required nonce length in bytes.
	IVLen() int

	// TagLen is the authentication tag overhead added by Seal.
	TagLen() int

	// Seal encrypts plaintext under key with nonce iv and associated
	// data ad, returning ciphertext of length len(plaintext)+TagLen().
	Seal(key, iv, plaintext, ad []byte) ([]byte, error)

	// Open verifies and decrypts ciphertext, returning the plaintext
	// on success or an error (without distinguishing tag-mismatch from
	// AD-mismatch, per spec.md §4.4) on failure.
	Open(key, iv, ciphertext, ad []byte) ([]byte, error)
}

// DataCipher identifies the downstream data-path cipher bound via
// BindCiphers. The Manager never runs this cipher itself; spec.md §1
// excludes the bulk XTS engine as an external collaborator.
type DataCipher interface {
	// KeyLen is the required data-key length in bytes.
	KeyLen() int

	// IVLen is the required data-IV length in bytes.
	IVLen() int
}

// KeyDeriver derives per-slot wrap keys from a caller-supplied root key:
// spec.md §4.3.
type KeyDeriver interface {
	// DeriveSlotKeys derives the wrap key and wrap IV for the given
	// slot, salted by instanceGUID, sized to match aead.
	DeriveSlotKeys(aead AEAD, rootKey, instanceGUID []byte, slot uint64) (wrapKey, wrapIV []byte, err error)
}
