package kdf

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAEAD struct{ keyLen, ivLen int }

func (f fakeAEAD) KeyLen() int                                       { return f.keyLen }
func (f fakeAEAD) IVLen() int                                        { return f.ivLen }
func (f fakeAEAD) TagLen() int                                       { return 16 }
func (fakeAEAD) Seal(key, iv, plaintext, ad []byte) ([]byte, error)  { return nil, nil }
func (fakeAEAD) Open(key, iv, ciphertext, ad []byte) ([]byte, error) { return nil, nil }

func TestDeriveSlotKeysIsDeterministic(t *testing.T) {
	d := Deriver{}
	aead := fakeAEAD{keyLen: 32, ivLen: 16}
	rootKey := bytes.Repeat([]byte{0x01}, 32)
	instanceGUID := bytes.Repeat([]byte{0x02}, 16)

	k1, iv1, err := d.DeriveSlotKeys(aead, rootKey, instanceGUID, 5)
	require.NoError(t, err)
	k2, iv2, err := d.DeriveSlotKeys(aead, rootKey, instanceGUID, 5)
	require.NoError(t, err)

	assert.Equal(t, k1, k2, "derivation is not deterministic for identical inputs")
	assert.Equal(t, iv1, iv2, "derivation is not deterministic for identical inputs")
	assert.Len(t, k1, 32)
	assert.Len(t, iv1, 16)
}

func TestDeriveSlotKeysDiffersPerSlot(t *testing.T) {
	d := Deriver{}
	aead := fakeAEAD{keyLen: 32, ivLen: 16}
	rootKey := bytes.Repeat([]byte{0x01}, 32)
	instanceGUID := bytes.Repeat([]byte{0x02}, 16)

	k0, _, err := d.DeriveSlotKeys(aead, rootKey, instanceGUID, 0)
	require.NoError(t, err)
	k1, _, err := d.DeriveSlotKeys(aead, rootKey, instanceGUID, 1)
	require.NoError(t, err)

	assert.NotEqual(t, k0, k1, "distinct slots derived identical wrap keys")
}

func TestLabelTruncatesToMaxLabelLen(t *testing.T) {
	got := label(wrapKeyLabelPrefix, 123456789012345)
	assert.LessOrEqual(t, len(got), MaxLabelLen-1)
}

func TestLabelBytesMatchExpectedFormat(t *testing.T) {
	got := label(wrapKeyLabelPrefix, 5)
	assert.Equal(t, []byte("wrap key 5"), got)
}
