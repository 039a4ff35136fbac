package sealer

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deploymenttheory/go-svmgr/internal/kdf"
)

func TestSealOpenRoundTrip(t *testing.T) {
	s := New(NewAES128GCMSIV(), kdf.New())

	rootKey := bytes.Repeat([]byte{0xAA}, 32)
	instanceGUID := bytes.Repeat([]byte{0xBB}, 16)
	plaintext := append(bytes.Repeat([]byte{0x11}, 32), bytes.Repeat([]byte{0x22}, 16)...)
	ad := bytes.Repeat([]byte{0x33}, 36)

	ct, err := s.Seal(rootKey, instanceGUID, 3, plaintext, ad)
	require.NoError(t, err)
	require.Len(t, ct, s.SlotLen(32, 16))

	pt, err := s.Open(rootKey, instanceGUID, 3, ct, ad)
	require.NoError(t, err)
	assert.Equal(t, plaintext, pt)
}

func TestOpenFailsWithWrongKey(t *testing.T) {
	s := New(NewAES128GCMSIV(), kdf.New())

	rootKey := bytes.Repeat([]byte{0xAA}, 32)
	wrongKey := bytes.Repeat([]byte{0xCC}, 32)
	instanceGUID := bytes.Repeat([]byte{0xBB}, 16)
	plaintext := append(bytes.Repeat([]byte{0x11}, 32), bytes.Repeat([]byte{0x22}, 16)...)
	ad := bytes.Repeat([]byte{0x33}, 36)

	ct, err := s.Seal(rootKey, instanceGUID, 0, plaintext, ad)
	require.NoError(t, err)

	_, err = s.Open(wrongKey, instanceGUID, 0, ct, ad)
	assert.Error(t, err)
}

func TestOpenFailsWhenAssociatedDataTampered(t *testing.T) {
	s := New(NewAES128GCMSIV(), kdf.New())

	rootKey := bytes.Repeat([]byte{0xAA}, 32)
	instanceGUID := bytes.Repeat([]byte{0xBB}, 16)
	plaintext := append(bytes.Repeat([]byte{0x11}, 32), bytes.Repeat([]byte{0x22}, 16)...)
	ad := bytes.Repeat([]byte{0x33}, 36)

	ct, err := s.Seal(rootKey, instanceGUID, 0, plaintext, ad)
	require.NoError(t, err)

	tamperedAD := append([]byte(nil), ad...)
	tamperedAD[0] ^= 0xFF

	_, err = s.Open(rootKey, instanceGUID, 0, ct, tamperedAD)
	assert.Error(t, err)
}

func TestOpenFailsOnCorruptSlot(t *testing.T) {
	s := New(NewAES128GCMSIV(), kdf.New())

	rootKey := bytes.Repeat([]byte{0xAA}, 32)
	instanceGUID := bytes.Repeat([]byte{0xBB}, 16)
	plaintext := append(bytes.Repeat([]byte{0x11}, 32), bytes.Repeat([]byte{0x22}, 16)...)
	ad := bytes.Repeat([]byte{0x33}, 36)

	ct, err := s.Seal(rootKey, instanceGUID, 0, plaintext, ad)
	require.NoError(t, err)
	ct[len(ct)-1] ^= 0xFF

	_, err = s.Open(rootKey, instanceGUID, 0, ct, ad)
	assert.Error(t, err)
}
