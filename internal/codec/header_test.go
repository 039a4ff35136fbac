package codec

import (
	"bytes"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	block := make([]byte, 512)
	_, err := rand.Read(block)
	require.NoError(t, err)

	var instanceGUID [GUIDLen]byte
	copy(instanceGUID[:], bytes.Repeat([]byte{0x42}, GUIDLen))

	require.NoError(t, Encode(block, instanceGUID, 1))

	h, err := Decode(block)
	require.NoError(t, err)
	require.Equal(t, TypeGUID, h.TypeGUID)
	require.Equal(t, instanceGUID, h.InstanceGUID)
	require.EqualValues(t, 1, h.Version)
}

func TestDecodeRejectsWrongTypeGUID(t *testing.T) {
	block := make([]byte, 512)
	_, err := rand.Read(block)
	require.NoError(t, err)

	_, err = Decode(block)
	require.ErrorIs(t, err, ErrNotAVolume)
}

func TestEncodeRejectsUndersizedBlock(t *testing.T) {
	block := make([]byte, HeaderLen-1)
	var guid [GUIDLen]byte
	require.Error(t, Encode(block, guid, 1))
}
