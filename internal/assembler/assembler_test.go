package assembler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deploymenttheory/go-svmgr/internal/algorithms"
	"github.com/deploymenttheory/go-svmgr/internal/codec"
)

func TestCreateBlockProducesParseableHeader(t *testing.T) {
	built, err := CreateBlock(4096, algorithms.AES256XTSSHA256, 16)
	require.NoError(t, err)
	require.Len(t, built.BlockBuf, 4096)

	h, err := codec.Decode(built.BlockBuf)
	require.NoError(t, err)
	assert.Equal(t, built.InstanceGUID, h.InstanceGUID)

	assert.Len(t, built.DataKey, built.Algorithms.DataKeyLen)
	assert.Len(t, built.DataIV, built.Algorithms.DataIVLen)
}

func TestCreateBlockRejectsTooManySlotsForBlockSize(t *testing.T) {
	_, err := CreateBlock(64, algorithms.AES256XTSSHA256, 16)
	assert.Error(t, err)
}

func TestInstanceGUIDIsRFC4122VariantOne(t *testing.T) {
	built, err := CreateBlock(4096, algorithms.AES256XTSSHA256, 16)
	require.NoError(t, err)

	assert.Equal(t, byte(0x40), built.InstanceGUID[6]&0xF0, "version nibble")
	assert.Equal(t, byte(0x80), built.InstanceGUID[8]&0xC0, "variant bits")
}

func TestTwoCreatedBlocksHaveDistinctInstanceGUIDs(t *testing.T) {
	a, err := CreateBlock(4096, algorithms.AES256XTSSHA256, 16)
	require.NoError(t, err)
	b, err := CreateBlock(4096, algorithms.AES256XTSSHA256, 16)
	require.NoError(t, err)

	assert.NotEqual(t, a.InstanceGUID, b.InstanceGUID, "two independently created volumes produced the same instance guid")
}
