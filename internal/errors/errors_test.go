package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOfAndIs(t *testing.T) {
	err := New(AccessDenied, "nope")
	assert.Equal(t, AccessDenied, KindOf(err))
	assert.True(t, Is(err, AccessDenied))
	assert.False(t, Is(err, IO))
}

func TestWrapPreservesKindAndUnwraps(t *testing.T) {
	inner := errors.New("disk fell over")
	err := Wrap(IO, "read block", inner)
	assert.Equal(t, IO, KindOf(err))
	assert.True(t, errors.Is(err, inner), "Wrap did not preserve Unwrap chain to the inner error")
}

func TestWrapNilReturnsNil(t *testing.T) {
	require.NoError(t, Wrap(IO, "no-op", nil))
}

func TestKindOfUnrecognizedErrorIsEmpty(t *testing.T) {
	assert.Equal(t, Kind(""), KindOf(errors.New("plain error")))
}
