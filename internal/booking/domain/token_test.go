package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewToken(t *testing.T) {
	plain, hash, err := NewToken()
	require.NoError(t, err)
	require.NotEmpty(t, plain)
	require.Equal(t, HashToken(plain), hash)
	require.NotEqual(t, plain, hash)
	require.Len(t, hash, 64)

	other, _, err := NewToken()
	require.NoError(t, err)
	require.NotEqual(t, plain, other)
}

func TestHashTokenDeterministic(t *testing.T) {
	require.Equal(t, HashToken("abc"), HashToken("abc"))
	require.Equal(t,
		"ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad",
		HashToken("abc"),
	)
}
