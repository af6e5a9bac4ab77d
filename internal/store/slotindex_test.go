package store

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestU32ListRoundTrip(t *testing.T) {
	enc, err := EncodeU32List([]uint32{5, 1, 3, 1})
	require.NoError(t, err)

	got, err := DecodeU32List(enc)
	require.NoError(t, err)
	require.Equal(t, []uint32{1, 3, 5}, got)
}

func TestAddToU32ListAccumulatesSorted(t *testing.T) {
	enc, err := AddToU32List(nil, 10)
	require.NoError(t, err)
	enc, err = AddToU32List(enc, 2)
	require.NoError(t, err)
	enc, err = AddToU32List(enc, 10)
	require.NoError(t, err)

	got, err := DecodeU32List(enc)
	require.NoError(t, err)
	require.Equal(t, []uint32{2, 10}, got)
}
