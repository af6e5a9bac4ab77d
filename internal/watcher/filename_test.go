package watcher

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseBlockFilenameWithHeight(t *testing.T) {
	hash := "3N" + "111111111111111111111111111111111111111111111111"
	require.Len(t, hash, 52)
	pf, err := ParseBlockFilename("mainnet-338728-" + hash + ".json")
	require.NoError(t, err)
	require.Equal(t, "mainnet", pf.Network)
	require.True(t, pf.HasHeight)
	require.Equal(t, uint32(338728), pf.Height)
}

func TestParseBlockFilenameWithoutHeight(t *testing.T) {
	hash := "3N" + "111111111111111111111111111111111111111111111111"
	pf, err := ParseBlockFilename("mainnet-" + hash + ".json")
	require.NoError(t, err)
	require.False(t, pf.HasHeight)
	require.Equal(t, "mainnet", pf.Network)
}

func TestParseBlockFilenameRejectsMalformed(t *testing.T) {
	_, err := ParseBlockFilename("not-a-block-file-at-all-really.json")
	require.Error(t, err)
}
