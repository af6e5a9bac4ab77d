package usernames

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/posindexer/posindexer/internal/types"
)

func TestFromPrecomputedBlockExtractsMemoUsername(t *testing.T) {
	receiver := types.PublicKey("B62qkEtH1PxqjJPKitAmzfV2ozCuCcibBL4tLgpeXHvsaqVgrENjFhX")
	b := &types.PrecomputedBlock{
		StateHash: "3Nstatehash",
		UserCommands: []types.UserCommand{
			{Kind: types.CommandPayment, Status: types.StatusApplied, Receiver: receiver, Memo: "Name: Betelgeuse"},
			{Kind: types.CommandPayment, Status: types.StatusApplied, Receiver: "B62qother", Memo: "just a memo"},
			{Kind: types.CommandPayment, Status: types.StatusFailed, Receiver: "B62qfailed", Memo: "Name: Ignored"},
		},
	}

	upd := FromPrecomputedBlock(b)
	require.Len(t, upd.Set, 1)
	require.Equal(t, "Betelgeuse", upd.Set[receiver])
}

func TestTableApplyUnapplyRoundTrip(t *testing.T) {
	pk := types.PublicKey("B62qsomekey")
	upd := Update{StateHash: "3Nhash", Set: map[types.PublicKey]string{pk: "Betelgeuse"}}

	tbl := NewTable()
	tbl.Apply(upd)
	name, ok := tbl.Get(pk)
	require.True(t, ok)
	require.Equal(t, "Betelgeuse", name)

	tbl.Unapply(upd)
	_, ok = tbl.Get(pk)
	require.False(t, ok)
}
