package ledger

import (
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/posindexer/posindexer/internal/types"
)

func pk(s string) types.PublicKey { return types.PublicKey(s) }

func TestApplyCoinbaseCreatesAccount(t *testing.T) {
	l := types.NewLedger()
	d := types.NewLedgerDiff("3Ntest", "")
	d.AccountDiffs = []types.AccountDiff{
		{Kind: types.DiffCoinbase, PublicKey: pk("producer"), Amount: 720000000000},
	}
	updates, err := Apply(l, d)
	require.NoError(t, err)
	require.Len(t, updates, 1)

	acc, ok := l.Get(pk("producer"))
	require.True(t, ok)
	require.EqualValues(t, 720000000000, acc.Balance)
}

func TestApplyPaymentToMissingAccountErrors(t *testing.T) {
	l := types.NewLedger()
	d := types.NewLedgerDiff("3Ntest", "")
	d.AccountDiffs = []types.AccountDiff{
		{Kind: types.DiffPayment, PublicKey: pk("nobody"), Amount: 5, Update: types.Debit},
	}
	_, err := Apply(l, d)
	require.Error(t, err)
}

func TestAccountCreationFeeDeduction(t *testing.T) {
	l := types.NewLedger()
	d := types.NewLedgerDiff("3Ntest", "")
	d.AccountDiffs = []types.AccountDiff{
		{Kind: types.DiffCoinbase, PublicKey: pk("newacct"), Amount: 2_000_000_000},
	}
	d.AddNewPKBalance(pk("newacct"), 2_000_000_000)
	_, err := Apply(l, d)
	require.NoError(t, err)
	acc, _ := l.Get(pk("newacct"))
	require.EqualValues(t, 1_000_000_000, acc.Balance)
}

// TestApplyUnapplyRoundTrip is spec.md §8 property 2.
func TestApplyUnapplyRoundTrip(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		l := types.NewLedger()
		l.GetOrCreate(pk("alice")).Balance = 10_000_000_000
		l.GetOrCreate(pk("bob")).Balance = 5_000_000_000
		before := l.Clone()

		amt := types.Amount(rapid.IntRange(1, 1_000_000).Draw(rt, "amt"))
		d := types.NewLedgerDiff("3Ntest", "")
		d.AccountDiffs = []types.AccountDiff{
			{Kind: types.DiffPayment, PublicKey: pk("bob"), Amount: amt, Update: types.Credit},
			{Kind: types.DiffPayment, PublicKey: pk("alice"), Amount: amt, Update: types.Debit, Nonce: 1, HasNonce: true},
		}

		updates, err := Apply(l, d)
		require.NoError(t, err)
		require.NoError(t, Unapply(l, d, updates))
		require.True(t, l.Equal(before), "unapply(apply(L,D),D) must equal L")
	})
}
