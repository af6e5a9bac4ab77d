package staking

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/posindexer/posindexer/internal/types"
)

func account(pk, delegate string, balance types.Amount) *types.StakingAccount {
	return &types.StakingAccount{
		PublicKey: types.PublicKey(pk),
		Delegate:  types.PublicKey(delegate),
		Balance:   balance,
	}
}

func TestAggregateDelegationsAccumulates(t *testing.T) {
	delegate := "B62qrecVjpoZ4Re3a5arN6gXZ6orhmj1enUtA887XdG5mtZfdUbBUh4"
	d1 := "B62qiM1111111111111111111111111111111111111111111111"
	d2 := "B62qiM2222222222222222222222222222222222222222222222"

	sl := types.NewStakingLedger(0, "mainnet", "j"+string(make([]byte, 50)), "3N"+string(make([]byte, 50)))
	sl.Accounts[types.PublicKey(d1)] = account(d1, delegate, 100)
	sl.Accounts[types.PublicKey(d2)] = account(d2, delegate, 200)
	sl.Accounts[types.PublicKey(delegate)] = account(delegate, delegate, 50)

	agg := AggregateDelegations(sl)
	got := agg.Delegations[types.PublicKey(delegate)]
	require.True(t, got.HasAggregation)
	require.Equal(t, uint32(3), got.CountDelegates)
	require.Equal(t, types.Amount(350), got.TotalDelegated)
}

func TestAggregateDelegationsExcludesOutgoingDelegator(t *testing.T) {
	a := "B62qiM1111111111111111111111111111111111111111111111"
	b := "B62qiM2222222222222222222222222222222222222222222222"
	c := "B62qiM3333333333333333333333333333333333333333333333"

	sl := types.NewStakingLedger(0, "mainnet", "j"+string(make([]byte, 50)), "3N"+string(make([]byte, 50)))
	// a delegates to b, and c delegates to a: a itself must not appear as
	// a valid delegate-receiver even though c named it as delegate.
	sl.Accounts[types.PublicKey(a)] = account(a, b, 10)
	sl.Accounts[types.PublicKey(c)] = account(c, a, 20)

	agg := AggregateDelegations(sl)
	require.False(t, agg.Delegations[types.PublicKey(a)].HasAggregation)
}

func TestParseFilename(t *testing.T) {
	network, epoch, hash, err := ParseFilename("mainnet-0-jx7buQVWFLsXTtzRgSxbYcT8EYLS8KCZbLrfDcJxMtyy4thw2Ee.json")
	require.NoError(t, err)
	require.Equal(t, "mainnet", network)
	require.Equal(t, uint32(0), epoch)
	require.Equal(t, types.LedgerHash("jx7buQVWFLsXTtzRgSxbYcT8EYLS8KCZbLrfDcJxMtyy4thw2Ee"), hash)
}
