package diff

import (
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/posindexer/posindexer/internal/types"
)

func pk(s string) types.PublicKey { return types.PublicKey(s) }

// TestS1SingleBlockPipeline grounds spec.md §8 S1: three payments of 1000,
// a coinbase of 720000000000, two fee transfers.
func TestS1SingleBlockPipeline(t *testing.T) {
	block := &types.PrecomputedBlock{
		StateHash:        "3NL33j16AcCez3txQ2Cu2wjgF9BPMEMehmd3MLsk9eFJwzK0",
		CoinbaseReceiver: pk("B62qusDB9RjfEoP4R2haJ3zqtJZLxh1cm2obbtq3VNeLveExENjqusD"),
		UserCommands: []types.UserCommand{
			{Kind: types.CommandPayment, Status: types.StatusApplied, Source: pk("alice"), Receiver: pk("bob"), Amount: 1000, Nonce: 1},
			{Kind: types.CommandPayment, Status: types.StatusApplied, Source: pk("carol"), Receiver: pk("dave"), Amount: 1000, Nonce: 2, Fee: 10000000, FeePayer: pk("carol")},
			{Kind: types.CommandPayment, Status: types.StatusApplied, Source: pk("erin"), Receiver: pk("frank"), Amount: 1000, Nonce: 3, Fee: 20000000, FeePayer: pk("erin")},
		},
		InternalCommandsPreDiff: &types.InternalCommand{Kind: types.CoinbaseOne, Receiver: pk("B62qusDB9RjfEoP4R2haJ3zqtJZLxh1cm2obbtq3VNeLveExENjqusD")},
	}

	d := FromPrecomputedBlock(block)

	var payments, coinbases, feeTransfers int
	for _, ad := range d.AccountDiffs {
		switch ad.Kind {
		case types.DiffPayment:
			payments++
		case types.DiffCoinbase:
			coinbases++
			require.EqualValues(t, 720000000000, ad.Amount)
		case types.DiffFeeTransfer:
			feeTransfers++
		}
	}
	require.Equal(t, 6, payments) // 3 payments x credit+debit
	require.Equal(t, 1, coinbases)
	require.Equal(t, 4, feeTransfers) // 2 fee transfers x credit+debit
}

// TestSuperchargedCoinbase grounds spec.md §8 S3.
func TestSuperchargedCoinbase(t *testing.T) {
	block := &types.PrecomputedBlock{
		StateHash:           "3NL33j16AcCez3txQ2Cu2wjgF9BPMEMehmd3MLsk9eFJwzK0",
		CoinbaseReceiver:    pk("B62qospDjUj43x2yMKiNehojWWRUsE1wpdUDVpfxH8V3tUFzpz2KFfw"),
		SuperchargeCoinbase: true,
		InternalCommandsPreDiff: &types.InternalCommand{
			Kind:     types.CoinbaseOne,
			Receiver: pk("B62qospDjUj43x2yMKiNehojWWRUsE1wpdUDVpfxH8V3tUFzpz2KFfw"),
		},
	}
	d := FromPrecomputedBlock(block)
	require.Len(t, d.AccountDiffs, 1)
	require.Equal(t, types.DiffCoinbase, d.AccountDiffs[0].Kind)
	require.EqualValues(t, 1_440_000_000_000, d.AccountDiffs[0].Amount)
}

// TestFeeTransferViaCoinbaseRewrite grounds spec.md §8 S2.
func TestFeeTransferViaCoinbaseRewrite(t *testing.T) {
	prover := pk("B62qospDjUj43x2yMKiNehojWWRUsE1wpdUDVpfxH8V3tUFzpz2KFfw")
	receiver := pk("B62qusDB9RjfEoP4R2haJ3zqtJZLxh1cm2obbtq3VNeLveExENjqusD")
	block := &types.PrecomputedBlock{
		StateHash:        "3NL33j16AcCez3txQ2Cu2wjgF9BPMEMehmd3MLsk9eFJwzK0",
		CoinbaseReceiver: receiver,
		SnarkWorkPreDiff: []types.SnarkWorkEntry{{Prover: prover, Fee: 10000000}},
		InternalCommandsPreDiff: &types.InternalCommand{
			Kind:         types.CoinbaseOne,
			Receiver:     receiver,
			FeeTransfer0: &types.CoinbaseFeeTransfer{Receiver: prover, Fee: 10000000},
		},
	}
	d := FromPrecomputedBlock(block)

	var ftvc, ft, cb int
	for _, ad := range d.AccountDiffs {
		switch ad.Kind {
		case types.DiffFeeTransferViaCoinbase:
			ftvc++
		case types.DiffFeeTransfer:
			ft++
		case types.DiffCoinbase:
			cb++
		}
	}
	require.Equal(t, 1, cb)
	require.Equal(t, 2, ftvc)
	require.Equal(t, 0, ft)
}

// TestDiffConservation is property 1 of spec.md §8: the sum of signed
// amounts across Payment/FeeTransfer/FeeTransferViaCoinbase diffs is zero.
func TestDiffConservation(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(0, 5).Draw(rt, "n")
		block := &types.PrecomputedBlock{
			StateHash:        "3Ntest00000000000000000000000000000000000000000000",
			CoinbaseReceiver: pk("coinbase"),
		}
		for i := 0; i < n; i++ {
			amt := types.Amount(rapid.IntRange(1, 1000).Draw(rt, "amt"))
			block.UserCommands = append(block.UserCommands, types.UserCommand{
				Kind: types.CommandPayment, Status: types.StatusApplied,
				Source: pk(rapid.StringMatching(`[a-e]`).Draw(rt, "src")),
				Receiver: pk(rapid.StringMatching(`[f-j]`).Draw(rt, "dst")),
				Amount:   amt,
				Nonce:    types.Nonce(i),
			})
		}
		d := FromPrecomputedBlock(block)

		var sum int64
		for _, ad := range d.AccountDiffs {
			switch ad.Kind {
			case types.DiffPayment, types.DiffFeeTransfer, types.DiffFeeTransferViaCoinbase:
				if ad.Update == types.Credit {
					sum += int64(ad.Amount)
				} else {
					sum -= int64(ad.Amount)
				}
			}
		}
		require.Zero(t, sum)
	})
}
