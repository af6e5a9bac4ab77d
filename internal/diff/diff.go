// Package diff implements the deterministic LedgerDiff derivation of
// spec.md §4.3, grounded on
// _examples/original_source/rust/src/ledger/diff/{mod.rs,account.rs} and
// ledger/coinbase.rs.
package diff

import (
	"sort"

	"github.com/posindexer/posindexer/internal/types"
)

// FromPrecomputedBlock derives the LedgerDiff for block. The procedure is a
// pure function of the block: two calls on the same input produce
// byte-identical output.
func FromPrecomputedBlock(block *types.PrecomputedBlock) *types.LedgerDiff {
	d := types.NewLedgerDiff(block.StateHash, block.StagedLedgerHash)

	txnDiffs := appliedCommandDiffs(block.AppliedUserCommands())
	txnDiffs = append(txnDiffs, failedCommandDiffs(block.FailedUserCommands())...)

	feeDiffs := blockFeeDiffs(block)

	var coinbaseDiff *types.AccountDiff
	coinbaseApplied, coinbaseAmount, attached := coinbaseInfo(block)
	if coinbaseApplied {
		cb := types.AccountDiff{Kind: types.DiffCoinbase, PublicKey: block.CoinbaseReceiver, Amount: coinbaseAmount, Update: types.Credit}
		coinbaseDiff = &cb
		feeDiffs = rewriteFeeTransferViaCoinbase(feeDiffs, block.CoinbaseReceiver, attached)
	}

	all := make([]types.AccountDiff, 0, len(txnDiffs)+len(feeDiffs)+1)
	all = append(all, txnDiffs...)
	if coinbaseDiff != nil {
		all = append(all, *coinbaseDiff)
	}
	all = append(all, feeDiffs...)
	d.AccountDiffs = all

	for pk, bal := range block.AccountsCreated {
		d.AddNewPKBalance(pk, bal)
	}
	d.NewCoinbaseReceiver = block.NewCoinbaseReceiver

	seen := make(map[types.PublicKey]bool)
	for _, ad := range all {
		pk := ad.PublicKeyOf()
		if !seen[pk] {
			seen[pk] = true
			d.PublicKeysSeen = append(d.PublicKeysSeen, pk)
		}
		if ad.Kind == types.DiffDelegation && !seen[ad.Delegate] {
			seen[ad.Delegate] = true
			d.PublicKeysSeen = append(d.PublicKeysSeen, ad.Delegate)
		}
	}

	return d
}

// appliedCommandDiffs implements spec.md §4.3 step 1.
func appliedCommandDiffs(cmds []types.UserCommand) []types.AccountDiff {
	sorted := make([]types.UserCommand, 0, len(cmds))
	for _, c := range cmds {
		if c.Kind == types.CommandPayment && c.Amount == 0 {
			continue
		}
		sorted = append(sorted, c)
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return commandLess(sorted[i], sorted[j])
	})

	out := make([]types.AccountDiff, 0, len(sorted)*2)
	for _, c := range sorted {
		switch c.Kind {
		case types.CommandPayment:
			out = append(out,
				types.AccountDiff{Kind: types.DiffPayment, PublicKey: c.Receiver, Amount: c.Amount, Update: types.Credit},
				types.AccountDiff{Kind: types.DiffPayment, PublicKey: c.Source, Amount: c.Amount, Update: types.Debit, Nonce: c.Nonce.Next(), HasNonce: true},
			)
		case types.CommandDelegation:
			out = append(out, types.AccountDiff{Kind: types.DiffDelegation, Delegator: c.Source, Delegate: c.Delegate, Nonce: c.Nonce.Next()})
		}
	}
	return out
}

// commandLess implements the total order: payment source/receiver/amount/
// nonce, then delegation (payments sort before delegations).
func commandLess(a, b types.UserCommand) bool {
	if a.Kind != b.Kind {
		return a.Kind < b.Kind
	}
	if a.Source != b.Source {
		return a.Source < b.Source
	}
	if a.Receiver != b.Receiver {
		return a.Receiver < b.Receiver
	}
	if a.Amount != b.Amount {
		return a.Amount < b.Amount
	}
	return a.Nonce < b.Nonce
}

// failedCommandDiffs implements spec.md §4.3 step 2.
func failedCommandDiffs(cmds []types.UserCommand) []types.AccountDiff {
	out := make([]types.AccountDiff, 0, len(cmds))
	for _, c := range cmds {
		out = append(out, types.AccountDiff{Kind: types.DiffFailedTransactionNonce, PublicKey: c.Source, Nonce: c.Nonce.Next()})
	}
	return out
}

// coinbaseInfo implements spec.md §4.3 step 3: pick the effective coinbase
// record (post-diff overrides pre-diff when present), compute its amount
// with supercharge doubling, and collect its attached fee transfers.
func coinbaseInfo(block *types.PrecomputedBlock) (applied bool, amount types.Amount, attached []types.CoinbaseFeeTransfer) {
	ic := block.InternalCommandsPreDiff
	if block.InternalCommandsPostDiff != nil {
		ic = block.InternalCommandsPostDiff
	}
	if ic == nil || ic.Kind == types.CoinbaseZero {
		return false, 0, nil
	}
	amount = types.Amount(MainnetCoinbaseReward)
	if block.SuperchargeCoinbase {
		amount = amount.Add(amount)
	}
	if ic.FeeTransfer0 != nil {
		attached = append(attached, *ic.FeeTransfer0)
	}
	if ic.FeeTransfer1 != nil {
		attached = append(attached, *ic.FeeTransfer1)
	}
	return true, amount, attached
}

// MainnetCoinbaseReward mirrors constants.rs MAINNET_COINBASE_REWARD; kept
// local to avoid an import cycle with internal/chainid.
const MainnetCoinbaseReward = 720_000_000_000

// blockFeeDiffs implements spec.md §4.3 step 4: aggregate user-command fees
// per fee-payer (pre-diff then post-diff — this core models a single
// command list, so both passes collapse to one), then SNARK fees per
// prover.
func blockFeeDiffs(block *types.PrecomputedBlock) []types.AccountDiff {
	var out []types.AccountDiff

	txFees := make(map[types.PublicKey]types.Amount)
	var txOrder []types.PublicKey
	for _, c := range block.UserCommands {
		if c.Fee == 0 {
			continue
		}
		if _, ok := txFees[c.FeePayer]; !ok {
			txOrder = append(txOrder, c.FeePayer)
		}
		txFees[c.FeePayer] = txFees[c.FeePayer].Add(c.Fee)
	}
	sort.Slice(txOrder, func(i, j int) bool { return txOrder[i] < txOrder[j] })
	for _, payer := range txOrder {
		fee := txFees[payer]
		if fee == 0 {
			continue
		}
		out = append(out,
			types.AccountDiff{Kind: types.DiffFeeTransfer, PublicKey: block.CoinbaseReceiver, Amount: fee, Update: types.Credit},
			types.AccountDiff{Kind: types.DiffFeeTransfer, PublicKey: payer, Amount: fee, Update: types.Debit},
		)
	}

	snarkFees := make(map[types.PublicKey]types.Amount)
	var snarkOrder []types.PublicKey
	allSnarks := append(append([]types.SnarkWorkEntry{}, block.SnarkWorkPreDiff...), block.SnarkWorkPostDiff...)
	for _, s := range allSnarks {
		if s.Fee == 0 {
			continue
		}
		if _, ok := snarkFees[s.Prover]; !ok {
			snarkOrder = append(snarkOrder, s.Prover)
		}
		snarkFees[s.Prover] = snarkFees[s.Prover].Add(s.Fee)
	}
	sort.Slice(snarkOrder, func(i, j int) bool { return snarkOrder[i] < snarkOrder[j] })
	for _, prover := range snarkOrder {
		fee := snarkFees[prover]
		if fee == 0 {
			continue
		}
		out = append(out,
			types.AccountDiff{Kind: types.DiffFeeTransfer, PublicKey: prover, Amount: fee, Update: types.Credit},
			types.AccountDiff{Kind: types.DiffFeeTransfer, PublicKey: block.CoinbaseReceiver, Amount: fee, Update: types.Debit},
		)
	}

	return out
}

// rewriteFeeTransferViaCoinbase implements spec.md §4.3 step 5: for each
// fee transfer attached to the coinbase, find the adjacent [Credit, Debit]
// FeeTransfer pair it corresponds to and relabel it
// FeeTransferViaCoinbase. If no matching pair exists (the coinbase's
// attached transfer did not appear in the aggregated fee diffs), the pair
// is synthesized directly so conservation still holds.
func rewriteFeeTransferViaCoinbase(diffs []types.AccountDiff, coinbaseReceiver types.PublicKey, attached []types.CoinbaseFeeTransfer) []types.AccountDiff {
	matched := make([]bool, len(diffs))
	for _, t := range attached {
		found := false
		for i := 0; i+1 < len(diffs); i += 2 {
			if matched[i] {
				continue
			}
			credit, debit := diffs[i], diffs[i+1]
			if credit.Kind != types.DiffFeeTransfer || debit.Kind != types.DiffFeeTransfer {
				continue
			}
			if credit.Update == types.Credit && debit.Update == types.Debit &&
				credit.PublicKey == t.Receiver && credit.Amount == t.Fee {
				diffs[i].Kind = types.DiffFeeTransferViaCoinbase
				diffs[i+1].Kind = types.DiffFeeTransferViaCoinbase
				matched[i], matched[i+1] = true, true
				found = true
				break
			}
		}
		if !found {
			diffs = append(diffs,
				types.AccountDiff{Kind: types.DiffFeeTransferViaCoinbase, PublicKey: t.Receiver, Amount: t.Fee, Update: types.Credit},
				types.AccountDiff{Kind: types.DiffFeeTransferViaCoinbase, PublicKey: coinbaseReceiver, Amount: t.Fee, Update: types.Debit},
			)
		}
	}
	return diffs
}
