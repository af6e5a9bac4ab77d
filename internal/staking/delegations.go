// Package staking computes aggregate views over a per-epoch staking
// ledger snapshot: total currency, delegate/delegator relationships, and
// stake-weighted percentages, grounded on
// original_source/rust/src/ledger/staking/mod.rs.
package staking

import (
	"fmt"

	"github.com/posindexer/posindexer/internal/types"
)

// EpochStakeDelegation is one delegate's aggregated incoming stake: how
// many accounts delegate to pk and the total balance they bring.
type EpochStakeDelegation struct {
	PublicKey      types.PublicKey
	CountDelegates uint32
	TotalDelegated types.Amount
	HasAggregation bool // false for accounts that delegate out rather than receive delegations
}

// AggregatedEpochStakeDelegations is the per-epoch delegation summary of a
// StakingLedger, mirroring aggregate_delegations in the original.
type AggregatedEpochStakeDelegations struct {
	Epoch            uint32
	Network          string
	LedgerHash       types.LedgerHash
	GenesisStateHash types.BlockHash
	Delegations      map[types.PublicKey]EpochStakeDelegation
	TotalDelegations types.Amount
}

// AggregateDelegations groups every staking account by its delegate and
// sums the delegated balance, matching the original's two-pass algorithm:
// an account that delegates to someone else cannot itself receive
// delegations (HasAggregation stays false), and self-delegating accounts
// accumulate incoming stake under their own key.
func AggregateDelegations(sl *types.StakingLedger) AggregatedEpochStakeDelegations {
	delegations := make(map[types.PublicKey]EpochStakeDelegation, len(sl.Accounts))
	delegatesOut := make(map[types.PublicKey]bool, len(sl.Accounts))

	for pk, acc := range sl.Accounts {
		if pk != acc.Delegate {
			delegatesOut[pk] = true
		}
	}

	for _, acc := range sl.Accounts {
		d := delegations[acc.Delegate]
		d.PublicKey = acc.Delegate
		d.TotalDelegated += acc.Balance
		d.CountDelegates++
		d.HasAggregation = true
		delegations[acc.Delegate] = d
	}

	// an account that itself delegates out cannot be reported as a
	// delegate-receiver, even if others named it as their delegate.
	for pk := range delegatesOut {
		if d, ok := delegations[pk]; ok && d.PublicKey == pk {
			delete(delegations, pk)
		}
	}

	for pk := range sl.Accounts {
		if _, ok := delegations[pk]; !ok {
			delegations[pk] = EpochStakeDelegation{PublicKey: pk}
		}
	}
	var total types.Amount
	for _, d := range delegations {
		total += d.TotalDelegated
	}

	return AggregatedEpochStakeDelegations{
		Epoch:            sl.Epoch,
		Network:          sl.Network,
		LedgerHash:       sl.LedgerHash,
		GenesisStateHash: sl.GenesisStateHash,
		Delegations:      delegations,
		TotalDelegations: total,
	}
}

// StakePercentage returns pk's share of the ledger's total currency, in
// the range [0,1], used for stake-weighted VRF eligibility reporting.
func StakePercentage(sl *types.StakingLedger, pk types.PublicKey) float64 {
	acc, ok := sl.Accounts[pk]
	if !ok || sl.TotalCurrency == 0 {
		return 0
	}
	return float64(acc.Balance) / float64(sl.TotalCurrency)
}

// Summary renders the one-line "(epoch N): ledger_hash" identity string
// printed by the `staking-summary` command; it carries no delegation
// totals.
func Summary(sl *types.StakingLedger) string {
	return fmt.Sprintf("(epoch %d): %s", sl.Epoch, sl.LedgerHash)
}
