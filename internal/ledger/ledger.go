// Package ledger implements the account-ledger apply/unapply engine of
// spec.md §4.4, grounded on
// _examples/original_source/rust/src/ledger/mod.rs `_apply_diff`/
// `_unapply_diff`.
package ledger

import (
	"github.com/posindexer/posindexer/internal/chainid"
	"github.com/posindexer/posindexer/internal/diff"
	"github.com/posindexer/posindexer/internal/indexererr"
	"github.com/posindexer/posindexer/internal/types"
)

// AccountCreationFee is MAINNET_ACCOUNT_CREATION_FEE, deducted from every
// newly created account once per block.
const AccountCreationFee = types.Amount(chainid.MainnetAccountCreationFee)

// Apply mutates l in place per d and returns the per-account
// types.BalanceUpdate list the caller should persist to the
// account_balance_updates column family (spec.md §4.5). On error l is left
// in whatever partial state the failing diff produced; callers must abort
// the surrounding batch.
func Apply(l *types.Ledger, d *types.LedgerDiff) ([]types.BalanceUpdate, error) {
	preScan(l, d)

	var updates []types.BalanceUpdate
	for _, ad := range d.AccountDiffs {
		u, err := applyOne(l, ad)
		if err != nil {
			return nil, err
		}
		updates = append(updates, u)
	}

	for _, pk := range d.NewPKBalanceOrder {
		acc, ok := l.Get(pk)
		if !ok {
			continue
		}
		before := acc.Balance
		acc.Balance = acc.Balance.Sub(AccountCreationFee)
		updates = append(updates, types.BalanceUpdate{PublicKey: pk, Delta: before.Sub(acc.Balance), Negative: true})
	}

	return updates, nil
}

// preScan ensures every account a diff references exists, matching the
// original's pre-scan-then-dispatch structure.
func preScan(l *types.Ledger, d *types.LedgerDiff) {
	for _, ad := range d.AccountDiffs {
		switch ad.Kind {
		case types.DiffCoinbase:
			l.GetOrCreate(ad.PublicKey)
		case types.DiffDelegation:
			l.GetOrCreate(ad.Delegator)
		}
	}
}

func applyOne(l *types.Ledger, ad types.AccountDiff) (types.BalanceUpdate, error) {
	switch ad.Kind {
	case types.DiffPayment, types.DiffFeeTransfer, types.DiffFeeTransferViaCoinbase:
		return applyPaymentLike(l, ad)
	case types.DiffCoinbase:
		acc := l.GetOrCreate(ad.PublicKey)
		acc.Balance = acc.Balance.Add(ad.Amount)
		return types.BalanceUpdate{PublicKey: ad.PublicKey, Delta: ad.Amount, CreateAccount: true}, nil
	case types.DiffDelegation:
		acc, ok := l.Get(ad.Delegator)
		if !ok {
			return types.BalanceUpdate{}, indexererr.Wrapf(indexererr.ErrInvalidDelegation, "delegator %s not found", ad.Delegator)
		}
		if acc.PublicKey != ad.Delegator {
			return types.BalanceUpdate{}, indexererr.Wrapf(indexererr.ErrInvalidDelegation, "account %s != delegator %s", acc.PublicKey, ad.Delegator)
		}
		prev := acc.Delegate
		prevNonce := acc.Nonce
		acc.Delegate = ad.Delegate
		acc.Nonce = ad.Nonce
		return types.BalanceUpdate{PublicKey: ad.Delegator, IsDelegation: true, PrevDelegate: prev, HasPrevDelegate: true, NewDelegate: ad.Delegate,
			HasNonceStep: true, PrevNonce: prevNonce, NewNonce: ad.Nonce}, nil
	case types.DiffFailedTransactionNonce:
		acc, ok := l.Get(ad.PublicKey)
		if !ok {
			return types.BalanceUpdate{}, indexererr.Wrapf(indexererr.ErrAccountNotFound, "account %s not found", ad.PublicKey)
		}
		prevNonce := acc.Nonce
		acc.Nonce = ad.Nonce
		return types.BalanceUpdate{PublicKey: ad.PublicKey, HasNonceStep: true, PrevNonce: prevNonce, NewNonce: ad.Nonce}, nil
	}
	return types.BalanceUpdate{}, indexererr.Wrapf(indexererr.ErrInvariantViolation, "unknown diff kind %d", ad.Kind)
}

func applyPaymentLike(l *types.Ledger, ad types.AccountDiff) (types.BalanceUpdate, error) {
	acc, ok := l.Get(ad.PublicKey)
	if !ok {
		return types.BalanceUpdate{}, indexererr.Wrapf(indexererr.ErrAccountNotFound, "account %s not found", ad.PublicKey)
	}
	switch ad.Update {
	case types.Credit:
		before := acc.Balance
		acc.Balance = acc.Balance.Add(ad.Amount)
		return types.BalanceUpdate{PublicKey: ad.PublicKey, Delta: acc.Balance.Sub(before)}, nil
	case types.Debit:
		before := acc.Balance
		prevNonce := acc.Nonce
		acc.Balance = acc.Balance.Sub(ad.Amount)
		u := types.BalanceUpdate{PublicKey: ad.PublicKey, Delta: before.Sub(acc.Balance), Negative: true}
		if ad.HasNonce {
			acc.Nonce = ad.Nonce
			u.HasNonceStep = true
			u.PrevNonce = prevNonce
			u.NewNonce = ad.Nonce
		}
		return u, nil
	}
	return types.BalanceUpdate{}, indexererr.Wrapf(indexererr.ErrInvariantViolation, "unknown update type %d", ad.Update)
}

// Unapply is the strict inverse of Apply: credits become debits and vice
// versa, delegation restores the previous delegate and nonce from updates,
// and FailedTransactionNonce restores the prior nonce. A create-account diff
// whose unapply balance reaches zero removes the account.
func Unapply(l *types.Ledger, d *types.LedgerDiff, updates []types.BalanceUpdate) error {
	for _, pk := range d.NewPKBalanceOrder {
		if acc, ok := l.Get(pk); ok {
			acc.Balance = acc.Balance.Add(AccountCreationFee)
		}
	}

	for i := len(d.AccountDiffs) - 1; i >= 0; i-- {
		ad := d.AccountDiffs[i]
		u := updates[i]
		if err := unapplyOne(l, ad, u); err != nil {
			return err
		}
	}
	return nil
}

func unapplyOne(l *types.Ledger, ad types.AccountDiff, u types.BalanceUpdate) error {
	switch ad.Kind {
	case types.DiffPayment, types.DiffFeeTransfer, types.DiffFeeTransferViaCoinbase:
		acc, ok := l.Get(ad.PublicKey)
		if !ok {
			return indexererr.Wrapf(indexererr.ErrAccountNotFound, "account %s not found on unapply", ad.PublicKey)
		}
		if ad.Update == types.Credit {
			acc.Balance = acc.Balance.Sub(ad.Amount)
		} else {
			acc.Balance = acc.Balance.Add(ad.Amount)
			if u.HasNonceStep {
				acc.Nonce = u.PrevNonce
			}
		}
		return nil
	case types.DiffCoinbase:
		acc, ok := l.Get(ad.PublicKey)
		if !ok {
			return nil
		}
		acc.Balance = acc.Balance.Sub(ad.Amount)
		if acc.Balance == 0 && u.CreateAccount {
			l.Remove(ad.PublicKey)
		}
		return nil
	case types.DiffDelegation:
		acc, ok := l.Get(ad.Delegator)
		if !ok {
			return indexererr.Wrapf(indexererr.ErrInvalidDelegation, "delegator %s not found on unapply", ad.Delegator)
		}
		if u.HasPrevDelegate {
			acc.Delegate = u.PrevDelegate
		}
		if u.HasNonceStep {
			acc.Nonce = u.PrevNonce
		}
		return nil
	case types.DiffFailedTransactionNonce:
		acc, ok := l.Get(ad.PublicKey)
		if !ok {
			return indexererr.Wrapf(indexererr.ErrAccountNotFound, "account %s not found on unapply", ad.PublicKey)
		}
		if u.HasNonceStep {
			acc.Nonce = u.PrevNonce
		}
		return nil
	}
	return indexererr.Wrapf(indexererr.ErrInvariantViolation, "unknown diff kind %d", ad.Kind)
}

// ApplyFromPrecomputed derives the block's diff and applies it, per
// spec.md §4.4 `apply_from_precomputed`.
func ApplyFromPrecomputed(l *types.Ledger, block *types.PrecomputedBlock) (*types.LedgerDiff, []types.BalanceUpdate, error) {
	d := diff.FromPrecomputedBlock(block)
	updates, err := Apply(l, d)
	if err != nil {
		return nil, nil, err
	}
	return d, updates, nil
}
