package types

// WitnessBlock pairs a PrecomputedBlock with its root-relative depth inside
// the branch that holds it.
type WitnessBlock struct {
	Block         *PrecomputedBlock
	HeightInTree  uint32
}

// BalanceUpdate is one signed per-account delta recorded for a block. The
// witness tree keeps each block's list in memory and hands it to
// ledger.Unapply on re-org; no code writes it to the
// account_balance_updates column family.
type BalanceUpdate struct {
	PublicKey PublicKey
	// Delta is the signed balance change; negative deltas are represented
	// with Negative=true since Amount is unsigned.
	Delta    Amount
	Negative bool

	// CreateAccount / RemoveAccount adjust the num_accounts counter.
	CreateAccount bool
	RemoveAccount bool

	// PrevDelegate is the account's delegate before this update, recorded
	// so that Unapply can restore it exactly (spec.md §9 open question).
	PrevDelegate    PublicKey
	HasPrevDelegate bool
	NewDelegate     PublicKey
	IsDelegation    bool

	// PrevNonce/NewNonce let Unapply restore the prior nonce exactly for
	// every diff that sets one (a Debit carrying a nonce, a Delegation, a
	// FailedTransactionNonce).
	PrevNonce    Nonce
	NewNonce     Nonce
	HasNonceStep bool
}

// BalanceUpdateSet is the shape of one account_balance_updates row, a
// block's balance-update list; nothing in this repository writes that CF.
type BalanceUpdateSet struct {
	StateHash BlockHash
	Updates   []BalanceUpdate
}

// Invert returns the signed-negated update, used by the re-org resolver
// when walking back through the old best-tip path (spec.md §4.5, §4.7).
func (u BalanceUpdate) Invert() BalanceUpdate {
	inv := u
	inv.Negative = !u.Negative
	inv.CreateAccount, inv.RemoveAccount = u.RemoveAccount, u.CreateAccount
	if u.IsDelegation {
		inv.PrevDelegate, inv.NewDelegate = u.NewDelegate, u.PrevDelegate
		inv.HasPrevDelegate = true
	}
	if u.HasNonceStep {
		inv.PrevNonce, inv.NewNonce = u.NewNonce, u.PrevNonce
	}
	return inv
}
