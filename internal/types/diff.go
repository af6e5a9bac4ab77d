package types

// UpdateType tags whether an AccountDiff's amount is a credit or a debit.
// Debit optionally carries the nonce the account should be set to.
type UpdateType int

const (
	Credit UpdateType = iota
	Debit
)

// AccountDiffKind is the closed six-case tagged variant from spec.md §3.
// All dispatch over it is a switch; there is no dynamic dispatch.
type AccountDiffKind int

const (
	DiffPayment AccountDiffKind = iota
	DiffDelegation
	DiffCoinbase
	DiffFeeTransfer
	DiffFeeTransferViaCoinbase
	DiffFailedTransactionNonce
)

// AccountDiff is one atomic account mutation derived from a block. Exactly
// one of the Kind-specific field groups below is meaningful for a given
// Kind; this mirrors the original's enum-of-structs shape flattened into
// one Go struct for simplicity, switched on Kind everywhere it is consumed.
type AccountDiff struct {
	Kind AccountDiffKind

	// Payment, FeeTransfer, FeeTransferViaCoinbase, Coinbase:
	PublicKey PublicKey
	Amount    Amount
	Update    UpdateType
	Nonce     Nonce    // meaningful when Update == Debit
	HasNonce  bool     // Debit(Some(nonce)) vs Debit(None)

	// Delegation:
	Delegator PublicKey
	Delegate  PublicKey

	// FailedTransactionNonce reuses PublicKey + Nonce above.
}

// PaymentCreditDebit returns the [Credit, Debit] pair for a payment/fee
// transfer of kind `kind` moving `amount` from payer to receiver, with the
// debit optionally carrying a post-debit nonce.
func PaymentCreditDebit(kind AccountDiffKind, receiver, payer PublicKey, amount Amount, nonce Nonce, hasNonce bool) [2]AccountDiff {
	return [2]AccountDiff{
		{Kind: kind, PublicKey: receiver, Amount: amount, Update: Credit},
		{Kind: kind, PublicKey: payer, Amount: amount, Update: Debit, Nonce: nonce, HasNonce: hasNonce},
	}
}

// PublicKeyOf returns the primary public key an AccountDiff refers to, used
// by secondary indexes keyed per-account.
func (d AccountDiff) PublicKeyOf() PublicKey {
	if d.Kind == DiffDelegation {
		return d.Delegator
	}
	return d.PublicKey
}

// LedgerDiff is the deterministic derivation of a PrecomputedBlock, per
// spec.md §4.3.
type LedgerDiff struct {
	StateHash           BlockHash
	StagedLedgerHash     LedgerHash
	NewCoinbaseReceiver  bool
	PublicKeysSeen       []PublicKey
	// NewPKBalances is an ordered map (insertion order preserved in NewPKBalanceOrder)
	// feeding the account-creation-fee deduction.
	NewPKBalances     map[PublicKey]Amount
	NewPKBalanceOrder []PublicKey
	AccountDiffs      []AccountDiff
}

// NewLedgerDiff returns an empty diff for the given block identity.
func NewLedgerDiff(stateHash BlockHash, stagedLedgerHash LedgerHash) *LedgerDiff {
	return &LedgerDiff{
		StateHash:        stateHash,
		StagedLedgerHash: stagedLedgerHash,
		NewPKBalances:    make(map[PublicKey]Amount),
	}
}

// AddNewPKBalance records pk -> balance in insertion order.
func (d *LedgerDiff) AddNewPKBalance(pk PublicKey, balance Amount) {
	if _, ok := d.NewPKBalances[pk]; !ok {
		d.NewPKBalanceOrder = append(d.NewPKBalanceOrder, pk)
	}
	d.NewPKBalances[pk] = balance
}
