package types

// StakingAccount is one entry of a per-epoch staking ledger snapshot.
type StakingAccount struct {
	PublicKey PublicKey
	Balance   Amount
	Delegate  PublicKey
	Username  string
}

// StakingLedger is a per-epoch snapshot used for stake-weighted selection.
type StakingLedger struct {
	Epoch            uint32
	Network          string
	LedgerHash       LedgerHash
	GenesisStateHash BlockHash
	TotalCurrency    Amount
	Accounts         map[PublicKey]*StakingAccount
}

// NewStakingLedger returns an empty staking ledger for the given identity.
func NewStakingLedger(epoch uint32, network string, ledgerHash LedgerHash, genesisStateHash BlockHash) *StakingLedger {
	return &StakingLedger{
		Epoch:            epoch,
		Network:          network,
		LedgerHash:       ledgerHash,
		GenesisStateHash: genesisStateHash,
		Accounts:         make(map[PublicKey]*StakingAccount),
	}
}
