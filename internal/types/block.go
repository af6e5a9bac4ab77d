package types

// CommandStatus is whether a user command was applied or failed on-chain.
type CommandStatus int

const (
	StatusApplied CommandStatus = iota
	StatusFailed
)

// CommandKind distinguishes a payment from a delegation within a user
// command — the two shapes the diff engine dispatches on.
type CommandKind int

const (
	CommandPayment CommandKind = iota
	CommandDelegation
)

// UserCommand is one signed transaction embedded in a precomputed block.
type UserCommand struct {
	Kind      CommandKind
	Status    CommandStatus
	Hash      string
	FeePayer  PublicKey
	Source    PublicKey
	Receiver  PublicKey
	Delegate  PublicKey // set when Kind == CommandDelegation
	Amount    Amount
	Fee       Amount
	Nonce     Nonce
	Memo      string // base58-decoded memo text, may encode a username (SUPPLEMENTED FEATURES)
}

// CoinbaseFeeTransfer is a fee transfer riding along with the coinbase,
// named `receiver`/`fee` to match the original ledger/coinbase.rs shape.
type CoinbaseFeeTransfer struct {
	Receiver PublicKey
	Fee      Amount
}

// CoinbaseKind mirrors the original's Zero | One | Two variant.
type CoinbaseKind int

const (
	CoinbaseZero CoinbaseKind = iota
	CoinbaseOne
	CoinbaseTwo
)

// InternalCommand is a block's coinbase record: kind plus zero, one, or two
// attached fee transfers (nil entries mean "not present").
type InternalCommand struct {
	Kind         CoinbaseKind
	Receiver     PublicKey
	Supercharge  bool
	FeeTransfer0 *CoinbaseFeeTransfer
	FeeTransfer1 *CoinbaseFeeTransfer
}

// SnarkWorkEntry is one unit of off-chain proof work paid a fee.
type SnarkWorkEntry struct {
	Prover PublicKey
	Fee    Amount
}

// PrecomputedBlock is the core's opaque view of a PCB: only the accessors
// the diff engine and witness tree need are modeled.
type PrecomputedBlock struct {
	StateHash             BlockHash
	PreviousStateHash     BlockHash
	BlockchainLength       uint32 // height
	GlobalSlotSinceGenesis uint32
	EpochCount             uint32
	GenesisStateHash       BlockHash
	Creator                PublicKey
	CoinbaseReceiver       PublicKey
	CoinbaseReceiverBalance Amount
	StagedLedgerHash       LedgerHash
	TimestampMillis        int64
	SuperchargeCoinbase    bool

	// AccountsCreated maps a newly-created public key to its resulting
	// balance; drives the account-creation-fee deduction.
	AccountsCreated map[PublicKey]Amount
	// NewCoinbaseReceiver is set when the coinbase created its receiver
	// account.
	NewCoinbaseReceiver bool

	UserCommands []UserCommand
	// InternalCommandsPreDiff / PostDiff are the staged-ledger pre- and
	// post-diff coinbase records (post may be absent -> nil).
	InternalCommandsPreDiff  *InternalCommand
	InternalCommandsPostDiff *InternalCommand

	SnarkWorkPreDiff  []SnarkWorkEntry
	SnarkWorkPostDiff []SnarkWorkEntry

	// BlockComparison is an opaque tie-break key used by best-tip
	// selection (spec.md §4.6 step 6b); larger compares as "better".
	BlockComparison uint64

	// VersionTag distinguishes the V1/V2 PCB schema (spec.md §9); the
	// core never interprets it beyond storing it in block_version.
	VersionTag uint8
}

// AppliedUserCommands returns the subset of UserCommands with StatusApplied.
func (b *PrecomputedBlock) AppliedUserCommands() []UserCommand {
	out := make([]UserCommand, 0, len(b.UserCommands))
	for _, c := range b.UserCommands {
		if c.Status == StatusApplied {
			out = append(out, c)
		}
	}
	return out
}

// FailedUserCommands returns the subset of UserCommands with StatusFailed.
func (b *PrecomputedBlock) FailedUserCommands() []UserCommand {
	out := make([]UserCommand, 0, len(b.UserCommands))
	for _, c := range b.UserCommands {
		if c.Status == StatusFailed {
			out = append(out, c)
		}
	}
	return out
}
