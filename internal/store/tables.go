// Package store implements the embedded ordered key-value store of
// spec.md §4.1: column families over an MDBX environment, a CBOR+snappy
// record codec, and the append-only event log of §4.2.
//
// Table layout and the constant-with-doc-comment idiom are grounded on
// erigon-lib/kv/tables.go (also mirrored in
// _examples/Irregularshooter-amc/internal/kv/tables.go, confirming the
// convention is stable across the erigon family).
package store

// SchemaVersion is bumped whenever a column family's key or value shape
// changes; stored in the version singleton and checked fatal-on-mismatch
// at open (spec.md §6).
var SchemaVersion = struct{ Major, Minor, Patch uint32 }{Major: 1, Minor: 0, Patch: 0}

// Blocks -
// key   - state_hash (52 bytes)
// value - serialized PrecomputedBlock (cbor, snappy-compressed)
const Blocks = "blocks"

// BlockHeight -
// key - state_hash
// value - u32 BE
const BlockHeight = "block_height"

// BlockGlobalSlot -
// key - state_hash
// value - u32 BE
const BlockGlobalSlot = "block_global_slot"

// BlockParentHash -
// key - state_hash
// value - state_hash
const BlockParentHash = "block_parent_hash"

// BlockGenesis -
// key - state_hash
// value - state_hash
const BlockGenesis = "block_genesis"

// BlockEpoch -
// key - state_hash
// value - u32 BE
const BlockEpoch = "block_epoch"

// BlockCoinbaseReceiver -
// key - state_hash
// value - public_key
const BlockCoinbaseReceiver = "block_coinbase_receiver"

// BlockVersion -
// key - state_hash
// value - serialized version tag
const BlockVersion = "block_version"

// BlockComparison -
// key - state_hash
// value - serialized comparison key, used by tip selection
const BlockComparison = "block_comparison"

// BlocksHeightSort -
// key   - {height BE}{state_hash}
// value - ""
const BlocksHeightSort = "blocks_height_sort"

// BlocksSlotSort -
// key   - {slot BE}{state_hash}
// value - ""
const BlocksSlotSort = "blocks_slot_sort"

// BlocksAtHeight -
// key "{height BE}"      -> count u32 BE
// key "{height}-{n}"     -> state_hash (nth block at height)
const BlocksAtHeight = "blocks_at_height"

// BlocksAtSlot is the slot-indexed analogue of BlocksAtHeight.
const BlocksAtSlot = "blocks_at_slot"

// BlocksAtPK -
// key "{pk}"      -> count (decimal utf-8)
// key "{pk}-{n}"  -> state_hash
const BlocksAtPK = "blocks_at_pk"

// HeightToSlots -
// key - {height BE}
// value - encoded list<u32> of observed slots at that height
const HeightToSlots = "height_to_slots"

// SlotToHeights is the slot-indexed analogue of HeightToSlots.
const SlotToHeights = "slot_to_heights"

// UserCmdsBlock -
// key - state_hash
// value - encoded list of commands
const UserCmdsBlock = "user_cmds_block"

// UserCmd -
// key - txn_hash
// value - signed command
const UserCmd = "user_cmd"

// UserCmdByPK -
// key - public_key
// value - encoded list of hashes
const UserCmdByPK = "user_cmd_by_pk"

// InternalCmds -
// key - state_hash
// value - encoded list
const InternalCmds = "internal_cmds"

// SnarkWork -
// key - state_hash
// value - encoded list
const SnarkWork = "snark_work"

// Canonicity -
// key - state_hash
// value - Canonical | Orphaned (single byte)
const Canonicity = "canonicity"

// CanonicalAtHeight -
// key - {height BE}
// value - state_hash (exactly one canonical block per height)
const CanonicalAtHeight = "canonical_at_height"

// MaxCanonicalHeight (singleton) -> u32 BE
const MaxCanonicalHeight = "max_canonical_height"

// AccountBalance -
// key - public_key
// value - u64 BE, current best-tip balance
const AccountBalance = "account_balance"

// AccountBalanceSort -
// key   - {balance BE}{public_key}
// value - ""
const AccountBalanceSort = "account_balance_sort"

// AccountBalanceUpdates -
// key - state_hash
// value - encoded list of BalanceUpdate, per-block delta used for re-org
const AccountBalanceUpdates = "account_balance_updates"

// BlockProductionPKEpoch -
// key - {epoch BE}{public_key}
// value - u32 BE
const BlockProductionPKEpoch = "block_production_pk_epoch"

// BlockProductionPKTotal -
// key - public_key
// value - u32 BE
const BlockProductionPKTotal = "block_production_pk_total"

// Events -
// key   - {seq BE}
// value - encoded Event, append-only log
const Events = "events"

// LedgersByHash -
// key - ledger_hash
// value - serialized Ledger (snapshot)
const LedgersByHash = "ledgers_by_hash"

// StakingLedgerTable -
// key - "{network}-{epoch}-{hash}"
// value - serialized StakingLedger
const StakingLedgerTable = "staking_ledger"

// Version (singleton) -> {major,minor,patch,git_commit_hash}
const Version = "version"

// Usernames -
// key - public_key
// value - username (utf-8), see SPEC_FULL.md SUPPLEMENTED FEATURES
const Usernames = "usernames"

// Singletons is the reserved-namespace key set (best-tip hash,
// num_accounts, num_blocks, next event sequence) stored inside a
// dedicated `singletons` column family.
const Singletons = "singletons"

const (
	SingletonBestTip      = "best_tip"
	SingletonCanonicalTip = "canonical_tip"
	SingletonNumAccounts  = "num_accounts"
	SingletonNumBlocks    = "num_blocks"
	SingletonNextEventSeq = "next_event_seq"
)

// AllTables lists every column family the store opens at startup.
var AllTables = []string{
	Blocks, BlockHeight, BlockGlobalSlot, BlockParentHash, BlockGenesis,
	BlockEpoch, BlockCoinbaseReceiver, BlockVersion, BlockComparison,
	BlocksHeightSort, BlocksSlotSort, BlocksAtHeight, BlocksAtSlot, BlocksAtPK,
	HeightToSlots, SlotToHeights, UserCmdsBlock, UserCmd, UserCmdByPK,
	InternalCmds, SnarkWork, Canonicity, CanonicalAtHeight, MaxCanonicalHeight,
	AccountBalance, AccountBalanceSort, AccountBalanceUpdates,
	BlockProductionPKEpoch, BlockProductionPKTotal, Events, LedgersByHash,
	StakingLedgerTable, Version, Usernames, Singletons,
}
