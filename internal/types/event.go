package types

// EventKind tags the variant of an append-only Event record.
type EventKind int

const (
	EventNewBlock EventKind = iota
	EventNewBestTip
	EventCanonicalUpdate
	EventPruneRoot
	EventStakingLedgerAdded
)

// Event is one entry of the append-only event log. Only the fields
// meaningful for Kind are populated.
type Event struct {
	Seq  uint64
	Kind EventKind

	StateHash BlockHash // NewBlock, NewBestTip, CanonicalUpdate, PruneRoot
	Height    uint32    // CanonicalUpdate, PruneRoot

	LedgerHash LedgerHash // StakingLedgerAdded
	Epoch      uint32     // StakingLedgerAdded
	Network    string     // StakingLedgerAdded
}
