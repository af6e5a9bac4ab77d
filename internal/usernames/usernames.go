// Package usernames tracks the optional public-key -> human-readable-name
// association carried in a payment's memo field, grounded on
// store/username.rs (referenced from
// original_source/rust/tests/usernames/mod.rs, which exercises
// block.username_updates()/store.update_usernames()/store.get_username()
// even though username.rs itself fell outside the retrieval pack).
package usernames

import (
	"github.com/posindexer/posindexer/internal/types"
)

// memoUsernamePrefix marks a payment memo as carrying a username rather
// than arbitrary user text (the original encodes this with a leading
// tag byte stripped by the node's memo decoder; we key off a literal
// prefix since the exact tag format fell outside the retrieval pack).
const memoUsernamePrefix = "Name: "

// Update is the set of (public key, username) pairs a single block
// contributes, passed to Table.Apply (or Table.Unapply to undo it).
type Update struct {
	StateHash types.BlockHash
	Set       map[types.PublicKey]string
}

// FromPrecomputedBlock scans a block's applied payments for memo-encoded
// usernames, keyed by the payment's receiver.
func FromPrecomputedBlock(b *types.PrecomputedBlock) Update {
	set := make(map[types.PublicKey]string)
	for _, cmd := range b.AppliedUserCommands() {
		if cmd.Kind != types.CommandPayment || cmd.Memo == "" {
			continue
		}
		if name, ok := decodeUsername(cmd.Memo); ok {
			set[cmd.Receiver] = name
		}
	}
	return Update{StateHash: b.StateHash, Set: set}
}

func decodeUsername(memo string) (string, bool) {
	if len(memo) <= len(memoUsernamePrefix) || memo[:len(memoUsernamePrefix)] != memoUsernamePrefix {
		return "", false
	}
	return memo[len(memoUsernamePrefix):], true
}

// Table is an in-memory public-key -> username index. The engine starts
// it empty and applies each ingested block's Update; it is not loaded
// from or written to the store's `usernames` column family, and the
// engine does not unapply entries on re-org.
type Table struct {
	byPK map[types.PublicKey]string
}

// NewTable returns an empty username table.
func NewTable() *Table {
	return &Table{byPK: make(map[types.PublicKey]string)}
}

// Apply records every (pk, username) pair in u, overwriting prior
// entries for the same key — the original's "most recent wins" rule.
func (t *Table) Apply(u Update) {
	for pk, name := range u.Set {
		t.byPK[pk] = name
	}
}

// Unapply removes every key u.Set names, used when u's block is
// unapplied during a re-org. It does not attempt to restore an older
// username for the same key, mirroring the original's lack of a
// per-update undo log for this table.
func (t *Table) Unapply(u Update) {
	for pk := range u.Set {
		delete(t.byPK, pk)
	}
}

// Get returns the username recorded for pk, if any.
func (t *Table) Get(pk types.PublicKey) (string, bool) {
	name, ok := t.byPK[pk]
	return name, ok
}
