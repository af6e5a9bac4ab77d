// Package canonicity implements the re-org path-diff algorithm of
// spec.md §4.7: given the tip-to-common-ancestor path on the old and new
// sides of a best-tip change, compute the apply/unapply balance-update
// sequences the ledger engine should feed through §4.5.
//
// The package is deliberately tree-agnostic: internal/witness walks its
// own branch to produce the two PathNode slices (tip-first, excluding the
// common ancestor), and this package only merges their BalanceUpdate
// lists in the right order. That keeps the resolver a pure function,
// matching spec.md §4.7's pseudocode.
package canonicity

import "github.com/posindexer/posindexer/internal/types"

// PathNode is one block on a re-org path: its hash (for logging) and its
// previously-recorded per-block balance updates.
type PathNode struct {
	Hash    types.BlockHash
	Updates []types.BalanceUpdate
}

// Resolve computes the apply/unapply update sequences per spec.md §4.7.
//
// oldSide is old_tip's path up to (excluding) the common ancestor,
// tip-first. newSide is new_tip's path, same shape. apply is returned
// oldest-first for forward replay; unapply is returned tip-first (the
// natural undo order).
func Resolve(oldSide, newSide []PathNode) (apply, unapply []types.BalanceUpdate) {
	for _, n := range oldSide {
		unapply = append(unapply, n.Updates...)
	}
	for i := len(newSide) - 1; i >= 0; i-- {
		apply = append(apply, newSide[i].Updates...)
	}
	return apply, unapply
}
