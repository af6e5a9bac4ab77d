package witness

import (
	"go.uber.org/zap"

	"github.com/posindexer/posindexer/internal/canonicity"
	"github.com/posindexer/posindexer/internal/diff"
	"github.com/posindexer/posindexer/internal/indexererr"
	"github.com/posindexer/posindexer/internal/ledger"
	"github.com/posindexer/posindexer/internal/types"
)

// WitnessTree is the indexer's in-memory representation of all candidate
// chains reachable from the current canonical prefix (spec.md §3/§4.6).
type WitnessTree struct {
	cfg      canonicity.Config
	root     *Branch
	dangling []*Branch

	bestTipID      NodeID
	canonicalTipID NodeID

	diffsMap map[types.BlockHash]*types.LedgerDiff
	// balanceUpdates caches the per-block delta the first time a block is
	// applied to BestLedger; re-orgs over already-visited blocks reuse it
	// instead of re-running the diff engine (see DESIGN.md).
	balanceUpdates map[types.BlockHash][]types.BalanceUpdate

	BestLedger *types.Ledger

	genesisHashes map[types.BlockHash]bool

	Events  []types.Event
	nextSeq uint64

	log *zap.SugaredLogger
}

// NewWitnessTree returns a tree rooted at genesis.
func NewWitnessTree(genesis *types.PrecomputedBlock, cfg canonicity.Config, genesisHashes []types.BlockHash, log *zap.SugaredLogger) (*WitnessTree, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	t := &WitnessTree{
		cfg:            cfg,
		root:           NewBranch(genesis),
		diffsMap:       make(map[types.BlockHash]*types.LedgerDiff),
		balanceUpdates: make(map[types.BlockHash][]types.BalanceUpdate),
		BestLedger:     types.NewLedger(),
		genesisHashes:  make(map[types.BlockHash]bool),
		log:            log,
	}
	for _, h := range genesisHashes {
		t.genesisHashes[h] = true
	}
	t.genesisHashes[genesis.StateHash] = true
	t.bestTipID = t.root.RootID()
	t.canonicalTipID = t.root.RootID()

	d := diff.FromPrecomputedBlock(genesis)
	t.diffsMap[genesis.StateHash] = d
	updates, err := ledger.Apply(t.BestLedger, d)
	if err != nil {
		return nil, indexererr.Wrap(err, "applying genesis diff")
	}
	t.balanceUpdates[genesis.StateHash] = updates
	t.appendEvent(types.Event{Kind: types.EventNewBlock, StateHash: genesis.StateHash})
	return t, nil
}

// BestTip returns the current best-tip state hash.
func (t *WitnessTree) BestTip() types.BlockHash { return t.root.nodes[t.bestTipID].Block.Block.StateHash }

// CanonicalTip returns the current canonical-tip state hash.
func (t *WitnessTree) CanonicalTip() types.BlockHash {
	return t.root.nodes[t.canonicalTipID].Block.Block.StateHash
}

// Diff returns the cached LedgerDiff for hash, if known.
func (t *WitnessTree) Diff(hash types.BlockHash) (*types.LedgerDiff, bool) {
	d, ok := t.diffsMap[hash]
	return d, ok
}

func (t *WitnessTree) appendEvent(e types.Event) {
	e.Seq = t.nextSeq
	t.nextSeq++
	t.Events = append(t.Events, e)
}

// Ingest is the witness tree's single public mutation entrypoint,
// implementing spec.md §4.6 steps 1-8.
func (t *WitnessTree) Ingest(block *types.PrecomputedBlock) error {
	hash := block.StateHash
	parent := block.PreviousStateHash

	// Step 1: duplicate.
	if _, ok := t.root.Has(hash); ok {
		return nil
	}
	for _, br := range t.dangling {
		if _, ok := br.Has(hash); ok {
			return nil
		}
	}

	t.diffsMap[hash] = diff.FromPrecomputedBlock(block)

	if parentID, ok := t.root.Has(parent); ok {
		// Step 2: extend root.
		t.root.AddChild(parentID, block)
	} else {
		attached := false
		for _, br := range t.dangling {
			if parentID, ok := br.Has(parent); ok {
				// Step 3: extend dangling.
				br.AddChild(parentID, block)
				attached = true
				break
			}
		}
		if !attached {
			// Step 4: new dangling branch.
			t.dangling = append(t.dangling, NewBranch(block))
		}
	}

	t.appendEvent(types.Event{Kind: types.EventNewBlock, StateHash: hash})

	// Step 5: merge dangling branches into the root (may chain).
	t.mergeDangling()

	// Step 6: best-tip update.
	if err := t.updateBestTip(); err != nil {
		return err
	}

	// Step 7: canonicity.
	if err := t.promoteCanonical(); err != nil {
		return err
	}

	// Step 8: pruning.
	t.prune()

	return nil
}

// mergeDangling splices any dangling branch whose root's parent is now
// known (in the root branch, or in another dangling branch) into its
// parent, chaining until no further splice is possible.
func (t *WitnessTree) mergeDangling() {
	for {
		progressed := false
		remaining := t.dangling[:0:0]
		for _, br := range t.dangling {
			parentHash := br.Root().Block.Block.PreviousStateHash
			if parentID, ok := t.root.Has(parentHash); ok {
				t.root.Splice(parentID, br)
				progressed = true
				continue
			}
			spliced := false
			for _, other := range t.dangling {
				if other == br {
					continue
				}
				if parentID, ok := other.Has(parentHash); ok {
					other.Splice(parentID, br)
					progressed = true
					spliced = true
					break
				}
			}
			if !spliced {
				remaining = append(remaining, br)
			}
		}
		t.dangling = remaining
		if !progressed {
			return
		}
	}
}

// updateBestTip implements spec.md §4.6 step 6: choose the best leaf of
// the root branch by (a) longer chain length, (b) larger BlockComparison,
// (c) lexicographically greater state hash.
func (t *WitnessTree) updateBestTip() error {
	var bestID NodeID
	var best *Node
	for _, id := range t.root.Leaves() {
		n, _ := t.root.Get(id)
		if best == nil || leafBetter(n, best) {
			best, bestID = n, id
		}
	}
	if bestID == t.bestTipID {
		return nil
	}
	oldTipID := t.bestTipID
	t.bestTipID = bestID
	t.appendEvent(types.Event{Kind: types.EventNewBestTip, StateHash: best.Block.Block.StateHash})
	return t.reorg(oldTipID, bestID)
}

func leafBetter(candidate, current *Node) bool {
	if candidate.Block.HeightInTree != current.Block.HeightInTree {
		return candidate.Block.HeightInTree > current.Block.HeightInTree
	}
	if candidate.Block.Block.BlockComparison != current.Block.Block.BlockComparison {
		return candidate.Block.Block.BlockComparison > current.Block.Block.BlockComparison
	}
	return candidate.Block.Block.StateHash > current.Block.Block.StateHash
}

// reorg implements spec.md §4.7: walk the old and new tip's ancestor
// chains to their common ancestor and replay balance updates through the
// ledger engine.
func (t *WitnessTree) reorg(oldTipID, newTipID NodeID) error {
	oldAnc := t.root.Ancestors(oldTipID)
	newAnc := t.root.Ancestors(newTipID)

	inOld := make(map[NodeID]int, len(oldAnc))
	for i, n := range oldAnc {
		inOld[n.ID] = i
	}
	lcaIdxInNew := -1
	for i, n := range newAnc {
		if _, ok := inOld[n.ID]; ok {
			lcaIdxInNew = i
			break
		}
	}
	lcaID := newAnc[lcaIdxInNew].ID
	lcaIdxInOld := inOld[lcaID]

	oldSide := make([]canonicity.PathNode, 0, lcaIdxInOld)
	for _, n := range oldAnc[:lcaIdxInOld] {
		oldSide = append(oldSide, canonicity.PathNode{Hash: n.Block.Block.StateHash, Updates: t.balanceUpdates[n.Block.Block.StateHash]})
	}
	newSide := make([]canonicity.PathNode, 0, lcaIdxInNew)
	for _, n := range newAnc[:lcaIdxInNew] {
		newSide = append(newSide, canonicity.PathNode{Hash: n.Block.Block.StateHash})
	}

	// Unapply the old side first (tip-first order matches Ledger.Unapply's
	// expected per-diff update slice).
	for _, n := range oldSide {
		d := t.diffsMap[n.Hash]
		if err := ledger.Unapply(t.BestLedger, d, t.balanceUpdates[n.Hash]); err != nil {
			return indexererr.Wrapf(err, "unapplying block %s during reorg", n.Hash)
		}
	}
	// Apply the new side oldest-first, computing (and caching) balance
	// updates the first time each block is visited.
	for i := len(newSide) - 1; i >= 0; i-- {
		hash := newSide[i].Hash
		d := t.diffsMap[hash]
		updates, ok := t.balanceUpdates[hash]
		if !ok {
			var err error
			updates, err = ledger.Apply(t.BestLedger, d)
			if err != nil {
				return indexererr.Wrapf(err, "applying block %s during reorg", hash)
			}
			t.balanceUpdates[hash] = updates
		} else {
			if _, err := ledger.Apply(t.BestLedger, d); err != nil {
				return indexererr.Wrapf(err, "re-applying block %s during reorg", hash)
			}
		}
	}
	return nil
}

// promoteCanonical implements spec.md §4.6 step 7.
func (t *WitnessTree) promoteCanonical() error {
	tip, _ := t.root.Get(t.bestTipID)
	canonical, _ := t.root.Get(t.canonicalTipID)
	if tip.Block.HeightInTree < canonical.Block.HeightInTree+t.cfg.CanonicalUpdateThreshold {
		return nil
	}

	anc := t.root.Ancestors(t.bestTipID)
	if len(anc) <= int(t.cfg.CanonicalThreshold) {
		return nil
	}
	newCanonicalID := anc[t.cfg.CanonicalThreshold].ID
	newCanonical, _ := t.root.Get(newCanonicalID)
	if newCanonical.Block.HeightInTree <= canonical.Block.HeightInTree {
		return nil
	}

	t.canonicalTipID = newCanonicalID
	t.appendEvent(types.Event{Kind: types.EventCanonicalUpdate, StateHash: newCanonical.Block.Block.StateHash, Height: newCanonical.Block.Block.BlockchainLength})

	if newCanonical.Block.Block.BlockchainLength%t.cfg.LedgerCadence == 0 {
		t.log.Infow("ledger snapshot due", "height", newCanonical.Block.Block.BlockchainLength, "ledgerHash", newCanonical.Block.Block.StagedLedgerHash)
	}
	return nil
}

// prune implements spec.md §4.6 step 8.
func (t *WitnessTree) prune() {
	canonical, _ := t.root.Get(t.canonicalTipID)
	root := t.root.Root()
	if canonical.Block.HeightInTree <= root.Block.HeightInTree+t.cfg.PruneInterval {
		return
	}
	anc := t.root.Ancestors(t.canonicalTipID)
	var newRootID NodeID = t.root.RootID()
	for _, n := range anc {
		if canonical.Block.HeightInTree-n.Block.HeightInTree <= t.cfg.PruneInterval {
			newRootID = n.ID
		} else {
			break
		}
	}
	if newRootID == t.root.RootID() {
		return
	}
	t.root.PruneBelow(newRootID)
	t.appendEvent(types.Event{Kind: types.EventPruneRoot, StateHash: t.root.Root().Block.Block.StateHash, Height: t.root.Root().Block.Block.BlockchainLength})

	cutoff := canonical.Block.HeightInTree
	kept := t.dangling[:0:0]
	for _, br := range t.dangling {
		allBelow := true
		for _, n := range br.BFSOrder() {
			if cutoff < n.Block.HeightInTree || cutoff-n.Block.HeightInTree <= t.cfg.PruneInterval {
				allBelow = false
				break
			}
		}
		if !allBelow {
			kept = append(kept, br)
		}
	}
	t.dangling = kept
}
