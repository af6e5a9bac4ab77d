package witness

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/posindexer/posindexer/internal/canonicity"
	"github.com/posindexer/posindexer/internal/types"
)

func block(hash, prev string, height uint32) *types.PrecomputedBlock {
	return &types.PrecomputedBlock{
		StateHash:         types.BlockHash(hash),
		PreviousStateHash: types.BlockHash(prev),
		BlockchainLength:  height,
		CoinbaseReceiver:  types.PublicKey("producer"),
		BlockComparison:   uint64(height),
	}
}

func testConfig() canonicity.Config {
	return canonicity.Config{TransitionFrontierK: 20, PruneInterval: 10, CanonicalThreshold: 5, CanonicalUpdateThreshold: 2, LedgerCadence: 100}
}

func newTestTree(t *testing.T) *WitnessTree {
	t.Helper()
	genesis := block("3Ngenesis000000000000000000000000000000000000000000", "", 0)
	tree, err := NewWitnessTree(genesis, testConfig(), nil, zap.NewNop().Sugar())
	require.NoError(t, err)
	return tree
}

func TestIngestExtendsRootAndUpdatesBestTip(t *testing.T) {
	tree := newTestTree(t)
	b1 := block("3Nblock000000000000000000000000000000000000000000001", "3Ngenesis000000000000000000000000000000000000000000", 1)
	require.NoError(t, tree.Ingest(b1))
	require.Equal(t, b1.StateHash, tree.BestTip())
}

func TestIngestDuplicateIsNoOp(t *testing.T) {
	tree := newTestTree(t)
	b1 := block("3Nblock000000000000000000000000000000000000000000001", "3Ngenesis000000000000000000000000000000000000000000", 1)
	require.NoError(t, tree.Ingest(b1))
	tipBefore := tree.BestTip()
	require.NoError(t, tree.Ingest(b1))
	require.Equal(t, tipBefore, tree.BestTip())
}

func TestIngestDanglingThenMerge(t *testing.T) {
	tree := newTestTree(t)
	// b2's parent b1 is not yet known: starts a dangling branch.
	b1hash := "3Nblock000000000000000000000000000000000000000000001"
	b2 := block("3Nblock000000000000000000000000000000000000000000002", b1hash, 2)
	require.NoError(t, tree.Ingest(b2))
	require.Len(t, tree.dangling, 1)

	b1 := block(b1hash, "3Ngenesis000000000000000000000000000000000000000000", 1)
	require.NoError(t, tree.Ingest(b1))
	require.Empty(t, tree.dangling, "dangling branch should merge into root once its parent is known")
	require.Equal(t, types.BlockHash(b2.StateHash), tree.BestTip())
}

func TestCanonicalPromotion(t *testing.T) {
	tree := newTestTree(t)
	prev := "3Ngenesis000000000000000000000000000000000000000000"
	// c=5, u=2 -> after c+u+1=8 blocks the canonical tip should have
	// advanced (spec.md §8 S4, scaled to this test's thresholds).
	for i := 1; i <= 8; i++ {
		hash := fmt.Sprintf("3Nblock0000000000000000000000000000000000000000%05d", i)
		b := block(hash, prev, uint32(i))
		require.NoError(t, tree.Ingest(b))
		prev = hash
	}
	require.NotEqual(t, types.BlockHash("3Ngenesis000000000000000000000000000000000000000000"), tree.CanonicalTip())
}

func TestReorgSwitchesBestTipToLongerFork(t *testing.T) {
	tree := newTestTree(t)
	genesisHash := "3Ngenesis000000000000000000000000000000000000000000"

	// Common prefix, then two forks diverging one block before the tip:
	// fork A has one block past the divergence point, fork B has two.
	common := block("3Nblock00000000000000000000000000000000000000000000", genesisHash, 1)
	require.NoError(t, tree.Ingest(common))

	forkA := block("3NforkA0000000000000000000000000000000000000000000A", string(common.StateHash), 2)
	require.NoError(t, tree.Ingest(forkA))
	require.Equal(t, forkA.StateHash, tree.BestTip())

	forkB1 := block("3NforkB0000000000000000000000000000000000000000000B", string(common.StateHash), 2)
	require.NoError(t, tree.Ingest(forkB1))
	require.Equal(t, forkB1.StateHash, tree.BestTip(), "same height as fork A, tiebreak falls to the larger state hash")

	forkB2 := block("3NforkB0000000000000000000000000000000000000000000C", string(forkB1.StateHash), 3)
	require.NoError(t, tree.Ingest(forkB2))
	require.Equal(t, forkB2.StateHash, tree.BestTip(), "fork B is now one block longer and must become the best tip")
}

func TestCanonicalPromotionEventCount(t *testing.T) {
	cfg := canonicity.Config{TransitionFrontierK: 20, PruneInterval: 10, CanonicalThreshold: 10, CanonicalUpdateThreshold: 2, LedgerCadence: 100}
	genesis := block("3Ngenesis000000000000000000000000000000000000000000", "", 0)
	tree, err := NewWitnessTree(genesis, cfg, nil, zap.NewNop().Sugar())
	require.NoError(t, err)

	prev := "3Ngenesis000000000000000000000000000000000000000000"
	tipBefore := tree.CanonicalTip()
	// c=10, u=2: the canonical tip trails the best tip by c blocks once
	// enough history exists, so each CanonicalUpdate event should record
	// a strictly increasing height (spec.md §8 S4).
	for i := 1; i <= 13; i++ {
		hash := fmt.Sprintf("3Nblock0000000000000000000000000000000000000000%05d", i)
		b := block(hash, prev, uint32(i))
		require.NoError(t, tree.Ingest(b))
		prev = hash
	}

	var canonicalUpdates int
	var lastHeight uint32
	for _, ev := range tree.Events {
		if ev.Kind != types.EventCanonicalUpdate {
			continue
		}
		require.Greater(t, ev.Height, lastHeight, "canonical height must strictly increase across updates")
		lastHeight = ev.Height
		canonicalUpdates++
	}
	require.NotZero(t, canonicalUpdates)
	require.NotEqual(t, tipBefore, tree.CanonicalTip())
}
