// Package engine wires the witness tree, the embedded store, and the
// secondary indexes together into the single-writer processing loop
// spec.md §5 describes: every Ingest call runs the witness tree's state
// transition, then persists the resulting blocks/indexes/events inside
// one MDBX batch. Grounded on the IndexerState/IndexerStore split the
// original keeps between state.rs and the store package — here a single
// Engine plays both roles since the witness tree already holds the only
// mutable in-memory state.
package engine

import (
	"encoding/json"
	"sort"
	"strconv"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/posindexer/posindexer/internal/api/http"
	"github.com/posindexer/posindexer/internal/canonicity"
	"github.com/posindexer/posindexer/internal/staking"
	"github.com/posindexer/posindexer/internal/store"
	"github.com/posindexer/posindexer/internal/types"
	"github.com/posindexer/posindexer/internal/usernames"
	"github.com/posindexer/posindexer/internal/witness"
)

// Engine is the indexer's single writer: it owns the witness tree, the
// store, the event log, and the secondary balance index, and is the only
// component permitted to call Store.Update (spec.md §5).
type Engine struct {
	tree      *witness.WitnessTree
	st        *store.Store
	eventLog  *store.EventLog
	balances  *store.BalanceIndex
	usernames *usernames.Table
	log       *zap.SugaredLogger

	syncedEvents int
}

// Open constructs an Engine over an already-opened Store, replaying or
// starting the event log per mode and seeding the witness tree at
// genesis. Mirrors IndexerState::new in original_source/rust/src/server.rs.
func Open(st *store.Store, mode store.StartupMode, cfg canonicity.Config, genesis *types.PrecomputedBlock, genesisHashes []types.BlockHash, log *zap.SugaredLogger) (*Engine, error) {
	tree, err := witness.NewWitnessTree(genesis, cfg, genesisHashes, log)
	if err != nil {
		return nil, err
	}
	evLog, err := store.OpenEventLog(st, mode, log)
	if err != nil {
		return nil, err
	}
	bal := store.NewBalanceIndex()
	if mode != store.New {
		if err := bal.Load(st); err != nil {
			return nil, err
		}
	}
	e := &Engine{
		tree:      tree,
		st:        st,
		eventLog:  evLog,
		balances:  bal,
		usernames: usernames.NewTable(),
		log:       log,
	}
	if mode == store.Replay {
		if err := e.rebuildFromEvents(); err != nil {
			return nil, errors.Wrap(err, "rebuilding witness tree from event log")
		}
	}
	bal.ApplyLedger(tree.BestLedger)
	return e, nil
}

// rebuildFromEvents reconstructs the in-memory witness tree purely from
// the event log and the block bodies already persisted in the Blocks CF,
// without re-parsing any precomputed-block files from disk — spec.md
// §4.2's Replay mode: "rebuild in-memory witness tree purely from
// events. No blocks are re-parsed." Only EventNewBlock entries drive
// reconstruction; every other event kind (NewBestTip, CanonicalUpdate,
// PruneRoot, StakingLedgerAdded) is a derived or independently-durable
// side effect that tree.Ingest reproduces or that needs no in-memory
// counterpart.
func (e *Engine) rebuildFromEvents() error {
	return e.eventLog.ReplayAll(func(ev types.Event) error {
		if ev.Kind != types.EventNewBlock {
			return nil
		}
		return e.st.View(func(b *store.Batch) error {
			rec, ok, err := b.Get(store.Blocks, []byte(ev.StateHash))
			if err != nil {
				return err
			}
			if !ok {
				return errors.Errorf("replay: block %s referenced by the event log is missing from the store", ev.StateHash)
			}
			var blk types.PrecomputedBlock
			if err := store.Decode(rec, &blk); err != nil {
				return err
			}
			return e.tree.Ingest(&blk)
		})
	})
}

// IngestBlock runs the witness tree's state transition for block and
// persists every resulting change in one atomic batch: block record,
// secondary indexes, account-balance mirror, and newly appended events.
func (e *Engine) IngestBlock(block *types.PrecomputedBlock) error {
	before := len(e.tree.Events)
	if err := e.tree.Ingest(block); err != nil {
		return err
	}
	usernameUpdate := usernames.FromPrecomputedBlock(block)

	return e.st.Update(func(b *store.Batch) error {
		if err := e.persistBlockRecord(b, block); err != nil {
			return err
		}
		e.usernames.Apply(usernameUpdate)
		if err := e.persistBalances(b); err != nil {
			return err
		}
		return e.persistNewEvents(b, before)
	})
}

// IngestStakingLedger records a parsed staking ledger and emits the
// corresponding event, grounded on StakingLedgerStore::add_epoch_ledger.
func (e *Engine) IngestStakingLedger(sl *types.StakingLedger) error {
	return e.st.Update(func(b *store.Batch) error {
		enc, err := store.Encode(sl)
		if err != nil {
			return err
		}
		key := []byte(sl.Network + "-" + itoa(sl.Epoch) + "-" + string(sl.LedgerHash))
		if err := b.Put(store.StakingLedgerTable, key, enc); err != nil {
			return err
		}
		_, err = e.eventLog.Append(b, types.Event{
			Kind:       types.EventStakingLedgerAdded,
			LedgerHash: sl.LedgerHash,
			Epoch:      sl.Epoch,
			Network:    sl.Network,
		})
		return err
	})
}

func (e *Engine) persistBlockRecord(b *store.Batch, blk *types.PrecomputedBlock) error {
	enc, err := store.Encode(blk)
	if err != nil {
		return err
	}
	hash := []byte(blk.StateHash)
	if err := b.Put(store.Blocks, hash, enc); err != nil {
		return err
	}
	if err := b.Put(store.BlockHeight, hash, store.BE32(blk.BlockchainLength)); err != nil {
		return err
	}
	if err := b.Put(store.BlockGlobalSlot, hash, store.BE32(blk.GlobalSlotSinceGenesis)); err != nil {
		return err
	}
	if err := b.Put(store.BlockParentHash, hash, []byte(blk.PreviousStateHash)); err != nil {
		return err
	}
	if err := b.Put(store.BlockGenesis, hash, []byte(blk.GenesisStateHash)); err != nil {
		return err
	}
	if err := b.Put(store.BlockCoinbaseReceiver, hash, []byte(blk.CoinbaseReceiver)); err != nil {
		return err
	}
	if err := b.Put(store.BlocksHeightSort, store.HeightSortKey(blk.BlockchainLength, string(blk.StateHash)), nil); err != nil {
		return err
	}
	if err := b.Put(store.BlocksSlotSort, store.SlotSortKey(blk.GlobalSlotSinceGenesis, string(blk.StateHash)), nil); err != nil {
		return err
	}
	if err := e.persistCommands(b, blk); err != nil {
		return err
	}
	if err := e.persistSecondaryIndexes(b, blk); err != nil {
		return err
	}

	// Every freshly-ingested block starts out orphaned/undetermined; it
	// only becomes canonical once the canonicity resolver's transition
	// frontier advances past it, which markCanonicalChain retroactively
	// records from the EventCanonicalUpdate events persistNewEvents walks.
	return b.Put(store.Canonicity, hash, []byte{0})
}

// markCanonicalChain walks backward from tipHash via BlockParentHash,
// marking each block Canonical until it reaches a block already marked
// canonical (the rest of the chain back to genesis was marked on a prior
// call) or runs out of stored ancestry. Invoked once per
// EventCanonicalUpdate, it is what actually keeps Canonicity,
// CanonicalAtHeight, and MaxCanonicalHeight populated — spec.md §4.6's
// canonical tip trails the best tip by canonical_threshold blocks, so the
// block being ingested is essentially never the one becoming canonical.
func (e *Engine) markCanonicalChain(b *store.Batch, tipHash types.BlockHash, tipHeight uint32) error {
	hash := []byte(tipHash)
	for {
		tag, ok, err := b.Get(store.Canonicity, hash)
		if err != nil {
			return err
		}
		if ok && len(tag) == 1 && tag[0] == 1 {
			break
		}
		heightRaw, ok, err := b.Get(store.BlockHeight, hash)
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		height := store.DecodeBE32(heightRaw)
		if err := b.Put(store.Canonicity, hash, []byte{1}); err != nil {
			return err
		}
		if err := b.Put(store.CanonicalAtHeight, store.BE32(height), hash); err != nil {
			return err
		}
		parentHash, ok, err := b.Get(store.BlockParentHash, hash)
		if err != nil {
			return err
		}
		if !ok || len(parentHash) == 0 {
			break
		}
		hash = parentHash
	}
	return b.Put(store.MaxCanonicalHeight, []byte("height"), store.BE32(tipHeight))
}

// persistCommands writes a block's user commands and internal commands
// (coinbase + fee transfers), used by FeeTransfersForBlock and by
// account-history lookups the control socket does not yet expose.
func (e *Engine) persistCommands(b *store.Batch, blk *types.PrecomputedBlock) error {
	hash := []byte(blk.StateHash)
	if len(blk.UserCommands) > 0 {
		enc, err := store.Encode(blk.UserCommands)
		if err != nil {
			return err
		}
		if err := b.Put(store.UserCmdsBlock, hash, enc); err != nil {
			return err
		}
		for _, cmd := range blk.UserCommands {
			cenc, err := store.Encode(cmd)
			if err != nil {
				return err
			}
			if err := b.Put(store.UserCmd, []byte(cmd.Hash), cenc); err != nil {
				return err
			}
			if err := addHashToPK(b, cmd.Source, cmd.Hash); err != nil {
				return err
			}
			if cmd.Receiver != cmd.Source {
				if err := addHashToPK(b, cmd.Receiver, cmd.Hash); err != nil {
					return err
				}
			}
		}
	}

	var internal []types.InternalCommand
	if blk.InternalCommandsPreDiff != nil {
		internal = append(internal, *blk.InternalCommandsPreDiff)
	}
	if blk.InternalCommandsPostDiff != nil {
		internal = append(internal, *blk.InternalCommandsPostDiff)
	}
	if len(internal) == 0 {
		return nil
	}
	enc, err := store.Encode(internal)
	if err != nil {
		return err
	}
	return b.Put(store.InternalCmds, hash, enc)
}

// addHashToPK appends txn hash to the list of command hashes stored for pk
// in UserCmdByPK, used to answer "commands touching this account" lookups.
func addHashToPK(b *store.Batch, pk types.PublicKey, hash string) error {
	var hashes []string
	existing, ok, err := b.Get(store.UserCmdByPK, []byte(pk))
	if err != nil {
		return err
	}
	if ok {
		if err := store.Decode(existing, &hashes); err != nil {
			return err
		}
	}
	hashes = append(hashes, hash)
	enc, err := store.Encode(hashes)
	if err != nil {
		return err
	}
	return b.Put(store.UserCmdByPK, []byte(pk), enc)
}

// persistSecondaryIndexes populates the height/slot/producer lookup tables
// that BestChain's linear parent walk doesn't need but range queries over
// height, slot, or block-producer public key do: BlockEpoch, the counted
// BlocksAtHeight/BlocksAtSlot/BlocksAtPK families, and the roaring-bitmap
// HeightToSlots/SlotToHeights columns (spec.md §4.1). Grounded on the
// block_store_impl.rs accessors that back the same queries upstream.
func (e *Engine) persistSecondaryIndexes(b *store.Batch, blk *types.PrecomputedBlock) error {
	hash := []byte(blk.StateHash)
	if err := b.Put(store.BlockEpoch, hash, store.BE32(blk.EpochCount)); err != nil {
		return err
	}
	if err := appendToCountedList(b, store.BlocksAtHeight, store.BE32(blk.BlockchainLength), itoa(blk.BlockchainLength), false, hash); err != nil {
		return err
	}
	if err := appendToCountedList(b, store.BlocksAtSlot, store.BE32(blk.GlobalSlotSinceGenesis), itoa(blk.GlobalSlotSinceGenesis), false, hash); err != nil {
		return err
	}
	if err := appendToCountedList(b, store.BlocksAtPK, []byte(blk.Creator), string(blk.Creator), true, hash); err != nil {
		return err
	}
	if err := e.persistBlockProduction(b, blk); err != nil {
		return err
	}
	if err := addObservedValue(b, store.HeightToSlots, store.BE32(blk.BlockchainLength), blk.GlobalSlotSinceGenesis); err != nil {
		return err
	}
	if err := addObservedValue(b, store.SlotToHeights, store.BE32(blk.GlobalSlotSinceGenesis), blk.BlockchainLength); err != nil {
		return err
	}
	return nil
}

// persistBlockProduction bumps the per-epoch and lifetime block counts for
// the block's creator, backing BlockProductionPKEpoch/BlockProductionPKTotal.
func (e *Engine) persistBlockProduction(b *store.Batch, blk *types.PrecomputedBlock) error {
	epochKey := append(store.BE32(blk.EpochCount), []byte(blk.Creator)...)
	if err := incrementU32(b, store.BlockProductionPKEpoch, epochKey); err != nil {
		return err
	}
	return incrementU32(b, store.BlockProductionPKTotal, []byte(blk.Creator))
}

func incrementU32(b *store.Batch, cf string, key []byte) error {
	var n uint32
	existing, ok, err := b.Get(cf, key)
	if err != nil {
		return err
	}
	if ok && len(existing) == 4 {
		n = store.DecodeBE32(existing)
	}
	return b.Put(cf, key, store.BE32(n+1))
}

// appendToCountedList implements the counted-list scheme the
// BlocksAtHeight/BlocksAtSlot/BlocksAtPK tables document: countKey holds
// the count (u32 BE, or decimal utf-8 when decimalCount is set, as for
// BlocksAtPK) and the utf-8 key "{elemPrefix}-{n}" holds the nth element.
// It reads the current count, writes element at the next index, and bumps
// the count.
func appendToCountedList(b *store.Batch, cf string, countKey []byte, elemPrefix string, decimalCount bool, element []byte) error {
	var n uint32
	existing, ok, err := b.Get(cf, countKey)
	if err != nil {
		return err
	}
	if ok && decimalCount {
		v, err := strconv.ParseUint(string(existing), 10, 32)
		if err != nil {
			return errors.Wrapf(err, "parsing count in %s", cf)
		}
		n = uint32(v)
	} else if ok && len(existing) == 4 {
		n = store.DecodeBE32(existing)
	}
	if err := b.Put(cf, []byte(elemPrefix+"-"+itoa(n)), element); err != nil {
		return err
	}
	count := store.BE32(n + 1)
	if decimalCount {
		count = []byte(itoa(n + 1))
	}
	return b.Put(cf, countKey, count)
}

// addObservedValue adds v to the roaring-encoded list<u32> stored at key in
// cf, used for the HeightToSlots/SlotToHeights cross-indexes.
func addObservedValue(b *store.Batch, cf string, key []byte, v uint32) error {
	existing, _, err := b.Get(cf, key)
	if err != nil {
		return err
	}
	enc, err := store.AddToU32List(existing, v)
	if err != nil {
		return err
	}
	return b.Put(cf, key, enc)
}

func (e *Engine) persistBalances(b *store.Batch) error {
	e.balances.ApplyLedger(e.tree.BestLedger)
	return e.balances.Persist(b)
}

func (e *Engine) persistNewEvents(b *store.Batch, from int) error {
	for _, ev := range e.tree.Events[from:] {
		if _, err := e.eventLog.Append(b, ev); err != nil {
			return err
		}
		if ev.Kind == types.EventCanonicalUpdate {
			if err := e.markCanonicalChain(b, ev.StateHash, ev.Height); err != nil {
				return err
			}
		}
	}
	e.syncedEvents = len(e.tree.Events)
	return nil
}

// Account implements ipc.Handlers.
func (e *Engine) Account(pk types.PublicKey) (*types.Account, bool) {
	acc, ok := e.tree.BestLedger.Get(pk)
	if !ok {
		return nil, false
	}
	cp := acc.Clone()
	if name, ok := e.usernames.Get(pk); ok {
		cp.Username = name
	}
	return cp, true
}

// BestChain implements ipc.Handlers: walks BlockParentHash backwards from
// the current best tip, decoding each stored block record, newest first.
func (e *Engine) BestChain(n int) ([]*types.PrecomputedBlock, error) {
	var out []*types.PrecomputedBlock
	err := e.st.View(func(b *store.Batch) error {
		hash := []byte(e.tree.BestTip())
		for len(out) < n {
			rec, ok, err := b.Get(store.Blocks, hash)
			if err != nil {
				return err
			}
			if !ok {
				break
			}
			var blk types.PrecomputedBlock
			if err := store.Decode(rec, &blk); err != nil {
				return err
			}
			out = append(out, &blk)
			if blk.PreviousStateHash.Empty() {
				break
			}
			hash = []byte(blk.PreviousStateHash)
		}
		return nil
	})
	return out, err
}

// BestLedgerJSON implements ipc.Handlers.
func (e *Engine) BestLedgerJSON() (string, error) {
	return e.marshalLedger(e.tree.BestLedger)
}

// LedgerByHash implements ipc.Handlers by consulting the LedgersByHash
// snapshot CF. No code in this repository writes that CF (the witness
// tree only logs ledger-cadence boundaries), so the lookup reports not
// found unless a snapshot was put there by other means.
func (e *Engine) LedgerByHash(hash string) (string, bool, error) {
	var out string
	var found bool
	err := e.st.View(func(b *store.Batch) error {
		val, ok, err := b.Get(store.LedgersByHash, []byte(hash))
		if err != nil || !ok {
			return err
		}
		var l types.Ledger
		if err := store.Decode(val, &l); err != nil {
			return err
		}
		s, err := e.marshalLedger(&l)
		if err != nil {
			return err
		}
		out, found = s, true
		return nil
	})
	return out, found, err
}

// LedgerAtHeight implements ipc.Handlers; only canonical heights resolve.
func (e *Engine) LedgerAtHeight(height uint32) (string, bool, error) {
	var hash []byte
	var found bool
	err := e.st.View(func(b *store.Batch) error {
		v, ok, err := b.Get(store.CanonicalAtHeight, store.BE32(height))
		if err != nil || !ok {
			return err
		}
		hash, found = v, true
		return nil
	})
	if err != nil || !found {
		return "", false, err
	}
	return e.LedgerByHash(string(hash))
}

// MaxCanonicalHeight implements ipc.Handlers.
func (e *Engine) MaxCanonicalHeight() (uint32, bool) {
	var height uint32
	var ok bool
	_ = e.st.View(func(b *store.Batch) error {
		v, present, err := b.Get(store.MaxCanonicalHeight, []byte("height"))
		if err != nil || !present {
			return err
		}
		height, ok = store.DecodeBE32(v), true
		return nil
	})
	return height, ok
}

// Summary implements ipc.Handlers with a one-line summary; the verbose
// form adds the max canonical height and the account count on the same
// line.
func (e *Engine) Summary(verbose bool) (string, error) {
	height, _ := e.MaxCanonicalHeight()
	if !verbose {
		return "witness tree: best_tip=" + string(e.tree.BestTip()) + " canonical_tip=" + string(e.tree.CanonicalTip()), nil
	}
	return "best_tip=" + string(e.tree.BestTip()) +
		" canonical_tip=" + string(e.tree.CanonicalTip()) +
		" max_canonical_height=" + itoa(height) +
		" accounts=" + itoa(uint32(len(e.tree.BestLedger.Accounts))), nil
}

// FeeTransfersForBlock implements http.DataSource by decoding the
// internal-command record stored for stateHash.
func (e *Engine) FeeTransfersForBlock(stateHash string) ([]http.Feetransfer, error) {
	var out []http.Feetransfer
	err := e.st.View(func(b *store.Batch) error {
		val, ok, err := b.Get(store.InternalCmds, []byte(stateHash))
		if err != nil || !ok {
			return err
		}
		var cmds []types.InternalCommand
		if err := store.Decode(val, &cmds); err != nil {
			return err
		}
		heightRaw, _, _ := b.Get(store.BlockHeight, []byte(stateHash))
		var height uint32
		if len(heightRaw) == 4 {
			height = store.DecodeBE32(heightRaw)
		}
		canonRaw, _, _ := b.Get(store.Canonicity, []byte(stateHash))
		canonical := len(canonRaw) == 1 && canonRaw[0] == 1
		for _, c := range cmds {
			out = append(out, transferRecords(stateHash, height, canonical, c)...)
		}
		return nil
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].Height < out[j].Height })
	return out, err
}

func transferRecords(stateHash string, height uint32, canonical bool, c types.InternalCommand) []http.Feetransfer {
	var out []http.Feetransfer
	add := func(ft *types.CoinbaseFeeTransfer) {
		if ft == nil {
			return
		}
		out = append(out, http.Feetransfer{
			StateHash: stateHash,
			Fee:       ft.Fee,
			Recipient: string(ft.Receiver),
			Kind:      "feetransfer",
			Canonical: canonical,
			Height:    height,
		})
	}
	add(c.FeeTransfer0)
	add(c.FeeTransfer1)
	return out
}

func (e *Engine) marshalLedger(l *types.Ledger) (string, error) {
	type accountJSON struct {
		PublicKey string       `json:"pk"`
		Balance   types.Amount `json:"balance"`
		Nonce     types.Nonce  `json:"nonce"`
		Delegate  string       `json:"delegate"`
		Username  string       `json:"username,omitempty"`
	}
	accs := make([]accountJSON, 0, len(l.Accounts))
	for pk, acc := range l.Accounts {
		accs = append(accs, accountJSON{
			PublicKey: string(pk),
			Balance:   acc.Balance,
			Nonce:     acc.Nonce,
			Delegate:  string(acc.Delegate),
			Username:  acc.Username,
		})
	}
	sort.Slice(accs, func(i, j int) bool { return accs[i].PublicKey < accs[j].PublicKey })
	b, err := json.Marshal(accs)
	return string(b), err
}

func itoa(v uint32) string {
	if v == 0 {
		return "0"
	}
	digits := make([]byte, 0, 10)
	for v > 0 {
		digits = append([]byte{byte('0' + v%10)}, digits...)
		v /= 10
	}
	return string(digits)
}

// StakingLedgerSummary decodes the staking ledger keyed by
// network/epoch/hash from the StakingLedgerTable CF and returns its
// one-line staking.Summary (epoch and ledger hash; no delegation totals),
// used by the `staking-summary` command.
// It takes a bare *store.Store rather than an Engine since reading one
// staking-ledger record needs no witness tree.
func StakingLedgerSummary(st *store.Store, network string, epoch uint32, ledgerHash string) (string, bool, error) {
	var out string
	var found bool
	err := st.View(func(b *store.Batch) error {
		key := []byte(network + "-" + itoa(epoch) + "-" + ledgerHash)
		val, ok, err := b.Get(store.StakingLedgerTable, key)
		if err != nil || !ok {
			return err
		}
		var sl types.StakingLedger
		if err := store.Decode(val, &sl); err != nil {
			return err
		}
		out, found = staking.Summary(&sl), true
		return nil
	})
	return out, found, err
}
