package store

import (
	"github.com/google/btree"
	"github.com/pkg/errors"

	"github.com/posindexer/posindexer/internal/types"
)

// balanceEntry is one row of the balance-sorted secondary index (spec.md
// §4.5: "accounts ordered by balance, ties broken by public key").
type balanceEntry struct {
	balance types.Amount
	pk      string
}

func (a balanceEntry) Less(than btree.Item) bool {
	b := than.(balanceEntry)
	if a.balance != b.balance {
		return a.balance > b.balance // richest first
	}
	return a.pk < b.pk
}

// BalanceIndex mirrors AccountBalance/AccountBalanceSort in memory as a
// B-tree so balance-sorted reads (TopN) don't require a full
// column-family scan. The `best_ledger` IPC command does not read it: it
// lists the best ledger sorted by public key.
type BalanceIndex struct {
	byPK map[string]types.Amount
	tree *btree.BTree

	// persisted mirrors what AccountBalance/AccountBalanceSort currently
	// hold on disk, as of the last successful Persist (or Load). Persist
	// diffs byPK against this to know which AccountBalanceSort rows are
	// stale (balance changed, so the balance-keyed row moved) and which
	// pks were removed outright.
	persisted map[string]types.Amount
}

// NewBalanceIndex builds an empty index; callers populate it via Load or
// via ApplyLedger as the best ledger changes.
func NewBalanceIndex() *BalanceIndex {
	return &BalanceIndex{byPK: make(map[string]types.Amount), tree: btree.New(32), persisted: make(map[string]types.Amount)}
}

// Load rebuilds the index from the store's AccountBalance column family,
// used at startup after Sync/Replay reconciliation.
func (bi *BalanceIndex) Load(s *Store) error {
	err := s.View(func(b *Batch) error {
		it, err := b.Iterator(AccountBalance, Start, nil)
		if err != nil {
			return err
		}
		defer it.Close()
		for it.Valid() {
			pk := string(it.Key())
			bal := types.Amount(DecodeBE64(it.Value()))
			bi.set(pk, bal)
			it.Next()
		}
		return it.Err()
	})
	if err != nil {
		return err
	}
	for pk, bal := range bi.byPK {
		bi.persisted[pk] = bal
	}
	return nil
}

func (bi *BalanceIndex) set(pk string, bal types.Amount) {
	if old, ok := bi.byPK[pk]; ok {
		bi.tree.Delete(balanceEntry{balance: old, pk: pk})
	}
	bi.byPK[pk] = bal
	bi.tree.ReplaceOrInsert(balanceEntry{balance: bal, pk: pk})
}

func (bi *BalanceIndex) remove(pk string) {
	if old, ok := bi.byPK[pk]; ok {
		bi.tree.Delete(balanceEntry{balance: old, pk: pk})
		delete(bi.byPK, pk)
	}
}

// ApplyLedger replaces the index contents with exactly the accounts
// present in l, matching the AccountRemoved invariant of spec.md §4.5
// (a zero-balance, non-delegate account is pruned from the ledger).
func (bi *BalanceIndex) ApplyLedger(l *types.Ledger) {
	seen := make(map[string]bool, len(l.Accounts))
	for pk, acc := range l.Accounts {
		seen[pk.String()] = true
		bi.set(pk.String(), acc.Balance)
	}
	for pk := range bi.byPK {
		if !seen[pk] {
			bi.remove(pk)
		}
	}
}

// Persist writes the index's current contents to the store's
// AccountBalance and AccountBalanceSort column families as part of batch
// b, keeping the two representations in lock-step. A balance change moves
// an account's AccountBalanceSort row (the balance is embedded in the
// key), so the old row is deleted before the new one is written; accounts
// no longer present (removed by ApplyLedger) have both rows deleted
// outright (spec.md §4.5: "delete {b_old}{pk}; insert {b_new}{pk}").
func (bi *BalanceIndex) Persist(b *Batch) error {
	for pk, bal := range bi.byPK {
		if old, ok := bi.persisted[pk]; ok && old != bal {
			if err := b.Delete(AccountBalanceSort, BalanceSortKey(uint64(old), pk)); err != nil {
				return errors.Wrapf(err, "deleting stale balance-sort row for %s", pk)
			}
		}
		if err := b.Put(AccountBalance, []byte(pk), BE64(uint64(bal))); err != nil {
			return errors.Wrapf(err, "persisting balance for %s", pk)
		}
		if err := b.Put(AccountBalanceSort, BalanceSortKey(uint64(bal), pk), nil); err != nil {
			return errors.Wrapf(err, "persisting balance-sort row for %s", pk)
		}
	}
	for pk, bal := range bi.persisted {
		if _, ok := bi.byPK[pk]; ok {
			continue
		}
		if err := b.Delete(AccountBalance, []byte(pk)); err != nil {
			return errors.Wrapf(err, "deleting removed balance for %s", pk)
		}
		if err := b.Delete(AccountBalanceSort, BalanceSortKey(uint64(bal), pk)); err != nil {
			return errors.Wrapf(err, "deleting removed balance-sort row for %s", pk)
		}
	}

	bi.persisted = make(map[string]types.Amount, len(bi.byPK))
	for pk, bal := range bi.byPK {
		bi.persisted[pk] = bal
	}
	return nil
}

// TopN returns the n richest accounts, richest first.
func (bi *BalanceIndex) TopN(n int) []types.Account {
	out := make([]types.Account, 0, n)
	bi.tree.Ascend(func(item btree.Item) bool {
		if len(out) >= n {
			return false
		}
		e := item.(balanceEntry)
		out = append(out, types.Account{PublicKey: types.PublicKey(e.pk), Balance: e.balance})
		return true
	})
	return out
}

// Len reports the number of accounts currently indexed.
func (bi *BalanceIndex) Len() int { return len(bi.byPK) }
