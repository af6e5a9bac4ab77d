package store

import (
	"github.com/erigontech/mdbx-go/mdbx"
	"github.com/gofrs/flock"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// IterMode selects where an Iterator begins and which direction it walks,
// per spec.md §4.1's `iterator(cf, mode)` primitive.
type IterMode int

const (
	Start IterMode = iota
	End
	FromForward
	FromReverse
)

// Store is the embedded ordered key-value store of spec.md §4.1: an MDBX
// environment with one DBI per column family, guarded by a directory lock
// enforcing the single-writer discipline of spec.md §5.
type Store struct {
	env  *mdbx.Env
	dbis map[string]mdbx.DBI
	lock *flock.Flock
	log  *zap.SugaredLogger
}

// Open opens (creating if absent) the store directory at path, locks it,
// and ensures every column family in AllTables exists as an MDBX DBI.
func Open(path string, log *zap.SugaredLogger) (*Store, error) {
	lock := flock.New(path + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return nil, errors.Wrap(err, "locking store directory")
	}
	if !locked {
		return nil, errors.Errorf("store directory %s is held by another writer", path)
	}

	env, err := mdbx.NewEnv()
	if err != nil {
		return nil, errors.Wrap(err, "creating mdbx env")
	}
	if err := env.SetOption(mdbx.OptMaxDB, uint64(len(AllTables)+1)); err != nil {
		return nil, errors.Wrap(err, "setting max dbi count")
	}
	if err := env.Open(path, mdbx.Create, 0o664); err != nil {
		return nil, errors.Wrap(err, "opening mdbx environment")
	}

	s := &Store{env: env, dbis: make(map[string]mdbx.DBI, len(AllTables)), lock: lock, log: log}
	err = env.Update(func(txn *mdbx.Txn) error {
		for _, name := range AllTables {
			dbi, err := txn.OpenDBISimple(name, mdbx.Create)
			if err != nil {
				return errors.Wrapf(err, "opening column family %s", name)
			}
			s.dbis[name] = dbi
		}
		return nil
	})
	if err != nil {
		env.Close()
		lock.Unlock()
		return nil, err
	}
	return s, nil
}

// Close flushes and releases the store.
func (s *Store) Close() error {
	s.env.Close()
	return s.lock.Unlock()
}

// Batch is one atomic group of writes spanning any number of column
// families (spec.md §4.1: "adding a block touches >= 15 column families;
// a failure mid-batch must leave the store unchanged").
type Batch struct {
	txn  *mdbx.Txn
	dbis map[string]mdbx.DBI
}

// Update runs fn inside a single atomic MDBX write transaction. If fn (or
// the underlying commit) fails, no writes are visible — the IOError
// policy of spec.md §7.
func (s *Store) Update(fn func(b *Batch) error) error {
	return s.env.Update(func(txn *mdbx.Txn) error {
		return fn(&Batch{txn: txn, dbis: s.dbis})
	})
}

// View runs fn inside a read-only snapshot transaction.
func (s *Store) View(fn func(b *Batch) error) error {
	return s.env.View(func(txn *mdbx.Txn) error {
		return fn(&Batch{txn: txn, dbis: s.dbis})
	})
}

func (b *Batch) dbi(cf string) (mdbx.DBI, error) {
	d, ok := b.dbis[cf]
	if !ok {
		return 0, errors.Errorf("unknown column family %q", cf)
	}
	return d, nil
}

// Put writes key->value into cf.
func (b *Batch) Put(cf string, key, value []byte) error {
	dbi, err := b.dbi(cf)
	if err != nil {
		return err
	}
	return b.txn.Put(dbi, key, value, 0)
}

// Get reads key from cf. ok is false if the key is absent.
func (b *Batch) Get(cf string, key []byte) (value []byte, ok bool, err error) {
	dbi, err := b.dbi(cf)
	if err != nil {
		return nil, false, err
	}
	v, err := b.txn.Get(dbi, key)
	if err != nil {
		if mdbx.IsNotFound(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return v, true, nil
}

// Delete removes key from cf.
func (b *Batch) Delete(cf string, key []byte) error {
	dbi, err := b.dbi(cf)
	if err != nil {
		return err
	}
	err = b.txn.Del(dbi, key, nil)
	if err != nil && mdbx.IsNotFound(err) {
		return nil
	}
	return err
}

// Iterator is the `iterator(cf, mode)` primitive of spec.md §4.1.
type Iterator struct {
	cur     *mdbx.Cursor
	reverse bool
	done    bool
	key     []byte
	value   []byte
	err     error
}

// Iterator opens a cursor over cf positioned per mode/fromKey.
func (b *Batch) Iterator(cf string, mode IterMode, fromKey []byte) (*Iterator, error) {
	dbi, err := b.dbi(cf)
	if err != nil {
		return nil, err
	}
	cur, err := b.txn.OpenCursor(dbi)
	if err != nil {
		return nil, errors.Wrap(err, "opening cursor")
	}
	it := &Iterator{cur: cur}
	switch mode {
	case Start:
		it.key, it.value, it.err = cur.Get(nil, nil, mdbx.First)
	case End:
		it.key, it.value, it.err = cur.Get(nil, nil, mdbx.Last)
		it.reverse = true
	case FromForward:
		it.key, it.value, it.err = cur.Get(fromKey, nil, mdbx.SetRange)
	case FromReverse:
		it.key, it.value, it.err = cur.Get(fromKey, nil, mdbx.SetRange)
		it.reverse = true
	}
	if mdbx.IsNotFound(it.err) {
		it.done = true
		it.err = nil
	}
	return it, it.err
}

// Valid reports whether the iterator is positioned at a usable entry.
func (it *Iterator) Valid() bool { return !it.done && it.err == nil }

// Key returns the current entry's key.
func (it *Iterator) Key() []byte { return it.key }

// Value returns the current entry's value.
func (it *Iterator) Value() []byte { return it.value }

// Err returns any error encountered during iteration.
func (it *Iterator) Err() error { return it.err }

// Next advances the iterator.
func (it *Iterator) Next() {
	if it.done {
		return
	}
	op := mdbx.Next
	if it.reverse {
		op = mdbx.Prev
	}
	it.key, it.value, it.err = it.cur.Get(nil, nil, op)
	if mdbx.IsNotFound(it.err) {
		it.done = true
		it.err = nil
	}
}

// Close releases the cursor.
func (it *Iterator) Close() { it.cur.Close() }
