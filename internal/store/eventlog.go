package store

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/posindexer/posindexer/internal/types"
)

// StartupMode selects how the event log and derived state are reconciled
// against the on-disk store at process start (spec.md §4.2).
type StartupMode int

const (
	// New requires an empty store: the event log starts at sequence 0.
	New StartupMode = iota
	// Replay discards any existing witness-tree/ledger state and rebuilds
	// it by re-applying every event in the log from sequence 0.
	Replay
	// Sync resumes from the current on-disk state, appending new events
	// after the highest sequence number already recorded.
	Sync
)

// EventLog is the append-only, monotonically-sequenced record of
// everything the indexer has observed (spec.md §4.2). It is the source of
// truth Replay mode rebuilds all other state from.
type EventLog struct {
	store *Store
	log   *zap.SugaredLogger
	next  uint64
}

// OpenEventLog determines the log's next sequence number according to
// mode and returns a ready-to-append EventLog.
func OpenEventLog(s *Store, mode StartupMode, log *zap.SugaredLogger) (*EventLog, error) {
	el := &EventLog{store: s, log: log}

	var highest uint64
	var found bool
	err := s.View(func(b *Batch) error {
		it, err := b.Iterator(Events, End, nil)
		if err != nil {
			return err
		}
		defer it.Close()
		if it.Valid() {
			highest = DecodeBE64(it.Key())
			found = true
		}
		return it.Err()
	})
	if err != nil {
		return nil, errors.Wrap(err, "scanning event log tail")
	}

	switch mode {
	case New:
		if found {
			return nil, errors.Errorf("New startup mode requires an empty event log, found entries up to seq %d", highest)
		}
		el.next = 0
	case Replay:
		// The log itself is not rewound: only the in-memory witness tree and
		// ledger get rebuilt from it (EventLog.ReplayAll). Subsequent Append
		// calls must continue past whatever was already recorded, or they'd
		// overwrite the very entries replay just read.
		if found {
			el.next = highest + 1
		} else {
			el.next = 0
		}
	case Sync:
		if found {
			el.next = highest + 1
		} else {
			el.next = 0
		}
	default:
		return nil, errors.Errorf("unknown startup mode %d", mode)
	}
	return el, nil
}

// Append assigns the next sequence number to ev and writes it durably as
// part of batch b, so the event and the state change it describes commit
// atomically together.
func (el *EventLog) Append(b *Batch, ev types.Event) (types.Event, error) {
	ev.Seq = el.next
	data, err := Encode(ev)
	if err != nil {
		return ev, errors.Wrap(err, "encoding event")
	}
	if err := b.Put(Events, BE64(ev.Seq), data); err != nil {
		return ev, errors.Wrap(err, "appending event")
	}
	el.next++
	return ev, nil
}

// NextSeq returns the sequence number the next Append call will assign.
func (el *EventLog) NextSeq() uint64 { return el.next }

// ReplayAll walks the log from sequence 0 in order, invoking fn for each
// decoded event. Used by Replay startup mode to rebuild the witness tree
// and ledger without re-reading precomputed-block files from disk.
func (el *EventLog) ReplayAll(fn func(types.Event) error) error {
	return el.store.View(func(b *Batch) error {
		it, err := b.Iterator(Events, Start, nil)
		if err != nil {
			return err
		}
		defer it.Close()
		for it.Valid() {
			var ev types.Event
			if err := Decode(it.Value(), &ev); err != nil {
				return errors.Wrap(err, "decoding event during replay")
			}
			if err := fn(ev); err != nil {
				return err
			}
			it.Next()
		}
		return it.Err()
	})
}
