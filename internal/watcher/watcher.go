// Package watcher adapts filesystem notifications into the bounded
// ingest channel the witness-tree writer task consumes (spec.md §5),
// grounded on run()/matches_event_kind() in original_source/rust/src/server.rs.
package watcher

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/posindexer/posindexer/internal/staking"
	"github.com/posindexer/posindexer/internal/types"
)

// channelCapacity matches the original's mpsc::channel(4096) bound.
const channelCapacity = 4096

// BlockParserFunc parses one precomputed-block file. Left pluggable so
// this package stays agnostic of the PCB JSON schema.
type BlockParserFunc func(path string) (*types.PrecomputedBlock, error)

// StakingLedgerParserFunc parses one staking-ledger file.
type StakingLedgerParserFunc func(path string, genesisStateHash types.BlockHash) (*types.StakingLedger, error)

// Watcher watches one blocks directory and one staking-ledgers
// directory, emitting parsed values onto bounded channels for the
// single writer task to drain.
type Watcher struct {
	fsw *fsnotify.Watcher
	log *zap.SugaredLogger

	parseBlock  BlockParserFunc
	parseLedger StakingLedgerParserFunc
	genesisHash types.BlockHash

	Blocks  chan *types.PrecomputedBlock
	Ledgers chan *types.StakingLedger
	Errors  chan error
}

// New creates a Watcher watching blockDir and ledgerDir non-recursively.
func New(blockDir, ledgerDir string, genesisHash types.BlockHash, parseBlock BlockParserFunc, parseLedger StakingLedgerParserFunc, log *zap.SugaredLogger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "creating fsnotify watcher")
	}
	if err := fsw.Add(blockDir); err != nil {
		fsw.Close()
		return nil, errors.Wrapf(err, "watching block directory %s", blockDir)
	}
	if err := fsw.Add(ledgerDir); err != nil {
		fsw.Close()
		return nil, errors.Wrapf(err, "watching ledger directory %s", ledgerDir)
	}

	return &Watcher{
		fsw:         fsw,
		log:         log,
		parseBlock:  parseBlock,
		parseLedger: parseLedger,
		genesisHash: genesisHash,
		Blocks:      make(chan *types.PrecomputedBlock, channelCapacity),
		Ledgers:     make(chan *types.StakingLedger, channelCapacity),
		Errors:      make(chan error, channelCapacity),
	}, nil
}

// matchesEventKind mirrors the original's per-platform event filter:
// only a file that has finished being written (create/write-close or a
// rename into place) triggers ingestion.
func matchesEventKind(op fsnotify.Op) bool {
	return op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) != 0
}

// Run drains fsnotify events until ctx is canceled or the watcher is
// closed. Each recognized file is parsed with one retry on failure
// (spec.md §7's IOError policy); exhausting the retry surfaces the
// error on Errors and skips the file (ParseError policy: log and skip).
func (w *Watcher) Run(ctx context.Context) error {
	defer close(w.Blocks)
	defer close(w.Ledgers)
	defer close(w.Errors)

	for {
		select {
		case <-ctx.Done():
			return w.fsw.Close()
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if !matchesEventKind(ev.Op) {
				continue
			}
			w.handle(ev.Name)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.log.Errorw("watcher error", "err", err)
		}
	}
}

func (w *Watcher) handle(path string) {
	if IsBlockFilename(path) {
		block, err := w.parseWithRetry(func() (*types.PrecomputedBlock, error) {
			return w.parseBlock(path)
		})
		if err != nil {
			w.log.Warnw("dropping unparseable block file", "path", path, "err", err)
			w.Errors <- err
			return
		}
		w.Blocks <- block
		return
	}

	if _, _, _, err := staking.ParseFilename(path); err == nil {
		ledger, err := w.parseWithRetryLedger(path)
		if err != nil {
			w.log.Warnw("dropping unparseable staking ledger file", "path", path, "err", err)
			w.Errors <- err
			return
		}
		w.Ledgers <- ledger
		return
	}

	w.log.Debugw("ignoring file matching neither shape", "path", path)
}

func (w *Watcher) parseWithRetry(fn func() (*types.PrecomputedBlock, error)) (*types.PrecomputedBlock, error) {
	var result *types.PrecomputedBlock
	op := func() error {
		b, err := fn()
		if err != nil {
			return err
		}
		result = b
		return nil
	}
	err := backoff.Retry(op, backoff.WithMaxRetries(backoff.NewConstantBackOff(50*time.Millisecond), 1))
	return result, err
}

func (w *Watcher) parseWithRetryLedger(path string) (*types.StakingLedger, error) {
	var result *types.StakingLedger
	op := func() error {
		l, err := w.parseLedger(path, w.genesisHash)
		if err != nil {
			return err
		}
		result = l
		return nil
	}
	err := backoff.Retry(op, backoff.WithMaxRetries(backoff.NewConstantBackOff(50*time.Millisecond), 1))
	return result, err
}

// Close stops watching and releases the underlying inotify/kqueue handle.
func (w *Watcher) Close() error { return w.fsw.Close() }
