package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	apihttp "github.com/posindexer/posindexer/internal/api/http"
	"github.com/posindexer/posindexer/internal/engine"
	"github.com/posindexer/posindexer/internal/ipc"
	"github.com/posindexer/posindexer/internal/pcbparser"
	"github.com/posindexer/posindexer/internal/store"
	"github.com/posindexer/posindexer/internal/types"
	"github.com/posindexer/posindexer/internal/watcher"
)

// newServerCommand builds the `server` subcommand family, mirroring
// ServerCommand::{Config,Cli} in
// original_source/src/bin/mina-indexer.rs: `start`/`replay`/`sync` take
// flags directly, `start-via-config` reads a YAML file instead, and
// `shutdown` is a thin client call against a running server's socket.
func newServerCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "server",
		Short: "Run or control the indexer server",
	}
	cmd.AddCommand(newServerStartCommand("start", store.New))
	cmd.AddCommand(newServerStartCommand("replay", store.Replay))
	cmd.AddCommand(newServerStartCommand("sync", store.Sync))
	cmd.AddCommand(newServerStartViaConfigCommand())
	cmd.AddCommand(newServerShutdownCommand())
	return cmd
}

func newServerStartCommand(use string, mode store.StartupMode) *cobra.Command {
	var cfg Config
	c := &cobra.Command{
		Use:   use,
		Short: fmt.Sprintf("Start the server in %s mode", use),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cfg, mode)
		},
	}
	bindServerFlags(c, &cfg)
	return c
}

func newServerStartViaConfigCommand() *cobra.Command {
	var path string
	c := &cobra.Command{
		Use:   "start-via-config",
		Short: "Start the server from a YAML configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := LoadConfigFile(path)
			if err != nil {
				return err
			}
			return runServer(cfg, store.Sync)
		},
	}
	c.Flags().StringVar(&path, "path", "", "path to the YAML config file")
	_ = c.MarkFlagRequired("path")
	return c
}

func newServerShutdownCommand() *cobra.Command {
	var socketPath string
	c := &cobra.Command{
		Use:   "shutdown",
		Short: "Ask a running server to exit cleanly",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := ipc.Send(socketPath, "shutdown")
			return err
		},
	}
	c.Flags().StringVar(&socketPath, "socket", defaultSocketPath, "control socket path")
	return c
}

const defaultSocketPath = "/tmp/posindexer.sock"

func bindServerFlags(c *cobra.Command, cfg *Config) {
	f := c.Flags()
	f.StringVar(&cfg.Network, "network", "mainnet", "network name")
	f.StringVar(&cfg.DatabaseDir, "database-dir", "./database", "store directory")
	f.StringVar(&cfg.BlocksDir, "blocks-dir", "./blocks", "precomputed block directory to ingest at startup")
	f.StringVar(&cfg.BlockWatchDir, "block-watch-dir", "./blocks", "precomputed block directory to watch")
	f.StringVar(&cfg.LedgersDir, "ledgers-dir", "./staking-ledgers", "staking ledger directory to ingest at startup")
	f.StringVar(&cfg.LedgerWatchDir, "ledger-watch-dir", "./staking-ledgers", "staking ledger directory to watch")
	f.StringVar(&cfg.LogDir, "log-dir", "", "log file directory (empty disables file logging)")
	f.StringVar(&cfg.LogLevel, "log-level", "info", "log level")
	f.StringVar(&cfg.SocketPath, "socket", defaultSocketPath, "control socket path")
	f.StringVar(&cfg.HTTPAddr, "http-addr", "127.0.0.1:8080", "read-only HTTP API address")
	f.StringVar(&cfg.GenesisBlockPath, "genesis-block", "", "path to the genesis precomputed block")
	f.Uint32Var(&cfg.TransitionFrontierK, "transition-frontier-k", 0, "k (0 = mainnet default)")
	f.Uint32Var(&cfg.PruneInterval, "prune-interval", 0, "pruning interval (0 = mainnet default)")
	f.Uint32Var(&cfg.CanonicalThreshold, "canonical-threshold", 0, "canonical threshold (0 = mainnet default)")
	f.Uint32Var(&cfg.CanonicalUpdateThreshold, "canonical-update-threshold", 0, "canonical update threshold (0 = mainnet default)")
	f.Uint32Var(&cfg.LedgerCadence, "ledger-cadence", 0, "ledger snapshot cadence (0 = mainnet default)")
}

// runServer wires the store, witness tree/engine, watcher, control
// socket, and HTTP facade together and blocks until a termination
// signal arrives, exiting with the codes original_source/rust/src/server.rs
// uses: 100 on SIGTERM, 101 on SIGINT.
func runServer(cfg Config, mode store.StartupMode) error {
	log := newLogger(cfg.LogDir, cfg.LogLevel)
	defer log.Sync()

	if cfg.GenesisBlockPath == "" {
		return errors.New("--genesis-block is required")
	}
	genesis, err := pcbparser.ParseFile(cfg.GenesisBlockPath)
	if err != nil {
		return errors.Wrap(err, "parsing genesis block")
	}

	st, err := store.Open(cfg.DatabaseDir, log)
	if err != nil {
		return errors.Wrap(err, "opening store")
	}
	if _, err := st.CheckVersion(); err != nil {
		return errors.Wrap(err, "checking schema version")
	}
	if err := st.SetVersion("unknown"); err != nil {
		return errors.Wrap(err, "stamping schema version")
	}

	eng, err := engine.Open(st, mode, cfg.CanonicityConfig(), genesis, []types.BlockHash{genesis.StateHash}, log)
	if err != nil {
		return errors.Wrap(err, "initializing engine")
	}

	// Replay mode reconstructs the witness tree from engine.Open's
	// rebuildFromEvents (event log + stored block bodies, spec.md §4.2: "no
	// blocks are re-parsed"). Re-walking BlocksDir/LedgersDir here would
	// re-ingest the same history a second time.
	if mode != store.Replay {
		if err := ingestExistingFiles(eng, cfg, genesis.StateHash, log); err != nil {
			return errors.Wrap(err, "ingesting pre-existing directory contents")
		}
	}

	w, err := watcher.New(cfg.BlockWatchDir, cfg.LedgerWatchDir, genesis.StateHash, pcbparser.ParseFile, pcbparser.ParseStakingLedgerFile, log)
	if err != nil {
		return errors.Wrap(err, "starting watcher")
	}
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		if err := w.Run(ctx); err != nil {
			log.Errorw("watcher stopped", "err", err)
		}
	}()
	go drainWatcher(eng, w, log)

	ipcSrv := ipc.New(cfg.SocketPath, eng, log)
	go func() {
		if err := ipcSrv.Run(); err != nil {
			log.Errorw("control socket exited", "err", err)
		}
	}()

	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: apihttp.NewRouter(eng)}
	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorw("http server exited", "err", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	sig := <-sigCh
	log.Infow("received signal, shutting down", "signal", sig)
	httpSrv.Close()
	st.Close()

	switch sig {
	case syscall.SIGTERM:
		os.Exit(100)
	case syscall.SIGINT:
		os.Exit(101)
	}
	return nil
}

// ingestExistingFiles walks BlocksDir/LedgersDir once at startup,
// ingesting any precomputed blocks or staking ledgers already on disk
// before the watcher takes over for new arrivals — mirroring the
// original's initialize() which scans the configured directories before
// entering its fsnotify watch loop (server.rs).
func ingestExistingFiles(eng *engine.Engine, cfg Config, genesisHash types.BlockHash, log *zap.SugaredLogger) error {
	blockPaths, err := sortedFilePaths(cfg.BlocksDir)
	if err != nil {
		return err
	}
	for _, p := range blockPaths {
		if !watcher.IsBlockFilename(p) {
			continue
		}
		blk, err := pcbparser.ParseFile(p)
		if err != nil {
			log.Warnw("skipping unparseable block file at startup", "path", p, "err", err)
			continue
		}
		if err := eng.IngestBlock(blk); err != nil {
			return errors.Wrapf(err, "ingesting %s", p)
		}
	}

	ledgerPaths, err := sortedFilePaths(cfg.LedgersDir)
	if err != nil {
		return err
	}
	for _, p := range ledgerPaths {
		sl, err := pcbparser.ParseStakingLedgerFile(p, genesisHash)
		if err != nil {
			log.Warnw("skipping unparseable staking ledger file at startup", "path", p, "err", err)
			continue
		}
		if err := eng.IngestStakingLedger(sl); err != nil {
			return errors.Wrapf(err, "ingesting %s", p)
		}
	}
	return nil
}

func sortedFilePaths(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "reading directory %s", dir)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	paths := make([]string, len(names))
	for i, n := range names {
		paths[i] = filepath.Join(dir, n)
	}
	return paths, nil
}

func drainWatcher(eng *engine.Engine, w *watcher.Watcher, log *zap.SugaredLogger) {
	for {
		select {
		case blk, ok := <-w.Blocks:
			if !ok {
				return
			}
			if err := eng.IngestBlock(blk); err != nil {
				log.Errorw("ingesting block", "stateHash", blk.StateHash, "err", err)
			}
		case sl, ok := <-w.Ledgers:
			if !ok {
				return
			}
			if err := eng.IngestStakingLedger(sl); err != nil {
				log.Errorw("ingesting staking ledger", "epoch", sl.Epoch, "err", err)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			log.Errorw("watcher error", "err", err)
		}
	}
}
