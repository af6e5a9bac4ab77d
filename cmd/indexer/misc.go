package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/posindexer/posindexer/internal/engine"
	"github.com/posindexer/posindexer/internal/store"
)

// newDBVersionCommand reports the on-disk schema version recorded in the
// Version singleton, mirroring the original's `db-version` subcommand.
func newDBVersionCommand() *cobra.Command {
	var dbDir string
	c := &cobra.Command{
		Use:   "db-version",
		Short: "Print the on-disk schema version of a store directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := newLogger("", "error")
			st, err := store.Open(dbDir, log)
			if err != nil {
				return err
			}
			defer st.Close()
			v, err := st.CheckVersion()
			if err != nil {
				return err
			}
			fmt.Printf("%d.%d.%d (%s)\n", v.Major, v.Minor, v.Patch, v.GitCommitHash)
			return nil
		},
	}
	c.Flags().StringVar(&dbDir, "database-dir", "./database", "store directory")
	return c
}

// newRestoreSnapshotCommand rehydrates a store directory from a backup
// directory, mirroring IndexerStore::from_backup in
// original_source/src/bin/mina-indexer.rs: a plain recursive copy since
// the store is a directory of MDBX data files, not a single archive.
func newRestoreSnapshotCommand() *cobra.Command {
	var snapshotPath, dbDir string
	c := &cobra.Command{
		Use:   "restore-snapshot",
		Short: "Restore a store directory from a snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			return restoreSnapshot(snapshotPath, dbDir)
		},
	}
	c.Flags().StringVar(&snapshotPath, "snapshot-path", "", "path to the snapshot directory")
	c.Flags().StringVar(&dbDir, "database-dir", "./database", "destination store directory")
	_ = c.MarkFlagRequired("snapshot-path")
	return c
}

// newStakingSummaryCommand prints the one-line "(epoch N): ledger_hash"
// summary of one epoch's stored staking ledger (no delegation totals),
// reading the store directly (like
// db-version, this requires the server not to be running since the
// store enforces single-writer-at-a-time via a directory lock).
func newStakingSummaryCommand() *cobra.Command {
	var dbDir, network, ledgerHash string
	var epoch uint32
	c := &cobra.Command{
		Use:   "staking-summary",
		Short: "Print a stored staking ledger's epoch and ledger hash",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := newLogger("", "error")
			st, err := store.Open(dbDir, log)
			if err != nil {
				return err
			}
			defer st.Close()
			summary, found, err := engine.StakingLedgerSummary(st, network, epoch, ledgerHash)
			if err != nil {
				return err
			}
			if !found {
				return errors.Errorf("no staking ledger recorded for %s-%d-%s", network, epoch, ledgerHash)
			}
			fmt.Println(summary)
			return nil
		},
	}
	c.Flags().StringVar(&dbDir, "database-dir", "./database", "store directory")
	c.Flags().StringVar(&network, "network", "mainnet", "network name")
	c.Flags().Uint32Var(&epoch, "epoch", 0, "staking epoch")
	c.Flags().StringVar(&ledgerHash, "ledger-hash", "", "staking ledger hash")
	_ = c.MarkFlagRequired("ledger-hash")
	return c
}

func restoreSnapshot(snapshotPath, dbDir string) error {
	info, err := os.Stat(snapshotPath)
	if err != nil {
		return errors.Wrap(err, "reading snapshot path")
	}
	if !info.IsDir() {
		return errors.Errorf("snapshot path %s is not a directory", snapshotPath)
	}
	if _, err := os.Stat(dbDir); err == nil {
		return errors.Errorf("destination %s already exists, refusing to overwrite", dbDir)
	}
	if err := os.MkdirAll(dbDir, 0o755); err != nil {
		return errors.Wrap(err, "creating destination directory")
	}
	return filepath.Walk(snapshotPath, func(path string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(snapshotPath, path)
		if err != nil {
			return err
		}
		dst := filepath.Join(dbDir, rel)
		if fi.IsDir() {
			return os.MkdirAll(dst, fi.Mode())
		}
		return copyFile(path, dst, fi.Mode())
	})
}

func copyFile(src, dst string, mode os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	defer out.Close()
	_, err = io.Copy(out, in)
	return err
}
