// Command indexer drives the witness tree / ledger engine core: the
// `server` subcommands own the store and ingest pipeline, `client`
// subcommands talk to a running server's control socket, `db-version`
// reports the on-disk schema version, and `restore-snapshot` rehydrates
// a store directory from a backup. Exit codes follow spec.md §6: 0
// clean, 100 SIGTERM, 101 SIGINT, 1 error — grounded on
// original_source/src/bin/mina-indexer.rs's Cli{Server,Client} split.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:   "indexer",
		Short: "Indexes a proof-of-stake chain's witness tree and account ledger",
	}
	root.AddCommand(newServerCommand())
	root.AddCommand(newClientCommand())
	root.AddCommand(newDBVersionCommand())
	root.AddCommand(newRestoreSnapshotCommand())
	root.AddCommand(newStakingSummaryCommand())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
