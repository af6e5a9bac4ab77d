package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/posindexer/posindexer/internal/ipc"
)

// newClientCommand builds the `client` subcommand family, each a thin
// wrapper over ipc.Send mirroring client::ClientCli in
// original_source/src/bin/mina-indexer.rs. --output-json is sent as the
// `summary` command's verbose flag; every subcommand prints the server's
// raw response body unchanged.
func newClientCommand() *cobra.Command {
	var socketPath string
	var outputJSON bool

	cmd := &cobra.Command{
		Use:   "client",
		Short: "Query a running indexer server over its control socket",
	}
	cmd.PersistentFlags().StringVar(&socketPath, "socket", defaultSocketPath, "control socket path")
	cmd.PersistentFlags().BoolVar(&outputJSON, "output-json", false, "request the verbose form of summary")

	send := func(command string, args ...string) error {
		resp, err := ipc.Send(socketPath, command, args...)
		if err != nil {
			return err
		}
		fmt.Println(resp)
		return nil
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "account <public-key>",
		Short: "Look up an account in the current best ledger",
		Args:  cobra.ExactArgs(1),
		RunE:  func(c *cobra.Command, args []string) error { return send("account", args...) },
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "best-chain <n>",
		Short: "List the n most recent blocks of the best chain",
		Args:  cobra.ExactArgs(1),
		RunE:  func(c *cobra.Command, args []string) error { return send("best_chain", args...) },
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "best-ledger [out-file]",
		Short: "Dump the current best ledger",
		Args:  cobra.RangeArgs(0, 1),
		RunE:  func(c *cobra.Command, args []string) error { return send("best_ledger", args...) },
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "ledger <state-hash> [out-file]",
		Short: "Dump the ledger snapshot at a given block",
		Args:  cobra.RangeArgs(1, 2),
		RunE:  func(c *cobra.Command, args []string) error { return send("ledger", args...) },
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "ledger-at-height <height> [out-file]",
		Short: "Dump the canonical ledger snapshot at a given height",
		Args:  cobra.RangeArgs(1, 2),
		RunE:  func(c *cobra.Command, args []string) error { return send("ledger_at_height", args...) },
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "summary",
		Short: "Print a one-line server summary",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			return send("summary", fmt.Sprintf("%t", outputJSON))
		},
	})

	return cmd
}
