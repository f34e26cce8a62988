// Package main provides etsctl, an operator tool for the ETS server.
//
// It derives protocol identifiers and fee quotes offline, validates protocol
// files, and seeds, inspects or reindexes a local data directory.
//
// Usage:
//
//	etsctl tag-id "#Love"
//	etsctl record-id --target-uri https://example.com --record-type bookmark --relayer 0x.. --tagger 0x..
//	etsctl protocol check ./protocol.yaml
//	etsctl inspect --db ~/ETS/db
//	etsctl reindex --data ~/ETS
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "etsctl",
		Short: "Operator tool for the Ethereum Tag Service server",
		Long: `etsctl computes tag, target and record ids the same way the server does,
quotes tagging fees, checks protocol files and works on local stores.`,
		SilenceUsage: true,
	}

	root.AddCommand(newTagIDCmd())
	root.AddCommand(newTargetIDCmd())
	root.AddCommand(newRecordIDCmd())
	root.AddCommand(newFeeCmd())
	root.AddCommand(newProtocolCmd())
	root.AddCommand(newInspectCmd())
	root.AddCommand(newSeedCmd())
	root.AddCommand(newReindexCmd())

	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
