package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/dgraph-io/badger/v4"
	"github.com/spf13/cobra"

	"github.com/ethereum-tag-service/ets-server/internal/domain"
)

// storePrefixes are the primary record prefixes of the Badger store.
var storePrefixes = []string{
	"account:",
	"relayer:",
	"target:",
	"tag:",
	"record:",
	"accrual:",
	"payout:",
}

func newInspectCmd() *cobra.Command {
	var (
		dbPath string
		show   int
	)

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Print record counts of a Badger store",
		Long: `Opens a Badger store read-only and prints how many records of each kind it
holds, followed by the first tags. Stop the server first: Badger allows a
single process per directory.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts := badger.DefaultOptions(dbPath).
				WithReadOnly(true).
				WithLogger(nil)

			db, err := badger.Open(opts)
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer db.Close()

			return inspect(db, cmd.OutOrStdout(), show)
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "Path to the Badger directory (DATA_PATH/db)")
	cmd.Flags().IntVar(&show, "show", 5, "Number of tags to print")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func inspect(db *badger.DB, out io.Writer, show int) error {
	fmt.Fprintln(out, "=== Store Inspection ===")

	return db.View(func(txn *badger.Txn) error {
		for _, prefix := range storePrefixes {
			n := countPrefix(txn, prefix)
			fmt.Fprintf(out, "%-10s %d\n", prefix, n)
		}

		if show <= 0 {
			return nil
		}

		fmt.Fprintln(out)
		fmt.Fprintln(out, "=== Tags ===")

		it := txn.NewIterator(badger.IteratorOptions{Prefix: []byte("tag:")})
		defer it.Close()

		shown := 0
		for it.Rewind(); it.Valid() && shown < show; it.Next() {
			var tag domain.Tag
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &tag)
			}); err != nil {
				fmt.Fprintf(out, "%s: unreadable: %v\n", it.Item().Key(), err)
				continue
			}
			fmt.Fprintf(out, "%s  %s  owner=%s premium=%t\n", tag.Display, tag.ID, tag.Owner, tag.Premium)
			shown++
		}
		return nil
	})
}

func countPrefix(txn *badger.Txn, prefix string) int {
	it := txn.NewIterator(badger.IteratorOptions{Prefix: []byte(prefix)})
	defer it.Close()

	n := 0
	for it.Rewind(); it.Valid(); it.Next() {
		n++
	}
	return n
}
