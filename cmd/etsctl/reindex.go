package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ethereum-tag-service/ets-server/internal/logger"
	"github.com/ethereum-tag-service/ets-server/internal/search"
	"github.com/ethereum-tag-service/ets-server/internal/store"
)

func newReindexCmd() *cobra.Command {
	var dataPath string

	cmd := &cobra.Command{
		Use:   "reindex",
		Short: "Drop the tag search index and rebuild it from the Badger store",
		Long: `Rebuilds DATA_PATH/tags.bleve from every tag in DATA_PATH/db. Use it after
restoring a store from backup or when search results look stale. Stop the
server first.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			log := logger.Discard().Logger
			st, err := store.New(filepath.Join(dataPath, "db"), log)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer st.Close()

			index, err := search.NewTagIndex(search.Options{DataPath: dataPath, Logger: log})
			if err != nil {
				return fmt.Errorf("open index: %w", err)
			}
			defer index.Close()

			if !index.Fresh() {
				if err := index.Rebuild(); err != nil {
					return err
				}
			}

			count, err := index.Reindex(ctx, st)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d tags\n", count)
			return nil
		},
	}

	cmd.Flags().StringVar(&dataPath, "data", "", "Server data directory (DATA_PATH)")
	_ = cmd.MarkFlagRequired("data")

	return cmd
}
