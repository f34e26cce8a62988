package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ethereum-tag-service/ets-server/internal/domain"
	"github.com/ethereum-tag-service/ets-server/internal/tagging"
)

func newTagIDCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tag-id [tag...]",
		Short: "Print the canonical form and id of tags",
		Long: `Prints the canonical form and id of each tag. Tags are checked against the
default protocol parameters; a tag that would be rejected is reported.

Example:
  etsctl tag-id "#Love" "#ethereum"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params := tagging.DefaultParams()
			out := cmd.OutOrStdout()
			for _, tag := range args {
				if err := tagging.ValidateTag(tag, params); err != nil {
					fmt.Fprintf(out, "%s\tinvalid: %v\n", tag, err)
					continue
				}
				fmt.Fprintf(out, "%s\t%s\n", tagging.CanonicalTag(tag), tagging.ComputeTagID(tag))
			}
			return nil
		},
	}
}

func newTargetIDCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "target-id [uri]",
		Short: "Print the id of a target URI",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := tagging.ValidateTargetURI(args[0]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tagging.ComputeTargetID(args[0]))
			return nil
		},
	}
}

func newRecordIDCmd() *cobra.Command {
	var targetID, targetURI, recordType, relayer, tagger string

	cmd := &cobra.Command{
		Use:   "record-id",
		Short: "Print the id of a tagging record from its composite key",
		Long: `Prints the record id for (target, record type, relayer, tagger). The target
is given either as an id or as a URI.

Example:
  etsctl record-id --target-uri https://example.com --record-type bookmark \
    --relayer 0x00000000000000000000000000000000000000a1 \
    --tagger 0x0000000000000000000000000000000000000001`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			target, err := resolveTarget(targetID, targetURI)
			if err != nil {
				return err
			}
			relayerAddr, err := domain.ParseAddress(relayer)
			if err != nil {
				return fmt.Errorf("relayer: %w", err)
			}
			taggerAddr, err := domain.ParseAddress(tagger)
			if err != nil {
				return fmt.Errorf("tagger: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), tagging.ComputeRecordID(target, recordType, relayerAddr, taggerAddr))
			return nil
		},
	}

	cmd.Flags().StringVar(&targetID, "target-id", "", "Target id (0x-prefixed hash)")
	cmd.Flags().StringVar(&targetURI, "target-uri", "", "Target URI")
	cmd.Flags().StringVar(&recordType, "record-type", "", "Record type")
	cmd.Flags().StringVar(&relayer, "relayer", "", "Relayer address")
	cmd.Flags().StringVar(&tagger, "tagger", "", "Tagger address")
	cmd.MarkFlagsOneRequired("target-id", "target-uri")
	cmd.MarkFlagsMutuallyExclusive("target-id", "target-uri")
	_ = cmd.MarkFlagRequired("relayer")
	_ = cmd.MarkFlagRequired("tagger")

	return cmd
}

func resolveTarget(id, uri string) (domain.Hash, error) {
	if id != "" {
		h, err := domain.ParseHash(id)
		if err != nil {
			return domain.Hash{}, fmt.Errorf("target id: %w", err)
		}
		return h, nil
	}
	return tagging.ComputeTargetID(uri), nil
}
