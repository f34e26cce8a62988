package main

import (
	"fmt"
	"math/big"

	"github.com/spf13/cobra"

	"github.com/ethereum-tag-service/ets-server/internal/domain"
	"github.com/ethereum-tag-service/ets-server/internal/tagging"
)

func newFeeCmd() *cobra.Command {
	var (
		action    string
		perTagFee string
		existing  []string
		params    = tagging.DefaultParams()
	)

	cmd := &cobra.Command{
		Use:   "fee [tag...]",
		Short: "Quote the fee and payout split of a tagging mutation",
		Long: `Quotes a mutation against a record that already carries --existing tags.
Each new tag's fee is split with the default percentages; the remainder goes
to the tag creator.

Example:
  etsctl fee --per-tag-fee 1000 --existing "#aa" "#aa" "#bb" "#cc"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			act, err := tagging.ParseAction(action)
			if err != nil {
				return err
			}
			fee, ok := new(big.Int).SetString(perTagFee, 10)
			if !ok || fee.Sign() < 0 {
				return fmt.Errorf("invalid per-tag fee %q", perTagFee)
			}

			total, count, err := tagging.ComputeFee(tagIDs(existing), tagIDs(args), act, fee)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "action:        %s\n", act)
			fmt.Fprintf(out, "new tags:      %d\n", count)
			fmt.Fprintf(out, "fee (wei):     %s\n", total)
			if act != tagging.ActionRemove && count > 0 {
				for _, c := range perTagSplit(fee, params) {
					fmt.Fprintf(out, "  %-12s %s\n", c.Role, c.Amount)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&action, "action", "append", "append, replace or remove")
	cmd.Flags().StringVar(&perTagFee, "per-tag-fee", "0", "Fee per new tag in wei")
	cmd.Flags().StringSliceVar(&existing, "existing", nil, "Tags already on the record")

	return cmd
}

func tagIDs(tags []string) []domain.Hash {
	ids := make([]domain.Hash, len(tags))
	for i, t := range tags {
		ids[i] = tagging.ComputeTagID(t)
	}
	return ids
}

// perTagSplit lists the credits one added platform-owned tag produces.
func perTagSplit(fee *big.Int, p tagging.Params) []domain.Credit {
	p.TaggingFee = fee
	tag := &domain.Tag{Owner: p.Platform, Creator: p.Platform}
	return tagging.SplitFee(p, domain.Address{}, []*domain.Tag{tag})
}
