package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/spf13/cobra"

	"github.com/ethereum-tag-service/ets-server/internal/domain"
	domainerrors "github.com/ethereum-tag-service/ets-server/internal/errors"
	"github.com/ethereum-tag-service/ets-server/internal/logger"
	"github.com/ethereum-tag-service/ets-server/internal/service"
	"github.com/ethereum-tag-service/ets-server/internal/store"
	"github.com/ethereum-tag-service/ets-server/internal/tagging"
)

var seedWords = []string{
	"ethereum", "defi", "nft", "dao", "love", "art", "music", "gaming",
	"rollup", "zk", "governance", "staking", "wallet", "bridge", "oracle",
}

const tagSuffixAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

type seedOptions struct {
	dbPath   string
	platform string
	relayer  string
	records  int
	fee      string
}

func newSeedCmd() *cobra.Command {
	opts := seedOptions{}

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Fill a Badger store with test tagging data",
		Long: `Creates the platform admin account and a relayer if missing, then applies
random tags to random targets for a handful of taggers. Every record pays the
exact fee, so accruals add up as they would in production.

Example:
  etsctl seed --db ~/ETS/db --platform-address 0x... --records 50`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSeed(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.dbPath, "db", "", "Path to the Badger directory (DATA_PATH/db)")
	cmd.Flags().StringVar(&opts.platform, "platform-address", "", "Platform (admin) address")
	cmd.Flags().StringVar(&opts.relayer, "relayer", "0x00000000000000000000000000000000000000a1", "Relayer address to seed through")
	cmd.Flags().IntVar(&opts.records, "records", 20, "Number of tagging records to apply")
	cmd.Flags().StringVar(&opts.fee, "fee", "1000000000000000", "Tagging fee in wei")
	_ = cmd.MarkFlagRequired("db")
	_ = cmd.MarkFlagRequired("platform-address")

	return cmd
}

func runSeed(cmd *cobra.Command, opts seedOptions) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	out := cmd.OutOrStdout()

	protocol := defaultProtocol(opts.platform)
	protocol.TaggingFee = opts.fee
	params, err := protocol.Params()
	if err != nil {
		return err
	}
	relayerAddr, err := domain.ParseAddress(opts.relayer)
	if err != nil {
		return fmt.Errorf("relayer: %w", err)
	}

	log := logger.Discard().Logger
	st, err := store.New(opts.dbPath, log)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	if err := ensureAdmin(ctx, st, params.Platform); err != nil {
		return err
	}

	relayers := service.NewRelayerService(st, nil, log)
	registered, err := relayers.Register(ctx, params.Platform, service.RegisterRelayerRequest{
		Address: relayerAddr.String(),
		Name:    "seed",
	})
	switch {
	case err == nil:
		fmt.Fprintf(out, "Registered relayer %s, api key: %s\n", relayerAddr, registered.APIKey)
	case domainerrors.Is(err, domainerrors.ErrAlreadyExists):
		fmt.Fprintf(out, "Relayer %s already registered\n", relayerAddr)
	default:
		return fmt.Errorf("register relayer: %w", err)
	}

	engine, err := tagging.NewEngine(params, relayers)
	if err != nil {
		return err
	}
	taggingSvc := service.NewTaggingService(st, engine, nil, log)

	taggers := make([]domain.Address, 5)
	for i := range taggers {
		taggers[i][19] = byte(i + 1)
	}

	applied := 0
	for i := range opts.records {
		tags, err := randomTags(1 + rand.IntN(4))
		if err != nil {
			return err
		}
		tagger := taggers[rand.IntN(len(taggers))]
		slug, err := gonanoid.Generate(tagSuffixAlphabet, 10)
		if err != nil {
			return err
		}
		uri := "https://example.com/seed/" + slug

		quote, err := taggingSvc.ComputeFee(ctx, service.RawFeeRequest{
			TargetURI:  uri,
			Tags:       tags,
			RecordType: "bookmark",
			Relayer:    relayerAddr.String(),
			Tagger:     tagger.String(),
			Action:     "append",
		})
		if err != nil {
			return fmt.Errorf("quote record %d: %w", i, err)
		}

		if _, err := taggingSvc.ApplyTags(ctx, relayerAddr, service.RawTaggingRequest{
			TargetURI:  uri,
			Tags:       tags,
			RecordType: "bookmark",
			Tagger:     tagger.String(),
			Value:      quote.Fee.String(),
		}); err != nil {
			return fmt.Errorf("apply record %d: %w", i, err)
		}
		applied++
	}

	fmt.Fprintf(out, "Applied %d tagging records\n", applied)
	return nil
}

func ensureAdmin(ctx context.Context, st store.Store, platform domain.Address) error {
	_, err := st.GetAccount(ctx, platform)
	if err == nil {
		return nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("get admin account: %w", err)
	}
	return st.CreateAccount(ctx, &domain.Account{
		Address:   platform,
		Role:      domain.RoleAdmin,
		CreatedAt: time.Now(),
	})
}

// randomTags picks n tags, mixing common words with fresh ones so both
// existing and newly minted tags are exercised.
func randomTags(n int) ([]string, error) {
	tags := make([]string, n)
	for i := range tags {
		if rand.IntN(2) == 0 {
			tags[i] = "#" + seedWords[rand.IntN(len(seedWords))]
			continue
		}
		suffix, err := gonanoid.Generate(tagSuffixAlphabet, 6)
		if err != nil {
			return nil, err
		}
		tags[i] = "#seed" + suffix
	}
	return tags, nil
}
