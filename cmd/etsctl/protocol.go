package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ethereum-tag-service/ets-server/internal/config"
	"github.com/ethereum-tag-service/ets-server/internal/tagging"
)

func newProtocolCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "protocol",
		Short: "Work with protocol parameter files",
	}
	cmd.AddCommand(newProtocolCheckCmd())
	return cmd
}

func newProtocolCheckCmd() *cobra.Command {
	var platform string

	cmd := &cobra.Command{
		Use:   "check [file]",
		Short: "Validate a protocol file and print the resulting parameters",
		Long: `Merges the file onto the server defaults, validates the result the way the
server does on startup and reload, and prints the effective parameters as
YAML.

Example:
  etsctl protocol check ./protocol.yaml --platform-address 0x...`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := config.LoadProtocolFile(args[0])
			if err != nil {
				return err
			}

			params, err := defaultProtocol(platform).Merge(file).Params()
			if err != nil {
				return fmt.Errorf("invalid protocol parameters: %w", err)
			}

			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(effectiveFile(params)); err != nil {
				return err
			}
			return enc.Close()
		},
	}

	cmd.Flags().StringVar(&platform, "platform-address", "", "Platform address used when the file does not set one")

	return cmd
}

// defaultProtocol mirrors the server's flag and environment defaults.
func defaultProtocol(platform string) config.ProtocolConfig {
	d := tagging.DefaultParams()
	return config.ProtocolConfig{
		PlatformAddress:     platform,
		TaggingFee:          d.TaggingFee.String(),
		PlatformPercentage:  d.PlatformPercentage,
		RelayerPercentage:   d.RelayerPercentage,
		MaxRecordTypeLength: d.MaxRecordTypeLength,
		TagMinLength:        d.TagMinLength,
		TagMaxLength:        d.TagMaxLength,
	}
}

func effectiveFile(p tagging.Params) *config.ProtocolFile {
	platform := p.Platform.String()
	fee := p.TaggingFee.String()
	return &config.ProtocolFile{
		PlatformAddress:     &platform,
		TaggingFee:          &fee,
		PlatformPercentage:  &p.PlatformPercentage,
		RelayerPercentage:   &p.RelayerPercentage,
		MaxRecordTypeLength: &p.MaxRecordTypeLength,
		TagMinLength:        &p.TagMinLength,
		TagMaxLength:        &p.TagMaxLength,
	}
}
