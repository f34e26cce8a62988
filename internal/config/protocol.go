package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math/big"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ethereum-tag-service/ets-server/internal/domain"
	"github.com/ethereum-tag-service/ets-server/internal/tagging"
)

// ProtocolConfig holds the tagging protocol parameters as configured.
type ProtocolConfig struct {
	File                string // optional YAML override file, hot reloaded
	PlatformAddress     string
	TaggingFee          string // wei, decimal
	PlatformPercentage  int
	RelayerPercentage   int
	MaxRecordTypeLength int
	TagMinLength        int
	TagMaxLength        int
}

// ProtocolFile is the YAML form of the protocol parameters. Absent keys
// leave the flag/env value in place.
//
//	platform_address: "0x..."
//	tagging_fee: "100000000000000000"
//	platform_percentage: 20
//	relayer_percentage: 30
//	max_record_type_length: 32
//	tag_min_length: 2
//	tag_max_length: 32
type ProtocolFile struct {
	PlatformAddress     *string `yaml:"platform_address"`
	TaggingFee          *string `yaml:"tagging_fee"`
	PlatformPercentage  *int    `yaml:"platform_percentage"`
	RelayerPercentage   *int    `yaml:"relayer_percentage"`
	MaxRecordTypeLength *int    `yaml:"max_record_type_length"`
	TagMinLength        *int    `yaml:"tag_min_length"`
	TagMaxLength        *int    `yaml:"tag_max_length"`
}

// LoadProtocolFile parses a protocol YAML file. Unknown keys are errors so
// typos do not silently fall back to defaults.
func LoadProtocolFile(path string) (*ProtocolFile, error) {
	data, err := os.ReadFile(path) //#nosec G304 -- operator supplied config path
	if err != nil {
		return nil, fmt.Errorf("read protocol file: %w", err)
	}

	var f ProtocolFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse protocol file %s: %w", path, err)
	}
	return &f, nil
}

// Merge returns p with every key present in f applied.
func (p ProtocolConfig) Merge(f *ProtocolFile) ProtocolConfig {
	if f == nil {
		return p
	}
	if f.PlatformAddress != nil {
		p.PlatformAddress = *f.PlatformAddress
	}
	if f.TaggingFee != nil {
		p.TaggingFee = *f.TaggingFee
	}
	if f.PlatformPercentage != nil {
		p.PlatformPercentage = *f.PlatformPercentage
	}
	if f.RelayerPercentage != nil {
		p.RelayerPercentage = *f.RelayerPercentage
	}
	if f.MaxRecordTypeLength != nil {
		p.MaxRecordTypeLength = *f.MaxRecordTypeLength
	}
	if f.TagMinLength != nil {
		p.TagMinLength = *f.TagMinLength
	}
	if f.TagMaxLength != nil {
		p.TagMaxLength = *f.TagMaxLength
	}
	return p
}

// Params converts the configuration into validated engine parameters.
func (p ProtocolConfig) Params() (tagging.Params, error) {
	if p.PlatformAddress == "" {
		return tagging.Params{}, errors.New("PLATFORM_ADDRESS is required")
	}
	platform, err := domain.ParseAddress(p.PlatformAddress)
	if err != nil {
		return tagging.Params{}, fmt.Errorf("invalid platform address: %w", err)
	}

	fee, ok := new(big.Int).SetString(p.TaggingFee, 10)
	if !ok {
		return tagging.Params{}, fmt.Errorf("invalid tagging fee %q: must be a decimal wei amount", p.TaggingFee)
	}

	params := tagging.Params{
		Platform:            platform,
		TaggingFee:          fee,
		PlatformPercentage:  p.PlatformPercentage,
		RelayerPercentage:   p.RelayerPercentage,
		MaxRecordTypeLength: p.MaxRecordTypeLength,
		TagMinLength:        p.TagMinLength,
		TagMaxLength:        p.TagMaxLength,
	}
	if err := params.Validate(); err != nil {
		return tagging.Params{}, err
	}
	return params, nil
}
