package tagging

import (
	"fmt"
	"math/big"

	"github.com/ethereum-tag-service/ets-server/internal/domain"
)

// Params are the protocol parameters the engine prices and validates with.
// A Params value is immutable once handed to an Engine.
type Params struct {
	Platform            domain.Address
	TaggingFee          *big.Int // wei charged per net-new tag
	PlatformPercentage  int
	RelayerPercentage   int
	MaxRecordTypeLength int
	TagMinLength        int
	TagMaxLength        int
}

// DefaultParams returns the parameters the protocol launches with, minus the
// platform address which must always be configured.
func DefaultParams() Params {
	return Params{
		TaggingFee:          new(big.Int),
		PlatformPercentage:  20,
		RelayerPercentage:   30,
		MaxRecordTypeLength: 32,
		TagMinLength:        2,
		TagMaxLength:        32,
	}
}

// Validate checks the parameters are internally consistent.
func (p Params) Validate() error {
	if p.Platform.IsZero() {
		return fmt.Errorf("platform address is required")
	}
	if p.TaggingFee == nil || p.TaggingFee.Sign() < 0 {
		return fmt.Errorf("tagging fee must be a non-negative amount")
	}
	if p.PlatformPercentage < 0 || p.RelayerPercentage < 0 {
		return fmt.Errorf("percentages must not be negative")
	}
	if p.PlatformPercentage+p.RelayerPercentage > 100 {
		return fmt.Errorf("platform (%d%%) and relayer (%d%%) percentages exceed 100%%",
			p.PlatformPercentage, p.RelayerPercentage)
	}
	if p.MaxRecordTypeLength <= 0 {
		return fmt.Errorf("max record type length must be positive")
	}
	if p.TagMinLength <= 0 || p.TagMaxLength < p.TagMinLength {
		return fmt.Errorf("tag length bounds [%d, %d] are invalid", p.TagMinLength, p.TagMaxLength)
	}
	return nil
}

// fee returns a copy of the per-tag fee, treating nil as zero.
func (p Params) fee() *big.Int {
	if p.TaggingFee == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(p.TaggingFee)
}
