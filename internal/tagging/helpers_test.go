package tagging

import (
	"context"
	"math/big"

	"github.com/ethereum-tag-service/ets-server/internal/domain"
)

func addr(b byte) domain.Address {
	var a domain.Address
	a[19] = b
	return a
}

func wei(v int64) *big.Int { return big.NewInt(v) }

func ids(tags ...string) []domain.Hash {
	out := make([]domain.Hash, len(tags))
	for i, t := range tags {
		out[i] = ComputeTagID(t)
	}
	return out
}

// relayerSet is an in-memory oracle.
type relayerSet map[domain.Address]bool

func (s relayerSet) IsActiveRelayer(_ context.Context, a domain.Address) (bool, error) {
	return s[a], nil
}
