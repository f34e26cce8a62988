package tagging

import (
	"math/big"

	"github.com/ethereum-tag-service/ets-server/internal/domain"
)

// Credit roles.
const (
	RolePlatform = "platform"
	RoleRelayer  = "relayer"
	RoleCreator  = "creator"
	RoleOwner    = "owner"
)

// SplitFee divides the per-tag fee charged for each added tag into ledger
// credits. The platform receives PlatformPercentage, the relayer
// RelayerPercentage, and the remainder goes to the tag's owner once it has ever
// left platform custody, to its creator otherwise. Integer division rounds the
// first two shares down so the remainder absorbs dust and the shares always
// sum to the fee. Zero-valued shares are omitted.
func SplitFee(p Params, relayer domain.Address, added []*domain.Tag) []domain.Credit {
	fee := p.fee()
	if fee.Sign() == 0 {
		return nil
	}

	hundred := big.NewInt(100)
	platformShare := new(big.Int).Mul(fee, big.NewInt(int64(p.PlatformPercentage)))
	platformShare.Quo(platformShare, hundred)
	relayerShare := new(big.Int).Mul(fee, big.NewInt(int64(p.RelayerPercentage)))
	relayerShare.Quo(relayerShare, hundred)
	rest := new(big.Int).Sub(fee, platformShare)
	rest.Sub(rest, relayerShare)

	credits := make([]domain.Credit, 0, 3*len(added))
	push := func(addr domain.Address, amount *big.Int, tagID domain.Hash, role string) {
		if amount.Sign() == 0 {
			return
		}
		credits = append(credits, domain.Credit{Address: addr, Amount: new(big.Int).Set(amount), TagID: tagID, Role: role})
	}

	for _, t := range added {
		push(p.Platform, platformShare, t.ID, RolePlatform)
		push(relayer, relayerShare, t.ID, RoleRelayer)
		role := RoleCreator
		if t.LeftPlatform {
			role = RoleOwner
		}
		push(t.FeeRecipient(), rest, t.ID, role)
	}
	return credits
}
