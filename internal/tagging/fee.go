package tagging

import (
	"math/big"

	"github.com/ethereum-tag-service/ets-server/internal/domain"
	"github.com/ethereum-tag-service/ets-server/internal/errors"
)

// ComputeFee prices reconciling requested against existing.
//
// For append and replace, newTagCount is the number of distinct requested
// tags not in existing and fee is perTagFee × newTagCount. For remove, fee is
// zero and newTagCount is the number of distinct requested tags found in
// existing. An empty requested list is a validation error for every action.
func ComputeFee(existing, requested []domain.Hash, action Action, perTagFee *big.Int) (*big.Int, int, error) {
	if len(requested) == 0 {
		return nil, 0, errors.Validation("tag list must not be empty")
	}

	var count int
	switch action {
	case ActionAppend, ActionReplace:
		_, added := Apply(existing, requested)
		count = len(added)
	case ActionRemove:
		_, removed := Remove(existing, requested)
		return new(big.Int), len(removed), nil
	default:
		return nil, 0, errors.Validationf("invalid action %d", action)
	}

	fee := new(big.Int)
	if perTagFee != nil {
		fee.Mul(perTagFee, big.NewInt(int64(count)))
	}
	return fee, count, nil
}

// CheckPayment enforces that payment equals fee exactly. A nil payment
// counts as zero.
func CheckPayment(fee, payment *big.Int) error {
	if payment == nil {
		payment = new(big.Int)
	}
	if payment.Cmp(fee) != 0 {
		return errors.PaymentMismatch(fee.String(), payment.String())
	}
	return nil
}
