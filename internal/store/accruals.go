package store

import (
	"context"
	"math/big"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/ethereum-tag-service/ets-server/internal/domain"
)

func creditAccruals(txn *badger.Txn, credits []domain.Credit, at time.Time) error {
	for _, c := range credits {
		a, err := loadAccrual(txn, c.Address)
		if err != nil {
			return err
		}
		a.Accrued.Add(a.Accrued, c.Amount)
		a.UpdatedAt = at
		if err := setJSON(txn, key(accrualPrefix, c.Address), a); err != nil {
			return err
		}
	}
	return nil
}

// GetAccrual returns the accrual for addr, zero-valued if it was never
// credited.
func (s *Badger) GetAccrual(ctx context.Context, addr domain.Address) (*domain.Accrual, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var a *domain.Accrual
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		a, err = loadAccrual(txn, addr)
		return err
	})
	return a, err
}

// DrawDown pays out the outstanding balance of payout.Beneficiary. It sets
// payout.Amount and, when positive, marks the balance paid and records the
// receipt in the same transaction. A zero balance writes nothing.
func (s *Badger) DrawDown(ctx context.Context, payout *domain.Payout) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.update(func(txn *badger.Txn) error {
		a, err := loadAccrual(txn, payout.Beneficiary)
		if err != nil {
			return err
		}
		payout.Amount = a.Outstanding()
		if payout.Amount.Sign() <= 0 {
			payout.Amount = new(big.Int)
			return nil
		}

		a.Paid = new(big.Int).Set(a.Accrued)
		a.UpdatedAt = payout.CreatedAt
		if err := setJSON(txn, key(accrualPrefix, a.Address), a); err != nil {
			return err
		}
		return setJSON(txn, payoutKey(payout.Beneficiary, payout.ID), payout)
	})
}

// ListPayouts returns the drawdown receipts of addr, oldest first.
func (s *Badger) ListPayouts(ctx context.Context, addr domain.Address, params PaginationParams) (*PaginatedResult[*domain.Payout], error) {
	prefix := payoutPrefix + addr.String() + ":"
	return scanPage(ctx, s.db, prefix, params, func(_ *badger.Txn, item *badger.Item) (*domain.Payout, bool, error) {
		p, err := decodeValue[domain.Payout](item)
		return p, err == nil, err
	})
}
