package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum-tag-service/ets-server/internal/domain"
	"github.com/ethereum-tag-service/ets-server/internal/store"
)

func loadAccrual(ctx context.Context, q querier, addr domain.Address) (*domain.Accrual, error) {
	var accrued, paid, updatedAt string
	err := q.QueryRowContext(ctx,
		`SELECT accrued, paid, updated_at FROM accruals WHERE address = ?`, addr.String(),
	).Scan(&accrued, &paid, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.NewAccrual(addr), nil
	}
	if err != nil {
		return nil, err
	}

	a := &domain.Accrual{Address: addr}
	if a.Accrued, err = parseAmount(accrued); err != nil {
		return nil, err
	}
	if a.Paid, err = parseAmount(paid); err != nil {
		return nil, err
	}
	if a.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return a, nil
}

func saveAccrual(ctx context.Context, db execer, a *domain.Accrual) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO accruals (address, accrued, paid, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(address) DO UPDATE SET
			accrued = excluded.accrued,
			paid = excluded.paid,
			updated_at = excluded.updated_at`,
		a.Address.String(), a.Accrued.String(), a.Paid.String(), formatTime(a.UpdatedAt))
	return err
}

func creditAccruals(ctx context.Context, tx *sql.Tx, credits []domain.Credit, at time.Time) error {
	for _, c := range credits {
		a, err := loadAccrual(ctx, tx, c.Address)
		if err != nil {
			return fmt.Errorf("load accrual: %w", err)
		}
		a.Accrued.Add(a.Accrued, c.Amount)
		a.UpdatedAt = touchTime(at)
		if err := saveAccrual(ctx, tx, a); err != nil {
			return fmt.Errorf("save accrual: %w", err)
		}
	}
	return nil
}

// GetAccrual returns the accrual for addr, zero-valued if never credited.
func (s *Store) GetAccrual(ctx context.Context, addr domain.Address) (*domain.Accrual, error) {
	return loadAccrual(ctx, s.db, addr)
}

// DrawDown pays out the outstanding balance of payout.Beneficiary in one
// transaction. A zero balance writes nothing.
func (s *Store) DrawDown(ctx context.Context, payout *domain.Payout) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	a, err := loadAccrual(ctx, tx, payout.Beneficiary)
	if err != nil {
		return err
	}
	payout.Amount = a.Outstanding()
	if payout.Amount.Sign() <= 0 {
		payout.Amount = new(big.Int)
		return nil
	}

	a.Paid = new(big.Int).Set(a.Accrued)
	a.UpdatedAt = touchTime(payout.CreatedAt)
	if err := saveAccrual(ctx, tx, a); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO payouts (id, beneficiary, amount, created_at) VALUES (?, ?, ?, ?)`,
		payout.ID, payout.Beneficiary.String(), payout.Amount.String(), formatTime(payout.CreatedAt))
	if isUniqueViolation(err) {
		return store.ErrAlreadyExists.WithMessage("payout already recorded")
	}
	if err != nil {
		return err
	}
	return tx.Commit()
}

// ListPayouts returns the drawdown receipts of addr, oldest first.
func (s *Store) ListPayouts(ctx context.Context, addr domain.Address, params store.PaginationParams) (*store.PaginatedResult[*domain.Payout], error) {
	after, err := decodeIDCursor(&params)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, amount, created_at FROM payouts
		WHERE beneficiary = ? AND id > ?
		ORDER BY id ASC LIMIT ?`, addr.String(), after, params.Limit+1)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payouts []*domain.Payout
	for rows.Next() {
		var amount, createdAt string
		p := &domain.Payout{Beneficiary: addr}
		if err := rows.Scan(&p.ID, &amount, &createdAt); err != nil {
			return nil, err
		}
		if p.Amount, err = parseAmount(amount); err != nil {
			return nil, err
		}
		if p.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		payouts = append(payouts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return finishPage(payouts, params.Limit, func(p *domain.Payout) string { return p.ID }), nil
}
