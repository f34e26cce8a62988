package sqlite

import (
	"context"
	"fmt"

	"github.com/ethereum-tag-service/ets-server/internal/domain"
	"github.com/ethereum-tag-service/ets-server/internal/store"
)

// relayerColumns must match the scan order in scanRelayer.
const relayerColumns = `address, name, owner, paused, locked, created_at, updated_at`

func scanRelayer(scanner interface{ Scan(dest ...any) error }) (*domain.Relayer, error) {
	var (
		r                    domain.Relayer
		address, owner       string
		paused, locked       int
		createdAt, updatedAt string
	)
	if err := scanner.Scan(&address, &r.Name, &owner, &paused, &locked, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	var err error
	if r.Address, err = domain.ParseAddress(address); err != nil {
		return nil, err
	}
	if r.Owner, err = domain.ParseAddress(owner); err != nil {
		return nil, err
	}
	r.Paused = paused == 1
	r.Locked = locked == 1
	if r.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if r.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &r, nil
}

// CreateRelayer inserts a relayer and its account in one transaction.
func (s *Store) CreateRelayer(ctx context.Context, r *domain.Relayer, account *domain.Account) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := insertAccount(ctx, tx, account); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO relayers (`+relayerColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.Address.String(),
		r.Name,
		r.Owner.String(),
		boolToInt(r.Paused),
		boolToInt(r.Locked),
		formatTime(r.CreatedAt),
		formatTime(r.UpdatedAt),
	)
	if isUniqueViolation(err) {
		return store.ErrAlreadyExists.WithMessage("relayer already exists")
	}
	if err != nil {
		return err
	}
	return tx.Commit()
}

// GetRelayer retrieves a relayer by address.
func (s *Store) GetRelayer(ctx context.Context, addr domain.Address) (*domain.Relayer, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+relayerColumns+` FROM relayers WHERE address = ?`, addr.String())
	r, err := scanRelayer(row)
	if err != nil {
		return nil, mapNoRows(err, "relayer")
	}
	return r, nil
}

// UpdateRelayer overwrites the mutable fields of an existing relayer.
func (s *Store) UpdateRelayer(ctx context.Context, r *domain.Relayer) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE relayers SET name = ?, owner = ?, paused = ?, locked = ?, updated_at = ?
		WHERE address = ?`,
		r.Name,
		r.Owner.String(),
		boolToInt(r.Paused),
		boolToInt(r.Locked),
		formatTime(r.UpdatedAt),
		r.Address.String(),
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound.WithMessage("relayer not found")
	}
	return nil
}

// ListRelayers returns relayers ordered by address.
func (s *Store) ListRelayers(ctx context.Context, params store.PaginationParams) (*store.PaginatedResult[*domain.Relayer], error) {
	after, err := decodeIDCursor(&params)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+relayerColumns+` FROM relayers WHERE address > ? ORDER BY address ASC LIMIT ?`,
		after, params.Limit+1)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var relayers []*domain.Relayer
	for rows.Next() {
		r, err := scanRelayer(rows)
		if err != nil {
			return nil, err
		}
		relayers = append(relayers, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return finishPage(relayers, params.Limit, func(r *domain.Relayer) string { return r.Address.String() }), nil
}
