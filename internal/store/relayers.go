package store

import (
	"context"

	"github.com/dgraph-io/badger/v4"

	"github.com/ethereum-tag-service/ets-server/internal/domain"
)

// CreateRelayer stores a relayer together with the account it authenticates
// as, in one transaction.
func (s *Badger) CreateRelayer(ctx context.Context, r *domain.Relayer, account *domain.Account) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.update(func(txn *badger.Txn) error {
		k := key(relayerPrefix, r.Address)
		found, err := exists(txn, k)
		if err != nil {
			return err
		}
		if found {
			return ErrAlreadyExists.WithMessage("relayer already exists")
		}
		if err := putAccount(txn, account); err != nil {
			return err
		}
		return setJSON(txn, k, r)
	})
}

// GetRelayer retrieves a relayer by address.
func (s *Badger) GetRelayer(ctx context.Context, addr domain.Address) (*domain.Relayer, error) {
	var r domain.Relayer
	if err := s.get(ctx, key(relayerPrefix, addr), &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// UpdateRelayer overwrites an existing relayer.
func (s *Badger) UpdateRelayer(ctx context.Context, r *domain.Relayer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.update(func(txn *badger.Txn) error {
		k := key(relayerPrefix, r.Address)
		found, err := exists(txn, k)
		if err != nil {
			return err
		}
		if !found {
			return ErrNotFound.WithMessage("relayer not found")
		}
		return setJSON(txn, k, r)
	})
}

// ListRelayers returns relayers ordered by address.
func (s *Badger) ListRelayers(ctx context.Context, params PaginationParams) (*PaginatedResult[*domain.Relayer], error) {
	return scanPage(ctx, s.db, relayerPrefix, params, func(_ *badger.Txn, item *badger.Item) (*domain.Relayer, bool, error) {
		r, err := decodeValue[domain.Relayer](item)
		return r, err == nil, err
	})
}
