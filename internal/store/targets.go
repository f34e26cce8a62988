package store

import (
	"context"

	"github.com/dgraph-io/badger/v4"

	"github.com/ethereum-tag-service/ets-server/internal/domain"
)

// CreateTarget stores a new target. Returns ErrAlreadyExists when the id is
// already registered.
func (s *Badger) CreateTarget(ctx context.Context, t *domain.Target) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.update(func(txn *badger.Txn) error {
		k := key(targetPrefix, t.ID)
		found, err := exists(txn, k)
		if err != nil {
			return err
		}
		if found {
			return ErrAlreadyExists.WithMessage("target already exists")
		}
		return setJSON(txn, k, t)
	})
}

// GetTarget retrieves a target by id.
func (s *Badger) GetTarget(ctx context.Context, id domain.Hash) (*domain.Target, error) {
	var t domain.Target
	if err := s.get(ctx, key(targetPrefix, id), &t); err != nil {
		return nil, err
	}
	return &t, nil
}
