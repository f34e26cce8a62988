package store

import (
	"context"

	"github.com/dgraph-io/badger/v4"

	"github.com/ethereum-tag-service/ets-server/internal/domain"
)

// CreateAccount stores a new account. Returns ErrAlreadyExists if the address
// is taken.
func (s *Badger) CreateAccount(ctx context.Context, account *domain.Account) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.update(func(txn *badger.Txn) error {
		return putAccount(txn, account)
	})
}

func putAccount(txn *badger.Txn, account *domain.Account) error {
	k := key(accountPrefix, account.Address)
	found, err := exists(txn, k)
	if err != nil {
		return err
	}
	if found {
		return ErrAlreadyExists.WithMessage("account already exists")
	}
	return setJSON(txn, k, accountRecord{Account: *account, APIKeyHash: account.APIKeyHash})
}

// GetAccount retrieves an account by address.
func (s *Badger) GetAccount(ctx context.Context, addr domain.Address) (*domain.Account, error) {
	var rec accountRecord
	if err := s.get(ctx, key(accountPrefix, addr), &rec); err != nil {
		return nil, err
	}
	acc := rec.Account
	acc.APIKeyHash = rec.APIKeyHash
	return &acc, nil
}

// accountRecord is the stored form of an account. domain.Account hides the
// key hash from JSON, so it is persisted alongside explicitly.
type accountRecord struct {
	domain.Account
	APIKeyHash string `json:"api_key_hash"`
}
