package sqlite

import (
	"context"
	"database/sql"

	"github.com/ethereum-tag-service/ets-server/internal/domain"
	"github.com/ethereum-tag-service/ets-server/internal/store"
)

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// CreateAccount inserts a new account.
// Returns store.ErrAlreadyExists if the address is taken.
func (s *Store) CreateAccount(ctx context.Context, account *domain.Account) error {
	return insertAccount(ctx, s.db, account)
}

func insertAccount(ctx context.Context, db execer, account *domain.Account) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO accounts (address, role, api_key_hash, created_at)
		VALUES (?, ?, ?, ?)`,
		account.Address.String(),
		string(account.Role),
		account.APIKeyHash,
		formatTime(account.CreatedAt),
	)
	if isUniqueViolation(err) {
		return store.ErrAlreadyExists.WithMessage("account already exists")
	}
	return err
}

// GetAccount retrieves an account by address.
func (s *Store) GetAccount(ctx context.Context, addr domain.Address) (*domain.Account, error) {
	var (
		a         domain.Account
		address   string
		role      string
		createdAt string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT address, role, api_key_hash, created_at FROM accounts WHERE address = ?`,
		addr.String(),
	).Scan(&address, &role, &a.APIKeyHash, &createdAt)
	if err != nil {
		return nil, mapNoRows(err, "account")
	}

	if a.Address, err = domain.ParseAddress(address); err != nil {
		return nil, err
	}
	a.Role = domain.Role(role)
	if a.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &a, nil
}
