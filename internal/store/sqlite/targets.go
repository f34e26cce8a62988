package sqlite

import (
	"context"

	"github.com/ethereum-tag-service/ets-server/internal/domain"
	"github.com/ethereum-tag-service/ets-server/internal/store"
)

// CreateTarget inserts a new target.
// Returns store.ErrAlreadyExists on duplicate id.
func (s *Store) CreateTarget(ctx context.Context, t *domain.Target) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO targets (id, uri, created_by, created_at) VALUES (?, ?, ?, ?)`,
		t.ID.String(), t.URI, t.CreatedBy.String(), formatTime(t.CreatedAt))
	if isUniqueViolation(err) {
		return store.ErrAlreadyExists.WithMessage("target already exists")
	}
	return err
}

// GetTarget retrieves a target by id.
func (s *Store) GetTarget(ctx context.Context, id domain.Hash) (*domain.Target, error) {
	var (
		t                     domain.Target
		rawID, createdBy, cat string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, uri, created_by, created_at FROM targets WHERE id = ?`, id.String(),
	).Scan(&rawID, &t.URI, &createdBy, &cat)
	if err != nil {
		return nil, mapNoRows(err, "target")
	}

	if t.ID, err = domain.ParseHash(rawID); err != nil {
		return nil, err
	}
	if t.CreatedBy, err = domain.ParseAddress(createdBy); err != nil {
		return nil, err
	}
	if t.CreatedAt, err = parseTime(cat); err != nil {
		return nil, err
	}
	return &t, nil
}
