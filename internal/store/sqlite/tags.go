package sqlite

import (
	"context"
	"strings"

	"github.com/ethereum-tag-service/ets-server/internal/domain"
	"github.com/ethereum-tag-service/ets-server/internal/store"
)

// tagColumns is the ordered list of columns selected in tag queries.
// Must match the scan order in scanTag.
const tagColumns = `id, display, creator, relayer, owner, premium, reserved, left_platform, created_at, updated_at`

// scanTag scans a sql.Row (or sql.Rows via its Scan method) into a domain.Tag.
func scanTag(scanner interface{ Scan(dest ...any) error }) (*domain.Tag, error) {
	var (
		t                       domain.Tag
		id, creator, rel, owner string
		premium, reserved, left int
		createdAt, updatedAt    string
	)
	err := scanner.Scan(&id, &t.Display, &creator, &rel, &owner, &premium, &reserved, &left, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	if t.ID, err = domain.ParseHash(id); err != nil {
		return nil, err
	}
	if t.Creator, err = domain.ParseAddress(creator); err != nil {
		return nil, err
	}
	if t.Relayer, err = domain.ParseAddress(rel); err != nil {
		return nil, err
	}
	if t.Owner, err = domain.ParseAddress(owner); err != nil {
		return nil, err
	}
	t.Premium = premium == 1
	t.Reserved = reserved == 1
	t.LeftPlatform = left == 1
	if t.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if t.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &t, nil
}

func insertTag(ctx context.Context, db execer, t *domain.Tag) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO tags (`+tagColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID.String(),
		t.Display,
		t.Creator.String(),
		t.Relayer.String(),
		t.Owner.String(),
		boolToInt(t.Premium),
		boolToInt(t.Reserved),
		boolToInt(t.LeftPlatform),
		formatTime(t.CreatedAt),
		formatTime(t.UpdatedAt),
	)
	if isUniqueViolation(err) {
		return store.ErrAlreadyExists.WithMessage("tag " + t.Display + " already exists")
	}
	return err
}

// GetTag retrieves a tag by its id.
// Returns store.ErrNotFound if the tag does not exist.
func (s *Store) GetTag(ctx context.Context, id domain.Hash) (*domain.Tag, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+tagColumns+` FROM tags WHERE id = ?`, id.String())
	t, err := scanTag(row)
	if err != nil {
		return nil, mapNoRows(err, "tag")
	}
	return t, nil
}

// GetTags retrieves the tags that exist among ids.
func (s *Store) GetTags(ctx context.Context, ids []domain.Hash) (map[domain.Hash]*domain.Tag, error) {
	tags := make(map[domain.Hash]*domain.Tag, len(ids))
	if len(ids) == 0 {
		return tags, nil
	}

	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id.String()
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+tagColumns+` FROM tags WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		t, err := scanTag(rows)
		if err != nil {
			return nil, err
		}
		tags[t.ID] = t
	}
	return tags, rows.Err()
}

// UpdateTag overwrites the mutable fields of an existing tag and reindexes it.
func (s *Store) UpdateTag(ctx context.Context, t *domain.Tag) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE tags SET owner = ?, premium = ?, reserved = ?, left_platform = ?, updated_at = ? WHERE id = ?`,
		t.Owner.String(),
		boolToInt(t.Premium),
		boolToInt(t.Reserved),
		boolToInt(t.LeftPlatform),
		formatTime(t.UpdatedAt),
		t.ID.String(),
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound.WithMessage("tag not found")
	}
	s.indexTags(ctx, t)
	return nil
}

// ListTags returns tags ordered by id.
func (s *Store) ListTags(ctx context.Context, params store.PaginationParams) (*store.PaginatedResult[*domain.Tag], error) {
	after, err := decodeIDCursor(&params)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+tagColumns+` FROM tags WHERE id > ? ORDER BY id ASC LIMIT ?`, after, params.Limit+1)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tags []*domain.Tag
	for rows.Next() {
		t, err := scanTag(rows)
		if err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return finishPage(tags, params.Limit, func(t *domain.Tag) string { return t.ID.String() }), nil
}
