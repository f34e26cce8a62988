package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum-tag-service/ets-server/internal/domain"
	"github.com/ethereum-tag-service/ets-server/internal/store"
)

// recordColumns must match the scan order in scanRecord.
const recordColumns = `id, target_id, record_type, relayer, tagger, created_at, updated_at`

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func scanRecord(scanner interface{ Scan(dest ...any) error }) (*domain.TaggingRecord, error) {
	var (
		r                             domain.TaggingRecord
		id, targetID, relayer, tagger string
		createdAt, updatedAt          string
	)
	err := scanner.Scan(&id, &targetID, &r.RecordType, &relayer, &tagger, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	if r.ID, err = domain.ParseHash(id); err != nil {
		return nil, err
	}
	if r.TargetID, err = domain.ParseHash(targetID); err != nil {
		return nil, err
	}
	if r.Relayer, err = domain.ParseAddress(relayer); err != nil {
		return nil, err
	}
	if r.Tagger, err = domain.ParseAddress(tagger); err != nil {
		return nil, err
	}
	if r.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if r.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &r, nil
}

// loadRecordTags fills r.TagIDs in insertion order.
func loadRecordTags(ctx context.Context, q querier, r *domain.TaggingRecord) error {
	rows, err := q.QueryContext(ctx,
		`SELECT tag_id FROM record_tags WHERE record_id = ? ORDER BY position ASC`, r.ID.String())
	if err != nil {
		return err
	}
	defer rows.Close()

	r.TagIDs = []domain.Hash{}
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return err
		}
		h, err := domain.ParseHash(raw)
		if err != nil {
			return err
		}
		r.TagIDs = append(r.TagIDs, h)
	}
	return rows.Err()
}

// GetRecord retrieves a tagging record by id.
func (s *Store) GetRecord(ctx context.Context, id domain.Hash) (*domain.TaggingRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM tagging_records WHERE id = ?`, id.String())
	r, err := scanRecord(row)
	if err != nil {
		return nil, mapNoRows(err, "tagging record")
	}
	if err := loadRecordTags(ctx, s.db, r); err != nil {
		return nil, fmt.Errorf("load record tags: %w", err)
	}
	return r, nil
}

// ListRecords returns tagging records matching filter, ordered by id.
func (s *Store) ListRecords(ctx context.Context, filter store.RecordFilter, params store.PaginationParams) (*store.PaginatedResult[*domain.TaggingRecord], error) {
	after, err := decodeIDCursor(&params)
	if err != nil {
		return nil, err
	}

	where := []string{"id > ?"}
	args := []any{after}
	if filter.TargetID != nil {
		where = append(where, "target_id = ?")
		args = append(args, filter.TargetID.String())
	}
	if filter.Tagger != nil {
		where = append(where, "tagger = ?")
		args = append(args, filter.Tagger.String())
	}
	if filter.Relayer != nil {
		where = append(where, "relayer = ?")
		args = append(args, filter.Relayer.String())
	}
	args = append(args, params.Limit+1)

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+recordColumns+` FROM tagging_records
		WHERE `+strings.Join(where, " AND ")+`
		ORDER BY id ASC LIMIT ?`, args...)
	if err != nil {
		return nil, err
	}

	var records []*domain.TaggingRecord
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		records = append(records, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	page := finishPage(records, params.Limit, func(r *domain.TaggingRecord) string { return r.ID.String() })
	for _, r := range page.Items {
		if err := loadRecordTags(ctx, s.db, r); err != nil {
			return nil, fmt.Errorf("load record tags: %w", err)
		}
	}
	return page, nil
}

// CommitTagging applies every write of one tagging mutation in a single
// transaction.
func (s *Store) CommitTagging(ctx context.Context, c *store.TaggingCommit) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if t := c.Target; t != nil {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO targets (id, uri, created_by, created_at) VALUES (?, ?, ?, ?)
			ON CONFLICT(id) DO NOTHING`,
			t.ID.String(), t.URI, t.CreatedBy.String(), formatTime(t.CreatedAt))
		if err != nil {
			return fmt.Errorf("insert target: %w", err)
		}
	}

	for _, t := range c.NewTags {
		if err := insertTag(ctx, tx, t); err != nil {
			return err
		}
	}

	r := c.Record
	if c.Created {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO tagging_records (`+recordColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			r.ID.String(), r.TargetID.String(), r.RecordType, r.Relayer.String(), r.Tagger.String(),
			formatTime(r.CreatedAt), formatTime(r.UpdatedAt))
		if isUniqueViolation(err) {
			return store.ErrAlreadyExists.WithMessage("tagging record already exists")
		}
		if err != nil {
			return fmt.Errorf("insert record: %w", err)
		}
	} else {
		res, err := tx.ExecContext(ctx,
			`UPDATE tagging_records SET updated_at = ? WHERE id = ?`, formatTime(r.UpdatedAt), r.ID.String())
		if err != nil {
			return fmt.Errorf("update record: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return store.ErrNotFound.WithMessage("tagging record not found")
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM record_tags WHERE record_id = ?`, r.ID.String()); err != nil {
		return fmt.Errorf("clear record tags: %w", err)
	}
	for i, tagID := range r.TagIDs {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO record_tags (record_id, tag_id, position) VALUES (?, ?, ?)`,
			r.ID.String(), tagID.String(), i)
		if err != nil {
			return fmt.Errorf("insert record tag: %w", err)
		}
	}

	if err := creditAccruals(ctx, tx, c.Credits, r.UpdatedAt); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	s.indexTags(ctx, c.NewTags...)
	return nil
}

// touchTime returns at, or now when at is zero.
func touchTime(at time.Time) time.Time {
	if at.IsZero() {
		return time.Now()
	}
	return at
}
