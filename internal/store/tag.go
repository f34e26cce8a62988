package store

import (
	"context"
	"errors"

	"github.com/dgraph-io/badger/v4"

	"github.com/ethereum-tag-service/ets-server/internal/domain"
)

// GetTag retrieves a tag by id.
func (s *Badger) GetTag(ctx context.Context, id domain.Hash) (*domain.Tag, error) {
	var t domain.Tag
	if err := s.get(ctx, key(tagPrefix, id), &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// GetTags retrieves the tags that exist among ids. Missing ids are absent
// from the result.
func (s *Badger) GetTags(ctx context.Context, ids []domain.Hash) (map[domain.Hash]*domain.Tag, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tags := make(map[domain.Hash]*domain.Tag, len(ids))
	err := s.db.View(func(txn *badger.Txn) error {
		for _, id := range ids {
			var t domain.Tag
			err := getJSON(txn, key(tagPrefix, id), &t)
			if errors.Is(err, ErrNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			tags[id] = &t
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tags, nil
}

// UpdateTag overwrites an existing tag and reindexes it.
func (s *Badger) UpdateTag(ctx context.Context, t *domain.Tag) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.update(func(txn *badger.Txn) error {
		k := key(tagPrefix, t.ID)
		found, err := exists(txn, k)
		if err != nil {
			return err
		}
		if !found {
			return ErrNotFound.WithMessage("tag not found")
		}
		return setJSON(txn, k, t)
	})
	if err != nil {
		return err
	}
	s.indexTags(ctx, t)
	return nil
}

// ListTags returns tags ordered by id.
func (s *Badger) ListTags(ctx context.Context, params PaginationParams) (*PaginatedResult[*domain.Tag], error) {
	return scanPage(ctx, s.db, tagPrefix, params, func(_ *badger.Txn, item *badger.Item) (*domain.Tag, bool, error) {
		t, err := decodeValue[domain.Tag](item)
		return t, err == nil, err
	})
}

func (s *Badger) indexTags(ctx context.Context, tags ...*domain.Tag) {
	for _, t := range tags {
		if err := s.searchIndexer.IndexTag(ctx, t); err != nil {
			s.logger.Warn("failed to index tag", "tag_id", t.ID.String(), "error", err)
		}
	}
}
