package store

import (
	"context"
	"errors"
	"math/big"

	"github.com/dgraph-io/badger/v4"

	"github.com/ethereum-tag-service/ets-server/internal/domain"
)

// GetRecord retrieves a tagging record by id.
func (s *Badger) GetRecord(ctx context.Context, id domain.Hash) (*domain.TaggingRecord, error) {
	var r domain.TaggingRecord
	if err := s.get(ctx, key(recordPrefix, id), &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// ListRecords returns tagging records matching filter. When a filter field
// is set the matching secondary index is walked instead of every record.
func (s *Badger) ListRecords(ctx context.Context, filter RecordFilter, params PaginationParams) (*PaginatedResult[*domain.TaggingRecord], error) {
	var prefix string
	switch {
	case filter.TargetID != nil:
		prefix = indexPrefix(recordsByTargetPrefix, *filter.TargetID)
	case filter.Tagger != nil:
		prefix = indexPrefix(recordsByTaggerPrefix, *filter.Tagger)
	case filter.Relayer != nil:
		prefix = indexPrefix(recordsByRelayerPrefix, *filter.Relayer)
	default:
		return scanPage(ctx, s.db, recordPrefix, params, func(_ *badger.Txn, item *badger.Item) (*domain.TaggingRecord, bool, error) {
			r, err := decodeValue[domain.TaggingRecord](item)
			return r, err == nil, err
		})
	}

	return scanPage(ctx, s.db, prefix, params, func(txn *badger.Txn, item *badger.Item) (*domain.TaggingRecord, bool, error) {
		id, err := recordIDFromIndexKey(item.Key())
		if err != nil {
			return nil, false, err
		}
		var r domain.TaggingRecord
		if err := getJSON(txn, key(recordPrefix, id), &r); err != nil {
			return nil, false, err
		}
		return &r, filter.Match(&r), nil
	})
}

// CommitTagging applies every write of one tagging mutation in a single
// transaction.
func (s *Badger) CommitTagging(ctx context.Context, c *TaggingCommit) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := s.update(func(txn *badger.Txn) error {
		if c.Target != nil {
			k := key(targetPrefix, c.Target.ID)
			found, err := exists(txn, k)
			if err != nil {
				return err
			}
			if !found {
				if err := setJSON(txn, k, c.Target); err != nil {
					return err
				}
			}
		}

		for _, t := range c.NewTags {
			k := key(tagPrefix, t.ID)
			found, err := exists(txn, k)
			if err != nil {
				return err
			}
			if found {
				return ErrAlreadyExists.WithMessage("tag " + t.Display + " already exists")
			}
			if err := setJSON(txn, k, t); err != nil {
				return err
			}
		}

		r := c.Record
		rk := key(recordPrefix, r.ID)
		if c.Created {
			found, err := exists(txn, rk)
			if err != nil {
				return err
			}
			if found {
				return ErrAlreadyExists.WithMessage("tagging record already exists")
			}
			for _, idx := range [][]byte{
				indexKey(recordsByTargetPrefix, r.TargetID, r.ID),
				indexKey(recordsByTaggerPrefix, r.Tagger, r.ID),
				indexKey(recordsByRelayerPrefix, r.Relayer, r.ID),
			} {
				if err := txn.Set(idx, nil); err != nil {
					return err
				}
			}
		}
		if err := setJSON(txn, rk, r); err != nil {
			return err
		}

		return creditAccruals(txn, c.Credits, r.UpdatedAt)
	})
	if err != nil {
		return err
	}

	s.indexTags(ctx, c.NewTags...)
	return nil
}

// loadAccrual reads an accrual inside txn, returning a zero balance for an
// address that has never been credited.
func loadAccrual(txn *badger.Txn, addr domain.Address) (*domain.Accrual, error) {
	a := domain.NewAccrual(addr)
	err := getJSON(txn, key(accrualPrefix, addr), a)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	if a.Accrued == nil {
		a.Accrued = new(big.Int)
	}
	if a.Paid == nil {
		a.Paid = new(big.Int)
	}
	return a, nil
}
