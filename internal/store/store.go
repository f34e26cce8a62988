package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dgraph-io/badger/v4"
)

// Badger is the Badger-backed Store.
type Badger struct {
	db     *badger.DB
	logger *slog.Logger

	// writeMu serializes read-write transactions. Tagging commits and
	// drawdowns read-modify-write the same accrual keys.
	writeMu sync.Mutex

	// Search indexer for keeping tag search in sync with commits.
	// Set via SetSearchIndexer after store creation to avoid circular dependencies.
	searchIndexer SearchIndexer
}

var _ Store = (*Badger)(nil)

// New opens (or creates) a Badger database at path.
func New(path string, logger *slog.Logger) (*Badger, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil            // Disable Badger's internal logging
	opts.SyncWrites = true       // Every commit is a ledger write; sync it
	opts.CompactL0OnClose = true // Compact L0 tables on close for faster startup

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}

	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("Badger database opened successfully", "path", path)

	return &Badger{db: db, logger: logger, searchIndexer: NoopSearchIndexer{}}, nil
}

// Close gracefully closes the database connection.
func (s *Badger) Close() error {
	s.logger.Info("Closing database connection")
	return s.db.Close()
}

// SetSearchIndexer sets the search indexer for keeping search in sync.
func (s *Badger) SetSearchIndexer(indexer SearchIndexer) {
	s.searchIndexer = indexer
}

// update runs fn in a read-write transaction. Writers take turns, so an
// update never fails with badger.ErrConflict against another update.
func (s *Badger) update(fn func(txn *badger.Txn) error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.db.Update(fn)
}

// getJSON reads key inside txn into dest, mapping a missing key to ErrNotFound.
func getJSON(txn *badger.Txn, key []byte, dest any) error {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, dest)
	})
}

// setJSON marshals value under key inside txn.
func setJSON(txn *badger.Txn, key []byte, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}
	return txn.Set(key, data)
}

// exists reports whether key is present inside txn.
func exists(txn *badger.Txn, key []byte) (bool, error) {
	_, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// get retrieves a value by key in its own read transaction.
func (s *Badger) get(ctx context.Context, key []byte, dest any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, key, dest)
	})
}

// pageLoader turns one iterated key into an item. Returning ok=false skips it.
type pageLoader[T any] func(txn *badger.Txn, item *badger.Item) (v T, ok bool, err error)

// scanPage walks keys under prefix starting after the cursor and collects up
// to params.Limit accepted items. The cursor is the last returned key.
func scanPage[T any](ctx context.Context, db *badger.DB, prefix string, params PaginationParams, load pageLoader[T]) (*PaginatedResult[T], error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	params.Validate()

	startKey, err := DecodeCursor(params.Cursor)
	if err != nil {
		return nil, err
	}

	result := &PaginatedResult[T]{Items: make([]T, 0)}
	var lastKey string

	err = db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)
		opts.PrefetchSize = params.Limit + 1

		it := txn.NewIterator(opts)
		defer it.Close()

		if startKey != "" {
			it.Seek([]byte(startKey))
			// Skip the cursor key itself; it was the last item of the previous page.
			if it.Valid() && string(it.Item().Key()) == startKey {
				it.Next()
			}
		} else {
			it.Seek([]byte(prefix))
		}

		for ; it.ValidForPrefix([]byte(prefix)); it.Next() {
			v, ok, err := load(txn, it.Item())
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
			if len(result.Items) == params.Limit {
				result.HasMore = true
				return nil
			}
			result.Items = append(result.Items, v)
			lastKey = string(it.Item().KeyCopy(nil))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.HasMore {
		result.NextCursor = EncodeCursor(lastKey)
	}
	return result, nil
}

// decodeValue unmarshals the iterated item's value into a fresh T.
func decodeValue[T any](item *badger.Item) (*T, error) {
	var v T
	err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &v)
	})
	if err != nil {
		return nil, err
	}
	return &v, nil
}
