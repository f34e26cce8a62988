// Package sqlite provides a SQLite-backed implementation of store.Store.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"net/url"
	"strings"
	"time"

	"github.com/ethereum-tag-service/ets-server/internal/domain"
	"github.com/ethereum-tag-service/ets-server/internal/store"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// Store provides SQLite-backed persistence for the ETS server.
type Store struct {
	db            *sql.DB
	logger        *slog.Logger
	searchIndexer store.SearchIndexer
}

var _ store.Store = (*Store)(nil)

// connPragmas are applied by the driver to every pooled connection.
var connPragmas = []string{
	"journal_mode(WAL)",
	"synchronous(NORMAL)",
	"foreign_keys(1)",
	"busy_timeout(5000)",
}

// dsn builds the driver connection string for path. Transactions begin
// IMMEDIATE so read-modify-write ledger updates take the write lock up
// front and wait on busy_timeout instead of failing with SQLITE_BUSY.
func dsn(path string) string {
	q := url.Values{}
	for _, p := range connPragmas {
		q.Add("_pragma", p)
	}
	q.Set("_txlock", "immediate")
	return path + "?" + q.Encode()
}

// Open creates a new SQLite store at the given path.
// It configures WAL mode, sets pragmas, and runs schema migrations.
func Open(path string, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("exec schema: %w", err)
	}

	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("SQLite database opened", "path", path)

	return &Store{db: db, logger: logger, searchIndexer: store.NoopSearchIndexer{}}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// SetSearchIndexer sets the search indexer used for maintaining the search index.
func (s *Store) SetSearchIndexer(indexer store.SearchIndexer) {
	s.searchIndexer = indexer
}

// formatTime formats a time.Time to RFC3339Nano for storage.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// parseTime parses a RFC3339Nano string back to time.Time.
func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

// boolToInt converts a bool to an int for SQLite storage.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func parseAmount(s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("invalid stored amount %q", s)
	}
	return v, nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// mapNoRows converts sql.ErrNoRows to store.ErrNotFound.
func mapNoRows(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound.WithMessage(what + " not found")
	}
	return err
}

// decodeIDCursor returns the id after which the next page starts.
func decodeIDCursor(params *store.PaginationParams) (string, error) {
	params.Validate()
	return store.DecodeCursor(params.Cursor)
}

// finishPage trims the limit+1 probe row and sets the cursor from the last
// kept item.
func finishPage[T any](items []T, limit int, idOf func(T) string) *store.PaginatedResult[T] {
	res := &store.PaginatedResult[T]{Items: items}
	if res.Items == nil {
		res.Items = []T{}
	}
	if len(items) > limit {
		res.Items = items[:limit]
		res.HasMore = true
		res.NextCursor = store.EncodeCursor(idOf(res.Items[limit-1]))
	}
	return res
}

func (s *Store) indexTags(ctx context.Context, tags ...*domain.Tag) {
	for _, t := range tags {
		if err := s.searchIndexer.IndexTag(ctx, t); err != nil {
			s.logger.Warn("failed to index tag", "tag_id", t.ID.String(), "error", err)
		}
	}
}
