package sqlite

import (
	"context"
	"log/slog"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum-tag-service/ets-server/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	s, err := Open(dbPath, logger)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testAddr(b byte) domain.Address {
	var a domain.Address
	a[19] = b
	return a
}

func testHash(b byte) domain.Hash {
	var h domain.Hash
	h[31] = b
	return h
}

func testRecord(id, target byte, relayer, tagger domain.Address, tags ...domain.Hash) *domain.TaggingRecord {
	now := time.Now().UTC()
	if tags == nil {
		tags = []domain.Hash{}
	}
	return &domain.TaggingRecord{
		ID:         testHash(id),
		TargetID:   testHash(target),
		RecordType: "bookmark",
		Relayer:    relayer,
		Tagger:     tagger,
		TagIDs:     tags,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func wei(v int64) *big.Int { return big.NewInt(v) }

func TestOpen_PragmasOnEveryConnection(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// Hold the whole pool so each check runs on a distinct connection.
	for i := range 4 {
		conn, err := s.db.Conn(ctx)
		if err != nil {
			t.Fatalf("conn %d: %v", i, err)
		}
		defer conn.Close()

		var timeout, fk int
		if err := conn.QueryRowContext(ctx, "PRAGMA busy_timeout").Scan(&timeout); err != nil {
			t.Fatalf("conn %d busy_timeout: %v", i, err)
		}
		if err := conn.QueryRowContext(ctx, "PRAGMA foreign_keys").Scan(&fk); err != nil {
			t.Fatalf("conn %d foreign_keys: %v", i, err)
		}
		if timeout != 5000 || fk != 1 {
			t.Errorf("conn %d: busy_timeout=%d foreign_keys=%d", i, timeout, fk)
		}
	}
}

func TestOpen(t *testing.T) {
	s := newTestStore(t)

	var journalMode string
	if err := s.db.QueryRow("PRAGMA journal_mode").Scan(&journalMode); err != nil {
		t.Fatalf("query journal_mode: %v", err)
	}
	if journalMode != "wal" {
		t.Errorf("expected wal, got %s", journalMode)
	}

	var fk int
	if err := s.db.QueryRow("PRAGMA foreign_keys").Scan(&fk); err != nil {
		t.Fatalf("query foreign_keys: %v", err)
	}
	if fk != 1 {
		t.Errorf("expected foreign_keys=1, got %d", fk)
	}

	tables := []string{
		"accounts", "relayers", "targets", "tags",
		"tagging_records", "record_tags", "accruals", "payouts",
	}
	for _, table := range tables {
		var name string
		err := s.db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("table %s not found: %v", table, err)
		}
	}
}

func TestOpenClose(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	s, err := Open(dbPath, logger)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close store: %v", err)
	}

	// Re-open should work (schema is idempotent).
	s2, err := Open(dbPath, logger)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	s2.Close()
}
