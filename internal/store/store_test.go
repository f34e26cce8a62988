package store

import (
	"context"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ethereum-tag-service/ets-server/internal/domain"
)

func setupTestStore(t *testing.T) (*Badger, func()) {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "ets-store-test-*")
	require.NoError(t, err)

	s, err := New(filepath.Join(tmpDir, "db"), nil)
	require.NoError(t, err)

	cleanup := func() {
		_ = s.Close()
		_ = os.RemoveAll(tmpDir)
	}
	return s, cleanup
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

// recordingIndexer captures indexed tags.
type recordingIndexer struct{ tags []*domain.Tag }

func (r *recordingIndexer) IndexTag(_ context.Context, t *domain.Tag) error {
	r.tags = append(r.tags, t)
	return nil
}

func wei(v int64) *big.Int { return big.NewInt(v) }
