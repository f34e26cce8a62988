// Package store defines the persistence interface for the ETS server and
// its Badger-backed implementation.
package store

import (
	"context"

	"github.com/ethereum-tag-service/ets-server/internal/domain"
)

// Store defines the interface for all persistence operations.
type Store interface {
	// Lifecycle
	Close() error
	SetSearchIndexer(indexer SearchIndexer)

	// Accounts
	CreateAccount(ctx context.Context, account *domain.Account) error
	GetAccount(ctx context.Context, addr domain.Address) (*domain.Account, error)

	// Relayers
	CreateRelayer(ctx context.Context, r *domain.Relayer, account *domain.Account) error
	GetRelayer(ctx context.Context, addr domain.Address) (*domain.Relayer, error)
	UpdateRelayer(ctx context.Context, r *domain.Relayer) error
	ListRelayers(ctx context.Context, params PaginationParams) (*PaginatedResult[*domain.Relayer], error)

	// Targets
	CreateTarget(ctx context.Context, t *domain.Target) error
	GetTarget(ctx context.Context, id domain.Hash) (*domain.Target, error)

	// Tags
	GetTag(ctx context.Context, id domain.Hash) (*domain.Tag, error)
	GetTags(ctx context.Context, ids []domain.Hash) (map[domain.Hash]*domain.Tag, error)
	UpdateTag(ctx context.Context, t *domain.Tag) error
	ListTags(ctx context.Context, params PaginationParams) (*PaginatedResult[*domain.Tag], error)

	// Tagging records
	GetRecord(ctx context.Context, id domain.Hash) (*domain.TaggingRecord, error)
	ListRecords(ctx context.Context, filter RecordFilter, params PaginationParams) (*PaginatedResult[*domain.TaggingRecord], error)
	CommitTagging(ctx context.Context, c *TaggingCommit) error

	// Accruals
	GetAccrual(ctx context.Context, addr domain.Address) (*domain.Accrual, error)
	DrawDown(ctx context.Context, payout *domain.Payout) error
	ListPayouts(ctx context.Context, addr domain.Address, params PaginationParams) (*PaginatedResult[*domain.Payout], error)
}

// SearchIndexer keeps the tag search index in sync with committed tags.
// Indexing failures are logged, never surfaced to the committing caller.
type SearchIndexer interface {
	IndexTag(ctx context.Context, t *domain.Tag) error
}

// NoopSearchIndexer is a no-op implementation for testing.
type NoopSearchIndexer struct{}

// IndexTag is a no-op.
func (NoopSearchIndexer) IndexTag(context.Context, *domain.Tag) error { return nil }

// TaggingCommit is every write one tagging mutation performs. Implementations
// apply it in a single transaction: either all of it lands or none of it.
type TaggingCommit struct {
	Record  *domain.TaggingRecord
	Created bool           // Record must not exist yet
	Target  *domain.Target // stored when not already present
	NewTags []*domain.Tag  // must not exist yet
	Credits []domain.Credit
}

// RecordFilter narrows ListRecords. Zero-valued fields do not filter.
type RecordFilter struct {
	TargetID *domain.Hash
	Tagger   *domain.Address
	Relayer  *domain.Address
}

// Match reports whether r passes every set field.
func (f RecordFilter) Match(r *domain.TaggingRecord) bool {
	if f.TargetID != nil && r.TargetID != *f.TargetID {
		return false
	}
	if f.Tagger != nil && r.Tagger != *f.Tagger {
		return false
	}
	if f.Relayer != nil && r.Relayer != *f.Relayer {
		return false
	}
	return true
}
