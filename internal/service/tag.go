package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ethereum-tag-service/ets-server/internal/domain"
	domainerrors "github.com/ethereum-tag-service/ets-server/internal/errors"
	"github.com/ethereum-tag-service/ets-server/internal/search"
	"github.com/ethereum-tag-service/ets-server/internal/sse"
	"github.com/ethereum-tag-service/ets-server/internal/store"
	"github.com/ethereum-tag-service/ets-server/internal/tagging"
)

// TagSearcher runs full-text tag searches. *search.TagIndex implements it.
type TagSearcher interface {
	Search(ctx context.Context, params search.SearchParams) (*search.SearchResult, error)
}

// TagService reads tags and applies admin changes to them: ownership
// transfers and pricing flags.
type TagService struct {
	store    store.Store
	searcher TagSearcher
	params   ParamsSource
	events   EventEmitter
	logger   *slog.Logger
	now      func() time.Time
}

// NewTagService creates a new tag service. searcher may be nil, in which
// case Search fails.
func NewTagService(store store.Store, searcher TagSearcher, params ParamsSource, events EventEmitter, logger *slog.Logger) *TagService {
	if events == nil {
		events = NoopEmitter{}
	}
	return &TagService{store: store, searcher: searcher, params: params, events: events, logger: loggerOrDefault(logger), now: time.Now}
}

// GetTag retrieves a tag by id.
func (s *TagService) GetTag(ctx context.Context, id domain.Hash) (*domain.Tag, error) {
	return s.store.GetTag(ctx, id)
}

// LookupTag retrieves a tag by its string form, in any casing.
func (s *TagService) LookupTag(ctx context.Context, tag string) (*domain.Tag, error) {
	return s.store.GetTag(ctx, tagging.ComputeTagID(tag))
}

// ListTags lists tags ordered by id.
func (s *TagService) ListTags(ctx context.Context, params store.PaginationParams) (*store.PaginatedResult[*domain.Tag], error) {
	params.Validate()
	return s.store.ListTags(ctx, params)
}

// Search finds tags by display text.
func (s *TagService) Search(ctx context.Context, params search.SearchParams) (*search.SearchResult, error) {
	if s.searcher == nil {
		return nil, domainerrors.Internal("search is not available")
	}
	return s.searcher.Search(ctx, params)
}

// TransferTagRequest moves a tag to a new owner.
type TransferTagRequest struct {
	Owner string `json:"owner" validate:"required,ethaddr"`
}

// Transfer changes a tag's owner. Admin only. Once a tag has left platform
// custody the owner, not the creator, receives the remainder fee share.
func (s *TagService) Transfer(ctx context.Context, caller domain.Address, id domain.Hash, req TransferTagRequest) (*domain.Tag, error) {
	if err := validate.Validate(req); err != nil {
		return nil, err
	}
	if _, err := requireAdmin(ctx, s.store, caller); err != nil {
		return nil, err
	}

	t, err := s.store.GetTag(ctx, id)
	if err != nil {
		return nil, err
	}

	owner, _ := domain.ParseAddress(req.Owner)
	if owner == t.Owner {
		return t, nil
	}
	prev := t.Owner
	t.Owner = owner
	if owner != s.params.Params().Platform {
		t.LeftPlatform = true
	}
	t.UpdatedAt = s.now()

	if err := s.store.UpdateTag(ctx, t); err != nil {
		return nil, fmt.Errorf("update tag: %w", err)
	}

	s.events.Emit(sse.NewTagTransferredEvent(t, prev))
	s.logger.Info("tag transferred",
		"tag_id", id.String(),
		"display", t.Display,
		"from", prev.String(),
		"to", owner.String(),
	)
	return t, nil
}

// UpdateTagFlagsRequest sets pricing flags. Absent fields are unchanged.
type UpdateTagFlagsRequest struct {
	Premium  *bool `json:"premium,omitempty"`
	Reserved *bool `json:"reserved,omitempty"`
}

// UpdateFlags sets a tag's premium and reserved flags. Admin only.
func (s *TagService) UpdateFlags(ctx context.Context, caller domain.Address, id domain.Hash, req UpdateTagFlagsRequest) (*domain.Tag, error) {
	if _, err := requireAdmin(ctx, s.store, caller); err != nil {
		return nil, err
	}

	t, err := s.store.GetTag(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Premium != nil {
		t.Premium = *req.Premium
	}
	if req.Reserved != nil {
		t.Reserved = *req.Reserved
	}
	t.UpdatedAt = s.now()

	if err := s.store.UpdateTag(ctx, t); err != nil {
		return nil, fmt.Errorf("update tag: %w", err)
	}

	s.logger.Info("tag flags updated",
		"tag_id", id.String(),
		"premium", t.Premium,
		"reserved", t.Reserved,
	)
	return t, nil
}
