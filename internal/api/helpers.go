package api

import (
	"time"

	"github.com/ethereum-tag-service/ets-server/internal/domain"
	domainerrors "github.com/ethereum-tag-service/ets-server/internal/errors"
	"github.com/ethereum-tag-service/ets-server/internal/store"
)

// PageQuery holds the cursor pagination query parameters.
type PageQuery struct {
	Cursor string `query:"cursor" doc:"Cursor from a previous page's next_cursor"`
	Limit  int    `query:"limit" minimum:"0" maximum:"200" doc:"Items per page (default 50)"`
}

func (q PageQuery) params() store.PaginationParams {
	p := store.DefaultPaginationParams()
	if q.Limit > 0 {
		p.Limit = q.Limit
	}
	p.Cursor = q.Cursor
	return p
}

// Page is the JSON shape of every paginated list.
type Page[T any] struct {
	Items      []T    `json:"items" doc:"Items on this page"`
	NextCursor string `json:"next_cursor,omitempty" doc:"Cursor for the next page"`
	HasMore    bool   `json:"has_more" doc:"Whether more items follow"`
}

func newPage[S, T any](res *store.PaginatedResult[S], convert func(S) T) Page[T] {
	items := make([]T, len(res.Items))
	for i, item := range res.Items {
		items[i] = convert(item)
	}
	return Page[T]{Items: items, NextCursor: res.NextCursor, HasMore: res.HasMore}
}

func parseAddressParam(name, value string) (domain.Address, error) {
	addr, err := domain.ParseAddress(value)
	if err != nil {
		return domain.Address{}, domainerrors.Validationf("invalid %s: %v", name, err)
	}
	return addr, nil
}

func parseHashParam(name, value string) (domain.Hash, error) {
	h, err := domain.ParseHash(value)
	if err != nil {
		return domain.Hash{}, domainerrors.Validationf("invalid %s: %v", name, err)
	}
	return h, nil
}

// optionalAddress parses value unless it is empty.
func optionalAddress(name, value string) (*domain.Address, error) {
	if value == "" {
		return nil, nil
	}
	addr, err := parseAddressParam(name, value)
	if err != nil {
		return nil, err
	}
	return &addr, nil
}

func optionalHash(name, value string) (*domain.Hash, error) {
	if value == "" {
		return nil, nil
	}
	h, err := parseHashParam(name, value)
	if err != nil {
		return nil, err
	}
	return &h, nil
}

func hexStrings(ids []domain.Hash) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

// === Shared response DTOs ===

// RecordResponse contains tagging record data in API responses.
type RecordResponse struct {
	ID         string    `json:"id" doc:"Record ID"`
	TargetID   string    `json:"target_id" doc:"Target ID"`
	RecordType string    `json:"record_type" doc:"Record type"`
	Relayer    string    `json:"relayer" doc:"Relayer address"`
	Tagger     string    `json:"tagger" doc:"Tagger address"`
	TagIDs     []string  `json:"tag_ids" doc:"Tag IDs in insertion order"`
	CreatedAt  time.Time `json:"created_at" doc:"Creation time"`
	UpdatedAt  time.Time `json:"updated_at" doc:"Last update time"`
}

func newRecordResponse(r *domain.TaggingRecord) RecordResponse {
	return RecordResponse{
		ID:         r.ID.String(),
		TargetID:   r.TargetID.String(),
		RecordType: r.RecordType,
		Relayer:    r.Relayer.String(),
		Tagger:     r.Tagger.String(),
		TagIDs:     hexStrings(r.TagIDs),
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
}

// TagResponse contains tag data in API responses.
type TagResponse struct {
	ID           string    `json:"id" doc:"Tag ID"`
	Display      string    `json:"display" doc:"Tag as first submitted"`
	Creator      string    `json:"creator" doc:"Tagger that first used the tag"`
	Relayer      string    `json:"relayer" doc:"Relayer that first submitted the tag"`
	Owner        string    `json:"owner" doc:"Current owner"`
	Premium      bool      `json:"premium" doc:"Premium tag"`
	Reserved     bool      `json:"reserved" doc:"Reserved for auction"`
	LeftPlatform bool      `json:"left_platform" doc:"Has ever been transferred out of platform custody"`
	CreatedAt    time.Time `json:"created_at" doc:"Creation time"`
	UpdatedAt    time.Time `json:"updated_at" doc:"Last update time"`
}

func newTagResponse(t *domain.Tag) TagResponse {
	return TagResponse{
		ID:           t.ID.String(),
		Display:      t.Display,
		Creator:      t.Creator.String(),
		Relayer:      t.Relayer.String(),
		Owner:        t.Owner.String(),
		Premium:      t.Premium,
		Reserved:     t.Reserved,
		LeftPlatform: t.LeftPlatform,
		CreatedAt:    t.CreatedAt,
		UpdatedAt:    t.UpdatedAt,
	}
}

// RelayerResponse contains relayer data in API responses.
type RelayerResponse struct {
	Address   string    `json:"address" doc:"Relayer address"`
	Name      string    `json:"name" doc:"Display name"`
	Owner     string    `json:"owner" doc:"Owner address"`
	Paused    bool      `json:"paused" doc:"Temporarily stopped by its owner or the admin"`
	Locked    bool      `json:"locked" doc:"Permanently deactivated by the admin"`
	CreatedAt time.Time `json:"created_at" doc:"Registration time"`
	UpdatedAt time.Time `json:"updated_at" doc:"Last update time"`
}

func newRelayerResponse(r *domain.Relayer) RelayerResponse {
	return RelayerResponse{
		Address:   r.Address.String(),
		Name:      r.Name,
		Owner:     r.Owner.String(),
		Paused:    r.Paused,
		Locked:    r.Locked,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

// TargetResponse contains target data in API responses.
type TargetResponse struct {
	ID        string    `json:"id" doc:"Target ID"`
	URI       string    `json:"uri" doc:"Target URI"`
	CreatedBy string    `json:"created_by" doc:"Relayer that registered the target"`
	CreatedAt time.Time `json:"created_at" doc:"Creation time"`
}

func newTargetResponse(t *domain.Target) TargetResponse {
	return TargetResponse{
		ID:        t.ID.String(),
		URI:       t.URI,
		CreatedBy: t.CreatedBy.String(),
		CreatedAt: t.CreatedAt,
	}
}
