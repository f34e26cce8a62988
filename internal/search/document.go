// Package search provides full-text tag search using Bleve.
// Tags are indexed as they are committed so relayers can offer
// autocomplete and discovery over existing hashtags.
package search

import (
	"strings"

	"github.com/ethereum-tag-service/ets-server/internal/domain"
)

// TagDocument is the document stored in the Bleve index for one tag.
type TagDocument struct {
	ID       string `json:"id"`      // 0x-prefixed tag id
	Display  string `json:"display"` // as first submitted, e.g. "#SlowBurn"
	Name     string `json:"name"`    // lowercased, without the leading '#'
	Owner    string `json:"owner"`
	Creator  string `json:"creator"`
	Relayer  string `json:"relayer"`
	Premium  bool   `json:"premium"`
	Reserved bool   `json:"reserved"`

	CreatedAt int64 `json:"created_at"` // Unix millis
	UpdatedAt int64 `json:"updated_at"` // Unix millis
}

// ToMap converts the document to a map whose keys match the index mapping.
func (d *TagDocument) ToMap() map[string]any {
	return map[string]any{
		"id":         d.ID,
		"display":    d.Display,
		"name":       d.Name,
		"words":      d.Name,
		"owner":      d.Owner,
		"creator":    d.Creator,
		"relayer":    d.Relayer,
		"premium":    d.Premium,
		"reserved":   d.Reserved,
		"created_at": d.CreatedAt,
		"updated_at": d.UpdatedAt,
	}
}

// TagToDocument converts a domain Tag to a TagDocument.
func TagToDocument(t *domain.Tag) *TagDocument {
	return &TagDocument{
		ID:        t.ID.String(),
		Display:   t.Display,
		Name:      searchName(t.Display),
		Owner:     t.Owner.String(),
		Creator:   t.Creator.String(),
		Relayer:   t.Relayer.String(),
		Premium:   t.Premium,
		Reserved:  t.Reserved,
		CreatedAt: t.CreatedAt.UnixMilli(),
		UpdatedAt: t.UpdatedAt.UnixMilli(),
	}
}

// searchName folds a tag or a query to the form stored in the name field.
func searchName(s string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), "#"))
}
