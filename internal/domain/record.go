package domain

import (
	"slices"
	"time"
)

// TaggingRecord is the current tag set one tagger holds on one target, under
// one record type, submitted through one relayer.
//
// ID is derived from (TargetID, RecordType, Relayer, Tagger) and never changes.
// TagIDs holds no duplicates and keeps insertion order.
type TaggingRecord struct {
	ID         Hash      `json:"id"`
	TargetID   Hash      `json:"target_id"`
	RecordType string    `json:"record_type"`
	Relayer    Address   `json:"relayer"`
	Tagger     Address   `json:"tagger"`
	TagIDs     []Hash    `json:"tag_ids"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Clone returns a deep copy so a planned mutation never aliases stored state.
func (r *TaggingRecord) Clone() *TaggingRecord {
	c := *r
	c.TagIDs = slices.Clone(r.TagIDs)
	return &c
}
