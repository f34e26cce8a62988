package domain

import "time"

// Tag is a tokenized hashtag (CTAG). Display keeps the casing the first
// tagger used; ID is derived from the canonical (lowercased) form.
//
// A new tag is held by the platform. Owner changes when the tag leaves
// platform custody (auction outcome, modelled as a transfer). LeftPlatform
// stays set even if the tag is later transferred back.
type Tag struct {
	ID           Hash      `json:"id"`
	Display      string    `json:"display"`
	Creator      Address   `json:"creator"`
	Relayer      Address   `json:"relayer"`
	Owner        Address   `json:"owner"`
	Premium      bool      `json:"premium"`
	Reserved     bool      `json:"reserved"`
	LeftPlatform bool      `json:"left_platform"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// FeeRecipient returns who receives the remainder share of a fee charged
// for this tag: the owner once the tag has ever left platform custody, the
// creator otherwise.
func (t *Tag) FeeRecipient() Address {
	if t.LeftPlatform {
		return t.Owner
	}
	return t.Creator
}
