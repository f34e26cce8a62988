package domain

import "time"

// Target is a tagged thing, identified by its URI.
type Target struct {
	ID        Hash      `json:"id"`
	URI       string    `json:"uri"`
	CreatedBy Address   `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}
