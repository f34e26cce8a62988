package store

import "encoding/base64"

// Page size bounds.
const (
	DefaultPageLimit = 50
	MaxPageLimit     = 200
)

// PaginationParams contains pagination request parameters.
type PaginationParams struct {
	Limit  int    // items per page
	Cursor string // opaque cursor for the next page, empty for the first
}

// PaginatedResult contains paginated data and metadata.
type PaginatedResult[T any] struct {
	Items      []T    `json:"items"`
	NextCursor string `json:"next_cursor,omitempty"` // empty if no more pages
	HasMore    bool   `json:"has_more"`
}

// DefaultPaginationParams returns the first page at the default size.
func DefaultPaginationParams() PaginationParams {
	return PaginationParams{Limit: DefaultPageLimit}
}

// Validate clamps the limit into [1, MaxPageLimit], defaulting when unset.
func (p *PaginationParams) Validate() {
	if p.Limit <= 0 {
		p.Limit = DefaultPageLimit
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
}

// EncodeCursor creates an opaque cursor from a key. Badger uses the last
// returned key; SQLite uses "created_at|id".
func EncodeCursor(key string) string {
	if key == "" {
		return ""
	}
	return base64.URLEncoding.EncodeToString([]byte(key))
}

// DecodeCursor decodes a cursor back to a key.
func DecodeCursor(cursor string) (string, error) {
	if cursor == "" {
		return "", nil
	}
	decoded, err := base64.URLEncoding.DecodeString(cursor)
	if err != nil {
		return "", ErrInvalidInput.WithMessage("invalid cursor").WithCause(err)
	}
	return string(decoded), nil
}
