package domain

import "time"

// Role determines what an authenticated account may do.
type Role string

const (
	RoleAdmin   Role = "admin"   // the platform account
	RoleRelayer Role = "relayer" // submits tagging operations for taggers
)

// Account is an authenticated API principal.
type Account struct {
	Address    Address   `json:"address"`
	Role       Role      `json:"role"`
	APIKeyHash string    `json:"-"`
	CreatedAt  time.Time `json:"created_at"`
}

// IsAdmin reports whether the account is the platform administrator.
func (a *Account) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// Relayer is a registered tagging relayer.
//
// A locked relayer is permanently deactivated. A paused relayer is active
// but may not submit tagging operations until unpaused.
type Relayer struct {
	Address   Address   `json:"address"`
	Name      string    `json:"name"`
	Owner     Address   `json:"owner"`
	Paused    bool      `json:"paused"`
	Locked    bool      `json:"locked"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsActive reports whether the relayer is registered and not locked.
func (r *Relayer) IsActive() bool {
	return !r.Locked
}

// CanTag reports whether the relayer may submit tagging operations.
func (r *Relayer) CanTag() bool {
	return r.IsActive() && !r.Paused
}
