package auth

import (
	"time"

	"github.com/ethereum-tag-service/ets-server/internal/domain"
)

// AccessClaims are the claims carried in an encrypted v4.local token.
type AccessClaims struct {
	Address domain.Address `json:"address"`
	Role    domain.Role    `json:"role"`

	Issuer     string    `json:"iss"`
	Subject    string    `json:"sub"`
	Audience   string    `json:"aud"`
	Expiration time.Time `json:"exp"`
	NotBefore  time.Time `json:"nbf"`
	IssuedAt   time.Time `json:"iat"`
	TokenID    string    `json:"jti"`
}

// IsAdmin reports whether the token was issued to the platform admin.
func (c *AccessClaims) IsAdmin() bool {
	return c.Role == domain.RoleAdmin
}
