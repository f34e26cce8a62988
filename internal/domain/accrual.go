package domain

import (
	"math/big"
	"time"
)

// Accrual is one address's fee entitlement. Accrued only grows; Paid tracks
// how much of it has been drawn down.
type Accrual struct {
	Address   Address   `json:"address"`
	Accrued   *big.Int  `json:"accrued"`
	Paid      *big.Int  `json:"paid"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewAccrual returns a zero-balance accrual for addr.
func NewAccrual(addr Address) *Accrual {
	return &Accrual{Address: addr, Accrued: new(big.Int), Paid: new(big.Int)}
}

// Outstanding returns Accrued - Paid.
func (a *Accrual) Outstanding() *big.Int {
	return new(big.Int).Sub(a.Accrued, a.Paid)
}

// Credit is one fee share routed to one address.
type Credit struct {
	Address Address  `json:"address"`
	Amount  *big.Int `json:"amount"`
	TagID   Hash     `json:"tag_id"`
	Role    string   `json:"role"` // platform, relayer, creator or owner
}

// Payout is the receipt of one drawdown.
type Payout struct {
	ID          string    `json:"id"`
	Beneficiary Address   `json:"beneficiary"`
	Amount      *big.Int  `json:"amount"`
	CreatedAt   time.Time `json:"created_at"`
}
