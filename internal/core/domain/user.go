package domain

import (
	"time"

	"github.com/google/uuid"
)

// User is the minimal projection of the externally-owned user entity that
// the ledger depends on. Send/receive histories are the transactions table
// filtered by sender/receiver id.
type User struct {
	ID            uuid.UUID  `json:"id"`
	Name          string     `json:"name"`
	Email         string     `json:"email"`
	MonthEarnings int64      `json:"month_earnings"`
	WalletID      *uuid.UUID `json:"wallet_id,omitempty"`
	Active        bool       `json:"active"`
	CreatedAt     time.Time  `json:"created_at"`
}

// HasWallet reports whether the user has been provisioned a wallet.
func (u *User) HasWallet() bool {
	return u.WalletID != nil
}
