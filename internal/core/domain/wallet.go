package domain

import (
	"time"

	"github.com/google/uuid"
)

// Wallet aggregates a user's three account balances, account numbers and
// movement counters. Balances are held in minor currency units and must only
// be mutated through the wallet repository under a locked row.
type Wallet struct {
	ID               uuid.UUID `json:"id"`
	UserID           uuid.UUID `json:"user_id"`
	MonetaryBalance  int64     `json:"monetary_balance"`
	SavingsBalance   int64     `json:"savings_balance"`
	ForeignBalance   int64     `json:"foreign_balance"`
	MonetaryAccount  int64     `json:"monetary_account"`
	SavingsAccount   int64     `json:"savings_account"`
	ForeignAccount   int64     `json:"foreign_account"`
	MonetaryMoves    int64     `json:"monetary_movements"`
	SavingsMoves     int64     `json:"savings_movements"`
	ForeignMoves     int64     `json:"foreign_movements"`
	FavoriteAccounts []int64   `json:"favorite_accounts"`
	Active           bool      `json:"active"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Balance returns the balance of the given account kind.
func (w *Wallet) Balance(kind AccountKind) int64 {
	switch kind {
	case AccountKindMonetary:
		return w.MonetaryBalance
	case AccountKindSavings:
		return w.SavingsBalance
	case AccountKindForeign:
		return w.ForeignBalance
	}
	return 0
}

// AccountNumber returns the account number of the given kind.
func (w *Wallet) AccountNumber(kind AccountKind) int64 {
	switch kind {
	case AccountKindMonetary:
		return w.MonetaryAccount
	case AccountKindSavings:
		return w.SavingsAccount
	case AccountKindForeign:
		return w.ForeignAccount
	}
	return 0
}

// Movements returns the applied-mutation counter of the given kind.
func (w *Wallet) Movements(kind AccountKind) int64 {
	switch kind {
	case AccountKindMonetary:
		return w.MonetaryMoves
	case AccountKindSavings:
		return w.SavingsMoves
	case AccountKindForeign:
		return w.ForeignMoves
	}
	return 0
}

// HoldsAccountNumber reports whether n is one of the wallet's three account numbers.
func (w *Wallet) HoldsAccountNumber(n int64) bool {
	return n == w.MonetaryAccount || n == w.SavingsAccount || n == w.ForeignAccount
}
