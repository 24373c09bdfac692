package domain

import (
	"time"

	"github.com/google/uuid"
)

// TransactionType represents the kind of money movement.
type TransactionType string

const (
	TransactionTypeTransfer TransactionType = "TRANSFER"
	TransactionTypeDeposit  TransactionType = "DEPOSIT"
)

// TransactionStatus represents the lifecycle state of a transaction.
// A transaction is created as SUCCESS and moves exactly once to either
// FINALLY (scheduler-driven) or REVERTED (reversal-driven).
type TransactionStatus string

const (
	TransactionStatusSuccess  TransactionStatus = "SUCCESS"
	TransactionStatusFinally  TransactionStatus = "FINALLY"
	TransactionStatusReverted TransactionStatus = "REVERTED"
)

// Transaction is an immutable record of one transfer or deposit with a
// mutable lifecycle status. Amount is the value debited from the sender in
// sender-kind units; CreditedAmount is the value credited to the receiver in
// receiver-kind units and differs from Amount only when a currency
// conversion was applied.
type Transaction struct {
	ID             uuid.UUID         `json:"id"`
	SenderID       *uuid.UUID        `json:"sender_id,omitempty"` // nil for deposits
	ReceiverID     uuid.UUID         `json:"receiver_id"`
	Amount         int64             `json:"amount"`
	CreditedAmount int64             `json:"credited_amount"`
	SenderKind     AccountKind       `json:"sender_kind"`
	ReceiverKind   AccountKind       `json:"receiver_kind"`
	Type           TransactionType   `json:"type"`
	Status         TransactionStatus `json:"status"`
	Note           *string           `json:"note,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
	FinalizedAt    *time.Time        `json:"finalized_at,omitempty"`
}

// IsTerminal returns true if the transaction can no longer change state.
func (t *Transaction) IsTerminal() bool {
	return t.Status == TransactionStatusFinally || t.Status == TransactionStatusReverted
}

// IsDeposit returns true for transactions credited without a sending user.
func (t *Transaction) IsDeposit() bool {
	return t.Type == TransactionTypeDeposit
}

// Converted reports whether a currency conversion was applied at creation,
// i.e. exactly one side of the movement is the foreign-currency account.
func (t *Transaction) Converted() bool {
	return (t.SenderKind == AccountKindForeign) != (t.ReceiverKind == AccountKindForeign)
}
