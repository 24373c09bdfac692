package service

import (
	"context"
	"time"

	"wallet-ledger/internal/core/ports"
	"wallet-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var _ ports.DailyLimitEvaluator = (*DailyLimitChecker)(nil)

// DailyLimitChecker enforces a per-sender ceiling on same-day outgoing
// transfer volume. The check runs inside the caller's database transaction,
// after the sender wallet row is locked, so two concurrent transfers cannot
// both read a stale daily total.
type DailyLimitChecker struct {
	txRepo ports.TransactionRepository
	limit  int64
}

// NewDailyLimitChecker creates a limit checker with the given ceiling.
func NewDailyLimitChecker(txRepo ports.TransactionRepository, limit int64) *DailyLimitChecker {
	return &DailyLimitChecker{txRepo: txRepo, limit: limit}
}

// Check fails when the sender's already-committed same-day outgoing total
// plus the new amount would exceed the ceiling. Reverted transfers still
// count: the limit tracks attempted daily volume, not net movement.
func (c *DailyLimitChecker) Check(ctx context.Context, tx pgx.Tx, senderID uuid.UUID, amount int64, now time.Time) error {
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	dayEnd := dayStart.AddDate(0, 0, 1)

	sent, err := c.txRepo.SentBetween(ctx, tx, senderID, dayStart, dayEnd)
	if err != nil {
		return apperror.InternalError(err)
	}

	running := amount
	if running > c.limit {
		return apperror.ErrDailyLimitExceeded()
	}
	for _, t := range sent {
		running += t.Amount
		if running > c.limit {
			return apperror.ErrDailyLimitExceeded()
		}
	}
	return nil
}
