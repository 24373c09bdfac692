package ports

//go:generate mockgen -source=services.go -destination=mocks/mock_services.go -package=mocks

import (
	"context"
	"time"

	"wallet-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// RateGateway is the boundary to the external FX-rate source. Rate returns
// the multiplier from base to target currency. Implementations must bound
// the call with a timeout; any transport or non-success response is an error.
type RateGateway interface {
	Rate(ctx context.Context, base, target string) (float64, error)
}

// RateCache is the fast-path store for FX rates (best-effort; the gateway
// stays authoritative).
type RateCache interface {
	Get(ctx context.Context, base, target string) (float64, bool, error)
	Set(ctx context.Context, base, target string, rate float64, ttl time.Duration) error
}

// AccountNumberGenerator derives a structurally-valid 10-digit account
// number for a kind. Uniqueness across wallets is the caller's concern.
type AccountNumberGenerator interface {
	Generate(kind domain.AccountKind) (int64, error)
}

// FinalizationScheduler arms and cancels per-transaction finalization timers.
// Cancellation is best-effort: the conditional status write at fire time is
// the correctness backstop, not the timer bookkeeping.
type FinalizationScheduler interface {
	Schedule(id uuid.UUID, after time.Duration)
	Cancel(id uuid.UUID) bool
}

// DailyLimitEvaluator gates a sender's cumulative same-day outgoing volume.
type DailyLimitEvaluator interface {
	// Check fails with DailyLimitExceeded when the sender's same-day
	// outgoing total plus amount would exceed the ceiling. It must run
	// inside the same database transaction as the subsequent debit.
	Check(ctx context.Context, tx pgx.Tx, senderID uuid.UUID, amount int64, now time.Time) error
}

// --- Service Ports (Business Logic) ---

// LedgerService owns the transaction state machine and all money movement.
type LedgerService interface {
	Transfer(ctx context.Context, req TransferRequest) (*domain.Transaction, error)
	Revert(ctx context.Context, transactionID uuid.UUID) (*domain.Transaction, error)
	Deposit(ctx context.Context, req DepositRequest) (*domain.Transaction, error)
	UpdateAmount(ctx context.Context, transactionID uuid.UUID, newAmount int64) (*domain.Transaction, error)
}

// TransferRequest holds validated input for a transfer. Receiver may be a
// user id, an email address or a 10-digit account number, resolved in that
// order.
type TransferRequest struct {
	SenderID     uuid.UUID
	Receiver     string
	Amount       int64
	SenderKind   domain.AccountKind
	ReceiverKind domain.AccountKind
	Note         *string
}

// DepositRequest credits a single account kind without a sending user.
type DepositRequest struct {
	ReceiverID uuid.UUID
	Amount     int64
	Kind       domain.AccountKind
	Note       *string
}

// WalletService provisions wallets and exposes read models over them.
type WalletService interface {
	Provision(ctx context.Context, userID uuid.UUID) (*domain.Wallet, error)
	Balances(ctx context.Context, userID uuid.UUID) (*domain.Wallet, error)
	Movements(ctx context.Context, userID uuid.UUID) ([]AccountMovements, error)
	AddFavorite(ctx context.Context, userID uuid.UUID, kind domain.AccountKind) (*domain.Wallet, error)
}

// AccountMovements pairs an account kind with its applied-mutation count.
type AccountMovements struct {
	Kind      domain.AccountKind `json:"kind"`
	Account   int64              `json:"account"`
	Movements int64              `json:"movements"`
}
