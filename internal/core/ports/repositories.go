package ports

//go:generate mockgen -source=repositories.go -destination=mocks/mock_repositories.go -package=mocks

import (
	"context"
	"time"

	"wallet-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// UserRepository defines persistence operations for the externally-owned
// user entity, limited to what the ledger needs.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	SetWallet(ctx context.Context, tx pgx.Tx, userID, walletID uuid.UUID) error
}

// WalletRepository defines persistence operations for wallets.
// Methods accepting pgx.Tx are used inside transaction blocks for pessimistic locking.
type WalletRepository interface {
	Create(ctx context.Context, tx pgx.Tx, wallet *domain.Wallet) error
	GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.Wallet, error)
	GetByAccountNumber(ctx context.Context, number int64) (*domain.Wallet, error)
	GetByUserIDForUpdate(ctx context.Context, tx pgx.Tx, userID uuid.UUID) (*domain.Wallet, error)
	// UpdateBalance sets the balance of one account kind and bumps that
	// kind's movement counter by one.
	UpdateBalance(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, kind domain.AccountKind, newBalance int64) error
	AccountNumberExists(ctx context.Context, number int64) (bool, error)
	AddFavorite(ctx context.Context, walletID uuid.UUID, accountNumber int64) error
}

// TransactionRepository defines persistence operations for transactions.
type TransactionRepository interface {
	Create(ctx context.Context, tx pgx.Tx, transaction *domain.Transaction) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error)
	// GetByIDForUpdate locks the transaction row so a reversal and the
	// finalization timer racing on status resolve deterministically.
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Transaction, error)
	// UpdateStatusIf flips status from -> to and reports whether a row changed.
	UpdateStatusIf(ctx context.Context, tx pgx.Tx, id uuid.UUID, from, to domain.TransactionStatus) (bool, error)
	UpdateAmounts(ctx context.Context, tx pgx.Tx, id uuid.UUID, amount, creditedAmount int64) error
	// SentBetween returns the sender's outgoing transfers created in [from, to),
	// read inside the caller's transaction so the daily-limit check and the
	// debit share one critical section.
	SentBetween(ctx context.Context, tx pgx.Tx, senderID uuid.UUID, from, to time.Time) ([]domain.Transaction, error)
	// FinalizeIfSuccess transitions SUCCESS -> FINALLY outside any caller
	// transaction; the conditional write is the scheduler's authoritative guard.
	FinalizeIfSuccess(ctx context.Context, id uuid.UUID) (bool, error)
	// ListPending returns transactions still in SUCCESS created after the
	// cursor, oldest first, for re-arming finalization timers after a
	// restart. Callers page forward by passing the last row's CreatedAt.
	ListPending(ctx context.Context, after time.Time, limit int) ([]domain.Transaction, error)
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
