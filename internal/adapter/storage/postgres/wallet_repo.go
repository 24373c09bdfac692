package postgres

import (
	"context"
	"errors"
	"fmt"

	"wallet-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// WalletRepo implements ports.WalletRepository.
type WalletRepo struct {
	pool Pool
}

// NewWalletRepo creates a new WalletRepo.
func NewWalletRepo(pool Pool) *WalletRepo {
	return &WalletRepo{pool: pool}
}

const walletColumns = `id, user_id, monetary_balance, savings_balance, foreign_balance,
		monetary_account, savings_account, foreign_account,
		monetary_movements, savings_movements, foreign_movements,
		favorite_accounts, active, created_at, updated_at`

// balanceColumn maps an account kind to its balance column. The enumeration
// is closed; ParseAccountKind guards every external input.
func balanceColumn(kind domain.AccountKind) string {
	switch kind {
	case domain.AccountKindMonetary:
		return "monetary_balance"
	case domain.AccountKindSavings:
		return "savings_balance"
	default:
		return "foreign_balance"
	}
}

func movementsColumn(kind domain.AccountKind) string {
	switch kind {
	case domain.AccountKindMonetary:
		return "monetary_movements"
	case domain.AccountKindSavings:
		return "savings_movements"
	default:
		return "foreign_movements"
	}
}

// Create inserts a new wallet within a database transaction.
func (r *WalletRepo) Create(ctx context.Context, tx pgx.Tx, w *domain.Wallet) error {
	query := `INSERT INTO wallets (` + walletColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	_, err := tx.Exec(ctx, query,
		w.ID, w.UserID, w.MonetaryBalance, w.SavingsBalance, w.ForeignBalance,
		w.MonetaryAccount, w.SavingsAccount, w.ForeignAccount,
		w.MonetaryMoves, w.SavingsMoves, w.ForeignMoves,
		w.FavoriteAccounts, w.Active, w.CreatedAt, w.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert wallet: %w", err)
	}
	return nil
}

// GetByUserID fetches a user's wallet (non-locking read).
func (r *WalletRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE user_id = $1`
	return scanWallet(r.pool.QueryRow(ctx, query, userID))
}

// GetByAccountNumber fetches the wallet holding the given number on any of
// its three accounts.
func (r *WalletRepo) GetByAccountNumber(ctx context.Context, number int64) (*domain.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets
		WHERE monetary_account = $1 OR savings_account = $1 OR foreign_account = $1`
	return scanWallet(r.pool.QueryRow(ctx, query, number))
}

// GetByUserIDForUpdate fetches a user's wallet with pessimistic locking.
// This MUST be called within a transaction.
func (r *WalletRepo) GetByUserIDForUpdate(ctx context.Context, tx pgx.Tx, userID uuid.UUID) (*domain.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE user_id = $1 FOR UPDATE`
	return scanWallet(tx.QueryRow(ctx, query, userID))
}

// UpdateBalance sets one account balance and bumps its movement counter
// within a transaction.
func (r *WalletRepo) UpdateBalance(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, kind domain.AccountKind, newBalance int64) error {
	query := fmt.Sprintf(`UPDATE wallets SET %s = $1, %s = %s + 1, updated_at = NOW() WHERE id = $2`,
		balanceColumn(kind), movementsColumn(kind), movementsColumn(kind))

	tag, err := tx.Exec(ctx, query, newBalance, walletID)
	if err != nil {
		return fmt.Errorf("update wallet balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("wallet not found: %s", walletID)
	}
	return nil
}

// AccountNumberExists reports whether any wallet already holds the number.
func (r *WalletRepo) AccountNumberExists(ctx context.Context, number int64) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM wallets
		WHERE monetary_account = $1 OR savings_account = $1 OR foreign_account = $1)`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, number).Scan(&exists); err != nil {
		return false, fmt.Errorf("check account number: %w", err)
	}
	return exists, nil
}

// AddFavorite appends an account number to the wallet's favorite set
// (no-op when already present).
func (r *WalletRepo) AddFavorite(ctx context.Context, walletID uuid.UUID, accountNumber int64) error {
	query := `UPDATE wallets
		SET favorite_accounts = array_append(favorite_accounts, $1), updated_at = NOW()
		WHERE id = $2 AND NOT ($1 = ANY(favorite_accounts))`

	if _, err := r.pool.Exec(ctx, query, accountNumber, walletID); err != nil {
		return fmt.Errorf("add favorite account: %w", err)
	}
	return nil
}

func scanWallet(row pgx.Row) (*domain.Wallet, error) {
	w := &domain.Wallet{}
	err := row.Scan(
		&w.ID, &w.UserID, &w.MonetaryBalance, &w.SavingsBalance, &w.ForeignBalance,
		&w.MonetaryAccount, &w.SavingsAccount, &w.ForeignAccount,
		&w.MonetaryMoves, &w.SavingsMoves, &w.ForeignMoves,
		&w.FavoriteAccounts, &w.Active, &w.CreatedAt, &w.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan wallet: %w", err)
	}
	return w, nil
}
