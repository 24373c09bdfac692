package postgres

import (
	"context"
	"errors"
	"fmt"

	"wallet-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// UserRepo implements ports.UserRepository.
type UserRepo struct {
	pool Pool
}

// NewUserRepo creates a new UserRepo.
func NewUserRepo(pool Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

const userColumns = `id, name, email, month_earnings, wallet_id, active, created_at`

// Create inserts a new user.
func (r *UserRepo) Create(ctx context.Context, u *domain.User) error {
	query := `INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.pool.Exec(ctx, query,
		u.ID, u.Name, u.Email, u.MonthEarnings, u.WalletID, u.Active, u.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// GetByID fetches a user by UUID.
func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.pool.QueryRow(ctx, query, id))
}

// GetByEmail fetches a user by email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(r.pool.QueryRow(ctx, query, email))
}

// SetWallet links a freshly provisioned wallet to its owner within a
// database transaction.
func (r *UserRepo) SetWallet(ctx context.Context, tx pgx.Tx, userID, walletID uuid.UUID) error {
	query := `UPDATE users SET wallet_id = $1 WHERE id = $2`

	tag, err := tx.Exec(ctx, query, walletID, userID)
	if err != nil {
		return fmt.Errorf("set user wallet: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("user not found: %s", userID)
	}
	return nil
}

func scanUser(row pgx.Row) (*domain.User, error) {
	u := &domain.User{}
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.MonthEarnings, &u.WalletID, &u.Active, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return u, nil
}
