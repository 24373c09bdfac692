package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"wallet-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// TransactionRepo implements ports.TransactionRepository.
type TransactionRepo struct {
	pool Pool
}

// NewTransactionRepo creates a new TransactionRepo.
func NewTransactionRepo(pool Pool) *TransactionRepo {
	return &TransactionRepo{pool: pool}
}

const transactionColumns = `id, sender_id, receiver_id, amount, credited_amount,
		sender_kind, receiver_kind, type, status, note, created_at, finalized_at`

// Create inserts a new transaction within a database transaction.
func (r *TransactionRepo) Create(ctx context.Context, tx pgx.Tx, t *domain.Transaction) error {
	query := `INSERT INTO transactions (` + transactionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := tx.Exec(ctx, query,
		t.ID, t.SenderID, t.ReceiverID, t.Amount, t.CreditedAmount,
		t.SenderKind, t.ReceiverKind, t.Type, t.Status,
		t.Note, t.CreatedAt, t.FinalizedAt,
	)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

// GetByID fetches a transaction by UUID.
func (r *TransactionRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1`
	return scanTransaction(r.pool.QueryRow(ctx, query, id))
}

// GetByIDForUpdate fetches a transaction with pessimistic locking so status
// writers serialize. This MUST be called within a transaction.
func (r *TransactionRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1 FOR UPDATE`
	return scanTransaction(tx.QueryRow(ctx, query, id))
}

// UpdateStatusIf flips the status only when the current value matches from.
// Returns false when another writer won the race.
func (r *TransactionRepo) UpdateStatusIf(ctx context.Context, tx pgx.Tx, id uuid.UUID, from, to domain.TransactionStatus) (bool, error) {
	query := `UPDATE transactions SET status = $1 WHERE id = $2 AND status = $3`

	tag, err := tx.Exec(ctx, query, to, id, from)
	if err != nil {
		return false, fmt.Errorf("update transaction status: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// UpdateAmounts rewrites the recorded debit and credit of a transaction.
func (r *TransactionRepo) UpdateAmounts(ctx context.Context, tx pgx.Tx, id uuid.UUID, amount, creditedAmount int64) error {
	query := `UPDATE transactions SET amount = $1, credited_amount = $2 WHERE id = $3`

	tag, err := tx.Exec(ctx, query, amount, creditedAmount, id)
	if err != nil {
		return fmt.Errorf("update transaction amounts: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("transaction not found: %s", id)
	}
	return nil
}

// SentBetween lists a sender's outgoing transfers created in [from, to),
// oldest first, inside the caller's transaction.
func (r *TransactionRepo) SentBetween(ctx context.Context, tx pgx.Tx, senderID uuid.UUID, from, to time.Time) ([]domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions
		WHERE sender_id = $1 AND created_at >= $2 AND created_at < $3
		ORDER BY created_at`

	rows, err := tx.Query(ctx, query, senderID, from, to)
	if err != nil {
		return nil, fmt.Errorf("query sent transactions: %w", err)
	}
	defer rows.Close()

	var result []domain.Transaction
	for rows.Next() {
		var t domain.Transaction
		if err := rows.Scan(
			&t.ID, &t.SenderID, &t.ReceiverID, &t.Amount, &t.CreditedAmount,
			&t.SenderKind, &t.ReceiverKind, &t.Type, &t.Status,
			&t.Note, &t.CreatedAt, &t.FinalizedAt,
		); err != nil {
			return nil, fmt.Errorf("scan sent transaction: %w", err)
		}
		result = append(result, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sent transactions: %w", err)
	}
	return result, nil
}

// FinalizeIfSuccess transitions SUCCESS -> FINALLY and stamps finalized_at.
// Returns false when the transaction already left SUCCESS.
func (r *TransactionRepo) FinalizeIfSuccess(ctx context.Context, id uuid.UUID) (bool, error) {
	query := `UPDATE transactions SET status = $1, finalized_at = NOW()
		WHERE id = $2 AND status = $3`

	tag, err := r.pool.Exec(ctx, query, domain.TransactionStatusFinally, id, domain.TransactionStatusSuccess)
	if err != nil {
		return false, fmt.Errorf("finalize transaction: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// ListPending returns transactions still in SUCCESS created after the
// cursor, oldest first.
func (r *TransactionRepo) ListPending(ctx context.Context, after time.Time, limit int) ([]domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions
		WHERE status = $1 AND created_at > $2 ORDER BY created_at LIMIT $3`

	rows, err := r.pool.Query(ctx, query, domain.TransactionStatusSuccess, after, limit)
	if err != nil {
		return nil, fmt.Errorf("query pending transactions: %w", err)
	}
	defer rows.Close()

	var result []domain.Transaction
	for rows.Next() {
		var t domain.Transaction
		if err := rows.Scan(
			&t.ID, &t.SenderID, &t.ReceiverID, &t.Amount, &t.CreditedAmount,
			&t.SenderKind, &t.ReceiverKind, &t.Type, &t.Status,
			&t.Note, &t.CreatedAt, &t.FinalizedAt,
		); err != nil {
			return nil, fmt.Errorf("scan pending transaction: %w", err)
		}
		result = append(result, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pending transactions: %w", err)
	}
	return result, nil
}

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	t := &domain.Transaction{}
	err := row.Scan(
		&t.ID, &t.SenderID, &t.ReceiverID, &t.Amount, &t.CreditedAmount,
		&t.SenderKind, &t.ReceiverKind, &t.Type, &t.Status,
		&t.Note, &t.CreatedAt, &t.FinalizedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan transaction: %w", err)
	}
	return t, nil
}
