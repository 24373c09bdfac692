package integration

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// memStore backs the in-memory repositories. txMu serializes transaction
// blocks the way row locks serialize them in PostgreSQL: Begin takes the
// lock, Commit/Rollback release it, so everything between behaves as one
// critical section. mu guards the maps for reads outside any transaction.
type memStore struct {
	mu   sync.RWMutex
	txMu sync.Mutex

	users   map[uuid.UUID]*domain.User
	wallets map[uuid.UUID]*domain.Wallet
	txns    map[uuid.UUID]*domain.Transaction
}

func newMemStore() *memStore {
	return &memStore{
		users:   make(map[uuid.UUID]*domain.User),
		wallets: make(map[uuid.UUID]*domain.Wallet),
		txns:    make(map[uuid.UUID]*domain.Transaction),
	}
}

// memTx satisfies pgx.Tx. Writes are applied immediately; the services under
// test perform all guard checks before their first write, so a rollback
// never needs to undo anything here.
type memTx struct {
	store *memStore
	once  sync.Once
}

func (t *memTx) release() {
	t.once.Do(func() { t.store.txMu.Unlock() })
}

func (t *memTx) Begin(ctx context.Context) (pgx.Tx, error) { return t, nil }
func (t *memTx) Commit(ctx context.Context) error          { t.release(); return nil }
func (t *memTx) Rollback(ctx context.Context) error        { t.release(); return nil }

func (t *memTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (t *memTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (t *memTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (t *memTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (t *memTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}
func (t *memTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (t *memTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row { return nil }
func (t *memTx) Conn() *pgx.Conn                                               { return nil }

type memTransactor struct {
	store *memStore
}

func (tr *memTransactor) Begin(ctx context.Context) (pgx.Tx, error) {
	tr.store.txMu.Lock()
	return &memTx{store: tr.store}, nil
}

// --- In-Memory User Repo ---

type memUserRepo struct {
	store *memStore
}

func (r *memUserRepo) Create(ctx context.Context, u *domain.User) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, existing := range r.store.users {
		if existing.Email == u.Email {
			return fmt.Errorf("email already exists")
		}
	}
	cp := *u
	r.store.users[u.ID] = &cp
	return nil
}

func (r *memUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	u, ok := r.store.users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (r *memUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	for _, u := range r.store.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memUserRepo) SetWallet(ctx context.Context, tx pgx.Tx, userID, walletID uuid.UUID) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	u, ok := r.store.users[userID]
	if !ok {
		return fmt.Errorf("user not found")
	}
	u.WalletID = &walletID
	return nil
}

// --- In-Memory Wallet Repo ---

type memWalletRepo struct {
	store *memStore
}

func copyWallet(w *domain.Wallet) *domain.Wallet {
	cp := *w
	cp.FavoriteAccounts = append([]int64(nil), w.FavoriteAccounts...)
	return &cp
}

func (r *memWalletRepo) Create(ctx context.Context, tx pgx.Tx, w *domain.Wallet) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.wallets[w.ID] = copyWallet(w)
	return nil
}

func (r *memWalletRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.Wallet, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	for _, w := range r.store.wallets {
		if w.UserID == userID {
			return copyWallet(w), nil
		}
	}
	return nil, nil
}

func (r *memWalletRepo) GetByAccountNumber(ctx context.Context, number int64) (*domain.Wallet, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	for _, w := range r.store.wallets {
		if w.HoldsAccountNumber(number) {
			return copyWallet(w), nil
		}
	}
	return nil, nil
}

func (r *memWalletRepo) GetByUserIDForUpdate(ctx context.Context, tx pgx.Tx, userID uuid.UUID) (*domain.Wallet, error) {
	return r.GetByUserID(ctx, userID)
}

func (r *memWalletRepo) UpdateBalance(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, kind domain.AccountKind, newBalance int64) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	w, ok := r.store.wallets[walletID]
	if !ok {
		return fmt.Errorf("wallet not found")
	}
	switch kind {
	case domain.AccountKindMonetary:
		w.MonetaryBalance = newBalance
		w.MonetaryMoves++
	case domain.AccountKindSavings:
		w.SavingsBalance = newBalance
		w.SavingsMoves++
	case domain.AccountKindForeign:
		w.ForeignBalance = newBalance
		w.ForeignMoves++
	default:
		return fmt.Errorf("unknown account kind %q", kind)
	}
	w.UpdatedAt = time.Now()
	return nil
}

func (r *memWalletRepo) AccountNumberExists(ctx context.Context, number int64) (bool, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	for _, w := range r.store.wallets {
		if w.HoldsAccountNumber(number) {
			return true, nil
		}
	}
	return false, nil
}

func (r *memWalletRepo) AddFavorite(ctx context.Context, walletID uuid.UUID, accountNumber int64) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	w, ok := r.store.wallets[walletID]
	if !ok {
		return fmt.Errorf("wallet not found")
	}
	for _, n := range w.FavoriteAccounts {
		if n == accountNumber {
			return nil
		}
	}
	w.FavoriteAccounts = append(w.FavoriteAccounts, accountNumber)
	return nil
}

// --- In-Memory Transaction Repo ---

type memTxRepo struct {
	store *memStore
}

func (r *memTxRepo) Create(ctx context.Context, tx pgx.Tx, t *domain.Transaction) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	cp := *t
	r.store.txns[t.ID] = &cp
	return nil
}

func (r *memTxRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	t, ok := r.store.txns[id]
	if !ok {
		return nil, nil
	}
	cp := *t
	return &cp, nil
}

func (r *memTxRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Transaction, error) {
	return r.GetByID(ctx, id)
}

func (r *memTxRepo) UpdateStatusIf(ctx context.Context, tx pgx.Tx, id uuid.UUID, from, to domain.TransactionStatus) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	t, ok := r.store.txns[id]
	if !ok || t.Status != from {
		return false, nil
	}
	t.Status = to
	return true, nil
}

func (r *memTxRepo) UpdateAmounts(ctx context.Context, tx pgx.Tx, id uuid.UUID, amount, creditedAmount int64) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	t, ok := r.store.txns[id]
	if !ok {
		return fmt.Errorf("transaction not found")
	}
	t.Amount = amount
	t.CreditedAmount = creditedAmount
	return nil
}

func (r *memTxRepo) SentBetween(ctx context.Context, tx pgx.Tx, senderID uuid.UUID, from, to time.Time) ([]domain.Transaction, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	var out []domain.Transaction
	for _, t := range r.store.txns {
		if t.SenderID == nil || *t.SenderID != senderID || t.Type != domain.TransactionTypeTransfer {
			continue
		}
		if t.CreatedAt.Before(from) || !t.CreatedAt.Before(to) {
			continue
		}
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// FinalizeIfSuccess runs as its own transaction block, like the standalone
// conditional UPDATE in the real repository, so it cannot interleave with a
// reversal's critical section.
func (r *memTxRepo) FinalizeIfSuccess(ctx context.Context, id uuid.UUID) (bool, error) {
	r.store.txMu.Lock()
	defer r.store.txMu.Unlock()
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	t, ok := r.store.txns[id]
	if !ok || t.Status != domain.TransactionStatusSuccess {
		return false, nil
	}
	now := time.Now()
	t.Status = domain.TransactionStatusFinally
	t.FinalizedAt = &now
	return true, nil
}

func (r *memTxRepo) ListPending(ctx context.Context, after time.Time, limit int) ([]domain.Transaction, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	var out []domain.Transaction
	for _, t := range r.store.txns {
		if t.Status == domain.TransactionStatusSuccess && t.CreatedAt.After(after) {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// --- Stub Rate Gateway ---

// stubRateGateway returns a fixed rate and counts calls so tests can assert
// the cache short-circuits repeat lookups.
type stubRateGateway struct {
	mu    sync.Mutex
	rate  float64
	calls int
}

func (g *stubRateGateway) Rate(ctx context.Context, base, target string) (float64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	return g.rate, nil
}

func (g *stubRateGateway) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

var (
	_ ports.UserRepository        = (*memUserRepo)(nil)
	_ ports.WalletRepository      = (*memWalletRepo)(nil)
	_ ports.TransactionRepository = (*memTxRepo)(nil)
	_ ports.DBTransactor          = (*memTransactor)(nil)
	_ ports.RateGateway           = (*stubRateGateway)(nil)
)
