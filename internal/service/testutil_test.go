package service

import (
	"context"
	"testing"
	"time"

	"wallet-ledger/config"
	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports/mocks"
	"wallet-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

// fakeTx satisfies pgx.Tx for services that only pass the handle through to
// mocked repositories. It records commit/rollback so tests can assert the
// transaction outcome.
type fakeTx struct {
	committed  bool
	rolledBack bool
}

func (t *fakeTx) Begin(ctx context.Context) (pgx.Tx, error) { return t, nil }

func (t *fakeTx) Commit(ctx context.Context) error {
	t.committed = true
	return nil
}

func (t *fakeTx) Rollback(ctx context.Context) error {
	if !t.committed {
		t.rolledBack = true
	}
	return nil
}

func (t *fakeTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}

func (t *fakeTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }

func (t *fakeTx) LargeObjects() pgx.LargeObjects { return pgx.LargeObjects{} }

func (t *fakeTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}

func (t *fakeTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}

func (t *fakeTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}

func (t *fakeTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row { return nil }

func (t *fakeTx) Conn() *pgx.Conn { return nil }

// ledgerFixture wires a LedgerServiceImpl against gomock ports.
type ledgerFixture struct {
	userRepo   *mocks.MockUserRepository
	walletRepo *mocks.MockWalletRepository
	txRepo     *mocks.MockTransactionRepository
	transactor *mocks.MockDBTransactor
	limits     *mocks.MockDailyLimitEvaluator
	rates      *mocks.MockRateGateway
	rateCache  *mocks.MockRateCache
	scheduler  *mocks.MockFinalizationScheduler
	tx         *fakeTx
	svc        *LedgerServiceImpl
}

func newLedgerFixture(t *testing.T) *ledgerFixture {
	ctrl := gomock.NewController(t)
	f := &ledgerFixture{
		userRepo:   mocks.NewMockUserRepository(ctrl),
		walletRepo: mocks.NewMockWalletRepository(ctrl),
		txRepo:     mocks.NewMockTransactionRepository(ctrl),
		transactor: mocks.NewMockDBTransactor(ctrl),
		limits:     mocks.NewMockDailyLimitEvaluator(ctrl),
		rates:      mocks.NewMockRateGateway(ctrl),
		rateCache:  mocks.NewMockRateCache(ctrl),
		scheduler:  mocks.NewMockFinalizationScheduler(ctrl),
		tx:         &fakeTx{},
	}
	f.svc = NewLedgerService(
		f.userRepo, f.walletRepo, f.txRepo, f.transactor,
		f.limits, f.rates, f.rateCache, f.scheduler,
		config.FXConfig{
			HomeCurrency:    "GTQ",
			ForeignCurrency: "USD",
			RateCacheTTL:    10 * time.Minute,
		},
		config.LedgerConfig{
			DailyLimit:    10000,
			FinalizeAfter: 120 * time.Second,
		},
		zerolog.Nop(),
	)
	return f
}

func (f *ledgerFixture) expectBegin() {
	f.transactor.EXPECT().Begin(gomock.Any()).Return(f.tx, nil)
}

func testUser(id string, earnings int64) *domain.User {
	walletID := uuid.New()
	return &domain.User{
		ID:            uuid.MustParse(id),
		Name:          "Test User",
		Email:         id + "@example.com",
		MonthEarnings: earnings,
		WalletID:      &walletID,
		Active:        true,
		CreatedAt:     time.Now(),
	}
}

func testWallet(userID uuid.UUID, monetary, savings, foreign int64) *domain.Wallet {
	return &domain.Wallet{
		ID:              uuid.New(),
		UserID:          userID,
		MonetaryBalance: monetary,
		SavingsBalance:  savings,
		ForeignBalance:  foreign,
		MonetaryAccount: 1111111111,
		SavingsAccount:  2222222222,
		ForeignAccount:  3333333333,
		Active:          true,
		CreatedAt:       time.Now(),
		UpdatedAt:       time.Now(),
	}
}

func requireAppErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	appErr, ok := apperror.GetAppError(err)
	require.True(t, ok, "expected AppError, got %v", err)
	require.Equal(t, code, appErr.Code)
}
