package service

import (
	"context"
	"testing"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports/mocks"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type walletFixture struct {
	userRepo   *mocks.MockUserRepository
	walletRepo *mocks.MockWalletRepository
	generator  *mocks.MockAccountNumberGenerator
	transactor *mocks.MockDBTransactor
	tx         *fakeTx
	svc        *WalletServiceImpl
}

func newWalletFixture(t *testing.T) *walletFixture {
	ctrl := gomock.NewController(t)
	f := &walletFixture{
		userRepo:   mocks.NewMockUserRepository(ctrl),
		walletRepo: mocks.NewMockWalletRepository(ctrl),
		generator:  mocks.NewMockAccountNumberGenerator(ctrl),
		transactor: mocks.NewMockDBTransactor(ctrl),
		tx:         &fakeTx{},
	}
	f.svc = NewWalletService(f.userRepo, f.walletRepo, f.generator, f.transactor, zerolog.Nop())
	return f
}

func TestProvision_SeedsMonetaryFromEarnings(t *testing.T) {
	f := newWalletFixture(t)
	ctx := context.Background()

	user := testUser(senderIDStr, 4500)
	user.WalletID = nil

	f.userRepo.EXPECT().GetByID(ctx, user.ID).Return(user, nil)
	f.walletRepo.EXPECT().GetByUserID(ctx, user.ID).Return(nil, nil)
	f.generator.EXPECT().Generate(domain.AccountKindMonetary).Return(int64(1054367335), nil)
	f.generator.EXPECT().Generate(domain.AccountKindSavings).Return(int64(2054367335), nil)
	f.generator.EXPECT().Generate(domain.AccountKindForeign).Return(int64(3054367335), nil)
	f.walletRepo.EXPECT().AccountNumberExists(ctx, gomock.Any()).Return(false, nil).Times(3)
	f.transactor.EXPECT().Begin(gomock.Any()).Return(f.tx, nil)
	f.walletRepo.EXPECT().Create(ctx, f.tx, gomock.Any()).Return(nil)
	f.userRepo.EXPECT().SetWallet(ctx, f.tx, user.ID, gomock.Any()).Return(nil)

	wallet, err := f.svc.Provision(ctx, user.ID)

	require.NoError(t, err)
	assert.Equal(t, int64(4500), wallet.MonetaryBalance)
	assert.Equal(t, int64(0), wallet.SavingsBalance)
	assert.Equal(t, int64(0), wallet.ForeignBalance)
	assert.Equal(t, int64(1054367335), wallet.MonetaryAccount)
	assert.Equal(t, int64(2054367335), wallet.SavingsAccount)
	assert.Equal(t, int64(3054367335), wallet.ForeignAccount)
	assert.True(t, wallet.Active)
	assert.Empty(t, wallet.FavoriteAccounts)
	assert.True(t, f.tx.committed)
}

func TestProvision_UserAlreadyHasWallet(t *testing.T) {
	f := newWalletFixture(t)
	ctx := context.Background()

	user := testUser(senderIDStr, 4500)

	f.userRepo.EXPECT().GetByID(ctx, user.ID).Return(user, nil)

	_, err := f.svc.Provision(ctx, user.ID)
	requireAppErrorCode(t, err, "ACC_002")
}

func TestProvision_UserNotFound(t *testing.T) {
	f := newWalletFixture(t)
	ctx := context.Background()

	id := uuid.MustParse(senderIDStr)
	f.userRepo.EXPECT().GetByID(ctx, id).Return(nil, nil)

	_, err := f.svc.Provision(ctx, id)
	requireAppErrorCode(t, err, "ACC_004")
}

func TestProvision_RetriesOnNumberCollision(t *testing.T) {
	f := newWalletFixture(t)
	ctx := context.Background()

	user := testUser(senderIDStr, 100)
	user.WalletID = nil

	f.userRepo.EXPECT().GetByID(ctx, user.ID).Return(user, nil)
	f.walletRepo.EXPECT().GetByUserID(ctx, user.ID).Return(nil, nil)

	// first monetary draw collides with an existing wallet, second is free
	gomock.InOrder(
		f.generator.EXPECT().Generate(domain.AccountKindMonetary).Return(int64(1054367335), nil),
		f.generator.EXPECT().Generate(domain.AccountKindMonetary).Return(int64(1154367335), nil),
	)
	f.walletRepo.EXPECT().AccountNumberExists(ctx, int64(1054367335)).Return(true, nil)
	f.walletRepo.EXPECT().AccountNumberExists(ctx, int64(1154367335)).Return(false, nil)
	f.generator.EXPECT().Generate(domain.AccountKindSavings).Return(int64(2054367335), nil)
	f.generator.EXPECT().Generate(domain.AccountKindForeign).Return(int64(3054367335), nil)
	f.walletRepo.EXPECT().AccountNumberExists(ctx, int64(2054367335)).Return(false, nil)
	f.walletRepo.EXPECT().AccountNumberExists(ctx, int64(3054367335)).Return(false, nil)
	f.transactor.EXPECT().Begin(gomock.Any()).Return(f.tx, nil)
	f.walletRepo.EXPECT().Create(ctx, f.tx, gomock.Any()).Return(nil)
	f.userRepo.EXPECT().SetWallet(ctx, f.tx, user.ID, gomock.Any()).Return(nil)

	wallet, err := f.svc.Provision(ctx, user.ID)

	require.NoError(t, err)
	assert.Equal(t, int64(1154367335), wallet.MonetaryAccount)
}

func TestProvision_GivesUpAfterCollisionStreak(t *testing.T) {
	f := newWalletFixture(t)
	ctx := context.Background()

	user := testUser(senderIDStr, 100)
	user.WalletID = nil

	f.userRepo.EXPECT().GetByID(ctx, user.ID).Return(user, nil)
	f.walletRepo.EXPECT().GetByUserID(ctx, user.ID).Return(nil, nil)
	f.generator.EXPECT().Generate(domain.AccountKindMonetary).
		Return(int64(1054367335), nil).Times(uniqueNumberRetries)
	f.walletRepo.EXPECT().AccountNumberExists(ctx, int64(1054367335)).
		Return(true, nil).Times(uniqueNumberRetries)

	_, err := f.svc.Provision(ctx, user.ID)
	requireAppErrorCode(t, err, "ACC_001")
}

func TestBalances_WalletNotFound(t *testing.T) {
	f := newWalletFixture(t)
	ctx := context.Background()

	id := uuid.MustParse(senderIDStr)
	f.walletRepo.EXPECT().GetByUserID(ctx, id).Return(nil, nil)

	_, err := f.svc.Balances(ctx, id)
	requireAppErrorCode(t, err, "TXN_003")
}

func TestMovements_SortedMostActiveFirst(t *testing.T) {
	f := newWalletFixture(t)
	ctx := context.Background()

	id := uuid.MustParse(senderIDStr)
	wallet := testWallet(id, 0, 0, 0)
	wallet.MonetaryMoves = 2
	wallet.SavingsMoves = 9
	wallet.ForeignMoves = 5

	f.walletRepo.EXPECT().GetByUserID(ctx, id).Return(wallet, nil)

	moves, err := f.svc.Movements(ctx, id)

	require.NoError(t, err)
	require.Len(t, moves, 3)
	assert.Equal(t, domain.AccountKindSavings, moves[0].Kind)
	assert.Equal(t, int64(9), moves[0].Movements)
	assert.Equal(t, domain.AccountKindForeign, moves[1].Kind)
	assert.Equal(t, domain.AccountKindMonetary, moves[2].Kind)
}

func TestAddFavorite_UsesOwnAccountNumber(t *testing.T) {
	f := newWalletFixture(t)
	ctx := context.Background()

	id := uuid.MustParse(senderIDStr)
	wallet := testWallet(id, 0, 0, 0)
	updated := *wallet
	updated.FavoriteAccounts = []int64{wallet.SavingsAccount}

	f.walletRepo.EXPECT().GetByUserID(ctx, id).Return(wallet, nil)
	f.walletRepo.EXPECT().AddFavorite(ctx, wallet.ID, wallet.SavingsAccount).Return(nil)
	f.walletRepo.EXPECT().GetByUserID(ctx, id).Return(&updated, nil)

	got, err := f.svc.AddFavorite(ctx, id, domain.AccountKindSavings)

	require.NoError(t, err)
	assert.Equal(t, []int64{wallet.SavingsAccount}, got.FavoriteAccounts)
}

func TestAddFavorite_UnknownKind(t *testing.T) {
	f := newWalletFixture(t)

	_, err := f.svc.AddFavorite(context.Background(), uuid.MustParse(senderIDStr), domain.AccountKind("checking"))
	requireAppErrorCode(t, err, "ACC_003")
}
