package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// uniqueNumberRetries bounds how many structurally-valid numbers are tried
// per account kind before provisioning gives up on a collision streak.
const uniqueNumberRetries = 5

var _ ports.WalletService = (*WalletServiceImpl)(nil)

// WalletServiceImpl implements ports.WalletService.
type WalletServiceImpl struct {
	userRepo   ports.UserRepository
	walletRepo ports.WalletRepository
	generator  ports.AccountNumberGenerator
	transactor ports.DBTransactor
	log        zerolog.Logger
}

// NewWalletService creates the wallet service.
func NewWalletService(
	userRepo ports.UserRepository,
	walletRepo ports.WalletRepository,
	generator ports.AccountNumberGenerator,
	transactor ports.DBTransactor,
	log zerolog.Logger,
) *WalletServiceImpl {
	return &WalletServiceImpl{
		userRepo:   userRepo,
		walletRepo: walletRepo,
		generator:  generator,
		transactor: transactor,
		log:        log.With().Str("component", "wallet_service").Logger(),
	}
}

// Provision creates the user's wallet with three freshly generated account
// numbers and seeds the monetary balance from the user's declared monthly
// earnings. A user gets exactly one wallet.
func (s *WalletServiceImpl) Provision(ctx context.Context, userID uuid.UUID) (*domain.Wallet, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	if user == nil {
		return nil, apperror.ErrUserNotFound()
	}
	if user.HasWallet() {
		return nil, apperror.ErrWalletExists()
	}
	existing, err := s.walletRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	if existing != nil {
		return nil, apperror.ErrWalletExists()
	}

	numbers := make(map[domain.AccountKind]int64, len(domain.AccountKinds()))
	for _, kind := range domain.AccountKinds() {
		number, err := s.uniqueNumber(ctx, kind, numbers)
		if err != nil {
			return nil, err
		}
		numbers[kind] = number
	}

	now := time.Now()
	wallet := &domain.Wallet{
		ID:               uuid.New(),
		UserID:           userID,
		MonetaryBalance:  user.MonthEarnings,
		MonetaryAccount:  numbers[domain.AccountKindMonetary],
		SavingsAccount:   numbers[domain.AccountKindSavings],
		ForeignAccount:   numbers[domain.AccountKindForeign],
		FavoriteAccounts: []int64{},
		Active:           true,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	defer dbTx.Rollback(ctx)

	if err := s.walletRepo.Create(ctx, dbTx, wallet); err != nil {
		return nil, apperror.InternalError(err)
	}
	if err := s.userRepo.SetWallet(ctx, dbTx, userID, wallet.ID); err != nil {
		return nil, apperror.InternalError(err)
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(err)
	}

	s.log.Info().
		Str("user_id", userID.String()).
		Str("wallet_id", wallet.ID.String()).
		Int64("seeded_balance", wallet.MonetaryBalance).
		Msg("wallet provisioned")
	return wallet, nil
}

// uniqueNumber draws structurally-valid numbers until one is unused, both
// in the store and among the numbers already picked for this wallet.
func (s *WalletServiceImpl) uniqueNumber(ctx context.Context, kind domain.AccountKind, picked map[domain.AccountKind]int64) (int64, error) {
	for i := 0; i < uniqueNumberRetries; i++ {
		number, err := s.generator.Generate(kind)
		if err != nil {
			return 0, err
		}

		clash := false
		for _, n := range picked {
			if n == number {
				clash = true
				break
			}
		}
		if clash {
			continue
		}

		exists, err := s.walletRepo.AccountNumberExists(ctx, number)
		if err != nil {
			return 0, apperror.InternalError(err)
		}
		if !exists {
			return number, nil
		}
	}
	return 0, apperror.ErrAccountGeneration(
		fmt.Errorf("no unused %s account number in %d draws", kind, uniqueNumberRetries))
}

// Balances returns the user's wallet with its current balances.
func (s *WalletServiceImpl) Balances(ctx context.Context, userID uuid.UUID) (*domain.Wallet, error) {
	wallet, err := s.walletRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	if wallet == nil {
		return nil, apperror.ErrWalletNotFound()
	}
	return wallet, nil
}

// Movements returns per-kind applied-mutation counters, most active account
// first.
func (s *WalletServiceImpl) Movements(ctx context.Context, userID uuid.UUID) ([]ports.AccountMovements, error) {
	wallet, err := s.Balances(ctx, userID)
	if err != nil {
		return nil, err
	}

	moves := make([]ports.AccountMovements, 0, len(domain.AccountKinds()))
	for _, kind := range domain.AccountKinds() {
		moves = append(moves, ports.AccountMovements{
			Kind:      kind,
			Account:   wallet.AccountNumber(kind),
			Movements: wallet.Movements(kind),
		})
	}
	sort.SliceStable(moves, func(i, j int) bool {
		return moves[i].Movements > moves[j].Movements
	})
	return moves, nil
}

// AddFavorite marks the user's own account of the given kind as a favorite.
// Adding an already-favorite number is a no-op.
func (s *WalletServiceImpl) AddFavorite(ctx context.Context, userID uuid.UUID, kind domain.AccountKind) (*domain.Wallet, error) {
	if !kind.Valid() {
		return nil, apperror.ErrUnknownAccountKind(string(kind))
	}

	wallet, err := s.Balances(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := s.walletRepo.AddFavorite(ctx, wallet.ID, wallet.AccountNumber(kind)); err != nil {
		return nil, apperror.InternalError(err)
	}

	updated, err := s.walletRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	if updated == nil {
		return nil, apperror.ErrWalletNotFound()
	}
	return updated, nil
}
