package service

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"wallet-ledger/config"
	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

var _ ports.LedgerService = (*LedgerServiceImpl)(nil)

// LedgerServiceImpl implements ports.LedgerService. All money movement goes
// through a single database transaction that locks the affected wallet rows
// before any balance is read, so sufficiency checks and the daily-limit scan
// observe committed state only.
type LedgerServiceImpl struct {
	userRepo   ports.UserRepository
	walletRepo ports.WalletRepository
	txRepo     ports.TransactionRepository
	transactor ports.DBTransactor
	limits     ports.DailyLimitEvaluator
	rates      ports.RateGateway
	rateCache  ports.RateCache
	scheduler  ports.FinalizationScheduler
	fxCfg      config.FXConfig
	ledgerCfg  config.LedgerConfig
	log        zerolog.Logger
}

// NewLedgerService creates the ledger service.
func NewLedgerService(
	userRepo ports.UserRepository,
	walletRepo ports.WalletRepository,
	txRepo ports.TransactionRepository,
	transactor ports.DBTransactor,
	limits ports.DailyLimitEvaluator,
	rates ports.RateGateway,
	rateCache ports.RateCache,
	scheduler ports.FinalizationScheduler,
	fxCfg config.FXConfig,
	ledgerCfg config.LedgerConfig,
	log zerolog.Logger,
) *LedgerServiceImpl {
	return &LedgerServiceImpl{
		userRepo:   userRepo,
		walletRepo: walletRepo,
		txRepo:     txRepo,
		transactor: transactor,
		limits:     limits,
		rates:      rates,
		rateCache:  rateCache,
		scheduler:  scheduler,
		fxCfg:      fxCfg,
		ledgerCfg:  ledgerCfg,
		log:        log.With().Str("component", "ledger_service").Logger(),
	}
}

// Transfer moves funds from the sender's account to the receiver's account,
// converting currency when exactly one side is the foreign account. On
// success the transaction is recorded as SUCCESS and a finalization timer is
// armed for the reversal window.
func (s *LedgerServiceImpl) Transfer(ctx context.Context, req ports.TransferRequest) (*domain.Transaction, error) {
	if !req.SenderKind.Valid() {
		return nil, apperror.ErrUnknownAccountKind(string(req.SenderKind))
	}
	if !req.ReceiverKind.Valid() {
		return nil, apperror.ErrUnknownAccountKind(string(req.ReceiverKind))
	}

	sender, err := s.userRepo.GetByID(ctx, req.SenderID)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	if sender == nil {
		return nil, apperror.ErrUserNotFound()
	}

	// The receiver reference is resolved before the amount is judged, so an
	// unknown receiver is reported even on an otherwise malformed request.
	receiver, err := s.resolveReceiver(ctx, req.Receiver)
	if err != nil {
		return nil, err
	}

	if req.Amount <= 0 {
		return nil, apperror.ErrInvalidAmount()
	}

	// Resolve the rate before entering the critical section: the external
	// gateway call must not run while wallet rows are locked.
	credited := req.Amount
	if (req.SenderKind == domain.AccountKindForeign) != (req.ReceiverKind == domain.AccountKindForeign) {
		from := req.SenderKind.Currency(s.fxCfg.HomeCurrency, s.fxCfg.ForeignCurrency)
		to := req.ReceiverKind.Currency(s.fxCfg.HomeCurrency, s.fxCfg.ForeignCurrency)
		rate, err := s.rateFor(ctx, from, to)
		if err != nil {
			return nil, apperror.ErrConversionFailed(err)
		}
		credited = int64(math.Round(float64(req.Amount) * rate))
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	defer dbTx.Rollback(ctx)

	senderWallet, receiverWallet, err := s.lockWalletPair(ctx, dbTx, sender.ID, receiver.ID)
	if err != nil {
		return nil, err
	}

	if senderWallet.Balance(req.SenderKind) < req.Amount {
		return nil, apperror.ErrInsufficientFunds()
	}

	if err := s.limits.Check(ctx, dbTx, sender.ID, req.Amount, time.Now()); err != nil {
		return nil, err
	}

	newSenderBalance := senderWallet.Balance(req.SenderKind) - req.Amount
	if err := s.walletRepo.UpdateBalance(ctx, dbTx, senderWallet.ID, req.SenderKind, newSenderBalance); err != nil {
		return nil, apperror.InternalError(err)
	}
	applyBalance(senderWallet, req.SenderKind, newSenderBalance)

	newReceiverBalance := receiverWallet.Balance(req.ReceiverKind) + credited
	if err := s.walletRepo.UpdateBalance(ctx, dbTx, receiverWallet.ID, req.ReceiverKind, newReceiverBalance); err != nil {
		return nil, apperror.InternalError(err)
	}
	applyBalance(receiverWallet, req.ReceiverKind, newReceiverBalance)

	senderID := sender.ID
	txn := &domain.Transaction{
		ID:             uuid.New(),
		SenderID:       &senderID,
		ReceiverID:     receiver.ID,
		Amount:         req.Amount,
		CreditedAmount: credited,
		SenderKind:     req.SenderKind,
		ReceiverKind:   req.ReceiverKind,
		Type:           domain.TransactionTypeTransfer,
		Status:         domain.TransactionStatusSuccess,
		Note:           req.Note,
		CreatedAt:      time.Now(),
	}
	if err := s.txRepo.Create(ctx, dbTx, txn); err != nil {
		return nil, apperror.InternalError(err)
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(err)
	}

	s.scheduler.Schedule(txn.ID, s.ledgerCfg.FinalizeAfter)

	s.log.Info().
		Str("transaction_id", txn.ID.String()).
		Str("sender_id", sender.ID.String()).
		Str("receiver_id", receiver.ID.String()).
		Int64("amount", txn.Amount).
		Int64("credited_amount", txn.CreditedAmount).
		Msg("transfer completed")
	return txn, nil
}

// Deposit credits a single account without a sending user. Deposits follow
// the same lifecycle as transfers so amount corrections stay inside the
// reversal window.
func (s *LedgerServiceImpl) Deposit(ctx context.Context, req ports.DepositRequest) (*domain.Transaction, error) {
	if req.Amount <= 0 {
		return nil, apperror.ErrInvalidAmount()
	}
	if !req.Kind.Valid() {
		return nil, apperror.ErrUnknownAccountKind(string(req.Kind))
	}

	receiver, err := s.userRepo.GetByID(ctx, req.ReceiverID)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	if receiver == nil {
		return nil, apperror.ErrReceiverNotFound()
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	defer dbTx.Rollback(ctx)

	wallet, err := s.walletRepo.GetByUserIDForUpdate(ctx, dbTx, receiver.ID)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	if wallet == nil {
		return nil, apperror.ErrWalletNotFound()
	}

	newBalance := wallet.Balance(req.Kind) + req.Amount
	if err := s.walletRepo.UpdateBalance(ctx, dbTx, wallet.ID, req.Kind, newBalance); err != nil {
		return nil, apperror.InternalError(err)
	}

	txn := &domain.Transaction{
		ID:             uuid.New(),
		ReceiverID:     receiver.ID,
		Amount:         req.Amount,
		CreditedAmount: req.Amount,
		SenderKind:     req.Kind,
		ReceiverKind:   req.Kind,
		Type:           domain.TransactionTypeDeposit,
		Status:         domain.TransactionStatusSuccess,
		Note:           req.Note,
		CreatedAt:      time.Now(),
	}
	if err := s.txRepo.Create(ctx, dbTx, txn); err != nil {
		return nil, apperror.InternalError(err)
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(err)
	}

	s.scheduler.Schedule(txn.ID, s.ledgerCfg.FinalizeAfter)

	s.log.Info().
		Str("transaction_id", txn.ID.String()).
		Str("receiver_id", receiver.ID.String()).
		Int64("amount", txn.Amount).
		Msg("deposit completed")
	return txn, nil
}

// Revert undoes a transaction still inside its reversal window, restoring
// the exact stored amounts. No rate is re-fetched: a reverted conversion
// gives back what was recorded, not today's equivalent.
func (s *LedgerServiceImpl) Revert(ctx context.Context, transactionID uuid.UUID) (*domain.Transaction, error) {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	defer dbTx.Rollback(ctx)

	txn, err := s.txRepo.GetByIDForUpdate(ctx, dbTx, transactionID)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	if txn == nil {
		return nil, apperror.ErrTransactionNotFound()
	}
	switch txn.Status {
	case domain.TransactionStatusFinally:
		return nil, apperror.ErrReversalWindowClosed()
	case domain.TransactionStatusReverted:
		return nil, apperror.ErrAlreadyReverted()
	}

	receiverWallet, senderWallet, err := s.lockTransactionWallets(ctx, dbTx, txn)
	if err != nil {
		return nil, err
	}

	// The receiver may have spent the credited funds already.
	newReceiverBalance := receiverWallet.Balance(txn.ReceiverKind) - txn.CreditedAmount
	if newReceiverBalance < 0 {
		return nil, apperror.ErrInsufficientFunds()
	}
	if err := s.walletRepo.UpdateBalance(ctx, dbTx, receiverWallet.ID, txn.ReceiverKind, newReceiverBalance); err != nil {
		return nil, apperror.InternalError(err)
	}
	applyBalance(receiverWallet, txn.ReceiverKind, newReceiverBalance)

	if senderWallet != nil {
		newSenderBalance := senderWallet.Balance(txn.SenderKind) + txn.Amount
		if err := s.walletRepo.UpdateBalance(ctx, dbTx, senderWallet.ID, txn.SenderKind, newSenderBalance); err != nil {
			return nil, apperror.InternalError(err)
		}
		applyBalance(senderWallet, txn.SenderKind, newSenderBalance)
	}

	changed, err := s.txRepo.UpdateStatusIf(ctx, dbTx, txn.ID,
		domain.TransactionStatusSuccess, domain.TransactionStatusReverted)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	if !changed {
		return nil, apperror.InternalError(fmt.Errorf("transaction %s changed state under row lock", txn.ID))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(err)
	}

	s.scheduler.Cancel(txn.ID)
	txn.Status = domain.TransactionStatusReverted

	s.log.Info().
		Str("transaction_id", txn.ID.String()).
		Int64("amount", txn.Amount).
		Msg("transaction reverted")
	return txn, nil
}

// UpdateAmount corrects the amount of a transaction still inside its
// reversal window, applying only the delta to both wallets. A converted
// transaction scales its credited side by the recorded rate, never a fresh
// one.
func (s *LedgerServiceImpl) UpdateAmount(ctx context.Context, transactionID uuid.UUID, newAmount int64) (*domain.Transaction, error) {
	if newAmount <= 0 {
		return nil, apperror.ErrInvalidAmount()
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	defer dbTx.Rollback(ctx)

	txn, err := s.txRepo.GetByIDForUpdate(ctx, dbTx, transactionID)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	if txn == nil {
		return nil, apperror.ErrTransactionNotFound()
	}
	switch txn.Status {
	case domain.TransactionStatusFinally:
		return nil, apperror.ErrReversalWindowClosed()
	case domain.TransactionStatusReverted:
		return nil, apperror.ErrAlreadyReverted()
	}

	if newAmount == txn.Amount {
		return txn, nil
	}

	newCredited := newAmount
	if txn.Converted() {
		ratio := float64(txn.CreditedAmount) / float64(txn.Amount)
		newCredited = int64(math.Round(float64(newAmount) * ratio))
	}

	receiverWallet, senderWallet, err := s.lockTransactionWallets(ctx, dbTx, txn)
	if err != nil {
		return nil, err
	}

	if senderWallet != nil {
		newSenderBalance := senderWallet.Balance(txn.SenderKind) - (newAmount - txn.Amount)
		if newSenderBalance < 0 {
			return nil, apperror.ErrInsufficientFunds()
		}
		if err := s.walletRepo.UpdateBalance(ctx, dbTx, senderWallet.ID, txn.SenderKind, newSenderBalance); err != nil {
			return nil, apperror.InternalError(err)
		}
		applyBalance(senderWallet, txn.SenderKind, newSenderBalance)
	}

	newReceiverBalance := receiverWallet.Balance(txn.ReceiverKind) + (newCredited - txn.CreditedAmount)
	if newReceiverBalance < 0 {
		return nil, apperror.ErrInsufficientFunds()
	}
	if err := s.walletRepo.UpdateBalance(ctx, dbTx, receiverWallet.ID, txn.ReceiverKind, newReceiverBalance); err != nil {
		return nil, apperror.InternalError(err)
	}
	applyBalance(receiverWallet, txn.ReceiverKind, newReceiverBalance)

	if err := s.txRepo.UpdateAmounts(ctx, dbTx, txn.ID, newAmount, newCredited); err != nil {
		return nil, apperror.InternalError(err)
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(err)
	}

	s.log.Info().
		Str("transaction_id", txn.ID.String()).
		Int64("old_amount", txn.Amount).
		Int64("new_amount", newAmount).
		Msg("transaction amount corrected")

	txn.Amount = newAmount
	txn.CreditedAmount = newCredited
	return txn, nil
}

// resolveReceiver accepts a user id, an email address or a 10-digit account
// number, tried in that order.
func (s *LedgerServiceImpl) resolveReceiver(ctx context.Context, ref string) (*domain.User, error) {
	if id, err := uuid.Parse(ref); err == nil {
		user, err := s.userRepo.GetByID(ctx, id)
		if err != nil {
			return nil, apperror.InternalError(err)
		}
		if user != nil {
			return user, nil
		}
	}

	user, err := s.userRepo.GetByEmail(ctx, ref)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	if user != nil {
		return user, nil
	}

	if number, err := strconv.ParseInt(ref, 10, 64); err == nil && number >= 0 {
		wallet, err := s.walletRepo.GetByAccountNumber(ctx, number)
		if err != nil {
			return nil, apperror.InternalError(err)
		}
		if wallet != nil {
			owner, err := s.userRepo.GetByID(ctx, wallet.UserID)
			if err != nil {
				return nil, apperror.InternalError(err)
			}
			if owner != nil {
				return owner, nil
			}
		}
	}

	return nil, apperror.ErrReceiverNotFound()
}

// rateFor resolves a conversion rate cache-first. Cache failures are logged
// and ignored; the gateway stays authoritative.
func (s *LedgerServiceImpl) rateFor(ctx context.Context, base, target string) (float64, error) {
	rate, hit, err := s.rateCache.Get(ctx, base, target)
	if err != nil {
		s.log.Warn().Err(err).Msg("rate cache read failed")
	} else if hit {
		return rate, nil
	}

	rate, err = s.rates.Rate(ctx, base, target)
	if err != nil {
		return 0, err
	}

	if err := s.rateCache.Set(ctx, base, target, rate, s.fxCfg.RateCacheTTL); err != nil {
		s.log.Warn().Err(err).Msg("rate cache write failed")
	}
	return rate, nil
}

// lockWalletPair locks both users' wallet rows in a stable global order so
// two opposing transfers cannot deadlock. For a self-transfer both returns
// alias the single locked wallet.
func (s *LedgerServiceImpl) lockWalletPair(ctx context.Context, dbTx pgx.Tx, senderID, receiverID uuid.UUID) (*domain.Wallet, *domain.Wallet, error) {
	if senderID == receiverID {
		w, err := s.lockWallet(ctx, dbTx, senderID)
		if err != nil {
			return nil, nil, err
		}
		return w, w, nil
	}

	firstID, secondID := senderID, receiverID
	if bytes.Compare(firstID[:], secondID[:]) > 0 {
		firstID, secondID = secondID, firstID
	}

	first, err := s.lockWallet(ctx, dbTx, firstID)
	if err != nil {
		return nil, nil, err
	}
	second, err := s.lockWallet(ctx, dbTx, secondID)
	if err != nil {
		return nil, nil, err
	}

	if firstID == senderID {
		return first, second, nil
	}
	return second, first, nil
}

// lockTransactionWallets locks the wallets touched by an existing
// transaction. The sender wallet is nil for deposits.
func (s *LedgerServiceImpl) lockTransactionWallets(ctx context.Context, dbTx pgx.Tx, txn *domain.Transaction) (receiver, sender *domain.Wallet, err error) {
	if txn.SenderID == nil {
		receiver, err = s.lockWallet(ctx, dbTx, txn.ReceiverID)
		return receiver, nil, err
	}
	sender, receiver, err = s.lockWalletPair(ctx, dbTx, *txn.SenderID, txn.ReceiverID)
	return receiver, sender, err
}

func (s *LedgerServiceImpl) lockWallet(ctx context.Context, dbTx pgx.Tx, userID uuid.UUID) (*domain.Wallet, error) {
	wallet, err := s.walletRepo.GetByUserIDForUpdate(ctx, dbTx, userID)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	if wallet == nil {
		return nil, apperror.ErrWalletNotFound()
	}
	return wallet, nil
}

// applyBalance keeps the in-memory wallet in step with the row, which
// matters when a self-transfer debits and credits the same wallet.
func applyBalance(w *domain.Wallet, kind domain.AccountKind, balance int64) {
	switch kind {
	case domain.AccountKindMonetary:
		w.MonetaryBalance = balance
	case domain.AccountKindSavings:
		w.SavingsBalance = balance
	case domain.AccountKindForeign:
		w.ForeignBalance = balance
	}
}
