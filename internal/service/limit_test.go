package service

import (
	"context"
	"testing"
	"time"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports/mocks"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func sentToday(amounts ...int64) []domain.Transaction {
	txns := make([]domain.Transaction, 0, len(amounts))
	for _, a := range amounts {
		txns = append(txns, domain.Transaction{
			ID:     uuid.New(),
			Amount: a,
			Type:   domain.TransactionTypeTransfer,
		})
	}
	return txns
}

func TestDailyLimit_Check(t *testing.T) {
	tests := []struct {
		name    string
		sent    []domain.Transaction
		amount  int64
		wantErr bool
	}{
		{"no history under limit", nil, 9999, false},
		{"no history at limit", nil, 10000, false},
		{"no history over limit", nil, 10001, true},
		{"history pushes over", sentToday(9500), 600, true},
		{"history leaves room", sentToday(9500), 400, false},
		{"history exactly fills", sentToday(4000, 5000), 1000, false},
		{"many small over", sentToday(3000, 3000, 3000), 1500, true},
	}

	senderID := uuid.MustParse(senderIDStr)
	now := time.Date(2026, 3, 14, 15, 30, 0, 0, time.UTC)
	dayStart := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	dayEnd := dayStart.AddDate(0, 0, 1)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			txRepo := mocks.NewMockTransactionRepository(ctrl)
			tx := &fakeTx{}

			txRepo.EXPECT().SentBetween(gomock.Any(), tx, senderID, dayStart, dayEnd).
				Return(tt.sent, nil)

			checker := NewDailyLimitChecker(txRepo, 10000)
			err := checker.Check(context.Background(), tx, senderID, tt.amount, now)

			if tt.wantErr {
				requireAppErrorCode(t, err, "TXN_005")
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestDailyLimit_BoundsFollowLocalDay(t *testing.T) {
	ctrl := gomock.NewController(t)
	txRepo := mocks.NewMockTransactionRepository(ctrl)
	tx := &fakeTx{}

	loc := time.FixedZone("UTC-6", -6*3600)
	now := time.Date(2026, 3, 14, 23, 50, 0, 0, loc)

	txRepo.EXPECT().SentBetween(gomock.Any(), tx, gomock.Any(),
		time.Date(2026, 3, 14, 0, 0, 0, 0, loc),
		time.Date(2026, 3, 15, 0, 0, 0, 0, loc)).
		Return(nil, nil)

	checker := NewDailyLimitChecker(txRepo, 10000)
	err := checker.Check(context.Background(), tx, uuid.MustParse(senderIDStr), 100, now)
	require.NoError(t, err)
}
