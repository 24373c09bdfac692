package service

import (
	"context"
	"testing"
	"time"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports/mocks"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestFinalizer_FiresAfterDelay(t *testing.T) {
	ctrl := gomock.NewController(t)
	txRepo := mocks.NewMockTransactionRepository(ctrl)
	f := NewFinalizer(txRepo, zerolog.Nop())
	defer f.Stop()

	id := uuid.New()
	fired := make(chan struct{})
	txRepo.EXPECT().FinalizeIfSuccess(gomock.Any(), id).
		DoAndReturn(func(context.Context, uuid.UUID) (bool, error) {
			close(fired)
			return true, nil
		})

	f.Schedule(id, 10*time.Millisecond)

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("timer never fired")
	}
}

func TestFinalizer_CancelStopsTimer(t *testing.T) {
	ctrl := gomock.NewController(t)
	txRepo := mocks.NewMockTransactionRepository(ctrl)
	f := NewFinalizer(txRepo, zerolog.Nop())
	defer f.Stop()

	id := uuid.New()
	f.Schedule(id, time.Hour)

	assert.True(t, f.Cancel(id))
	assert.False(t, f.Cancel(id), "second cancel finds no timer")
}

func TestFinalizer_ScheduleIsIdempotent(t *testing.T) {
	ctrl := gomock.NewController(t)
	txRepo := mocks.NewMockTransactionRepository(ctrl)
	f := NewFinalizer(txRepo, zerolog.Nop())
	defer f.Stop()

	id := uuid.New()
	f.Schedule(id, time.Hour)
	f.Schedule(id, time.Nanosecond) // ignored, the id is already tracked

	time.Sleep(20 * time.Millisecond)
	assert.True(t, f.Cancel(id))
}

func TestFinalizer_Rehydrate(t *testing.T) {
	ctrl := gomock.NewController(t)
	txRepo := mocks.NewMockTransactionRepository(ctrl)
	f := NewFinalizer(txRepo, zerolog.Nop())
	defer f.Stop()

	expired := domain.Transaction{
		ID:        uuid.New(),
		Status:    domain.TransactionStatusSuccess,
		CreatedAt: time.Now().Add(-10 * time.Minute),
	}
	fresh := domain.Transaction{
		ID:        uuid.New(),
		Status:    domain.TransactionStatusSuccess,
		CreatedAt: time.Now(),
	}

	txRepo.EXPECT().ListPending(gomock.Any(), time.Time{}, 500).
		Return([]domain.Transaction{expired, fresh}, nil)
	// the lapsed one is finalized on the spot, the fresh one gets a timer
	txRepo.EXPECT().FinalizeIfSuccess(gomock.Any(), expired.ID).Return(true, nil)

	err := f.Rehydrate(context.Background(), 2*time.Minute, 500)
	require.NoError(t, err)

	assert.False(t, f.Cancel(expired.ID))
	assert.True(t, f.Cancel(fresh.ID))
}

func TestFinalizer_RehydrateDrainsBacklog(t *testing.T) {
	ctrl := gomock.NewController(t)
	txRepo := mocks.NewMockTransactionRepository(ctrl)
	f := NewFinalizer(txRepo, zerolog.Nop())
	defer f.Stop()

	base := time.Now()
	var backlog []domain.Transaction
	for i := 0; i < 3; i++ {
		backlog = append(backlog, domain.Transaction{
			ID:        uuid.New(),
			Status:    domain.TransactionStatusSuccess,
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		})
	}

	// a full first page advances the cursor past its last row; the short
	// second page ends the scan
	gomock.InOrder(
		txRepo.EXPECT().ListPending(gomock.Any(), time.Time{}, 2).
			Return(backlog[:2], nil),
		txRepo.EXPECT().ListPending(gomock.Any(), backlog[1].CreatedAt, 2).
			Return(backlog[2:], nil),
	)

	err := f.Rehydrate(context.Background(), time.Hour, 2)
	require.NoError(t, err)

	for _, txn := range backlog {
		assert.True(t, f.Cancel(txn.ID), "every pending transaction gets a timer")
	}
}

func TestFinalizer_FireSkipsTerminalTransaction(t *testing.T) {
	ctrl := gomock.NewController(t)
	txRepo := mocks.NewMockTransactionRepository(ctrl)
	f := NewFinalizer(txRepo, zerolog.Nop())
	defer f.Stop()

	id := uuid.New()
	done := make(chan struct{})
	txRepo.EXPECT().FinalizeIfSuccess(gomock.Any(), id).
		DoAndReturn(func(context.Context, uuid.UUID) (bool, error) {
			close(done)
			return false, nil // already reverted elsewhere
		})

	f.Schedule(id, time.Millisecond)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timer never fired")
	}
}
