package service

import (
	"context"
	"sync"
	"time"

	"wallet-ledger/internal/core/ports"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const finalizeTimeout = 10 * time.Second

var _ ports.FinalizationScheduler = (*Finalizer)(nil)

// Finalizer arms one in-process timer per pending transaction and flips it
// SUCCESS -> FINALLY when the reversal window elapses. The timer map is
// bookkeeping only: the conditional status update in the repository is what
// actually decides a race between a firing timer and a concurrent reversal.
type Finalizer struct {
	txRepo ports.TransactionRepository
	log    zerolog.Logger

	mu     sync.Mutex
	timers map[uuid.UUID]*time.Timer
}

// NewFinalizer creates a Finalizer.
func NewFinalizer(txRepo ports.TransactionRepository, log zerolog.Logger) *Finalizer {
	return &Finalizer{
		txRepo: txRepo,
		log:    log.With().Str("component", "finalizer").Logger(),
		timers: make(map[uuid.UUID]*time.Timer),
	}
}

// Schedule arms a finalization timer for the transaction. Scheduling an
// already-tracked id is a no-op.
func (f *Finalizer) Schedule(id uuid.UUID, after time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.timers[id]; ok {
		return
	}
	f.timers[id] = time.AfterFunc(after, func() { f.fire(id) })
}

// Cancel disarms the timer for the transaction, reporting whether a timer
// was stopped before firing. A false return is not an error: the conditional
// write at fire time keeps an already-fired timer from clobbering a reversal.
func (f *Finalizer) Cancel(id uuid.UUID) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	timer, ok := f.timers[id]
	if !ok {
		return false
	}
	delete(f.timers, id)
	return timer.Stop()
}

func (f *Finalizer) fire(id uuid.UUID) {
	f.mu.Lock()
	delete(f.timers, id)
	f.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), finalizeTimeout)
	defer cancel()

	finalized, err := f.txRepo.FinalizeIfSuccess(ctx, id)
	if err != nil {
		f.log.Error().Err(err).Str("transaction_id", id.String()).Msg("finalization failed")
		return
	}
	if !finalized {
		f.log.Debug().Str("transaction_id", id.String()).Msg("transaction already terminal, timer skipped")
		return
	}
	f.log.Info().Str("transaction_id", id.String()).Msg("transaction finalized")
}

// Rehydrate re-arms timers for transactions still in SUCCESS after a
// restart, paging on created_at until the backlog is drained. Transactions
// whose window already elapsed are finalized immediately; the rest get a
// timer for the remaining delay.
func (f *Finalizer) Rehydrate(ctx context.Context, window time.Duration, batchSize int) error {
	if batchSize <= 0 {
		batchSize = 500
	}

	now := time.Now()
	pending, rearmed, expired := 0, 0, 0
	var cursor time.Time
	for {
		batch, err := f.txRepo.ListPending(ctx, cursor, batchSize)
		if err != nil {
			return err
		}
		pending += len(batch)

		for _, t := range batch {
			remaining := window - now.Sub(t.CreatedAt)
			if remaining <= 0 {
				if _, err := f.txRepo.FinalizeIfSuccess(ctx, t.ID); err != nil {
					f.log.Error().Err(err).Str("transaction_id", t.ID.String()).Msg("rehydrate finalization failed")
					continue
				}
				expired++
				continue
			}
			f.Schedule(t.ID, remaining)
			rearmed++
		}

		if len(batch) < batchSize {
			break
		}
		cursor = batch[len(batch)-1].CreatedAt
	}

	f.log.Info().
		Int("pending", pending).
		Int("rearmed", rearmed).
		Int("finalized_on_boot", expired).
		Msg("finalizer rehydrated")
	return nil
}

// Stop disarms every tracked timer. Transactions left in SUCCESS are picked
// up by Rehydrate on the next boot.
func (f *Finalizer) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, timer := range f.timers {
		timer.Stop()
		delete(f.timers, id)
	}
}
