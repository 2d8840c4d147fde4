package worker

import (
	"context"
	"fmt"
	"time"

	"solarforge/internal/domain"
	"solarforge/internal/infra"
	"solarforge/internal/ledger"
)

// ExpirySweeper expires pending donations older than the retention window.
type ExpirySweeper struct {
	store      domain.ExpiryStore
	reconciler *ledger.Reconciler
	logger     infra.Logger
	window     time.Duration
	batchSize  int
	interval   time.Duration
	now        func() time.Time
}

func NewExpirySweeper(store domain.ExpiryStore, reconciler *ledger.Reconciler, logger infra.Logger, window time.Duration, batchSize int, interval time.Duration) *ExpirySweeper {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &ExpirySweeper{
		store:      store,
		reconciler: reconciler,
		logger:     logger,
		window:     window,
		batchSize:  batchSize,
		interval:   interval,
		now:        time.Now,
	}
}

func (s *ExpirySweeper) Run(ctx context.Context) error {
	return every(ctx, s.logger, "expiry", s.interval, s.RunOnce)
}

// RunOnce expires one batch of candidates and reports how many expired.
// Candidates completed in the meantime are skipped by the reconciler.
func (s *ExpirySweeper) RunOnce(ctx context.Context) (int, error) {
	cutoff := s.now().UTC().Add(-s.window)
	candidates, err := s.store.PendingDonationsBefore(ctx, cutoff, s.batchSize)
	if err != nil {
		return 0, fmt.Errorf("list expiry candidates: %w", err)
	}
	expired := 0
	for _, d := range candidates {
		ok, err := s.reconciler.Expire(ctx, d)
		if err != nil {
			s.logger.Warn().Err(err).Str("donation_id", d.ID).Msg("worker: expire donation failed")
			continue
		}
		if ok {
			expired++
		}
	}
	return expired, nil
}
