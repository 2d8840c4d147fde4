package worker

import (
	"context"
	"fmt"
	"time"

	"solarforge/internal/domain"
	"solarforge/internal/infra"
	"solarforge/internal/ledger"
)

// LegReplayer reconciles legs that were ledgered but never acted on, e.g.
// after a crash between the append and the merge.
type LegReplayer struct {
	store      domain.LegStore
	reconciler *ledger.Reconciler
	logger     infra.Logger
	grace      time.Duration
	batchSize  int
	interval   time.Duration
	now        func() time.Time
}

func NewLegReplayer(store domain.LegStore, reconciler *ledger.Reconciler, logger infra.Logger, grace time.Duration, batchSize int, interval time.Duration) *LegReplayer {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &LegReplayer{
		store:      store,
		reconciler: reconciler,
		logger:     logger,
		grace:      grace,
		batchSize:  batchSize,
		interval:   interval,
		now:        time.Now,
	}
}

func (r *LegReplayer) Run(ctx context.Context) error {
	return every(ctx, r.logger, "leg-replay", r.interval, r.RunOnce)
}

// RunOnce replays legs older than the grace period. Younger legs are likely
// still being reconciled by the request that ledgered them.
func (r *LegReplayer) RunOnce(ctx context.Context) (int, error) {
	legs, err := r.store.UnreconciledLegs(ctx, r.now().UTC().Add(-r.grace), r.batchSize)
	if err != nil {
		return 0, fmt.Errorf("list unreconciled legs: %w", err)
	}
	replayed := 0
	for _, ev := range legs {
		out, err := r.reconciler.Replay(ctx, ev)
		if err != nil {
			r.logger.Warn().Err(err).Str("leg_type", string(ev.LegType)).Str("leg_tx_id", ev.LegTxID).Msg("worker: leg replay failed")
			continue
		}
		r.logger.Info().
			Str("leg_type", string(ev.LegType)).
			Str("leg_tx_id", ev.LegTxID).
			Str("result", string(out.Result)).
			Msg("worker: leg replayed")
		replayed++
	}
	return replayed, nil
}
