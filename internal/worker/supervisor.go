package worker

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"solarforge/internal/domain"
	"solarforge/internal/infra"
	"solarforge/internal/ledger"
	"solarforge/internal/outbox"
)

// Runner is a background loop that blocks until ctx is cancelled.
type Runner interface {
	Run(ctx context.Context) error
}

// Loops builds the expiry sweeper, the leg replayer and the outbox relay
// from configuration.
func Loops(store domain.Store, reconciler *ledger.Reconciler, publisher outbox.Publisher, cfg *infra.Config, logger infra.Logger) []Runner {
	return []Runner{
		NewExpirySweeper(store, reconciler, logger, cfg.DonationExpiryWindow, cfg.ExpiryBatchSize, cfg.ExpirySweepInterval),
		NewLegReplayer(store, reconciler, logger, cfg.LegReplayGrace, cfg.ExpiryBatchSize, cfg.LegReplayInterval),
		outbox.NewRelay(store, publisher, logger, outbox.RelayOptions{
			BatchSize:    cfg.OutboxBatchSize,
			PollInterval: cfg.OutboxPollInterval,
			Lease:        cfg.OutboxLease,
			MaxAttempts:  cfg.OutboxMaxAttempts,
		}),
	}
}

// RunAll runs every loop until ctx is cancelled or one of them fails.
// Cancellation is a clean stop.
func RunAll(ctx context.Context, runners ...Runner) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, r := range runners {
		r := r
		g.Go(func() error {
			if err := r.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}
	return g.Wait()
}
