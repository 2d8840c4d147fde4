// Package worker hosts the background loops of the ledger: pending
// donation expiry and replay of legs whose reconciliation never committed.
package worker

import (
	"context"
	"errors"
	"time"

	"solarforge/internal/infra"
)

// every runs fn on each tick until ctx is cancelled. Failures are logged and
// retried on the next tick.
func every(ctx context.Context, logger infra.Logger, name string, interval time.Duration, fn func(context.Context) (int, error)) error {
	logger.Info().Str("loop", name).Dur("interval", interval).Msg("worker: loop started")
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			logger.Info().Str("loop", name).Msg("worker: loop stopped")
			return ctx.Err()
		case <-ticker.C:
			n, err := fn(ctx)
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error().Err(err).Str("loop", name).Msg("worker: pass failed")
				continue
			}
			if n > 0 {
				logger.Debug().Str("loop", name).Int("handled", n).Msg("worker: pass done")
			}
		}
	}
}
