package ledger

import (
	"context"
	"errors"
	"time"

	"solarforge/internal/domain"
	"solarforge/internal/infra"
)

// Service is the inbound side of the ledger: leg confirmations enter here.
// Both notify calls are idempotent and may be retried freely.
type Service struct {
	ledger     *Ledger
	reconciler *Reconciler
	logger     infra.Logger
	now        func() time.Time
}

func NewService(store domain.Store, opts Options) *Service {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		ledger:     NewLedger(store),
		reconciler: NewReconciler(store, opts),
		logger:     opts.Logger,
		now:        opts.Now,
	}
}

// Reconciler exposes the reconciler for the background sweepers.
func (s *Service) Reconciler() *Reconciler {
	return s.reconciler
}

// NotifyInitiateLeg records the initiation leg and reconciles its slot.
func (s *Service) NotifyInitiateLeg(ctx context.Context, leg domain.InitiateLeg) (Outcome, error) {
	if err := leg.Validate(); err != nil {
		return Outcome{}, err
	}
	return s.notify(ctx, leg.Event(s.now().UTC()))
}

// NotifyProcessorLeg records the payment processor leg and reconciles its slot.
func (s *Service) NotifyProcessorLeg(ctx context.Context, leg domain.ProcessorLeg) (Outcome, error) {
	if err := leg.Validate(); err != nil {
		return Outcome{}, err
	}
	return s.notify(ctx, leg.Event(s.now().UTC()))
}

func (s *Service) notify(ctx context.Context, ev domain.LegEvent) (Outcome, error) {
	stored, _, err := s.ledger.Append(ctx, ev)
	var mismatch *PayloadMismatchError
	if errors.As(err, &mismatch) {
		return s.reconciler.RecordPayloadMismatch(ctx, mismatch)
	}
	if err != nil {
		s.logger.Warn().
			Err(err).
			Str("leg_type", string(ev.LegType)).
			Str("leg_tx_id", ev.LegTxID).
			Msg("ledger: leg append failed")
		return Outcome{}, err
	}
	// Redeliveries are reconciled too: the first delivery may have been
	// ledgered without the merge committing.
	return s.reconciler.Reconcile(ctx, stored)
}
