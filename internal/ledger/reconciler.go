package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"solarforge/internal/domain"
	"solarforge/internal/infra"
	"solarforge/internal/metrics"
)

// Outcome is what a leg delivery did to the ledger.
type Outcome struct {
	Donation  domain.Donation
	Result    domain.LegOutcome
	Anomalies []domain.Anomaly
}

// Options configures the reconciler and the service built on it.
type Options struct {
	Logger       infra.Logger
	Now          func() time.Time
	NewID        func() string
	ExpiryWindow time.Duration
}

// Reconciler merges legs into donations. Every decision for a correlation key
// is taken while the store holds that key's slot.
type Reconciler struct {
	slots   domain.SlotStore
	rewards *Converter
	logger  infra.Logger
	now     func() time.Time
	newID   func() string
	window  time.Duration
}

func NewReconciler(slots domain.SlotStore, opts Options) *Reconciler {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Reconciler{
		slots:   slots,
		rewards: NewConverter(opts.NewID),
		logger:  opts.Logger,
		now:     opts.Now,
		newID:   opts.NewID,
		window:  opts.ExpiryWindow,
	}
}

// Reconcile applies a ledgered leg to its slot. Conflicts and anomalies are
// recorded durably and then returned as ErrCorrelationConflict or
// ErrCorrelationAnomaly alongside the outcome.
func (r *Reconciler) Reconcile(ctx context.Context, ev domain.LegEvent) (Outcome, error) {
	var (
		out     Outcome
		verdict error
		reward  domain.Reward
	)
	err := r.slots.WithSlot(ctx, ev.Key(), func(ctx context.Context, tx domain.SlotTx) error {
		out, verdict, reward = Outcome{}, nil, domain.Reward{}
		now := r.now().UTC()

		slot, err := Reserve(ctx, tx, ev)
		switch {
		case errors.Is(err, domain.ErrCorrelationConflict):
			out = Outcome{Donation: *slot.Donation, Result: domain.LegOutcomeConflict}
			verdict = err
			return tx.MarkLegReconciled(ctx, ev.LegType, ev.LegTxID, domain.LegOutcomeConflict, now)
		case err != nil:
			return err
		}

		switch slot.State {
		case SlotDuplicate:
			out = Outcome{Donation: *slot.Donation, Result: domain.LegOutcomeDuplicate}
			// A completed donation whose reward marker is missing is healed here.
			if slot.Donation.Status() == domain.DonationCompleted && slot.Donation.RewardAppliedAt == nil {
				if reward, _, err = r.rewards.Apply(ctx, tx, *slot.Donation, now); err != nil {
					return err
				}
			}
			if ev.ReconciledAt == nil {
				outcome := domain.LegOutcomeCreated
				if slot.Donation.Status() == domain.DonationCompleted {
					outcome = domain.LegOutcomeCompleted
				}
				return tx.MarkLegReconciled(ctx, ev.LegType, ev.LegTxID, outcome, now)
			}
			return nil

		case SlotSettled:
			a := r.anomaly(domain.AnomalyCompletedSlotMismatch, ev, slot.Donation.ID, fmt.Sprintf(
				"slot %s completed with initiate %q / processor %q; %s leg %q rejected",
				ev.Key(), slot.Donation.InitiateTxID, slot.Donation.HyperpayTxID, ev.LegType, ev.LegTxID), now)
			if err := r.recordAnomaly(ctx, tx, a); err != nil {
				return err
			}
			out = Outcome{Donation: *slot.Donation, Result: domain.LegOutcomeAnomaly, Anomalies: []domain.Anomaly{a}}
			verdict = fmt.Errorf("%w: %s", domain.ErrCorrelationAnomaly, a.Detail)
			return tx.MarkLegReconciled(ctx, ev.LegType, ev.LegTxID, domain.LegOutcomeAnomaly, now)

		case SlotFresh:
			d := domain.Donation{
				ID:        r.newID(),
				UserID:    ev.UserID,
				GalaxyID:  ev.GalaxyID,
				Counter:   ev.Counter,
				IssueID:   ev.IssueID,
				CreatedAt: ev.ReceivedAt.UTC(),
			}
			if ev.LegType == domain.LegInitiate {
				d.InitiateTxID = ev.LegTxID
			} else {
				d.HyperpayTxID = ev.LegTxID
			}
			if err := tx.InsertDonation(ctx, d); err != nil {
				return err
			}
			out = Outcome{Donation: d, Result: domain.LegOutcomeCreated}
			return tx.MarkLegReconciled(ctx, ev.LegType, ev.LegTxID, domain.LegOutcomeCreated, now)

		case SlotComplement:
			completed, anomalies, applied, err := r.complete(ctx, tx, *slot.Donation, ev, now)
			if err != nil {
				return err
			}
			reward = applied
			out = Outcome{Donation: completed, Result: domain.LegOutcomeCompleted, Anomalies: anomalies}
			return tx.MarkLegReconciled(ctx, ev.LegType, ev.LegTxID, domain.LegOutcomeCompleted, now)
		}
		return fmt.Errorf("reconcile: unhandled slot state %s", slot.State)
	})
	if err != nil {
		return Outcome{}, err
	}

	metrics.ReconcileOutcomes.WithLabelValues(string(ev.LegType), string(out.Result)).Inc()
	if reward.DonationID != "" {
		metrics.SunshinesApplied.Add(reward.Delta.Sunshines)
	}
	for _, a := range out.Anomalies {
		metrics.Anomalies.WithLabelValues(string(a.Kind)).Inc()
		r.logAnomaly(a)
	}
	if errors.Is(verdict, domain.ErrCorrelationConflict) {
		r.logger.Warn().
			Err(verdict).
			Str("user_id", ev.UserID).
			Str("galaxy_id", ev.GalaxyID).
			Int64("counter", ev.Counter).
			Str("leg_type", string(ev.LegType)).
			Str("leg_tx_id", ev.LegTxID).
			Str("donation_id", out.Donation.ID).
			Msg("ledger: correlation conflict")
	}
	return out, verdict
}

// complete merges the live donation with the arriving leg and applies the
// reward in the same slot transaction.
func (r *Reconciler) complete(ctx context.Context, tx domain.SlotTx, live domain.Donation, ev domain.LegEvent, now time.Time) (domain.Donation, []domain.Anomaly, domain.Reward, error) {
	otherType := ev.LegType.Complement()
	other, err := tx.Leg(ctx, otherType, live.TxID(otherType))
	if err != nil {
		return domain.Donation{}, nil, domain.Reward{}, err
	}
	if other == nil {
		return domain.Donation{}, nil, domain.Reward{}, fmt.Errorf("complete donation %s: %s leg %q missing from ledger", live.ID, otherType, live.TxID(otherType))
	}

	initiate, processor := ev, *other
	if ev.LegType == domain.LegProcessor {
		initiate, processor = *other, ev
	}
	completion, drafts := mergeLegs(initiate, processor)
	completion.DonationID = live.ID
	completion.CompletedAt = now

	ok, err := tx.CompleteDonation(ctx, completion)
	if err != nil {
		return domain.Donation{}, nil, domain.Reward{}, err
	}
	if !ok {
		return domain.Donation{}, nil, domain.Reward{}, fmt.Errorf("%w: donation %s changed while slot %s was held", domain.ErrStorageUnavailable, live.ID, ev.Key())
	}
	completed := completion.Apply(live)

	reward, _, err := r.rewards.Apply(ctx, tx, completed, now)
	if err != nil {
		return domain.Donation{}, nil, domain.Reward{}, err
	}
	applied := now
	completed.RewardAppliedAt = &applied

	var anomalies []domain.Anomaly
	for _, draft := range drafts {
		a := r.anomaly(draft.kind, ev, live.ID, draft.detail, now)
		if err := r.recordAnomaly(ctx, tx, a); err != nil {
			return domain.Donation{}, nil, domain.Reward{}, err
		}
		anomalies = append(anomalies, a)
	}
	return completed, anomalies, reward, nil
}

// RecordPayloadMismatch stores the anomaly for a leg redelivered with a
// different payload. The stored leg and its slot are left untouched.
func (r *Reconciler) RecordPayloadMismatch(ctx context.Context, mismatch *PayloadMismatchError) (Outcome, error) {
	stored, got := mismatch.Stored, mismatch.Redelivered
	var out Outcome
	err := r.slots.WithSlot(ctx, stored.Key(), func(ctx context.Context, tx domain.SlotTx) error {
		now := r.now().UTC()
		var donationID string
		attached, err := tx.DonationByLeg(ctx, stored.LegType, stored.LegTxID)
		if err != nil {
			return err
		}
		if attached != nil {
			donationID = attached.ID
			out.Donation = *attached
		}
		a := r.anomaly(domain.AnomalyLegPayloadMismatch, stored, donationID, fmt.Sprintf(
			"redelivery targets slot %s with spend %s sunshines %g issue %q; stored slot %s spend %s sunshines %g issue %q",
			got.Key(), got.SpendUSD, got.Sunshines, got.IssueID,
			stored.Key(), stored.SpendUSD, stored.Sunshines, stored.IssueID), now)
		out.Result = domain.LegOutcomeAnomaly
		out.Anomalies = []domain.Anomaly{a}
		return r.recordAnomaly(ctx, tx, a)
	})
	if err != nil {
		return Outcome{}, err
	}
	for _, a := range out.Anomalies {
		metrics.Anomalies.WithLabelValues(string(a.Kind)).Inc()
		r.logAnomaly(a)
	}
	return out, mismatch
}

// Expire moves a pending donation to expired once it has outlived the
// window. The decision is re-taken under the slot, so a leg that completed
// the donation first wins. It reports whether the donation was expired.
func (r *Reconciler) Expire(ctx context.Context, d domain.Donation) (bool, error) {
	var expired bool
	err := r.slots.WithSlot(ctx, d.Key(), func(ctx context.Context, tx domain.SlotTx) error {
		expired = false
		now := r.now().UTC()
		live, err := tx.LiveDonation(ctx)
		if err != nil {
			return err
		}
		if live == nil || live.ID != d.ID {
			return nil
		}
		if now.Sub(live.CreatedAt) < r.window {
			return nil
		}
		ok, err := tx.ExpireDonation(ctx, live.ID, now)
		if err != nil || !ok {
			return err
		}
		ev, err := newOutboxEvent(r.newID(), domain.EventDonationExpired, domain.AggregateGalaxy, live.GalaxyID, domain.DonationExpiredPayload{
			DonationID: live.ID,
			UserID:     live.UserID,
			GalaxyID:   live.GalaxyID,
			Counter:    live.Counter,
		}, now)
		if err != nil {
			return err
		}
		if err := tx.EnqueueEvent(ctx, ev); err != nil {
			return err
		}
		expired = true
		return nil
	})
	if err != nil {
		return false, err
	}
	if expired {
		metrics.DonationsExpired.Inc()
		r.logger.Info().
			Str("donation_id", d.ID).
			Str("user_id", d.UserID).
			Str("galaxy_id", d.GalaxyID).
			Int64("counter", d.Counter).
			Msg("ledger: pending donation expired")
	}
	return expired, nil
}

// Replay re-runs reconciliation for a leg that was ledgered but never acted
// on. Conflicts and anomalies were recorded by Reconcile and are not errors
// for the caller.
func (r *Reconciler) Replay(ctx context.Context, ev domain.LegEvent) (Outcome, error) {
	out, err := r.Reconcile(ctx, ev)
	if errors.Is(err, domain.ErrCorrelationConflict) || errors.Is(err, domain.ErrCorrelationAnomaly) {
		return out, nil
	}
	return out, err
}

func (r *Reconciler) anomaly(kind domain.AnomalyKind, ev domain.LegEvent, donationID, detail string, at time.Time) domain.Anomaly {
	return domain.Anomaly{
		ID:         r.newID(),
		Kind:       kind,
		UserID:     ev.UserID,
		GalaxyID:   ev.GalaxyID,
		Counter:    ev.Counter,
		LegType:    ev.LegType,
		LegTxID:    ev.LegTxID,
		DonationID: donationID,
		Detail:     detail,
		DetectedAt: at,
	}
}

func (r *Reconciler) recordAnomaly(ctx context.Context, tx domain.SlotTx, a domain.Anomaly) error {
	if err := tx.RecordAnomaly(ctx, a); err != nil {
		return err
	}
	ev, err := anomalyEvent(r.newID(), a)
	if err != nil {
		return err
	}
	return tx.EnqueueEvent(ctx, ev)
}

func (r *Reconciler) logAnomaly(a domain.Anomaly) {
	r.logger.Error().
		Str("anomaly_id", a.ID).
		Str("kind", string(a.Kind)).
		Str("user_id", a.UserID).
		Str("galaxy_id", a.GalaxyID).
		Int64("counter", a.Counter).
		Str("leg_type", string(a.LegType)).
		Str("leg_tx_id", a.LegTxID).
		Str("donation_id", a.DonationID).
		Str("detail", a.Detail).
		Msg("ledger: correlation anomaly")
}

