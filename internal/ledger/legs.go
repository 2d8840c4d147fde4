package ledger

import (
	"context"
	"fmt"

	"solarforge/internal/domain"
	"solarforge/internal/metrics"
)

// AppendResult reports whether the ledger took a new fact or saw a redelivery.
type AppendResult string

const (
	Appended  AppendResult = "appended"
	Duplicate AppendResult = "duplicate"
)

// PayloadMismatchError is returned when a leg tx id is redelivered with a
// payload different from the recorded one.
type PayloadMismatchError struct {
	Stored      domain.LegEvent
	Redelivered domain.LegEvent
}

func (e *PayloadMismatchError) Error() string {
	return fmt.Sprintf("leg %s %q redelivered with a different payload (stored slot %s, got %s)",
		e.Stored.LegType, e.Stored.LegTxID, e.Stored.Key(), e.Redelivered.Key())
}

func (e *PayloadMismatchError) Unwrap() error { return domain.ErrCorrelationAnomaly }

// Ledger is the append-only record of leg confirmations. An append commits on
// its own, before any reconciliation is attempted.
type Ledger struct {
	store domain.LegStore
}

func NewLedger(store domain.LegStore) *Ledger {
	return &Ledger{store: store}
}

// Append records ev. A redelivery returns the stored event with Duplicate,
// or a *PayloadMismatchError when the payloads disagree.
func (l *Ledger) Append(ctx context.Context, ev domain.LegEvent) (domain.LegEvent, AppendResult, error) {
	stored, appended, err := l.store.AppendLeg(ctx, ev)
	if err != nil {
		return domain.LegEvent{}, "", fmt.Errorf("append %s leg: %w", ev.LegType, err)
	}
	if appended {
		metrics.LegsReceived.WithLabelValues(string(ev.LegType), string(Appended)).Inc()
		return stored, Appended, nil
	}
	metrics.LegsReceived.WithLabelValues(string(ev.LegType), string(Duplicate)).Inc()
	if !stored.SamePayload(ev) {
		return stored, Duplicate, &PayloadMismatchError{Stored: stored, Redelivered: ev}
	}
	return stored, Duplicate, nil
}
