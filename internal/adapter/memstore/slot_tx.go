package memstore

import (
	"context"
	"fmt"
	"time"

	"solarforge/internal/domain"
)

type legMark struct {
	outcome domain.LegOutcome
	at      time.Time
}

type balanceDelta struct {
	balance domain.Balance
}

type forgeUpsert struct {
	issueID   string
	userID    string
	sunshines float64
	at        time.Time
}

// slotTx reads committed state overlaid with its own staged writes.
type slotTx struct {
	store *Store
	key   domain.SlotKey

	donations    map[string]domain.Donation
	legMarks     map[legKey]legMark
	userDeltas   map[string]balanceDelta
	galaxyDeltas map[string]balanceDelta
	forgeUps     []forgeUpsert
	anomalies    []domain.Anomaly
	events       []domain.OutboxEvent
}

func newSlotTx(s *Store, key domain.SlotKey) *slotTx {
	return &slotTx{
		store:        s,
		key:          key,
		donations:    make(map[string]domain.Donation),
		legMarks:     make(map[legKey]legMark),
		userDeltas:   make(map[string]balanceDelta),
		galaxyDeltas: make(map[string]balanceDelta),
	}
}

// visible resolves a committed donation id through the staged overlay. The
// caller holds t.store.mu for reading.
func (t *slotTx) visible(id string) (domain.Donation, bool) {
	if d, ok := t.donations[id]; ok {
		return d, true
	}
	d, ok := t.store.donations[id]
	return d, ok
}

// slotRows returns the slot's donations as the transaction sees them.
func (t *slotTx) slotRows() []domain.Donation {
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	ids := t.store.slotDonations[t.key]
	out := make([]domain.Donation, 0, len(ids)+len(t.donations))
	for _, id := range ids {
		if d, ok := t.visible(id); ok {
			out = append(out, d)
		}
	}
	for id, d := range t.donations {
		if _, committed := t.store.donations[id]; !committed && d.Key() == t.key {
			out = append(out, d)
		}
	}
	return out
}

func (t *slotTx) LiveDonation(context.Context) (*domain.Donation, error) {
	d, ok := t.live()
	if !ok {
		return nil, nil
	}
	return &d, nil
}

func (t *slotTx) live() (domain.Donation, bool) {
	for _, d := range t.donations {
		if d.Key() == t.key && !d.Status().Terminal() {
			return d, true
		}
	}
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	id, ok := t.store.liveBySlot[t.key]
	if !ok {
		return domain.Donation{}, false
	}
	d, _ := t.visible(id)
	if d.Status().Terminal() {
		return domain.Donation{}, false
	}
	return d, true
}

func (t *slotTx) LatestCompleted(context.Context) (*domain.Donation, error) {
	var latest *domain.Donation
	for _, d := range t.slotRows() {
		if d.Status() != domain.DonationCompleted {
			continue
		}
		d := d
		if latest == nil || (d.CompletedAt != nil && latest.CompletedAt != nil && d.CompletedAt.After(*latest.CompletedAt)) {
			latest = &d
		}
	}
	return latest, nil
}

func (t *slotTx) DonationByLeg(_ context.Context, leg domain.LegType, txID string) (*domain.Donation, error) {
	for _, d := range t.donations {
		if d.TxID(leg) == txID {
			return &d, nil
		}
	}
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	id, ok := t.store.donationByLeg[legKey{leg: leg, txID: txID}]
	if !ok {
		return nil, nil
	}
	d, ok := t.visible(id)
	if !ok {
		return nil, nil
	}
	return &d, nil
}

func (t *slotTx) Leg(_ context.Context, leg domain.LegType, txID string) (*domain.LegEvent, error) {
	ev, ok := t.store.Leg(leg, txID)
	if !ok {
		return nil, nil
	}
	return &ev, nil
}

func (t *slotTx) InsertDonation(_ context.Context, d domain.Donation) error {
	if d.Key() != t.key {
		return fmt.Errorf("insert donation outside slot %s", t.key)
	}
	if _, held := t.live(); held {
		return fmt.Errorf("%w: live donation already holds slot %s", domain.ErrStorageUnavailable, t.key)
	}
	t.donations[d.ID] = d
	return nil
}

func (t *slotTx) current(id string) (domain.Donation, bool) {
	if d, ok := t.donations[id]; ok {
		return d, true
	}
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	d, ok := t.store.donations[id]
	return d, ok
}

func (t *slotTx) CompleteDonation(_ context.Context, c domain.Completion) (bool, error) {
	d, ok := t.current(c.DonationID)
	if !ok || d.Status().Terminal() {
		return false, nil
	}
	t.donations[d.ID] = c.Apply(d)
	return true, nil
}

func (t *slotTx) ExpireDonation(_ context.Context, donationID string, at time.Time) (bool, error) {
	d, ok := t.current(donationID)
	if !ok || d.Status().Terminal() {
		return false, nil
	}
	expired := at
	d.ExpiredAt = &expired
	t.donations[d.ID] = d
	return true, nil
}

func (t *slotTx) MarkRewardApplied(_ context.Context, donationID string, at time.Time) (bool, error) {
	d, ok := t.current(donationID)
	if !ok || d.Status() != domain.DonationCompleted || d.RewardAppliedAt != nil {
		return false, nil
	}
	applied := at
	d.RewardAppliedAt = &applied
	t.donations[d.ID] = d
	return true, nil
}

func (t *slotTx) AddBalance(_ context.Context, owner domain.BalanceOwner, ownerID string, delta domain.Balance, _ time.Time) error {
	target := t.userDeltas
	if owner == domain.BalanceOwnerGalaxy {
		target = t.galaxyDeltas
	}
	cur := target[ownerID]
	cur.balance = cur.balance.Add(delta)
	target[ownerID] = cur
	return nil
}

func (t *slotTx) UpsertSolarForge(_ context.Context, issueID, userID string, sunshines float64, at time.Time) error {
	t.forgeUps = append(t.forgeUps, forgeUpsert{issueID: issueID, userID: userID, sunshines: sunshines, at: at})
	return nil
}

func (t *slotTx) MarkLegReconciled(_ context.Context, leg domain.LegType, txID string, outcome domain.LegOutcome, at time.Time) error {
	t.legMarks[legKey{leg: leg, txID: txID}] = legMark{outcome: outcome, at: at}
	return nil
}

func (t *slotTx) RecordAnomaly(_ context.Context, a domain.Anomaly) error {
	t.anomalies = append(t.anomalies, a)
	return nil
}

func (t *slotTx) EnqueueEvent(_ context.Context, e domain.OutboxEvent) error {
	t.events = append(t.events, e)
	return nil
}
