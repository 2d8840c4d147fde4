package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"solarforge/internal/domain"
)

type legKey struct {
	leg  domain.LegType
	txID string
}

type patch struct {
	versionID string
	issueID   string
	completed bool
}

type outboxRow struct {
	event       domain.OutboxEvent
	lockedUntil time.Time
}

// Store is an in-memory domain.Store used by tests and single-process
// development. Each slot is serialized by its own mutex and a slot's writes
// are staged and applied under the store lock in one step.
type Store struct {
	locksMu   sync.Mutex
	slotLocks map[string]*sync.Mutex

	mu             sync.RWMutex
	donations      map[string]domain.Donation
	slotDonations  map[domain.SlotKey][]string
	liveBySlot     map[domain.SlotKey]string
	donationByLeg  map[legKey]string
	legs           map[legKey]domain.LegEvent
	legOrder       []legKey
	userBalances   map[string]domain.Balance
	galaxyBalances map[string]domain.Balance
	forges         map[string]domain.SolarForge
	anomalies      []domain.Anomaly
	outbox         []*outboxRow
	patches        map[string]patch
	failure        error

	now   func() time.Time
	newID func() string
}

// New constructs an empty store. newID generates solar forge ids.
func New(newID func() string) *Store {
	return &Store{
		slotLocks:      make(map[string]*sync.Mutex),
		donations:      make(map[string]domain.Donation),
		slotDonations:  make(map[domain.SlotKey][]string),
		liveBySlot:     make(map[domain.SlotKey]string),
		donationByLeg:  make(map[legKey]string),
		legs:           make(map[legKey]domain.LegEvent),
		userBalances:   make(map[string]domain.Balance),
		galaxyBalances: make(map[string]domain.Balance),
		forges:         make(map[string]domain.SolarForge),
		patches:        make(map[string]patch),
		now:            time.Now,
		newID:          newID,
	}
}

var _ domain.Store = (*Store)(nil)

// WithClock overrides the clock used for outbox leases.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// SetFailure makes every subsequent call fail as unavailable storage until
// cleared with nil.
func (s *Store) SetFailure(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failure = err
}

func (s *Store) failed() error {
	if s.failure != nil {
		return fmt.Errorf("%w: %w", domain.ErrStorageUnavailable, s.failure)
	}
	return nil
}

// PutPatch seeds a version patch the way the CRUD layer would.
func (s *Store) PutPatch(patchID, versionID, issueID string, completed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.patches[patchID] = patch{versionID: versionID, issueID: issueID, completed: completed}
}

// Anomalies returns the recorded anomalies in detection order.
func (s *Store) Anomalies() []domain.Anomaly {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Anomaly(nil), s.anomalies...)
}

// Outbox returns a copy of every outbox event.
func (s *Store) Outbox() []domain.OutboxEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.OutboxEvent, 0, len(s.outbox))
	for _, row := range s.outbox {
		out = append(out, row.event)
	}
	return out
}

// Donations returns every donation row including pending and expired ones.
func (s *Store) Donations() []domain.Donation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Donation, 0, len(s.donations))
	for _, d := range s.donations {
		out = append(out, d)
	}
	sortDonations(out)
	return out
}

// Leg returns the recorded leg event, if any.
func (s *Store) Leg(leg domain.LegType, txID string) (domain.LegEvent, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ev, ok := s.legs[legKey{leg: leg, txID: txID}]
	return ev, ok
}

func (s *Store) AppendLeg(_ context.Context, ev domain.LegEvent) (domain.LegEvent, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failed(); err != nil {
		return domain.LegEvent{}, false, err
	}
	k := legKey{leg: ev.LegType, txID: ev.LegTxID}
	if stored, ok := s.legs[k]; ok {
		return stored, false, nil
	}
	s.legs[k] = ev
	s.legOrder = append(s.legOrder, k)
	return ev, true, nil
}

func (s *Store) UnreconciledLegs(_ context.Context, receivedBefore time.Time, limit int) ([]domain.LegEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.failed(); err != nil {
		return nil, err
	}
	var out []domain.LegEvent
	for _, k := range s.legOrder {
		ev := s.legs[k]
		if ev.ReconciledAt != nil || !ev.ReceivedAt.Before(receivedBefore) {
			continue
		}
		out = append(out, ev)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *Store) slotLock(key domain.SlotKey) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	k := key.String()
	m, ok := s.slotLocks[k]
	if !ok {
		m = &sync.Mutex{}
		s.slotLocks[k] = m
	}
	return m
}

// WithSlot holds the key's mutex while fn runs and applies the staged writes
// only when fn succeeds.
func (s *Store) WithSlot(ctx context.Context, key domain.SlotKey, fn func(ctx context.Context, tx domain.SlotTx) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrStorageUnavailable, err)
	}
	lock := s.slotLock(key)
	lock.Lock()
	defer lock.Unlock()

	s.mu.RLock()
	err := s.failed()
	s.mu.RUnlock()
	if err != nil {
		return err
	}

	tx := newSlotTx(s, key)
	if err := fn(ctx, tx); err != nil {
		return err
	}
	return s.commit(tx)
}

func (s *Store) commit(tx *slotTx) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failed(); err != nil {
		return err
	}
	for _, d := range tx.donations {
		s.putDonation(d)
	}
	for k, mark := range tx.legMarks {
		ev, ok := s.legs[k]
		if !ok {
			continue
		}
		at := mark.at
		ev.ReconciledAt = &at
		ev.Outcome = mark.outcome
		s.legs[k] = ev
	}
	for id, delta := range tx.userDeltas {
		s.userBalances[id] = s.userBalances[id].Add(delta.balance)
	}
	for id, delta := range tx.galaxyDeltas {
		s.galaxyBalances[id] = s.galaxyBalances[id].Add(delta.balance)
	}
	for _, up := range tx.forgeUps {
		sf, ok := s.forges[up.issueID]
		if !ok {
			sf = domain.SolarForge{ID: s.newID(), IssueID: up.issueID, CreatedTime: up.at}
		}
		sf.Sunshines += up.sunshines
		if !sf.HasUser(up.userID) {
			sf.Users = append(append([]string(nil), sf.Users...), up.userID)
		}
		sf.UpdatedAt = up.at
		s.forges[up.issueID] = sf
	}
	s.anomalies = append(s.anomalies, tx.anomalies...)
	for _, e := range tx.events {
		e.Status = domain.OutboxPending
		s.outbox = append(s.outbox, &outboxRow{event: e})
	}
	return nil
}

// putDonation stores d and keeps the slot and leg indexes in step. The caller
// holds s.mu.
func (s *Store) putDonation(d domain.Donation) {
	key := d.Key()
	if _, ok := s.donations[d.ID]; !ok {
		s.slotDonations[key] = append(s.slotDonations[key], d.ID)
	}
	s.donations[d.ID] = d

	switch {
	case !d.Status().Terminal():
		s.liveBySlot[key] = d.ID
	case s.liveBySlot[key] == d.ID:
		delete(s.liveBySlot, key)
	}
	if d.InitiateTxID != "" {
		s.donationByLeg[legKey{leg: domain.LegInitiate, txID: d.InitiateTxID}] = d.ID
	}
	if d.HyperpayTxID != "" {
		s.donationByLeg[legKey{leg: domain.LegProcessor, txID: d.HyperpayTxID}] = d.ID
	}
}

func (s *Store) PendingDonationsBefore(_ context.Context, createdBefore time.Time, limit int) ([]domain.Donation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.failed(); err != nil {
		return nil, err
	}
	var out []domain.Donation
	for _, d := range s.donations {
		if d.Status().Terminal() || !d.CreatedAt.Before(createdBefore) {
			continue
		}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) DonationsByGalaxy(_ context.Context, galaxyID string, statuses []domain.DonationStatus, limit int) ([]domain.Donation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.failed(); err != nil {
		return nil, err
	}
	wanted := make(map[domain.DonationStatus]bool, len(statuses))
	for _, st := range statuses {
		wanted[st] = true
	}
	var out []domain.Donation
	for _, d := range s.donations {
		if d.GalaxyID == galaxyID && wanted[d.Status()] {
			out = append(out, d)
		}
	}
	sortDonations(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// sortDonations orders newest first, tie-broken by id for stable output.
func sortDonations(ds []domain.Donation) {
	sort.Slice(ds, func(i, j int) bool {
		if ds[i].CreatedAt.Equal(ds[j].CreatedAt) {
			return ds[i].ID > ds[j].ID
		}
		return ds[i].CreatedAt.After(ds[j].CreatedAt)
	})
}

func (s *Store) Balance(_ context.Context, owner domain.BalanceOwner, ownerID string) (domain.Balance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.failed(); err != nil {
		return domain.Balance{}, err
	}
	if owner == domain.BalanceOwnerGalaxy {
		return s.galaxyBalances[ownerID], nil
	}
	return s.userBalances[ownerID], nil
}

func (s *Store) SolarForgeByIssue(_ context.Context, issueID string) (*domain.SolarForge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.failed(); err != nil {
		return nil, err
	}
	sf, ok := s.forges[issueID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	sf.Users = append([]string(nil), sf.Users...)
	return &sf, nil
}

func (s *Store) UserStars(_ context.Context, userIDs []string) (map[string]float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.failed(); err != nil {
		return nil, err
	}
	out := make(map[string]float64, len(userIDs))
	for _, id := range userIDs {
		if b, ok := s.userBalances[id]; ok {
			out[id] = b.Stars
		}
	}
	return out, nil
}

// VersionSnapshot folds the version under one read lock so the totals come
// from a single point in time.
func (s *Store) VersionSnapshot(_ context.Context, versionID string) (domain.VersionSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.failed(); err != nil {
		return domain.VersionSnapshot{}, err
	}
	snap := domain.VersionSnapshot{VersionID: versionID}
	found := false
	issues := make(map[string]bool)
	for _, p := range s.patches {
		if p.versionID != versionID {
			continue
		}
		found = true
		if !p.completed {
			continue
		}
		snap.TotalIssues++
		issues[p.issueID] = true
	}
	if !found {
		return domain.VersionSnapshot{}, domain.ErrNotFound
	}
	for issueID := range issues {
		snap.TotalSunshines += s.forges[issueID].Sunshines
	}
	return snap, nil
}

func (s *Store) ClaimOutbox(_ context.Context, limit int, lease time.Duration) ([]domain.OutboxEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failed(); err != nil {
		return nil, err
	}
	now := s.now()
	var out []domain.OutboxEvent
	for _, row := range s.outbox {
		claimable := row.event.Status == domain.OutboxPending ||
			(row.event.Status == domain.OutboxPublishing && row.lockedUntil.Before(now))
		if !claimable {
			continue
		}
		row.event.Status = domain.OutboxPublishing
		row.lockedUntil = now.Add(lease)
		out = append(out, row.event)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *Store) MarkOutboxPublished(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failed(); err != nil {
		return err
	}
	for _, row := range s.outbox {
		if row.event.ID == id {
			published := at
			row.event.Status = domain.OutboxPublished
			row.event.PublishedAt = &published
			row.lockedUntil = time.Time{}
			return nil
		}
	}
	return domain.ErrNotFound
}

func (s *Store) MarkOutboxFailed(_ context.Context, id string, errMsg string, maxAttempts int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failed(); err != nil {
		return err
	}
	for _, row := range s.outbox {
		if row.event.ID == id {
			row.event.Attempts++
			row.event.LastError = errMsg
			row.lockedUntil = time.Time{}
			row.event.Status = domain.OutboxPending
			if row.event.Attempts >= maxAttempts {
				row.event.Status = domain.OutboxFailed
			}
			return nil
		}
	}
	return domain.ErrNotFound
}
