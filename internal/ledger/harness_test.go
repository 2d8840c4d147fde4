package ledger

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"solarforge/internal/adapter/memstore"
	"solarforge/internal/domain"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type harness struct {
	store   *memstore.Store
	users   *memstore.Directory
	clock   *testClock
	service *Service
	query   *Query
}

const testWindow = 24 * time.Hour

func newHarness(t *testing.T) *harness {
	t.Helper()
	clock := &testClock{now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
	store := memstore.New(uuid.NewString).WithClock(clock.Now)
	users := memstore.NewDirectory()
	opts := Options{
		Logger:       zerolog.Nop(),
		Now:          clock.Now,
		NewID:        uuid.NewString,
		ExpiryWindow: testWindow,
	}
	return &harness{
		store:   store,
		users:   users,
		clock:   clock,
		service: NewService(store, opts),
		query:   NewQuery(store, users, zerolog.Nop()),
	}
}

func initiate(user, galaxy string, counter int64, tx string) domain.InitiateLeg {
	return domain.InitiateLeg{UserID: user, GalaxyID: galaxy, Counter: counter, TxID: tx}
}

func processor(user, galaxy string, counter int64, tx string, sunshines float64) domain.ProcessorLeg {
	return domain.ProcessorLeg{
		UserID:    user,
		GalaxyID:  galaxy,
		Counter:   counter,
		TxID:      tx,
		SpendUSD:  decimal.NewFromFloat(sunshines / 100),
		Sunshines: sunshines,
	}
}

func (h *harness) mustInitiate(t *testing.T, leg domain.InitiateLeg) Outcome {
	t.Helper()
	out, err := h.service.NotifyInitiateLeg(context.Background(), leg)
	if err != nil {
		t.Fatalf("NotifyInitiateLeg(%+v) error: %v", leg, err)
	}
	return out
}

func (h *harness) mustProcess(t *testing.T, leg domain.ProcessorLeg) Outcome {
	t.Helper()
	out, err := h.service.NotifyProcessorLeg(context.Background(), leg)
	if err != nil {
		t.Fatalf("NotifyProcessorLeg(%+v) error: %v", leg, err)
	}
	return out
}

func (h *harness) balance(t *testing.T, owner domain.BalanceOwner, id string) domain.Balance {
	t.Helper()
	var (
		b   domain.Balance
		err error
	)
	if owner == domain.BalanceOwnerGalaxy {
		b, err = h.query.GetGalaxyBalance(context.Background(), id)
	} else {
		b, err = h.query.GetUserBalance(context.Background(), id)
	}
	if err != nil {
		t.Fatalf("balance(%s, %s) error: %v", owner, id, err)
	}
	return b
}

func (h *harness) donationsFor(galaxyID string) []domain.Donation {
	var out []domain.Donation
	for _, d := range h.store.Donations() {
		if d.GalaxyID == galaxyID {
			out = append(out, d)
		}
	}
	return out
}

func countEvents(events []domain.OutboxEvent, eventType string) int {
	n := 0
	for _, e := range events {
		if e.EventType == eventType {
			n++
		}
	}
	return n
}
