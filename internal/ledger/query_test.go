package ledger

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"solarforge/internal/domain"
)

func TestSolarForgeByIssueMissingReportsError(t *testing.T) {
	h := newHarness(t)
	res := h.query.GetSolarForgeByIssue(context.Background(), "iss-404")
	if res.Error == "" {
		t.Fatal("expected error text for missing forge")
	}
	if res.IssueID != "iss-404" || len(res.Users) != 0 {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestSolarForgeByVersionFoldsCompletedPatches(t *testing.T) {
	h := newHarness(t)
	for i, issue := range []string{"iss-1", "iss-2", "iss-3"} {
		leg := initiate("u1", "g1", int64(i), "i-"+issue)
		leg.IssueID = issue
		h.mustInitiate(t, leg)
		h.mustProcess(t, processor("u1", "g1", int64(i), "p-"+issue, 360))
	}
	h.store.PutPatch("p1", "v1", "iss-1", true)
	h.store.PutPatch("p2", "v1", "iss-2", true)
	h.store.PutPatch("p3", "v1", "iss-3", false)
	h.store.PutPatch("p4", "v2", "iss-3", true)

	res := h.query.GetSolarForgeByVersion(context.Background(), "v1")
	if res.Error != "" {
		t.Fatalf("unexpected error: %s", res.Error)
	}
	if res.TotalIssues != 2 || res.TotalSunshines != 720 || res.TotalStars != 4 {
		t.Fatalf("unexpected totals: %+v", res)
	}

	missing := h.query.GetSolarForgeByVersion(context.Background(), "v-unknown")
	if missing.Error == "" {
		t.Fatal("expected error text for unknown version")
	}
}

func TestGetDonationsByGalaxyIDReturnsCompletedNewestFirst(t *testing.T) {
	h := newHarness(t)
	for i := int64(0); i < 3; i++ {
		h.mustInitiate(t, initiate("u1", "g1", i, fmt.Sprintf("i%d", i)))
		h.clock.Advance(1)
	}
	h.mustProcess(t, processor("u1", "g1", 0, "p0", 180))
	h.mustProcess(t, processor("u1", "g1", 2, "p2", 180))

	list, err := h.query.GetDonationsByGalaxyID(context.Background(), "g1")
	if err != nil {
		t.Fatalf("GetDonationsByGalaxyID error: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 completed donations, got %d", len(list))
	}
	if list[0].Counter != 2 || list[1].Counter != 0 {
		t.Fatalf("unexpected order: %d, %d", list[0].Counter, list[1].Counter)
	}

	all, err := h.query.ListDonations(context.Background(), "g1", DonationFilter{
		Statuses: []domain.DonationStatus{domain.DonationCompleted, domain.DonationPendingProcessor},
	})
	if err != nil || len(all) != 3 {
		t.Fatalf("ListDonations: %v, %d rows", err, len(all))
	}
}

func TestUnknownBalancesAreZero(t *testing.T) {
	h := newHarness(t)
	if b := h.balance(t, domain.BalanceOwnerUser, "nobody"); b != (domain.Balance{}) {
		t.Fatalf("expected zero balance, got %+v", b)
	}
}

func TestQueryReadFailureIsReturned(t *testing.T) {
	h := newHarness(t)
	h.store.SetFailure(errors.New("down"))
	defer h.store.SetFailure(nil)

	if _, err := h.query.GetGalaxyBalance(context.Background(), "g1"); !errors.Is(err, domain.ErrStorageUnavailable) {
		t.Fatalf("expected storage unavailable, got %v", err)
	}
	list, err := h.query.GetDonationsByGalaxyID(context.Background(), "g1")
	if err == nil || list == nil || len(list) != 0 {
		t.Fatalf("expected empty list with error, got %v %v", list, err)
	}
	res := h.query.GetSolarForgeByVersion(context.Background(), "v1")
	if res.Error == "" {
		t.Fatal("expected error text when storage is down")
	}
}
