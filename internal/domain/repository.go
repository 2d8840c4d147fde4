package domain

import (
	"context"
	"time"
)

// LegStore is the append-only leg ledger.
type LegStore interface {
	// AppendLeg records ev once per (leg type, tx id). When the leg is already
	// recorded it returns the stored event and appended=false.
	AppendLeg(ctx context.Context, ev LegEvent) (stored LegEvent, appended bool, err error)
	UnreconciledLegs(ctx context.Context, receivedBefore time.Time, limit int) ([]LegEvent, error)
}

// SlotStore serializes all reconciliation work for one correlation key.
// Every write made through the SlotTx commits atomically when fn returns nil
// and is discarded when it returns an error.
type SlotStore interface {
	WithSlot(ctx context.Context, key SlotKey, fn func(ctx context.Context, tx SlotTx) error) error
}

// SlotTx is the view of the store available while a slot is held.
type SlotTx interface {
	LiveDonation(ctx context.Context) (*Donation, error)
	LatestCompleted(ctx context.Context) (*Donation, error)
	DonationByLeg(ctx context.Context, leg LegType, txID string) (*Donation, error)
	Leg(ctx context.Context, leg LegType, txID string) (*LegEvent, error)

	InsertDonation(ctx context.Context, d Donation) error
	// CompleteDonation fills in the missing leg only if the donation is still
	// pending; it reports false when another writer got there first.
	CompleteDonation(ctx context.Context, c Completion) (bool, error)
	ExpireDonation(ctx context.Context, donationID string, at time.Time) (bool, error)
	MarkRewardApplied(ctx context.Context, donationID string, at time.Time) (bool, error)
	AddBalance(ctx context.Context, owner BalanceOwner, ownerID string, delta Balance, at time.Time) error
	UpsertSolarForge(ctx context.Context, issueID, userID string, sunshines float64, at time.Time) error

	MarkLegReconciled(ctx context.Context, leg LegType, txID string, outcome LegOutcome, at time.Time) error
	RecordAnomaly(ctx context.Context, a Anomaly) error
	EnqueueEvent(ctx context.Context, e OutboxEvent) error
}

// ExpiryStore finds donations that may have outlived the retention window.
type ExpiryStore interface {
	PendingDonationsBefore(ctx context.Context, createdBefore time.Time, limit int) ([]Donation, error)
}

// ReadStore backs the query façade and aggregation views.
type ReadStore interface {
	DonationsByGalaxy(ctx context.Context, galaxyID string, statuses []DonationStatus, limit int) ([]Donation, error)
	Balance(ctx context.Context, owner BalanceOwner, ownerID string) (Balance, error)
	SolarForgeByIssue(ctx context.Context, issueID string) (*SolarForge, error)
	UserStars(ctx context.Context, userIDs []string) (map[string]float64, error)
	VersionSnapshot(ctx context.Context, versionID string) (VersionSnapshot, error)
}

// OutboxStore feeds the notification relay.
type OutboxStore interface {
	ClaimOutbox(ctx context.Context, limit int, lease time.Duration) ([]OutboxEvent, error)
	MarkOutboxPublished(ctx context.Context, id string, at time.Time) error
	MarkOutboxFailed(ctx context.Context, id string, errMsg string, maxAttempts int) error
}

// Store is everything the ledger needs from persistence.
type Store interface {
	LegStore
	SlotStore
	ExpiryStore
	ReadStore
	OutboxStore
}

// UserDirectory resolves contributor profiles owned by the surrounding application.
type UserDirectory interface {
	Profiles(ctx context.Context, userIDs []string) (map[string]UserProfile, error)
}
