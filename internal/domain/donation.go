package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// DonationStatus is derived from which legs a donation holds; it is never stored.
type DonationStatus string

const (
	DonationPendingInitiate  DonationStatus = "pending-initiate"
	DonationPendingProcessor DonationStatus = "pending-processor"
	DonationCompleted        DonationStatus = "completed"
	DonationExpired          DonationStatus = "expired"
)

// Terminal reports whether no further leg may change the donation.
func (s DonationStatus) Terminal() bool {
	return s == DonationCompleted || s == DonationExpired
}

// SlotKey identifies the correlation slot two legs meet in.
type SlotKey struct {
	UserID   string
	GalaxyID string
	Counter  int64
}

func (k SlotKey) String() string {
	return fmt.Sprintf("%s/%s/%d", k.UserID, k.GalaxyID, k.Counter)
}

// Donation represents one supporter contribution assembled from both payment legs.
type Donation struct {
	ID              string
	UserID          string
	GalaxyID        string
	Counter         int64
	IssueID         string
	InitiateTxID    string
	HyperpayTxID    string
	SunshinesAmount float64
	SpendUSDAmount  decimal.Decimal
	Memo            string
	CreatedAt       time.Time
	CompletedAt     *time.Time
	ExpiredAt       *time.Time
	RewardAppliedAt *time.Time
}

// Key returns the correlation slot of the donation.
func (d Donation) Key() SlotKey {
	return SlotKey{UserID: d.UserID, GalaxyID: d.GalaxyID, Counter: d.Counter}
}

// Status derives the lifecycle state from the recorded legs.
func (d Donation) Status() DonationStatus {
	switch {
	case d.InitiateTxID != "" && d.HyperpayTxID != "":
		return DonationCompleted
	case d.ExpiredAt != nil:
		return DonationExpired
	case d.InitiateTxID != "":
		return DonationPendingProcessor
	default:
		return DonationPendingInitiate
	}
}

// TxID returns the tx id recorded for the given leg type.
func (d Donation) TxID(leg LegType) string {
	if leg == LegInitiate {
		return d.InitiateTxID
	}
	return d.HyperpayTxID
}

// Completion carries the fields written when the complementary leg arrives.
type Completion struct {
	DonationID      string
	InitiateTxID    string
	HyperpayTxID    string
	IssueID         string
	SunshinesAmount float64
	SpendUSDAmount  decimal.Decimal
	Memo            string
	CompletedAt     time.Time
}

// Apply returns a copy of d with the completion written in.
func (c Completion) Apply(d Donation) Donation {
	d.InitiateTxID = c.InitiateTxID
	d.HyperpayTxID = c.HyperpayTxID
	d.IssueID = c.IssueID
	d.SunshinesAmount = c.SunshinesAmount
	d.SpendUSDAmount = c.SpendUSDAmount
	d.Memo = c.Memo
	at := c.CompletedAt
	d.CompletedAt = &at
	return d
}
