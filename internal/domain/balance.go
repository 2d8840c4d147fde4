package domain

import "time"

// SunshinesPerStar is the fixed conversion rate between the two reward currencies.
const SunshinesPerStar = 180.0

// Balance is a running {sunshines, stars} total.
type Balance struct {
	Sunshines float64
	Stars     float64
}

// Add returns the sum of two balances.
func (b Balance) Add(other Balance) Balance {
	return Balance{Sunshines: b.Sunshines + other.Sunshines, Stars: b.Stars + other.Stars}
}

// BalanceOwner selects which running total a balance row belongs to.
type BalanceOwner string

const (
	BalanceOwnerUser   BalanceOwner = "user"
	BalanceOwnerGalaxy BalanceOwner = "galaxy"
)

// Reward is the delta applied when a donation completes.
type Reward struct {
	DonationID string
	UserID     string
	GalaxyID   string
	IssueID    string
	Delta      Balance
	AppliedAt  time.Time
}
