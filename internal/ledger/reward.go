package ledger

import (
	"context"
	"fmt"
	"time"

	"solarforge/internal/domain"
)

// Stars converts sunshines to stars at the fixed rate. No rounding is applied.
func Stars(sunshines float64) float64 {
	return sunshines / domain.SunshinesPerStar
}

// Converter applies the reward of a completed donation. It must run inside
// the same slot transaction that completed the donation.
type Converter struct {
	newID func() string
}

func NewConverter(newID func() string) *Converter {
	return &Converter{newID: newID}
}

// Apply credits the donor and galaxy balances, folds the donation into its
// issue's solar forge and enqueues the completion notification. It reports
// false without writing anything when the reward was already applied.
func (c *Converter) Apply(ctx context.Context, tx domain.SlotTx, d domain.Donation, at time.Time) (domain.Reward, bool, error) {
	if d.Status() != domain.DonationCompleted {
		return domain.Reward{}, false, fmt.Errorf("apply reward: donation %s is %s", d.ID, d.Status())
	}
	marked, err := tx.MarkRewardApplied(ctx, d.ID, at)
	if err != nil {
		return domain.Reward{}, false, err
	}
	if !marked {
		return domain.Reward{}, false, nil
	}

	reward := domain.Reward{
		DonationID: d.ID,
		UserID:     d.UserID,
		GalaxyID:   d.GalaxyID,
		IssueID:    d.IssueID,
		Delta:      domain.Balance{Sunshines: d.SunshinesAmount, Stars: Stars(d.SunshinesAmount)},
		AppliedAt:  at,
	}
	if err := tx.AddBalance(ctx, domain.BalanceOwnerUser, d.UserID, reward.Delta, at); err != nil {
		return domain.Reward{}, false, err
	}
	if err := tx.AddBalance(ctx, domain.BalanceOwnerGalaxy, d.GalaxyID, reward.Delta, at); err != nil {
		return domain.Reward{}, false, err
	}
	if d.IssueID != "" {
		if err := tx.UpsertSolarForge(ctx, d.IssueID, d.UserID, d.SunshinesAmount, at); err != nil {
			return domain.Reward{}, false, err
		}
	}

	ev, err := newOutboxEvent(c.newID(), domain.EventDonationCompleted, domain.AggregateGalaxy, d.GalaxyID, domain.DonationCompletedPayload{
		DonationID:     d.ID,
		UserID:         d.UserID,
		GalaxyID:       d.GalaxyID,
		IssueID:        d.IssueID,
		Sunshines:      reward.Delta.Sunshines,
		Stars:          reward.Delta.Stars,
		SpendUSDAmount: d.SpendUSDAmount.String(),
	}, at)
	if err != nil {
		return domain.Reward{}, false, err
	}
	if err := tx.EnqueueEvent(ctx, ev); err != nil {
		return domain.Reward{}, false, err
	}
	return reward, true, nil
}
