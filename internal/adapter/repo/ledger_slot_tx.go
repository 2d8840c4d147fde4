package repo

import (
	"context"
	"time"

	"solarforge/internal/domain"
	"solarforge/internal/infra"
	"solarforge/internal/sqlinline"
)

// slotTxPG is bound to the transaction that holds the slot's advisory lock.
type slotTxPG struct {
	store *LedgerStorePG
	exec  infra.SQLExecutor
	key   domain.SlotKey
}

func (t *slotTxPG) LiveDonation(ctx context.Context) (*domain.Donation, error) {
	return t.donation(ctx, "select live donation", sqlinline.QSelectLiveDonationForUpdate, t.key.UserID, t.key.GalaxyID, t.key.Counter)
}

func (t *slotTxPG) LatestCompleted(ctx context.Context) (*domain.Donation, error) {
	return t.donation(ctx, "select completed donation", sqlinline.QSelectLatestCompletedDonation, t.key.UserID, t.key.GalaxyID, t.key.Counter)
}

func (t *slotTxPG) DonationByLeg(ctx context.Context, leg domain.LegType, txID string) (*domain.Donation, error) {
	return t.donation(ctx, "select donation by leg", sqlinline.QSelectDonationByLeg, string(leg), txID)
}

func (t *slotTxPG) donation(ctx context.Context, op, query string, args ...any) (*domain.Donation, error) {
	d, err := scanDonation(t.exec.QueryRow(ctx, query, args...))
	if err != nil {
		if infra.IsNoRows(err) {
			return nil, nil
		}
		return nil, t.store.storageErr(op, err)
	}
	return &d, nil
}

func (t *slotTxPG) Leg(ctx context.Context, leg domain.LegType, txID string) (*domain.LegEvent, error) {
	return t.store.leg(ctx, t.exec, leg, txID)
}

func (t *slotTxPG) InsertDonation(ctx context.Context, d domain.Donation) error {
	_, err := t.exec.Exec(ctx, sqlinline.QInsertPendingDonation,
		d.ID,
		d.UserID,
		d.GalaxyID,
		d.Counter,
		d.IssueID,
		d.InitiateTxID,
		d.HyperpayTxID,
		d.CreatedAt,
	)
	return t.store.storageErr("insert donation", err)
}

func (t *slotTxPG) CompleteDonation(ctx context.Context, c domain.Completion) (bool, error) {
	tag, err := t.exec.Exec(ctx, sqlinline.QCompleteDonation,
		c.DonationID,
		c.InitiateTxID,
		c.HyperpayTxID,
		c.IssueID,
		c.SunshinesAmount,
		c.SpendUSDAmount.String(),
		c.Memo,
		c.CompletedAt,
	)
	if err != nil {
		return false, t.store.storageErr("complete donation", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (t *slotTxPG) ExpireDonation(ctx context.Context, donationID string, at time.Time) (bool, error) {
	tag, err := t.exec.Exec(ctx, sqlinline.QExpireDonation, donationID, at)
	if err != nil {
		return false, t.store.storageErr("expire donation", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (t *slotTxPG) MarkRewardApplied(ctx context.Context, donationID string, at time.Time) (bool, error) {
	tag, err := t.exec.Exec(ctx, sqlinline.QMarkRewardApplied, donationID, at)
	if err != nil {
		return false, t.store.storageErr("mark reward applied", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (t *slotTxPG) AddBalance(ctx context.Context, owner domain.BalanceOwner, ownerID string, delta domain.Balance, at time.Time) error {
	query := sqlinline.QAddUserBalance
	if owner == domain.BalanceOwnerGalaxy {
		query = sqlinline.QAddGalaxyBalance
	}
	_, err := t.exec.Exec(ctx, query, ownerID, delta.Sunshines, delta.Stars, at)
	return t.store.storageErr("add balance", err)
}

func (t *slotTxPG) UpsertSolarForge(ctx context.Context, issueID, userID string, sunshines float64, at time.Time) error {
	_, err := t.exec.Exec(ctx, sqlinline.QUpsertSolarForge, issueID, userID, sunshines, at)
	return t.store.storageErr("upsert solar forge", err)
}

func (t *slotTxPG) MarkLegReconciled(ctx context.Context, leg domain.LegType, txID string, outcome domain.LegOutcome, at time.Time) error {
	_, err := t.exec.Exec(ctx, sqlinline.QMarkLegReconciled, string(leg), txID, string(outcome), at)
	return t.store.storageErr("mark leg reconciled", err)
}

func (t *slotTxPG) RecordAnomaly(ctx context.Context, a domain.Anomaly) error {
	_, err := t.exec.Exec(ctx, sqlinline.QInsertAnomaly,
		a.ID,
		string(a.Kind),
		a.UserID,
		a.GalaxyID,
		a.Counter,
		string(a.LegType),
		a.LegTxID,
		a.DonationID,
		a.Detail,
		a.DetectedAt,
	)
	return t.store.storageErr("record anomaly", err)
}

func (t *slotTxPG) EnqueueEvent(ctx context.Context, e domain.OutboxEvent) error {
	_, err := t.exec.Exec(ctx, sqlinline.QInsertOutboxEvent,
		e.ID,
		e.EventType,
		e.AggregateType,
		e.AggregateID,
		string(e.Payload),
		e.CreatedAt,
	)
	return t.store.storageErr("enqueue event", err)
}
