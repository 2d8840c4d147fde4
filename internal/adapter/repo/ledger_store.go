package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"solarforge/internal/domain"
	"solarforge/internal/infra"
	"solarforge/internal/sqlinline"
)

// LedgerStorePG implements domain.Store on PostgreSQL. Slot work runs inside
// one transaction guarded by an advisory lock on the correlation key.
type LedgerStorePG struct {
	sql    infra.TxRunner
	logger infra.Logger
}

// NewLedgerStore constructs the store on top of a marker-checked SQL runner.
func NewLedgerStore(runner infra.TxRunner, logger infra.Logger) *LedgerStorePG {
	return &LedgerStorePG{sql: runner, logger: logger}
}

var _ domain.Store = (*LedgerStorePG)(nil)

type rowScanner interface {
	Scan(dest ...any) error
}

// AppendLeg records the leg unless (leg type, tx id) is already present, in
// which case the stored copy is returned.
func (s *LedgerStorePG) AppendLeg(ctx context.Context, ev domain.LegEvent) (domain.LegEvent, bool, error) {
	var receivedAt time.Time
	err := s.sql.QueryRow(ctx, sqlinline.QInsertLegEvent,
		string(ev.LegType),
		ev.LegTxID,
		ev.Counter,
		ev.UserID,
		ev.GalaxyID,
		ev.IssueID,
		decimalArg(ev.SpendUSD, ev.LegType == domain.LegProcessor),
		ev.Sunshines,
		ev.Memo,
		optionalDecimalArg(ev.ClaimedSpendUSD),
		ev.ClaimedSunshines,
		ev.ReceivedAt,
	).Scan(&receivedAt)
	switch {
	case err == nil:
		ev.ReceivedAt = receivedAt
		return ev, true, nil
	case infra.IsNoRows(err):
		stored, err := s.leg(ctx, s.sql, ev.LegType, ev.LegTxID)
		if err != nil {
			return domain.LegEvent{}, false, err
		}
		if stored == nil {
			return domain.LegEvent{}, false, s.storageErr("append leg", fmt.Errorf("leg %s/%s vanished after conflict", ev.LegType, ev.LegTxID))
		}
		return *stored, false, nil
	default:
		return domain.LegEvent{}, false, s.storageErr("append leg", err)
	}
}

// UnreconciledLegs lists legs received before the cutoff that were never acted on.
func (s *LedgerStorePG) UnreconciledLegs(ctx context.Context, receivedBefore time.Time, limit int) ([]domain.LegEvent, error) {
	rows, err := s.sql.Query(ctx, sqlinline.QListUnreconciledLegs, receivedBefore, limit)
	if err != nil {
		return nil, s.storageErr("list unreconciled legs", err)
	}
	defer rows.Close()

	var legs []domain.LegEvent
	for rows.Next() {
		ev, err := scanLeg(rows)
		if err != nil {
			return nil, s.storageErr("scan leg", err)
		}
		legs = append(legs, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, s.storageErr("list unreconciled legs", err)
	}
	return legs, nil
}

func (s *LedgerStorePG) leg(ctx context.Context, exec infra.SQLExecutor, leg domain.LegType, txID string) (*domain.LegEvent, error) {
	ev, err := scanLeg(exec.QueryRow(ctx, sqlinline.QSelectLegEvent, string(leg), txID))
	if err != nil {
		if infra.IsNoRows(err) {
			return nil, nil
		}
		return nil, s.storageErr("select leg", err)
	}
	return &ev, nil
}

// WithSlot runs fn in a read-committed transaction holding the advisory lock
// for key. Errors returned by fn roll the transaction back unchanged.
func (s *LedgerStorePG) WithSlot(ctx context.Context, key domain.SlotKey, fn func(ctx context.Context, tx domain.SlotTx) error) error {
	var fnErr error
	err := s.sql.InTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(exec infra.SQLExecutor) error {
		if _, err := exec.Exec(ctx, sqlinline.QLockSlot, key.String()); err != nil {
			return s.storageErr("lock slot", err)
		}
		fnErr = fn(ctx, &slotTxPG{store: s, exec: exec, key: key})
		return fnErr
	})
	if err == nil {
		return nil
	}
	if fnErr != nil && errors.Is(err, fnErr) {
		return fnErr
	}
	return s.storageErr("slot transaction", err)
}

// PendingDonationsBefore lists live donations created before the cutoff.
func (s *LedgerStorePG) PendingDonationsBefore(ctx context.Context, createdBefore time.Time, limit int) ([]domain.Donation, error) {
	rows, err := s.sql.Query(ctx, sqlinline.QListPendingDonationsBefore, createdBefore, limit)
	if err != nil {
		return nil, s.storageErr("list pending donations", err)
	}
	return s.collectDonations(rows)
}

// DonationsByGalaxy lists the galaxy's donations whose derived status is in statuses.
func (s *LedgerStorePG) DonationsByGalaxy(ctx context.Context, galaxyID string, statuses []domain.DonationStatus, limit int) ([]domain.Donation, error) {
	names := make([]string, 0, len(statuses))
	for _, st := range statuses {
		names = append(names, string(st))
	}
	rows, err := s.sql.Query(ctx, sqlinline.QListGalaxyDonations, galaxyID, names, limit)
	if err != nil {
		return nil, s.storageErr("list galaxy donations", err)
	}
	return s.collectDonations(rows)
}

// Balance returns the running total of the owner, zero when none exists yet.
func (s *LedgerStorePG) Balance(ctx context.Context, owner domain.BalanceOwner, ownerID string) (domain.Balance, error) {
	query := sqlinline.QSelectUserBalance
	if owner == domain.BalanceOwnerGalaxy {
		query = sqlinline.QSelectGalaxyBalance
	}
	var b domain.Balance
	if err := s.sql.QueryRow(ctx, query, ownerID).Scan(&b.Sunshines, &b.Stars); err != nil {
		if infra.IsNoRows(err) {
			return domain.Balance{}, nil
		}
		return domain.Balance{}, s.storageErr("select balance", err)
	}
	return b, nil
}

func (s *LedgerStorePG) SolarForgeByIssue(ctx context.Context, issueID string) (*domain.SolarForge, error) {
	var sf domain.SolarForge
	err := s.sql.QueryRow(ctx, sqlinline.QSelectSolarForgeByIssue, issueID).
		Scan(&sf.ID, &sf.IssueID, &sf.Users, &sf.Sunshines, &sf.CreatedTime, &sf.UpdatedAt)
	if err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, s.storageErr("select solar forge", err)
	}
	return &sf, nil
}

func (s *LedgerStorePG) UserStars(ctx context.Context, userIDs []string) (map[string]float64, error) {
	out := make(map[string]float64, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}
	rows, err := s.sql.Query(ctx, sqlinline.QSelectUserStars, userIDs)
	if err != nil {
		return nil, s.storageErr("select user stars", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id string
		var stars float64
		if err := rows.Scan(&id, &stars); err != nil {
			return nil, s.storageErr("scan user stars", err)
		}
		out[id] = stars
	}
	if err := rows.Err(); err != nil {
		return nil, s.storageErr("select user stars", err)
	}
	return out, nil
}

// VersionSnapshot folds the version's completed patches in one read-only
// repeatable-read transaction.
func (s *LedgerStorePG) VersionSnapshot(ctx context.Context, versionID string) (domain.VersionSnapshot, error) {
	snap := domain.VersionSnapshot{VersionID: versionID}
	var patches int
	err := s.sql.InTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly}, func(exec infra.SQLExecutor) error {
		return exec.QueryRow(ctx, sqlinline.QSelectVersionSnapshot, versionID).
			Scan(&patches, &snap.TotalIssues, &snap.TotalSunshines)
	})
	if err != nil {
		return domain.VersionSnapshot{}, s.storageErr("select version snapshot", err)
	}
	if patches == 0 {
		return domain.VersionSnapshot{}, domain.ErrNotFound
	}
	return snap, nil
}

// ClaimOutbox leases up to limit publishable events.
func (s *LedgerStorePG) ClaimOutbox(ctx context.Context, limit int, lease time.Duration) ([]domain.OutboxEvent, error) {
	rows, err := s.sql.Query(ctx, sqlinline.QClaimOutboxEvents, limit, lease.Seconds())
	if err != nil {
		return nil, s.storageErr("claim outbox", err)
	}
	defer rows.Close()

	var events []domain.OutboxEvent
	for rows.Next() {
		var (
			e       domain.OutboxEvent
			status  string
			payload []byte
		)
		if err := rows.Scan(&e.ID, &e.EventType, &e.AggregateType, &e.AggregateID, &payload, &status, &e.Attempts, &e.LastError, &e.CreatedAt); err != nil {
			return nil, s.storageErr("scan outbox event", err)
		}
		e.Payload = payload
		e.Status = domain.OutboxStatus(status)
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, s.storageErr("claim outbox", err)
	}
	return events, nil
}

func (s *LedgerStorePG) MarkOutboxPublished(ctx context.Context, id string, at time.Time) error {
	if _, err := s.sql.Exec(ctx, sqlinline.QMarkOutboxPublished, id, at); err != nil {
		return s.storageErr("mark outbox published", err)
	}
	return nil
}

func (s *LedgerStorePG) MarkOutboxFailed(ctx context.Context, id string, errMsg string, maxAttempts int) error {
	if _, err := s.sql.Exec(ctx, sqlinline.QMarkOutboxFailed, id, errMsg, maxAttempts); err != nil {
		return s.storageErr("mark outbox failed", err)
	}
	return nil
}

func (s *LedgerStorePG) collectDonations(rows pgx.Rows) ([]domain.Donation, error) {
	defer rows.Close()
	var items []domain.Donation
	for rows.Next() {
		d, err := scanDonation(rows)
		if err != nil {
			return nil, s.storageErr("scan donation", err)
		}
		items = append(items, d)
	}
	if err := rows.Err(); err != nil {
		return nil, s.storageErr("list donations", err)
	}
	return items, nil
}

// storageErr maps driver failures onto the domain sentinels. Only failures a
// retry can clear become ErrStorageUnavailable; values postgres refused become
// ErrStorageRejected. Domain sentinels pass through untouched.
func (s *LedgerStorePG) storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if isDomainErr(err) {
		return err
	}
	switch {
	case infra.IsDataException(err):
		s.logger.Error().Err(err).Str("op", op).Msg("ledger store rejected values")
		return fmt.Errorf("%s: %w: %w", op, domain.ErrStorageRejected, err)
	case infra.IsPermanent(err):
		s.logger.Error().Err(err).Str("op", op).Msg("ledger store failure")
		return fmt.Errorf("%s: %w", op, err)
	}
	s.logger.Warn().Err(err).Str("op", op).Msg("ledger store unavailable")
	return fmt.Errorf("%s: %w: %w", op, domain.ErrStorageUnavailable, err)
}

func isDomainErr(err error) bool {
	return errors.Is(err, domain.ErrStorageUnavailable) ||
		errors.Is(err, domain.ErrStorageRejected) ||
		errors.Is(err, domain.ErrNotFound) ||
		errors.Is(err, domain.ErrInvalidLeg) ||
		errors.Is(err, domain.ErrCorrelationConflict) ||
		errors.Is(err, domain.ErrCorrelationAnomaly)
}

func scanDonation(row rowScanner) (domain.Donation, error) {
	var (
		d     domain.Donation
		spend string
	)
	if err := row.Scan(
		&d.ID,
		&d.UserID,
		&d.GalaxyID,
		&d.Counter,
		&d.IssueID,
		&d.InitiateTxID,
		&d.HyperpayTxID,
		&d.SunshinesAmount,
		&spend,
		&d.Memo,
		&d.CreatedAt,
		&d.CompletedAt,
		&d.ExpiredAt,
		&d.RewardAppliedAt,
	); err != nil {
		return domain.Donation{}, err
	}
	amount, err := parseDecimal(spend)
	if err != nil {
		return domain.Donation{}, err
	}
	d.SpendUSDAmount = amount
	return d, nil
}

func scanLeg(row rowScanner) (domain.LegEvent, error) {
	var (
		ev           domain.LegEvent
		legType      string
		spend        string
		claimedSpend string
		outcome      string
	)
	if err := row.Scan(
		&legType,
		&ev.LegTxID,
		&ev.Counter,
		&ev.UserID,
		&ev.GalaxyID,
		&ev.IssueID,
		&spend,
		&ev.Sunshines,
		&ev.Memo,
		&claimedSpend,
		&ev.ClaimedSunshines,
		&ev.ReceivedAt,
		&ev.ReconciledAt,
		&outcome,
	); err != nil {
		return domain.LegEvent{}, err
	}
	ev.LegType = domain.LegType(legType)
	ev.Outcome = domain.LegOutcome(outcome)

	amount, err := parseDecimal(spend)
	if err != nil {
		return domain.LegEvent{}, err
	}
	ev.SpendUSD = amount
	if claimedSpend != "" {
		claimed, err := parseDecimal(claimedSpend)
		if err != nil {
			return domain.LegEvent{}, err
		}
		ev.ClaimedSpendUSD = &claimed
	}
	return ev, nil
}

func parseDecimal(text string) (decimal.Decimal, error) {
	if text == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(text)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse numeric %q: %w", text, err)
	}
	return d, nil
}

func decimalArg(d decimal.Decimal, present bool) string {
	if !present {
		return ""
	}
	return d.String()
}

func optionalDecimalArg(d *decimal.Decimal) string {
	if d == nil {
		return ""
	}
	return d.String()
}
