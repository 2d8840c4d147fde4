package ledger

import (
	"context"
	"fmt"

	"solarforge/internal/domain"
	"solarforge/internal/infra"
)

const (
	defaultListLimit = 100
	maxListLimit     = 500
)

// DonationFilter narrows ListDonations. Zero values mean completed donations
// and the default page size.
type DonationFilter struct {
	Statuses []domain.DonationStatus
	Limit    int
}

// Query is the read-only façade offered to presentation and CRUD layers.
// It never mutates state and never exposes raw leg events.
type Query struct {
	store  domain.ReadStore
	users  domain.UserDirectory
	logger infra.Logger
}

func NewQuery(store domain.ReadStore, users domain.UserDirectory, logger infra.Logger) *Query {
	return &Query{store: store, users: users, logger: logger}
}

// GetDonationsByGalaxyID returns the galaxy's completed donations, newest first.
func (q *Query) GetDonationsByGalaxyID(ctx context.Context, galaxyID string) ([]domain.Donation, error) {
	return q.ListDonations(ctx, galaxyID, DonationFilter{})
}

// ListDonations is GetDonationsByGalaxyID with internal bookkeeping states
// selectable.
func (q *Query) ListDonations(ctx context.Context, galaxyID string, filter DonationFilter) ([]domain.Donation, error) {
	statuses := filter.Statuses
	if len(statuses) == 0 {
		statuses = []domain.DonationStatus{domain.DonationCompleted}
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	items, err := q.store.DonationsByGalaxy(ctx, galaxyID, statuses, limit)
	if err != nil {
		q.logger.Error().Err(err).Str("galaxy_id", galaxyID).Msg("query: list donations failed")
		return []domain.Donation{}, fmt.Errorf("list donations: %w", err)
	}
	if items == nil {
		items = []domain.Donation{}
	}
	return items, nil
}

// GetUserBalance returns the user's running totals; unknown users have zero.
func (q *Query) GetUserBalance(ctx context.Context, userID string) (domain.Balance, error) {
	return q.balance(ctx, domain.BalanceOwnerUser, userID)
}

// GetGalaxyBalance returns the galaxy's running totals; unknown galaxies have zero.
func (q *Query) GetGalaxyBalance(ctx context.Context, galaxyID string) (domain.Balance, error) {
	return q.balance(ctx, domain.BalanceOwnerGalaxy, galaxyID)
}

func (q *Query) balance(ctx context.Context, owner domain.BalanceOwner, id string) (domain.Balance, error) {
	b, err := q.store.Balance(ctx, owner, id)
	if err != nil {
		q.logger.Error().Err(err).Str("owner", string(owner)).Str("owner_id", id).Msg("query: balance read failed")
		return domain.Balance{}, fmt.Errorf("%s balance: %w", owner, err)
	}
	return b, nil
}

func (q *Query) GetSolarForgeByIssue(ctx context.Context, issueID string) SolarForgeByIssueResult {
	return q.solarForgeByIssue(ctx, issueID)
}

func (q *Query) GetSolarForgeByVersion(ctx context.Context, versionID string) SolarForgeByVersionResult {
	return q.solarForgeByVersion(ctx, versionID)
}
