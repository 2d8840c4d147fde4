package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"solarforge/internal/domain"
	"solarforge/internal/ledger"
)

type balanceResponse struct {
	Owner     string  `json:"owner"`
	OwnerID   string  `json:"owner_id"`
	Sunshines float64 `json:"sunshines"`
	Stars     float64 `json:"stars"`
}

var selectableStatuses = map[string]domain.DonationStatus{
	string(domain.DonationCompleted):        domain.DonationCompleted,
	string(domain.DonationPendingInitiate):  domain.DonationPendingInitiate,
	string(domain.DonationPendingProcessor): domain.DonationPendingProcessor,
	string(domain.DonationExpired):          domain.DonationExpired,
}

// GalaxyDonations lists completed donations newest first. The status query
// parameter (comma separated) selects bookkeeping states for operators.
func (a *App) GalaxyDonations(w http.ResponseWriter, r *http.Request) {
	galaxyID := chi.URLParam(r, "galaxyID")
	var filter ledger.DonationFilter
	if raw := r.URL.Query().Get("status"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			st, ok := selectableStatuses[strings.TrimSpace(part)]
			if !ok {
				a.error(w, http.StatusBadRequest, "bad_request", "unknown status "+strconv.Quote(part))
				return
			}
			filter.Statuses = append(filter.Statuses, st)
		}
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			a.error(w, http.StatusBadRequest, "bad_request", "limit must be a positive integer")
			return
		}
		filter.Limit = n
	}

	items, err := a.Query.ListDonations(r.Context(), galaxyID, filter)
	if err != nil {
		a.readFailed(w, err)
		return
	}
	views := make([]donationView, 0, len(items))
	for _, d := range items {
		views = append(views, toDonationView(d))
	}
	a.json(w, http.StatusOK, map[string]any{"galaxy_id": galaxyID, "items": views})
}

func (a *App) GalaxyBalance(w http.ResponseWriter, r *http.Request) {
	galaxyID := chi.URLParam(r, "galaxyID")
	b, err := a.Query.GetGalaxyBalance(r.Context(), galaxyID)
	if err != nil {
		a.readFailed(w, err)
		return
	}
	a.json(w, http.StatusOK, balanceResponse{Owner: string(domain.BalanceOwnerGalaxy), OwnerID: galaxyID, Sunshines: b.Sunshines, Stars: b.Stars})
}

func (a *App) UserBalance(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	b, err := a.Query.GetUserBalance(r.Context(), userID)
	if err != nil {
		a.readFailed(w, err)
		return
	}
	a.json(w, http.StatusOK, balanceResponse{Owner: string(domain.BalanceOwnerUser), OwnerID: userID, Sunshines: b.Sunshines, Stars: b.Stars})
}

// IssueSolarForge always answers 200; lookup problems are reported in the
// result's error field.
func (a *App) IssueSolarForge(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, a.Query.GetSolarForgeByIssue(r.Context(), chi.URLParam(r, "issueID")))
}

func (a *App) VersionSolarForge(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, a.Query.GetSolarForgeByVersion(r.Context(), chi.URLParam(r, "versionID")))
}

func (a *App) readFailed(w http.ResponseWriter, err error) {
	if errors.Is(err, domain.ErrStorageUnavailable) {
		a.error(w, http.StatusServiceUnavailable, "unavailable", "ledger storage unavailable")
		return
	}
	a.error(w, http.StatusInternalServerError, "internal", "failed to read ledger")
}
