package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"solarforge/internal/domain"
	"solarforge/internal/ledger"
	"solarforge/internal/middleware"
)

type initiateLegRequest struct {
	UserID           string           `json:"user_id"`
	GalaxyID         string           `json:"galaxy_id"`
	Counter          *int64           `json:"counter"`
	TxID             string           `json:"tx_id"`
	IssueID          string           `json:"issue_id"`
	ClaimedSpendUSD  *decimal.Decimal `json:"claimed_spend_usd"`
	ClaimedSunshines *float64         `json:"claimed_sunshines"`
}

type processorLegRequest struct {
	UserID    string          `json:"user_id"`
	GalaxyID  string          `json:"galaxy_id"`
	Counter   *int64          `json:"counter"`
	TxID      string          `json:"tx_id"`
	SpendUSD  decimal.Decimal `json:"spend_usd"`
	Sunshines float64         `json:"sunshines"`
	Memo      string          `json:"memo"`
	IssueID   string          `json:"issue_id"`
}

type donationView struct {
	ID           string     `json:"id"`
	UserID       string     `json:"user_id"`
	GalaxyID     string     `json:"galaxy_id"`
	Counter      int64      `json:"counter"`
	IssueID      string     `json:"issue_id,omitempty"`
	Status       string     `json:"status"`
	InitiateTxID string     `json:"initiate_tx_id,omitempty"`
	HyperpayTxID string     `json:"hyperpay_tx_id,omitempty"`
	Sunshines    float64    `json:"sunshines"`
	Stars        float64    `json:"stars"`
	SpendUSD     string     `json:"spend_usd"`
	Memo         string     `json:"memo,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	ExpiredAt    *time.Time `json:"expired_at,omitempty"`
}

func toDonationView(d domain.Donation) donationView {
	return donationView{
		ID:           d.ID,
		UserID:       d.UserID,
		GalaxyID:     d.GalaxyID,
		Counter:      d.Counter,
		IssueID:      d.IssueID,
		Status:       string(d.Status()),
		InitiateTxID: d.InitiateTxID,
		HyperpayTxID: d.HyperpayTxID,
		Sunshines:    d.SunshinesAmount,
		Stars:        ledger.Stars(d.SunshinesAmount),
		SpendUSD:     d.SpendUSDAmount.StringFixed(2),
		Memo:         d.Memo,
		CreatedAt:    d.CreatedAt,
		CompletedAt:  d.CompletedAt,
		ExpiredAt:    d.ExpiredAt,
	}
}

type anomalyView struct {
	ID     string `json:"id"`
	Kind   string `json:"kind"`
	Detail string `json:"detail"`
}

type legResponse struct {
	Result    string        `json:"result"`
	Donation  *donationView `json:"donation,omitempty"`
	Anomalies []anomalyView `json:"anomalies"`
	Message   string        `json:"message,omitempty"`
}

func (a *App) InitiateLeg(w http.ResponseWriter, r *http.Request) {
	var req initiateLegRequest
	if err := decodeStrict(w, r, &req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload: "+err.Error())
		return
	}
	if req.Counter == nil {
		a.error(w, http.StatusBadRequest, "bad_request", "counter is required")
		return
	}
	out, err := a.Service.NotifyInitiateLeg(r.Context(), domain.InitiateLeg{
		UserID:           req.UserID,
		GalaxyID:         req.GalaxyID,
		Counter:          *req.Counter,
		TxID:             req.TxID,
		IssueID:          req.IssueID,
		ClaimedSpendUSD:  req.ClaimedSpendUSD,
		ClaimedSunshines: req.ClaimedSunshines,
	})
	a.writeLegOutcome(w, r, domain.LegInitiate, out, err)
}

func (a *App) ProcessorLeg(w http.ResponseWriter, r *http.Request) {
	var req processorLegRequest
	if err := decodeStrict(w, r, &req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload: "+err.Error())
		return
	}
	if req.Counter == nil {
		a.error(w, http.StatusBadRequest, "bad_request", "counter is required")
		return
	}
	out, err := a.Service.NotifyProcessorLeg(r.Context(), domain.ProcessorLeg{
		UserID:    req.UserID,
		GalaxyID:  req.GalaxyID,
		Counter:   *req.Counter,
		TxID:      req.TxID,
		SpendUSD:  req.SpendUSD,
		Sunshines: req.Sunshines,
		Memo:      req.Memo,
		IssueID:   req.IssueID,
	})
	a.writeLegOutcome(w, r, domain.LegProcessor, out, err)
}

func (a *App) writeLegOutcome(w http.ResponseWriter, r *http.Request, leg domain.LegType, out ledger.Outcome, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidLeg):
		a.error(w, http.StatusBadRequest, "invalid_leg", err.Error())
		return
	case errors.Is(err, domain.ErrStorageRejected):
		a.error(w, http.StatusBadRequest, "rejected", "ledger storage rejected the leg values")
		return
	case errors.Is(err, domain.ErrStorageUnavailable):
		a.error(w, http.StatusServiceUnavailable, "unavailable", "ledger storage unavailable, redeliver later")
		return
	case err != nil && !errors.Is(err, domain.ErrCorrelationConflict) && !errors.Is(err, domain.ErrCorrelationAnomaly):
		a.Logger.Error().
			Err(err).
			Str("leg_type", string(leg)).
			Str("collaborator", middleware.CollaboratorFromContext(r.Context())).
			Msg("legs: unexpected failure")
		a.error(w, http.StatusInternalServerError, "internal", "failed to record leg")
		return
	}

	resp := legResponse{Result: string(out.Result), Anomalies: make([]anomalyView, 0, len(out.Anomalies))}
	if out.Donation.ID != "" {
		v := toDonationView(out.Donation)
		resp.Donation = &v
	}
	for _, an := range out.Anomalies {
		resp.Anomalies = append(resp.Anomalies, anomalyView{ID: an.ID, Kind: string(an.Kind), Detail: an.Detail})
	}

	code := http.StatusOK
	switch {
	case errors.Is(err, domain.ErrCorrelationConflict):
		code = http.StatusConflict
		resp.Message = err.Error()
	case errors.Is(err, domain.ErrCorrelationAnomaly):
		code = http.StatusUnprocessableEntity
		resp.Message = err.Error()
	case out.Result == domain.LegOutcomeCreated:
		code = http.StatusCreated
	}
	a.json(w, code, resp)
}
