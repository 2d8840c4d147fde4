package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"solarforge/internal/adapter/memstore"
	"solarforge/internal/domain"
	"solarforge/internal/ledger"
)

func newTestApp(t *testing.T) (*App, *memstore.Store) {
	t.Helper()
	store := memstore.New(uuid.NewString)
	opts := ledger.Options{Logger: zerolog.Nop(), NewID: uuid.NewString, ExpiryWindow: 24 * time.Hour}
	users := memstore.NewDirectory(domain.UserProfile{ID: "u-1", Roles: []string{"maintainer"}})
	app := NewApp(ledger.NewService(store, opts), ledger.NewQuery(store, users, zerolog.Nop()), zerolog.Nop())
	return app, store
}

func postLeg(t *testing.T, h http.HandlerFunc, body string) (int, legResponse) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h(rr, req)
	var resp legResponse
	if rr.Code < 400 || rr.Code == http.StatusConflict || rr.Code == http.StatusUnprocessableEntity {
		if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
			t.Fatalf("decode response (status %d): %v", rr.Code, err)
		}
	}
	return rr.Code, resp
}

func TestLegsCompleteInEitherOrder(t *testing.T) {
	app, _ := newTestApp(t)

	code, resp := postLeg(t, app.ProcessorLeg, `{"user_id":"u-1","galaxy_id":"g-1","counter":42,"tx_id":"txB","spend_usd":"18.00","sunshines":1800}`)
	if code != http.StatusCreated || resp.Result != string(domain.LegOutcomeCreated) {
		t.Fatalf("processor leg: status %d result %q, want 201 created", code, resp.Result)
	}
	if resp.Donation == nil || resp.Donation.Status != string(domain.DonationPendingInitiate) {
		t.Fatalf("processor leg donation = %+v, want pending-initiate", resp.Donation)
	}

	code, resp = postLeg(t, app.InitiateLeg, `{"user_id":"u-1","galaxy_id":"g-1","counter":42,"tx_id":"txA"}`)
	if code != http.StatusOK || resp.Result != string(domain.LegOutcomeCompleted) {
		t.Fatalf("initiate leg: status %d result %q, want 200 completed", code, resp.Result)
	}
	if resp.Donation.Sunshines != 1800 || resp.Donation.Stars != 10 || resp.Donation.SpendUSD != "18.00" {
		t.Fatalf("completed donation = %+v", resp.Donation)
	}

	code, resp = postLeg(t, app.InitiateLeg, `{"user_id":"u-1","galaxy_id":"g-1","counter":42,"tx_id":"txA"}`)
	if code != http.StatusOK || resp.Result != string(domain.LegOutcomeDuplicate) {
		t.Fatalf("redelivery: status %d result %q, want 200 duplicate", code, resp.Result)
	}
}

func TestLegsStatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		setup  func(t *testing.T, app *App, store *memstore.Store)
		leg    string
		body   string
		want   int
		result domain.LegOutcome
	}{
		{
			name: "unknown field",
			leg:  "initiate",
			body: `{"user_id":"u-1","galaxy_id":"g-1","counter":1,"tx_id":"tx","amount":5}`,
			want: http.StatusBadRequest,
		},
		{
			name: "missing counter",
			leg:  "initiate",
			body: `{"user_id":"u-1","galaxy_id":"g-1","tx_id":"tx"}`,
			want: http.StatusBadRequest,
		},
		{
			name: "trailing data",
			leg:  "initiate",
			body: `{"user_id":"u-1","galaxy_id":"g-1","counter":1,"tx_id":"tx"} {}`,
			want: http.StatusBadRequest,
		},
		{
			name: "invalid amount",
			leg:  "processor",
			body: `{"user_id":"u-1","galaxy_id":"g-1","counter":1,"tx_id":"tx","spend_usd":"1.00","sunshines":-5}`,
			want: http.StatusBadRequest,
		},
		{
			name: "spend finer than a micro-dollar",
			leg:  "processor",
			body: `{"user_id":"u-1","galaxy_id":"g-1","counter":1,"tx_id":"tx","spend_usd":"10.1234567","sunshines":1012}`,
			want: http.StatusBadRequest,
		},
		{
			name: "spend beyond column range",
			leg:  "processor",
			body: `{"user_id":"u-1","galaxy_id":"g-1","counter":1,"tx_id":"tx","spend_usd":"1000000000000000","sunshines":1}`,
			want: http.StatusBadRequest,
		},
		{
			name: "counter collision",
			setup: func(t *testing.T, app *App, _ *memstore.Store) {
				postLeg(t, app.InitiateLeg, `{"user_id":"u-1","galaxy_id":"g-1","counter":1,"tx_id":"txA"}`)
			},
			leg:    "initiate",
			body:   `{"user_id":"u-1","galaxy_id":"g-1","counter":1,"tx_id":"txC"}`,
			want:   http.StatusConflict,
			result: domain.LegOutcomeConflict,
		},
		{
			name: "completed counter reused",
			setup: func(t *testing.T, app *App, _ *memstore.Store) {
				postLeg(t, app.InitiateLeg, `{"user_id":"u-1","galaxy_id":"g-1","counter":1,"tx_id":"txA"}`)
				postLeg(t, app.ProcessorLeg, `{"user_id":"u-1","galaxy_id":"g-1","counter":1,"tx_id":"txB","spend_usd":"1.00","sunshines":100}`)
			},
			leg:    "processor",
			body:   `{"user_id":"u-1","galaxy_id":"g-1","counter":1,"tx_id":"txZ","spend_usd":"1.00","sunshines":100}`,
			want:   http.StatusUnprocessableEntity,
			result: domain.LegOutcomeAnomaly,
		},
		{
			name: "storage unavailable",
			setup: func(_ *testing.T, _ *App, store *memstore.Store) {
				store.SetFailure(errors.New("connection refused"))
			},
			leg:  "initiate",
			body: `{"user_id":"u-1","galaxy_id":"g-1","counter":1,"tx_id":"txA"}`,
			want: http.StatusServiceUnavailable,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			app, store := newTestApp(t)
			if tc.setup != nil {
				tc.setup(t, app, store)
			}
			h := app.InitiateLeg
			if tc.leg == "processor" {
				h = app.ProcessorLeg
			}
			code, resp := postLeg(t, h, tc.body)
			if code != tc.want {
				t.Fatalf("status = %d, want %d", code, tc.want)
			}
			if tc.result != "" && resp.Result != string(tc.result) {
				t.Fatalf("result = %q, want %q", resp.Result, tc.result)
			}
		})
	}
}

func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func TestQueryHandlers(t *testing.T) {
	app, store := newTestApp(t)
	postLeg(t, app.InitiateLeg, `{"user_id":"u-1","galaxy_id":"g-1","counter":1,"tx_id":"txA","issue_id":"iss-1"}`)
	postLeg(t, app.ProcessorLeg, `{"user_id":"u-1","galaxy_id":"g-1","counter":1,"tx_id":"txB","spend_usd":"9.00","sunshines":900}`)
	postLeg(t, app.InitiateLeg, `{"user_id":"u-1","galaxy_id":"g-1","counter":2,"tx_id":"txC"}`)
	store.PutPatch("p-1", "v-1", "iss-1", true)

	t.Run("donations default to completed", func(t *testing.T) {
		rr := httptest.NewRecorder()
		app.GalaxyDonations(rr, withURLParam(httptest.NewRequest(http.MethodGet, "/", nil), "galaxyID", "g-1"))
		var body struct {
			Items []donationView `json:"items"`
		}
		if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if rr.Code != http.StatusOK || len(body.Items) != 1 || body.Items[0].Counter != 1 {
			t.Fatalf("status %d items %+v, want the one completed donation", rr.Code, body.Items)
		}
	})

	t.Run("donations with pending status", func(t *testing.T) {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/?status=completed,pending-processor", nil)
		app.GalaxyDonations(rr, withURLParam(req, "galaxyID", "g-1"))
		var body struct {
			Items []donationView `json:"items"`
		}
		_ = json.NewDecoder(rr.Body).Decode(&body)
		if len(body.Items) != 2 {
			t.Fatalf("items = %d, want 2", len(body.Items))
		}
	})

	t.Run("donations unknown status", func(t *testing.T) {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/?status=refunded", nil)
		app.GalaxyDonations(rr, withURLParam(req, "galaxyID", "g-1"))
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rr.Code)
		}
	})

	t.Run("user balance", func(t *testing.T) {
		rr := httptest.NewRecorder()
		app.UserBalance(rr, withURLParam(httptest.NewRequest(http.MethodGet, "/", nil), "userID", "u-1"))
		var b balanceResponse
		_ = json.NewDecoder(rr.Body).Decode(&b)
		if b.Sunshines != 900 || b.Stars != 5 {
			t.Fatalf("balance = %+v, want 900/5", b)
		}
	})

	t.Run("issue solar forge", func(t *testing.T) {
		rr := httptest.NewRecorder()
		app.IssueSolarForge(rr, withURLParam(httptest.NewRequest(http.MethodGet, "/", nil), "issueID", "iss-1"))
		var res ledger.SolarForgeByIssueResult
		_ = json.NewDecoder(rr.Body).Decode(&res)
		if res.Error != "" || len(res.Users) != 1 || res.Users[0].Roles[0] != "maintainer" || res.Sunshines != 900 {
			t.Fatalf("solar forge = %+v", res)
		}
	})

	t.Run("version solar forge", func(t *testing.T) {
		rr := httptest.NewRecorder()
		app.VersionSolarForge(rr, withURLParam(httptest.NewRequest(http.MethodGet, "/", nil), "versionID", "v-1"))
		var res ledger.SolarForgeByVersionResult
		_ = json.NewDecoder(rr.Body).Decode(&res)
		if res.TotalIssues != 1 || res.TotalSunshines != 900 || res.TotalStars != 5 {
			t.Fatalf("version = %+v", res)
		}
	})

	t.Run("read failure", func(t *testing.T) {
		store.SetFailure(errors.New("connection refused"))
		defer store.SetFailure(nil)
		rr := httptest.NewRecorder()
		app.GalaxyBalance(rr, withURLParam(httptest.NewRequest(http.MethodGet, "/", nil), "galaxyID", "g-1"))
		if rr.Code != http.StatusServiceUnavailable {
			t.Fatalf("status = %d, want 503", rr.Code)
		}
	})
}

func TestHealth(t *testing.T) {
	app, _ := newTestApp(t)
	rr := httptest.NewRecorder()
	app.Health(rr, httptest.NewRequest(http.MethodGet, "/v1/healthz", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}

	app.Ping = func(context.Context) error { return errors.New("down") }
	rr = httptest.NewRecorder()
	app.Health(rr, httptest.NewRequest(http.MethodGet, "/v1/healthz", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rr.Code)
	}
}
