package httpapi

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"solarforge/internal/adapter/memstore"
	"solarforge/internal/http/handlers"
	"solarforge/internal/ledger"
	"solarforge/internal/middleware"
)

const testSecret = "router-secret"

func newTestRouter(t *testing.T, limit int) http.Handler {
	t.Helper()
	store := memstore.New(uuid.NewString)
	opts := ledger.Options{Logger: zerolog.Nop(), NewID: uuid.NewString, ExpiryWindow: time.Hour}
	app := handlers.NewApp(ledger.NewService(store, opts), ledger.NewQuery(store, memstore.NewDirectory(), zerolog.Nop()), zerolog.Nop())
	return NewRouter(app, RouterOptions{
		LegsJWTSecret:  testSecret,
		Limiter:        middleware.NewMemoryLimiter(limit, time.Minute),
		AllowedOrigins: []string{"https://dash.example"},
		Logger:         zerolog.Nop(),
	})
}

func TestRouterLegsRequireToken(t *testing.T) {
	router := newTestRouter(t, 100)
	body := `{"user_id":"u-1","galaxy_id":"g-1","counter":1,"tx_id":"txA"}`

	req := httptest.NewRequest(http.MethodPost, "/v1/legs/initiate", strings.NewReader(body))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("without token: status %d, want 401", rr.Code)
	}

	token, err := middleware.SignJWT(testSecret, "initiation-service", middleware.ScopeLegsWrite, time.Minute)
	if err != nil {
		t.Fatalf("SignJWT: %v", err)
	}
	req = httptest.NewRequest(http.MethodPost, "/v1/legs/initiate", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+token)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusCreated {
		t.Fatalf("with token: status %d, want 201 (body %s)", rr.Code, rr.Body.String())
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Fatalf("missing X-Request-ID header")
	}
}

func TestRouterReadsAreRateLimited(t *testing.T) {
	router := newTestRouter(t, 2)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/v1/users/u-1/balance", nil)
		req.RemoteAddr = "203.0.113.9:5555"
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		codes = append(codes, rr.Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Fatalf("status codes = %v, want [200 200 429]", codes)
	}
}

func TestRouterCORSPreflight(t *testing.T) {
	router := newTestRouter(t, 100)
	req := httptest.NewRequest(http.MethodOptions, "/v1/galaxies/g-1/donations", nil)
	req.Header.Set("Origin", "https://dash.example")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("preflight status %d, want 204", rr.Code)
	}
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "https://dash.example" {
		t.Fatalf("Access-Control-Allow-Origin = %q", got)
	}
}

func TestRouterHealthAndMetrics(t *testing.T) {
	router := newTestRouter(t, 100)
	for _, path := range []string{"/v1/healthz", "/metrics"} {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		if rr.Code != http.StatusOK {
			t.Fatalf("GET %s: status %d, want 200", path, rr.Code)
		}
	}
}
