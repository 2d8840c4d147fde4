package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestAuthJWT(t *testing.T) {
	const secret = "test-secret"

	valid, err := SignJWT(secret, "payments-gateway", "legs:write reports:read", time.Hour)
	if err != nil {
		t.Fatalf("SignJWT: %v", err)
	}
	noScope, _ := SignJWT(secret, "dashboard", "reports:read", time.Hour)
	expired, _ := SignJWT(secret, "payments-gateway", ScopeLegsWrite, -time.Minute)
	wrongKey, _ := SignJWT("other-secret", "payments-gateway", ScopeLegsWrite, time.Hour)
	noExp, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, CollaboratorClaims{
		Scope:            ScopeLegsWrite,
		RegisteredClaims: jwt.RegisteredClaims{Subject: "payments-gateway"},
	}).SignedString([]byte(secret))

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{name: "valid", header: "Bearer " + valid, want: http.StatusNoContent},
		{name: "lowercase scheme", header: "bearer " + valid, want: http.StatusNoContent},
		{name: "missing header", header: "", want: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic " + valid, want: http.StatusUnauthorized},
		{name: "expired", header: "Bearer " + expired, want: http.StatusUnauthorized},
		{name: "wrong key", header: "Bearer " + wrongKey, want: http.StatusUnauthorized},
		{name: "no expiry", header: "Bearer " + noExp, want: http.StatusUnauthorized},
		{name: "missing scope", header: "Bearer " + noScope, want: http.StatusForbidden},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var subject string
			h := AuthJWT(secret, ScopeLegsWrite)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				subject = CollaboratorFromContext(r.Context())
				w.WriteHeader(http.StatusNoContent)
			}))
			req := httptest.NewRequest(http.MethodPost, "/v1/legs/initiate", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)
			if rr.Code != tc.want {
				t.Fatalf("status = %d, want %d", rr.Code, tc.want)
			}
			if tc.want == http.StatusNoContent && subject != "payments-gateway" {
				t.Fatalf("subject = %q, want payments-gateway", subject)
			}
		})
	}
}

func TestCollaboratorClaimsHasScope(t *testing.T) {
	c := CollaboratorClaims{Scope: "reports:read  legs:write"}
	if !c.HasScope(ScopeLegsWrite) {
		t.Fatalf("HasScope(%q) = false", ScopeLegsWrite)
	}
	if c.HasScope("legs") {
		t.Fatalf("HasScope matched a prefix")
	}
}
