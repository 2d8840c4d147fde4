package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ScopeLegsWrite is required by collaborators posting leg confirmations.
const ScopeLegsWrite = "legs:write"

var ErrInvalidToken = errors.New("invalid token")

// CollaboratorClaims identifies the upstream service calling the leg endpoints.
type CollaboratorClaims struct {
	Scope string `json:"scope"`
	jwt.RegisteredClaims
}

// HasScope reports whether the space separated scope claim contains want.
func (c *CollaboratorClaims) HasScope(want string) bool {
	for _, s := range strings.Fields(c.Scope) {
		if s == want {
			return true
		}
	}
	return false
}

type subjectKey string

const (
	collaboratorKey subjectKey = "collaborator"
)

// SignJWT issues an HS256 collaborator token.
func SignJWT(secret, subject, scope string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := CollaboratorClaims{
		Scope: scope,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func VerifyJWT(secret, token string) (*CollaboratorClaims, error) {
	claims := new(CollaboratorClaims)
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	parsed, err := parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return []byte(secret), nil
	})
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// AuthJWT rejects requests without a bearer token carrying the given scope.
func AuthJWT(secret, scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeError(w, http.StatusUnauthorized, "unauthorized", "missing authorization")
				return
			}
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				writeError(w, http.StatusUnauthorized, "unauthorized", "invalid authorization")
				return
			}
			claims, err := VerifyJWT(secret, strings.TrimSpace(parts[1]))
			if err != nil {
				writeError(w, http.StatusUnauthorized, "unauthorized", "invalid token")
				return
			}
			if !claims.HasScope(scope) {
				writeError(w, http.StatusForbidden, "forbidden", "missing scope "+scope)
				return
			}
			ctx := context.WithValue(r.Context(), collaboratorKey, claims.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// CollaboratorFromContext returns the authenticated token subject.
func CollaboratorFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(collaboratorKey).(string); ok {
		return v
	}
	return ""
}
