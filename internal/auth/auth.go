package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Identity is the caller's authenticated binding: a user and the team they
// act for. The pick transaction's turn check runs against TeamID.
type Identity struct {
	UserID string
	TeamID uuid.UUID
	Email  string
}

type contextKey struct{}

// FromContext returns the identity put there by Middleware. ok is false for
// unauthenticated (spectator) requests.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(contextKey{}).(Identity)
	return id, ok
}

// Verifier validates bearer tokens. Tokens are issued elsewhere; this
// service only verifies them.
type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

type claims struct {
	TeamID string `json:"team_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// Verify parses and validates a token, returning the caller's identity.
func (v *Verifier) Verify(tokenString string) (Identity, error) {
	token, err := jwt.ParseWithClaims(tokenString, &claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return Identity{}, fmt.Errorf("invalid token: %w", err)
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return Identity{}, fmt.Errorf("invalid token claims")
	}

	id := Identity{UserID: c.Subject, Email: c.Email}
	if c.TeamID != "" {
		teamID, err := uuid.Parse(c.TeamID)
		if err != nil {
			return Identity{}, fmt.Errorf("invalid team_id claim: %w", err)
		}
		id.TeamID = teamID
	}
	return id, nil
}

// Sign mints a token for the given identity. Used by tests and local
// tooling; production tokens come from the auth service.
func (v *Verifier) Sign(id Identity, ttl time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		TeamID: id.TeamID.String(),
		Email:  id.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})
	return token.SignedString(v.secret)
}

// Middleware attaches the caller's identity to the request context when a
// valid bearer token is present. Requests without a token pass through as
// spectators; handlers that mutate state use RequireTeam.
func (v *Verifier) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if token == "" || token == r.Header.Get("Authorization") {
			// Browser WebSocket clients can't set headers; accept the token
			// as a query parameter there.
			token = r.URL.Query().Get("token")
		}
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}

		identity, err := v.Verify(token)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), contextKey{}, identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireTeam rejects requests whose caller has no team binding.
func RequireTeam(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, ok := FromContext(r.Context())
		if !ok || identity.TeamID == uuid.Nil {
			http.Error(w, "team authentication required", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}
