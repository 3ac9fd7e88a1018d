package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	models "storefront/model"
	"storefront/store"
)

var (
	ErrNoToken      = errors.New("no bearer token")
	ErrInvalidToken = errors.New("invalid or expired token")
)

// Verifier checks HS256 access tokens issued by the hosted auth provider.
// The user id is the token subject.
type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Verify returns the user id carried by token.
func (v *Verifier) Verify(token string) (uuid.UUID, error) {
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid token signing method")
		}
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !parsed.Valid {
		return uuid.Nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	id, err := uuid.Parse(claims.Subject)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, fmt.Errorf("%w: subject %q is not a user id", ErrInvalidToken, claims.Subject)
	}
	return id, nil
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header.
func BearerToken(r *http.Request) (string, error) {
	h := r.Header.Get("Authorization")
	if h == "" {
		return "", ErrNoToken
	}
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", ErrInvalidToken
	}
	return strings.TrimSpace(token), nil
}

type ctxKey struct{}

// WithUser returns a context carrying the signed-in user id.
func WithUser(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// UserFrom returns the signed-in user id, or uuid.Nil and false for a guest.
func UserFrom(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(ctxKey{}).(uuid.UUID)
	return id, ok && id != uuid.Nil
}

// Middleware authenticates the request when it carries a bearer token.
// Requests without one continue as guests; a bad token is rejected with 401.
func Middleware(v *Verifier, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := BearerToken(r)
			if errors.Is(err, ErrNoToken) {
				next.ServeHTTP(w, r)
				return
			}
			if err == nil {
				var id uuid.UUID
				if id, err = v.Verify(token); err == nil {
					next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), id)))
					return
				}
			}
			logger.Debug("rejecting token", "path", r.URL.Path, "error", err)
			deny(w, http.StatusUnauthorized, "Invalid or expired token")
		})
	}
}

// ProfileReader looks up a user's profile row.
type ProfileReader interface {
	GetProfile(ctx context.Context, id uuid.UUID) (models.Profile, error)
}

// RequireAdmin lets a request through only when the signed-in user's profile has the admin role.
func RequireAdmin(profiles ProfileReader, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := UserFrom(r.Context())
			if !ok {
				deny(w, http.StatusUnauthorized, "Authentication required")
				return
			}
			p, err := profiles.GetProfile(r.Context(), id)
			switch {
			case errors.Is(err, store.ErrNotFound):
				deny(w, http.StatusForbidden, "Admin access required")
				return
			case err != nil:
				logger.Error("loading profile", "user_id", id, "error", err)
				deny(w, http.StatusBadGateway, "Could not verify permissions")
				return
			}
			if !p.IsAdmin() {
				logger.Warn("non-admin on admin route", "user_id", id, "path", r.URL.Path)
				deny(w, http.StatusForbidden, "Admin access required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func deny(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
