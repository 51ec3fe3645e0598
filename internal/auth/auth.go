// Package auth resolves bearer tokens to principals and guards routes by role.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/safar/storefront/internal/database"
	"github.com/safar/storefront/internal/models"
)

// Principal is the authenticated caller.
type Principal struct {
	UserID int64
	Role   string
}

type contextKey struct{}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, contextKey{}, p)
}

func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(contextKey{}).(Principal)
	return p, ok && p.UserID > 0
}

// TokenResolver looks up the user that owns an API token.
type TokenResolver interface {
	UserForToken(ctx context.Context, token string) (*models.User, error)
}

// Middleware rejects requests without a valid "Authorization: Bearer" token
// and stores the caller's Principal in the request context.
func Middleware(resolver TokenResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				reject(w, http.StatusUnauthorized, "Unauthenticated")
				return
			}

			user, err := resolver.UserForToken(r.Context(), token)
			if err != nil {
				if errors.Is(err, database.ErrTokenNotFound) {
					reject(w, http.StatusUnauthorized, "Unauthenticated")
					return
				}
				zerolog.Ctx(r.Context()).Error().Err(err).Msg("resolve token")
				reject(w, http.StatusInternalServerError, "Internal server error")
				return
			}

			ctx := WithPrincipal(r.Context(), Principal{UserID: user.ID, Role: user.Role})
			zerolog.Ctx(ctx).UpdateContext(func(c zerolog.Context) zerolog.Context {
				return c.Int64("user_id", user.ID)
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole allows only principals holding one of roles.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := PrincipalFrom(r.Context())
			if !ok {
				reject(w, http.StatusUnauthorized, "Unauthenticated")
				return
			}
			for _, role := range roles {
				if p.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			reject(w, http.StatusForbidden, "Forbidden")
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func reject(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "message": message})
}
