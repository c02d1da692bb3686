package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/humanebio/storefront/pkg/apperr"
	"github.com/humanebio/storefront/pkg/auth"
	"github.com/humanebio/storefront/pkg/logger"
	"github.com/humanebio/storefront/pkg/response"
)

// IdentityLookup loads the current state of a user by id.
type IdentityLookup func(ctx context.Context, userID uint) (*auth.Identity, error)

type holderKey struct{}

func withHolder(ctx context.Context, h *identityHolder) context.Context {
	return context.WithValue(ctx, holderKey{}, h)
}

// Authenticate resolves the session token (cookie first, then a Bearer
// header) to an Identity and stores it in the request context. Requests
// without a valid session continue anonymously; RequireAuth and the rbac
// gate decide what anonymous callers may do.
//
// The role is read through lookup on every request, so a demotion takes
// effect immediately.
func Authenticate(cookieName string, lookup IdentityLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := sessionToken(r, cookieName)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := auth.ValidateToken(token)
			if err != nil {
				logger.WithCtx(r.Context()).Debug("invalid session token", "error", err)
				next.ServeHTTP(w, r)
				return
			}

			id, err := lookup(r.Context(), claims.UserID)
			if err != nil {
				if !errors.Is(err, apperr.ErrNotFound) {
					logger.WithCtx(r.Context()).Warn("identity lookup failed", "user_id", claims.UserID, "error", err)
				}
				next.ServeHTTP(w, r)
				return
			}

			if h, ok := r.Context().Value(holderKey{}).(*identityHolder); ok {
				h.id = id
			}
			next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), id)))
		})
	}
}

// RequireAuth rejects anonymous callers with 401.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := auth.FromContext(r.Context()); !ok {
			response.Unauthorized(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func sessionToken(r *http.Request, cookieName string) string {
	if c, err := r.Cookie(cookieName); err == nil && c.Value != "" {
		return c.Value
	}
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return ""
}
