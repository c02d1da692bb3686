// Package rbac is the admin authorization gate.
package rbac

import (
	"net/http"

	"github.com/humanebio/storefront/pkg/apperr"
	"github.com/humanebio/storefront/pkg/auth"
	"github.com/humanebio/storefront/pkg/response"
)

// Authorize is the gate predicate: anonymous callers get Unauthorized,
// authenticated callers without the admin role get Forbidden.
func Authorize(id *auth.Identity) error {
	if id == nil {
		return apperr.New(apperr.Unauthorized, "rbac.authorize", "Please login")
	}
	if !id.IsAdmin() {
		return apperr.New(apperr.Forbidden, "rbac.authorize", "Admin access required")
	}
	return nil
}

// RequireAdmin runs Authorize against the identity Authenticate stored in the
// request context. A rejected request never reaches the handler.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, _ := auth.FromContext(r.Context())
		if err := Authorize(id); err != nil {
			response.Fail(w, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}
