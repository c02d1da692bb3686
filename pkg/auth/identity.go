// Package auth issues session tokens and carries the caller's identity
// through the request context.
package auth

import "context"

// RoleAdmin is the only role that passes the admin gate.
const RoleAdmin = "admin"

// Identity is the authenticated caller as loaded from the users table for
// the current request.
type Identity struct {
	UserID uint
	OpenID string
	Name   string
	Email  string
	Role   string
}

// IsAdmin reports whether the caller holds the admin role.
func (i *Identity) IsAdmin() bool { return i != nil && i.Role == RoleAdmin }

type ctxKey struct{}

// WithIdentity stores id in ctx.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the caller identity, or (nil, false) for anonymous requests.
func FromContext(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(*Identity)
	return id, ok && id != nil
}

// UserIDPtr returns the caller's user id, or nil when anonymous.
func UserIDPtr(ctx context.Context) *uint {
	id, ok := FromContext(ctx)
	if !ok {
		return nil
	}
	uid := id.UserID
	return &uid
}
