package identity

import (
	"context"

	"github.com/google/uuid"

	"github.com/kledje/storefront-backend/pkg/enums"
)

// Identity is the per-request view of who is calling. It is built once by
// middleware and read by handlers.
type Identity struct {
	UserID       *uuid.UUID
	SessionToken string
	Owner        OwnerKey
	Role         enums.UserRole
}

// IsAuthenticated reports whether a user id backs the identity.
func (i Identity) IsAuthenticated() bool {
	return i.UserID != nil && *i.UserID != uuid.Nil
}

// IsAdmin reports whether the identity carries the admin role.
func (i Identity) IsAdmin() bool {
	return i.IsAuthenticated() && i.Role == enums.UserRoleAdmin
}

type ctxKey struct{}

// WithIdentity stores the identity on the context.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the identity placed by middleware.
func FromContext(ctx context.Context) (Identity, bool) {
	if ctx == nil {
		return Identity{}, false
	}
	id, ok := ctx.Value(ctxKey{}).(Identity)
	return id, ok
}
