package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/kledje/storefront-backend/api/responses"
	"github.com/kledje/storefront-backend/internal/identity"
	"github.com/kledje/storefront-backend/pkg/enums"
	pkgerrors "github.com/kledje/storefront-backend/pkg/errors"
	"github.com/kledje/storefront-backend/pkg/logger"
)

// ResolveOwner builds the request Identity from the authenticated user (if any)
// and the cart session token. It must run after OptionalAuth/Auth and CartSession.
func ResolveOwner(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			who := identity.Identity{
				SessionToken: SessionTokenFromContext(ctx),
			}

			if raw := UserIDFromContext(ctx); raw != "" {
				userID, err := uuid.Parse(raw)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user id"))
					return
				}
				who.UserID = &userID
				if role, err := enums.ParseUserRole(RoleFromContext(ctx)); err == nil {
					who.Role = role
				} else {
					who.Role = enums.UserRoleCustomer
				}
			}

			owner, err := identity.Resolve(who.UserID, who.SessionToken)
			if err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}
			who.Owner = owner

			ctx = identity.WithIdentity(ctx, who)
			if logg != nil {
				ctx = logg.WithOwnerKey(ctx, owner.String())
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
