package controllers

import (
	"net/http"

	"github.com/kledje/storefront-backend/internal/identity"
	pkgerrors "github.com/kledje/storefront-backend/pkg/errors"
)

// requestIdentity returns the identity built by middleware.ResolveOwner.
func requestIdentity(r *http.Request) (identity.Identity, error) {
	who, ok := identity.FromContext(r.Context())
	if !ok || who.Owner.IsZero() {
		return identity.Identity{}, pkgerrors.New(pkgerrors.CodeInternal, "request identity unavailable")
	}
	return who, nil
}

func signedInIdentity(r *http.Request) (identity.Identity, error) {
	who, err := requestIdentity(r)
	if err != nil {
		return who, err
	}
	if !who.IsAuthenticated() {
		return who, pkgerrors.New(pkgerrors.CodeUnauthorized, "sign in required")
	}
	return who, nil
}
