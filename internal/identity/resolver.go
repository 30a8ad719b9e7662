package identity

import (
	"strings"

	"github.com/google/uuid"

	pkgerrors "github.com/kledje/storefront-backend/pkg/errors"
)

// Resolve derives the owner key for a request. A signed-in user always wins
// over the session token so the same user sees one cart on every device.
func Resolve(userID *uuid.UUID, sessionToken string) (OwnerKey, error) {
	if userID != nil && *userID != uuid.Nil {
		return UserOwner(*userID), nil
	}
	token := strings.TrimSpace(sessionToken)
	if token == "" {
		return OwnerKey{}, pkgerrors.New(pkgerrors.CodeValidation, "session token or user is required")
	}
	if err := ValidateSessionToken(token); err != nil {
		return OwnerKey{}, err
	}
	return SessionOwner(token), nil
}

// NewSessionToken mints a new random session token.
func NewSessionToken() string {
	return uuid.NewString()
}

// ValidateSessionToken rejects tokens that are not canonical UUID strings.
func ValidateSessionToken(token string) error {
	parsed, err := uuid.Parse(token)
	if err != nil || parsed == uuid.Nil || parsed.String() != strings.ToLower(token) {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid session token")
	}
	return nil
}
