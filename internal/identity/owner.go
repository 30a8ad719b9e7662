package identity

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/kledje/storefront-backend/pkg/enums"
)

// OwnerKey identifies whose cart a request operates on. Exactly one of a user
// id or a session token backs it.
type OwnerKey struct {
	Kind  enums.OwnerKind
	Value string
}

// UserOwner keys a cart by an authenticated user id.
func UserOwner(id uuid.UUID) OwnerKey {
	return OwnerKey{Kind: enums.OwnerKindUser, Value: id.String()}
}

// SessionOwner keys a cart by an anonymous session token.
func SessionOwner(token string) OwnerKey {
	return OwnerKey{Kind: enums.OwnerKindSession, Value: token}
}

// String renders the key as "user:<id>" or "session:<token>".
func (k OwnerKey) String() string {
	if k.IsZero() {
		return ""
	}
	return string(k.Kind) + ":" + k.Value
}

// IsZero reports whether the key is unset.
func (k OwnerKey) IsZero() bool {
	return k.Kind == "" && k.Value == ""
}

// IsUser reports whether the key belongs to a signed-in user.
func (k OwnerKey) IsUser() bool {
	return k.Kind == enums.OwnerKindUser
}

// UserID returns the parsed user id for user keys.
func (k OwnerKey) UserID() (uuid.UUID, bool) {
	if k.Kind != enums.OwnerKindUser {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(k.Value)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// Validate checks the key is well formed.
func (k OwnerKey) Validate() error {
	if !k.Kind.IsValid() {
		return fmt.Errorf("invalid owner kind %q", k.Kind)
	}
	switch k.Kind {
	case enums.OwnerKindUser:
		if _, err := uuid.Parse(k.Value); err != nil {
			return fmt.Errorf("invalid user id %q", k.Value)
		}
	case enums.OwnerKindSession:
		if err := ValidateSessionToken(k.Value); err != nil {
			return err
		}
	}
	return nil
}

// ParseOwnerKey is the inverse of OwnerKey.String.
func ParseOwnerKey(raw string) (OwnerKey, error) {
	kind, value, ok := strings.Cut(strings.TrimSpace(raw), ":")
	if !ok {
		return OwnerKey{}, fmt.Errorf("invalid owner key %q", raw)
	}
	parsedKind, err := enums.ParseOwnerKind(kind)
	if err != nil {
		return OwnerKey{}, err
	}
	key := OwnerKey{Kind: parsedKind, Value: value}
	if err := key.Validate(); err != nil {
		return OwnerKey{}, err
	}
	return key, nil
}
