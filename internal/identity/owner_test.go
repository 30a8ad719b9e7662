package identity

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/kledje/storefront-backend/pkg/enums"
	pkgerrors "github.com/kledje/storefront-backend/pkg/errors"
)

func TestResolvePrefersUser(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	token := NewSessionToken()

	key, err := Resolve(&userID, token)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if key.Kind != enums.OwnerKindUser || key.Value != userID.String() {
		t.Fatalf("expected user owner, got %+v", key)
	}
	if key.String() != "user:"+userID.String() {
		t.Fatalf("unexpected owner string %q", key.String())
	}
}

func TestResolveFallsBackToSession(t *testing.T) {
	t.Parallel()

	token := NewSessionToken()
	key, err := Resolve(nil, token)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if key.String() != "session:"+token {
		t.Fatalf("unexpected owner string %q", key.String())
	}
	if _, ok := key.UserID(); ok {
		t.Fatal("session owner should not expose a user id")
	}

	nilID := uuid.Nil
	key, err = Resolve(&nilID, token)
	if err != nil || key.Kind != enums.OwnerKindSession {
		t.Fatalf("expected nil user id to fall back to session, got %+v err=%v", key, err)
	}
}

func TestResolveRequiresIdentity(t *testing.T) {
	t.Parallel()

	_, err := Resolve(nil, "  ")
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	_, err = Resolve(nil, "not-a-token")
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for malformed token, got %v", err)
	}
}

func TestNewSessionTokenUnique(t *testing.T) {
	t.Parallel()

	seen := make(map[string]struct{}, 100)
	for i := 0; i < 100; i++ {
		token := NewSessionToken()
		if err := ValidateSessionToken(token); err != nil {
			t.Fatalf("generated token %q failed validation: %v", token, err)
		}
		if _, dup := seen[token]; dup {
			t.Fatalf("duplicate token %q", token)
		}
		seen[token] = struct{}{}
	}
}

func TestParseOwnerKeyRoundTrip(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	cases := []OwnerKey{UserOwner(userID), SessionOwner(NewSessionToken())}
	for _, want := range cases {
		got, err := ParseOwnerKey(want.String())
		if err != nil {
			t.Fatalf("parse %q: %v", want.String(), err)
		}
		if got != want {
			t.Fatalf("expected %+v, got %+v", want, got)
		}
	}

	for _, raw := range []string{"", "user", "guest:abc", "user:nope", "session:"} {
		if _, err := ParseOwnerKey(raw); err == nil {
			t.Fatalf("expected error for %q", raw)
		}
	}
}

func TestIdentityContext(t *testing.T) {
	t.Parallel()

	if _, ok := FromContext(context.Background()); ok {
		t.Fatal("expected no identity on empty context")
	}

	userID := uuid.New()
	id := Identity{UserID: &userID, Owner: UserOwner(userID), Role: enums.UserRoleAdmin}
	ctx := WithIdentity(context.Background(), id)

	got, ok := FromContext(ctx)
	if !ok {
		t.Fatal("expected identity on context")
	}
	if got.Owner != id.Owner || !got.IsAuthenticated() || !got.IsAdmin() {
		t.Fatalf("unexpected identity %+v", got)
	}

	guest := Identity{SessionToken: NewSessionToken(), Role: enums.UserRoleAdmin}
	if guest.IsAdmin() {
		t.Fatal("guest identity must never be admin")
	}
}
