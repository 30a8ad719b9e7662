package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kledje/storefront-backend/internal/identity"
	"github.com/kledje/storefront-backend/internal/users"
	pkgAuth "github.com/kledje/storefront-backend/pkg/auth"
	"github.com/kledje/storefront-backend/pkg/auth/session"
	"github.com/kledje/storefront-backend/pkg/config"
	"github.com/kledje/storefront-backend/pkg/db/models"
	"github.com/kledje/storefront-backend/pkg/enums"
	pkgerrors "github.com/kledje/storefront-backend/pkg/errors"
	"github.com/kledje/storefront-backend/pkg/security"
)

var testJWT = config.JWTConfig{Secret: "secret", Issuer: "storefront", ExpirationMinutes: 30}

func TestServiceLoginIssuesCustomerToken(t *testing.T) {
	user := newUser(t, "0790000001", "s3cret!")
	svc, deps := buildTestService(t, user, false)
	token := identity.NewSessionToken()

	resp, err := svc.Login(context.Background(), LoginRequest{Phone: " 079 000 0001 ", Password: "s3cret!"}, token)
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	claims, err := pkgAuth.ParseAccessToken(testJWT, resp.AccessToken)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}
	if claims.Role != enums.UserRoleCustomer || claims.UserID != user.ID {
		t.Fatalf("unexpected claims %+v", claims)
	}
	if resp.RefreshToken == "" || deps.sessions.tokens[claims.ID] != resp.RefreshToken {
		t.Fatal("expected refresh token stored for jti")
	}
	if resp.User == nil || resp.User.IsAdmin || resp.User.LastLoginAt == nil {
		t.Fatalf("unexpected user payload %+v", resp.User)
	}
	if len(deps.events) != 1 || deps.events[0].Type != enums.AuthEventSignedIn || deps.events[0].SessionToken != token {
		t.Fatalf("expected signed_in event with session token, got %+v", deps.events)
	}
}

func TestServiceLoginAdminRole(t *testing.T) {
	user := newUser(t, "0790000002", "adminpw")
	svc, _ := buildTestService(t, user, true)

	resp, err := svc.Login(context.Background(), LoginRequest{Phone: user.Phone, Password: "adminpw"}, "")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if resp.Role != enums.UserRoleAdmin || !resp.User.IsAdmin {
		t.Fatalf("expected admin role, got %s", resp.Role)
	}
}

func TestServiceLoginRejectsBadCredentials(t *testing.T) {
	user := newUser(t, "0790000003", "correct")
	svc, deps := buildTestService(t, user, false)

	cases := []LoginRequest{
		{Phone: user.Phone, Password: "wrong-pass"},
		{Phone: "0000000", Password: "correct"},
		{Phone: "", Password: "correct"},
	}
	for _, req := range cases {
		_, err := svc.Login(context.Background(), req, "")
		if !pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
			t.Fatalf("expected unauthorized for %+v, got %v", req, err)
		}
	}
	if len(deps.events) != 0 {
		t.Fatalf("expected no events, got %d", len(deps.events))
	}
}

func TestServiceRegister(t *testing.T) {
	svc, deps := buildTestService(t, nil, false)

	_, err := svc.Register(context.Background(), RegisterRequest{Phone: "0791234567", Username: "lina", Password: "123"}, "")
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for short password, got %v", err)
	}

	resp, err := svc.Register(context.Background(), RegisterRequest{Phone: "0791234567", Username: " lina ", Password: "123456"}, "")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if resp.User.Username != "lina" || resp.Role != enums.UserRoleCustomer {
		t.Fatalf("unexpected response %+v", resp.User)
	}
	if ok, _ := security.VerifyPassword("123456", deps.users.user.PasswordHash); !ok {
		t.Fatal("expected stored hash to verify")
	}

	deps.users.createErr = errors.New("UNIQUE constraint failed: users.phone")
	_, err = svc.Register(context.Background(), RegisterRequest{Phone: "0791234567", Username: "x", Password: "123456"}, "")
	if !pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected conflict for duplicate phone, got %v", err)
	}
}

func TestServiceRefreshRotatesAndLogoutRevokes(t *testing.T) {
	user := newUser(t, "0790000004", "pw1234")
	svc, deps := buildTestService(t, user, false)
	ctx := context.Background()

	login, err := svc.Login(ctx, LoginRequest{Phone: user.Phone, Password: "pw1234"}, "")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	if _, err := svc.Refresh(ctx, login.AccessToken, "not-the-token"); !pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized for wrong refresh token, got %v", err)
	}

	pair, err := svc.Refresh(ctx, login.AccessToken, login.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if pair.RefreshToken == login.RefreshToken {
		t.Fatal("expected rotated refresh token")
	}
	if _, err := svc.Refresh(ctx, login.AccessToken, login.RefreshToken); err == nil {
		t.Fatal("expected old refresh token to be rejected")
	}

	if err := svc.Logout(ctx, pair.AccessToken, ""); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if len(deps.sessions.tokens) != 0 {
		t.Fatalf("expected sessions revoked, got %v", deps.sessions.tokens)
	}

	var types []enums.AuthEventType
	for _, e := range deps.events {
		types = append(types, e.Type)
	}
	want := []enums.AuthEventType{enums.AuthEventSignedIn, enums.AuthEventTokenRefreshed, enums.AuthEventSignedOut}
	if len(types) != len(want) {
		t.Fatalf("expected events %v, got %v", want, types)
	}
	for i := range want {
		if types[i] != want[i] {
			t.Fatalf("expected events %v, got %v", want, types)
		}
	}

	if err := svc.Logout(ctx, "garbage", ""); !pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized for bad token, got %v", err)
	}
}

func TestServiceSubscriberFailureDoesNotBlockLogin(t *testing.T) {
	user := newUser(t, "0790000005", "pw1234")
	svc, deps := buildTestService(t, user, false)
	deps.hub.Subscribe(func(context.Context, identity.Event) error { return errors.New("merge failed") })

	if _, err := svc.Login(context.Background(), LoginRequest{Phone: user.Phone, Password: "pw1234"}, identity.NewSessionToken()); err != nil {
		t.Fatalf("login should succeed despite subscriber error: %v", err)
	}
}

type testDeps struct {
	users    *stubUserRepo
	sessions *stubSessionManager
	hub      *identity.Hub
	events   []identity.Event
}

func buildTestService(t *testing.T, user *models.User, isAdmin bool) (Service, *testDeps) {
	t.Helper()
	deps := &testDeps{
		users:    &stubUserRepo{user: user, admin: isAdmin},
		sessions: &stubSessionManager{tokens: map[string]string{}},
		hub:      identity.NewHub(),
	}
	deps.hub.Subscribe(func(_ context.Context, event identity.Event) error {
		deps.events = append(deps.events, event)
		return nil
	})
	svc, err := NewService(ServiceParams{
		UserRepo:       deps.users,
		SessionManager: deps.sessions,
		Events:         deps.hub,
		JWTConfig:      testJWT,
	})
	if err != nil {
		t.Fatalf("build service: %v", err)
	}
	return svc, deps
}

func newUser(t *testing.T, phone, password string) *models.User {
	t.Helper()
	hash, err := security.HashPassword(password, config.PasswordConfig{})
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return &models.User{ID: uuid.New(), Phone: phone, Username: "user", PasswordHash: hash}
}

type stubUserRepo struct {
	user      *models.User
	admin     bool
	createErr error
}

func (s *stubUserRepo) Create(_ context.Context, dto users.CreateUserDTO) (*models.User, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	user := dto.ToModel()
	user.ID = uuid.New()
	s.user = user
	return user, nil
}

func (s *stubUserRepo) FindByPhone(_ context.Context, phone string) (*models.User, error) {
	if s.user == nil || s.user.Phone != phone {
		return nil, gorm.ErrRecordNotFound
	}
	return s.user, nil
}

func (s *stubUserRepo) UpdateLastLogin(context.Context, uuid.UUID, time.Time) error {
	return nil
}

func (s *stubUserRepo) IsAdmin(context.Context, uuid.UUID) (bool, error) {
	return s.admin, nil
}

type stubSessionManager struct {
	tokens map[string]string
}

func (s *stubSessionManager) Generate(_ context.Context, accessID string) (string, error) {
	token := "refresh-" + uuid.NewString()
	s.tokens[accessID] = token
	return token, nil
}

func (s *stubSessionManager) Rotate(ctx context.Context, oldAccessID, provided string) (string, string, error) {
	stored, ok := s.tokens[oldAccessID]
	if !ok || stored != provided {
		return "", "", session.ErrInvalidRefreshToken
	}
	delete(s.tokens, oldAccessID)
	newID := session.NewAccessID()
	token, _ := s.Generate(ctx, newID)
	return newID, token, nil
}

func (s *stubSessionManager) Revoke(_ context.Context, accessID string) error {
	delete(s.tokens, accessID)
	return nil
}
