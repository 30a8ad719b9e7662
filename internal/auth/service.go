package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kledje/storefront-backend/internal/identity"
	"github.com/kledje/storefront-backend/internal/users"
	"github.com/kledje/storefront-backend/pkg/auth"
	"github.com/kledje/storefront-backend/pkg/auth/session"
	"github.com/kledje/storefront-backend/pkg/config"
	"github.com/kledje/storefront-backend/pkg/db"
	"github.com/kledje/storefront-backend/pkg/db/models"
	"github.com/kledje/storefront-backend/pkg/enums"
	pkgerrors "github.com/kledje/storefront-backend/pkg/errors"
	"github.com/kledje/storefront-backend/pkg/logger"
	"github.com/kledje/storefront-backend/pkg/security"
)

const invalidCredentialsMessage = "invalid credentials"

// Service defines the behavior needed by the auth controllers. sessionToken is
// the caller's anonymous cart token, forwarded to sign-in subscribers.
type Service interface {
	Register(ctx context.Context, req RegisterRequest, sessionToken string) (*AuthResponse, error)
	Login(ctx context.Context, req LoginRequest, sessionToken string) (*AuthResponse, error)
	Refresh(ctx context.Context, accessToken, refreshToken string) (*TokenPair, error)
	Logout(ctx context.Context, accessToken, sessionToken string) error
}

type userRepository interface {
	Create(ctx context.Context, dto users.CreateUserDTO) (*models.User, error)
	FindByPhone(ctx context.Context, phone string) (*models.User, error)
	UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
	IsAdmin(ctx context.Context, id uuid.UUID) (bool, error)
}

type sessionManager interface {
	Generate(ctx context.Context, accessID string) (string, error)
	Rotate(ctx context.Context, oldAccessID, provided string) (string, string, error)
	Revoke(ctx context.Context, accessID string) error
}

// ServiceParams bundles the dependencies required to build an auth service.
type ServiceParams struct {
	UserRepo       userRepository
	SessionManager sessionManager
	Events         identity.Publisher
	JWTConfig      config.JWTConfig
	PasswordConfig config.PasswordConfig
	Logger         *logger.Logger
}

type service struct {
	users   userRepository
	session sessionManager
	events  identity.Publisher
	jwtCfg  config.JWTConfig
	passCfg config.PasswordConfig
	logg    *logger.Logger
	now     func() time.Time
}

// NewService constructs the auth service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.UserRepo == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	if params.SessionManager == nil {
		return nil, fmt.Errorf("session manager is required")
	}
	if params.Events == nil {
		return nil, fmt.Errorf("identity event publisher is required")
	}
	return &service{
		users:   params.UserRepo,
		session: params.SessionManager,
		events:  params.Events,
		jwtCfg:  params.JWTConfig,
		passCfg: params.PasswordConfig,
		logg:    params.Logger,
		now:     func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) Register(ctx context.Context, req RegisterRequest, sessionToken string) (*AuthResponse, error) {
	phone := normalizePhone(req.Phone)
	username := strings.TrimSpace(req.Username)
	if phone == "" || username == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "phone and username are required")
	}
	if err := security.CheckPassword(req.Password); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error())
	}

	hash, err := security.HashPassword(req.Password, s.passCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}
	user, err := s.users.Create(ctx, users.CreateUserDTO{
		Phone:        phone,
		Username:     username,
		PasswordHash: hash,
	})
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "phone already registered")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create user")
	}
	return s.signIn(ctx, user, enums.UserRoleCustomer, sessionToken)
}

func (s *service) Login(ctx context.Context, req LoginRequest, sessionToken string) (*AuthResponse, error) {
	user, err := s.authenticate(ctx, req.Phone, req.Password)
	if err != nil {
		return nil, err
	}
	isAdmin, err := s.users.IsAdmin(ctx, user.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup admin")
	}
	role := enums.UserRoleCustomer
	if isAdmin {
		role = enums.UserRoleAdmin
	}
	return s.signIn(ctx, user, role, sessionToken)
}

// Refresh rotates the refresh token bound to the (possibly expired) access
// token and mints a replacement access token with the same role.
func (s *service) Refresh(ctx context.Context, accessToken, refreshToken string) (*TokenPair, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "refresh_token is required")
	}
	claims, err := s.parseClaims(accessToken)
	if err != nil {
		return nil, err
	}

	newAccessID, newRefresh, err := s.session.Rotate(ctx, claims.ID, refreshToken)
	if err != nil {
		if errors.Is(err, session.ErrInvalidRefreshToken) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid refresh token")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rotate session")
	}

	signed, err := auth.MintAccessToken(s.jwtCfg, s.now(), auth.AccessTokenPayload{
		UserID: claims.UserID,
		Role:   claims.Role,
		JTI:    newAccessID,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}

	s.publish(ctx, identity.Event{Type: enums.AuthEventTokenRefreshed, UserID: claims.UserID, Role: claims.Role})
	return &TokenPair{AccessToken: signed, RefreshToken: newRefresh}, nil
}

func (s *service) Logout(ctx context.Context, accessToken, sessionToken string) error {
	claims, err := s.parseClaims(accessToken)
	if err != nil {
		return err
	}
	if err := s.session.Revoke(ctx, claims.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revoke session")
	}
	s.publish(ctx, identity.Event{
		Type:         enums.AuthEventSignedOut,
		UserID:       claims.UserID,
		SessionToken: sessionToken,
		Role:         claims.Role,
	})
	return nil
}

func (s *service) parseClaims(accessToken string) (*auth.AccessTokenClaims, error) {
	token := strings.TrimSpace(accessToken)
	if token == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	claims, err := auth.ParseAccessTokenAllowExpired(s.jwtCfg, token)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token")
	}
	if claims.ID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session id")
	}
	return claims, nil
}

func (s *service) authenticate(ctx context.Context, phone, password string) (*models.User, error) {
	input := normalizePhone(phone)
	if input == "" || password == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	user, err := s.users.FindByPhone(ctx, input)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup user")
	}

	valid, err := security.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !valid {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	return user, nil
}

func (s *service) signIn(ctx context.Context, user *models.User, role enums.UserRole, sessionToken string) (*AuthResponse, error) {
	now := s.now()
	if err := s.users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update last login")
	}
	user.LastLoginAt = &now

	accessID := session.NewAccessID()
	accessToken, err := auth.MintAccessToken(s.jwtCfg, now, auth.AccessTokenPayload{
		UserID: user.ID,
		Role:   role,
		JTI:    accessID,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}
	refreshToken, err := s.session.Generate(ctx, accessID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store refresh token")
	}

	s.publish(ctx, identity.Event{
		Type:         enums.AuthEventSignedIn,
		UserID:       user.ID,
		SessionToken: sessionToken,
		Role:         role,
		OccurredAt:   now,
	})

	return &AuthResponse{
		TokenPair: TokenPair{AccessToken: accessToken, RefreshToken: refreshToken},
		Role:      role,
		User:      users.FromModel(user, role == enums.UserRoleAdmin),
	}, nil
}

// publish never fails the auth transition; subscriber errors are logged.
func (s *service) publish(ctx context.Context, event identity.Event) {
	if err := s.events.Publish(ctx, event); err != nil && s.logg != nil {
		logCtx := s.logg.WithUserID(ctx, event.UserID.String())
		logCtx = s.logg.WithFields(logCtx, map[string]any{
			"event": string(event.Type),
			"error": err.Error(),
		})
		s.logg.Warn(logCtx, "auth event subscriber failed")
	}
}

func normalizePhone(phone string) string {
	return strings.Join(strings.Fields(phone), "")
}
