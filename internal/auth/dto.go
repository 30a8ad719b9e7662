package auth

import (
	"github.com/kledje/storefront-backend/internal/users"
	"github.com/kledje/storefront-backend/pkg/enums"
)

// RegisterRequest captures the sign-up form.
type RegisterRequest struct {
	Phone    string `json:"phone" validate:"required,min=6,max=32"`
	Username string `json:"username" validate:"required,max=80"`
	Password string `json:"password" validate:"required"`
}

// LoginRequest captures the user credentials sent to the login endpoint.
type LoginRequest struct {
	Phone    string `json:"phone" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// TokenPair is returned by login, register and refresh.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// AuthResponse contains the tokens and user produced by a successful sign-in.
type AuthResponse struct {
	TokenPair
	Role enums.UserRole `json:"role"`
	User *users.UserDTO `json:"user"`
}
