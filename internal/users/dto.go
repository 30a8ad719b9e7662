package users

import (
	"time"

	"github.com/google/uuid"

	"github.com/kledje/storefront-backend/pkg/db/models"
)

// UserDTO is the transport shape that omits sensitive credentials.
type UserDTO struct {
	ID          uuid.UUID  `json:"id"`
	Phone       string     `json:"phone"`
	Username    string     `json:"username"`
	IsAdmin     bool       `json:"is_admin"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// CreateUserDTO holds the data required by the repo to persist a new user.
type CreateUserDTO struct {
	Phone        string
	Username     string
	PasswordHash string
}

func FromModel(u *models.User, isAdmin bool) *UserDTO {
	if u == nil {
		return nil
	}
	return &UserDTO{
		ID:          u.ID,
		Phone:       u.Phone,
		Username:    u.Username,
		IsAdmin:     isAdmin,
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
	}
}

func (c CreateUserDTO) ToModel() *models.User {
	return &models.User{
		Phone:        c.Phone,
		Username:     c.Username,
		PasswordHash: c.PasswordHash,
	}
}
