package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User represents a storefront customer account.
type User struct {
	ID           uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	Phone        string     `gorm:"column:phone;not null;uniqueIndex"`
	Username     string     `gorm:"column:username;not null"`
	PasswordHash string     `gorm:"column:password_hash;not null"`
	LastLoginAt  *time.Time `gorm:"column:last_login_at"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (u *User) BeforeCreate(*gorm.DB) error {
	ensureID(&u.ID)
	return nil
}

// Admin grants back-office access to an existing user.
type Admin struct {
	ID           uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	UserID       uuid.UUID `gorm:"column:user_id;type:uuid;not null;uniqueIndex"`
	Phone        string    `gorm:"column:phone;not null"`
	IsSuperAdmin bool      `gorm:"column:is_super_admin;not null;default:false"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (a *Admin) BeforeCreate(*gorm.DB) error {
	ensureID(&a.ID)
	return nil
}
