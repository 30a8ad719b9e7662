package users

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kledje/storefront-backend/internal/repo"
	"github.com/kledje/storefront-backend/pkg/db/models"
)

// Repository exposes user-related persistence operations.
type Repository struct {
	repo.Base
}

// NewRepository constructs a users repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// Create inserts a new user and returns the persisted model.
func (r *Repository) Create(ctx context.Context, dto CreateUserDTO) (*models.User, error) {
	user := dto.ToModel()
	if err := r.DB(ctx).Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// FindByPhone retrieves the user registered with the provided phone.
func (r *Repository) FindByPhone(ctx context.Context, phone string) (*models.User, error) {
	var user models.User
	if err := r.DB(ctx).Where("phone = ?", phone).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByID loads a user by their UUID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.DB(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateLastLogin refreshes the user's last_login_at timestamp.
func (r *Repository) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.DB(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		UpdateColumn("last_login_at", at).Error
}

// IsAdmin reports whether the user has a row in admins.
func (r *Repository) IsAdmin(ctx context.Context, id uuid.UUID) (bool, error) {
	var admin models.Admin
	err := r.DB(ctx).Select("id").Where("user_id = ?", id).Take(&admin).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// GrantAdmin promotes an existing user to the back office.
func (r *Repository) GrantAdmin(ctx context.Context, user *models.User, superAdmin bool) (*models.Admin, error) {
	admin := &models.Admin{UserID: user.ID, Phone: user.Phone, IsSuperAdmin: superAdmin}
	if err := r.DB(ctx).Create(admin).Error; err != nil {
		return nil, err
	}
	return admin, nil
}

// Count returns the number of registered users.
func (r *Repository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.DB(ctx).Model(&models.User{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
