package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/kledje/storefront-backend/pkg/db/models"
	"github.com/kledje/storefront-backend/pkg/enums"
	"github.com/kledje/storefront-backend/pkg/pagination"
)

// Repository defines persistence operations for orders and order items.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Order, error)
	List(ctx context.Context, filters ListFilters, limit int, cursor *pagination.Cursor) ([]models.Order, *pagination.Cursor, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status enums.OrderStatus, at time.Time) error
	Count(ctx context.Context) (int64, error)
	SumRevenue(ctx context.Context) (decimal.Decimal, error)
	Recent(ctx context.Context, n int) ([]models.Order, error)
}

// ListFilters narrows order listings. A nil UserID lists every customer.
type ListFilters struct {
	UserID *uuid.UUID
	Status *enums.OrderStatus
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type counter interface {
	Count(ctx context.Context) (int64, error)
}
