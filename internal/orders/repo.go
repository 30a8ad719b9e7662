package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/kledje/storefront-backend/internal/repo"
	"github.com/kledje/storefront-backend/pkg/db/models"
	"github.com/kledje/storefront-backend/pkg/enums"
	"github.com/kledje/storefront-backend/pkg/pagination"
)

type repository struct {
	repo.Base
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{Base: r.Bind(tx)}
}

func itemsInOrder(db *gorm.DB) *gorm.DB {
	return db.Order("order_items.created_at ASC").Order("order_items.id ASC")
}

// Create inserts the order together with its items.
func (r *repository) Create(ctx context.Context, order *models.Order) error {
	return r.DB(ctx).Create(order).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.DB(ctx).
		Preload("Items", itemsInOrder).
		First(&order, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// FindByIDForUpdate locks the order row on postgres. Items are not loaded.
func (r *repository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.ForUpdate(ctx).Take(&order, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// List returns orders newest first. The returned cursor points at the last
// row of the page when more rows follow.
func (r *repository) List(ctx context.Context, filters ListFilters, limit int, cursor *pagination.Cursor) ([]models.Order, *pagination.Cursor, error) {
	normalized := pagination.NormalizeLimit(limit)
	query := r.DB(ctx).Model(&models.Order{}).Preload("Items", itemsInOrder)
	if filters.UserID != nil {
		query = query.Where("user_id = ?", *filters.UserID)
	}
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	var rows []models.Order
	if err := query.Order("created_at DESC, id DESC").Limit(pagination.LimitWithBuffer(limit)).Find(&rows).Error; err != nil {
		return nil, nil, err
	}
	if len(rows) > normalized {
		rows = rows[:normalized]
		last := rows[normalized-1]
		return rows, &pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}, nil
	}
	return rows, nil, nil
}

// UpdateStatus only touches status and updated_at.
func (r *repository) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.OrderStatus, at time.Time) error {
	res := r.DB(ctx).
		Model(&models.Order{}).
		Where("id = ?", id).
		UpdateColumns(map[string]any{"status": status, "updated_at": at})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.DB(ctx).Model(&models.Order{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// SumRevenue totals every order that was not cancelled.
func (r *repository) SumRevenue(ctx context.Context) (decimal.Decimal, error) {
	var row struct {
		Total decimal.NullDecimal
	}
	err := r.DB(ctx).
		Model(&models.Order{}).
		Select("SUM(total_amount) AS total").
		Where("status <> ?", enums.OrderStatusCancelled).
		Scan(&row).Error
	if err != nil {
		return decimal.Zero, err
	}
	if !row.Total.Valid {
		return decimal.Zero, nil
	}
	return row.Total.Decimal, nil
}

func (r *repository) Recent(ctx context.Context, n int) ([]models.Order, error) {
	var rows []models.Order
	err := r.DB(ctx).
		Preload("Items", itemsInOrder).
		Order("created_at DESC, id DESC").
		Limit(n).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
