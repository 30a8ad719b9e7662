package products

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kledje/storefront-backend/internal/repo"
	"github.com/kledje/storefront-backend/pkg/db/models"
)

// Repository reads the catalog.
type Repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

func withOrderedImages(db *gorm.DB) *gorm.DB {
	return db.Order("product_images.sort_order ASC").Order("product_images.created_at ASC")
}

// ListActive returns active products ordered by sort_order with their images.
func (r *Repository) ListActive(ctx context.Context) ([]models.Product, error) {
	var rows []models.Product
	err := r.DB(ctx).
		Preload("Images", withOrderedImages).
		Where("is_active = ?", true).
		Order("sort_order ASC").
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// FindByID loads a product and its images regardless of active state.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := r.DB(ctx).
		Preload("Images", withOrderedImages).
		First(&product, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// Create inserts a product with its images.
func (r *Repository) Create(ctx context.Context, product *models.Product) error {
	return r.DB(ctx).Create(product).Error
}

// Count returns the total number of catalog rows.
func (r *Repository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.DB(ctx).Model(&models.Product{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
