package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product is a catalog entry. Prices are stored as numeric(12,2).
type Product struct {
	ID                  uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	Name                string              `gorm:"column:name;not null"`
	Description         *string             `gorm:"column:description"`
	Price               decimal.Decimal     `gorm:"column:price;type:numeric(12,2);not null"`
	PriceBeforeDiscount decimal.NullDecimal `gorm:"column:price_before_discount;type:numeric(12,2)"`
	IsActive            bool                `gorm:"column:is_active;not null"`
	SortOrder           int                 `gorm:"column:sort_order;not null;default:0"`
	Images              []ProductImage      `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt           time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Product) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}

type ProductImage struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	ProductID uuid.UUID `gorm:"column:product_id;type:uuid;not null"`
	ImageURL  string    `gorm:"column:image_url;not null"`
	SortOrder int       `gorm:"column:sort_order;not null;default:0"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (i *ProductImage) BeforeCreate(*gorm.DB) error {
	ensureID(&i.ID)
	return nil
}
