package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/kledje/storefront-backend/pkg/enums"
)

// Order is created from a cart at checkout. Only Status and UpdatedAt change
// after creation.
type Order struct {
	ID              uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	UserID          *uuid.UUID        `gorm:"column:user_id;type:uuid"`
	CustomerName    string            `gorm:"column:customer_name;not null"`
	CustomerPhone   string            `gorm:"column:customer_phone;not null"`
	CustomerAddress string            `gorm:"column:customer_address;not null"`
	Notes           *string           `gorm:"column:notes"`
	TotalAmount     decimal.Decimal   `gorm:"column:total_amount;type:numeric(12,2);not null"`
	Status          enums.OrderStatus `gorm:"column:status;type:order_status;not null;default:'new'"`
	Items           []OrderItem       `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt       time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	ensureID(&o.ID)
	return nil
}

// OrderItem is an immutable snapshot of a purchased line.
type OrderItem struct {
	ID           uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	OrderID      uuid.UUID       `gorm:"column:order_id;type:uuid;not null"`
	ProductID    *uuid.UUID      `gorm:"column:product_id;type:uuid"`
	ProductName  string          `gorm:"column:product_name;not null"`
	ProductPrice decimal.Decimal `gorm:"column:product_price;type:numeric(12,2);not null"`
	Quantity     int             `gorm:"column:quantity;not null"`
	Subtotal     decimal.Decimal `gorm:"column:subtotal;type:numeric(12,2);not null"`
	CreatedAt    time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (i *OrderItem) BeforeCreate(*gorm.DB) error {
	ensureID(&i.ID)
	return nil
}
