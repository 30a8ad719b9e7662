package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kledje/storefront-backend/pkg/db/models"
	"github.com/kledje/storefront-backend/pkg/enums"
)

// OrderDTO is the order shape returned to customers and staff.
type OrderDTO struct {
	ID              uuid.UUID           `json:"id"`
	UserID          *uuid.UUID          `json:"user_id,omitempty"`
	CustomerName    string              `json:"customer_name"`
	CustomerPhone   string              `json:"customer_phone"`
	CustomerAddress string              `json:"customer_address"`
	Notes           *string             `json:"notes,omitempty"`
	TotalAmount     decimal.Decimal     `json:"total_amount"`
	Status          enums.OrderStatus   `json:"status"`
	NextStatuses    []enums.OrderStatus `json:"next_statuses"`
	Items           []OrderItemDTO      `json:"items"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
}

// OrderItemDTO is the immutable line snapshot.
type OrderItemDTO struct {
	ID           uuid.UUID       `json:"id"`
	ProductID    *uuid.UUID      `json:"product_id,omitempty"`
	ProductName  string          `json:"product_name"`
	ProductPrice decimal.Decimal `json:"product_price"`
	Quantity     int             `json:"quantity"`
	Subtotal     decimal.Decimal `json:"subtotal"`
}

// OrderList wraps a page of orders plus the next page cursor.
type OrderList struct {
	Orders     []OrderDTO `json:"orders"`
	NextCursor string     `json:"next_cursor,omitempty"`
}

// DashboardStats summarizes the store for the admin dashboard.
type DashboardStats struct {
	ProductsCount int64           `json:"products_count"`
	OrdersCount   int64           `json:"orders_count"`
	UsersCount    int64           `json:"users_count"`
	Revenue       decimal.Decimal `json:"revenue"`
	RecentOrders  []OrderDTO      `json:"recent_orders"`
}

func FromModel(o *models.Order) *OrderDTO {
	if o == nil {
		return nil
	}
	dto := &OrderDTO{
		ID:              o.ID,
		UserID:          o.UserID,
		CustomerName:    o.CustomerName,
		CustomerPhone:   o.CustomerPhone,
		CustomerAddress: o.CustomerAddress,
		Notes:           o.Notes,
		TotalAmount:     o.TotalAmount,
		Status:          o.Status,
		NextStatuses:    o.Status.NextStatuses(),
		Items:           make([]OrderItemDTO, 0, len(o.Items)),
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}
	for _, item := range o.Items {
		dto.Items = append(dto.Items, OrderItemDTO{
			ID:           item.ID,
			ProductID:    item.ProductID,
			ProductName:  item.ProductName,
			ProductPrice: item.ProductPrice,
			Quantity:     item.Quantity,
			Subtotal:     item.Subtotal,
		})
	}
	return dto
}

func fromModels(rows []models.Order) []OrderDTO {
	out := make([]OrderDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromModel(&rows[i]))
	}
	return out
}
