package payloads

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kledje/storefront-backend/pkg/enums"
)

// OrderCreatedEvent is queued when checkout converts a cart into an order.
type OrderCreatedEvent struct {
	OrderID       uuid.UUID         `json:"order_id"`
	UserID        *uuid.UUID        `json:"user_id,omitempty"`
	CustomerPhone string            `json:"customer_phone"`
	TotalAmount   decimal.Decimal   `json:"total_amount"`
	Status        enums.OrderStatus `json:"status"`
	Items         []OrderLine       `json:"items"`
}

// OrderLine mirrors one order item snapshot.
type OrderLine struct {
	ProductID   *uuid.UUID      `json:"product_id,omitempty"`
	ProductName string          `json:"product_name"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Quantity    int             `json:"quantity"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

// OrderStatusChangedEvent is queued for every persisted status transition.
type OrderStatusChangedEvent struct {
	OrderID uuid.UUID         `json:"order_id"`
	From    enums.OrderStatus `json:"from"`
	To      enums.OrderStatus `json:"to"`
}

// CartMergedEvent records a session cart folded into a user cart.
type CartMergedEvent struct {
	SourceCartID uuid.UUID `json:"source_cart_id"`
	TargetCartID uuid.UUID `json:"target_cart_id"`
	FromOwner    string    `json:"from_owner"`
	ToOwner      string    `json:"to_owner"`
	ItemsMoved   int       `json:"items_moved"`
}
