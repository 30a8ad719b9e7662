package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/kledje/storefront-backend/internal/cart"
	"github.com/kledje/storefront-backend/internal/identity"
	"github.com/kledje/storefront-backend/internal/orders"
	"github.com/kledje/storefront-backend/pkg/db/models"
	"github.com/kledje/storefront-backend/pkg/enums"
	pkgerrors "github.com/kledje/storefront-backend/pkg/errors"
	"github.com/kledje/storefront-backend/pkg/logger"
	"github.com/kledje/storefront-backend/pkg/metrics"
	"github.com/kledje/storefront-backend/pkg/outbox"
	"github.com/kledje/storefront-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service converts a cart into an order.
type Service interface {
	PlaceOrder(ctx context.Context, who identity.Identity, contact Contact) (*orders.OrderDTO, error)
}

// ServiceParams groups the checkout dependencies.
type ServiceParams struct {
	Tx      txRunner
	Carts   cart.CartRepository
	Orders  orders.Repository
	Outbox  outbox.Emitter
	Metrics *metrics.OrderMetrics
	Logger  *logger.Logger
}

type service struct {
	tx      txRunner
	carts   cart.CartRepository
	orders  orders.Repository
	outbox  outbox.Emitter
	metrics *metrics.OrderMetrics
	logg    *logger.Logger
}

// NewService builds the checkout service.
func NewService(params ServiceParams) (Service, error) {
	if params.Tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if params.Carts == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	return &service{
		tx:      params.Tx,
		carts:   params.Carts,
		orders:  params.Orders,
		outbox:  params.Outbox,
		metrics: params.Metrics,
		logg:    params.Logger,
	}, nil
}

func emptyCartError() error {
	return pkgerrors.New(pkgerrors.CodeEmptyCart, "cart is empty")
}

// PlaceOrder runs the whole conversion in one transaction: the order, its
// items, removal of the charged lines and the order_created event commit
// together or not at all.
func (s *service) PlaceOrder(ctx context.Context, who identity.Identity, input Contact) (*orders.OrderDTO, error) {
	start := time.Now()
	order, err := s.placeOrder(ctx, who, input)
	s.metrics.ObserveCheckout(checkoutResult(err), time.Since(start))
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		logCtx := s.logg.WithOrderID(ctx, order.ID.String())
		logCtx = s.logg.WithOwnerKey(logCtx, who.Owner.String())
		logCtx = s.logg.WithFields(logCtx, map[string]any{
			"total_amount": order.TotalAmount.StringFixed(2),
			"items":        len(order.Items),
		})
		s.logg.Info(logCtx, "order placed")
	}
	return orders.FromModel(order), nil
}

func (s *service) placeOrder(ctx context.Context, who identity.Identity, input Contact) (*models.Order, error) {
	if who.Owner.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart owner is required")
	}
	contact, err := normalizeContact(input)
	if err != nil {
		return nil, err
	}

	var created *models.Order
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		carts := s.carts.WithTx(tx)
		orderRepo := s.orders.WithTx(tx)

		c, err := carts.LockByOwner(ctx, who.Owner)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return emptyCartError()
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock cart")
		}
		items, err := carts.LockItems(ctx, c.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart items")
		}

		charged := chargeableLines(items)
		if len(charged) == 0 {
			return emptyCartError()
		}
		order := buildOrder(who, contact, charged)
		if err := orderRepo.Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}

		// Only the charged lines leave the cart; unavailable ones stay for the customer.
		removed, err := carts.RemoveLines(ctx, c.ID, charged)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
		}
		if removed != int64(len(charged)) {
			return pkgerrors.New(pkgerrors.CodeConflict, "cart changed during checkout").
				WithDetails(map[string]any{"expected": len(charged), "removed": removed})
		}

		if err := s.outbox.Emit(ctx, tx, orderCreatedEvent(who, order)); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "queue order created event")
		}
		created = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// chargeableLines keeps the lines whose product still exists and is on sale.
func chargeableLines(items []models.CartItem) []models.CartItem {
	out := make([]models.CartItem, 0, len(items))
	for _, item := range items {
		if item.Product == nil || !item.Product.IsActive || item.Quantity <= 0 {
			continue
		}
		out = append(out, item)
	}
	return out
}

// buildOrder snapshots the current name and price of every line.
func buildOrder(who identity.Identity, contact Contact, lines []models.CartItem) *models.Order {
	order := &models.Order{
		CustomerName:    contact.Name,
		CustomerPhone:   contact.Phone,
		CustomerAddress: contact.Address,
		Notes:           contact.Notes,
		Status:          enums.OrderStatusNew,
		TotalAmount:     decimal.Zero,
	}
	if who.IsAuthenticated() {
		userID := *who.UserID
		order.UserID = &userID
	}
	for _, item := range lines {
		productID := item.Product.ID
		price := item.Product.Price
		subtotal := price.Mul(decimal.NewFromInt(int64(item.Quantity)))
		order.Items = append(order.Items, models.OrderItem{
			ProductID:    &productID,
			ProductName:  item.Product.Name,
			ProductPrice: price,
			Quantity:     item.Quantity,
			Subtotal:     subtotal,
		})
		order.TotalAmount = order.TotalAmount.Add(subtotal)
	}
	return order
}

func orderCreatedEvent(who identity.Identity, order *models.Order) outbox.DomainEvent {
	lines := make([]payloads.OrderLine, 0, len(order.Items))
	for _, item := range order.Items {
		lines = append(lines, payloads.OrderLine{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			UnitPrice:   item.ProductPrice,
			Quantity:    item.Quantity,
			Subtotal:    item.Subtotal,
		})
	}
	actor := &outbox.ActorRef{UserID: who.UserID, Role: string(who.Role)}
	if !who.IsAuthenticated() {
		actor = &outbox.ActorRef{SessionID: who.SessionToken}
	}
	return outbox.DomainEvent{
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         actor,
		Data: payloads.OrderCreatedEvent{
			OrderID:       order.ID,
			UserID:        order.UserID,
			CustomerPhone: order.CustomerPhone,
			TotalAmount:   order.TotalAmount,
			Status:        order.Status,
			Items:         lines,
		},
	}
}

func checkoutResult(err error) string {
	switch {
	case err == nil:
		return metrics.CheckoutResultPlaced
	case pkgerrors.IsCode(err, pkgerrors.CodeEmptyCart):
		return metrics.CheckoutResultEmpty
	case pkgerrors.IsCode(err, pkgerrors.CodeConflict):
		return metrics.CheckoutResultConflict
	default:
		return metrics.CheckoutResultError
	}
}
