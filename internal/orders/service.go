package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/kledje/storefront-backend/internal/identity"
	"github.com/kledje/storefront-backend/pkg/db/models"
	"github.com/kledje/storefront-backend/pkg/enums"
	pkgerrors "github.com/kledje/storefront-backend/pkg/errors"
	"github.com/kledje/storefront-backend/pkg/logger"
	"github.com/kledje/storefront-backend/pkg/metrics"
	"github.com/kledje/storefront-backend/pkg/outbox"
	"github.com/kledje/storefront-backend/pkg/outbox/payloads"
	"github.com/kledje/storefront-backend/pkg/pagination"
)

const recentOrdersLimit = 5

// Service exposes order history and the admin status workflow.
type Service interface {
	ListForUser(ctx context.Context, userID uuid.UUID, params pagination.Params) (*OrderList, error)
	GetForUser(ctx context.Context, userID, orderID uuid.UUID) (*OrderDTO, error)
	List(ctx context.Context, status *enums.OrderStatus, params pagination.Params) (*OrderList, error)
	Get(ctx context.Context, orderID uuid.UUID) (*OrderDTO, error)
	SetOrderStatus(ctx context.Context, actor identity.Identity, orderID uuid.UUID, status string) (*OrderDTO, error)
	DashboardStats(ctx context.Context) (*DashboardStats, error)
}

// ServiceParams groups the orders service dependencies.
type ServiceParams struct {
	Repo     Repository
	Tx       txRunner
	Outbox   outbox.Emitter
	Products counter
	Users    counter
	Metrics  *metrics.OrderMetrics
	Logger   *logger.Logger
}

type service struct {
	repo     Repository
	tx       txRunner
	outbox   outbox.Emitter
	products counter
	users    counter
	metrics  *metrics.OrderMetrics
	logg     *logger.Logger
	now      func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if params.Products == nil {
		return nil, fmt.Errorf("product counter required")
	}
	if params.Users == nil {
		return nil, fmt.Errorf("user counter required")
	}
	return &service{
		repo:     params.Repo,
		tx:       params.Tx,
		outbox:   params.Outbox,
		products: params.Products,
		users:    params.Users,
		metrics:  params.Metrics,
		logg:     params.Logger,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) ListForUser(ctx context.Context, userID uuid.UUID, params pagination.Params) (*OrderList, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "sign in to view orders")
	}
	return s.list(ctx, ListFilters{UserID: &userID}, params)
}

// GetForUser reports orders owned by someone else as not found.
func (s *service) GetForUser(ctx context.Context, userID, orderID uuid.UUID) (*OrderDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "sign in to view orders")
	}
	order, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID == nil || *order.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return order, nil
}

func (s *service) List(ctx context.Context, status *enums.OrderStatus, params pagination.Params) (*OrderList, error) {
	if status != nil && !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid order status %q", *status))
	}
	return s.list(ctx, ListFilters{Status: status}, params)
}

func (s *service) Get(ctx context.Context, orderID uuid.UUID) (*OrderDTO, error) {
	return s.load(ctx, orderID)
}

func (s *service) list(ctx context.Context, filters ListFilters, params pagination.Params) (*OrderList, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, next, err := s.repo.List(ctx, filters, params.Limit, cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	result := &OrderList{Orders: fromModels(rows)}
	if next != nil {
		result.NextCursor = pagination.EncodeCursor(*next)
	}
	return result, nil
}

func (s *service) load(ctx context.Context, orderID uuid.UUID) (*OrderDTO, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return FromModel(order), nil
}

// SetOrderStatus moves an order along the status machine. Setting the current
// status again is a no-op; any transition the machine does not allow is a
// state conflict.
func (s *service) SetOrderStatus(ctx context.Context, actor identity.Identity, orderID uuid.UUID, raw string) (*OrderDTO, error) {
	if !actor.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}
	next, err := enums.ParseOrderStatus(raw)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order status").
			WithDetails(map[string]any{"allowed": enums.OrderStatuses()})
	}
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}

	var from enums.OrderStatus
	changed := false
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByIDForUpdate(ctx, orderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		from = order.Status
		if from == next {
			return nil
		}
		if !from.CanTransitionTo(next) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("cannot move order from %s to %s", from, next)).
				WithDetails(map[string]any{
					"from":     from,
					"to":       next,
					"allowed":  from.NextStatuses(),
					"terminal": from.IsTerminal(),
				})
		}

		if err := repo.UpdateStatus(ctx, orderID, next, s.now()); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}
		event := outbox.DomainEvent{
			EventType:     enums.EventOrderStatusChanged,
			AggregateType: enums.AggregateOrder,
			AggregateID:   orderID,
			Actor:         &outbox.ActorRef{UserID: actor.UserID, Role: string(actor.Role)},
			Data: payloads.OrderStatusChangedEvent{
				OrderID: orderID,
				From:    from,
				To:      next,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "queue order status event")
		}
		changed = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if changed {
		s.metrics.IncStatusTransition(string(from), string(next))
		if s.logg != nil {
			logCtx := s.logg.WithOrderID(ctx, orderID.String())
			logCtx = s.logg.WithFields(logCtx, map[string]any{"from": from, "to": next})
			s.logg.Info(logCtx, "order status changed")
		}
	}
	return s.load(ctx, orderID)
}

// DashboardStats fetches the counters concurrently; the first failure wins.
func (s *service) DashboardStats(ctx context.Context) (*DashboardStats, error) {
	stats := &DashboardStats{Revenue: decimal.Zero}
	var recent []models.Order

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := s.products.Count(gctx)
		stats.ProductsCount = n
		return err
	})
	g.Go(func() error {
		n, err := s.repo.Count(gctx)
		stats.OrdersCount = n
		return err
	})
	g.Go(func() error {
		n, err := s.users.Count(gctx)
		stats.UsersCount = n
		return err
	})
	g.Go(func() error {
		total, err := s.repo.SumRevenue(gctx)
		stats.Revenue = total
		return err
	})
	g.Go(func() error {
		rows, err := s.repo.Recent(gctx, recentOrdersLimit)
		recent = rows
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load dashboard stats")
	}
	stats.RecentOrders = fromModels(recent)
	return stats, nil
}
