package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kledje/storefront-backend/internal/identity"
	"github.com/kledje/storefront-backend/pkg/db/models"
	"github.com/kledje/storefront-backend/pkg/enums"
	pkgerrors "github.com/kledje/storefront-backend/pkg/errors"
	"github.com/kledje/storefront-backend/pkg/logger"
	"github.com/kledje/storefront-backend/pkg/metrics"
	"github.com/kledje/storefront-backend/pkg/outbox"
	"github.com/kledje/storefront-backend/pkg/outbox/payloads"
)

// Service exposes owner-scoped cart operations.
type Service interface {
	GetCart(ctx context.Context, owner identity.OwnerKey) (*CartDTO, error)
	AddItem(ctx context.Context, owner identity.OwnerKey, productID uuid.UUID, quantity int) (*CartDTO, error)
	UpdateItemQuantity(ctx context.Context, owner identity.OwnerKey, itemID uuid.UUID, quantity int) (*CartDTO, error)
	RemoveItem(ctx context.Context, owner identity.OwnerKey, itemID uuid.UUID) (*CartDTO, error)
	Clear(ctx context.Context, owner identity.OwnerKey) error
	ItemCount(ctx context.Context, owner identity.OwnerKey) int
	Merge(ctx context.Context, from, to identity.OwnerKey) (int, error)
}

// ServiceParams groups the cart service dependencies.
type ServiceParams struct {
	Repo        CartRepository
	Products    productLoader
	Tx          txRunner
	Outbox      outbox.Emitter
	Metrics     *metrics.OrderMetrics
	Logger      *logger.Logger
	MaxQuantity int
}

type service struct {
	repo        CartRepository
	products    productLoader
	tx          txRunner
	outbox      outbox.Emitter
	metrics     *metrics.OrderMetrics
	logg        *logger.Logger
	maxQuantity int
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if params.Products == nil {
		return nil, fmt.Errorf("product loader required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	return &service{
		repo:        params.Repo,
		products:    params.Products,
		tx:          params.Tx,
		outbox:      params.Outbox,
		metrics:     params.Metrics,
		logg:        params.Logger,
		maxQuantity: params.MaxQuantity,
	}, nil
}

func (s *service) GetCart(ctx context.Context, owner identity.OwnerKey) (*CartDTO, error) {
	if err := validateOwner(owner); err != nil {
		return nil, err
	}
	cart, err := s.repo.GetOrCreateCart(ctx, owner)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	items, err := s.repo.ListItems(ctx, cart.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart items")
	}
	return toCartDTO(owner, cart, items), nil
}

func (s *service) AddItem(ctx context.Context, owner identity.OwnerKey, productID uuid.UUID, quantity int) (*CartDTO, error) {
	if err := validateOwner(owner); err != nil {
		return nil, err
	}
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product_id is required")
	}
	if quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	if s.maxQuantity > 0 && quantity > s.maxQuantity {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("quantity must not exceed %d", s.maxQuantity))
	}

	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if !product.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product is not available")
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := repo.GetOrCreateCart(ctx, owner); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
		}
		cart, err := repo.LockByOwner(ctx, owner)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock cart")
		}
		if s.maxQuantity > 0 {
			current, err := repo.ItemQuantity(ctx, cart.ID, product.ID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart item")
			}
			if current+quantity > s.maxQuantity {
				return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("quantity must not exceed %d", s.maxQuantity)).
					WithDetails(map[string]any{"in_cart": current, "max": s.maxQuantity})
			}
		}
		if _, err := repo.AddItem(ctx, cart.ID, product.ID, quantity, product.Price); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "add cart item")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetCart(ctx, owner)
}

// UpdateItemQuantity sets a line's quantity. Zero or less removes the line and,
// like RemoveItem, succeeds when it is already gone.
func (s *service) UpdateItemQuantity(ctx context.Context, owner identity.OwnerKey, itemID uuid.UUID, quantity int) (*CartDTO, error) {
	if err := validateOwner(owner); err != nil {
		return nil, err
	}
	if quantity <= 0 {
		return s.RemoveItem(ctx, owner, itemID)
	}
	if s.maxQuantity > 0 && quantity > s.maxQuantity {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("quantity must not exceed %d", s.maxQuantity))
	}
	cart, err := s.repo.FindByOwner(ctx, owner)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	if err := s.repo.UpdateItemQuantity(ctx, cart.ID, itemID, quantity); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cart item")
	}
	return s.GetCart(ctx, owner)
}

func (s *service) RemoveItem(ctx context.Context, owner identity.OwnerKey, itemID uuid.UUID) (*CartDTO, error) {
	if err := validateOwner(owner); err != nil {
		return nil, err
	}
	cart, err := s.repo.GetOrCreateCart(ctx, owner)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	if err := s.repo.RemoveItem(ctx, cart.ID, itemID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove cart item")
	}
	return s.GetCart(ctx, owner)
}

func (s *service) Clear(ctx context.Context, owner identity.OwnerKey) error {
	if err := validateOwner(owner); err != nil {
		return err
	}
	cart, err := s.repo.FindByOwner(ctx, owner)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	if _, err := s.repo.Clear(ctx, cart.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
	}
	return nil
}

// ItemCount never fails; the badge falls back to zero.
func (s *service) ItemCount(ctx context.Context, owner identity.OwnerKey) int {
	if validateOwner(owner) != nil {
		return 0
	}
	count, err := s.repo.ItemCount(ctx, owner)
	if err != nil {
		if s.logg != nil {
			logCtx := s.logg.WithOwnerKey(ctx, owner.String())
			logCtx = s.logg.WithField(logCtx, "error", err.Error())
			s.logg.Warn(logCtx, "cart item count unavailable")
		}
		return 0
	}
	return int(count)
}

// Merge moves every line of the from cart into the to cart, summing
// quantities on product collisions, and empties the source. It returns the
// number of lines moved; merging an empty or missing cart is a no-op.
func (s *service) Merge(ctx context.Context, from, to identity.OwnerKey) (int, error) {
	if err := validateOwner(from); err != nil {
		return 0, err
	}
	if err := validateOwner(to); err != nil {
		return 0, err
	}
	if from == to {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "cannot merge a cart into itself")
	}

	moved := 0
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		source, err := repo.LockByOwner(ctx, from)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load source cart")
		}
		items, err := repo.ListItems(ctx, source.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load source items")
		}
		if len(items) == 0 {
			return nil
		}

		if _, err := repo.GetOrCreateCart(ctx, to); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load target cart")
		}
		target, err := repo.LockByOwner(ctx, to)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock target cart")
		}
		for _, item := range items {
			quantity, err := s.mergedQuantity(ctx, repo, target.ID, item)
			if err != nil {
				return err
			}
			if quantity <= 0 {
				continue
			}
			if _, err := repo.AddItem(ctx, target.ID, item.ProductID, quantity, item.UnitPrice); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "move cart item")
			}
		}
		if _, err := repo.Clear(ctx, source.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear source cart")
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventCartMerged,
			AggregateType: enums.AggregateCart,
			AggregateID:   target.ID,
			Actor:         actorFor(to),
			Data: payloads.CartMergedEvent{
				SourceCartID: source.ID,
				TargetCartID: target.ID,
				FromOwner:    from.String(),
				ToOwner:      to.String(),
				ItemsMoved:   len(items),
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "queue cart merged event")
		}
		moved = len(items)
		return nil
	})
	if err != nil {
		return 0, err
	}
	if moved > 0 {
		s.metrics.IncCartMerge()
	}
	return moved, nil
}

// mergedQuantity is how much of item fits into the target line under the
// per-line cap. Anything above the cap is dropped with the drained source.
func (s *service) mergedQuantity(ctx context.Context, repo CartRepository, targetID uuid.UUID, item models.CartItem) (int, error) {
	if s.maxQuantity <= 0 {
		return item.Quantity, nil
	}
	current, err := repo.ItemQuantity(ctx, targetID, item.ProductID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load target item")
	}
	room := s.maxQuantity - current
	if item.Quantity < room {
		return item.Quantity, nil
	}
	return room, nil
}

func validateOwner(owner identity.OwnerKey) error {
	if owner.IsZero() {
		return pkgerrors.New(pkgerrors.CodeValidation, "cart owner is required")
	}
	if err := owner.Validate(); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cart owner")
	}
	return nil
}

func actorFor(owner identity.OwnerKey) *outbox.ActorRef {
	if id, ok := owner.UserID(); ok {
		return &outbox.ActorRef{UserID: &id, Role: string(enums.UserRoleCustomer)}
	}
	return &outbox.ActorRef{SessionID: owner.Value}
}
