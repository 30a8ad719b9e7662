package cart

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/kledje/storefront-backend/internal/identity"
	"github.com/kledje/storefront-backend/internal/repo"
	"github.com/kledje/storefront-backend/pkg/db/models"
	"github.com/kledje/storefront-backend/pkg/enums"
)

// Repository persists carts and cart items.
type Repository struct {
	repo.Base
}

// NewRepository binds a cart repository to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// WithTx binds the repository to a transaction.
func (r *Repository) WithTx(tx *gorm.DB) CartRepository {
	return &Repository{Base: r.Bind(tx)}
}

func ownerFilter(owner identity.OwnerKey) (string, any, error) {
	switch owner.Kind {
	case enums.OwnerKindUser:
		id, ok := owner.UserID()
		if !ok {
			return "", nil, fmt.Errorf("invalid user owner %q", owner.Value)
		}
		return "user_id = ?", id, nil
	case enums.OwnerKindSession:
		if owner.Value == "" {
			return "", nil, fmt.Errorf("empty session owner")
		}
		return "session_id = ?", owner.Value, nil
	default:
		return "", nil, fmt.Errorf("invalid owner kind %q", owner.Kind)
	}
}

func newCartFor(owner identity.OwnerKey) *models.Cart {
	cart := &models.Cart{}
	if id, ok := owner.UserID(); ok {
		cart.UserID = &id
	} else {
		token := owner.Value
		cart.SessionID = &token
	}
	return cart
}

// GetOrCreateCart inserts the owner's cart unless one exists and re-reads it,
// so concurrent callers converge on a single row.
func (r *Repository) GetOrCreateCart(ctx context.Context, owner identity.OwnerKey) (*models.Cart, error) {
	if _, _, err := ownerFilter(owner); err != nil {
		return nil, err
	}
	if err := r.DB(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(newCartFor(owner)).Error; err != nil {
		return nil, err
	}
	return r.FindByOwner(ctx, owner)
}

// FindByOwner returns gorm.ErrRecordNotFound when the owner has no cart yet.
func (r *Repository) FindByOwner(ctx context.Context, owner identity.OwnerKey) (*models.Cart, error) {
	return r.findByOwner(r.DB(ctx), owner)
}

// LockByOwner loads the owner's cart with a row lock on postgres. It must run
// inside a transaction.
func (r *Repository) LockByOwner(ctx context.Context, owner identity.OwnerKey) (*models.Cart, error) {
	return r.findByOwner(r.ForUpdate(ctx), owner)
}

func (r *Repository) findByOwner(q *gorm.DB, owner identity.OwnerKey) (*models.Cart, error) {
	cond, arg, err := ownerFilter(owner)
	if err != nil {
		return nil, err
	}
	var cart models.Cart
	if err := q.Where(cond, arg).Take(&cart).Error; err != nil {
		return nil, err
	}
	return &cart, nil
}

// ListItems returns the cart lines newest first with their product and images.
func (r *Repository) ListItems(ctx context.Context, cartID uuid.UUID) ([]models.CartItem, error) {
	return r.listItems(r.DB(ctx), cartID)
}

// LockItems is ListItems with the item rows locked on postgres, so no
// quantity changes between the read and a later write in the same transaction.
func (r *Repository) LockItems(ctx context.Context, cartID uuid.UUID) ([]models.CartItem, error) {
	return r.listItems(r.ForUpdate(ctx), cartID)
}

func (r *Repository) listItems(q *gorm.DB, cartID uuid.UUID) ([]models.CartItem, error) {
	var items []models.CartItem
	err := q.
		Preload("Product").
		Preload("Product.Images", func(db *gorm.DB) *gorm.DB {
			return db.Order("product_images.sort_order ASC")
		}).
		Where("cart_id = ?", cartID).
		Order("created_at DESC").
		Order("id ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// ItemQuantity returns the quantity of productID in the cart, zero when absent.
func (r *Repository) ItemQuantity(ctx context.Context, cartID, productID uuid.UUID) (int, error) {
	var quantity int
	err := r.DB(ctx).
		Model(&models.CartItem{}).
		Select("COALESCE(SUM(quantity), 0)").
		Where("cart_id = ? AND product_id = ?", cartID, productID).
		Scan(&quantity).Error
	if err != nil {
		return 0, err
	}
	return quantity, nil
}

// AddItem inserts the line or increments the existing line's quantity in a
// single statement. The original unit price snapshot is kept on increment.
func (r *Repository) AddItem(ctx context.Context, cartID, productID uuid.UUID, quantity int, unitPrice decimal.Decimal) (*models.CartItem, error) {
	item := &models.CartItem{
		CartID:    cartID,
		ProductID: productID,
		Quantity:  quantity,
		UnitPrice: unitPrice,
	}
	err := r.DB(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "cart_id"}, {Name: "product_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"quantity":   gorm.Expr("cart_items.quantity + excluded.quantity"),
			"updated_at": gorm.Expr("excluded.updated_at"),
		}),
	}).Create(item).Error
	if err != nil {
		return nil, err
	}

	var stored models.CartItem
	if err := r.DB(ctx).Where("cart_id = ? AND product_id = ?", cartID, productID).Take(&stored).Error; err != nil {
		return nil, err
	}
	return &stored, nil
}

// UpdateItemQuantity sets the quantity of a line in cartID. A quantity of
// zero or less deletes the line. Returns gorm.ErrRecordNotFound when the item
// is not part of the cart.
func (r *Repository) UpdateItemQuantity(ctx context.Context, cartID, itemID uuid.UUID, quantity int) error {
	var res *gorm.DB
	if quantity <= 0 {
		res = r.DB(ctx).Where("id = ? AND cart_id = ?", itemID, cartID).Delete(&models.CartItem{})
	} else {
		res = r.DB(ctx).
			Model(&models.CartItem{}).
			Where("id = ? AND cart_id = ?", itemID, cartID).
			Updates(map[string]any{"quantity": quantity, "updated_at": time.Now().UTC()})
	}
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// RemoveItem deletes a line; removing a missing line is not an error.
func (r *Repository) RemoveItem(ctx context.Context, cartID, itemID uuid.UUID) error {
	return r.DB(ctx).Where("id = ? AND cart_id = ?", itemID, cartID).Delete(&models.CartItem{}).Error
}

// Clear deletes every line in the cart and reports how many went away. The
// cart row itself is kept.
func (r *Repository) Clear(ctx context.Context, cartID uuid.UUID) (int64, error) {
	res := r.DB(ctx).Where("cart_id = ?", cartID).Delete(&models.CartItem{})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

// RemoveLines deletes each given line only if it still holds the quantity
// that was read, and reports how many lines matched. A short count means
// another request changed the cart in between.
func (r *Repository) RemoveLines(ctx context.Context, cartID uuid.UUID, lines []models.CartItem) (int64, error) {
	var removed int64
	for _, line := range lines {
		res := r.DB(ctx).
			Where("id = ? AND cart_id = ? AND quantity = ?", line.ID, cartID, line.Quantity).
			Delete(&models.CartItem{})
		if res.Error != nil {
			return removed, res.Error
		}
		removed += res.RowsAffected
	}
	return removed, nil
}

// ItemCount sums quantities across the owner's cart without creating it.
func (r *Repository) ItemCount(ctx context.Context, owner identity.OwnerKey) (int64, error) {
	cond, arg, err := ownerFilter(owner)
	if err != nil {
		return 0, err
	}
	var total int64
	err = r.DB(ctx).
		Table("cart_items").
		Select("COALESCE(SUM(cart_items.quantity), 0)").
		Joins("JOIN carts ON carts.id = cart_items.cart_id").
		Where("carts."+cond, arg).
		Scan(&total).Error
	if err != nil {
		return 0, err
	}
	return total, nil
}
