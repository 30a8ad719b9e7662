package cart

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/kledje/storefront-backend/internal/identity"
	"github.com/kledje/storefront-backend/pkg/db/models"
)

// CartRepository defines the persistence surface shared by the cart and checkout services.
type CartRepository interface {
	WithTx(tx *gorm.DB) CartRepository
	GetOrCreateCart(ctx context.Context, owner identity.OwnerKey) (*models.Cart, error)
	FindByOwner(ctx context.Context, owner identity.OwnerKey) (*models.Cart, error)
	LockByOwner(ctx context.Context, owner identity.OwnerKey) (*models.Cart, error)
	ListItems(ctx context.Context, cartID uuid.UUID) ([]models.CartItem, error)
	LockItems(ctx context.Context, cartID uuid.UUID) ([]models.CartItem, error)
	ItemQuantity(ctx context.Context, cartID, productID uuid.UUID) (int, error)
	AddItem(ctx context.Context, cartID, productID uuid.UUID, quantity int, unitPrice decimal.Decimal) (*models.CartItem, error)
	UpdateItemQuantity(ctx context.Context, cartID, itemID uuid.UUID, quantity int) error
	RemoveItem(ctx context.Context, cartID, itemID uuid.UUID) error
	Clear(ctx context.Context, cartID uuid.UUID) (int64, error)
	RemoveLines(ctx context.Context, cartID uuid.UUID, lines []models.CartItem) (int64, error)
	ItemCount(ctx context.Context, owner identity.OwnerKey) (int64, error)
}

type productLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}
