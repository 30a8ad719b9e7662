package cart

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kledje/storefront-backend/internal/identity"
	"github.com/kledje/storefront-backend/internal/products"
	"github.com/kledje/storefront-backend/pkg/db/models"
)

// CartDTO is the owner-facing cart view.
type CartDTO struct {
	ID        uuid.UUID       `json:"id"`
	Owner     string          `json:"owner"`
	Items     []ItemDTO       `json:"items"`
	ItemCount int             `json:"item_count"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// ItemDTO is one cart line. LineTotal uses the current product price, the
// same price checkout will charge.
type ItemDTO struct {
	ID        uuid.UUID            `json:"id"`
	ProductID uuid.UUID            `json:"product_id"`
	Quantity  int                  `json:"quantity"`
	UnitPrice decimal.Decimal      `json:"unit_price"`
	LineTotal decimal.Decimal      `json:"line_total"`
	Product   *products.ProductDTO `json:"product,omitempty"`
	AddedAt   time.Time            `json:"added_at"`
}

func toCartDTO(owner identity.OwnerKey, cart *models.Cart, items []models.CartItem) *CartDTO {
	dto := &CartDTO{
		ID:        cart.ID,
		Owner:     owner.String(),
		Items:     make([]ItemDTO, 0, len(items)),
		Subtotal:  decimal.Zero,
		UpdatedAt: cart.UpdatedAt,
	}
	for _, item := range items {
		line := ItemDTO{
			ID:        item.ID,
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			AddedAt:   item.CreatedAt,
		}
		price := item.UnitPrice
		if item.Product != nil {
			line.Product = products.FromModel(item.Product)
			price = item.Product.Price
		}
		line.LineTotal = price.Mul(decimal.NewFromInt(int64(item.Quantity)))
		dto.Items = append(dto.Items, line)
		dto.ItemCount += item.Quantity
		dto.Subtotal = dto.Subtotal.Add(line.LineTotal)
	}
	return dto
}
