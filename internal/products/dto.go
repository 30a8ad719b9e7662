package products

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kledje/storefront-backend/pkg/db/models"
)

// ProductDTO is the catalog lookup shape shared by the catalog and cart views.
type ProductDTO struct {
	ID                  uuid.UUID        `json:"id"`
	Name                string           `json:"name"`
	Description         *string          `json:"description,omitempty"`
	Price               decimal.Decimal  `json:"price"`
	PriceBeforeDiscount *decimal.Decimal `json:"price_before_discount,omitempty"`
	IsActive            bool             `json:"is_active"`
	Images              []ImageDTO       `json:"images"`
}

type ImageDTO struct {
	ID        uuid.UUID `json:"id"`
	URL       string    `json:"url"`
	SortOrder int       `json:"sort_order"`
}

// FromModel maps a product row. Images keep the order they were loaded in.
func FromModel(p *models.Product) *ProductDTO {
	if p == nil {
		return nil
	}
	dto := &ProductDTO{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		IsActive:    p.IsActive,
		Images:      make([]ImageDTO, 0, len(p.Images)),
	}
	if p.PriceBeforeDiscount.Valid {
		before := p.PriceBeforeDiscount.Decimal
		dto.PriceBeforeDiscount = &before
	}
	for _, img := range p.Images {
		dto.Images = append(dto.Images, ImageDTO{ID: img.ID, URL: img.ImageURL, SortOrder: img.SortOrder})
	}
	return dto
}
