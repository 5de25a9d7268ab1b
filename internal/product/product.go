package product

import "github.com/shopspring/decimal"

// Product maps to the `products` table. The transaction engine only depends
// on the active flag, the unit price and the available stock; the rest is
// catalog detail carried for the presentation layer and the external sync.
type Product struct {
	ID               int             `json:"productId"`
	CategoryID       *int            `json:"categoryId,omitempty"`
	Name             string          `json:"name"`
	Slug             string          `json:"slug"`
	SKU              *string         `json:"sku,omitempty"`
	Description      string          `json:"description,omitempty"`
	Price            decimal.Decimal `json:"price"`
	StockQuantity    int             `json:"stockQuantity"`
	Image            *string         `json:"image,omitempty"`
	Images           []string        `json:"images,omitempty"`
	IsActive         bool            `json:"isActive"`
	ShopifyProductID *string         `json:"shopifyProductId,omitempty"`
	CreatedAt        string          `json:"createdAt,omitempty"`
	UpdatedAt        string          `json:"updatedAt,omitempty"`
}

func (p Product) InStock() bool {
	return p.StockQuantity > 0
}
