package cart

import "github.com/shopspring/decimal"

const (
	StatusActive    = "active"
	StatusAbandoned = "abandoned"
	StatusConverted = "converted"
)

// Cart is the mutable pre-purchase container. Exactly one of UserID and
// SessionID is set; at most one active cart exists per identity.
type Cart struct {
	ID        int     `json:"cartId"`
	UserID    *int    `json:"userId,omitempty"`
	SessionID *string `json:"sessionId,omitempty"`
	Status    string  `json:"status"`
	CreatedAt string  `json:"createdAt,omitempty"`
	UpdatedAt string  `json:"updatedAt,omitempty"`
}

// Item is one cart line. UnitPrice is captured when the line is created and
// never re-read from the catalog afterwards.
type Item struct {
	ID        int             `json:"itemId"`
	CartID    int             `json:"cartId"`
	ProductID int             `json:"productId"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
}

func (i Item) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// SummaryItem is the per-line projection consumed by presentation.
type SummaryItem struct {
	ProductID int             `json:"productId"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	LineTotal decimal.Decimal `json:"lineTotal"`
}

// Summary is a read-only projection of the persisted cart state.
type Summary struct {
	Items      []SummaryItem   `json:"items"`
	TotalItems int             `json:"totalItems"`
	Subtotal   decimal.Decimal `json:"subtotal"`
}
