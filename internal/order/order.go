package order

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusShipped    = "shipped"
	StatusDelivered  = "delivered"
	StatusCancelled  = "cancelled"
	StatusRefunded   = "refunded"
)

var (
	ErrEmptyCart = errors.New("cannot create order from empty cart")
	// ErrInvalidTransition is wrapped with the order's current status.
	ErrInvalidTransition = errors.New("invalid order status transition")
	ErrNotFound          = errors.New("order not found")
	// ErrDuplicateNumber surfaces an order-number collision so the service
	// can regenerate and retry.
	ErrDuplicateNumber = errors.New("duplicate order number")
)

// transitions is the status state machine: fulfilment moves forward only,
// cancellation is open while unfulfilled, refunds from any non-terminal state.
var transitions = map[string][]string{
	StatusPending:    {StatusProcessing, StatusCancelled, StatusRefunded},
	StatusProcessing: {StatusShipped, StatusCancelled, StatusRefunded},
	StatusShipped:    {StatusDelivered, StatusRefunded},
	StatusDelivered:  {},
	StatusCancelled:  {},
	StatusRefunded:   {},
}

// Address is the shipping/billing block frozen onto the order row.
type Address struct {
	Name    string `json:"name"`
	Email   string `json:"email,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Line1   string `json:"address"`
	City    string `json:"city"`
	State   string `json:"state"`
	Zip     string `json:"zip"`
	Country string `json:"country"`
}

// Order is created once and immutable afterwards except for status and
// soft-delete. Monetary fields are fixed-point decimals.
type Order struct {
	ID           int             `json:"orderId"`
	UserID       *int            `json:"userId,omitempty"`
	OrderNumber  string          `json:"orderNumber"`
	Status       string          `json:"status"`
	Subtotal     decimal.Decimal `json:"subtotal"`
	Tax          decimal.Decimal `json:"tax"`
	ShippingCost decimal.Decimal `json:"shippingCost"`
	Discount     decimal.Decimal `json:"discount"`
	Total        decimal.Decimal `json:"total"`
	Currency     string          `json:"currency"`
	Shipping     Address         `json:"shipping"`
	Billing      Address         `json:"billing"`
	Notes        *string         `json:"notes,omitempty"`
	ShopifyID    *string         `json:"shopifyId,omitempty"`
	CreatedAt    string          `json:"createdAt,omitempty"`
	UpdatedAt    string          `json:"updatedAt,omitempty"`
	Items        []Item          `json:"items,omitempty"`
}

// Item is a point-in-time snapshot of a product, decoupled from the live
// catalog so historical orders survive catalog edits.
type Item struct {
	ID          int             `json:"itemId"`
	OrderID     int             `json:"orderId"`
	ProductID   int             `json:"productId"`
	ProductName string          `json:"productName"`
	ProductSKU  *string         `json:"productSku,omitempty"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	TotalPrice  decimal.Decimal `json:"totalPrice"`
}

// CanBeCancelled reports whether the order may still be cancelled.
func (o Order) CanBeCancelled() bool {
	return canBeCancelled(o.Status)
}

func canBeCancelled(status string) bool {
	return status == StatusPending || status == StatusProcessing
}

// CanTransition reports whether the status may legally move to the target.
func (o Order) CanTransition(to string) bool {
	return canTransition(o.Status, to)
}

func canTransition(from, to string) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// GenerateNumber builds a human-readable order number with an opaque random
// suffix. Uniqueness is best-effort; the store's unique constraint plus the
// service's retry loop make it strict.
func GenerateNumber() string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return fmt.Sprintf("ORD-%s-%s", time.Now().UTC().Format("20060102"), suffix)
}
