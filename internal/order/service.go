package order

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/chaiyarin55/storefront-backend/internal/cart"
	"github.com/chaiyarin55/storefront-backend/internal/pricing"
	"github.com/chaiyarin55/storefront-backend/internal/product"
)

// createAttempts bounds the retry loop on order-number collisions.
const createAttempts = 5

// Service owns the cart-to-order conversion and the order lifecycle.
type Service struct {
	repo     Repository
	carts    cart.Repository
	products product.Repository
	pricing  pricing.Config
	currency string
	log      *zap.Logger
}

func NewService(repo Repository, carts cart.Repository, products product.Repository, cfg pricing.Config, currency string, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{repo: repo, carts: carts, products: products, pricing: cfg, currency: currency, log: log}
}

// CreateFromCart converts a cart into a pending order. Pricing is computed
// from the reloaded lines' captured prices; the repository then commits the
// order, its snapshots, the stock debits and the cart flip as one unit.
// Billing defaults to the shipping block when absent. Cart-origin orders
// carry no discount.
func (s *Service) CreateFromCart(cartID int, shipping Address, billing *Address, notes *string) (Order, error) {
	crt, err := s.carts.GetByID(cartID)
	if err != nil {
		return Order{}, err
	}

	lines, err := s.carts.ListItems(cartID)
	if err != nil {
		return Order{}, err
	}
	if len(lines) == 0 {
		return Order{}, ErrEmptyCart
	}

	// reload product context: names and SKUs for the snapshots
	ids := make([]int, 0, len(lines))
	for _, line := range lines {
		ids = append(ids, line.ProductID)
	}
	prods, err := s.products.ListByIDs(ids)
	if err != nil {
		return Order{}, err
	}
	byID := make(map[int]product.Product, len(prods))
	for _, p := range prods {
		byID[p.ID] = p
	}

	subtotal := decimal.Zero
	totalQuantity := 0
	items := make([]Item, 0, len(lines))
	for _, line := range lines {
		p, ok := byID[line.ProductID]
		if !ok {
			return Order{}, fmt.Errorf("%w: product %d", product.ErrNotFound, line.ProductID)
		}
		lineTotal := line.LineTotal()
		items = append(items, Item{
			ProductID:   line.ProductID,
			ProductName: p.Name,
			ProductSKU:  p.SKU,
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice,
			TotalPrice:  lineTotal,
		})
		subtotal = subtotal.Add(lineTotal)
		totalQuantity += line.Quantity
	}

	tax := pricing.Tax(subtotal, s.pricing)
	shippingCost := pricing.Shipping(subtotal, totalQuantity, s.pricing)
	discount := decimal.Zero
	total := subtotal.Add(tax).Add(shippingCost).Sub(discount)

	if billing == nil {
		b := shipping
		billing = &b
	}

	ord := Order{
		UserID:       crt.UserID,
		Status:       StatusPending,
		Subtotal:     subtotal,
		Tax:          tax,
		ShippingCost: shippingCost,
		Discount:     discount,
		Total:        total,
		Currency:     s.currency,
		Shipping:     shipping,
		Billing:      *billing,
		Notes:        notes,
	}

	var created Order
	for attempt := 0; attempt < createAttempts; attempt++ {
		ord.OrderNumber = GenerateNumber()
		created, err = s.repo.CreateFromCart(ord, items, cartID)
		if errors.Is(err, ErrDuplicateNumber) {
			continue
		}
		break
	}
	if err != nil {
		return Order{}, err
	}

	s.log.Info("order created",
		zap.String("order_number", created.OrderNumber),
		zap.Int("cart_id", cartID),
		zap.String("total", created.Total.String()))
	return created, nil
}

// Cancel moves a pending or processing order to cancelled and restitutes its
// inventory.
func (s *Service) Cancel(id int) (Order, error) {
	ord, err := s.repo.Cancel(id)
	if err != nil {
		return Order{}, err
	}
	s.log.Info("order cancelled", zap.String("order_number", ord.OrderNumber))
	return ord, nil
}

func (s *Service) GetByNumber(number string) (Order, error) {
	return s.repo.GetByNumber(number)
}

func (s *Service) ListByUser(userID int) ([]Order, error) {
	return s.repo.ListByUser(userID)
}

// UpdateStatus applies a fulfilment transition (processing, shipped,
// delivered, refunded) under the state machine's rules.
func (s *Service) UpdateStatus(id int, status string) (Order, error) {
	ord, err := s.repo.UpdateStatus(id, status)
	if err != nil {
		return Order{}, err
	}
	s.log.Info("order status updated",
		zap.String("order_number", ord.OrderNumber),
		zap.String("status", status))
	return ord, nil
}
