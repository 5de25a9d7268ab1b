package cart

import (
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/chaiyarin55/storefront-backend/internal/product"
)

// Service orchestrates cart mutation. Availability preconditions are checked
// against the catalog before the cart store is touched; the hard stock check
// happens later, inside the order conversion.
type Service struct {
	repo     Repository
	products product.Repository
	log      *zap.Logger
}

func NewService(repo Repository, products product.Repository, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{repo: repo, products: products, log: log}
}

// GetOrCreateCart returns the active cart for whichever identity is supplied.
func (s *Service) GetOrCreateCart(userID *int, sessionID *string) (Cart, error) {
	if userID == nil && sessionID == nil {
		return Cart{}, ErrNoIdentity
	}
	return s.repo.GetOrCreate(userID, sessionID)
}

// AddItem appends quantity of a product to the cart, creating the line and
// capturing the product's current unit price only when no line exists yet.
func (s *Service) AddItem(cartID, productID, quantity int) (Item, error) {
	if quantity < 1 {
		return Item{}, fmt.Errorf("%w: quantity must be greater than zero", ErrInvalidOperation)
	}

	if err := s.requireActive(cartID); err != nil {
		return Item{}, err
	}

	p, err := s.products.GetByID(productID)
	if err != nil {
		return Item{}, err
	}
	if !p.IsActive {
		return Item{}, fmt.Errorf("%w: product is not available", ErrInvalidOperation)
	}
	if !p.InStock() {
		return Item{}, fmt.Errorf("%w: product is out of stock", ErrInvalidOperation)
	}
	if p.StockQuantity < quantity {
		return Item{}, fmt.Errorf("%w: insufficient stock, available: %d", ErrInvalidOperation, p.StockQuantity)
	}

	item, err := s.repo.UpsertItem(Item{CartID: cartID, ProductID: productID, Quantity: quantity, UnitPrice: p.Price})
	if err != nil {
		return Item{}, err
	}

	s.log.Info("item added to cart",
		zap.Int("cart_id", cartID),
		zap.Int("product_id", productID),
		zap.Int("quantity", quantity))
	return item, nil
}

// UpdateQuantity sets a line to an absolute quantity. Quantity zero deletes
// the line and returns no item; a missing line also returns no item.
func (s *Service) UpdateQuantity(cartID, productID, quantity int) (*Item, error) {
	if quantity < 0 {
		return nil, fmt.Errorf("%w: quantity cannot be negative", ErrInvalidOperation)
	}

	if err := s.requireActive(cartID); err != nil {
		return nil, err
	}

	if quantity > 0 {
		p, err := s.products.GetByID(productID)
		if err != nil {
			return nil, err
		}
		if p.StockQuantity < quantity {
			return nil, fmt.Errorf("%w: insufficient stock, available: %d", ErrInvalidOperation, p.StockQuantity)
		}
	}

	_, ok, err := s.repo.GetItem(cartID, productID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	if quantity == 0 {
		if _, err := s.repo.DeleteItem(cartID, productID); err != nil {
			return nil, err
		}
		s.log.Info("cart item removed", zap.Int("cart_id", cartID), zap.Int("product_id", productID))
		return nil, nil
	}

	item, err := s.repo.UpdateItemQuantity(cartID, productID, quantity)
	if err != nil {
		return nil, err
	}

	s.log.Info("cart item quantity updated",
		zap.Int("cart_id", cartID),
		zap.Int("product_id", productID),
		zap.Int("new_quantity", quantity))
	return &item, nil
}

// RemoveItem deletes a line, reporting whether one existed.
func (s *Service) RemoveItem(cartID, productID int) (bool, error) {
	if err := s.requireActive(cartID); err != nil {
		return false, err
	}
	removed, err := s.repo.DeleteItem(cartID, productID)
	if err != nil {
		return false, err
	}
	if removed {
		s.log.Info("item removed from cart", zap.Int("cart_id", cartID), zap.Int("product_id", productID))
	}
	return removed, nil
}

// Clear deletes all lines. Clearing twice is not an error.
func (s *Service) Clear(cartID int) error {
	if err := s.requireActive(cartID); err != nil {
		return err
	}
	if err := s.repo.ClearItems(cartID); err != nil {
		return err
	}
	s.log.Info("cart cleared", zap.Int("cart_id", cartID))
	return nil
}

// MergeGuestCartToUser folds a guest cart into the user's active cart:
// quantities for shared products are summed, other lines are copied with
// their captured price, and the guest cart is deleted unconditionally. The
// operation always returns the user's cart, even when no guest cart exists.
func (s *Service) MergeGuestCartToUser(sessionID string, userID int) (Cart, error) {
	userCart, err := s.repo.GetOrCreate(&userID, nil)
	if err != nil {
		return Cart{}, err
	}

	guestCart, ok, err := s.repo.FindActiveBySession(sessionID)
	if err != nil {
		return Cart{}, err
	}
	if !ok {
		return userCart, nil
	}

	lines, err := s.repo.ListItems(guestCart.ID)
	if err != nil {
		return Cart{}, err
	}
	for _, line := range lines {
		line.CartID = userCart.ID
		if _, err := s.repo.UpsertItem(line); err != nil {
			return Cart{}, err
		}
	}

	if err := s.repo.DeleteCart(guestCart.ID); err != nil {
		return Cart{}, err
	}

	s.log.Info("guest cart merged to user cart",
		zap.String("session_id", sessionID),
		zap.Int("user_id", userID))
	return userCart, nil
}

// Summary reloads the persisted lines, enriches them with product names and
// returns the per-line and aggregate projection.
func (s *Service) Summary(cartID int) (Summary, error) {
	lines, err := s.repo.ListItems(cartID)
	if err != nil {
		return Summary{}, err
	}

	ids := make([]int, 0, len(lines))
	for _, line := range lines {
		ids = append(ids, line.ProductID)
	}
	prods, err := s.products.ListByIDs(ids)
	if err != nil {
		return Summary{}, err
	}
	names := make(map[int]string, len(prods))
	for _, p := range prods {
		names[p.ID] = p.Name
	}

	out := Summary{Items: make([]SummaryItem, 0, len(lines)), Subtotal: decimal.Zero}
	for _, line := range lines {
		lineTotal := line.LineTotal()
		out.Items = append(out.Items, SummaryItem{
			ProductID: line.ProductID,
			Name:      names[line.ProductID],
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
			LineTotal: lineTotal,
		})
		out.TotalItems += line.Quantity
		out.Subtotal = out.Subtotal.Add(lineTotal)
	}
	return out, nil
}

// requireActive rejects mutation of abandoned or converted carts.
func (s *Service) requireActive(cartID int) error {
	c, err := s.repo.GetByID(cartID)
	if err != nil {
		return err
	}
	if c.Status != StatusActive {
		return fmt.Errorf("%w: cart is %s", ErrInvalidOperation, c.Status)
	}
	return nil
}
