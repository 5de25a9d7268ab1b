package order

import (
	"fmt"
	"sync"
	"time"

	"github.com/chaiyarin55/storefront-backend/internal/cart"
	"github.com/chaiyarin55/storefront-backend/internal/product"
)

// Repository defines persistence for orders. CreateFromCart and Cancel are
// the two multi-row operations the engine requires to be atomic: either the
// whole conversion (order row, item snapshots, stock debits, cart flip)
// commits, or the store is left exactly as it was.
type Repository interface {
	CreateFromCart(ord Order, items []Item, cartID int) (Order, error)
	GetByID(id int) (Order, error)
	GetByNumber(number string) (Order, error)
	ListByUser(userID int) ([]Order, error)
	// UpdateStatus applies a state-machine-checked status change.
	UpdateStatus(id int, status string) (Order, error)
	// Cancel flips a cancellable order to cancelled and restitutes each
	// line's quantity to the catalog, skipping products that no longer exist.
	Cancel(id int) (Order, error)
}

// InMemoryRepository implements conversions over the in-memory cart and
// product repositories. A single mutex spans each conversion, standing in
// for the data-store transaction.
type InMemoryRepository struct {
	mu       sync.Mutex
	orders   map[int]Order
	numbers  map[string]int
	carts    *cart.InMemoryRepository
	products *product.InMemoryRepository
	nextID   int
}

func NewInMemoryRepository(carts *cart.InMemoryRepository, products *product.InMemoryRepository) *InMemoryRepository {
	return &InMemoryRepository{
		orders:   make(map[int]Order),
		numbers:  make(map[string]int),
		carts:    carts,
		products: products,
		nextID:   1,
	}
}

func (r *InMemoryRepository) CreateFromCart(ord Order, items []Item, cartID int) (Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.numbers[ord.OrderNumber]; taken {
		return Order{}, ErrDuplicateNumber
	}

	// debit stock line by line, compensating already-applied debits on abort
	applied := make([]Item, 0, len(items))
	rollback := func() {
		for _, it := range applied {
			r.products.AdjustStock(it.ProductID, it.Quantity)
		}
	}
	for _, it := range items {
		if _, err := r.products.AdjustStock(it.ProductID, -it.Quantity); err != nil {
			rollback()
			return Order{}, err
		}
		applied = append(applied, it)
	}

	if err := r.carts.MarkConverted(cartID); err != nil {
		rollback()
		return Order{}, err
	}

	ord.ID = r.nextID
	r.nextID++
	for i := range items {
		items[i].ID = r.nextID
		r.nextID++
		items[i].OrderID = ord.ID
	}
	ord.Items = items
	r.orders[ord.ID] = ord
	r.numbers[ord.OrderNumber] = ord.ID
	return ord, nil
}

func (r *InMemoryRepository) GetByID(id int) (Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ord, ok := r.orders[id]
	if !ok {
		return Order{}, ErrNotFound
	}
	return ord, nil
}

func (r *InMemoryRepository) GetByNumber(number string) (Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.numbers[number]
	if !ok {
		return Order{}, ErrNotFound
	}
	return r.orders[id], nil
}

func (r *InMemoryRepository) ListByUser(userID int) ([]Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Order, 0)
	for _, ord := range r.orders {
		if ord.UserID != nil && *ord.UserID == userID {
			out = append(out, ord)
		}
	}
	return out, nil
}

func (r *InMemoryRepository) UpdateStatus(id int, status string) (Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ord, ok := r.orders[id]
	if !ok {
		return Order{}, ErrNotFound
	}
	if !canTransition(ord.Status, status) {
		return Order{}, fmt.Errorf("%w: order with status %q cannot move to %q", ErrInvalidTransition, ord.Status, status)
	}
	ord.Status = status
	ord.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
	r.orders[id] = ord
	return ord, nil
}

func (r *InMemoryRepository) Cancel(id int) (Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ord, ok := r.orders[id]
	if !ok {
		return Order{}, ErrNotFound
	}
	if !canBeCancelled(ord.Status) {
		return Order{}, fmt.Errorf("%w: order with status %q cannot be cancelled", ErrInvalidTransition, ord.Status)
	}

	ord.Status = StatusCancelled
	ord.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
	r.orders[id] = ord

	for _, it := range ord.Items {
		// vanished products skip restitution without failing the cancel
		r.products.AdjustStock(it.ProductID, it.Quantity)
	}
	return ord, nil
}
