package cart

import (
	"errors"
	"sync"
	"time"
)

var (
	// ErrNoIdentity means the caller supplied neither a user nor a session
	// identity to locate a cart. Caller bug, not retryable.
	ErrNoIdentity = errors.New("either a user or a session id is required")
	// ErrInvalidOperation covers quantity/availability precondition failures.
	// It is wrapped with a human-readable reason.
	ErrInvalidOperation = errors.New("invalid cart operation")
	ErrNotFound         = errors.New("cart not found")
	ErrItemNotFound     = errors.New("cart item not found")
)

// Repository provides access to carts and their lines.
type Repository interface {
	// GetOrCreate returns the single active cart for the given identity,
	// creating it atomically when missing. Concurrent first-calls for the
	// same identity converge on one row.
	GetOrCreate(userID *int, sessionID *string) (Cart, error)
	GetByID(id int) (Cart, error)
	// FindActiveBySession reports whether an active guest cart exists.
	FindActiveBySession(sessionID string) (Cart, bool, error)
	GetItem(cartID, productID int) (Item, bool, error)
	ListItems(cartID int) ([]Item, error)
	// UpsertItem inserts a line or, when one already exists for the same
	// (cart, product) pair, increments its quantity. The captured unit price
	// of an existing line is never overwritten.
	UpsertItem(item Item) (Item, error)
	// UpdateItemQuantity sets a line's quantity to an absolute value.
	UpdateItemQuantity(cartID, productID, quantity int) (Item, error)
	// DeleteItem removes a line, reporting whether one existed.
	DeleteItem(cartID, productID int) (bool, error)
	// ClearItems deletes all lines; clearing an empty cart is not an error.
	ClearItems(cartID int) error
	// DeleteCart removes the cart and cascades to its lines.
	DeleteCart(cartID int) error
}

// InMemoryRepository backs tests and local scenarios.
type InMemoryRepository struct {
	mu     sync.Mutex
	carts  map[int]Cart
	items  map[int][]Item
	nextID int
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		carts:  make(map[int]Cart),
		items:  make(map[int][]Item),
		nextID: 1,
	}
}

func (r *InMemoryRepository) GetOrCreate(userID *int, sessionID *string) (Cart, error) {
	if userID == nil && sessionID == nil {
		return Cart{}, ErrNoIdentity
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, c := range r.carts {
		if c.Status != StatusActive {
			continue
		}
		if userID != nil && c.UserID != nil && *c.UserID == *userID {
			return c, nil
		}
		if sessionID != nil && c.SessionID != nil && *c.SessionID == *sessionID {
			return c, nil
		}
	}

	now := time.Now().UTC().Format(time.RFC3339)
	c := Cart{ID: r.nextID, UserID: userID, SessionID: sessionID, Status: StatusActive, CreatedAt: now, UpdatedAt: now}
	r.nextID++
	r.carts[c.ID] = c
	return c, nil
}

func (r *InMemoryRepository) GetByID(id int) (Cart, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.carts[id]
	if !ok {
		return Cart{}, ErrNotFound
	}
	return c, nil
}

func (r *InMemoryRepository) FindActiveBySession(sessionID string) (Cart, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.carts {
		if c.Status == StatusActive && c.SessionID != nil && *c.SessionID == sessionID {
			return c, true, nil
		}
	}
	return Cart{}, false, nil
}

func (r *InMemoryRepository) GetItem(cartID, productID int) (Item, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, it := range r.items[cartID] {
		if it.ProductID == productID {
			return it, true, nil
		}
	}
	return Item{}, false, nil
}

func (r *InMemoryRepository) ListItems(cartID int) ([]Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Item, len(r.items[cartID]))
	copy(out, r.items[cartID])
	return out, nil
}

func (r *InMemoryRepository) UpsertItem(item Item) (Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.carts[item.CartID]; !ok {
		return Item{}, ErrNotFound
	}
	lines := r.items[item.CartID]
	for i := range lines {
		if lines[i].ProductID == item.ProductID {
			lines[i].Quantity += item.Quantity
			return lines[i], nil
		}
	}
	item.ID = r.nextID
	r.nextID++
	r.items[item.CartID] = append(lines, item)
	return item, nil
}

func (r *InMemoryRepository) UpdateItemQuantity(cartID, productID, quantity int) (Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	lines := r.items[cartID]
	for i := range lines {
		if lines[i].ProductID == productID {
			lines[i].Quantity = quantity
			return lines[i], nil
		}
	}
	return Item{}, ErrItemNotFound
}

func (r *InMemoryRepository) DeleteItem(cartID, productID int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	lines := r.items[cartID]
	for i := range lines {
		if lines[i].ProductID == productID {
			r.items[cartID] = append(lines[:i], lines[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (r *InMemoryRepository) ClearItems(cartID int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[cartID] = nil
	return nil
}

func (r *InMemoryRepository) DeleteCart(cartID int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.carts, cartID)
	delete(r.items, cartID)
	return nil
}

// MarkConverted flips an active cart to converted. The order repository uses
// it to close the cart inside a conversion; a cart that is no longer active
// cannot be converted again.
func (r *InMemoryRepository) MarkConverted(cartID int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.carts[cartID]
	if !ok {
		return ErrNotFound
	}
	if c.Status != StatusActive {
		return ErrInvalidOperation
	}
	c.Status = StatusConverted
	c.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
	r.carts[cartID] = c
	return nil
}
