package order

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"github.com/chaiyarin55/storefront-backend/internal/cart"
	"github.com/chaiyarin55/storefront-backend/internal/product"
)

type PostgresRepository struct {
	db *sql.DB
}

const (
	orderColumns = `order_id, user_id, order_number, status, subtotal, tax, shipping_cost, discount, total, currency,
		shipping_name, shipping_email, shipping_phone, shipping_address, shipping_city, shipping_state, shipping_zip, shipping_country,
		billing_name, billing_address, billing_city, billing_state, billing_zip, billing_country,
		notes, shopify_id, created_at, updated_at`

	insertOrderQuery = `
		INSERT INTO orders (user_id, order_number, status, subtotal, tax, shipping_cost, discount, total, currency,
			shipping_name, shipping_email, shipping_phone, shipping_address, shipping_city, shipping_state, shipping_zip, shipping_country,
			billing_name, billing_address, billing_city, billing_state, billing_zip, billing_country,
			notes, shopify_id, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,$25,$26,$26)
		RETURNING order_id
	`
	insertOrderItemQuery = `
		INSERT INTO order_items (order_id, product_id, product_name, product_sku, quantity, unit_price, total_price)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING item_id
	`
	// The conditional debit takes a row lock and re-validates stock at commit
	// time; zero rows affected means the sale would oversell.
	debitStockQuery = `
		UPDATE products SET stock_quantity = stock_quantity - $1, updated_at = $2
		WHERE product_id = $3 AND stock_quantity >= $1
	`
	restituteStockQuery = `
		UPDATE products SET stock_quantity = stock_quantity + $1, updated_at = $2
		WHERE product_id = $3
	`
	convertCartQuery = `
		UPDATE carts SET status = 'converted', updated_at = $1
		WHERE cart_id = $2 AND status = 'active'
	`

	orderItemColumns = `item_id, order_id, product_id, product_name, product_sku, quantity, unit_price, total_price`
)

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// CreateFromCart persists the whole conversion in one transaction: order row,
// item snapshots, per-line stock debits and the cart's flip to converted. Any
// failure rolls everything back.
func (r *PostgresRepository) CreateFromCart(ord Order, items []Item, cartID int) (Order, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return Order{}, err
	}
	defer tx.Rollback()

	now := time.Now().UTC().Format(time.RFC3339)
	ord.CreatedAt, ord.UpdatedAt = now, now
	err = tx.QueryRow(insertOrderQuery,
		ord.UserID, ord.OrderNumber, ord.Status, ord.Subtotal, ord.Tax, ord.ShippingCost, ord.Discount, ord.Total, ord.Currency,
		ord.Shipping.Name, ord.Shipping.Email, ord.Shipping.Phone, ord.Shipping.Line1, ord.Shipping.City, ord.Shipping.State, ord.Shipping.Zip, ord.Shipping.Country,
		ord.Billing.Name, ord.Billing.Line1, ord.Billing.City, ord.Billing.State, ord.Billing.Zip, ord.Billing.Country,
		ord.Notes, ord.ShopifyID, now,
	).Scan(&ord.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return Order{}, ErrDuplicateNumber
		}
		return Order{}, err
	}

	for i := range items {
		items[i].OrderID = ord.ID
		it := &items[i]
		if err := tx.QueryRow(insertOrderItemQuery,
			it.OrderID, it.ProductID, it.ProductName, it.ProductSKU, it.Quantity, it.UnitPrice, it.TotalPrice,
		).Scan(&it.ID); err != nil {
			return Order{}, err
		}

		res, err := tx.Exec(debitStockQuery, it.Quantity, now, it.ProductID)
		if err != nil {
			return Order{}, err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return Order{}, err
		}
		if n == 0 {
			var exists bool
			if err := tx.QueryRow(`SELECT EXISTS (SELECT 1 FROM products WHERE product_id = $1)`, it.ProductID).Scan(&exists); err != nil {
				return Order{}, err
			}
			if exists {
				return Order{}, fmt.Errorf("%w for product %d", product.ErrInsufficientStock, it.ProductID)
			}
			return Order{}, product.ErrNotFound
		}
	}

	res, err := tx.Exec(convertCartQuery, now, cartID)
	if err != nil {
		return Order{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return Order{}, fmt.Errorf("%w: cart is not active", cart.ErrInvalidOperation)
	}

	if err := tx.Commit(); err != nil {
		return Order{}, err
	}
	ord.Items = items
	return ord, nil
}

func (r *PostgresRepository) GetByID(id int) (Order, error) {
	ord, err := r.scanOrderRow(r.db.QueryRow(
		`SELECT `+orderColumns+` FROM orders WHERE order_id = $1 AND deleted_at IS NULL`, id))
	if err != nil {
		return Order{}, err
	}
	return r.attachItems(ord)
}

func (r *PostgresRepository) GetByNumber(number string) (Order, error) {
	ord, err := r.scanOrderRow(r.db.QueryRow(
		`SELECT `+orderColumns+` FROM orders WHERE order_number = $1 AND deleted_at IS NULL`, number))
	if err != nil {
		return Order{}, err
	}
	return r.attachItems(ord)
}

func (r *PostgresRepository) ListByUser(userID int) ([]Order, error) {
	rows, err := r.db.Query(
		`SELECT `+orderColumns+` FROM orders WHERE user_id = $1 AND deleted_at IS NULL ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := make([]Order, 0)
	ids := make([]int, 0)
	for rows.Next() {
		ord, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, ord)
		ids = append(ids, ord.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return orders, nil
	}

	itemRows, err := r.db.Query(
		`SELECT `+orderItemColumns+` FROM order_items WHERE order_id = ANY($1::int[]) ORDER BY item_id`, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer itemRows.Close()

	byOrder := make(map[int][]Item)
	for itemRows.Next() {
		it, err := scanItem(itemRows)
		if err != nil {
			return nil, err
		}
		byOrder[it.OrderID] = append(byOrder[it.OrderID], it)
	}
	for i := range orders {
		orders[i].Items = byOrder[orders[i].ID]
	}
	return orders, itemRows.Err()
}

// UpdateStatus locks the row, validates the transition and writes the new
// status, all inside one transaction.
func (r *PostgresRepository) UpdateStatus(id int, status string) (Order, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return Order{}, err
	}
	defer tx.Rollback()

	var current string
	err = tx.QueryRow(`SELECT status FROM orders WHERE order_id = $1 AND deleted_at IS NULL FOR UPDATE`, id).Scan(&current)
	if err == sql.ErrNoRows {
		return Order{}, ErrNotFound
	}
	if err != nil {
		return Order{}, err
	}
	if !canTransition(current, status) {
		return Order{}, fmt.Errorf("%w: order with status %q cannot move to %q", ErrInvalidTransition, current, status)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	if _, err := tx.Exec(`UPDATE orders SET status = $1, updated_at = $2 WHERE order_id = $3`, status, now, id); err != nil {
		return Order{}, err
	}
	if err := tx.Commit(); err != nil {
		return Order{}, err
	}
	return r.GetByID(id)
}

// Cancel is atomic across the status change and the restitution loop. A
// product deleted since the sale skips restitution without failing the whole
// cancellation.
func (r *PostgresRepository) Cancel(id int) (Order, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return Order{}, err
	}
	defer tx.Rollback()

	var current string
	err = tx.QueryRow(`SELECT status FROM orders WHERE order_id = $1 AND deleted_at IS NULL FOR UPDATE`, id).Scan(&current)
	if err == sql.ErrNoRows {
		return Order{}, ErrNotFound
	}
	if err != nil {
		return Order{}, err
	}
	if !canBeCancelled(current) {
		return Order{}, fmt.Errorf("%w: order with status %q cannot be cancelled", ErrInvalidTransition, current)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	if _, err := tx.Exec(`UPDATE orders SET status = $1, updated_at = $2 WHERE order_id = $3`, StatusCancelled, now, id); err != nil {
		return Order{}, err
	}

	itemRows, err := tx.Query(`SELECT product_id, quantity FROM order_items WHERE order_id = $1`, id)
	if err != nil {
		return Order{}, err
	}
	type restitution struct{ productID, quantity int }
	lines := make([]restitution, 0)
	for itemRows.Next() {
		var l restitution
		if err := itemRows.Scan(&l.productID, &l.quantity); err != nil {
			itemRows.Close()
			return Order{}, err
		}
		lines = append(lines, l)
	}
	itemRows.Close()
	if err := itemRows.Err(); err != nil {
		return Order{}, err
	}

	for _, l := range lines {
		if _, err := tx.Exec(restituteStockQuery, l.quantity, now, l.productID); err != nil {
			return Order{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return Order{}, err
	}
	return r.GetByID(id)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (Order, error) {
	var (
		ord   Order
		notes sql.NullString
	)
	err := row.Scan(&ord.ID, &ord.UserID, &ord.OrderNumber, &ord.Status, &ord.Subtotal, &ord.Tax, &ord.ShippingCost, &ord.Discount, &ord.Total, &ord.Currency,
		&ord.Shipping.Name, &ord.Shipping.Email, &ord.Shipping.Phone, &ord.Shipping.Line1, &ord.Shipping.City, &ord.Shipping.State, &ord.Shipping.Zip, &ord.Shipping.Country,
		&ord.Billing.Name, &ord.Billing.Line1, &ord.Billing.City, &ord.Billing.State, &ord.Billing.Zip, &ord.Billing.Country,
		&notes, &ord.ShopifyID, &ord.CreatedAt, &ord.UpdatedAt)
	if err != nil {
		return Order{}, err
	}
	if notes.Valid {
		ord.Notes = &notes.String
	}
	return ord, nil
}

func (r *PostgresRepository) scanOrderRow(row *sql.Row) (Order, error) {
	ord, err := scanOrder(row)
	if err == sql.ErrNoRows {
		return Order{}, ErrNotFound
	}
	return ord, err
}

func scanItem(row rowScanner) (Item, error) {
	var it Item
	err := row.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.ProductName, &it.ProductSKU, &it.Quantity, &it.UnitPrice, &it.TotalPrice)
	return it, err
}

func (r *PostgresRepository) attachItems(ord Order) (Order, error) {
	rows, err := r.db.Query(`SELECT `+orderItemColumns+` FROM order_items WHERE order_id = $1 ORDER BY item_id`, ord.ID)
	if err != nil {
		return Order{}, err
	}
	defer rows.Close()

	items := make([]Item, 0)
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return Order{}, err
		}
		items = append(items, it)
	}
	ord.Items = items
	return ord, rows.Err()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
