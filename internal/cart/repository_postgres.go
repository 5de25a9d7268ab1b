package cart

import (
	"database/sql"
	"time"
)

type PostgresRepository struct {
	db *sql.DB
}

const (
	cartColumnsQuery = `SELECT cart_id, user_id, session_id, status, created_at, updated_at FROM carts`

	// The partial unique indexes on (user_id) / (session_id) WHERE status =
	// 'active' make concurrent first-requests race to a single winner.
	insertUserCartQuery = `
		INSERT INTO carts (user_id, status, created_at, updated_at)
		VALUES ($1, 'active', $2, $2)
		ON CONFLICT (user_id) WHERE status = 'active' DO NOTHING
	`
	insertSessionCartQuery = `
		INSERT INTO carts (session_id, status, created_at, updated_at)
		VALUES ($1, 'active', $2, $2)
		ON CONFLICT (session_id) WHERE status = 'active' DO NOTHING
	`

	upsertItemQuery = `
		INSERT INTO cart_items (cart_id, product_id, quantity, unit_price)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (cart_id, product_id)
		DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity
		RETURNING item_id, cart_id, product_id, quantity, unit_price
	`
	updateItemQuantityQuery = `
		UPDATE cart_items SET quantity = $1
		WHERE cart_id = $2 AND product_id = $3
		RETURNING item_id, cart_id, product_id, quantity, unit_price
	`
)

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func scanCart(row *sql.Row) (Cart, error) {
	var c Cart
	err := row.Scan(&c.ID, &c.UserID, &c.SessionID, &c.Status, &c.CreatedAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return Cart{}, ErrNotFound
	}
	return c, err
}

func (r *PostgresRepository) GetOrCreate(userID *int, sessionID *string) (Cart, error) {
	now := time.Now().UTC().Format(time.RFC3339)
	switch {
	case userID != nil:
		if _, err := r.db.Exec(insertUserCartQuery, *userID, now); err != nil {
			return Cart{}, err
		}
		return scanCart(r.db.QueryRow(cartColumnsQuery+` WHERE user_id = $1 AND status = 'active'`, *userID))
	case sessionID != nil:
		if _, err := r.db.Exec(insertSessionCartQuery, *sessionID, now); err != nil {
			return Cart{}, err
		}
		return scanCart(r.db.QueryRow(cartColumnsQuery+` WHERE session_id = $1 AND status = 'active'`, *sessionID))
	default:
		return Cart{}, ErrNoIdentity
	}
}

func (r *PostgresRepository) GetByID(id int) (Cart, error) {
	return scanCart(r.db.QueryRow(cartColumnsQuery+` WHERE cart_id = $1`, id))
}

func (r *PostgresRepository) FindActiveBySession(sessionID string) (Cart, bool, error) {
	c, err := scanCart(r.db.QueryRow(cartColumnsQuery+` WHERE session_id = $1 AND status = 'active'`, sessionID))
	if err == ErrNotFound {
		return Cart{}, false, nil
	}
	if err != nil {
		return Cart{}, false, err
	}
	return c, true, nil
}

func (r *PostgresRepository) GetItem(cartID, productID int) (Item, bool, error) {
	var it Item
	err := r.db.QueryRow(
		`SELECT item_id, cart_id, product_id, quantity, unit_price FROM cart_items WHERE cart_id = $1 AND product_id = $2`,
		cartID, productID,
	).Scan(&it.ID, &it.CartID, &it.ProductID, &it.Quantity, &it.UnitPrice)
	if err == sql.ErrNoRows {
		return Item{}, false, nil
	}
	if err != nil {
		return Item{}, false, err
	}
	return it, true, nil
}

func (r *PostgresRepository) ListItems(cartID int) ([]Item, error) {
	rows, err := r.db.Query(
		`SELECT item_id, cart_id, product_id, quantity, unit_price FROM cart_items WHERE cart_id = $1 ORDER BY item_id`,
		cartID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Item, 0)
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.CartID, &it.ProductID, &it.Quantity, &it.UnitPrice); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) UpsertItem(item Item) (Item, error) {
	err := r.db.QueryRow(upsertItemQuery, item.CartID, item.ProductID, item.Quantity, item.UnitPrice).
		Scan(&item.ID, &item.CartID, &item.ProductID, &item.Quantity, &item.UnitPrice)
	if err != nil {
		return Item{}, err
	}
	return item, nil
}

func (r *PostgresRepository) UpdateItemQuantity(cartID, productID, quantity int) (Item, error) {
	var it Item
	err := r.db.QueryRow(updateItemQuantityQuery, quantity, cartID, productID).
		Scan(&it.ID, &it.CartID, &it.ProductID, &it.Quantity, &it.UnitPrice)
	if err == sql.ErrNoRows {
		return Item{}, ErrItemNotFound
	}
	if err != nil {
		return Item{}, err
	}
	return it, nil
}

func (r *PostgresRepository) DeleteItem(cartID, productID int) (bool, error) {
	res, err := r.db.Exec(`DELETE FROM cart_items WHERE cart_id = $1 AND product_id = $2`, cartID, productID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *PostgresRepository) ClearItems(cartID int) error {
	_, err := r.db.Exec(`DELETE FROM cart_items WHERE cart_id = $1`, cartID)
	return err
}

func (r *PostgresRepository) DeleteCart(cartID int) error {
	// cart_items cascades on the foreign key
	_, err := r.db.Exec(`DELETE FROM carts WHERE cart_id = $1`, cartID)
	return err
}
