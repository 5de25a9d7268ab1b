package product

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/lib/pq"
)

type PostgresRepository struct {
	db *sql.DB
}

const (
	listProductsQuery = `
		SELECT product_id, category_id, name, slug, sku, description, price, stock_quantity, image, images, is_active, shopify_product_id, created_at, updated_at
		FROM products
		ORDER BY product_id
	`
	listByCategoryQuery = `
		SELECT product_id, category_id, name, slug, sku, description, price, stock_quantity, image, images, is_active, shopify_product_id, created_at, updated_at
		FROM products
		WHERE category_id = $1
		ORDER BY product_id
	`
	listByIDsQuery = `
		SELECT product_id, category_id, name, slug, sku, description, price, stock_quantity, image, images, is_active, shopify_product_id, created_at, updated_at
		FROM products
		WHERE product_id = ANY($1::int[])
		ORDER BY array_position($1::int[], product_id)
	`
	getProductByIDQuery = `
		SELECT product_id, category_id, name, slug, sku, description, price, stock_quantity, image, images, is_active, shopify_product_id, created_at, updated_at
		FROM products
		WHERE product_id = $1
	`
	insertProductQuery = `
		INSERT INTO products (category_id, name, slug, sku, description, price, stock_quantity, image, images, is_active, shopify_product_id, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$12)
		RETURNING product_id
	`
	updateProductQuery = `
		UPDATE products
		SET category_id = $1,
			name = $2,
			slug = $3,
			sku = $4,
			description = $5,
			price = $6,
			stock_quantity = $7,
			image = $8,
			images = $9,
			is_active = $10,
			shopify_product_id = $11,
			updated_at = $12
		WHERE product_id = $13
	`
	deleteProductQuery = `DELETE FROM products WHERE product_id = $1`

	adjustStockQuery = `
		UPDATE products
		SET stock_quantity = stock_quantity + $1, updated_at = $2
		WHERE product_id = $3 AND stock_quantity + $1 >= 0
		RETURNING product_id, category_id, name, slug, sku, description, price, stock_quantity, image, images, is_active, shopify_product_id, created_at, updated_at
	`
)

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanProduct reads one product row, decoding the jsonb images column into an
// ordered string slice.
func scanProduct(row rowScanner) (Product, error) {
	var (
		p         Product
		imagesRaw []byte
	)
	err := row.Scan(&p.ID, &p.CategoryID, &p.Name, &p.Slug, &p.SKU, &p.Description, &p.Price, &p.StockQuantity, &p.Image, &imagesRaw, &p.IsActive, &p.ShopifyProductID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return Product{}, err
	}
	if len(imagesRaw) > 0 {
		if err := json.Unmarshal(imagesRaw, &p.Images); err != nil {
			return Product{}, err
		}
	}
	return p, nil
}

func encodeImages(images []string) ([]byte, error) {
	if images == nil {
		images = []string{}
	}
	return json.Marshal(images)
}

func (r *PostgresRepository) List() []Product {
	rows, err := r.db.Query(listProductsQuery)
	if err != nil {
		return []Product{}
	}
	defer rows.Close()

	out := make([]Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			continue
		}
		out = append(out, p)
	}
	return out
}

func (r *PostgresRepository) ListByCategory(categoryID int) []Product {
	rows, err := r.db.Query(listByCategoryQuery, categoryID)
	if err != nil {
		return []Product{}
	}
	defer rows.Close()

	out := make([]Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			continue
		}
		out = append(out, p)
	}
	return out
}

func (r *PostgresRepository) ListByIDs(ids []int) ([]Product, error) {
	if len(ids) == 0 {
		return []Product{}, nil
	}

	rows, err := r.db.Query(listByIDsQuery, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Product, 0, len(ids))
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func (r *PostgresRepository) GetByID(id int) (Product, error) {
	p, err := scanProduct(r.db.QueryRow(getProductByIDQuery, id))
	if err == sql.ErrNoRows {
		return Product{}, ErrNotFound
	}
	return p, err
}

func (r *PostgresRepository) Create(p Product) (Product, error) {
	images, err := encodeImages(p.Images)
	if err != nil {
		return Product{}, err
	}

	now := time.Now().UTC().Format(time.RFC3339)
	p.CreatedAt, p.UpdatedAt = now, now
	err = r.db.QueryRow(insertProductQuery,
		p.CategoryID, p.Name, p.Slug, p.SKU, p.Description, p.Price, p.StockQuantity, p.Image, images, p.IsActive, p.ShopifyProductID, now,
	).Scan(&p.ID)
	if err != nil {
		return Product{}, err
	}
	return p, nil
}

func (r *PostgresRepository) Update(id int, p Product) (Product, error) {
	images, err := encodeImages(p.Images)
	if err != nil {
		return Product{}, err
	}

	now := time.Now().UTC().Format(time.RFC3339)
	res, err := r.db.Exec(updateProductQuery,
		p.CategoryID, p.Name, p.Slug, p.SKU, p.Description, p.Price, p.StockQuantity, p.Image, images, p.IsActive, p.ShopifyProductID, now, id,
	)
	if err != nil {
		return Product{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return Product{}, ErrNotFound
	}
	p.ID = id
	p.UpdatedAt = now
	return p, nil
}

func (r *PostgresRepository) Delete(id int) error {
	res, err := r.db.Exec(deleteProductQuery, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// AdjustStock applies a stock delta in a single conditional UPDATE so the
// non-negative invariant holds under concurrent writers. A zero-row result
// means the product is missing or the debit would oversell.
func (r *PostgresRepository) AdjustStock(id int, delta int) (Product, error) {
	now := time.Now().UTC().Format(time.RFC3339)
	p, err := scanProduct(r.db.QueryRow(adjustStockQuery, delta, now, id))
	if err == sql.ErrNoRows {
		var exists bool
		if err2 := r.db.QueryRow(`SELECT EXISTS (SELECT 1 FROM products WHERE product_id = $1)`, id).Scan(&exists); err2 != nil {
			return Product{}, err2
		}
		if exists {
			return Product{}, ErrInsufficientStock
		}
		return Product{}, ErrNotFound
	}
	return p, err
}
