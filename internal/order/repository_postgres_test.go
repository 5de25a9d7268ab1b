package order

import (
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/chaiyarin55/storefront-backend/internal/cart"
	"github.com/chaiyarin55/storefront-backend/internal/product"
)

func testOrderAndItems() (Order, []Item) {
	ord := Order{
		OrderNumber:  "ORD-20260829-ABC123",
		Status:       StatusPending,
		Subtotal:     decimal.RequireFromString("100.00"),
		Tax:          decimal.RequireFromString("10.00"),
		ShippingCost: decimal.Zero,
		Discount:     decimal.Zero,
		Total:        decimal.RequireFromString("110.00"),
		Currency:     "USD",
		Shipping:     Address{Name: "Jane Doe", Email: "jane@example.com", Line1: "1 Main St", City: "Springfield", State: "IL", Zip: "62704", Country: "US"},
	}
	ord.Billing = ord.Shipping
	items := []Item{{
		ProductID:   1,
		ProductName: "Product A",
		Quantity:    2,
		UnitPrice:   decimal.RequireFromString("50.00"),
		TotalPrice:  decimal.RequireFromString("100.00"),
	}}
	return ord, items
}

func TestPostgresCreateFromCart_CommitsWholeConversion(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()
	repo := NewPostgresRepository(db)
	ord, items := testOrderAndItems()

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO orders").WillReturnRows(sqlmock.NewRows([]string{"order_id"}).AddRow(10))
	mock.ExpectQuery("INSERT INTO order_items").WillReturnRows(sqlmock.NewRows([]string{"item_id"}).AddRow(100))
	mock.ExpectExec("UPDATE products").WithArgs(2, sqlmock.AnyArg(), 1).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE carts").WithArgs(sqlmock.AnyArg(), 5).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	created, err := repo.CreateFromCart(ord, items, 5)
	if err != nil {
		t.Fatalf("CreateFromCart: %v", err)
	}
	if created.ID != 10 || len(created.Items) != 1 || created.Items[0].ID != 100 || created.Items[0].OrderID != 10 {
		t.Fatalf("unexpected created order %+v", created)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestPostgresCreateFromCart_OversellRollsBack(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock error: %v", err)
	}
	defer db.Close()
	repo := NewPostgresRepository(db)
	ord, items := testOrderAndItems()

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO orders").WillReturnRows(sqlmock.NewRows([]string{"order_id"}).AddRow(10))
	mock.ExpectQuery("INSERT INTO order_items").WillReturnRows(sqlmock.NewRows([]string{"item_id"}).AddRow(100))
	// conditional debit matches no row: stock ran out under us
	mock.ExpectExec("UPDATE products").WithArgs(2, sqlmock.AnyArg(), 1).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT EXISTS").WithArgs(1).WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectRollback()

	if _, err := repo.CreateFromCart(ord, items, 5); !errors.Is(err, product.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestPostgresCreateFromCart_InactiveCartRollsBack(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock error: %v", err)
	}
	defer db.Close()
	repo := NewPostgresRepository(db)
	ord, items := testOrderAndItems()

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO orders").WillReturnRows(sqlmock.NewRows([]string{"order_id"}).AddRow(10))
	mock.ExpectQuery("INSERT INTO order_items").WillReturnRows(sqlmock.NewRows([]string{"item_id"}).AddRow(100))
	mock.ExpectExec("UPDATE products").WithArgs(2, sqlmock.AnyArg(), 1).WillReturnResult(sqlmock.NewResult(0, 1))
	// cart already converted: the conditional flip matches nothing
	mock.ExpectExec("UPDATE carts").WithArgs(sqlmock.AnyArg(), 5).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	if _, err := repo.CreateFromCart(ord, items, 5); !errors.Is(err, cart.ErrInvalidOperation) {
		t.Fatalf("expected cart.ErrInvalidOperation, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestPostgresCreateFromCart_DuplicateNumber(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock error: %v", err)
	}
	defer db.Close()
	repo := NewPostgresRepository(db)
	ord, items := testOrderAndItems()

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO orders").WillReturnError(&pgconn.PgError{Code: "23505"})
	mock.ExpectRollback()

	if _, err := repo.CreateFromCart(ord, items, 5); !errors.Is(err, ErrDuplicateNumber) {
		t.Fatalf("expected ErrDuplicateNumber, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestPostgresUpdateStatus_RejectsIllegalTransition(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock error: %v", err)
	}
	defer db.Close()
	repo := NewPostgresRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT status FROM orders").WithArgs(10).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow(StatusDelivered))
	mock.ExpectRollback()

	if _, err := repo.UpdateStatus(10, StatusShipped); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestPostgresCancel_RejectsShippedOrder(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock error: %v", err)
	}
	defer db.Close()
	repo := NewPostgresRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT status FROM orders").WithArgs(10).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow(StatusShipped))
	mock.ExpectRollback()

	if _, err := repo.Cancel(10); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}
