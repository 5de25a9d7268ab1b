package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
)

func testConfig() Config {
	return Config{
		TaxRate:               decimal.RequireFromString("0.10"),
		BaseRate:              decimal.RequireFromString("5.99"),
		PerItemRate:           decimal.RequireFromString("1.00"),
		FreeShippingThreshold: decimal.RequireFromString("100.00"),
	}
}

func TestTax(t *testing.T) {
	cfg := testConfig()

	tax := Tax(decimal.RequireFromString("100.00"), cfg)
	if !tax.Equal(decimal.RequireFromString("10.00")) {
		t.Fatalf("expected tax 10.00, got %s", tax)
	}

	// 10.05 * 0.10 = 1.005 rounds half-up to 1.01
	tax = Tax(decimal.RequireFromString("10.05"), cfg)
	if !tax.Equal(decimal.RequireFromString("1.01")) {
		t.Fatalf("expected tax 1.01, got %s", tax)
	}

	tax = Tax(decimal.Zero, cfg)
	if !tax.Equal(decimal.Zero) {
		t.Fatalf("expected zero tax on zero subtotal, got %s", tax)
	}
}

func TestShipping_BelowThreshold(t *testing.T) {
	cfg := testConfig()

	// 5.99 + 3 * 1.00 = 8.99
	cost := Shipping(decimal.RequireFromString("50.00"), 3, cfg)
	if !cost.Equal(decimal.RequireFromString("8.99")) {
		t.Fatalf("expected shipping 8.99, got %s", cost)
	}
}

func TestShipping_ThresholdMet(t *testing.T) {
	cfg := testConfig()

	cost := Shipping(decimal.RequireFromString("100.00"), 2, cfg)
	if !cost.Equal(decimal.Zero) {
		t.Fatalf("expected free shipping at threshold, got %s", cost)
	}

	cost = Shipping(decimal.RequireFromString("250.00"), 10, cfg)
	if !cost.Equal(decimal.Zero) {
		t.Fatalf("expected free shipping above threshold, got %s", cost)
	}
}
