package pricing

import "github.com/shopspring/decimal"

// Config carries the shop-wide pricing knobs. It is injected into every
// calculation; nothing in this package reads global state.
type Config struct {
	TaxRate               decimal.Decimal
	BaseRate              decimal.Decimal
	PerItemRate           decimal.Decimal
	FreeShippingThreshold decimal.Decimal
}

// Tax returns the tax owed on a subtotal, rounded to two decimal places.
func Tax(subtotal decimal.Decimal, cfg Config) decimal.Decimal {
	return subtotal.Mul(cfg.TaxRate).Round(2)
}

// Shipping returns the shipping cost for a cart snapshot. Orders at or above
// the free-shipping threshold ship for free; everything else pays the base
// rate plus a per-item rate.
func Shipping(subtotal decimal.Decimal, totalQuantity int, cfg Config) decimal.Decimal {
	if subtotal.GreaterThanOrEqual(cfg.FreeShippingThreshold) {
		return decimal.Zero
	}
	perItems := cfg.PerItemRate.Mul(decimal.NewFromInt(int64(totalQuantity)))
	return cfg.BaseRate.Add(perItems).Round(2)
}
