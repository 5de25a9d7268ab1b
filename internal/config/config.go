package config

import (
	"os"

	"github.com/shopspring/decimal"

	"github.com/chaiyarin55/storefront-backend/internal/pricing"
)

type Config struct {
	Addr           string
	DatabaseURL    string
	JWTSecret      string
	MigrationsPath string
	Currency       string
	Pricing        pricing.Config
}

func Load() Config {
	addr := os.Getenv("SHOP_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	migrations := os.Getenv("MIGRATIONS_PATH")
	if migrations == "" {
		migrations = "./migrations"
	}

	currency := os.Getenv("SHOP_CURRENCY")
	if currency == "" {
		currency = "USD"
	}

	return Config{
		Addr:           addr,
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		JWTSecret:      os.Getenv("JWT_SECRET"),
		MigrationsPath: migrations,
		Currency:       currency,
		Pricing: pricing.Config{
			TaxRate:               envDecimal("SHOP_TAX_RATE", "0.10"),
			BaseRate:              envDecimal("SHOP_SHIPPING_BASE_RATE", "5.99"),
			PerItemRate:           envDecimal("SHOP_SHIPPING_PER_ITEM_RATE", "1.00"),
			FreeShippingThreshold: envDecimal("SHOP_FREE_SHIPPING_THRESHOLD", "100.00"),
		},
	}
}

// envDecimal parses a decimal env var, falling back to the default when the
// variable is unset or malformed.
func envDecimal(key, fallback string) decimal.Decimal {
	if raw := os.Getenv(key); raw != "" {
		if d, err := decimal.NewFromString(raw); err == nil {
			return d
		}
	}
	return decimal.RequireFromString(fallback)
}
