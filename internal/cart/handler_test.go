package cart

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/shopspring/decimal"

	"github.com/chaiyarin55/storefront-backend/internal/identity"
	"github.com/chaiyarin55/storefront-backend/internal/product"
)

func makeAppWithCartHandler(cHandler *Handler) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		if v := c.Get("X-User-ID"); v != "" {
			id, err := strconv.Atoi(v)
			if err == nil {
				claims := jwt.MapClaims{"user_id": id}
				tok := &jwt.Token{Claims: claims}
				c.Locals("user", tok)
			}
		}
		return c.Next()
	})
	cHandler.RegisterRoutes(app)
	return app
}

func newHandlerFixture() (*Handler, *product.InMemoryRepository) {
	products := product.NewInMemoryRepository([]product.Product{
		{ID: 1, Name: "Widget", Price: decimal.RequireFromString("50.00"), StockQuantity: 10, IsActive: true},
		{ID: 2, Name: "Gadget", Price: decimal.RequireFromString("19.99"), StockQuantity: 2, IsActive: true},
	})
	repo := NewInMemoryRepository()
	service := NewService(repo, products, nil)
	return NewHandler(service), products
}

func TestCartRoutes_UserFlow(t *testing.T) {
	handler, _ := newHandlerFixture()
	app := makeAppWithCartHandler(handler)

	// ensure routes registered
	routes := map[string]bool{}
	for _, grp := range app.Stack() {
		for _, r := range grp {
			routes[r.Path] = true
		}
	}
	for _, path := range []string{"/api/v1/cart", "/api/v1/cart/items", "/api/v1/cart/merge"} {
		if !routes[path] {
			t.Fatalf("expected route %q to be registered", path)
		}
	}

	// empty cart comes back with zero totals
	req := httptest.NewRequest("GET", "/api/v1/cart", nil)
	req.Header.Set("X-User-ID", "42")
	res, _ := app.Test(req)
	if res.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200 for GET cart, got %d", res.StatusCode)
	}
	b, _ := io.ReadAll(res.Body)
	if !strings.Contains(string(b), `"totalItems":0`) {
		t.Fatalf("expected empty summary, got %s", string(b))
	}

	// add two widgets
	req2 := httptest.NewRequest("POST", "/api/v1/cart/items", strings.NewReader(`{"productId":1,"quantity":2}`))
	req2.Header.Set("Content-Type", "application/json")
	req2.Header.Set("X-User-ID", "42")
	res2, _ := app.Test(req2)
	if res2.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200 for add, got %d", res2.StatusCode)
	}
	b2, _ := io.ReadAll(res2.Body)
	if !strings.Contains(string(b2), `"quantity":2`) {
		t.Fatalf("expected quantity 2 in response, got %s", string(b2))
	}

	// adding the same product again increments the single line
	req3 := httptest.NewRequest("POST", "/api/v1/cart/items", strings.NewReader(`{"productId":1,"quantity":3}`))
	req3.Header.Set("Content-Type", "application/json")
	req3.Header.Set("X-User-ID", "42")
	res3, _ := app.Test(req3)
	b3, _ := io.ReadAll(res3.Body)
	if res3.StatusCode != fiber.StatusOK || !strings.Contains(string(b3), `"quantity":5`) {
		t.Fatalf("expected single line with quantity 5, got %d %s", res3.StatusCode, string(b3))
	}

	// over-stock add is rejected with 422 and the available count
	req4 := httptest.NewRequest("POST", "/api/v1/cart/items", strings.NewReader(`{"productId":2,"quantity":3}`))
	req4.Header.Set("Content-Type", "application/json")
	req4.Header.Set("X-User-ID", "42")
	res4, _ := app.Test(req4)
	b4, _ := io.ReadAll(res4.Body)
	if res4.StatusCode != fiber.StatusUnprocessableEntity || !strings.Contains(string(b4), "available: 2") {
		t.Fatalf("expected 422 with available count, got %d %s", res4.StatusCode, string(b4))
	}

	// absolute update to 4
	req5 := httptest.NewRequest("PUT", "/api/v1/cart/items/1", strings.NewReader(`{"quantity":4}`))
	req5.Header.Set("Content-Type", "application/json")
	req5.Header.Set("X-User-ID", "42")
	res5, _ := app.Test(req5)
	b5, _ := io.ReadAll(res5.Body)
	if res5.StatusCode != fiber.StatusOK || !strings.Contains(string(b5), `"quantity":4`) {
		t.Fatalf("expected quantity 4 after update, got %d %s", res5.StatusCode, string(b5))
	}

	// update to zero deletes the line
	req6 := httptest.NewRequest("PUT", "/api/v1/cart/items/1", strings.NewReader(`{"quantity":0}`))
	req6.Header.Set("Content-Type", "application/json")
	req6.Header.Set("X-User-ID", "42")
	res6, _ := app.Test(req6)
	if res6.StatusCode != fiber.StatusNoContent {
		t.Fatalf("expected 204 for zero-quantity update, got %d", res6.StatusCode)
	}

	// removing a line that is not there is a 404
	req7 := httptest.NewRequest("DELETE", "/api/v1/cart/items/1", nil)
	req7.Header.Set("X-User-ID", "42")
	res7, _ := app.Test(req7)
	if res7.StatusCode != fiber.StatusNotFound {
		t.Fatalf("expected 404 removing absent line, got %d", res7.StatusCode)
	}

	// clearing an already-empty cart is still a 204
	req8 := httptest.NewRequest("DELETE", "/api/v1/cart", nil)
	req8.Header.Set("X-User-ID", "42")
	res8, _ := app.Test(req8)
	if res8.StatusCode != fiber.StatusNoContent {
		t.Fatalf("expected 204 for clear, got %d", res8.StatusCode)
	}
}

func TestCartRoutes_GuestSessionAndMerge(t *testing.T) {
	handler, _ := newHandlerFixture()
	app := makeAppWithCartHandler(handler)

	// anonymous request mints a session cookie
	req := httptest.NewRequest("GET", "/api/v1/cart", nil)
	res, _ := app.Test(req)
	if res.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200 for guest GET, got %d", res.StatusCode)
	}
	var sid string
	for _, c := range res.Cookies() {
		if c.Name == identity.SessionCookie {
			sid = c.Value
		}
	}
	if sid == "" {
		t.Fatalf("expected a %s cookie on the guest response", identity.SessionCookie)
	}

	// guest adds an item under that session
	req2 := httptest.NewRequest("POST", "/api/v1/cart/items", strings.NewReader(`{"productId":1,"quantity":2}`))
	req2.Header.Set("Content-Type", "application/json")
	req2.AddCookie(&http.Cookie{Name: identity.SessionCookie, Value: sid})
	res2, _ := app.Test(req2)
	if res2.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200 for guest add, got %d", res2.StatusCode)
	}

	// merge without auth is rejected
	req3 := httptest.NewRequest("POST", "/api/v1/cart/merge", nil)
	req3.AddCookie(&http.Cookie{Name: identity.SessionCookie, Value: sid})
	res3, _ := app.Test(req3)
	if res3.StatusCode != fiber.StatusUnauthorized {
		t.Fatalf("expected 401 for anonymous merge, got %d", res3.StatusCode)
	}

	// logged-in merge folds the guest lines into the user cart
	req4 := httptest.NewRequest("POST", "/api/v1/cart/merge", nil)
	req4.Header.Set("X-User-ID", "7")
	req4.AddCookie(&http.Cookie{Name: identity.SessionCookie, Value: sid})
	res4, _ := app.Test(req4)
	if res4.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200 for merge, got %d", res4.StatusCode)
	}

	req5 := httptest.NewRequest("GET", "/api/v1/cart", nil)
	req5.Header.Set("X-User-ID", "7")
	res5, _ := app.Test(req5)
	b5, _ := io.ReadAll(res5.Body)
	if !strings.Contains(string(b5), `"totalItems":2`) {
		t.Fatalf("expected merged cart with 2 items, got %s", string(b5))
	}

	// merging again with the same cookie is harmless
	req6 := httptest.NewRequest("POST", "/api/v1/cart/merge", nil)
	req6.Header.Set("X-User-ID", "7")
	req6.AddCookie(&http.Cookie{Name: identity.SessionCookie, Value: sid})
	res6, _ := app.Test(req6)
	if res6.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200 for repeat merge, got %d", res6.StatusCode)
	}
	req7 := httptest.NewRequest("GET", "/api/v1/cart", nil)
	req7.Header.Set("X-User-ID", "7")
	res7, _ := app.Test(req7)
	b7, _ := io.ReadAll(res7.Body)
	if !strings.Contains(string(b7), `"totalItems":2`) {
		t.Fatalf("expected cart unchanged after repeat merge, got %s", string(b7))
	}
}
