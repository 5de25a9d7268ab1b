package order

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/chaiyarin55/storefront-backend/internal/cart"
	"github.com/chaiyarin55/storefront-backend/internal/identity"
	"github.com/chaiyarin55/storefront-backend/internal/product"
)

// Handler exposes checkout and order lifecycle endpoints. The cart handler
// resolves the caller's cart so guests and users share one checkout path.
type Handler struct {
	service     *Service
	cartHandler *cart.Handler
}

func NewHandler(s *Service, ch *cart.Handler) *Handler {
	return &Handler{service: s, cartHandler: ch}
}

func (h *Handler) RegisterRoutes(app *fiber.App) {
	app.Post("/api/v1/checkout", h.checkout)
	app.Get("/api/v1/orders", h.listOrders)
	app.Get("/api/v1/orders/:number", h.getOrder)
	app.Post("/api/v1/orders/:number/cancel", h.cancelOrder)
}

type checkoutRequest struct {
	Shipping Address  `json:"shipping"`
	Billing  *Address `json:"billing,omitempty"`
	Notes    *string  `json:"notes,omitempty"`
}

func (r checkoutRequest) isMissingRequiredFields() bool {
	s := r.Shipping
	return s.Name == "" || s.Email == "" || s.Line1 == "" || s.City == "" || s.State == "" || s.Zip == ""
}

func (h *Handler) checkout(c *fiber.Ctx) error {
	payload := new(checkoutRequest)
	if err := c.BodyParser(payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}
	if payload.isMissingRequiredFields() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "shipping name, email, address, city, state and zip are required"})
	}
	if payload.Shipping.Country == "" {
		payload.Shipping.Country = "US"
	}

	crt, err := h.cartHandler.ResolveCart(c)
	if err != nil {
		return h.writeError(c, err)
	}

	created, err := h.service.CreateFromCart(crt.ID, payload.Shipping, payload.Billing, payload.Notes)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *Handler) listOrders(c *fiber.Ctx) error {
	userID, err := identity.UserIDFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
	}

	orders, err := h.service.ListByUser(userID)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(orders)
}

func (h *Handler) getOrder(c *fiber.Ctx) error {
	ord, err := h.service.GetByNumber(c.Params("number"))
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(ord)
}

func (h *Handler) cancelOrder(c *fiber.Ctx) error {
	ord, err := h.service.GetByNumber(c.Params("number"))
	if err != nil {
		return h.writeError(c, err)
	}

	cancelled, err := h.service.Cancel(ord.ID)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(cancelled)
}

func (h *Handler) writeError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, ErrEmptyCart):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "cart is empty"})
	case errors.Is(err, product.ErrInsufficientStock):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"message": err.Error()})
	case errors.Is(err, ErrInvalidTransition):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"message": err.Error()})
	case errors.Is(err, ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "order not found"})
	case errors.Is(err, product.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "product not found"})
	case errors.Is(err, cart.ErrInvalidOperation):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"message": err.Error()})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": err.Error()})
	}
}
