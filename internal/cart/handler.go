package cart

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/chaiyarin55/storefront-backend/internal/identity"
	"github.com/chaiyarin55/storefront-backend/internal/product"
)

// Handler delegates cart operations to the cart service. Guests are tracked
// through a session cookie; authenticated users through their JWT claim.
type Handler struct {
	service *Service
}

func NewHandler(s *Service) *Handler {
	return &Handler{service: s}
}

func (h *Handler) RegisterRoutes(app *fiber.App) {
	app.Get("/api/v1/cart", h.getCart)
	app.Post("/api/v1/cart/items", h.addItem)
	app.Put("/api/v1/cart/items/:productID<[0-9]+>", h.updateQuantity)
	app.Delete("/api/v1/cart/items/:productID<[0-9]+>", h.removeItem)
	app.Delete("/api/v1/cart", h.clear)
	app.Post("/api/v1/cart/merge", h.merge)
}

type itemRequest struct {
	ProductID int `json:"productId"`
	Quantity  int `json:"quantity"`
}

// ResolveCart locates the caller's active cart: the user cart when a JWT is
// present, otherwise the guest cart behind the session cookie.
func (h *Handler) ResolveCart(c *fiber.Ctx) (Cart, error) {
	if userID, err := identity.UserIDFromCtx(c); err == nil {
		return h.service.GetOrCreateCart(&userID, nil)
	}
	sid := identity.SessionID(c)
	return h.service.GetOrCreateCart(nil, &sid)
}

func (h *Handler) getCart(c *fiber.Ctx) error {
	crt, err := h.ResolveCart(c)
	if err != nil {
		return writeError(c, err)
	}
	summary, err := h.service.Summary(crt.ID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(summary)
}

func (h *Handler) addItem(c *fiber.Ctx) error {
	payload := new(itemRequest)
	if err := c.BodyParser(payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}
	if payload.ProductID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid productId"})
	}

	crt, err := h.ResolveCart(c)
	if err != nil {
		return writeError(c, err)
	}

	item, err := h.service.AddItem(crt.ID, payload.ProductID, payload.Quantity)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(item)
}

func (h *Handler) updateQuantity(c *fiber.Ctx) error {
	productID, err := strconv.Atoi(c.Params("productID"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid productId"})
	}
	payload := new(itemRequest)
	if err := c.BodyParser(payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}

	crt, err := h.ResolveCart(c)
	if err != nil {
		return writeError(c, err)
	}

	item, err := h.service.UpdateQuantity(crt.ID, productID, payload.Quantity)
	if err != nil {
		return writeError(c, err)
	}
	if item == nil {
		return c.SendStatus(fiber.StatusNoContent)
	}
	return c.JSON(item)
}

func (h *Handler) removeItem(c *fiber.Ctx) error {
	productID, err := strconv.Atoi(c.Params("productID"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid productId"})
	}

	crt, err := h.ResolveCart(c)
	if err != nil {
		return writeError(c, err)
	}

	removed, err := h.service.RemoveItem(crt.ID, productID)
	if err != nil {
		return writeError(c, err)
	}
	if !removed {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "item not in cart"})
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *Handler) clear(c *fiber.Ctx) error {
	crt, err := h.ResolveCart(c)
	if err != nil {
		return writeError(c, err)
	}
	if err := h.service.Clear(crt.ID); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *Handler) merge(c *fiber.Ctx) error {
	userID, err := identity.UserIDFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
	}

	sid := c.Cookies(identity.SessionCookie)
	if sid == "" {
		// nothing to merge; still return the user's cart
		crt, err := h.service.GetOrCreateCart(&userID, nil)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(crt)
	}

	crt, err := h.service.MergeGuestCartToUser(sid, userID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(crt)
}

func writeError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, ErrNoIdentity):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	case errors.Is(err, ErrInvalidOperation):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"message": err.Error()})
	case errors.Is(err, product.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "product not found"})
	case errors.Is(err, ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "cart not found"})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": err.Error()})
	}
}
