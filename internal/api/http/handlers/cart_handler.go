package handlers

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/astro-gateway/internal/api/dto"
	"github.com/spec-kit/astro-gateway/internal/session"
	apperrors "github.com/spec-kit/astro-gateway/pkg/util"
)

// CartHandler exposes the cart state store of the caller's session.
type CartHandler struct {
	resolver *SessionResolver
	logger   *zap.Logger
}

// NewCartHandler constructs handler.
func NewCartHandler(resolver *SessionResolver, logger *zap.Logger) *CartHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CartHandler{resolver: resolver, logger: logger}
}

// Items handles GET /api/cart: refreshes the item list and returns the
// cached cart with its total.
func (h *CartHandler) Items(c *fiber.Ctx) error {
	sess, err := h.resolver.Resolve(c)
	if err != nil {
		return err
	}
	if _, err := sess.Cart.FetchItems(c.UserContext()); err != nil {
		return backendError("cart fetch", err)
	}
	return c.JSON(fiber.Map{"data": sess.Cart.Snapshot()})
}

// Count handles GET /api/cart/count.
func (h *CartHandler) Count(c *fiber.Ctx) error {
	sess, err := h.resolver.Resolve(c)
	if err != nil {
		return err
	}
	count, err := sess.Cart.FetchCount(c.UserContext())
	if err != nil {
		return backendError("cart count", err)
	}
	return c.JSON(fiber.Map{"data": dto.CartCountResponse{Count: count}})
}

// Add handles POST /api/cart/items, then reloads items and count. A failed
// reload is logged; the add itself already succeeded.
func (h *CartHandler) Add(c *fiber.Ctx) error {
	sess, err := h.resolver.Resolve(c)
	if err != nil {
		return err
	}

	var req dto.AddCartItemRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}

	ctx := c.UserContext()
	if err := sess.Cart.AddItem(ctx, req.ProductID, req.Quantity); err != nil {
		if errors.Is(err, session.ErrInvalidCartItem) {
			return apperrors.NewValidationError(err.Error(), map[string]any{
				"productId": req.ProductID,
				"quantity":  req.Quantity,
			})
		}
		return backendError("add to cart", err)
	}

	if err := sess.Cart.Load(ctx); err != nil {
		h.logger.Warn("cart reload after add failed", zap.Error(err))
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": sess.Cart.Snapshot()})
}
