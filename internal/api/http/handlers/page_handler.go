package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/proxy"
	"go.uber.org/zap"

	apperrors "github.com/spec-kit/astro-gateway/pkg/util"
)

// PageHandler forwards requests that passed the route gate to the page
// renderer.
type PageHandler struct {
	origin string
	logger *zap.Logger
}

// NewPageHandler constructs handler. An empty origin answers 404.
func NewPageHandler(origin string, logger *zap.Logger) *PageHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PageHandler{origin: strings.TrimRight(origin, "/"), logger: logger}
}

// Forward proxies the request, query string included.
func (h *PageHandler) Forward(c *fiber.Ctx) error {
	if h.origin == "" {
		return fiber.ErrNotFound
	}
	target := h.origin + c.OriginalURL()
	if err := proxy.Do(c, target); err != nil {
		h.logger.Warn("page renderer unreachable", zap.String("path", c.Path()), zap.Error(err))
		return apperrors.NewUpstreamError("page render", err)
	}
	c.Response().Header.Del(fiber.HeaderServer)
	return nil
}
