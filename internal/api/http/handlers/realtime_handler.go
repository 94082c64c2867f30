package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/astro-gateway/internal/api/dto"
	"github.com/spec-kit/astro-gateway/internal/realtime"
	apperrors "github.com/spec-kit/astro-gateway/pkg/util"
)

// RealtimeHandler manages the session's realtime channel.
type RealtimeHandler struct {
	resolver *SessionResolver
}

// NewRealtimeHandler constructs handler.
func NewRealtimeHandler(resolver *SessionResolver) *RealtimeHandler {
	return &RealtimeHandler{resolver: resolver}
}

// Status handles GET /api/realtime.
func (h *RealtimeHandler) Status(c *fiber.Ctx) error {
	sess, err := h.resolver.Resolve(c)
	if err != nil {
		return err
	}
	conn, ok := sess.Channel.Current()
	if !ok {
		return c.JSON(fiber.Map{"data": dto.RealtimeResponse{}})
	}
	return c.JSON(fiber.Map{"data": dto.RealtimeResponse{Connected: true, ConnectionID: conn.ID()}})
}

// Connect handles POST /api/realtime/connect. An already connected channel
// is returned as is.
func (h *RealtimeHandler) Connect(c *fiber.Ctx) error {
	sess, err := h.resolver.Resolve(c)
	if err != nil {
		return err
	}
	conn, err := sess.Channel.GetOrCreate(c.UserContext())
	if err != nil {
		if errors.Is(err, realtime.ErrNoToken) {
			return apperrors.NewNoSession("no bearer token for the realtime channel")
		}
		return apperrors.NewRealtimeUnavailable(err)
	}
	return c.JSON(fiber.Map{"data": dto.RealtimeResponse{Connected: conn.Alive(), ConnectionID: conn.ID()}})
}

// Disconnect handles DELETE /api/realtime/connect.
func (h *RealtimeHandler) Disconnect(c *fiber.Ctx) error {
	sess, err := h.resolver.Resolve(c)
	if err != nil {
		return err
	}
	closed := sess.Channel.Disconnect()
	return c.JSON(fiber.Map{"data": fiber.Map{"connected": false, "closed": closed}})
}
