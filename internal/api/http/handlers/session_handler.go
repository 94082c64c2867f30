package handlers

import (
	"bufio"
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/astro-gateway/internal/api/dto"
	"github.com/spec-kit/astro-gateway/internal/backend"
	"github.com/spec-kit/astro-gateway/internal/domain"
	"github.com/spec-kit/astro-gateway/internal/events"
	"github.com/spec-kit/astro-gateway/internal/service"
	"github.com/spec-kit/astro-gateway/internal/session"
	"github.com/spec-kit/astro-gateway/internal/storage"
	apperrors "github.com/spec-kit/astro-gateway/pkg/util"
)

const (
	streamBuffer       = 32
	defaultKeepAlive   = 15 * time.Second
	snapshotReason     = "snapshot"
	defaultHistorySize = 20
)

// SessionHandler exposes the auth state store of the caller's session.
type SessionHandler struct {
	resolver   *SessionResolver
	manager    *session.Manager
	dispatcher events.Dispatcher
	journal    *service.JournalService
	logger     *zap.Logger
	keepAlive  time.Duration
}

// NewSessionHandler constructs handler.
func NewSessionHandler(resolver *SessionResolver, manager *session.Manager, dispatcher events.Dispatcher, journal *service.JournalService, logger *zap.Logger) *SessionHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionHandler{
		resolver:   resolver,
		manager:    manager,
		dispatcher: dispatcher,
		journal:    journal,
		logger:     logger,
		keepAlive:  defaultKeepAlive,
	}
}

// State handles GET /api/session. The first call of a session performs the
// one-shot profile fetch; a request without a cookie is simply logged out.
func (h *SessionHandler) State(c *fiber.Ctx) error {
	token, role := h.resolver.Token(c)
	if token == "" {
		return c.JSON(dto.SessionResponse{Data: domain.AuthState{}})
	}
	sess := h.manager.Get(token, role)
	st := sess.Auth.Initialize(c.UserContext())
	return c.JSON(dto.SessionResponse{Data: st})
}

// Refresh handles POST /api/session/refresh.
func (h *SessionHandler) Refresh(c *fiber.Ctx) error {
	sess, err := h.resolver.Resolve(c)
	if err != nil {
		return err
	}
	st, err := sess.Auth.Refresh(c.UserContext())
	// A rejected session is a forced logout, not a failure of the call.
	if err == nil || errors.Is(err, session.ErrSuperseded) || errors.Is(err, backend.ErrUnauthenticated) {
		return c.JSON(dto.SessionResponse{Data: st})
	}
	return backendError("profile refresh", err)
}

// Login handles POST /api/session/login. The profile was already obtained
// by the caller, so no backend call is made.
func (h *SessionHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.Profile.ID == "" {
		return apperrors.NewValidationError("profile id required", nil)
	}

	token, hint := h.resolver.Token(c)
	if token == "" {
		token = req.Token
	}
	if token == "" {
		return apperrors.NewNoSession("session cookie or token required")
	}

	role := domain.ParseRole(req.Role)
	if req.Role == "" && hint.Valid() {
		role = hint
	}

	sess := h.manager.Get(token, role)
	st := sess.Auth.Login(c.UserContext(), req.ToDomain(), role, req.Token)
	return c.JSON(dto.SessionResponse{Data: st})
}

// Logout handles POST /api/session/logout. Local state is cleared even
// when the backend call fails.
func (h *SessionHandler) Logout(c *fiber.Ctx) error {
	token, role := h.resolver.Token(c)
	if token == "" {
		return c.JSON(dto.SessionResponse{Data: domain.AuthState{}})
	}

	ctx := c.UserContext()
	sess := h.manager.Get(token, role)
	st := sess.Auth.Logout(ctx)
	sess.Cart.Reset(ctx)
	h.manager.Drop(ctx, token)
	return c.JSON(dto.SessionResponse{Data: st})
}

// History handles GET /api/session/history.
func (h *SessionHandler) History(c *fiber.Ctx) error {
	token, _ := h.resolver.Token(c)
	if token == "" {
		return apperrors.NewNoSession("session cookie missing")
	}
	rows, err := h.journal.History(c.UserContext(), storage.SessionKey(token), c.QueryInt("limit", defaultHistorySize))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewJournalEntries(rows)})
}

// Events handles GET /api/session/events, a server-sent event stream of
// the caller's session transitions. The current auth state is sent first.
func (h *SessionHandler) Events(c *fiber.Ctx) error {
	sess, err := h.resolver.Resolve(c)
	if err != nil {
		return err
	}

	feed := make(chan events.Event, streamBuffer)
	unsubscribe := make([]func(), 0, len(events.SessionTypes))
	for _, t := range events.SessionTypes {
		unsubscribe = append(unsubscribe, h.dispatcher.Subscribe(t, func(_ context.Context, e events.Event) error {
			if e.SessionKey != sess.Key {
				return nil
			}
			select {
			case feed <- e:
			default:
				h.logger.Debug("event stream full; dropping event", zap.String("event_type", string(e.Type)))
			}
			return nil
		}))
	}

	initial := events.New(events.EventAuthChanged, sess.Key, events.AuthChangedPayload{
		Reason: snapshotReason,
		State:  sess.Auth.State(),
	})

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	logger := h.logger
	keepAlive := h.keepAlive
	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer func() {
			for _, u := range unsubscribe {
				u()
			}
		}()

		if err := writeEvent(w, initial); err != nil {
			return
		}
		ticker := time.NewTicker(keepAlive)
		defer ticker.Stop()
		for {
			select {
			case e := <-feed:
				if err := writeEvent(w, e); err != nil {
					logger.Debug("event stream closed", zap.Error(err))
					return
				}
			case <-ticker.C:
				if err := writeKeepAlive(w); err != nil {
					return
				}
			}
		}
	})
	return nil
}
