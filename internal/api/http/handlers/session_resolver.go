package handlers

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/astro-gateway/internal/backend"
	"github.com/spec-kit/astro-gateway/internal/domain"
	"github.com/spec-kit/astro-gateway/internal/gate"
	"github.com/spec-kit/astro-gateway/internal/session"
	apperrors "github.com/spec-kit/astro-gateway/pkg/util"
)

// SessionResolver maps a request's session cookie to its browsing session.
// Cookies are read exactly the way the route gate reads them.
type SessionResolver struct {
	manager *session.Manager
	cookies gate.CookieReader
}

// NewSessionResolver constructs a resolver.
func NewSessionResolver(manager *session.Manager, cookies gate.CookieReader) *SessionResolver {
	return &SessionResolver{manager: manager, cookies: cookies}
}

// Token returns the session token and the role it was read for. The token
// is empty when the request carries no session cookie.
func (r *SessionResolver) Token(c *fiber.Ctx) (string, domain.Role) {
	return r.cookies.Read(c.Cookies).Any()
}

// Resolve returns the caller's session, creating it on first use.
func (r *SessionResolver) Resolve(c *fiber.Ctx) (*session.Session, error) {
	token, role := r.Token(c)
	if token == "" {
		return nil, apperrors.NewNoSession("session cookie missing")
	}
	return r.manager.Get(token, role), nil
}

func backendError(operation string, err error) error {
	switch {
	case errors.Is(err, backend.ErrUnauthenticated):
		return apperrors.NewNoSession("session rejected by backend")
	case errors.Is(err, context.DeadlineExceeded):
		return err
	}
	return apperrors.NewUpstreamError(operation, err)
}
