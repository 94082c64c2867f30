package gate

import (
	"github.com/spec-kit/astro-gateway/internal/config"
	"github.com/spec-kit/astro-gateway/internal/domain"
)

// CookieGetter reads a cookie value by name; fiber's Ctx.Cookies satisfies it.
type CookieGetter func(name string, defaultValue ...string) string

// Tokens records which session cookies a request carried. In shared mode
// both fields hold the same value because the roles share one cookie.
type Tokens struct {
	User       string
	Astrologer string
}

// For returns the token that satisfies role.
func (t Tokens) For(role domain.Role) string {
	if role == domain.RoleAstrologer {
		return t.Astrologer
	}
	return t.User
}

// Any returns the first token present, and the role it was read for.
// Shared mode cannot tell the roles apart and always reports RoleUser.
func (t Tokens) Any() (string, domain.Role) {
	if t.User != "" {
		return t.User, domain.RoleUser
	}
	if t.Astrologer != "" {
		return t.Astrologer, domain.RoleAstrologer
	}
	return "", ""
}

// CookieReader extracts session tokens from a request's cookies.
type CookieReader struct {
	mode             string
	shared           string
	userCookie       string
	astrologerCookie string
}

// NewCookieReader builds a reader for the configured cookie mode.
func NewCookieReader(cfg config.GateConfig) CookieReader {
	return CookieReader{
		mode:             cfg.CookieMode,
		shared:           cfg.SharedCookie,
		userCookie:       cfg.UserCookie,
		astrologerCookie: cfg.AstrologerCookie,
	}
}

// Read looks up the session cookie(s). Only presence matters; values are
// never validated here.
func (r CookieReader) Read(get CookieGetter) Tokens {
	if r.mode == config.CookieModeSplit {
		return Tokens{
			User:       get(r.userCookie),
			Astrologer: get(r.astrologerCookie),
		}
	}
	v := get(r.shared)
	return Tokens{User: v, Astrologer: v}
}

// CookieName is the cookie carrying role's session, used when forwarding
// credentials to the backend.
func (r CookieReader) CookieName(role domain.Role) string {
	if r.mode != config.CookieModeSplit {
		return r.shared
	}
	if role == domain.RoleAstrologer {
		return r.astrologerCookie
	}
	return r.userCookie
}
