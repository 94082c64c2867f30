package session

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/astro-gateway/internal/backend"
	"github.com/spec-kit/astro-gateway/internal/domain"
	"github.com/spec-kit/astro-gateway/internal/events"
	"github.com/spec-kit/astro-gateway/internal/realtime"
	"github.com/spec-kit/astro-gateway/internal/storage"
)

// Session is everything the gateway keeps for one browsing session: the
// auth and cart caches, the realtime channel and the local storage area.
type Session struct {
	Key     string
	Auth    *AuthStore
	Cart    *CartStore
	Channel *realtime.Channel
	Local   storage.Local

	lastSeen atomic.Int64
}

func (s *Session) touch(now time.Time) {
	s.lastSeen.Store(now.UnixNano())
}

// LastSeen is the last time the session was handed out.
func (s *Session) LastSeen() time.Time {
	return time.Unix(0, s.lastSeen.Load())
}

// Dependencies are shared by every session a Manager creates.
type Dependencies struct {
	Profiles        ProfileAPI
	Carts           CartAPI
	Storage         storage.Backend
	Dispatcher      events.Dispatcher
	Dialer          realtime.Dialer
	RealtimeBaseURL string
	// CookieName maps a role to the cookie its session travels in.
	CookieName func(domain.Role) string
	Timeout    time.Duration
	IdleTTL    time.Duration
	Logger     *zap.Logger
}

// Manager owns the sessions of all browsers talking to the gateway, keyed
// by a hash of their session token.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
	deps     Dependencies
	now      func() time.Time
}

// NewManager creates an empty registry.
func NewManager(deps Dependencies) *Manager {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.IdleTTL <= 0 {
		deps.IdleTTL = time.Hour
	}
	return &Manager{
		sessions: make(map[string]*Session),
		deps:     deps,
		now:      time.Now,
	}
}

// Get returns the session for token, creating it on first use. roleHint
// seeds the auth store's role when the cookie already tells it apart.
func (m *Manager) Get(token string, roleHint domain.Role) *Session {
	key := storage.SessionKey(token)

	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[key]; ok {
		s.touch(m.now())
		return s
	}
	s := m.build(key, token, roleHint)
	s.touch(m.now())
	m.sessions[key] = s
	return s
}

// Lookup returns an existing session without creating one.
func (m *Manager) Lookup(token string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[storage.SessionKey(token)]
	return s, ok
}

// Drop releases a session after logout: its channel is disconnected and
// its local storage purged.
func (m *Manager) Drop(ctx context.Context, token string) {
	key := storage.SessionKey(token)

	m.mu.Lock()
	s, ok := m.sessions[key]
	delete(m.sessions, key)
	m.mu.Unlock()

	if ok {
		s.Channel.Disconnect()
	}
	if m.deps.Storage != nil {
		if err := m.deps.Storage.Purge(ctx, key); err != nil {
			m.deps.Logger.Warn("purge session storage failed", zap.String("session", key), zap.Error(err))
		}
	}
}

// Sweep forgets sessions idle for longer than the TTL and returns how many
// were evicted. Backends that cannot expire areas themselves are swept too.
func (m *Manager) Sweep(now time.Time) int {
	cutoff := now.Add(-m.deps.IdleTTL)

	m.mu.Lock()
	var idle []*Session
	for key, s := range m.sessions {
		if s.LastSeen().Before(cutoff) {
			idle = append(idle, s)
			delete(m.sessions, key)
		}
	}
	m.mu.Unlock()

	for _, s := range idle {
		s.Channel.Disconnect()
	}
	if exp, ok := m.deps.Storage.(storage.Expirer); ok {
		if n := exp.Expire(now); n > 0 {
			m.deps.Logger.Debug("expired session storage", zap.Int("areas", n))
		}
	}
	return len(idle)
}

// Len is the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Close disconnects every channel and empties the registry.
func (m *Manager) Close() {
	m.mu.Lock()
	all := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range all {
		s.Channel.Disconnect()
	}
}

func (m *Manager) build(key, token string, roleHint domain.Role) *Session {
	d := m.deps
	logger := d.Logger.With(zap.String("session", key[:12]))

	var local storage.Local
	if d.Storage != nil {
		local = d.Storage.Scope(key)
	}

	creds := func(role domain.Role) backend.Credentials {
		name := ""
		if d.CookieName != nil {
			name = d.CookieName(role)
		}
		return backend.Credentials{CookieName: name, Token: token, Role: role}
	}

	auth := NewAuthStore(AuthStoreConfig{
		API:        d.Profiles,
		Creds:      creds,
		Local:      local,
		Dispatcher: d.Dispatcher,
		SessionKey: key,
		RoleHint:   roleHint,
		Timeout:    d.Timeout,
		Logger:     logger,
	})

	cart := NewCartStore(CartStoreConfig{
		API: d.Carts,
		Creds: func(ctx context.Context) backend.Credentials {
			return creds(auth.ResolveRole(ctx))
		},
		Dispatcher: d.Dispatcher,
		SessionKey: key,
		Timeout:    d.Timeout,
		Logger:     logger,
	})

	channel := realtime.NewChannel(d.Dialer, d.RealtimeBaseURL, realtime.NewStorageTokens(local, logger), logger,
		realtime.WithHooks(
			func(c realtime.Conn) { m.publishChannel(key, events.EventChannelOpened, c) },
			func(c realtime.Conn) { m.publishChannel(key, events.EventChannelClosed, c) },
		))

	return &Session{
		Key:     key,
		Auth:    auth,
		Cart:    cart,
		Channel: channel,
		Local:   local,
	}
}

func (m *Manager) publishChannel(key string, eventType events.EventType, c realtime.Conn) {
	if m.deps.Dispatcher == nil {
		return
	}
	_ = m.deps.Dispatcher.Publish(context.Background(), events.New(eventType, key, events.ChannelPayload{
		ConnectionID: c.ID(),
	}))
}
