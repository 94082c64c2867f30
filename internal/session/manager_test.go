package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/astro-gateway/internal/domain"
	"github.com/spec-kit/astro-gateway/internal/events"
	"github.com/spec-kit/astro-gateway/internal/realtime"
	"github.com/spec-kit/astro-gateway/internal/storage"
)

type stubConn struct {
	id    string
	alive bool
}

func (c *stubConn) ID() string   { return c.id }
func (c *stubConn) Alive() bool  { return c.alive }
func (c *stubConn) Close() error { c.alive = false; return nil }

type stubDialer struct {
	tokens []string
}

func (d *stubDialer) Dial(_ context.Context, _ string, token string) (realtime.Conn, error) {
	d.tokens = append(d.tokens, token)
	return &stubConn{id: token, alive: true}, nil
}

func newTestManager(api *fakeBackend, dialer realtime.Dialer, d events.Dispatcher) (*Manager, *storage.MemoryBackend) {
	backend := storage.NewMemoryBackend(time.Hour)
	m := NewManager(Dependencies{
		Profiles:        api,
		Carts:           api,
		Storage:         backend,
		Dispatcher:      d,
		Dialer:          dialer,
		RealtimeBaseURL: "https://api.example.com",
		CookieName:      func(domain.Role) string { return "token" },
		Timeout:         time.Second,
		IdleTTL:         time.Minute,
	})
	return m, backend
}

func TestManagerGetReusesSession(t *testing.T) {
	m, _ := newTestManager(&fakeBackend{}, &stubDialer{}, nil)

	a := m.Get("token-a", "")
	assert.Same(t, a, m.Get("token-a", ""))
	assert.NotSame(t, a, m.Get("token-b", ""))
	assert.Equal(t, 2, m.Len())

	_, ok := m.Lookup("token-c")
	assert.False(t, ok)
}

func TestManagerSessionForwardsToken(t *testing.T) {
	api := &fakeBackend{profile: &domain.Profile{ID: "u1"}}
	m, _ := newTestManager(api, &stubDialer{}, nil)

	s := m.Get("raw-cookie", domain.RoleAstrologer)
	st := s.Auth.Initialize(context.Background())
	require.True(t, st.LoggedIn)
	assert.Equal(t, "raw-cookie", api.lastCred.Token)
	assert.Equal(t, "token", api.lastCred.CookieName)
	assert.Equal(t, domain.RoleAstrologer, api.lastCred.Role)
}

func TestManagerChannelUsesLoginToken(t *testing.T) {
	dialer := &stubDialer{}
	d := events.NewInMemoryDispatcher(nil)
	var opened int
	d.Subscribe(events.EventChannelOpened, func(context.Context, events.Event) error {
		opened++
		return nil
	})
	m, _ := newTestManager(&fakeBackend{}, dialer, d)
	s := m.Get("cookie", "")

	_, err := s.Channel.GetOrCreate(context.Background())
	assert.ErrorIs(t, err, realtime.ErrNoToken)

	s.Auth.Login(context.Background(), domain.Profile{ID: "u1"}, domain.RoleUser, "bearer-1")
	conn, err := s.Channel.GetOrCreate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "bearer-1", conn.ID())
	assert.Equal(t, 1, opened)
}

func TestManagerDropPurgesStorage(t *testing.T) {
	m, backend := newTestManager(&fakeBackend{}, &stubDialer{}, nil)
	s := m.Get("cookie", "")
	s.Auth.Login(context.Background(), domain.Profile{ID: "u1"}, domain.RoleUser, "bearer-1")
	conn, err := s.Channel.GetOrCreate(context.Background())
	require.NoError(t, err)

	m.Drop(context.Background(), "cookie")
	assert.Zero(t, m.Len())
	assert.False(t, conn.Alive())

	_, ok, _ := backend.Scope(storage.SessionKey("cookie")).Get(context.Background(), storage.KeyUserToken)
	assert.False(t, ok)
}

func TestManagerSweepEvictsIdle(t *testing.T) {
	m, _ := newTestManager(&fakeBackend{}, &stubDialer{}, nil)
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return start }

	m.Get("old", "")
	m.now = func() time.Time { return start.Add(50 * time.Second) }
	m.Get("fresh", "")

	evicted := m.Sweep(start.Add(90 * time.Second))
	assert.Equal(t, 1, evicted)
	_, ok := m.Lookup("old")
	assert.False(t, ok)
	_, ok = m.Lookup("fresh")
	assert.True(t, ok)
}

func TestManagerRebuiltSessionKeepsAstrologerRole(t *testing.T) {
	api := &fakeBackend{profile: &domain.Profile{ID: "a1"}}
	m, _ := newTestManager(api, &stubDialer{}, nil)
	ctx := context.Background()

	m.Get("tok", "").Auth.Login(ctx, domain.Profile{ID: "a1"}, domain.RoleAstrologer, "astro-jwt")
	require.Equal(t, 1, m.Sweep(time.Now().Add(2*time.Minute)))

	s := m.Get("tok", domain.RoleUser)
	st, err := s.Auth.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAstrologer, st.Role)
	assert.Equal(t, domain.RoleAstrologer, api.lastCred.Role)

	_, err = s.Cart.FetchItems(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAstrologer, api.lastCred.Role)

	s.Auth.Logout(ctx)
	assert.Equal(t, domain.RoleAstrologer, api.lastCred.Role)
}

func TestManagerSweepExpiresMemoryStorage(t *testing.T) {
	m, backend := newTestManager(&fakeBackend{}, &stubDialer{}, nil)
	m.Get("cookie", "").Auth.Login(context.Background(), domain.Profile{ID: "u1"}, domain.RoleUser, "bearer-1")

	assert.Equal(t, 1, m.Sweep(time.Now().Add(2*time.Hour)))

	_, ok, err := backend.Scope(storage.SessionKey("cookie")).Get(context.Background(), storage.KeyUserToken)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestManagerChannelUsesCookieTokenAfterInitialize(t *testing.T) {
	dialer := &stubDialer{}
	m, _ := newTestManager(&fakeBackend{profile: &domain.Profile{ID: "u1"}}, dialer, nil)
	s := m.Get("raw-cookie", "")

	require.True(t, s.Auth.Initialize(context.Background()).LoggedIn)
	conn, err := s.Channel.GetOrCreate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "raw-cookie", conn.ID())
}
