package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/astro-gateway/internal/domain"
	"github.com/spec-kit/astro-gateway/internal/events"
	"github.com/spec-kit/astro-gateway/internal/storage"
)

type authFixture struct {
	store  *AuthStore
	api    *fakeBackend
	local  storage.Local
	mu     sync.Mutex
	events []events.AuthChangedPayload
}

func (f *authFixture) reasons() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.events))
	for _, e := range f.events {
		out = append(out, e.Reason)
	}
	return out
}

func newAuthFixture(t *testing.T, api *fakeBackend) *authFixture {
	t.Helper()
	f := &authFixture{api: api, local: storage.NewMemoryBackend(time.Hour).Scope("s1")}
	d := events.NewInMemoryDispatcher(nil)
	d.Subscribe(events.EventAuthChanged, func(_ context.Context, e events.Event) error {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.events = append(f.events, e.Payload.(events.AuthChangedPayload))
		return nil
	})
	f.store = NewAuthStore(AuthStoreConfig{
		API:        api,
		Creds:      testCreds,
		Local:      f.local,
		Dispatcher: d,
		SessionKey: "s1",
		Timeout:    time.Second,
	})
	return f
}

func marker(t *testing.T, local storage.Local) (string, bool) {
	t.Helper()
	v, ok, err := local.Get(context.Background(), storage.KeyRole)
	require.NoError(t, err)
	return v, ok
}

func TestInitializeSuccess(t *testing.T) {
	api := &fakeBackend{profile: &domain.Profile{ID: "u1", FullName: "Asha Rao", Email: "asha@example.com"}}
	f := newAuthFixture(t, api)

	st := f.store.Initialize(context.Background())
	assert.True(t, st.LoggedIn)
	require.NotNil(t, st.Profile)
	assert.Equal(t, "u1", st.Profile.ID)
	assert.Equal(t, "Asha Rao", st.Profile.FullName)
	assert.Equal(t, domain.RoleUser, st.Profile.Role)

	role, ok := marker(t, f.local)
	assert.True(t, ok)
	assert.Equal(t, "user", role)
	assert.Equal(t, []string{ReasonInitialized}, f.reasons())
}

func TestInitializeIsOneShot(t *testing.T) {
	api := &fakeBackend{profileErr: errBackendDown}
	f := newAuthFixture(t, api)

	st := f.store.Initialize(context.Background())
	assert.False(t, st.LoggedIn)
	assert.Nil(t, st.Profile)

	api.setProfileErr(nil)
	api.profile = &domain.Profile{ID: "u1"}
	st = f.store.Initialize(context.Background())
	assert.False(t, st.LoggedIn)
	assert.Equal(t, int32(1), api.profileCalls.Load())
}

func TestInitializeRestoresRoleMarker(t *testing.T) {
	api := &fakeBackend{profile: &domain.Profile{ID: "a1"}}
	f := newAuthFixture(t, api)
	require.NoError(t, f.local.Set(context.Background(), storage.KeyRole, "astrologer"))

	st := f.store.Initialize(context.Background())
	assert.Equal(t, domain.RoleAstrologer, st.Role)
	assert.Equal(t, domain.RoleAstrologer, api.lastCred.Role)
}

func TestRefreshFailureForcesLogout(t *testing.T) {
	api := &fakeBackend{profile: &domain.Profile{ID: "u1"}}
	f := newAuthFixture(t, api)

	st, err := f.store.Refresh(context.Background())
	require.NoError(t, err)
	require.True(t, st.LoggedIn)

	api.setProfileErr(errBackendDown)
	st, err = f.store.Refresh(context.Background())
	assert.ErrorIs(t, err, errBackendDown)
	assert.False(t, st.LoggedIn)
	assert.Nil(t, st.Profile)
	assert.False(t, f.store.State().LoggedIn)

	_, ok := marker(t, f.local)
	assert.False(t, ok)
	assert.Equal(t, []string{ReasonRefreshed, ReasonFetchFailed}, f.reasons())
}

func TestLoginStoresProfileWithoutNetwork(t *testing.T) {
	api := &fakeBackend{}
	f := newAuthFixture(t, api)

	st := f.store.Login(context.Background(), domain.Profile{ID: "a9", FullName: "Pandit Ji"}, domain.RoleAstrologer, "astro-jwt")
	assert.True(t, st.LoggedIn)
	assert.Equal(t, domain.RoleAstrologer, st.Role)
	assert.Zero(t, api.profileCalls.Load())

	token, ok, err := f.local.Get(context.Background(), storage.KeyAstrologerToken)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "astro-jwt", token)

	role, _ := marker(t, f.local)
	assert.Equal(t, "astrologer", role)
}

func TestLogoutClearsEvenWhenBackendFails(t *testing.T) {
	api := &fakeBackend{logoutErr: errBackendDown}
	f := newAuthFixture(t, api)
	f.store.Login(context.Background(), domain.Profile{ID: "u1"}, domain.RoleUser, "user-jwt")

	st := f.store.Logout(context.Background())
	assert.False(t, st.LoggedIn)
	assert.False(t, f.store.State().LoggedIn)
	assert.Equal(t, int32(1), api.logoutCalls.Load())

	_, ok, _ := f.local.Get(context.Background(), storage.KeyUserToken)
	assert.False(t, ok)
	_, ok = marker(t, f.local)
	assert.False(t, ok)
	assert.Equal(t, []string{ReasonLogin, ReasonLogout}, f.reasons())
}

func TestConcurrentRefreshesCoalesce(t *testing.T) {
	api := &fakeBackend{profile: &domain.Profile{ID: "u1"}, gate: make(chan struct{})}
	f := newAuthFixture(t, api)

	const callers = 8
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.store.Refresh(context.Background())
			errs <- err
		}()
	}

	require.Eventually(t, func() bool { return api.profileCalls.Load() == 1 }, time.Second, time.Millisecond)
	// Give the remaining callers time to join the in-flight fetch.
	time.Sleep(20 * time.Millisecond)
	close(api.gate)
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, int32(1), api.profileCalls.Load())
	assert.True(t, f.store.State().LoggedIn)
	assert.Equal(t, []string{ReasonRefreshed}, f.reasons())
}

func TestLogoutDuringRefreshWins(t *testing.T) {
	api := &fakeBackend{profile: &domain.Profile{ID: "u1"}, gate: make(chan struct{})}
	f := newAuthFixture(t, api)

	done := make(chan error, 1)
	go func() {
		_, err := f.store.Refresh(context.Background())
		done <- err
	}()

	require.Eventually(t, func() bool { return api.profileCalls.Load() == 1 }, time.Second, time.Millisecond)
	f.store.Logout(context.Background())
	close(api.gate)

	assert.ErrorIs(t, <-done, ErrSuperseded)
	assert.False(t, f.store.State().LoggedIn)
}

func TestRefreshCallerCanStopWaiting(t *testing.T) {
	api := &fakeBackend{profile: &domain.Profile{ID: "u1"}, gate: make(chan struct{})}
	f := newAuthFixture(t, api)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := f.store.Refresh(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	close(api.gate)
}

func TestStateIsACopy(t *testing.T) {
	f := newAuthFixture(t, &fakeBackend{})
	f.store.Login(context.Background(), domain.Profile{ID: "u1", FullName: "Asha"}, domain.RoleUser, "")

	st := f.store.State()
	st.Profile.FullName = "mutated"
	assert.Equal(t, "Asha", f.store.State().Profile.FullName)
}

// gatedLocal blocks the first Get until release is closed.
type gatedLocal struct {
	storage.Local
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (g *gatedLocal) Get(ctx context.Context, key string) (string, bool, error) {
	g.once.Do(func() {
		close(g.entered)
		<-g.release
	})
	return g.Local.Get(ctx, key)
}

func TestLoginDuringInitializeKeepsLogin(t *testing.T) {
	api := &fakeBackend{profile: &domain.Profile{ID: "stale"}}
	local := &gatedLocal{
		Local:   storage.NewMemoryBackend(time.Hour).Scope("s1"),
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	store := NewAuthStore(AuthStoreConfig{
		API:        api,
		Creds:      testCreds,
		Local:      local,
		SessionKey: "s1",
		Timeout:    time.Second,
	})

	done := make(chan domain.AuthState, 1)
	go func() { done <- store.Initialize(context.Background()) }()
	<-local.entered

	store.Login(context.Background(), domain.Profile{ID: "a1"}, domain.RoleAstrologer, "astro-jwt")
	close(local.release)

	st := <-done
	assert.True(t, st.LoggedIn)
	require.NotNil(t, st.Profile)
	assert.Equal(t, "a1", st.Profile.ID)
	assert.Equal(t, "a1", store.State().Profile.ID)
	assert.Equal(t, domain.RoleAstrologer, store.Role())
	assert.Zero(t, api.profileCalls.Load())
}

func TestInitializeRemembersCookieToken(t *testing.T) {
	api := &fakeBackend{profile: &domain.Profile{ID: "u1"}}
	f := newAuthFixture(t, api)

	st := f.store.Initialize(context.Background())
	require.True(t, st.LoggedIn)

	token, ok, err := f.local.Get(context.Background(), storage.KeyUserToken)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "tok", token)
}

func TestRefreshKeepsLoginToken(t *testing.T) {
	api := &fakeBackend{profile: &domain.Profile{ID: "u1"}}
	f := newAuthFixture(t, api)
	f.store.Login(context.Background(), domain.Profile{ID: "u1"}, domain.RoleUser, "bearer-1")

	_, err := f.store.Refresh(context.Background())
	require.NoError(t, err)

	token, _, _ := f.local.Get(context.Background(), storage.KeyUserToken)
	assert.Equal(t, "bearer-1", token)
}
