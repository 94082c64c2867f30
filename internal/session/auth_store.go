package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/spec-kit/astro-gateway/internal/backend"
	"github.com/spec-kit/astro-gateway/internal/domain"
	"github.com/spec-kit/astro-gateway/internal/events"
	"github.com/spec-kit/astro-gateway/internal/storage"
)

// ErrSuperseded is returned when a profile fetch finished after a login or
// logout already replaced the state it was fetched for.
var ErrSuperseded = errors.New("session: profile fetch superseded")

// Reasons attached to auth_changed events.
const (
	ReasonInitialized = "initialized"
	ReasonRefreshed   = "refreshed"
	ReasonLogin       = "login"
	ReasonLogout      = "logout"
	ReasonFetchFailed = "fetch_failed"
)

// CredentialFunc builds backend credentials for a role.
type CredentialFunc func(role domain.Role) backend.Credentials

// AuthStore caches who, if anyone, is signed in for one browsing session.
type AuthStore struct {
	mu          sync.Mutex
	state       domain.AuthState
	role        domain.Role
	initialized bool
	// roleResolved is set once the role marker was read back or a login
	// chose the role.
	roleResolved bool
	generation   uint64
	appliedSeq   uint64
	flightSeq    atomic.Uint64

	group      singleflight.Group
	api        ProfileAPI
	creds      CredentialFunc
	local      storage.Local
	dispatcher events.Dispatcher
	sessionKey string
	timeout    time.Duration
	logger     *zap.Logger
}

// AuthStoreConfig bundles AuthStore dependencies.
type AuthStoreConfig struct {
	API        ProfileAPI
	Creds      CredentialFunc
	Local      storage.Local
	Dispatcher events.Dispatcher
	SessionKey string
	RoleHint   domain.Role
	Timeout    time.Duration
	Logger     *zap.Logger
}

// NewAuthStore creates a logged-out store.
func NewAuthStore(cfg AuthStoreConfig) *AuthStore {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	role := cfg.RoleHint
	if !role.Valid() {
		role = domain.RoleUser
	}
	return &AuthStore{
		role:       role,
		api:        cfg.API,
		creds:      cfg.Creds,
		local:      cfg.Local,
		dispatcher: cfg.Dispatcher,
		sessionKey: cfg.SessionKey,
		timeout:    cfg.Timeout,
		logger:     cfg.Logger,
	}
}

// State returns a snapshot of the current auth state.
func (s *AuthStore) State() domain.AuthState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyState(s.state)
}

// Role is the role the store fetches profiles for.
func (s *AuthStore) Role() domain.Role {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.role
}

// ResolveRole returns the session's role, adopting the role marker an
// earlier login left in local storage the first time it is asked. A login
// or logout racing the read keeps its own role. A failed read is retried on
// the next call.
func (s *AuthStore) ResolveRole(ctx context.Context) domain.Role {
	s.mu.Lock()
	if s.roleResolved || s.local == nil {
		s.roleResolved = true
		role := s.role
		s.mu.Unlock()
		return role
	}
	gen := s.generation
	s.mu.Unlock()

	v, ok, err := s.local.Get(ctx, storage.KeyRole)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.roleResolved || s.generation != gen {
		return s.role
	}
	if err != nil {
		s.logger.Warn("read role marker failed", zap.String("session", s.sessionKey), zap.Error(err))
		return s.role
	}
	if ok {
		s.role = domain.ParseRole(v)
	}
	s.roleResolved = true
	return s.role
}

// Initialize performs the one-shot profile fetch on first use. Later calls
// return the cached state. Failure leaves the session logged out; there is
// no retry.
func (s *AuthStore) Initialize(ctx context.Context) domain.AuthState {
	s.mu.Lock()
	if s.initialized {
		st := copyState(s.state)
		s.mu.Unlock()
		return st
	}
	gen := s.generation
	s.mu.Unlock()

	st, err := s.fetch(ctx, ReasonInitialized, gen)
	if err != nil && !errors.Is(err, ErrSuperseded) {
		s.logger.Debug("profile initialize failed", zap.String("session", s.sessionKey), zap.Error(err))
	}

	s.mu.Lock()
	s.initialized = true
	s.mu.Unlock()
	return st
}

// Refresh re-fetches the profile. A failed refresh is treated as a forced
// logout: state is cleared and the error returned.
func (s *AuthStore) Refresh(ctx context.Context) (domain.AuthState, error) {
	s.mu.Lock()
	gen := s.generation
	s.mu.Unlock()

	st, err := s.fetch(ctx, ReasonRefreshed, gen)
	s.mu.Lock()
	s.initialized = true
	s.mu.Unlock()
	return st, err
}

// Login stores a profile the caller already obtained; no network call is
// made. A non-empty token is kept in local storage for the realtime channel.
func (s *AuthStore) Login(ctx context.Context, profile domain.Profile, role domain.Role, token string) domain.AuthState {
	if !role.Valid() {
		role = domain.RoleUser
	}
	profile.Role = role

	s.mu.Lock()
	s.generation++
	s.initialized = true
	s.roleResolved = true
	s.role = role
	s.state = domain.AuthState{LoggedIn: true, Role: role, Profile: &profile}
	st := copyState(s.state)
	s.mu.Unlock()

	s.writeMarker(ctx, role)
	if token != "" {
		s.storeSet(ctx, tokenKey(role), token)
	}
	s.publish(ctx, ReasonLogin, st)
	return st
}

// Logout asks the backend to end the session, then clears local state no
// matter how that call went.
func (s *AuthStore) Logout(ctx context.Context) domain.AuthState {
	role := s.ResolveRole(ctx)

	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()
	if err := s.api.Logout(callCtx, s.creds(role)); err != nil {
		s.logger.Warn("backend logout failed", zap.String("session", s.sessionKey), zap.Error(err))
	}

	s.mu.Lock()
	s.generation++
	s.initialized = true
	s.state = domain.AuthState{}
	s.mu.Unlock()

	s.storeDelete(ctx, storage.KeyRole)
	s.storeDelete(ctx, storage.KeyUserToken)
	s.storeDelete(ctx, storage.KeyAstrologerToken)
	st := domain.AuthState{}
	s.publish(ctx, ReasonLogout, st)
	return st
}

// profileResult carries a fetch outcome through the shared flight; seq
// lets co-waiters apply the result exactly once.
type profileResult struct {
	profile *domain.Profile
	err     error
	seq     uint64
}

// fetch loads the profile on behalf of the state observed at generation
// gen. A login or logout after that point supersedes the result.
func (s *AuthStore) fetch(ctx context.Context, reason string, gen uint64) (domain.AuthState, error) {
	s.ResolveRole(ctx)

	s.mu.Lock()
	if s.generation != gen {
		st := copyState(s.state)
		s.mu.Unlock()
		return st, ErrSuperseded
	}
	role := s.role
	s.mu.Unlock()

	key := fmt.Sprintf("profile:%s:%d", role, gen)
	res, err := coalesce(ctx, &s.group, key, s.timeout, func(callCtx context.Context) (profileResult, error) {
		seq := s.flightSeq.Add(1)
		profile, err := s.api.GetProfile(callCtx, s.creds(role))
		return profileResult{profile: profile, err: err, seq: seq}, nil
	})
	if err != nil {
		// The caller stopped waiting; the shared fetch still lands for others.
		return s.State(), err
	}

	s.mu.Lock()
	if s.generation != gen {
		st := copyState(s.state)
		s.mu.Unlock()
		return st, ErrSuperseded
	}
	if res.seq <= s.appliedSeq {
		st := copyState(s.state)
		s.mu.Unlock()
		return st, res.err
	}
	s.appliedSeq = res.seq

	if res.err != nil || res.profile == nil {
		fetchErr := res.err
		if fetchErr == nil {
			fetchErr = backend.ErrUnauthenticated
		}
		s.state = domain.AuthState{}
		s.mu.Unlock()

		s.storeDelete(ctx, storage.KeyRole)
		s.publish(ctx, ReasonFetchFailed, domain.AuthState{})
		return domain.AuthState{}, fetchErr
	}

	p := *res.profile
	p.Role = role
	s.state = domain.AuthState{LoggedIn: true, Role: role, Profile: &p}
	st := copyState(s.state)
	s.mu.Unlock()

	s.writeMarker(ctx, role)
	s.rememberToken(ctx, role)
	s.publish(ctx, reason, st)
	return st, nil
}

// rememberToken keeps the session token the backend just accepted in the
// role's token slot, so the realtime channel can authenticate sessions
// that signed in through the backend cookie flow. A token stored by Login
// is left alone.
func (s *AuthStore) rememberToken(ctx context.Context, role domain.Role) {
	if s.local == nil || s.creds == nil {
		return
	}
	token := s.creds(role).Token
	if token == "" {
		return
	}
	key := tokenKey(role)
	_, ok, err := s.local.Get(ctx, key)
	if err != nil || ok {
		return
	}
	s.storeSet(ctx, key, token)
}

func (s *AuthStore) writeMarker(ctx context.Context, role domain.Role) {
	s.storeSet(ctx, storage.KeyRole, string(role))
}

func (s *AuthStore) storeSet(ctx context.Context, key, value string) {
	if s.local == nil {
		return
	}
	if err := s.local.Set(ctx, key, value); err != nil {
		s.logger.Warn("local storage write failed", zap.String("key", key), zap.Error(err))
	}
}

func (s *AuthStore) storeDelete(ctx context.Context, key string) {
	if s.local == nil {
		return
	}
	if err := s.local.Delete(ctx, key); err != nil {
		s.logger.Warn("local storage delete failed", zap.String("key", key), zap.Error(err))
	}
}

func (s *AuthStore) publish(ctx context.Context, reason string, st domain.AuthState) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.New(events.EventAuthChanged, s.sessionKey, events.AuthChangedPayload{
		Reason: reason,
		State:  st,
	}))
}

func tokenKey(role domain.Role) string {
	if role == domain.RoleAstrologer {
		return storage.KeyAstrologerToken
	}
	return storage.KeyUserToken
}

func copyState(st domain.AuthState) domain.AuthState {
	if st.Profile != nil {
		p := *st.Profile
		st.Profile = &p
	}
	return st
}
