package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/spec-kit/astro-gateway/internal/backend"
	"github.com/spec-kit/astro-gateway/internal/domain"
)

var errBackendDown = errors.New("backend down")

type fakeBackend struct {
	mu sync.Mutex

	profile    *domain.Profile
	profileErr error
	logoutErr  error
	lines      []domain.CartLine
	count      int
	cartErr    error

	// gate, when set, blocks GetProfile until closed.
	gate chan struct{}

	profileCalls atomic.Int32
	logoutCalls  atomic.Int32
	cartCalls    atomic.Int32
	countCalls   atomic.Int32
	added        []string
	lastCred     backend.Credentials
}

func (f *fakeBackend) GetProfile(ctx context.Context, cred backend.Credentials) (*domain.Profile, error) {
	f.profileCalls.Add(1)
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastCred = cred
	if f.profileErr != nil {
		return nil, f.profileErr
	}
	if f.profile == nil {
		return nil, nil
	}
	p := *f.profile
	return &p, nil
}

func (f *fakeBackend) Logout(_ context.Context, cred backend.Credentials) error {
	f.logoutCalls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastCred = cred
	return f.logoutErr
}

func (f *fakeBackend) GetCart(_ context.Context, cred backend.Credentials) ([]domain.CartLine, error) {
	f.cartCalls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastCred = cred
	if f.cartErr != nil {
		return nil, f.cartErr
	}
	return append([]domain.CartLine(nil), f.lines...), nil
}

func (f *fakeBackend) GetCartCount(_ context.Context, _ backend.Credentials) (int, error) {
	f.countCalls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cartErr != nil {
		return 0, f.cartErr
	}
	return f.count, nil
}

func (f *fakeBackend) AddToCart(_ context.Context, _ backend.Credentials, productID string, _ int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cartErr != nil {
		return f.cartErr
	}
	f.added = append(f.added, productID)
	return nil
}

func (f *fakeBackend) setProfileErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.profileErr = err
}

func testCreds(role domain.Role) backend.Credentials {
	return backend.Credentials{CookieName: "token", Token: "tok", Role: role}
}
