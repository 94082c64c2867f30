package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/spec-kit/astro-gateway/internal/backend"
	"github.com/spec-kit/astro-gateway/internal/domain"
	"github.com/spec-kit/astro-gateway/internal/events"
)

// ErrInvalidCartItem rejects add-to-cart input before it reaches the backend.
var ErrInvalidCartItem = errors.New("session: product id and a positive quantity are required")

// CartStore caches the shopping cart of one browsing session. The item list
// and the count are refreshed independently.
type CartStore struct {
	mu    sync.Mutex
	items []domain.CartLine
	count int

	group      singleflight.Group
	api        CartAPI
	creds      func(context.Context) backend.Credentials
	dispatcher events.Dispatcher
	sessionKey string
	timeout    time.Duration
	logger     *zap.Logger
}

// CartStoreConfig bundles CartStore dependencies.
type CartStoreConfig struct {
	API CartAPI
	// Creds may read session storage to settle the role.
	Creds      func(context.Context) backend.Credentials
	Dispatcher events.Dispatcher
	SessionKey string
	Timeout    time.Duration
	Logger     *zap.Logger
}

// NewCartStore creates an empty cart cache.
func NewCartStore(cfg CartStoreConfig) *CartStore {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &CartStore{
		items:      []domain.CartLine{},
		api:        cfg.API,
		creds:      cfg.Creds,
		dispatcher: cfg.Dispatcher,
		sessionKey: cfg.SessionKey,
		timeout:    cfg.Timeout,
		logger:     cfg.Logger,
	}
}

// Load runs both fetches once, concurrently, as on mount. Each failure is
// logged; the first one is returned.
func (s *CartStore) Load(ctx context.Context) error {
	var g errgroup.Group
	g.Go(func() error {
		_, err := s.FetchItems(ctx)
		return err
	})
	g.Go(func() error {
		_, err := s.FetchCount(ctx)
		return err
	})
	return g.Wait()
}

// FetchItems refreshes the cached item list.
func (s *CartStore) FetchItems(ctx context.Context) ([]domain.CartLine, error) {
	lines, err := coalesce(ctx, &s.group, "items", s.timeout, func(callCtx context.Context) ([]domain.CartLine, error) {
		return s.api.GetCart(callCtx, s.creds(callCtx))
	})
	if err != nil {
		s.logger.Warn("cart fetch failed", zap.String("session", s.sessionKey), zap.Error(err))
		return nil, err
	}

	s.mu.Lock()
	s.items = cloneLines(lines)
	s.mu.Unlock()

	s.publish(ctx)
	return cloneLines(lines), nil
}

// FetchCount refreshes the cached count.
func (s *CartStore) FetchCount(ctx context.Context) (int, error) {
	count, err := coalesce(ctx, &s.group, "count", s.timeout, func(callCtx context.Context) (int, error) {
		return s.api.GetCartCount(callCtx, s.creds(callCtx))
	})
	if err != nil {
		s.logger.Warn("cart count fetch failed", zap.String("session", s.sessionKey), zap.Error(err))
		return 0, err
	}

	s.mu.Lock()
	s.count = count
	s.mu.Unlock()

	s.publish(ctx)
	return count, nil
}

// AddItem adds a product to the backend cart. The cache is not touched;
// callers re-fetch items and/or count afterwards.
func (s *CartStore) AddItem(ctx context.Context, productID string, quantity int) error {
	if productID == "" || quantity <= 0 {
		return ErrInvalidCartItem
	}
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.api.AddToCart(callCtx, s.creds(callCtx), productID, quantity); err != nil {
		s.logger.Warn("add to cart failed", zap.String("session", s.sessionKey), zap.String("product_id", productID), zap.Error(err))
		return err
	}
	return nil
}

// Snapshot returns the cached cart with its derived total.
func (s *CartStore) Snapshot() domain.CartSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.CartSnapshot{
		Items: cloneLines(s.items),
		Count: s.count,
		Total: domain.CartTotal(s.items),
	}
}

// Total is the sum of effective price times quantity over cached items.
func (s *CartStore) Total() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.CartTotal(s.items)
}

// Reset empties the cache, e.g. after logout.
func (s *CartStore) Reset(ctx context.Context) {
	s.mu.Lock()
	s.items = []domain.CartLine{}
	s.count = 0
	s.mu.Unlock()
	s.publish(ctx)
}

func (s *CartStore) publish(ctx context.Context) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.New(events.EventCartChanged, s.sessionKey, events.CartChangedPayload{
		Snapshot: s.Snapshot(),
	}))
}

func cloneLines(in []domain.CartLine) []domain.CartLine {
	out := make([]domain.CartLine, len(in))
	copy(out, in)
	return out
}
