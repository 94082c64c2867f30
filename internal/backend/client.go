package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/astro-gateway/internal/config"
	"github.com/spec-kit/astro-gateway/internal/domain"
)

// ErrUnauthenticated is returned when the backend rejects the session.
var ErrUnauthenticated = errors.New("backend: session not authenticated")

// StatusError reports a non-2xx backend response.
type StatusError struct {
	Method string
	Path   string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend: %s %s returned %d", e.Method, e.Path, e.Status)
}

// Credentials identify the browsing session to the backend.
type Credentials struct {
	CookieName string
	Token      string
	Role       domain.Role
}

// Client calls the REST backend on behalf of a browsing session.
type Client struct {
	origin string
	cfg    config.BackendConfig
	http   *http.Client
	logger *zap.Logger
}

// NewClient builds a backend client. httpClient may be nil.
func NewClient(cfg config.BackendConfig, httpClient *http.Client, logger *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout()}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		origin: strings.TrimRight(cfg.APIOrigin, "/"),
		cfg:    cfg,
		http:   httpClient,
		logger: logger,
	}
}

// Origin is the configured API origin without a trailing slash.
func (c *Client) Origin() string {
	return c.origin
}

// GetProfile returns the profile of the session's signed-in account.
func (c *Client) GetProfile(ctx context.Context, cred Credentials) (*domain.Profile, error) {
	path := c.cfg.UserProfilePath
	if cred.Role == domain.RoleAstrologer {
		path = c.cfg.AstrologerProfilePath
	}

	var out envelope[profileBody]
	if err := c.do(ctx, http.MethodGet, path, cred, nil, &out); err != nil {
		return nil, err
	}
	if out.Data.ID == "" {
		return nil, ErrUnauthenticated
	}
	return out.Data.toDomain(cred.Role), nil
}

// Logout invalidates the server-side session.
func (c *Client) Logout(ctx context.Context, cred Credentials) error {
	path := c.cfg.UserLogoutPath
	if cred.Role == domain.RoleAstrologer {
		path = c.cfg.AstrologerLogoutPath
	}
	return c.do(ctx, http.MethodPost, path, cred, nil, nil)
}

// GetCart returns the flattened cart line items.
func (c *Client) GetCart(ctx context.Context, cred Credentials) ([]domain.CartLine, error) {
	var out envelope[cartBody]
	if err := c.do(ctx, http.MethodGet, c.cfg.CartItemsPath, cred, nil, &out); err != nil {
		return nil, err
	}
	return out.Data.flatten(), nil
}

// GetCartCount returns the lightweight item count.
func (c *Client) GetCartCount(ctx context.Context, cred Credentials) (int, error) {
	var out envelope[countBody]
	if err := c.do(ctx, http.MethodGet, c.cfg.CartCountPath, cred, nil, &out); err != nil {
		return 0, err
	}
	return out.Data.Count, nil
}

// AddToCart adds quantity units of a product to the cart.
func (c *Client) AddToCart(ctx context.Context, cred Credentials, productID string, quantity int) error {
	body := addToCartBody{ProductID: productID, Quantity: quantity}
	return c.do(ctx, http.MethodPost, c.cfg.CartAddPath, cred, body, nil)
}

func (c *Client) do(ctx context.Context, method, path string, cred Credentials, in, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("backend: encode %s: %w", path, err)
		}
		body = bytes.NewReader(payload)
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, c.origin+path, body)
	if err != nil {
		return fmt.Errorf("backend: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cred.Token != "" {
		req.AddCookie(&http.Cookie{Name: cred.CookieName, Value: cred.Token})
		req.Header.Set("Authorization", "Bearer "+cred.Token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("backend: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return ErrUnauthenticated
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.logger.Debug("backend call rejected",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode))
		return &StatusError{Method: method, Path: path, Status: resp.StatusCode, Body: string(snippet)}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("backend: decode %s: %w", path, err)
	}
	return nil
}
