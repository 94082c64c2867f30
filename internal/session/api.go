package session

import (
	"context"

	"github.com/spec-kit/astro-gateway/internal/backend"
	"github.com/spec-kit/astro-gateway/internal/domain"
)

// ProfileAPI is the slice of the backend the auth store needs.
type ProfileAPI interface {
	GetProfile(ctx context.Context, cred backend.Credentials) (*domain.Profile, error)
	Logout(ctx context.Context, cred backend.Credentials) error
}

// CartAPI is the slice of the backend the cart store needs.
type CartAPI interface {
	GetCart(ctx context.Context, cred backend.Credentials) ([]domain.CartLine, error)
	GetCartCount(ctx context.Context, cred backend.Credentials) (int, error)
	AddToCart(ctx context.Context, cred backend.Credentials, productID string, quantity int) error
}
