package realtime

import (
	"context"
	"errors"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/astro-gateway/internal/storage"
)

// ErrNoToken is returned when local storage holds no usable bearer token.
var ErrNoToken = errors.New("realtime: no bearer token in local storage")

// TokenSource yields the bearer token used to authenticate the channel.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StorageTokens reads tokens from session local storage, preferring the user
// token and falling back to the astrologer token.
type StorageTokens struct {
	local  storage.Local
	logger *zap.Logger
	now    func() time.Time
}

// NewStorageTokens builds a token source over local.
func NewStorageTokens(local storage.Local, logger *zap.Logger) *StorageTokens {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StorageTokens{local: local, logger: logger, now: time.Now}
}

// Token returns the first present, unexpired token.
func (s *StorageTokens) Token(ctx context.Context) (string, error) {
	if s.local == nil {
		return "", ErrNoToken
	}
	for _, key := range []string{storage.KeyUserToken, storage.KeyAstrologerToken} {
		token, ok, err := s.local.Get(ctx, key)
		if err != nil {
			return "", err
		}
		if !ok || token == "" {
			continue
		}
		if s.expired(token) {
			s.logger.Debug("skipping expired token", zap.String("slot", key))
			continue
		}
		return token, nil
	}
	return "", ErrNoToken
}

// expired peeks at a JWT exp claim without verifying the signature; the
// backend does the real validation. Opaque tokens never count as expired.
func (s *StorageTokens) expired(token string) bool {
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return false
	}
	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return !exp.After(s.now())
}
