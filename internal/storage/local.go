package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Keys written into a session's local storage.
const (
	KeyRole            = "role"
	KeyUserToken       = "user_token"
	KeyAstrologerToken = "astrologer_token"
)

// Local is the per-session key/value area the front end used to keep in
// tab-local storage. Missing keys are reported with ok=false, not an error.
type Local interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// Backend hands out Local areas scoped to one browsing session.
type Backend interface {
	Scope(sessionKey string) Local
	// Purge removes every key of the session.
	Purge(ctx context.Context, sessionKey string) error
}

// Expirer is implemented by backends that do not expire areas on their own
// and must be swept.
type Expirer interface {
	Expire(now time.Time) int
}

// SessionKey derives a stable, non-reversible key from a session token.
func SessionKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
