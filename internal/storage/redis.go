package storage

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisBackend stores each session's area as a Redis hash.
type RedisBackend struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisBackend creates a Redis-backed session storage. Each hash expires
// ttl after its last write.
func NewRedisBackend(client *redis.Client, ttl time.Duration) *RedisBackend {
	return &RedisBackend{
		client: client,
		prefix: "tab:",
		ttl:    ttl,
	}
}

func (r *RedisBackend) key(sessionKey string) string {
	return r.prefix + sessionKey
}

// Scope returns the Local area for sessionKey.
func (r *RedisBackend) Scope(sessionKey string) Local {
	return &redisLocal{backend: r, key: r.key(sessionKey)}
}

// Purge deletes the session hash.
func (r *RedisBackend) Purge(ctx context.Context, sessionKey string) error {
	return r.client.Del(ctx, r.key(sessionKey)).Err()
}

type redisLocal struct {
	backend *RedisBackend
	key     string
}

func (l *redisLocal) Get(ctx context.Context, field string) (string, bool, error) {
	val, err := l.backend.client.HGet(ctx, l.key, field).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

func (l *redisLocal) Set(ctx context.Context, field, value string) error {
	pipe := l.backend.client.TxPipeline()
	pipe.HSet(ctx, l.key, field, value)
	if l.backend.ttl > 0 {
		pipe.Expire(ctx, l.key, l.backend.ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (l *redisLocal) Delete(ctx context.Context, field string) error {
	return l.backend.client.HDel(ctx, l.key, field).Err()
}
