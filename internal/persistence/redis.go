package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/astro-gateway/internal/config"
)

// Redis holds the client behind per-session local storage.
type Redis struct {
	Client *redis.Client
}

// NewRedis builds the client. It returns nil when Redis is disabled, and
// callers fall back to in-memory storage. An unreachable server is only
// logged: go-redis reconnects on demand.
func NewRedis(cfg config.RedisConfig, logger *zap.Logger) *Redis {
	if cfg.Disabled {
		logger.Warn("REDIS_DISABLED set; session storage stays in memory")
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("unable to reach redis", zap.String("addr", cfg.Addr), zap.Error(err))
	} else {
		logger.Info("connected to redis", zap.String("addr", cfg.Addr), zap.Int("db", cfg.DB))
	}

	return &Redis{Client: client}
}

// Ping verifies Redis connectivity.
func (r *Redis) Ping(ctx context.Context) error {
	if r == nil || r.Client == nil {
		return errors.New("redis client not configured")
	}
	return r.Client.Ping(ctx).Err()
}

// Stats reports pool usage; ok is false when disabled.
func (r *Redis) Stats() (stats PoolStats, ok bool) {
	if r == nil || r.Client == nil {
		return PoolStats{}, false
	}
	s := r.Client.PoolStats()
	return PoolStats{
		Total: int64(s.TotalConns),
		Idle:  int64(s.IdleConns),
		InUse: int64(s.TotalConns) - int64(s.IdleConns),
	}, true
}

// Close closes the client.
func (r *Redis) Close() {
	if r != nil && r.Client != nil {
		_ = r.Client.Close()
	}
}
