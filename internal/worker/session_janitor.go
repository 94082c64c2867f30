package worker

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Sweeper evicts idle sessions; session.Manager satisfies it.
type Sweeper interface {
	Sweep(now time.Time) int
}

// StartSessionJanitor sweeps idle browsing sessions every interval until ctx
// is cancelled. The returned channel closes when the goroutine exits.
func StartSessionJanitor(ctx context.Context, sweeper Sweeper, interval time.Duration, logger *zap.Logger) <-chan struct{} {
	done := make(chan struct{})
	if sweeper == nil || interval <= 0 {
		close(done)
		return done
	}

	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				if n := sweeper.Sweep(now); n > 0 {
					logger.Info("evicted idle sessions", zap.Int("count", n))
				}
			}
		}
	}()
	return done
}
