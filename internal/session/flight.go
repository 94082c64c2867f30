package session

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"
)

// coalesce runs fn at most once per key at a time; concurrent callers share
// the in-flight result. The shared call is detached from any single caller's
// cancellation and bounded by timeout instead, while each caller can stop
// waiting through its own ctx.
func coalesce[T any](ctx context.Context, group *singleflight.Group, key string, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	detached := context.WithoutCancel(ctx)
	ch := group.DoChan(key, func() (interface{}, error) {
		callCtx, cancel := context.WithTimeout(detached, timeout)
		defer cancel()
		return fn(callCtx)
	})

	var zero T
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		v, _ := res.Val.(T)
		return v, nil
	}
}
