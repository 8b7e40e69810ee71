package cache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// maxLocalLimiters caps the per-key limiter map. The map is cleared rather
// than evicted when the cap is hit so a key flood cannot grow it unbounded.
const maxLocalLimiters = 10000

// LocalRateLimiter is an in-process token-bucket limiter used when the
// shared Redis limiter is unreachable. Counts are per process, so it is a
// coarser guard than the sliding window, but it keeps a single caller from
// monopolizing an instance during a Redis outage.
type LocalRateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewLocalRateLimiter creates an empty local limiter
func NewLocalRateLimiter() *LocalRateLimiter {
	return &LocalRateLimiter{
		limiters: make(map[string]*rate.Limiter),
	}
}

// Allow reports whether one more request fits under the limit, recording it
// if so. The window is converted to a refill rate with a burst of limit.
func (l *LocalRateLimiter) Allow(_ context.Context, key string, limit int, window time.Duration) (bool, error) {
	if limit <= 0 || window <= 0 {
		return true, nil
	}
	return l.limiter(key, limit, window).Allow(), nil
}

// Count approximates the number of requests inside the window from the
// remaining bucket tokens. A key with no limiter has used nothing.
func (l *LocalRateLimiter) Count(_ context.Context, key string, _ time.Duration) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	lim, ok := l.limiters[key]
	if !ok {
		return 0, nil
	}
	used := float64(lim.Burst()) - lim.Tokens()
	if used < 0 {
		used = 0
	}
	return int(used), nil
}

// Reset clears the bucket for a key
func (l *LocalRateLimiter) Reset(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.limiters, key)
	return nil
}

func (l *LocalRateLimiter) limiter(key string, limit int, window time.Duration) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	lim, ok := l.limiters[key]
	if !ok {
		if len(l.limiters) >= maxLocalLimiters {
			l.limiters = make(map[string]*rate.Limiter)
		}
		lim = rate.NewLimiter(rate.Limit(float64(limit)/window.Seconds()), limit)
		l.limiters[key] = lim
	}
	return lim
}
