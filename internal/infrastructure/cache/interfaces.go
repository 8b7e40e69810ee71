package cache

import (
	"context"
	"fmt"
	"time"
)

// Key prefixes keep the namespaces of the different cache users apart in a
// shared Redis database.
const (
	AuctionSnapshotPrefix = "auction:snapshot:"
	RateLimitPrefix       = "rate_limit:"
)

// Cache defines the caching interface
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	SetNX(ctx context.Context, key string, value interface{}, ttl time.Duration) (bool, error)
	Increment(ctx context.Context, key string) (int64, error)
	Expire(ctx context.Context, key string, ttl time.Duration) error
	GetJSON(ctx context.Context, key string, dest interface{}) error
	SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Close() error
}

// RateLimiter limits request rates over a sliding window
type RateLimiter interface {
	// Allow reports whether one more request fits under the limit, recording
	// it if so
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
	// Count returns the number of requests currently inside the window
	Count(ctx context.Context, key string, window time.Duration) (int, error)
	// Reset clears the counter for a key
	Reset(ctx context.Context, key string) error
}

// ErrCacheKeyNotFound indicates the requested key is absent
type ErrCacheKeyNotFound struct {
	Key string
}

func (e ErrCacheKeyNotFound) Error() string {
	return fmt.Sprintf("cache key not found: %s", e.Key)
}

// IsKeyNotFound reports whether err is a cache miss
func IsKeyNotFound(err error) bool {
	_, ok := err.(ErrCacheKeyNotFound)
	return ok
}
