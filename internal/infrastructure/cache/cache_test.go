package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/auctionhouse/auction-marketplace-backend/internal/testutil/fixtures"
)

func newTestCache(t *testing.T) (Cache, *miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	c, err := NewRedisCache(client, zap.NewNop())
	require.NoError(t, err)
	return c, mr, client
}

func TestRedisCache_SetGet(t *testing.T) {
	c, _, _ := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", "v", time.Minute))

	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)
}

func TestRedisCache_GetMissing(t *testing.T) {
	c, _, _ := newTestCache(t)

	_, err := c.Get(context.Background(), "absent")
	require.Error(t, err)
	assert.True(t, IsKeyNotFound(err))
}

func TestRedisCache_SetNX(t *testing.T) {
	c, _, _ := newTestCache(t)
	ctx := context.Background()

	ok, err := c.SetNX(ctx, "lock", "a", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.SetNX(ctx, "lock", "b", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisCache_JSONRoundTrip(t *testing.T) {
	c, _, _ := newTestCache(t)
	ctx := context.Background()

	in := map[string]string{"status": "active"}
	require.NoError(t, c.SetJSON(ctx, "j", in, time.Minute))

	var out map[string]string
	require.NoError(t, c.GetJSON(ctx, "j", &out))
	assert.Equal(t, in, out)
}

func TestRedisCache_TTLExpiry(t *testing.T) {
	c, mr, _ := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "short", "v", time.Second))
	mr.FastForward(2 * time.Second)

	_, err := c.Get(ctx, "short")
	assert.True(t, IsKeyNotFound(err))
}

func TestRateLimiter_AllowUnderLimit(t *testing.T) {
	_, _, client := newTestCache(t)
	limiter := NewRedisRateLimiter(client, zap.NewNop())
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		ok, err := limiter.Allow(ctx, "caller", 5, time.Minute)
		require.NoError(t, err)
		assert.True(t, ok, "request %d should be allowed", i+1)
	}

	ok, err := limiter.Allow(ctx, "caller", 5, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRateLimiter_KeysAreIndependent(t *testing.T) {
	_, _, client := newTestCache(t)
	limiter := NewRedisRateLimiter(client, zap.NewNop())
	ctx := context.Background()

	ok, err := limiter.Allow(ctx, "a", 1, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = limiter.Allow(ctx, "a", 1, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = limiter.Allow(ctx, "b", 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRateLimiter_Reset(t *testing.T) {
	_, _, client := newTestCache(t)
	limiter := NewRedisRateLimiter(client, zap.NewNop())
	ctx := context.Background()

	ok, err := limiter.Allow(ctx, "caller", 1, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, limiter.Reset(ctx, "caller"))

	ok, err = limiter.Allow(ctx, "caller", 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAuctionCache_RoundTrip(t *testing.T) {
	c, _, _ := newTestCache(t)
	snapshots := NewAuctionCache(c, zap.NewNop(), time.Minute)
	ctx := context.Background()

	a := fixtures.NewAuction().WithStartingPrice("250.00").Build()
	snapshots.Set(ctx, a)

	got, err := snapshots.Get(ctx, a.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, a.ID, got.ID)
	assert.True(t, got.StartingPrice.Equal(a.StartingPrice))
	assert.Equal(t, a.Status, got.Status)
}

func TestAuctionCache_MissReturnsNil(t *testing.T) {
	c, _, _ := newTestCache(t)
	snapshots := NewAuctionCache(c, zap.NewNop(), time.Minute)

	got, err := snapshots.Get(context.Background(), fixtures.NewAuction().Build().ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestAuctionCache_Invalidate(t *testing.T) {
	c, _, _ := newTestCache(t)
	snapshots := NewAuctionCache(c, zap.NewNop(), time.Minute)
	ctx := context.Background()

	a := fixtures.NewAuction().Build()
	snapshots.Set(ctx, a)
	snapshots.Invalidate(ctx, a.ID)

	got, err := snapshots.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestLocalRateLimiter_AllowsUnderLimit(t *testing.T) {
	limiter := NewLocalRateLimiter()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		allowed, err := limiter.Allow(ctx, "user:local", 5, time.Minute)
		require.NoError(t, err)
		assert.True(t, allowed, "request %d should pass", i+1)
	}

	allowed, err := limiter.Allow(ctx, "user:local", 5, time.Minute)
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestLocalRateLimiter_KeysAreIndependent(t *testing.T) {
	limiter := NewLocalRateLimiter()
	ctx := context.Background()

	allowed, err := limiter.Allow(ctx, "user:a", 1, time.Minute)
	require.NoError(t, err)
	require.True(t, allowed)
	allowed, err = limiter.Allow(ctx, "user:a", 1, time.Minute)
	require.NoError(t, err)
	require.False(t, allowed)

	allowed, err = limiter.Allow(ctx, "user:b", 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestLocalRateLimiter_Reset(t *testing.T) {
	limiter := NewLocalRateLimiter()
	ctx := context.Background()

	allowed, err := limiter.Allow(ctx, "user:reset", 1, time.Minute)
	require.NoError(t, err)
	require.True(t, allowed)

	require.NoError(t, limiter.Reset(ctx, "user:reset"))

	allowed, err = limiter.Allow(ctx, "user:reset", 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)
}
