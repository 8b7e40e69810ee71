package cache

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/auctionhouse/auction-marketplace-backend/internal/domain/auction"
)

// AuctionCache keeps short-lived snapshots of auction state so read-heavy
// detail pages don't hammer the primary. TTLs are short on purpose: the bid
// path always reads storage, never this cache.
type AuctionCache struct {
	cache  Cache
	logger *zap.Logger
	ttl    time.Duration
}

// NewAuctionCache creates a snapshot cache with the given TTL
func NewAuctionCache(cache Cache, logger *zap.Logger, ttl time.Duration) *AuctionCache {
	if ttl <= 0 {
		ttl = 2 * time.Second
	}
	return &AuctionCache{
		cache:  cache,
		logger: logger,
		ttl:    ttl,
	}
}

// Get returns the cached snapshot, or nil on a miss
func (c *AuctionCache) Get(ctx context.Context, auctionID uuid.UUID) (*auction.Auction, error) {
	var a auction.Auction
	err := c.cache.GetJSON(ctx, AuctionSnapshotPrefix+auctionID.String(), &a)
	if err != nil {
		if IsKeyNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &a, nil
}

// Set stores a snapshot. Failures are logged, never surfaced: the cache is
// an optimization, not a source of truth.
func (c *AuctionCache) Set(ctx context.Context, a *auction.Auction) {
	err := c.cache.SetJSON(ctx, AuctionSnapshotPrefix+a.ID.String(), a, c.ttl)
	if err != nil {
		c.logger.Warn("auction snapshot cache write failed",
			zap.String("auction_id", a.ID.String()),
			zap.Error(err))
	}
}

// Invalidate drops the snapshot after a state change
func (c *AuctionCache) Invalidate(ctx context.Context, auctionID uuid.UUID) {
	err := c.cache.Delete(ctx, AuctionSnapshotPrefix+auctionID.String())
	if err != nil {
		c.logger.Warn("auction snapshot invalidation failed",
			zap.String("auction_id", auctionID.String()),
			zap.Error(err))
	}
}
