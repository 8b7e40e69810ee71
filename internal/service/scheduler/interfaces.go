package scheduler

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/auctionhouse/auction-marketplace-backend/internal/domain/auction"
	"github.com/auctionhouse/auction-marketplace-backend/internal/domain/event"
	"github.com/auctionhouse/auction-marketplace-backend/internal/domain/values"
)

// AuctionRepository is the sweep's view of auction storage. Every mutation is
// a state-check-and-set: it succeeds at most once per auction, so duplicate
// or overlapping sweeps are safe to retry.
type AuctionRepository interface {
	// ListScheduledToStart returns scheduled auctions whose start time has
	// passed
	ListScheduledToStart(ctx context.Context, now time.Time, limit int) ([]*auction.Auction, error)
	// ListActiveExpired returns active auctions whose end time has passed
	ListActiveExpired(ctx context.Context, now time.Time, limit int) ([]*auction.Auction, error)
	// ListSoldAwaitingWindow returns sold auctions whose payment window was
	// never opened, so a failed OpenWindow can be retried
	ListSoldAwaitingWindow(ctx context.Context, limit int) ([]*auction.Auction, error)
	// GetByID retrieves an auction by ID
	GetByID(ctx context.Context, id uuid.UUID) (*auction.Auction, error)
	// MarkActive moves scheduled -> active; false if no longer scheduled
	MarkActive(ctx context.Context, id uuid.UUID) (bool, error)
	// Finalize moves active -> sold|unsold and stamps finalizedAt, iff the
	// auction is still active and its sequence is unchanged since the read
	// the outcome was computed from. False on a lost compare-and-swap.
	Finalize(ctx context.Context, id uuid.UUID, outcome auction.Status, finalizedAt time.Time, expectedSeq int64) (bool, error)
}

// PaymentWindower opens the payment window for a sold auction. External
// payment capture reports back through the payment service.
type PaymentWindower interface {
	OpenWindow(ctx context.Context, auctionID, winnerID uuid.UUID, amount values.Money, deadline time.Time) error
}

// PaymentExpirer expires payment windows whose deadline has passed
type PaymentExpirer interface {
	ExpireOverdue(ctx context.Context, now time.Time, limit int) (int, error)
}

// Notifier hands winner/no-sale events to the external notification dispatch
type Notifier interface {
	Notify(ctx context.Context, ev event.Event) error
}

// MetricsCollector records sweep metrics
type MetricsCollector interface {
	RecordSweep(ctx context.Context, duration time.Duration, transitions int)
	RecordFinalized(ctx context.Context, outcome string)
}
