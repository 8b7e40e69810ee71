package bidding

import (
	"context"

	"github.com/google/uuid"

	"github.com/auctionhouse/auction-marketplace-backend/internal/domain/auction"
	"github.com/auctionhouse/auction-marketplace-backend/internal/domain/event"
	"github.com/auctionhouse/auction-marketplace-backend/internal/domain/values"
)

// Service defines the bid ledger interface
type Service interface {
	// PlaceBid validates and applies a single bid against the auction's
	// current state
	PlaceBid(ctx context.Context, auctionID, bidderID uuid.UUID, amount values.Money) (*PlaceBidResult, error)
	// GetAuction retrieves the current auction state
	GetAuction(ctx context.Context, auctionID uuid.UUID) (*auction.Auction, error)
	// ListBids returns the append-only bid history for an auction
	ListBids(ctx context.Context, auctionID uuid.UUID) ([]*auction.Bid, error)
}

// PlaceBidResult reports an accepted bid
type PlaceBidResult struct {
	Bid        *auction.Bid `json:"bid"`
	NewHighest values.Money `json:"new_highest"`
	Sequence   int64        `json:"sequence"`
}

// AuctionRepository is the bid path's view of auction storage
type AuctionRepository interface {
	// GetByID retrieves an auction by ID
	GetByID(ctx context.Context, id uuid.UUID) (*auction.Auction, error)
	// UpdateHighestBid applies a new highest bid iff the stored sequence still
	// equals expectedSeq and the auction is still active. Returns false on a
	// lost compare-and-swap, with no other effect.
	UpdateHighestBid(ctx context.Context, id uuid.UUID, amount values.Money, bidderID uuid.UUID, expectedSeq int64) (bool, error)
}

// BidRepository stores the append-only bid audit trail
type BidRepository interface {
	// Create appends a bid record
	Create(ctx context.Context, b *auction.Bid) error
	// ListForAuction returns bids for an auction, newest first
	ListForAuction(ctx context.Context, auctionID uuid.UUID) ([]*auction.Bid, error)
}

// Notifier hands events to the external notification dispatch. Best-effort;
// implementations must not block the caller on delivery.
type Notifier interface {
	Notify(ctx context.Context, ev event.Event) error
}

// MetricsCollector records bid path metrics
type MetricsCollector interface {
	RecordBidAccepted(ctx context.Context, amount float64, attempts int)
	RecordBidRejected(ctx context.Context, reason string)
	RecordBidConflict(ctx context.Context)
}
