package auction

import (
	"time"

	"github.com/google/uuid"

	"github.com/auctionhouse/auction-marketplace-backend/internal/domain/values"
)

// Bid is an append-only audit record of one submitted amount. Rejected
// attempts are recorded too; nothing ever mutates or deletes a Bid.
type Bid struct {
	ID        uuid.UUID    `json:"id"`
	AuctionID uuid.UUID    `json:"auction_id"`
	BidderID  uuid.UUID    `json:"bidder_id"`
	Amount    values.Money `json:"amount"`

	// Accepted marks whether this bid became the new highest. Sequence is the
	// auction sequence number assigned on acceptance, zero for rejected bids.
	Accepted bool  `json:"accepted"`
	Sequence int64 `json:"sequence"`

	SubmittedAt time.Time `json:"submitted_at"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewAcceptedBid records a bid that became the new highest at the given
// sequence number.
func NewAcceptedBid(auctionID, bidderID uuid.UUID, amount values.Money, sequence int64, submittedAt time.Time) *Bid {
	return &Bid{
		ID:          uuid.New(),
		AuctionID:   auctionID,
		BidderID:    bidderID,
		Amount:      amount,
		Accepted:    true,
		Sequence:    sequence,
		SubmittedAt: submittedAt,
		CreatedAt:   time.Now(),
	}
}

// NewRejectedBid records a stale or too-low attempt for audit.
func NewRejectedBid(auctionID, bidderID uuid.UUID, amount values.Money, submittedAt time.Time) *Bid {
	return &Bid{
		ID:          uuid.New(),
		AuctionID:   auctionID,
		BidderID:    bidderID,
		Amount:      amount,
		Accepted:    false,
		SubmittedAt: submittedAt,
		CreatedAt:   time.Now(),
	}
}
