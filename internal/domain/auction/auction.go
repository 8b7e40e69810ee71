package auction

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/auctionhouse/auction-marketplace-backend/internal/domain/values"
)

// Auction is the core entity: one selling window for one approved item. The
// highest bid, its bidder and the sequence counter are mutated only through
// the conditional-update path; everything else is fixed at creation.
type Auction struct {
	ID       uuid.UUID `json:"id"`
	ItemID   uuid.UUID `json:"item_id"`
	SellerID uuid.UUID `json:"seller_id"`

	StartingPrice values.Money `json:"starting_price"`
	ReservePrice  values.Money `json:"reserve_price"`

	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`

	Status Status `json:"status"`

	// HighestBid is nil until the first accepted bid. Once set it only ever
	// increases, one sequence step per accepted bid.
	HighestBid      *values.Money `json:"highest_bid,omitempty"`
	HighestBidderID *uuid.UUID    `json:"highest_bidder_id,omitempty"`
	Sequence        int64         `json:"sequence"`

	FinalizedAt     *time.Time `json:"finalized_at,omitempty"`
	PaymentDeadline *time.Time `json:"payment_deadline,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Status int

const (
	StatusScheduled Status = iota
	StatusActive
	StatusClosing
	StatusSold
	StatusUnsold
	StatusPaymentPending
	StatusCompleted
	StatusPaymentExpired
)

func (s Status) String() string {
	switch s {
	case StatusScheduled:
		return "scheduled"
	case StatusActive:
		return "active"
	case StatusClosing:
		return "closing"
	case StatusSold:
		return "sold"
	case StatusUnsold:
		return "unsold"
	case StatusPaymentPending:
		return "payment_pending"
	case StatusCompleted:
		return "completed"
	case StatusPaymentExpired:
		return "payment_expired"
	default:
		return "unknown"
	}
}

// ParseStatus converts a stored string to a Status
func ParseStatus(s string) Status {
	switch s {
	case "scheduled":
		return StatusScheduled
	case "active":
		return StatusActive
	case "closing":
		return StatusClosing
	case "sold":
		return StatusSold
	case "unsold":
		return StatusUnsold
	case "payment_pending":
		return StatusPaymentPending
	case "completed":
		return StatusCompleted
	case "payment_expired":
		return StatusPaymentExpired
	default:
		return StatusScheduled
	}
}

// IsTerminal reports whether no further transition may leave this status
func (s Status) IsTerminal() bool {
	switch s {
	case StatusUnsold, StatusCompleted, StatusPaymentExpired:
		return true
	}
	return false
}

// CanTransitionTo validates a lifecycle step. No transition is reversible.
func (s Status) CanTransitionTo(next Status) bool {
	switch s {
	case StatusScheduled:
		return next == StatusActive
	case StatusActive:
		return next == StatusClosing
	case StatusClosing:
		return next == StatusSold || next == StatusUnsold
	case StatusSold:
		return next == StatusPaymentPending
	case StatusPaymentPending:
		return next == StatusCompleted || next == StatusPaymentExpired
	}
	return false
}

// NewAuction creates the selling window for an approved item. Reserve and
// starting price are copied from the item so the bid path never has to load it.
func NewAuction(item *Item, startTime, endTime time.Time) (*Auction, error) {
	if item.Approval != ApprovalApproved {
		return nil, fmt.Errorf("item %s is not approved", item.ID)
	}
	if !startTime.Before(endTime) {
		return nil, fmt.Errorf("start time %s must be before end time %s", startTime, endTime)
	}
	if item.HasReserve() && item.ReservePrice.Compare(item.StartingPrice) < 0 {
		return nil, fmt.Errorf("reserve price %s is below starting price %s", item.ReservePrice, item.StartingPrice)
	}

	now := time.Now()
	status := StatusScheduled
	if !startTime.After(now) {
		status = StatusActive
	}

	return &Auction{
		ID:            uuid.New(),
		ItemID:        item.ID,
		SellerID:      item.SellerID,
		StartingPrice: item.StartingPrice,
		ReservePrice:  item.ReservePrice,
		StartTime:     startTime,
		EndTime:       endTime,
		Status:        status,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// IsOpenAt reports whether a bid submitted at the given instant may be
// considered: the auction must be active and the instant inside
// [StartTime, EndTime).
func (a *Auction) IsOpenAt(now time.Time) bool {
	if a.Status != StatusActive {
		return false
	}
	return !now.Before(a.StartTime) && now.Before(a.EndTime)
}

// CurrentPrice is the highest accepted bid, or the starting price before any
// bid was accepted.
func (a *Auction) CurrentPrice() values.Money {
	if a.HighestBid != nil {
		return *a.HighestBid
	}
	return a.StartingPrice
}

// AcceptsBid reports whether the amount clears the current price: strictly
// above the highest bid, or at least starting price plus the minimum
// increment when no bid exists yet. An amount exactly equal to the highest
// bid is never accepted.
func (a *Auction) AcceptsBid(amount, minIncrement values.Money) bool {
	if a.HighestBid == nil {
		return amount.Compare(a.StartingPrice.MustAdd(minIncrement)) >= 0
	}
	return amount.Compare(*a.HighestBid) > 0
}

// ApplyBid records an accepted bid on the in-memory entity. Persistence is
// responsible for making the same step conditional on Sequence.
func (a *Auction) ApplyBid(bidderID uuid.UUID, amount values.Money) {
	a.HighestBid = &amount
	a.HighestBidderID = &bidderID
	a.Sequence++
	a.UpdatedAt = time.Now()
}

// Outcome computes the closing result from the final highest bid against the
// reserve. A highest bid exactly equal to the reserve sells. Computed once at
// finalization and never re-evaluated.
func (a *Auction) Outcome() Status {
	if a.HighestBid == nil {
		return StatusUnsold
	}
	if a.ReservePrice.IsZero() {
		return StatusSold
	}
	if a.HighestBid.Compare(a.ReservePrice) >= 0 {
		return StatusSold
	}
	return StatusUnsold
}

// HasReserve reports whether the auction carries a reserve price
func (a *Auction) HasReserve() bool {
	return !a.ReservePrice.IsZero()
}

// TimeRemaining returns the time until the selling window ends, zero once
// it has passed.
func (a *Auction) TimeRemaining(now time.Time) time.Duration {
	if !now.Before(a.EndTime) {
		return 0
	}
	return a.EndTime.Sub(now)
}
