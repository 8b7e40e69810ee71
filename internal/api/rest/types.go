package rest

import (
	"time"

	"github.com/google/uuid"

	"github.com/auctionhouse/auction-marketplace-backend/internal/domain/auction"
)

// PlaceBidRequest submits one bid on an auction
type PlaceBidRequest struct {
	Amount   string `json:"amount" validate:"required"`
	Currency string `json:"currency" validate:"required,len=3"`
}

// CreateItemRequest lists a new item for auction
type CreateItemRequest struct {
	Title         string `json:"title" validate:"required,min=3,max=200"`
	Description   string `json:"description" validate:"max=5000"`
	Category      string `json:"category" validate:"required,max=100"`
	StartingPrice string `json:"starting_price" validate:"required"`
	ReservePrice  string `json:"reserve_price"`
	Currency      string `json:"currency" validate:"required,len=3"`
}

// CreateAuctionRequest opens a selling window for an approved item
type CreateAuctionRequest struct {
	ItemID    uuid.UUID `json:"item_id" validate:"required"`
	StartTime time.Time `json:"start_time" validate:"required"`
	EndTime   time.Time `json:"end_time" validate:"required,gtfield=StartTime"`
}

// BidResponse reports an accepted bid
type BidResponse struct {
	BidID       uuid.UUID `json:"bid_id"`
	AuctionID   uuid.UUID `json:"auction_id"`
	Amount      string    `json:"amount"`
	Currency    string    `json:"currency"`
	Sequence    int64     `json:"sequence"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// AuctionResponse is the public view of an auction
type AuctionResponse struct {
	ID              uuid.UUID  `json:"id"`
	ItemID          uuid.UUID  `json:"item_id"`
	SellerID        uuid.UUID  `json:"seller_id"`
	Status          string     `json:"status"`
	StartingPrice   string     `json:"starting_price"`
	CurrentPrice    string     `json:"current_price"`
	Currency        string     `json:"currency"`
	HasReserve      bool       `json:"has_reserve"`
	BidCount        int        `json:"bid_count,omitempty"`
	StartTime       time.Time  `json:"start_time"`
	EndTime         time.Time  `json:"end_time"`
	TimeRemaining   string     `json:"time_remaining"`
	PaymentDeadline *time.Time `json:"payment_deadline,omitempty"`
}

// NewAuctionResponse builds the public view at the given instant
func NewAuctionResponse(a *auction.Auction, now time.Time) AuctionResponse {
	return AuctionResponse{
		ID:              a.ID,
		ItemID:          a.ItemID,
		SellerID:        a.SellerID,
		Status:          a.Status.String(),
		StartingPrice:   a.StartingPrice.Amount().StringFixed(2),
		CurrentPrice:    a.CurrentPrice().Amount().StringFixed(2),
		Currency:        a.StartingPrice.Currency(),
		HasReserve:      a.HasReserve(),
		StartTime:       a.StartTime,
		EndTime:         a.EndTime,
		TimeRemaining:   a.TimeRemaining(now).Truncate(time.Second).String(),
		PaymentDeadline: a.PaymentDeadline,
	}
}

// BidHistoryEntry is one row of an auction's bid trail
type BidHistoryEntry struct {
	BidID       uuid.UUID `json:"bid_id"`
	BidderID    uuid.UUID `json:"bidder_id"`
	Amount      string    `json:"amount"`
	Accepted    bool      `json:"accepted"`
	Sequence    int64     `json:"sequence,omitempty"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// ErrorResponse is the wire form of a failed request
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail carries the machine-readable code and human message
type ErrorDetail struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}
