package event

import (
	"github.com/google/uuid"

	"github.com/auctionhouse/auction-marketplace-backend/internal/domain/values"
)

// Kind discriminates notification events on the wire.
type Kind string

const (
	KindOutbid Kind = "outbid"
	KindWinner Kind = "winner"
	KindNoSale Kind = "no_sale"
)

// Event is a notification handed to the external dispatch interface.
// Delivery is best-effort and asynchronous; producers never block on it.
type Event interface {
	Kind() Kind
	Auction() uuid.UUID
}

// OutbidAlert tells the previously highest bidder they were just superseded.
type OutbidAlert struct {
	AuctionID        uuid.UUID    `json:"auction_id"`
	PreviousBidderID uuid.UUID    `json:"previous_bidder_id"`
	NewHighest       values.Money `json:"new_highest"`
}

func (e OutbidAlert) Kind() Kind         { return KindOutbid }
func (e OutbidAlert) Auction() uuid.UUID { return e.AuctionID }

// WinnerAlert tells the winning bidder the auction closed in their favor.
type WinnerAlert struct {
	AuctionID  uuid.UUID    `json:"auction_id"`
	WinnerID   uuid.UUID    `json:"winner_id"`
	FinalPrice values.Money `json:"final_price"`
}

func (e WinnerAlert) Kind() Kind         { return KindWinner }
func (e WinnerAlert) Auction() uuid.UUID { return e.AuctionID }

// NoSaleAlert reports an auction that closed without a winning bid.
type NoSaleAlert struct {
	AuctionID uuid.UUID `json:"auction_id"`
}

func (e NoSaleAlert) Kind() Kind         { return KindNoSale }
func (e NoSaleAlert) Auction() uuid.UUID { return e.AuctionID }
