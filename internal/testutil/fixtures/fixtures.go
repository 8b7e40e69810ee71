// Package fixtures builds test entities with sensible defaults. Builders
// mutate a copy per With call, so fixtures can be shared across subtests.
package fixtures

import (
	"time"

	"github.com/google/uuid"

	"github.com/auctionhouse/auction-marketplace-backend/internal/domain/auction"
	"github.com/auctionhouse/auction-marketplace-backend/internal/domain/values"
)

// AuctionBuilder builds auctions for tests
type AuctionBuilder struct {
	auction auction.Auction
}

// NewAuction starts a builder for an active auction: $100 start, no reserve,
// open for an hour around now.
func NewAuction() *AuctionBuilder {
	now := time.Now()
	return &AuctionBuilder{auction: auction.Auction{
		ID:            uuid.New(),
		ItemID:        uuid.New(),
		SellerID:      uuid.New(),
		StartingPrice: values.MustNewMoneyFromString("100.00", "USD"),
		ReservePrice:  values.MustNewMoneyFromString("0.00", "USD"),
		StartTime:     now.Add(-30 * time.Minute),
		EndTime:       now.Add(30 * time.Minute),
		Status:        auction.StatusActive,
		CreatedAt:     now,
		UpdatedAt:     now,
	}}
}

func (b *AuctionBuilder) WithID(id uuid.UUID) *AuctionBuilder {
	b.auction.ID = id
	return b
}

func (b *AuctionBuilder) WithSeller(id uuid.UUID) *AuctionBuilder {
	b.auction.SellerID = id
	return b
}

func (b *AuctionBuilder) WithItem(id uuid.UUID) *AuctionBuilder {
	b.auction.ItemID = id
	return b
}

func (b *AuctionBuilder) WithStatus(status auction.Status) *AuctionBuilder {
	b.auction.Status = status
	return b
}

func (b *AuctionBuilder) WithStartingPrice(amount string) *AuctionBuilder {
	b.auction.StartingPrice = values.MustNewMoneyFromString(amount, "USD")
	return b
}

func (b *AuctionBuilder) WithReserve(amount string) *AuctionBuilder {
	b.auction.ReservePrice = values.MustNewMoneyFromString(amount, "USD")
	return b
}

func (b *AuctionBuilder) WithWindow(start, end time.Time) *AuctionBuilder {
	b.auction.StartTime = start
	b.auction.EndTime = end
	return b
}

func (b *AuctionBuilder) WithHighestBid(amount string, bidderID uuid.UUID, sequence int64) *AuctionBuilder {
	m := values.MustNewMoneyFromString(amount, "USD")
	b.auction.HighestBid = &m
	b.auction.HighestBidderID = &bidderID
	b.auction.Sequence = sequence
	return b
}

func (b *AuctionBuilder) WithPaymentDeadline(deadline time.Time) *AuctionBuilder {
	b.auction.PaymentDeadline = &deadline
	return b
}

// Build returns a copy of the assembled auction
func (b *AuctionBuilder) Build() *auction.Auction {
	cp := b.auction
	return &cp
}

// ItemBuilder builds items for tests
type ItemBuilder struct {
	item auction.Item
}

// NewItem starts a builder for an approved item with a $100 starting price
func NewItem() *ItemBuilder {
	now := time.Now()
	return &ItemBuilder{item: auction.Item{
		ID:            uuid.New(),
		SellerID:      uuid.New(),
		Title:         "Vintage mechanical watch",
		Description:   "Hand-wound movement, serviced last year",
		Category:      "collectibles",
		StartingPrice: values.MustNewMoneyFromString("100.00", "USD"),
		ReservePrice:  values.MustNewMoneyFromString("0.00", "USD"),
		Approval:      auction.ApprovalApproved,
		CreatedAt:     now,
		UpdatedAt:     now,
	}}
}

func (b *ItemBuilder) WithID(id uuid.UUID) *ItemBuilder {
	b.item.ID = id
	return b
}

func (b *ItemBuilder) WithSeller(id uuid.UUID) *ItemBuilder {
	b.item.SellerID = id
	return b
}

func (b *ItemBuilder) WithCategory(category string) *ItemBuilder {
	b.item.Category = category
	return b
}

func (b *ItemBuilder) WithApproval(approval auction.ApprovalStatus) *ItemBuilder {
	b.item.Approval = approval
	return b
}

func (b *ItemBuilder) WithStartingPrice(amount string) *ItemBuilder {
	b.item.StartingPrice = values.MustNewMoneyFromString(amount, "USD")
	return b
}

func (b *ItemBuilder) WithReserve(amount string) *ItemBuilder {
	b.item.ReservePrice = values.MustNewMoneyFromString(amount, "USD")
	return b
}

// Build returns a copy of the assembled item
func (b *ItemBuilder) Build() *auction.Item {
	cp := b.item
	return &cp
}

// Money is shorthand for a USD amount in tests
func Money(amount string) values.Money {
	return values.MustNewMoneyFromString(amount, "USD")
}
