// Package repository implements PostgreSQL persistence for the auction core.
// All lifecycle writes are conditional single-row updates so the optimistic
// concurrency contract holds without explicit locking.
package repository

import (
	"github.com/auctionhouse/auction-marketplace-backend/internal/service/bidding"
	"github.com/auctionhouse/auction-marketplace-backend/internal/service/payment"
	"github.com/auctionhouse/auction-marketplace-backend/internal/service/scheduler"
)

var (
	_ bidding.AuctionRepository   = (*AuctionRepository)(nil)
	_ bidding.BidRepository       = (*BidRepository)(nil)
	_ scheduler.AuctionRepository = (*AuctionRepository)(nil)
	_ payment.AuctionRepository   = (*AuctionRepository)(nil)
)
