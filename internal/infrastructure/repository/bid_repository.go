package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/auctionhouse/auction-marketplace-backend/internal/domain/auction"
	"github.com/auctionhouse/auction-marketplace-backend/internal/domain/values"
)

// BidRepository is the append-only audit trail of bid attempts. Rows are
// never updated or deleted; rejected attempts land here with accepted=false.
type BidRepository struct {
	db *pgxpool.Pool
}

// NewBidRepository creates a new bid repository
func NewBidRepository(db *pgxpool.Pool) *BidRepository {
	return &BidRepository{db: db}
}

// Create appends one bid record
func (r *BidRepository) Create(ctx context.Context, b *auction.Bid) error {
	query := `
		INSERT INTO bids (
			id, auction_id, bidder_id,
			amount, currency, accepted, sequence,
			submitted_at, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.db.Exec(ctx, query,
		b.ID, b.AuctionID, b.BidderID,
		b.Amount.Amount(), b.Amount.Currency(), b.Accepted, b.Sequence,
		b.SubmittedAt, b.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create bid: %w", err)
	}
	return nil
}

// maxBidHistory caps a single history read; auctions rarely approach it.
const maxBidHistory = 1000

// ListForAuction returns an auction's bid history, newest first
func (r *BidRepository) ListForAuction(ctx context.Context, auctionID uuid.UUID) ([]*auction.Bid, error) {
	query := `
		SELECT id, auction_id, bidder_id,
		       amount::text, currency, accepted, sequence,
		       submitted_at, created_at
		FROM bids
		WHERE auction_id = $1
		ORDER BY submitted_at DESC, created_at DESC
		LIMIT $2
	`

	rows, err := r.db.Query(ctx, query, auctionID, maxBidHistory)
	if err != nil {
		return nil, fmt.Errorf("failed to query bids: %w", err)
	}
	defer rows.Close()

	var bids []*auction.Bid
	for rows.Next() {
		var (
			b        auction.Bid
			amount   string
			currency string
		)
		err := rows.Scan(
			&b.ID, &b.AuctionID, &b.BidderID,
			&amount, &currency, &b.Accepted, &b.Sequence,
			&b.SubmittedAt, &b.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bid: %w", err)
		}
		if b.Amount, err = values.NewMoneyFromString(amount, currency); err != nil {
			return nil, fmt.Errorf("invalid bid amount: %w", err)
		}
		bids = append(bids, &b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return bids, nil
}
