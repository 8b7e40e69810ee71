package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/auctionhouse/auction-marketplace-backend/internal/domain/auction"
	domainErrors "github.com/auctionhouse/auction-marketplace-backend/internal/domain/errors"
	"github.com/auctionhouse/auction-marketplace-backend/internal/domain/values"
)

const auctionColumns = `
	id, item_id, seller_id,
	starting_price::text, reserve_price::text, currency,
	start_time, end_time, status,
	highest_bid::text, highest_bidder_id, sequence,
	finalized_at, payment_deadline, created_at, updated_at
`

// AuctionRepository persists auctions in PostgreSQL. Every mutation is a
// conditional single-row update, keyed on the sequence number or the current
// status, so concurrent writers can never produce a lost update.
type AuctionRepository struct {
	db *pgxpool.Pool
}

// NewAuctionRepository creates a new auction repository
func NewAuctionRepository(db *pgxpool.Pool) *AuctionRepository {
	return &AuctionRepository{db: db}
}

// Create stores a new auction
func (r *AuctionRepository) Create(ctx context.Context, a *auction.Auction) error {
	query := `
		INSERT INTO auctions (
			id, item_id, seller_id,
			starting_price, reserve_price, currency,
			start_time, end_time, status,
			sequence, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := r.db.Exec(ctx, query,
		a.ID, a.ItemID, a.SellerID,
		a.StartingPrice.Amount(), a.ReservePrice.Amount(), a.StartingPrice.Currency(),
		a.StartTime, a.EndTime, a.Status.String(),
		a.Sequence, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create auction: %w", err)
	}
	return nil
}

// GetByID retrieves an auction by ID
func (r *AuctionRepository) GetByID(ctx context.Context, id uuid.UUID) (*auction.Auction, error) {
	query := `SELECT ` + auctionColumns + ` FROM auctions WHERE id = $1`

	a, err := scanAuction(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrAuctionNotFound
		}
		return nil, fmt.Errorf("failed to get auction: %w", err)
	}
	return a, nil
}

// UpdateHighestBid applies a new highest bid iff the stored sequence still
// equals expectedSeq and the auction is still active. This is the single
// point of correctness for the highest-bid invariant.
func (r *AuctionRepository) UpdateHighestBid(ctx context.Context, id uuid.UUID, amount values.Money, bidderID uuid.UUID, expectedSeq int64) (bool, error) {
	query := `
		UPDATE auctions
		SET highest_bid = $2,
		    highest_bidder_id = $3,
		    sequence = sequence + 1,
		    updated_at = NOW()
		WHERE id = $1
		  AND sequence = $4
		  AND status = 'active'
	`

	tag, err := r.db.Exec(ctx, query, id, amount.Amount(), bidderID, expectedSeq)
	if err != nil {
		return false, fmt.Errorf("failed to update highest bid: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// ListScheduledToStart returns scheduled auctions whose start time has passed
func (r *AuctionRepository) ListScheduledToStart(ctx context.Context, now time.Time, limit int) ([]*auction.Auction, error) {
	query := `
		SELECT ` + auctionColumns + `
		FROM auctions
		WHERE status = 'scheduled' AND start_time <= $1
		ORDER BY start_time ASC
		LIMIT $2
	`
	return r.list(ctx, query, now, limit)
}

// ListActiveExpired returns active auctions whose end time has passed
func (r *AuctionRepository) ListActiveExpired(ctx context.Context, now time.Time, limit int) ([]*auction.Auction, error) {
	query := `
		SELECT ` + auctionColumns + `
		FROM auctions
		WHERE status = 'active' AND end_time <= $1
		ORDER BY end_time ASC
		LIMIT $2
	`
	return r.list(ctx, query, now, limit)
}

// ListSoldAwaitingWindow returns sold auctions whose payment window has not
// been opened yet. Normally empty; rows appear here only when OpenWindow
// failed after a finalization committed.
func (r *AuctionRepository) ListSoldAwaitingWindow(ctx context.Context, limit int) ([]*auction.Auction, error) {
	query := `
		SELECT ` + auctionColumns + `
		FROM auctions
		WHERE status = 'sold'
		ORDER BY finalized_at ASC
		LIMIT $1
	`
	return r.list(ctx, query, limit)
}

// ListPaymentOverdue returns payment_pending auctions whose deadline has passed
func (r *AuctionRepository) ListPaymentOverdue(ctx context.Context, now time.Time, limit int) ([]*auction.Auction, error) {
	query := `
		SELECT ` + auctionColumns + `
		FROM auctions
		WHERE status = 'payment_pending' AND payment_deadline <= $1
		ORDER BY payment_deadline ASC
		LIMIT $2
	`
	return r.list(ctx, query, now, limit)
}

// ListByStatus returns auctions in a given state, most recently ending
// first. An empty category matches every item.
func (r *AuctionRepository) ListByStatus(ctx context.Context, status auction.Status, category string, limit int) ([]*auction.Auction, error) {
	if category != "" {
		query := `
			SELECT ` + auctionColumns + `
			FROM auctions
			WHERE status = $1
			  AND item_id IN (SELECT id FROM items WHERE category = $2)
			ORDER BY end_time DESC
			LIMIT $3
		`
		return r.list(ctx, query, status.String(), category, limit)
	}

	query := `
		SELECT ` + auctionColumns + `
		FROM auctions
		WHERE status = $1
		ORDER BY end_time DESC
		LIMIT $2
	`
	return r.list(ctx, query, status.String(), limit)
}

// MarkActive moves scheduled -> active
func (r *AuctionRepository) MarkActive(ctx context.Context, id uuid.UUID) (bool, error) {
	query := `
		UPDATE auctions
		SET status = 'active', updated_at = NOW()
		WHERE id = $1 AND status = 'scheduled'
	`

	tag, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("failed to activate auction: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// Finalize moves active -> sold|unsold and stamps finalized_at, guarded by
// both the status and the sequence the outcome was computed from.
func (r *AuctionRepository) Finalize(ctx context.Context, id uuid.UUID, outcome auction.Status, finalizedAt time.Time, expectedSeq int64) (bool, error) {
	if outcome != auction.StatusSold && outcome != auction.StatusUnsold {
		return false, fmt.Errorf("invalid finalization outcome: %s", outcome)
	}

	query := `
		UPDATE auctions
		SET status = $2, finalized_at = $3, updated_at = NOW()
		WHERE id = $1
		  AND status = 'active'
		  AND sequence = $4
	`

	tag, err := r.db.Exec(ctx, query, id, outcome.String(), finalizedAt, expectedSeq)
	if err != nil {
		return false, fmt.Errorf("failed to finalize auction: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// MarkPaymentPending moves sold -> payment_pending and stamps the deadline
func (r *AuctionRepository) MarkPaymentPending(ctx context.Context, id uuid.UUID, deadline time.Time) (bool, error) {
	query := `
		UPDATE auctions
		SET status = 'payment_pending', payment_deadline = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'sold'
	`

	tag, err := r.db.Exec(ctx, query, id, deadline)
	if err != nil {
		return false, fmt.Errorf("failed to open payment window: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// MarkPaymentOutcome moves payment_pending -> completed|payment_expired
func (r *AuctionRepository) MarkPaymentOutcome(ctx context.Context, id uuid.UUID, outcome auction.Status) (bool, error) {
	if outcome != auction.StatusCompleted && outcome != auction.StatusPaymentExpired {
		return false, fmt.Errorf("invalid payment outcome: %s", outcome)
	}

	query := `
		UPDATE auctions
		SET status = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'payment_pending'
	`

	tag, err := r.db.Exec(ctx, query, id, outcome.String())
	if err != nil {
		return false, fmt.Errorf("failed to close payment window: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *AuctionRepository) list(ctx context.Context, query string, args ...interface{}) ([]*auction.Auction, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query auctions: %w", err)
	}
	defer rows.Close()

	var auctions []*auction.Auction
	for rows.Next() {
		a, err := scanAuction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan auction: %w", err)
		}
		auctions = append(auctions, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return auctions, nil
}

// scanAuction reads one auction row. Prices are selected as text and rebuilt
// with the row's currency to avoid float round-trips.
func scanAuction(row pgx.Row) (*auction.Auction, error) {
	var (
		a               auction.Auction
		startingPrice   string
		reservePrice    string
		currency        string
		statusStr       string
		highestBid      *string
		highestBidderID *uuid.UUID
	)

	err := row.Scan(
		&a.ID, &a.ItemID, &a.SellerID,
		&startingPrice, &reservePrice, &currency,
		&a.StartTime, &a.EndTime, &statusStr,
		&highestBid, &highestBidderID, &a.Sequence,
		&a.FinalizedAt, &a.PaymentDeadline, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	a.Status = auction.ParseStatus(statusStr)

	if a.StartingPrice, err = values.NewMoneyFromString(startingPrice, currency); err != nil {
		return nil, fmt.Errorf("invalid starting price: %w", err)
	}
	if a.ReservePrice, err = values.NewMoneyFromString(reservePrice, currency); err != nil {
		return nil, fmt.Errorf("invalid reserve price: %w", err)
	}
	if highestBid != nil {
		hb, err := values.NewMoneyFromString(*highestBid, currency)
		if err != nil {
			return nil, fmt.Errorf("invalid highest bid: %w", err)
		}
		a.HighestBid = &hb
	}
	a.HighestBidderID = highestBidderID

	return &a, nil
}
