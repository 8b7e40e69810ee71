package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/auctionhouse/auction-marketplace-backend/internal/domain/auction"
	domainErrors "github.com/auctionhouse/auction-marketplace-backend/internal/domain/errors"
	"github.com/auctionhouse/auction-marketplace-backend/internal/domain/values"
)

// ItemRepository persists auction items in PostgreSQL
type ItemRepository struct {
	db *pgxpool.Pool
}

// NewItemRepository creates a new item repository
func NewItemRepository(db *pgxpool.Pool) *ItemRepository {
	return &ItemRepository{db: db}
}

// Create stores a new item
func (r *ItemRepository) Create(ctx context.Context, item *auction.Item) error {
	query := `
		INSERT INTO items (
			id, seller_id, title, description, category,
			starting_price, reserve_price, currency,
			approval, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.db.Exec(ctx, query,
		item.ID, item.SellerID, item.Title, item.Description, item.Category,
		item.StartingPrice.Amount(), item.ReservePrice.Amount(), item.StartingPrice.Currency(),
		item.Approval.String(), item.CreatedAt, item.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create item: %w", err)
	}
	return nil
}

// GetByID retrieves an item by ID
func (r *ItemRepository) GetByID(ctx context.Context, id uuid.UUID) (*auction.Item, error) {
	query := `
		SELECT id, seller_id, title, description, category,
		       starting_price::text, reserve_price::text, currency,
		       approval, created_at, updated_at
		FROM items
		WHERE id = $1
	`

	var (
		item          auction.Item
		startingPrice string
		reservePrice  string
		currency      string
		approval      string
	)
	err := r.db.QueryRow(ctx, query, id).Scan(
		&item.ID, &item.SellerID, &item.Title, &item.Description, &item.Category,
		&startingPrice, &reservePrice, &currency,
		&approval, &item.CreatedAt, &item.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrItemNotFound
		}
		return nil, fmt.Errorf("failed to get item: %w", err)
	}

	item.Approval = auction.ParseApprovalStatus(approval)
	if item.StartingPrice, err = values.NewMoneyFromString(startingPrice, currency); err != nil {
		return nil, fmt.Errorf("invalid starting price: %w", err)
	}
	if item.ReservePrice, err = values.NewMoneyFromString(reservePrice, currency); err != nil {
		return nil, fmt.Errorf("invalid reserve price: %w", err)
	}
	return &item, nil
}

// UpdateApproval moves an item through the moderation workflow
func (r *ItemRepository) UpdateApproval(ctx context.Context, id uuid.UUID, approval auction.ApprovalStatus) error {
	query := `
		UPDATE items
		SET approval = $2, updated_at = NOW()
		WHERE id = $1
	`

	tag, err := r.db.Exec(ctx, query, id, approval.String())
	if err != nil {
		return fmt.Errorf("failed to update item approval: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrItemNotFound
	}
	return nil
}
