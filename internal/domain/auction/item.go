package auction

import (
	"time"

	"github.com/google/uuid"

	"github.com/auctionhouse/auction-marketplace-backend/internal/domain/values"
)

// Item is the listing an auction sells. Its content is owned by the item
// submission/approval workflow and is immutable once approved; the core only
// reads it.
type Item struct {
	ID            uuid.UUID    `json:"id"`
	SellerID      uuid.UUID    `json:"seller_id"`
	Title         string       `json:"title"`
	Description   string       `json:"description"`
	Category      string       `json:"category"`
	StartingPrice values.Money `json:"starting_price"`
	// ReservePrice is the minimum winning amount. Zero means no reserve.
	ReservePrice values.Money   `json:"reserve_price"`
	Approval     ApprovalStatus `json:"approval"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

type ApprovalStatus int

const (
	ApprovalPending ApprovalStatus = iota
	ApprovalApproved
	ApprovalRejected
)

func (s ApprovalStatus) String() string {
	switch s {
	case ApprovalPending:
		return "pending"
	case ApprovalApproved:
		return "approved"
	case ApprovalRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// ParseApprovalStatus converts a stored string to an ApprovalStatus
func ParseApprovalStatus(s string) ApprovalStatus {
	switch s {
	case "approved":
		return ApprovalApproved
	case "rejected":
		return ApprovalRejected
	default:
		return ApprovalPending
	}
}

// HasReserve reports whether the item carries a reserve price
func (i *Item) HasReserve() bool {
	return !i.ReservePrice.IsZero()
}
