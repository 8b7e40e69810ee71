// Package testutil provides in-memory collaborators for service tests. The
// memory store honors the same conditional-update contract as the SQL
// repositories, so concurrency tests exercise the real compare-and-swap
// behavior without a database.
package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/auctionhouse/auction-marketplace-backend/internal/domain/auction"
	domainErrors "github.com/auctionhouse/auction-marketplace-backend/internal/domain/errors"
	"github.com/auctionhouse/auction-marketplace-backend/internal/domain/values"
)

// MemoryStore is a mutex-guarded in-memory auction, bid and item store
type MemoryStore struct {
	mu       sync.Mutex
	auctions map[uuid.UUID]*auction.Auction
	bids     []*auction.Bid
	items    map[uuid.UUID]*auction.Item

	// FailNextUpdate forces the next conditional write to report a lost
	// compare-and-swap, for contention tests.
	FailNextUpdate int
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		auctions: make(map[uuid.UUID]*auction.Auction),
		items:    make(map[uuid.UUID]*auction.Item),
	}
}

// PutAuction seeds or replaces an auction
func (s *MemoryStore) PutAuction(a *auction.Auction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *a
	s.auctions[a.ID] = &cp
}

// PutItem seeds or replaces an item
func (s *MemoryStore) PutItem(item *auction.Item) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *item
	s.items[item.ID] = &cp
}

// Create stores a new auction
func (s *MemoryStore) Create(ctx context.Context, a *auction.Auction) error {
	s.PutAuction(a)
	return nil
}

// GetByID returns a copy of the auction
func (s *MemoryStore) GetByID(ctx context.Context, id uuid.UUID) (*auction.Auction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.auctions[id]
	if !ok {
		return nil, domainErrors.ErrAuctionNotFound
	}
	cp := *a
	return &cp, nil
}

// UpdateHighestBid applies the bid iff sequence and status still match
func (s *MemoryStore) UpdateHighestBid(ctx context.Context, id uuid.UUID, amount values.Money, bidderID uuid.UUID, expectedSeq int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailNextUpdate > 0 {
		s.FailNextUpdate--
		return false, nil
	}

	a, ok := s.auctions[id]
	if !ok {
		return false, nil
	}
	if a.Status != auction.StatusActive || a.Sequence != expectedSeq {
		return false, nil
	}

	a.HighestBid = &amount
	a.HighestBidderID = &bidderID
	a.Sequence++
	a.UpdatedAt = time.Now()
	return true, nil
}

// Create appends a bid record
func (s *MemoryStore) CreateBid(ctx context.Context, b *auction.Bid) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *b
	s.bids = append(s.bids, &cp)
	return nil
}

// ListForAuction returns bids for an auction, newest first
func (s *MemoryStore) ListForAuction(ctx context.Context, auctionID uuid.UUID) ([]*auction.Bid, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*auction.Bid
	for i := len(s.bids) - 1; i >= 0; i-- {
		if s.bids[i].AuctionID == auctionID {
			cp := *s.bids[i]
			out = append(out, &cp)
		}
	}
	return out, nil
}

// Bids returns every stored bid record, oldest first
func (s *MemoryStore) Bids() []*auction.Bid {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*auction.Bid, 0, len(s.bids))
	for _, b := range s.bids {
		cp := *b
		out = append(out, &cp)
	}
	return out
}

// ListScheduledToStart returns scheduled auctions whose start time has passed
func (s *MemoryStore) ListScheduledToStart(ctx context.Context, now time.Time, limit int) ([]*auction.Auction, error) {
	return s.filter(limit, func(a *auction.Auction) bool {
		return a.Status == auction.StatusScheduled && !a.StartTime.After(now)
	}), nil
}

// ListActiveExpired returns active auctions whose end time has passed
func (s *MemoryStore) ListActiveExpired(ctx context.Context, now time.Time, limit int) ([]*auction.Auction, error) {
	return s.filter(limit, func(a *auction.Auction) bool {
		return a.Status == auction.StatusActive && !a.EndTime.After(now)
	}), nil
}

// ListSoldAwaitingWindow returns sold auctions whose window was never opened
func (s *MemoryStore) ListSoldAwaitingWindow(ctx context.Context, limit int) ([]*auction.Auction, error) {
	return s.filter(limit, func(a *auction.Auction) bool {
		return a.Status == auction.StatusSold
	}), nil
}

// ListPaymentOverdue returns payment_pending auctions past their deadline
func (s *MemoryStore) ListPaymentOverdue(ctx context.Context, now time.Time, limit int) ([]*auction.Auction, error) {
	return s.filter(limit, func(a *auction.Auction) bool {
		return a.Status == auction.StatusPaymentPending &&
			a.PaymentDeadline != nil && !a.PaymentDeadline.After(now)
	}), nil
}

// ListByStatus returns auctions in a given state, optionally restricted to
// items in one category
func (s *MemoryStore) ListByStatus(ctx context.Context, status auction.Status, category string, limit int) ([]*auction.Auction, error) {
	return s.filter(limit, func(a *auction.Auction) bool {
		if a.Status != status {
			return false
		}
		if category == "" {
			return true
		}
		item, ok := s.items[a.ItemID]
		return ok && item.Category == category
	}), nil
}

// MarkActive moves scheduled -> active
func (s *MemoryStore) MarkActive(ctx context.Context, id uuid.UUID) (bool, error) {
	return s.transition(id, auction.StatusScheduled, auction.StatusActive, nil)
}

// Finalize moves active -> sold|unsold, guarded by the sequence
func (s *MemoryStore) Finalize(ctx context.Context, id uuid.UUID, outcome auction.Status, finalizedAt time.Time, expectedSeq int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailNextUpdate > 0 {
		s.FailNextUpdate--
		return false, nil
	}

	a, ok := s.auctions[id]
	if !ok {
		return false, nil
	}
	if a.Status != auction.StatusActive || a.Sequence != expectedSeq {
		return false, nil
	}

	a.Status = outcome
	a.FinalizedAt = &finalizedAt
	a.UpdatedAt = time.Now()
	return true, nil
}

// MarkPaymentPending moves sold -> payment_pending
func (s *MemoryStore) MarkPaymentPending(ctx context.Context, id uuid.UUID, deadline time.Time) (bool, error) {
	return s.transition(id, auction.StatusSold, auction.StatusPaymentPending, &deadline)
}

// MarkPaymentOutcome moves payment_pending -> completed|payment_expired
func (s *MemoryStore) MarkPaymentOutcome(ctx context.Context, id uuid.UUID, outcome auction.Status) (bool, error) {
	return s.transition(id, auction.StatusPaymentPending, outcome, nil)
}

// GetItem returns a copy of the item
func (s *MemoryStore) GetItem(ctx context.Context, id uuid.UUID) (*auction.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[id]
	if !ok {
		return nil, domainErrors.ErrItemNotFound
	}
	cp := *item
	return &cp, nil
}

// UpdateApproval sets the moderation outcome for an item
func (s *MemoryStore) UpdateApproval(ctx context.Context, id uuid.UUID, approval auction.ApprovalStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[id]
	if !ok {
		return domainErrors.ErrItemNotFound
	}
	item.Approval = approval
	item.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *MemoryStore) filter(limit int, keep func(*auction.Auction) bool) []*auction.Auction {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*auction.Auction
	for _, a := range s.auctions {
		if !keep(a) {
			continue
		}
		cp := *a
		out = append(out, &cp)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

// MemoryBidRepo adapts the store to the bid audit trail interface
type MemoryBidRepo struct {
	Store *MemoryStore
}

// Create appends a bid record
func (r MemoryBidRepo) Create(ctx context.Context, b *auction.Bid) error {
	return r.Store.CreateBid(ctx, b)
}

// ListForAuction returns bids for an auction, newest first
func (r MemoryBidRepo) ListForAuction(ctx context.Context, auctionID uuid.UUID) ([]*auction.Bid, error) {
	return r.Store.ListForAuction(ctx, auctionID)
}

func (s *MemoryStore) transition(id uuid.UUID, from, to auction.Status, deadline *time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.auctions[id]
	if !ok {
		return false, nil
	}
	if a.Status != from {
		return false, nil
	}

	a.Status = to
	if deadline != nil {
		a.PaymentDeadline = deadline
	}
	a.UpdatedAt = time.Now()
	return true, nil
}
