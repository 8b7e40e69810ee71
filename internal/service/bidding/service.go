package bidding

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/auctionhouse/auction-marketplace-backend/internal/domain/auction"
	"github.com/auctionhouse/auction-marketplace-backend/internal/domain/errors"
	"github.com/auctionhouse/auction-marketplace-backend/internal/domain/event"
	"github.com/auctionhouse/auction-marketplace-backend/internal/domain/values"
)

// Config tunes the bid ledger
type Config struct {
	// MinIncrement is the minimum step above the starting price for the very
	// first bid of an auction
	MinIncrement values.Money
	// MaxRetries bounds the compare-and-swap retry loop before giving up
	// with a contention error
	MaxRetries int
}

// service implements the bid ledger. Acceptance and the highest-bid update
// are a single conditional write on the auction record; the service never
// holds locks across storage calls.
type service struct {
	auctions AuctionRepository
	bids     BidRepository
	notifier Notifier
	metrics  MetricsCollector
	logger   *zap.Logger

	minIncrement values.Money
	maxRetries   int
	clock        func() time.Time
}

// NewService creates a new bid ledger
func NewService(
	auctions AuctionRepository,
	bids BidRepository,
	notifier Notifier,
	metrics MetricsCollector,
	logger *zap.Logger,
	cfg Config,
) Service {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 5
	}
	return &service{
		auctions:     auctions,
		bids:         bids,
		notifier:     notifier,
		metrics:      metrics,
		logger:       logger,
		minIncrement: cfg.MinIncrement,
		maxRetries:   cfg.MaxRetries,
		clock:        time.Now,
	}
}

// PlaceBid validates a bid and applies it via compare-and-swap on the
// auction sequence number. On a lost swap the comparison is re-run against
// the new highest, never blindly retried: if the re-read highest already
// exceeds the submitted amount the bid is rejected as too low.
func (s *service) PlaceBid(ctx context.Context, auctionID, bidderID uuid.UUID, amount values.Money) (*PlaceBidResult, error) {
	submittedAt := s.clock()

	for attempt := 1; attempt <= s.maxRetries; attempt++ {
		a, err := s.auctions.GetByID(ctx, auctionID)
		if err != nil {
			if errors.IsType(err, errors.ErrorTypeNotFound) {
				s.recordRejected(ctx, errors.CodeAuctionNotOpen)
				return nil, errors.ErrAuctionNotOpen.WithDetails(map[string]interface{}{
					"auction_id": auctionID,
				})
			}
			return nil, errors.ErrStorageUnavailable.WithCause(err)
		}

		now := s.clock()
		if !a.IsOpenAt(now) {
			s.recordRejected(ctx, errors.CodeAuctionNotOpen)
			return nil, errors.ErrAuctionNotOpen.WithDetails(map[string]interface{}{
				"auction_id": auctionID,
				"status":     a.Status.String(),
			})
		}

		if !amount.IsPositive() || !amount.IsWholeMinorUnit() || amount.Currency() != a.StartingPrice.Currency() {
			s.recordRejected(ctx, errors.CodeInvalidAmount)
			return nil, errors.ErrInvalidAmount.WithDetails(map[string]interface{}{
				"amount": amount.String(),
			})
		}

		if !a.AcceptsBid(amount, s.minIncrement) {
			s.recordAttempt(ctx, auction.NewRejectedBid(auctionID, bidderID, amount, submittedAt))
			s.recordRejected(ctx, errors.CodeBidTooLow)
			return nil, errors.ErrBidTooLow.WithDetails(map[string]interface{}{
				"current_price": a.CurrentPrice().String(),
			})
		}

		if bidderID == a.SellerID {
			s.recordRejected(ctx, errors.CodeSelfBidding)
			return nil, errors.ErrSelfBidding
		}

		prevBidder := a.HighestBidderID
		newSequence := a.Sequence + 1

		applied, err := s.auctions.UpdateHighestBid(ctx, a.ID, amount, bidderID, a.Sequence)
		if err != nil {
			return nil, errors.ErrStorageUnavailable.WithCause(err)
		}
		if !applied {
			// Lost the swap: somebody else's bid or the closing sweep got in
			// first. Loop re-reads and re-evaluates against the new state.
			if s.metrics != nil {
				s.metrics.RecordBidConflict(ctx)
			}
			continue
		}

		accepted := auction.NewAcceptedBid(a.ID, bidderID, amount, newSequence, submittedAt)
		s.recordAttempt(ctx, accepted)

		if prevBidder != nil && *prevBidder != bidderID {
			s.dispatch(event.OutbidAlert{
				AuctionID:        a.ID,
				PreviousBidderID: *prevBidder,
				NewHighest:       amount,
			})
		}

		if s.metrics != nil {
			s.metrics.RecordBidAccepted(ctx, amount.ToFloat64(), attempt)
		}
		s.logger.Debug("bid accepted",
			zap.String("auction_id", a.ID.String()),
			zap.String("bidder_id", bidderID.String()),
			zap.String("amount", amount.String()),
			zap.Int64("sequence", newSequence))

		return &PlaceBidResult{
			Bid:        accepted,
			NewHighest: amount,
			Sequence:   newSequence,
		}, nil
	}

	s.recordRejected(ctx, errors.CodeContention)
	return nil, errors.ErrContention.WithDetails(map[string]interface{}{
		"auction_id": auctionID,
		"attempts":   s.maxRetries,
	})
}

// GetAuction retrieves the current auction state
func (s *service) GetAuction(ctx context.Context, auctionID uuid.UUID) (*auction.Auction, error) {
	a, err := s.auctions.GetByID(ctx, auctionID)
	if err != nil {
		if errors.IsType(err, errors.ErrorTypeNotFound) {
			return nil, err
		}
		return nil, errors.ErrStorageUnavailable.WithCause(err)
	}
	return a, nil
}

// ListBids returns the append-only bid history for an auction
func (s *service) ListBids(ctx context.Context, auctionID uuid.UUID) ([]*auction.Bid, error) {
	bids, err := s.bids.ListForAuction(ctx, auctionID)
	if err != nil {
		return nil, errors.ErrStorageUnavailable.WithCause(err)
	}
	return bids, nil
}

// recordAttempt appends a bid audit record. The audit trail is best-effort
// relative to the accepted state: a failed append never rolls back or fails
// the bid.
func (s *service) recordAttempt(ctx context.Context, b *auction.Bid) {
	if err := s.bids.Create(ctx, b); err != nil {
		s.logger.Error("failed to record bid attempt",
			zap.String("auction_id", b.AuctionID.String()),
			zap.Bool("accepted", b.Accepted),
			zap.Error(err))
	}
}

func (s *service) recordRejected(ctx context.Context, reason string) {
	if s.metrics != nil {
		s.metrics.RecordBidRejected(ctx, reason)
	}
}

// dispatch hands an event to the notifier without blocking the bid path.
func (s *service) dispatch(ev event.Event) {
	if s.notifier == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.notifier.Notify(ctx, ev); err != nil {
			s.logger.Warn("notification dispatch failed",
				zap.String("kind", string(ev.Kind())),
				zap.String("auction_id", ev.Auction().String()),
				zap.Error(err))
		}
	}()
}
