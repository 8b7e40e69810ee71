// Package payment drives the post-sale payment window: sold ->
// payment_pending when the window opens, then payment_pending ->
// completed|payment_expired from the external payment collaborator's
// callbacks or the overdue sweep.
package payment

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/auctionhouse/auction-marketplace-backend/internal/domain/auction"
	"github.com/auctionhouse/auction-marketplace-backend/internal/domain/errors"
	"github.com/auctionhouse/auction-marketplace-backend/internal/domain/values"
)

// AuctionRepository is the payment service's view of auction storage. All
// mutations are state-check-and-set, so duplicate callbacks are no-ops.
type AuctionRepository interface {
	// MarkPaymentPending moves sold -> payment_pending and stamps the
	// deadline; false if the auction is not sold
	MarkPaymentPending(ctx context.Context, id uuid.UUID, deadline time.Time) (bool, error)
	// MarkPaymentOutcome moves payment_pending -> completed|payment_expired;
	// false if the window is not open
	MarkPaymentOutcome(ctx context.Context, id uuid.UUID, outcome auction.Status) (bool, error)
	// ListPaymentOverdue returns payment_pending auctions whose deadline has
	// passed
	ListPaymentOverdue(ctx context.Context, now time.Time, limit int) ([]*auction.Auction, error)
}

// MetricsCollector tracks how many payment windows are awaiting payment
type MetricsCollector interface {
	RecordPaymentWindowOpened(ctx context.Context)
	RecordPaymentWindowClosed(ctx context.Context, outcome string)
}

// Service manages payment windows for sold auctions
type Service struct {
	auctions AuctionRepository
	metrics  MetricsCollector
	logger   *zap.Logger
}

// NewService creates a new payment window service
func NewService(auctions AuctionRepository, metrics MetricsCollector, logger *zap.Logger) *Service {
	return &Service{
		auctions: auctions,
		metrics:  metrics,
		logger:   logger,
	}
}

// OpenWindow starts the payment window for a sold auction. Satisfies the
// scheduler's PaymentWindower.
func (s *Service) OpenWindow(ctx context.Context, auctionID, winnerID uuid.UUID, amount values.Money, deadline time.Time) error {
	ok, err := s.auctions.MarkPaymentPending(ctx, auctionID, deadline)
	if err != nil {
		return errors.Wrap(err, "opening payment window")
	}
	if !ok {
		// Window already opened by a previous sweep of the same auction.
		return nil
	}

	if s.metrics != nil {
		s.metrics.RecordPaymentWindowOpened(ctx)
	}
	s.logger.Info("payment window opened",
		zap.String("auction_id", auctionID.String()),
		zap.String("winner_id", winnerID.String()),
		zap.String("amount", amount.String()),
		zap.Time("deadline", deadline))
	return nil
}

// HandleCompleted records a payment reported complete by the external
// collaborator. A callback racing past an expiry that already happened is
// benign and reported as AlreadyFinalized.
func (s *Service) HandleCompleted(ctx context.Context, auctionID uuid.UUID) error {
	return s.close(ctx, auctionID, auction.StatusCompleted)
}

// HandleExpired records a payment window reported expired by the external
// collaborator.
func (s *Service) HandleExpired(ctx context.Context, auctionID uuid.UUID) error {
	return s.close(ctx, auctionID, auction.StatusPaymentExpired)
}

func (s *Service) close(ctx context.Context, auctionID uuid.UUID, outcome auction.Status) error {
	ok, err := s.auctions.MarkPaymentOutcome(ctx, auctionID, outcome)
	if err != nil {
		return errors.ErrStorageUnavailable.WithCause(err)
	}
	if !ok {
		return errors.ErrAlreadyFinalized
	}

	if s.metrics != nil {
		s.metrics.RecordPaymentWindowClosed(ctx, outcome.String())
	}
	s.logger.Info("payment window closed",
		zap.String("auction_id", auctionID.String()),
		zap.String("outcome", outcome.String()))
	return nil
}

// ExpireOverdue expires payment windows whose deadline has passed. Called
// from the sweep loop as a safety net when the collaborator never reports.
func (s *Service) ExpireOverdue(ctx context.Context, now time.Time, limit int) (int, error) {
	overdue, err := s.auctions.ListPaymentOverdue(ctx, now, limit)
	if err != nil {
		return 0, errors.Wrap(err, "listing overdue payment windows")
	}

	expired := 0
	for _, a := range overdue {
		ok, err := s.auctions.MarkPaymentOutcome(ctx, a.ID, auction.StatusPaymentExpired)
		if err != nil {
			s.logger.Error("failed to expire payment window",
				zap.String("auction_id", a.ID.String()),
				zap.Error(err))
			continue
		}
		if ok {
			expired++
			if s.metrics != nil {
				s.metrics.RecordPaymentWindowClosed(ctx, auction.StatusPaymentExpired.String())
			}
			s.logger.Info("payment window expired",
				zap.String("auction_id", a.ID.String()))
		}
	}
	return expired, nil
}
