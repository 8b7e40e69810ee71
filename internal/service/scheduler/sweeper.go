package scheduler

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/auctionhouse/auction-marketplace-backend/internal/domain/auction"
	"github.com/auctionhouse/auction-marketplace-backend/internal/domain/errors"
	"github.com/auctionhouse/auction-marketplace-backend/internal/domain/event"
)

// Config tunes the sweep loop
type Config struct {
	// Interval between sweep ticks
	Interval time.Duration
	// PaymentWindow is how long a winner has to pay after closing
	PaymentWindow time.Duration
	// BatchSize caps how many auctions one tick processes per query
	BatchSize int
}

// Transition records one lifecycle step performed by a sweep
type Transition struct {
	AuctionID uuid.UUID      `json:"auction_id"`
	From      auction.Status `json:"from"`
	To        auction.Status `json:"to"`
}

// Sweeper periodically scans auctions and drives time-dependent lifecycle
// transitions. Each auction's finalization commits independently; a failure
// on one auction never aborts the rest of the batch.
type Sweeper struct {
	auctions AuctionRepository
	payments PaymentWindower
	expirer  PaymentExpirer
	notifier Notifier
	metrics  MetricsCollector
	logger   *zap.Logger

	interval      time.Duration
	paymentWindow time.Duration
	batchSize     int
	clock         func() time.Time
}

// NewSweeper creates a new auction sweeper
func NewSweeper(
	auctions AuctionRepository,
	payments PaymentWindower,
	expirer PaymentExpirer,
	notifier Notifier,
	metrics MetricsCollector,
	logger *zap.Logger,
	cfg Config,
) *Sweeper {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if cfg.PaymentWindow <= 0 {
		cfg.PaymentWindow = 24 * time.Hour
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 500
	}
	return &Sweeper{
		auctions:      auctions,
		payments:      payments,
		expirer:       expirer,
		notifier:      notifier,
		metrics:       metrics,
		logger:        logger,
		interval:      cfg.Interval,
		paymentWindow: cfg.PaymentWindow,
		batchSize:     cfg.BatchSize,
		clock:         time.Now,
	}
}

// Run executes sweeps on the configured interval until the context is
// canceled. A tick that cannot reach storage is reported and retried on the
// next interval.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("auction sweeper started", zap.Duration("interval", s.interval))

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("auction sweeper stopped")
			return
		case <-ticker.C:
			if _, err := s.Sweep(ctx, s.clock()); err != nil {
				s.logger.Error("sweep tick failed", zap.Error(err))
			}
		}
	}
}

// Sweep performs one scan: activates scheduled auctions whose start time has
// passed, then finalizes active auctions whose end time has passed. Returns
// the transitions performed. Safe to invoke concurrently or repeatedly; the
// per-auction state-check-and-set makes double finalization impossible.
func (s *Sweeper) Sweep(ctx context.Context, now time.Time) ([]Transition, error) {
	started := s.clock()
	var transitions []Transition

	activated, err := s.activateDue(ctx, now)
	if err != nil {
		return transitions, err
	}
	transitions = append(transitions, activated...)

	finalized, err := s.finalizeExpired(ctx, now)
	transitions = append(transitions, finalized...)

	s.reopenStrandedWindows(ctx, now)

	if s.expirer != nil {
		if n, expErr := s.expirer.ExpireOverdue(ctx, now, s.batchSize); expErr != nil {
			s.logger.Error("expiring overdue payment windows failed", zap.Error(expErr))
		} else if n > 0 {
			s.logger.Info("payment windows expired", zap.Int("count", n))
		}
	}

	if s.metrics != nil {
		s.metrics.RecordSweep(ctx, s.clock().Sub(started), len(transitions))
	}
	return transitions, err
}

// activateDue moves scheduled auctions whose window has opened to active.
// No side effects beyond the state change; bids become acceptable henceforth.
func (s *Sweeper) activateDue(ctx context.Context, now time.Time) ([]Transition, error) {
	due, err := s.auctions.ListScheduledToStart(ctx, now, s.batchSize)
	if err != nil {
		return nil, errors.Wrap(err, "listing scheduled auctions")
	}

	var transitions []Transition
	for _, a := range due {
		select {
		case <-ctx.Done():
			return transitions, ctx.Err()
		default:
		}

		ok, err := s.auctions.MarkActive(ctx, a.ID)
		if err != nil {
			s.logger.Error("failed to activate auction",
				zap.String("auction_id", a.ID.String()),
				zap.Error(err))
			continue
		}
		if !ok {
			// Another sweep got here first
			continue
		}

		transitions = append(transitions, Transition{AuctionID: a.ID, From: auction.StatusScheduled, To: auction.StatusActive})
		s.logger.Info("auction activated",
			zap.String("auction_id", a.ID.String()),
			zap.Time("end_time", a.EndTime))
	}
	return transitions, nil
}

// finalizeExpired closes active auctions whose end time has passed, computing
// the outcome once from the final highest bid against the reserve.
func (s *Sweeper) finalizeExpired(ctx context.Context, now time.Time) ([]Transition, error) {
	expired, err := s.auctions.ListActiveExpired(ctx, now, s.batchSize)
	if err != nil {
		return nil, errors.Wrap(err, "listing expired auctions")
	}

	var transitions []Transition
	for _, a := range expired {
		// Cancellable between auctions, never mid-finalization
		select {
		case <-ctx.Done():
			return transitions, ctx.Err()
		default:
		}

		tr, err := s.finalizeOne(ctx, a, now)
		if err != nil {
			s.logger.Error("failed to finalize auction",
				zap.String("auction_id", a.ID.String()),
				zap.Error(err))
			continue
		}
		if tr != nil {
			transitions = append(transitions, *tr)
		}
	}
	return transitions, nil
}

func (s *Sweeper) finalizeOne(ctx context.Context, a *auction.Auction, now time.Time) (*Transition, error) {
	// Same read-version/conditional-write discipline as the bid path: the
	// outcome is computed from a snapshot and committed only if the sequence
	// is unchanged, so a bid landing at the wire is either counted here or
	// rejected by its own swap, never silently dropped.
	const finalizeRetries = 5

	var applied bool
	for attempt := 0; ; attempt++ {
		outcome := a.Outcome()

		ok, err := s.auctions.Finalize(ctx, a.ID, outcome, now, a.Sequence)
		if err != nil {
			return nil, err
		}
		if ok {
			applied = true
			break
		}

		if attempt+1 >= finalizeRetries {
			break
		}

		a, err = s.auctions.GetByID(ctx, a.ID)
		if err != nil {
			return nil, err
		}
		if a.Status != auction.StatusActive {
			// Already finalized by a concurrent sweep; benign.
			s.logger.Debug("auction already finalized",
				zap.String("auction_id", a.ID.String()))
			return nil, nil
		}
		// A late bid moved the sequence; recompute the outcome from the new
		// highest and try again.
	}

	if !applied {
		// Leave it for the next tick rather than spinning under contention.
		s.logger.Warn("finalization contended, deferred to next sweep",
			zap.String("auction_id", a.ID.String()))
		return nil, nil
	}
	outcome := a.Outcome()

	if s.metrics != nil {
		s.metrics.RecordFinalized(ctx, outcome.String())
	}

	switch outcome {
	case auction.StatusSold:
		winner := *a.HighestBidderID
		price := *a.HighestBid
		deadline := now.Add(s.paymentWindow)

		s.dispatch(event.WinnerAlert{AuctionID: a.ID, WinnerID: winner, FinalPrice: price})

		if s.payments != nil {
			if err := s.payments.OpenWindow(ctx, a.ID, winner, price, deadline); err != nil {
				// The sale itself is committed. The auction stays sold and
				// reopenStrandedWindows retries on the next sweep.
				s.logger.Error("failed to open payment window",
					zap.String("auction_id", a.ID.String()),
					zap.Error(err))
			}
		}

		s.logger.Info("auction sold",
			zap.String("auction_id", a.ID.String()),
			zap.String("winner_id", winner.String()),
			zap.String("final_price", price.String()))

	case auction.StatusUnsold:
		s.dispatch(event.NoSaleAlert{AuctionID: a.ID})
		s.logger.Info("auction unsold",
			zap.String("auction_id", a.ID.String()),
			zap.Bool("had_bids", a.HighestBid != nil))
	}

	return &Transition{AuctionID: a.ID, From: auction.StatusActive, To: outcome}, nil
}

// reopenStrandedWindows retries OpenWindow for auctions left in sold after a
// finalization whose window open failed. OpenWindow is a no-op once another
// sweep has moved the auction on, so retrying is safe.
func (s *Sweeper) reopenStrandedWindows(ctx context.Context, now time.Time) {
	if s.payments == nil {
		return
	}

	stranded, err := s.auctions.ListSoldAwaitingWindow(ctx, s.batchSize)
	if err != nil {
		s.logger.Error("listing sold auctions awaiting payment window failed", zap.Error(err))
		return
	}

	for _, a := range stranded {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if a.HighestBidderID == nil || a.HighestBid == nil {
			s.logger.Error("sold auction has no winning bid",
				zap.String("auction_id", a.ID.String()))
			continue
		}

		deadline := now.Add(s.paymentWindow)
		if err := s.payments.OpenWindow(ctx, a.ID, *a.HighestBidderID, *a.HighestBid, deadline); err != nil {
			s.logger.Error("retrying payment window open failed",
				zap.String("auction_id", a.ID.String()),
				zap.Error(err))
			continue
		}

		s.logger.Info("payment window opened on retry",
			zap.String("auction_id", a.ID.String()),
			zap.Time("deadline", deadline))
	}
}

// dispatch hands an event to the notifier without blocking the sweep.
func (s *Sweeper) dispatch(ev event.Event) {
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
