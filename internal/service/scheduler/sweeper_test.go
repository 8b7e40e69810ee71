package scheduler

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/auctionhouse/auction-marketplace-backend/internal/domain/auction"
	"github.com/auctionhouse/auction-marketplace-backend/internal/domain/event"
	"github.com/auctionhouse/auction-marketplace-backend/internal/domain/values"
	"github.com/auctionhouse/auction-marketplace-backend/internal/service/payment"
	"github.com/auctionhouse/auction-marketplace-backend/internal/testutil"
	"github.com/auctionhouse/auction-marketplace-backend/internal/testutil/fixtures"
)

func newTestSweeper(store *testutil.MemoryStore, notifier *testutil.CaptureNotifier) *Sweeper {
	payments := payment.NewService(store, testutil.NopMetrics{}, zap.NewNop())
	return NewSweeper(store, payments, payments, notifier, testutil.NopMetrics{}, zap.NewNop(), Config{
		Interval:      time.Minute,
		PaymentWindow: 24 * time.Hour,
		BatchSize:     500,
	})
}

func expiredAuction() *fixtures.AuctionBuilder {
	return fixtures.NewAuction().
		WithWindow(time.Now().Add(-2*time.Hour), time.Now().Add(-time.Hour))
}

func TestSweep_ActivatesDueAuctions(t *testing.T) {
	store := testutil.NewMemoryStore()
	a := fixtures.NewAuction().
		WithStatus(auction.StatusScheduled).
		WithWindow(time.Now().Add(-time.Minute), time.Now().Add(time.Hour)).
		Build()
	store.PutAuction(a)

	sweeper := newTestSweeper(store, testutil.NewCaptureNotifier())

	transitions, err := sweeper.Sweep(context.Background(), time.Now())
	require.NoError(t, err)
	require.Len(t, transitions, 1)
	assert.Equal(t, auction.StatusScheduled, transitions[0].From)
	assert.Equal(t, auction.StatusActive, transitions[0].To)

	stored, err := store.GetByID(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, auction.StatusActive, stored.Status)
}

func TestSweep_LeavesFutureAuctionsScheduled(t *testing.T) {
	store := testutil.NewMemoryStore()
	a := fixtures.NewAuction().
		WithStatus(auction.StatusScheduled).
		WithWindow(time.Now().Add(time.Hour), time.Now().Add(2*time.Hour)).
		Build()
	store.PutAuction(a)

	sweeper := newTestSweeper(store, testutil.NewCaptureNotifier())

	transitions, err := sweeper.Sweep(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Empty(t, transitions)

	stored, err := store.GetByID(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, auction.StatusScheduled, stored.Status)
}

func TestSweep_SoldWhenReserveMet(t *testing.T) {
	store := testutil.NewMemoryStore()
	winner := uuid.New()
	a := expiredAuction().
		WithReserve("120.00").
		WithHighestBid("150.00", winner, 4).
		Build()
	store.PutAuction(a)

	notifier := testutil.NewCaptureNotifier()
	sweeper := newTestSweeper(store, notifier)

	now := time.Now()
	transitions, err := sweeper.Sweep(context.Background(), now)
	require.NoError(t, err)
	require.Len(t, transitions, 1)
	assert.Equal(t, auction.StatusSold, transitions[0].To)

	// The payment window opens in the same sweep.
	stored, err := store.GetByID(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, auction.StatusPaymentPending, stored.Status)
	require.NotNil(t, stored.PaymentDeadline)
	assert.WithinDuration(t, now.Add(24*time.Hour), *stored.PaymentDeadline, time.Second)

	require.Eventually(t, func() bool {
		return len(notifier.OfKind(event.KindWinner)) == 1
	}, time.Second, 10*time.Millisecond)

	alert := notifier.OfKind(event.KindWinner)[0].(event.WinnerAlert)
	assert.Equal(t, winner, alert.WinnerID)
	assert.True(t, alert.FinalPrice.Equal(fixtures.Money("150.00")))
}

func TestSweep_UnsoldWhenReserveNotMet(t *testing.T) {
	store := testutil.NewMemoryStore()
	a := expiredAuction().
		WithReserve("120.00").
		WithHighestBid("110.00", uuid.New(), 2).
		Build()
	store.PutAuction(a)

	notifier := testutil.NewCaptureNotifier()
	sweeper := newTestSweeper(store, notifier)

	transitions, err := sweeper.Sweep(context.Background(), time.Now())
	require.NoError(t, err)
	require.Len(t, transitions, 1)
	assert.Equal(t, auction.StatusUnsold, transitions[0].To)

	require.Eventually(t, func() bool {
		return len(notifier.OfKind(event.KindNoSale)) == 1
	}, time.Second, 10*time.Millisecond)
	assert.Empty(t, notifier.OfKind(event.KindWinner))
}

func TestSweep_ReserveEqualitySells(t *testing.T) {
	store := testutil.NewMemoryStore()
	a := expiredAuction().
		WithReserve("120.00").
		WithHighestBid("120.00", uuid.New(), 1).
		Build()
	store.PutAuction(a)

	sweeper := newTestSweeper(store, testutil.NewCaptureNotifier())

	transitions, err := sweeper.Sweep(context.Background(), time.Now())
	require.NoError(t, err)
	require.Len(t, transitions, 1)
	assert.Equal(t, auction.StatusSold, transitions[0].To)
}

func TestSweep_NoBidsUnsold(t *testing.T) {
	store := testutil.NewMemoryStore()
	a := expiredAuction().Build()
	store.PutAuction(a)

	sweeper := newTestSweeper(store, testutil.NewCaptureNotifier())

	transitions, err := sweeper.Sweep(context.Background(), time.Now())
	require.NoError(t, err)
	require.Len(t, transitions, 1)
	assert.Equal(t, auction.StatusUnsold, transitions[0].To)

	stored, err := store.GetByID(context.Background(), a.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.FinalizedAt)
}

func TestSweep_Idempotent(t *testing.T) {
	store := testutil.NewMemoryStore()
	winner := uuid.New()
	a := expiredAuction().WithHighestBid("150.00", winner, 3).Build()
	store.PutAuction(a)

	notifier := testutil.NewCaptureNotifier()
	sweeper := newTestSweeper(store, notifier)

	first, err := sweeper.Sweep(context.Background(), time.Now())
	require.NoError(t, err)
	require.Len(t, first, 1)

	second, err := sweeper.Sweep(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Empty(t, second)

	// Exactly one winner notification across both sweeps.
	require.Eventually(t, func() bool {
		return len(notifier.OfKind(event.KindWinner)) > 0
	}, time.Second, 10*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Len(t, notifier.OfKind(event.KindWinner), 1)
}

// bidInterceptor lands a bid between the sweep's read and its conditional
// write, modeling a bid in flight while the auction closes.
type bidInterceptor struct {
	*testutil.MemoryStore
	bidderID uuid.UUID
	amount   values.Money
	fired    bool
}

func (i *bidInterceptor) Finalize(ctx context.Context, id uuid.UUID, outcome auction.Status, finalizedAt time.Time, expectedSeq int64) (bool, error) {
	if !i.fired {
		i.fired = true
		if _, err := i.MemoryStore.UpdateHighestBid(ctx, id, i.amount, i.bidderID, expectedSeq); err != nil {
			return false, err
		}
	}
	return i.MemoryStore.Finalize(ctx, id, outcome, finalizedAt, expectedSeq)
}

func TestSweep_MidFlightBidCountedInOutcome(t *testing.T) {
	store := testutil.NewMemoryStore()
	// Highest below reserve at read time; the interceptor's bid clears it.
	a := expiredAuction().
		WithReserve("120.00").
		WithHighestBid("110.00", uuid.New(), 2).
		Build()
	store.PutAuction(a)

	lateBidder := uuid.New()
	repo := &bidInterceptor{
		MemoryStore: store,
		bidderID:    lateBidder,
		amount:      fixtures.Money("125.00"),
	}

	payments := payment.NewService(store, testutil.NopMetrics{}, zap.NewNop())
	notifier := testutil.NewCaptureNotifier()
	sweeper := NewSweeper(repo, payments, payments, notifier, testutil.NopMetrics{}, zap.NewNop(), Config{})

	transitions, err := sweeper.Sweep(context.Background(), time.Now())
	require.NoError(t, err)
	require.Len(t, transitions, 1)

	// The late bid must be part of the outcome, not silently dropped.
	assert.Equal(t, auction.StatusSold, transitions[0].To)

	require.Eventually(t, func() bool {
		return len(notifier.OfKind(event.KindWinner)) == 1
	}, time.Second, 10*time.Millisecond)
	alert := notifier.OfKind(event.KindWinner)[0].(event.WinnerAlert)
	assert.Equal(t, lateBidder, alert.WinnerID)
	assert.True(t, alert.FinalPrice.Equal(fixtures.Money("125.00")))
}

// flakyWindower fails a number of OpenWindow calls before recovering
type flakyWindower struct {
	inner    *payment.Service
	failures int
}

func (w *flakyWindower) OpenWindow(ctx context.Context, auctionID, winnerID uuid.UUID, amount values.Money, deadline time.Time) error {
	if w.failures > 0 {
		w.failures--
		return fmt.Errorf("payment backend unavailable")
	}
	return w.inner.OpenWindow(ctx, auctionID, winnerID, amount, deadline)
}

func TestSweep_RetriesFailedWindowOpenOnNextSweep(t *testing.T) {
	store := testutil.NewMemoryStore()
	winner := uuid.New()
	a := expiredAuction().WithHighestBid("150.00", winner, 3).Build()
	store.PutAuction(a)

	payments := payment.NewService(store, testutil.NopMetrics{}, zap.NewNop())
	// Fails the open at finalization and the retry within the same sweep.
	windower := &flakyWindower{inner: payments, failures: 2}
	sweeper := NewSweeper(store, windower, payments, testutil.NewCaptureNotifier(), testutil.NopMetrics{}, zap.NewNop(), Config{
		PaymentWindow: 24 * time.Hour,
	})

	_, err := sweeper.Sweep(context.Background(), time.Now())
	require.NoError(t, err)

	// The sale committed but the window is not open yet.
	stored, err := store.GetByID(context.Background(), a.ID)
	require.NoError(t, err)
	require.Equal(t, auction.StatusSold, stored.Status)
	require.Nil(t, stored.PaymentDeadline)

	now := time.Now()
	_, err = sweeper.Sweep(context.Background(), now)
	require.NoError(t, err)

	stored, err = store.GetByID(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, auction.StatusPaymentPending, stored.Status)
	require.NotNil(t, stored.PaymentDeadline)
	assert.WithinDuration(t, now.Add(24*time.Hour), *stored.PaymentDeadline, time.Second)
}

// failingRepo errors on one auction's finalization
type failingRepo struct {
	*testutil.MemoryStore
	failID uuid.UUID
}

func (r *failingRepo) Finalize(ctx context.Context, id uuid.UUID, outcome auction.Status, finalizedAt time.Time, expectedSeq int64) (bool, error) {
	if id == r.failID {
		return false, fmt.Errorf("storage write failed")
	}
	return r.MemoryStore.Finalize(ctx, id, outcome, finalizedAt, expectedSeq)
}

func TestSweep_FailureOnOneAuctionDoesNotAbortBatch(t *testing.T) {
	store := testutil.NewMemoryStore()
	broken := expiredAuction().Build()
	healthy := expiredAuction().Build()
	store.PutAuction(broken)
	store.PutAuction(healthy)

	repo := &failingRepo{MemoryStore: store, failID: broken.ID}
	payments := payment.NewService(store, testutil.NopMetrics{}, zap.NewNop())
	sweeper := NewSweeper(repo, payments, payments, testutil.NewCaptureNotifier(), testutil.NopMetrics{}, zap.NewNop(), Config{})

	transitions, err := sweeper.Sweep(context.Background(), time.Now())
	require.NoError(t, err)
	require.Len(t, transitions, 1)
	assert.Equal(t, healthy.ID, transitions[0].AuctionID)

	stored, err := store.GetByID(context.Background(), broken.ID)
	require.NoError(t, err)
	assert.Equal(t, auction.StatusActive, stored.Status)
}

func TestSweep_ExpiresOverduePaymentWindows(t *testing.T) {
	store := testutil.NewMemoryStore()
	a := fixtures.NewAuction().
		WithStatus(auction.StatusPaymentPending).
		WithHighestBid("150.00", uuid.New(), 1).
		WithPaymentDeadline(time.Now().Add(-time.Hour)).
		Build()
	store.PutAuction(a)

	sweeper := newTestSweeper(store, testutil.NewCaptureNotifier())

	_, err := sweeper.Sweep(context.Background(), time.Now())
	require.NoError(t, err)

	stored, err := store.GetByID(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, auction.StatusPaymentExpired, stored.Status)
}
