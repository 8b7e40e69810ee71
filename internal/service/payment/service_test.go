package payment

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/auctionhouse/auction-marketplace-backend/internal/domain/auction"
	domainErrors "github.com/auctionhouse/auction-marketplace-backend/internal/domain/errors"
	"github.com/auctionhouse/auction-marketplace-backend/internal/testutil"
	"github.com/auctionhouse/auction-marketplace-backend/internal/testutil/fixtures"
)

func soldAuction() *auction.Auction {
	return fixtures.NewAuction().
		WithStatus(auction.StatusSold).
		WithHighestBid("150.00", uuid.New(), 2).
		Build()
}

func TestOpenWindow(t *testing.T) {
	store := testutil.NewMemoryStore()
	a := soldAuction()
	store.PutAuction(a)

	svc := NewService(store, testutil.NopMetrics{}, zap.NewNop())
	deadline := time.Now().Add(24 * time.Hour)

	err := svc.OpenWindow(context.Background(), a.ID, *a.HighestBidderID, *a.HighestBid, deadline)
	require.NoError(t, err)

	stored, err := store.GetByID(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, auction.StatusPaymentPending, stored.Status)
	require.NotNil(t, stored.PaymentDeadline)
	assert.WithinDuration(t, deadline, *stored.PaymentDeadline, time.Second)
}

func TestOpenWindow_DuplicateIsNoop(t *testing.T) {
	store := testutil.NewMemoryStore()
	a := soldAuction()
	store.PutAuction(a)

	svc := NewService(store, testutil.NopMetrics{}, zap.NewNop())
	deadline := time.Now().Add(24 * time.Hour)

	require.NoError(t, svc.OpenWindow(context.Background(), a.ID, *a.HighestBidderID, *a.HighestBid, deadline))
	// A second sweep of the same sold auction must not error or move the deadline.
	require.NoError(t, svc.OpenWindow(context.Background(), a.ID, *a.HighestBidderID, *a.HighestBid, deadline.Add(time.Hour)))

	stored, err := store.GetByID(context.Background(), a.ID)
	require.NoError(t, err)
	assert.WithinDuration(t, deadline, *stored.PaymentDeadline, time.Second)
}

func TestHandleCompleted(t *testing.T) {
	store := testutil.NewMemoryStore()
	a := fixtures.NewAuction().
		WithStatus(auction.StatusPaymentPending).
		WithHighestBid("150.00", uuid.New(), 2).
		WithPaymentDeadline(time.Now().Add(12 * time.Hour)).
		Build()
	store.PutAuction(a)

	svc := NewService(store, testutil.NopMetrics{}, zap.NewNop())

	require.NoError(t, svc.HandleCompleted(context.Background(), a.ID))

	stored, err := store.GetByID(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, auction.StatusCompleted, stored.Status)
}

func TestHandleCompleted_AfterExpiryReportsAlreadyFinalized(t *testing.T) {
	store := testutil.NewMemoryStore()
	a := fixtures.NewAuction().
		WithStatus(auction.StatusPaymentExpired).
		WithHighestBid("150.00", uuid.New(), 2).
		Build()
	store.PutAuction(a)

	svc := NewService(store, testutil.NopMetrics{}, zap.NewNop())

	err := svc.HandleCompleted(context.Background(), a.ID)
	require.Error(t, err)
	assert.True(t, domainErrors.IsCode(err, domainErrors.CodeAlreadyFinalized))
}

func TestExpireOverdue(t *testing.T) {
	store := testutil.NewMemoryStore()
	overdue := fixtures.NewAuction().
		WithStatus(auction.StatusPaymentPending).
		WithHighestBid("150.00", uuid.New(), 1).
		WithPaymentDeadline(time.Now().Add(-time.Hour)).
		Build()
	current := fixtures.NewAuction().
		WithStatus(auction.StatusPaymentPending).
		WithHighestBid("150.00", uuid.New(), 1).
		WithPaymentDeadline(time.Now().Add(time.Hour)).
		Build()
	store.PutAuction(overdue)
	store.PutAuction(current)

	svc := NewService(store, testutil.NopMetrics{}, zap.NewNop())

	n, err := svc.ExpireOverdue(context.Background(), time.Now(), 100)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	storedOverdue, err := store.GetByID(context.Background(), overdue.ID)
	require.NoError(t, err)
	assert.Equal(t, auction.StatusPaymentExpired, storedOverdue.Status)

	storedCurrent, err := store.GetByID(context.Background(), current.ID)
	require.NoError(t, err)
	assert.Equal(t, auction.StatusPaymentPending, storedCurrent.Status)
}

// captureWindowMetrics counts window openings and closings
type captureWindowMetrics struct {
	opened      int
	closed      int
	lastOutcome string
}

func (m *captureWindowMetrics) RecordPaymentWindowOpened(context.Context) {
	m.opened++
}

func (m *captureWindowMetrics) RecordPaymentWindowClosed(_ context.Context, outcome string) {
	m.closed++
	m.lastOutcome = outcome
}

func TestPaymentWindowMetrics(t *testing.T) {
	store := testutil.NewMemoryStore()
	a := soldAuction()
	store.PutAuction(a)

	metrics := &captureWindowMetrics{}
	svc := NewService(store, metrics, zap.NewNop())
	deadline := time.Now().Add(24 * time.Hour)

	require.NoError(t, svc.OpenWindow(context.Background(), a.ID, *a.HighestBidderID, *a.HighestBid, deadline))
	assert.Equal(t, 1, metrics.opened)

	// A duplicate open is a no-op and must not inflate the gauge.
	require.NoError(t, svc.OpenWindow(context.Background(), a.ID, *a.HighestBidderID, *a.HighestBid, deadline))
	assert.Equal(t, 1, metrics.opened)

	require.NoError(t, svc.HandleCompleted(context.Background(), a.ID))
	assert.Equal(t, 1, metrics.closed)
	assert.Equal(t, auction.StatusCompleted.String(), metrics.lastOutcome)
}
