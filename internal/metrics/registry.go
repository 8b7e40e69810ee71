// Package metrics holds the OpenTelemetry instruments for the auction core
// and the adapters the services record through.
package metrics

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Registry holds all domain-specific metrics for the application
type Registry struct {
	meter metric.Meter

	// Bid path metrics
	BidAcceptedCounter metric.Int64Counter
	BidRejectedCounter metric.Int64Counter
	BidConflictCounter metric.Int64Counter
	BidAmount          metric.Float64Histogram
	BidAttempts        metric.Int64Histogram

	// Scheduler metrics
	SweepDuration    metric.Float64Histogram
	SweepTransitions metric.Int64Counter
	FinalizedCounter metric.Int64Counter

	// Payment window metrics
	PaymentWindowsOpen   metric.Int64UpDownCounter
	PaymentClosedCounter metric.Int64Counter

	// API metrics
	APIRequestDuration metric.Float64Histogram
	APIRequestCounter  metric.Int64Counter
}

// NewRegistry creates a new metrics registry with all domain metrics
func NewRegistry(meterName string) (*Registry, error) {
	r := &Registry{meter: otel.Meter(meterName)}

	if err := r.initBidMetrics(); err != nil {
		return nil, err
	}
	if err := r.initSchedulerMetrics(); err != nil {
		return nil, err
	}
	if err := r.initPaymentMetrics(); err != nil {
		return nil, err
	}
	if err := r.initAPIMetrics(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Registry) initBidMetrics() error {
	var err error

	r.BidAcceptedCounter, err = r.meter.Int64Counter(
		"auction.bids.accepted",
		metric.WithDescription("Number of accepted bids"),
	)
	if err != nil {
		return err
	}

	r.BidRejectedCounter, err = r.meter.Int64Counter(
		"auction.bids.rejected",
		metric.WithDescription("Number of rejected bids by reason"),
	)
	if err != nil {
		return err
	}

	r.BidConflictCounter, err = r.meter.Int64Counter(
		"auction.bids.conflicts",
		metric.WithDescription("Number of lost compare-and-swap attempts on the bid path"),
	)
	if err != nil {
		return err
	}

	r.BidAmount, err = r.meter.Float64Histogram(
		"auction.bids.amount",
		metric.WithDescription("Accepted bid amounts"),
	)
	if err != nil {
		return err
	}

	r.BidAttempts, err = r.meter.Int64Histogram(
		"auction.bids.attempts",
		metric.WithDescription("Attempts needed before a bid was accepted"),
	)
	return err
}

func (r *Registry) initSchedulerMetrics() error {
	var err error

	r.SweepDuration, err = r.meter.Float64Histogram(
		"auction.sweep.duration",
		metric.WithDescription("Lifecycle sweep duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return err
	}

	r.SweepTransitions, err = r.meter.Int64Counter(
		"auction.sweep.transitions",
		metric.WithDescription("State transitions applied by sweeps"),
	)
	if err != nil {
		return err
	}

	r.FinalizedCounter, err = r.meter.Int64Counter(
		"auction.finalized",
		metric.WithDescription("Auctions finalized by outcome"),
	)
	return err
}

func (r *Registry) initPaymentMetrics() error {
	var err error

	r.PaymentWindowsOpen, err = r.meter.Int64UpDownCounter(
		"auction.payment_windows.open",
		metric.WithDescription("Payment windows currently awaiting payment"),
	)
	if err != nil {
		return err
	}

	r.PaymentClosedCounter, err = r.meter.Int64Counter(
		"auction.payment_windows.closed",
		metric.WithDescription("Payment windows closed by outcome"),
	)
	return err
}

func (r *Registry) initAPIMetrics() error {
	var err error

	r.APIRequestDuration, err = r.meter.Float64Histogram(
		"api.request.duration",
		metric.WithDescription("API request duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return err
	}

	r.APIRequestCounter, err = r.meter.Int64Counter(
		"api.request.count",
		metric.WithDescription("Number of API requests"),
	)
	return err
}

// RecordBidAccepted records an accepted bid and the attempts it took
func (r *Registry) RecordBidAccepted(ctx context.Context, amount float64, attempts int) {
	r.BidAcceptedCounter.Add(ctx, 1)
	r.BidAmount.Record(ctx, amount)
	r.BidAttempts.Record(ctx, int64(attempts))
}

// RecordBidRejected records a rejected bid with its rejection reason
func (r *Registry) RecordBidRejected(ctx context.Context, reason string) {
	r.BidRejectedCounter.Add(ctx, 1,
		metric.WithAttributes(attribute.String("reason", reason)))
}

// RecordBidConflict records one lost compare-and-swap on the bid path
func (r *Registry) RecordBidConflict(ctx context.Context) {
	r.BidConflictCounter.Add(ctx, 1)
}

// RecordSweep records one lifecycle sweep
func (r *Registry) RecordSweep(ctx context.Context, duration time.Duration, transitions int) {
	r.SweepDuration.Record(ctx, float64(duration.Milliseconds()))
	r.SweepTransitions.Add(ctx, int64(transitions))
}

// RecordFinalized records one finalized auction by outcome
func (r *Registry) RecordFinalized(ctx context.Context, outcome string) {
	r.FinalizedCounter.Add(ctx, 1,
		metric.WithAttributes(attribute.String("outcome", outcome)))
}

// RecordPaymentWindowOpened records one newly opened payment window
func (r *Registry) RecordPaymentWindowOpened(ctx context.Context) {
	r.PaymentWindowsOpen.Add(ctx, 1)
}

// RecordPaymentWindowClosed records one payment window closing by outcome
func (r *Registry) RecordPaymentWindowClosed(ctx context.Context, outcome string) {
	r.PaymentWindowsOpen.Add(ctx, -1)
	r.PaymentClosedCounter.Add(ctx, 1,
		metric.WithAttributes(attribute.String("outcome", outcome)))
}

// RecordAPIRequest records one API request
func (r *Registry) RecordAPIRequest(ctx context.Context, method, path string, statusCode int, duration time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("path", path),
		attribute.Int("status_code", statusCode),
	)
	r.APIRequestCounter.Add(ctx, 1, attrs)
	r.APIRequestDuration.Record(ctx, float64(duration.Milliseconds()), attrs)
}
