package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/auctionhouse/auction-marketplace-backend/internal/domain/event"
)

// CaptureNotifier records every event it receives for later assertions
type CaptureNotifier struct {
	mu     sync.Mutex
	events []event.Event
}

// NewCaptureNotifier creates an empty capture notifier
func NewCaptureNotifier() *CaptureNotifier {
	return &CaptureNotifier{}
}

// Notify records the event
func (n *CaptureNotifier) Notify(ctx context.Context, ev event.Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
	return nil
}

// Events returns a copy of everything captured so far
func (n *CaptureNotifier) Events() []event.Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]event.Event, len(n.events))
	copy(out, n.events)
	return out
}

// OfKind returns captured events of one kind
func (n *CaptureNotifier) OfKind(kind event.Kind) []event.Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []event.Event
	for _, ev := range n.events {
		if ev.Kind() == kind {
			out = append(out, ev)
		}
	}
	return out
}

// NopMetrics satisfies the metrics collector interfaces with no-ops
type NopMetrics struct{}

func (NopMetrics) RecordBidAccepted(ctx context.Context, amount float64, attempts int)      {}
func (NopMetrics) RecordBidRejected(ctx context.Context, reason string)                     {}
func (NopMetrics) RecordBidConflict(ctx context.Context)                                    {}
func (NopMetrics) RecordSweep(ctx context.Context, duration time.Duration, transitions int) {}
func (NopMetrics) RecordFinalized(ctx context.Context, outcome string)                      {}
func (NopMetrics) RecordPaymentWindowOpened(ctx context.Context)                            {}
func (NopMetrics) RecordPaymentWindowClosed(ctx context.Context, outcome string)            {}
