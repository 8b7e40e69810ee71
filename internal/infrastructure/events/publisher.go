// Package events moves auction notifications over Redis pub/sub. The
// publisher satisfies the services' Notifier interfaces; the subscriber feeds
// the websocket hub. Delivery is fire-and-forget: a lost message never
// affects auction state.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/auctionhouse/auction-marketplace-backend/internal/domain/event"
)

// ChannelPrefix namespaces per-auction event channels
const ChannelPrefix = "auction_events:"

// Channel returns the pub/sub channel for one auction
func Channel(auctionID string) string {
	return ChannelPrefix + auctionID
}

// Envelope is the wire form of an event: the kind plus the event's own JSON
type Envelope struct {
	Kind       event.Kind      `json:"kind"`
	AuctionID  string          `json:"auction_id"`
	Payload    json.RawMessage `json:"payload"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// Publisher fans events out over Redis pub/sub
type Publisher struct {
	client *redis.Client
	logger *zap.Logger
}

// NewPublisher creates an event publisher on an existing Redis client
func NewPublisher(client *redis.Client, logger *zap.Logger) *Publisher {
	return &Publisher{
		client: client,
		logger: logger,
	}
}

// Notify publishes one event to its auction's channel
func (p *Publisher) Notify(ctx context.Context, ev event.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	env := Envelope{
		Kind:       ev.Kind(),
		AuctionID:  ev.Auction().String(),
		Payload:    payload,
		OccurredAt: time.Now().UTC(),
	}
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to marshal envelope: %w", err)
	}

	channel := Channel(env.AuctionID)
	if err := p.client.Publish(ctx, channel, data).Err(); err != nil {
		p.logger.Error("event publish failed",
			zap.String("channel", channel),
			zap.String("kind", string(ev.Kind())),
			zap.Error(err))
		return fmt.Errorf("failed to publish event: %w", err)
	}

	p.logger.Debug("event published",
		zap.String("channel", channel),
		zap.String("kind", string(ev.Kind())))
	return nil
}
