package events

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Handler consumes decoded event envelopes
type Handler func(env Envelope)

// Subscriber listens on the auction event channels and hands envelopes to a
// handler, typically the websocket hub.
type Subscriber struct {
	client  *redis.Client
	logger  *zap.Logger
	handler Handler
}

// NewSubscriber creates a subscriber with a fixed handler
func NewSubscriber(client *redis.Client, logger *zap.Logger, handler Handler) *Subscriber {
	return &Subscriber{
		client:  client,
		logger:  logger,
		handler: handler,
	}
}

// Run subscribes to all auction event channels and blocks until the context
// is cancelled. Malformed payloads are dropped with a warning.
func (s *Subscriber) Run(ctx context.Context) error {
	sub := s.client.PSubscribe(ctx, ChannelPrefix+"*")
	defer sub.Close()

	ch := sub.Channel()
	s.logger.Info("event subscriber started", zap.String("pattern", ChannelPrefix+"*"))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			s.dispatch(msg)
		}
	}
}

func (s *Subscriber) dispatch(msg *redis.Message) {
	var env Envelope
	if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
		s.logger.Warn("dropping malformed event payload",
			zap.String("channel", msg.Channel),
			zap.Error(err))
		return
	}
	s.handler(env)
}
