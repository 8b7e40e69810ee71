package events

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/auctionhouse/auction-marketplace-backend/internal/domain/event"
	"github.com/auctionhouse/auction-marketplace-backend/internal/testutil/fixtures"
)

func newTestClient(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client
}

func TestPublisher_WritesEnvelope(t *testing.T) {
	client := newTestClient(t)
	publisher := NewPublisher(client, zap.NewNop())

	auctionID := uuid.New()
	sub := client.Subscribe(context.Background(), Channel(auctionID.String()))
	t.Cleanup(func() { sub.Close() })
	// Wait for the subscription handshake before publishing.
	_, err := sub.Receive(context.Background())
	require.NoError(t, err)

	ev := event.WinnerAlert{
		AuctionID:  auctionID,
		WinnerID:   uuid.New(),
		FinalPrice: fixtures.Money("150.00"),
	}
	require.NoError(t, publisher.Notify(context.Background(), ev))

	select {
	case msg := <-sub.Channel():
		var env Envelope
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &env))
		assert.Equal(t, event.KindWinner, env.Kind)
		assert.Equal(t, auctionID.String(), env.AuctionID)

		var decoded event.WinnerAlert
		require.NoError(t, json.Unmarshal(env.Payload, &decoded))
		assert.Equal(t, ev.WinnerID, decoded.WinnerID)
		assert.True(t, decoded.FinalPrice.Equal(ev.FinalPrice))
	case <-time.After(time.Second):
		t.Fatal("no message received")
	}
}

func TestSubscriber_DispatchesToHandler(t *testing.T) {
	client := newTestClient(t)
	publisher := NewPublisher(client, zap.NewNop())

	var (
		mu       sync.Mutex
		received []Envelope
	)
	subscriber := NewSubscriber(client, zap.NewNop(), func(env Envelope) {
		mu.Lock()
		defer mu.Unlock()
		received = append(received, env)
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go subscriber.Run(ctx)

	// Give the pattern subscription time to establish.
	time.Sleep(100 * time.Millisecond)

	ev := event.NoSaleAlert{AuctionID: uuid.New()}
	require.NoError(t, publisher.Notify(context.Background(), ev))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(received) == 1
	}, 2*time.Second, 20*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, event.KindNoSale, received[0].Kind)
	assert.Equal(t, ev.AuctionID.String(), received[0].AuctionID)
}

func TestSubscriber_DropsMalformedPayload(t *testing.T) {
	client := newTestClient(t)

	var (
		mu       sync.Mutex
		received []Envelope
	)
	subscriber := NewSubscriber(client, zap.NewNop(), func(env Envelope) {
		mu.Lock()
		defer mu.Unlock()
		received = append(received, env)
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go subscriber.Run(ctx)
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, client.Publish(context.Background(), Channel(uuid.New().String()), "not json").Err())

	good := NewPublisher(client, zap.NewNop())
	require.NoError(t, good.Notify(context.Background(), event.NoSaleAlert{AuctionID: uuid.New()}))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(received) == 1
	}, 2*time.Second, 20*time.Millisecond)
}
