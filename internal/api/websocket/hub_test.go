package websocket

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/auctionhouse/auction-marketplace-backend/internal/infrastructure/events"
)

func testClient(hub *Hub, auctionID string) *Client {
	c := &Client{
		hub:       hub,
		auctionID: auctionID,
		send:      make(chan []byte, sendBuffer),
		logger:    zap.NewNop(),
	}
	hub.register(c)
	return c
}

func TestHub_BroadcastReachesWatchersOnly(t *testing.T) {
	hub := NewHub(zap.NewNop())
	watched := uuid.NewString()
	other := uuid.NewString()

	a := testClient(hub, watched)
	b := testClient(hub, watched)
	c := testClient(hub, other)

	hub.Broadcast(watched, []byte("going once"))

	assert.Equal(t, "going once", string(<-a.send))
	assert.Equal(t, "going once", string(<-b.send))
	assert.Empty(t, c.send)
}

func TestHub_HandleEventSerializesEnvelope(t *testing.T) {
	hub := NewHub(zap.NewNop())
	auctionID := uuid.NewString()
	c := testClient(hub, auctionID)

	hub.HandleEvent(events.Envelope{Kind: "winner", AuctionID: auctionID})

	var env events.Envelope
	require.NoError(t, json.Unmarshal(<-c.send, &env))
	assert.Equal(t, auctionID, env.AuctionID)
}

func TestHub_UnregisterClosesSend(t *testing.T) {
	hub := NewHub(zap.NewNop())
	auctionID := uuid.NewString()
	c := testClient(hub, auctionID)

	require.Equal(t, 1, hub.Watchers(auctionID))
	hub.unregister(c)
	assert.Equal(t, 0, hub.Watchers(auctionID))

	_, open := <-c.send
	assert.False(t, open)

	// Double unregister must not panic or double-close.
	hub.unregister(c)
}

func TestHub_SlowClientDropped(t *testing.T) {
	hub := NewHub(zap.NewNop())
	auctionID := uuid.NewString()
	c := testClient(hub, auctionID)

	// Fill the buffer without draining, then push one more.
	for i := 0; i < sendBuffer; i++ {
		hub.Broadcast(auctionID, []byte("x"))
	}
	hub.Broadcast(auctionID, []byte("overflow"))

	assert.Equal(t, 0, hub.Watchers(auctionID))
	_ = c
}
