// Package websocket streams auction events to connected clients. Each client
// watches one auction; the hub fans envelopes from the Redis subscriber out
// to that auction's watchers.
package websocket

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"github.com/auctionhouse/auction-marketplace-backend/internal/infrastructure/events"
)

// Hub routes auction events to per-auction client sets
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*Client]struct{}
	logger  *zap.Logger
}

// NewHub creates an empty hub
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients: make(map[string]map[*Client]struct{}),
		logger:  logger,
	}
}

// HandleEvent satisfies events.Handler: it serializes the envelope once and
// pushes it to every client watching the auction.
func (h *Hub) HandleEvent(env events.Envelope) {
	data, err := json.Marshal(env)
	if err != nil {
		h.logger.Warn("failed to marshal event for broadcast", zap.Error(err))
		return
	}
	h.Broadcast(env.AuctionID, data)
}

// Broadcast sends a raw message to every client watching one auction. Clients
// whose send buffer is full are dropped rather than allowed to stall the hub.
func (h *Hub) Broadcast(auctionID string, message []byte) {
	h.mu.RLock()
	watchers := make([]*Client, 0, len(h.clients[auctionID]))
	for c := range h.clients[auctionID] {
		watchers = append(watchers, c)
	}
	h.mu.RUnlock()

	for _, c := range watchers {
		select {
		case c.send <- message:
		default:
			h.logger.Debug("dropping slow websocket client",
				zap.String("auction_id", auctionID))
			h.unregister(c)
		}
	}
}

// Watchers returns the number of clients watching one auction
func (h *Hub) Watchers(auctionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[auctionID])
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.clients[c.auctionID]
	if !ok {
		set = make(map[*Client]struct{})
		h.clients[c.auctionID] = set
	}
	set[c] = struct{}{}
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.clients[c.auctionID]
	if !ok {
		return
	}
	if _, present := set[c]; !present {
		return
	}
	delete(set, c)
	close(c.send)
	if len(set) == 0 {
		delete(h.clients, c.auctionID)
	}
}
