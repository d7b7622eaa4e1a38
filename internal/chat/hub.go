package chat

import (
	"encoding/json"
	"log"

	"github.com/chirpverse/chirp/backend/internal/messages"
	"github.com/chirpverse/chirp/backend/internal/metrics"
	"github.com/chirpverse/chirp/backend/internal/presence"
)

// Hub owns the presence registry and serializes connection lifecycle events.
// It implements messages.Notifier, which is how the send handler reaches the
// realtime channel without knowing about websockets.
type Hub struct {
	registry *presence.Registry

	register   chan *Client
	unregister chan *Client
}

func NewHub(registry *presence.Registry) *Hub {
	return &Hub{
		registry:   registry,
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			// Last connect wins: a reconnect displaces the old connection.
			if prev := h.registry.Register(client.UserID, client); prev != nil {
				prev.Close()
				log.Printf("[hub] user %d reconnected (conn %s), displaced previous connection", client.UserID, client.ConnID)
			}
			metrics.ConnectionsOnline.Set(float64(h.registry.Online()))
		case client := <-h.unregister:
			h.registry.Unregister(client.UserID, client)
			client.Close()
			metrics.ConnectionsOnline.Set(float64(h.registry.Online()))
		}
	}
}

// Push delivers msg to userID's live connection if one is registered. It
// never blocks and never reports failure upward: an offline recipient fetches
// the message later, a slow or broken client is dropped and logged.
func (h *Hub) Push(userID int64, msg messages.Message) {
	handle, ok := h.registry.Lookup(userID)
	if !ok {
		metrics.PushTotal.WithLabelValues("offline").Inc()
		return
	}

	payload, err := json.Marshal(Event{Type: "newMessage", Message: msg})
	if err != nil {
		log.Printf("[hub] failed to marshal event for message %d: %v", msg.ID, err)
		return
	}

	if !handle.Deliver(payload) {
		log.Printf("[hub] dropped push of message %d to slow client for user %d", msg.ID, userID)
		metrics.PushTotal.WithLabelValues("dropped").Inc()
		return
	}
	metrics.PushTotal.WithLabelValues("delivered").Inc()
}
