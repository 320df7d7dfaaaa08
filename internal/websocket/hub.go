package websocket

import (
	"context"
	"log/slog"
	"sync"

	"github.com/vodpipeline/mediaconvert-trigger/internal/types"
)

// Hub fans outcome events out to connected feed subscribers
type Hub struct {
	// Registered clients mapped by subscriber ID
	clients map[string]*Client

	register   chan *Client
	unregister chan *Client

	// Mutex to protect clients map
	mu sync.RWMutex

	broadcast chan *BroadcastMessage

	// Closed when Run returns
	done chan struct{}
}

// BroadcastMessage carries an event and the bucket it concerns.
// An empty bucket reaches every subscriber.
type BroadcastMessage struct {
	Bucket string       `json:"bucket"`
	Event  *types.Event `json:"event"`
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *BroadcastMessage, 256),
		done:       make(chan struct{}),
	}
}

// Run serves registrations and broadcasts until ctx is cancelled
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return

		case client := <-h.register:
			h.mu.Lock()
			// A subscriber reconnecting replaces its old connection
			if existing, exists := h.clients[client.subscriberID]; exists {
				close(existing.send)
				slog.Info("Replaced existing feed connection", slog.String("subscriber_id", client.subscriberID))
			}
			h.clients[client.subscriberID] = client
			h.mu.Unlock()
			slog.Info("Feed subscriber connected",
				slog.String("subscriber_id", client.subscriberID),
				slog.String("bucket", client.bucket))

		case client := <-h.unregister:
			h.mu.Lock()
			if current, ok := h.clients[client.subscriberID]; ok && current == client {
				delete(h.clients, client.subscriberID)
				close(client.send)
				slog.Info("Feed subscriber disconnected", slog.String("subscriber_id", client.subscriberID))
			}
			h.mu.Unlock()

		case message := <-h.broadcast:
			h.deliver(message)
		}
	}
}

// RegisterClient returns false when the hub has stopped
func (h *Hub) RegisterClient(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// UnregisterClient is a no-op once the hub has stopped
func (h *Hub) UnregisterClient(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Broadcast queues event for subscribers following bucket
func (h *Hub) Broadcast(bucket string, event *types.Event) {
	select {
	case h.broadcast <- &BroadcastMessage{Bucket: bucket, Event: event}:
	default:
		slog.Warn("Broadcast channel is full, dropping event", slog.String("type", string(event.Type)))
	}
}

func (h *Hub) deliver(message *BroadcastMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for id, client := range h.clients {
		if !client.Follows(message.Bucket) {
			continue
		}
		if err := client.SendEvent(message.Event); err != nil {
			slog.Error("Failed to send event to subscriber",
				slog.String("subscriber_id", id),
				slog.String("error", err.Error()))
			go h.UnregisterClient(client)
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, client := range h.clients {
		close(client.send)
		delete(h.clients, id)
	}
}

// ClientCount returns the number of connected subscribers
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.clients)
}
