package notifier

import (
	"context"
	"sync"
	"wqd/internal/providers"

	json "github.com/goccy/go-json"
)

// Hub maintains the set of connected websocket clients and broadcasts alerts to them.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	logger  providers.Logger
}

func NewHub(logger providers.Logger) *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		logger:  logger,
	}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	h.logger.Infof(providers.TypeApp, "WebSocket client registered: %s", c.remoteAddr())
}

// Unregister removes c and closes its send queue. Safe to call more than once.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
	if ok {
		h.logger.Infof(providers.TypeApp, "WebSocket client unregistered: %s", c.remoteAddr())
	}
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Notify broadcasts the alert. It fails with ErrNoSubscribers when nobody
// received it.
func (h *Hub) Notify(_ context.Context, alert Alert) error {
	message, err := json.Marshal(map[string]interface{}{"type": "alert", "payload": alert})
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	delivered := 0
	for c := range h.clients {
		select {
		case c.send <- message:
			delivered++
		default:
			h.logger.Warnf(providers.TypeApp, "WebSocket client %s send buffer full, removing", c.remoteAddr())
			delete(h.clients, c)
			close(c.send)
		}
	}
	if delivered == 0 {
		return ErrNoSubscribers
	}
	return nil
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}
