// Package hub implements the broadcast hub that fans serial and TUIO
// events out to the set of live WebSocket subscribers.
package hub

import (
	"encoding/json"
	"log/slog"
	"sync"
)

// Subscriber is an open duplex connection that can receive one encoded
// event and be closed. Send must not block; a full or dead connection
// reports an error instead.
type Subscriber interface {
	ID() string
	Send(data []byte) error
	Close() error
}

// Hub owns the live subscriber set. All mutation goes through Register,
// Unregister and Broadcast; the zero set is valid and broadcasting to it
// is a no-op.
type Hub struct {
	logger *slog.Logger

	mu      sync.Mutex
	clients map[Subscriber]struct{}
}

// New creates an empty hub.
func New(logger *slog.Logger) *Hub {
	return &Hub{
		logger:  logger,
		clients: make(map[Subscriber]struct{}),
	}
}

// Register adds a subscriber to the live set. Registering a subscriber
// that is already present is a no-op.
func (h *Hub) Register(sub Subscriber) {
	h.mu.Lock()
	h.clients[sub] = struct{}{}
	count := len(h.clients)
	h.mu.Unlock()

	h.logger.Info("client connected",
		slog.String("client_id", sub.ID()),
		slog.Int("clients", count),
	)
}

// Unregister removes a subscriber from the live set. Removing a
// subscriber that is absent is a no-op, so a failed send racing a clean
// disconnect cannot double-remove.
func (h *Hub) Unregister(sub Subscriber) {
	h.mu.Lock()
	_, present := h.clients[sub]
	delete(h.clients, sub)
	count := len(h.clients)
	h.mu.Unlock()

	if !present {
		return
	}

	h.logger.Info("client disconnected",
		slog.String("client_id", sub.ID()),
		slog.Int("clients", count),
	)
}

// Broadcast encodes the event as JSON and sends it to every registered
// subscriber. A failed send marks that subscriber for removal but never
// interrupts delivery to the rest; marked subscribers are removed and
// closed after the full pass, so the set is not mutated while iterated.
func (h *Hub) Broadcast(evt any) {
	payload, err := json.Marshal(evt)
	if err != nil {
		h.logger.Error("failed to encode event", slog.String("error", err.Error()))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	var failed []Subscriber
	for sub := range h.clients {
		if err := sub.Send(payload); err != nil {
			h.logger.Warn("failed to send to client",
				slog.String("client_id", sub.ID()),
				slog.String("error", err.Error()),
			)
			failed = append(failed, sub)
		}
	}

	for _, sub := range failed {
		delete(h.clients, sub)
		sub.Close()
	}
}

// Count returns the number of live subscribers.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return len(h.clients)
}

// CloseAll closes every subscriber and empties the set. Used at shutdown.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for sub := range h.clients {
		sub.Close()
		delete(h.clients, sub)
	}
}
