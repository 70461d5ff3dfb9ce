package server

import (
	"encoding/json"
	"sync"

	"GreenDeck/internal/logger"
)

// outbound is every message the server writes to a websocket.
type outbound struct {
	Type     string        `json:"type"` // "progress" or "error"
	Progress *ProgressView `json:"progress,omitempty"`
	Error    string        `json:"error,omitempty"`
}

// Hub tracks websocket clients per learner so a change made on one tab or
// over HTTP reaches every open connection of that learner.
type Hub struct {
	mu      sync.Mutex
	clients map[string]map[*client]struct{}
	closed  bool
	log     *logger.Logger
}

func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		clients: make(map[string]map[*client]struct{}),
		log:     log.With("component", "Hub"),
	}
}

func (h *Hub) register(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	set, ok := h.clients[c.learnerID]
	if !ok {
		set = make(map[*client]struct{})
		h.clients[c.learnerID] = set
	}
	set[c] = struct{}{}
	h.log.Debug("client connected", "learner", c.learnerID, "connections", len(set))
	return true
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.remove(c)
}

// remove drops c and closes its send channel. Must be called with the lock held.
func (h *Hub) remove(c *client) {
	set, ok := h.clients[c.learnerID]
	if !ok {
		return
	}
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	close(c.send)
	if len(set) == 0 {
		delete(h.clients, c.learnerID)
	}
}

// Connections is the number of open connections for learnerID.
func (h *Hub) Connections(learnerID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients[learnerID])
}

// Broadcast sends msg to every connection of learnerID. A client whose
// buffer is full is disconnected.
func (h *Hub) Broadcast(learnerID string, msg outbound) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.log.Error("marshal broadcast", "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients[learnerID] {
		select {
		case c.send <- data:
		default:
			h.log.Warn("client too slow, disconnecting", "learner", learnerID)
			h.remove(c)
		}
	}
}

// Close disconnects every client and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for _, set := range h.clients {
		for c := range set {
			h.remove(c)
		}
	}
}
