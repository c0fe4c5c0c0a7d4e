package ws

import (
	"encoding/json"
	"sync"
	"time"
)

// Event is pushed to every dashboard connected for the business.
type Event struct {
	Type      string      `json:"type"`
	StationID string      `json:"station_id"`
	Data      interface{} `json:"data,omitempty"`
	At        time.Time   `json:"at"`
}

// Client is one websocket connection of a signed-in staff user.
type Client struct {
	BusinessID string
	Send       chan []byte
	Hub        *Hub
	mu         sync.Mutex
	closed     bool
}

func NewClient(businessID string) *Client {
	return &Client{BusinessID: businessID, Send: make(chan []byte, 64)}
}

func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	if c.Hub != nil {
		c.Hub.unregister(c)
	}
	close(c.Send)
}

// Hub fans station events out to the clients of each business.
type Hub struct {
	mu         sync.RWMutex
	byBusiness map[string]map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{byBusiness: make(map[string]map[*Client]struct{})}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c.Hub = h
	if h.byBusiness[c.BusinessID] == nil {
		h.byBusiness[c.BusinessID] = make(map[*Client]struct{})
	}
	h.byBusiness[c.BusinessID][c] = struct{}{}
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if m := h.byBusiness[c.BusinessID]; m != nil {
		delete(m, c)
		if len(m) == 0 {
			delete(h.byBusiness, c.BusinessID)
		}
	}
}

// Publish never blocks; slow clients miss events rather than stall settlement.
func (h *Hub) Publish(businessID string, ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.byBusiness[businessID] {
		select {
		case c.Send <- data:
		default:
		}
	}
}

func (h *Hub) ClientCount(businessID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.byBusiness[businessID])
}
