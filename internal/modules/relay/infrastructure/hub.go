package infrastructure

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"

	"swiftDropWs/internal/modules/relay/domain"
)

// Hub owns every live connection and the topic subscription index.
// Delivery is at-most-once and in-memory only: a message is marshalled once
// and pushed onto each subscriber's buffered send channel, which preserves
// per-topic ordering as long as dispatch happens from one goroutine per
// ingress stream.
type Hub struct {
	topics  map[string]map[*Client]struct{}
	clients map[string]*Client
	byUser  map[string]map[*Client]struct{}
	mu      sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		topics:  make(map[string]map[*Client]struct{}),
		clients: make(map[string]*Client),
		byUser:  make(map[string]map[*Client]struct{}),
	}
}

// AttachClient registers a freshly upgraded, not yet authenticated connection.
func (h *Hub) AttachClient(c *Client) {
	h.mu.Lock()
	h.clients[c.socketID] = c
	h.mu.Unlock()
	slog.Info("ws client attached", slog.String("socketId", c.socketID))
}

// bindUser indexes an authenticated connection under its user id so personal
// events reach it without an explicit subscribe.
func (h *Hub) bindUser(c *Client, userID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.byUser[userID] == nil {
		h.byUser[userID] = make(map[*Client]struct{})
	}
	h.byUser[userID][c] = struct{}{}
}

func (h *Hub) subscribe(c *Client, topic string) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.topics[topic] == nil {
		h.topics[topic] = make(map[*Client]struct{})
	}
	h.topics[topic][c] = struct{}{}
	c.subscribed[topic] = struct{}{}
}

func (h *Hub) unsubscribe(c *Client, topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if subs, ok := h.topics[topic]; ok {
		delete(subs, c)
		if len(subs) == 0 {
			delete(h.topics, topic)
		}
	}
	delete(c.subscribed, topic)
}

// DetachClient releases every subscription the connection holds and closes it.
// Safe to call more than once.
func (h *Hub) DetachClient(c *Client) {
	if c == nil {
		return
	}
	h.mu.Lock()
	for topic := range c.subscribed {
		if subs, ok := h.topics[topic]; ok {
			delete(subs, c)
			if len(subs) == 0 {
				delete(h.topics, topic)
			}
		}
	}
	delete(h.clients, c.socketID)
	if userID := c.UserID(); userID != "" {
		if conns, ok := h.byUser[userID]; ok {
			delete(conns, c)
			if len(conns) == 0 {
				delete(h.byUser, userID)
			}
		}
	}
	h.mu.Unlock()
	c.close()
	slog.Info("ws client detached", slog.String("socketId", c.socketID), slog.String("userId", c.UserID()))
}

// Broadcast fans msg out to every subscriber of msg.Topic. Messages without
// a topic are dropped: topic isolation over accidental global delivery.
func (h *Hub) Broadcast(_ context.Context, msg *domain.Message) {
	if strings.TrimSpace(msg.Topic) == "" {
		slog.Warn("broadcast dropped: empty topic", slog.String("action", msg.Action))
		return
	}
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("broadcast marshal error", slog.Any("error", err))
		return
	}

	h.mu.RLock()
	subs := h.topics[msg.Topic]
	targets := make([]*Client, 0, len(subs))
	for c := range subs {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		h.push(c, data)
	}
}

// BroadcastAll delivers msg to every attached connection regardless of
// subscriptions (system notifications, emergency alerts, inventory changes).
func (h *Hub) BroadcastAll(_ context.Context, msg *domain.Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("broadcast marshal error", slog.Any("error", err))
		return
	}

	h.mu.RLock()
	targets := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		h.push(c, data)
	}
}

// SendToUser delivers msg to every connection authenticated as userID.
func (h *Hub) SendToUser(_ context.Context, userID string, msg *domain.Message) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return
	}
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("send marshal error", slog.Any("error", err))
		return
	}

	h.mu.RLock()
	conns := h.byUser[userID]
	targets := make([]*Client, 0, len(conns))
	for c := range conns {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		h.push(c, data)
	}
}

func (h *Hub) push(c *Client, data []byte) {
	if !c.enqueue(data) {
		// Slow consumer: drop the connection rather than block dispatch.
		go h.DetachClient(c)
	}
}

// Stats summarises the live connection population.
type Stats struct {
	Total     int `json:"totalConnections"`
	Customers int `json:"customers"`
	Couriers  int `json:"couriers"`
	HubOwners int `json:"hubOwners"`
	Admins    int `json:"admins"`
}

// ConnectionStats counts attached connections by authenticated role.
func (h *Hub) ConnectionStats() Stats {
	h.mu.RLock()
	defer h.mu.RUnlock()
	stats := Stats{Total: len(h.clients)}
	for _, c := range h.clients {
		switch c.Role() {
		case domain.RoleCustomer:
			stats.Customers++
		case domain.RoleCourier:
			stats.Couriers++
		case domain.RoleHubOwner:
			stats.HubOwners++
		case domain.RoleAdmin:
			stats.Admins++
		}
	}
	return stats
}
