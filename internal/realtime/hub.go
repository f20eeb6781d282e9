// Package realtime streams audit activity to connected admin dashboards
// over WebSocket, bridged through Redis for horizontal scaling.
package realtime

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"github.com/gulfevents/backoffice/internal/models"
)

const (
	// PingInterval and PongWait are heartbeat settings in seconds.
	PingInterval = 30
	PongWait     = 60
)

// Publisher publishes audit events for cross-instance delivery.
type Publisher interface {
	PublishAuditEvent(payload []byte) error
}

// Subscriber subscribes to the audit channel and invokes handler for each
// incoming event.
type Subscriber interface {
	SubscribeAudit(handler func(payload []byte)) (cancel func(), err error)
}

// Hub maintains the set of connected admin dashboards. There is a single
// room; every connected client sees every audit event.
type Hub struct {
	clients map[string]*Client
	cancel  func()
	mu      sync.RWMutex
	logger  *zap.Logger
	pub     Publisher
}

// NewHub creates the audit feed hub and, when sub is non-nil, starts the
// Redis subscription that fans events out to local clients.
func NewHub(logger *zap.Logger, pub Publisher, sub Subscriber) *Hub {
	h := &Hub{
		clients: make(map[string]*Client),
		logger:  logger,
		pub:     pub,
	}
	if sub != nil {
		cancel, err := sub.SubscribeAudit(func(payload []byte) {
			h.broadcast(json.RawMessage(payload))
		})
		if err != nil {
			logger.Warn("audit feed subscription failed, running local-only", zap.Error(err))
		} else {
			h.cancel = cancel
		}
	}
	return h
}

// Register adds a connected dashboard.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c.ID] = c
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug("audit feed client connected", zap.String("client_id", c.ID), zap.Int("clients", n))
}

// Unregister removes a dashboard connection.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	delete(h.clients, c.ID)
	h.mu.Unlock()
	h.logger.Debug("audit feed client disconnected", zap.String("client_id", c.ID))
}

// PublishAudit delivers an audit entry to every dashboard on every
// instance. Satisfies the audit recorder's Feed interface.
func (h *Hub) PublishAudit(e models.AuditEntry) {
	data, err := json.Marshal(e)
	if err != nil {
		return
	}
	// With Redis wired, delivery to local clients happens through the
	// subscription so each instance sees the event exactly once.
	if h.pub != nil {
		if err := h.pub.PublishAuditEvent(data); err == nil {
			return
		}
		h.logger.Warn("audit feed publish failed, falling back to local broadcast")
	}
	h.broadcast(data)
}

func (h *Hub) broadcast(data json.RawMessage) {
	msg := WSMessage{Event: "audit_entry", Data: data}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		select {
		case c.send <- msg:
		default:
			// Slow consumer; drop the event rather than block the feed.
		}
	}
}

// Close stops the Redis subscription.
func (h *Hub) Close() {
	if h.cancel != nil {
		h.cancel()
	}
}
