package client

import (
	"encoding/json"
	"time"
)

// Event is the closed set of relay event names handlers can subscribe to.
type Event string

// Events synthesized locally from the connection lifecycle.
const (
	EventConnected       Event = "connected"
	EventDisconnected    Event = "disconnected"
	EventConnectionError Event = "connection_error"
)

// Events delivered by the server.
const (
	EventAuthenticated         Event = "authenticated"
	EventError                 Event = "error"
	EventPong                  Event = "pong"
	EventOrderUpdate           Event = "order_update"
	EventCourierLocation       Event = "courier_location"
	EventHubInventoryChanged   Event = "hub_inventory_changed"
	EventNewOrderNotification  Event = "new_order_notification"
	EventDeliveryOpportunity   Event = "delivery_opportunity"
	EventDeliveryAssigned      Event = "delivery_assigned"
	EventNewMessage            Event = "new_message"
	EventSystemNotification    Event = "system_notification"
	EventEmergencyNotification Event = "emergency_notification"
	EventLowInventoryAlert     Event = "low_inventory_alert"
)

// Message is the envelope every relay event arrives in. Data stays raw so
// each handler can decode the shape it expects.
type Message struct {
	Topic      string            `json:"topic"`
	Entity     string            `json:"entity"`
	Action     string            `json:"action"`
	ResourceID string            `json:"resourceId,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	Data       json.RawMessage   `json:"data,omitempty"`
	Timestamp  time.Time         `json:"timestamp"`
}

// Handler consumes one relay event. Handlers run synchronously on the
// connection's read loop, in registration order.
type Handler func(msg *Message)

func localMessage(event Event, data map[string]any) *Message {
	raw, _ := json.Marshal(data)
	return &Message{
		Topic:     "system." + string(event),
		Entity:    "system",
		Action:    string(event),
		Data:      raw,
		Timestamp: time.Now().UTC(),
	}
}
