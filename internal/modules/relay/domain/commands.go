package domain

import (
	"errors"
	"strings"
)

var ErrInvalidCommand = errors.New("invalid command payload")

// AuthenticateCommand is the handshake payload sent right after connect.
type AuthenticateCommand struct {
	UserID   string `json:"userId"`
	UserType string `json:"userType"`
	Token    string `json:"token"`
}

func (c AuthenticateCommand) Validate() error {
	if strings.TrimSpace(c.Token) == "" {
		return errors.New("missing token")
	}
	if NormalizeRole(c.UserType) == "" {
		return errors.New("unknown user type")
	}
	return nil
}

// TrackOrderCommand subscribes the connection to one order's event stream.
type TrackOrderCommand struct {
	OrderID string `json:"orderId"`
}

func (c TrackOrderCommand) Validate() error {
	if strings.TrimSpace(c.OrderID) == "" {
		return errors.New("missing orderId")
	}
	return nil
}

// CourierLocationCommand pushes a courier position, optionally tied to an
// active delivery. Without an orderId the position is accepted but produces
// no order-scoped fan-out.
type CourierLocationCommand struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	OrderID   string  `json:"orderId,omitempty"`
}

func (c CourierLocationCommand) Validate() error {
	if c.Latitude < -90 || c.Latitude > 90 {
		return errors.New("latitude out of range")
	}
	if c.Longitude < -180 || c.Longitude > 180 {
		return errors.New("longitude out of range")
	}
	return nil
}

// Inventory actions accepted by HubInventoryCommand.
const (
	InventoryAdd    = "add"
	InventoryRemove = "remove"
	InventoryUpdate = "update"
)

// HubInventoryCommand announces a stock delta for one product at one hub.
type HubInventoryCommand struct {
	HubID     string `json:"hubId"`
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
	Action    string `json:"action"`
}

func (c HubInventoryCommand) Validate() error {
	if strings.TrimSpace(c.HubID) == "" {
		return errors.New("missing hubId")
	}
	if strings.TrimSpace(c.ProductID) == "" {
		return errors.New("missing productId")
	}
	switch strings.ToLower(strings.TrimSpace(c.Action)) {
	case InventoryAdd, InventoryRemove, InventoryUpdate:
		return nil
	default:
		return errors.New("action must be add, remove or update")
	}
}

// NewOrderCommand is a pure signal: the order record itself is created
// through the REST API, this only announces it to hub staff and couriers.
type NewOrderCommand struct {
	OrderData map[string]any `json:"orderData"`
}

func (c NewOrderCommand) Validate() error {
	if len(c.OrderData) == 0 {
		return errors.New("missing orderData")
	}
	return nil
}

// HubID extracts the owning hub from the order payload when present.
func (c NewOrderCommand) HubID() string {
	return stringField(c.OrderData, "hubId")
}

// OrderID extracts the order identifier from the payload when present.
func (c NewOrderCommand) OrderID() string {
	return stringField(c.OrderData, "orderId")
}

// SendMessageCommand delivers a chat message to a user or to the watchers of
// an order when no recipient is given.
type SendMessageCommand struct {
	RecipientID string `json:"recipientId,omitempty"`
	Message     string `json:"message"`
	MessageType string `json:"messageType,omitempty"`
	OrderID     string `json:"orderId,omitempty"`
}

func (c SendMessageCommand) Validate() error {
	if strings.TrimSpace(c.Message) == "" {
		return errors.New("missing message")
	}
	if strings.TrimSpace(c.RecipientID) == "" && strings.TrimSpace(c.OrderID) == "" {
		return errors.New("missing recipientId or orderId")
	}
	return nil
}

// Type returns the message type, defaulting to text.
func (c SendMessageCommand) Type() string {
	if t := strings.TrimSpace(c.MessageType); t != "" {
		return t
	}
	return "text"
}

// EmergencyAlertCommand raises a platform-wide crisis notification.
// Only admin and hub-owner connections may emit it.
type EmergencyAlertCommand struct {
	AlertData map[string]any `json:"alertData"`
}

func (c EmergencyAlertCommand) Validate() error {
	if len(c.AlertData) == 0 {
		return errors.New("missing alertData")
	}
	return nil
}

func stringField(data map[string]any, key string) string {
	if data == nil {
		return ""
	}
	if v, ok := data[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}
