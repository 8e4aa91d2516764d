package port

import (
	"context"
	"errors"

	"swiftDropWs/internal/modules/relay/domain"
)

var (
	ErrOwnershipNotFound    = errors.New("ownership fact not found")
	ErrOwnershipUnavailable = errors.New("ownership service unavailable")
)

// Broadcaster delivers relay messages to subscribed WebSocket connections.
type Broadcaster interface {
	// Broadcast fans the message out to every subscriber of msg.Topic.
	Broadcast(ctx context.Context, msg *domain.Message)
	// BroadcastAll delivers to every attached connection, subscribed or not.
	BroadcastAll(ctx context.Context, msg *domain.Message)
	// SendToUser delivers directly to all connections authenticated as userID,
	// without requiring a subscription.
	SendToUser(ctx context.Context, userID string, msg *domain.Message)
}

// TopicHandler is implemented by each ingress handler registered for a
// Kafka topic.
type TopicHandler interface {
	Topic() string
	Handle(ctx context.Context, msg *domain.Message) error
}

// OwnershipResolver answers authorization facts held by the REST system of
// record: which courier an order is assigned to, who staffs a hub.
type OwnershipResolver interface {
	// OrderCourier returns the courier currently assigned to the order.
	OrderCourier(ctx context.Context, orderID string) (string, error)
	// HubOwner returns the owner of the hub.
	HubOwner(ctx context.Context, hubID string) (string, error)
}
