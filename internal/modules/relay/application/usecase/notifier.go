package usecase

import (
	"context"
	"time"

	"swiftDropWs/internal/modules/relay/application/port"
	"swiftDropWs/internal/modules/relay/domain"
)

// Notifier exposes the personal-notification surface the REST layer and the
// ingress handlers use to announce committed state changes. The relay only
// announces; it never writes authoritative state itself.
type Notifier struct {
	broadcaster port.Broadcaster
	now         func() time.Time
}

func NewNotifier(b port.Broadcaster) *Notifier {
	return &Notifier{broadcaster: b, now: time.Now}
}

// NotifyOrderUpdate reaches the order's watchers and the owning customer.
// The customer gets a personal copy even without an explicit track_order.
func (n *Notifier) NotifyOrderUpdate(ctx context.Context, customerID, orderID string, orderData map[string]any) {
	msg := domain.BuildOrderUpdateMessage(orderID, orderData, n.now())
	n.broadcaster.Broadcast(ctx, msg)
	if customerID != "" {
		n.broadcaster.SendToUser(ctx, customerID, msg)
	}
}

// NotifyCourierAssignment tells a courier a delivery was assigned to them.
func (n *Notifier) NotifyCourierAssignment(ctx context.Context, courierID string, deliveryData map[string]any) {
	n.broadcaster.SendToUser(ctx, courierID, domain.BuildDeliveryAssignedMessage(courierID, deliveryData, n.now()))
}

// NotifyLowInventory warns the hub owner about depleted stock.
func (n *Notifier) NotifyLowInventory(ctx context.Context, hubOwnerID string, inventoryData map[string]any) {
	n.broadcaster.SendToUser(ctx, hubOwnerID, domain.BuildLowInventoryAlert(hubOwnerID, inventoryData, n.now()))
}

// BroadcastSystemNotification reaches every connection.
func (n *Notifier) BroadcastSystemNotification(ctx context.Context, notification map[string]any) {
	n.broadcaster.BroadcastAll(ctx, domain.BuildSystemNotification(notification, n.now()))
}
