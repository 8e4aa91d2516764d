package domain

import (
	"strings"
	"time"
)

// BuildConnectedMessage greets a freshly attached connection with its socket id.
func BuildConnectedMessage(socketID string, at time.Time) *Message {
	return &Message{
		Topic:     SystemEntity + "." + EventConnected,
		Entity:    SystemEntity,
		Action:    EventConnected,
		Data:      map[string]any{"socketId": socketID},
		Timestamp: at.UTC(),
	}
}

// BuildAuthenticatedMessage acknowledges a successful handshake.
func BuildAuthenticatedMessage(socketID, userID, role string, at time.Time) *Message {
	return &Message{
		Topic:  SystemEntity + "." + EventAuthenticated,
		Entity: SystemEntity,
		Action: EventAuthenticated,
		Metadata: Metadata{
			"userId":   userID,
			"userType": role,
		},
		Data: map[string]any{
			"success":  true,
			"userId":   userID,
			"userType": role,
			"socketId": socketID,
		},
		Timestamp: at.UTC(),
	}
}

// BuildErrorMessage reports a rejected or malformed action back to its sender.
func BuildErrorMessage(action, reason string, at time.Time) *Message {
	metadata := Metadata{"action": strings.TrimSpace(action)}
	if trimmed := strings.TrimSpace(reason); trimmed != "" {
		metadata["reason"] = trimmed
	}
	return &Message{
		Topic:     SystemEntity + "." + EventError,
		Entity:    SystemEntity,
		Action:    EventError,
		Metadata:  metadata,
		Data:      map[string]string{"error": reason},
		Timestamp: at.UTC(),
	}
}

// BuildPongMessage answers a client keepalive ping.
func BuildPongMessage(at time.Time) *Message {
	return &Message{
		Topic:     SystemEntity + "." + EventPong,
		Entity:    SystemEntity,
		Action:    EventPong,
		Timestamp: at.UTC(),
	}
}

// BuildCourierLocationMessage fans a courier position out to an order's watchers.
func BuildCourierLocationMessage(courierID string, cmd CourierLocationCommand, at time.Time) *Message {
	return &Message{
		Topic:      OrderTopic(cmd.OrderID),
		Entity:     "couriers",
		Action:     EventCourierLocation,
		ResourceID: strings.TrimSpace(cmd.OrderID),
		Metadata:   Metadata{"courierId": courierID},
		Data: map[string]any{
			"courierId": courierID,
			"latitude":  cmd.Latitude,
			"longitude": cmd.Longitude,
			"orderId":   strings.TrimSpace(cmd.OrderID),
		},
		Timestamp: at.UTC(),
	}
}

// BuildHubInventoryChangedMessage announces a stock delta platform-wide.
func BuildHubInventoryChangedMessage(senderID string, cmd HubInventoryCommand, at time.Time) *Message {
	return &Message{
		Topic:      "hubs." + EventHubInventoryChanged,
		Entity:     "hubs",
		Action:     EventHubInventoryChanged,
		ResourceID: strings.TrimSpace(cmd.HubID),
		Metadata:   Metadata{"hubId": cmd.HubID, "updatedBy": senderID},
		Data: map[string]any{
			"hubId":     strings.TrimSpace(cmd.HubID),
			"productId": strings.TrimSpace(cmd.ProductID),
			"quantity":  cmd.Quantity,
			"action":    strings.ToLower(strings.TrimSpace(cmd.Action)),
		},
		Timestamp: at.UTC(),
	}
}

// BuildNewOrderNotification targets the resolved owner of the order's hub.
func BuildNewOrderNotification(ownerID string, cmd NewOrderCommand, at time.Time) *Message {
	data := map[string]any{"type": "new_order"}
	for k, v := range cmd.OrderData {
		data[k] = v
	}
	return &Message{
		Topic:      HubOwnerTopic(ownerID),
		Entity:     "orders",
		Action:     EventNewOrderNotification,
		ResourceID: cmd.OrderID(),
		Metadata:   Metadata{"hubId": cmd.HubID()},
		Data:       data,
		Timestamp:  at.UTC(),
	}
}

// BuildDeliveryOpportunity offers a fresh order to the courier pool.
func BuildDeliveryOpportunity(cmd NewOrderCommand, at time.Time) *Message {
	data := map[string]any{"type": "delivery_available"}
	for k, v := range cmd.OrderData {
		data[k] = v
	}
	return &Message{
		Topic:      TopicCouriers,
		Entity:     "orders",
		Action:     EventDeliveryOpportunity,
		ResourceID: cmd.OrderID(),
		Data:       data,
		Timestamp:  at.UTC(),
	}
}

// BuildChatMessage wraps a chat payload for personal or order-scoped delivery.
func BuildChatMessage(senderID string, cmd SendMessageCommand, at time.Time) *Message {
	topic := ""
	if recipient := strings.TrimSpace(cmd.RecipientID); recipient == "" {
		topic = OrderTopic(cmd.OrderID)
	}
	return &Message{
		Topic:      topic,
		Entity:     "messages",
		Action:     EventNewMessage,
		ResourceID: strings.TrimSpace(cmd.OrderID),
		Metadata:   Metadata{"senderId": senderID, "recipientId": strings.TrimSpace(cmd.RecipientID)},
		Data: map[string]any{
			"senderId":    senderID,
			"message":     cmd.Message,
			"messageType": cmd.Type(),
			"orderId":     strings.TrimSpace(cmd.OrderID),
		},
		Timestamp: at.UTC(),
	}
}

// BuildOrderUpdateMessage announces a committed order change to its watchers.
func BuildOrderUpdateMessage(orderID string, orderData map[string]any, at time.Time) *Message {
	data := map[string]any{"orderId": strings.TrimSpace(orderID)}
	for k, v := range orderData {
		data[k] = v
	}
	return &Message{
		Topic:      OrderTopic(orderID),
		Entity:     "orders",
		Action:     EventOrderUpdate,
		ResourceID: strings.TrimSpace(orderID),
		Data:       data,
		Timestamp:  at.UTC(),
	}
}

// BuildDeliveryAssignedMessage tells one courier a delivery is theirs.
func BuildDeliveryAssignedMessage(courierID string, deliveryData map[string]any, at time.Time) *Message {
	data := map[string]any{}
	for k, v := range deliveryData {
		data[k] = v
	}
	return &Message{
		Topic:      CourierTopic(courierID),
		Entity:     "orders",
		Action:     EventDeliveryAssigned,
		ResourceID: stringField(deliveryData, "orderId"),
		Metadata:   Metadata{"courierId": courierID},
		Data:       data,
		Timestamp:  at.UTC(),
	}
}

// BuildLowInventoryAlert warns a hub owner about depleted stock.
func BuildLowInventoryAlert(hubOwnerID string, inventoryData map[string]any, at time.Time) *Message {
	data := map[string]any{"type": "low_inventory"}
	for k, v := range inventoryData {
		data[k] = v
	}
	return &Message{
		Topic:      HubOwnerTopic(hubOwnerID),
		Entity:     "hubs",
		Action:     EventLowInventoryAlert,
		ResourceID: stringField(inventoryData, "hubId"),
		Data:       data,
		Timestamp:  at.UTC(),
	}
}

// BuildSystemNotification wraps a platform-wide announcement.
func BuildSystemNotification(notification map[string]any, at time.Time) *Message {
	data := map[string]any{}
	for k, v := range notification {
		data[k] = v
	}
	return &Message{
		Topic:     SystemEntity + "." + EventSystemNotification,
		Entity:    SystemEntity,
		Action:    EventSystemNotification,
		Data:      data,
		Timestamp: at.UTC(),
	}
}

// BuildEmergencyNotification broadcasts a crisis alert to every connection.
func BuildEmergencyNotification(senderID string, cmd EmergencyAlertCommand, at time.Time) *Message {
	data := map[string]any{"type": "emergency", "senderId": senderID}
	for k, v := range cmd.AlertData {
		data[k] = v
	}
	return &Message{
		Topic:     SystemEntity + "." + EventEmergencyNotification,
		Entity:    SystemEntity,
		Action:    EventEmergencyNotification,
		Metadata:  Metadata{"senderId": senderID},
		Data:      data,
		Timestamp: at.UTC(),
	}
}
